package entity

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMergesAndEmits(t *testing.T) {
	e := New(map[string]any{"a": 1.0, "b": "x"})

	var got []Event
	e.On(EventUpdate, func(ev Event) { got = append(got, ev) })

	e.Update(map[string]any{"b": "y", "c": true}, false)

	assert.Equal(t, map[string]any{"a": 1.0, "b": "y", "c": true}, e.Data())
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"data": map[string]any{"b": "y", "c": true}}, got[0].Data)
	assert.Same(t, e, got[0].Source)
}

func TestUpdateOverrideReplaces(t *testing.T) {
	e := New(map[string]any{"a": 1.0, "b": "x"})
	e.Update(map[string]any{"c": 2.0}, true)
	assert.Equal(t, map[string]any{"c": 2.0}, e.Data())
}

func TestUpdateNestedMapIsReplaced(t *testing.T) {
	e := New(map[string]any{"n": map[string]any{"x": 1.0, "y": 2.0}})
	e.Update(map[string]any{"n": map[string]any{"x": 3.0}}, false)
	assert.Equal(t, map[string]any{"x": 3.0}, e.Data()["n"])
}

func TestDataIsACopy(t *testing.T) {
	e := New(map[string]any{"a": 1.0})
	d := e.Data()
	d["a"] = 2.0
	assert.Equal(t, 1, e.Int("a"))
}

func TestOverrideDoesNotAliasCallerMap(t *testing.T) {
	src := map[string]any{"a": 1.0}
	e := New(nil)
	e.Update(src, true)
	src["a"] = 5.0
	assert.Equal(t, 1, e.Int("a"))
}

func TestSetSource(t *testing.T) {
	e := New(nil)
	owner := &struct{ name string }{"owner"}
	e.SetSource(owner)

	var src any
	e.On(EventUpdate, func(ev Event) { src = ev.Source })
	e.Update(map[string]any{"k": 1.0}, false)
	assert.Same(t, owner, src)
}

func TestAccessors(t *testing.T) {
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"i":7,"s":"str","b":true,"f":1.5,"l":[{"_id":1},"skip",{"_id":2}]}`), &data))
	e := New(data)

	assert.Equal(t, 7, e.Int("i"))
	_, ok := e.IntOK("missing")
	assert.False(t, ok)
	assert.Equal(t, "str", e.String("s"))
	assert.Equal(t, "7", e.String("i"))
	assert.True(t, e.Bool("b"))
	f, ok := e.Float("f")
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)
	assert.Len(t, e.List("l"), 2)
	assert.True(t, e.Has("s"))
	assert.False(t, e.Has("nope"))
}

func TestAsHelpers(t *testing.T) {
	n, ok := AsInt(json.Number("12"))
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	assert.False(t, AsBool(nil))
	assert.True(t, AsBool(1.0))
	assert.Equal(t, "", AsString([]int{1}))
	assert.Nil(t, AsList("x"))
}

func TestModifyDoesNotEmit(t *testing.T) {
	e := New(nil)
	called := false
	e.On(EventUpdate, func(Event) { called = true })
	e.Modify(func(d map[string]any) { d["x"] = 1.0 })
	assert.False(t, called)
	assert.Equal(t, 1, e.Int("x"))
}
