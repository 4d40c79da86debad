package entity

import (
	"maps"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

// EventUpdate is emitted after every Update with the delta under "data".
const EventUpdate = "update"

// Entity holds the raw JSON-like state of a remote object and notifies
// listeners whenever it changes.
type Entity struct {
	Emitter

	mu     sync.RWMutex
	data   map[string]any
	source any
}

// New returns an entity seeded with a shallow copy of data.
func New(data map[string]any) *Entity {
	e := &Entity{}
	e.data = maps.Clone(data)
	if e.data == nil {
		e.data = map[string]any{}
	}
	return e
}

// Update merges delta into the stored data, or replaces it entirely when
// override is set, then emits EventUpdate. Nested maps are replaced, not
// merged.
func (e *Entity) Update(delta map[string]any, override bool) {
	e.mu.Lock()
	if override || e.data == nil {
		e.data = maps.Clone(delta)
		if e.data == nil {
			e.data = map[string]any{}
		}
	} else {
		maps.Copy(e.data, delta)
	}
	e.mu.Unlock()

	e.Emit(Event{Name: EventUpdate, Data: map[string]any{"data": delta}, Source: e.Source()})
}

// SetSource sets the value reported as Event.Source for events emitted by
// this entity. Types embedding an Entity point it at themselves.
func (e *Entity) SetSource(src any) {
	e.mu.Lock()
	e.source = src
	e.mu.Unlock()
}

// Source returns the value set by SetSource, or the entity itself.
func (e *Entity) Source() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.source != nil {
		return e.source
	}
	return e
}

// Modify lets fn mutate the stored data in place without emitting.
func (e *Entity) Modify(fn func(data map[string]any)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		e.data = map[string]any{}
	}
	fn(e.data)
}

// Data returns a shallow copy of the stored data.
func (e *Entity) Data() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.data)
}

// Get returns the raw value stored under key.
func (e *Entity) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.data[key]
	return v, ok
}

// Has reports whether key is present and non-null.
func (e *Entity) Has(key string) bool {
	v, ok := e.Get(key)
	return ok && v != nil
}

func (e *Entity) String(key string) string {
	v, _ := e.Get(key)
	return AsString(v)
}

func (e *Entity) Bool(key string) bool {
	v, _ := e.Get(key)
	return AsBool(v)
}

func (e *Entity) Int(key string) int {
	n, _ := e.IntOK(key)
	return n
}

// IntOK is like Int but reports whether a numeric value was present.
func (e *Entity) IntOK(key string) (int, bool) {
	v, _ := e.Get(key)
	return AsInt(v)
}

func (e *Entity) Float(key string) (float64, bool) {
	v, _ := e.Get(key)
	return AsFloat(v)
}

// List returns the value under key as a list of objects, skipping any
// element that is not an object.
func (e *Entity) List(key string) []map[string]any {
	v, _ := e.Get(key)
	return AsList(v)
}

// AsString converts v to a string. Numbers are formatted, everything else
// that is not a string yields "".
func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func AsBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	}
	return false
}

func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func AsList(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
