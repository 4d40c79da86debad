package panel

import (
	"maps"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
)

// The raw device list is copied on every change so that slices handed out
// by Data() are never mutated afterwards.

// cloneBulk copies data and each element of its device list.
func cloneBulk(data map[string]any) map[string]any {
	out := maps.Clone(data)
	if out == nil {
		return map[string]any{}
	}
	if list, ok := out[AttrDevices].([]any); ok {
		cp := make([]any, len(list))
		for i, v := range list {
			if m, ok := v.(map[string]any); ok {
				cp[i] = maps.Clone(m)
			} else {
				cp[i] = v
			}
		}
		out[AttrDevices] = cp
	}
	return out
}

func rawID(v any) (int, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	return entity.AsInt(m[devices.AttrID])
}

// upsertRaw returns list with each fragment replacing the entry that has the
// same id, or appended when there is none.
func upsertRaw(list any, frags ...map[string]any) []any {
	old, _ := list.([]any)
	out := append([]any(nil), old...)
	for _, frag := range frags {
		id, ok := entity.AsInt(frag[devices.AttrID])
		if !ok {
			continue
		}
		replaced := false
		for i, v := range out {
			if rid, ok := rawID(v); ok && rid == id {
				out[i] = maps.Clone(frag)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, maps.Clone(frag))
		}
	}
	return out
}

// mergeRaw returns list with frag merged into the entry with the same id.
func mergeRaw(list any, frag map[string]any) []any {
	id, _ := entity.AsInt(frag[devices.AttrID])
	old, _ := list.([]any)
	out := append([]any(nil), old...)
	for i, v := range out {
		if rid, ok := rawID(v); ok && rid == id {
			merged := maps.Clone(v.(map[string]any))
			maps.Copy(merged, frag)
			out[i] = merged
			return out
		}
	}
	return append(out, maps.Clone(frag))
}

// removeRaw returns list without the entry with the given id.
func removeRaw(list any, id int) []any {
	old, _ := list.([]any)
	out := make([]any, 0, len(old))
	for _, v := range old {
		if rid, ok := rawID(v); ok && rid == id {
			continue
		}
		out = append(out, v)
	}
	return out
}
