package store

import (
	"encoding/json"
	"fmt"
)

// Patch is a shallow partial update keyed by JSON field name.
//
// A field absent from the patch keeps its current value. A field mapped to nil
// is reset to its zero value. Any other value replaces the field wholesale;
// nested objects are not merged.
type Patch map[string]any

// applyPatch merges p over row and returns the merged copy. fields is the set
// of JSON field names of T.
func applyPatch[T interface{ GetID() string }](row T, p Patch, fields map[string]struct{}) (T, error) {
	var zero T
	data, err := json.Marshal(row)
	if err != nil {
		return zero, fmt.Errorf("failed to encode record: %w", err)
	}
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return zero, fmt.Errorf("failed to decode record: %w", err)
	}
	for name, v := range p {
		if _, ok := fields[name]; !ok {
			return zero, fmt.Errorf("%w: unknown field %q", ErrInvalidPatch, name)
		}
		if name == "id" {
			if id, ok := v.(string); !ok || id != row.GetID() {
				return zero, fmt.Errorf("%w: id is immutable", ErrInvalidPatch)
			}
			continue
		}
		if v == nil {
			delete(obj, name)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return zero, fmt.Errorf("%w: field %q: %w", ErrInvalidPatch, name, err)
		}
		obj[name] = raw
	}
	if data, err = json.Marshal(obj); err != nil {
		return zero, fmt.Errorf("failed to encode record: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	return out, nil
}
