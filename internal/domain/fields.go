package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoItems is returned when an API response has no "items" array.
var ErrNoItems = errors.New(`response has no "items" array`)

// object is a decoded JSON object whose values are parsed lazily, so missing
// fields can fall back to defaults and wrong types can be reported per field.
type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage) (object, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return o, nil
}

// decodeItems returns the non-null entries of a response's "items" array.
func decodeItems(body []byte) ([]json.RawMessage, error) {
	var envelope struct {
		Items *[]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Items == nil {
		return nil, ErrNoItems
	}
	items := make([]json.RawMessage, 0, len(*envelope.Items))
	for _, item := range *envelope.Items {
		if isNull(item) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// lookup returns the raw value for key, or false when it is absent or null.
func (o object) lookup(key string) (json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

// child returns a nested object, or false when key is absent or not an object.
func (o object) child(key string) (object, bool) {
	raw, ok := o.lookup(key)
	if !ok {
		return nil, false
	}
	c, err := decodeObject(raw)
	if err != nil {
		return nil, false
	}
	return c, true
}

// field decodes o[key] into T, returning def when the key is absent.
func field[T any](o object, key string, def T) (T, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}

// fieldOr is field for lenient records: a wrong-typed value yields def.
func fieldOr[T any](o object, key string, def T) T {
	v, _ := field(o, key, def)
	return v
}

// activeField is field for values that may be a per-status array. idx selects
// the element; it falls back to the first element when out of range.
func activeField[T any](o object, key string, def T, idx int) (T, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	if isArray(raw) {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return def, fmt.Errorf("field %q: %w", key, err)
		}
		if len(elems) == 0 {
			return def, nil
		}
		if idx < 0 || idx >= len(elems) {
			idx = 0
		}
		raw = elems[idx]
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}

// activeIndex finds the first status entry marked active. It returns 0 when
// status is a scalar, missing, or has no active entry.
func activeIndex(o object) int {
	raw, ok := o.lookup("status")
	if !ok || !isArray(raw) {
		return 0
	}
	var statuses []json.RawMessage
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return 0
	}
	for i, s := range statuses {
		var status string
		if err := json.Unmarshal(s, &status); err != nil {
			continue
		}
		if strings.Contains(status, "statusActive") {
			return i
		}
	}
	return 0
}
