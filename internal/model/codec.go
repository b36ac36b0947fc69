// Package model implements the bidirectional mapping between the
// controller's camelCase wire JSON and this client's typed, snake_case
// object graph (spec.md §4.1). Parsing goes through a generic
// reflect-based merge so every device variant shares one implementation
// of "apply a sparse JSON partial to a typed struct, tracking which
// leaf fields actually changed" instead of hand-written per-type code.
package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lumenvue/protectclient/internal/cache"
)

// ChangedField is a dotted path into a device's fields, e.g.
// "recordingSettings.mode". Returned by UpdateInPlace for diff/echo
// suppression consumers.
type ChangedField string

// ParseError wraps a schema-shape failure from ParseBootstrap. Only the
// NVR and at-least-one-of-each-required-device-list constraints are
// enforced strictly (spec.md §4.1); everything else degrades to Extras.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model: parse bootstrap: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("model: parse bootstrap: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// resolveDuplicateKeys implements the controller's camelCase/snake_case
// transition-period quirk: when both forms of a key are present,
// snake_case wins and the camelCase entry is discarded entirely (not
// retained as an extra).
func resolveDuplicateKeys(raw map[string]json.RawMessage) map[string]json.RawMessage {
	for key := range raw {
		snake := toSnakeCase(key)
		if snake == key {
			continue
		}
		if snakeVal, ok := raw[snake]; ok {
			raw[key] = snakeVal
			delete(raw, snake)
		}
	}
	return raw
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// jsonTagName returns the wire key a struct field is addressed by, or
// "" if the field has no json tag / is explicitly "-".
func jsonTagName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name := strings.Split(tag, ",")[0]
	if name == "-" || name == "" {
		return ""
	}
	return name
}

// applyPartial merges a decoded JSON object (map[string]any, as produced
// by encoding/json when unmarshaling into `any`) into the struct pointed
// to by rv, matching keys against json tags (including promoted fields
// from embedded structs) and recursing into nested struct fields so
// changed-field paths reach leaf granularity, e.g.
// "recordingSettings.mode". Top-level keys with no matching field are
// folded into extras (when non-nil).
func applyPartial(rv reflect.Value, partial map[string]any, prefix string, changed *[]ChangedField, extras Extras) error {
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	t := rv.Type()

	fieldsByTag := make(map[string]reflect.StructField)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		name := jsonTagName(f)
		if name == "" {
			continue
		}
		fieldsByTag[name] = f
	}

	for key, val := range partial {
		sf, ok := fieldsByTag[key]
		if !ok {
			if extras != nil {
				extras[key] = val
			}
			continue
		}
		fv := rv.FieldByIndex(sf.Index)
		if !fv.CanSet() {
			continue
		}

		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Time{}) {
			if nested, ok := val.(map[string]any); ok {
				if err := applyPartial(fv.Addr(), nested, path, changed, nil); err != nil {
					return err
				}
				continue
			}
		}

		changedHere, err := setScalarField(fv, val)
		if err != nil {
			return fmt.Errorf("model: field %q: %w", path, err)
		}
		if changedHere {
			*changed = append(*changed, ChangedField(path))
		}
	}
	return nil
}

// setScalarField converts a decoded JSON value into fv's type and
// assigns it if different from the current value. Complex kinds
// (slices, maps) are assigned wholesale via a JSON remarshal round-trip
// rather than field-by-field, since spec.md only requires leaf
// granularity for struct nesting, not array element nesting.
func setScalarField(fv reflect.Value, val any) (bool, error) {
	switch fv.Kind() {
	case reflect.String:
		s, ok := val.(string)
		if !ok {
			return false, fmt.Errorf("expected string, got %T", val)
		}
		if fv.String() == s {
			return false, nil
		}
		fv.SetString(s)
		return true, nil

	case reflect.Bool:
		b, ok := val.(bool)
		if !ok {
			return false, fmt.Errorf("expected bool, got %T", val)
		}
		if fv.Bool() == b {
			return false, nil
		}
		fv.SetBool(b)
		return true, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := val.(float64)
		if !ok {
			return false, fmt.Errorf("expected number, got %T", val)
		}
		n := int64(f)
		if fv.Int() == n {
			return false, nil
		}
		fv.SetInt(n)
		return true, nil

	case reflect.Float32, reflect.Float64:
		f, ok := val.(float64)
		if !ok {
			return false, fmt.Errorf("expected number, got %T", val)
		}
		if fv.Float() == f {
			return false, nil
		}
		fv.SetFloat(f)
		return true, nil

	default:
		// Slices, maps, and anything else: whole-value replace via
		// remarshal, compared by round-tripped JSON bytes.
		before, err := json.Marshal(fv.Interface())
		if err != nil {
			return false, err
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return false, err
		}
		newVal := reflect.New(fv.Type())
		if err := json.Unmarshal(raw, newVal.Interface()); err != nil {
			return false, err
		}
		after, err := json.Marshal(newVal.Elem().Interface())
		if err != nil {
			return false, err
		}
		if string(before) == string(after) {
			return false, nil
		}
		fv.Set(newVal.Elem())
		return true, nil
	}
}

// applyHeaderSpecials handles the Header fields that are excluded from
// the generic json-tag walk (mac, upSince, lastSeen, permissions) since
// they need cache-backed normalization/parsing rather than a literal
// assignment.
func applyHeaderSpecials(h *Header, m map[string]any, parsers *cache.Parsers, changed *[]ChangedField) {
	if v, ok := m["mac"]; ok {
		delete(m, "mac")
		if s, ok := v.(string); ok {
			if norm, err := parsers.MAC(s); err == nil && norm != h.MAC {
				h.MAC = norm
				*changed = append(*changed, "mac")
			}
		}
	}
	if v, ok := m["upSince"]; ok {
		delete(m, "upSince")
		if ms, ok := toInt64(v); ok {
			t := parsers.Timestamp(ms)
			if !t.Equal(h.UpSince) {
				h.UpSince = t
				*changed = append(*changed, "upSince")
			}
		}
	}
	if v, ok := m["lastSeen"]; ok {
		delete(m, "lastSeen")
		if ms, ok := toInt64(v); ok {
			t := parsers.Timestamp(ms)
			if !t.Equal(h.LastSeen) {
				h.LastSeen = t
				*changed = append(*changed, "lastSeen")
			}
		}
	}
	if v, ok := m["permissions"]; ok {
		delete(m, "permissions")
		if n, ok := toInt64(v); ok {
			p := Permissions(n)
			if p != h.Permissions {
				h.Permissions = p
				*changed = append(*changed, "permissions")
			}
		}
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// decodeToMap unmarshals raw JSON bytes into a map[string]any after
// resolving the camelCase/snake_case duplicate-key quirk.
func decodeToMap(data []byte) (map[string]any, error) {
	var rawTyped map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawTyped); err != nil {
		return nil, err
	}
	rawTyped = resolveDuplicateKeys(rawTyped)

	out := make(map[string]any, len(rawTyped))
	for k, v := range rawTyped {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

// UpdateInPlace merges a sparse JSON partial into dst, returning the set
// of leaf fields that actually changed (spec.md §4.1 `update_in_place`).
// dst's Header (if embedded) receives the cache-backed special-field
// treatment for mac/upSince/lastSeen/permissions; any top-level key left
// over after the generic merge lands in its Extras bag.
func UpdateInPlace(dst Device, partial []byte, parsers *cache.Parsers) ([]ChangedField, error) {
	m, err := decodeToMap(partial)
	if err != nil {
		return nil, fmt.Errorf("model: update_in_place: %w", err)
	}

	h := dst.CommonHeader()
	var changed []ChangedField
	applyHeaderSpecials(h, m, parsers, &changed)

	if h.Extras == nil {
		h.Extras = Extras{}
	}
	rv := reflect.ValueOf(dst)
	if err := applyPartial(rv, m, "", &changed, h.Extras); err != nil {
		return nil, err
	}
	return changed, nil
}

// ToWire emits only the listed dotted field paths from obj, used by the
// mutation path (internal/mutation) to compute minimal PATCH bodies
// (spec.md §4.1 `to_wire`).
func ToWire(obj Device, fields []ChangedField) ([]byte, error) {
	full, err := toWireMap(obj)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, f := range fields {
		parts := strings.SplitN(string(f), ".", 2)
		top := parts[0]
		val, ok := full[top]
		if !ok {
			continue
		}
		if len(parts) == 1 {
			out[top] = val
			continue
		}
		nested, ok := out[top].(map[string]any)
		if !ok {
			nested = map[string]any{}
			out[top] = nested
		}
		if existing, ok := val.(map[string]any); ok {
			if sub, ok := existing[parts[1]]; ok {
				nested[parts[1]] = sub
			}
		}
	}
	return json.Marshal(out)
}

// toWireMap renders obj's tagged fields (not Extras, not manual Header
// fields) into a generic map for ToWire's field-path projection.
func toWireMap(obj Device) (map[string]any, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	m, err := decodeToMap(data)
	if err != nil {
		return nil, err
	}
	h := obj.CommonHeader()
	m["mac"] = h.MAC
	m["upSince"] = cache.TimestampMillis(h.UpSince)
	m["lastSeen"] = cache.TimestampMillis(h.LastSeen)
	m["permissions"] = int64(h.Permissions)
	return m, nil
}
