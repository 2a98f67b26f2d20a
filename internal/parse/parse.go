// Package parse extracts and validates the JSON object a research model was
// asked to return.
package parse

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// ErrRejected is returned when a response is not a JSON object matching the
// expected schema. Callers treat every field as absent.
var ErrRejected = eris.New("parse: response rejected")

var validate = validator.New(validator.WithRequiredStructEnabled())

// StripFences removes a surrounding markdown code fence (with optional
// language tag) from model output.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	text = strings.TrimLeftFunc(text, isASCIILetter)
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Decode parses raw model output into v, which must be a pointer to a struct
// whose json-tagged fields describe the schema. The whole object is rejected
// (ErrRejected) when the text is not a JSON object, when a field has the
// wrong type or is null, or when v's validate tags fail. Keys are matched
// exactly; anything else, including a differently cased schema key, is
// ignored.
func Decode(raw string, v any) error {
	text := StripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return reject(err)
	}
	if fields == nil {
		return reject(eris.New("top-level value is null"))
	}

	schema := structType(reflect.TypeOf(v))
	if schema == nil {
		return reject(eris.New("target is not a struct"))
	}

	kept, err := exactKeys(schema, fields)
	if err != nil {
		return reject(err)
	}
	for key, val := range kept {
		if isNull(val) {
			return reject(eris.Errorf("field %q is null", key))
		}
	}

	filtered, err := json.Marshal(kept)
	if err != nil {
		return reject(err)
	}
	if err := json.Unmarshal(filtered, v); err != nil {
		return reject(err)
	}
	if err := validate.Struct(v); err != nil {
		return reject(err)
	}
	return nil
}

func reject(cause error) error {
	return eris.Wrapf(ErrRejected, "%v", cause)
}

func isNull(val json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(val), []byte("null"))
}

// exactKeys keeps the entries of obj whose key is exactly a json key of t,
// descending into nested struct and slice-of-struct fields. encoding/json
// would otherwise fold case when matching keys to fields.
func exactKeys(t reflect.Type, obj map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	fields := jsonFields(t)
	kept := make(map[string]json.RawMessage, len(fields))
	for key, val := range obj {
		ft, ok := fields[key]
		if !ok {
			continue
		}
		nested, err := exactValue(ft, val)
		if err != nil {
			return nil, eris.Wrapf(err, "field %q", key)
		}
		kept[key] = nested
	}
	return kept, nil
}

// exactValue applies exactKeys to val when ft is a struct or a slice of
// structs. Values of any other shape pass through for json.Unmarshal to
// type-check.
func exactValue(ft reflect.Type, val json.RawMessage) (json.RawMessage, error) {
	if isNull(val) {
		return val, nil
	}

	if st := structType(ft); st != nil {
		var obj map[string]json.RawMessage
		if json.Unmarshal(val, &obj) != nil {
			return val, nil
		}
		kept, err := exactKeys(st, obj)
		if err != nil {
			return nil, err
		}
		return json.Marshal(kept)
	}

	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if ft.Kind() != reflect.Slice && ft.Kind() != reflect.Array {
		return val, nil
	}
	st := structType(ft.Elem())
	if st == nil {
		return val, nil
	}
	var items []json.RawMessage
	if json.Unmarshal(val, &items) != nil {
		return val, nil
	}
	for i, item := range items {
		kept, err := exactValue(st, item)
		if err != nil {
			return nil, eris.Wrapf(err, "item %d", i)
		}
		items[i] = kept
	}
	return json.Marshal(items)
}

// structType dereferences t and returns it when it is a struct.
func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// jsonFields maps the json keys of struct type t to their field types.
func jsonFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = f.Type
	}
	return fields
}
