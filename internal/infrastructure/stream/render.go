package stream

import (
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// RenderPayload turns a message payload into the Body of a Message event.
//
// Text (string, valid UTF-8 []byte) is kept byte for byte. fmt.Stringer and error use
// their own rendering. nil renders "null", as does a typed nil behind an error or
// Stringer. Invalid UTF-8 renders quoted and any other value is JSON encoded with a
// %#v fallback. Only text can render empty.
func RenderPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("%q", v)
	case error:
		if isNil(v) {
			return "null"
		}
		return nonEmpty(v.Error(), payload)
	case fmt.Stringer:
		if isNil(v) {
			return "null"
		}
		return nonEmpty(v.String(), payload)
	}

	if b, err := json.Marshal(payload); err == nil && len(b) > 0 {
		return string(b)
	}
	return fmt.Sprintf("%#v", payload)
}

// RenderError turns a transport error into the Description of an Error event.
func RenderError(err error) string {
	if err == nil || isNil(err) {
		return "unknown transport error"
	}
	return nonEmpty(err.Error(), err)
}

func nonEmpty(s string, v any) string {
	if s != "" {
		return s
	}
	return fmt.Sprintf("%#v", v)
}

// isNil reports whether v holds a nil pointer or other nil reference behind a
// non-nil interface.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
