// Package jsonx renders JSON the way the rest of the web-archiving toolchain
// writes it: ", " and ": " separators, HTML left unescaped, floats always
// carrying a fraction. It also keeps object key order on round trips.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Marshal encodes v and respaces the result.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return Respace(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Respace compacts data and then puts one space after every separator
// outside of strings.
func Respace(data []byte) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}

	src := compact.Bytes()
	out := make([]byte, 0, len(src)+len(src)/8)
	inString, escaped := false, false
	for _, c := range src {
		out = append(out, c)
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',', ':':
			out = append(out, ' ')
		}
	}
	return out, nil
}

// Float is a float64 that always renders with a fraction or exponent,
// so 1 is written as 1.0.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("jsonx: unsupported float %v", v)
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return []byte(strconv.FormatFloat(v, 'e', -1, 64)), nil
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".e") {
		s += ".0"
	}
	return []byte(s), nil
}

// Object is a JSON object whose keys keep their original order. Values are
// held as raw JSON.
type Object struct {
	m *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, json.RawMessage]()}
}

// ParseObject decodes data, which must be a single JSON object.
func ParseObject(data []byte) (*Object, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}
	o := NewObject()
	if err := json.Unmarshal(trimmed, o.m); err != nil {
		return nil, err
	}
	return o, nil
}

// Set stores raw under key. An existing key keeps its position.
func (o *Object) Set(key string, raw json.RawMessage) {
	o.m.Set(key, raw)
}

// SetValue encodes v and stores it under key.
func (o *Object) SetValue(key string, v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	o.m.Set(key, raw)
	return nil
}

// Get returns the raw value for key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	return o.m.Get(key)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return o.m.Len()
}

// Keys returns the keys in order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.m.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Bytes renders the object with respaced separators, keys in order.
func (o *Object) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(pair.Value)
	}
	buf.WriteByte('}')
	return Respace(buf.Bytes())
}
