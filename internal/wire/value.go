package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing the JSON values a request may
// carry. Only Null, String, Int, Float, Bool, Array and Object implement it.
type Value interface {
	wireValue()
}

// Null represents a JSON null. Druid uses it for "match missing value"
// selectors and lookups that replace missing values with null.
type Null struct{}

func (Null) wireValue() {}

// String represents a JSON string.
type String string

func (String) wireValue() {}

// Int represents an integral JSON number.
type Int int64

func (Int) wireValue() {}

// Float represents a non-integral JSON number.
type Float float64

func (Float) wireValue() {}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) wireValue() {}

// Array represents a JSON array. Element order is significant.
type Array []Value

func (Array) wireValue() {}

// Object represents a JSON object.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) wireValue() {}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("type", String("selector")), P("dimension", String("page")))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewObject creates an Object from key-value pairs. A pair with a nil value
// is skipped, which keeps optional keys out of the rendered payload.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		if p.Value == nil {
			continue
		}
		obj[p.Key] = p.Value
	}
	return obj
}

// Strings converts a string slice into an Array of String values.
func Strings(values []string) Array {
	arr := make(Array, len(values))
	for i, v := range values {
		arr[i] = String(v)
	}
	return arr
}

// Set stores value under key unless value is nil.
func (obj Object) Set(key string, value Value) {
	if value == nil {
		return
	}
	obj[key] = value
}

// Clone returns a deep copy of the object.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Object:
		return val.Clone()
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings orders by UTF-8 bytes, which differs for some keys.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler with canonical output.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON implements json.Marshaler with canonical output.
func (arr Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Decode parses a JSON document into a Value. Integral numbers become Int,
// all other numbers Float.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}
