package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Value is a single outcome of a random variable.
//
// Value is comparable, so it can be used directly as a map key. Two values
// are equal only when both the kind and the payload match: Bool(true) and
// Int(1) are different outcomes.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a string value
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the constructors
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsBool returns the boolean payload
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsText returns the string payload
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Any returns the payload as a plain Go value (bool, int64, float64 or string)
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	default:
		return nil
	}
}

// String renders the payload without any kind decoration
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	default:
		return "<invalid>"
	}
}

// ValueOf converts a plain Go value into a Value.
// Integral types map to Int, floating types to Float.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return Value{}, fmt.Errorf("value %d overflows int64", t)
		}
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, fmt.Errorf("value %d overflows int64", t)
		}
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return Text(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// ParseValue converts raw text into the most specific Value:
// "true"/"false" (any case) become Bool, text containing a dot that parses
// as a number becomes Float, integer text becomes Int, everything else Text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)

	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}

	return Text(s)
}

// CoerceToDomain maps raw text (for example a JSON object key) onto the
// matching member of domain. An exact rendering match wins; otherwise the
// text is parsed and kept if the parsed value is a member. When nothing
// matches the parsed value is returned unchanged.
func CoerceToDomain(raw string, domain []Value) Value {
	for _, d := range domain {
		if d.String() == raw {
			return d
		}
	}

	parsed := ParseValue(raw)
	if contains(domain, parsed) {
		return parsed
	}

	// 1 and 1.0 describe the same number; keep the domain's kind
	if n, ok := parsed.number(); ok {
		for _, d := range domain {
			if dn, ok := d.number(); ok && dn == n {
				return d
			}
		}
	}

	return parsed
}

func (v Value) number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func contains(values []Value, v Value) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// IndexOf returns the position of v in values, or -1
func IndexOf(values []Value, v Value) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the payload as a bare JSON scalar. Floats always
// carry a decimal point so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool, KindInt:
		return []byte(v.String()), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("cannot encode %v as JSON", v.f)
		}
		s := v.String()
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case KindText:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Numbers with a fraction or exponent
// become Float, other numbers Int.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromJSON converts a value produced by a json.Decoder with UseNumber set
func FromJSON(raw any) (Value, error) {
	switch t := raw.(type) {
	case json.Number:
		s := t.String()
		if strings.ContainsAny(s, ".eE") {
			f, err := t.Float64()
			if err != nil {
				return Value{}, err
			}
			return Float(f), nil
		}
		i, err := t.Int64()
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case nil:
		return Value{}, fmt.Errorf("null is not a valid value")
	default:
		return ValueOf(raw)
	}
}
