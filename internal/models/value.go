package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the concrete type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindTime
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a tagged metadata value. Filters compare Values by kind instead of
// reflecting over arbitrary interface{} payloads.
//
// On the wire a Value is plain JSON: numbers, strings, booleans, null or a
// list of scalars. Times are written as RFC 3339 strings.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
	list []Value
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Time returns a date/time Value.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// List returns a list Value. Nested lists are not allowed in metadata.
func List(v ...Value) Value {
	out := make([]Value, len(v))
	copy(out, v)
	return Value{kind: KindList, list: out}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether v holds an int or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the numeric payload as float64 for ints and floats.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the time payload.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// AsList returns the list payload.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// Equal reports value equality. Ints and floats compare numerically; times
// compare by instant; lists compare element-wise.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.kind == KindInt && o.kind == KindInt {
			return v.i == o.i
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	if v.kind == KindTime || o.kind == KindTime {
		a, okA := v.timeish()
		b, okB := o.timeish()
		return okA && okB && a.Equal(b)
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders v against o. It returns -1, 0 or +1 and false when the two
// values are not ordinally comparable (bools, lists, nulls or mixed kinds).
// Strings compare lexicographically; a string compares against a time when it
// parses as RFC 3339 or as a plain date.
func (v Value) Compare(o Value) (int, bool) {
	switch {
	case v.IsNumber() && o.IsNumber():
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return cmpFloat(a, b), !math.IsNaN(a) && !math.IsNaN(b)
	case v.kind == KindString && o.kind == KindString:
		return strings.Compare(v.s, o.s), true
	case v.kind == KindTime || o.kind == KindTime:
		a, okA := v.timeish()
		b, okB := o.timeish()
		if !okA || !okB {
			return 0, false
		}
		return a.Compare(b), true
	default:
		return 0, false
	}
}

// Orderable reports whether v may appear as a $gt/$gte/$lt/$lte operand.
func (v Value) Orderable() bool {
	switch v.kind {
	case KindInt, KindFloat, KindString, KindTime:
		return true
	default:
		return false
	}
}

func (v Value) timeish() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		return parseTime(v.s)
	default:
		return time.Time{}, false
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.kind != KindList {
		return v
	}
	out := v
	out.list = make([]Value, len(v.list))
	for i := range v.list {
		out.list[i] = v.list[i].Clone()
	}
	return out
}

// String renders v for logs and table cells.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindList:
		parts := make([]string, len(v.list))
		for i := range v.list {
			parts[i] = v.list[i].String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

// Interface returns the plain Go representation of v.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i := range v.list {
			out[i] = v.list[i].Interface()
		}
		return out
	default:
		return nil
	}
}

// ValueOf converts a plain Go value (as produced by encoding/json or written
// by hand) into a Value. Maps and nested lists are rejected.
func ValueOf(x any) (Value, error) {
	return valueOf(x, true)
}

func valueOf(x any, allowList bool) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		if t.kind == KindList && !allowList {
			return Value{}, InvalidInputf("nested lists are not supported")
		}
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
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
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Float(float64(t)), nil
		}
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, InvalidInputf("invalid number %q", t.String())
		}
		return Float(f), nil
	case time.Time:
		return Time(t), nil
	case []any:
		if !allowList {
			return Value{}, InvalidInputf("nested lists are not supported")
		}
		out := make([]Value, len(t))
		for i, item := range t {
			v, err := valueOf(item, false)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Value{kind: KindList, list: out}, nil
	case []string:
		if !allowList {
			return Value{}, InvalidInputf("nested lists are not supported")
		}
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = String(item)
		}
		return Value{kind: KindList, list: out}, nil
	case []Value:
		return valueOf(anySlice(t), allowList)
	default:
		return Value{}, InvalidInputf("unsupported metadata value of type %T", x)
	}
}

func anySlice(vs []Value) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = vs[i]
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindTime {
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return fmt.Errorf("metadata value: %w", err)
	}
	*v = parsed
	return nil
}

// Metadata is the open field name -> value mapping attached to a document.
type Metadata map[string]Value

// MetadataOf converts a plain map into Metadata.
func MetadataOf(m map[string]any) (Metadata, error) {
	if m == nil {
		return nil, nil
	}
	out := make(Metadata, len(m))
	for k, raw := range m {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}
