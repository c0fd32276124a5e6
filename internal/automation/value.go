package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind discriminates the payload value union.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindList
	KindMap
)

// Value is a tagged value as carried in event payloads, condition operands
// and action parameters. Rule rows store these as plain JSON; decoding maps
// JSON types onto the union (numbers become float64).
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	t    time.Time
	list []Value
	m    map[string]Value
}

func Null() Value                 { return Value{kind: KindNull} }
func String(s string) Value       { return Value{kind: KindString, str: s} }
func Number(n float64) Value      { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value      { return Value{kind: KindTime, t: t} }
func List(vs ...Value) Value      { return Value{kind: KindList, list: vs} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// ValueOf converts an arbitrary decoded JSON value (or a handful of common Go
// types) into a Value. Unknown types are rendered through fmt as strings.
func ValueOf(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case time.Time:
		return Time(x)
	case []interface{}:
		list := make([]Value, 0, len(x))
		for _, e := range x {
			list = append(list, ValueOf(e))
		}
		return List(list...)
	case map[string]interface{}:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[k] = ValueOf(e)
		}
		return Map(m)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

// AsString returns the string form of a scalar value. Maps and lists
// report false.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	case KindTime:
		return v.t.Format(time.RFC3339), true
	}
	return "", false
}

// AsNumber coerces numbers and numeric strings.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		n, err := strconv.ParseFloat(v.str, 64)
		return n, err == nil
	}
	return 0, false
}

// AsTime coerces timestamps and RFC3339 strings.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		t, err := time.Parse(time.RFC3339, v.str)
		return t, err == nil
	}
	return time.Time{}, false
}

func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

func (v Value) AsList() ([]Value, bool) {
	if v.kind == KindList {
		return v.list, true
	}
	return nil, false
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind == KindMap {
		return v.m, true
	}
	return nil, false
}

// Equal applies deep, coercing equality: two sides that both parse as
// numbers compare numerically, otherwise scalars compare by string form.
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind
	}
	if ln, ok := v.AsNumber(); ok {
		if rn, ok := o.AsNumber(); ok {
			return ln == rn
		}
	}
	if lt, ok := v.AsTime(); ok {
		if rt, ok := o.AsTime(); ok {
			return lt.Equal(rt)
		}
	}
	if v.kind == KindList && o.kind == KindList {
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	if v.kind == KindMap || o.kind == KindMap {
		if v.kind != o.kind || len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	ls, lok := v.AsString()
	rs, rok := o.AsString()
	return lok && rok && ls == rs
}

// Interface returns the plain Go representation, suitable for JSON encoding
// and for handing to gateways.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindList:
		out := make([]interface{}, 0, len(v.list))
		for _, e := range v.list {
			out = append(out, e.Interface())
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return fmt.Sprintf("%v", v.Interface())
}

// MarshalJSON encodes the plain representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes arbitrary JSON into the union.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}
