package automation

import "strings"

// apply evaluates a single operator. All failure modes (type mismatch,
// non-numeric operands, non-list membership sets) resolve to false so that
// user-authored conditions can never abort an event.
func apply(op Operator, field, value Value) bool {
	switch op {
	case OpEquals:
		return field.Equal(value)
	case OpNotEquals:
		return !field.Equal(value)
	case OpContains:
		return containsValue(field, value)
	case OpGreaterThan:
		return ordered(field, value, func(cmp int) bool { return cmp > 0 })
	case OpLessThan:
		return ordered(field, value, func(cmp int) bool { return cmp < 0 })
	case OpIn:
		return memberOf(field, value)
	case OpNotIn:
		if _, ok := value.AsList(); !ok {
			return false
		}
		return !memberOf(field, value)
	}
	return false
}

// containsValue tests substring containment for strings and membership for
// lists. Other field types resolve false.
func containsValue(field, value Value) bool {
	if field.Kind() == KindString {
		needle, ok := value.AsString()
		if !ok {
			return false
		}
		s, _ := field.AsString()
		return strings.Contains(s, needle)
	}
	if list, ok := field.AsList(); ok {
		for _, e := range list {
			if e.Equal(value) {
				return true
			}
		}
	}
	return false
}

// ordered compares numerically when both sides coerce to numbers, otherwise
// as timestamps. Mixed or non-ordered types resolve false.
func ordered(field, value Value, test func(cmp int) bool) bool {
	if ln, ok := field.AsNumber(); ok {
		if rn, ok := value.AsNumber(); ok {
			switch {
			case ln > rn:
				return test(1)
			case ln < rn:
				return test(-1)
			default:
				return test(0)
			}
		}
	}
	if lt, ok := field.AsTime(); ok {
		if rt, ok := value.AsTime(); ok {
			return test(lt.Compare(rt))
		}
	}
	return false
}

func memberOf(field, value Value) bool {
	list, ok := value.AsList()
	if !ok {
		return false
	}
	for _, e := range list {
		if field.Equal(e) {
			return true
		}
	}
	return false
}
