package automation

// EvaluateConditions folds a condition chain left to right against an event
// payload. Each condition's Logic field joins it to the next one:
//
//	result = c1
//	result = combine(result, c1.Logic, c2)
//	...
//
// There is no operator precedence; a chain of three or more conditions mixing
// AND and OR is combined in the literal written order. Rule authors who need
// conventional precedence should keep a chain to a single logic operator.
//
// An empty chain evaluates true (trigger-only rule). Pure function; a missing
// or mismatched field makes its condition false, never an error.
func EvaluateConditions(conditions []Condition, payload Payload) bool {
	if len(conditions) == 0 {
		return true
	}
	result := evalOne(conditions[0], payload)
	for i := 1; i < len(conditions); i++ {
		next := evalOne(conditions[i], payload)
		switch conditions[i-1].Logic {
		case LogicOr:
			result = result || next
		default: // AND is the join when unspecified
			result = result && next
		}
	}
	return result
}

func evalOne(c Condition, payload Payload) bool {
	field, ok := payload.Resolve(c.Field)
	if !ok {
		return false
	}
	return apply(c.Op, field, c.Value)
}
