package automation

// Operator is a comparison applied between a resolved payload field and a
// rule-authored value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIn, OpNotIn:
		return true
	}
	return false
}

// Logic joins a condition to the one following it in the chain.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is a single predicate over an event payload field. Conditions
// are user-authored; a field absent from the payload makes the predicate
// false, never an error.
type Condition struct {
	Field string   `json:"field"`
	Op    Operator `json:"operator"`
	Value Value    `json:"value"`
	Logic Logic    `json:"logic,omitempty"`
}
