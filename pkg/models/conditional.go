package models

// ConditionOperator is the comparison applied by a SimpleCondition.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
)

// LogicalOperator combines the results of a ConditionGroup.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// SimpleCondition compares the value found at a dotted field path with Value.
type SimpleCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value"`
}

// ConditionGroup is a recursive AND/OR composition of conditions.
type ConditionGroup struct {
	Operator   LogicalOperator   `json:"operator"`
	Conditions []SimpleCondition `json:"conditions"`
	Groups     []ConditionGroup  `json:"groups,omitempty"`
}
