package ldmodel

// Operator describes an operator for a clause.
type Operator string

// OperatorNone is used to represent an undefined operator.
const OperatorNone Operator = ""

const (
	// OperatorIn matches a context attribute against any of the clause values.
	OperatorIn Operator = "in"
	// OperatorEndsWith matches a string attribute against any suffix in the clause values.
	OperatorEndsWith Operator = "endsWith"
	// OperatorStartsWith matches a string attribute against any prefix in the clause values.
	OperatorStartsWith Operator = "startsWith"
	// OperatorMatches matches a string attribute against any regex in the clause values.
	OperatorMatches Operator = "matches"
	// OperatorContains matches a string attribute against any substring in the clause values.
	OperatorContains Operator = "contains"
	// OperatorLessThan matches if a numeric attribute is less than any clause value.
	OperatorLessThan Operator = "lessThan"
	// OperatorLessThanOrEqual matches if a numeric attribute is less than or equal to any clause value.
	OperatorLessThanOrEqual Operator = "lessThanOrEqual"
	// OperatorGreaterThan matches if a numeric attribute is greater than any clause value.
	OperatorGreaterThan Operator = "greaterThan"
	// OperatorGreaterThanOrEqual matches if a numeric attribute is greater than or equal to any clause
	// value.
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	// OperatorBefore matches if a date/time attribute is before any clause value.
	OperatorBefore Operator = "before"
	// OperatorAfter matches if a date/time attribute is after any clause value.
	OperatorAfter Operator = "after"
	// OperatorSegmentMatch matches if the context is included in the segment whose key is any of the
	// clause values.
	OperatorSegmentMatch Operator = "segmentMatch"
	// OperatorSemVerEqual matches if a semantic version attribute is equal to any clause value.
	OperatorSemVerEqual Operator = "semVerEqual"
	// OperatorSemVerLessThan matches if a semantic version attribute is less than any clause value.
	OperatorSemVerLessThan Operator = "semVerLessThan"
	// OperatorSemVerGreaterThan matches if a semantic version attribute is greater than any clause
	// value.
	OperatorSemVerGreaterThan Operator = "semVerGreaterThan"
)

// Name returns the string value of the operator.
func (op Operator) Name() string {
	return string(op)
}
