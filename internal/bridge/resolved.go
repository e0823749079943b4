package bridge

import (
	"fmt"

	"plcheck/internal/diag"
	"plcheck/internal/types"
)

// SQLError is the structured error the host's analyzer raises for a
// fragment it cannot resolve. Position is a 1-based character offset into
// the query text, 0 when unknown.
type SQLError struct {
	Code     diag.Code
	Message  string
	Detail   string
	Hint     string
	Position int
}

func (e *SQLError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("%s (sqlstate %s) at character %d", e.Message, e.Code, e.Position)
	}
	return fmt.Sprintf("%s (sqlstate %s)", e.Message, e.Code)
}

// TableRef is one relation referenced by a resolved query.
type TableRef struct {
	Oid    types.Oid
	Schema string
	Name   string
}

// FunctionRef is one non-builtin function called by a resolved query.
type FunctionRef struct {
	Oid        types.Oid
	Schema     string
	Name       string
	Signature  string
	Volatility types.Volatility
}

// OperatorRef is one non-builtin operator used by a resolved query.
type OperatorRef struct {
	Oid  types.Oid
	Name string
}

// CastNote records an implicit coercion the planner inserted between a
// parameter and a column inside a comparison; candidate for defeating an
// index on the column.
type CastNote struct {
	Column   string
	From     types.Ref
	To       types.Ref
	Position int
}

// ConcatPart decomposes a string-building expression: either a literal
// chunk, or an interpolated parameter. SanitizedBy names the quoting
// function wrapping the parameter, empty when raw.
type ConcatPart struct {
	Literal     string
	IsLiteral   bool
	ParamNo     int
	SanitizedBy string
}

// SequenceArg is a literal relation-name argument to a sequence
// manipulation function (nextval, currval, setval).
type SequenceArg struct {
	FuncName string
	Name     string
	Position int
}

// ResolvedQuery is the analyzer's answer for one fragment.
type ResolvedQuery struct {
	// Columns is the result shape; empty for utility statements.
	Columns types.Shape

	Tables    []TableRef
	Functions []FunctionRef
	Operators []OperatorRef

	ImplicitCasts []CastNote
	SequenceArgs  []SequenceArg

	// ConcatParts is set when the fragment is a top-level string
	// concatenation/format call, the shape EXECUTE command strings have.
	ConcatParts []ConcatPart

	// IsTransactionControl marks COMMIT/ROLLBACK statements.
	IsTransactionControl bool
}
