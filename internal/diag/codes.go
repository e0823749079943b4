package diag

// Code is a five-character SQLSTATE condition code. Warnings without a
// specific condition carry CodeSuccess, matching how the host reports
// advisory messages.
type Code string

const (
	CodeSuccess              Code = "00000"
	CodeWarning              Code = "01000"
	CodeDynamicResultSets    Code = "0100C"
	CodeFeatureNotSupported  Code = "0A000"
	CodeInvalidTxTermination Code = "2D000"
	CodeNoReturnStatement    Code = "2F005"
	CodeSyntaxError          Code = "42601"
	CodeUndefinedColumn      Code = "42703"
	CodeDatatypeMismatch     Code = "42804"
	CodeWrongObjectType      Code = "42809"
	CodeUndefinedFunction    Code = "42883"
	CodeUndefinedTable       Code = "42P01"
	CodeUndefinedParameter   Code = "42P02"
	CodeDuplicateAlias       Code = "42712"
	CodeInternalError        Code = "XX000"
)

func (c Code) String() string {
	if c == "" {
		return string(CodeSuccess)
	}
	return string(c)
}
