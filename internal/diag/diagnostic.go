package diag

import (
	"plcheck/internal/source"
)

// Diagnostic is one checker finding. StmtKind names the statement the
// finding is attributed to ("RETURN", "IF", ...); an empty kind with a
// zero line means the finding belongs to the declaration section.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Span     source.Span
	StmtKind string
	Message  string
	Detail   string
	Hint     string
	// Query is the offending embedded SQL, when the finding came from
	// query resolution; Span.Pos points into it.
	Query   string
	Context string
}

func New(sev Severity, code Code, sp source.Span, stmtKind, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Span:     sp,
		StmtKind: stmtKind,
		Message:  msg,
	}
}

func (d Diagnostic) WithDetail(detail string) Diagnostic {
	d.Detail = detail
	return d
}

func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hint = hint
	return d
}

func (d Diagnostic) WithQuery(query string, pos int) Diagnostic {
	d.Query = query
	d.Span.Pos = pos
	return d
}

func (d Diagnostic) WithContext(ctx string) Diagnostic {
	d.Context = ctx
	return d
}
