package ast

// SQLExpr is an embedded SQL fragment exactly as the host compiler would
// plan it. Conditions and plain expressions arrive pre-wrapped as
// "SELECT <expr>" by the host, so the checker always resolves full queries.
type SQLExpr struct {
	Query string
	Line  int
}

func (e *SQLExpr) Text() string {
	if e == nil {
		return ""
	}
	return e.Query
}
