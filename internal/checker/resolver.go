package checker

import (
	"errors"
	"fmt"
	"strings"

	"plcheck/internal/ast"
	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/ident"
	"plcheck/internal/types"
)

// internalFault wraps an unexpected bridge failure; the walker converts
// it into an error diagnostic at the statement boundary.
type internalFault struct {
	err error
}

// buildEnv assembles the synthetic parameter environment: one parameter
// per datum ($1 maps to dno 0), plus run-scoped synthetic relations.
func (cs *CheckState) buildEnv() bridge.AnalyzeEnv {
	params := make([]types.Ref, len(cs.routine.Datums))
	for i := range cs.routine.Datums {
		params[i], _ = cs.slotType(i)
	}
	return bridge.AnalyzeEnv{
		Params:    params,
		Relations: cs.synthetic,
	}
}

// scanParams lists the parameter numbers referenced in a fragment.
// Quoted strings are skipped so literal dollar signs do not count.
func scanParams(query string) []int {
	var out []int
	inStr := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inStr = !inStr
			continue
		}
		if inStr || ch != '$' {
			continue
		}
		n := 0
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			n = n*10 + int(query[j]-'0')
			j++
		}
		if j > i+1 {
			out = append(out, n)
			i = j - 1
		}
	}
	return out
}

// analyze resolves one embedded fragment. SQL errors become error
// diagnostics with the offending query attached; anything else is an
// internal fault for the walker to catch.
func (cs *CheckState) analyze(stmt *ast.Stmt, expr *ast.SQLExpr) (*bridge.ResolvedQuery, bool) {
	if expr == nil || cs.stopCheck {
		return nil, false
	}
	// record variable reads and field accesses even when resolution
	// fails later
	for _, n := range scanParams(expr.Query) {
		dno := n - 1
		cs.markUsage(stmt, dno, false)
		cs.checkFieldAccess(stmt, dno)
	}
	rq, err := cs.host.AnalyzeQuery(expr.Query, cs.buildEnv())
	if err != nil {
		var sqlErr *bridge.SQLError
		if errors.As(err, &sqlErr) {
			d := cs.stmtDiag(diag.SevError, sqlErr.Code, stmt, sqlErr.Message).
				WithDetail(sqlErr.Detail).
				WithHint(sqlErr.Hint).
				WithQuery(expr.Query, sqlErr.Position)
			if stmt != nil && expr.Line > 0 {
				d.Span.Line = expr.Line
			}
			cs.put(d)
			return nil, false
		}
		panic(internalFault{err: err})
	}
	cs.processResolved(stmt, expr, rq)
	return rq, true
}

// processResolved runs the checks every successfully resolved query
// gets: dependency collection, volatility folding, cast and sequence
// heuristics, transaction-control validation.
func (cs *CheckState) processResolved(stmt *ast.Stmt, expr *ast.SQLExpr, rq *bridge.ResolvedQuery) {
	if cs.opts.CollectDeps {
		cs.collect(rq)
	}
	cs.foldVolatility(rq)

	for _, cast := range rq.ImplicitCasts {
		cs.put(cs.stmtDiag(diag.SevWarnPerformance, diag.CodeSuccess, stmt,
			"implicit cast of attribute caused by different PLpgSQL variable type in WHERE clause").
			WithDetail(fmt.Sprintf("Column %q of type %s is compared with a value of type %s.",
				cast.Column, cast.To, cast.From)).
			WithHint(fmt.Sprintf("Check the variable type - an index on column %q may not be used.", cast.Column)).
			WithQuery(expr.Query, cast.Position))
	}

	for _, seq := range rq.SequenceArgs {
		cs.checkSequenceArg(stmt, expr, seq)
	}

	if rq.IsTransactionControl && !cs.routine.IsProcedure {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeInvalidTxTermination, stmt,
			"invalid transaction termination"))
	}
}

// checkSequenceArg requires a literal relation argument of a sequence
// manipulation function to actually name a sequence.
func (cs *CheckState) checkSequenceArg(stmt *ast.Stmt, expr *ast.SQLExpr, seq bridge.SequenceArg) {
	qn, err := ident.Parse(seq.Name)
	if err != nil {
		return
	}
	rel := cs.lookupRelationWithSynthetic(qn.Schema, qn.Name)
	if rel == nil {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeUndefinedTable, stmt,
			fmt.Sprintf("sequence %q does not exist", seq.Name)).
			WithQuery(expr.Query, seq.Position))
		return
	}
	if rel.Kind != bridge.RelationSequence {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeWrongObjectType, stmt,
			fmt.Sprintf("%q is not a sequence", seq.Name)).
			WithQuery(expr.Query, seq.Position))
	}
}

func (cs *CheckState) lookupRelationWithSynthetic(schema, name string) *bridge.Relation {
	for _, rel := range cs.synthetic {
		if rel.Name == name && (schema == "" || schema == rel.Schema) {
			return rel
		}
	}
	rel, err := cs.host.LookupRelation(schema, name)
	if err != nil {
		return nil
	}
	return rel
}

// checkExpr resolves an expression fragment with no assignment target.
func (cs *CheckState) checkExpr(stmt *ast.Stmt, expr *ast.SQLExpr) *bridge.ResolvedQuery {
	rq, ok := cs.analyze(stmt, expr)
	if !ok {
		return nil
	}
	return rq
}

// checkCond resolves a condition and requires a boolean result.
func (cs *CheckState) checkCond(stmt *ast.Stmt, expr *ast.SQLExpr, what string) {
	rq := cs.checkExpr(stmt, expr)
	if rq == nil || rq.Columns.Len() != 1 {
		return
	}
	t := rq.Columns.Fields[0].Type
	if t.Valid() && !types.Same(t, types.Ref{Oid: 16, Name: "boolean"}) {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeDatatypeMismatch, stmt,
			fmt.Sprintf("argument of %s must be type boolean, not type %s", what, t)).
			WithQuery(expr.Query, 0))
	}
}

// numeric/text/time coercion families for assignment checks; anything
// cross-family is a hard mismatch.
var coercionFamilies = map[string]string{
	"smallint": "numeric", "integer": "numeric", "bigint": "numeric",
	"numeric": "numeric", "real": "numeric", "double precision": "numeric",
	"text": "text", "character varying": "text", "name": "text",
	"date": "time", "timestamp": "time", "timestamptz": "time",
	"timestamp without time zone": "time", "timestamp with time zone": "time",
}

func assignable(target, value types.Ref) bool {
	if !target.Valid() || !value.Valid() {
		return true
	}
	if types.Same(target, value) {
		return true
	}
	tf, ok1 := coercionFamilies[target.Name]
	vf, ok2 := coercionFamilies[value.Name]
	if ok1 && ok2 {
		return tf == vf
	}
	// unknown families: believe the host would coerce
	return !ok1 || !ok2
}

// checkAssignment resolves a fragment used as the right side of an
// assignment into the given slot. stmt may be nil for declaration
// defaults.
func (cs *CheckState) checkAssignment(stmt *ast.Stmt, expr *ast.SQLExpr, targetDno int) {
	rq, ok := cs.analyze(stmt, expr)
	cs.markUsage(stmt, targetDno, true)
	if !ok {
		return
	}
	cs.assignToTarget(stmt, expr, targetDno, rq)
}

// assignToTarget applies a resolved result shape to a target slot:
// scalar type checks, row arity checks, record shape propagation.
func (cs *CheckState) assignToTarget(stmt *ast.Stmt, expr *ast.SQLExpr, targetDno int, rq *bridge.ResolvedQuery) {
	d := cs.routine.Datum(targetDno)
	if d == nil {
		return
	}
	cs.markSafe(targetDno, allSanitized(rq.ConcatParts) && len(rq.ConcatParts) > 0)

	switch d.Kind {
	case ast.DatumVar:
		if d.Type.Name == "refcursor" && rq.Columns.Len() == 1 &&
			coercionFamilies[rq.Columns.Fields[0].Type.Name] == "text" {
			cs.put(cs.stmtDiag(diag.SevWarnCompat, diag.CodeWarning, stmt,
				"obsolete setting of refcursor or cursor variable").
				WithDetail("Internal names of cursors should not be specified by users.").
				WithQuery(expr.Query, 0))
			return
		}
		if rq.Columns.Len() > 1 {
			cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
				fmt.Sprintf("query returns %d columns but assignment target %q expects one",
					rq.Columns.Len(), d.Name)).
				WithQuery(expr.Query, 0))
			return
		}
		if rq.Columns.Len() == 1 {
			vt := rq.Columns.Fields[0].Type
			if !assignable(d.Type, vt) {
				cs.put(cs.stmtDiag(diag.SevError, diag.CodeDatatypeMismatch, stmt,
					fmt.Sprintf("variable %q is of type %s, but expression is of type %s",
						d.Name, d.Type, vt)).
					WithHint("You will need to rewrite or cast the expression.").
					WithQuery(expr.Query, 0))
			}
		}
	case ast.DatumRow:
		if !rq.Columns.Empty() && rq.Columns.Len() != d.Shape.Len() {
			cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
				fmt.Sprintf("query returns %d columns but row %q has %d fields",
					rq.Columns.Len(), d.Name, d.Shape.Len())).
				WithQuery(expr.Query, 0))
		}
	case ast.DatumRec:
		cs.assignShape(stmt, targetDno, rq.Columns)
	case ast.DatumRecField:
		cs.markUsage(stmt, d.ParentDno, true)
	}
}

func allSanitized(parts []bridge.ConcatPart) bool {
	for _, p := range parts {
		if p.ParamNo > 0 && p.SanitizedBy == "" {
			return false
		}
	}
	return true
}

// checkDynamicSQL handles EXECUTE and its FOR/OPEN variants: the command
// string expression is resolved, the injection heuristic runs over its
// concatenation parts, and a fully literal command is re-checked as a
// real query so its shape can reach an INTO target.
func (cs *CheckState) checkDynamicSQL(stmt *ast.Stmt, query *ast.SQLExpr, into bool, targetDno int, params []*ast.SQLExpr) {
	cs.hasExecute = true
	rq, ok := cs.analyze(stmt, query)
	for _, p := range params {
		cs.checkExpr(stmt, p)
	}
	if into && targetDno >= 0 {
		cs.markUsage(stmt, targetDno, true)
	}
	if !ok {
		return
	}

	cs.checkInjection(stmt, query, rq.ConcatParts)

	if lit, isLiteral := literalCommand(rq.ConcatParts); isLiteral {
		inner := &ast.SQLExpr{Query: lit, Line: query.Line}
		if innerRq, innerOK := cs.analyze(stmt, inner); innerOK && into && targetDno >= 0 {
			cs.assignToTarget(stmt, inner, targetDno, innerRq)
		}
		return
	}
	// dynamic command with unknowable shape: an INTO record target stays
	// shapeless and downstream field checks degrade
}

// literalCommand reassembles a command string built purely from string
// literals.
func literalCommand(parts []bridge.ConcatPart) (string, bool) {
	if len(parts) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, p := range parts {
		if !p.IsLiteral {
			return "", false
		}
		b.WriteString(p.Literal)
	}
	return b.String(), true
}

// checkInjection is the best-effort security heuristic: a command string
// concatenating a variable without a recognized sanitizer. Never an
// error; confined to the security warning category.
func (cs *CheckState) checkInjection(stmt *ast.Stmt, query *ast.SQLExpr, parts []bridge.ConcatPart) {
	seen := map[int]bool{}
	for _, p := range parts {
		if p.ParamNo <= 0 || seen[p.ParamNo] {
			continue
		}
		if p.SanitizedBy != "" && cs.sanitizerRecognized(p.SanitizedBy) {
			continue
		}
		dno := p.ParamNo - 1
		d := cs.routine.Datum(dno)
		if d == nil || cs.slots[dno].safe {
			continue
		}
		seen[p.ParamNo] = true
		cs.put(cs.stmtDiag(diag.SevWarnSecurity, diag.CodeSuccess, stmt,
			"text type variable is not sanitized").
			WithDetail(fmt.Sprintf("The EXECUTE command string may be SQL injection vulnerable through variable %q.", d.Name)).
			WithHint("Use quote_ident, quote_literal or format('%I'/'%L') on interpolated values.").
			WithQuery(query.Query, 0))
	}
}

func (cs *CheckState) sanitizerRecognized(by string) bool {
	name, tail, hasTail := strings.Cut(by, ":")
	if !cs.sanitizers[name] {
		return false
	}
	if name == "format" && hasTail {
		// only %I and %L placeholders quote
		return tail == "%I" || tail == "%L"
	}
	return true
}
