package checker

import (
	"fmt"
	"strings"

	"plcheck/internal/ast"
	"plcheck/internal/diag"
)

// checkStmtSafe walks a statement list and converts an internal fault
// into one error diagnostic attributed to the statement being examined,
// then stops the run. Non-fault panics propagate.
func (cs *CheckState) checkStmtSafe(body []*ast.Stmt) (status ClosingStatus, exceptions []string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault, ok := r.(internalFault)
		if !ok {
			panic(r)
		}
		cs.put(cs.putError(diag.CodeInternalError,
			fmt.Sprintf("analysis failed: %s", fault.err)))
		cs.stopCheck = true
		status = StatusUnclosed
		exceptions = nil
	}()
	return cs.checkStmts(body)
}

// checkStmts folds the closing verdicts of a statement sequence. Code
// after a closing statement is reported once per sequence as unreachable;
// the walk continues so later statements still get their own checks.
func (cs *CheckState) checkStmts(stmts []*ast.Stmt) (ClosingStatus, []string) {
	status := StatusUnclosed
	var exceptions []string
	deadCodeAlert := false

	for _, stmt := range stmts {
		if cs.stopCheck {
			break
		}
		if status.Closes() && !deadCodeAlert {
			deadCodeAlert = true
			cs.put(cs.stmtDiag(diag.SevWarnExtra, diag.CodeWarning, stmt,
				"unreachable code"))
		}
		local, localExc := cs.checkStmt(stmt)
		switch {
		case local.Closes():
			status = local
			exceptions = localExc
		case local == StatusPossiblyClosed && status == StatusUnclosed:
			status = StatusPossiblyClosed
			exceptions = nil
		}
	}
	return status, exceptions
}

// checkStmt dispatches one statement. Returns the statement's own
// closing verdict plus the exception conditions it may raise.
func (cs *CheckState) checkStmt(stmt *ast.Stmt) (ClosingStatus, []string) {
	prev := cs.curStmt
	cs.curStmt = stmt
	defer func() { cs.curStmt = prev }()

	switch stmt.Kind {
	case ast.StmtBlock:
		return cs.checkBlock(stmt)

	case ast.StmtAssign:
		cs.checkAssignment(stmt, stmt.Assign.Expr, stmt.Assign.TargetDno)

	case ast.StmtIf:
		return cs.checkIf(stmt)

	case ast.StmtCase:
		return cs.checkCase(stmt)

	case ast.StmtLoop:
		cs.pushLabel(stmt.Label, true)
		c, exc := cs.checkStmts(stmt.Loop.Body)
		cs.popLabel()
		// a plain LOOP only ends through its body's own control transfers
		return c, exc

	case ast.StmtWhile:
		cs.checkCond(stmt, stmt.While.Cond, "WHILE")
		cs.pushLabel(stmt.Label, true)
		c, _ := cs.checkStmts(stmt.While.Body)
		cs.popLabel()
		return possiblyClosed(c), nil

	case ast.StmtForI:
		cs.checkExpr(stmt, stmt.ForI.Lower)
		cs.checkExpr(stmt, stmt.ForI.Upper)
		cs.checkExpr(stmt, stmt.ForI.Step)
		cs.markUsage(stmt, stmt.ForI.VarDno, true)
		cs.pushLabel(stmt.Label, true)
		c, _ := cs.checkStmts(stmt.ForI.Body)
		cs.popLabel()
		return possiblyClosed(c), nil

	case ast.StmtForS:
		cs.checkForSelect(stmt)
		cs.pushLabel(stmt.Label, true)
		c, _ := cs.checkStmts(stmt.ForS.Body)
		cs.popLabel()
		return possiblyClosed(c), nil

	case ast.StmtForC:
		cs.checkForCursor(stmt)
		cs.pushLabel(stmt.Label, true)
		c, _ := cs.checkStmts(stmt.ForC.Body)
		cs.popLabel()
		return possiblyClosed(c), nil

	case ast.StmtForEach:
		cs.checkExpr(stmt, stmt.ForEach.Expr)
		cs.markUsage(stmt, stmt.ForEach.TargetDno, true)
		cs.pushLabel(stmt.Label, true)
		c, _ := cs.checkStmts(stmt.ForEach.Body)
		cs.popLabel()
		return possiblyClosed(c), nil

	case ast.StmtExit:
		cs.checkExit(stmt)

	case ast.StmtReturn:
		cs.checkReturn(stmt)
		return StatusClosed, nil

	case ast.StmtReturnNext:
		if !cs.routine.ReturnsSet {
			cs.put(cs.stmtDiag(diag.SevError, diag.CodeFeatureNotSupported, stmt,
				"cannot use RETURN NEXT in a non-SETOF function"))
		}
		if stmt.Return != nil {
			cs.checkExpr(stmt, stmt.Return.Expr)
			if stmt.Return.RetVarDno >= 0 {
				cs.markUsage(stmt, stmt.Return.RetVarDno, false)
				cs.checkFieldAccess(stmt, stmt.Return.RetVarDno)
			}
		}

	case ast.StmtReturnQuery:
		if !cs.routine.ReturnsSet {
			cs.put(cs.stmtDiag(diag.SevError, diag.CodeFeatureNotSupported, stmt,
				"cannot use RETURN QUERY in a non-SETOF function"))
		}
		if stmt.ReturnQuery.Dynamic {
			cs.checkDynamicSQL(stmt, stmt.ReturnQuery.Query, false, -1, stmt.ReturnQuery.Params)
		} else {
			cs.checkExpr(stmt, stmt.ReturnQuery.Query)
		}

	case ast.StmtRaise:
		return cs.checkRaise(stmt)

	case ast.StmtAssert:
		cs.checkCond(stmt, stmt.Assert.Cond, "ASSERT")
		cs.checkExpr(stmt, stmt.Assert.Message)

	case ast.StmtExecSQL:
		cs.checkExecSQL(stmt)

	case ast.StmtDynExec:
		cs.checkDynamicSQL(stmt, stmt.DynExec.Query, stmt.DynExec.Into, stmt.DynExec.TargetDno, stmt.DynExec.Params)

	case ast.StmtPerform:
		cs.checkExpr(stmt, stmt.Perform.Expr)

	case ast.StmtGetDiag:
		for _, item := range stmt.GetDiag.Items {
			cs.markUsage(stmt, item.TargetDno, true)
		}

	case ast.StmtOpen:
		cs.checkOpen(stmt)

	case ast.StmtFetch:
		cs.checkFetch(stmt)

	case ast.StmtClose:
		cs.markUsage(stmt, stmt.Close.CursorDno, false)

	case ast.StmtCommit, ast.StmtRollback:
		if !cs.routine.IsProcedure {
			cs.put(cs.stmtDiag(diag.SevError, diag.CodeInvalidTxTermination, stmt,
				"invalid transaction termination"))
		}

	case ast.StmtPragma:
		cs.applyPragmaText(stmt.Pragma.Text, stmt)

	case ast.StmtNull:
		// explicit no-op
	}
	return StatusUnclosed, nil
}

// checkBlock walks a BEGIN/END block with its optional EXCEPTION section.
// When every body path raises, the verdict is recomputed per raised
// condition through the handler that catches it; uncaught conditions
// escape the block.
func (cs *CheckState) checkBlock(stmt *ast.Stmt) (ClosingStatus, []string) {
	cs.pushScope()
	if stmt.Label != "" {
		cs.pushLabel(stmt.Label, false)
		defer cs.popLabel()
	}
	defer cs.popScope()

	c, exc := cs.checkStmts(stmt.Block.Body)
	handlers := stmt.Block.Exceptions
	if len(handlers) == 0 {
		return c, exc
	}

	type handlerVerdict struct {
		status ClosingStatus
		exc    []string
	}
	verdicts := make([]handlerVerdict, len(handlers))
	for i := range handlers {
		hc, hexc := cs.checkStmts(handlers[i].Body)
		verdicts[i] = handlerVerdict{status: hc, exc: hexc}
	}

	if c == StatusClosedByExceptions {
		merged := StatusUnknown
		var mergedExc []string
		for _, raised := range exc {
			caught := false
			for i := range handlers {
				if handlerCatches(handlers[i].Conditions, raised) {
					merged, mergedExc = Meet(merged, verdicts[i].status, mergedExc, verdicts[i].exc, raised)
					caught = true
					break
				}
			}
			if !caught {
				merged, mergedExc = Meet(merged, StatusClosedByExceptions, mergedExc, []string{raised}, "")
			}
		}
		if merged == StatusUnknown {
			return c, exc
		}
		return merged, mergedExc
	}

	merged := c
	mergedExc := exc
	for i := range verdicts {
		merged, mergedExc = Meet(merged, verdicts[i].status, mergedExc, verdicts[i].exc, "")
	}
	return merged, mergedExc
}

func (cs *CheckState) checkIf(stmt *ast.Stmt) (ClosingStatus, []string) {
	cs.checkCond(stmt, stmt.If.Cond, "IF")

	c, exc := cs.checkStmts(stmt.If.Then)
	for i := range stmt.If.ElseIfs {
		cs.checkCond(stmt, stmt.If.ElseIfs[i].Cond, "IF")
		bc, bexc := cs.checkStmts(stmt.If.ElseIfs[i].Body)
		c, exc = Meet(c, bc, exc, bexc, "")
	}
	if stmt.If.HasElse {
		bc, bexc := cs.checkStmts(stmt.If.Else)
		c, exc = Meet(c, bc, exc, bexc, "")
	} else {
		// missing ELSE is a fall-through path
		c, exc = Meet(c, StatusUnclosed, exc, nil, "")
	}
	return c, exc
}

func (cs *CheckState) checkCase(stmt *ast.Stmt) (ClosingStatus, []string) {
	searched := stmt.Case.Expr != nil
	if searched {
		cs.checkExpr(stmt, stmt.Case.Expr)
	}

	c := StatusUnknown
	var exc []string
	for i := range stmt.Case.Whens {
		if searched {
			cs.checkExpr(stmt, stmt.Case.Whens[i].Cond)
		} else {
			cs.checkCond(stmt, stmt.Case.Whens[i].Cond, "CASE/WHEN")
		}
		bc, bexc := cs.checkStmts(stmt.Case.Whens[i].Body)
		c, exc = Meet(c, bc, exc, bexc, "")
	}
	if stmt.Case.HasElse {
		bc, bexc := cs.checkStmts(stmt.Case.Else)
		c, exc = Meet(c, bc, exc, bexc, "")
	} else {
		// no matching WHEN raises CASE_NOT_FOUND at run time
		c, exc = Meet(c, StatusClosedByExceptions, exc, []string{"case_not_found"}, "")
	}
	return c, exc
}

func (cs *CheckState) checkForSelect(stmt *ast.Stmt) {
	fs := stmt.ForS
	if fs.Dynamic {
		cs.checkDynamicSQL(stmt, fs.Query, fs.TargetDno >= 0, fs.TargetDno, fs.Params)
		return
	}
	rq, ok := cs.analyze(stmt, fs.Query)
	if fs.TargetDno >= 0 {
		cs.markUsage(stmt, fs.TargetDno, true)
		if ok {
			cs.assignToTarget(stmt, fs.Query, fs.TargetDno, rq)
		}
	}
}

func (cs *CheckState) checkForCursor(stmt *ast.Stmt) {
	fc := stmt.ForC
	cs.markUsage(stmt, fc.CursorDno, false)
	cs.checkExpr(stmt, fc.ArgQuery)
	cursor := cs.routine.Datum(fc.CursorDno)
	if cursor == nil || cursor.CursorQuery == nil {
		return
	}
	rq, ok := cs.analyze(stmt, cursor.CursorQuery)
	if fc.TargetDno >= 0 {
		cs.markUsage(stmt, fc.TargetDno, true)
		if ok {
			cs.assignToTarget(stmt, cursor.CursorQuery, fc.TargetDno, rq)
		}
	}
}

func (cs *CheckState) checkExit(stmt *ast.Stmt) {
	ex := stmt.Exit
	cs.checkCond(stmt, ex.Cond, "EXIT")

	if ex.Label == "" {
		if !cs.insideLoop() {
			if ex.IsExit {
				cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
					"EXIT cannot be used outside a loop, unless it has a label"))
			} else {
				cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
					"CONTINUE cannot be used outside a loop"))
			}
		}
		return
	}
	entry, found := cs.findLabel(ex.Label)
	if !found {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
			fmt.Sprintf("there is no label %q attached to any block or loop enclosing this statement", ex.Label)))
		return
	}
	if !ex.IsExit && !entry.isLoop {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
			fmt.Sprintf("block label %q cannot be used in CONTINUE", ex.Label)))
	}
}

func (cs *CheckState) checkReturn(stmt *ast.Stmt) {
	ret := stmt.Return
	if ret == nil {
		return
	}
	if ret.RetVarDno >= 0 {
		cs.markUsage(stmt, ret.RetVarDno, false)
		cs.checkFieldAccess(stmt, ret.RetVarDno)
		return
	}
	cs.checkExpr(stmt, ret.Expr)
}

// checkRaise validates the format placeholders against the parameter
// count and computes the exception verdict of the EXCEPTION level.
func (cs *CheckState) checkRaise(stmt *ast.Stmt) (ClosingStatus, []string) {
	r := stmt.Raise
	for _, p := range r.Params {
		cs.checkExpr(stmt, p)
	}
	for i := range r.Options {
		cs.checkExpr(stmt, r.Options[i].Expr)
	}

	if r.Message != "" {
		want := raisePlaceholders(r.Message)
		switch {
		case want > len(r.Params):
			cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
				"too few parameters specified for RAISE"))
		case want < len(r.Params):
			cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
				"too many parameters specified for RAISE"))
		}
	}

	if r.Level != ast.RaiseException {
		return StatusUnclosed, nil
	}
	cond := "raise_exception"
	switch {
	case r.CondName != "":
		cond = r.CondName
	case r.Message == "" && len(r.Options) == 0:
		// bare RAISE re-throws the condition being handled
		cond = reRaise
	}
	return StatusClosedByExceptions, []string{cond}
}

// raisePlaceholders counts unescaped % placeholders ("%%" escapes).
func raisePlaceholders(msg string) int {
	n := 0
	for i := 0; i < len(msg); i++ {
		if msg[i] != '%' {
			continue
		}
		if i+1 < len(msg) && msg[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

func (cs *CheckState) checkExecSQL(stmt *ast.Stmt) {
	es := stmt.ExecSQL
	rq, ok := cs.analyze(stmt, es.Query)
	if !ok {
		return
	}
	if es.Into {
		cs.markUsage(stmt, es.TargetDno, true)
		cs.assignToTarget(stmt, es.Query, es.TargetDno, rq)
		return
	}
	if rq.Columns.Len() > 0 && isSelect(es.Query.Query) {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeSyntaxError, stmt,
			"query has no destination for result data").
			WithHint("If you want to discard the results of a SELECT, use PERFORM instead.").
			WithQuery(es.Query.Query, 0))
	}
}

func isSelect(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) >= 6 && strings.EqualFold(q[:6], "select")
}

func (cs *CheckState) checkOpen(stmt *ast.Stmt) {
	op := stmt.Open
	cs.markUsage(stmt, op.CursorDno, true)
	if op.Query != nil {
		if op.Dynamic {
			cs.checkDynamicSQL(stmt, op.Query, false, -1, op.Params)
		} else {
			cs.checkExpr(stmt, op.Query)
		}
		return
	}
	if cursor := cs.routine.Datum(op.CursorDno); cursor != nil && cursor.CursorQuery != nil {
		cs.checkExpr(stmt, cursor.CursorQuery)
	}
}

func (cs *CheckState) checkFetch(stmt *ast.Stmt) {
	f := stmt.Fetch
	cs.markUsage(stmt, f.CursorDno, false)
	if f.TargetDno < 0 {
		return
	}
	cs.markUsage(stmt, f.TargetDno, true)
	cursor := cs.routine.Datum(f.CursorDno)
	if cursor == nil || cursor.CursorQuery == nil {
		return
	}
	if rq, ok := cs.analyze(stmt, cursor.CursorQuery); ok {
		cs.assignToTarget(stmt, cursor.CursorQuery, f.TargetDno, rq)
	}
}

func (cs *CheckState) pushLabel(label string, isLoop bool) {
	cs.labels = append(cs.labels, labelEntry{label: label, isLoop: isLoop})
}

func (cs *CheckState) popLabel() {
	if n := len(cs.labels); n > 0 {
		cs.labels = cs.labels[:n-1]
	}
}

func (cs *CheckState) insideLoop() bool {
	for _, l := range cs.labels {
		if l.isLoop {
			return true
		}
	}
	return false
}

func (cs *CheckState) findLabel(label string) (labelEntry, bool) {
	for i := len(cs.labels) - 1; i >= 0; i-- {
		if cs.labels[i].label == label {
			return cs.labels[i], true
		}
	}
	return labelEntry{}, false
}
