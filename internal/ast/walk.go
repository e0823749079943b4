package ast

// Walk calls fn for stmt and every statement nested below it, in source
// order. fn returning false prunes the subtree.
func Walk(stmt *Stmt, fn func(*Stmt) bool) {
	if stmt == nil || !fn(stmt) {
		return
	}
	walkList := func(list []*Stmt) {
		for _, s := range list {
			Walk(s, fn)
		}
	}
	switch stmt.Kind {
	case StmtBlock:
		walkList(stmt.Block.Body)
		for _, h := range stmt.Block.Exceptions {
			walkList(h.Body)
		}
	case StmtIf:
		walkList(stmt.If.Then)
		for _, ei := range stmt.If.ElseIfs {
			walkList(ei.Body)
		}
		walkList(stmt.If.Else)
	case StmtCase:
		for _, w := range stmt.Case.Whens {
			walkList(w.Body)
		}
		walkList(stmt.Case.Else)
	case StmtLoop:
		walkList(stmt.Loop.Body)
	case StmtWhile:
		walkList(stmt.While.Body)
	case StmtForI:
		walkList(stmt.ForI.Body)
	case StmtForS:
		walkList(stmt.ForS.Body)
	case StmtForC:
		walkList(stmt.ForC.Body)
	case StmtForEach:
		walkList(stmt.ForEach.Body)
	case StmtAssign, StmtExit, StmtReturn, StmtReturnNext, StmtReturnQuery,
		StmtRaise, StmtAssert, StmtExecSQL, StmtDynExec, StmtPerform,
		StmtGetDiag, StmtOpen, StmtFetch, StmtClose, StmtCommit,
		StmtRollback, StmtNull, StmtPragma, StmtInvalid:
		// leaf statements
	}
}

// CountStmts returns the number of statements in the tree rooted at stmt.
func CountStmts(root *Stmt) int {
	n := 0
	Walk(root, func(*Stmt) bool {
		n++
		return true
	})
	return n
}
