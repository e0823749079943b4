package profiler

import (
	"plcheck/internal/ast"
)

// Coverage summarizes profile counters against the statement inventory
// of one routine.
type Coverage struct {
	Statements         int
	ExecutedStatements int
	Branches           int
	ExecutedBranches   int
}

// StatementRatio is executed statements over total, 0 for an empty body.
func (c Coverage) StatementRatio() float64 {
	if c.Statements == 0 {
		return 0
	}
	return float64(c.ExecutedStatements) / float64(c.Statements)
}

// BranchRatio is executed branch arms over total, 1 when the routine has
// no branches at all.
func (c Coverage) BranchRatio() float64 {
	if c.Branches == 0 {
		return 1
	}
	return float64(c.ExecutedBranches) / float64(c.Branches)
}

// ComputeCoverage walks the routine body and relates each statement and
// branch arm to the execution counters. An empty branch arm counts as
// executed when its owning statement ran.
func ComputeCoverage(r *ast.Routine, counters map[int]StmtCounter) Coverage {
	var cov Coverage
	executed := func(id int) bool {
		c, ok := counters[id]
		return ok && c.ExecCount > 0
	}
	armExecuted := func(owner *ast.Stmt, body []*ast.Stmt) bool {
		if len(body) == 0 {
			return executed(owner.ID)
		}
		return executed(body[0].ID)
	}

	ast.Walk(r.Body, func(s *ast.Stmt) bool {
		cov.Statements++
		if executed(s.ID) {
			cov.ExecutedStatements++
		}
		switch s.Kind {
		case ast.StmtIf:
			arms := [][]*ast.Stmt{s.If.Then}
			for i := range s.If.ElseIfs {
				arms = append(arms, s.If.ElseIfs[i].Body)
			}
			if s.If.HasElse {
				arms = append(arms, s.If.Else)
			}
			for _, arm := range arms {
				cov.Branches++
				if armExecuted(s, arm) {
					cov.ExecutedBranches++
				}
			}
			if !s.If.HasElse {
				// the implicit fall-through arm
				cov.Branches++
				if executed(s.ID) {
					cov.ExecutedBranches++
				}
			}
		case ast.StmtCase:
			for i := range s.Case.Whens {
				cov.Branches++
				if armExecuted(s, s.Case.Whens[i].Body) {
					cov.ExecutedBranches++
				}
			}
			if s.Case.HasElse {
				cov.Branches++
				if armExecuted(s, s.Case.Else) {
					cov.ExecutedBranches++
				}
			}
		}
		return true
	})
	return cov
}
