package checker

import (
	"fmt"

	"plcheck/internal/ast"
	"plcheck/internal/diag"
	"plcheck/internal/types"
)

// markUsage records a read or write of a slot. First reads of
// never-written non-internal variables are reported, not fatal.
func (cs *CheckState) markUsage(stmt *ast.Stmt, dno int, write bool) {
	d := cs.routine.Datum(dno)
	if d == nil {
		return
	}
	if d.Kind == ast.DatumRecField {
		cs.markUsage(stmt, d.ParentDno, write)
		return
	}
	st := &cs.slots[dno]
	if write {
		st.written = true
		st.assigned = true
		return
	}
	if !st.read && !st.written && !d.Internal {
		cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
			fmt.Sprintf("variable %q is possibly unassigned when it is read", d.Name)))
	}
	st.read = true
}

// assignShape fixes a record's tuple shape on its first successful
// assignment. A later assignment with an incompatible shape is shape
// drift: legitimate code reuses one record across disjoint shapes on
// different paths, so this warns and re-fixes, never errors.
func (cs *CheckState) assignShape(stmt *ast.Stmt, dno int, shape types.Shape) {
	d := cs.routine.Datum(dno)
	if d == nil || shape.Empty() {
		return
	}
	switch d.Kind {
	case ast.DatumRec:
		st := &cs.slots[dno]
		if st.shapeKnown && !st.shape.Compatible(shape) {
			cs.put(cs.stmtDiag(diag.SevWarnExtra, diag.CodeWarning, stmt,
				fmt.Sprintf("record %q is reassigned with a different row shape", d.Name)).
				WithDetail(fmt.Sprintf("Previous shape %s, new shape %s.", st.shape, shape)))
		}
		st.shape = shape
		st.shapeKnown = true
		st.degraded = false
	case ast.DatumRow:
		// rows are strictly typed; arity mismatch is checked by the
		// resolver against the declared shape
	}
}

// setShapeHint applies a pragma type hint; unlike assignment it never
// drifts.
func (cs *CheckState) setShapeHint(dno int, shape types.Shape) {
	st := &cs.slots[dno]
	st.shape = shape
	st.shapeKnown = true
	st.degraded = false
	cs.slots[dno].written = true
}

// targetShape returns the current tuple shape of a row or record target
// and whether it is known.
func (cs *CheckState) targetShape(dno int) (types.Shape, bool) {
	d := cs.routine.Datum(dno)
	if d == nil {
		return types.Shape{}, false
	}
	switch d.Kind {
	case ast.DatumRow:
		return d.Shape, true
	case ast.DatumRec:
		st := cs.slots[dno]
		return st.shape, st.shapeKnown
	}
	return types.Shape{}, false
}

// slotType resolves the concrete (type, typmod) a slot contributes to a
// parameter environment. Shapeless-record fields degrade to an unknown
// type, which disables deeper checks on that field downstream.
func (cs *CheckState) slotType(dno int) (types.Ref, int32) {
	d := cs.routine.Datum(dno)
	if d == nil {
		return types.Ref{}, -1
	}
	switch d.Kind {
	case ast.DatumVar:
		return d.Type, d.Typmod
	case ast.DatumRow, ast.DatumRec:
		// whole-row reference: the composite record type
		return types.Ref{Name: "record"}, -1
	case ast.DatumRecField:
		parent := cs.routine.Datum(d.ParentDno)
		if parent == nil {
			return types.Ref{}, -1
		}
		shape, known := cs.targetShape(d.ParentDno)
		if !known {
			// shapeless record: degrade instead of erroring
			cs.slots[d.ParentDno].degraded = true
			return types.Ref{}, -1
		}
		f, idx := shape.Field(d.FieldName)
		if idx < 0 {
			return types.Ref{}, -1
		}
		return f.Type, f.Typmod
	}
	return types.Ref{}, -1
}

// checkFieldAccess validates a record-field read once the record has a
// known shape. Unknown field on a known shape is the undefined-column
// error; unknown shape stays silent by design.
func (cs *CheckState) checkFieldAccess(stmt *ast.Stmt, dno int) {
	d := cs.routine.Datum(dno)
	if d == nil || d.Kind != ast.DatumRecField {
		return
	}
	parent := cs.routine.Datum(d.ParentDno)
	if parent == nil || parent.Kind != ast.DatumRec {
		return
	}
	shape, known := cs.targetShape(d.ParentDno)
	if !known {
		cs.slots[d.ParentDno].degraded = true
		return
	}
	if _, idx := shape.Field(d.FieldName); idx < 0 {
		cs.put(cs.stmtDiag(diag.SevError, diag.CodeUndefinedColumn, stmt,
			fmt.Sprintf("record %q has no field %q", parent.Name, d.FieldName)))
	}
}

// markSafe flags a variable whose value comes only from sanitizer
// output; unsafeAssign clears it.
func (cs *CheckState) markSafe(dno int, safe bool) {
	d := cs.routine.Datum(dno)
	if d == nil {
		return
	}
	if d.Kind == ast.DatumRecField {
		return
	}
	cs.slots[dno].safe = safe
}
