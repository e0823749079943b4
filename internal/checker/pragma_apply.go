package checker

import (
	"fmt"

	"plcheck/internal/ast"
	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/ident"
	"plcheck/internal/pragma"
	"plcheck/internal/types"
)

// pushScope snapshots the feature toggles on block entry; popScope
// restores them, giving enable:/disable: block scope. Declaration-section
// pragmas run before the first push and therefore apply routine-wide.
func (cs *CheckState) pushScope() {
	cs.scopes = append(cs.scopes, cs.flags)
}

func (cs *CheckState) popScope() {
	if n := len(cs.scopes); n > 0 {
		cs.flags = cs.scopes[n-1]
		cs.scopes = cs.scopes[:n-1]
	}
}

func (cs *CheckState) setFeature(f pragma.Feature, on bool) {
	switch f {
	case pragma.FeatureCheck:
		cs.flags.check = on
	case pragma.FeatureOtherWarnings:
		cs.flags.other = on
	case pragma.FeatureExtraWarnings:
		cs.flags.extra = on
	case pragma.FeaturePerformanceWarnings:
		cs.flags.performance = on
	case pragma.FeatureSecurityWarnings:
		cs.flags.security = on
	case pragma.FeatureCompatibilityWarnings:
		cs.flags.compat = on
	}
}

func (cs *CheckState) featureEnabled(f pragma.Feature) bool {
	switch f {
	case pragma.FeatureCheck:
		return cs.flags.check
	case pragma.FeatureOtherWarnings:
		return cs.flags.other
	case pragma.FeatureExtraWarnings:
		return cs.flags.extra
	case pragma.FeaturePerformanceWarnings:
		return cs.flags.performance
	case pragma.FeatureSecurityWarnings:
		return cs.flags.security
	case pragma.FeatureCompatibilityWarnings:
		return cs.flags.compat
	}
	return false
}

// applyPragmaText parses and applies one directive. Malformed directives
// warn and are otherwise ignored; the walk continues.
func (cs *CheckState) applyPragmaText(text string, stmt *ast.Stmt) {
	d, err := pragma.Parse(text)
	if err != nil {
		cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt, err.Error()))
		return
	}
	switch d.Kind {
	case pragma.KindEnable:
		cs.setFeature(d.Feature, true)
	case pragma.KindDisable:
		cs.setFeature(d.Feature, false)
	case pragma.KindStatus:
		state := "disabled"
		if cs.featureEnabled(d.Feature) {
			state = "enabled"
		}
		cs.put(cs.stmtDiag(diag.SevInfo, diag.CodeSuccess, stmt,
			fmt.Sprintf("%s is %s", d.Feature, state)))
	case pragma.KindEcho:
		cs.put(cs.stmtDiag(diag.SevInfo, diag.CodeSuccess, stmt, d.Text))
	case pragma.KindType:
		cs.applyTypeHint(d, stmt)
	case pragma.KindTable:
		cs.applyTableHint(d, stmt)
	case pragma.KindSequence:
		cs.synthetic = append(cs.synthetic, &bridge.Relation{
			Schema: d.SequenceName.Schema,
			Name:   d.SequenceName.Name,
			Kind:   bridge.RelationSequence,
		})
	}
}

// applyTypeHint fixes the shape of a record variable from a declared
// composite type or an inline field list.
func (cs *CheckState) applyTypeHint(d *pragma.Directive, stmt *ast.Stmt) {
	dno := cs.findRecord(d.RecVar)
	if dno < 0 {
		cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
			fmt.Sprintf("record variable %q does not exist", d.RecVar)))
		return
	}
	var shape types.Shape
	if d.TypeName != "" {
		resolved, err := cs.host.LookupCompositeType(d.TypeName)
		if err != nil {
			cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
				fmt.Sprintf("composite type %q does not exist", d.TypeName)))
			return
		}
		shape = resolved
	} else {
		resolved, ok := cs.resolveColumns(d.Fields, stmt)
		if !ok {
			return
		}
		shape = resolved
	}
	cs.setShapeHint(dno, shape)
}

// applyTableHint registers a synthetic relation valid for the rest of the
// run, so fragments against not-yet-created tables still resolve.
func (cs *CheckState) applyTableHint(d *pragma.Directive, stmt *ast.Stmt) {
	var shape types.Shape
	if d.LikeName.Name != "" {
		rel, err := cs.host.LookupRelation(d.LikeName.Schema, d.LikeName.Name)
		if err != nil {
			cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
				fmt.Sprintf("relation %q does not exist", d.LikeName)))
			return
		}
		shape = rel.Columns
	} else {
		resolved, ok := cs.resolveColumns(d.Columns, stmt)
		if !ok {
			return
		}
		shape = resolved
	}
	cs.synthetic = append(cs.synthetic, &bridge.Relation{
		Schema:  d.TableName.Schema,
		Name:    d.TableName.Name,
		Kind:    bridge.RelationTable,
		Columns: shape,
	})
}

func (cs *CheckState) resolveColumns(cols []pragma.ColumnDef, stmt *ast.Stmt) (types.Shape, bool) {
	fields := make([]types.Field, 0, len(cols))
	for _, c := range cols {
		ref, err := cs.host.LookupType(c.Type)
		if err != nil {
			cs.put(cs.stmtDiag(diag.SevWarnOther, diag.CodeWarning, stmt,
				fmt.Sprintf("type %q does not exist", c.Type)))
			return types.Shape{}, false
		}
		fields = append(fields, types.Field{Name: c.Name, Type: ref, Typmod: -1})
	}
	return types.NewShape(fields...), true
}

func (cs *CheckState) findRecord(name string) int {
	folded := ident.Fold(name)
	for _, d := range cs.routine.Datums {
		if d.Kind == ast.DatumRec && d.Name == folded {
			return d.DNo
		}
	}
	return -1
}
