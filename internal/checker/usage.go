package checker

import (
	"fmt"

	"plcheck/internal/ast"
	"plcheck/internal/diag"
	"plcheck/internal/source"
)

// reportUnusedVariables runs after the walk: declared-but-unused
// variables and parameters, write-only variables, and OUT parameters the
// body never fills. All are extra warnings attributed to the declaration
// line.
func (cs *CheckState) reportUnusedVariables() {
	var outParams []*ast.Datum
	for _, d := range cs.routine.Datums {
		if d.Internal || d.Kind == ast.DatumRecField {
			continue
		}
		st := cs.slots[d.DNo]
		declDiag := func(msg string) diag.Diagnostic {
			return diag.New(diag.SevWarnExtra, diag.CodeSuccess,
				source.Span{Line: d.Line}, "", msg)
		}
		if d.IsParam {
			if d.IsOut {
				outParams = append(outParams, d)
			}
			switch {
			case d.IsOut && !st.assigned:
				cs.put(declDiag(fmt.Sprintf("unmodified OUT variable %q", d.Name)))
			case !d.IsOut && !st.read:
				cs.put(declDiag(fmt.Sprintf("unused parameter %q", d.Name)))
			}
			continue
		}
		switch {
		case !st.read && !st.assigned:
			cs.put(declDiag(fmt.Sprintf("unused variable %q", d.Name)))
		case !st.read:
			cs.put(declDiag(fmt.Sprintf("never read variable %q", d.Name)))
		}
	}
	if len(outParams) == 1 {
		d := outParams[0]
		if d.Kind == ast.DatumRow || d.Kind == ast.DatumRec {
			cs.put(diag.New(diag.SevWarnExtra, diag.CodeSuccess,
				source.Span{Line: d.Line}, "",
				fmt.Sprintf("single OUT variable %q of composite type", d.Name)).
				WithHint("Declare the function RETURNS of the composite type instead."))
		}
	}
}
