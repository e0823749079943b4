package report

import (
	"fmt"
	"io"
	"strconv"

	"plcheck/internal/checker"
)

// writeTabular renders one aligned row per finding, a format meant for
// scanning the output of a whole-bundle run at once.
func writeTabular(w io.Writer, res *checker.Result) error {
	name := res.Routine.QualifiedName()
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		line := ""
		if d.Span.Line > 0 {
			line = strconv.Itoa(d.Span.Line)
		}
		if _, err := fmt.Fprintf(w, "%-32s %5s  %-13s %s  %s\n",
			name, line, d.Severity, d.Code, d.Message); err != nil {
			return err
		}
	}
	return nil
}
