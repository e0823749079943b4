package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"plcheck/internal/checker"
	"plcheck/internal/diag"
	"plcheck/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.Bold)
)

func severityColor(sev diag.Severity) *color.Color {
	switch {
	case sev == diag.SevError:
		return errorColor
	case sev.IsWarning():
		return warningColor
	default:
		return infoColor
	}
}

// writeText renders the line-oriented format:
//
//	function:public.fx(integer)
//	error:42703:4:SQL statement:column "c" of relation "t1" does not exist
//	Query: insert into t1(a,b,c) values(10,20,30)
//	--                        ^
//	Hint: ...
func writeText(w io.Writer, res *checker.Result, colorize bool) error {
	header := "function:" + res.Routine.QualifiedName()
	if colorize {
		header = headerColor.Sprint(header)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for i := range res.Diagnostics {
		if err := writeTextIssue(w, &res.Diagnostics[i], colorize); err != nil {
			return err
		}
	}
	return nil
}

func writeTextIssue(w io.Writer, d *diag.Diagnostic, colorize bool) error {
	var b strings.Builder
	level := d.Severity.String()
	if colorize {
		level = severityColor(d.Severity).Sprint(level)
	}
	b.WriteString(level)
	b.WriteByte(':')
	b.WriteString(d.Code.String())
	b.WriteByte(':')
	if d.Span.Line > 0 {
		fmt.Fprintf(&b, "%d:", d.Span.Line)
	} else {
		b.WriteByte(':')
	}
	if d.StmtKind != "" {
		b.WriteString(d.StmtKind)
	}
	b.WriteByte(':')
	b.WriteString(d.Message)
	b.WriteByte('\n')

	if d.Query != "" {
		lines, caretIdx, col := source.QueryLines(d.Query, d.Span.Pos)
		for i, ln := range lines {
			fmt.Fprintf(&b, "Query: %s\n", ln)
			if i == caretIdx {
				// the caret prefix mirrors the width of "Query: "
				fmt.Fprintf(&b, "--     %s\n", source.Caret(ln, col))
			}
		}
	}
	if d.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", d.Detail)
	}
	if d.Hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", d.Hint)
	}
	if d.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", d.Context)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDependencies renders the dependency table collected during a run.
func WriteDependencies(w io.Writer, res *checker.Result) error {
	if len(res.Dependencies) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "dependencies of %s:\n", res.Routine.QualifiedName()); err != nil {
		return err
	}
	for _, dep := range res.Dependencies {
		name := dep.Name
		if dep.Schema != "" {
			name = dep.Schema + "." + name
		}
		if dep.Signature != "" {
			name = dep.Signature
		}
		if _, err := fmt.Fprintf(w, "%-8s %6d  %s\n", dep.Kind, dep.Oid, name); err != nil {
			return err
		}
	}
	return nil
}
