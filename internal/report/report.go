// Package report renders check results: a line-oriented text format with
// query excerpts and caret markers, an aligned tabular format, JSON and
// XML for machine consumers, and a dependency table.
package report

import (
	"fmt"
	"io"

	"plcheck/internal/checker"
)

// Format names a report renderer.
type Format string

const (
	FormatText    Format = "text"
	FormatTabular Format = "tabular"
	FormatJSON    Format = "json"
	FormatXML     Format = "xml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatTabular, FormatJSON, FormatXML:
		return Format(s), nil
	}
	return FormatText, fmt.Errorf("unknown output format %q (want text, tabular, json or xml)", s)
}

// Write renders one result in the given format. Colorize only affects
// the text format.
func Write(w io.Writer, res *checker.Result, format Format, colorize bool) error {
	switch format {
	case FormatTabular:
		return writeTabular(w, res)
	case FormatJSON:
		return writeJSON(w, res)
	case FormatXML:
		return writeXML(w, res)
	default:
		return writeText(w, res, colorize)
	}
}
