package report

import (
	"encoding/json"
	"io"

	"plcheck/internal/checker"
)

type jsonStatement struct {
	LineNumber int    `json:"lineNumber,omitempty"`
	Text       string `json:"text,omitempty"`
}

type jsonQuery struct {
	Position int    `json:"position,omitempty"`
	Text     string `json:"text"`
}

type jsonIssue struct {
	Level     string         `json:"level"`
	SQLState  string         `json:"sqlState"`
	Message   string         `json:"message"`
	Statement *jsonStatement `json:"statement,omitempty"`
	Query     *jsonQuery     `json:"query,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Hint      string         `json:"hint,omitempty"`
	Context   string         `json:"context,omitempty"`
}

type jsonReport struct {
	Function  string      `json:"function"`
	IsChecked bool        `json:"isChecked"`
	Issues    []jsonIssue `json:"issues"`
}

func writeJSON(w io.Writer, res *checker.Result) error {
	rep := jsonReport{
		Function:  res.Routine.QualifiedName(),
		IsChecked: res.IsChecked,
		Issues:    make([]jsonIssue, 0, len(res.Diagnostics)),
	}
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		issue := jsonIssue{
			Level:    d.Severity.Level(),
			SQLState: d.Code.String(),
			Message:  d.Message,
			Detail:   d.Detail,
			Hint:     d.Hint,
			Context:  d.Context,
		}
		if d.Span.Line > 0 || d.StmtKind != "" {
			issue.Statement = &jsonStatement{LineNumber: d.Span.Line, Text: d.StmtKind}
		}
		if d.Query != "" {
			issue.Query = &jsonQuery{Position: d.Span.Pos, Text: d.Query}
		}
		rep.Issues = append(rep.Issues, issue)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
