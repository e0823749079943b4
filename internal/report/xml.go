package report

import (
	"encoding/xml"
	"io"

	"plcheck/internal/checker"
)

type xmlStmt struct {
	Lineno int    `xml:"lineno,attr,omitempty"`
	Text   string `xml:",chardata"`
}

type xmlQuery struct {
	Position int    `xml:"position,attr,omitempty"`
	Text     string `xml:",chardata"`
}

type xmlIssue struct {
	Level    string    `xml:"Level"`
	Sqlstate string    `xml:"Sqlstate"`
	Message  string    `xml:"Message"`
	Stmt     *xmlStmt  `xml:"Stmt,omitempty"`
	Query    *xmlQuery `xml:"Query,omitempty"`
	Detail   string    `xml:"Detail,omitempty"`
	Hint     string    `xml:"Hint,omitempty"`
	Context  string    `xml:"Context,omitempty"`
}

type xmlFunction struct {
	XMLName xml.Name   `xml:"Function"`
	Oid     uint32     `xml:"oid,attr"`
	Name    string     `xml:"name,attr"`
	Issues  []xmlIssue `xml:"Issue"`
}

func writeXML(w io.Writer, res *checker.Result) error {
	fn := xmlFunction{
		Oid:  uint32(res.Routine.Oid),
		Name: res.Routine.QualifiedName(),
	}
	for i := range res.Diagnostics {
		d := &res.Diagnostics[i]
		issue := xmlIssue{
			Level:    d.Severity.Level(),
			Sqlstate: d.Code.String(),
			Message:  d.Message,
			Detail:   d.Detail,
			Hint:     d.Hint,
			Context:  d.Context,
		}
		if d.Span.Line > 0 || d.StmtKind != "" {
			issue.Stmt = &xmlStmt{Lineno: d.Span.Line, Text: d.StmtKind}
		}
		if d.Query != "" {
			issue.Query = &xmlQuery{Position: d.Span.Pos, Text: d.Query}
		}
		fn.Issues = append(fn.Issues, issue)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(fn); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
