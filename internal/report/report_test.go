package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"plcheck/internal/ast"
	"plcheck/internal/checker"
	"plcheck/internal/diag"
	"plcheck/internal/report"
	"plcheck/internal/source"
)

func sampleResult() *checker.Result {
	d := diag.New(diag.SevError, diag.CodeUndefinedColumn,
		source.Span{Line: 4}, "SQL statement", `column "c" does not exist`).
		WithQuery("select c from t1", 8).
		WithHint("Perhaps you meant to reference a different column.")
	return &checker.Result{
		Routine: &ast.Routine{
			Oid:    17001,
			Schema: "public",
			Name:   "fx",
		},
		Diagnostics: []diag.Diagnostic{d},
		IsChecked:   true,
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "tabular", "json", "xml"} {
		if _, err := report.ParseFormat(s); err != nil {
			t.Fatalf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := report.ParseFormat("yaml"); err == nil {
		t.Fatal("unknown format must be rejected")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, sampleResult(), report.FormatText, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "function:public.fx" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != `error:42703:4:SQL statement:column "c" does not exist` {
		t.Fatalf("issue line = %q", lines[1])
	}
	if lines[2] != "Query: select c from t1" {
		t.Fatalf("query line = %q", lines[2])
	}
	if lines[3] != "--            ^" {
		t.Fatalf("caret line = %q", lines[3])
	}
	if !strings.HasPrefix(lines[4], "Hint: ") {
		t.Fatalf("hint line = %q", lines[4])
	}
}

func TestTabularFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, sampleResult(), report.FormatTabular, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	row := lines[0]
	if !strings.HasPrefix(row, "public.fx") {
		t.Fatalf("row = %q", row)
	}
	for _, want := range []string{"error", "42703", `column "c" does not exist`} {
		if !strings.Contains(row, want) {
			t.Fatalf("missing %q in row %q", want, row)
		}
	}
	fields := strings.Fields(row)
	if len(fields) < 4 || fields[1] != "4" {
		t.Fatalf("line column = %v", fields)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, sampleResult(), report.FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Function  string `json:"function"`
		IsChecked bool   `json:"isChecked"`
		Issues    []struct {
			Level     string `json:"level"`
			SQLState  string `json:"sqlState"`
			Message   string `json:"message"`
			Statement *struct {
				LineNumber int    `json:"lineNumber"`
				Text       string `json:"text"`
			} `json:"statement"`
			Query *struct {
				Position int    `json:"position"`
				Text     string `json:"text"`
			} `json:"query"`
			Hint string `json:"hint"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if doc.Function != "public.fx" || !doc.IsChecked {
		t.Fatalf("header fields = %q %v", doc.Function, doc.IsChecked)
	}
	if len(doc.Issues) != 1 {
		t.Fatalf("issues = %+v", doc.Issues)
	}
	issue := doc.Issues[0]
	if issue.Level != "error" || issue.SQLState != "42703" {
		t.Fatalf("issue = %+v", issue)
	}
	if issue.Statement == nil || issue.Statement.LineNumber != 4 {
		t.Fatalf("statement = %+v", issue.Statement)
	}
	if issue.Query == nil || issue.Query.Position != 8 || issue.Query.Text != "select c from t1" {
		t.Fatalf("query = %+v", issue.Query)
	}
}

func TestXMLFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, sampleResult(), report.FormatXML, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"<?xml",
		`<Function oid="17001" name="public.fx">`,
		"<Level>error</Level>",
		"<Sqlstate>42703</Sqlstate>",
		`<Stmt lineno="4">SQL statement</Stmt>`,
		`<Query position="8">select c from t1</Query>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteDependencies(t *testing.T) {
	res := sampleResult()
	res.Dependencies = []checker.DependencyRecord{
		{Kind: checker.DepRelation, Oid: 16385, Schema: "public", Name: "t1"},
		{Kind: checker.DepFunction, Oid: 16390, Schema: "public", Name: "fy", Signature: "fy(integer)"},
	}
	var buf bytes.Buffer
	if err := report.WriteDependencies(&buf, res); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "dependencies of public.fx:") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "public.t1") || !strings.Contains(out, "fy(integer)") {
		t.Fatalf("missing entries:\n%s", out)
	}
}

func TestDependenciesEmptyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	if err := report.WriteDependencies(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
