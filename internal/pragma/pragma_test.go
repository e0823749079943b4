package pragma_test

import (
	"testing"

	"plcheck/internal/pragma"
)

func TestParseToggles(t *testing.T) {
	cases := []struct {
		text    string
		kind    pragma.Kind
		feature pragma.Feature
	}{
		{"enable:check", pragma.KindEnable, pragma.FeatureCheck},
		{"disable: extra_warnings", pragma.KindDisable, pragma.FeatureExtraWarnings},
		{"status:security_warnings", pragma.KindStatus, pragma.FeatureSecurityWarnings},
		{"  ENABLE : performance_warnings ", pragma.KindEnable, pragma.FeaturePerformanceWarnings},
	}
	for _, c := range cases {
		d, err := pragma.Parse(c.text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.text, err)
		}
		if d.Kind != c.kind || d.Feature != c.feature {
			t.Fatalf("Parse(%q) = %v/%v, want %v/%v", c.text, d.Kind, d.Feature, c.kind, c.feature)
		}
	}
}

func TestParseEcho(t *testing.T) {
	d, err := pragma.Parse("echo: hello world")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != pragma.KindEcho || d.Text != "hello world" {
		t.Fatalf("echo directive = %+v", d)
	}
}

func TestParseTypeNamed(t *testing.T) {
	d, err := pragma.Parse("type: rec my_composite")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != pragma.KindType || d.RecVar != "rec" || d.TypeName != "my_composite" {
		t.Fatalf("type directive = %+v", d)
	}
}

func TestParseTypeInline(t *testing.T) {
	d, err := pragma.Parse("type: r (id integer, processed boolean)")
	if err != nil {
		t.Fatal(err)
	}
	if d.RecVar != "r" || len(d.Fields) != 2 {
		t.Fatalf("type directive = %+v", d)
	}
	if d.Fields[0].Name != "id" || d.Fields[0].Type != "integer" {
		t.Fatalf("first field = %+v", d.Fields[0])
	}
	if d.Fields[1].Name != "processed" || d.Fields[1].Type != "boolean" {
		t.Fatalf("second field = %+v", d.Fields[1])
	}
}

func TestParseTypeMultiWordType(t *testing.T) {
	d, err := pragma.Parse("type: r (ts timestamp without time zone)")
	if err != nil {
		t.Fatal(err)
	}
	if d.Fields[0].Type != "timestamp without time zone" {
		t.Fatalf("multi-word type = %q", d.Fields[0].Type)
	}
}

func TestParseTableColumns(t *testing.T) {
	d, err := pragma.Parse("table: queue.jobs (id bigint, payload jsonb)")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != pragma.KindTable {
		t.Fatalf("kind = %v", d.Kind)
	}
	if d.TableName.Schema != "queue" || d.TableName.Name != "jobs" {
		t.Fatalf("table name = %v", d.TableName)
	}
	if len(d.Columns) != 2 || d.Columns[1].Type != "jsonb" {
		t.Fatalf("columns = %+v", d.Columns)
	}
}

func TestParseTableLike(t *testing.T) {
	d, err := pragma.Parse("table: tmp1 (like public.accounts)")
	if err != nil {
		t.Fatal(err)
	}
	if d.LikeName.Schema != "public" || d.LikeName.Name != "accounts" {
		t.Fatalf("like source = %v", d.LikeName)
	}
	if len(d.Columns) != 0 {
		t.Fatalf("like form must carry no columns, got %+v", d.Columns)
	}
}

func TestParseSequence(t *testing.T) {
	d, err := pragma.Parse("sequence: audit_seq")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != pragma.KindSequence || d.SequenceName.Name != "audit_seq" {
		t.Fatalf("sequence directive = %+v", d)
	}
}

func TestParseMalformed(t *testing.T) {
	bad := []string{
		"",
		"no separator",
		"enable:unknown_feature",
		"type: r",
		"table: t",
		"table: t (id)",
		"frobnicate: x",
	}
	for _, text := range bad {
		if _, err := pragma.Parse(text); err == nil {
			t.Fatalf("Parse(%q) unexpectedly succeeded", text)
		}
	}
}
