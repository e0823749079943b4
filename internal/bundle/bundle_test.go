package bundle_test

import (
	"strings"
	"testing"

	"plcheck/internal/bundle"
	"plcheck/internal/hostmem"
	"plcheck/internal/types"
)

const sampleBundle = `{
  "tables": [
    {"schema": "public", "name": "accounts", "columns": [
      {"name": "id", "type": "bigint"},
      {"name": "owner", "type": "text"}
    ]},
    {"name": "v1", "kind": "view", "columns": [{"name": "n", "type": "integer"}]},
    {"name": "audit_seq", "kind": "sequence"}
  ],
  "functions": [
    {"schema": "public", "name": "tax_rate", "volatility": "stable", "returns": "numeric", "args": ["integer"]}
  ],
  "compositeTypes": [
    {"name": "pair", "columns": [{"name": "a", "type": "integer"}, {"name": "b", "type": "integer"}]}
  ],
  "routines": [
    {"Name": "fx", "Signature": "fx()", "Language": "plpgsql"}
  ]
}`

func TestParseReplaysCatalog(t *testing.T) {
	cat, routines, err := bundle.Parse(strings.NewReader(sampleBundle))
	if err != nil {
		t.Fatal(err)
	}

	rel, err := cat.LookupRelation("public", "accounts")
	if err != nil {
		t.Fatal(err)
	}
	if rel.Columns.Len() != 2 {
		t.Fatalf("columns = %s", rel.Columns.String())
	}
	if f, _ := rel.Columns.Field("id"); !types.Same(f.Type, hostmem.TypeInt8) {
		t.Fatalf("id column = %s", f.Type)
	}

	if _, err := cat.LookupRelation("", "v1"); err != nil {
		t.Fatalf("view missing: %v", err)
	}
	if _, err := cat.LookupRelation("", "audit_seq"); err != nil {
		t.Fatalf("sequence missing: %v", err)
	}
	shape, err := cat.LookupCompositeType("pair")
	if err != nil || shape.Len() != 2 {
		t.Fatalf("composite = %v %v", shape, err)
	}

	if len(routines) != 1 || routines[0].Name != "fx" {
		t.Fatalf("routines = %+v", routines)
	}
	if _, err := cat.LookupRoutine("fx()"); err != nil {
		t.Fatalf("routine not registered: %v", err)
	}
}

func TestParseKeepsUnregisteredTypesNominal(t *testing.T) {
	doc := `{"tables": [{"name": "t", "columns": [{"name": "g", "type": "geometry"}]}], "routines": []}`
	cat, _, err := bundle.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	rel, err := cat.LookupRelation("", "t")
	if err != nil {
		t.Fatal(err)
	}
	f, _ := rel.Columns.Field("g")
	if f.Type.Name != "geometry" || f.Type.Oid != 0 {
		t.Fatalf("nominal type = %+v", f.Type)
	}
}

func TestParseRejectsUnknownRelationKind(t *testing.T) {
	doc := `{"tables": [{"name": "t", "kind": "matview"}], "routines": []}`
	if _, _, err := bundle.Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("unknown relation kind must be rejected")
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	doc := `{"routines": [], "extra": true}`
	if _, _, err := bundle.Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("unknown top-level field must be rejected")
	}
}
