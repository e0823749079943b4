package ident_test

import (
	"testing"

	"plcheck/internal/ident"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Accounts": "accounts",
		"T1":       "t1",
		"already":  "already",
	}
	for in, want := range cases {
		if got := ident.Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseUnqualified(t *testing.T) {
	q, err := ident.Parse("Accounts")
	if err != nil {
		t.Fatal(err)
	}
	if q.Schema != "" || q.Name != "accounts" {
		t.Fatalf("parsed = %+v", q)
	}
	if q.String() != "accounts" {
		t.Fatalf("String() = %q", q.String())
	}
}

func TestParseQualified(t *testing.T) {
	q, err := ident.Parse("Public.Accounts")
	if err != nil {
		t.Fatal(err)
	}
	if q.Schema != "public" || q.Name != "accounts" {
		t.Fatalf("parsed = %+v", q)
	}
	if q.String() != "public.accounts" {
		t.Fatalf("String() = %q", q.String())
	}
}

func TestParseQuoted(t *testing.T) {
	q, err := ident.Parse(`"My.Table"`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Schema != "" || q.Name != "My.Table" {
		t.Fatalf("quoted name = %+v", q)
	}

	q, err = ident.Parse(`myschema."Weird ""Name"""`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Schema != "myschema" || q.Name != `Weird "Name"` {
		t.Fatalf("doubled quotes = %+v", q)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"a.b.c.d",
		`"unterminated`,
		".",
		"a..b",
	}
	for _, s := range bad {
		if _, err := ident.Parse(s); err == nil {
			t.Fatalf("Parse(%q) unexpectedly succeeded", s)
		}
	}
}
