package hostmem_test

import (
	"errors"
	"testing"

	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/hostmem"
	"plcheck/internal/types"
)

func analyzeCatalog() *hostmem.Catalog {
	cat := hostmem.NewCatalog()
	cat.AddTable("", "t1",
		types.Field{Name: "a", Type: hostmem.TypeInt4, Typmod: -1},
		types.Field{Name: "b", Type: hostmem.TypeText, Typmod: -1},
	)
	cat.AddSequence("", "s1")
	return cat
}

func mustAnalyze(t *testing.T, cat *hostmem.Catalog, query string, env bridge.AnalyzeEnv) *bridge.ResolvedQuery {
	t.Helper()
	rq, err := cat.AnalyzeQuery(query, env)
	if err != nil {
		t.Fatalf("AnalyzeQuery(%q): %v", query, err)
	}
	return rq
}

func sqlErrFrom(t *testing.T, cat *hostmem.Catalog, query string, env bridge.AnalyzeEnv) *bridge.SQLError {
	t.Helper()
	_, err := cat.AnalyzeQuery(query, env)
	if err == nil {
		t.Fatalf("AnalyzeQuery(%q): expected error", query)
	}
	var sqlErr *bridge.SQLError
	if !errors.As(err, &sqlErr) {
		t.Fatalf("AnalyzeQuery(%q): not a SQL error: %v", query, err)
	}
	return sqlErr
}

func TestSelectColumns(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select a, b from t1", bridge.AnalyzeEnv{})
	if rq.Columns.Len() != 2 {
		t.Fatalf("expected 2 columns, got %s", rq.Columns.String())
	}
	if f, _ := rq.Columns.Field("a"); !types.Same(f.Type, hostmem.TypeInt4) {
		t.Fatalf("column a resolved to %s", f.Type)
	}
	if f, _ := rq.Columns.Field("b"); !types.Same(f.Type, hostmem.TypeText) {
		t.Fatalf("column b resolved to %s", f.Type)
	}
	if len(rq.Tables) != 1 || rq.Tables[0].Name != "t1" {
		t.Fatalf("tables = %+v", rq.Tables)
	}
}

func TestStarExpansion(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select * from t1", bridge.AnalyzeEnv{})
	if rq.Columns.Len() != 2 {
		t.Fatalf("star expansion produced %s", rq.Columns.String())
	}
}

func TestUnknownRelation(t *testing.T) {
	e := sqlErrFrom(t, analyzeCatalog(), "select a from nope", bridge.AnalyzeEnv{})
	if e.Code != diag.CodeUndefinedTable {
		t.Fatalf("code = %v", e.Code)
	}
	if e.Message != `relation "nope" does not exist` {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestUnknownColumn(t *testing.T) {
	e := sqlErrFrom(t, analyzeCatalog(), "select c from t1", bridge.AnalyzeEnv{})
	if e.Code != diag.CodeUndefinedColumn {
		t.Fatalf("code = %v", e.Code)
	}
	if e.Position == 0 {
		t.Fatal("expected a position into the query")
	}
}

func TestParameterOutOfRange(t *testing.T) {
	e := sqlErrFrom(t, analyzeCatalog(), "select $2", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeText},
	})
	if e.Code != diag.CodeUndefinedParameter {
		t.Fatalf("code = %v", e.Code)
	}
	if e.Message != "there is no parameter $2" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestImplicitCastInWhere(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select a from t1 where a = $1", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeNumeric},
	})
	if len(rq.ImplicitCasts) != 1 {
		t.Fatalf("implicit casts = %+v", rq.ImplicitCasts)
	}
	c := rq.ImplicitCasts[0]
	if c.Column != "a" || !types.Same(c.From, hostmem.TypeNumeric) || !types.Same(c.To, hostmem.TypeInt4) {
		t.Fatalf("cast note = %+v", c)
	}
}

func TestNoCastNoteForSameType(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select a from t1 where a = $1", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeInt4},
	})
	if len(rq.ImplicitCasts) != 0 {
		t.Fatalf("unexpected cast notes %+v", rq.ImplicitCasts)
	}
}

func TestConcatDecomposition(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select 'delete from x where id = ' || $1", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeText},
	})
	if len(rq.ConcatParts) != 2 {
		t.Fatalf("concat parts = %+v", rq.ConcatParts)
	}
	if !rq.ConcatParts[0].IsLiteral || rq.ConcatParts[1].ParamNo != 1 {
		t.Fatalf("concat parts = %+v", rq.ConcatParts)
	}
	if rq.ConcatParts[1].SanitizedBy != "" {
		t.Fatalf("bare parameter must not be sanitized: %+v", rq.ConcatParts[1])
	}
}

func TestSanitizedConcatPart(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select 'x' || quote_ident($1)", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeText},
	})
	found := false
	for _, p := range rq.ConcatParts {
		if p.ParamNo == 1 {
			found = true
			if p.SanitizedBy != "quote_ident" {
				t.Fatalf("part = %+v", p)
			}
		}
	}
	if !found {
		t.Fatalf("parameter part missing: %+v", rq.ConcatParts)
	}
}

func TestFormatPlaceholders(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select format('drop table %I cascade', $1)", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeText},
	})
	if len(rq.ConcatParts) != 1 {
		t.Fatalf("concat parts = %+v", rq.ConcatParts)
	}
	if rq.ConcatParts[0].SanitizedBy != "format:%I" {
		t.Fatalf("part = %+v", rq.ConcatParts[0])
	}

	rq = mustAnalyze(t, analyzeCatalog(), "select format('select %s', $1)", bridge.AnalyzeEnv{
		Params: []types.Ref{hostmem.TypeText},
	})
	if len(rq.ConcatParts) != 1 || rq.ConcatParts[0].SanitizedBy != "" {
		t.Fatalf("%%s placeholder must stay unsanitized: %+v", rq.ConcatParts)
	}
}

func TestSequenceArguments(t *testing.T) {
	rq := mustAnalyze(t, analyzeCatalog(), "select nextval('s1')", bridge.AnalyzeEnv{})
	if len(rq.SequenceArgs) != 1 {
		t.Fatalf("sequence args = %+v", rq.SequenceArgs)
	}
	sa := rq.SequenceArgs[0]
	if sa.FuncName != "nextval" || sa.Name != "s1" {
		t.Fatalf("sequence arg = %+v", sa)
	}
}

func TestUnknownFunction(t *testing.T) {
	e := sqlErrFrom(t, analyzeCatalog(), "select nosuchfn(1)", bridge.AnalyzeEnv{})
	if e.Code != diag.CodeUndefinedFunction {
		t.Fatalf("code = %v", e.Code)
	}
	if e.Hint == "" {
		t.Fatal("expected a hint about explicit casts")
	}
}

func TestTransactionControl(t *testing.T) {
	for _, q := range []string{"commit", "rollback"} {
		rq := mustAnalyze(t, analyzeCatalog(), q, bridge.AnalyzeEnv{})
		if !rq.IsTransactionControl {
			t.Fatalf("%q not flagged as transaction control", q)
		}
	}
}

func TestEnvironmentRelationOverlay(t *testing.T) {
	env := bridge.AnalyzeEnv{
		Relations: []*bridge.Relation{{
			Schema:  "pg_temp",
			Name:    "tmp1",
			Kind:    bridge.RelationTable,
			Columns: types.NewShape(types.Field{Name: "x", Type: hostmem.TypeInt4, Typmod: -1}),
		}},
	}
	rq := mustAnalyze(t, analyzeCatalog(), "select x from tmp1", env)
	if rq.Columns.Len() != 1 {
		t.Fatalf("overlay relation not used: %s", rq.Columns.String())
	}
}

func TestNonBuiltinFunctionRecorded(t *testing.T) {
	cat := analyzeCatalog()
	cat.AddFunction("public", "myfn", types.VolatilityStable, hostmem.TypeInt4, hostmem.TypeInt4)
	rq := mustAnalyze(t, cat, "select myfn(1)", bridge.AnalyzeEnv{})
	if len(rq.Functions) != 1 || rq.Functions[0].Name != "myfn" {
		t.Fatalf("functions = %+v", rq.Functions)
	}
	if rq.Functions[0].Volatility != types.VolatilityStable {
		t.Fatalf("volatility = %v", rq.Functions[0].Volatility)
	}
}
