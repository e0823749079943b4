package driver_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"plcheck/internal/ast"
	"plcheck/internal/cache"
	"plcheck/internal/checker"
	"plcheck/internal/diag"
	"plcheck/internal/driver"
	"plcheck/internal/hostmem"
	"plcheck/internal/types"
)

func batchRoutine(name string) *ast.Routine {
	return &ast.Routine{
		Schema:     "public",
		Name:       name,
		Signature:  name + "()",
		Language:   "plpgsql",
		ReturnType: hostmem.TypeInt4,
		Volatility: types.VolatilityVolatile,
		Body: &ast.Stmt{Kind: ast.StmtBlock, Line: 1, Block: &ast.BlockStmt{
			Body: []*ast.Stmt{{Kind: ast.StmtReturn, Line: 2, Return: &ast.ReturnStmt{
				Expr:      &ast.SQLExpr{Query: "select 1", Line: 2},
				RetVarDno: -1,
			}}},
		}},
	}
}

func batchHost(t *testing.T, routines ...*ast.Routine) *hostmem.Catalog {
	t.Helper()
	cat := hostmem.NewCatalog()
	for _, r := range routines {
		cat.AddRoutine(r)
	}
	return cat
}

func TestDisabledModeSkipsEverything(t *testing.T) {
	routines := []*ast.Routine{batchRoutine("a"), batchRoutine("b")}
	out, err := driver.CheckAll(context.Background(), batchHost(t, routines...), routines, driver.Options{
		Mode: checker.ModeDisabled,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %d", len(out.Results))
	}
	for _, res := range out.Results {
		if res.IsChecked {
			t.Fatal("disabled mode must not check anything")
		}
	}
	if out.HasErrors() {
		t.Fatal("skipped results carry no errors")
	}
}

func TestResultOrderMatchesInput(t *testing.T) {
	var routines []*ast.Routine
	for i := 0; i < 20; i++ {
		routines = append(routines, batchRoutine(fmt.Sprintf("fn%02d", i)))
	}
	out, err := driver.CheckAll(context.Background(), batchHost(t, routines...), routines, driver.Options{
		Mode: checker.ModeOnDemand,
		Jobs: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range out.Results {
		if res.Routine != routines[i] {
			t.Fatalf("result %d is %s, want %s", i, res.Routine.Name, routines[i].Name)
		}
	}
}

func TestUsageErrorDoesNotSinkBatch(t *testing.T) {
	good := batchRoutine("good")
	bad := batchRoutine("bad")
	bad.Language = "sql"
	routines := []*ast.Routine{bad, good}

	out, err := driver.CheckAll(context.Background(), batchHost(t, routines...), routines, driver.Options{
		Mode: checker.ModeOnDemand,
	})
	if err != nil {
		t.Fatal(err)
	}
	badRes := out.Results[0]
	if badRes.IsChecked {
		t.Fatal("usage failure must not count as checked")
	}
	if len(badRes.Diagnostics) != 1 || badRes.Diagnostics[0].Code != diag.CodeFeatureNotSupported {
		t.Fatalf("diagnostics = %+v", badRes.Diagnostics)
	}
	if !out.Results[1].IsChecked {
		t.Fatal("healthy routine must still be checked")
	}
}

func TestNotifyCallback(t *testing.T) {
	routines := []*ast.Routine{batchRoutine("a"), batchRoutine("b")}

	var mu sync.Mutex
	starts := 0
	finishes := 0
	_, err := driver.CheckAll(context.Background(), batchHost(t, routines...), routines, driver.Options{
		Mode: checker.ModeOnDemand,
		Notify: func(r *ast.Routine, res *checker.Result) {
			mu.Lock()
			defer mu.Unlock()
			if res == nil {
				starts++
			} else {
				finishes++
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if starts != 2 || finishes != 2 {
		t.Fatalf("notify calls = %d starts, %d finishes", starts, finishes)
	}
}

func TestFreshStartChecksOncePerFingerprint(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	store, err := cache.Open("plcheck-test")
	if err != nil {
		t.Fatal(err)
	}
	r := batchRoutine("a")
	// the same clean routine twice in one batch: the second occurrence
	// reuses the verdict cached by the first
	routines := []*ast.Routine{r, r}
	out, err := driver.CheckAll(context.Background(), batchHost(t, r), routines, driver.Options{
		Mode:  checker.ModeFirstCall,
		Cache: store,
		Jobs:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.SkippedCached != 1 {
		t.Fatalf("skipped = %d", out.SkippedCached)
	}
	if !out.Results[0].IsChecked || out.Results[1].IsChecked {
		t.Fatalf("checked flags = %v %v", out.Results[0].IsChecked, out.Results[1].IsChecked)
	}
}

func TestNilCacheIsTolerated(t *testing.T) {
	routines := []*ast.Routine{batchRoutine("a")}
	out, err := driver.CheckAll(context.Background(), batchHost(t, routines...), routines, driver.Options{
		Mode: checker.ModeEveryCall,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Results[0].IsChecked {
		t.Fatal("every_start without a cache must still check")
	}
}
