package cache_test

import (
	"testing"

	"plcheck/internal/ast"
	"plcheck/internal/cache"
)

func cachedRoutine() *ast.Routine {
	return &ast.Routine{
		Oid:       17001,
		Schema:    "public",
		Name:      "fx",
		Signature: "fx(integer)",
		Language:  "plpgsql",
		Body: &ast.Stmt{Kind: ast.StmtBlock, Line: 1, Block: &ast.BlockStmt{
			Body: []*ast.Stmt{{Kind: ast.StmtReturn, Line: 2, Return: &ast.ReturnStmt{RetVarDno: -1}}},
		}},
	}
}

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	s, err := cache.Open("plcheck-test")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openStore(t)
	key := cache.Fingerprint(cachedRoutine(), "0000000")

	if _, ok, err := s.Get(key); err != nil || ok {
		t.Fatalf("empty cache hit: ok=%v err=%v", ok, err)
	}
	if err := s.Put(key, false, "fx(integer)"); err != nil {
		t.Fatal(err)
	}
	entry, ok, err := s.Get(key)
	if err != nil || !ok {
		t.Fatalf("expected hit: ok=%v err=%v", ok, err)
	}
	if entry.HasErrors || entry.Signature != "fx(integer)" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.CheckedAt == 0 {
		t.Fatal("missing timestamp")
	}
}

func TestDropAll(t *testing.T) {
	s := openStore(t)
	key := cache.Fingerprint(cachedRoutine(), "0000000")
	if err := s.Put(key, true, "fx(integer)"); err != nil {
		t.Fatal(err)
	}
	if err := s.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(key); ok {
		t.Fatal("entry survived DropAll")
	}
	// the store stays usable after a drop
	if err := s.Put(key, false, "fx(integer)"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(key); !ok {
		t.Fatal("put after drop missed")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := cache.Fingerprint(cachedRoutine(), "0000000")

	r := cachedRoutine()
	r.Body.Block.Body[0].Line = 9
	if cache.Fingerprint(r, "0000000") == base {
		t.Fatal("body change must change the fingerprint")
	}

	if cache.Fingerprint(cachedRoutine(), "1000000") == base {
		t.Fatal("option change must change the fingerprint")
	}

	if cache.Fingerprint(cachedRoutine(), "0000000") != base {
		t.Fatal("fingerprint must be deterministic")
	}
}

func TestNilStoreIsDisabled(t *testing.T) {
	var s *cache.Store
	key := cache.Fingerprint(cachedRoutine(), "0000000")
	if err := s.Put(key, false, "fx(integer)"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Get(key); ok || err != nil {
		t.Fatalf("nil store must miss: ok=%v err=%v", ok, err)
	}
	if err := s.DropAll(); err != nil {
		t.Fatal(err)
	}
}
