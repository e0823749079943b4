package profiler_test

import (
	"sync"
	"testing"
	"time"

	"plcheck/internal/ast"
	"plcheck/internal/profiler"
)

func TestRecordAccumulates(t *testing.T) {
	s := profiler.NewStore(4)
	s.Record(100, 1, 2*time.Millisecond)
	s.Record(100, 1, 5*time.Millisecond)
	s.Record(100, 2, time.Millisecond)

	snap := s.Snapshot(100)
	if snap == nil {
		t.Fatal("expected a profile")
	}
	c := snap[1]
	if c.ExecCount != 2 || c.TotalTime != 7*time.Millisecond || c.MaxTime != 5*time.Millisecond {
		t.Fatalf("counter = %+v", c)
	}
	if snap[2].ExecCount != 1 {
		t.Fatalf("counter 2 = %+v", snap[2])
	}
}

func TestSnapshotMiss(t *testing.T) {
	s := profiler.NewStore(4)
	if snap := s.Snapshot(999); snap != nil {
		t.Fatalf("expected nil snapshot, got %v", snap)
	}
}

func TestReset(t *testing.T) {
	s := profiler.NewStore(4)
	s.Record(100, 1, time.Millisecond)
	s.Reset(100)
	if snap := s.Snapshot(100); len(snap) != 0 {
		t.Fatalf("reset left counters %v", snap)
	}
	s.Reset(200) // miss is a no-op
}

func TestFullTableDropsSamples(t *testing.T) {
	s := profiler.NewStore(2)
	s.Record(1, 1, time.Millisecond)
	s.Record(2, 1, time.Millisecond)
	s.Record(3, 1, time.Millisecond)
	if s.Dropped() != 1 {
		t.Fatalf("dropped = %d", s.Dropped())
	}
	if snap := s.Snapshot(3); snap != nil {
		t.Fatalf("overflow routine must have no profile, got %v", snap)
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := profiler.NewStore(8)
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Record(500, i%4, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot(500)
	var total uint64
	for _, c := range snap {
		total += c.ExecCount
	}
	if total+s.Dropped() != workers*perWorker {
		t.Fatalf("recorded %d dropped %d, want sum %d", total, s.Dropped(), workers*perWorker)
	}
}

func TestComputeCoverage(t *testing.T) {
	then := &ast.Stmt{ID: 2, Kind: ast.StmtNull}
	ifStmt := &ast.Stmt{ID: 1, Kind: ast.StmtIf, If: &ast.IfStmt{
		Then: []*ast.Stmt{then},
	}}
	body := &ast.Stmt{ID: 0, Kind: ast.StmtBlock, Block: &ast.BlockStmt{
		Body: []*ast.Stmt{ifStmt},
	}}
	r := &ast.Routine{Body: body}

	counters := map[int]profiler.StmtCounter{
		0: {ExecCount: 1},
		1: {ExecCount: 1},
		// the THEN arm never ran
	}
	cov := profiler.ComputeCoverage(r, counters)
	if cov.Statements != 3 || cov.ExecutedStatements != 2 {
		t.Fatalf("statements = %d/%d", cov.ExecutedStatements, cov.Statements)
	}
	// THEN arm plus the implicit fall-through arm
	if cov.Branches != 2 || cov.ExecutedBranches != 1 {
		t.Fatalf("branches = %d/%d", cov.ExecutedBranches, cov.Branches)
	}
	if cov.StatementRatio() == 0 || cov.BranchRatio() != 0.5 {
		t.Fatalf("ratios = %v %v", cov.StatementRatio(), cov.BranchRatio())
	}
}

func TestBranchRatioWithoutBranches(t *testing.T) {
	r := &ast.Routine{Body: &ast.Stmt{ID: 0, Kind: ast.StmtBlock, Block: &ast.BlockStmt{}}}
	cov := profiler.ComputeCoverage(r, nil)
	if cov.BranchRatio() != 1 {
		t.Fatalf("no branches must rate 1, got %v", cov.BranchRatio())
	}
}
