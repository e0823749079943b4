// Package profiler accumulates per-statement execution counters for
// routines, the way a host-side hook would feed them. The store has a
// fixed capacity and per-entry try-locks: a contended or full store
// drops samples instead of blocking the caller.
package profiler

import (
	"sync"
	"sync/atomic"
	"time"

	"plcheck/internal/types"
)

// DefaultCapacity matches the default size of the shared profile table.
const DefaultCapacity = 500

// StmtCounter is the accumulated cost of one statement.
type StmtCounter struct {
	ExecCount uint64
	TotalTime time.Duration
	MaxTime   time.Duration
}

type entry struct {
	mu    sync.Mutex
	oid   types.Oid
	used  bool
	stmts map[int]*StmtCounter
}

// Store is the fixed-capacity profile table.
type Store struct {
	mu      sync.RWMutex
	index   map[types.Oid]int
	entries []entry
	dropped atomic.Uint64
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		index:   make(map[types.Oid]int, capacity),
		entries: make([]entry, capacity),
	}
}

// Dropped reports how many samples were discarded because of contention
// or a full table.
func (s *Store) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Store) slotFor(oid types.Oid) *entry {
	s.mu.RLock()
	idx, ok := s.index[oid]
	s.mu.RUnlock()
	if ok {
		return &s.entries[idx]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.index[oid]; ok {
		return &s.entries[idx]
	}
	for i := range s.entries {
		if !s.entries[i].used {
			s.entries[i].used = true
			s.entries[i].oid = oid
			s.entries[i].stmts = make(map[int]*StmtCounter)
			s.index[oid] = i
			return &s.entries[i]
		}
	}
	return nil
}

// Record adds one sample. Best effort: a full table or a contended
// entry drops the sample and bumps the drop counter.
func (s *Store) Record(oid types.Oid, stmtID int, elapsed time.Duration) {
	e := s.slotFor(oid)
	if e == nil {
		s.dropped.Add(1)
		return
	}
	if !e.mu.TryLock() {
		s.dropped.Add(1)
		return
	}
	defer e.mu.Unlock()

	c := e.stmts[stmtID]
	if c == nil {
		c = &StmtCounter{}
		e.stmts[stmtID] = c
	}
	c.ExecCount++
	c.TotalTime += elapsed
	if elapsed > c.MaxTime {
		c.MaxTime = elapsed
	}
}

// Snapshot copies the counters of one routine; nil when the routine has
// no profile.
func (s *Store) Snapshot(oid types.Oid) map[int]StmtCounter {
	s.mu.RLock()
	idx, ok := s.index[oid]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	e := &s.entries[idx]
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[int]StmtCounter, len(e.stmts))
	for id, c := range e.stmts {
		out[id] = *c
	}
	return out
}

// Reset clears one routine's counters; a miss is a no-op.
func (s *Store) Reset(oid types.Oid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[oid]
	if !ok {
		return
	}
	e := &s.entries[idx]
	e.mu.Lock()
	e.stmts = make(map[int]*StmtCounter)
	e.mu.Unlock()
}
