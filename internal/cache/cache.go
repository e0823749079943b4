// Package cache is the "already checked" store behind the fresh_start and
// every_start modes: a routine whose fingerprint is present and clean can
// be skipped until its source or the options change.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"plcheck/internal/ast"
)

// Current schema version, bumped whenever Entry changes shape.
const schemaVersion uint16 = 1

// Digest is a SHA-256 routine fingerprint.
type Digest [sha256.Size]byte

func (d Digest) IsZero() bool {
	var z Digest
	return d == z
}

// Fingerprint hashes the identity of one check: the routine and the
// option set it ran under. Any change invalidates the cached verdict.
func Fingerprint(r *ast.Routine, optsTag string) Digest {
	h := sha256.New()
	h.Write([]byte(r.Signature))
	h.Write([]byte{0})
	h.Write([]byte(r.Language))
	h.Write([]byte{0})
	h.Write([]byte(optsTag))
	h.Write([]byte{0})
	var buf [8]byte
	for i := 0; i < 4; i++ {
		buf[i] = byte(uint32(r.Oid) >> (8 * i))
	}
	h.Write(buf[:4])
	writeStmt(h, r.Body)
	var d Digest
	h.Sum(d[:0])
	return d
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

func writeStmt(h hashWriter, stmt *ast.Stmt) {
	if stmt == nil {
		return
	}
	ast.Walk(stmt, func(s *ast.Stmt) bool {
		h.Write([]byte{byte(s.Kind)})
		var buf [4]byte
		for i := 0; i < 4; i++ {
			buf[i] = byte(uint32(s.Line) >> (8 * i))
		}
		h.Write(buf[:])
		return true
	})
}

// Entry is one cached verdict.
type Entry struct {
	Schema    uint16
	Signature string
	HasErrors bool
	CheckedAt int64
}

// Store is the on-disk cache. Safe for concurrent use. A nil *Store is a
// disabled cache: every lookup misses, every put is dropped.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache at the standard XDG location.
func Open(app string) (*Store, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) pathFor(key Digest) string {
	return filepath.Join(s.dir, "checked", hex.EncodeToString(key[:])+".mp")
}

// Put records a verdict. The write is atomic: temp file then rename.
func (s *Store) Put(key Digest, hasErrors bool, signature string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	entry := Entry{
		Schema:    schemaVersion,
		Signature: signature,
		HasErrors: hasErrors,
		CheckedAt: time.Now().Unix(),
	}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get looks a verdict up. A schema mismatch reads as a miss.
func (s *Store) Get(key Digest) (*Entry, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, err
	}
	if entry.Schema != schemaVersion {
		return nil, false, nil
	}
	return &entry, true, nil
}

// DropAll empties the cache, the fresh_start semantics.
func (s *Store) DropAll() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(s.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}
