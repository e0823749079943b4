// Package bridge declares the surface the host database supplies to the
// checker: routine lookup, relation lookup and the SQL parse+analyze
// service. The checker consumes these interfaces and never reimplements
// the host's parser or type system.
package bridge

import (
	"errors"

	"plcheck/internal/ast"
	"plcheck/internal/types"
)

// ErrInvalidInput marks usage errors: the caller handed the checker
// something it cannot analyze at all (wrong language, missing trigger
// relation, ...). Wrapped by concrete errors, tested with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound is returned by lookups for unknown catalog objects.
var ErrNotFound = errors.New("not found")

// RelationKind classifies a catalog relation.
type RelationKind byte

const (
	RelationTable    RelationKind = 'r'
	RelationView     RelationKind = 'v'
	RelationSequence RelationKind = 'S'
)

// Relation is the ordered column list of a catalog relation.
type Relation struct {
	Oid     types.Oid
	Schema  string
	Name    string
	Kind    RelationKind
	Columns types.Shape
}

// RoutineProvider resolves stored routines by identity or signature.
type RoutineProvider interface {
	LookupRoutine(signature string) (*ast.Routine, error)
	LookupRoutineByOid(oid types.Oid) (*ast.Routine, error)
}

// RelationProvider resolves relation shapes for trigger binding, pragma
// table hints and sequence checks.
type RelationProvider interface {
	LookupRelation(schema, name string) (*Relation, error)
	LookupRelationByOid(oid types.Oid) (*Relation, error)
}

// TypeProvider resolves type names for pragma hints and polymorphic
// substitutions.
type TypeProvider interface {
	LookupType(name string) (types.Ref, error)
	// LookupCompositeType returns the field list of a named composite
	// type (a table row type counts).
	LookupCompositeType(name string) (types.Shape, error)
}

// AnalyzeEnv is the synthetic environment one fragment is resolved in:
// parameter types built from the routine's live variables, plus catalog
// entries that exist only for this run (pragma-registered tables and
// sequences). A zero-valued Ref marks a parameter of unknown type; the
// analyzer must degrade gracefully for it.
type AnalyzeEnv struct {
	Params    []types.Ref
	Relations []*Relation
}

// SQLAnalyzer parses and analyzes one embedded SQL fragment against a
// synthetic parameter-type environment. Unresolvable fragments return a
// *SQLError; anything else is an internal fault.
type SQLAnalyzer interface {
	AnalyzeQuery(query string, env AnalyzeEnv) (*ResolvedQuery, error)
}

// Host bundles everything the checker needs from the database side.
type Host interface {
	RoutineProvider
	RelationProvider
	TypeProvider
	SQLAnalyzer
}
