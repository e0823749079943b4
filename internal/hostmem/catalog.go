// Package hostmem is an in-memory stand-in for the host database used by
// the CLI and the tests. It implements bridge.Host over catalogs loaded
// from a bundle or built programmatically. Its SQL analyzer resolves only
// the synthetic fragments the checker feeds it; it is a test double for
// the out-of-scope host compiler, not a SQL implementation.
package hostmem

import (
	"fmt"
	"sync"

	"plcheck/internal/ast"
	"plcheck/internal/bridge"
	"plcheck/internal/ident"
	"plcheck/internal/types"
)

// Builtin scalar types with stable fake oids.
var typesByName = map[string]types.Ref{}

func regType(oid types.Oid, names ...string) types.Ref {
	ref := types.Ref{Oid: oid, Name: names[0]}
	for _, n := range names {
		typesByName[n] = ref
	}
	return ref
}

var (
	TypeBool        = regType(16, "boolean", "bool")
	TypeBytea       = regType(17, "bytea")
	TypeInt8        = regType(20, "bigint", "int8")
	TypeInt2        = regType(21, "smallint", "int2")
	TypeInt4        = regType(23, "integer", "int", "int4")
	TypeText        = regType(25, "text")
	TypeJSON        = regType(114, "json")
	TypeFloat4      = regType(700, "real", "float4")
	TypeFloat8      = regType(701, "double precision", "float8")
	TypeVarchar     = regType(1043, "character varying", "varchar")
	TypeDate        = regType(1082, "date")
	TypeTimestamp   = regType(1114, "timestamp", "timestamp without time zone")
	TypeTimestampTZ = regType(1184, "timestamptz", "timestamp with time zone")
	TypeNumeric     = regType(1700, "numeric", "decimal")
	TypeRefcursor   = regType(1790, "refcursor")
	TypeRecord      = regType(2249, "record")
	TypeVoid        = regType(2278, "void")
	TypeTrigger     = regType(2279, "trigger")
	TypeUUID        = regType(2950, "uuid")
	TypeJSONB       = regType(3802, "jsonb")
)

// TypeByName resolves a known scalar type name (folded).
func TypeByName(name string) (types.Ref, bool) {
	ref, ok := typesByName[ident.Fold(name)]
	return ref, ok
}

// Function is a catalog function entry.
type Function struct {
	Oid        types.Oid
	Schema     string
	Name       string
	Args       []types.Ref
	Result     types.Ref
	Volatility types.Volatility
	// Builtin functions are excluded from dependency output.
	Builtin    bool
	ReturnsSet bool
}

// Signature renders "name(argtype,argtype)".
func (f *Function) Signature() string {
	s := f.Name + "("
	for i, a := range f.Args {
		if i > 0 {
			s += ","
		}
		s += a.Name
	}
	return s + ")"
}

// Catalog is the in-memory catalog. Safe for concurrent readers once
// populated; registration is not synchronized with lookups.
type Catalog struct {
	mu        sync.RWMutex
	nextOid   types.Oid
	relations map[string]*bridge.Relation // key schema.name
	functions map[string][]*Function      // key folded name
	routines  map[string]*ast.Routine     // key signature
	byOid     map[types.Oid]*ast.Routine
	composite map[string]types.Shape
}

func NewCatalog() *Catalog {
	c := &Catalog{
		nextOid:   16384,
		relations: make(map[string]*bridge.Relation),
		functions: make(map[string][]*Function),
		routines:  make(map[string]*ast.Routine),
		byOid:     make(map[types.Oid]*ast.Routine),
		composite: make(map[string]types.Shape),
	}
	registerBuiltins(c)
	return c
}

func relKey(schema, name string) string {
	if schema == "" {
		schema = "public"
	}
	return schema + "." + name
}

func (c *Catalog) allocOid() types.Oid {
	oid := c.nextOid
	c.nextOid++
	return oid
}

// AddTable registers a table and its row type.
func (c *Catalog) AddTable(schema, name string, columns ...types.Field) *bridge.Relation {
	return c.addRelation(schema, name, bridge.RelationTable, columns)
}

// AddView registers a view.
func (c *Catalog) AddView(schema, name string, columns ...types.Field) *bridge.Relation {
	return c.addRelation(schema, name, bridge.RelationView, columns)
}

// AddSequence registers a sequence.
func (c *Catalog) AddSequence(schema, name string) *bridge.Relation {
	return c.addRelation(schema, name, bridge.RelationSequence, nil)
}

func (c *Catalog) addRelation(schema, name string, kind bridge.RelationKind, columns []types.Field) *bridge.Relation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if schema == "" {
		schema = "public"
	}
	rel := &bridge.Relation{
		Oid:     c.allocOid(),
		Schema:  schema,
		Name:    ident.Fold(name),
		Kind:    kind,
		Columns: types.NewShape(columns...),
	}
	c.relations[relKey(rel.Schema, rel.Name)] = rel
	if kind != bridge.RelationSequence {
		c.composite[rel.Name] = rel.Columns
	}
	return rel
}

// AddFunction registers a catalog function.
func (c *Catalog) AddFunction(schema, name string, vol types.Volatility, result types.Ref, args ...types.Ref) *Function {
	c.mu.Lock()
	defer c.mu.Unlock()
	if schema == "" {
		schema = "public"
	}
	fn := &Function{
		Oid:        c.allocOid(),
		Schema:     schema,
		Name:       ident.Fold(name),
		Args:       args,
		Result:     result,
		Volatility: vol,
	}
	c.functions[fn.Name] = append(c.functions[fn.Name], fn)
	return fn
}

// AddCompositeType registers a named composite type for pragma type hints.
func (c *Catalog) AddCompositeType(name string, fields ...types.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.composite[ident.Fold(name)] = types.NewShape(fields...)
}

// AddRoutine registers a checkable routine. The routine gets an oid if it
// has none yet.
func (c *Catalog) AddRoutine(r *ast.Routine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Oid == types.InvalidOid {
		r.Oid = c.allocOid()
	}
	if r.Schema == "" {
		r.Schema = "public"
	}
	sig := r.Signature
	if sig == "" {
		sig = r.Name
	}
	c.routines[sig] = r
	c.byOid[r.Oid] = r
}

// Routines returns all registered routines in registration-independent
// deterministic order is the caller's concern; this returns the map values.
func (c *Catalog) Routines() []*ast.Routine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ast.Routine, 0, len(c.byOid))
	for _, r := range c.byOid {
		out = append(out, r)
	}
	return out
}

// --- bridge.Host implementation ---

func (c *Catalog) LookupRoutine(signature string) (*ast.Routine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.routines[signature]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("routine %q: %w", signature, bridge.ErrNotFound)
}

func (c *Catalog) LookupRoutineByOid(oid types.Oid) (*ast.Routine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.byOid[oid]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("routine oid %d: %w", oid, bridge.ErrNotFound)
}

func (c *Catalog) LookupRelation(schema, name string) (*bridge.Relation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if rel, ok := c.relations[relKey(schema, ident.Fold(name))]; ok {
		return rel, nil
	}
	return nil, fmt.Errorf("relation %q: %w", relKey(schema, name), bridge.ErrNotFound)
}

func (c *Catalog) LookupRelationByOid(oid types.Oid) (*bridge.Relation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rel := range c.relations {
		if rel.Oid == oid {
			return rel, nil
		}
	}
	return nil, fmt.Errorf("relation oid %d: %w", oid, bridge.ErrNotFound)
}

func (c *Catalog) LookupType(name string) (types.Ref, error) {
	if ref, ok := TypeByName(name); ok {
		return ref, nil
	}
	return types.Ref{}, fmt.Errorf("type %q: %w", name, bridge.ErrNotFound)
}

func (c *Catalog) LookupCompositeType(name string) (types.Shape, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if shape, ok := c.composite[ident.Fold(name)]; ok {
		return shape, nil
	}
	return types.Shape{}, fmt.Errorf("composite type %q: %w", name, bridge.ErrNotFound)
}

func (c *Catalog) function(name string) []*Function {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.functions[ident.Fold(name)]
}

// registerBuiltins loads the builtin functions the analyzer recognizes.
// Builtins never show up in dependency output.
func registerBuiltins(c *Catalog) {
	builtin := func(name string, vol types.Volatility, result types.Ref, args ...types.Ref) {
		fn := c.AddFunction("pg_catalog", name, vol, result, args...)
		fn.Builtin = true
	}
	builtin("lower", types.VolatilityImmutable, TypeText, TypeText)
	builtin("upper", types.VolatilityImmutable, TypeText, TypeText)
	builtin("length", types.VolatilityImmutable, TypeInt4, TypeText)
	builtin("coalesce", types.VolatilityImmutable, TypeText)
	builtin("abs", types.VolatilityImmutable, TypeNumeric, TypeNumeric)
	builtin("count", types.VolatilityImmutable, TypeInt8)
	builtin("sum", types.VolatilityImmutable, TypeNumeric, TypeNumeric)
	builtin("max", types.VolatilityImmutable, TypeNumeric, TypeNumeric)
	builtin("min", types.VolatilityImmutable, TypeNumeric, TypeNumeric)
	builtin("now", types.VolatilityStable, TypeTimestampTZ)
	builtin("clock_timestamp", types.VolatilityVolatile, TypeTimestampTZ)
	builtin("random", types.VolatilityVolatile, TypeFloat8)
	builtin("nextval", types.VolatilityVolatile, TypeInt8, TypeText)
	builtin("currval", types.VolatilityVolatile, TypeInt8, TypeText)
	builtin("setval", types.VolatilityVolatile, TypeInt8, TypeText, TypeInt8)
	builtin("quote_ident", types.VolatilityImmutable, TypeText, TypeText)
	builtin("quote_literal", types.VolatilityImmutable, TypeText, TypeText)
	builtin("quote_nullable", types.VolatilityImmutable, TypeText, TypeText)
	builtin("format", types.VolatilityStable, TypeText, TypeText)
	builtin("concat", types.VolatilityStable, TypeText)
	builtin("current_timestamp", types.VolatilityStable, TypeTimestampTZ)
}
