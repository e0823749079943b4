package ast

import (
	"plcheck/internal/types"
)

// DatumKind classifies a variable slot.
type DatumKind uint8

const (
	DatumVar DatumKind = iota
	DatumRow
	DatumRec
	DatumRecField
)

func (k DatumKind) String() string {
	switch k {
	case DatumVar:
		return "variable"
	case DatumRow:
		return "row"
	case DatumRec:
		return "record"
	case DatumRecField:
		return "field"
	}
	return "unknown"
}

// Datum is one declared variable, parameter, row, record or record-field
// reference. DNo is the stable small-integer handle the host assigns for
// the routine's lifetime.
type Datum struct {
	DNo  int
	Kind DatumKind
	Name string
	Line int

	// Scalar variables.
	Type   types.Ref
	Typmod int32

	// Rows carry their declared shape.
	Shape types.Shape

	// Record-field references.
	ParentDno int
	FieldName string

	IsParam bool
	IsOut   bool
	// Internal marks slots the runtime maintains itself (FOUND, sqlstate,
	// trigger records); they are exempt from usage reporting.
	Internal bool
	// CursorQuery is set on bound-cursor variables.
	CursorQuery *SQLExpr
	// HasDefault marks variables with a declaration-time initializer.
	HasDefault bool
	Default    *SQLExpr
}

// TriggerKind tells what kind of trigger a routine implements, if any.
type TriggerKind uint8

const (
	TriggerNone TriggerKind = iota
	TriggerDML
	TriggerEvent
)

func (t TriggerKind) String() string {
	switch t {
	case TriggerNone:
		return "none"
	case TriggerDML:
		return "dml"
	case TriggerEvent:
		return "event"
	}
	return "unknown"
}

// Routine is a stored function or procedure as delivered by the host:
// identity, signature, datums and the compiled statement tree.
type Routine struct {
	Oid       types.Oid
	Schema    string
	Name      string
	Signature string
	Language  string

	Datums      []*Datum
	ParamDnos   []int
	ReturnType  types.Ref
	ReturnsSet  bool
	IsProcedure bool

	TriggerKind TriggerKind
	Volatility  types.Volatility

	Body *Stmt

	// DeclPragmas are checker directives written in the declaration
	// section; they apply routine-wide.
	DeclPragmas []string
}

// Datum returns the slot for a handle, or nil when out of range.
func (r *Routine) Datum(dno int) *Datum {
	if dno < 0 || dno >= len(r.Datums) {
		return nil
	}
	return r.Datums[dno]
}

// QualifiedName renders "schema.name" for reports.
func (r *Routine) QualifiedName() string {
	if r.Schema != "" {
		return r.Schema + "." + r.Name
	}
	return r.Name
}
