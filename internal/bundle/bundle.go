// Package bundle reads the JSON interchange format a host-side dumper
// emits: a catalog snapshot (relations, functions, composite types) plus
// the compiled routines to check. The CLI loads a bundle and replays it
// into an in-memory catalog.
package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"plcheck/internal/ast"
	"plcheck/internal/hostmem"
	"plcheck/internal/types"
)

// Column is one relation or composite-type column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is a catalog relation; Kind is "table", "view" or "sequence".
type Table struct {
	Schema  string   `json:"schema,omitempty"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind,omitempty"`
	Columns []Column `json:"columns,omitempty"`
}

// Function is a callable catalog entry with its volatility class.
type Function struct {
	Schema     string   `json:"schema,omitempty"`
	Name       string   `json:"name"`
	Volatility string   `json:"volatility,omitempty"`
	Returns    string   `json:"returns,omitempty"`
	Args       []string `json:"args,omitempty"`
}

// CompositeType is a named row type.
type CompositeType struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Bundle is the interchange document.
type Bundle struct {
	Tables     []Table         `json:"tables,omitempty"`
	Functions  []Function      `json:"functions,omitempty"`
	Composites []CompositeType `json:"compositeTypes,omitempty"`
	Routines   []*ast.Routine  `json:"routines"`
}

// Load reads and replays a bundle file.
func Load(path string) (*hostmem.Catalog, []*ast.Routine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a bundle and builds the catalog it describes.
func Parse(r io.Reader) (*hostmem.Catalog, []*ast.Routine, error) {
	var b Bundle
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, nil, fmt.Errorf("decode bundle: %w", err)
	}
	cat := hostmem.NewCatalog()
	if err := replay(cat, &b); err != nil {
		return nil, nil, err
	}
	return cat, b.Routines, nil
}

func replay(cat *hostmem.Catalog, b *Bundle) error {
	for _, t := range b.Tables {
		cols, err := resolveColumns(t.Columns)
		if err != nil {
			return fmt.Errorf("relation %s: %w", t.Name, err)
		}
		switch t.Kind {
		case "", "table":
			cat.AddTable(t.Schema, t.Name, cols...)
		case "view":
			cat.AddView(t.Schema, t.Name, cols...)
		case "sequence":
			cat.AddSequence(t.Schema, t.Name)
		default:
			return fmt.Errorf("relation %s: unknown kind %q", t.Name, t.Kind)
		}
	}
	for _, fn := range b.Functions {
		result, err := resolveType(fn.Returns)
		if err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
		args := make([]types.Ref, 0, len(fn.Args))
		for _, a := range fn.Args {
			ref, err := resolveType(a)
			if err != nil {
				return fmt.Errorf("function %s: %w", fn.Name, err)
			}
			args = append(args, ref)
		}
		cat.AddFunction(fn.Schema, fn.Name, parseVolatility(fn.Volatility), result, args...)
	}
	for _, ct := range b.Composites {
		cols, err := resolveColumns(ct.Columns)
		if err != nil {
			return fmt.Errorf("composite type %s: %w", ct.Name, err)
		}
		cat.AddCompositeType(ct.Name, cols...)
	}
	for _, r := range b.Routines {
		cat.AddRoutine(r)
	}
	return nil
}

func resolveColumns(cols []Column) ([]types.Field, error) {
	out := make([]types.Field, 0, len(cols))
	for _, c := range cols {
		ref, err := resolveType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		out = append(out, types.Field{Name: c.Name, Type: ref, Typmod: -1})
	}
	return out, nil
}

func resolveType(name string) (types.Ref, error) {
	if name == "" {
		return types.Ref{}, nil
	}
	ref, ok := hostmem.TypeByName(name)
	if !ok {
		// keep unregistered names nominal; the checker matches by name
		return types.Ref{Name: name}, nil
	}
	return ref, nil
}

func parseVolatility(s string) types.Volatility {
	switch s {
	case "immutable", "i":
		return types.VolatilityImmutable
	case "stable", "s":
		return types.VolatilityStable
	default:
		return types.VolatilityVolatile
	}
}
