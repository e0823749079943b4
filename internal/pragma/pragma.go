// Package pragma parses checker directives embedded in routine source.
// A directive arrives as the string argument of the reserved marker
// function, or from the declaration section (routine-wide scope).
package pragma

import (
	"fmt"
	"strings"

	"plcheck/internal/ident"
)

// Kind of a parsed directive.
type Kind uint8

const (
	KindEnable Kind = iota
	KindDisable
	KindStatus
	KindType
	KindTable
	KindSequence
	KindEcho
)

func (k Kind) String() string {
	switch k {
	case KindEnable:
		return "enable"
	case KindDisable:
		return "disable"
	case KindStatus:
		return "status"
	case KindType:
		return "type"
	case KindTable:
		return "table"
	case KindSequence:
		return "sequence"
	case KindEcho:
		return "echo"
	}
	return "unknown"
}

// Feature names a toggleable checker feature.
type Feature uint8

const (
	FeatureCheck Feature = iota
	FeatureOtherWarnings
	FeaturePerformanceWarnings
	FeatureExtraWarnings
	FeatureSecurityWarnings
	FeatureCompatibilityWarnings
)

var featureNames = map[string]Feature{
	"check":                  FeatureCheck,
	"other_warnings":         FeatureOtherWarnings,
	"performance_warnings":   FeaturePerformanceWarnings,
	"extra_warnings":         FeatureExtraWarnings,
	"security_warnings":      FeatureSecurityWarnings,
	"compatibility_warnings": FeatureCompatibilityWarnings,
}

func (f Feature) String() string {
	for name, ff := range featureNames {
		if ff == f {
			return name
		}
	}
	return "unknown"
}

// ColumnDef is one column of a synthetic table directive.
type ColumnDef struct {
	Name string
	Type string
}

// Directive is one parsed pragma.
type Directive struct {
	Kind    Kind
	Feature Feature

	// type: directive
	RecVar string
	// TypeSpec is either a named composite type or an inline field list.
	TypeName string
	Fields   []ColumnDef

	// table: directive
	TableName ident.QualifiedName
	Columns   []ColumnDef
	LikeName  ident.QualifiedName

	// sequence: directive
	SequenceName ident.QualifiedName

	// echo: directive
	Text string
}

// Parse parses one directive string. Unknown or malformed directives
// return an error; the caller reports it as a warning and continues.
func Parse(text string) (*Directive, error) {
	s := strings.TrimSpace(text)
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return nil, fmt.Errorf("missing colon separator in pragma %q", text)
	}
	keyword := strings.ToLower(strings.TrimSpace(s[:colon]))
	rest := strings.TrimSpace(s[colon+1:])

	switch keyword {
	case "enable", "disable", "status":
		feature, ok := featureNames[strings.ToLower(rest)]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q in pragma %q", rest, text)
		}
		kind := KindStatus
		switch keyword {
		case "enable":
			kind = KindEnable
		case "disable":
			kind = KindDisable
		}
		return &Directive{Kind: kind, Feature: feature}, nil

	case "echo":
		return &Directive{Kind: KindEcho, Text: rest}, nil

	case "type":
		return parseType(rest)

	case "table":
		return parseTable(rest)

	case "sequence":
		name, err := ident.Parse(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid sequence name in pragma %q: %w", text, err)
		}
		return &Directive{Kind: KindSequence, SequenceName: name}, nil
	}
	return nil, fmt.Errorf("unknown pragma keyword %q", keyword)
}

// parseType handles "type:<recvar> <type name>" and
// "type:<recvar> (id int, processed bool)".
func parseType(rest string) (*Directive, error) {
	rest = strings.TrimSpace(rest)
	sep := strings.IndexAny(rest, " \t(")
	if sep < 0 {
		return nil, fmt.Errorf("missing type specification in type pragma")
	}
	recvar := ident.Fold(strings.TrimSpace(rest[:sep]))
	spec := strings.TrimSpace(rest[sep:])
	if recvar == "" || spec == "" {
		return nil, fmt.Errorf("missing record variable or type in type pragma")
	}
	d := &Directive{Kind: KindType, RecVar: recvar}
	if strings.HasPrefix(spec, "(") {
		fields, err := parseColumns(spec)
		if err != nil {
			return nil, err
		}
		d.Fields = fields
		return d, nil
	}
	d.TypeName = spec
	return d, nil
}

// parseTable handles "table:<name>(<col defs>)" and
// "table:<name>(like <existing>)".
func parseTable(rest string) (*Directive, error) {
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(strings.TrimSpace(rest), ")") {
		return nil, fmt.Errorf("missing column list in table pragma")
	}
	name, err := ident.Parse(rest[:open])
	if err != nil {
		return nil, fmt.Errorf("invalid table name in table pragma: %w", err)
	}
	body := strings.TrimSpace(rest[open:])
	inner := strings.TrimSpace(body[1 : len(body)-1])
	if rest, ok := strings.CutPrefix(inner, "like "); ok {
		like, err := ident.Parse(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid source table in table pragma: %w", err)
		}
		return &Directive{Kind: KindTable, TableName: name, LikeName: like}, nil
	}
	cols, err := parseColumns(body)
	if err != nil {
		return nil, err
	}
	return &Directive{Kind: KindTable, TableName: name, Columns: cols}, nil
}

// parseColumns parses "(a int, b text)" into column defs. Types are kept
// verbatim; the catalog resolves them later.
func parseColumns(spec string) ([]ColumnDef, error) {
	spec = strings.TrimSpace(spec)
	if !strings.HasPrefix(spec, "(") || !strings.HasSuffix(spec, ")") {
		return nil, fmt.Errorf("column list must be parenthesized")
	}
	inner := strings.TrimSpace(spec[1 : len(spec)-1])
	if inner == "" {
		return nil, fmt.Errorf("empty column list")
	}
	var cols []ColumnDef
	depth := 0
	start := 0
	flush := func(part string) error {
		part = strings.TrimSpace(part)
		fields := strings.Fields(part)
		if len(fields) < 2 {
			return fmt.Errorf("invalid column definition %q", part)
		}
		cols = append(cols, ColumnDef{
			Name: ident.Fold(fields[0]),
			Type: strings.Join(fields[1:], " "),
		})
		return nil
	}
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(inner[start:i]); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if err := flush(inner[start:]); err != nil {
		return nil, err
	}
	return cols, nil
}
