// Package ident parses possibly-qualified, possibly-quoted identifiers as
// they appear in pragma arguments and dependency output.
package ident

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Fold normalizes an unquoted identifier the way the host does: case-folded.
func Fold(s string) string {
	return folder.String(s)
}

// QualifiedName is a parsed schema-qualified name. Schema may be empty.
type QualifiedName struct {
	Schema string
	Name   string
}

func (q QualifiedName) String() string {
	if q.Schema != "" {
		return q.Schema + "." + q.Name
	}
	return q.Name
}

// Parse splits "schema.name" honoring double-quoted parts: unquoted parts
// fold to lower case, quoted parts keep their spelling and may contain
// dots and doubled quotes.
func Parse(s string) (QualifiedName, error) {
	parts, err := split(strings.TrimSpace(s))
	if err != nil {
		return QualifiedName{}, err
	}
	switch len(parts) {
	case 1:
		return QualifiedName{Name: parts[0]}, nil
	case 2:
		return QualifiedName{Schema: parts[0], Name: parts[1]}, nil
	default:
		return QualifiedName{}, fmt.Errorf("improper qualified name (too many dotted names): %s", s)
	}
}

func split(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("invalid name: empty string")
	}
	var parts []string
	var cur strings.Builder
	inQuote := false
	quoted := false
	flush := func() error {
		part := cur.String()
		if !quoted {
			part = Fold(strings.TrimSpace(part))
		}
		if part == "" {
			return fmt.Errorf("invalid name: %q", s)
		}
		parts = append(parts, part)
		cur.Reset()
		quoted = false
		return nil
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"':
			if inQuote && i+1 < len(s) && s[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			if !inQuote {
				quoted = true
			}
			inQuote = !inQuote
		case ch == '.' && !inQuote:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted identifier: %q", s)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return parts, nil
}
