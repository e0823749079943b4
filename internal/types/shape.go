package types

import (
	"strings"

	"fortio.org/safecast"
)

// Field is one column of a tuple shape.
type Field struct {
	Name   string
	Type   Ref
	Typmod int32
}

// Shape is an ordered (name, type) list describing a row variable or a
// query result.
type Shape struct {
	Fields []Field
}

func NewShape(fields ...Field) Shape {
	return Shape{Fields: fields}
}

func (s Shape) Len() int {
	return len(s.Fields)
}

func (s Shape) Empty() bool {
	return len(s.Fields) == 0
}

// Field returns the field with the given name and its 0-based index,
// or index -1 when absent.
func (s Shape) Field(name string) (Field, int) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i
		}
	}
	return Field{}, -1
}

// Compatible reports whether another shape can be assigned over this one
// without redefinition: same arity and pairwise-same field types. Field
// names are not compared; positional assignment renames freely.
func (s Shape) Compatible(other Shape) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if !Same(s.Fields[i].Type, other.Fields[i].Type) {
			return false
		}
	}
	return true
}

// String renders the shape as "(a int, b text)" for diagnostics.
func (s Shape) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte(' ')
		b.WriteString(f.Type.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Arity returns the column count as int16, the width the host wire
// protocol uses for column counts.
func (s Shape) Arity() int16 {
	n, err := safecast.Convert[int16](len(s.Fields))
	if err != nil {
		return int16(^uint16(0) >> 1)
	}
	return n
}
