package source

import (
	"fmt"
)

// Span locates a diagnostic inside a routine body. Line is the 1-based
// statement line as reported by the host compiler; Pos is an optional
// 1-based character offset into the offending query text (0 = none).
type Span struct {
	Line int
	Pos  int
}

func (s Span) Empty() bool {
	return s.Line == 0 && s.Pos == 0
}

func (s Span) String() string {
	if s.Pos > 0 {
		return fmt.Sprintf("%d@%d", s.Line, s.Pos)
	}
	return fmt.Sprintf("%d", s.Line)
}
