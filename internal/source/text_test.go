package source_test

import (
	"testing"

	"plcheck/internal/source"
)

func TestQueryLinesSingleLine(t *testing.T) {
	lines, idx, col := source.QueryLines("select c from t1", 8)
	if len(lines) != 1 || idx != 0 || col != 7 {
		t.Fatalf("lines=%v idx=%d col=%d", lines, idx, col)
	}
}

func TestQueryLinesMultiLine(t *testing.T) {
	q := "select a\nfrom t1\nwhere x = 1"
	// position 15 is the "t" of t1 on the second line
	lines, idx, col := source.QueryLines(q, 15)
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	if idx != 1 || col != 5 {
		t.Fatalf("idx=%d col=%d", idx, col)
	}
}

func TestQueryLinesNoPosition(t *testing.T) {
	_, idx, col := source.QueryLines("select 1", 0)
	if idx != -1 || col != 0 {
		t.Fatalf("idx=%d col=%d", idx, col)
	}
}

func TestQueryLinesPositionPastEnd(t *testing.T) {
	lines, idx, col := source.QueryLines("ab\ncd", 100)
	if idx != len(lines)-1 || col != len(lines[idx]) {
		t.Fatalf("idx=%d col=%d", idx, col)
	}
}

func TestCaret(t *testing.T) {
	if got := source.Caret("select c", 7); got != "       ^" {
		t.Fatalf("caret = %q", got)
	}
	if got := source.Caret("a\tb", 2); got != " \t^" {
		t.Fatalf("tab caret = %q", got)
	}
	if got := source.Caret("ab", 10); got != "  ^" {
		t.Fatalf("clamped caret = %q", got)
	}
	if got := source.Caret("ab", -1); got != "^" {
		t.Fatalf("negative caret = %q", got)
	}
}
