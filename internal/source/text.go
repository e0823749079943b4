package source

import (
	"strings"
)

// QueryLines splits an embedded query into display lines and locates the
// caret for a 1-based character position. Returns the split lines, the
// index of the line holding the position and the 0-based column within it.
// A position outside the text lands on the last line's end.
func QueryLines(query string, pos int) (lines []string, lineIdx, col int) {
	lines = strings.Split(query, "\n")
	if pos <= 0 {
		return lines, -1, 0
	}
	remain := pos - 1
	for i, ln := range lines {
		// +1 for the newline consumed by the split
		if remain <= len(ln) {
			return lines, i, remain
		}
		remain -= len(ln) + 1
	}
	last := len(lines) - 1
	return lines, last, len(lines[last])
}

// Caret renders a caret marker column for text reports: spaces up to col,
// then '^'. Tabs in the prefix are preserved so the caret stays aligned.
func Caret(line string, col int) string {
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	var b strings.Builder
	for _, ch := range line[:col] {
		if ch == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}
