package diag

// Bag accumulates diagnostics in discovery order. Diagnostics are never
// removed once appended; the limit only guards against pathological runs.
type Bag struct {
	items []Diagnostic
	max   int
}

const DefaultLimit = 1000

func NewBag(max int) *Bag {
	if max <= 0 {
		max = DefaultLimit
	}
	return &Bag{
		items: make([]Diagnostic, 0, 8),
		max:   max,
	}
}

// Add appends a diagnostic. Returns false when the limit was reached and
// the diagnostic was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors returns true if at least one diagnostic has error severity.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity == SevError {
			return true
		}
	}
	return false
}

// Items returns a read-only view of the accumulated diagnostics.
// Callers must not modify the returned slice.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends diagnostics from another bag, growing the limit if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
}
