package checker

import (
	"fmt"

	"plcheck/internal/bridge"
	"plcheck/internal/diag"
)

// Mode is the process-wide checking mode.
type Mode uint8

const (
	ModeDisabled Mode = iota
	ModeOnDemand
	ModeFirstCall
	ModeEveryCall
)

var modeNames = map[string]Mode{
	"disabled":    ModeDisabled,
	"by_function": ModeOnDemand,
	"fresh_start": ModeFirstCall,
	"every_start": ModeEveryCall,
}

func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[s]; ok {
		return m, nil
	}
	return ModeDisabled, fmt.Errorf("unknown check mode %q", s)
}

func (m Mode) String() string {
	for name, mm := range modeNames {
		if mm == m {
			return name
		}
	}
	return "disabled"
}

// DefaultSanitizers are the quoting functions the injection heuristic
// recognizes. The list is a heuristic knob, not a sound analysis.
var DefaultSanitizers = []string{"quote_ident", "quote_literal", "quote_nullable", "format"}

// Options configure one check run.
type Options struct {
	FatalErrors bool

	OtherWarnings         bool
	ExtraWarnings         bool
	PerformanceWarnings   bool
	SecurityWarnings      bool
	CompatibilityWarnings bool

	// Format is carried through to the result for the report writer.
	Format string

	// PolymorphicSubs substitutes concrete types for the routine's
	// polymorphic parameter types, e.g. {"anyelement": "integer"}.
	PolymorphicSubs map[string]string

	// TriggerRelation binds a DML-trigger routine to its table
	// ("schema.name" or "name").
	TriggerRelation string

	// OldTable/NewTable name the transition tables of an AFTER trigger.
	OldTable string
	NewTable string

	// CollectDeps enables the dependency collector.
	CollectDeps bool

	// Sanitizers overrides DefaultSanitizers when non-nil.
	Sanitizers []string

	MaxDiagnostics int

	// Reporter receives every kept diagnostic as it is emitted, in
	// discovery order. The result still carries the full list; nil means
	// no tap.
	Reporter diag.Reporter
}

// UsageError is a misuse of the checker itself: nothing was analyzed and
// no diagnostics exist. Unwraps to bridge.ErrInvalidInput.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

func (e *UsageError) Unwrap() error {
	return bridge.ErrInvalidInput
}

func usageErrorf(format string, args ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}
