package diag

// Severity defines the importance of a diagnostic. Warning severities are
// split into the categories a caller can toggle independently.
type Severity uint8

const (
	// SevInfo is for informational notices (pragma echo, "not checked").
	SevInfo Severity = iota
	SevWarnExtra
	SevWarnPerformance
	SevWarnOther
	SevWarnSecurity
	SevWarnCompat
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarnExtra:
		return "warning extra"
	case SevWarnPerformance:
		return "performance"
	case SevWarnOther:
		return "warning"
	case SevWarnSecurity:
		return "security"
	case SevWarnCompat:
		return "compatibility"
	case SevError:
		return "error"
	}
	return "unknown"
}

// Level collapses categories to the three report levels used by the
// structured outputs.
func (s Severity) Level() string {
	switch {
	case s == SevError:
		return "error"
	case s == SevInfo:
		return "info"
	default:
		return "warning"
	}
}

// IsWarning reports whether the severity is one of the warning categories.
func (s Severity) IsWarning() bool {
	return s > SevInfo && s < SevError
}
