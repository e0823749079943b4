package checker

// ClosingStatus is the control-flow verdict for a statement sequence:
// whether execution is guaranteed to leave via RETURN or a raised
// exception. Ordered as a small lattice,
// Unclosed < PossiblyClosed < ClosedByExceptions < Closed.
type ClosingStatus uint8

const (
	// StatusUnknown is the identity element for Meet; never the verdict
	// of a real sequence.
	StatusUnknown ClosingStatus = iota
	StatusUnclosed
	StatusPossiblyClosed
	StatusClosedByExceptions
	StatusClosed
)

func (s ClosingStatus) String() string {
	switch s {
	case StatusUnclosed:
		return "unclosed"
	case StatusPossiblyClosed:
		return "possibly closed"
	case StatusClosedByExceptions:
		return "closed by exceptions"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Closes reports whether the status guarantees the block cannot run off
// its end.
func (s ClosingStatus) Closes() bool {
	return s == StatusClosed || s == StatusClosedByExceptions
}

// reRaise marks an exception whose concrete condition cannot be computed
// (bare RAISE inside a handler).
const reRaise = "*reraise*"

// possiblyClosed weakens a verdict for paths that may execute zero times
// (loop bodies, single branches).
func possiblyClosed(c ClosingStatus) ClosingStatus {
	switch c {
	case StatusClosed, StatusClosedByExceptions, StatusPossiblyClosed:
		return StatusPossiblyClosed
	default:
		return StatusUnclosed
	}
}

// Meet folds the verdicts of two alternative execution paths, carrying
// the sets of exception conditions the paths may raise. It is
// associative and monotone; StatusUnknown is its identity. errCode
// substitutes for re-raise markers when the caller knows the caught
// condition, "" otherwise.
func Meet(c, cLocal ClosingStatus, exc, excLocal []string, errCode string) (ClosingStatus, []string) {
	if c == StatusUnknown {
		if cLocal == StatusClosedByExceptions {
			return cLocal, excLocal
		}
		return cLocal, nil
	}
	if cLocal == StatusUnknown {
		return c, exc
	}
	if c == cLocal {
		if c == StatusClosedByExceptions {
			if errCode != "" {
				merged := exc
				for _, e := range excLocal {
					if e == reRaise {
						e = errCode
					}
					merged = appendUnique(merged, e)
				}
				return c, merged
			}
			return c, appendUniqueAll(exc, excLocal)
		}
		return c, nil
	}
	if c == StatusClosed || cLocal == StatusClosed {
		if c == StatusClosedByExceptions || cLocal == StatusClosedByExceptions {
			return StatusClosed, nil
		}
	}
	return StatusPossiblyClosed, nil
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueAll(list []string, vs []string) []string {
	for _, v := range vs {
		list = appendUnique(list, v)
	}
	return list
}

// conditionMatches reports whether a handler condition catches a raised
// condition name. "others" matches everything except query cancellation
// and assertion failures, same as the host runtime.
func conditionMatches(handlerCond, raised string) bool {
	if handlerCond == "others" {
		return raised != "query_canceled" && raised != "assert_failure"
	}
	return handlerCond == raised
}

func handlerCatches(conditions []string, raised string) bool {
	for _, c := range conditions {
		if conditionMatches(c, raised) {
			return true
		}
	}
	return false
}
