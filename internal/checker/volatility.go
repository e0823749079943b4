package checker

import (
	"fmt"

	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/source"
	"plcheck/internal/types"
)

// foldVolatility weakens the computed volatility of the routine by the
// functions and relations a resolved query touches. Any table access
// costs the IMMUTABLE promise; called functions contribute their own
// classification.
func (cs *CheckState) foldVolatility(rq *bridge.ResolvedQuery) {
	for _, fn := range rq.Functions {
		if types.Stricter(cs.volatility, fn.Volatility) {
			cs.volatility = fn.Volatility
		}
	}
	if len(rq.Tables) > 0 && cs.volatility == types.VolatilityImmutable {
		cs.volatility = types.VolatilityStable
	}
}

// reportVolatility compares the declared volatility with the computed
// one. Triggers and procedures are exempt, and EXECUTE makes the
// computation unreliable, so those runs stay silent. A promise stricter
// than the body supports is a correctness problem; a weaker one only
// costs the optimizer.
func (cs *CheckState) reportVolatility() {
	if cs.skipVolatilityCheck || cs.hasExecute {
		return
	}
	declared := cs.routine.Volatility
	computed := cs.volatility
	if declared == computed {
		return
	}
	msg := fmt.Sprintf("function is marked as %s, should be %s", declared, computed)
	if types.Stricter(declared, computed) {
		cs.put(diag.New(diag.SevWarnOther, diag.CodeSuccess, source.Span{}, "", msg))
		return
	}
	cs.put(diag.New(diag.SevWarnPerformance, diag.CodeSuccess, source.Span{}, "", msg))
}
