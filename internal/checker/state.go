// Package checker is the core analysis engine: a control-flow walker over
// the host-compiled statement tree, an expression/query resolver driving
// the host's own analyzer against synthetic inputs, a record shape
// propagator, a dependency collector and a pragma processor.
package checker

import (
	"errors"

	"plcheck/internal/ast"
	"plcheck/internal/bridge"
	"plcheck/internal/diag"
	"plcheck/internal/ident"
	"plcheck/internal/source"
	"plcheck/internal/types"
)

// DependencyKind classifies a dependency record.
type DependencyKind string

const (
	DepRelation DependencyKind = "RELATION"
	DepFunction DependencyKind = "FUNCTION"
	DepOperator DependencyKind = "OPERATOR"
)

// DependencyRecord is one referenced catalog object, deduplicated by
// (kind, oid) within a run.
type DependencyRecord struct {
	Kind      DependencyKind
	Oid       types.Oid
	Schema    string
	Name      string
	Signature string
}

type depKey struct {
	kind DependencyKind
	oid  types.Oid
}

// Result of one check run.
type Result struct {
	Routine      *ast.Routine
	Diagnostics  []diag.Diagnostic
	Dependencies []DependencyRecord
	// IsChecked is false when the run was skipped (mode disabled); the
	// single Info notice is then the only diagnostic.
	IsChecked bool
	Format    string
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for i := range r.Diagnostics {
		if r.Diagnostics[i].Severity == diag.SevError {
			return true
		}
	}
	return false
}

// featureFlags are the toggles a pragma can flip mid-walk.
type featureFlags struct {
	check       bool
	other       bool
	extra       bool
	performance bool
	security    bool
	compat      bool
}

type slotState struct {
	read    bool
	written bool
	// assigned means written by the body proper, not by the pre-walk
	// parameter/default marking; drives the OUT-variable report
	assigned bool
	// safe marks variables assigned only from sanitizer output; the
	// injection heuristic skips them.
	safe bool
	// record shape tracking
	shapeKnown bool
	shape      types.Shape
	// degraded disables further field checks after shapeless access
	degraded bool
}

// CheckState is the per-run mutable context. Created by NewState,
// destroyed by the end of Check; never reused across runs.
type CheckState struct {
	routine *ast.Routine
	host    bridge.Host
	opts    Options

	bag      *diag.Bag
	reporter diag.Reporter

	flags  featureFlags
	scopes []featureFlags

	slots []slotState

	deps    []DependencyRecord
	depKeys map[depKey]struct{}

	// synthetic relations registered by table:/sequence: pragmas, valid
	// for the rest of the run
	synthetic []*bridge.Relation

	// label stack for EXIT/CONTINUE target validation
	labels []labelEntry

	volatility          types.Volatility
	hasExecute          bool
	skipVolatilityCheck bool

	// verdict of the body walk, consumed by Finish
	finalStatus ClosingStatus

	stopCheck bool

	sanitizers map[string]bool

	// current statement, for fault attribution
	curStmt *ast.Stmt
}

type labelEntry struct {
	label  string
	isLoop bool
}

// NewState validates the inputs and builds a fresh per-run context.
// Usage errors abort before any statement is examined.
func NewState(routine *ast.Routine, host bridge.Host, opts Options) (*CheckState, error) {
	if routine == nil {
		return nil, usageErrorf("no routine to check")
	}
	if routine.Language != "plpgsql" {
		return nil, usageErrorf("%s is not a PL/pgSQL function", routine.QualifiedName())
	}
	if routine.TriggerKind == ast.TriggerDML && opts.TriggerRelation == "" {
		return nil, usageErrorf("missing trigger relation")
	}
	if routine.TriggerKind == ast.TriggerNone && opts.TriggerRelation != "" {
		return nil, usageErrorf("function is not trigger")
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	cs := &CheckState{
		routine:  routine,
		host:     host,
		opts:     opts,
		bag:      diag.NewBag(opts.MaxDiagnostics),
		reporter: reporter,
		flags: featureFlags{
			check:       true,
			other:       opts.OtherWarnings,
			extra:       opts.ExtraWarnings,
			performance: opts.PerformanceWarnings,
			security:    opts.SecurityWarnings,
			compat:      opts.CompatibilityWarnings,
		},
		slots:               make([]slotState, len(routine.Datums)),
		depKeys:             make(map[depKey]struct{}),
		volatility:          types.VolatilityImmutable,
		skipVolatilityCheck: routine.TriggerKind != ast.TriggerNone || routine.IsProcedure,
	}

	sanitizers := opts.Sanitizers
	if sanitizers == nil {
		sanitizers = DefaultSanitizers
	}
	cs.sanitizers = make(map[string]bool, len(sanitizers))
	for _, s := range sanitizers {
		cs.sanitizers[s] = true
	}

	if err := cs.applyPolymorphicSubs(); err != nil {
		return nil, err
	}
	if err := cs.bindTrigger(); err != nil {
		return nil, err
	}
	cs.initParams()
	return cs, nil
}

// applyPolymorphicSubs rewrites polymorphic datum types to the concrete
// substitutions, defaulting to integer like the host's checker does.
func (cs *CheckState) applyPolymorphicSubs() error {
	for name, sub := range cs.opts.PolymorphicSubs {
		if !types.IsPolymorphic(ident.Fold(name)) {
			return usageErrorf("%q is not a polymorphic type name", name)
		}
		if _, err := cs.host.LookupType(sub); err != nil {
			return usageErrorf("substituted type %q is not valid", sub)
		}
	}
	for _, d := range cs.routine.Datums {
		if d.Kind != ast.DatumVar || !types.IsPolymorphic(d.Type.Name) {
			continue
		}
		sub, ok := cs.opts.PolymorphicSubs[d.Type.Name]
		if !ok {
			sub = "integer"
		}
		ref, err := cs.host.LookupType(sub)
		if err != nil {
			return usageErrorf("substituted type %q is not valid", sub)
		}
		d.Type = ref
	}
	if types.IsPolymorphic(cs.routine.ReturnType.Name) {
		sub, ok := cs.opts.PolymorphicSubs[cs.routine.ReturnType.Name]
		if !ok {
			sub = "integer"
		}
		ref, err := cs.host.LookupType(sub)
		if err != nil {
			return usageErrorf("substituted type %q is not valid", sub)
		}
		cs.routine.ReturnType = ref
	}
	return nil
}

// bindTrigger resolves the trigger relation and fixes the shapes of the
// NEW/OLD transition records, plus transition-table names.
func (cs *CheckState) bindTrigger() error {
	if cs.routine.TriggerKind != ast.TriggerDML {
		return nil
	}
	qn, err := ident.Parse(cs.opts.TriggerRelation)
	if err != nil {
		return usageErrorf("invalid trigger relation name %q", cs.opts.TriggerRelation)
	}
	rel, err := cs.host.LookupRelation(qn.Schema, qn.Name)
	if err != nil {
		if errors.Is(err, bridge.ErrNotFound) {
			return usageErrorf("trigger relation %q does not exist", cs.opts.TriggerRelation)
		}
		return err
	}
	for _, d := range cs.routine.Datums {
		if d.Kind == ast.DatumRec && (d.Name == "new" || d.Name == "old") {
			cs.slots[d.DNo].shapeKnown = true
			cs.slots[d.DNo].shape = rel.Columns
			cs.slots[d.DNo].written = true
		}
	}
	for _, tt := range []struct{ name string }{{cs.opts.OldTable}, {cs.opts.NewTable}} {
		if tt.name == "" {
			continue
		}
		cs.synthetic = append(cs.synthetic, &bridge.Relation{
			Schema:  "pg_temp",
			Name:    ident.Fold(tt.name),
			Kind:    bridge.RelationTable,
			Columns: rel.Columns,
		})
	}
	return nil
}

// initParams marks parameters and internally maintained slots as written
// before the walk; reading them is always legal.
func (cs *CheckState) initParams() {
	for _, dno := range cs.routine.ParamDnos {
		if dno >= 0 && dno < len(cs.slots) {
			cs.slots[dno].written = true
		}
	}
	for _, d := range cs.routine.Datums {
		if d.Internal || d.HasDefault {
			cs.slots[d.DNo].written = true
		}
	}
}

// put reports a diagnostic, honoring category toggles and the
// fatal-errors stop.
func (cs *CheckState) put(d diag.Diagnostic) {
	if cs.stopCheck {
		return
	}
	if !cs.flags.check && d.Severity != diag.SevError {
		return
	}
	switch d.Severity {
	case diag.SevWarnOther:
		if !cs.flags.other {
			return
		}
	case diag.SevWarnExtra:
		if !cs.flags.extra {
			return
		}
	case diag.SevWarnPerformance:
		if !cs.flags.performance {
			return
		}
	case diag.SevWarnSecurity:
		if !cs.flags.security {
			return
		}
	case diag.SevWarnCompat:
		if !cs.flags.compat {
			return
		}
	}
	if cs.bag.Add(d) {
		cs.reporter.Report(d)
	}
	if d.Severity == diag.SevError && cs.opts.FatalErrors {
		cs.stopCheck = true
	}
}

// putError attributes an error to the current statement.
func (cs *CheckState) putError(code diag.Code, msg string) diag.Diagnostic {
	sp := source.Span{}
	kind := ""
	if cs.curStmt != nil {
		sp.Line = cs.curStmt.Line
		kind = cs.curStmt.Kind.String()
	}
	return diag.New(diag.SevError, code, sp, kind, msg)
}

func (cs *CheckState) stmtDiag(sev diag.Severity, code diag.Code, stmt *ast.Stmt, msg string) diag.Diagnostic {
	sp := source.Span{}
	kind := ""
	if stmt != nil {
		sp.Line = stmt.Line
		kind = stmt.Kind.String()
	}
	return diag.New(sev, code, sp, kind, msg)
}

// Run walks declaration pragmas, variable defaults and the routine body,
// remembering the final closing verdict for Finish.
func (cs *CheckState) Run() {
	for _, text := range cs.routine.DeclPragmas {
		cs.applyPragmaText(text, nil)
	}
	for _, d := range cs.routine.Datums {
		// bound cursor queries are checked on OPEN / FOR
		if d.HasDefault && d.Default != nil {
			cs.checkAssignment(nil, d.Default, d.DNo)
		}
	}
	cs.finalStatus, _ = cs.checkStmtSafe([]*ast.Stmt{cs.routine.Body})
}

// Finish emits the end-of-walk reports (missing RETURN, variable usage,
// declared volatility) and returns the accumulated diagnostics.
func (cs *CheckState) Finish() []diag.Diagnostic {
	if !cs.stopCheck {
		if !cs.finalStatus.Closes() && !cs.routine.IsProcedure {
			sev := diag.SevWarnExtra
			if cs.finalStatus == StatusUnclosed {
				sev = diag.SevError
			}
			cs.put(diag.New(sev, diag.CodeNoReturnStatement, source.Span{}, "",
				"control reached end of function without RETURN"))
		}
		cs.reportUnusedVariables()
		cs.reportVolatility()
	}
	return cs.bag.Items()
}

// Check runs the whole analysis for one routine and returns its result.
// Usage errors come back as a Go error; everything else lands in the
// diagnostics list.
func Check(routine *ast.Routine, host bridge.Host, opts Options) (*Result, error) {
	cs, err := NewState(routine, host, opts)
	if err != nil {
		return nil, err
	}
	cs.Run()
	return &Result{
		Routine:      routine,
		Diagnostics:  cs.Finish(),
		Dependencies: cs.deps,
		IsChecked:    true,
		Format:       opts.Format,
	}, nil
}

// SkippedResult is the "not checked" answer used when checking is
// globally disabled: one informational notice, zero diagnostics.
func SkippedResult(routine *ast.Routine) *Result {
	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevInfo, diag.CodeSuccess, source.Span{}, "",
		"plcheck is disabled, function is not checked"))
	return &Result{
		Routine:     routine,
		Diagnostics: bag.Items(),
		IsChecked:   false,
	}
}
