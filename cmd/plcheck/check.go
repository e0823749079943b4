package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"plcheck/internal/ast"
	"plcheck/internal/bridge"
	"plcheck/internal/bundle"
	"plcheck/internal/cache"
	"plcheck/internal/checker"
	"plcheck/internal/config"
	"plcheck/internal/driver"
	"plcheck/internal/report"
	"plcheck/internal/store"
	"plcheck/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <bundle.json> [signature...]",
	Short: "Check routines from a host-exported bundle",
	Long:  `Check analyzes every routine in the bundle, or only the ones named by signature, and reports issues in the selected format`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "", "output format (text|tabular|json|xml)")
	checkCmd.Flags().String("mode", "", "check mode (disabled|by_function|fresh_start|every_start)")
	checkCmd.Flags().Bool("fatal-errors", false, "stop a routine's check at its first error")
	checkCmd.Flags().Bool("extra-warnings", false, "enable extra warnings (dead code, unused variables, ...)")
	checkCmd.Flags().Bool("no-other-warnings", false, "disable plain warnings")
	checkCmd.Flags().Bool("no-performance-warnings", false, "disable performance warnings")
	checkCmd.Flags().Bool("no-security-warnings", false, "disable security warnings")
	checkCmd.Flags().Bool("compat-warnings", false, "enable compatibility warnings")
	checkCmd.Flags().Int("jobs", 0, "max parallel routine checks (0=auto)")
	checkCmd.Flags().String("export", "", "write results to a SQLite database at this path")
	checkCmd.Flags().String("trigger-relation", "", "relation to bind DML trigger routines to")
	checkCmd.Flags().StringToString("polymorphic", nil, "polymorphic type substitutions, e.g. anyelement=integer")
	checkCmd.Flags().Bool("no-progress", false, "disable the interactive progress view")
}

// buildRunOptions merges the discovered config with explicit flags.
func buildRunOptions(cmd *cobra.Command) (checker.Options, checker.Mode, report.Format, error) {
	wd, err := os.Getwd()
	if err != nil {
		return checker.Options{}, 0, "", err
	}
	cfg, _, err := config.Discover(wd)
	if err != nil {
		return checker.Options{}, 0, "", err
	}
	opts := cfg.Options()

	flags := cmd.Flags()
	if flags.Changed("fatal-errors") {
		opts.FatalErrors, _ = flags.GetBool("fatal-errors")
	}
	if flags.Changed("extra-warnings") {
		opts.ExtraWarnings, _ = flags.GetBool("extra-warnings")
	}
	if on, _ := flags.GetBool("no-other-warnings"); on {
		opts.OtherWarnings = false
	}
	if on, _ := flags.GetBool("no-performance-warnings"); on {
		opts.PerformanceWarnings = false
	}
	if on, _ := flags.GetBool("no-security-warnings"); on {
		opts.SecurityWarnings = false
	}
	if flags.Changed("compat-warnings") {
		opts.CompatibilityWarnings, _ = flags.GetBool("compat-warnings")
	}
	if flags.Changed("trigger-relation") {
		opts.TriggerRelation, _ = flags.GetString("trigger-relation")
	}
	if flags.Changed("polymorphic") {
		opts.PolymorphicSubs, _ = flags.GetStringToString("polymorphic")
	}
	if n, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err == nil && n > 0 {
		opts.MaxDiagnostics = n
	}

	modeName := cfg.Mode
	if flags.Changed("mode") {
		modeName, _ = flags.GetString("mode")
	}
	mode, err := checker.ParseMode(modeName)
	if err != nil {
		return checker.Options{}, 0, "", err
	}

	formatName := cfg.Format
	if flags.Changed("format") {
		formatName, _ = flags.GetString("format")
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return checker.Options{}, 0, "", err
	}
	opts.Format = string(format)
	return opts, mode, format, nil
}

func selectRoutines(all []*ast.Routine, signatures []string) ([]*ast.Routine, error) {
	if len(signatures) == 0 {
		return all, nil
	}
	bySig := make(map[string]*ast.Routine, len(all))
	for _, r := range all {
		bySig[r.Signature] = r
	}
	out := make([]*ast.Routine, 0, len(signatures))
	for _, sig := range signatures {
		r, ok := bySig[sig]
		if !ok {
			return nil, fmt.Errorf("routine %q is not in the bundle", sig)
		}
		out = append(out, r)
	}
	return out, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, mode, format, err := buildRunOptions(cmd)
	if err != nil {
		return err
	}

	cat, all, err := bundle.Load(args[0])
	if err != nil {
		return err
	}
	routines, err := selectRoutines(all, args[1:])
	if err != nil {
		return err
	}

	var checkCache *cache.Store
	if mode == checker.ModeFirstCall || mode == checker.ModeEveryCall {
		checkCache, err = cache.Open("plcheck")
		if err != nil {
			return fmt.Errorf("open check cache: %w", err)
		}
	}

	jobs, _ := cmd.Flags().GetInt("jobs")
	runOpts := driver.Options{
		Check: opts,
		Mode:  mode,
		Jobs:  jobs,
		Cache: checkCache,
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	interactive := !quiet && !noProgress && format == report.FormatText &&
		isTerminal(os.Stdout) && len(routines) > 1

	var outcome *driver.Outcome
	if interactive {
		outcome, err = checkWithProgress(cat, routines, runOpts)
	} else {
		outcome, err = driver.CheckAll(cmd.Context(), cat, routines, runOpts)
	}
	if err != nil {
		return err
	}

	colorize := useColor(cmd)
	for _, res := range outcome.Results {
		if quiet && !res.HasErrors() {
			continue
		}
		if err := report.Write(cmd.OutOrStdout(), res, format, colorize); err != nil {
			return err
		}
	}

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		if err := store.Export(path, outcome.Results, nil); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	if outcome.HasErrors() {
		os.Exit(1)
	}
	return nil
}

// checkWithProgress runs the batch under the interactive progress view.
func checkWithProgress(host bridge.Host, routines []*ast.Routine, runOpts driver.Options) (*driver.Outcome, error) {
	signatures := make([]string, len(routines))
	for i, r := range routines {
		signatures[i] = r.Signature
	}
	events := make(chan ui.Event, len(routines)*2)
	runOpts.Notify = func(r *ast.Routine, res *checker.Result) {
		ev := ui.Event{Routine: r.Signature, Status: ui.StatusChecking}
		if res != nil {
			switch {
			case !res.IsChecked && !res.HasErrors():
				ev.Status = ui.StatusCached
			case res.HasErrors():
				ev.Status = ui.StatusIssues
			default:
				ev.Status = ui.StatusClean
			}
		}
		events <- ev
	}

	var outcome *driver.Outcome
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(events)
		defer close(done)
		outcome, runErr = driver.CheckAll(context.Background(), host, routines, runOpts)
	}()

	model := ui.NewProgressModel("checking routines", signatures, events)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		<-done
		if runErr != nil {
			return nil, runErr
		}
		return nil, err
	}
	<-done
	return outcome, runErr
}
