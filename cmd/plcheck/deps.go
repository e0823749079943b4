package main

import (
	"github.com/spf13/cobra"

	"plcheck/internal/bundle"
	"plcheck/internal/checker"
	"plcheck/internal/driver"
	"plcheck/internal/report"
)

var depsCmd = &cobra.Command{
	Use:   "deps [flags] <bundle.json> [signature...]",
	Short: "List objects the routines depend on",
	Long:  `Deps runs the analysis with dependency collection and prints the relations, functions and operators each routine references`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeps,
}

func init() {
	depsCmd.Flags().Int("jobs", 0, "max parallel routine checks (0=auto)")
}

func runDeps(cmd *cobra.Command, args []string) error {
	cat, all, err := bundle.Load(args[0])
	if err != nil {
		return err
	}
	routines, err := selectRoutines(all, args[1:])
	if err != nil {
		return err
	}

	jobs, _ := cmd.Flags().GetInt("jobs")
	opts := driver.Options{
		Check: checker.Options{CollectDeps: true},
		Mode:  checker.ModeOnDemand,
		Jobs:  jobs,
	}
	outcome, err := driver.CheckAll(cmd.Context(), cat, routines, opts)
	if err != nil {
		return err
	}
	for _, res := range outcome.Results {
		if err := report.WriteDependencies(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}
	return nil
}
