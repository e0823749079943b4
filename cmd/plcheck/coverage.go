package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"plcheck/internal/bundle"
	"plcheck/internal/profiler"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage [flags] <bundle.json>",
	Short: "Compute statement and branch coverage from a profile",
	Long:  `Coverage relates recorded execution counters to the statement inventory of each routine and prints the covered ratios`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCoverage,
}

func init() {
	coverageCmd.Flags().String("profile", "", "profile file (JSON: signature -> statement id -> execution count)")
	_ = coverageCmd.MarkFlagRequired("profile")
}

// profileDocument is the on-disk profile: execution counts keyed by
// routine signature and statement id.
type profileDocument map[string]map[string]uint64

func loadProfile(path string) (profileDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var doc profileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return doc, nil
}

func countersFrom(doc map[string]uint64) (map[int]profiler.StmtCounter, error) {
	out := make(map[int]profiler.StmtCounter, len(doc))
	for idStr, count := range doc {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid statement id %q in profile", idStr)
		}
		out[id] = profiler.StmtCounter{ExecCount: count, TotalTime: time.Duration(0)}
	}
	return out, nil
}

func runCoverage(cmd *cobra.Command, args []string) error {
	_, routines, err := bundle.Load(args[0])
	if err != nil {
		return err
	}
	profilePath, _ := cmd.Flags().GetString("profile")
	doc, err := loadProfile(profilePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range routines {
		counters, err := countersFrom(doc[r.Signature])
		if err != nil {
			return err
		}
		cov := profiler.ComputeCoverage(r, counters)
		fmt.Fprintf(out, "%s\n", r.QualifiedName())
		fmt.Fprintf(out, "  statements: %d/%d (%.1f%%)\n",
			cov.ExecutedStatements, cov.Statements, cov.StatementRatio()*100)
		fmt.Fprintf(out, "  branches:   %d/%d (%.1f%%)\n",
			cov.ExecutedBranches, cov.Branches, cov.BranchRatio()*100)
	}
	return nil
}
