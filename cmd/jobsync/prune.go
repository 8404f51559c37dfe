package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply retention without fetching",
	Long:  "Deletes low-score rows older than retention.low_score_days and every row older than retention.absolute_days. Applied rows are never deleted.",
	RunE:  runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, logger := mustSetup()
	st := openStore(cfg, logger)
	defer st.Close()

	rep, err := st.Prune(context.Background(), cfg.Retention)
	if err != nil {
		logger.Error("prune failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pruned",
		"low_score_days", cfg.Retention.LowScoreDays,
		"absolute_days", cfg.Retention.AbsoluteDays,
		"score_threshold", cfg.Retention.ScoreThreshold,
		"removed", rep.Removed,
		"low_score", rep.RemovedLowScore,
		"stale", rep.RemovedStale,
		"remaining", rep.Remaining,
		"remaining_low_score", rep.RemainingLowScore,
		"remaining_stale", rep.RemainingStale,
	)
	return nil
}
