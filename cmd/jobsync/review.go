package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/annotation"
	"github.com/amishk599/jobsync/internal/review"
	"github.com/amishk599/jobsync/internal/store"
)

var reviewMode string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse stored jobs and set flags in an interactive terminal UI",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewMode, "mode", "not_viewed", "starting mode: not_viewed, viewed, interested or applied")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, logger := mustSetup()

	q := store.DefaultQuery()
	mode, err := store.ParseMode(reviewMode)
	if err != nil {
		logger.Error("invalid mode", "error", err)
		os.Exit(1)
	}
	q.Mode = mode

	st := openStore(cfg, logger)
	defer st.Close()

	// Logging to stdout would corrupt the alternate screen.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := review.Run(st, annotation.NewService(st, nil, quiet), q); err != nil {
		logger.Error("review UI error", "error", err)
		os.Exit(1)
	}
	return nil
}
