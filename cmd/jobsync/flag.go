package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/annotation"
)

var flagCmd = &cobra.Command{
	Use:   "flag <id>",
	Short: "Set review flags or a note on one job",
	Example: `  jobsync flag hc-123 --viewed true --note "worth a call"
  jobsync flag hc-123 --applied yes`,
	Args: cobra.ExactArgs(1),
	RunE: runFlag,
}

func init() {
	flagCmd.Flags().String("viewed", "", "true or false")
	flagCmd.Flags().String("interested", "", "true or false")
	flagCmd.Flags().String("applied", "", "true or false")
	flagCmd.Flags().String("note", "", "free text note; an empty value clears it")
	rootCmd.AddCommand(flagCmd)
}

func runFlag(cmd *cobra.Command, args []string) error {
	cfg, logger := mustSetup()

	u, err := flagUpdate(cmd)
	if err != nil {
		logger.Error("invalid flag value", "error", err)
		os.Exit(1)
	}
	if u.Empty() {
		logger.Error("nothing to update: pass --viewed, --interested, --applied or --note")
		os.Exit(1)
	}

	st := openStore(cfg, logger)
	defer st.Close()

	svc := annotation.NewService(st, nil, logger)
	if err := svc.SetFlags(context.Background(), args[0], u); err != nil {
		logger.Error("update failed", "id", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Println("OK")
	return nil
}

// flagUpdate builds an update from the flags the user actually passed.
func flagUpdate(cmd *cobra.Command) (annotation.Update, error) {
	var u annotation.Update
	for name, dst := range map[string]**bool{
		"viewed":     &u.Viewed,
		"interested": &u.Interested,
		"applied":    &u.Applied,
	} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, _ := cmd.Flags().GetString(name)
		b, err := parseBool(v)
		if err != nil {
			return u, fmt.Errorf("--%s: %w", name, err)
		}
		*dst = &b
	}
	if cmd.Flags().Changed("note") {
		note, _ := cmd.Flags().GetString("note")
		u.Note = &note
	}
	return u, nil
}

// parseBool accepts strconv.ParseBool values plus yes/no and y/n.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}
