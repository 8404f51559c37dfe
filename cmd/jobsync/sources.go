package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of every source and whether it runs.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func status(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, _ := mustSetup()

	delay := cfg.RateLimit.MinDelayFor

	fmt.Printf("%-25s %-12s %-9s %-7s %s\n", "Source", "Kind", "Status", "Delay", "Target")
	fmt.Println(strings.Repeat("─", 80))

	js := cfg.Sources.JobSpy
	fmt.Printf("%-25s %-12s %-9s %-7s %s (%d locations)\n", "jobspy", "search", status(js.Enabled), delay("jobspy"), js.BaseURL, len(cfg.Search.Locations))
	hc := cfg.Sources.HiringCafe
	fmt.Printf("%-25s %-12s %-9s %-7s %q\n", "hiring_cafe", "search", status(hc.Enabled), delay("hiring_cafe"), hc.Query)

	enabled, disabled := 0, 0
	for _, b := range cfg.Sources.Boards {
		if b.Enabled {
			enabled++
		} else {
			disabled++
		}
		fmt.Printf("%-25s %-12s %-9s %-7s %s\n", b.Name, b.ATS, status(b.Enabled), delay(b.ATS), b.Token)
	}

	fmt.Printf("\nBoards: %d (%d enabled, %d disabled)\n", len(cfg.Sources.Boards), enabled, disabled)
	return nil
}
