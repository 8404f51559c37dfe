package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/store"
)

var listOpts struct {
	page     int
	pageSize int
	orderBy  string
	orderDir string
	mode     string
	json     bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of stored jobs",
	RunE:  runList,
}

func init() {
	def := store.DefaultQuery()
	listCmd.Flags().IntVar(&listOpts.page, "page", def.Page, "page number, from 1")
	listCmd.Flags().IntVar(&listOpts.pageSize, "page-size", def.PageSize, "rows per page")
	listCmd.Flags().StringVar(&listOpts.orderBy, "order-by", def.OrderBy, "column to sort by")
	listCmd.Flags().StringVar(&listOpts.orderDir, "order-dir", "desc", "asc or desc")
	listCmd.Flags().StringVar(&listOpts.mode, "mode", def.Mode.String(), "not_viewed, viewed, interested or applied")
	listCmd.Flags().BoolVar(&listOpts.json, "json", false, "print the page as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, logger := mustSetup()

	q, err := listQuery()
	if err != nil {
		logger.Error("invalid list options", "error", err)
		os.Exit(1)
	}

	st := openStore(cfg, logger)
	defer st.Close()

	page, err := st.Query(context.Background(), q)
	if err != nil {
		logger.Error("query failed", "error", err)
		os.Exit(1)
	}

	if listOpts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		return enc.Encode(page)
	}

	fmt.Printf("Total: %d | Pages: %d | Page: %d | Mode: %s\n", page.TotalRows, page.TotalPages, page.Page, q.Mode)
	fmt.Println(strings.Repeat("─", 72))
	for _, j := range page.Rows {
		score := "--"
		if j.Enrichment != nil {
			score = fmt.Sprintf("%2d", j.Enrichment.Score)
		}
		fmt.Printf("[%s] %s @ %s | %s | id=%s%s\n",
			score, orUnknown(j.Title), orUnknown(j.Company), orUnknown(j.DatePosted), j.ID, flagSuffix(j.Annotation))
	}
	return nil
}

func listQuery() (store.Query, error) {
	q := store.Query{Page: listOpts.page, PageSize: listOpts.pageSize, OrderBy: listOpts.orderBy}
	var err error
	if q.OrderDir, err = store.ParseOrderDir(listOpts.orderDir); err != nil {
		return q, err
	}
	if q.Mode, err = store.ParseMode(listOpts.mode); err != nil {
		return q, err
	}
	return q, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func flagSuffix(a model.UserAnnotation) string {
	var out []string
	if model.Flag(a.Viewed) {
		out = append(out, "viewed")
	}
	if model.Flag(a.Interested) {
		out = append(out, "interested")
	}
	if model.Flag(a.Applied) {
		out = append(out, "applied")
	}
	if len(out) == 0 {
		return ""
	}
	return " | " + strings.Join(out, ",")
}
