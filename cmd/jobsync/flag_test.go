package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsync/internal/store"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"1", true, false},
		{"Yes", true, false},
		{"y", true, false},
		{"false", false, false},
		{" no ", false, false},
		{"0", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		got, err := parseBool(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseBool(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "flag"}
	for _, name := range []string{"viewed", "interested", "applied", "note"} {
		cmd.Flags().String(name, "", "")
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestFlagUpdate_OnlyPassedFlags(t *testing.T) {
	u, err := flagUpdate(newFlagCmd(t, "--applied", "yes", "--note", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Viewed != nil || u.Interested != nil {
		t.Errorf("unset flags should stay nil: %+v", u)
	}
	if u.Applied == nil || !*u.Applied {
		t.Errorf("applied = %v", u.Applied)
	}
	if u.Note == nil || *u.Note != "" {
		t.Errorf("an explicit empty note should clear it, got %v", u.Note)
	}
}

func TestFlagUpdate_InvalidBool(t *testing.T) {
	if _, err := flagUpdate(newFlagCmd(t, "--viewed", "sure")); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}

func TestListQuery(t *testing.T) {
	listOpts.page, listOpts.pageSize, listOpts.orderBy = 2, 10, "date_posted"
	listOpts.orderDir, listOpts.mode = "ASC", "applied"
	t.Cleanup(func() { listOpts.orderDir, listOpts.mode = "desc", "not_viewed" })

	q, err := listQuery()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := store.Query{Page: 2, PageSize: 10, OrderBy: "date_posted", OrderDir: store.Asc, Mode: store.ModeApplied}
	if q != want {
		t.Errorf("query = %+v, want %+v", q, want)
	}

	listOpts.mode = "archived"
	if _, err := listQuery(); err == nil {
		t.Error("expected error for unknown mode")
	}
}
