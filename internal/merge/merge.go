// Package merge aligns per-source records onto one column list and combines
// them into a single deduplicated table.
package merge

import "github.com/amishk599/jobsync/internal/model"

// Align projects records onto columns. Columns a record has no value for read
// as NULL; fields outside columns are not carried. Row order is preserved.
func Align(records []model.JobRecord, columns []string) model.Table {
	t := model.Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([]model.Row, len(records)),
	}
	for i, rec := range records {
		t.Rows[i] = model.Row{Record: rec}
	}
	return t
}

// Combine concatenates tables in argument order and keeps the first row for
// each id, so earlier tables win. Rows without an id are all kept.
func Combine(tables ...model.Table) model.Table {
	var out model.Table
	seenCol := make(map[string]bool)
	seenID := make(map[string]bool)

	for _, t := range tables {
		for _, c := range t.Columns {
			if !seenCol[c] {
				seenCol[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		for _, r := range t.Rows {
			id := r.Record.ID
			if id != "" {
				if seenID[id] {
					continue
				}
				seenID[id] = true
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// StampScrapingDate sets scraping_date on every row.
func StampScrapingDate(t model.Table, date string) {
	for i := range t.Rows {
		t.Rows[i].Record.ScrapingDate = date
	}
}

// Split partitions rows into those whose id is not in existing (including rows
// without an id) and those already stored.
func Split(t model.Table, existing map[string]bool) (fresh, seen model.Table) {
	fresh.Columns, seen.Columns = t.Columns, t.Columns
	for _, r := range t.Rows {
		if r.Record.ID != "" && existing[r.Record.ID] {
			seen.Rows = append(seen.Rows, r)
			continue
		}
		fresh.Rows = append(fresh.Rows, r)
	}
	return fresh, seen
}
