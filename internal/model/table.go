package model

// Row is one record flowing through the ingestion pipeline, with its
// enrichment attached once scored.
type Row struct {
	Record     JobRecord
	Enrichment *EnrichmentResult
}

// Value projects the row onto col. Annotation columns and unknown columns
// always project to nil.
func (r Row) Value(col string) any {
	if IsAnnotationColumn(col) {
		return nil
	}
	j := StoredJob{JobRecord: r.Record, Enrichment: r.Enrichment}
	return j.Value(col)
}

// Assignment sets one column of a stored row.
type Assignment struct {
	Column string
	Value  any
}

// Table is an ordered set of rows projected onto Columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// IDs returns the non-empty ids in row order.
func (t Table) IDs() []string {
	ids := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Record.ID != "" {
			ids = append(ids, r.Record.ID)
		}
	}
	return ids
}

