package core

// RecordFilter narrows a record fetch. The zero value selects every record,
// oldest first.
type RecordFilter struct {
	// Day selects a single calendar day; takes precedence over From/To.
	Day  Date
	From Date
	To   Date
	// Employee matches employee_name exactly.
	Employee string
	// NewestFirst orders by date descending, as the bulk editor lists rows.
	NewestFirst bool
}

// ReplaceResult reports what a bulk replace changed.
type ReplaceResult struct {
	Inserted int
	Updated  int
	Deleted  int
}

// Changed reports whether the replace touched any row.
func (r ReplaceResult) Changed() bool {
	return r.Inserted+r.Updated+r.Deleted > 0
}
