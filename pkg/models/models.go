package models

// DiffType identifies the category of a structured difference
type DiffType string

const (
	HeaderCountMismatch    DiffType = "header_count_mismatch"
	HeaderNameMismatch     DiffType = "header_name_mismatch"
	DuplicateKeys          DiffType = "duplicate_keys"
	MissingRecords         DiffType = "missing_records"
	AdditionalRecords      DiffType = "additional_records"
	ContentMismatch        DiffType = "content_mismatch"
	ShapeMismatch          DiffType = "shape_mismatch"
	ReplacementCharWarning DiffType = "replacement_character_warning"
)

// Row is one record of a table, mapping column name to its raw string value.
// Cell values are never parsed into numbers, dates or booleans; "80" and
// "80.0" must stay distinguishable all the way to the report.
type Row map[string]string

// Table holds one parsed source: the ordered header plus its rows.
// A Table is built once per comparison run and not mutated afterwards.
type Table struct {
	Source  string   `json:"source"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// RowCount returns the number of data rows in the table
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the header contains the given column name
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Config carries the per-comparison settings resolved by the caller
type Config struct {
	// KeyColumns selects key-based matching; empty means positional mode.
	KeyColumns []string `json:"key_columns,omitempty"`
	// IgnoreColumns are removed from both tables before any comparison.
	IgnoreColumns []string `json:"ignore_columns,omitempty"`
	// Delimiter is the explicit field separator; 0 means autodetect.
	Delimiter rune `json:"delimiter,omitempty"`
	// Encoding is the explicit source encoding; empty means the loader
	// tries its candidate list.
	Encoding string `json:"encoding,omitempty"`
}

// CellDiff describes one differing cell between key-matched records
type CellDiff struct {
	Col    string `json:"col"`
	ValueA string `json:"file1_value"`
	ValueB string `json:"file2_value"`
}

// PositionalCellDiff locates one differing cell by row index in positional
// mode. Row is always serialized: index 0 is a real location, not an absent
// value.
type PositionalCellDiff struct {
	Row    int    `json:"row"`
	Col    string `json:"col"`
	ValueA string `json:"file1_value"`
	ValueB string `json:"file2_value"`
}

// StructuredDifference is one typed divergence record, carrying everything a
// renderer needs without re-reading the source files
type StructuredDifference struct {
	Type DiffType `json:"type"`

	// header mismatches
	CountA   int      `json:"file1_count,omitempty"`
	CountB   int      `json:"file2_count,omitempty"`
	HeadersA []string `json:"file1_headers,omitempty"`
	HeadersB []string `json:"file2_headers,omitempty"`

	// duplicate_keys, missing_records, additional_records,
	// replacement_character_warning
	File     string   `json:"file,omitempty"`
	Count    int      `json:"count,omitempty"`
	IDs      []string `json:"ids,omitempty"`
	FullRows []Row    `json:"full_rows,omitempty"`
	// Columns preserves the header order of the rows above so renderers can
	// lay them out without re-reading the source
	Columns []string `json:"columns,omitempty"`

	// content_mismatch (key-based)
	Key       string     `json:"key,omitempty"`
	DiffCount int        `json:"diff_count,omitempty"`
	CellDiffs []CellDiff `json:"cell_diffs,omitempty"`
	FullRowA  Row        `json:"full_row_file1,omitempty"`
	FullRowB  Row        `json:"full_row_file2,omitempty"`

	// content_mismatch (positional): capped preview of differing cells,
	// DiffCount above still holds the exact total
	Details []PositionalCellDiff `json:"details,omitempty"`

	// shape_mismatch: {rows, columns} per side; slices so omitempty drops
	// them from every other variant
	ShapeA []int `json:"file1_shape,omitempty"`
	ShapeB []int `json:"file2_shape,omitempty"`
}

// Summary holds the aggregate counters of one comparison run
type Summary struct {
	TotalRowsA          int     `json:"total_rows_file1"`
	TotalRowsB          int     `json:"total_rows_file2"`
	MissingRecords      int     `json:"missing_records"`
	AdditionalRecords   int     `json:"additional_records"`
	RowsWithDifferences int     `json:"rows_with_differences"`
	MatchingRowsPerfect int     `json:"matching_rows_perfect"`
	MatchingPercentage  float64 `json:"matching_percentage"`
}

// Result is the complete, immutable outcome of one comparison invocation.
// Fatal conditions never escape as Go errors; they are accumulated here so a
// batch caller can keep going after one bad file pair.
type Result struct {
	Success               bool                   `json:"success"`
	Summary               Summary                `json:"summary"`
	Errors                []string               `json:"errors"`
	Differences           []string               `json:"differences"`
	StructuredDifferences []StructuredDifference `json:"structured_differences"`
}

// HasFatalErrors reports whether any fatal condition was recorded
func (r *Result) HasFatalErrors() bool {
	return len(r.Errors) > 0
}

// HasDifferences reports whether any non-fatal divergence was recorded
func (r *Result) HasDifferences() bool {
	return len(r.Differences) > 0
}

// DifferencesOfType returns the structured differences of one kind, in order
func (r *Result) DifferencesOfType(t DiffType) []StructuredDifference {
	var out []StructuredDifference
	for _, d := range r.StructuredDifferences {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out
}

// FileStatus is the per-pair outcome aggregated by the batch orchestrator
type FileStatus string

const (
	StatusOK            FileStatus = "OK"
	StatusDiff          FileStatus = "DIFF"
	StatusMissingInB    FileStatus = "MISSING_IN_B"
	StatusMissingInA    FileStatus = "MISSING_IN_A"
	StatusNoKeys        FileStatus = "NO_KEYS"
	StatusKeyNotFound   FileStatus = "KEY_NOT_FOUND"
	StatusDuplicateKeys FileStatus = "DUPLICATE_KEYS"
	StatusError         FileStatus = "ERROR"
	StatusException     FileStatus = "EXCEPTION"
)

// HeaderValidation is the outcome of checking one file's header against its
// rule-resolved key columns
type HeaderValidation struct {
	FileName string
	Status   string // OK, NOK or ERROR
	Reason   string
	Headers  []string
}

// InventoryEntry describes one CSV-like file found by the inventory sweep
type InventoryEntry struct {
	FileName  string   `json:"file_name"`
	Path      string   `json:"path"`
	Pattern   string   `json:"pattern"`
	Headers   []string `json:"headers,omitempty"`
	Columns   int      `json:"columns"`
	SizeBytes int64    `json:"size_bytes"`
	Modified  string   `json:"modified"`
	Status    string   `json:"status"` // OK, WARNING or ERROR
	Error     string   `json:"error,omitempty"`
}

// PatternKeys is one entry of the pattern/keys export: a filename pattern and
// the union of the headers seen under it, in first-seen order. The export
// seeds the per-file rules of a batch configuration.
type PatternKeys struct {
	Pattern string   `json:"pattern"`
	Keys    []string `json:"keys"`
}

// FileResult is one line of the batch master summary
type FileResult struct {
	FileName          string
	Status            FileStatus
	KeysUsed          []string
	TotalRowsA        int
	TotalRowsB        int
	DiffCount         int
	MissingRecords    int
	AdditionalRecords int
	DetailReport      string
	Notes             string
}
