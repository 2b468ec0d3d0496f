package comparator

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/internal/loader"
	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// positionalPreviewCap bounds the per-cell detail kept for positional
// comparisons; the exact total is still reported
const positionalPreviewCap = 50

// duplicateIDPreview bounds how many duplicate key IDs go into the error text
const duplicateIDPreview = 5

// missingIDPreview bounds how many IDs go into missing/additional messages
const missingIDPreview = 10

// CSVComparator reconciles two tabular extracts of the same logical dataset
// and explains exactly where they disagree. It holds no mutable state across
// invocations: every Compare call threads its own working tables and result
// accumulator, so one instance can serve concurrent callers, one file pair
// each.
type CSVComparator struct {
	Loader *loader.TableLoader
	Logger *logrus.Logger
}

// NewCSVComparator creates a new comparator engine
func NewCSVComparator(logger *logrus.Logger) *CSVComparator {
	return &CSVComparator{
		Loader: loader.NewTableLoader(logger),
		Logger: logger,
	}
}

// run is the state of a single comparison invocation
type run struct {
	cfg        models.Config
	tableA     *models.Table
	tableB     *models.Table
	res        *models.Result
	keyMissing bool
	headersOK  bool
	recordsOK  bool
}

func (r *run) errorf(format string, args ...interface{}) {
	r.res.Errors = append(r.res.Errors, fmt.Sprintf(format, args...))
}

func (r *run) differencef(format string, args ...interface{}) {
	r.res.Differences = append(r.res.Differences, fmt.Sprintf(format, args...))
}

func (r *run) record(d models.StructuredDifference) {
	r.res.StructuredDifferences = append(r.res.StructuredDifferences, d)
}

// Compare runs the full pipeline for one file pair and returns the Result.
// Fatal conditions stop the downstream phases they block but never propagate
// as Go errors; the caller always receives a complete Result.
func (c *CSVComparator) Compare(pathA, pathB string, cfg models.Config) *models.Result {
	r := &run{
		cfg: cfg,
		res: &models.Result{
			Errors:                []string{},
			Differences:           []string{},
			StructuredDifferences: []models.StructuredDifference{},
		},
	}

	if !c.loadTables(r, pathA, pathB) {
		return r.res
	}

	c.validateHeaders(r)

	fatal := false
	if len(cfg.KeyColumns) > 0 {
		fatal = r.keyMissing
		if !fatal && !c.checkKeyUniqueness(r) {
			fatal = true
		}
	}

	if !fatal {
		c.compareRecords(r)
	}

	c.aggregate(r)
	return r.res
}

// loadTables loads both sources, applying column exclusion and recording
// replacement-character diagnostics
func (c *CSVComparator) loadTables(r *run, pathA, pathB string) bool {
	for _, p := range []string{pathA, pathB} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			r.errorf("File not found: %s", p)
			return false
		}
	}

	tableA, replA, err := c.Loader.Load(pathA, r.cfg)
	if err != nil {
		r.errorf("Error loading files: %v", err)
		return false
	}
	tableB, replB, err := c.Loader.Load(pathB, r.cfg)
	if err != nil {
		r.errorf("Error loading files: %v", err)
		return false
	}
	r.tableA, r.tableB = tableA, tableB

	for i, repl := range []int{replA, replB} {
		if repl == 0 {
			continue
		}
		label := fmt.Sprintf("File %d", i+1)
		path := []string{pathA, pathB}[i]
		r.differencef("Warning: found replacement characters '�' in %s in %d cells.", label, repl)
		r.record(models.StructuredDifference{
			Type:  models.ReplacementCharWarning,
			File:  path,
			Count: repl,
		})
	}
	return true
}

// validateHeaders checks key column presence (fatal when absent) and compares
// header shape and names (non-fatal)
func (c *CSVComparator) validateHeaders(r *run) {
	h1, h2 := r.tableA.Columns, r.tableB.Columns

	for _, k := range r.cfg.KeyColumns {
		if !r.tableA.HasColumn(k) {
			r.errorf("Key column '%s' not found in File 1 headers.", k)
			r.keyMissing = true
		}
		if !r.tableB.HasColumn(k) {
			r.errorf("Key column '%s' not found in File 2 headers.", k)
			r.keyMissing = true
		}
	}

	r.headersOK = true

	if len(h1) != len(h2) {
		r.differencef("Header count mismatch: File 1 has %d, File 2 has %d", len(h1), len(h2))
		r.record(models.StructuredDifference{
			Type:   models.HeaderCountMismatch,
			CountA: len(h1),
			CountB: len(h2),
		})
		r.headersOK = false
	}

	if !equalStrings(h1, h2) {
		r.differencef("Header name mismatch:\nFile 1: %v\nFile 2: %v", h1, h2)
		r.record(models.StructuredDifference{
			Type:     models.HeaderNameMismatch,
			HeadersA: h1,
			HeadersB: h2,
		})
		r.headersOK = false
	}
}

// checkKeyUniqueness validates that key tuples are unique within each source.
// Duplicates make key-based matching meaningless, so any hit suppresses the
// matching phase entirely; the duplicate rows are still reported in full.
func (c *CSVComparator) checkKeyUniqueness(r *run) bool {
	uniqueA := c.reportDuplicates(r, r.tableA, "File 1")
	uniqueB := c.reportDuplicates(r, r.tableB, "File 2")
	return uniqueA && uniqueB
}

func (c *CSVComparator) reportDuplicates(r *run, t *models.Table, label string) bool {
	groups := make(map[string][]models.Row, t.RowCount())
	keyByMap := make(map[string]Key)
	var order []string
	for _, row := range t.Rows {
		k := keyOf(row, r.cfg.KeyColumns)
		mk := k.mapKey()
		if _, seen := groups[mk]; !seen {
			order = append(order, mk)
			keyByMap[mk] = k
		}
		groups[mk] = append(groups[mk], row)
	}

	var dupKeys []Key
	var dupRows []models.Row
	for _, mk := range order {
		if len(groups[mk]) >= 2 {
			dupKeys = append(dupKeys, keyByMap[mk])
			dupRows = append(dupRows, groups[mk]...)
		}
	}
	if len(dupKeys) == 0 {
		return true
	}

	sortKeys(dupKeys)
	ids := keyStrings(dupKeys)

	preview := fmt.Sprintf("%v", ids)
	if len(ids) > duplicateIDPreview {
		preview = fmt.Sprintf("%v...", ids[:duplicateIDPreview])
	}
	r.errorf("Duplicate keys found in %s. Count: %d. IDs: %s", label, len(dupRows), preview)
	r.record(models.StructuredDifference{
		Type:     models.DuplicateKeys,
		File:     t.Source,
		Count:    len(dupRows),
		IDs:      ids,
		FullRows: dupRows,
		Columns:  t.Columns,
	})
	return false
}

// compareRecords dispatches on the configured mode
func (c *CSVComparator) compareRecords(r *run) {
	if len(r.cfg.KeyColumns) > 0 {
		c.compareWithKey(r)
		return
	}
	c.comparePositional(r)
}

// compareWithKey classifies rows by key into missing/additional/common and
// compares the content of the common set
func (c *CSVComparator) compareWithKey(r *run) {
	idxA, orderA := indexByKey(r.tableA, r.cfg.KeyColumns)
	idxB, orderB := indexByKey(r.tableB, r.cfg.KeyColumns)

	var missing, common []Key
	for _, k := range orderA {
		if _, ok := idxB[k.mapKey()]; ok {
			common = append(common, k)
		} else {
			missing = append(missing, k)
		}
	}
	var additional []Key
	for _, k := range orderB {
		if _, ok := idxA[k.mapKey()]; !ok {
			additional = append(additional, k)
		}
	}

	if len(missing) > 0 {
		c.reportExclusive(r, missing, idxA, r.tableA, models.MissingRecords,
			"Missing records (in File 1 but not File 2)")
	}
	if len(additional) > 0 {
		c.reportExclusive(r, additional, idxB, r.tableB, models.AdditionalRecords,
			"Additional records (in File 2 but not File 1)")
	}

	contentDiffs := c.compareContent(r, common, idxA, idxB)

	r.recordsOK = len(missing) == 0 && len(additional) == 0 && contentDiffs == 0
}

// reportExclusive records one-sided keys with their full original rows for
// audit purposes
func (c *CSVComparator) reportExclusive(r *run, keys []Key, idx map[string]models.Row, t *models.Table, kind models.DiffType, label string) {
	sortKeys(keys)
	ids := keyStrings(keys)

	rows := make([]models.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, idx[k.mapKey()])
	}

	preview := ids
	suffix := ""
	if len(ids) > missingIDPreview {
		preview = ids[:missingIDPreview]
		suffix = "..."
	}
	r.differencef("%s: %d records. IDs: %v%s", label, len(ids), preview, suffix)
	r.record(models.StructuredDifference{
		Type:     kind,
		File:     t.Source,
		Count:    len(ids),
		IDs:      ids,
		FullRows: rows,
		Columns:  t.Columns,
	})
}

// compareContent compares matched rows cell by cell over the columns present
// in both headers, key columns excluded. It returns the number of rows with
// at least one differing column.
func (c *CSVComparator) compareContent(r *run, common []Key, idxA, idxB map[string]models.Row) int {
	inB := make(map[string]bool, len(r.tableB.Columns))
	for _, col := range r.tableB.Columns {
		inB[col] = true
	}
	isKey := make(map[string]bool, len(r.cfg.KeyColumns))
	for _, k := range r.cfg.KeyColumns {
		isKey[k] = true
	}

	var columnsToCheck []string
	inCommon := make(map[string]bool)
	for _, col := range r.tableA.Columns {
		if inB[col] {
			inCommon[col] = true
			if !isKey[col] {
				columnsToCheck = append(columnsToCheck, col)
			}
		}
	}

	var skipped []string
	for _, col := range r.tableA.Columns {
		if !inCommon[col] {
			skipped = append(skipped, col)
		}
	}
	for _, col := range r.tableB.Columns {
		if !inCommon[col] {
			skipped = append(skipped, col)
		}
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		r.differencef("Skipping comparison for mismatched columns: %v", skipped)
	}

	diffRows := 0
	for _, k := range common {
		rowA := idxA[k.mapKey()]
		rowB := idxB[k.mapKey()]

		var cellDiffs []models.CellDiff
		for _, col := range columnsToCheck {
			na := Normalize(rowA[col])
			nb := Normalize(rowB[col])
			if na != nb {
				r.differencef("   Key '%s', Col '%s': '%s' != '%s'", k, col, na, nb)
				cellDiffs = append(cellDiffs, models.CellDiff{
					Col:    col,
					ValueA: na,
					ValueB: nb,
				})
			}
		}
		if len(cellDiffs) == 0 {
			continue
		}
		diffRows++
		r.record(models.StructuredDifference{
			Type:      models.ContentMismatch,
			Key:       k.String(),
			DiffCount: len(cellDiffs),
			CellDiffs: cellDiffs,
			FullRowA:  rowA,
			FullRowB:  rowB,
			Columns:   r.tableA.Columns,
		})
	}
	return diffRows
}

// comparePositional compares the two tables index by index when no key is
// configured. A shape mismatch is recorded but comparison still proceeds on
// the overlap.
func (c *CSVComparator) comparePositional(r *run) {
	rowsA, rowsB := r.tableA.RowCount(), r.tableB.RowCount()
	colsA, colsB := len(r.tableA.Columns), len(r.tableB.Columns)

	shapeOK := rowsA == rowsB && colsA == colsB
	if !shapeOK {
		r.differencef("Shape mismatch: File 1 (%d, %d), File 2 (%d, %d)", rowsA, colsA, rowsB, colsB)
		r.record(models.StructuredDifference{
			Type:   models.ShapeMismatch,
			ShapeA: []int{rowsA, colsA},
			ShapeB: []int{rowsB, colsB},
		})
	}

	inB := make(map[string]bool, colsB)
	for _, col := range r.tableB.Columns {
		inB[col] = true
	}
	var commonCols []string
	for _, col := range r.tableA.Columns {
		if inB[col] {
			commonCols = append(commonCols, col)
		}
	}

	n := rowsA
	if rowsB < n {
		n = rowsB
	}

	total := 0
	var preview []models.PositionalCellDiff
	for i := 0; i < n; i++ {
		for _, col := range commonCols {
			va := r.tableA.Rows[i][col]
			vb := r.tableB.Rows[i][col]
			if va == vb {
				continue
			}
			total++
			if len(preview) < positionalPreviewCap {
				preview = append(preview, models.PositionalCellDiff{
					Row:    i,
					Col:    col,
					ValueA: va,
					ValueB: vb,
				})
			}
		}
	}

	if total > 0 {
		r.differencef("Content mismatch found in records.")
		r.differencef("Found %d specific cell differences.", total)
		for _, cd := range preview {
			r.differencef("   Row %d, Col '%s': '%s' != '%s'", cd.Row, cd.Col, cd.ValueA, cd.ValueB)
		}
		r.record(models.StructuredDifference{
			Type:      models.ContentMismatch,
			DiffCount: total,
			Details:   preview,
		})
	}

	r.recordsOK = shapeOK && total == 0
}

// aggregate computes the summary counters and the overall success flag
func (c *CSVComparator) aggregate(r *run) {
	totalA := r.tableA.RowCount()
	totalB := r.tableB.RowCount()

	missing, additional, contentRows := 0, 0, 0
	for _, d := range r.res.StructuredDifferences {
		switch d.Type {
		case models.MissingRecords:
			missing = d.Count
		case models.AdditionalRecords:
			additional = d.Count
		case models.ContentMismatch:
			contentRows++
		}
	}

	perfect := totalA - missing - contentRows

	pct := 0.0
	if universe := totalA + additional; universe > 0 {
		pct = round2(float64(perfect) / float64(universe) * 100)
	}

	r.res.Summary = models.Summary{
		TotalRowsA:          totalA,
		TotalRowsB:          totalB,
		MissingRecords:      missing,
		AdditionalRecords:   additional,
		RowsWithDifferences: contentRows,
		MatchingRowsPerfect: perfect,
		MatchingPercentage:  pct,
	}

	r.res.Success = r.headersOK && r.recordsOK &&
		!r.res.HasFatalErrors() && !r.res.HasDifferences()
}

// indexByKey builds the key index of a table plus the keys in row order
func indexByKey(t *models.Table, keyColumns []string) (map[string]models.Row, []Key) {
	idx := make(map[string]models.Row, t.RowCount())
	order := make([]Key, 0, t.RowCount())
	for _, row := range t.Rows {
		k := keyOf(row, keyColumns)
		idx[k.mapKey()] = row
		order = append(order, k)
	}
	return idx, order
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
