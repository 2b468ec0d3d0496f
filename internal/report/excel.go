package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// fill and font colors for the paired content-difference rows: source A in
// green, source B in red, differing cells bold in the darker shade
const (
	fillColorA = "E2EFDA"
	fillColorB = "FCE4D6"
	fontColorA = "006100"
	fontColorB = "9C0006"
)

// GenerateExcelReport writes the spreadsheet projection of a Result to path:
// a summary sheet plus one sheet each for missing records, additional
// records, duplicate keys and content differences, using full-row data when
// the structured differences carry it.
func GenerateExcelReport(result *models.Result, path string, logger *logrus.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	if err := writeSummarySheet(f, result); err != nil {
		return err
	}

	if err := writeExclusiveSheet(f, "Missing Records",
		result.DifferencesOfType(models.MissingRecords),
		"Records present in this file but MISSING from the comparison target"); err != nil {
		return err
	}
	if err := writeExclusiveSheet(f, "Additional Records",
		result.DifferencesOfType(models.AdditionalRecords),
		"Records present in this file but ABSENT from the comparison base"); err != nil {
		return err
	}
	if err := writeDuplicatesSheet(f, result.DifferencesOfType(models.DuplicateKeys)); err != nil {
		return err
	}
	if err := writeContentSheet(f, result.DifferencesOfType(models.ContentMismatch)); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		logger.Errorf("Failed to generate Excel report: %v", err)
		return err
	}
	logger.Infof("Excel report saved to: %s", path)
	return nil
}

// SaveExcelReport writes the spreadsheet report into resultsDir with a
// time-based suffix on the base filename, like the JSON renderer. It returns
// the path written.
func SaveExcelReport(result *models.Result, outputArg, resultsDir string, logger *logrus.Logger) (string, error) {
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		logger.Errorf("Failed to create results directory: %v", err)
		return "", err
	}
	outputPath := filepath.Join(resultsDir, timestampedName(outputArg, ".xlsx"))
	if err := GenerateExcelReport(result, outputPath, logger); err != nil {
		return "", err
	}
	return outputPath, nil
}

// GenerateBatchSummary writes the master summary of a batch run to path
func GenerateBatchSummary(results []models.FileResult, path string, logger *logrus.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Batch Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headers := []interface{}{"File Name", "Status", "Keys Used", "Total Rows A", "Total Rows B",
		"Diff Count", "Missing Records", "Additional Records", "Detail Report", "Notes"}
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h.(string))
	}

	for i, res := range results {
		values := []interface{}{
			res.FileName,
			string(res.Status),
			strings.Join(res.KeysUsed, ", "),
			res.TotalRowsA,
			res.TotalRowsB,
			res.DiffCount,
			res.MissingRecords,
			res.AdditionalRecords,
			res.DetailReport,
			res.Notes,
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return err
		}
		for col, v := range values {
			if n := len(fmt.Sprintf("%v", v)); n > widths[col] {
				widths[col] = n
			}
		}
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(w+2)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		logger.Errorf("Failed to write batch summary: %v", err)
		return err
	}
	logger.Infof("Batch summary saved to: %s", path)
	return nil
}

// GenerateInventoryReport writes the inventory sweep to path: one sheet with
// the per-file facts, one with a header name per row for filtering
func GenerateInventoryReport(entries []models.InventoryEntry, path string, logger *logrus.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Inventory"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := []interface{}{"File Name", "Path", "Pattern", "Headers", "Columns",
		"Size (bytes)", "Modified", "Status", "Error"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, e := range entries {
		row := []interface{}{e.FileName, e.Path, e.Pattern, strings.Join(e.Headers, " | "),
			e.Columns, e.SizeBytes, e.Modified, e.Status, e.Error}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	const detail = "Header Detail"
	if _, err := f.NewSheet(detail); err != nil {
		return err
	}
	if err := setRow(f, detail, 1, []interface{}{"File Name", "Pattern", "Header"}); err != nil {
		return err
	}
	row := 2
	for _, e := range entries {
		if e.Status != "OK" {
			continue
		}
		for _, h := range e.Headers {
			if err := setRow(f, detail, row, []interface{}{e.FileName, e.Pattern, h}); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SaveAs(path); err != nil {
		logger.Errorf("Failed to write inventory report: %v", err)
		return err
	}
	logger.Infof("Inventory report saved to: %s", path)
	return nil
}

// GenerateValidationReport writes the header pre-validation sweep to path:
// one row per file with its status, reason and the headers actually found
func GenerateValidationReport(results []models.HeaderValidation, path string, logger *logrus.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Header Validation"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, []interface{}{"File Name", "Status", "Reason", "Headers"}); err != nil {
		return err
	}
	for i, v := range results {
		row := []interface{}{v.FileName, v.Status, v.Reason, strings.Join(v.Headers, ", ")}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		logger.Errorf("Failed to write validation report: %v", err)
		return err
	}
	logger.Infof("Validation report saved to: %s", path)
	return nil
}

func writeSummarySheet(f *excelize.File, result *models.Result) error {
	const sheet = "Summary"
	s := result.Summary

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"total_rows_file1", s.TotalRowsA},
		{"total_rows_file2", s.TotalRowsB},
		{"missing_records", s.MissingRecords},
		{"additional_records", s.AdditionalRecords},
		{"rows_with_differences", s.RowsWithDifferences},
		{"matching_rows_perfect", s.MatchingRowsPerfect},
		{"matching_percentage", s.MatchingPercentage},
	}
	if len(result.Errors) > 0 {
		rows = append(rows, []interface{}{"Errors", strings.Join(result.Errors, "; ")})
	}
	headerIssues := len(result.DifferencesOfType(models.HeaderCountMismatch)) > 0 ||
		len(result.DifferencesOfType(models.HeaderNameMismatch)) > 0
	if headerIssues {
		rows = append(rows, []interface{}{"Header Issues", "Yes (see differences)"})
	}

	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

// writeExclusiveSheet renders missing or additional records: full rows when
// available, counts and IDs otherwise
func writeExclusiveSheet(f *excelize.File, sheet string, diffs []models.StructuredDifference, status string) error {
	if len(diffs) == 0 {
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if err := setRow(f, sheet, 1, []interface{}{"Source File:", diffs[0].File}); err != nil {
		return err
	}
	if err := setRow(f, sheet, 2, []interface{}{"Status:", status}); err != nil {
		return err
	}

	row := 4
	hasFullRows := false
	for _, d := range diffs {
		if len(d.FullRows) > 0 {
			hasFullRows = true
			break
		}
	}

	if !hasFullRows {
		if err := setRow(f, sheet, row, []interface{}{"File", "Count", "IDs"}); err != nil {
			return err
		}
		row++
		for _, d := range diffs {
			ids := d.IDs
			suffix := ""
			if len(ids) > 100 {
				ids = ids[:100]
				suffix = "..."
			}
			err := setRow(f, sheet, row, []interface{}{d.File, d.Count, strings.Join(ids, ", ") + suffix})
			if err != nil {
				return err
			}
			row++
		}
		return nil
	}

	headerSet := false
	var columns []string
	for _, d := range diffs {
		if len(d.FullRows) == 0 {
			continue
		}
		if !headerSet {
			columns = d.Columns
			if err := setRow(f, sheet, row, toCells(columns)); err != nil {
				return err
			}
			row++
			headerSet = true
		}
		for _, r := range d.FullRows {
			if err := setRow(f, sheet, row, rowCells(r, columns)); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

// writeDuplicatesSheet renders the offending rows of a duplicate-keys run
func writeDuplicatesSheet(f *excelize.File, diffs []models.StructuredDifference) error {
	if len(diffs) == 0 {
		return nil
	}
	const sheet = "Duplicate Keys"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	row := 1
	for _, d := range diffs {
		if err := setRow(f, sheet, row, []interface{}{"Source File:", d.File, "Duplicate rows:", d.Count}); err != nil {
			return err
		}
		row++
		if err := setRow(f, sheet, row, toCells(d.Columns)); err != nil {
			return err
		}
		row++
		for _, r := range d.FullRows {
			if err := setRow(f, sheet, row, rowCells(r, d.Columns)); err != nil {
				return err
			}
			row++
		}
		row++
	}
	return nil
}

// writeContentSheet renders content mismatches. Key-based entries become
// paired adjacent rows (source A, then source B) with the differing columns
// marked; positional entries become a flat cell-difference table.
func writeContentSheet(f *excelize.File, diffs []models.StructuredDifference) error {
	if len(diffs) == 0 {
		return nil
	}
	const sheet = "Content Differences"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if diffs[0].FullRowA == nil {
		// positional mode
		if err := setRow(f, sheet, 1, []interface{}{"Row", "Column", "File 1 Value", "File 2 Value"}); err != nil {
			return err
		}
		row := 2
		for _, d := range diffs {
			for _, cd := range d.Details {
				if err := setRow(f, sheet, row, []interface{}{cd.Row, cd.Col, cd.ValueA, cd.ValueB}); err != nil {
					return err
				}
				row++
			}
		}
		return nil
	}

	styleA, styleB, diffStyleA, diffStyleB, err := contentStyles(f)
	if err != nil {
		return err
	}

	columns := diffs[0].Columns
	if err := setRow(f, sheet, 1, append([]interface{}{"KEY", "SOURCE"}, toCells(columns)...)); err != nil {
		return err
	}

	row := 2
	for _, d := range diffs {
		diffCols := make(map[string]bool, len(d.CellDiffs))
		for _, cd := range d.CellDiffs {
			diffCols[cd.Col] = true
		}

		if err := writePairedRow(f, sheet, row, d.Key, "File 1", d.FullRowA, columns, diffCols, styleA, diffStyleA); err != nil {
			return err
		}
		row++
		if err := writePairedRow(f, sheet, row, d.Key, "File 2", d.FullRowB, columns, diffCols, styleB, diffStyleB); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writePairedRow(f *excelize.File, sheet string, rowNum int, key, source string, data models.Row, columns []string, diffCols map[string]bool, base, diff int) error {
	values := append([]interface{}{key, source}, rowCells(data, columns)...)
	if err := setRow(f, sheet, rowNum, values); err != nil {
		return err
	}

	for i := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		style := base
		if i >= 2 && diffCols[columns[i-2]] {
			style = diff
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func contentStyles(f *excelize.File) (styleA, styleB, diffStyleA, diffStyleB int, err error) {
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	borders := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}

	if styleA, err = f.NewStyle(&excelize.Style{Fill: fill(fillColorA)}); err != nil {
		return
	}
	if styleB, err = f.NewStyle(&excelize.Style{Fill: fill(fillColorB)}); err != nil {
		return
	}
	if diffStyleA, err = f.NewStyle(&excelize.Style{
		Fill:   fill(fillColorA),
		Font:   &excelize.Font{Bold: true, Color: fontColorA},
		Border: borders,
	}); err != nil {
		return
	}
	diffStyleB, err = f.NewStyle(&excelize.Style{
		Fill:   fill(fillColorB),
		Font:   &excelize.Font{Bold: true, Color: fontColorB},
		Border: borders,
	})
	return
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func rowCells(r models.Row, columns []string) []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		out[i] = r[c]
	}
	return out
}
