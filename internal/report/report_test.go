package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func sampleResult() *models.Result {
	return &models.Result{
		Success: false,
		Summary: models.Summary{
			TotalRowsA:          3,
			TotalRowsB:          3,
			RowsWithDifferences: 1,
			MatchingRowsPerfect: 2,
			MatchingPercentage:  66.67,
		},
		Errors:      []string{},
		Differences: []string{"   Key '1', Col 'val': '10' != '11'"},
		StructuredDifferences: []models.StructuredDifference{
			{
				Type:      models.ContentMismatch,
				Key:       "1",
				DiffCount: 1,
				CellDiffs: []models.CellDiff{{Col: "val", ValueA: "10", ValueB: "11"}},
				FullRowA:  models.Row{"id": "1", "val": "10"},
				FullRowB:  models.Row{"id": "1", "val": "11"},
				Columns:   []string{"id", "val"},
			},
			{
				Type:     models.MissingRecords,
				File:     "a.csv",
				Count:    1,
				IDs:      []string{"9"},
				FullRows: []models.Row{{"id": "9", "val": "90"}},
				Columns:  []string{"id", "val"},
			},
		},
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(&models.Result{Success: true}); got != ExitMatch {
		t.Errorf("Clean run: expected %d, got %d", ExitMatch, got)
	}
	if got := ExitCode(&models.Result{Success: false}); got != ExitDifferences {
		t.Errorf("Divergent run: expected %d, got %d", ExitDifferences, got)
	}
	fatal := &models.Result{Success: false, Errors: []string{"File not found: x.csv"}}
	if got := ExitCode(fatal); got != ExitFatal {
		t.Errorf("Fatal run: expected %d, got %d", ExitFatal, got)
	}
}

func TestSaveJSONReport(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveJSONReport(sampleResult(), "results.json", dir, testLogger())
	if err != nil {
		t.Fatalf("SaveJSONReport failed: %v", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "results_") || !strings.HasSuffix(base, ".json") {
		t.Errorf("Expected a time-suffixed name, got %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Report file unreadable: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}
	if decoded["success"] != false {
		t.Errorf("Unexpected success flag: %v", decoded["success"])
	}
	summary, ok := decoded["summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("Missing summary object: %v", decoded)
	}
	if summary["total_rows_file1"] != float64(3) {
		t.Errorf("Unexpected total_rows_file1: %v", summary["total_rows_file1"])
	}
	if summary["matching_percentage"] != 66.67 {
		t.Errorf("Unexpected matching_percentage: %v", summary["matching_percentage"])
	}
}

func TestJSONOmitsForeignVariantFields(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveJSONReport(sampleResult(), "out.json", dir, testLogger())
	if err != nil {
		t.Fatalf("SaveJSONReport failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Report file unreadable: %v", err)
	}

	// missing_records and content_mismatch entries must not carry shape or
	// positional fields
	for _, field := range []string{"file1_shape", "file2_shape", "details"} {
		if strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("Field %q leaked into non-shape difference entries", field)
		}
	}
}

func TestJSONKeepsRowZeroInPositionalDetails(t *testing.T) {
	dir := t.TempDir()

	result := &models.Result{
		Summary: models.Summary{TotalRowsA: 1, TotalRowsB: 1},
		StructuredDifferences: []models.StructuredDifference{
			{
				Type:      models.ContentMismatch,
				DiffCount: 1,
				Details:   []models.PositionalCellDiff{{Row: 0, Col: "b", ValueA: "2", ValueB: "9"}},
			},
			{
				Type:   models.ShapeMismatch,
				ShapeA: []int{2, 2},
				ShapeB: []int{1, 2},
			},
		},
	}

	path, err := SaveJSONReport(result, "positional.json", dir, testLogger())
	if err != nil {
		t.Fatalf("SaveJSONReport failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Report file unreadable: %v", err)
	}

	var decoded models.Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Report is not valid JSON: %v", err)
	}

	if !strings.Contains(string(data), `"row": 0`) {
		t.Error("Row index 0 missing from the serialized positional detail")
	}
	if decoded.StructuredDifferences[0].Details[0].Row != 0 ||
		decoded.StructuredDifferences[0].Details[0].Col != "b" {
		t.Errorf("Positional detail did not round-trip: %+v", decoded.StructuredDifferences[0].Details)
	}
	if len(decoded.StructuredDifferences[1].ShapeA) != 2 {
		t.Errorf("Shape lost in round-trip: %+v", decoded.StructuredDifferences[1])
	}
}

func TestSaveJSONReportCreatesResultsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")

	if _, err := SaveJSONReport(sampleResult(), "out", dir, testLogger()); err != nil {
		t.Fatalf("SaveJSONReport failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Errorf("Expected one report in the created directory, got %v (%v)", entries, err)
	}
	// default extension applied when the base name has none
	if !strings.HasSuffix(entries[0].Name(), ".json") {
		t.Errorf("Expected a .json file, got %q", entries[0].Name())
	}
}

func TestGenerateExcelReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")

	if err := GenerateExcelReport(sampleResult(), path, testLogger()); err != nil {
		t.Fatalf("GenerateExcelReport failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Generated file unreadable: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, want := range []string{"Summary", "Missing Records", "Content Differences"} {
		found := false
		for _, s := range sheets {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Sheet %q missing, got %v", want, sheets)
		}
	}

	// paired content rows: File 1 then File 2, key in column A
	if v, _ := f.GetCellValue("Content Differences", "A2"); v != "1" {
		t.Errorf("Expected key '1' in A2, got %q", v)
	}
	if v, _ := f.GetCellValue("Content Differences", "B2"); v != "File 1" {
		t.Errorf("Expected 'File 1' in B2, got %q", v)
	}
	if v, _ := f.GetCellValue("Content Differences", "B3"); v != "File 2" {
		t.Errorf("Expected 'File 2' in B3, got %q", v)
	}
	if v, _ := f.GetCellValue("Content Differences", "D2"); v != "10" {
		t.Errorf("Expected '10' in D2, got %q", v)
	}
	if v, _ := f.GetCellValue("Content Differences", "D3"); v != "11" {
		t.Errorf("Expected '11' in D3, got %q", v)
	}

	// missing records sheet renders the full row under its header
	if v, _ := f.GetCellValue("Missing Records", "A4"); v != "id" {
		t.Errorf("Expected header 'id' in A4, got %q", v)
	}
	if v, _ := f.GetCellValue("Missing Records", "A5"); v != "9" {
		t.Errorf("Expected id '9' in A5, got %q", v)
	}
}

func TestGenerateExcelReportPositional(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")

	result := &models.Result{
		Summary: models.Summary{TotalRowsA: 1, TotalRowsB: 1},
		StructuredDifferences: []models.StructuredDifference{
			{
				Type:      models.ContentMismatch,
				DiffCount: 1,
				Details:   []models.PositionalCellDiff{{Row: 0, Col: "b", ValueA: "2", ValueB: "9"}},
			},
		},
	}
	if err := GenerateExcelReport(result, path, testLogger()); err != nil {
		t.Fatalf("GenerateExcelReport failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Generated file unreadable: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("Content Differences", "A1"); v != "Row" {
		t.Errorf("Expected the flat positional table, got %q in A1", v)
	}
	if v, _ := f.GetCellValue("Content Differences", "B2"); v != "b" {
		t.Errorf("Expected column 'b' in B2, got %q", v)
	}
}

func TestGenerateValidationReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "validation.xlsx")

	results := []models.HeaderValidation{
		{FileName: "good.csv", Status: "OK", Reason: "All required keys present", Headers: []string{"id", "val"}},
		{FileName: "bad.csv", Status: "NOK", Reason: "Missing required keys: id"},
	}
	if err := GenerateValidationReport(results, path, testLogger()); err != nil {
		t.Fatalf("GenerateValidationReport failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Generated file unreadable: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("Header Validation", "B3"); v != "NOK" {
		t.Errorf("Expected NOK in B3, got %q", v)
	}
	if v, _ := f.GetCellValue("Header Validation", "D2"); v != "id, val" {
		t.Errorf("Expected joined headers in D2, got %q", v)
	}
}

func TestGenerateBatchSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.xlsx")

	results := []models.FileResult{
		{FileName: "match.csv", Status: models.StatusOK, KeysUsed: []string{"id"}, TotalRowsA: 5, TotalRowsB: 5},
		{FileName: "diff.csv", Status: models.StatusDiff, KeysUsed: []string{"id"}, DiffCount: 2, DetailReport: "report_diff.xlsx"},
	}
	if err := GenerateBatchSummary(results, path, testLogger()); err != nil {
		t.Fatalf("GenerateBatchSummary failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Generated file unreadable: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("Batch Summary", "A1"); v != "File Name" {
		t.Errorf("Expected header in A1, got %q", v)
	}
	if v, _ := f.GetCellValue("Batch Summary", "B3"); v != "DIFF" {
		t.Errorf("Expected status DIFF in B3, got %q", v)
	}
	if v, _ := f.GetCellValue("Batch Summary", "I3"); v != "report_diff.xlsx" {
		t.Errorf("Expected detail report name in I3, got %q", v)
	}
}
