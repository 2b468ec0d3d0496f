package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mxdataops/csv-reconciler/internal/loader"
	"github.com/mxdataops/csv-reconciler/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func findResult(t *testing.T, results []models.FileResult, name string) models.FileResult {
	t.Helper()
	for _, r := range results {
		if r.FileName == name {
			return r
		}
	}
	t.Fatalf("No result entry for %s in %v", name, results)
	return models.FileResult{}
}

func TestBatchRunStatuses(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	outDir := t.TempDir()

	writeFile(t, dirA, "match.csv", "id;val\n1;10\n2;20\n")
	writeFile(t, dirB, "match.csv", "id;val\n1;10\n2;20\n")

	writeFile(t, dirA, "diff.csv", "id;val\n1;10\n2;20\n")
	writeFile(t, dirB, "diff.csv", "id;val\n1;11\n3;30\n")

	writeFile(t, dirA, "only_in_a.csv", "id;val\n1;10\n")

	writeFile(t, dirB, "orphan.csv", "id;val\n1;10\n")

	writeFile(t, dirA, "dupkeys.csv", "id;val\n1;10\n1;11\n")
	writeFile(t, dirB, "dupkeys.csv", "id;val\n1;10\n")

	writeFile(t, dirA, "badkeys.csv", "code;val\n1;10\n")
	writeFile(t, dirB, "badkeys.csv", "code;val\n1;10\n")

	writeFile(t, dirA, "nokeys.csv", "id;val\n1;10\n")
	writeFile(t, dirB, "nokeys.csv", "id;val\n1;10\n")

	writeFile(t, dirA, "notes.txt", "not a csv\n")

	rules := &RulesConfig{Rules: []Rule{{Pattern: "nokeys", Keys: []string{}}}}
	defaults := models.Config{KeyColumns: []string{"id"}}

	bo, err := NewBatchOrchestrator(dirA, dirB, outDir, defaults, rules, testLogger())
	if err != nil {
		t.Fatalf("NewBatchOrchestrator failed: %v", err)
	}
	if err := bo.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 6 CSV files in A plus the orphan from B; the .txt file is skipped
	if len(bo.Results) != 7 {
		t.Fatalf("Expected 7 result entries, got %d: %v", len(bo.Results), bo.Results)
	}

	if got := findResult(t, bo.Results, "match.csv").Status; got != models.StatusOK {
		t.Errorf("match.csv: expected OK, got %s", got)
	}

	diffEntry := findResult(t, bo.Results, "diff.csv")
	if diffEntry.Status != models.StatusDiff {
		t.Errorf("diff.csv: expected DIFF, got %s", diffEntry.Status)
	}
	if diffEntry.MissingRecords != 1 || diffEntry.AdditionalRecords != 1 || diffEntry.DiffCount != 1 {
		t.Errorf("diff.csv: unexpected counters: %+v", diffEntry)
	}
	if diffEntry.DetailReport == "" {
		t.Error("diff.csv: expected a detail report to be written")
	} else if _, err := os.Stat(filepath.Join(bo.DetailsDir, diffEntry.DetailReport)); err != nil {
		t.Errorf("diff.csv: detail report missing on disk: %v", err)
	}

	if got := findResult(t, bo.Results, "only_in_a.csv").Status; got != models.StatusMissingInB {
		t.Errorf("only_in_a.csv: expected MISSING_IN_B, got %s", got)
	}
	if got := findResult(t, bo.Results, "orphan.csv").Status; got != models.StatusMissingInA {
		t.Errorf("orphan.csv: expected MISSING_IN_A, got %s", got)
	}
	if got := findResult(t, bo.Results, "dupkeys.csv").Status; got != models.StatusDuplicateKeys {
		t.Errorf("dupkeys.csv: expected DUPLICATE_KEYS, got %s", got)
	}
	if got := findResult(t, bo.Results, "badkeys.csv").Status; got != models.StatusKeyNotFound {
		t.Errorf("badkeys.csv: expected KEY_NOT_FOUND, got %s", got)
	}
	if got := findResult(t, bo.Results, "nokeys.csv").Status; got != models.StatusNoKeys {
		t.Errorf("nokeys.csv: expected NO_KEYS, got %s", got)
	}

	if _, err := os.Stat(filepath.Join(bo.BatchDir, "summary_report.xlsx")); err != nil {
		t.Errorf("Master summary missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bo.BatchDir, "execution.log")); err != nil {
		t.Errorf("Execution log missing: %v", err)
	}
}

func TestBatchRunMissingDirectory(t *testing.T) {
	outDir := t.TempDir()
	bo, err := NewBatchOrchestrator("/nonexistent/a", "/nonexistent/b", outDir,
		models.Config{KeyColumns: []string{"id"}}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBatchOrchestrator failed: %v", err)
	}
	if err := bo.Run(); err == nil {
		t.Error("Expected an error for a missing source directory")
	}
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.csv", "id;val\n1;10\n")
	writeFile(t, dir, "missing_key.csv", "code;val\n1;10\n")
	writeFile(t, dir, "unconfigured.csv", "id;val\n1;10\n")

	rules := &RulesConfig{Rules: []Rule{{Pattern: "unconfigured", Keys: []string{}}}}
	defaults := models.Config{KeyColumns: []string{"id"}}

	results, err := ValidateDirectory(dir, defaults, rules, loader.NewTableLoader(testLogger()), testLogger())
	if err != nil {
		t.Fatalf("ValidateDirectory failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 validations, got %d", len(results))
	}

	byName := make(map[string]models.HeaderValidation, len(results))
	for _, v := range results {
		byName[v.FileName] = v
	}

	if v := byName["good.csv"]; v.Status != "OK" {
		t.Errorf("good.csv: expected OK, got %s (%s)", v.Status, v.Reason)
	}
	if v := byName["missing_key.csv"]; v.Status != "NOK" || v.Reason != "Missing required keys: id" {
		t.Errorf("missing_key.csv: expected NOK with reason, got %s (%s)", v.Status, v.Reason)
	}
	if v := byName["unconfigured.csv"]; v.Status != "NOK" || v.Reason != "No key columns configured for this file" {
		t.Errorf("unconfigured.csv: expected NOK for missing rule keys, got %s (%s)", v.Status, v.Reason)
	}
}
