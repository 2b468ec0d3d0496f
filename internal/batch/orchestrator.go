package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/internal/comparator"
	"github.com/mxdataops/csv-reconciler/internal/report"
	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// BatchOrchestrator iterates file pairs across two directories, resolves the
// per-file configuration, invokes the engine once per pair and aggregates the
// per-file status into a master summary. One bad file never aborts the run.
type BatchOrchestrator struct {
	DirA       string
	DirB       string
	OutputDir  string
	Defaults   models.Config
	Rules      *RulesConfig
	Comparator *comparator.CSVComparator
	Logger     *logrus.Logger

	BatchDir   string
	DetailsDir string
	Results    []models.FileResult

	logFile string
}

// NewBatchOrchestrator creates a batch orchestrator and its timestamped
// output directory layout
func NewBatchOrchestrator(dirA, dirB, outputDir string, defaults models.Config, rules *RulesConfig, logger *logrus.Logger) (*BatchOrchestrator, error) {
	stamp := time.Now().Format("20060102_150405")
	batchDir := filepath.Join(outputDir, "batch_"+stamp)
	detailsDir := filepath.Join(batchDir, "details")
	if err := os.MkdirAll(detailsDir, 0o755); err != nil {
		return nil, err
	}

	bo := &BatchOrchestrator{
		DirA:       dirA,
		DirB:       dirB,
		OutputDir:  outputDir,
		Defaults:   defaults,
		Rules:      rules,
		Comparator: comparator.NewCSVComparator(logger),
		Logger:     logger,
		BatchDir:   batchDir,
		DetailsDir: detailsDir,
		logFile:    filepath.Join(batchDir, "execution.log"),
	}

	header := fmt.Sprintf("Batch Execution Started: %s\nSource A: %s\nSource B: %s\nDefault Keys: %v\nIgnore Cols: %v\n\n",
		stamp, dirA, dirB, defaults.KeyColumns, defaults.IgnoreColumns)
	if err := os.WriteFile(bo.logFile, []byte(header), 0o644); err != nil {
		return nil, err
	}
	return bo, nil
}

// log writes a message to the logger and the execution log file
func (bo *BatchOrchestrator) log(message string) {
	bo.Logger.Info(message)
	f, err := os.OpenFile(bo.logFile, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s - %s\n", time.Now().Format("15:04:05"), message)
}

// Run processes every CSV pair and writes the master summary report
func (bo *BatchOrchestrator) Run() error {
	bo.log("Scanning directory A...")
	filesA, err := listCSVFiles(bo.DirA)
	if err != nil {
		return err
	}
	bo.log(fmt.Sprintf("Found %d files in Source A.", len(filesA)))

	for idx, filename := range filesA {
		cfg := bo.Rules.Resolve(filename, bo.Defaults)
		bo.log(fmt.Sprintf("[%d/%d] Processing %s (Keys: %v, Ignore: %v)...",
			idx+1, len(filesA), filename, cfg.KeyColumns, cfg.IgnoreColumns))
		bo.Results = append(bo.Results, bo.processPair(filename, cfg))
	}

	bo.reportOrphans(filesA)

	summaryPath := filepath.Join(bo.BatchDir, "summary_report.xlsx")
	if err := report.GenerateBatchSummary(bo.Results, summaryPath, bo.Logger); err != nil {
		return err
	}
	bo.log("Batch Execution Completed.")
	bo.log(fmt.Sprintf("Master report saved to: %s", summaryPath))
	return nil
}

// processPair compares one file pair and classifies the outcome
func (bo *BatchOrchestrator) processPair(filename string, cfg models.Config) (entry models.FileResult) {
	entry = models.FileResult{
		FileName: filename,
		Status:   models.StatusError,
		KeysUsed: cfg.KeyColumns,
	}

	// a panic in one pair must not take down the batch
	defer func() {
		if rec := recover(); rec != nil {
			bo.log(fmt.Sprintf("  [EXCEPTION] Error processing file: %v", rec))
			entry.Status = models.StatusException
			entry.Notes = fmt.Sprintf("%v", rec)
		}
	}()

	if len(cfg.KeyColumns) == 0 {
		bo.log("  [ERROR] No keys defined for this file. Skipping.")
		entry.Status = models.StatusNoKeys
		return entry
	}

	pathB := filepath.Join(bo.DirB, filename)
	if _, err := os.Stat(pathB); os.IsNotExist(err) {
		bo.log(fmt.Sprintf("  [MISSING] Target file not found in B: %s", pathB))
		entry.Status = models.StatusMissingInB
		return entry
	}

	pathA := filepath.Join(bo.DirA, filename)
	result := bo.Comparator.Compare(pathA, pathB, cfg)

	entry.TotalRowsA = result.Summary.TotalRowsA
	entry.TotalRowsB = result.Summary.TotalRowsB
	entry.MissingRecords = result.Summary.MissingRecords
	entry.AdditionalRecords = result.Summary.AdditionalRecords
	entry.DiffCount = result.Summary.RowsWithDifferences

	switch {
	case result.HasFatalErrors():
		errMsg := strings.Join(result.Errors, "; ")
		entry.Notes = errMsg
		switch {
		case containsAll(result.Errors, "Key column", "not found"):
			entry.Status = models.StatusKeyNotFound
			bo.log(fmt.Sprintf("  [KEY ERROR] %s", errMsg))
		case containsAll(result.Errors, "Duplicate keys"):
			entry.Status = models.StatusDuplicateKeys
			bo.log(fmt.Sprintf("  [DUPLICATE ERROR] %s", errMsg))
			entry.DetailReport = bo.writeDetailReport(filename, result)
		default:
			entry.Status = models.StatusError
			bo.log(fmt.Sprintf("  [ERROR] Comparison failed: %s", errMsg))
		}
	case result.Success:
		entry.Status = models.StatusOK
		bo.log("  [OK] Files match perfectly.")
	default:
		entry.Status = models.StatusDiff
		bo.log(fmt.Sprintf("  [DIFF] Differences found (M:%d, A:%d, D:%d)",
			entry.MissingRecords, entry.AdditionalRecords, entry.DiffCount))
		entry.DetailReport = bo.writeDetailReport(filename, result)
	}
	return entry
}

// reportOrphans records files present in B with no counterpart in A
func (bo *BatchOrchestrator) reportOrphans(filesA []string) {
	filesB, err := listCSVFiles(bo.DirB)
	if err != nil {
		bo.log(fmt.Sprintf("  [WARNING] Could not scan directory B: %v", err))
		return
	}
	inA := make(map[string]bool, len(filesA))
	for _, f := range filesA {
		inA[f] = true
	}
	for _, f := range filesB {
		if inA[f] {
			continue
		}
		bo.log(fmt.Sprintf("  [MISSING] File present in B but not in A: %s", f))
		bo.Results = append(bo.Results, models.FileResult{
			FileName: f,
			Status:   models.StatusMissingInA,
		})
	}
}

// writeDetailReport saves the per-file spreadsheet and returns its file name
func (bo *BatchOrchestrator) writeDetailReport(filename string, result *models.Result) string {
	detailName := "report_" + strings.TrimSuffix(filename, filepath.Ext(filename)) + ".xlsx"
	detailPath := filepath.Join(bo.DetailsDir, detailName)
	if err := report.GenerateExcelReport(result, detailPath, bo.Logger); err != nil {
		bo.log(fmt.Sprintf("  [WARNING] Could not write detail report: %v", err))
		return ""
	}
	bo.log(fmt.Sprintf("  [INFO] Excel report generated: %s", detailName))
	return detailName
}

// listCSVFiles returns the sorted .csv file names of a directory
func listCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// containsAll reports whether any message contains every given substring
func containsAll(messages []string, substrings ...string) bool {
	for _, m := range messages {
		all := true
		for _, s := range substrings {
			if !strings.Contains(m, s) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
