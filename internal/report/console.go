package report

import (
	"fmt"
	"strings"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// Exit codes distinguish "ran but the sources differ" from "could not
// compare at all". The legacy behavior of exiting 0 on differences conflated
// the two, so batch scripts could not tell a clean run from a divergent one.
const (
	ExitMatch       = 0
	ExitDifferences = 1
	ExitFatal       = 2
)

// ExitCode maps a Result to the process exit code
func ExitCode(result *models.Result) int {
	switch {
	case result.HasFatalErrors():
		return ExitFatal
	case !result.Success:
		return ExitDifferences
	default:
		return ExitMatch
	}
}

// PrintComparisonResults prints errors if any, else differences if any, else
// a success message, followed by the summary block. It returns the exit code
// for the caller to apply.
func PrintComparisonResults(result *models.Result) int {
	if result.HasFatalErrors() {
		fmt.Println("\n[ERROR] Comparison could not be completed:")
		for _, err := range result.Errors {
			fmt.Printf("  - %s\n", err)
		}
		return ExitFatal
	}

	if result.HasDifferences() {
		fmt.Println("\n[FAIL] Differences found:")
		for _, diff := range result.Differences {
			fmt.Printf("  - %s\n", diff)
		}
		PrintSummary(result)
		return ExitDifferences
	}

	fmt.Println("\n[SUCCESS] Files are identical.")
	PrintSummary(result)
	return ExitMatch
}

// PrintSummary prints the aggregate counters of one comparison run
func PrintSummary(result *models.Result) {
	s := result.Summary

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("COMPARISON SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total rows in File 1: %d\n", s.TotalRowsA)
	fmt.Printf("Total rows in File 2: %d\n", s.TotalRowsB)
	fmt.Printf("Missing records: %d\n", s.MissingRecords)
	fmt.Printf("Additional records: %d\n", s.AdditionalRecords)
	fmt.Printf("Rows with differences: %d\n", s.RowsWithDifferences)
	fmt.Printf("Perfectly matching rows: %d\n", s.MatchingRowsPerfect)
	fmt.Printf("Matching percentage: %.2f%%\n", s.MatchingPercentage)
	fmt.Println(strings.Repeat("=", 50))
}
