package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mxdataops/csv-reconciler/internal/batch"
	"github.com/mxdataops/csv-reconciler/internal/comparator"
	"github.com/mxdataops/csv-reconciler/internal/filemover"
	"github.com/mxdataops/csv-reconciler/internal/generator"
	"github.com/mxdataops/csv-reconciler/internal/inventory"
	"github.com/mxdataops/csv-reconciler/internal/loader"
	"github.com/mxdataops/csv-reconciler/internal/report"
	"github.com/mxdataops/csv-reconciler/internal/utils"
	"github.com/mxdataops/csv-reconciler/pkg/models"
)

func main() {
	var (
		envFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "csv-reconciler",
		Short: "A tool to reconcile tabular data extracts and explain their differences",
		Long: `CSV Reconciler

A Go tool that compares two independently produced extracts of the same
logical dataset, matching records by key or by position, and reports missing
records, additional records, duplicate keys and cell-level content
differences.`,
	}
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	setup := func() *logrus.Logger {
		logger := utils.SetupLogging(logLevel)
		utils.LoadEnvironmentVariables(envFile, logger)
		return logger
	}

	rootCmd.AddCommand(newCompareCmd(setup))
	rootCmd.AddCommand(newBatchCmd(setup))
	rootCmd.AddCommand(newValidateCmd(setup))
	rootCmd.AddCommand(newInventoryCmd(setup))
	rootCmd.AddCommand(newGendataCmd(setup))
	rootCmd.AddCommand(newCleanupCmd(setup))
	rootCmd.AddCommand(newMoveCmd(setup))

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}

// resolveConfig builds the comparison settings from flags, falling back to
// CSVRECON_* environment variables
func resolveConfig(keys, ignoreCols, delimiter, encoding string, logger *logrus.Logger) (models.Config, error) {
	if keys == "" {
		keys = utils.GetEnv("CSVRECON_KEY_COLUMNS", "")
	}
	if ignoreCols == "" {
		ignoreCols = utils.GetEnv("CSVRECON_IGNORE_COLUMNS", "")
	}
	if delimiter == "" {
		delimiter = utils.GetEnv("CSVRECON_DELIMITER", "")
	}
	if encoding == "" {
		encoding = utils.GetEnv("CSVRECON_ENCODING", "")
	}

	delim, err := utils.ParseDelimiter(delimiter)
	if err != nil {
		logger.Errorf("Invalid delimiter: %v", err)
		return models.Config{}, err
	}
	return models.Config{
		KeyColumns:    utils.SplitList(keys),
		IgnoreColumns: utils.SplitList(ignoreCols),
		Delimiter:     delim,
		Encoding:      encoding,
	}, nil
}

func newCompareCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		keys       string
		ignoreCols string
		delimiter  string
		encoding   string
		jsonOutput string
		excelOut   string
		resultsDir string
	)

	cmd := &cobra.Command{
		Use:   "compare <file1> <file2>",
		Short: "Compare two CSV files and report their differences",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			cfg, err := resolveConfig(keys, ignoreCols, delimiter, encoding, logger)
			if err != nil {
				os.Exit(2)
			}
			if resultsDir == "" {
				resultsDir = utils.GetEnv("CSVRECON_RESULTS_DIR", "results")
			}

			logger.Infof("Comparing '%s' and '%s'...", args[0], args[1])
			comp := comparator.NewCSVComparator(logger)
			result := comp.Compare(args[0], args[1], cfg)

			if jsonOutput != "" {
				if _, err := report.SaveJSONReport(result, jsonOutput, resultsDir, logger); err != nil {
					os.Exit(2)
				}
			}
			if excelOut != "" {
				if _, err := report.SaveExcelReport(result, excelOut, resultsDir, logger); err != nil {
					os.Exit(2)
				}
			}

			os.Exit(report.PrintComparisonResults(result))
		},
	}

	cmd.Flags().StringVarP(&keys, "key", "k", "", "Key column name(s) for record matching (comma separated; empty means positional)")
	cmd.Flags().StringVarP(&ignoreCols, "ignore-columns", "i", "", "Column name(s) to ignore during comparison (comma separated)")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "Field delimiter (single character, \\t for tab; default autodetect)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Source encoding (utf-8, utf-8-sig, windows-1252, iso-8859-1; default autodetect)")
	cmd.Flags().StringVarP(&jsonOutput, "output", "o", "", "Base name of the JSON results file (saved in the results directory)")
	cmd.Flags().StringVarP(&excelOut, "excel", "x", "", "Base name of the Excel results file (saved in the results directory)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "Directory for report files (default: results)")
	return cmd
}

func newBatchCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		dirA       string
		dirB       string
		outputDir  string
		keys       string
		ignoreCols string
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compare every CSV pair across two directories",
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			cfg, err := resolveConfig(keys, ignoreCols, "", "", logger)
			if err != nil {
				os.Exit(2)
			}

			var rules *batch.RulesConfig
			if configFile != "" {
				rules, err = batch.LoadRulesConfig(configFile, logger)
				if err != nil {
					os.Exit(2)
				}
			}

			bo, err := batch.NewBatchOrchestrator(dirA, dirB, outputDir, cfg, rules, logger)
			if err != nil {
				logger.Errorf("Failed to initialize batch run: %v", err)
				os.Exit(2)
			}
			if err := bo.Run(); err != nil {
				logger.Errorf("Batch run failed: %v", err)
				os.Exit(2)
			}

			for _, res := range bo.Results {
				if res.Status != models.StatusOK {
					os.Exit(1)
				}
			}
		},
	}

	cmd.Flags().StringVar(&dirA, "dir-a", "", "Directory containing Source A CSV files")
	cmd.Flags().StringVar(&dirB, "dir-b", "", "Directory containing Source B CSV files")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "results", "Base output directory")
	cmd.Flags().StringVarP(&keys, "key", "k", "", "Default key column(s) when no rule matches (comma separated)")
	cmd.Flags().StringVarP(&ignoreCols, "ignore-columns", "i", "", "Default column(s) to ignore (comma separated)")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to JSON configuration file with per-file rules")
	cobra.CheckErr(cmd.MarkFlagRequired("dir-a"))
	cobra.CheckErr(cmd.MarkFlagRequired("dir-b"))
	return cmd
}

func newValidateCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		dir        string
		keys       string
		configFile string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every CSV header in a directory carries its required key columns",
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			cfg, err := resolveConfig(keys, "", "", "", logger)
			if err != nil {
				os.Exit(2)
			}

			var rules *batch.RulesConfig
			if configFile != "" {
				rules, err = batch.LoadRulesConfig(configFile, logger)
				if err != nil {
					os.Exit(2)
				}
			}

			results, err := batch.ValidateDirectory(dir, cfg, rules, loader.NewTableLoader(logger), logger)
			if err != nil {
				logger.Errorf("Validation failed: %v", err)
				os.Exit(2)
			}

			failed := 0
			for _, v := range results {
				fmt.Printf("%-10s %-40s %s\n", v.Status, v.FileName, v.Reason)
				if v.Status != "OK" {
					failed++
				}
			}
			fmt.Printf("\n%d file(s) checked, %d with problems\n", len(results), failed)

			if output != "" {
				if err := report.GenerateValidationReport(results, output, logger); err != nil {
					os.Exit(2)
				}
			}
			if failed > 0 {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory containing the CSV files to validate")
	cmd.Flags().StringVarP(&keys, "key", "k", "", "Default key column(s) when no rule matches (comma separated)")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to JSON configuration file with per-file rules")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Optional path of an Excel validation report")
	cobra.CheckErr(cmd.MarkFlagRequired("dir"))
	return cmd
}

func newInventoryCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		output      string
		jsonOutput  string
		matchMode   string
		noRecursive bool
		encoding    string
	)

	cmd := &cobra.Command{
		Use:   "inventory <directory>",
		Short: "Inventory the CSV-like files of a directory and export their headers",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()

			sc := inventory.NewScanner(logger, inventory.MatchMode(matchMode), !noRecursive)
			entries, err := sc.Scan(args[0], models.Config{Encoding: encoding})
			if err != nil {
				logger.Errorf("Inventory failed: %v", err)
				os.Exit(2)
			}

			ok, warn, fail := 0, 0, 0
			for _, e := range entries {
				fmt.Printf("%-8s %-40s %d column(s)\n", e.Status, e.FileName, e.Columns)
				switch e.Status {
				case "OK":
					ok++
				case "WARNING":
					warn++
				default:
					fail++
				}
			}
			fmt.Printf("\n%d file(s): %d ok, %d warnings, %d errors\n", len(entries), ok, warn, fail)

			if err := report.GenerateInventoryReport(entries, output, logger); err != nil {
				os.Exit(2)
			}
			if err := inventory.WritePatternsJSON(inventory.PatternKeys(entries), jsonOutput, logger); err != nil {
				os.Exit(2)
			}
			if fail > 0 {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "inventory.xlsx", "Path of the Excel inventory report")
	cmd.Flags().StringVar(&jsonOutput, "json-output", "patterns_keys.json", "Path of the pattern/keys JSON export")
	cmd.Flags().StringVar(&matchMode, "match", "smart", "CSV name matching: strict (.csv only), smart (.csv or .csv_*), contains")
	cmd.Flags().BoolVar(&noRecursive, "no-recursive", false, "Do not descend into subdirectories")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Source encoding (default autodetect)")
	return cmd
}

func newGendataCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		rows       int
		modified   int
		missing    int
		additional int
		duplicates int
		delimiter  string
	)

	cmd := &cobra.Command{
		Use:   "gendata <file-a> <file-b>",
		Short: "Generate a pair of CSV fixtures with a controlled amount of divergence",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			delim, err := utils.ParseDelimiter(delimiter)
			if err != nil {
				logger.Errorf("Invalid delimiter: %v", err)
				os.Exit(2)
			}
			if !cmd.Flags().Changed("rows") {
				rows = utils.GetEnvInt("CSVRECON_GENDATA_ROWS", rows)
			}

			fg := generator.NewFixtureGenerator(logger)
			spec := generator.FixtureSpec{
				Rows:           rows,
				ModifiedRows:   modified,
				MissingRows:    missing,
				AdditionalRows: additional,
				DuplicateKeys:  duplicates,
				Delimiter:      delim,
			}
			if err := fg.GeneratePair(args[0], args[1], spec); err != nil {
				logger.Errorf("Fixture generation failed: %v", err)
				os.Exit(2)
			}
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "r", 100, "Number of base records shared by both files")
	cmd.Flags().IntVarP(&modified, "modified", "m", 0, "Number of rows with modified content in file B")
	cmd.Flags().IntVar(&missing, "missing", 0, "Number of rows missing from file B")
	cmd.Flags().IntVar(&additional, "additional", 0, "Number of rows present only in file B")
	cmd.Flags().IntVar(&duplicates, "duplicates", 0, "Number of duplicated keys injected into file B")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", ";", "Field delimiter of the generated files")
	return cmd
}

func newCleanupCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		recursive bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup <directory>",
		Short: "Rename files to strip trailing junk after the .csv extension",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()
			sc := filemover.NewSuffixCleaner(logger, recursive, dryRun)
			renamed, skipped, err := sc.CleanDirectory(args[0])
			if err != nil {
				logger.Errorf("Cleanup failed: %v", err)
				os.Exit(2)
			}
			logger.Infof("Cleanup finished: %d renamed, %d unchanged", renamed, skipped)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Process subdirectories too")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be renamed without touching anything")
	return cmd
}

func newMoveCmd(setup func() *logrus.Logger) *cobra.Command {
	var (
		mode         string
		dryRun       bool
		keepDirs     bool
		overwrite    bool
		skipExisting bool
		extensions   string
		excludeDirs  string
		retries      int
		reportCSV    string
	)

	cmd := &cobra.Command{
		Use:   "move <source-dir> <dest-dir>",
		Short: "Move or copy extract files between directories with a CSV operation report",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			logger := setup()

			if !cmd.Flags().Changed("retries") {
				retries = utils.GetEnvInt("CSVRECON_MOVE_RETRIES", retries)
			}

			fm := filemover.NewFileMover(logger, filemover.MoveMode(mode))
			fm.DryRun = dryRun
			fm.KeepStructure = keepDirs
			fm.Overwrite = overwrite
			fm.SkipExisting = skipExisting
			fm.Extensions = utils.SplitList(extensions)
			fm.ExcludeDirs = utils.SplitList(excludeDirs)
			fm.Retries = retries

			stats, err := fm.Run(args[0], args[1], reportCSV)
			if err != nil {
				logger.Errorf("Move failed: %v", err)
				os.Exit(2)
			}
			if stats.Errors > 0 {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "move", "Transfer mode: move, copy or copy-verify (copy, verify, then delete the source)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be transferred without touching anything")
	cmd.Flags().BoolVar(&keepDirs, "keep-structure", false, "Recreate the source directory structure under the destination")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing destination files instead of renaming")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip files whose destination already exists (with --overwrite)")
	cmd.Flags().StringVar(&extensions, "extensions", "", "Extension filter, comma separated (csv,txt); also matches junk-suffixed names")
	cmd.Flags().StringVar(&excludeDirs, "exclude-dirs", "", "Directory names to skip, comma separated")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries per file on transient errors")
	cmd.Flags().StringVar(&reportCSV, "report-csv", "", "Optional path of the CSV operation report")
	return cmd
}
