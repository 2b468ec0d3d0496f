package inventory

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/internal/loader"
	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// MatchMode selects how file names are recognized as CSV-like
type MatchMode string

const (
	// MatchStrict accepts only names ending in .csv.
	MatchStrict MatchMode = "strict"
	// MatchSmart also accepts junk-suffixed names like data.csv_PRO_2026.
	MatchSmart MatchMode = "smart"
	// MatchContains accepts any name containing .csv.
	MatchContains MatchMode = "contains"
)

// dateRE finds an embedded YYYYMMDD stamp in a file name
var dateRE = regexp.MustCompile(`\d{8}`)

// Scanner inventories the CSV-like files of a directory: per file it records
// size, modification time, the name pattern and the header actually found,
// reading only the header row of each file
type Scanner struct {
	Loader    *loader.TableLoader
	Logger    *logrus.Logger
	Mode      MatchMode
	Recursive bool
}

// NewScanner creates an inventory scanner
func NewScanner(logger *logrus.Logger, mode MatchMode, recursive bool) *Scanner {
	return &Scanner{
		Loader:    loader.NewTableLoader(logger),
		Logger:    logger,
		Mode:      mode,
		Recursive: recursive,
	}
}

// Scan sweeps root and returns one entry per CSV-like file, sorted by status
// then name
func (s *Scanner) Scan(root string, cfg models.Config) ([]models.InventoryEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: root, Err: fs.ErrInvalid}
	}

	var entries []models.InventoryEntry
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !s.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsCSVLike(d.Name(), s.Mode) {
			return nil
		}
		entries = append(entries, s.inspect(path, d.Name(), cfg))
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Status != entries[j].Status {
			return entries[i].Status < entries[j].Status
		}
		return entries[i].FileName < entries[j].FileName
	})
	return entries, nil
}

// inspect builds the inventory entry of one file
func (s *Scanner) inspect(path, name string, cfg models.Config) models.InventoryEntry {
	entry := models.InventoryEntry{
		FileName: name,
		Path:     path,
		Pattern:  ExtractPattern(name),
		Status:   "OK",
	}

	info, err := os.Stat(path)
	if err != nil {
		entry.Status = "ERROR"
		entry.Error = err.Error()
		return entry
	}
	entry.SizeBytes = info.Size()
	entry.Modified = info.ModTime().Format(time.RFC3339)

	headers, err := s.Loader.LoadHeader(path, cfg)
	if err != nil {
		s.Logger.Warningf("Could not read header of %s: %v", name, err)
		entry.Status = "ERROR"
		entry.Error = err.Error()
		return entry
	}
	entry.Headers = headers
	entry.Columns = len(headers)

	if len(headers) == 0 {
		entry.Status = "WARNING"
		entry.Error = "no header detected"
	}
	return entry
}

// IsCSVLike reports whether a file name counts as a CSV under the given mode
func IsCSVLike(name string, mode MatchMode) bool {
	lower := strings.ToLower(name)
	switch mode {
	case MatchStrict:
		return strings.HasSuffix(lower, ".csv")
	case MatchContains:
		return strings.Contains(lower, ".csv")
	default:
		return strings.HasSuffix(lower, ".csv") || strings.Contains(lower, ".csv_")
	}
}

// ExtractPattern derives the rule pattern of a file name: the prefix before
// an embedded YYYYMMDD stamp when one exists, else the prefix before .csv,
// else the whole name
func ExtractPattern(name string) string {
	if loc := dateRE.FindStringIndex(name); loc != nil {
		return name[:loc[0]]
	}
	if idx := strings.Index(strings.ToLower(name), ".csv"); idx != -1 {
		return name[:idx]
	}
	return name
}

// PatternKeys groups the inventoried headers by pattern: per pattern the
// union of every header seen, keeping first-seen order; patterns sorted.
// Files that failed to read contribute nothing.
func PatternKeys(entries []models.InventoryEntry) []models.PatternKeys {
	type group struct {
		keys []string
		seen map[string]bool
	}
	groups := make(map[string]*group)

	for _, e := range entries {
		if e.Status != "OK" || e.Pattern == "" {
			continue
		}
		g, ok := groups[e.Pattern]
		if !ok {
			g = &group{seen: make(map[string]bool)}
			groups[e.Pattern] = g
		}
		for _, h := range e.Headers {
			if h == "" || g.seen[h] {
				continue
			}
			g.keys = append(g.keys, h)
			g.seen[h] = true
		}
	}

	patterns := make([]string, 0, len(groups))
	for p := range groups {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	out := make([]models.PatternKeys, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, models.PatternKeys{Pattern: p, Keys: groups[p].keys})
	}
	return out
}

// WritePatternsJSON saves the pattern/keys export
func WritePatternsJSON(data []models.PatternKeys, path string, logger *logrus.Logger) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	encoded, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		logger.Errorf("Failed to write patterns file: %v", err)
		return err
	}
	logger.Infof("Pattern/keys export saved to: %s", path)
	return nil
}
