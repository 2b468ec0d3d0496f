package filemover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// SuffixCleaner renames files whose names carry trailing junk after ".csv"
// (export pipelines produce names like data.csv_PRO_20240101), restoring the
// plain .csv name without clobbering existing files
type SuffixCleaner struct {
	Logger    *logrus.Logger
	Recursive bool
	DryRun    bool
}

// NewSuffixCleaner creates a new suffix cleaner
func NewSuffixCleaner(logger *logrus.Logger, recursive, dryRun bool) *SuffixCleaner {
	return &SuffixCleaner{Logger: logger, Recursive: recursive, DryRun: dryRun}
}

// CleanDirectory processes dir and returns how many files were renamed and
// how many were skipped
func (sc *SuffixCleaner) CleanDirectory(dir string) (renamed, skipped int, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("not a directory: %s", dir)
	}

	var paths []string
	if sc.Recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return 0, 0, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return 0, 0, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}

	for _, path := range paths {
		newName := StrippedName(filepath.Base(path))
		if newName == "" {
			skipped++
			continue
		}
		target := uniqueTarget(filepath.Join(filepath.Dir(path), newName))
		if sc.DryRun {
			sc.Logger.Infof("[DRY-RUN] Would rename %s -> %s", path, target)
			renamed++
			continue
		}
		if err := os.Rename(path, target); err != nil {
			sc.Logger.Warningf("Could not rename %s: %v", path, err)
			skipped++
			continue
		}
		sc.Logger.Infof("Renamed %s -> %s", path, target)
		renamed++
	}
	return renamed, skipped, nil
}

// StrippedName returns the file name cut right after ".csv" when the name
// carries text beyond it, or "" when nothing needs renaming
func StrippedName(filename string) string {
	idx := strings.Index(strings.ToLower(filename), ".csv")
	if idx == -1 {
		return ""
	}
	newName := filename[:idx+len(".csv")]
	if newName == filename {
		return ""
	}
	return newName
}

// uniqueTarget avoids collisions by appending " (1)", " (2)", etc.
func uniqueTarget(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
