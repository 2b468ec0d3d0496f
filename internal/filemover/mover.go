package filemover

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MoveMode selects how each file travels to the destination
type MoveMode string

const (
	// ModeMove renames the file, falling back to copy-and-delete across
	// filesystems.
	ModeMove MoveMode = "move"
	// ModeCopy copies the file and leaves the source in place.
	ModeCopy MoveMode = "copy"
	// ModeCopyVerify copies, verifies size and modification time against the
	// source, and deletes the source only when the verification passes.
	ModeCopyVerify MoveMode = "copy-verify"
)

// mtimeTolerance absorbs timestamp granularity differences between
// filesystems during copy verification
const mtimeTolerance = 2 * time.Second

// MoveStats summarizes one mover run
type MoveStats struct {
	OK      int
	Skipped int
	Errors  int
}

// opRecord is one line of the CSV operation report
type opRecord struct {
	Source string
	Dest   string
	Status string
	Reason string
}

// FileMover relocates extract files between directories: recursive sweep,
// extension filter that also matches junk-suffixed names (data.csv_PRO_...),
// collision-safe naming and an optional copy-then-verify mode that never
// deletes a source it could not verify
type FileMover struct {
	Logger        *logrus.Logger
	Mode          MoveMode
	DryRun        bool
	KeepStructure bool
	Overwrite     bool
	SkipExisting  bool
	Extensions    []string
	ExcludeDirs   []string
	Retries       int
	RetrySleep    time.Duration
}

// NewFileMover creates a file mover with the given mode
func NewFileMover(logger *logrus.Logger, mode MoveMode) *FileMover {
	return &FileMover{
		Logger:     logger,
		Mode:       mode,
		Retries:    2,
		RetrySleep: 300 * time.Millisecond,
	}
}

// Run sweeps sourceDir recursively and relocates every matching file into
// destDir. When reportPath is non-empty the per-file outcomes are written
// there as CSV.
func (fm *FileMover) Run(sourceDir, destDir, reportPath string) (MoveStats, error) {
	var stats MoveStats
	var records []opRecord

	info, err := os.Stat(sourceDir)
	if err != nil {
		return stats, err
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("not a directory: %s", sourceDir)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return stats, err
	}

	extensions := normalizeExtensions(fm.Extensions)

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != sourceDir && fm.isExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !shouldInclude(d.Name(), extensions) {
			stats.Skipped++
			records = append(records, opRecord{Source: path, Status: "SKIPPED", Reason: "extension_filter"})
			return nil
		}

		target, skip, reason := fm.resolveTarget(sourceDir, destDir, path)
		if skip {
			stats.Skipped++
			records = append(records, opRecord{Source: path, Dest: target, Status: "SKIPPED", Reason: reason})
			return nil
		}

		fm.Logger.Infof("%s: %s -> %s", strings.ToUpper(string(fm.Mode)), path, target)
		if fm.DryRun {
			stats.OK++
			records = append(records, opRecord{Source: path, Dest: target, Status: "OK", Reason: "dry_run"})
			return nil
		}

		if opErr := fm.withRetries(func() error { return fm.transfer(path, target) }); opErr != nil {
			stats.Errors++
			records = append(records, opRecord{Source: path, Dest: target, Status: "ERROR", Reason: opErr.Error()})
			fm.Logger.Errorf("Failed to process %s: %v", path, opErr)
			return nil
		}

		stats.OK++
		records = append(records, opRecord{Source: path, Dest: target, Status: "OK", Reason: string(fm.Mode)})
		return nil
	})
	if err != nil {
		return stats, err
	}

	if reportPath != "" {
		if err := writeOpReport(reportPath, records); err != nil {
			return stats, err
		}
		fm.Logger.Infof("Operation report saved to: %s", reportPath)
	}

	fm.Logger.Infof("Mover finished: %d ok, %d skipped, %d errors", stats.OK, stats.Skipped, stats.Errors)
	return stats, nil
}

// resolveTarget computes the destination path of one file, applying structure
// preservation, collision renaming and the skip-existing policy
func (fm *FileMover) resolveTarget(sourceDir, destDir, path string) (target string, skip bool, reason string) {
	name := filepath.Base(path)
	targetDir := destDir
	if fm.KeepStructure {
		rel, err := filepath.Rel(sourceDir, filepath.Dir(path))
		if err == nil && rel != "." {
			targetDir = filepath.Join(destDir, rel)
		}
	}
	if !fm.DryRun {
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return "", true, err.Error()
		}
	}

	target = filepath.Join(targetDir, name)
	if fm.Overwrite {
		if fm.SkipExisting {
			if _, err := os.Stat(target); err == nil {
				return target, true, "dest_exists"
			}
		}
		return target, false, ""
	}
	return uniqueTarget(target), false, ""
}

func (fm *FileMover) isExcluded(dirName string) bool {
	for _, d := range fm.ExcludeDirs {
		if strings.EqualFold(d, dirName) {
			return true
		}
	}
	return false
}

// transfer applies the configured mode to one file
func (fm *FileMover) transfer(src, dst string) error {
	switch fm.Mode {
	case ModeMove:
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		// cross-device rename fails; fall back to a verified copy
		if err := copyPreservingTimes(src, dst); err != nil {
			return err
		}
		return os.Remove(src)
	case ModeCopy:
		return copyPreservingTimes(src, dst)
	case ModeCopyVerify:
		if err := copyPreservingTimes(src, dst); err != nil {
			return err
		}
		if !sameFileQuick(src, dst) {
			return fmt.Errorf("verification failed after copy, source kept: %s", src)
		}
		return os.Remove(src)
	default:
		return fmt.Errorf("unsupported mode %q", fm.Mode)
	}
}

func (fm *FileMover) withRetries(op func() error) error {
	var last error
	for attempt := 0; attempt <= fm.Retries; attempt++ {
		if last = op(); last == nil {
			return nil
		}
		if attempt < fm.Retries {
			time.Sleep(fm.RetrySleep)
		}
	}
	return last
}

// normalizeExtensions lowercases and dot-prefixes the filter entries; an
// empty filter matches every file
func normalizeExtensions(extensions []string) []string {
	var out []string
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// shouldInclude matches a name against the extension filter, either as a
// plain suffix (data.csv) or embedded before a junk suffix (data.csv_PRO_...)
func shouldInclude(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) || strings.Contains(lower, ext+"_") {
			return true
		}
	}
	return false
}

// copyPreservingTimes copies a file and carries the source modification time
// to the copy so verification can compare timestamps
func copyPreservingTimes(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// sameFileQuick verifies a copy by size and modification time; it never
// reads the content, so it stays cheap on large extracts
func sameFileQuick(src, dst string) bool {
	ss, err := os.Stat(src)
	if err != nil {
		return false
	}
	ds, err := os.Stat(dst)
	if err != nil {
		return false
	}
	if ss.Size() != ds.Size() {
		return false
	}
	delta := ss.ModTime().Sub(ds.ModTime())
	if delta < 0 {
		delta = -delta
	}
	return delta < mtimeTolerance
}

func writeOpReport(path string, records []opRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"source", "dest", "status", "reason"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write([]string{r.Source, r.Dest, r.Status, r.Reason}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
