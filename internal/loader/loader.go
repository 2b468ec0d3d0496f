package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// candidateEncodings is the fallback order when no encoding hint is given.
// ISO-8859-1 goes last because it accepts any byte sequence.
var candidateEncodings = []string{"utf-8", "utf-8-sig", "windows-1252", "iso-8859-1"}

// candidateDelimiters is the fallback order when no delimiter hint is given
var candidateDelimiters = []rune{';', ',', '\t', '|'}

// sniffSampleLines bounds how much of the content the dialect sniffer reads
const sniffSampleLines = 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeError reports that no tried encoding/delimiter combination produced a
// usable multi-column header
type DecodeError struct {
	Path           string
	EncodingsTried []string
	Reason         string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s with encodings %v: %s", e.Path, e.EncodingsTried, e.Reason)
}

// TableLoader decodes raw CSV bytes into an ordered table of string cells.
// Every cell stays a string: the loader never infers numbers, dates or
// booleans, so formatting differences like "80" vs "80.0" remain visible.
type TableLoader struct {
	Logger *logrus.Logger
}

// NewTableLoader creates a new table loader
func NewTableLoader(logger *logrus.Logger) *TableLoader {
	return &TableLoader{Logger: logger}
}

// Load reads the file at path into a Table, trying encodings and delimiters
// until a stable parse is found. The second return value is the number of
// cells already carrying the Unicode replacement character U+FFFD, a sign the
// source was corrupted before this pipeline touched it.
func (tl *TableLoader) Load(path string, cfg models.Config) (*models.Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return tl.LoadReader(f, path, cfg)
}

// LoadReader reads an open stream into a Table; source labels provenance
func (tl *TableLoader) LoadReader(r io.Reader, source string, cfg models.Config) (*models.Table, int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}

	text, tried, err := tl.decode(raw, source, cfg.Encoding)
	if err != nil {
		return nil, 0, err
	}

	delim, err := tl.resolveDelimiter(text, source, cfg.Delimiter, tried)
	if err != nil {
		return nil, 0, err
	}

	table, err := parseTable(text, source, delim)
	if err != nil {
		return nil, 0, &DecodeError{Path: source, EncodingsTried: tried, Reason: err.Error()}
	}
	if len(table.Columns) < 2 {
		return nil, 0, &DecodeError{Path: source, EncodingsTried: tried,
			Reason: fmt.Sprintf("header has %d column(s) with delimiter %q", len(table.Columns), string(delim))}
	}

	dropIgnoredColumns(table, cfg.IgnoreColumns)

	return table, countReplacementChars(table), nil
}

// LoadHeader decodes only enough of the file to return its header row; used
// by the header pre-validation sweep, which never needs the data rows
func (tl *TableLoader) LoadHeader(path string, cfg models.Config) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, tried, err := tl.decode(raw, path, cfg.Encoding)
	if err != nil {
		return nil, err
	}
	delim, err := tl.resolveDelimiter(text, path, cfg.Delimiter, tried)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, &DecodeError{Path: path, EncodingsTried: tried, Reason: err.Error()}
	}
	return header, nil
}

// decode tries encodings in priority order, accepting only candidates that do
// not substitute U+FFFD for invalid input. It returns the decoded text and
// the list of encodings attempted.
func (tl *TableLoader) decode(raw []byte, source, hint string) (string, []string, error) {
	encodings := candidateEncodings
	if hint != "" {
		encodings = []string{strings.ToLower(hint)}
	}

	var tried []string
	for _, enc := range encodings {
		tried = append(tried, enc)
		text, err := decodeStrict(raw, enc)
		if err != nil {
			tl.Logger.Debugf("Encoding %s rejected for %s: %v", enc, source, err)
			continue
		}
		tl.Logger.Debugf("Decoded %s as %s", source, enc)
		return text, tried, nil
	}
	return "", tried, &DecodeError{Path: source, EncodingsTried: tried, Reason: "no encoding decoded without replacement"}
}

// decodeStrict decodes raw with one named encoding, rejecting any decode that
// would introduce the replacement character
func decodeStrict(raw []byte, enc string) (string, error) {
	switch enc {
	case "utf-8", "utf8":
		if bytes.HasPrefix(raw, utf8BOM) {
			// let utf-8-sig claim BOM-prefixed content so the marker
			// does not leak into the first header name
			return "", fmt.Errorf("byte order mark present")
		}
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8 byte sequence")
		}
		return string(raw), nil
	case "utf-8-sig":
		trimmed := bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(trimmed) {
			return "", fmt.Errorf("invalid UTF-8 byte sequence")
		}
		return string(trimmed), nil
	case "windows-1252", "cp1252":
		return decodeCharmap(raw, charmap.Windows1252)
	case "iso-8859-1", "latin1", "latin-1":
		return decodeCharmap(raw, charmap.ISO8859_1)
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}
}

// decodeCharmap decodes a single-byte code page. The x/text decoders map
// undefined bytes to U+FFFD instead of failing, so a decode that produces a
// replacement character the raw bytes did not carry is treated as an error.
func decodeCharmap(raw []byte, cm *charmap.Charmap) (string, error) {
	decoded, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	text := string(decoded)
	if strings.Count(text, "�") > bytes.Count(raw, []byte("�")) {
		return "", fmt.Errorf("byte sequence maps to no character in %s", cm)
	}
	return text, nil
}

// resolveDelimiter picks the field separator: explicit hint first, then the
// first candidate yielding a multi-column header, then a sniffing heuristic
// over a sample of the content.
func (tl *TableLoader) resolveDelimiter(text, source string, hint rune, tried []string) (rune, error) {
	if hint != 0 {
		return hint, nil
	}

	for _, d := range candidateDelimiters {
		if headerColumns(text, d) > 1 {
			tl.Logger.Debugf("Delimiter %q accepted for %s", string(d), source)
			return d, nil
		}
	}

	if d, ok := sniffDelimiter(text); ok {
		tl.Logger.Debugf("Delimiter %q sniffed for %s", string(d), source)
		return d, nil
	}

	return 0, &DecodeError{Path: source, EncodingsTried: tried,
		Reason: "no delimiter produced a header with more than one column"}
}

// headerColumns parses only the first line and returns its field count
func headerColumns(text string, delim rune) int {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return 0
	}
	return len(rec)
}

// sniffDelimiter scores each candidate by its per-line occurrence counts over
// a sample: a delimiter that appears the same nonzero number of times on
// every sampled line wins; ties break in candidate order.
func sniffDelimiter(text string) (rune, bool) {
	lines := sampleLines(text, sniffSampleLines)
	if len(lines) == 0 {
		return 0, false
	}

	bestScore := 0
	var best rune
	for _, d := range candidateDelimiters {
		first := strings.Count(lines[0], string(d))
		if first == 0 {
			continue
		}
		consistent := true
		for _, ln := range lines[1:] {
			if strings.Count(ln, string(d)) != first {
				consistent = false
				break
			}
		}
		if consistent && first > bestScore {
			bestScore = first
			best = d
		}
	}
	if bestScore == 0 {
		return 0, false
	}
	return best, true
}

func sampleLines(text string, max int) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSuffix(ln, "\r")
		if strings.TrimSpace(ln) == "" {
			continue
		}
		lines = append(lines, ln)
		if len(lines) == max {
			break
		}
	}
	return lines
}

// parseTable parses decoded text into a Table. Rows shorter than the header
// are padded with empty strings, longer rows are truncated.
func parseTable(text, source string, delim rune) (*models.Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty content")
	}

	header := records[0]
	table := &models.Table{Source: source, Columns: header}
	for _, rec := range records[1:] {
		row := make(models.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// dropIgnoredColumns removes the configured columns from the header and every
// row; ignore columns absent from the header are not an error
func dropIgnoredColumns(table *models.Table, ignore []string) {
	if len(ignore) == 0 {
		return
	}
	drop := make(map[string]bool, len(ignore))
	for _, c := range ignore {
		drop[c] = true
	}

	var kept []string
	for _, c := range table.Columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	table.Columns = kept

	for _, row := range table.Rows {
		for c := range row {
			if drop[c] {
				delete(row, c)
			}
		}
	}
}

// countReplacementChars counts cells (header names included) that carry
// U+FFFD after a strict decode, meaning the source file already contained
// corrupted text
func countReplacementChars(table *models.Table) int {
	count := 0
	for _, c := range table.Columns {
		if strings.ContainsRune(c, '�') {
			count++
		}
	}
	for _, row := range table.Rows {
		for _, c := range table.Columns {
			if strings.ContainsRune(row[c], '�') {
				count++
			}
		}
	}
	return count
}
