package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
)

// fixtureColumns is the schema of generated fixtures; "id" is the key column
var fixtureColumns = []string{"id", "name", "email", "city", "amount", "status"}

var fixtureStatuses = []string{"ACTIVE", "INACTIVE", "PENDING"}

// FixtureSpec controls the divergence injected between the generated pair
type FixtureSpec struct {
	// Rows is the number of base records shared by both files.
	Rows int
	// ModifiedRows get different cell values in file B.
	ModifiedRows int
	// MissingRows are dropped from file B (missing records).
	MissingRows int
	// AdditionalRows exist only in file B (additional records).
	AdditionalRows int
	// DuplicateKeys duplicates that many keys inside file B.
	DuplicateKeys int
	// Delimiter is the field separator of both files; 0 means ';'.
	Delimiter rune
}

// FixtureGenerator produces paired CSV fixtures with realistic values and a
// controlled amount of divergence, for exercising the comparison engine and
// the batch orchestrator against known expected results
type FixtureGenerator struct {
	Faker  faker.Faker
	Logger *logrus.Logger
}

// NewFixtureGenerator creates a new fixture generator
func NewFixtureGenerator(logger *logrus.Logger) *FixtureGenerator {
	return &FixtureGenerator{
		Faker:  faker.New(),
		Logger: logger,
	}
}

// GeneratePair writes file A and a diverging file B according to spec
func (fg *FixtureGenerator) GeneratePair(pathA, pathB string, spec FixtureSpec) error {
	if spec.Rows <= 0 {
		return fmt.Errorf("fixture needs at least one row, got %d", spec.Rows)
	}
	if spec.ModifiedRows+spec.MissingRows > spec.Rows {
		return fmt.Errorf("modified (%d) plus missing (%d) rows exceed total rows (%d)",
			spec.ModifiedRows, spec.MissingRows, spec.Rows)
	}

	base := fg.generateRows(spec.Rows, 1)

	rowsA := base

	// B starts as a copy of A, then diverges: modify the first ModifiedRows,
	// drop the last MissingRows, append AdditionalRows fresh records and
	// duplicate the first DuplicateKeys rows
	rowsB := make([][]string, 0, len(base)+spec.AdditionalRows+spec.DuplicateKeys)
	for _, r := range base {
		rowsB = append(rowsB, append([]string(nil), r...))
	}
	for i := 0; i < spec.ModifiedRows; i++ {
		fg.modifyRow(rowsB[i])
	}
	rowsB = rowsB[:len(rowsB)-spec.MissingRows]
	rowsB = append(rowsB, fg.generateRows(spec.AdditionalRows, spec.Rows+1)...)
	for i := 0; i < spec.DuplicateKeys && i < len(rowsB); i++ {
		rowsB = append(rowsB, append([]string(nil), rowsB[i]...))
	}

	delim := spec.Delimiter
	if delim == 0 {
		delim = ';'
	}

	if err := writeCSV(pathA, delim, rowsA); err != nil {
		return err
	}
	if err := writeCSV(pathB, delim, rowsB); err != nil {
		return err
	}

	fg.Logger.Infof("Generated fixture pair: %s (%d rows), %s (%d rows)",
		pathA, len(rowsA), pathB, len(rowsB))
	return nil
}

// generateRows produces count records with ids starting at firstID
func (fg *FixtureGenerator) generateRows(count, firstID int) [][]string {
	rows := make([][]string, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, []string{
			strconv.Itoa(firstID + i),
			fg.Faker.Person().Name(),
			fg.Faker.Internet().Email(),
			fg.Faker.Address().City(),
			fmt.Sprintf("%.2f", rand.Float64()*1000),
			fixtureStatuses[rand.Intn(len(fixtureStatuses))],
		})
	}
	return rows
}

// modifyRow changes non-key cells in place so the pair diverges on content
func (fg *FixtureGenerator) modifyRow(row []string) {
	row[3] = fg.Faker.Address().City()
	row[4] = fmt.Sprintf("%.2f", rand.Float64()*1000)
}

func writeCSV(path string, delim rune, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delim
	if err := w.Write(fixtureColumns); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
