// Package export serializes generated tables at the export boundary: CSV
// spreadsheets for download and msgpack payloads for the frontend.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pointtable/backend/internal/models"
)

// WriteCSV writes the column schema as a header row followed by the data
// rows. Output is deterministic for a given table.
func WriteCSV(w io.Writer, t *models.GeneratedTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, schema declares %d columns", i, len(row), len(t.Columns))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName builds the export file name for a table. The timestamp is
// supplied by the caller so table content itself stays reproducible.
func FileName(project models.ProjectInfo, kind models.TableKind, at time.Time) string {
	base := project.ProjectNo
	if base == "" {
		base = "project"
	}
	base = sanitize(base)
	return fmt.Sprintf("%s_%s_%s.csv", base, kind, at.Format("20060102_150405"))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
