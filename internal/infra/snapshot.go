package infra

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/seenimoa/earningsai/pkg/models"
)

// SnapshotWriter stores raw statement tables as CSV files named
// <TICKER>_<kind>_data.csv inside Dir.
type SnapshotWriter struct {
	Dir string
}

// NewSnapshotWriter creates a writer rooted at dir ("." when empty).
func NewSnapshotWriter(dir string) *SnapshotWriter {
	if dir == "" {
		dir = "."
	}
	return &SnapshotWriter{Dir: dir}
}

// Path returns the file a table for ticker and kind is written to.
func (s *SnapshotWriter) Path(ticker string, kind models.StatementKind) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s_data.csv", ticker, kind))
}

// Write saves the table with a sorted header row and one line per record.
// Fields a record lacks are written as empty cells.
func (s *SnapshotWriter) Write(t *models.RawStatementTable) (string, error) {
	if t == nil {
		return "", fmt.Errorf("snapshot: nil table")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create dir: %w", err)
	}

	cols := make([]string, 0)
	for c := range t.Columns() {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	path := s.Path(t.Ticker, t.Kind)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return "", fmt.Errorf("snapshot: write header: %w", err)
	}
	for _, rec := range t.Records {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = csvCell(rec[c])
		}
		if err := w.Write(line); err != nil {
			return "", fmt.Errorf("snapshot: write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("snapshot: flush: %w", err)
	}
	return path, f.Close()
}

func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
