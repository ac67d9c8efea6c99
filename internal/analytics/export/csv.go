package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pagora/pagora-edp/internal/analytics"
)

// WriteTableCSV writes one table with its header row.
func WriteTableCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatCell(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("export: csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteKPICSV writes the metric summary of set.
func WriteKPICSV(w io.Writer, set analytics.KPISet) error {
	return WriteTableCSV(w, Summary(set))
}

// WriteNamedCSV writes the table called name, or the summary when name is empty.
func WriteNamedCSV(w io.Writer, set analytics.KPISet, name string) error {
	if name == "" {
		return WriteKPICSV(w, set)
	}
	for _, t := range Tables(set) {
		if t.Name == name {
			return WriteTableCSV(w, t)
		}
	}
	return fmt.Errorf("export: %w: %q", ErrUnknownTable, name)
}
