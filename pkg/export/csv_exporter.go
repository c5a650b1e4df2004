package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content. Numeric names the headers whose
// values are right-aligned in rendered tables. Rows whose value in
// HighlightColumn matches one of HighlightValues are emphasised so elevated
// risk tiers stand out in generated reports.
type Dataset struct {
	Headers         []string
	Numeric         []string
	HighlightColumn string
	HighlightValues []string
	Rows            []map[string]string
}

// Highlighted reports whether a row matches the dataset's highlight rule.
func (d Dataset) Highlighted(row map[string]string) bool {
	if d.HighlightColumn == "" {
		return false
	}
	value := row[d.HighlightColumn]
	for _, candidate := range d.HighlightValues {
		if value == candidate {
			return true
		}
	}
	return false
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
