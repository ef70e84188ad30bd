package tensor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openefs/prodforecast/internal/features"
)

// TimeColumn is the header name of a column holding RFC 3339 timestamps.
// Each timestamp is expanded into the two time features.
const TimeColumn = "time"

// LoadCSV reads every cell of a CSV file, row by row, into one flat list.
// hasHeader skips the first line, which may name a TimeColumn.
func LoadCSV(filename string, hasHeader bool) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file, hasHeader)
}

// ReadCSV is LoadCSV on an already opened reader.
func ReadCSV(r io.Reader, hasHeader bool) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	startRow := 0
	timeCol := -1
	if hasHeader {
		startRow = 1
		for j, name := range records[0] {
			if strings.EqualFold(strings.TrimSpace(name), TimeColumn) {
				timeCol = j
			}
		}
	}

	if len(records) <= startRow {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	var values []float64
	for i := startRow; i < len(records); i++ {
		for j, cell := range records[i] {
			cell = strings.TrimSpace(cell)
			if j == timeCol {
				t, err := time.Parse(time.RFC3339, cell)
				if err != nil {
					return nil, fmt.Errorf("failed to parse time at row %d, col %d: %w", i, j, err)
				}
				values = append(values, features.Time(t)...)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", i, j, err)
			}
			values = append(values, v)
		}
	}
	return values, nil
}
