package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// FromCSV loads a CSV file into a new source. The first record is the
// header row. All fields load as text; numeric aggregation casts at
// query time, matching SQLite affinity for text-loaded data.
func FromCSV(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return FromCSVReader(f)
}

// FromCSVReader loads CSV data from a reader. See FromCSV.
func FromCSVReader(r io.Reader) (*Source, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		row := make([]any, len(record))
		for i, field := range record {
			row[i] = field
		}
		rows = append(rows, row)
	}

	return New(header, rows)
}
