package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// CSVSource reads the raw transaction table from a local CSV file.
type CSVSource struct {
	path string
}

// NewCSVSource creates a local file source.
func NewCSVSource(path string) *CSVSource {
	if path == "" {
		path = "./data/data.csv"
	}
	return &CSVSource{path: path}
}

// GetRawTransactions reads the file. The first record is the header row.
func (s *CSVSource) GetRawTransactions(ctx context.Context, limit int) (*domain.RawTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv source: %w", err)
	}
	defer f.Close()

	return readCSV(ctx, f, limit)
}

// readCSV parses CSV content into a raw table, bounded to limit data rows
// when limit > 0. Shared with the sheet source.
func readCSV(ctx context.Context, r io.Reader, limit int) (*domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, the cleaner decides

	header, err := reader.Read()
	if err == io.EOF {
		return &domain.RawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	table := &domain.RawTable{Columns: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(table.Rows) >= limit {
			break
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(table.Rows)+1, err)
		}

		// Pad short rows so every row has one cell per column.
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		table.Rows = append(table.Rows, record[:len(header)])
	}

	return table, nil
}
