package domain

import (
	"context"
)

// RawTransactionSource supplies the un-cleaned transaction table.
// Implementations exist for a remote spreadsheet export, a local CSV file,
// and a SQL database; the engine only depends on this contract.
type RawTransactionSource interface {
	// GetRawTransactions returns the raw table, optionally bounded to limit
	// rows. limit <= 0 means unbounded. No row ordering is guaranteed.
	GetRawTransactions(ctx context.Context, limit int) (*RawTable, error)
}

// SourceConfig holds configuration for source initialization.
type SourceConfig struct {
	// Driver is the source kind: "sheet", "csv", "sqlite" or "postgres".
	Driver string

	// Spreadsheet export settings ("sheet" driver). When SpreadsheetID is
	// empty the factory falls back to the CSV source.
	SpreadsheetID  string
	SpreadsheetGID string

	// Local file settings ("csv" driver).
	CSVPath string

	// SQL settings ("sqlite" and "postgres" drivers).
	SQLitePath  string
	DatabaseURL string
	Table       string
}
