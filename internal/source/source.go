// Package source provides raw transaction table implementations.
package source

import (
	"fmt"
	"log/slog"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// New creates a raw transaction source based on configuration.
// The "sheet" driver falls back to the local CSV source when no spreadsheet
// id is configured, so the engine keeps working without remote credentials.
func New(cfg domain.SourceConfig) (domain.RawTransactionSource, error) {
	switch cfg.Driver {
	case "sheet":
		if cfg.SpreadsheetID == "" {
			slog.Warn("spreadsheet id not configured, falling back to local csv source",
				"path", cfg.CSVPath,
			)
			return NewCSVSource(cfg.CSVPath), nil
		}
		return NewSheetSource(cfg.SpreadsheetID, cfg.SpreadsheetGID), nil

	case "csv":
		return NewCSVSource(cfg.CSVPath), nil

	case "sqlite", "postgres":
		return NewSQLSource(cfg)

	default:
		return nil, fmt.Errorf("unsupported source driver: %s", cfg.Driver)
	}
}
