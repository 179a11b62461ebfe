package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// SheetSource reads the raw transaction table from a Google Sheets CSV
// export. The sheet must be readable by link; the export endpoint needs no
// OAuth round-trip.
type SheetSource struct {
	spreadsheetID string
	gid           string
	client        *http.Client
	baseURL       string
}

// NewSheetSource creates a remote spreadsheet source.
func NewSheetSource(spreadsheetID, gid string) *SheetSource {
	if gid == "" {
		gid = "0"
	}
	return &SheetSource{
		spreadsheetID: spreadsheetID,
		gid:           gid,
		client:        &http.Client{Timeout: 30 * time.Second},
		baseURL:       "https://docs.google.com",
	}
}

// GetRawTransactions fetches and parses the CSV export.
func (s *SheetSource) GetRawTransactions(ctx context.Context, limit int) (*domain.RawTable, error) {
	url := fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv&gid=%s", s.baseURL, s.spreadsheetID, s.gid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sheet export request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet export returned status %d", resp.StatusCode)
	}

	return readCSV(ctx, resp.Body, limit)
}
