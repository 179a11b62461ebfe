// Package cleaner normalizes raw transaction tables into the canonical
// cleaned dataset.
package cleaner

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// Cleaner validates and coerces raw transaction rows.
type Cleaner struct{}

// New creates a Cleaner.
func New() *Cleaner {
	return &Cleaner{}
}

// Clean builds the canonical dataset from a raw table.
//
// Column names are normalized (trim, lowercase, spaces to underscores) and
// the required columns validated; a missing column is a SchemaError. Numeric
// coercion never fails: unparseable, NaN or infinite quantity/unit_price
// values become 0. Rows whose invoice_date does not parse are dropped and
// counted, not imputed. The result is ordered by invoice_date.
//
// An empty raw table short-circuits to an empty dataset without validation.
func (c *Cleaner) Clean(raw *domain.RawTable) (*domain.Dataset, error) {
	if raw == nil || len(raw.Rows) == 0 {
		return &domain.Dataset{BuiltAt: time.Now().UTC()}, nil
	}

	index, err := columnIndex(raw.Columns)
	if err != nil {
		return nil, err
	}

	transactions := make([]domain.Transaction, 0, len(raw.Rows))
	dropped := 0
	for _, row := range raw.Rows {
		date, ok := ParseDate(cell(row, index[domain.ColInvoiceDate]))
		if !ok {
			dropped++
			continue
		}

		quantity := CleanNumeric(cell(row, index[domain.ColQuantity]))
		unitPrice := CleanNumeric(cell(row, index[domain.ColUnitPrice]))

		transactions = append(transactions, domain.Transaction{
			InvoiceNo:   strings.TrimSpace(cell(row, index[domain.ColInvoiceNo])),
			StockCode:   strings.TrimSpace(cell(row, index[domain.ColStockCode])),
			Description: cell(row, index[domain.ColDescription]),
			Quantity:    quantity,
			InvoiceDate: date,
			UnitPrice:   unitPrice,
			CustomerID:  strings.TrimSpace(cell(row, index[domain.ColCustomerID])),
			Country:     cell(row, index[domain.ColCountry]),
			TotalPrice:  quantity * unitPrice,
		})
	}

	if dropped > 0 {
		slog.Warn("dropped rows with invalid invoice_date",
			"dropped", dropped,
			"kept", len(transactions),
		)
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].InvoiceDate.Before(transactions[j].InvoiceDate)
	})

	return &domain.Dataset{
		Transactions: transactions,
		BuiltAt:      time.Now().UTC(),
	}, nil
}

// columnIndex maps normalized required column names to their position,
// failing with a SchemaError naming every missing column.
func columnIndex(columns []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[NormalizeColumn(name)] = i
	}

	var missing []string
	for _, required := range domain.RequiredColumns() {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	return index, nil
}

// NormalizeColumn trims, lowercases and replaces spaces with underscores.
// "Invoice No" and "invoiceno " normalize to "invoice_no" and "invoiceno";
// sources are expected to cover the required names after normalization.
func NormalizeColumn(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	// Headers without separators are common in spreadsheet exports.
	switch normalized {
	case "invoiceno":
		return domain.ColInvoiceNo
	case "stockcode":
		return domain.ColStockCode
	case "invoicedate":
		return domain.ColInvoiceDate
	case "unitprice":
		return domain.ColUnitPrice
	case "customerid":
		return domain.ColCustomerID
	}
	return normalized
}

// CleanNumeric parses a raw numeric cell. Thousands separators and
// surrounding whitespace are stripped; unparseable, NaN or infinite values
// become 0. Bad numerics are a data-quality tolerance, never an error.
func CleanNumeric(value string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if cleaned == "" {
		return 0
	}

	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}

// dateLayouts are tried in order. Covers ISO timestamps and the M/D/Y
// minute-resolution format retail spreadsheet exports use.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06 15:04",
	"01/02/2006 15:04:05",
}

// ParseDate parses a raw invoice date cell, reporting success via ok.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
