// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"time"
)

// Required column names of the raw transaction table, after normalization.
const (
	ColInvoiceNo   = "invoice_no"
	ColStockCode   = "stock_code"
	ColDescription = "description"
	ColQuantity    = "quantity"
	ColInvoiceDate = "invoice_date"
	ColUnitPrice   = "unit_price"
	ColCustomerID  = "customer_id"
	ColCountry     = "country"
)

// RequiredColumns lists the columns the cleaner validates after normalizing
// the header names.
func RequiredColumns() []string {
	return []string{
		ColInvoiceNo,
		ColStockCode,
		ColDescription,
		ColQuantity,
		ColInvoiceDate,
		ColUnitPrice,
		ColCustomerID,
		ColCountry,
	}
}

// RawTable is an un-cleaned tabular dataset as produced by a source.
// Column names may have inconsistent casing and whitespace; cell values are
// unparsed strings regardless of how the source typed them.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Transaction is one row of the canonical cleaned table.
type Transaction struct {
	InvoiceNo   string    `json:"invoice_no"`
	StockCode   string    `json:"stock_code"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	InvoiceDate time.Time `json:"invoice_date"`
	UnitPrice   float64   `json:"unit_price"`
	CustomerID  string    `json:"customer_id"`
	Country     string    `json:"country"`
	TotalPrice  float64   `json:"total_price"`
}

// Dataset is the cleaned, invoice-date-ordered transaction table.
// It is built fresh from a RawTransactionSource on cache miss or warm-up and
// invalidated only by TTL expiry or a full cache flush.
type Dataset struct {
	Transactions []Transaction `json:"transactions"`
	BuiltAt      time.Time     `json:"builtAt"`
}

// Len returns the number of cleaned rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Transactions)
}
