package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// DatasetKey is the fixed key the cleaned dataset lives under.
const DatasetKey = "kestrel:metrics:clean_dataset"

// DatasetCache provides cache-aside access to the cleaned dataset.
//
// Concurrent misses are not deduplicated: two cold-start callers may both
// recompute and both write. Recomputation is deterministic and idempotent,
// and the last single-key write wins.
type DatasetCache struct {
	store domain.Cache
	ttl   time.Duration
}

// NewDatasetCache creates a dataset cache over a store with the given TTL.
func NewDatasetCache(store domain.Cache, ttl time.Duration) *DatasetCache {
	return &DatasetCache{store: store, ttl: ttl}
}

// GetOrCompute returns the cached dataset when fresh, otherwise invokes
// compute, stores the result under the dataset key and returns it. Any cache
// read, decode or write failure is logged and degrades to compute-through;
// it never propagates.
func (c *DatasetCache) GetOrCompute(ctx context.Context, compute func(ctx context.Context) (*domain.Dataset, error)) (*domain.Dataset, error) {
	if cached := c.lookup(ctx); cached != nil {
		return cached, nil
	}

	dataset, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.put(ctx, dataset)
	return dataset, nil
}

// WarmUp force-computes the dataset and stores it, bypassing the lookup.
// Used by the out-of-band scheduled refresh.
func (c *DatasetCache) WarmUp(ctx context.Context, compute func(ctx context.Context) (*domain.Dataset, error)) error {
	dataset, err := compute(ctx)
	if err != nil {
		return err
	}
	c.put(ctx, dataset)
	return nil
}

func (c *DatasetCache) lookup(ctx context.Context) *domain.Dataset {
	payload, err := c.store.Get(ctx, DatasetKey)
	if err != nil {
		slog.Error("dataset cache read failed, treating as miss", "error", err)
		return nil
	}
	if payload == nil {
		slog.Info("cache MISS", "key", DatasetKey)
		return nil
	}

	dataset, err := DecodeDataset(payload)
	if err != nil {
		slog.Error("dataset cache decode failed, treating as miss", "error", err)
		return nil
	}

	slog.Info("cache HIT", "key", DatasetKey)
	return dataset
}

func (c *DatasetCache) put(ctx context.Context, dataset *domain.Dataset) {
	payload, err := EncodeDataset(dataset)
	if err != nil {
		slog.Error("dataset cache encode failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, DatasetKey, payload, c.ttl); err != nil {
		slog.Error("dataset cache write failed", "error", err)
		return
	}
	slog.Info("cache SET", "key", DatasetKey, "ttl", c.ttl, "rows", dataset.Len())
}

// splitFrame is the columnar wire form of a dataset: one parallel array per
// column. Dates travel as Unix milliseconds. Compared to a row-object array
// this keeps the payload small and the field typing explicit.
type splitFrame struct {
	InvoiceNo   []string  `json:"invoice_no"`
	StockCode   []string  `json:"stock_code"`
	Description []string  `json:"description"`
	Quantity    []float64 `json:"quantity"`
	InvoiceDate []int64   `json:"invoice_date"`
	UnitPrice   []float64 `json:"unit_price"`
	CustomerID  []string  `json:"customer_id"`
	Country     []string  `json:"country"`
	TotalPrice  []float64 `json:"total_price"`
	BuiltAt     int64     `json:"built_at"`
}

// EncodeDataset serializes a dataset into the columnar wire form.
func EncodeDataset(dataset *domain.Dataset) ([]byte, error) {
	n := dataset.Len()
	frame := splitFrame{
		InvoiceNo:   make([]string, n),
		StockCode:   make([]string, n),
		Description: make([]string, n),
		Quantity:    make([]float64, n),
		InvoiceDate: make([]int64, n),
		UnitPrice:   make([]float64, n),
		CustomerID:  make([]string, n),
		Country:     make([]string, n),
		TotalPrice:  make([]float64, n),
		BuiltAt:     dataset.BuiltAt.UnixMilli(),
	}
	for i, tx := range dataset.Transactions {
		frame.InvoiceNo[i] = tx.InvoiceNo
		frame.StockCode[i] = tx.StockCode
		frame.Description[i] = tx.Description
		frame.Quantity[i] = tx.Quantity
		frame.InvoiceDate[i] = tx.InvoiceDate.UnixMilli()
		frame.UnitPrice[i] = tx.UnitPrice
		frame.CustomerID[i] = tx.CustomerID
		frame.Country[i] = tx.Country
		frame.TotalPrice[i] = tx.TotalPrice
	}
	return json.Marshal(frame)
}

// DecodeDataset deserializes the columnar wire form back into a dataset.
func DecodeDataset(payload []byte) (*domain.Dataset, error) {
	var frame splitFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode dataset frame: %w", err)
	}

	n := len(frame.InvoiceDate)
	for _, length := range []int{
		len(frame.InvoiceNo), len(frame.StockCode), len(frame.Description),
		len(frame.Quantity), len(frame.UnitPrice), len(frame.CustomerID),
		len(frame.Country), len(frame.TotalPrice),
	} {
		if length != n {
			return nil, fmt.Errorf("dataset frame has ragged columns")
		}
	}

	dataset := &domain.Dataset{
		Transactions: make([]domain.Transaction, n),
		BuiltAt:      time.UnixMilli(frame.BuiltAt).UTC(),
	}
	for i := 0; i < n; i++ {
		dataset.Transactions[i] = domain.Transaction{
			InvoiceNo:   frame.InvoiceNo[i],
			StockCode:   frame.StockCode[i],
			Description: frame.Description[i],
			Quantity:    frame.Quantity[i],
			InvoiceDate: time.UnixMilli(frame.InvoiceDate[i]).UTC(),
			UnitPrice:   frame.UnitPrice[i],
			CustomerID:  frame.CustomerID[i],
			Country:     frame.Country[i],
			TotalPrice:  frame.TotalPrice[i],
		}
	}
	return dataset, nil
}
