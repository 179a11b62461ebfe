// Package customer computes per-customer spending aggregates and RFM
// segmentation over the cleaned dataset.
package customer

import (
	"context"
	"sort"
	"time"

	"github.com/opensource-commerce/kestrel/internal/cache"
	"github.com/opensource-commerce/kestrel/internal/domain"
	"github.com/opensource-commerce/kestrel/internal/metrics"
	"github.com/opensource-commerce/kestrel/internal/rules"
)

// Engine extends the metrics engine's dataset access with customer
// analytics. Segment mapping is delegated to the rule engine.
type Engine struct {
	*metrics.Engine
	segments *rules.SegmentEngine
	maxScore int
}

// NewEngine creates a customer engine sharing the metrics engine's dataset.
func NewEngine(base *metrics.Engine, segments *rules.SegmentEngine, maxScore int) *Engine {
	if maxScore <= 0 {
		maxScore = 5
	}
	return &Engine{
		Engine:   base,
		segments: segments,
		maxScore: maxScore,
	}
}

// TopSpenders groups by customer, sums spend and units, counts distinct
// invoices, sorts by total spent and takes the limit.
func (e *Engine) TopSpenders(ctx context.Context, limit int, ascending bool) ([]domain.Spender, error) {
	if limit <= 0 {
		limit = 10
	}

	key := cache.Key("customers.top_spenders", limit, ascending)
	return cache.Cached(ctx, e.Store(), key, e.ResultTTL(),
		func(ctx context.Context) ([]domain.Spender, error) {
			aggregates, err := e.aggregateCustomers(ctx)
			if err != nil {
				return nil, err
			}

			spenders := make([]domain.Spender, 0, len(aggregates))
			for _, agg := range aggregates {
				spenders = append(spenders, domain.Spender{
					CustomerID:     agg.customerID,
					TotalSpent:     agg.monetary,
					TotalUnitsSold: int64(agg.quantity),
					TotalSells:     int64(len(agg.invoices)),
				})
			}

			sort.SliceStable(spenders, func(i, j int) bool {
				if ascending {
					return spenders[i].TotalSpent < spenders[j].TotalSpent
				}
				return spenders[i].TotalSpent > spenders[j].TotalSpent
			})

			if len(spenders) > limit {
				spenders = spenders[:limit]
			}
			return spenders, nil
		})
}

// RFMAnalysis scores every customer on recency, frequency and monetary via
// quantile binning and maps the score triple to a named segment.
//
// Recency is the day count between the snapshot date (latest invoice in the
// table plus one day) and the customer's most recent invoice. Recency bins
// are labeled descending so more recent customers score higher; frequency
// and monetary ascending so bigger is better.
func (e *Engine) RFMAnalysis(ctx context.Context) ([]domain.RFMAnalysis, error) {
	key := cache.Key("customers.rfm", e.maxScore)
	return cache.Cached(ctx, e.Store(), key, e.ResultTTL(),
		func(ctx context.Context) ([]domain.RFMAnalysis, error) {
			aggregates, err := e.aggregateCustomers(ctx)
			if err != nil {
				return nil, err
			}
			if len(aggregates) == 0 {
				return []domain.RFMAnalysis{}, nil
			}

			snapshot := aggregates[0].lastInvoice
			for _, agg := range aggregates[1:] {
				if agg.lastInvoice.After(snapshot) {
					snapshot = agg.lastInvoice
				}
			}
			snapshot = snapshot.AddDate(0, 0, 1)

			recency := make([]float64, len(aggregates))
			frequency := make([]float64, len(aggregates))
			monetary := make([]float64, len(aggregates))
			for i, agg := range aggregates {
				recency[i] = float64(int(snapshot.Sub(agg.lastInvoice).Hours() / 24))
				frequency[i] = float64(len(agg.invoices))
				monetary[i] = agg.monetary
			}

			rScores := QuantileBin(recency, e.maxScore, ScoreLabelsDesc(e.maxScore))
			fScores := QuantileBin(frequency, e.maxScore, ScoreLabelsAsc(e.maxScore))
			mScores := QuantileBin(monetary, e.maxScore, ScoreLabelsAsc(e.maxScore))

			results := make([]domain.RFMAnalysis, len(aggregates))
			for i, agg := range aggregates {
				results[i] = domain.RFMAnalysis{
					CustomerID:  agg.customerID,
					Recency:     rScores[i],
					Frequency:   fScores[i],
					Monetary:    mScores[i],
					SegmentName: e.segments.Segment(rScores[i], fScores[i], mScores[i], e.maxScore),
					TotalSpend:  agg.monetary,
				}
			}
			return results, nil
		})
}

// RFMPage sorts the full RFM result descending by total spend, then
// frequency, and paginates it.
func (e *Engine) RFMPage(ctx context.Context, params domain.PageParams) (domain.Page[domain.RFMAnalysis], error) {
	params = params.Normalize()

	key := cache.Key("customers.rfm_page", params.Page, params.Limit)
	return cache.Cached(ctx, e.Store(), key, e.ResultTTL(),
		func(ctx context.Context) (domain.Page[domain.RFMAnalysis], error) {
			all, err := e.RFMAnalysis(ctx)
			if err != nil {
				return domain.Page[domain.RFMAnalysis]{}, err
			}

			ranked := append([]domain.RFMAnalysis(nil), all...)
			sort.SliceStable(ranked, func(i, j int) bool {
				if ranked[i].TotalSpend != ranked[j].TotalSpend {
					return ranked[i].TotalSpend > ranked[j].TotalSpend
				}
				return ranked[i].Frequency > ranked[j].Frequency
			})

			return domain.NewPage(ranked, params), nil
		})
}

type customerAggregate struct {
	customerID  string
	lastInvoice time.Time
	invoices    map[string]struct{}
	quantity    float64
	monetary    float64
}

// aggregateCustomers groups the dataset by customer id, ordered by id so
// downstream scoring is deterministic.
func (e *Engine) aggregateCustomers(ctx context.Context) ([]*customerAggregate, error) {
	dataset, err := e.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*customerAggregate)
	for _, tx := range dataset.Transactions {
		agg := grouped[tx.CustomerID]
		if agg == nil {
			agg = &customerAggregate{
				customerID: tx.CustomerID,
				invoices:   make(map[string]struct{}),
			}
			grouped[tx.CustomerID] = agg
		}
		if tx.InvoiceDate.After(agg.lastInvoice) {
			agg.lastInvoice = tx.InvoiceDate
		}
		agg.invoices[tx.InvoiceNo] = struct{}{}
		agg.quantity += tx.Quantity
		agg.monetary += tx.TotalPrice
	}

	aggregates := make([]*customerAggregate, 0, len(grouped))
	for _, agg := range grouped {
		aggregates = append(aggregates, agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].customerID < aggregates[j].customerID
	})
	return aggregates, nil
}
