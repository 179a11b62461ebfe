// Package metrics computes aggregate business metrics over the cleaned
// transaction dataset.
package metrics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/opensource-commerce/kestrel/internal/cache"
	"github.com/opensource-commerce/kestrel/internal/cleaner"
	"github.com/opensource-commerce/kestrel/internal/domain"
)

// Engine answers KPI, time-series, ranking and pagination queries.
// Dataset access goes through the cache-aside dataset cache; individual
// query results are memoized per call signature with the result TTL.
type Engine struct {
	source    domain.RawTransactionSource
	cleaner   *cleaner.Cleaner
	datasets  *cache.DatasetCache
	store     domain.Cache
	resultTTL time.Duration
	currency  string
}

// NewEngine creates a metrics engine.
func NewEngine(source domain.RawTransactionSource, store domain.Cache, cfg domain.MetricsConfig) *Engine {
	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Engine{
		source:    source,
		cleaner:   cleaner.New(),
		datasets:  cache.NewDatasetCache(store, cfg.DatasetTTL),
		store:     store,
		resultTTL: cfg.ResultTTL,
		currency:  currency,
	}
}

// Dataset returns the cleaned dataset via the cache-aside path.
func (e *Engine) Dataset(ctx context.Context) (*domain.Dataset, error) {
	return e.datasets.GetOrCompute(ctx, e.build)
}

// WarmUp force-computes and stores the cleaned dataset, bypassing the lazy
// path. Intended for the out-of-band scheduled refresh.
func (e *Engine) WarmUp(ctx context.Context) error {
	return e.datasets.WarmUp(ctx, e.build)
}

// FlushCache clears the whole cache namespace: the dataset and every
// memoized result.
func (e *Engine) FlushCache(ctx context.Context) error {
	return e.store.FlushAll(ctx)
}

func (e *Engine) build(ctx context.Context) (*domain.Dataset, error) {
	raw, err := e.source.GetRawTransactions(ctx, 0)
	if err != nil {
		return nil, err
	}
	return e.cleaner.Clean(raw)
}

// KPISummary reduces the whole table: revenue sum, quantity sum and mean.
func (e *Engine) KPISummary(ctx context.Context) (domain.KPISummary, error) {
	return cache.Cached(ctx, e.store, cache.Key("metrics.kpi_summary"), e.resultTTL,
		func(ctx context.Context) (domain.KPISummary, error) {
			dataset, err := e.Dataset(ctx)
			if err != nil {
				return domain.KPISummary{}, err
			}

			var revenue, quantity float64
			for _, tx := range dataset.Transactions {
				revenue += tx.TotalPrice
				quantity += tx.Quantity
			}

			average := 0.0
			if n := dataset.Len(); n > 0 {
				average = quantity / float64(n)
			}

			return domain.KPISummary{
				TotalRevenue:             revenue,
				TotalProductsSold:        int64(quantity),
				AverageTotalProductsSold: average,
				Currency:                 e.currency,
			}, nil
		})
}

// Series resamples the table by the chosen calendar bucket. Buckets between
// the first and last period are contiguous; empty ones carry zero revenue.
// GrowthRate is the percent revenue change versus the prior bucket, with the
// first bucket and any undefined or infinite change normalized to 0.
func (e *Engine) Series(ctx context.Context, serieType domain.SerieType) ([]domain.Serie, error) {
	if !serieType.Valid() {
		return nil, domain.BadRequestf("invalid serie type %q", serieType)
	}

	return cache.Cached(ctx, e.store, cache.Key("metrics.series", serieType), e.resultTTL,
		func(ctx context.Context) ([]domain.Serie, error) {
			dataset, err := e.Dataset(ctx)
			if err != nil {
				return nil, err
			}
			return e.resample(dataset, serieType), nil
		})
}

type bucketAgg struct {
	revenue  float64
	quantity float64
}

func (e *Engine) resample(dataset *domain.Dataset, serieType domain.SerieType) []domain.Serie {
	if dataset.Len() == 0 {
		return []domain.Serie{}
	}

	buckets := make(map[time.Time]*bucketAgg)
	for _, tx := range dataset.Transactions {
		label := bucketLabel(tx.InvoiceDate, serieType)
		agg := buckets[label]
		if agg == nil {
			agg = &bucketAgg{}
			buckets[label] = agg
		}
		agg.revenue += tx.TotalPrice
		agg.quantity += tx.Quantity
	}

	// The table is date-ordered, so first and last rows bound the series.
	first := bucketLabel(dataset.Transactions[0].InvoiceDate, serieType)
	last := bucketLabel(dataset.Transactions[dataset.Len()-1].InvoiceDate, serieType)

	series := make([]domain.Serie, 0, len(buckets))
	prevRevenue := 0.0
	for label := first; !label.After(last); label = nextBucket(label, serieType) {
		var revenue, quantity float64
		if agg := buckets[label]; agg != nil {
			revenue = agg.revenue
			quantity = agg.quantity
		}

		growth := 0.0
		if len(series) > 0 && prevRevenue != 0 {
			growth = (revenue - prevRevenue) / prevRevenue * 100
		}

		series = append(series, domain.Serie{
			Period:       label.Format("2006-01-02"),
			Revenue:      revenue,
			ProductsSold: int64(quantity),
			GrowthRate:   growth,
			Currency:     e.currency,
		})
		prevRevenue = revenue
	}
	return series
}

// bucketLabel maps a timestamp to its bucket label date: the day itself, the
// Sunday ending the week, the last day of the month, or December 31.
func bucketLabel(t time.Time, serieType domain.SerieType) time.Time {
	t = t.UTC()
	switch serieType {
	case domain.SerieWeek:
		days := (7 - int(t.Weekday())) % 7
		return time.Date(t.Year(), t.Month(), t.Day()+days, 0, 0, 0, 0, time.UTC)
	case domain.SerieMonth:
		return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	case domain.SerieYear:
		return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func nextBucket(label time.Time, serieType domain.SerieType) time.Time {
	switch serieType {
	case domain.SerieWeek:
		return label.AddDate(0, 0, 7)
	case domain.SerieMonth:
		// label is a month end; step to the next month end.
		return time.Date(label.Year(), label.Month()+2, 0, 0, 0, 0, 0, time.UTC)
	case domain.SerieYear:
		return label.AddDate(1, 0, 0)
	default:
		return label.AddDate(0, 0, 1)
	}
}

// TopCountries groups by country, sums revenue and quantity, sorts by the
// requested field and direction, and takes the limit.
func (e *Engine) TopCountries(ctx context.Context, params domain.RankParams) ([]domain.CountryRevenue, error) {
	params = normalizeRank(params)
	if params.SortValue != domain.SortByRevenue && params.SortValue != domain.SortByProductsSold {
		return nil, domain.BadRequestf("invalid sort value %q", params.SortValue)
	}

	key := cache.Key("metrics.top_countries", params.Limit, params.Ascending, params.SortValue)
	return cache.Cached(ctx, e.store, key, e.resultTTL,
		func(ctx context.Context) ([]domain.CountryRevenue, error) {
			dataset, err := e.Dataset(ctx)
			if err != nil {
				return nil, err
			}

			grouped := make(map[string]*bucketAgg)
			for _, tx := range dataset.Transactions {
				agg := grouped[tx.Country]
				if agg == nil {
					agg = &bucketAgg{}
					grouped[tx.Country] = agg
				}
				agg.revenue += tx.TotalPrice
				agg.quantity += tx.Quantity
			}

			countries := make([]domain.CountryRevenue, 0, len(grouped))
			for country, agg := range grouped {
				countries = append(countries, domain.CountryRevenue{
					Country:      country,
					Revenue:      agg.revenue,
					ProductsSold: int64(agg.quantity),
					Currency:     e.currency,
				})
			}

			// Name order first keeps ties deterministic.
			sort.Slice(countries, func(i, j int) bool {
				return countries[i].Country < countries[j].Country
			})
			sort.SliceStable(countries, func(i, j int) bool {
				var less bool
				if params.SortValue == domain.SortByProductsSold {
					less = countries[i].ProductsSold < countries[j].ProductsSold
				} else {
					less = countries[i].Revenue < countries[j].Revenue
				}
				if params.Ascending {
					return less
				}
				return !less
			})

			if len(countries) > params.Limit {
				countries = countries[:params.Limit]
			}
			return countries, nil
		})
}

// CountryByName aggregates a single country. Fails with a bad request on a
// blank name and with not found when the country has zero transactions in
// the cleaned table.
func (e *Engine) CountryByName(ctx context.Context, name string) (domain.CountryRevenue, error) {
	if strings.TrimSpace(name) == "" {
		return domain.CountryRevenue{}, domain.BadRequestf("country name is required")
	}

	return cache.Cached(ctx, e.store, cache.Key("metrics.country", name), e.resultTTL,
		func(ctx context.Context) (domain.CountryRevenue, error) {
			dataset, err := e.Dataset(ctx)
			if err != nil {
				return domain.CountryRevenue{}, err
			}

			found := false
			result := domain.CountryRevenue{Country: name, Currency: e.currency}
			var quantity float64
			for _, tx := range dataset.Transactions {
				if tx.Country != name {
					continue
				}
				found = true
				result.Revenue += tx.TotalPrice
				quantity += tx.Quantity
			}
			if !found {
				return domain.CountryRevenue{}, domain.CountryNotFound(name)
			}

			result.ProductsSold = int64(quantity)
			return result, nil
		})
}

// TopProducts groups by stock code, sums revenue and units, sorts and takes
// the limit.
func (e *Engine) TopProducts(ctx context.Context, params domain.RankParams) ([]domain.ProductRevenue, error) {
	params = normalizeRank(params)
	if params.SortValue != domain.SortByRevenue && params.SortValue != domain.SortByProductsSold {
		return nil, domain.BadRequestf("invalid sort value %q", params.SortValue)
	}

	key := cache.Key("metrics.top_products", params.Limit, params.Ascending, params.SortValue)
	return cache.Cached(ctx, e.store, key, e.resultTTL,
		func(ctx context.Context) ([]domain.ProductRevenue, error) {
			dataset, err := e.Dataset(ctx)
			if err != nil {
				return nil, err
			}

			grouped := make(map[string]*bucketAgg)
			for _, tx := range dataset.Transactions {
				agg := grouped[tx.StockCode]
				if agg == nil {
					agg = &bucketAgg{}
					grouped[tx.StockCode] = agg
				}
				agg.revenue += tx.TotalPrice
				agg.quantity += tx.Quantity
			}

			products := make([]domain.ProductRevenue, 0, len(grouped))
			for code, agg := range grouped {
				products = append(products, domain.ProductRevenue{
					ProductID:      code,
					TotalRevenue:   agg.revenue,
					TotalUnitsSold: int64(agg.quantity),
					Currency:       e.currency,
				})
			}

			sort.Slice(products, func(i, j int) bool {
				return products[i].ProductID < products[j].ProductID
			})
			sort.SliceStable(products, func(i, j int) bool {
				var less bool
				if params.SortValue == domain.SortByProductsSold {
					less = products[i].TotalUnitsSold < products[j].TotalUnitsSold
				} else {
					less = products[i].TotalRevenue < products[j].TotalRevenue
				}
				if params.Ascending {
					return less
				}
				return !less
			})

			if len(products) > params.Limit {
				products = products[:params.Limit]
			}
			return products, nil
		})
}

// Rows returns an offset/limit slice of the cleaned rows.
func (e *Engine) Rows(ctx context.Context, params domain.PageParams) (domain.Page[domain.Transaction], error) {
	params = params.Normalize()

	key := cache.Key("metrics.page", params.Page, params.Limit)
	return cache.Cached(ctx, e.store, key, e.resultTTL,
		func(ctx context.Context) (domain.Page[domain.Transaction], error) {
			dataset, err := e.Dataset(ctx)
			if err != nil {
				return domain.Page[domain.Transaction]{}, err
			}
			return domain.NewPage(dataset.Transactions, params), nil
		})
}

// Currency reports the configured reporting currency.
func (e *Engine) Currency() string {
	return e.currency
}

// ResultTTL reports the memoization TTL, shared with the customer engine.
func (e *Engine) ResultTTL() time.Duration {
	return e.resultTTL
}

// Store exposes the cache store, shared with the customer engine.
func (e *Engine) Store() domain.Cache {
	return e.store
}

func normalizeRank(params domain.RankParams) domain.RankParams {
	if params.Limit <= 0 {
		params.Limit = 10
	}
	if params.SortValue == "" {
		params.SortValue = domain.SortByRevenue
	}
	return params
}
