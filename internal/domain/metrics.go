package domain

// KPISummary is the whole-table revenue reduction.
type KPISummary struct {
	TotalRevenue             float64 `json:"total_revenue"`
	TotalProductsSold        int64   `json:"total_products_sold"`
	AverageTotalProductsSold float64 `json:"average_total_products_sold"`
	Currency                 string  `json:"currency"`
}

// Serie is one calendar bucket of the resampled revenue series.
type Serie struct {
	Period       string  `json:"period"` // YYYY-MM-DD
	Revenue      float64 `json:"revenue"`
	ProductsSold int64   `json:"products_sold"`
	GrowthRate   float64 `json:"growth_rate"` // percent change vs previous bucket
	Currency     string  `json:"currency"`
}

// SerieType selects the resampling bucket for time series.
type SerieType string

const (
	SerieDay   SerieType = "day"
	SerieWeek  SerieType = "week"
	SerieMonth SerieType = "month"
	SerieYear  SerieType = "year"
)

// Valid reports whether the serie type is one of the supported buckets.
func (s SerieType) Valid() bool {
	switch s {
	case SerieDay, SerieWeek, SerieMonth, SerieYear:
		return true
	}
	return false
}

// CountryRevenue is one row of the per-country aggregate.
type CountryRevenue struct {
	Country      string  `json:"country"`
	Revenue      float64 `json:"revenue"`
	ProductsSold int64   `json:"products_sold"`
	Currency     string  `json:"currency"`
}

// ProductRevenue is one row of the per-product aggregate.
type ProductRevenue struct {
	ProductID      string  `json:"product_id"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalUnitsSold int64   `json:"total_units_sold"`
	Currency       string  `json:"currency"`
}

// Spender is the per-customer spending aggregate.
type Spender struct {
	CustomerID     string  `json:"customer_id"`
	TotalSpent     float64 `json:"total_spent"`
	TotalUnitsSold int64   `json:"total_units_sold"`
	TotalSells     int64   `json:"total_sells"` // distinct invoices
}

// RFMAnalysis holds one customer's recency/frequency/monetary scores.
// Scores run 1..maxScore; TotalSpend is the raw monetary sum, not the score.
type RFMAnalysis struct {
	CustomerID  string  `json:"customer_id"`
	Recency     int     `json:"recency"`
	Frequency   int     `json:"frequency"`
	Monetary    int     `json:"monetary"`
	SegmentName string  `json:"segment_name"`
	TotalSpend  float64 `json:"total_spend"`
}

// Customer segment names produced by the RFM decision table.
const (
	SegmentChampions     = "Champions"
	SegmentLoyalties     = "Loyalties"
	SegmentAlmostLost    = "Almost Lost"
	SegmentNeedAttention = "Need Attention"
	SegmentEnRisk        = "En Risk"
	SegmentRecents       = "Recents"
	SegmentSleeper       = "Sleeper"
)

// SortValue selects the ranking field for country and product aggregates.
type SortValue string

const (
	SortByRevenue      SortValue = "revenue"
	SortByProductsSold SortValue = "products_sold"
)

// RankParams bound a top-N aggregate query.
type RankParams struct {
	Limit     int       `json:"limit"`
	Ascending bool      `json:"ascending"`
	SortValue SortValue `json:"sort_value"`
}

// DefaultRankParams returns the default ranking: top 10 by revenue, descending.
func DefaultRankParams() RankParams {
	return RankParams{Limit: 10, Ascending: false, SortValue: SortByRevenue}
}

// SegmentRule is one row of the RFM segment decision table: a CEL expression
// over the score variables r, f, m and max_score. Rules are evaluated in
// ascending Priority order; the first rule whose expression is true wins.
type SegmentRule struct {
	Name       string `json:"name"`
	Segment    string `json:"segment"`
	Expression string `json:"expression"`
	Priority   int    `json:"priority"`
}
