package domain

// PageParams bound an offset/limit query. Pages are 1-indexed.
type PageParams struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps the params to page >= 1 and 1 <= limit <= 100.
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the zero-based index of the first row on the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is the uniform pagination envelope.
type Page[T any] struct {
	Results      []T `json:"results"`
	Page         int `json:"page"`
	Limit        int `json:"limit"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// NewPage slices results for the given params and fills the envelope.
// TotalPages is ceil(total/limit), 0 for an empty result set.
func NewPage[T any](all []T, params PageParams) Page[T] {
	params = params.Normalize()

	total := len(all)
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}

	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}

	results := make([]T, end-start)
	copy(results, all[start:end])

	return Page[T]{
		Results:      results,
		Page:         params.Page,
		Limit:        params.Limit,
		TotalPages:   totalPages,
		TotalResults: total,
	}
}
