package domain

import "testing"

func TestPageParamsNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   PageParams
		want PageParams
	}{
		{"Defaults", PageParams{}, PageParams{Page: 1, Limit: 10}},
		{"NegativePage", PageParams{Page: -3, Limit: 5}, PageParams{Page: 1, Limit: 5}},
		{"LimitCap", PageParams{Page: 2, Limit: 500}, PageParams{Page: 2, Limit: 100}},
		{"Valid", PageParams{Page: 4, Limit: 25}, PageParams{Page: 4, Limit: 25}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	t.Run("FirstPage", func(t *testing.T) {
		page := NewPage(items, PageParams{Page: 1, Limit: 3})
		if len(page.Results) != 3 || page.Results[0] != 1 {
			t.Errorf("unexpected results: %v", page.Results)
		}
		if page.TotalPages != 3 || page.TotalResults != 7 {
			t.Errorf("expected 7 results over 3 pages, got %d over %d", page.TotalResults, page.TotalPages)
		}
	})

	t.Run("LastPartialPage", func(t *testing.T) {
		page := NewPage(items, PageParams{Page: 3, Limit: 3})
		if len(page.Results) != 1 || page.Results[0] != 7 {
			t.Errorf("unexpected results: %v", page.Results)
		}
	})

	t.Run("PageBeyondEnd", func(t *testing.T) {
		page := NewPage(items, PageParams{Page: 9, Limit: 3})
		if len(page.Results) != 0 {
			t.Errorf("expected empty results, got %v", page.Results)
		}
		if page.TotalPages != 3 {
			t.Errorf("expected total pages 3, got %d", page.TotalPages)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		page := NewPage([]int{}, PageParams{Page: 1, Limit: 10})
		if page.TotalPages != 0 || page.TotalResults != 0 {
			t.Errorf("expected zeroed envelope, got pages=%d results=%d", page.TotalPages, page.TotalResults)
		}
		if page.Results == nil || len(page.Results) != 0 {
			t.Errorf("expected empty non-nil results, got %v", page.Results)
		}
	})

	t.Run("ExactMultiple", func(t *testing.T) {
		page := NewPage([]int{1, 2, 3, 4}, PageParams{Page: 1, Limit: 2})
		if page.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", page.TotalPages)
		}
	})
}
