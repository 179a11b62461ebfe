package customer

import (
	"math"
	"sort"
)

// QuantileBin partitions values into q equal-population buckets and assigns
// each element the ordinal label of its bucket.
//
// Degeneracy policy: a measure with at most one distinct value gives every
// element the middle label. When low cardinality collapses quantile cut
// points, duplicate bin edges are dropped and the remaining bins map onto a
// prefix of the label list in order. An element that still cannot be placed
// scores 0.
func QuantileBin(values []float64, q int, labels []int) []int {
	n := len(values)
	if n == 0 || q <= 0 || len(labels) == 0 {
		return []int{}
	}

	if distinct(values) <= 1 {
		mid := labels[len(labels)/2]
		scores := make([]int, n)
		for i := range scores {
			scores[i] = mid
		}
		return scores
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	// q+1 cut points at evenly spaced probabilities, duplicates dropped.
	edges := make([]float64, 0, q+1)
	for i := 0; i <= q; i++ {
		edge := quantile(sorted, float64(i)/float64(q))
		if len(edges) == 0 || edge > edges[len(edges)-1] {
			edges = append(edges, edge)
		}
	}

	bins := len(edges) - 1
	if bins > len(labels) {
		bins = len(labels)
	}

	scores := make([]int, n)
	for i, v := range values {
		bin := placeBin(edges, v)
		if bin >= 0 && bin < bins {
			scores[i] = labels[bin]
		}
	}
	return scores
}

// placeBin finds the right-closed interval (edges[i], edges[i+1]] holding v,
// with the first interval closed on both ends.
func placeBin(edges []float64, v float64) int {
	if v < edges[0] || v > edges[len(edges)-1] {
		return -1
	}
	// Smallest upper edge >= v.
	idx := sort.SearchFloat64s(edges[1:], v)
	if idx > len(edges)-2 {
		idx = len(edges) - 2
	}
	return idx
}

// quantile computes the p-quantile of sorted values with linear
// interpolation between order statistics.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// ScoreLabelsDesc returns [max..1]: the first (lowest-valued) bucket gets
// the highest score. Used for recency, where smaller is better.
func ScoreLabelsDesc(maxScore int) []int {
	labels := make([]int, 0, maxScore)
	for i := maxScore; i >= 1; i-- {
		labels = append(labels, i)
	}
	return labels
}

// ScoreLabelsAsc returns [1..max]: the highest-valued bucket gets the
// highest score. Used for frequency and monetary.
func ScoreLabelsAsc(maxScore int) []int {
	labels := make([]int, 0, maxScore)
	for i := 1; i <= maxScore; i++ {
		labels = append(labels, i)
	}
	return labels
}
