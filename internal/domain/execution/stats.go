package execution

import (
	"math"
	"sort"
)

// MetricStats summarizes one metric over a set of trials.
type MetricStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
}

// Summary aggregates the trials of one query at one temporal/spatial point.
type Summary struct {
	Query         string      `json:"query"`
	TemporalRange int         `json:"temporal_range"`
	SpatialRange  string      `json:"spatial_range"`
	Elapsed       MetricStats `json:"elapsed_ms"`
	Memory        MetricStats `json:"memory_mb"`
	Rows          int         `json:"rows"`
}

// Summarize groups trials by query, temporal range and spatial range, in
// first-seen order.
func Summarize(trials []Trial) []Summary {
	type key struct {
		query    string
		temporal int
		spatial  string
	}
	var order []key
	groups := make(map[key][]Trial)
	for _, t := range trials {
		k := key{t.Query, t.TemporalRange, t.SpatialLabel()}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		g := groups[k]
		elapsed := make([]float64, len(g))
		memory := make([]float64, len(g))
		for i, t := range g {
			elapsed[i] = t.ElapsedMs
			memory[i] = t.MemoryMB
		}
		out = append(out, Summary{
			Query:         k.query,
			TemporalRange: k.temporal,
			SpatialRange:  k.spatial,
			Elapsed:       CalculateStats(elapsed),
			Memory:        CalculateStats(memory),
			Rows:          g[len(g)-1].Rows,
		})
	}
	return out
}

// CalculateStats computes mean, sample standard deviation, extremes and
// percentiles of values.
func CalculateStats(values []float64) MetricStats {
	n := len(values)
	if n == 0 {
		return MetricStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	stats := MetricStats{
		N:   n,
		Min: sorted[0],
		Max: sorted[n-1],
		P50: Percentile(sorted, 50),
		P95: Percentile(sorted, 95),
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(n)

	if n > 1 {
		var varianceSum float64
		for _, v := range values {
			diff := v - stats.Mean
			varianceSum += diff * diff
		}
		stats.StdDev = math.Sqrt(varianceSum / float64(n-1))
	}

	return stats
}

// Percentile interpolates linearly between the closest ranks of sorted.
func Percentile(sorted []float64, percentile float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	index := (percentile / 100.0) * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
