package reuse

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the finite part of a reuse-distance histogram.
type Stats struct {
	Samples float64 `yaml:"samples"`
	Mean    float64 `yaml:"mean"`
	StdDev  float64 `yaml:"stddev"`
	P50     float64 `yaml:"p50"`
	P90     float64 `yaml:"p90"`
	P99     float64 `yaml:"p99"`
	Max     float64 `yaml:"max"`
}

// Summarize computes weighted statistics over every bin below overflowBin.
// Bins at or above overflowBin (cold and invalidated accesses) are excluded.
// An empty or all-overflow histogram yields zero Stats.
func Summarize[V Number](h *Histogram[uint64, V], overflowBin uint64) Stats {
	var xs, ws []float64
	for _, p := range h.Bins() {
		if p.Bin >= overflowBin || p.Total <= 0 {
			continue
		}
		xs = append(xs, float64(p.Bin))
		ws = append(ws, float64(p.Total))
	}
	if len(xs) == 0 {
		return Stats{}
	}

	// xs is ascending: Bins sorts by bin.
	s := Stats{
		Samples: floats.Sum(ws),
		Mean:    stat.Mean(xs, ws),
		P50:     stat.Quantile(0.50, stat.Empirical, xs, ws),
		P90:     stat.Quantile(0.90, stat.Empirical, xs, ws),
		P99:     stat.Quantile(0.99, stat.Empirical, xs, ws),
		Max:     xs[len(xs)-1],
	}
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, ws)
	}
	return s
}

// MissRatioPoint is one point of an approximate miss-ratio curve.
type MissRatioPoint struct {
	CacheLines uint64  `yaml:"cache_lines"`
	MissRatio  float64 `yaml:"miss_ratio"`
}

// MissRatioCurve estimates, for each fully-associative LRU cache size in
// lines, the fraction of accesses that would miss: those whose reuse distance
// is at least the cache size. Overflow bins always count as misses.
// Sequential distances overestimate stack distances, so the curve is an
// upper bound.
func MissRatioCurve[V Number](h *Histogram[uint64, V], overflowBin uint64, sizes []uint64) []MissRatioPoint {
	bins := h.Bins()
	var total float64
	for _, p := range bins {
		total += float64(p.Total)
	}

	curve := make([]MissRatioPoint, 0, len(sizes))
	for _, size := range sizes {
		var misses float64
		for _, p := range bins {
			if p.Bin >= overflowBin || p.Bin >= size {
				misses += float64(p.Total)
			}
		}
		ratio := 0.0
		if total > 0 {
			ratio = misses / total
		}
		curve = append(curve, MissRatioPoint{CacheLines: size, MissRatio: ratio})
	}
	return curve
}
