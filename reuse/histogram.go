package reuse

import (
	"cmp"
	"slices"
)

// Number is the set of value types a Histogram can accumulate.
type Number interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64 | ~float32 | ~float64
}

// RankAll asks Rank for every bin.
const RankAll = -1

// Pair is one (bin, total) entry of a ranked histogram.
type Pair[B cmp.Ordered, V Number] struct {
	Bin   B `yaml:"bin" json:"bin"`
	Total V `yaml:"total" json:"total"`
}

// Histogram maps bins to accumulated totals. Bins are created lazily on
// first increment.
type Histogram[B cmp.Ordered, V Number] struct {
	bins map[B]V
}

// NewHistogram creates an empty Histogram.
func NewHistogram[B cmp.Ordered, V Number]() *Histogram[B, V] {
	return &Histogram[B, V]{bins: make(map[B]V)}
}

// Increment adds amount to the total of bin and returns the new total.
func (h *Histogram[B, V]) Increment(bin B, amount V) V {
	h.bins[bin] += amount
	return h.bins[bin]
}

// Get returns the total of bin, or zero if the bin is absent.
func (h *Histogram[B, V]) Get(bin B) V {
	return h.bins[bin]
}

// Set overwrites the total of bin.
func (h *Histogram[B, V]) Set(bin B, total V) {
	h.bins[bin] = total
}

// Size returns the number of distinct bins.
func (h *Histogram[B, V]) Size() int {
	return len(h.bins)
}

// Total returns the sum over all bins.
func (h *Histogram[B, V]) Total() V {
	var sum V
	for _, v := range h.bins {
		sum += v
	}
	return sum
}

// Merge adds every bin of other into h.
func (h *Histogram[B, V]) Merge(other *Histogram[B, V]) {
	if other == nil {
		return
	}
	for b, v := range other.bins {
		h.bins[b] += v
	}
}

// Bins returns all pairs in ascending bin order.
func (h *Histogram[B, V]) Bins() []Pair[B, V] {
	pairs := h.pairs()
	slices.SortFunc(pairs, func(x, y Pair[B, V]) int {
		return cmp.Compare(x.Bin, y.Bin)
	})
	return pairs
}

// Rank returns pairs sorted by total, highest first. Equal totals are ordered
// by ascending bin. A positive limit smaller than Size truncates the result;
// limit <= 0 returns every bin.
func (h *Histogram[B, V]) Rank(limit int) []Pair[B, V] {
	pairs := h.pairs()
	slices.SortFunc(pairs, func(x, y Pair[B, V]) int {
		if c := cmp.Compare(y.Total, x.Total); c != 0 {
			return c
		}
		return cmp.Compare(x.Bin, y.Bin)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func (h *Histogram[B, V]) pairs() []Pair[B, V] {
	pairs := make([]Pair[B, V], 0, len(h.bins))
	for b, v := range h.bins {
		pairs = append(pairs, Pair[B, V]{Bin: b, Total: v})
	}
	return pairs
}
