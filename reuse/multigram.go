package reuse

import (
	"cmp"
	"slices"
)

// SourceLocation identifies the code location an access originated from.
type SourceLocation struct {
	ThreadID int64  `yaml:"thread_id"`
	Function uint64 `yaml:"function"` // function address
	Line     int64  `yaml:"line"`
}

// Located pairs a histogram with the location it belongs to.
type Located[B cmp.Ordered, V Number] struct {
	Location  SourceLocation
	Histogram *Histogram[B, V]
}

// Multigram keeps one Histogram per SourceLocation, created on first use.
type Multigram[B cmp.Ordered, V Number] struct {
	hists map[SourceLocation]*Histogram[B, V]
}

// NewMultigram creates an empty Multigram.
func NewMultigram[B cmp.Ordered, V Number]() *Multigram[B, V] {
	return &Multigram[B, V]{hists: make(map[SourceLocation]*Histogram[B, V])}
}

// Histogram returns the histogram for loc, creating it if needed.
func (m *Multigram[B, V]) Histogram(loc SourceLocation) *Histogram[B, V] {
	h, ok := m.hists[loc]
	if !ok {
		h = NewHistogram[B, V]()
		m.hists[loc] = h
	}
	return h
}

// Increment adds amount to bin of the histogram at loc and returns the new total.
func (m *Multigram[B, V]) Increment(loc SourceLocation, bin B, amount V) V {
	return m.Histogram(loc).Increment(bin, amount)
}

// Get returns the total of bin at loc without creating a histogram.
func (m *Multigram[B, V]) Get(loc SourceLocation, bin B) V {
	if h, ok := m.hists[loc]; ok {
		return h.Get(bin)
	}
	var zero V
	return zero
}

// Set overwrites the total of bin at loc.
func (m *Multigram[B, V]) Set(loc SourceLocation, bin B, total V) {
	m.Histogram(loc).Set(bin, total)
}

// Len returns the number of locations with a histogram.
func (m *Multigram[B, V]) Len() int {
	return len(m.hists)
}

// Histograms returns every histogram ordered by thread, function and line.
func (m *Multigram[B, V]) Histograms() []Located[B, V] {
	out := make([]Located[B, V], 0, len(m.hists))
	for loc, h := range m.hists {
		out = append(out, Located[B, V]{Location: loc, Histogram: h})
	}
	slices.SortFunc(out, func(x, y Located[B, V]) int {
		return cmp.Or(
			cmp.Compare(x.Location.ThreadID, y.Location.ThreadID),
			cmp.Compare(x.Location.Function, y.Location.Function),
			cmp.Compare(x.Location.Line, y.Location.Line),
		)
	})
	return out
}
