package reuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func exampleHistogram() *Histogram[int, int] {
	h := NewHistogram[int, int]()
	h.Increment(13, 20)
	h.Increment(3, 15)
	h.Increment(13, 10)
	h.Increment(3, 20)
	return h
}

func TestHistogram_Increment_ReturnsRunningTotal(t *testing.T) {
	h := NewHistogram[int, int]()
	assert.Equal(t, 20, h.Increment(13, 20))
	assert.Equal(t, 15, h.Increment(3, 15))
	assert.Equal(t, 30, h.Increment(13, 10))
	assert.Equal(t, 35, h.Increment(3, 20))
	assert.Equal(t, 2, h.Size())
}

func TestHistogram_Rank_DescendingByTotal(t *testing.T) {
	h := exampleHistogram()
	assert.Equal(t, []Pair[int, int]{{Bin: 3, Total: 35}, {Bin: 13, Total: 30}}, h.Rank(RankAll))
}

func TestHistogram_Rank_Limit(t *testing.T) {
	h := exampleHistogram()
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"one", 1, 1},
		{"zero-means-all", 0, 2},
		{"negative-means-all", -1, 2},
		{"exact", 2, 2},
		{"larger-than-size", 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, h.Rank(tt.limit), tt.want)
		})
	}
	assert.Equal(t, []Pair[int, int]{{Bin: 3, Total: 35}}, h.Rank(1))
}

func TestHistogram_Rank_TiesByAscendingBin(t *testing.T) {
	h := NewHistogram[uint64, int64]()
	for _, b := range []uint64{7, 2, 9, 5} {
		h.Increment(b, 1)
	}
	h.Increment(9, 1)

	assert.Equal(t, []Pair[uint64, int64]{
		{Bin: 9, Total: 2},
		{Bin: 2, Total: 1},
		{Bin: 5, Total: 1},
		{Bin: 7, Total: 1},
	}, h.Rank(RankAll))
}

func TestHistogram_Rank_Empty(t *testing.T) {
	h := NewHistogram[int, int]()
	assert.Empty(t, h.Rank(RankAll))
	assert.Empty(t, h.Rank(3))
}

func TestHistogram_GetSetTotal(t *testing.T) {
	h := NewHistogram[string, float64]()
	assert.Equal(t, 0.0, h.Get("absent"))
	assert.Equal(t, 0, h.Size(), "Get must not create bins")

	h.Set("a", 1.5)
	h.Increment("b", 2.25)
	h.Set("a", 0.5)

	assert.Equal(t, 0.5, h.Get("a"))
	assert.Equal(t, 2.75, h.Total())
}

func TestHistogram_Merge_SumsBins(t *testing.T) {
	a := NewHistogram[int, int]()
	a.Increment(1, 2)
	a.Increment(2, 3)
	b := NewHistogram[int, int]()
	b.Increment(2, 4)
	b.Increment(5, 1)

	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, []Pair[int, int]{{1, 2}, {2, 7}, {5, 1}}, a.Bins())
	assert.Equal(t, 2, b.Size(), "merge must not modify its argument")
}
