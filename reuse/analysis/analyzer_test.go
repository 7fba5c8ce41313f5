package analysis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/reuse-profiler/reuse"
	"github.com/inference-sim/reuse-profiler/reuse/internal/testutil"
	"github.com/inference-sim/reuse-profiler/reuse/trace"
)

// accesses builds segment-0 records for one core and stream.
func accesses(core, stream int, addrs ...uint64) []trace.MemAccess {
	out := make([]trace.MemAccess, len(addrs))
	for i, a := range addrs {
		out[i] = trace.MemAccess{CoreID: core, VarIdx: stream, Address: a, ReadWrite: trace.AccessRead, TypeSize: 8}
	}
	return out
}

func run(t *testing.T, cfg Config, header *trace.Header, recs []trace.MemAccess) *Result {
	t.Helper()
	a, err := NewAnalyzer(cfg, header)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, a.Record(r))
	}
	res, err := a.Close()
	require.NoError(t, err)
	return res
}

const (
	lineA = 0x1000
	lineB = 0x1040
	lineC = 0x1080
)

func TestAnalyzer_SingleCore_BinsColdAtInfinity(t *testing.T) {
	// GIVEN lines A, B, C, A on one core
	header := &trace.Header{Streams: []string{"a"}}
	res := run(t, DefaultConfig(), header, accesses(0, 0, lineA, lineB, lineC, lineA))

	// THEN three cold misses land in the overflow bin and one reuse at distance 2
	s := res.Stream("a")
	require.NotNil(t, s)
	assert.Equal(t, []reuse.Pair[uint64, int64]{
		{Bin: DefaultInfinity, Total: 3},
		{Bin: 2, Total: 1},
	}, s.Ranked)
	assert.Equal(t, Counters{Accesses: 4, Reuses: 1, ColdMisses: 3, Segments: 1}, res.Counters)
}

func TestAnalyzer_GoldenDistances(t *testing.T) {
	// Each golden key becomes its own cache line; reuses are binned at their distance.
	dataset := testutil.LoadGoldenDataset(t)
	cfg := DefaultConfig()
	cfg.Infinity = 1000
	cfg.TopK = 0

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			lines := make(map[string]uint64)
			var addrs []uint64
			for _, k := range tc.Keys {
				if _, ok := lines[k]; !ok {
					lines[k] = uint64(len(lines)+1) * trace.DefaultLineSize
				}
				addrs = append(addrs, lines[k])
			}

			want := reuse.NewHistogram[uint64, int64]()
			for _, d := range tc.Distances {
				if d == testutil.FirstTouch {
					want.Increment(cfg.Infinity, 1)
				} else {
					want.Increment(uint64(d), 1)
				}
			}

			res := run(t, cfg, nil, accesses(0, 0, addrs...))
			require.Len(t, res.Streams, 1)
			assert.Equal(t, want.Bins(), res.Streams[0].Histogram.Bins())
		})
	}
}

func TestAnalyzer_SameCacheLine_IsReuse(t *testing.T) {
	res := run(t, DefaultConfig(), nil, accesses(0, 0, 0x1000, 0x1008, 0x1038))
	assert.Equal(t, int64(2), res.Streams[0].Histogram.Get(0))
	assert.Equal(t, int64(1), res.Counters.ColdMisses)
}

func TestAnalyzer_ByteGranularity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LineSize = 1
	res := run(t, cfg, nil, accesses(0, 0, 0x1000, 0x1008))
	assert.Equal(t, int64(2), res.Counters.ColdMisses)
}

func TestAnalyzer_CrossCoreConflict_InvalidatesOtherCore(t *testing.T) {
	// GIVEN core 0 and core 1 both hold line A
	recs := []trace.MemAccess{}
	recs = append(recs, accesses(0, 0, lineA)...)
	recs = append(recs, accesses(1, 0, lineA)...)

	// WHEN core 0 reuses A, then core 1 touches A again
	recs = append(recs, accesses(0, 0, lineA)...)
	recs = append(recs, accesses(1, 0, lineA)...)
	res := run(t, DefaultConfig(), nil, recs)

	// THEN both reuses are conflicts: core 1 kept its stale entry, so its
	// re-touch invalidates core 0 in turn
	assert.Equal(t, int64(2), res.Counters.Conflicts)
	assert.Equal(t, int64(2), res.Counters.ColdMisses)
	assert.Equal(t, int64(0), res.Counters.Reuses)
	assert.Equal(t, int64(4), res.Streams[0].Histogram.Get(DefaultInfinity))
}

func TestAnalyzer_PingPong_ThenLocalReuse(t *testing.T) {
	// GIVEN A bouncing between cores 0 and 1
	recs := accesses(0, 0, lineA)
	recs = append(recs, accesses(1, 0, lineA, lineA)...)
	recs = append(recs, accesses(0, 0, lineA, lineA)...)

	// WHEN analyzed
	res := run(t, DefaultConfig(), nil, recs)

	// THEN core 0 reclaims A with a conflict and its next access is a plain reuse
	assert.Equal(t, int64(2), res.Counters.ColdMisses)
	assert.Equal(t, int64(2), res.Counters.Conflicts)
	assert.Equal(t, int64(1), res.Counters.Reuses)
	assert.Equal(t, int64(1), res.Streams[0].Histogram.Get(0))
	assert.Equal(t, int64(4), res.Streams[0].Histogram.Get(DefaultInfinity))
}

func TestAnalyzer_StaleRetouch_WithoutConflict(t *testing.T) {
	// GIVEN core 1 invalidated core 0's A, then moved on past the overflow distance
	cfg := DefaultConfig()
	cfg.Infinity = 2
	recs := accesses(0, 0, lineA)
	recs = append(recs, accesses(1, 0, lineA, lineA, lineB, lineC)...)

	// WHEN core 0 touches A again
	recs = append(recs, accesses(0, 0, lineA)...)
	res := run(t, cfg, nil, recs)

	// THEN the access is counted as invalidated, in the overflow bin
	assert.Equal(t, int64(1), res.Counters.Conflicts)
	assert.Equal(t, int64(1), res.Counters.Invalidated)
	assert.Equal(t, int64(4), res.Counters.ColdMisses)
	assert.Equal(t, int64(0), res.Counters.Reuses)
	assert.Equal(t, int64(6), res.Streams[0].Histogram.Get(2))
}

func TestAnalyzer_DistantCopy_NoConflict(t *testing.T) {
	// GIVEN core 1 touched A long ago (beyond the overflow distance)
	cfg := DefaultConfig()
	cfg.Infinity = 2
	recs := accesses(1, 0, lineA, lineB, lineC, lineB+0x1000)
	recs = append(recs, accesses(0, 0, lineA, lineA)...)

	res := run(t, cfg, nil, recs)

	// THEN core 0's reuse at distance 0 is not a conflict
	assert.Equal(t, int64(0), res.Counters.Conflicts)
	assert.Equal(t, int64(1), res.Counters.Reuses)
	assert.Equal(t, int64(1), res.Streams[0].Histogram.Get(0))
}

func TestAnalyzer_Segments_ResetProfilers(t *testing.T) {
	recs := accesses(0, 0, lineA, lineA)
	next := accesses(0, 0, lineA)
	next[0].Segment = 1
	recs = append(recs, next...)

	res := run(t, DefaultConfig(), nil, recs)

	assert.Equal(t, int64(2), res.Counters.Segments)
	assert.Equal(t, int64(2), res.Counters.ColdMisses)
	assert.Equal(t, int64(1), res.Streams[0].Histogram.Get(0))
	assert.Equal(t, int64(2), res.Streams[0].Histogram.Get(DefaultInfinity))
}

func TestAnalyzer_SumsCoresPerStream(t *testing.T) {
	header := &trace.Header{Streams: []string{"x", "y"}}
	recs := accesses(0, 0, lineA, lineA)
	recs = append(recs, accesses(1, 0, lineB+0x10000, lineB+0x10000)...)
	recs = append(recs, accesses(1, 1, lineC)...)

	res := run(t, DefaultConfig(), header, recs)

	require.Len(t, res.Streams, 2)
	assert.Equal(t, "x", res.Streams[0].Name)
	assert.Equal(t, int64(2), res.Streams[0].Histogram.Get(0))
	assert.Equal(t, "y", res.Streams[1].Name)
	assert.Equal(t, int64(1), res.Streams[1].Histogram.Total())
}

func TestAnalyzer_InvalidRecords_Dropped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cores = 1
	header := &trace.Header{Streams: []string{"only"}}
	recs := accesses(0, 0, lineA)
	recs = append(recs, accesses(1, 0, lineA)...)  // core out of range
	recs = append(recs, accesses(0, 1, lineA)...)  // stream out of range
	recs = append(recs, accesses(-1, 0, lineA)...) // negative core

	res := run(t, cfg, header, recs)

	assert.Equal(t, int64(3), res.Counters.Dropped)
	assert.Equal(t, int64(1), res.Counters.Accesses)
}

func TestAnalyzer_ArenaFull_DropsRecord(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNodes = 1
	res := run(t, cfg, nil, accesses(0, 0, lineA, lineB))

	assert.Equal(t, int64(1), res.Counters.Dropped)
	assert.Equal(t, int64(1), res.Counters.Accesses)
}

func TestAnalyzer_ArenaFull_DroppedRecordKeepsOtherCores(t *testing.T) {
	// GIVEN room for two nodes per core; core 0 is full after A, B
	cfg := DefaultConfig()
	cfg.MaxNodes = 2
	recs := accesses(1, 0, lineA)
	recs = append(recs, accesses(0, 0, lineA, lineB)...)

	// WHEN core 0 reuses A (dropped) and core 1 reuses A
	recs = append(recs, accesses(0, 0, lineA)...)
	recs = append(recs, accesses(1, 0, lineA)...)
	res := run(t, cfg, nil, recs)

	// THEN the dropped record invalidated nothing: core 1 still holds A
	// and its reuse conflicts with core 0's copy
	assert.Equal(t, int64(1), res.Counters.Dropped)
	assert.Equal(t, int64(3), res.Counters.ColdMisses)
	assert.Equal(t, int64(1), res.Counters.Conflicts)
	assert.Equal(t, int64(0), res.Counters.Invalidated)
}

func TestAnalyzer_LongDistance_Clamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Infinity = 2
	res := run(t, cfg, nil, accesses(0, 0, lineA, lineB, lineC, lineA))

	assert.Equal(t, int64(1), res.Counters.Clamped)
	assert.Equal(t, int64(1), res.Counters.Reuses)
	assert.Equal(t, int64(4), res.Streams[0].Histogram.Get(2))
}

func TestAnalyzer_HeaderCores_UsedWhenUnset(t *testing.T) {
	header := &trace.Header{Cores: 1}
	res := run(t, DefaultConfig(), header, accesses(3, 0, lineA))
	assert.Equal(t, int64(1), res.Counters.Dropped)
}

func TestAnalyzer_StreamName_Synthesized(t *testing.T) {
	res := run(t, DefaultConfig(), nil, accesses(0, 4, lineA))
	assert.Equal(t, "stream_4", res.Streams[0].Name)
	assert.Nil(t, res.Stream("missing"))
}

func TestAnalyzer_PerLineRanking(t *testing.T) {
	recs := accesses(0, 0, lineA, lineA, lineA)
	recs[1].LineNumber = 7
	recs[2].LineNumber = 7

	res := run(t, DefaultConfig(), nil, recs)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(7), res.Lines[1].Line)
	assert.Equal(t, []reuse.Pair[uint64, int64]{{Bin: 0, Total: 2}}, res.Lines[1].Ranked)
}

func TestAnalyzer_Closed(t *testing.T) {
	a, err := NewAnalyzer(DefaultConfig(), nil)
	require.NoError(t, err)
	res, err := a.Close()
	require.NoError(t, err)
	assert.Empty(t, res.Streams)

	assert.ErrorIs(t, a.Record(accesses(0, 0, lineA)[0]), ErrClosed)
	_, err = a.Close()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewAnalyzer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"line size", func(c *Config) { c.LineSize = 48 }},
		{"infinity", func(c *Config) { c.Infinity = 0 }},
		{"cores", func(c *Config) { c.Cores = -1 }},
		{"max nodes", func(c *Config) { c.MaxNodes = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeStream_CSV(t *testing.T) {
	data := "segment,core_id,read_write,line_number,address,var_idx,type_size\n" +
		"0,0,read,1,0x1000,0,8\n" +
		"0,0,read,1,0x1040,0,8\n" +
		"0,0,write,2,0x1000,0,8\n"

	res, err := AnalyzeStream(DefaultConfig(), &trace.Header{Streams: []string{"v"}}, strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Stream("v").Histogram.Get(1))
}

func TestAnalyzeStream_MalformedCSV(t *testing.T) {
	data := "segment,core_id,read_write,line_number,address,var_idx,type_size\n0,0\n"
	_, err := AnalyzeStream(DefaultConfig(), nil, strings.NewReader(data))
	assert.Error(t, err)
}

func TestResult_WriteText(t *testing.T) {
	header := &trace.Header{Streams: []string{"a"}}
	res := run(t, DefaultConfig(), header, accesses(0, 0, lineA, lineB, lineC, lineA))

	var buf bytes.Buffer
	require.NoError(t, res.Write(&buf, "text"))

	out := buf.String()
	assert.Contains(t, out, "var: a: inf (3 times) 2 (1 times).\n")
	assert.Contains(t, out, "=== Reuse Distance Counters ===")
	assert.Contains(t, out, "Cold Misses   : 3")
}

func TestResult_WriteYAML(t *testing.T) {
	header := &trace.Header{Streams: []string{"a"}}
	res := run(t, DefaultConfig(), header, accesses(0, 0, lineA, lineA))

	var buf bytes.Buffer
	require.NoError(t, res.Write(&buf, "yaml"))

	out := buf.String()
	assert.Contains(t, out, "name: a")
	assert.Contains(t, out, "cold_misses: 1")
	assert.Contains(t, out, "miss_ratio:")
}

func TestResult_Write_UnknownFormat(t *testing.T) {
	res := &Result{}
	assert.Error(t, res.Write(&bytes.Buffer{}, "html"))
	assert.False(t, IsValidFormat("html"))
	assert.True(t, IsValidFormat(""))
}
