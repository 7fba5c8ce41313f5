// Package analysis drives the reuse engine over a memory-access trace.
//
// Every core gets its own Profiler, keyed by cache line, and every
// (core, stream) pair its own Histogram. At the end of each trace segment
// the per-core histograms are summed into one histogram per stream and the
// profilers are destroyed.
package analysis

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/reuse-profiler/reuse"
	"github.com/inference-sim/reuse-profiler/reuse/trace"
)

// ErrClosed is returned when records are fed to an Analyzer after Close.
var ErrClosed = errors.New("analysis: analyzer is closed")

// DistanceHistogram is the histogram type produced by the analysis.
type DistanceHistogram = reuse.Histogram[uint64, int64]

type lineProfiler = reuse.Profiler[uint64, trace.MemAccess]

type histKey struct {
	core   int
	stream int
}

// Counters tallies how accesses were classified.
type Counters struct {
	Accesses    int64 `yaml:"accesses"`    // recorded accesses
	Reuses      int64 `yaml:"reuses"`      // accesses with a finite, unconflicted distance
	ColdMisses  int64 `yaml:"cold_misses"` // first touches per core
	Conflicts   int64 `yaml:"conflicts"`   // accesses that invalidated another core's copy
	Invalidated int64 `yaml:"invalidated"` // re-touches of a line another core had invalidated
	Clamped     int64 `yaml:"clamped"`     // reuses whose distance reached the overflow bin
	Dropped     int64 `yaml:"dropped"`     // invalid records and arena allocation failures
	Segments    int64 `yaml:"segments"`
}

// Analyzer consumes access records in program order.
//
// Thread-safety: NOT thread-safe. Records from several producers must be
// serialized by the caller.
type Analyzer struct {
	cfg     Config
	streams []string

	segment int
	started bool
	closed  bool

	profilers []*lineProfiler // indexed by core; nil until first use
	perCore   map[histKey]*DistanceHistogram
	totals    map[int]*DistanceHistogram // indexed by stream
	lines     *reuse.Multigram[uint64, int64]

	counters Counters
}

// NewAnalyzer creates an Analyzer for a trace described by header.
// header may be nil; stream names are then synthesized from var_idx.
func NewAnalyzer(cfg Config, header *trace.Header) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{
		cfg:     cfg,
		perCore: make(map[histKey]*DistanceHistogram),
		totals:  make(map[int]*DistanceHistogram),
		lines:   reuse.NewMultigram[uint64, int64](),
	}
	if header != nil {
		a.streams = header.Streams
		if a.cfg.Cores == 0 {
			a.cfg.Cores = header.Cores
		}
	}
	return a, nil
}

// Record classifies one access and adds it to the histograms.
// Invalid records and allocation failures are dropped and counted, not
// returned as errors.
func (a *Analyzer) Record(rec trace.MemAccess) error {
	if a.closed {
		return ErrClosed
	}
	if a.started && rec.Segment != a.segment {
		a.endSegment()
	}
	a.segment = rec.Segment
	a.started = true

	if reason := a.invalid(rec); reason != "" {
		a.counters.Dropped++
		logrus.Debugf("dropping record core=%d var=%d addr=%#x: %s", rec.CoreID, rec.VarIdx, rec.Address, reason)
		return nil
	}

	line := trace.CacheLine(rec.Address, a.cfg.LineSize)
	p := a.profiler(rec.CoreID)

	// A record that cannot be stored must not invalidate other cores either.
	if p.Full() {
		return a.dropFull(rec)
	}

	conflict := false
	if p.Contains(line) {
		conflict = a.invalidateOthers(rec.CoreID, line)
	}

	dist, ok, err := p.RecordAccess(line, rec)
	if err != nil {
		if errors.Is(err, reuse.ErrArenaFull) {
			return a.dropFull(rec)
		}
		return err
	}
	a.counters.Accesses++

	bin := a.cfg.Infinity
	switch {
	case conflict:
		a.counters.Conflicts++
	case !ok:
		a.counters.ColdMisses++
	case dist == reuse.StaleDistance:
		a.counters.Invalidated++
	default:
		a.counters.Reuses++
		if dist >= a.cfg.Infinity {
			a.counters.Clamped++
		} else {
			bin = dist
		}
	}

	a.histogram(rec.CoreID, rec.VarIdx).Increment(bin, 1)
	a.lines.Increment(reuse.SourceLocation{ThreadID: int64(rec.CoreID), Line: rec.LineNumber}, bin, 1)
	return nil
}

func (a *Analyzer) dropFull(rec trace.MemAccess) error {
	a.counters.Dropped++
	logrus.Warnf("core %d: %v; dropping record at line %d", rec.CoreID, reuse.ErrArenaFull, rec.LineNumber)
	return nil
}

// invalid returns a non-empty reason when rec cannot be analyzed.
func (a *Analyzer) invalid(rec trace.MemAccess) string {
	switch {
	case rec.CoreID < 0:
		return "negative core id"
	case a.cfg.Cores > 0 && rec.CoreID >= a.cfg.Cores:
		return fmt.Sprintf("core id out of range [0,%d)", a.cfg.Cores)
	case rec.VarIdx < 0:
		return "negative stream index"
	case len(a.streams) > 0 && rec.VarIdx >= len(a.streams):
		return fmt.Sprintf("stream index out of range [0,%d)", len(a.streams))
	}
	return ""
}

// invalidateOthers marks line stale on every other core that still holds it
// within the overflow distance. Reports whether any copy was invalidated.
func (a *Analyzer) invalidateOthers(core int, line uint64) bool {
	conflict := false
	for i, other := range a.profilers {
		if i == core || other == nil {
			continue
		}
		if d, ok := other.Distance(line); ok && d < a.cfg.Infinity {
			other.Invalidate(line)
			conflict = true
		}
	}
	return conflict
}

func (a *Analyzer) profiler(core int) *lineProfiler {
	for len(a.profilers) <= core {
		a.profilers = append(a.profilers, nil)
	}
	if a.profilers[core] == nil {
		a.profilers[core] = reuse.NewProfiler[uint64, trace.MemAccess](a.cfg.MaxNodes)
	}
	return a.profilers[core]
}

func (a *Analyzer) histogram(core, stream int) *DistanceHistogram {
	key := histKey{core: core, stream: stream}
	h, ok := a.perCore[key]
	if !ok {
		h = reuse.NewHistogram[uint64, int64]()
		a.perCore[key] = h
	}
	return h
}

// endSegment sums per-core histograms into the stream totals and releases
// every profiler of the segment.
func (a *Analyzer) endSegment() {
	for key, h := range a.perCore {
		total, ok := a.totals[key.stream]
		if !ok {
			total = reuse.NewHistogram[uint64, int64]()
			a.totals[key.stream] = total
		}
		total.Merge(h)
	}

	released := 0
	for _, p := range a.profilers {
		if p != nil {
			released += p.Destroy()
		}
	}
	logrus.Debugf("segment %d done: %d histograms merged, %d nodes released",
		a.segment, len(a.perCore), released)

	a.profilers = nil
	a.perCore = make(map[histKey]*DistanceHistogram)
	a.counters.Segments++
}

// Close finishes the current segment and returns the analysis result.
// It releases every profiler; the Analyzer cannot be used afterwards.
func (a *Analyzer) Close() (*Result, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if a.started {
		a.endSegment()
	}
	a.closed = true
	return a.result(), nil
}

// Counters returns the classification counters so far.
func (a *Analyzer) Counters() Counters {
	return a.counters
}

// Analyze runs a complete in-memory trace.
func Analyze(cfg Config, tr *trace.Trace) (*Result, error) {
	a, err := NewAnalyzer(cfg, &tr.Header)
	if err != nil {
		return nil, err
	}
	for _, rec := range tr.Records {
		if err := a.Record(rec); err != nil {
			_, _ = a.Close()
			return nil, err
		}
	}
	return a.Close()
}

// AnalyzeStream runs records read from a CSV data stream.
func AnalyzeStream(cfg Config, header *trace.Header, data io.Reader) (*Result, error) {
	a, err := NewAnalyzer(cfg, header)
	if err != nil {
		return nil, err
	}
	if err := trace.ReadRecords(data, a.Record); err != nil {
		_, _ = a.Close()
		return nil, fmt.Errorf("analyzing trace: %w", err)
	}
	return a.Close()
}
