package analysis

import (
	"fmt"
	"slices"

	"github.com/inference-sim/reuse-profiler/reuse"
)

// StreamResult is the reuse-distance distribution of one stream (variable).
type StreamResult struct {
	Index     int                         `yaml:"index"`
	Name      string                      `yaml:"name"`
	Histogram *DistanceHistogram          `yaml:"-"`
	Ranked    []reuse.Pair[uint64, int64] `yaml:"ranked"`
	Stats     reuse.Stats                 `yaml:"stats"`
	MissRatio []reuse.MissRatioPoint      `yaml:"miss_ratio,omitempty"`
}

// LineResult is the ranked distribution of one (core, source line).
type LineResult struct {
	Core   int64                       `yaml:"core"`
	Line   int64                       `yaml:"line"`
	Ranked []reuse.Pair[uint64, int64] `yaml:"ranked"`
}

// Result aggregates everything an analysis run produced.
type Result struct {
	Infinity uint64         `yaml:"infinity"`
	Streams  []StreamResult `yaml:"streams"`
	Lines    []LineResult   `yaml:"lines,omitempty"`
	Counters Counters       `yaml:"counters"`
}

// Stream returns the result for the named stream, or nil.
func (r *Result) Stream(name string) *StreamResult {
	for i := range r.Streams {
		if r.Streams[i].Name == name {
			return &r.Streams[i]
		}
	}
	return nil
}

func (a *Analyzer) streamName(idx int) string {
	if idx < len(a.streams) && a.streams[idx] != "" {
		return a.streams[idx]
	}
	return fmt.Sprintf("stream_%d", idx)
}

func (a *Analyzer) result() *Result {
	res := &Result{
		Infinity: a.cfg.Infinity,
		Counters: a.counters,
	}

	indices := make([]int, 0, len(a.totals))
	for idx := range a.totals {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	for _, idx := range indices {
		h := a.totals[idx]
		sr := StreamResult{
			Index:     idx,
			Name:      a.streamName(idx),
			Histogram: h,
			Ranked:    h.Rank(a.cfg.TopK),
			Stats:     reuse.Summarize(h, a.cfg.Infinity),
		}
		if len(a.cfg.MissRatioSizes) > 0 {
			sr.MissRatio = reuse.MissRatioCurve(h, a.cfg.Infinity, a.cfg.MissRatioSizes)
		}
		res.Streams = append(res.Streams, sr)
	}

	for _, loc := range a.lines.Histograms() {
		res.Lines = append(res.Lines, LineResult{
			Core:   loc.Location.ThreadID,
			Line:   loc.Location.Line,
			Ranked: loc.Histogram.Rank(a.cfg.TopK),
		})
	}
	return res
}
