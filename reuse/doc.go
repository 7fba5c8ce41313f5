// Package reuse provides the reuse-distance profiling engine.
//
// # Reading Guide
//
//   - arena.go: Arena, the owner of every TraceNode, kept as an AVL tree
//     ordered by a per-arena sequence counter
//   - profiler.go: Profiler, the recency index plus the distance calculator
//   - histogram.go: Histogram, bin -> total aggregation with top-K ranking
//   - multigram.go: Multigram, one Histogram per source location
//   - stats.go: weighted summary statistics and approximate miss-ratio curves
//
// # Architecture
//
// A driver feeds access events, in program order, into Profiler.RecordAccess.
// First touches produce no distance; repeats produce the number of accesses
// since the previous occurrence of the same key, which the driver adds to a
// Histogram. At the end of the trace the histogram is ranked and the profiler
// destroyed exactly once.
//
// Sub-packages:
//   - reuse/trace/: memory-access records and trace file I/O
//   - reuse/analysis/: multi-core, multi-stream driver and reporting
//   - reuse/synth/: deterministic synthetic trace generation
//
// Every type in this package is single-writer; callers serializing events
// from several threads must hold one lock around each call.
package reuse
