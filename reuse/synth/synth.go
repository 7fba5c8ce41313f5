// Package synth generates deterministic synthetic memory-access traces.
// Generated traces exercise the analysis with known access patterns and make
// reproducible inputs for tests and benchmarks.
package synth

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/reuse-profiler/reuse/trace"
)

// Pattern selects how a stream walks its working set.
type Pattern string

const (
	PatternSequential Pattern = "sequential"
	PatternStrided    Pattern = "strided"
	PatternRandom     Pattern = "random"
	PatternZipf       Pattern = "zipf"
)

// validPatterns maps accepted pattern names.
var validPatterns = map[Pattern]bool{
	PatternSequential: true,
	PatternStrided:    true,
	PatternRandom:     true,
	PatternZipf:       true,
}

// IsValidPattern returns true if the given string names a known pattern.
func IsValidPattern(name string) bool {
	return validPatterns[Pattern(name)]
}

const (
	defaultElementSize = 8
	defaultZipfS       = 1.2
	regionAlign        = 4096
)

// StreamSpec describes the accesses of one variable.
type StreamSpec struct {
	Name        string  `yaml:"name"`
	Pattern     Pattern `yaml:"pattern"`
	Elements    int     `yaml:"elements"`     // working-set size in elements
	ElementSize int     `yaml:"element_size"` // bytes per element, default 8
	Accesses    int     `yaml:"accesses"`     // accesses per segment
	Stride      int     `yaml:"stride"`       // strided only, in elements, default 1
	ZipfS       float64 `yaml:"zipf_s"`       // zipf only, must be > 1, default 1.2
	Base        uint64  `yaml:"base"`         // 0 = laid out after the previous stream
	Core        int     `yaml:"core"`         // issuing core
	Shared      bool    `yaml:"shared"`       // round-robin across all cores instead of Core
	Write       bool    `yaml:"write"`
	Line        int64   `yaml:"line"` // source line recorded with each access
}

// Spec is the top-level synthetic trace description.
type Spec struct {
	Seed       int64        `yaml:"seed"`
	BinaryName string       `yaml:"binary_name"`
	Segments   int          `yaml:"segments"` // default 1
	Cores      int          `yaml:"cores"`    // default 1
	Streams    []StreamSpec `yaml:"streams"`
}

// LoadSpec reads a synthetic trace spec with strict field checking.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading synth spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing synth spec: %w", err)
	}
	return &spec, nil
}

// Validate fills defaults and checks every stream.
func (s *Spec) Validate() error {
	if s.Segments == 0 {
		s.Segments = 1
	}
	if s.Cores == 0 {
		s.Cores = 1
	}
	if s.Segments < 0 || s.Cores < 0 {
		return fmt.Errorf("segments and cores must be positive")
	}
	if len(s.Streams) == 0 {
		return fmt.Errorf("at least one stream is required")
	}
	for i := range s.Streams {
		st := &s.Streams[i]
		if st.Name == "" {
			st.Name = fmt.Sprintf("stream_%d", i)
		}
		if !validPatterns[st.Pattern] {
			return fmt.Errorf("stream %q: unknown pattern %q", st.Name, st.Pattern)
		}
		if st.Elements <= 0 {
			return fmt.Errorf("stream %q: elements must be > 0, got %d", st.Name, st.Elements)
		}
		if st.Accesses < 0 {
			return fmt.Errorf("stream %q: accesses must be >= 0, got %d", st.Name, st.Accesses)
		}
		if st.ElementSize == 0 {
			st.ElementSize = defaultElementSize
		}
		if st.ElementSize < 0 {
			return fmt.Errorf("stream %q: element_size must be > 0", st.Name)
		}
		if st.Stride == 0 {
			st.Stride = 1
		}
		if st.Pattern == PatternZipf {
			if st.ZipfS == 0 {
				st.ZipfS = defaultZipfS
			}
			if st.ZipfS <= 1 {
				return fmt.Errorf("stream %q: zipf_s must be > 1, got %v", st.Name, st.ZipfS)
			}
		}
		if !st.Shared && (st.Core < 0 || st.Core >= s.Cores) {
			return fmt.Errorf("stream %q: core %d out of range [0,%d)", st.Name, st.Core, s.Cores)
		}
	}
	return nil
}

// walker produces element indices for one stream.
type walker struct {
	spec *StreamSpec
	base uint64
	rng  *rand.Rand
	zipf *rand.Zipf
	pos  int
}

func (w *walker) reset() {
	w.pos = 0
}

func (w *walker) next() int {
	n := w.spec.Elements
	var idx int
	switch w.spec.Pattern {
	case PatternSequential:
		idx = w.pos % n
	case PatternStrided:
		idx = (w.pos * w.spec.Stride) % n
		if idx < 0 {
			idx += n
		}
	case PatternRandom:
		idx = w.rng.Intn(n)
	case PatternZipf:
		if n == 1 {
			idx = 0
		} else {
			idx = int(w.zipf.Uint64())
		}
	}
	w.pos++
	return idx
}

// Generate builds the trace described by spec. Streams are interleaved
// round-robin, one access per stream per step, until every stream has issued
// its accesses; the whole pattern is repeated once per segment.
func Generate(spec *Spec) (*trace.Header, []trace.MemAccess, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	rngs := NewPartitionedRNG(spec.Seed)
	walkers := make([]*walker, len(spec.Streams))
	names := make([]string, len(spec.Streams))
	var next uint64 = regionAlign
	steps := 0
	for i := range spec.Streams {
		st := &spec.Streams[i]
		base := st.Base
		if base == 0 {
			base = next
		}
		size := uint64(st.Elements) * uint64(st.ElementSize)
		next = max(next, alignUp(base+size, regionAlign))

		w := &walker{spec: st, base: base, rng: rngs.ForStream(st.Name)}
		if st.Pattern == PatternZipf && st.Elements > 1 {
			w.zipf = rand.NewZipf(w.rng, st.ZipfS, 1, uint64(st.Elements-1))
		}
		walkers[i] = w
		names[i] = st.Name
		steps = max(steps, st.Accesses)
	}

	var records []trace.MemAccess
	for seg := 0; seg < spec.Segments; seg++ {
		for _, w := range walkers {
			w.reset()
		}
		for step := 0; step < steps; step++ {
			for i, w := range walkers {
				st := w.spec
				if step >= st.Accesses {
					continue
				}
				core := st.Core
				if st.Shared {
					core = step % spec.Cores
				}
				kind := trace.AccessRead
				if st.Write {
					kind = trace.AccessWrite
				}
				records = append(records, trace.MemAccess{
					Segment:    seg,
					CoreID:     core,
					ReadWrite:  kind,
					LineNumber: st.Line,
					Address:    w.base + uint64(w.next())*uint64(st.ElementSize),
					VarIdx:     i,
					TypeSize:   st.ElementSize,
				})
			}
		}
	}

	header := &trace.Header{
		Version:    trace.CurrentVersion,
		BinaryName: spec.BinaryName,
		Cores:      spec.Cores,
		Streams:    names,
	}
	return header, records, nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}
