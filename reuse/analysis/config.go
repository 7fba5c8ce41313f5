package analysis

import (
	"fmt"

	"github.com/inference-sim/reuse-profiler/reuse/trace"
)

const (
	// DefaultInfinity is the overflow bin: distances at or above it, cold
	// misses and coherence conflicts are all binned here.
	DefaultInfinity = 20
	// DefaultTopK is the number of ranked bins reported per stream.
	DefaultTopK = 5
)

// Config controls an analysis run.
type Config struct {
	Cores          int      `yaml:"cores"`           // 0 = take from header, else unbounded
	LineSize       uint64   `yaml:"line_size"`       // bytes per cache line, power of two
	Infinity       uint64   `yaml:"infinity"`        // overflow bin
	TopK           int      `yaml:"top_k"`           // <= 0 reports every bin
	MaxNodes       int      `yaml:"max_nodes"`       // per-core arena capacity, 0 = unbounded
	MissRatioSizes []uint64 `yaml:"miss_ratio_sizes"` // cache sizes in lines
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		LineSize:       trace.DefaultLineSize,
		Infinity:       DefaultInfinity,
		TopK:           DefaultTopK,
		MissRatioSizes: []uint64{1, 2, 4, 8, 16},
	}
}

// Validate checks the configuration for values the analyzer cannot honor.
func (c Config) Validate() error {
	if err := trace.ValidateLineSize(c.LineSize); err != nil {
		return err
	}
	if c.Infinity == 0 {
		return fmt.Errorf("infinity must be > 0")
	}
	if c.Cores < 0 {
		return fmt.Errorf("cores must be >= 0, got %d", c.Cores)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must be >= 0, got %d", c.MaxNodes)
	}
	return nil
}
