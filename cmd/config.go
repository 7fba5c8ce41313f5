package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/reuse-profiler/reuse/analysis"
)

// ProfileConfig is the --config file for `analyze`.
// Every section must be listed to satisfy KnownFields(true) strict parsing.
type ProfileConfig struct {
	Analysis analysis.Config `yaml:"analysis"`
	Format   string          `yaml:"format"`
}

// loadProfileConfig reads a profile config, starting from the analysis defaults
// so omitted keys keep their default values.
func loadProfileConfig(path string) (*ProfileConfig, error) {
	cfg := &ProfileConfig{Analysis: analysis.DefaultConfig()}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Strict field checking: typos must cause errors
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if !analysis.IsValidFormat(cfg.Format) {
		return nil, fmt.Errorf("config file %s: unknown format %q", path, cfg.Format)
	}
	return cfg, nil
}

// analyzeFlagValues holds the parsed values of the analyze flags.
type analyzeFlagValues struct {
	topK     int
	infinity uint64
	lineSize uint64
	cores    int
	maxNodes int
	format   string
	mrc      []uint
}

// applyFlags copies explicitly set flags over cfg. Flags left at their
// defaults never overwrite values that came from the config file.
func applyFlags(flags *pflag.FlagSet, v analyzeFlagValues, cfg *ProfileConfig) {
	if flags.Changed("top") {
		cfg.Analysis.TopK = v.topK
	}
	if flags.Changed("infinity") {
		cfg.Analysis.Infinity = v.infinity
	}
	if flags.Changed("line-size") {
		cfg.Analysis.LineSize = v.lineSize
	}
	if flags.Changed("cores") {
		cfg.Analysis.Cores = v.cores
	}
	if flags.Changed("max-nodes") {
		cfg.Analysis.MaxNodes = v.maxNodes
	}
	if flags.Changed("format") {
		cfg.Format = v.format
	}
	if flags.Changed("mrc") {
		sizes := make([]uint64, len(v.mrc))
		for i, s := range v.mrc {
			sizes[i] = uint64(s)
		}
		cfg.Analysis.MissRatioSizes = sizes
	}
}
