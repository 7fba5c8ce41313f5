package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/reuse-profiler/reuse/analysis"
	"github.com/inference-sim/reuse-profiler/reuse/trace"
)

var (
	headerPath  string // Trace header YAML
	dataPath    string // Trace data CSV
	configPath  string // Optional profile config YAML
	analyzeArgs analyzeFlagValues
)

// analyzeCmd profiles a recorded trace and prints the report to stdout
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute reuse-distance histograms for a memory access trace",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadProfileConfig(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applyFlags(cmd.Flags(), analyzeArgs, cfg)

		if err := runAnalyze(cfg, headerPath, dataPath, os.Stdout); err != nil {
			logrus.Fatalf("Analysis failed: %v", err)
		}
	},
}

// runAnalyze streams the data file through the analyzer and writes the report.
func runAnalyze(cfg *ProfileConfig, headerPath, dataPath string, out io.Writer) error {
	if !analysis.IsValidFormat(cfg.Format) {
		return fmt.Errorf("unknown format %q", cfg.Format)
	}
	header, err := trace.LoadHeader(headerPath)
	if err != nil {
		return err
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("opening trace data: %w", err)
	}
	defer func() { _ = f.Close() }()

	logrus.Infof("Starting analysis of %s (%d streams, line_size=%d, infinity=%d)",
		dataPath, len(header.Streams), cfg.Analysis.LineSize, cfg.Analysis.Infinity)
	startTime := time.Now()

	result, err := analysis.AnalyzeStream(cfg.Analysis, header, f)
	if err != nil {
		return err
	}

	logrus.Infof("Analysis complete: %d accesses in %v", result.Counters.Accesses, time.Since(startTime))
	return result.Write(out, cfg.Format)
}

func init() {
	analyzeCmd.Flags().StringVar(&headerPath, "header", "", "Trace header YAML file")
	analyzeCmd.Flags().StringVar(&dataPath, "data", "", "Trace data CSV file")
	analyzeCmd.Flags().StringVar(&configPath, "config", "", "Profile config YAML (flags set explicitly take precedence)")

	defaults := analysis.DefaultConfig()
	analyzeCmd.Flags().IntVar(&analyzeArgs.topK, "top", defaults.TopK, "Ranked bins reported per stream (<= 0 reports all)")
	analyzeCmd.Flags().Uint64Var(&analyzeArgs.infinity, "infinity", defaults.Infinity, "Overflow bin for cold misses, conflicts and long distances")
	analyzeCmd.Flags().Uint64Var(&analyzeArgs.lineSize, "line-size", defaults.LineSize, "Cache line size in bytes (power of two, 1 = byte granularity)")
	analyzeCmd.Flags().IntVar(&analyzeArgs.cores, "cores", 0, "Number of cores (0 = take from trace header)")
	analyzeCmd.Flags().IntVar(&analyzeArgs.maxNodes, "max-nodes", 0, "Per-core access tree capacity (0 = unbounded)")
	analyzeCmd.Flags().StringVar(&analyzeArgs.format, "format", "text", "Report format (text, yaml)")
	analyzeCmd.Flags().UintSliceVar(&analyzeArgs.mrc, "mrc", []uint{1, 2, 4, 8, 16}, "Comma-separated cache sizes (in lines) for the miss-ratio curve")

	_ = analyzeCmd.MarkFlagRequired("header")
	_ = analyzeCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(analyzeCmd)
}
