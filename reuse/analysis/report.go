package analysis

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// validFormats maps accepted report format strings.
var validFormats = map[string]bool{
	"text": true,
	"yaml": true,
	"":     true, // empty defaults to text
}

// IsValidFormat returns true if the given string is a recognized report format.
func IsValidFormat(format string) bool {
	return validFormats[format]
}

// Write renders the result in the named format.
func (r *Result) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		return r.WriteText(w)
	case "yaml":
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteText prints one line per stream with its most frequent distances,
// followed by the classification counters.
func (r *Result) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, s := range r.Streams {
		ew.printf("var: %s:", s.Name)
		for _, p := range s.Ranked {
			if p.Total > 0 {
				ew.printf(" %s (%d times)", r.binLabel(p.Bin), p.Total)
			}
		}
		ew.printf(".\n")
	}

	c := r.Counters
	ew.printf("=== Reuse Distance Counters ===\n")
	ew.printf("Accesses      : %d\n", c.Accesses)
	ew.printf("Reuses        : %d\n", c.Reuses)
	ew.printf("Cold Misses   : %d\n", c.ColdMisses)
	ew.printf("Conflicts     : %d\n", c.Conflicts)
	ew.printf("Invalidated   : %d\n", c.Invalidated)
	ew.printf("Clamped       : %d\n", c.Clamped)
	ew.printf("Dropped       : %d\n", c.Dropped)
	ew.printf("Segments      : %d\n", c.Segments)
	return ew.err
}

// WriteYAML marshals the full result, including statistics, miss-ratio
// curves and per-line rankings.
func (r *Result) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func (r *Result) binLabel(bin uint64) string {
	if bin >= r.Infinity {
		return "inf"
	}
	return strconv.FormatUint(bin, 10)
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
