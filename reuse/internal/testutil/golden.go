// Package testutil provides shared test infrastructure for the reuse engine.
// It consolidates golden dataset types and assertion helpers used across
// reuse/ and reuse/analysis/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FirstTouch marks an access with no previous occurrence in golden distances.
const FirstTouch = -1

// GoldenDataset represents the structure of testdata/goldendistances.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one key sequence with the distance expected at every access.
type GoldenTestCase struct {
	Name      string   `json:"name"`
	Keys      []string `json:"keys"`
	Distances []int64  `json:"distances"` // FirstTouch for first accesses
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: reuse/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendistances.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	for _, tc := range dataset.Tests {
		if len(tc.Keys) != len(tc.Distances) {
			t.Fatalf("golden case %s: %d keys but %d distances", tc.Name, len(tc.Keys), len(tc.Distances))
		}
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
