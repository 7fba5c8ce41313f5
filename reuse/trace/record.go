// Package trace provides memory-access trace records and their file format.
// It has no dependencies on reuse/ or reuse/analysis/ and stores pure data types.
package trace

import (
	"fmt"
	"math/bits"
)

// ReadWrite classifies a memory access.
type ReadWrite string

const (
	AccessUnknown   ReadWrite = "unknown"
	AccessRead      ReadWrite = "read"
	AccessWrite     ReadWrite = "write"
	AccessReadWrite ReadWrite = "read_write"
)

// validReadWrite maps accepted access kinds.
var validReadWrite = map[ReadWrite]bool{
	AccessUnknown:   true,
	AccessRead:      true,
	AccessWrite:     true,
	AccessReadWrite: true,
	"":              true, // empty defaults to unknown
}

// IsValidReadWrite returns true if the given string is a recognized access kind.
func IsValidReadWrite(kind string) bool {
	return validReadWrite[ReadWrite(kind)]
}

// DefaultLineSize is the cache line size in bytes used when none is configured.
const DefaultLineSize = 64

// MemAccess captures one memory reference made by the instrumented program.
type MemAccess struct {
	Segment    int       // trace segment; analysis state resets between segments
	CoreID     int       // core that issued the access
	ReadWrite  ReadWrite // access kind
	LineNumber int64     // source line of the reference
	Address    uint64    // effective address
	VarIdx     int       // index into Header.Streams
	TypeSize   int       // size of the accessed element in bytes
}

// CacheLine maps an address to its cache line number.
// lineSize must be a power of two; 1 keeps byte granularity.
func CacheLine(addr uint64, lineSize uint64) uint64 {
	if lineSize <= 1 {
		return addr
	}
	return addr >> bits.TrailingZeros64(lineSize)
}

// ValidateLineSize returns an error unless lineSize is a positive power of two.
func ValidateLineSize(lineSize uint64) error {
	if lineSize == 0 || lineSize&(lineSize-1) != 0 {
		return fmt.Errorf("line size must be a positive power of two, got %d", lineSize)
	}
	return nil
}
