package trace

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the trace format version written by Export.
const CurrentVersion = 1

// Header captures metadata for trace files.
type Header struct {
	Version    int      `yaml:"trace_version"`
	BinaryName string   `yaml:"binary_name,omitempty"`
	CreatedAt  string   `yaml:"created_at,omitempty"`
	Cores      int      `yaml:"cores,omitempty"` // 0 = derive from records
	Streams    []string `yaml:"streams"`         // variable names indexed by var_idx
}

// Trace combines header and records for a complete trace.
type Trace struct {
	Header  Header
	Records []MemAccess
}

// CSV column headers for the trace data file.
var columns = []string{
	"segment", "core_id", "read_write", "line_number", "address", "var_idx", "type_size",
}

// Export writes trace header (YAML) and data (CSV) to separate files.
func Export(header *Header, records []MemAccess, headerPath, dataPath string) error {
	headerData, err := yaml.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling trace header: %w", err)
	}
	if err := os.WriteFile(headerPath, headerData, 0644); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}

	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("creating trace data file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := WriteRecords(file, records); err != nil {
		return err
	}
	return file.Close()
}

// WriteRecords writes the CSV header row followed by one row per record.
// Addresses are written in hexadecimal.
func WriteRecords(w io.Writer, records []MemAccess) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Segment),
			strconv.Itoa(r.CoreID),
			string(r.ReadWrite),
			strconv.FormatInt(r.LineNumber, 10),
			"0x" + strconv.FormatUint(r.Address, 16),
			strconv.Itoa(r.VarIdx),
			strconv.Itoa(r.TypeSize),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

// LoadHeader reads and strictly parses a trace header file.
func LoadHeader(headerPath string) (*Header, error) {
	data, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, fmt.Errorf("reading trace header: %w", err)
	}
	var header Header
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&header); err != nil {
		return nil, fmt.Errorf("parsing trace header: %w", err)
	}
	if header.Version > CurrentVersion {
		return nil, fmt.Errorf("unsupported trace_version %d (max %d)", header.Version, CurrentVersion)
	}
	return &header, nil
}

// Load reads a complete trace into memory.
func Load(headerPath, dataPath string) (*Trace, error) {
	header, err := LoadHeader(headerPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening trace data: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []MemAccess
	err = ReadRecords(file, func(r MemAccess) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Trace{Header: *header, Records: records}, nil
}

// ReadRecords streams CSV rows from r to fn in file order, skipping the
// header row. It stops at the first error returned by fn.
func ReadRecords(r io.Reader, fn func(MemAccess) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("reading CSV header: %w", err)
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) < len(columns) {
			return fmt.Errorf("CSV row %d has %d columns, expected %d", line, len(row), len(columns))
		}
		rec, err := parseRecord(row)
		if err != nil {
			return fmt.Errorf("CSV row %d: %w", line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func parseRecord(row []string) (MemAccess, error) {
	var rec MemAccess
	var err error

	if rec.Segment, err = strconv.Atoi(strings.TrimSpace(row[0])); err != nil {
		return rec, fmt.Errorf("parsing segment: %w", err)
	}
	if rec.CoreID, err = strconv.Atoi(strings.TrimSpace(row[1])); err != nil {
		return rec, fmt.Errorf("parsing core_id: %w", err)
	}
	kind := strings.TrimSpace(row[2])
	if !IsValidReadWrite(kind) {
		return rec, fmt.Errorf("unknown read_write %q", kind)
	}
	rec.ReadWrite = ReadWrite(kind)
	if rec.ReadWrite == "" {
		rec.ReadWrite = AccessUnknown
	}
	if rec.LineNumber, err = strconv.ParseInt(strings.TrimSpace(row[3]), 10, 64); err != nil {
		return rec, fmt.Errorf("parsing line_number: %w", err)
	}
	// base 0 accepts both 0x-prefixed hex and decimal
	if rec.Address, err = strconv.ParseUint(strings.TrimSpace(row[4]), 0, 64); err != nil {
		return rec, fmt.Errorf("parsing address: %w", err)
	}
	if rec.VarIdx, err = strconv.Atoi(strings.TrimSpace(row[5])); err != nil {
		return rec, fmt.Errorf("parsing var_idx: %w", err)
	}
	if rec.TypeSize, err = strconv.Atoi(strings.TrimSpace(row[6])); err != nil {
		return rec, fmt.Errorf("parsing type_size: %w", err)
	}
	return rec, nil
}
