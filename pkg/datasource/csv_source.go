package datasource

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// CSVConfig configures a CSVSource.
type CSVConfig struct {
	Path       string
	Encoding   Encoding // default utf-8
	Delimiter  string   // exactly one character, default ","
	Quote      string   // exactly one character, default `"`
	NoHeader   bool     // when set, columns are synthesized as column_N
	SkipRows   int      // lines skipped before the header
	NullValues []string // cell values normalized to empty strings
	Columns    []string // optional column subset applied after load
}

// SetDefaults fills in the defaults for unset fields.
func (c *CSVConfig) SetDefaults() {
	if c.Encoding == "" {
		c.Encoding = EncodingUTF8
	}
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
	if c.Quote == "" {
		c.Quote = `"`
	}
}

// Validate validates the configuration parameters.
func (c *CSVConfig) Validate() error {
	if err := validateFilePath(c.Path); err != nil {
		return err
	}

	if err := c.Encoding.Validate(); err != nil {
		return err
	}

	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be exactly one character, got %q", c.Delimiter)
	}

	if utf8.RuneCountInString(c.Quote) != 1 {
		return fmt.Errorf("quote char must be exactly one character, got %q", c.Quote)
	}

	if c.Delimiter == c.Quote {
		return fmt.Errorf("delimiter and quote char must differ, both are %q", c.Delimiter)
	}

	// encoding/csv reads standard double-quoted fields only.
	if c.Quote != `"` {
		return fmt.Errorf(`quote char %q is not supported, only '"' quoting can be parsed`, c.Quote)
	}

	if c.SkipRows < 0 {
		return fmt.Errorf("skip rows must be non-negative, got %d", c.SkipRows)
	}

	return nil
}

// CSVSource loads tabular data from a delimited text file.
type CSVSource struct {
	cfg CSVConfig
}

// NewCSVSource creates a CSVSource, validating the configuration eagerly.
func NewCSVSource(cfg CSVConfig) (*CSVSource, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid csv source config: %w", err)
	}
	return &CSVSource{cfg: cfg}, nil
}

// Path returns the configured file path.
func (s *CSVSource) Path() string {
	return s.cfg.Path
}

// LoadData reads the whole file into a Dataset. Null markers are replaced
// with empty cells and the optional column subset is applied afterwards.
func (s *CSVSource) LoadData(_ context.Context) (*dataset.Dataset, error) {
	reader, closeFn, err := s.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file %s has no rows", s.cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", s.cfg.Path, err)
	}

	var columns []string
	var pending [][]string
	if s.cfg.NoHeader {
		columns = syntheticColumns(len(header))
		pending = append(pending, header)
	} else {
		columns = header
	}

	ds, err := dataset.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid csv header in %s: %w", s.cfg.Path, err)
	}

	nulls := make(map[string]struct{}, len(s.cfg.NullValues))
	for _, v := range s.cfg.NullValues {
		nulls[v] = struct{}{}
	}

	appendRow := func(record []string) error {
		for i, cell := range record {
			if _, isNull := nulls[cell]; isNull {
				record[i] = ""
			}
		}
		return ds.AppendRow(record)
	}

	for _, record := range pending {
		if err := appendRow(record); err != nil {
			return nil, fmt.Errorf("bad csv row in %s: %w", s.cfg.Path, err)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv %s: %w", s.cfg.Path, err)
		}
		if err := appendRow(record); err != nil {
			return nil, fmt.Errorf("bad csv row in %s: %w", s.cfg.Path, err)
		}
	}

	return projectColumns(ds, s.cfg.Columns)
}

// Columns returns the header column names, or the synthesized names when the
// file has no header.
func (s *CSVSource) Columns(_ context.Context) ([]string, error) {
	reader, closeFn, err := s.open()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	first, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file %s has no rows", s.cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", s.cfg.Path, err)
	}

	if s.cfg.NoHeader {
		return syntheticColumns(len(first)), nil
	}
	return first, nil
}

// open opens the file, applies the encoding decoder and consumes SkipRows
// lines, returning a ready csv reader.
func (s *CSVSource) open() (*csv.Reader, func() error, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", s.cfg.Path, err)
	}

	decoded, err := s.cfg.Encoding.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	buffered := bufio.NewReader(decoded)
	for i := 0; i < s.cfg.SkipRows; i++ {
		if _, err := buffered.ReadString('\n'); err != nil {
			if err == io.EOF {
				break
			}
			f.Close()
			return nil, nil, fmt.Errorf("failed to skip %d rows in %s: %w", s.cfg.SkipRows, s.cfg.Path, err)
		}
	}

	reader := csv.NewReader(buffered)
	delim, _ := utf8.DecodeRuneInString(s.cfg.Delimiter)
	reader.Comma = delim
	reader.FieldsPerRecord = 0 // enforce homogeneous rows

	return reader, f.Close, nil
}
