package datasource

import (
	"context"
	"fmt"

	"github.com/pbnjay/grate"
	_ "github.com/pbnjay/grate/xlsx" // registers the xlsx reader

	"github.com/certcraft/certcraft/pkg/dataset"
)

// XLSXConfig configures an XLSXSource. The sheet is selected by Sheet when
// set, otherwise by SheetIndex (0-based, default 0).
type XLSXConfig struct {
	Path       string
	Sheet      string
	SheetIndex int
	NoHeader   bool
	Columns    []string
}

// Validate validates the configuration parameters.
func (c *XLSXConfig) Validate() error {
	if err := validateFilePath(c.Path); err != nil {
		return err
	}

	if c.Sheet != "" && c.SheetIndex != 0 {
		return fmt.Errorf("sheet name and sheet index are mutually exclusive")
	}

	if c.SheetIndex < 0 {
		return fmt.Errorf("sheet index must be non-negative, got %d", c.SheetIndex)
	}

	return nil
}

// XLSXSource loads tabular data from one sheet of an xlsx workbook.
type XLSXSource struct {
	cfg XLSXConfig
}

// NewXLSXSource creates an XLSXSource, validating the configuration eagerly.
func NewXLSXSource(cfg XLSXConfig) (*XLSXSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid xlsx source config: %w", err)
	}
	return &XLSXSource{cfg: cfg}, nil
}

// Path returns the configured file path.
func (s *XLSXSource) Path() string {
	return s.cfg.Path
}

// LoadData reads the selected sheet into a Dataset.
func (s *XLSXSource) LoadData(_ context.Context) (*dataset.Dataset, error) {
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet in %s has no rows", s.cfg.Path)
	}

	var columns []string
	data := rows
	if s.cfg.NoHeader {
		columns = syntheticColumns(len(rows[0]))
	} else {
		columns = rows[0]
		data = rows[1:]
	}

	ds, err := dataset.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid header in %s: %w", s.cfg.Path, err)
	}
	for i, row := range data {
		if err := ds.AppendRow(padRow(row, len(columns))); err != nil {
			return nil, fmt.Errorf("bad row %d in %s: %w", i, s.cfg.Path, err)
		}
	}

	return projectColumns(ds, s.cfg.Columns)
}

// Columns returns the header of the selected sheet, or synthesized names
// when the sheet has no header row.
func (s *XLSXSource) Columns(_ context.Context) ([]string, error) {
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet in %s has no rows", s.cfg.Path)
	}
	if s.cfg.NoHeader {
		return syntheticColumns(len(rows[0])), nil
	}
	return rows[0], nil
}

// readRows opens the workbook, resolves the sheet selector and drains the
// sheet into string rows.
func (s *XLSXSource) readRows() ([][]string, error) {
	source, err := grate.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.cfg.Path, err)
	}

	sheets, err := source.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets in %s: %w", s.cfg.Path, err)
	}

	name := s.cfg.Sheet
	if name == "" {
		if s.cfg.SheetIndex >= len(sheets) {
			return nil, fmt.Errorf("%w: index %d out of range, workbook has %d sheets", ErrSheetNotFound, s.cfg.SheetIndex, len(sheets))
		}
		name = sheets[s.cfg.SheetIndex]
	} else if !containsString(sheets, name) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}

	data, err := source.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet %q in %s: %w", name, s.cfg.Path, err)
	}

	var rows [][]string
	for data.Next() {
		rows = append(rows, data.Strings())
	}

	return rows, nil
}

// padRow pads a short row with empty cells so sparse sheet rows keep the
// header arity.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
