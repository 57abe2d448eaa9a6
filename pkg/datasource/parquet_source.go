package datasource

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// ParquetConfig configures a ParquetSource.
type ParquetConfig struct {
	Path    string
	Columns []string // optional column projection
}

// Validate validates the configuration parameters.
func (c *ParquetConfig) Validate() error {
	return validateFilePath(c.Path)
}

// ParquetSource loads tabular data from a parquet file. Nested schemas are
// not supported; every leaf field becomes one string column.
type ParquetSource struct {
	cfg ParquetConfig
}

// NewParquetSource creates a ParquetSource, validating the configuration
// eagerly.
func NewParquetSource(cfg ParquetConfig) (*ParquetSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parquet source config: %w", err)
	}
	return &ParquetSource{cfg: cfg}, nil
}

// Path returns the configured file path.
func (s *ParquetSource) Path() string {
	return s.cfg.Path
}

// LoadData reads every row group into a Dataset and applies the optional
// column projection.
func (s *ParquetSource) LoadData(_ context.Context) (*dataset.Dataset, error) {
	pf, closeFn, err := s.openFile()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	columns := schemaColumns(pf.Schema())
	ds, err := dataset.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid parquet schema in %s: %w", s.cfg.Path, err)
	}

	buf := make([]parquet.Row, 64)
	for _, group := range pf.RowGroups() {
		rows := group.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				cells := make([]string, len(columns))
				for _, value := range row {
					col := value.Column()
					if col < 0 || col >= len(cells) {
						continue
					}
					if value.IsNull() {
						cells[col] = ""
					} else {
						cells[col] = value.String()
					}
				}
				if err := ds.AppendRow(cells); err != nil {
					rows.Close()
					return nil, fmt.Errorf("bad parquet row in %s: %w", s.cfg.Path, err)
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read parquet rows from %s: %w", s.cfg.Path, err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("failed to close parquet row reader for %s: %w", s.cfg.Path, err)
		}
	}

	return projectColumns(ds, s.cfg.Columns)
}

// Columns returns the leaf field names of the parquet schema.
func (s *ParquetSource) Columns(_ context.Context) ([]string, error) {
	pf, closeFn, err := s.openFile()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return schemaColumns(pf.Schema()), nil
}

// openFile opens the parquet file for reading.
func (s *ParquetSource) openFile() (*parquet.File, func() error, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", s.cfg.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", s.cfg.Path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to open parquet file %s: %w", s.cfg.Path, err)
	}

	return pf, f.Close, nil
}

// schemaColumns flattens the schema's top-level fields to column names.
func schemaColumns(schema *parquet.Schema) []string {
	fields := schema.Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
	}
	return columns
}
