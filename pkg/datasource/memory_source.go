package datasource

import (
	"context"
	"fmt"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// DatasetSource serves rows that are already in memory. It exists so
// pipelines can run against computed or test data through the same
// DataSource contract as the file and database backends.
type DatasetSource struct {
	ds *dataset.Dataset
}

// NewDatasetSource wraps an existing dataset.
func NewDatasetSource(ds *dataset.Dataset) (*DatasetSource, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}
	return &DatasetSource{ds: ds}, nil
}

// LoadData returns a copy of the wrapped dataset, keeping the source
// immutable from the caller's point of view.
func (s *DatasetSource) LoadData(_ context.Context) (*dataset.Dataset, error) {
	return s.ds.Clone(), nil
}

// Columns returns the wrapped dataset's column names.
func (s *DatasetSource) Columns(_ context.Context) ([]string, error) {
	return s.ds.Columns(), nil
}

// Filter returns a new DatasetSource holding only the rows the predicate
// accepts.
func (s *DatasetSource) Filter(pred func(dataset.Row) bool) *DatasetSource {
	return &DatasetSource{ds: s.ds.Filter(pred)}
}
