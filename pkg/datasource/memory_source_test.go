package datasource

import (
	"context"
	"reflect"
	"testing"

	"github.com/certcraft/certcraft/pkg/dataset"
)

func buildDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	ds, err := dataset.New([]string{"name", "score"})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	for _, row := range [][]string{{"Ada", "97"}, {"Grace", "95"}, {"Linus", "88"}} {
		if err := ds.AppendRow(row); err != nil {
			t.Fatalf("AppendRow() error = %v", err)
		}
	}
	return ds
}

func TestNewDatasetSource_NilDataset(t *testing.T) {
	_, err := NewDatasetSource(nil)
	if err == nil {
		t.Fatal("NewDatasetSource() expected error for nil dataset but got none")
	}
	if err.Error() != "dataset cannot be nil" {
		t.Errorf("NewDatasetSource() error = %q", err)
	}
}

func TestDatasetSource_LoadDataReturnsCopy(t *testing.T) {
	src, err := NewDatasetSource(buildDataset(t))
	if err != nil {
		t.Fatalf("NewDatasetSource() error = %v", err)
	}
	ctx := context.Background()

	first, err := src.LoadData(ctx)
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if err := first.AppendRow([]string{"Mallory", "0"}); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}

	second, err := src.LoadData(ctx)
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if second.Len() != 3 {
		t.Errorf("Len() = %d after mutating a loaded copy, want 3", second.Len())
	}
}

func TestDatasetSource_Columns(t *testing.T) {
	src, err := NewDatasetSource(buildDataset(t))
	if err != nil {
		t.Fatalf("NewDatasetSource() error = %v", err)
	}

	cols, err := src.Columns(context.Background())
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if !reflect.DeepEqual(cols, []string{"name", "score"}) {
		t.Errorf("Columns() = %v", cols)
	}
}

func TestDatasetSource_Filter(t *testing.T) {
	src, err := NewDatasetSource(buildDataset(t))
	if err != nil {
		t.Fatalf("NewDatasetSource() error = %v", err)
	}

	filtered := src.Filter(func(row dataset.Row) bool {
		return row["score"] >= "90"
	})

	ds, err := filtered.LoadData(context.Background())
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}

	name, err := ds.Cell(0, "name")
	if err != nil {
		t.Fatalf("Cell() error = %v", err)
	}
	if name != "Ada" {
		t.Errorf("Cell(0, name) = %q, want %q", name, "Ada")
	}
}
