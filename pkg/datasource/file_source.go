package datasource

import (
	"fmt"
	"os"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// validateFilePath checks that the path names an existing regular file.
func validateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s does not exist", path)
		}
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path %s is a directory, not a file", path)
	}

	return nil
}

// syntheticColumns names headerless columns column_0..column_{n-1}.
func syntheticColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("column_%d", i)
	}
	return cols
}

// projectColumns applies an optional column subset to a loaded dataset.
func projectColumns(ds *dataset.Dataset, columns []string) (*dataset.Dataset, error) {
	if len(columns) == 0 {
		return ds, nil
	}
	out, err := ds.Select(columns)
	if err != nil {
		return nil, fmt.Errorf("column selection failed: %w", err)
	}
	return out, nil
}
