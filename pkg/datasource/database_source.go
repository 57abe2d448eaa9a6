package datasource

import (
	"fmt"
	"time"
)

// resolveConnTarget picks the connection string for a database source: an
// explicit connection string wins, otherwise one is built from the DBConfig.
// Neither is a configuration error.
func resolveConnTarget(connString string, cfg *DBConfig, build func(DBConfig) string) (string, error) {
	if connString != "" {
		return connString, nil
	}
	if cfg != nil {
		return build(*cfg), nil
	}
	return "", ErrMissingConnectionTarget
}

// validatePoolBounds checks the min/max connection pair passed to
// InitializePool.
func validatePoolBounds(minConns, maxConns int) error {
	if minConns < 0 {
		return fmt.Errorf("min connections must be non-negative, got %d", minConns)
	}
	if maxConns <= 0 {
		return fmt.Errorf("max connections must be greater than 0, got %d", maxConns)
	}
	if minConns > maxConns {
		return fmt.Errorf("min connections %d exceeds max connections %d", minConns, maxConns)
	}
	return nil
}

// cellString renders a driver value as a dataset cell. NULLs become empty
// strings, times use RFC 3339 and raw bytes are taken as UTF-8 text.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
