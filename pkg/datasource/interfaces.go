package datasource

import (
	"context"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// DataSource is the uniform contract for loading tabular data. File-backed
// sources read eagerly on each call; database-backed sources require an
// established connection first.
type DataSource interface {
	// LoadData reads the full result set from the source.
	LoadData(ctx context.Context) (*dataset.Dataset, error)
	// Columns returns the column names the source exposes without loading
	// the data: file headers for file sources, schema inspection for
	// database sources.
	Columns(ctx context.Context) ([]string, error)
}

// Connectable is implemented by database-backed sources with an explicit
// connection lifecycle. InitializePool must be called before Connect;
// Disconnect without an active connection is an error.
type Connectable interface {
	InitializePool(ctx context.Context, minConns, maxConns int) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool
}
