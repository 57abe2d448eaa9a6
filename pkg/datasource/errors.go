package datasource

import "errors"

// Sentinel errors for the failure classes callers are expected to branch on.
// They are matched with errors.Is; the wrapping error carries the operation
// context.
var (
	// ErrMissingConnectionTarget is returned when a database source is
	// constructed with neither a connection string nor a DBConfig.
	ErrMissingConnectionTarget = errors.New("either a connection string or a database config is required")

	// ErrPoolNotInitialized is returned by Connect before InitializePool.
	ErrPoolNotInitialized = errors.New("connection pool not initialized")

	// ErrNotConnected is returned by operations that need an active
	// connection, including Disconnect without a preceding Connect.
	ErrNotConnected = errors.New("no active database connection")

	// ErrNoQuery is returned by LoadData when no query was configured.
	ErrNoQuery = errors.New("no query configured")

	// ErrNoTable is returned by Columns when no table was configured.
	ErrNoTable = errors.New("no table configured")

	// ErrUnsupportedEncoding is returned for encodings outside the
	// supported set.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrSheetNotFound is returned when an XLSX sheet name or index does
	// not resolve.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrEmptyCollection is returned when schema inspection finds no data
	// to inspect.
	ErrEmptyCollection = errors.New("collection is empty or missing")
)
