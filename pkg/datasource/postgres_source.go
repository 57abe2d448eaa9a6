package datasource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// PostgresConfig configures a PostgresSource. Exactly one of ConnString or
// DBConfig must be provided; ConnString wins when both are set.
type PostgresConfig struct {
	ConnString string
	DBConfig   *DBConfig
	Query      string // row query executed by LoadData
	Table      string // table inspected by Columns
	Logger     *slog.Logger
}

// PostgresSource loads tabular data from a PostgreSQL database through a
// pgx connection pool. The lifecycle is explicit: InitializePool, then
// Connect, then LoadData/Columns, then Disconnect.
type PostgresSource struct {
	cfg        PostgresConfig
	connString string
	pool       *pgxpool.Pool
	conn       *pgxpool.Conn
	connected  bool
	logger     *slog.Logger
}

// NewPostgresSource creates a PostgresSource, resolving and validating the
// connection target eagerly.
func NewPostgresSource(cfg PostgresConfig) (*PostgresSource, error) {
	connString, err := resolveConnTarget(cfg.ConnString, cfg.DBConfig, DBConfig.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres source config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSource{
		cfg:        cfg,
		connString: connString,
		logger:     logger,
	}, nil
}

// InitializePool creates the connection pool with the given bounds and
// verifies the server is reachable.
func (s *PostgresSource) InitializePool(ctx context.Context, minConns, maxConns int) error {
	if err := validatePoolBounds(minConns, maxConns); err != nil {
		return err
	}

	poolCfg, err := pgxpool.ParseConfig(s.connString)
	if err != nil {
		return fmt.Errorf("failed to parse postgres connection string: %w", err)
	}
	poolCfg.MinConns = int32(minConns)
	poolCfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.pool = pool
	s.logger.Info("Initialized postgres connection pool.", "min", minConns, "max", maxConns)
	return nil
}

// Connect acquires a dedicated connection from the pool.
func (s *PostgresSource) Connect(ctx context.Context) error {
	if s.pool == nil {
		return ErrPoolNotInitialized
	}
	if s.connected {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire postgres connection: %w", err)
	}

	s.conn = conn
	s.connected = true
	return nil
}

// Disconnect releases the connection back to the pool.
func (s *PostgresSource) Disconnect(_ context.Context) error {
	if !s.connected {
		return ErrNotConnected
	}

	s.conn.Release()
	s.conn = nil
	s.connected = false
	return nil
}

// Connected reports whether a connection is currently held.
func (s *PostgresSource) Connected() bool {
	return s.connected
}

// Close releases any held connection and shuts the pool down.
func (s *PostgresSource) Close() {
	if s.connected {
		s.conn.Release()
		s.conn = nil
		s.connected = false
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// LoadData runs the configured query and maps the result set to a Dataset.
func (s *PostgresSource) LoadData(ctx context.Context) (*dataset.Dataset, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.cfg.Query == "" {
		return nil, ErrNoQuery
	}

	rows, err := s.conn.Query(ctx, s.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	ds, err := dataset.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres result columns: %w", err)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read postgres row: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cellString(v)
		}
		if err := ds.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("bad postgres row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres row iteration failed: %w", err)
	}

	return ds, nil
}

// Columns inspects information_schema for the configured table.
func (s *PostgresSource) Columns(ctx context.Context) ([]string, error) {
	if s.cfg.Table == "" {
		return nil, ErrNoTable
	}
	return s.TableColumns(ctx, s.cfg.Table)
}

// TableColumns inspects information_schema for the named table.
func (s *PostgresSource) TableColumns(ctx context.Context, table string) ([]string, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}

	rows, err := s.conn.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`,
		table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %q: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("column inspection failed: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns or does not exist", table)
	}
	return columns, nil
}
