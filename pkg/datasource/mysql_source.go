package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// mysqlIdentifier guards table names interpolated into SHOW COLUMNS, which
// cannot be parameterized.
var mysqlIdentifier = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)

// MySQLConfig configures a MySQLSource. Exactly one of ConnString or
// DBConfig must be provided; ConnString wins when both are set. ConnString
// accepts either the driver DSN form (user:pass@tcp(host:port)/db) or a
// mysql:// URI.
type MySQLConfig struct {
	ConnString string
	DBConfig   *DBConfig
	Query      string // SELECT executed by LoadData
	Table      string // table inspected by Columns
	Logger     *slog.Logger
}

// MySQLSource loads tabular data from a MySQL database through a
// database/sql pool using the go-sql-driver.
type MySQLSource struct {
	cfg       MySQLConfig
	dsn       string
	db        *sql.DB
	conn      *sql.Conn
	connected bool
	logger    *slog.Logger
}

// NewMySQLSource creates a MySQLSource, resolving and validating the
// connection target eagerly.
func NewMySQLSource(cfg MySQLConfig) (*MySQLSource, error) {
	target, err := resolveConnTarget(cfg.ConnString, cfg.DBConfig, DBConfig.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql source config: %w", err)
	}

	dsn, err := normalizeMySQLDSN(target)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql connection string: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MySQLSource{
		cfg:    cfg,
		dsn:    dsn,
		logger: logger,
	}, nil
}

// normalizeMySQLDSN converts a mysql:// URI into the driver DSN form and
// validates driver-form strings as-is.
func normalizeMySQLDSN(target string) (string, error) {
	if !strings.HasPrefix(target, "mysql://") {
		if _, err := mysql.ParseDSN(target); err != nil {
			return "", err
		}
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = u.Host
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	return mc.FormatDSN(), nil
}

// InitializePool opens the connection pool with the given bounds and
// verifies the server is reachable.
func (s *MySQLSource) InitializePool(ctx context.Context, minConns, maxConns int) error {
	if err := validatePoolBounds(minConns, maxConns); err != nil {
		return err
	}

	db, err := sql.Open("mysql", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql pool: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	s.db = db
	s.logger.Info("Initialized mysql connection pool.", "min", minConns, "max", maxConns)
	return nil
}

// Connect reserves a dedicated connection from the pool.
func (s *MySQLSource) Connect(ctx context.Context) error {
	if s.db == nil {
		return ErrPoolNotInitialized
	}
	if s.connected {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire mysql connection: %w", err)
	}

	s.conn = conn
	s.connected = true
	return nil
}

// Disconnect returns the reserved connection to the pool.
func (s *MySQLSource) Disconnect(_ context.Context) error {
	if !s.connected {
		return ErrNotConnected
	}

	err := s.conn.Close()
	s.conn = nil
	s.connected = false
	if err != nil {
		return fmt.Errorf("failed to release mysql connection: %w", err)
	}
	return nil
}

// Connected reports whether a connection is currently held.
func (s *MySQLSource) Connected() bool {
	return s.connected
}

// Close releases any held connection and shuts the pool down.
func (s *MySQLSource) Close() error {
	if s.connected {
		s.conn.Close()
		s.conn = nil
		s.connected = false
	}
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// LoadData runs the configured query and maps the result set to a Dataset.
// Only SELECT statements are allowed.
func (s *MySQLSource) LoadData(ctx context.Context) (*dataset.Dataset, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.cfg.Query == "" {
		return nil, ErrNoQuery
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s.cfg.Query)), "SELECT") {
		return nil, fmt.Errorf("only SELECT queries are allowed")
	}

	rows, err := s.conn.QueryContext(ctx, s.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("mysql query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read mysql result columns: %w", err)
	}

	ds, err := dataset.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql result columns: %w", err)
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan mysql row: %w", err)
		}

		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cellString(v)
		}
		if err := ds.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("bad mysql row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql row iteration failed: %w", err)
	}

	return ds, nil
}

// Columns inspects the configured table with SHOW COLUMNS.
func (s *MySQLSource) Columns(ctx context.Context) ([]string, error) {
	if s.cfg.Table == "" {
		return nil, ErrNoTable
	}
	return s.TableColumns(ctx, s.cfg.Table)
}

// TableColumns inspects the named table with SHOW COLUMNS.
func (s *MySQLSource) TableColumns(ctx context.Context, table string) ([]string, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if !mysqlIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := s.conn.QueryContext(ctx, "SHOW COLUMNS FROM "+quoteMySQLIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %q: %w", table, err)
	}
	defer rows.Close()

	resultCols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read SHOW COLUMNS result: %w", err)
	}

	var columns []string
	for rows.Next() {
		values := make([]any, len(resultCols))
		ptrs := make([]any, len(resultCols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan SHOW COLUMNS row: %w", err)
		}
		// The first result column is the field name.
		columns = append(columns, cellString(values[0]))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("column inspection failed: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns or does not exist", table)
	}
	return columns, nil
}

func quoteMySQLIdentifier(name string) string {
	return "`" + name + "`"
}
