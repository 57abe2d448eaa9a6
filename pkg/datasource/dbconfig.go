package datasource

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// DBConfig is an immutable set of database connection parameters. Sources
// derive their backend-specific connection strings from it.
type DBConfig struct {
	host     string
	port     int
	user     string
	password string
	database string
}

// NewDBConfig validates the parameters and returns a DBConfig. The password
// may be empty; everything else is required.
func NewDBConfig(host string, port int, user, password, database string) (DBConfig, error) {
	if strings.TrimSpace(host) == "" {
		return DBConfig{}, fmt.Errorf("host cannot be empty")
	}

	if port < 1 || port > 65535 {
		return DBConfig{}, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	if strings.TrimSpace(user) == "" {
		return DBConfig{}, fmt.Errorf("user cannot be empty")
	}

	if strings.TrimSpace(database) == "" {
		return DBConfig{}, fmt.Errorf("database cannot be empty")
	}

	return DBConfig{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		database: database,
	}, nil
}

// Host returns the configured host.
func (c DBConfig) Host() string { return c.host }

// Port returns the configured port.
func (c DBConfig) Port() int { return c.port }

// User returns the configured user.
func (c DBConfig) User() string { return c.user }

// Password returns the configured password.
func (c DBConfig) Password() string { return c.password }

// Database returns the configured database name.
func (c DBConfig) Database() string { return c.database }

// PostgresDSN builds a postgresql:// connection URI.
func (c DBConfig) PostgresDSN() string {
	return c.uri("postgresql").String()
}

// MySQLURI builds a mysql:// connection URI in the same shape as the other
// backends.
func (c DBConfig) MySQLURI() string {
	return c.uri("mysql").String()
}

// MySQLDSN builds the DSN format the go-sql-driver expects
// (user:password@tcp(host:port)/database).
func (c DBConfig) MySQLDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.user
	mc.Passwd = c.password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.host, c.port)
	mc.DBName = c.database
	return mc.FormatDSN()
}

// MongoURI builds a mongodb:// connection URI. With srv set it uses the
// mongodb+srv scheme, which omits the port.
func (c DBConfig) MongoURI(srv bool) string {
	u := c.uri("mongodb")
	if srv {
		u.Scheme = "mongodb+srv"
		u.Host = c.host
	}
	return u.String()
}

func (c DBConfig) uri(scheme string) *url.URL {
	u := &url.URL{
		Scheme: scheme,
		Host:   c.host + ":" + strconv.Itoa(c.port),
		Path:   "/" + c.database,
	}
	if c.password != "" {
		u.User = url.UserPassword(c.user, c.password)
	} else {
		u.User = url.User(c.user)
	}
	return u
}
