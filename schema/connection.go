// Package schema connects to a live database, runs the per-vendor catalog
// extractors, and assembles the unified model the renderer consumes.
package schema

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"

	"github.com/schemascan/schemascan/core/platform"
)

// ConnectOptions holds the connection parameters for one target database.
// Vendor-specific fields are ignored by the other vendors.
type ConnectOptions struct {
	Vendor   string
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// MSSQL
	TrustedConnection bool
	ConnectionString  string

	// SQLite
	DatabasePath string

	// Oracle
	ServiceName string
	SID         string
}

// Connect opens a database handle for the given options and verifies it with
// a ping. Failures are returned as *ConnectionError.
func Connect(opts ConnectOptions) (*sql.DB, error) {
	vendor := platform.NormalizeVendor(opts.Vendor)
	driverName, dsn, err := buildDSN(vendor, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &ConnectionError{Vendor: vendor, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &ConnectionError{Vendor: vendor, Err: err}
	}

	return db, nil
}

// buildDSN selects the driver and renders the vendor DSN.
func buildDSN(vendor string, opts ConnectOptions) (driverName, dsn string, err error) {
	switch vendor {
	case platform.MSSQL:
		return "sqlserver", mssqlDSN(opts), nil
	case platform.Postgres:
		return "pgx", postgresDSN(opts), nil
	case platform.MySQL:
		return "mysql", mysqlDSN(opts), nil
	case platform.Oracle:
		return "oracle", oracleDSN(opts), nil
	case platform.SQLite:
		path := opts.DatabasePath
		if path == "" {
			path = opts.Database
		}
		return "sqlite", path, nil
	default:
		return "", "", &ConnectionError{Vendor: opts.Vendor, Err: fmt.Errorf("unsupported vendor %q", opts.Vendor)}
	}
}

func mssqlDSN(opts ConnectOptions) string {
	if opts.ConnectionString != "" {
		return opts.ConnectionString
	}
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", opts.Host, opts.Port),
	}
	// With trusted authentication the driver uses the ambient credentials,
	// so no userinfo is set.
	if !opts.TrustedConnection {
		u.User = url.UserPassword(opts.Username, opts.Password)
	}
	q := url.Values{}
	q.Set("database", opts.Database)
	u.RawQuery = q.Encode()
	return u.String()
}

func postgresDSN(opts ConnectOptions) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(opts.Username, opts.Password),
		Host:   fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Path:   "/" + opts.Database,
	}
	return u.String()
}

func mysqlDSN(opts ConnectOptions) string {
	cfg := mysql.NewConfig()
	cfg.User = opts.Username
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	cfg.DBName = opts.Database
	return cfg.FormatDSN()
}

func oracleDSN(opts ConnectOptions) string {
	service := opts.ServiceName
	var urlOptions map[string]string
	if service == "" && opts.SID != "" {
		urlOptions = map[string]string{"SID": opts.SID}
	}
	return go_ora.BuildUrl(opts.Host, opts.Port, service, opts.Username, opts.Password, urlOptions)
}

// versionQueries are the per-vendor server version probes.
var versionQueries = map[string]string{
	platform.MSSQL:    "SELECT @@VERSION",
	platform.Postgres: "SELECT version()",
	platform.MySQL:    "SELECT VERSION()",
	platform.Oracle:   "SELECT banner FROM v$version WHERE ROWNUM = 1",
	platform.SQLite:   "SELECT 'SQLite ' || sqlite_version()",
}

// ServerVersion reports the engine's version string, or empty when the
// vendor is unknown or the probe fails.
func ServerVersion(db *sql.DB, vendor string) string {
	query, ok := versionQueries[platform.NormalizeVendor(vendor)]
	if !ok {
		return ""
	}
	var version string
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return ""
	}
	return version
}
