package platform

import (
	"strings"
)

const (
	MSSQL    = "mssql"
	Postgres = "postgresql"
	MySQL    = "mysql"
	Oracle   = "oracle"
	SQLite   = "sqlite"
)

// Vendors lists every supported database vendor in display order.
var Vendors = []string{MSSQL, Postgres, MySQL, Oracle, SQLite}

func NormalizeVendor(vendor string) string {
	switch strings.ToLower(vendor) {
	case "mssql", "sqlserver", "sql server":
		return MSSQL
	case "pgx", "postgresql", "postgres":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	case "oracle", "oracledb":
		return Oracle
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return ""
	}
}

// DefaultPort returns the conventional server port for a vendor, or 0 when
// the vendor has no network port (SQLite) or is unknown.
func DefaultPort(vendor string) int {
	switch vendor {
	case MSSQL:
		return 1433
	case Postgres:
		return 5432
	case MySQL:
		return 3306
	case Oracle:
		return 1521
	default:
		return 0
	}
}
