package platform_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/schemascan/schemascan/core/platform"
)

func TestNormalizeVendor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "mssql", input: "mssql", expected: platform.MSSQL},
		{name: "sqlserver alias", input: "sqlserver", expected: platform.MSSQL},
		{name: "mixed case", input: "MSSQL", expected: platform.MSSQL},
		{name: "postgres alias", input: "postgres", expected: platform.Postgres},
		{name: "postgresql", input: "postgresql", expected: platform.Postgres},
		{name: "pgx alias", input: "pgx", expected: platform.Postgres},
		{name: "mysql", input: "mysql", expected: platform.MySQL},
		{name: "mariadb maps to mysql", input: "mariadb", expected: platform.MySQL},
		{name: "oracle", input: "oracle", expected: platform.Oracle},
		{name: "sqlite3 alias", input: "sqlite3", expected: platform.SQLite},
		{name: "unknown", input: "db2", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			result := platform.NormalizeVendor(tt.input)
			c.Assert(result, qt.Equals, tt.expected, qt.Commentf("NormalizeVendor(%q) = %q, want %q", tt.input, result, tt.expected))
		})
	}
}

func TestDefaultPort(t *testing.T) {
	tests := []struct {
		name     string
		vendor   string
		expected int
	}{
		{name: "mssql", vendor: platform.MSSQL, expected: 1433},
		{name: "postgres", vendor: platform.Postgres, expected: 5432},
		{name: "mysql", vendor: platform.MySQL, expected: 3306},
		{name: "oracle", vendor: platform.Oracle, expected: 1521},
		{name: "sqlite has no port", vendor: platform.SQLite, expected: 0},
		{name: "unknown", vendor: "db2", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(platform.DefaultPort(tt.vendor), qt.Equals, tt.expected)
		})
	}
}
