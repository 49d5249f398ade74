// Package mysql extracts schema metadata from MySQL and MariaDB via the
// information_schema views, plus the mysql.* grant tables for security.
// Features missing from older servers (check constraints, roles) degrade to
// empty results instead of failing the run.
package mysql

import (
	"database/sql"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
)

// base carries the shared state of every MySQL extractor.
type base struct {
	db     *sql.DB
	policy *filter.Policy
	logger *slog.Logger
}

func newBase(db *sql.DB, policy *filter.Policy, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{db: db, policy: policy, logger: logger}
}

func strOrNil(v sql.NullString) *string {
	if v.Valid {
		return &v.String
	}
	return nil
}

func intOrNil(v sql.NullInt64) *int {
	if v.Valid {
		i := int(v.Int64)
		return &i
	}
	return nil
}
