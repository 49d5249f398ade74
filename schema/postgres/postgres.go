// Package postgres extracts schema metadata from PostgreSQL using the
// information_schema views and the pg_catalog tables. Object comments come
// from obj_description; permissions are decoded from ACL columns.
package postgres

import (
	"database/sql"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
)

// base carries the shared state of every PostgreSQL extractor.
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

// objDescription reads the comment attached to a pg_class relation.
func (b base) objDescription(schemaName, relName string) *string {
	query := `
		SELECT obj_description(c.oid) AS description
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`

	var description sql.NullString
	err := b.db.QueryRow(query, schemaName, relName).Scan(&description)
	if err != nil || !description.Valid {
		return nil
	}
	return &description.String
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

func int64OrNil(v sql.NullInt64) *int64 {
	if v.Valid {
		return &v.Int64
	}
	return nil
}
