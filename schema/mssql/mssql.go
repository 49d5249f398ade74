// Package mssql extracts schema metadata from SQL Server by querying the
// sys.* catalog views. One extractor exists per object kind; each issues
// small targeted queries and maps rows onto the unified model.
package mssql

import (
	"database/sql"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
)

// base carries the shared state of every SQL Server extractor.
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

// extendedProperty reads the MS_Description extended property for an object.
func (b base) extendedProperty(schemaName, objectName string) *string {
	query := `
		SELECT CAST(ep.value AS NVARCHAR(MAX))
		FROM sys.extended_properties ep
		JOIN sys.objects o ON ep.major_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE ep.name = 'MS_Description'
		AND ep.minor_id = 0
		AND s.name = @p1
		AND o.name = @p2`

	var value sql.NullString
	err := b.db.QueryRow(query, schemaName, objectName).Scan(&value)
	if err != nil || !value.Valid {
		return nil
	}
	return &value.String
}

// columnProperty reads the MS_Description extended property for a column.
func (b base) columnProperty(schemaName, objectName, columnName string) *string {
	query := `
		SELECT CAST(ep.value AS NVARCHAR(MAX))
		FROM sys.extended_properties ep
		JOIN sys.objects o ON ep.major_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		JOIN sys.columns c ON ep.major_id = c.object_id AND ep.minor_id = c.column_id
		WHERE ep.name = 'MS_Description'
		AND s.name = @p1
		AND o.name = @p2
		AND c.name = @p3`

	var value sql.NullString
	err := b.db.QueryRow(query, schemaName, objectName, columnName).Scan(&value)
	if err != nil || !value.Valid {
		return nil
	}
	return &value.String
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
