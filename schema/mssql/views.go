package mssql

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ViewExtractor reads views with their columns, SQL definition and the
// tables they depend on.
type ViewExtractor struct {
	base
}

func NewViewExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *ViewExtractor {
	return &ViewExtractor{base: newBase(db, policy, logger)}
}

func (e *ViewExtractor) Extract() (*types.ObjectSet, error) {
	views, err := e.listViews()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found views", "count", len(views))

	for i := range views {
		v := &views[i]
		if v.Columns, err = e.columns(v.SchemaName, v.Name); err != nil {
			return nil, err
		}
		if v.Definition, err = e.definition(v.SchemaName, v.Name); err != nil {
			return nil, err
		}
		v.Description = e.extendedProperty(v.SchemaName, v.Name)
		if v.BaseTables, err = e.baseTables(v.SchemaName, v.Name); err != nil {
			return nil, err
		}
	}

	return &types.ObjectSet{Views: views}, nil
}

func (e *ViewExtractor) listViews() ([]types.View, error) {
	query := `
		SELECT s.name AS schema_name, v.name AS view_name
		FROM sys.views v
		JOIN sys.schemas s ON v.schema_id = s.schema_id
		WHERE v.is_ms_shipped = 0
		ORDER BY s.name, v.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []types.View
	for rows.Next() {
		var schemaName, viewName string
		if err := rows.Scan(&schemaName, &viewName); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(schemaName) {
			continue
		}
		views = append(views, types.View{SchemaName: schemaName, Name: viewName})
	}
	return views, rows.Err()
}

func (e *ViewExtractor) columns(schemaName, viewName string) ([]types.Column, error) {
	query := `
		SELECT
			c.name AS column_name, t.name AS data_type,
			c.max_length, c.precision, c.scale, c.is_nullable,
			c.collation_name, c.column_id AS ordinal_position
		FROM sys.columns c
		JOIN sys.types t ON c.user_type_id = t.user_type_id
		JOIN sys.views v ON c.object_id = v.object_id
		JOIN sys.schemas s ON v.schema_id = s.schema_id
		WHERE s.name = @p1 AND v.name = @p2
		ORDER BY c.column_id`

	rows, err := e.db.Query(query, schemaName, viewName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s.%s: %w", schemaName, viewName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var maxLength, precision, scale sql.NullInt64
		var collation sql.NullString
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &collation, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan view column: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		col.Collation = strOrNil(collation)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *ViewExtractor) definition(schemaName, viewName string) (*string, error) {
	query := `
		SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.views v ON m.object_id = v.object_id
		JOIN sys.schemas s ON v.schema_id = s.schema_id
		WHERE s.name = @p1 AND v.name = @p2`

	var definition sql.NullString
	err := e.db.QueryRow(query, schemaName, viewName).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for %s.%s: %w", schemaName, viewName, err)
	}
	return strOrNil(definition), nil
}

func (e *ViewExtractor) baseTables(schemaName, viewName string) ([]string, error) {
	query := `
		SELECT DISTINCT SCHEMA_NAME(o.schema_id) + '.' + o.name AS table_name
		FROM sys.sql_expression_dependencies d
		JOIN sys.views v ON d.referencing_id = v.object_id
		JOIN sys.schemas s ON v.schema_id = s.schema_id
		JOIN sys.objects o ON d.referenced_id = o.object_id
		WHERE s.name = @p1 AND v.name = @p2 AND o.type IN ('U', 'V')
		ORDER BY table_name`

	rows, err := e.db.Query(query, schemaName, viewName)
	if err != nil {
		return nil, fmt.Errorf("failed to query base tables for %s.%s: %w", schemaName, viewName, err)
	}
	defer rows.Close()

	var baseTables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan base table: %w", err)
		}
		baseTables = append(baseTables, name)
	}
	return baseTables, rows.Err()
}
