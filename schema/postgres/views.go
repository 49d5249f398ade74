package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ViewExtractor reads regular and materialized views.
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
		if v.Definition, err = e.definition(v.SchemaName, v.Name, v.IsMaterialized); err != nil {
			return nil, err
		}
		v.Description = e.objDescription(v.SchemaName, v.Name)
	}

	return &types.ObjectSet{Views: views}, nil
}

func (e *ViewExtractor) listViews() ([]types.View, error) {
	query := `
		SELECT
			schemaname AS schema_name,
			viewname AS view_name,
			FALSE AS is_materialized
		FROM pg_views
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		UNION ALL
		SELECT
			schemaname AS schema_name,
			matviewname AS view_name,
			TRUE AS is_materialized
		FROM pg_matviews
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schema_name, view_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []types.View
	for rows.Next() {
		var v types.View
		if err := rows.Scan(&v.SchemaName, &v.Name, &v.IsMaterialized); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(v.SchemaName) {
			continue
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (e *ViewExtractor) columns(schemaName, viewName string) ([]types.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.character_maximum_length AS max_length,
			c.numeric_precision AS precision,
			c.numeric_scale AS scale,
			c.is_nullable = 'YES' AS is_nullable,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := e.db.Query(query, schemaName, viewName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s.%s: %w", schemaName, viewName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan view column: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *ViewExtractor) definition(schemaName, viewName string, materialized bool) (*string, error) {
	query := `SELECT definition FROM pg_views WHERE schemaname = $1 AND viewname = $2`
	if materialized {
		query = `SELECT definition FROM pg_matviews WHERE schemaname = $1 AND matviewname = $2`
	}

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
