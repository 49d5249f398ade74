package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ViewExtractor reads views with their columns and definitions.
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
	}
	return &types.ObjectSet{Views: views}, nil
}

func (e *ViewExtractor) listViews() ([]types.View, error) {
	query := `
		SELECT table_schema, table_name, view_definition
		FROM information_schema.views
		WHERE table_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY table_schema, table_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []types.View
	for rows.Next() {
		var v types.View
		var definition sql.NullString
		if err := rows.Scan(&v.SchemaName, &v.Name, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(v.SchemaName) {
			continue
		}
		v.Definition = strOrNil(definition)
		views = append(views, v)
	}
	return views, rows.Err()
}

func (e *ViewExtractor) columns(schemaName, viewName string) ([]types.Column, error) {
	query := "SELECT " +
		"column_name, data_type, " +
		"character_maximum_length AS max_length, " +
		"numeric_precision AS `precision`, " +
		"numeric_scale AS scale, " +
		"is_nullable = 'YES' AS is_nullable, " +
		"ordinal_position " +
		"FROM information_schema.columns " +
		"WHERE table_schema = ? AND table_name = ? " +
		"ORDER BY ordinal_position"

	rows, err := e.db.Query(query, schemaName, viewName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for view %s.%s: %w", schemaName, viewName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan view column row: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
