package oracle

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
		if v.Definition, err = e.definition(v.SchemaName, v.Name); err != nil {
			return nil, err
		}
		v.Description = e.tableComment(v.SchemaName, v.Name)
	}
	return &types.ObjectSet{Views: views}, nil
}

func (e *ViewExtractor) listViews() ([]types.View, error) {
	query := `
		SELECT owner, view_name
		FROM all_views
		WHERE owner NOT IN ` + systemSchemas + `
		ORDER BY owner, view_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []types.View
	for rows.Next() {
		var v types.View
		if err := rows.Scan(&v.SchemaName, &v.Name); err != nil {
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
			column_name,
			data_type,
			data_length,
			data_precision,
			data_scale,
			CASE WHEN nullable = 'Y' THEN 1 ELSE 0 END AS is_nullable,
			column_id
		FROM all_tab_columns
		WHERE owner = :1 AND table_name = :2
		ORDER BY column_id`

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

func (e *ViewExtractor) definition(schemaName, viewName string) (*string, error) {
	query := `SELECT text FROM all_views WHERE owner = :1 AND view_name = :2`
	var text sql.NullString
	err := e.db.QueryRow(query, schemaName, viewName).Scan(&text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for view %s.%s: %w", schemaName, viewName, err)
	}
	return strOrNil(text), nil
}
