package sqlite

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
	query := `
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'view'
		ORDER BY name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []types.View
	for rows.Next() {
		var v types.View
		var definition sql.NullString
		if err := rows.Scan(&v.Name, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		v.SchemaName = mainSchema
		v.Definition = strOrNil(definition)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found views", "count", len(views))

	for i := range views {
		v := &views[i]
		if v.Columns, err = e.columns(v.Name); err != nil {
			return nil, err
		}
	}
	return &types.ObjectSet{Views: views}, nil
}

func (e *ViewExtractor) columns(viewName string) ([]types.Column, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteName(viewName))
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for view %s: %w", viewName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var cid, notNull, pk int
		var name string
		var declaredType, defaultValue sql.NullString
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan view column row: %w", err)
		}
		var col types.Column
		col.Name = name
		col.DataType, col.MaxLength, col.Precision, col.Scale = parseDeclaredType(declaredType.String)
		col.IsNullable = notNull == 0
		col.OrdinalPosition = cid + 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// TriggerExtractor reads all triggers in the database.
type TriggerExtractor struct {
	base
}

func NewTriggerExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TriggerExtractor {
	return &TriggerExtractor{base: newBase(db, policy, logger)}
}

func (e *TriggerExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT name, tbl_name, sql
		FROM sqlite_master
		WHERE type = 'trigger'
		ORDER BY name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		tr, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found triggers", "count", len(triggers))
	return &types.ObjectSet{Triggers: triggers}, nil
}

// scanTrigger reads one (name, tbl_name, sql) row and recovers the timing
// and events from the stored CREATE TRIGGER text.
func scanTrigger(rows *sql.Rows) (types.Trigger, error) {
	var tr types.Trigger
	var createSQL sql.NullString
	if err := rows.Scan(&tr.Name, &tr.ParentTableName, &createSQL); err != nil {
		return tr, fmt.Errorf("failed to scan trigger row: %w", err)
	}
	tr.SchemaName = mainSchema
	tr.ParentTableSchema = mainSchema
	tr.TriggerType, tr.Events = parseTriggerClauses(createSQL.String)
	tr.Definition = strOrNil(createSQL)
	return tr, nil
}
