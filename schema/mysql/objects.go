package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TriggerExtractor reads all DML triggers in the scanned schemas.
type TriggerExtractor struct {
	base
}

func NewTriggerExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TriggerExtractor {
	return &TriggerExtractor{base: newBase(db, policy, logger)}
}

func (e *TriggerExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			trigger_schema,
			trigger_name,
			event_object_schema AS parent_schema,
			event_object_table AS parent_table,
			action_timing AS trigger_type,
			event_manipulation AS event,
			action_statement AS definition
		FROM information_schema.triggers
		WHERE trigger_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY trigger_schema, trigger_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var event string
		var definition sql.NullString
		err := rows.Scan(&tr.SchemaName, &tr.Name, &tr.ParentTableSchema, &tr.ParentTableName,
			&tr.TriggerType, &event, &definition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(tr.SchemaName) {
			continue
		}
		tr.Events = []string{event}
		tr.Definition = strOrNil(definition)
		triggers = append(triggers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found triggers", "count", len(triggers))
	return &types.ObjectSet{Triggers: triggers}, nil
}
