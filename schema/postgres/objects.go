package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TriggerExtractor reads every user trigger in the database.
type TriggerExtractor struct {
	base
}

func NewTriggerExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TriggerExtractor {
	return &TriggerExtractor{base: newBase(db, policy, logger)}
}

func (e *TriggerExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			t.tgname AS trigger_name,
			c.relname AS parent_table,
			CASE
				WHEN t.tgtype & 2 = 2 THEN 'BEFORE'
				WHEN t.tgtype & 64 = 64 THEN 'INSTEAD OF'
				ELSE 'AFTER'
			END AS trigger_type,
			t.tgtype & 4 = 4 AS is_insert,
			t.tgtype & 8 = 8 AS is_delete,
			t.tgtype & 16 = 16 AS is_update,
			NOT t.tgenabled = 'D' AS is_enabled,
			pg_get_triggerdef(t.oid) AS definition
		FROM pg_trigger t
		JOIN pg_class c ON t.tgrelid = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE NOT t.tgisinternal
		AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, t.tgname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var isInsert, isDelete, isUpdate, isEnabled bool
		var definition sql.NullString
		err := rows.Scan(&tr.SchemaName, &tr.Name, &tr.ParentTableName, &tr.TriggerType,
			&isInsert, &isDelete, &isUpdate, &isEnabled, &definition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(tr.SchemaName) {
			continue
		}
		tr.ParentTableSchema = tr.SchemaName
		tr.IsDisabled = !isEnabled
		tr.Definition = strOrNil(definition)
		if isInsert {
			tr.Events = append(tr.Events, "INSERT")
		}
		if isUpdate {
			tr.Events = append(tr.Events, "UPDATE")
		}
		if isDelete {
			tr.Events = append(tr.Events, "DELETE")
		}
		triggers = append(triggers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found triggers", "count", len(triggers))

	return &types.ObjectSet{Triggers: triggers}, nil
}

// TypeExtractor reads composite, enum, domain and range types. Row types
// backing real tables are filtered out.
type TypeExtractor struct {
	base
}

func NewTypeExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TypeExtractor {
	return &TypeExtractor{base: newBase(db, policy, logger)}
}

func (e *TypeExtractor) Extract() (*types.ObjectSet, error) {
	udts, err := e.listTypes()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found user-defined types", "count", len(udts))

	for i := range udts {
		switch udts[i].TypeCategory {
		case "COMPOSITE":
			if udts[i].Columns, err = e.compositeColumns(udts[i].SchemaName, udts[i].Name); err != nil {
				return nil, err
			}
		case "ENUM":
			if udts[i].EnumValues, err = e.enumValues(udts[i].SchemaName, udts[i].Name); err != nil {
				return nil, err
			}
		}
	}

	return &types.ObjectSet{Types: udts}, nil
}

func (e *TypeExtractor) listTypes() ([]types.UserDefinedType, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			t.typname AS type_name,
			CASE
				WHEN t.typtype = 'c' THEN 'COMPOSITE'
				WHEN t.typtype = 'e' THEN 'ENUM'
				WHEN t.typtype = 'd' THEN 'DOMAIN'
				WHEN t.typtype = 'r' THEN 'RANGE'
				ELSE 'OTHER'
			END AS type_category,
			bt.typname AS base_type,
			t.typnotnull AS is_not_null,
			pg_get_constraintdef(con.oid) AS check_constraint,
			obj_description(t.oid) AS description
		FROM pg_type t
		JOIN pg_namespace n ON t.typnamespace = n.oid
		LEFT JOIN pg_type bt ON t.typbasetype = bt.oid
		LEFT JOIN pg_constraint con ON con.contypid = t.oid
		WHERE t.typtype IN ('c', 'e', 'd', 'r')
		AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		AND NOT EXISTS (SELECT 1 FROM pg_class c WHERE c.reltype = t.oid AND c.relkind = 'r')
		ORDER BY n.nspname, t.typname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user-defined types: %w", err)
	}
	defer rows.Close()

	var udts []types.UserDefinedType
	for rows.Next() {
		var udt types.UserDefinedType
		var baseType, checkConstraint, description sql.NullString
		var isNotNull sql.NullBool
		err := rows.Scan(&udt.SchemaName, &udt.Name, &udt.TypeCategory,
			&baseType, &isNotNull, &checkConstraint, &description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan type row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(udt.SchemaName) {
			continue
		}
		udt.BaseType = strOrNil(baseType)
		udt.IsNullable = !isNotNull.Valid || !isNotNull.Bool
		udt.CheckConstraint = strOrNil(checkConstraint)
		udt.Description = strOrNil(description)
		udts = append(udts, udt)
	}
	return udts, rows.Err()
}

func (e *TypeExtractor) compositeColumns(schemaName, typeName string) ([]types.TypeColumn, error) {
	query := `
		SELECT
			a.attname AS column_name,
			pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
			NOT a.attnotnull AS is_nullable,
			a.attnum AS ordinal_position
		FROM pg_type t
		JOIN pg_namespace n ON t.typnamespace = n.oid
		JOIN pg_attribute a ON a.attrelid = t.typrelid
		WHERE n.nspname = $1 AND t.typname = $2
		AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`

	rows, err := e.db.Query(query, schemaName, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for type %s.%s: %w", schemaName, typeName, err)
	}
	defer rows.Close()

	var columns []types.TypeColumn
	for rows.Next() {
		var col types.TypeColumn
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("failed to scan type column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *TypeExtractor) enumValues(schemaName, typeName string) ([]string, error) {
	query := `
		SELECT e.enumlabel
		FROM pg_enum e
		JOIN pg_type t ON e.enumtypid = t.oid
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE n.nspname = $1 AND t.typname = $2
		ORDER BY e.enumsortorder`

	rows, err := e.db.Query(query, schemaName, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to query enum values for %s.%s: %w", schemaName, typeName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan enum value: %w", err)
		}
		values = append(values, label)
	}
	return values, rows.Err()
}

// SequenceExtractor reads sequences from the pg_sequences view.
type SequenceExtractor struct {
	base
}

func NewSequenceExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *SequenceExtractor {
	return &SequenceExtractor{base: newBase(db, policy, logger)}
}

func (e *SequenceExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			schemaname AS schema_name,
			sequencename AS sequence_name,
			data_type,
			start_value,
			increment_by AS increment,
			min_value,
			max_value,
			cycle AS is_cycling,
			cache_size,
			last_value AS current_value
		FROM pg_sequences
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schemaname, sequencename`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()

	var sequences []types.Sequence
	for rows.Next() {
		var seq types.Sequence
		var startValue, increment, minValue, maxValue, cacheSize, currentValue sql.NullInt64
		err := rows.Scan(&seq.SchemaName, &seq.Name, &seq.DataType,
			&startValue, &increment, &minValue, &maxValue,
			&seq.IsCycling, &cacheSize, &currentValue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(seq.SchemaName) {
			continue
		}
		seq.StartValue = orDefault(startValue, 1)
		seq.Increment = orDefault(increment, 1)
		seq.MinValue = orDefault(minValue, 1)
		seq.MaxValue = orDefault(maxValue, 9223372036854775807)
		seq.CacheSize = int64OrNil(cacheSize)
		seq.CurrentValue = int64OrNil(currentValue)
		sequences = append(sequences, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found sequences", "count", len(sequences))

	return &types.ObjectSet{Sequences: sequences}, nil
}

func orDefault(v sql.NullInt64, def int64) int64 {
	if v.Valid {
		return v.Int64
	}
	return def
}
