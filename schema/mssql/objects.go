package mssql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TriggerExtractor reads every DML trigger in the database, independent of
// the per-table trigger listing.
type TriggerExtractor struct {
	base
}

func NewTriggerExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TriggerExtractor {
	return &TriggerExtractor{base: newBase(db, policy, logger)}
}

func (e *TriggerExtractor) Extract() (*types.ObjectSet, error) {
	triggers, err := e.listTriggers()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found triggers", "count", len(triggers))

	for i := range triggers {
		t := &triggers[i]
		if t.Definition, err = e.definition(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		t.Description = e.extendedProperty(t.SchemaName, t.Name)
	}

	return &types.ObjectSet{Triggers: triggers}, nil
}

func (e *TriggerExtractor) listTriggers() ([]types.Trigger, error) {
	query := `
		SELECT
			s.name AS schema_name, tr.name AS trigger_name,
			ps.name AS parent_schema, pt.name AS parent_table,
			CASE WHEN tr.is_instead_of_trigger = 1 THEN 'INSTEAD OF' ELSE 'AFTER' END AS trigger_type,
			tr.is_disabled,
			OBJECTPROPERTY(tr.object_id, 'ExecIsInsertTrigger') AS is_insert,
			OBJECTPROPERTY(tr.object_id, 'ExecIsUpdateTrigger') AS is_update,
			OBJECTPROPERTY(tr.object_id, 'ExecIsDeleteTrigger') AS is_delete
		FROM sys.triggers tr
		JOIN sys.tables pt ON tr.parent_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.schemas s ON pt.schema_id = s.schema_id
		WHERE tr.is_ms_shipped = 0 AND tr.parent_class = 1
		ORDER BY s.name, tr.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var isInsert, isUpdate, isDelete sql.NullInt64
		err := rows.Scan(&tr.SchemaName, &tr.Name, &tr.ParentTableSchema, &tr.ParentTableName,
			&tr.TriggerType, &tr.IsDisabled, &isInsert, &isUpdate, &isDelete)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(tr.SchemaName) {
			continue
		}
		if isInsert.Valid && isInsert.Int64 == 1 {
			tr.Events = append(tr.Events, "INSERT")
		}
		if isUpdate.Valid && isUpdate.Int64 == 1 {
			tr.Events = append(tr.Events, "UPDATE")
		}
		if isDelete.Valid && isDelete.Int64 == 1 {
			tr.Events = append(tr.Events, "DELETE")
		}
		triggers = append(triggers, tr)
	}
	return triggers, rows.Err()
}

func (e *TriggerExtractor) definition(schemaName, triggerName string) (*string, error) {
	query := `
		SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.triggers tr ON m.object_id = tr.object_id
		JOIN sys.tables t ON tr.parent_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND tr.name = @p2`

	var definition sql.NullString
	err := e.db.QueryRow(query, schemaName, triggerName).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for trigger %s.%s: %w", schemaName, triggerName, err)
	}
	return strOrNil(definition), nil
}

// TypeExtractor reads user-defined types: table types, CLR types and plain
// aliases over system types.
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
		if udts[i].TypeCategory == "TABLE_TYPE" {
			if udts[i].Columns, err = e.tableTypeColumns(udts[i].SchemaName, udts[i].Name); err != nil {
				return nil, err
			}
		}
	}

	return &types.ObjectSet{Types: udts}, nil
}

func (e *TypeExtractor) listTypes() ([]types.UserDefinedType, error) {
	query := `
		SELECT
			s.name AS schema_name, t.name AS type_name,
			CASE
				WHEN t.is_table_type = 1 THEN 'TABLE_TYPE'
				WHEN t.is_assembly_type = 1 THEN 'CLR_TYPE'
				ELSE 'ALIAS_TYPE'
			END AS type_category,
			bt.name AS base_type, t.max_length, t.precision, t.scale, t.is_nullable
		FROM sys.types t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		LEFT JOIN sys.types bt ON t.system_type_id = bt.user_type_id AND bt.is_user_defined = 0
		WHERE t.is_user_defined = 1
		ORDER BY s.name, t.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user-defined types: %w", err)
	}
	defer rows.Close()

	var udts []types.UserDefinedType
	for rows.Next() {
		var udt types.UserDefinedType
		var baseType sql.NullString
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&udt.SchemaName, &udt.Name, &udt.TypeCategory,
			&baseType, &maxLength, &precision, &scale, &udt.IsNullable)
		if err != nil {
			return nil, fmt.Errorf("failed to scan type row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(udt.SchemaName) {
			continue
		}
		udt.BaseType = strOrNil(baseType)
		udt.MaxLength = intOrNil(maxLength)
		udt.Precision = intOrNil(precision)
		udt.Scale = intOrNil(scale)
		udts = append(udts, udt)
	}
	return udts, rows.Err()
}

func (e *TypeExtractor) tableTypeColumns(schemaName, typeName string) ([]types.TypeColumn, error) {
	query := `
		SELECT
			c.name AS column_name, bt.name AS data_type,
			c.max_length, c.precision, c.scale, c.is_nullable,
			c.column_id AS ordinal_position
		FROM sys.table_types tt
		JOIN sys.schemas s ON tt.schema_id = s.schema_id
		JOIN sys.columns c ON tt.type_table_object_id = c.object_id
		JOIN sys.types bt ON c.user_type_id = bt.user_type_id
		WHERE s.name = @p1 AND tt.name = @p2
		ORDER BY c.column_id`

	rows, err := e.db.Query(query, schemaName, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for type %s.%s: %w", schemaName, typeName, err)
	}
	defer rows.Close()

	var columns []types.TypeColumn
	for rows.Next() {
		var col types.TypeColumn
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan type column: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// SequenceExtractor reads sequences. Value columns are cast to BIGINT so the
// catalog's sql_variant values scan cleanly.
type SequenceExtractor struct {
	base
}

func NewSequenceExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *SequenceExtractor {
	return &SequenceExtractor{base: newBase(db, policy, logger)}
}

func (e *SequenceExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			s.name AS schema_name, seq.name AS sequence_name, t.name AS data_type,
			CAST(seq.start_value AS BIGINT) AS start_value,
			CAST(seq.increment AS BIGINT) AS increment,
			CAST(seq.minimum_value AS BIGINT) AS min_value,
			CAST(seq.maximum_value AS BIGINT) AS max_value,
			seq.is_cycling, seq.cache_size,
			CAST(seq.current_value AS BIGINT) AS current_value
		FROM sys.sequences seq
		JOIN sys.schemas s ON seq.schema_id = s.schema_id
		JOIN sys.types t ON seq.user_type_id = t.user_type_id
		ORDER BY s.name, seq.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()

	var sequences []types.Sequence
	for rows.Next() {
		var seq types.Sequence
		var cacheSize, currentValue sql.NullInt64
		err := rows.Scan(&seq.SchemaName, &seq.Name, &seq.DataType,
			&seq.StartValue, &seq.Increment, &seq.MinValue, &seq.MaxValue,
			&seq.IsCycling, &cacheSize, &currentValue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(seq.SchemaName) {
			continue
		}
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

// SynonymExtractor reads synonyms and decomposes each base object name into
// server, database, schema and object parts.
type SynonymExtractor struct {
	base
}

func NewSynonymExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *SynonymExtractor {
	return &SynonymExtractor{base: newBase(db, policy, logger)}
}

func (e *SynonymExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT s.name AS schema_name, syn.name AS synonym_name, syn.base_object_name
		FROM sys.synonyms syn
		JOIN sys.schemas s ON syn.schema_id = s.schema_id
		ORDER BY s.name, syn.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list synonyms: %w", err)
	}
	defer rows.Close()

	var synonyms []types.Synonym
	for rows.Next() {
		var syn types.Synonym
		if err := rows.Scan(&syn.SchemaName, &syn.Name, &syn.BaseObjectName); err != nil {
			return nil, fmt.Errorf("failed to scan synonym row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(syn.SchemaName) {
			continue
		}
		syn.TargetServer, syn.TargetDatabase, syn.TargetSchema, syn.TargetObject = parseBaseObject(syn.BaseObjectName)
		synonyms = append(synonyms, syn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found synonyms", "count", len(synonyms))

	return &types.ObjectSet{Synonyms: synonyms}, nil
}

// parseBaseObject splits a possibly bracket-quoted base object name into up
// to four dot-separated parts, right-aligned so the last part is always the
// object name.
func parseBaseObject(baseObjectName string) (server, database, schemaName, object *string) {
	cleaned := strings.NewReplacer("[", "", "]", "").Replace(baseObjectName)
	parts := strings.Split(cleaned, ".")
	switch len(parts) {
	case 1:
		return nil, nil, nil, &parts[0]
	case 2:
		return nil, nil, &parts[0], &parts[1]
	case 3:
		return nil, &parts[0], &parts[1], &parts[2]
	default:
		return &parts[0], &parts[1], &parts[2], &parts[3]
	}
}
