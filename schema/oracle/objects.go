package oracle

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TriggerExtractor reads all triggers in the scanned schemas.
type TriggerExtractor struct {
	base
}

func NewTriggerExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TriggerExtractor {
	return &TriggerExtractor{base: newBase(db, policy, logger)}
}

func (e *TriggerExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			owner,
			trigger_name,
			table_owner,
			table_name,
			trigger_type,
			triggering_event,
			trigger_body,
			CASE WHEN status = 'DISABLED' THEN 1 ELSE 0 END AS is_disabled
		FROM all_triggers
		WHERE owner NOT IN ` + systemSchemas + `
		ORDER BY owner, trigger_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var parentSchema, parentTable, triggerType, events sql.NullString
		var definition sql.NullString
		err := rows.Scan(&tr.SchemaName, &tr.Name, &parentSchema, &parentTable,
			&triggerType, &events, &definition, &tr.IsDisabled)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(tr.SchemaName) {
			continue
		}
		if parentSchema.Valid {
			tr.ParentTableSchema = parentSchema.String
		}
		if parentTable.Valid {
			tr.ParentTableName = parentTable.String
		}
		if triggerType.Valid {
			tr.TriggerType = triggerTiming(triggerType.String)
		}
		if events.Valid {
			tr.Events = triggerEvents(events.String)
		}
		tr.Definition = strOrNil(definition)
		triggers = append(triggers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found triggers", "count", len(triggers))
	return &types.ObjectSet{Triggers: triggers}, nil
}

// TypeExtractor reads user-defined object and collection types.
type TypeExtractor struct {
	base
}

func NewTypeExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TypeExtractor {
	return &TypeExtractor{base: newBase(db, policy, logger)}
}

func (e *TypeExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT owner, type_name, typecode
		FROM all_types
		WHERE owner NOT IN ` + systemSchemas + `
		ORDER BY owner, type_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list types: %w", err)
	}
	defer rows.Close()

	var udts []types.UserDefinedType
	for rows.Next() {
		var udt types.UserDefinedType
		if err := rows.Scan(&udt.SchemaName, &udt.Name, &udt.TypeCategory); err != nil {
			return nil, fmt.Errorf("failed to scan type row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(udt.SchemaName) {
			continue
		}
		udts = append(udts, udt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found user-defined types", "count", len(udts))

	for i := range udts {
		udt := &udts[i]
		if udt.TypeCategory != "OBJECT" {
			continue
		}
		if udt.Columns, err = e.objectAttributes(udt.SchemaName, udt.Name); err != nil {
			return nil, err
		}
	}
	return &types.ObjectSet{Types: udts}, nil
}

func (e *TypeExtractor) objectAttributes(schemaName, typeName string) ([]types.TypeColumn, error) {
	query := `
		SELECT
			attr_name,
			attr_type_name,
			length,
			precision,
			scale,
			attr_no
		FROM all_type_attrs
		WHERE owner = :1 AND type_name = :2
		ORDER BY attr_no`

	rows, err := e.db.Query(query, schemaName, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes for type %s.%s: %w", schemaName, typeName, err)
	}
	defer rows.Close()

	var columns []types.TypeColumn
	for rows.Next() {
		var col types.TypeColumn
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan type attribute row: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// SequenceExtractor reads sequences. ALL_SEQUENCES does not record the
// original START WITH value, so min_value stands in for it.
type SequenceExtractor struct {
	base
}

func NewSequenceExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *SequenceExtractor {
	return &SequenceExtractor{base: newBase(db, policy, logger)}
}

func (e *SequenceExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			sequence_owner,
			sequence_name,
			min_value,
			max_value,
			increment_by,
			CASE WHEN cycle_flag = 'Y' THEN 1 ELSE 0 END AS is_cycling,
			cache_size,
			last_number
		FROM all_sequences
		WHERE sequence_owner NOT IN ` + systemSchemas + `
		ORDER BY sequence_owner, sequence_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()

	var sequences []types.Sequence
	for rows.Next() {
		var s types.Sequence
		var cacheSize, lastNumber sql.NullInt64
		err := rows.Scan(&s.SchemaName, &s.Name, &s.MinValue, &s.MaxValue,
			&s.Increment, &s.IsCycling, &cacheSize, &lastNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(s.SchemaName) {
			continue
		}
		s.DataType = "NUMBER"
		s.StartValue = s.MinValue
		s.CacheSize = int64OrNil(cacheSize)
		s.CurrentValue = int64OrNil(lastNumber)
		sequences = append(sequences, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found sequences", "count", len(sequences))
	return &types.ObjectSet{Sequences: sequences}, nil
}

// SynonymExtractor reads private synonyms; the PUBLIC schema is excluded.
type SynonymExtractor struct {
	base
}

func NewSynonymExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *SynonymExtractor {
	return &SynonymExtractor{base: newBase(db, policy, logger)}
}

func (e *SynonymExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			owner,
			synonym_name,
			table_owner,
			table_name,
			db_link
		FROM all_synonyms
		WHERE owner NOT IN ('SYS', 'SYSTEM', 'OUTLN', 'DIP', 'ORACLE_OCM',
			'DBSNMP', 'APPQOSSYS', 'WMSYS', 'EXFSYS', 'CTXSYS',
			'XDB', 'ORDDATA', 'ORDSYS', 'MDSYS', 'OLAPSYS', 'PUBLIC')
		ORDER BY owner, synonym_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list synonyms: %w", err)
	}
	defer rows.Close()

	var synonyms []types.Synonym
	for rows.Next() {
		var s types.Synonym
		var targetSchema, targetObject, dbLink sql.NullString
		if err := rows.Scan(&s.SchemaName, &s.Name, &targetSchema, &targetObject, &dbLink); err != nil {
			return nil, fmt.Errorf("failed to scan synonym row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(s.SchemaName) {
			continue
		}
		s.TargetSchema = strOrNil(targetSchema)
		s.TargetObject = strOrNil(targetObject)
		s.TargetDatabase = strOrNil(dbLink)
		if targetSchema.Valid && targetObject.Valid {
			s.BaseObjectName = targetSchema.String + "." + targetObject.String
		}
		synonyms = append(synonyms, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found synonyms", "count", len(synonyms))
	return &types.ObjectSet{Synonyms: synonyms}, nil
}
