package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TableExtractor reads tables with their columns, keys, indexes,
// constraints, triggers and size statistics.
type TableExtractor struct {
	base
}

func NewTableExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *TableExtractor {
	return &TableExtractor{base: newBase(db, policy, logger)}
}

func (e *TableExtractor) Extract() (*types.ObjectSet, error) {
	tables, err := e.listTables()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found tables", "count", len(tables))

	for i := range tables {
		t := &tables[i]
		if t.Columns, err = e.columns(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.PrimaryKey, err = e.primaryKey(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = e.foreignKeys(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.Indexes, err = e.indexes(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		t.CheckConstraints = e.checkConstraints(t.SchemaName, t.Name)
		if t.UniqueConstraints, err = e.uniqueConstraints(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.Triggers, err = e.tableTriggers(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if err = e.tableStats(t); err != nil {
			return nil, err
		}
	}

	if err := e.buildReferences(tables); err != nil {
		return nil, err
	}

	return &types.ObjectSet{Tables: tables}, nil
}

func (e *TableExtractor) listTables() ([]types.Table, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		AND table_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY table_schema, table_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []types.Table
	for rows.Next() {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(schemaName) {
			continue
		}
		tables = append(tables, types.Table{SchemaName: schemaName, Name: tableName})
	}
	return tables, rows.Err()
}

func (e *TableExtractor) columns(schemaName, tableName string) ([]types.Column, error) {
	query := "SELECT " +
		"column_name, data_type, " +
		"character_maximum_length AS max_length, " +
		"numeric_precision AS `precision`, " +
		"numeric_scale AS scale, " +
		"is_nullable = 'YES' AS is_nullable, " +
		"column_default AS default_value, " +
		"extra LIKE '%auto_increment%' AS is_identity, " +
		"generation_expression AS computed_definition, " +
		"collation_name, ordinal_position, " +
		"column_comment AS description " +
		"FROM information_schema.columns " +
		"WHERE table_schema = ? AND table_name = ? " +
		"ORDER BY ordinal_position"

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var maxLength, precision, scale sql.NullInt64
		var defaultValue, computedDef, collation, description sql.NullString
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &defaultValue, &col.IsIdentity, &computedDef,
			&collation, &col.OrdinalPosition, &description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		col.DefaultValue = strOrNil(defaultValue)
		col.Collation = strOrNil(collation)
		if computedDef.Valid && computedDef.String != "" {
			col.IsComputed = true
			col.ComputedDefinition = &computedDef.String
		}
		if description.Valid && description.String != "" {
			col.Description = &description.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// primaryKey reads the PRIMARY constraint. InnoDB primary keys are always
// the clustered index.
func (e *TableExtractor) primaryKey(schemaName, tableName string) (*types.PrimaryKey, error) {
	query := `
		SELECT
			constraint_name,
			GROUP_CONCAT(column_name ORDER BY ordinal_position) AS columns
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ?
		AND constraint_name = 'PRIMARY'
		GROUP BY constraint_name`

	var name, columns string
	err := e.db.QueryRow(query, schemaName, tableName).Scan(&name, &columns)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key for %s.%s: %w", schemaName, tableName, err)
	}
	return &types.PrimaryKey{
		Name:        name,
		Columns:     strings.Split(columns, ","),
		IsClustered: true,
	}, nil
}

func (e *TableExtractor) foreignKeys(schemaName, tableName string) ([]types.ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position) AS columns,
			kcu.referenced_table_schema AS referenced_schema,
			kcu.referenced_table_name AS referenced_table,
			GROUP_CONCAT(kcu.referenced_column_name ORDER BY kcu.ordinal_position) AS referenced_columns,
			rc.delete_rule AS on_delete,
			rc.update_rule AS on_update
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.constraint_schema = rc.constraint_schema
		WHERE kcu.table_schema = ? AND kcu.table_name = ?
		AND kcu.referenced_table_name IS NOT NULL
		GROUP BY kcu.constraint_name, kcu.referenced_table_schema,
		         kcu.referenced_table_name, rc.delete_rule, rc.update_rule`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var foreignKeys []types.ForeignKey
	for rows.Next() {
		var fk types.ForeignKey
		var columns, refColumns string
		err := rows.Scan(&fk.Name, &columns, &fk.ReferencedSchema, &fk.ReferencedTable,
			&refColumns, &fk.OnDelete, &fk.OnUpdate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fk.Columns = strings.Split(columns, ",")
		fk.ReferencedColumns = strings.Split(refColumns, ",")
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

func (e *TableExtractor) indexes(schemaName, tableName string) ([]types.Index, error) {
	query := `
		SELECT
			index_name,
			NOT non_unique AS is_unique,
			index_name = 'PRIMARY' AS is_primary_key,
			UPPER(index_type) AS index_type,
			GROUP_CONCAT(column_name ORDER BY seq_in_index) AS columns
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ?
		GROUP BY index_name, non_unique, index_type
		ORDER BY index_name`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		var idx types.Index
		var columns string
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.IsPrimaryKey, &idx.IndexType, &columns); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		idx.Columns = strings.Split(columns, ",")
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	createSQL := e.showCreateTable(schemaName, tableName)
	if createSQL != "" {
		for i := range indexes {
			indexes[i].FilterDefinition = indexFilterDefinition(createSQL, indexes[i].Name)
		}
	}
	return indexes, nil
}

// showCreateTable returns the CREATE TABLE statement, or empty when the
// server refuses the statement.
func (e *TableExtractor) showCreateTable(schemaName, tableName string) string {
	var name, createSQL string
	query := fmt.Sprintf("SHOW CREATE TABLE `%s`.`%s`", schemaName, tableName)
	if err := e.db.QueryRow(query).Scan(&name, &createSQL); err != nil {
		return ""
	}
	return createSQL
}

// indexFilterDefinition scans a CREATE TABLE statement for a WHERE clause on
// the named index.
func indexFilterDefinition(createSQL, indexName string) *string {
	pattern := fmt.Sprintf(`(?is)INDEX\s+`+"`"+`%s`+"`"+`\s+.*?(WHERE\s+[^,\)]+)`, regexp.QuoteMeta(indexName))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	m := re.FindStringSubmatch(createSQL)
	if m == nil {
		return nil
	}
	filterDef := m[1]
	return &filterDef
}

// checkConstraints reads check constraints (MySQL 8.0.16+). Older servers
// lack the catalog view, so failures yield an empty list.
func (e *TableExtractor) checkConstraints(schemaName, tableName string) []types.CheckConstraint {
	query := `
		SELECT
			tc.constraint_name,
			cc.check_clause AS definition
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
			ON tc.constraint_name = cc.constraint_name
			AND tc.constraint_schema = cc.constraint_schema
		WHERE tc.table_schema = ? AND tc.table_name = ?
		AND tc.constraint_type = 'CHECK'`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		e.logger.Debug("Check constraints not available", "schema", schemaName, "table", tableName, "error", err)
		return nil
	}
	defer rows.Close()

	var constraints []types.CheckConstraint
	for rows.Next() {
		var cc types.CheckConstraint
		if err := rows.Scan(&cc.Name, &cc.Definition); err != nil {
			return nil
		}
		constraints = append(constraints, cc)
	}
	return constraints
}

func (e *TableExtractor) uniqueConstraints(schemaName, tableName string) ([]types.UniqueConstraint, error) {
	query := `
		SELECT
			tc.constraint_name,
			GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position) AS columns
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
		AND tc.table_schema = ? AND tc.table_name = ?
		GROUP BY tc.constraint_name`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique constraints for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var constraints []types.UniqueConstraint
	for rows.Next() {
		var uc types.UniqueConstraint
		var columns string
		if err := rows.Scan(&uc.Name, &columns); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint row: %w", err)
		}
		uc.Columns = strings.Split(columns, ",")
		constraints = append(constraints, uc)
	}
	return constraints, rows.Err()
}

func (e *TableExtractor) tableTriggers(schemaName, tableName string) ([]types.Trigger, error) {
	query := `
		SELECT
			trigger_name,
			action_timing AS trigger_type,
			event_manipulation AS event,
			action_statement AS definition
		FROM information_schema.triggers
		WHERE event_object_schema = ? AND event_object_table = ?`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var event string
		var definition sql.NullString
		if err := rows.Scan(&tr.Name, &tr.TriggerType, &event, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		tr.SchemaName = schemaName
		tr.ParentTableSchema = schemaName
		tr.ParentTableName = tableName
		tr.Events = []string{event}
		tr.Definition = strOrNil(definition)
		triggers = append(triggers, tr)
	}
	return triggers, rows.Err()
}

func (e *TableExtractor) tableStats(t *types.Table) error {
	query := `
		SELECT
			COALESCE(table_rows, 0) AS row_count,
			COALESCE(ROUND((data_length + index_length) / 1024), 0) AS total_space_kb,
			table_comment AS description
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?`

	var description sql.NullString
	err := e.db.QueryRow(query, t.SchemaName, t.Name).Scan(&t.RowCount, &t.TotalSpaceKB, &description)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query statistics for %s: %w", t.FullName(), err)
	}
	if description.Valid && description.String != "" {
		t.Description = &description.String
	}
	return nil
}

func (e *TableExtractor) buildReferences(tables []types.Table) error {
	query := `
		SELECT
			kcu.table_schema AS parent_schema,
			kcu.table_name AS parent_table,
			kcu.constraint_name AS fk_name,
			kcu.referenced_table_schema AS referenced_schema,
			kcu.referenced_table_name AS referenced_table
		FROM information_schema.key_column_usage kcu
		WHERE kcu.referenced_table_name IS NOT NULL`

	rows, err := e.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query table references: %w", err)
	}
	defer rows.Close()

	type tableKey struct{ schema, name string }
	tableMap := make(map[tableKey]*types.Table, len(tables))
	for i := range tables {
		tableMap[tableKey{tables[i].SchemaName, tables[i].Name}] = &tables[i]
	}

	for rows.Next() {
		var parentSchema, parentTable, fkName, refSchema, refTable string
		if err := rows.Scan(&parentSchema, &parentTable, &fkName, &refSchema, &refTable); err != nil {
			return fmt.Errorf("failed to scan table reference: %w", err)
		}
		if t, ok := tableMap[tableKey{refSchema, refTable}]; ok {
			t.ReferencedBy = append(t.ReferencedBy, types.TableReference{
				SchemaName: parentSchema,
				TableName:  parentTable,
				ForeignKey: fkName,
			})
		}
	}
	return rows.Err()
}
