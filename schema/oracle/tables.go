package oracle

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TableExtractor reads tables with their columns, constraints, indexes,
// triggers, partitions and dictionary statistics.
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
		if t.CheckConstraints, err = e.checkConstraints(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.UniqueConstraints, err = e.uniqueConstraints(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.Triggers, err = e.tableTriggers(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		if t.Partitioning, err = e.partitioning(t.SchemaName, t.Name); err != nil {
			return nil, err
		}
		t.Description = e.tableComment(t.SchemaName, t.Name)
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
		SELECT owner, table_name
		FROM all_tables
		WHERE owner NOT IN ` + systemSchemas + `
		ORDER BY owner, table_name`

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

// columns reads ALL_TAB_COLUMNS. Virtual columns store their expression in
// data_default, so that value becomes the computed definition instead of a
// default.
func (e *TableExtractor) columns(schemaName, tableName string) ([]types.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.data_length,
			c.data_precision,
			c.data_scale,
			CASE WHEN c.nullable = 'Y' THEN 1 ELSE 0 END AS is_nullable,
			c.data_default,
			c.column_id,
			CASE WHEN c.identity_column = 'YES' THEN 1 ELSE 0 END AS is_identity,
			CASE WHEN c.virtual_column = 'YES' THEN 1 ELSE 0 END AS is_virtual,
			cc.comments
		FROM all_tab_columns c
		LEFT JOIN all_col_comments cc
			ON c.owner = cc.owner AND c.table_name = cc.table_name AND c.column_name = cc.column_name
		WHERE c.owner = :1 AND c.table_name = :2
		ORDER BY c.column_id`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var maxLength, precision, scale sql.NullInt64
		var dataDefault, description sql.NullString
		var isVirtual bool
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &dataDefault, &col.OrdinalPosition, &col.IsIdentity,
			&isVirtual, &description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		col.Description = strOrNil(description)
		if dataDefault.Valid && dataDefault.String != "" {
			value := strings.TrimSpace(dataDefault.String)
			if isVirtual {
				col.IsComputed = true
				col.ComputedDefinition = &value
			} else {
				col.DefaultValue = &value
			}
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// primaryKey reads the P constraint. Oracle primary keys are enforced by a
// separate index, so clustering does not apply.
func (e *TableExtractor) primaryKey(schemaName, tableName string) (*types.PrimaryKey, error) {
	query := `
		SELECT constraint_name
		FROM all_constraints
		WHERE owner = :1 AND table_name = :2 AND constraint_type = 'P'`

	var pkName string
	err := e.db.QueryRow(query, schemaName, tableName).Scan(&pkName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key for %s.%s: %w", schemaName, tableName, err)
	}

	columns, err := e.constraintColumns(schemaName, pkName)
	if err != nil {
		return nil, err
	}
	return &types.PrimaryKey{Name: pkName, Columns: columns, IsClustered: false}, nil
}

func (e *TableExtractor) constraintColumns(schemaName, constraintName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM all_cons_columns
		WHERE owner = :1 AND constraint_name = :2
		ORDER BY position`

	rows, err := e.db.Query(query, schemaName, constraintName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for constraint %s: %w", constraintName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan constraint column: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// foreignKeys reads R constraints. Oracle has no ON UPDATE action, so every
// key reports NO ACTION for updates.
func (e *TableExtractor) foreignKeys(schemaName, tableName string) ([]types.ForeignKey, error) {
	query := `
		SELECT
			c.constraint_name,
			c.r_owner,
			rc.table_name,
			c.delete_rule
		FROM all_constraints c
		JOIN all_constraints rc ON c.r_constraint_name = rc.constraint_name AND c.r_owner = rc.owner
		WHERE c.owner = :1 AND c.table_name = :2 AND c.constraint_type = 'R'`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var foreignKeys []types.ForeignKey
	for rows.Next() {
		var fk types.ForeignKey
		var deleteRule sql.NullString
		if err := rows.Scan(&fk.Name, &fk.ReferencedSchema, &fk.ReferencedTable, &deleteRule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fk.OnDelete = "NO ACTION"
		if deleteRule.Valid && deleteRule.String != "" {
			fk.OnDelete = deleteRule.String
		}
		fk.OnUpdate = "NO ACTION"
		foreignKeys = append(foreignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range foreignKeys {
		fk := &foreignKeys[i]
		if fk.Columns, err = e.constraintColumns(schemaName, fk.Name); err != nil {
			return nil, err
		}
		if fk.ReferencedColumns, err = e.referencedColumns(schemaName, fk.Name); err != nil {
			return nil, err
		}
	}
	return foreignKeys, nil
}

func (e *TableExtractor) referencedColumns(schemaName, fkName string) ([]string, error) {
	query := `
		SELECT cc.column_name
		FROM all_constraints c
		JOIN all_cons_columns cc ON c.r_constraint_name = cc.constraint_name AND c.r_owner = cc.owner
		WHERE c.owner = :1 AND c.constraint_name = :2
		ORDER BY cc.position`

	rows, err := e.db.Query(query, schemaName, fkName)
	if err != nil {
		return nil, fmt.Errorf("failed to query referenced columns for %s: %w", fkName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan referenced column: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func (e *TableExtractor) indexes(schemaName, tableName string) ([]types.Index, error) {
	query := `
		SELECT
			i.index_name,
			CASE WHEN i.uniqueness = 'UNIQUE' THEN 1 ELSE 0 END AS is_unique,
			i.index_type,
			CASE WHEN c.constraint_type = 'P' THEN 1 ELSE 0 END AS is_primary_key
		FROM all_indexes i
		LEFT JOIN all_constraints c
			ON i.owner = c.owner AND i.index_name = c.index_name AND c.constraint_type = 'P'
		WHERE i.owner = :1 AND i.table_name = :2
		ORDER BY i.index_name`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		var idx types.Index
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.IndexType, &idx.IsPrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		// Function-based index expressions live in a LONG column that is
		// awkward to decode, so they are only flagged.
		if strings.Contains(idx.IndexType, "FUNCTION-BASED") {
			marker := "FUNCTION-BASED INDEX"
			idx.FilterDefinition = &marker
		}
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range indexes {
		idx := &indexes[i]
		if idx.Columns, err = e.indexColumns(schemaName, idx.Name); err != nil {
			return nil, err
		}
	}
	return indexes, nil
}

func (e *TableExtractor) indexColumns(schemaName, indexName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM all_ind_columns
		WHERE index_owner = :1 AND index_name = :2
		ORDER BY column_position`

	rows, err := e.db.Query(query, schemaName, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for index %s: %w", indexName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan index column: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// checkConstraints reads user-named C constraints; the generated NOT NULL
// constraints are skipped.
func (e *TableExtractor) checkConstraints(schemaName, tableName string) ([]types.CheckConstraint, error) {
	query := `
		SELECT constraint_name, search_condition
		FROM all_constraints
		WHERE owner = :1 AND table_name = :2
		AND constraint_type = 'C'
		AND generated = 'USER NAME'`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query check constraints for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var constraints []types.CheckConstraint
	for rows.Next() {
		var cc types.CheckConstraint
		var definition sql.NullString
		if err := rows.Scan(&cc.Name, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan check constraint row: %w", err)
		}
		if definition.Valid {
			cc.Definition = definition.String
		}
		constraints = append(constraints, cc)
	}
	return constraints, rows.Err()
}

func (e *TableExtractor) uniqueConstraints(schemaName, tableName string) ([]types.UniqueConstraint, error) {
	query := `
		SELECT constraint_name
		FROM all_constraints
		WHERE owner = :1 AND table_name = :2 AND constraint_type = 'U'`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique constraints for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var constraints []types.UniqueConstraint
	for _, name := range names {
		columns, err := e.constraintColumns(schemaName, name)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, types.UniqueConstraint{Name: name, Columns: columns})
	}
	return constraints, nil
}

func (e *TableExtractor) tableTriggers(schemaName, tableName string) ([]types.Trigger, error) {
	query := `
		SELECT
			trigger_name,
			trigger_type,
			triggering_event,
			trigger_body,
			CASE WHEN status = 'DISABLED' THEN 1 ELSE 0 END AS is_disabled
		FROM all_triggers
		WHERE table_owner = :1 AND table_name = :2`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var triggerType, events string
		var definition sql.NullString
		if err := rows.Scan(&tr.Name, &triggerType, &events, &definition, &tr.IsDisabled); err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		tr.SchemaName = schemaName
		tr.ParentTableSchema = schemaName
		tr.ParentTableName = tableName
		tr.TriggerType = triggerTiming(triggerType)
		tr.Events = triggerEvents(events)
		tr.Definition = strOrNil(definition)
		triggers = append(triggers, tr)
	}
	return triggers, rows.Err()
}

// partitioning reads ALL_PART_TABLES and the per-partition dictionary rows.
// Composite subpartitions are appended to the partition list with a combined
// "partition: high value" boundary.
func (e *TableExtractor) partitioning(schemaName, tableName string) (*types.TablePartitioning, error) {
	checkQuery := `
		SELECT partitioning_type
		FROM all_part_tables
		WHERE owner = :1 AND table_name = :2`

	var partitionType string
	err := e.db.QueryRow(checkQuery, schemaName, tableName).Scan(&partitionType)
	if err == sql.ErrNoRows {
		return &types.TablePartitioning{IsPartitioned: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query partitioning for %s.%s: %w", schemaName, tableName, err)
	}

	column, err := e.partitionKeyColumns(schemaName, tableName)
	if err != nil {
		return nil, err
	}
	partitions, err := e.partitions(schemaName, tableName)
	if err != nil {
		return nil, err
	}
	subpartitions, err := e.subpartitions(schemaName, tableName, len(partitions))
	if err != nil {
		return nil, err
	}

	return &types.TablePartitioning{
		IsPartitioned: true,
		Scheme: &types.PartitionScheme{
			Name:          tableName + "_partitioning",
			Column:        column,
			PartitionType: partitionType,
			Partitions:    append(partitions, subpartitions...),
		},
	}, nil
}

func (e *TableExtractor) partitionKeyColumns(schemaName, tableName string) (string, error) {
	query := `
		SELECT column_name
		FROM all_part_key_columns
		WHERE owner = :1 AND name = :2
		ORDER BY column_position`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return "", fmt.Errorf("failed to query partition key for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("failed to scan partition key column: %w", err)
		}
		columns = append(columns, name)
	}
	return strings.Join(columns, ", "), rows.Err()
}

func (e *TableExtractor) partitions(schemaName, tableName string) ([]types.Partition, error) {
	query := `
		SELECT
			partition_position,
			high_value,
			tablespace_name,
			NVL(num_rows, 0)
		FROM all_tab_partitions
		WHERE table_owner = :1 AND table_name = :2
		ORDER BY partition_position`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query partitions for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var partitions []types.Partition
	for rows.Next() {
		var p types.Partition
		var highValue, tablespace sql.NullString
		if err := rows.Scan(&p.Number, &highValue, &tablespace, &p.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		p.BoundaryValue = strOrNil(highValue)
		p.Tablespace = strOrNil(tablespace)
		partitions = append(partitions, p)
	}
	return partitions, rows.Err()
}

func (e *TableExtractor) subpartitions(schemaName, tableName string, offset int) ([]types.Partition, error) {
	query := `
		SELECT
			partition_name,
			high_value,
			tablespace_name,
			NVL(num_rows, 0)
		FROM all_tab_subpartitions
		WHERE table_owner = :1 AND table_name = :2
		ORDER BY partition_name, subpartition_position`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query subpartitions for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var subpartitions []types.Partition
	for rows.Next() {
		var partitionName string
		var highValue, tablespace sql.NullString
		var rowCount int64
		if err := rows.Scan(&partitionName, &highValue, &tablespace, &rowCount); err != nil {
			return nil, fmt.Errorf("failed to scan subpartition row: %w", err)
		}
		boundary := partitionName + ": "
		if highValue.Valid {
			boundary += highValue.String
		}
		subpartitions = append(subpartitions, types.Partition{
			Number:        offset + len(subpartitions) + 1,
			BoundaryValue: &boundary,
			Tablespace:    strOrNil(tablespace),
			RowCount:      rowCount,
		})
	}
	return subpartitions, rows.Err()
}

// tableStats uses the optimizer statistics from ALL_TABLES, so row counts are
// only as fresh as the last DBMS_STATS gather.
func (e *TableExtractor) tableStats(t *types.Table) error {
	query := `
		SELECT
			NVL(num_rows, 0),
			NVL(blocks * 8, 0)
		FROM all_tables
		WHERE owner = :1 AND table_name = :2`

	err := e.db.QueryRow(query, t.SchemaName, t.Name).Scan(&t.RowCount, &t.TotalSpaceKB)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query statistics for %s: %w", t.FullName(), err)
	}
	return nil
}

func (e *TableExtractor) buildReferences(tables []types.Table) error {
	query := `
		SELECT
			c.owner AS parent_schema,
			c.table_name AS parent_table,
			c.constraint_name AS fk_name,
			c.r_owner AS referenced_schema,
			rc.table_name AS referenced_table
		FROM all_constraints c
		JOIN all_constraints rc ON c.r_constraint_name = rc.constraint_name AND c.r_owner = rc.owner
		WHERE c.constraint_type = 'R'`

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
