package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TableExtractor reads tables with their columns, constraints, indexes,
// triggers, partitioning layout and storage statistics.
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
		t.Description = e.objDescription(t.SchemaName, t.Name)
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
		AND table_schema NOT IN ('pg_catalog', 'information_schema')
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
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.character_maximum_length AS max_length,
			c.numeric_precision AS precision,
			c.numeric_scale AS scale,
			c.is_nullable = 'YES' AS is_nullable,
			c.column_default AS default_value,
			c.is_identity = 'YES' AS is_identity,
			c.ordinal_position,
			c.collation_name,
			pgd.description
		FROM information_schema.columns c
		LEFT JOIN pg_catalog.pg_statio_all_tables st
			ON c.table_schema = st.schemaname AND c.table_name = st.relname
		LEFT JOIN pg_catalog.pg_description pgd
			ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []types.Column
	for rows.Next() {
		var col types.Column
		var maxLength, precision, scale sql.NullInt64
		var defaultValue, collation, description sql.NullString
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &defaultValue, &col.IsIdentity,
			&col.OrdinalPosition, &collation, &description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		col.DefaultValue = strOrNil(defaultValue)
		col.Collation = strOrNil(collation)
		col.Description = strOrNil(description)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *TableExtractor) primaryKey(schemaName, tableName string) (*types.PrimaryKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			array_agg(kcu.column_name ORDER BY kcu.ordinal_position) AS columns
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema = $1 AND tc.table_name = $2
		GROUP BY tc.constraint_name`

	var pk types.PrimaryKey
	err := e.db.QueryRow(query, schemaName, tableName).Scan(&pk.Name, pq.Array(&pk.Columns))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key for %s.%s: %w", schemaName, tableName, err)
	}
	return &pk, nil
}

func (e *TableExtractor) foreignKeys(schemaName, tableName string) ([]types.ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			array_agg(kcu.column_name ORDER BY kcu.ordinal_position) AS columns,
			ccu.table_schema AS referenced_schema,
			ccu.table_name AS referenced_table,
			array_agg(ccu.column_name ORDER BY kcu.ordinal_position) AS referenced_columns,
			rc.delete_rule AS on_delete,
			rc.update_rule AS on_update
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name AND tc.table_schema = rc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1 AND tc.table_name = $2
		GROUP BY tc.constraint_name, ccu.table_schema, ccu.table_name, rc.delete_rule, rc.update_rule`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var foreignKeys []types.ForeignKey
	for rows.Next() {
		var fk types.ForeignKey
		err := rows.Scan(&fk.Name, pq.Array(&fk.Columns), &fk.ReferencedSchema,
			&fk.ReferencedTable, pq.Array(&fk.ReferencedColumns), &fk.OnDelete, &fk.OnUpdate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

func (e *TableExtractor) indexes(schemaName, tableName string) ([]types.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			ix.indisprimary AS is_primary_key,
			upper(am.amname) AS index_type,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS columns,
			pg_get_expr(ix.indpred, ix.indrelid) AS filter_definition
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2
		GROUP BY i.relname, ix.indisunique, ix.indisprimary, am.amname, ix.indpred, ix.indrelid
		ORDER BY i.relname`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		var idx types.Index
		var filterDef sql.NullString
		err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.IsPrimaryKey, &idx.IndexType,
			pq.Array(&idx.Columns), &filterDef)
		if err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		idx.FilterDefinition = strOrNil(filterDef)
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (e *TableExtractor) checkConstraints(schemaName, tableName string) ([]types.CheckConstraint, error) {
	// The NOT LIKE clause drops the implicit x_not_null constraints the
	// catalog synthesizes for NOT NULL columns.
	query := `
		SELECT
			tc.constraint_name,
			cc.check_clause AS definition
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
			ON tc.constraint_name = cc.constraint_name AND tc.constraint_schema = cc.constraint_schema
		WHERE tc.constraint_type = 'CHECK'
		AND tc.table_schema = $1 AND tc.table_name = $2
		AND tc.constraint_name NOT LIKE '%_not_null'`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query check constraints for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var constraints []types.CheckConstraint
	for rows.Next() {
		var cc types.CheckConstraint
		if err := rows.Scan(&cc.Name, &cc.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan check constraint row: %w", err)
		}
		constraints = append(constraints, cc)
	}
	return constraints, rows.Err()
}

func (e *TableExtractor) uniqueConstraints(schemaName, tableName string) ([]types.UniqueConstraint, error) {
	query := `
		SELECT
			tc.constraint_name,
			array_agg(kcu.column_name ORDER BY kcu.ordinal_position) AS columns
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
		AND tc.table_schema = $1 AND tc.table_name = $2
		GROUP BY tc.constraint_name`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique constraints for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var constraints []types.UniqueConstraint
	for rows.Next() {
		var uc types.UniqueConstraint
		if err := rows.Scan(&uc.Name, pq.Array(&uc.Columns)); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint row: %w", err)
		}
		constraints = append(constraints, uc)
	}
	return constraints, rows.Err()
}

func (e *TableExtractor) tableTriggers(schemaName, tableName string) ([]types.Trigger, error) {
	query := `
		SELECT
			t.tgname AS trigger_name,
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
		AND n.nspname = $1 AND c.relname = $2`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var isInsert, isDelete, isUpdate, isEnabled bool
		var definition sql.NullString
		err := rows.Scan(&tr.Name, &tr.TriggerType, &isInsert, &isDelete, &isUpdate, &isEnabled, &definition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		tr.SchemaName = schemaName
		tr.ParentTableSchema = schemaName
		tr.ParentTableName = tableName
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
	return triggers, rows.Err()
}

// partitionKeyColumn extracts the column list from pg_get_partkeydef output,
// e.g. "RANGE (created_at)" yields "created_at".
var partitionKeyColumn = regexp.MustCompile(`\(([^)]+)\)`)

func extractPartitionColumn(partKeyDef string) string {
	m := partitionKeyColumn.FindStringSubmatch(partKeyDef)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// partitioning detects declarative partitioning first and falls back to the
// inheritance pattern used before PostgreSQL 10. Per-partition row counts
// come from live COUNT(*) queries since the catalog only stores estimates.
func (e *TableExtractor) partitioning(schemaName, tableName string) (*types.TablePartitioning, error) {
	partitionQuery := `
		SELECT
			CASE
				WHEN pt.partstrat = 'r' THEN 'RANGE'
				WHEN pt.partstrat = 'l' THEN 'LIST'
				WHEN pt.partstrat = 'h' THEN 'HASH'
				ELSE 'UNKNOWN'
			END AS partition_type,
			pg_get_partkeydef(c.oid) AS partition_key
		FROM pg_class c
		JOIN pg_namespace n ON c.relnamespace = n.oid
		LEFT JOIN pg_partitioned_table pt ON c.oid = pt.partrelid
		WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind = 'p'`

	var partitionType string
	var partitionKey sql.NullString
	err := e.db.QueryRow(partitionQuery, schemaName, tableName).Scan(&partitionType, &partitionKey)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query partitioning for %s.%s: %w", schemaName, tableName, err)
	}
	if err == nil {
		names, err := e.childTables(schemaName, tableName)
		if err != nil {
			return nil, err
		}

		var partitions []types.Partition
		for i, name := range names {
			boundary := name.boundary
			partitions = append(partitions, types.Partition{
				Number:        i + 1,
				BoundaryValue: boundary,
				RowCount:      e.liveRowCount(schemaName, name.name),
			})
		}

		column := ""
		if partitionKey.Valid {
			column = extractPartitionColumn(partitionKey.String)
		}

		return &types.TablePartitioning{
			IsPartitioned: true,
			Scheme: &types.PartitionScheme{
				Name:          tableName + "_partitioning",
				Column:        column,
				PartitionType: partitionType,
				Partitions:    partitions,
			},
		}, nil
	}

	children, err := e.inheritanceChildren(schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		var partitions []types.Partition
		for i, child := range children {
			boundary := "CHECK constraint on " + child
			partitions = append(partitions, types.Partition{
				Number:        i + 1,
				BoundaryValue: &boundary,
				RowCount:      e.liveRowCount(schemaName, child),
			})
		}
		return &types.TablePartitioning{
			IsPartitioned: true,
			Scheme: &types.PartitionScheme{
				Name:          tableName + "_inheritance",
				PartitionType: "INHERITANCE",
				Partitions:    partitions,
			},
		}, nil
	}

	return &types.TablePartitioning{IsPartitioned: false}, nil
}

type childTable struct {
	name     string
	boundary *string
}

func (e *TableExtractor) childTables(schemaName, tableName string) ([]childTable, error) {
	query := `
		SELECT
			pc.relname AS partition_name,
			pg_get_expr(pc.relpartbound, pc.oid) AS partition_expression
		FROM pg_class pc
		JOIN pg_namespace pn ON pc.relnamespace = pn.oid
		JOIN pg_inherits i ON pc.oid = i.inhrelid
		JOIN pg_class c ON i.inhparent = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE n.nspname = $1 AND c.relname = $2 AND pc.relkind = 'r'
		ORDER BY pc.relname`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query partitions for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var children []childTable
	for rows.Next() {
		var ct childTable
		var boundary sql.NullString
		if err := rows.Scan(&ct.name, &boundary); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		ct.boundary = strOrNil(boundary)
		children = append(children, ct)
	}
	return children, rows.Err()
}

func (e *TableExtractor) inheritanceChildren(schemaName, tableName string) ([]string, error) {
	query := `
		SELECT pc.relname AS partition_name
		FROM pg_class pc
		JOIN pg_namespace pn ON pc.relnamespace = pn.oid
		JOIN pg_inherits i ON pc.oid = i.inhrelid
		JOIN pg_class c ON i.inhparent = c.oid
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE n.nspname = $1 AND c.relname = $2 AND pc.relkind = 'r'
		ORDER BY pc.relname`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query child tables for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var children []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan child table row: %w", err)
		}
		children = append(children, name)
	}
	return children, rows.Err()
}

// liveRowCount counts the rows in one partition. A failed count degrades to
// zero rather than aborting the extraction.
func (e *TableExtractor) liveRowCount(schemaName, tableName string) int64 {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q.%q`, schemaName, tableName)
	var count int64
	if err := e.db.QueryRow(query).Scan(&count); err != nil {
		e.logger.Debug("Failed to count partition rows", "schema", schemaName, "table", tableName, "error", err)
		return 0
	}
	return count
}

func (e *TableExtractor) tableStats(t *types.Table) error {
	query := `
		SELECT
			COALESCE(c.reltuples::bigint, 0) AS row_count,
			COALESCE(pg_total_relation_size(c.oid) / 1024, 0) AS total_space_kb
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`

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
			tc.table_schema AS parent_schema,
			tc.table_name AS parent_table,
			tc.constraint_name AS fk_name,
			ccu.table_schema AS referenced_schema,
			ccu.table_name AS referenced_table
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'`

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
