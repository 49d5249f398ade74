package mssql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TableExtractor reads user tables together with everything attached to
// them: columns, keys, indexes, constraints, triggers, partitioning layout
// and storage statistics.
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
		t.Description = e.extendedProperty(t.SchemaName, t.Name)
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
		SELECT s.name AS schema_name, t.name AS table_name
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE t.is_ms_shipped = 0
		ORDER BY s.name, t.name`

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
			c.name AS column_name, t.name AS data_type,
			c.max_length, c.precision, c.scale, c.is_nullable,
			dc.definition AS default_value, c.is_identity,
			CAST(ic.seed_value AS BIGINT) AS identity_seed,
			CAST(ic.increment_value AS BIGINT) AS identity_increment,
			c.is_computed, cc.definition AS computed_definition,
			c.collation_name, c.column_id AS ordinal_position
		FROM sys.columns c
		JOIN sys.types t ON c.user_type_id = t.user_type_id
		JOIN sys.tables tb ON c.object_id = tb.object_id
		JOIN sys.schemas s ON tb.schema_id = s.schema_id
		LEFT JOIN sys.default_constraints dc ON c.default_object_id = dc.object_id
		LEFT JOIN sys.identity_columns ic ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		LEFT JOIN sys.computed_columns cc ON c.object_id = cc.object_id AND c.column_id = cc.column_id
		WHERE s.name = @p1 AND tb.name = @p2
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
		var defaultValue, computedDef, collation sql.NullString
		var identitySeed, identityIncrement sql.NullInt64
		err := rows.Scan(
			&col.Name, &col.DataType,
			&maxLength, &precision, &scale, &col.IsNullable,
			&defaultValue, &col.IsIdentity,
			&identitySeed, &identityIncrement,
			&col.IsComputed, &computedDef,
			&collation, &col.OrdinalPosition,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		col.DefaultValue = strOrNil(defaultValue)
		col.IdentitySeed = int64OrNil(identitySeed)
		col.IdentityIncrement = int64OrNil(identityIncrement)
		col.ComputedDefinition = strOrNil(computedDef)
		col.Collation = strOrNil(collation)
		col.Description = e.columnProperty(schemaName, tableName, col.Name)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (e *TableExtractor) primaryKey(schemaName, tableName string) (*types.PrimaryKey, error) {
	query := `
		SELECT kc.name AS constraint_name, i.type_desc AS index_type
		FROM sys.key_constraints kc
		JOIN sys.tables t ON kc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.indexes i ON kc.parent_object_id = i.object_id AND kc.unique_index_id = i.index_id
		WHERE kc.type = 'PK' AND s.name = @p1 AND t.name = @p2`

	var name, indexType string
	err := e.db.QueryRow(query, schemaName, tableName).Scan(&name, &indexType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key for %s.%s: %w", schemaName, tableName, err)
	}

	columnsQuery := `
		SELECT c.name
		FROM sys.index_columns ic
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE i.is_primary_key = 1 AND s.name = @p1 AND t.name = @p2
		ORDER BY ic.key_ordinal`

	rows, err := e.db.Query(columnsQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key columns for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	pk := &types.PrimaryKey{Name: name, IsClustered: indexType == "CLUSTERED"}
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		pk.Columns = append(pk.Columns, column)
	}
	return pk, rows.Err()
}

func (e *TableExtractor) foreignKeys(schemaName, tableName string) ([]types.ForeignKey, error) {
	query := `
		SELECT
			fk.name AS fk_name, rs.name AS referenced_schema, rt.name AS referenced_table,
			fk.delete_referential_action_desc AS on_delete,
			fk.update_referential_action_desc AS on_update
		FROM sys.foreign_keys fk
		JOIN sys.tables t ON fk.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id
		WHERE s.name = @p1 AND t.name = @p2`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var foreignKeys []types.ForeignKey
	for rows.Next() {
		var fk types.ForeignKey
		var onDelete, onUpdate string
		if err := rows.Scan(&fk.Name, &fk.ReferencedSchema, &fk.ReferencedTable, &onDelete, &onUpdate); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fk.OnDelete = strings.ReplaceAll(onDelete, "_", " ")
		fk.OnUpdate = strings.ReplaceAll(onUpdate, "_", " ")
		foreignKeys = append(foreignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columnsQuery := `
		SELECT pc.name AS parent_column, rc.name AS referenced_column
		FROM sys.foreign_key_columns fkc
		JOIN sys.columns pc ON fkc.parent_object_id = pc.object_id AND fkc.parent_column_id = pc.column_id
		JOIN sys.columns rc ON fkc.referenced_object_id = rc.object_id AND fkc.referenced_column_id = rc.column_id
		JOIN sys.foreign_keys fk ON fkc.constraint_object_id = fk.object_id
		WHERE fk.name = @p1
		ORDER BY fkc.constraint_column_id`

	for i := range foreignKeys {
		fk := &foreignKeys[i]
		colRows, err := e.db.Query(columnsQuery, fk.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to query foreign key columns for %s: %w", fk.Name, err)
		}
		for colRows.Next() {
			var parent, referenced string
			if err := colRows.Scan(&parent, &referenced); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("failed to scan foreign key column: %w", err)
			}
			fk.Columns = append(fk.Columns, parent)
			fk.ReferencedColumns = append(fk.ReferencedColumns, referenced)
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, err
		}
		colRows.Close()
	}
	return foreignKeys, nil
}

func (e *TableExtractor) indexes(schemaName, tableName string) ([]types.Index, error) {
	query := `
		SELECT
			i.name AS index_name, i.is_unique, i.type_desc AS index_type,
			i.is_primary_key, i.filter_definition
		FROM sys.indexes i
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND t.name = @p2 AND i.name IS NOT NULL
		ORDER BY i.index_id`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		var idx types.Index
		var filterDef sql.NullString
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.IndexType, &idx.IsPrimaryKey, &filterDef); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		idx.IsClustered = idx.IndexType == "CLUSTERED"
		idx.FilterDefinition = strOrNil(filterDef)
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columnsQuery := `
		SELECT c.name, ic.is_included_column
		FROM sys.index_columns ic
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE i.name = @p1 AND s.name = @p2 AND t.name = @p3
		ORDER BY ic.key_ordinal, ic.index_column_id`

	for i := range indexes {
		idx := &indexes[i]
		colRows, err := e.db.Query(columnsQuery, idx.Name, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to query index columns for %s: %w", idx.Name, err)
		}
		for colRows.Next() {
			var column string
			var included bool
			if err := colRows.Scan(&column, &included); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("failed to scan index column: %w", err)
			}
			if included {
				idx.IncludedColumns = append(idx.IncludedColumns, column)
			} else {
				idx.Columns = append(idx.Columns, column)
			}
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, err
		}
		colRows.Close()
	}
	return indexes, nil
}

func (e *TableExtractor) checkConstraints(schemaName, tableName string) ([]types.CheckConstraint, error) {
	query := `
		SELECT cc.name AS constraint_name, cc.definition
		FROM sys.check_constraints cc
		JOIN sys.tables t ON cc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND t.name = @p2`

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
		SELECT kc.name AS constraint_name
		FROM sys.key_constraints kc
		JOIN sys.tables t ON kc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE kc.type = 'UQ' AND s.name = @p1 AND t.name = @p2`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique constraints for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var constraints []types.UniqueConstraint
	for rows.Next() {
		var uc types.UniqueConstraint
		if err := rows.Scan(&uc.Name); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint row: %w", err)
		}
		constraints = append(constraints, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columnsQuery := `
		SELECT c.name
		FROM sys.index_columns ic
		JOIN sys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		JOIN sys.key_constraints kc ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.tables t ON kc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE kc.name = @p1 AND s.name = @p2 AND t.name = @p3
		ORDER BY ic.key_ordinal`

	for i := range constraints {
		uc := &constraints[i]
		colRows, err := e.db.Query(columnsQuery, uc.Name, schemaName, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to query unique constraint columns for %s: %w", uc.Name, err)
		}
		for colRows.Next() {
			var column string
			if err := colRows.Scan(&column); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("failed to scan unique constraint column: %w", err)
			}
			uc.Columns = append(uc.Columns, column)
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, err
		}
		colRows.Close()
	}
	return constraints, nil
}

// partitioning resolves the partition scheme attached to the table's heap or
// clustered index. Partition numbers are 1-based; the final partition has no
// boundary value.
func (e *TableExtractor) partitioning(schemaName, tableName string) (*types.TablePartitioning, error) {
	checkQuery := `
		SELECT ps.name AS partition_scheme_name, pf.name AS partition_function_name,
		       pf.boundary_value_on_right
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.indexes i ON t.object_id = i.object_id AND i.index_id IN (0, 1)
		JOIN sys.partition_schemes ps ON i.data_space_id = ps.data_space_id
		JOIN sys.partition_functions pf ON ps.function_id = pf.function_id
		WHERE s.name = @p1 AND t.name = @p2`

	var schemeName, functionName string
	var boundaryOnRight bool
	err := e.db.QueryRow(checkQuery, schemaName, tableName).Scan(&schemeName, &functionName, &boundaryOnRight)
	if err == sql.ErrNoRows {
		return &types.TablePartitioning{IsPartitioned: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query partitioning for %s.%s: %w", schemaName, tableName, err)
	}

	columnQuery := `
		SELECT c.name AS column_name
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.indexes i ON t.object_id = i.object_id AND i.index_id IN (0, 1)
		JOIN sys.partition_schemes ps ON i.data_space_id = ps.data_space_id
		JOIN sys.partition_parameters pp ON ps.function_id = pp.function_id
		JOIN sys.columns c ON pp.object_id = c.object_id AND pp.parameter_id = c.column_id
		WHERE s.name = @p1 AND t.name = @p2`

	var partitionColumn string
	if err := e.db.QueryRow(columnQuery, schemaName, tableName).Scan(&partitionColumn); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query partition column for %s.%s: %w", schemaName, tableName, err)
	}

	boundaryQuery := `
		SELECT prv.boundary_id, prv.value AS boundary_value, fg.name AS filegroup_name
		FROM sys.partition_range_values prv
		JOIN sys.partition_functions pf ON prv.function_id = pf.function_id
		JOIN sys.partition_schemes ps ON pf.function_id = ps.function_id
		JOIN sys.destination_data_spaces dds ON ps.data_space_id = dds.partition_scheme_id
		       AND prv.boundary_id = dds.destination_id
		JOIN sys.filegroups fg ON dds.data_space_id = fg.data_space_id
		WHERE pf.name = @p1
		ORDER BY prv.boundary_id`

	type boundary struct {
		id        int
		value     *string
		filegroup string
	}
	var boundaries []boundary
	bRows, err := e.db.Query(boundaryQuery, functionName)
	if err != nil {
		return nil, fmt.Errorf("failed to query partition boundaries for %s: %w", functionName, err)
	}
	for bRows.Next() {
		var b boundary
		var value sql.NullString
		if err := bRows.Scan(&b.id, &value, &b.filegroup); err != nil {
			bRows.Close()
			return nil, fmt.Errorf("failed to scan partition boundary: %w", err)
		}
		b.value = strOrNil(value)
		boundaries = append(boundaries, b)
	}
	if err := bRows.Err(); err != nil {
		bRows.Close()
		return nil, err
	}
	bRows.Close()

	statsQuery := `
		SELECT p.partition_number, p.rows AS row_count, fg.name AS filegroup_name,
		       p.data_compression_desc AS data_compression
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.indexes i ON t.object_id = i.object_id AND i.index_id IN (0, 1)
		JOIN sys.partitions p ON i.object_id = p.object_id AND i.index_id = p.index_id
		JOIN sys.destination_data_spaces dds ON p.partition_number = dds.destination_id
		       AND i.data_space_id = dds.partition_scheme_id
		JOIN sys.filegroups fg ON dds.data_space_id = fg.data_space_id
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY p.partition_number`

	type partitionStats struct {
		number      int
		rowCount    int64
		filegroup   string
		compression sql.NullString
	}
	var statsRows []partitionStats
	sRows, err := e.db.Query(statsQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query partition statistics for %s.%s: %w", schemaName, tableName, err)
	}
	for sRows.Next() {
		var ps partitionStats
		if err := sRows.Scan(&ps.number, &ps.rowCount, &ps.filegroup, &ps.compression); err != nil {
			sRows.Close()
			return nil, fmt.Errorf("failed to scan partition statistics: %w", err)
		}
		statsRows = append(statsRows, ps)
	}
	if err := sRows.Err(); err != nil {
		sRows.Close()
		return nil, err
	}
	sRows.Close()

	statsByNumber := make(map[int]partitionStats, len(statsRows))
	for _, ps := range statsRows {
		statsByNumber[ps.number] = ps
	}

	var partitions []types.Partition
	for _, b := range boundaries {
		number := b.id + 1
		p := types.Partition{
			Number:        number,
			BoundaryValue: b.value,
			Filegroup:     &b.filegroup,
		}
		if stats, ok := statsByNumber[number]; ok {
			p.RowCount = stats.rowCount
			p.Compression = strOrNil(stats.compression)
		}
		partitions = append(partitions, p)
	}

	// The partition above the highest boundary has no boundary value of its
	// own; it only shows up in the statistics rows.
	if len(statsRows) > len(boundaries) {
		last := statsRows[len(statsRows)-1]
		if last.number > len(boundaries) {
			partitions = append(partitions, types.Partition{
				Number:      last.number,
				Filegroup:   &last.filegroup,
				RowCount:    last.rowCount,
				Compression: strOrNil(last.compression),
			})
		}
	}

	boundaryType := "LEFT"
	if boundaryOnRight {
		boundaryType = "RIGHT"
	}
	return &types.TablePartitioning{
		IsPartitioned: true,
		Scheme: &types.PartitionScheme{
			Name:          schemeName,
			FunctionName:  functionName,
			Column:        partitionColumn,
			PartitionType: "RANGE",
			BoundaryType:  boundaryType,
			Partitions:    partitions,
		},
	}, nil
}

func (e *TableExtractor) tableTriggers(schemaName, tableName string) ([]types.Trigger, error) {
	query := `
		SELECT
			tr.name AS trigger_name,
			CASE WHEN tr.is_instead_of_trigger = 1 THEN 'INSTEAD OF' ELSE 'AFTER' END AS trigger_type,
			OBJECTPROPERTY(tr.object_id, 'ExecIsInsertTrigger') AS is_insert,
			OBJECTPROPERTY(tr.object_id, 'ExecIsUpdateTrigger') AS is_update,
			OBJECTPROPERTY(tr.object_id, 'ExecIsDeleteTrigger') AS is_delete,
			tr.is_disabled
		FROM sys.triggers tr
		JOIN sys.tables pt ON tr.parent_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		WHERE tr.is_ms_shipped = 0 AND tr.parent_class = 1
		AND ps.name = @p1 AND pt.name = @p2`

	rows, err := e.db.Query(query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers for %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var triggers []types.Trigger
	for rows.Next() {
		var tr types.Trigger
		var isInsert, isUpdate, isDelete sql.NullInt64
		if err := rows.Scan(&tr.Name, &tr.TriggerType, &isInsert, &isUpdate, &isDelete, &tr.IsDisabled); err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		tr.SchemaName = schemaName
		tr.ParentTableSchema = schemaName
		tr.ParentTableName = tableName
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	defQuery := `
		SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.triggers tr ON m.object_id = tr.object_id
		WHERE tr.name = @p1`

	for i := range triggers {
		var definition sql.NullString
		err := e.db.QueryRow(defQuery, triggers[i].Name).Scan(&definition)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to query trigger definition for %s: %w", triggers[i].Name, err)
		}
		triggers[i].Definition = strOrNil(definition)
	}
	return triggers, nil
}

func (e *TableExtractor) tableStats(t *types.Table) error {
	query := `
		SELECT
			SUM(p.rows) AS row_count,
			SUM(a.total_pages) * 8 AS total_space_kb,
			SUM(a.used_pages) * 8 AS used_space_kb
		FROM sys.tables t
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.indexes i ON t.object_id = i.object_id
		JOIN sys.partitions p ON i.object_id = p.object_id AND i.index_id = p.index_id
		JOIN sys.allocation_units a ON p.partition_id = a.container_id
		WHERE s.name = @p1 AND t.name = @p2 AND i.index_id IN (0, 1)
		GROUP BY t.object_id`

	var rowCount, totalKB, usedKB sql.NullInt64
	err := e.db.QueryRow(query, t.SchemaName, t.Name).Scan(&rowCount, &totalKB, &usedKB)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query statistics for %s: %w", t.FullName(), err)
	}
	if rowCount.Valid {
		t.RowCount = rowCount.Int64
	}
	if totalKB.Valid {
		t.TotalSpaceKB = totalKB.Int64
	}
	if usedKB.Valid {
		t.UsedSpaceKB = usedKB.Int64
	}
	return nil
}

// buildReferences fills every table's ReferencedBy list from a single pass
// over all foreign keys in the database.
func (e *TableExtractor) buildReferences(tables []types.Table) error {
	query := `
		SELECT
			ps.name AS parent_schema, pt.name AS parent_table, fk.name AS fk_name,
			rs.name AS referenced_schema, rt.name AS referenced_table
		FROM sys.foreign_keys fk
		JOIN sys.tables pt ON fk.parent_object_id = pt.object_id
		JOIN sys.schemas ps ON pt.schema_id = ps.schema_id
		JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
		JOIN sys.schemas rs ON rt.schema_id = rs.schema_id`

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
