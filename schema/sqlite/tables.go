package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// TableExtractor reads tables with their columns, keys, indexes, triggers and
// live row counts.
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
		createSQL, err := e.createSQL(t.Name)
		if err != nil {
			return nil, err
		}
		if t.Columns, err = e.columns(t.Name, createSQL); err != nil {
			return nil, err
		}
		if t.PrimaryKey, err = e.primaryKey(t.Name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = e.foreignKeys(t.Name); err != nil {
			return nil, err
		}
		if t.Indexes, err = e.indexes(t.Name); err != nil {
			return nil, err
		}
		t.UniqueConstraints = uniqueConstraintsFromIndexes(t.Indexes)
		if t.Triggers, err = e.tableTriggers(t.Name); err != nil {
			return nil, err
		}
		t.RowCount = e.rowCount(t.Name)
	}

	buildReferences(tables)
	return &types.ObjectSet{Tables: tables}, nil
}

func (e *TableExtractor) listTables() ([]types.Table, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []types.Table
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, types.Table{SchemaName: mainSchema, Name: name})
	}
	return tables, rows.Err()
}

// columns reads table_xinfo so generated columns are visible. The hidden flag
// is 0 for normal columns, 2 for stored and 3 for virtual generated columns;
// hidden=1 rows are internal and skipped.
func (e *TableExtractor) columns(tableName, createSQL string) ([]types.Column, error) {
	query := fmt.Sprintf("PRAGMA table_xinfo(%s)", quoteName(tableName))
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s: %w", tableName, err)
	}
	defer rows.Close()

	hasAutoincrement := strings.Contains(strings.ToUpper(createSQL), "AUTOINCREMENT")

	var columns []types.Column
	for rows.Next() {
		var cid, notNull, pk, hidden int
		var name string
		var declaredType, defaultValue sql.NullString
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultValue, &pk, &hidden); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		if hidden == 1 {
			continue
		}

		var col types.Column
		col.Name = name
		col.DataType, col.MaxLength, col.Precision, col.Scale = parseDeclaredType(declaredType.String)
		col.IsNullable = notNull == 0
		col.DefaultValue = strOrNil(defaultValue)
		col.IsIdentity = pk > 0 && hasAutoincrement
		col.IsComputed = hidden == 2 || hidden == 3
		col.OrdinalPosition = cid + 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// primaryKey synthesizes a pk_<table> constraint from the pragma's pk column
// ordering. SQLite tables are clustered on the rowid or the WITHOUT ROWID
// key.
func (e *TableExtractor) primaryKey(tableName string) (*types.PrimaryKey, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteName(tableName))
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key for %s: %w", tableName, err)
	}
	defer rows.Close()

	type pkColumn struct {
		name     string
		position int
	}
	var pkColumns []pkColumn
	for rows.Next() {
		var cid, notNull, pk int
		var name string
		var declaredType, defaultValue sql.NullString
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan primary key row: %w", err)
		}
		if pk > 0 {
			pkColumns = append(pkColumns, pkColumn{name: name, position: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pkColumns) == 0 {
		return nil, nil
	}

	sort.Slice(pkColumns, func(i, j int) bool { return pkColumns[i].position < pkColumns[j].position })
	columns := make([]string, len(pkColumns))
	for i, c := range pkColumns {
		columns[i] = c.name
	}
	return &types.PrimaryKey{
		Name:        "pk_" + tableName,
		Columns:     columns,
		IsClustered: true,
	}, nil
}

// foreignKeys groups the per-column foreign_key_list rows by constraint id
// and synthesizes fk_<table>_<id> names, since SQLite does not keep
// constraint names in the pragma.
func (e *TableExtractor) foreignKeys(tableName string) ([]types.ForeignKey, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteName(tableName))
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys for %s: %w", tableName, err)
	}
	defer rows.Close()

	var order []int
	fkMap := make(map[int]*types.ForeignKey)
	for rows.Next() {
		var id, seq int
		var refTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fk, ok := fkMap[id]
		if !ok {
			fk = &types.ForeignKey{
				Name:             fmt.Sprintf("fk_%s_%d", tableName, id),
				ReferencedSchema: mainSchema,
				ReferencedTable:  refTable,
				OnDelete:         onDelete,
				OnUpdate:         onUpdate,
			}
			fkMap[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, fromCol)
		if toCol.Valid {
			fk.ReferencedColumns = append(fk.ReferencedColumns, toCol.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	foreignKeys := make([]types.ForeignKey, 0, len(order))
	for _, id := range order {
		foreignKeys = append(foreignKeys, *fkMap[id])
	}
	return foreignKeys, nil
}

func (e *TableExtractor) indexes(tableName string) ([]types.Index, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteName(tableName))
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s: %w", tableName, err)
	}
	defer rows.Close()

	var indexes []types.Index
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		indexes = append(indexes, types.Index{
			Name:         name,
			IsUnique:     unique != 0,
			IsPrimaryKey: origin == "pk",
			IndexType:    "BTREE",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range indexes {
		idx := &indexes[i]
		if idx.Columns, err = e.indexColumns(idx.Name); err != nil {
			return nil, err
		}
	}
	return indexes, nil
}

func (e *TableExtractor) indexColumns(indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", quoteName(indexName))
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for index %s: %w", indexName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan index column: %w", err)
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// uniqueConstraintsFromIndexes treats non-PK unique indexes as unique
// constraints, which is how SQLite implements them.
func uniqueConstraintsFromIndexes(indexes []types.Index) []types.UniqueConstraint {
	var constraints []types.UniqueConstraint
	for _, idx := range indexes {
		if idx.IsUnique && !idx.IsPrimaryKey {
			constraints = append(constraints, types.UniqueConstraint{
				Name:    idx.Name,
				Columns: idx.Columns,
			})
		}
	}
	return constraints
}

func (e *TableExtractor) tableTriggers(tableName string) ([]types.Trigger, error) {
	query := `
		SELECT name, tbl_name, sql
		FROM sqlite_master
		WHERE type = 'trigger' AND tbl_name = ?`

	rows, err := e.db.Query(query, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers for %s: %w", tableName, err)
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
	return triggers, rows.Err()
}

// rowCount runs a live COUNT(*); failures (such as a corrupt virtual table)
// degrade to zero.
func (e *TableExtractor) rowCount(tableName string) int64 {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteName(tableName))
	if err := e.db.QueryRow(query).Scan(&count); err != nil {
		e.logger.Debug("Failed to count rows", "table", tableName, "error", err)
		return 0
	}
	return count
}

func (e *TableExtractor) createSQL(tableName string) (string, error) {
	query := `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`
	var createSQL sql.NullString
	err := e.db.QueryRow(query, tableName).Scan(&createSQL)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query create statement for %s: %w", tableName, err)
	}
	return createSQL.String, nil
}

// buildReferences links tables through the already-extracted foreign keys;
// no further catalog access is needed in a single-schema database.
func buildReferences(tables []types.Table) {
	tableMap := make(map[string]*types.Table, len(tables))
	for i := range tables {
		tableMap[tables[i].Name] = &tables[i]
	}
	for i := range tables {
		for _, fk := range tables[i].ForeignKeys {
			if ref, ok := tableMap[fk.ReferencedTable]; ok {
				ref.ReferencedBy = append(ref.ReferencedBy, types.TableReference{
					SchemaName: tables[i].SchemaName,
					TableName:  tables[i].Name,
					ForeignKey: fk.Name,
				})
			}
		}
	}
}

// quoteName wraps an identifier in single quotes for use in a PRAGMA call.
func quoteName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
