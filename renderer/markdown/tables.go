package markdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemascan/schemascan/schema/types"
)

func (g *Generator) tableDocs(tables []types.Table) ([]string, error) {
	index := []string{
		"# Tables",
		"",
		fmt.Sprintf("Total: %d tables", len(tables)),
		"",
		"| Schema | Table | Rows | Description |",
		"|--------|-------|------|-------------|",
	}

	sorted := make([]types.Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SchemaName != sorted[j].SchemaName {
			return sorted[i].SchemaName < sorted[j].SchemaName
		}
		return sorted[i].Name < sorted[j].Name
	})
	for _, t := range sorted {
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s | %s |",
			t.SchemaName, t.Name, t.FullName(), formatCount(t.RowCount),
			truncate(deref(t.Description), 50)))
	}

	var files []string
	path, err := g.writeFile("tables/README.md", strings.Join(index, "\n"))
	if err != nil {
		return nil, err
	}
	files = append(files, path)

	for i := range tables {
		path, err := g.tableFile(&tables[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) tableFile(t *types.Table) (string, error) {
	lines := []string{"# " + t.FullName(), ""}

	if t.Description != nil {
		lines = append(lines, *t.Description, "")
	}

	lines = append(lines,
		"## Statistics",
		"",
		fmt.Sprintf("- **Rows:** %s", formatCount(t.RowCount)),
		fmt.Sprintf("- **Total Space:** %s KB", formatCount(t.TotalSpaceKB)),
		"",
		"## Columns",
		"",
		"| Column | Type | Nullable | Default | Description |",
		"|--------|------|----------|---------|-------------|",
	)
	for _, col := range t.Columns {
		defaultValue := deref(col.DefaultValue)
		if col.IsIdentity {
			seed, increment := int64(1), int64(1)
			if col.IdentitySeed != nil {
				seed = *col.IdentitySeed
			}
			if col.IdentityIncrement != nil {
				increment = *col.IdentityIncrement
			}
			defaultValue = fmt.Sprintf("IDENTITY(%d,%d)", seed, increment)
		}
		if col.IsComputed {
			defaultValue = "COMPUTED: " + deref(col.ComputedDefinition)
		}
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s | %s |",
			col.Name, col.FullType(), nullableLabel(col.IsNullable),
			defaultValue, deref(col.Description)))
	}
	lines = append(lines, "")

	if pk := t.PrimaryKey; pk != nil {
		clustered := "NONCLUSTERED"
		if pk.IsClustered {
			clustered = "CLUSTERED"
		}
		cols := make([]string, len(pk.Columns))
		for i, c := range pk.Columns {
			cols[i] = "`" + c + "`"
		}
		lines = append(lines,
			"## Primary Key",
			"",
			fmt.Sprintf("**%s** (%s)", pk.Name, clustered),
			"",
			"Columns: "+strings.Join(cols, ", "),
			"",
		)
	}

	if len(t.ForeignKeys) > 0 {
		lines = append(lines,
			"## Foreign Keys",
			"",
			"| Name | Columns | References | On Delete | On Update |",
			"|------|---------|------------|-----------|-----------|",
		)
		for _, fk := range t.ForeignKeys {
			ref := fmt.Sprintf("%s.%s(%s)", fk.ReferencedSchema, fk.ReferencedTable,
				strings.Join(fk.ReferencedColumns, ", "))
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s | %s |",
				fk.Name, strings.Join(fk.Columns, ", "), ref, fk.OnDelete, fk.OnUpdate))
		}
		lines = append(lines, "")
	}

	var nonPK []types.Index
	for _, idx := range t.Indexes {
		if !idx.IsPrimaryKey {
			nonPK = append(nonPK, idx)
		}
	}
	if len(nonPK) > 0 {
		lines = append(lines,
			"## Indexes",
			"",
			"| Name | Type | Columns | Filter |",
			"|------|------|---------|--------|",
		)
		for _, idx := range nonPK {
			var kind []string
			if idx.IsUnique {
				kind = append(kind, "UNIQUE")
			}
			kind = append(kind, idx.IndexType)
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
				idx.Name, strings.Join(kind, " "), strings.Join(idx.Columns, ", "),
				deref(idx.FilterDefinition)))
		}
		lines = append(lines, "")
	}

	if len(t.CheckConstraints) > 0 {
		lines = append(lines, "## Check Constraints", "")
		for _, cc := range t.CheckConstraints {
			lines = append(lines, "### "+cc.Name, "", "```sql", cc.Definition, "```", "")
		}
	}

	if t.Partitioning != nil && t.Partitioning.IsPartitioned && t.Partitioning.Scheme != nil {
		lines = append(lines, partitioningSection(t.Partitioning.Scheme)...)
	}

	if len(t.ForeignKeys) > 0 || len(t.ReferencedBy) > 0 {
		lines = append(lines, "## Relationships", "")
		if len(t.ForeignKeys) > 0 {
			lines = append(lines, "### References (this table → other tables)", "")
			for _, fk := range t.ForeignKeys {
				lines = append(lines, fmt.Sprintf("- → [%s.%s](../%s.%s.md) via `%s`",
					fk.ReferencedSchema, fk.ReferencedTable,
					fk.ReferencedSchema, fk.ReferencedTable, fk.Name))
			}
			lines = append(lines, "")
		}
		if len(t.ReferencedBy) > 0 {
			lines = append(lines, "### Referenced By (other tables → this table)", "")
			for _, ref := range t.ReferencedBy {
				lines = append(lines, fmt.Sprintf("- ← [%s.%s](../%s.%s.md) via `%s`",
					ref.SchemaName, ref.TableName,
					ref.SchemaName, ref.TableName, ref.ForeignKey))
			}
			lines = append(lines, "")
		}
	}

	return g.writeFile(fmt.Sprintf("tables/%s.md", t.FullName()), strings.Join(lines, "\n"))
}

func partitioningSection(scheme *types.PartitionScheme) []string {
	lines := []string{
		"## Partitioning",
		"",
		fmt.Sprintf("- **Scheme:** %s", scheme.Name),
		fmt.Sprintf("- **Type:** %s", scheme.PartitionType),
	}
	if scheme.FunctionName != "" {
		lines = append(lines, fmt.Sprintf("- **Function:** %s", scheme.FunctionName))
	}
	if scheme.Column != "" {
		lines = append(lines, fmt.Sprintf("- **Column:** %s", scheme.Column))
	}
	if scheme.BoundaryType != "" {
		lines = append(lines, fmt.Sprintf("- **Boundary:** RANGE %s", scheme.BoundaryType))
	}
	lines = append(lines, "")

	if len(scheme.Partitions) > 0 {
		lines = append(lines,
			"| Partition | Boundary | Rows |",
			"|-----------|----------|------|",
		)
		for _, p := range scheme.Partitions {
			boundary := deref(p.BoundaryValue)
			if boundary == "" {
				boundary = "(unbounded)"
			}
			lines = append(lines, fmt.Sprintf("| %d | %s | %s |",
				p.Number, boundary, formatCount(p.RowCount)))
		}
		lines = append(lines, "")
	}
	return lines
}
