package markdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemascan/schemascan/schema/types"
)

func (g *Generator) viewDocs(views []types.View) ([]string, error) {
	index := []string{
		"# Views",
		"",
		fmt.Sprintf("Total: %d views", len(views)),
		"",
		"| Schema | View | Materialized | Description |",
		"|--------|------|--------------|-------------|",
	}
	for _, v := range sortedByName(views, func(v types.View) (string, string) { return v.SchemaName, v.Name }) {
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s | %s |",
			v.SchemaName, v.Name, v.FullName(), yesNo(v.IsMaterialized),
			truncate(deref(v.Description), 50)))
	}

	files, err := g.writeIndexed("views/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range views {
		path, err := g.viewFile(&views[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) viewFile(v *types.View) (string, error) {
	lines := []string{"# " + v.FullName(), ""}
	if v.Description != nil {
		lines = append(lines, *v.Description, "")
	}
	if v.IsMaterialized {
		lines = append(lines, "*This is a materialized view.*", "")
	}

	lines = append(lines,
		"## Columns",
		"",
		"| Column | Type | Nullable | Description |",
		"|--------|------|----------|-------------|",
	)
	for _, col := range v.Columns {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
			col.Name, col.FullType(), nullableLabel(col.IsNullable), deref(col.Description)))
	}
	lines = append(lines, "")

	if len(v.BaseTables) > 0 {
		lines = append(lines, "## Base Tables", "")
		for _, bt := range v.BaseTables {
			lines = append(lines, "- "+bt)
		}
		lines = append(lines, "")
	}

	if v.Definition != nil {
		lines = append(lines, "## Definition", "", "```sql", *v.Definition, "```", "")
	}

	return g.writeFile(fmt.Sprintf("views/%s.md", v.FullName()), strings.Join(lines, "\n"))
}

func (g *Generator) procedureDocs(procedures []types.Procedure) ([]string, error) {
	index := []string{
		"# Stored Procedures",
		"",
		fmt.Sprintf("Total: %d stored procedures", len(procedures)),
		"",
		"| Schema | Procedure | Parameters | Language |",
		"|--------|-----------|------------|----------|",
	}
	for _, p := range sortedByName(procedures, func(p types.Procedure) (string, string) { return p.SchemaName, p.Name }) {
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %d | %s |",
			p.SchemaName, p.Name, p.FullName(), len(p.Parameters), p.Language))
	}

	files, err := g.writeIndexed("procedures/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range procedures {
		path, err := g.procedureFile(&procedures[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) procedureFile(p *types.Procedure) (string, error) {
	lines := []string{"# " + p.FullName(), "", "**Language:** " + p.Language, ""}
	if p.Description != nil {
		lines = append(lines, *p.Description, "")
	}

	if len(p.Parameters) > 0 {
		lines = append(lines,
			"## Parameters",
			"",
			"| Name | Type | Direction | Default |",
			"|------|------|-----------|---------|",
		)
		for _, param := range p.Parameters {
			direction := "INPUT"
			if param.IsOutput {
				direction = "OUTPUT"
			}
			defaultValue := ""
			if param.HasDefault {
				defaultValue = deref(param.DefaultValue)
			}
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
				param.Name, param.FullType(), direction, defaultValue))
		}
		lines = append(lines, "")
	} else {
		lines = append(lines, "*No parameters*", "")
	}

	if p.Definition != nil {
		lines = append(lines, "## Definition", "", "```sql", *p.Definition, "```", "")
	}

	return g.writeFile(fmt.Sprintf("procedures/%s.md", p.FullName()), strings.Join(lines, "\n"))
}

func (g *Generator) functionDocs(functions []types.Function) ([]string, error) {
	index := []string{
		"# User-Defined Functions",
		"",
		fmt.Sprintf("Total: %d functions", len(functions)),
		"",
		"| Schema | Function | Type | Parameters | Language |",
		"|--------|----------|------|------------|----------|",
	}
	for _, f := range sortedByName(functions, func(f types.Function) (string, string) { return f.SchemaName, f.Name }) {
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s | %d | %s |",
			f.SchemaName, f.Name, f.FullName(), titleLabel(f.FunctionType),
			len(f.Parameters), f.Language))
	}

	files, err := g.writeIndexed("functions/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range functions {
		path, err := g.functionFile(&functions[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) functionFile(f *types.Function) (string, error) {
	lines := []string{
		"# " + f.FullName(),
		"",
		"**Type:** " + titleLabel(f.FunctionType),
		"**Language:** " + f.Language,
		"",
	}
	if f.Description != nil {
		lines = append(lines, *f.Description, "")
	}

	if len(f.Parameters) > 0 {
		lines = append(lines,
			"## Parameters",
			"",
			"| Name | Type | Default |",
			"|------|------|---------|",
		)
		for _, param := range f.Parameters {
			defaultValue := ""
			if param.HasDefault {
				defaultValue = deref(param.DefaultValue)
			}
			lines = append(lines, fmt.Sprintf("| %s | %s | %s |",
				param.Name, param.FullType(), defaultValue))
		}
		lines = append(lines, "")
	}

	switch {
	case f.FunctionType == "SCALAR" && f.ReturnType != nil:
		lines = append(lines, "## Returns", "", "`"+*f.ReturnType+"`", "")
	case len(f.ReturnColumns) > 0:
		lines = append(lines,
			"## Return Columns",
			"",
			"| Column | Type | Nullable |",
			"|--------|------|----------|",
		)
		for _, col := range f.ReturnColumns {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s |",
				col.Name, col.FullType(), nullableLabel(col.IsNullable)))
		}
		lines = append(lines, "")
	}

	if f.Definition != nil {
		lines = append(lines, "## Definition", "", "```sql", *f.Definition, "```", "")
	}

	return g.writeFile(fmt.Sprintf("functions/%s.md", f.FullName()), strings.Join(lines, "\n"))
}

func (g *Generator) triggerDocs(triggers []types.Trigger) ([]string, error) {
	index := []string{
		"# Triggers",
		"",
		fmt.Sprintf("Total: %d triggers", len(triggers)),
		"",
		"| Schema | Trigger | Table | Type | Events | Disabled |",
		"|--------|---------|-------|------|--------|----------|",
	}
	for _, t := range sortedByName(triggers, func(t types.Trigger) (string, string) { return t.SchemaName, t.Name }) {
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s | %s | %s | %s |",
			t.SchemaName, t.Name, t.FullName(), t.ParentTableName, t.TriggerType,
			strings.Join(t.Events, ", "), yesNo(t.IsDisabled)))
	}

	files, err := g.writeIndexed("triggers/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range triggers {
		path, err := g.triggerFile(&triggers[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) triggerFile(t *types.Trigger) (string, error) {
	lines := []string{
		"# " + t.FullName(),
		"",
		fmt.Sprintf("**Table:** [%s.%s](../tables/%s.%s.md)",
			t.ParentTableSchema, t.ParentTableName, t.ParentTableSchema, t.ParentTableName),
		"",
		"**Type:** " + t.TriggerType,
		"",
		"**Events:** " + strings.Join(t.Events, ", "),
		"",
	}
	if t.IsDisabled {
		lines = append(lines, "*This trigger is disabled.*", "")
	}
	if t.Description != nil {
		lines = append(lines, *t.Description, "")
	}
	if t.Definition != nil {
		lines = append(lines, "## Definition", "", "```sql", *t.Definition, "```", "")
	}

	return g.writeFile(fmt.Sprintf("triggers/%s.md", t.FullName()), strings.Join(lines, "\n"))
}

func (g *Generator) typeDocs(udts []types.UserDefinedType) ([]string, error) {
	index := []string{
		"# User-Defined Types",
		"",
		fmt.Sprintf("Total: %d types", len(udts)),
		"",
		"| Schema | Type | Category | Base Type |",
		"|--------|------|----------|-----------|",
	}
	for _, u := range sortedByName(udts, func(u types.UserDefinedType) (string, string) { return u.SchemaName, u.Name }) {
		base := deref(u.BaseType)
		if base == "" {
			base = "-"
		}
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s | %s |",
			u.SchemaName, u.Name, u.FullName(), titleLabel(u.TypeCategory), base))
	}

	files, err := g.writeIndexed("types/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range udts {
		path, err := g.typeFile(&udts[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) typeFile(u *types.UserDefinedType) (string, error) {
	lines := []string{"# " + u.FullName(), "", "**Category:** " + titleLabel(u.TypeCategory), ""}
	if u.Description != nil {
		lines = append(lines, *u.Description, "")
	}

	if u.BaseType != nil {
		nullable := "NOT NULL"
		if u.IsNullable {
			nullable = "NULL"
		}
		lines = append(lines, "## Definition", "",
			fmt.Sprintf("Base type: `%s` %s", *u.BaseType, nullable), "")
	}

	if len(u.Columns) > 0 {
		lines = append(lines,
			"## Columns",
			"",
			"| Column | Type | Nullable |",
			"|--------|------|----------|",
		)
		for _, col := range u.Columns {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s |",
				col.Name, col.FullType(), nullableLabel(col.IsNullable)))
		}
		lines = append(lines, "")
	}

	if len(u.EnumValues) > 0 {
		lines = append(lines, "## Values", "")
		for _, val := range u.EnumValues {
			lines = append(lines, "- `"+val+"`")
		}
		lines = append(lines, "")
	}

	if u.CheckConstraint != nil {
		lines = append(lines, "## Check Constraint", "", "```sql", *u.CheckConstraint, "```", "")
	}

	return g.writeFile(fmt.Sprintf("types/%s.md", u.FullName()), strings.Join(lines, "\n"))
}

func (g *Generator) sequenceDocs(sequences []types.Sequence) ([]string, error) {
	index := []string{
		"# Sequences",
		"",
		fmt.Sprintf("Total: %d sequences", len(sequences)),
		"",
		"| Schema | Sequence | Type | Start | Increment | Current | Cycling |",
		"|--------|----------|------|-------|-----------|---------|---------|",
	}
	for _, s := range sortedByName(sequences, func(s types.Sequence) (string, string) { return s.SchemaName, s.Name }) {
		current := "-"
		if s.CurrentValue != nil {
			current = fmt.Sprintf("%d", *s.CurrentValue)
		}
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s | %d | %d | %s | %s |",
			s.SchemaName, s.Name, s.FullName(), s.DataType, s.StartValue,
			s.Increment, current, yesNo(s.IsCycling)))
	}

	files, err := g.writeIndexed("sequences/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range sequences {
		path, err := g.sequenceFile(&sequences[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) sequenceFile(s *types.Sequence) (string, error) {
	lines := []string{"# " + s.FullName(), ""}
	if s.Description != nil {
		lines = append(lines, *s.Description, "")
	}

	current := "-"
	if s.CurrentValue != nil {
		current = fmt.Sprintf("%d", *s.CurrentValue)
	}
	cache := "No cache"
	if s.CacheSize != nil {
		cache = fmt.Sprintf("%d", *s.CacheSize)
	}
	lines = append(lines,
		"## Properties",
		"",
		"- **Data Type:** "+s.DataType,
		fmt.Sprintf("- **Start Value:** %d", s.StartValue),
		fmt.Sprintf("- **Increment:** %d", s.Increment),
		fmt.Sprintf("- **Minimum Value:** %d", s.MinValue),
		fmt.Sprintf("- **Maximum Value:** %d", s.MaxValue),
		"- **Current Value:** "+current,
		"- **Cycling:** "+yesNo(s.IsCycling),
		"- **Cache:** "+cache,
		"",
	)

	return g.writeFile(fmt.Sprintf("sequences/%s.md", s.FullName()), strings.Join(lines, "\n"))
}

func (g *Generator) synonymDocs(synonyms []types.Synonym) ([]string, error) {
	index := []string{
		"# Synonyms",
		"",
		fmt.Sprintf("Total: %d synonyms", len(synonyms)),
		"",
		"| Schema | Synonym | Target |",
		"|--------|---------|--------|",
	}
	for _, s := range sortedByName(synonyms, func(s types.Synonym) (string, string) { return s.SchemaName, s.Name }) {
		index = append(index, fmt.Sprintf("| %s | [%s](%s.md) | %s |",
			s.SchemaName, s.Name, s.FullName(), s.BaseObjectName))
	}

	files, err := g.writeIndexed("synonyms/README.md", index)
	if err != nil {
		return nil, err
	}
	for i := range synonyms {
		path, err := g.synonymFile(&synonyms[i])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) synonymFile(s *types.Synonym) (string, error) {
	lines := []string{"# " + s.FullName(), ""}
	if s.Description != nil {
		lines = append(lines, *s.Description, "")
	}
	lines = append(lines, "## Target", "", "**Base Object:** `"+s.BaseObjectName+"`", "")

	if s.TargetServer != nil || s.TargetDatabase != nil {
		lines = append(lines, "### Parsed Reference", "")
		if s.TargetServer != nil {
			lines = append(lines, "- **Server:** "+*s.TargetServer)
		}
		if s.TargetDatabase != nil {
			lines = append(lines, "- **Database:** "+*s.TargetDatabase)
		}
		if s.TargetSchema != nil {
			lines = append(lines, "- **Schema:** "+*s.TargetSchema)
		}
		if s.TargetObject != nil {
			lines = append(lines, "- **Object:** "+*s.TargetObject)
		}
		lines = append(lines, "")
	}

	return g.writeFile(fmt.Sprintf("synonyms/%s.md", s.FullName()), strings.Join(lines, "\n"))
}

// writeIndexed writes a kind index page and starts the file list with it.
func (g *Generator) writeIndexed(relPath string, lines []string) ([]string, error) {
	path, err := g.writeFile(relPath, strings.Join(lines, "\n"))
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// sortedByName returns a copy sorted by (schema, name).
func sortedByName[T any](items []T, key func(T) (string, string)) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool {
		si, ni := key(out[i])
		sj, nj := key(out[j])
		if si != sj {
			return si < sj
		}
		return ni < nj
	})
	return out
}
