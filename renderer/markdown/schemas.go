package markdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemascan/schemascan/schema/types"
)

// schemaGroup collects the object names of one schema for the per-schema
// summary pages.
type schemaGroup struct {
	tables     []string
	views      []string
	procedures []string
	functions  []string
	triggers   []string
	types      []string
	sequences  []string
	synonyms   []string
}

func (g *Generator) schemaDocs(db *types.Database) ([]string, error) {
	groups := map[string]*schemaGroup{}
	group := func(schemaName string) *schemaGroup {
		grp, ok := groups[schemaName]
		if !ok {
			grp = &schemaGroup{}
			groups[schemaName] = grp
		}
		return grp
	}

	for _, t := range db.Tables {
		grp := group(t.SchemaName)
		grp.tables = append(grp.tables, t.Name)
	}
	for _, v := range db.Views {
		grp := group(v.SchemaName)
		grp.views = append(grp.views, v.Name)
	}
	for _, p := range db.Procedures {
		grp := group(p.SchemaName)
		grp.procedures = append(grp.procedures, p.Name)
	}
	for _, f := range db.Functions {
		grp := group(f.SchemaName)
		grp.functions = append(grp.functions, f.Name)
	}
	for _, t := range db.Triggers {
		grp := group(t.SchemaName)
		grp.triggers = append(grp.triggers, t.Name)
	}
	for _, u := range db.Types {
		grp := group(u.SchemaName)
		grp.types = append(grp.types, u.Name)
	}
	for _, s := range db.Sequences {
		grp := group(s.SchemaName)
		grp.sequences = append(grp.sequences, s.Name)
	}
	for _, s := range db.Synonyms {
		grp := group(s.SchemaName)
		grp.synonyms = append(grp.synonyms, s.Name)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	index := []string{
		"# Schemas",
		"",
		fmt.Sprintf("Total: %d schemas", len(names)),
		"",
		"| Schema | Tables | Views | Procedures | Functions |",
		"|--------|--------|-------|------------|-----------|",
	}
	for _, name := range names {
		grp := groups[name]
		index = append(index, fmt.Sprintf("| [%s](%s.md) | %d | %d | %d | %d |",
			name, name, len(grp.tables), len(grp.views), len(grp.procedures), len(grp.functions)))
	}

	files, err := g.writeIndexed("schemas/README.md", index)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		path, err := g.schemaFile(name, groups[name])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (g *Generator) schemaFile(schemaName string, grp *schemaGroup) (string, error) {
	lines := []string{"# Schema: " + schemaName, ""}

	section := func(title, dir string, objectNames []string) {
		if len(objectNames) == 0 {
			return
		}
		sorted := append([]string(nil), objectNames...)
		sort.Strings(sorted)
		lines = append(lines, "## "+title, "")
		for _, name := range sorted {
			lines = append(lines, fmt.Sprintf("- [%s](../%s/%s.%s.md)", name, dir, schemaName, name))
		}
		lines = append(lines, "")
	}

	section("Tables", "tables", grp.tables)
	section("Views", "views", grp.views)
	section("Stored Procedures", "procedures", grp.procedures)
	section("Functions", "functions", grp.functions)
	section("Triggers", "triggers", grp.triggers)
	section("User-Defined Types", "types", grp.types)
	section("Sequences", "sequences", grp.sequences)
	section("Synonyms", "synonyms", grp.synonyms)

	return g.writeFile(fmt.Sprintf("schemas/%s.md", schemaName), strings.Join(lines, "\n"))
}
