// Package markdown renders a finished schema model as a tree of cross-linked
// markdown documents: a database README, one index plus one page per object
// kind, and per-schema summaries. Rendering is pure formatting; no extraction
// logic lives here.
package markdown

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/schemascan/schemascan/schema/types"
)

// Generator writes the markdown tree for one database under OutputDir. With
// DryRun set it returns the file list without touching the filesystem.
type Generator struct {
	outputDir string
	dryRun    bool
	logger    *slog.Logger
	now       func() time.Time
}

func NewGenerator(outputDir string, dryRun bool) *Generator {
	return &Generator{
		outputDir: outputDir,
		dryRun:    dryRun,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithLogger sets the logger for the generator
func (g *Generator) WithLogger(l *slog.Logger) *Generator {
	tmp := *g
	tmp.logger = l
	return &tmp
}

var kindDirs = []string{
	"tables", "views", "procedures", "functions", "triggers",
	"types", "sequences", "synonyms", "schemas",
}

// Generate writes every document for the database and returns the file paths
// in creation order.
func (g *Generator) Generate(db *types.Database) ([]string, error) {
	if err := g.createDirectories(); err != nil {
		return nil, err
	}

	var files []string
	appendFile := func(path string, err error) error {
		if err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	if err := appendFile(g.databaseReadme(db)); err != nil {
		return nil, err
	}

	if len(db.Tables) > 0 {
		more, err := g.tableDocs(db.Tables)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Views) > 0 {
		more, err := g.viewDocs(db.Views)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Procedures) > 0 {
		more, err := g.procedureDocs(db.Procedures)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Functions) > 0 {
		more, err := g.functionDocs(db.Functions)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Triggers) > 0 {
		more, err := g.triggerDocs(db.Triggers)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Types) > 0 {
		more, err := g.typeDocs(db.Types)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Sequences) > 0 {
		more, err := g.sequenceDocs(db.Sequences)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	if len(db.Synonyms) > 0 {
		more, err := g.synonymDocs(db.Synonyms)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}

	more, err := g.schemaDocs(db)
	if err != nil {
		return nil, err
	}
	files = append(files, more...)

	return files, nil
}

func (g *Generator) createDirectories() error {
	if g.dryRun {
		return nil
	}
	for _, dir := range kindDirs {
		if err := os.MkdirAll(filepath.Join(g.outputDir, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// writeFile writes one document, or only logs it in dry-run mode.
func (g *Generator) writeFile(relPath, content string) (string, error) {
	path := filepath.Join(g.outputDir, relPath)
	if g.dryRun {
		g.logger.Info("Would write", "path", path)
		return path, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	g.logger.Debug("Wrote", "path", path)
	return path, nil
}

func (g *Generator) databaseReadme(db *types.Database) (string, error) {
	lines := []string{
		fmt.Sprintf("# %s Database Schema", db.Name),
		"",
		fmt.Sprintf("*Generated on %s*", g.now().Format("2006-01-02 15:04:05")),
		"",
		fmt.Sprintf("**Database Type:** %s", db.DBType),
	}
	if db.Server != nil {
		lines = append(lines, fmt.Sprintf("**Server:** %s", *db.Server))
	}
	if db.Version != nil {
		lines = append(lines, fmt.Sprintf("**Version:** %s", *db.Version))
	}
	lines = append(lines, "",
		"## Summary",
		"",
		"| Object Type | Count |",
		"|-------------|-------|",
		fmt.Sprintf("| Tables | %d |", len(db.Tables)),
		fmt.Sprintf("| Views | %d |", len(db.Views)),
		fmt.Sprintf("| Stored Procedures | %d |", len(db.Procedures)),
		fmt.Sprintf("| Functions | %d |", len(db.Functions)),
		fmt.Sprintf("| Triggers | %d |", len(db.Triggers)),
		fmt.Sprintf("| User-Defined Types | %d |", len(db.Types)),
		fmt.Sprintf("| Sequences | %d |", len(db.Sequences)),
		fmt.Sprintf("| Synonyms | %d |", len(db.Synonyms)),
		"",
	)

	schemaSet := map[string]bool{}
	for _, t := range db.Tables {
		schemaSet[t.SchemaName] = true
	}
	for _, v := range db.Views {
		schemaSet[v.SchemaName] = true
	}
	for _, p := range db.Procedures {
		schemaSet[p.SchemaName] = true
	}
	for _, f := range db.Functions {
		schemaSet[f.SchemaName] = true
	}
	if len(schemaSet) > 0 {
		names := make([]string, 0, len(schemaSet))
		for name := range schemaSet {
			names = append(names, name)
		}
		sort.Strings(names)
		lines = append(lines, "## Schemas", "")
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("- [%s](schemas/%s.md)", name, name))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		"## Object Directories",
		"",
		"- [Tables](tables/README.md)",
		"- [Views](views/README.md)",
		"- [Stored Procedures](procedures/README.md)",
		"- [Functions](functions/README.md)",
		"- [Triggers](triggers/README.md)",
		"- [User-Defined Types](types/README.md)",
		"- [Sequences](sequences/README.md)",
		"- [Synonyms](synonyms/README.md)",
		"",
	)

	return g.writeFile("README.md", strings.Join(lines, "\n"))
}

var (
	titleCaser   = cases.Title(language.English)
	countPrinter = message.NewPrinter(language.English)
)

// titleLabel renders catalog constants like TABLE_VALUED as "Table Valued".
func titleLabel(s string) string {
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
}

// formatCount renders a row count with thousands separators.
func formatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}

// truncate shortens long descriptions for index tables.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func nullableLabel(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
