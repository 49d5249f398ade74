package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/schemascan/schemascan/schema/types"
)

func strPtr(s string) *string { return &s }

func fixtureDatabase() *types.Database {
	return &types.Database{
		Name:    "shop",
		DBType:  "postgres",
		Server:  strPtr("db.internal:5432"),
		Version: strPtr("16.3"),
		Tables: []types.Table{
			{
				SchemaName: "public",
				Name:       "orders",
				RowCount:   1234567,
				Columns: []types.Column{
					{Name: "id", DataType: "bigint", IsIdentity: true, OrdinalPosition: 1},
					{Name: "customer_id", DataType: "bigint", OrdinalPosition: 2},
					{Name: "note", DataType: "text", IsNullable: true, OrdinalPosition: 3},
				},
				PrimaryKey: &types.PrimaryKey{Name: "orders_pkey", Columns: []string{"id"}},
				ForeignKeys: []types.ForeignKey{
					{
						Name:              "orders_customer_id_fkey",
						Columns:           []string{"customer_id"},
						ReferencedSchema:  "public",
						ReferencedTable:   "customers",
						ReferencedColumns: []string{"id"},
						OnDelete:          "CASCADE",
						OnUpdate:          "NO ACTION",
					},
				},
			},
			{
				SchemaName: "public",
				Name:       "customers",
				Columns: []types.Column{
					{Name: "id", DataType: "bigint", IsIdentity: true, OrdinalPosition: 1},
				},
				ReferencedBy: []types.TableReference{
					{SchemaName: "public", TableName: "orders", ForeignKey: "orders_customer_id_fkey"},
				},
			},
		},
		Views: []types.View{
			{
				SchemaName: "public",
				Name:       "open_orders",
				Columns:    []types.Column{{Name: "id", DataType: "bigint", OrdinalPosition: 1}},
				Definition: strPtr("SELECT id FROM orders WHERE closed_at IS NULL"),
			},
		},
		Functions: []types.Function{
			{
				SchemaName:   "public",
				Name:         "order_total",
				FunctionType: "SCALAR",
				Language:     "SQL",
				Parameters: []types.Parameter{
					{Name: "order_id", DataType: "bigint", OrdinalPosition: 1},
				},
				ReturnType: strPtr("numeric"),
			},
		},
		Sequences: []types.Sequence{
			{
				SchemaName: "public",
				Name:       "orders_id_seq",
				DataType:   "bigint",
				StartValue: 1,
				Increment:  1,
				MinValue:   1,
				MaxValue:   9223372036854775807,
			},
		},
	}
}

func TestGenerateDryRunListsFilesWithoutWriting(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	g := NewGenerator(filepath.Join(dir, "docs"), true)
	files, err := g.Generate(fixtureDatabase())
	c.Assert(err, qt.IsNil)

	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(filepath.Join(dir, "docs"), f)
		c.Assert(err, qt.IsNil)
		rel[i] = filepath.ToSlash(r)
	}
	c.Assert(rel, qt.DeepEquals, []string{
		"README.md",
		"tables/README.md",
		"tables/public.orders.md",
		"tables/public.customers.md",
		"views/README.md",
		"views/public.open_orders.md",
		"functions/README.md",
		"functions/public.order_total.md",
		"sequences/README.md",
		"sequences/public.orders_id_seq.md",
		"schemas/README.md",
		"schemas/public.md",
	})

	_, err = os.Stat(filepath.Join(dir, "docs"))
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestGenerateWritesDocumentTree(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	g := NewGenerator(dir, false)
	g.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	files, err := g.Generate(fixtureDatabase())
	c.Assert(err, qt.IsNil)
	c.Assert(len(files) > 0, qt.IsTrue)

	readme, err := os.ReadFile(filepath.Join(dir, "README.md"))
	c.Assert(err, qt.IsNil)
	content := string(readme)
	c.Assert(content, qt.Contains, "# shop Database Schema")
	c.Assert(content, qt.Contains, "*Generated on 2026-03-14 09:30:00*")
	c.Assert(content, qt.Contains, "**Database Type:** postgres")
	c.Assert(content, qt.Contains, "**Server:** db.internal:5432")
	c.Assert(content, qt.Contains, "| Tables | 2 |")
	c.Assert(content, qt.Contains, "- [public](schemas/public.md)")

	tableDoc, err := os.ReadFile(filepath.Join(dir, "tables", "public.orders.md"))
	c.Assert(err, qt.IsNil)
	content = string(tableDoc)
	c.Assert(content, qt.Contains, "# public.orders")
	c.Assert(content, qt.Contains, "- **Rows:** 1,234,567")
	c.Assert(content, qt.Contains, "| id | bigint | NO | IDENTITY(1,1) |")
	c.Assert(content, qt.Contains, "**orders_pkey** (NONCLUSTERED)")
	c.Assert(content, qt.Contains,
		"| orders_customer_id_fkey | customer_id | public.customers(id) | CASCADE | NO ACTION |")
	c.Assert(content, qt.Contains,
		"- → [public.customers](../public.customers.md) via `orders_customer_id_fkey`")

	customerDoc, err := os.ReadFile(filepath.Join(dir, "tables", "public.customers.md"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(customerDoc), qt.Contains,
		"- ← [public.orders](../public.orders.md) via `orders_customer_id_fkey`")

	viewDoc, err := os.ReadFile(filepath.Join(dir, "views", "public.open_orders.md"))
	c.Assert(err, qt.IsNil)
	content = string(viewDoc)
	c.Assert(content, qt.Contains, "## Definition")
	c.Assert(content, qt.Contains, "SELECT id FROM orders WHERE closed_at IS NULL")

	funcDoc, err := os.ReadFile(filepath.Join(dir, "functions", "public.order_total.md"))
	c.Assert(err, qt.IsNil)
	content = string(funcDoc)
	c.Assert(content, qt.Contains, "**Type:** Scalar")
	c.Assert(content, qt.Contains, "## Returns")
	c.Assert(content, qt.Contains, "`numeric`")

	seqDoc, err := os.ReadFile(filepath.Join(dir, "sequences", "public.orders_id_seq.md"))
	c.Assert(err, qt.IsNil)
	content = string(seqDoc)
	c.Assert(content, qt.Contains, "- **Current Value:** -")
	c.Assert(content, qt.Contains, "- **Cache:** No cache")

	schemaDoc, err := os.ReadFile(filepath.Join(dir, "schemas", "public.md"))
	c.Assert(err, qt.IsNil)
	content = string(schemaDoc)
	c.Assert(content, qt.Contains, "# Schema: public")
	c.Assert(content, qt.Contains, "- [orders](../tables/public.orders.md)")
	c.Assert(content, qt.Contains, "- [open_orders](../views/public.open_orders.md)")

	schemaIndex, err := os.ReadFile(filepath.Join(dir, "schemas", "README.md"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(schemaIndex), qt.Contains, "| [public](public.md) | 2 | 1 | 0 | 1 |")
}

func TestTitleLabel(t *testing.T) {
	c := qt.New(t)
	tests := []struct{ in, want string }{
		{"TABLE_VALUED", "Table Valued"},
		{"SCALAR", "Scalar"},
		{"composite", "Composite"},
	}
	for _, tt := range tests {
		c.Assert(titleLabel(tt.in), qt.Equals, tt.want, qt.Commentf("input %q", tt.in))
	}
}

func TestTruncate(t *testing.T) {
	c := qt.New(t)
	c.Assert(truncate("short", 50), qt.Equals, "short")
	c.Assert(truncate(strings.Repeat("x", 60), 50), qt.Equals, strings.Repeat("x", 50)+"...")
}
