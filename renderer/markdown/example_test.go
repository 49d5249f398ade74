package markdown_test

import (
	"fmt"

	"github.com/go-extras/go-kit/must"

	"github.com/schemascan/schemascan/renderer/markdown"
	"github.com/schemascan/schemascan/schema/types"
)

// ExampleGenerator demonstrates a dry run: the file list is computed without
// touching the filesystem.
func ExampleGenerator() {
	db := &types.Database{
		Name:   "app",
		DBType: "sqlite",
		Tables: []types.Table{
			{SchemaName: "main", Name: "users"},
		},
	}

	g := markdown.NewGenerator("docs", true)
	files := must.Must(g.Generate(db))
	for _, f := range files {
		fmt.Println(f)
	}

	// Output:
	// docs/README.md
	// docs/tables/README.md
	// docs/tables/main.users.md
	// docs/schemas/README.md
	// docs/schemas/main.md
}
