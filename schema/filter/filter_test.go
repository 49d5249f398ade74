package filter_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/schemascan/schemascan/core/platform"
	"github.com/schemascan/schemascan/schema/filter"
)

func TestShouldIncludeSchema(t *testing.T) {
	tests := []struct {
		name     string
		policy   *filter.Policy
		schema   string
		expected bool
	}{
		{
			name:     "no filters includes everything",
			policy:   &filter.Policy{},
			schema:   "sales",
			expected: true,
		},
		{
			name:     "excluded schema rejected",
			policy:   &filter.Policy{ExcludeSchemas: []string{"sys", "guest"}},
			schema:   "sys",
			expected: false,
		},
		{
			name:     "non-excluded schema passes",
			policy:   &filter.Policy{ExcludeSchemas: []string{"sys", "guest"}},
			schema:   "dbo",
			expected: true,
		},
		{
			name:     "include list exact match passes",
			policy:   &filter.Policy{IncludeSchemas: []string{"sales", "hr"}},
			schema:   "sales",
			expected: true,
		},
		{
			name:     "include list rejects unlisted schema",
			policy:   &filter.Policy{IncludeSchemas: []string{"sales"}},
			schema:   "dbo",
			expected: false,
		},
		{
			name:     "include list takes precedence over exclude list",
			policy:   &filter.Policy{IncludeSchemas: []string{"sys"}, ExcludeSchemas: []string{"sys"}},
			schema:   "sys",
			expected: true,
		},
		{
			name:     "include list is case sensitive",
			policy:   &filter.Policy{IncludeSchemas: []string{"Sales"}},
			schema:   "sales",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			result := tt.policy.ShouldIncludeSchema(tt.schema)
			c.Assert(result, qt.Equals, tt.expected, qt.Commentf("ShouldIncludeSchema(%q) = %v, want %v", tt.schema, result, tt.expected))
		})
	}
}

func TestShouldExtract(t *testing.T) {
	tests := []struct {
		name        string
		objectTypes []string
		kind        string
		expected    bool
	}{
		{name: "all matches any kind", objectTypes: []string{"all"}, kind: "tables", expected: true},
		{name: "literal kind matches", objectTypes: []string{"tables", "views"}, kind: "tables", expected: true},
		{name: "missing kind rejected", objectTypes: []string{"tables"}, kind: "sequences", expected: false},
		{name: "empty list rejects everything", objectTypes: nil, kind: "tables", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			p := &filter.Policy{ObjectTypes: tt.objectTypes}
			c.Assert(p.ShouldExtract(tt.kind), qt.Equals, tt.expected)
		})
	}
}

func TestNewPolicyDefaults(t *testing.T) {
	c := qt.New(t)

	p := filter.NewPolicy(platform.MSSQL, nil, nil, nil)
	c.Assert(p.ShouldIncludeSchema("sys"), qt.IsFalse)
	c.Assert(p.ShouldIncludeSchema("INFORMATION_SCHEMA"), qt.IsFalse)
	c.Assert(p.ShouldIncludeSchema("dbo"), qt.IsTrue)
	c.Assert(p.ShouldExtract("tables"), qt.IsTrue)
	c.Assert(p.ShouldExtract("security"), qt.IsTrue)

	// An explicit exclude list replaces the vendor defaults.
	p = filter.NewPolicy(platform.MSSQL, nil, []string{"archive"}, nil)
	c.Assert(p.ShouldIncludeSchema("sys"), qt.IsTrue)
	c.Assert(p.ShouldIncludeSchema("archive"), qt.IsFalse)
}

func TestDefaultExcludedSchemas(t *testing.T) {
	tests := []struct {
		name     string
		vendor   string
		contains string
		count    int
	}{
		{name: "mssql", vendor: platform.MSSQL, contains: "INFORMATION_SCHEMA", count: 3},
		{name: "postgres", vendor: platform.Postgres, contains: "pg_toast", count: 3},
		{name: "mysql", vendor: platform.MySQL, contains: "performance_schema", count: 4},
		{name: "oracle", vendor: platform.Oracle, contains: "FLOWS_FILES", count: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			schemas := filter.DefaultExcludedSchemas(tt.vendor)
			c.Assert(schemas, qt.HasLen, tt.count)
			c.Assert(schemas, qt.Contains, tt.contains)
		})
	}

	c := qt.New(t)
	c.Assert(filter.DefaultExcludedSchemas(platform.SQLite), qt.HasLen, 0)
}
