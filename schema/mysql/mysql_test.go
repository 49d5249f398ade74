package mysql

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSplitPrivileges(t *testing.T) {
	tests := []struct {
		name     string
		privs    string
		expected []string
	}{
		{name: "empty", privs: "", expected: nil},
		{name: "single", privs: "Select", expected: []string{"SELECT"}},
		{name: "multiple", privs: "Select,Insert,Update", expected: []string{"SELECT", "INSERT", "UPDATE"}},
		{name: "spaces trimmed", privs: "Select, Insert ,Delete", expected: []string{"SELECT", "INSERT", "DELETE"}},
		{name: "empty elements skipped", privs: "Select,,Insert", expected: []string{"SELECT", "INSERT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(splitPrivileges(tt.privs), qt.DeepEquals, tt.expected)
		})
	}
}

func TestIndexFilterDefinition(t *testing.T) {
	createSQL := "CREATE TABLE `t` (\n" +
		"  `id` int NOT NULL,\n" +
		"  `status` varchar(20) DEFAULT NULL,\n" +
		"  PRIMARY KEY (`id`),\n" +
		"  INDEX `ix_active` (`status`) WHERE status = 'active',\n" +
		"  KEY `ix_plain` (`status`)\n" +
		") ENGINE=InnoDB"

	tests := []struct {
		name      string
		indexName string
		expected  *string
	}{
		{name: "filtered index", indexName: "ix_active", expected: strPtr("WHERE status = 'active'")},
		{name: "plain index has no filter", indexName: "ix_plain", expected: nil},
		{name: "unknown index", indexName: "ix_missing", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			got := indexFilterDefinition(createSQL, tt.indexName)
			if tt.expected == nil {
				c.Assert(got, qt.IsNil)
			} else {
				c.Assert(got, qt.Not(qt.IsNil))
				c.Assert(*got, qt.Equals, *tt.expected)
			}
		})
	}
}

func TestAccountName(t *testing.T) {
	c := qt.New(t)
	c.Assert(accountName("app", "%"), qt.Equals, "app@%")
	c.Assert(accountName("admin", "localhost"), qt.Equals, "admin@localhost")
}

func strPtr(s string) *string { return &s }
