package mssql

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseBaseObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		server   string
		database string
		schema   string
		object   string
	}{
		{
			name:   "bare object name",
			input:  "Orders",
			object: "Orders",
		},
		{
			name:   "schema qualified",
			input:  "[dbo].[Orders]",
			schema: "dbo",
			object: "Orders",
		},
		{
			name:     "database qualified",
			input:    "[SalesDB].[dbo].[Orders]",
			database: "SalesDB",
			schema:   "dbo",
			object:   "Orders",
		},
		{
			name:     "linked server",
			input:    "[REMOTE01].[SalesDB].[dbo].[Orders]",
			server:   "REMOTE01",
			database: "SalesDB",
			schema:   "dbo",
			object:   "Orders",
		},
		{
			name:   "unbracketed two part",
			input:  "dbo.Orders",
			schema: "dbo",
			object: "Orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			server, database, schema, object := parseBaseObject(tt.input)
			c.Assert(deref(server), qt.Equals, tt.server)
			c.Assert(deref(database), qt.Equals, tt.database)
			c.Assert(deref(schema), qt.Equals, tt.schema)
			c.Assert(deref(object), qt.Equals, tt.object)
		})
	}
}

func TestFormatReturnType(t *testing.T) {
	tests := []struct {
		name      string
		dataType  string
		maxLength *int
		precision *int
		scale     *int
		expected  string
	}{
		{name: "plain int", dataType: "int", expected: "int"},
		{name: "varchar with length", dataType: "varchar", maxLength: intPtr(50), expected: "varchar(50)"},
		{name: "varchar max", dataType: "varchar", maxLength: intPtr(-1), expected: "varchar(max)"},
		{name: "nvarchar halves byte length", dataType: "nvarchar", maxLength: intPtr(100), expected: "nvarchar(50)"},
		{name: "decimal", dataType: "decimal", precision: intPtr(18), scale: intPtr(2), expected: "decimal(18,2)"},
		{name: "numeric zero scale", dataType: "numeric", precision: intPtr(10), scale: intPtr(0), expected: "numeric(10,0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			result := formatReturnType(tt.dataType, tt.maxLength, tt.precision, tt.scale)
			c.Assert(result, qt.Equals, tt.expected)
		})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(i int) *int {
	return &i
}
