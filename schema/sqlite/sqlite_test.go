package sqlite

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseDeclaredType(t *testing.T) {
	tests := []struct {
		name      string
		declared  string
		dataType  string
		maxLength *int
		precision *int
		scale     *int
	}{
		{name: "bare type", declared: "INTEGER", dataType: "INTEGER"},
		{name: "lower case upper cased", declared: "text", dataType: "TEXT"},
		{name: "length", declared: "VARCHAR(255)", dataType: "VARCHAR", maxLength: intPtr(255)},
		{name: "precision and scale", declared: "DECIMAL(10,2)", dataType: "DECIMAL", precision: intPtr(10), scale: intPtr(2)},
		{name: "precision and scale with space", declared: "NUMERIC(18, 4)", dataType: "NUMERIC", precision: intPtr(18), scale: intPtr(4)},
		{name: "empty defaults to text", declared: "", dataType: "TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			dataType, maxLength, precision, scale := parseDeclaredType(tt.declared)
			c.Assert(dataType, qt.Equals, tt.dataType)
			c.Assert(maxLength, qt.DeepEquals, tt.maxLength)
			c.Assert(precision, qt.DeepEquals, tt.precision)
			c.Assert(scale, qt.DeepEquals, tt.scale)
		})
	}
}

func TestParseTriggerClauses(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		timing string
		events []string
	}{
		{
			name:   "before insert",
			sql:    "CREATE TRIGGER trg BEFORE INSERT ON t BEGIN SELECT 1; END",
			timing: "BEFORE",
			events: []string{"INSERT"},
		},
		{
			name:   "after update",
			sql:    "CREATE TRIGGER trg AFTER UPDATE ON t BEGIN SELECT 1; END",
			timing: "AFTER",
			events: []string{"UPDATE"},
		},
		{
			name:   "instead of delete on a view",
			sql:    "CREATE TRIGGER trg INSTEAD OF DELETE ON v BEGIN SELECT 1; END",
			timing: "INSTEAD OF",
			events: []string{"DELETE"},
		},
		{
			name:   "no timing keyword defaults to after",
			sql:    "CREATE TRIGGER trg INSERT ON t BEGIN SELECT 1; END",
			timing: "AFTER",
			events: []string{"INSERT"},
		},
		{
			name:   "empty",
			sql:    "",
			timing: "AFTER",
			events: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			timing, events := parseTriggerClauses(tt.sql)
			c.Assert(timing, qt.Equals, tt.timing)
			c.Assert(events, qt.DeepEquals, tt.events)
		})
	}
}

func TestQuoteName(t *testing.T) {
	c := qt.New(t)
	c.Assert(quoteName("users"), qt.Equals, "'users'")
	c.Assert(quoteName("o'brien"), qt.Equals, "'o''brien'")
}

func intPtr(i int) *int { return &i }
