package postgres

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestExtractPartitionColumn(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "range key", input: "RANGE (created_at)", expected: "created_at"},
		{name: "list key", input: "LIST (region)", expected: "region"},
		{name: "hash key", input: "HASH (tenant_id)", expected: "tenant_id"},
		{name: "composite key kept verbatim", input: "RANGE (year, month)", expected: "year, month"},
		{name: "no parentheses", input: "garbage", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(extractPartitionColumn(tt.input), qt.Equals, tt.expected)
		})
	}
}
