package oracle

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTriggerTiming(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "before each row", input: "BEFORE EACH ROW", expected: "BEFORE"},
		{name: "after statement", input: "AFTER STATEMENT", expected: "AFTER"},
		{name: "instead of", input: "INSTEAD OF", expected: "INSTEAD OF"},
		{name: "compound passes through", input: "COMPOUND", expected: "COMPOUND"},
		{name: "lower case input", input: "before each row", expected: "BEFORE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(triggerTiming(tt.input), qt.Equals, tt.expected)
		})
	}
}

func TestTriggerEvents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single event", input: "INSERT", expected: []string{"INSERT"}},
		{name: "two events", input: "INSERT OR UPDATE", expected: []string{"INSERT", "UPDATE"}},
		{name: "three events", input: "INSERT OR UPDATE OR DELETE", expected: []string{"INSERT", "UPDATE", "DELETE"}},
		{name: "lower case input", input: "insert or delete", expected: []string{"INSERT", "DELETE"}},
		{name: "empty", input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(triggerEvents(tt.input), qt.DeepEquals, tt.expected)
		})
	}
}
