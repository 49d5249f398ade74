package postgres

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseACL(t *testing.T) {
	tests := []struct {
		name     string
		acl      string
		expected []string
	}{
		{
			name:     "empty string",
			acl:      "",
			expected: nil,
		},
		{
			name:     "empty braces",
			acl:      "{}",
			expected: nil,
		},
		{
			name:     "single grant with grantor",
			acl:      "{app=r/owner}",
			expected: []string{"app SELECT by owner"},
		},
		{
			name: "multiple permission characters expand",
			acl:  "{app=arwd/owner}",
			expected: []string{
				"app INSERT by owner",
				"app SELECT by owner",
				"app UPDATE by owner",
				"app DELETE by owner",
			},
		},
		{
			name: "multiple entries",
			acl:  "{owner=arwdDxt/owner,reporting=r/owner}",
			expected: []string{
				"owner INSERT by owner",
				"owner SELECT by owner",
				"owner UPDATE by owner",
				"owner DELETE by owner",
				"owner TRUNCATE by owner",
				"owner REFERENCES by owner",
				"owner TRIGGER by owner",
				"reporting SELECT by owner",
			},
		},
		{
			name:     "no grantor",
			acl:      "{app=X}",
			expected: []string{"app EXECUTE"},
		},
		{
			name:     "public grant has empty grantee",
			acl:      "{=U/owner}",
			expected: []string{" USAGE by owner"},
		},
		{
			name:     "unknown permission characters are skipped",
			acl:      "{app=*/owner}",
			expected: nil,
		},
		{
			name:     "malformed entry without equals is skipped",
			acl:      "{garbage}",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			var result []string
			for _, entry := range parseACL(tt.acl) {
				s := fmt.Sprintf("%s %s", entry.grantee, entry.permission)
				if entry.grantor != nil {
					s += " by " + *entry.grantor
				}
				result = append(result, s)
			}
			c.Assert(result, qt.DeepEquals, tt.expected)
		})
	}
}
