// Package sqlite extracts schema metadata from SQLite via sqlite_master and
// the table pragmas. SQLite has a single schema, so every object reports the
// "main" schema and the filter policy does not apply.
package sqlite

import (
	"database/sql"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
)

const mainSchema = "main"

// base carries the shared state of every SQLite extractor.
type base struct {
	db     *sql.DB
	policy *filter.Policy
	logger *slog.Logger
}

func newBase(db *sql.DB, policy *filter.Policy, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{db: db, policy: policy, logger: logger}
}

// typeSpec matches declared types like VARCHAR(255) or DECIMAL(10, 2).
var typeSpec = regexp.MustCompile(`^(\w+)\((\d+)(?:,\s*(\d+))?\)`)

// parseDeclaredType splits a declared column type into its base name and
// length or precision/scale. A missing declaration defaults to TEXT.
func parseDeclaredType(declared string) (dataType string, maxLength, precision, scale *int) {
	dataType = strings.ToUpper(strings.TrimSpace(declared))
	if dataType == "" {
		return "TEXT", nil, nil, nil
	}
	m := typeSpec.FindStringSubmatch(dataType)
	if m == nil {
		return dataType, nil, nil, nil
	}
	dataType = m[1]
	first, _ := strconv.Atoi(m[2])
	if m[3] != "" {
		second, _ := strconv.Atoi(m[3])
		return dataType, nil, &first, &second
	}
	return dataType, &first, nil, nil
}

// parseTriggerClauses recovers the timing and events of a trigger from its
// CREATE TRIGGER text, since SQLite stores triggers only as SQL.
func parseTriggerClauses(createSQL string) (timing string, events []string) {
	upper := strings.ToUpper(createSQL)
	switch {
	case strings.Contains(upper, "INSTEAD OF"):
		timing = "INSTEAD OF"
	case strings.Contains(upper, "BEFORE"):
		timing = "BEFORE"
	default:
		timing = "AFTER"
	}
	for _, event := range []string{"INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(upper, event) {
			events = append(events, event)
		}
	}
	return timing, events
}

func strOrNil(v sql.NullString) *string {
	if v.Valid {
		return &v.String
	}
	return nil
}
