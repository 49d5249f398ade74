// Package oracle extracts schema metadata from Oracle via the ALL_* data
// dictionary views, using :N bind placeholders. Oracle-supplied schemas are
// excluded up front so the dictionary scans stay cheap on shared instances.
package oracle

import (
	"database/sql"
	"log/slog"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
)

// systemSchemas is the NOT IN list of Oracle-supplied accounts shared by
// every dictionary query.
const systemSchemas = `('SYS', 'SYSTEM', 'OUTLN', 'DIP', 'ORACLE_OCM',
		'DBSNMP', 'APPQOSSYS', 'WMSYS', 'EXFSYS', 'CTXSYS',
		'XDB', 'ORDDATA', 'ORDSYS', 'MDSYS', 'OLAPSYS')`

// base carries the shared state of every Oracle extractor.
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

// tableComment reads the ALL_TAB_COMMENTS entry for a table or view.
func (b base) tableComment(schemaName, objectName string) *string {
	query := `SELECT comments FROM all_tab_comments WHERE owner = :1 AND table_name = :2`
	var comment sql.NullString
	if err := b.db.QueryRow(query, schemaName, objectName).Scan(&comment); err != nil {
		return nil
	}
	return strOrNil(comment)
}

// triggerTiming reduces Oracle's compound trigger_type values (such as
// "BEFORE EACH ROW" or "AFTER STATEMENT") to the timing keyword.
func triggerTiming(triggerType string) string {
	upper := strings.ToUpper(triggerType)
	switch {
	case strings.Contains(upper, "INSTEAD OF"):
		return "INSTEAD OF"
	case strings.Contains(upper, "BEFORE"):
		return "BEFORE"
	case strings.Contains(upper, "AFTER"):
		return "AFTER"
	}
	return triggerType
}

// triggerEvents splits a triggering_event value like "INSERT OR UPDATE" into
// upper-cased event names.
func triggerEvents(events string) []string {
	var out []string
	for _, e := range strings.Split(strings.ToUpper(events), " OR ") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func strOrNil(v sql.NullString) *string {
	if v.Valid {
		return &v.String
	}
	return nil
}

func intOrNil(v sql.NullInt64) *int {
	if v.Valid {
		i := int(v.Int64)
		return &i
	}
	return nil
}

func int64OrNil(v sql.NullInt64) *int64 {
	if v.Valid {
		return &v.Int64
	}
	return nil
}
