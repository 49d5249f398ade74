package schema

import (
	"database/sql"
	"log/slog"

	"github.com/schemascan/schemascan/core/platform"
	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/mssql"
	"github.com/schemascan/schemascan/schema/mysql"
	"github.com/schemascan/schemascan/schema/oracle"
	"github.com/schemascan/schemascan/schema/postgres"
	"github.com/schemascan/schemascan/schema/sqlite"
	"github.com/schemascan/schemascan/schema/types"
)

// Object kinds in extraction order.
const (
	KindTables     = "tables"
	KindViews      = "views"
	KindProcedures = "procedures"
	KindFunctions  = "functions"
	KindTriggers   = "triggers"
	KindTypes      = "types"
	KindSequences  = "sequences"
	KindSynonyms   = "synonyms"
	KindSecurity   = "security"
)

// Kinds lists every object kind in the order the scanner runs them.
var Kinds = []string{
	KindTables, KindViews, KindProcedures, KindFunctions, KindTriggers,
	KindTypes, KindSequences, KindSynonyms, KindSecurity,
}

// Extractor is the contract every (vendor, kind) extractor satisfies. An
// extractor fills only the ObjectSet lists for its kind; the scanner merges
// the partial sets into one Database.
type Extractor interface {
	Extract() (*types.ObjectSet, error)
}

// extractorsFor returns the kind registry for a vendor. A kind missing from
// the map means the vendor has no such object and is skipped silently.
func extractorsFor(vendor string, db *sql.DB, policy *filter.Policy, logger *slog.Logger) map[string]Extractor {
	switch platform.NormalizeVendor(vendor) {
	case platform.MSSQL:
		return map[string]Extractor{
			KindTables:     mssql.NewTableExtractor(db, policy, logger),
			KindViews:      mssql.NewViewExtractor(db, policy, logger),
			KindProcedures: mssql.NewProcedureExtractor(db, policy, logger),
			KindFunctions:  mssql.NewFunctionExtractor(db, policy, logger),
			KindTriggers:   mssql.NewTriggerExtractor(db, policy, logger),
			KindTypes:      mssql.NewTypeExtractor(db, policy, logger),
			KindSequences:  mssql.NewSequenceExtractor(db, policy, logger),
			KindSynonyms:   mssql.NewSynonymExtractor(db, policy, logger),
			KindSecurity:   mssql.NewSecurityExtractor(db, policy, logger),
		}
	case platform.Postgres:
		return map[string]Extractor{
			KindTables:     postgres.NewTableExtractor(db, policy, logger),
			KindViews:      postgres.NewViewExtractor(db, policy, logger),
			KindProcedures: postgres.NewProcedureExtractor(db, policy, logger),
			KindFunctions:  postgres.NewFunctionExtractor(db, policy, logger),
			KindTriggers:   postgres.NewTriggerExtractor(db, policy, logger),
			KindTypes:      postgres.NewTypeExtractor(db, policy, logger),
			KindSequences:  postgres.NewSequenceExtractor(db, policy, logger),
			KindSecurity:   postgres.NewSecurityExtractor(db, policy, logger),
		}
	case platform.MySQL:
		return map[string]Extractor{
			KindTables:     mysql.NewTableExtractor(db, policy, logger),
			KindViews:      mysql.NewViewExtractor(db, policy, logger),
			KindProcedures: mysql.NewProcedureExtractor(db, policy, logger),
			KindFunctions:  mysql.NewFunctionExtractor(db, policy, logger),
			KindTriggers:   mysql.NewTriggerExtractor(db, policy, logger),
			KindSecurity:   mysql.NewSecurityExtractor(db, policy, logger),
		}
	case platform.Oracle:
		return map[string]Extractor{
			KindTables:     oracle.NewTableExtractor(db, policy, logger),
			KindViews:      oracle.NewViewExtractor(db, policy, logger),
			KindProcedures: oracle.NewProcedureExtractor(db, policy, logger),
			KindFunctions:  oracle.NewFunctionExtractor(db, policy, logger),
			KindTriggers:   oracle.NewTriggerExtractor(db, policy, logger),
			KindTypes:      oracle.NewTypeExtractor(db, policy, logger),
			KindSequences:  oracle.NewSequenceExtractor(db, policy, logger),
			KindSynonyms:   oracle.NewSynonymExtractor(db, policy, logger),
		}
	case platform.SQLite:
		return map[string]Extractor{
			KindTables:   sqlite.NewTableExtractor(db, policy, logger),
			KindViews:    sqlite.NewViewExtractor(db, policy, logger),
			KindTriggers: sqlite.NewTriggerExtractor(db, policy, logger),
		}
	default:
		return nil
	}
}
