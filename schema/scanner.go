package schema

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/core/platform"
	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// Reporter receives a progress callback after each object kind finishes.
// The count is the number of objects of that kind in the final model.
type Reporter interface {
	ObjectsExtracted(kind string, count int)
}

// NopReporter discards all progress callbacks.
type NopReporter struct{}

func (NopReporter) ObjectsExtracted(string, int) {}

// Scanner runs every applicable extractor for one database and assembles the
// unified model. Extraction is single-threaded over one shared connection.
type Scanner struct {
	db       *sql.DB
	vendor   string
	policy   *filter.Policy
	logger   *slog.Logger
	reporter Reporter
}

// NewScanner builds a scanner over an open connection. The caller keeps
// ownership of the connection and closes it after the scan.
func NewScanner(db *sql.DB, vendor string, policy *filter.Policy) *Scanner {
	return &Scanner{
		db:       db,
		vendor:   platform.NormalizeVendor(vendor),
		policy:   policy,
		logger:   slog.Default(),
		reporter: NopReporter{},
	}
}

// WithLogger sets the logger for the scanner
func (s *Scanner) WithLogger(l *slog.Logger) *Scanner {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// WithReporter sets the progress reporter for the scanner
func (s *Scanner) WithReporter(r Reporter) *Scanner {
	tmp := *s
	tmp.reporter = r
	return &tmp
}

// Scan extracts every requested object kind in a fixed order and merges the
// partial results into one Database. Kinds the vendor does not support are
// skipped silently; kinds excluded by the policy are skipped without running
// their extractor.
func (s *Scanner) Scan(databaseName string) (*types.Database, error) {
	registry := extractorsFor(s.vendor, s.db, s.policy, s.logger)
	if registry == nil {
		return nil, fmt.Errorf("unsupported vendor %q", s.vendor)
	}

	db := &types.Database{
		Name:   databaseName,
		DBType: s.vendor,
	}
	if version := ServerVersion(s.db, s.vendor); version != "" {
		db.Version = &version
	}

	for _, kind := range Kinds {
		extractor, ok := registry[kind]
		if !ok {
			continue
		}
		if !s.policy.ShouldExtract(kind) {
			s.logger.Debug("Skipping object kind", "kind", kind)
			continue
		}

		s.logger.Info("Extracting", "kind", kind)
		set, err := extractor.Extract()
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", kind, err)
		}
		s.merge(db, kind, set)
		s.reporter.ObjectsExtracted(kind, kindCount(db, kind))
	}

	return db, nil
}

// merge folds one extractor's partial result into the aggregate. Triggers
// embedded in tables are hoisted onto the database-level trigger list when
// triggers are requested, deduplicated against the standalone extractor's
// results by (schema, name).
func (s *Scanner) merge(db *types.Database, kind string, set *types.ObjectSet) {
	if set == nil {
		return
	}
	switch kind {
	case KindTables:
		db.Tables = append(db.Tables, set.Tables...)
		if s.policy.ShouldExtract(KindTriggers) {
			for _, t := range set.Tables {
				db.Triggers = appendTriggers(db.Triggers, t.Triggers)
			}
		}
	case KindViews:
		db.Views = append(db.Views, set.Views...)
	case KindProcedures:
		db.Procedures = append(db.Procedures, set.Procedures...)
	case KindFunctions:
		db.Functions = append(db.Functions, set.Functions...)
	case KindTriggers:
		db.Triggers = appendTriggers(db.Triggers, set.Triggers)
	case KindTypes:
		db.Types = append(db.Types, set.Types...)
	case KindSequences:
		db.Sequences = append(db.Sequences, set.Sequences...)
	case KindSynonyms:
		db.Synonyms = append(db.Synonyms, set.Synonyms...)
	case KindSecurity:
		db.Users = append(db.Users, set.Users...)
		db.Roles = append(db.Roles, set.Roles...)
		db.Permissions = append(db.Permissions, set.Permissions...)
		db.RoleMemberships = append(db.RoleMemberships, set.RoleMemberships...)
	}
}

// appendTriggers appends triggers that are not already present under the
// same (schema, name).
func appendTriggers(existing, incoming []types.Trigger) []types.Trigger {
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t.FullName()] = true
	}
	for _, t := range incoming {
		if seen[t.FullName()] {
			continue
		}
		seen[t.FullName()] = true
		existing = append(existing, t)
	}
	return existing
}

// kindCount reports the aggregate's object count for one kind; security
// counts every principal and grant row.
func kindCount(db *types.Database, kind string) int {
	switch kind {
	case KindTables:
		return len(db.Tables)
	case KindViews:
		return len(db.Views)
	case KindProcedures:
		return len(db.Procedures)
	case KindFunctions:
		return len(db.Functions)
	case KindTriggers:
		return len(db.Triggers)
	case KindTypes:
		return len(db.Types)
	case KindSequences:
		return len(db.Sequences)
	case KindSynonyms:
		return len(db.Synonyms)
	case KindSecurity:
		return len(db.Users) + len(db.Roles) + len(db.Permissions) + len(db.RoleMemberships)
	}
	return 0
}
