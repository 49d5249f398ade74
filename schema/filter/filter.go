// Package filter decides which schemas and object kinds an extraction run
// touches. Every extractor applies the same policy to its top-level object
// listing, so an excluded schema never appears in any object list.
package filter

import (
	"github.com/schemascan/schemascan/core/platform"
)

// Policy holds the schema and object-kind filters for one extraction run.
// An explicit include list takes precedence over the exclude list.
type Policy struct {
	IncludeSchemas []string
	ExcludeSchemas []string
	ObjectTypes    []string
}

// NewPolicy builds a policy for the given vendor. When no exclude list is
// given, the vendor's built-in system schemas are excluded. When no object
// types are given, every kind is extracted.
func NewPolicy(vendor string, includeSchemas, excludeSchemas, objectTypes []string) *Policy {
	if len(excludeSchemas) == 0 {
		excludeSchemas = DefaultExcludedSchemas(vendor)
	}
	if len(objectTypes) == 0 {
		objectTypes = []string{"all"}
	}
	return &Policy{
		IncludeSchemas: includeSchemas,
		ExcludeSchemas: excludeSchemas,
		ObjectTypes:    objectTypes,
	}
}

// ShouldIncludeSchema reports whether objects in the named schema are
// extracted. With a non-empty include list only exact-match names pass;
// otherwise every name not on the exclude list passes.
func (p *Policy) ShouldIncludeSchema(name string) bool {
	if len(p.IncludeSchemas) > 0 {
		for _, s := range p.IncludeSchemas {
			if s == name {
				return true
			}
		}
		return false
	}
	for _, s := range p.ExcludeSchemas {
		if s == name {
			return false
		}
	}
	return true
}

// ShouldExtract reports whether the given object kind is requested.
func (p *Policy) ShouldExtract(objectType string) bool {
	for _, t := range p.ObjectTypes {
		if t == "all" || t == objectType {
			return true
		}
	}
	return false
}

// DefaultExcludedSchemas returns the built-in catalog and system schemas for
// a vendor. SQLite has no schema namespace worth excluding.
func DefaultExcludedSchemas(vendor string) []string {
	switch vendor {
	case platform.MSSQL:
		return []string{"sys", "INFORMATION_SCHEMA", "guest"}
	case platform.Postgres:
		return []string{"pg_catalog", "information_schema", "pg_toast"}
	case platform.MySQL:
		return []string{"information_schema", "performance_schema", "mysql", "sys"}
	case platform.Oracle:
		return []string{
			"SYS", "SYSTEM", "OUTLN", "DIP", "ORACLE_OCM", "DBSNMP",
			"APPQOSSYS", "WMSYS", "EXFSYS", "CTXSYS", "XDB", "ORDDATA",
			"ORDSYS", "MDSYS", "OLAPSYS", "ANONYMOUS", "FLOWS_FILES",
		}
	default:
		return nil
	}
}
