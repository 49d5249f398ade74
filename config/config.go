// Package config holds the scan configuration and its per-vendor validation
// rules. A Config describes one target database plus the output and filtering
// options of a run; it carries no open resources.
package config

import (
	"fmt"

	"github.com/schemascan/schemascan/core/platform"
	"github.com/schemascan/schemascan/schema/filter"
)

// ConfigurationError reports an incomplete or inconsistent configuration.
// Validation failures are fatal before any connection is attempted.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// Config describes one scan: the target database, its credentials, and the
// output and filtering options. Vendor-specific fields are ignored by the
// other vendors.
type Config struct {
	Vendor string

	// Connection parameters (common)
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// MSSQL
	TrustedConnection bool
	ConnectionString  string
	Driver            string

	// SQLite
	DatabasePath string

	// Oracle
	ServiceName string
	SID         string

	// Output
	OutputDir string

	// Filtering
	IncludeSchemas []string
	ExcludeSchemas []string
	ObjectTypes    []string

	// Behavior
	DryRun    bool
	Verbosity int
}

// DefaultObjectTypes lists every structural kind plus security, the full set
// a scan extracts when no --object-types filter is given.
var DefaultObjectTypes = []string{
	"tables", "views", "procedures", "functions", "triggers",
	"types", "sequences", "synonyms", "security",
}

// New returns a Config with the vendor and output defaults filled in.
func New() *Config {
	cfg := &Config{
		Vendor:    platform.MSSQL,
		OutputDir: "./schema_docs",
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults normalizes the vendor name and fills the default port,
// excluded schemas and object types where they are unset.
func (c *Config) ApplyDefaults() {
	if normalized := platform.NormalizeVendor(c.Vendor); normalized != "" {
		c.Vendor = normalized
	}
	if c.Port == 0 && c.Host != "" {
		c.Port = platform.DefaultPort(c.Vendor)
	}
	if len(c.ExcludeSchemas) == 0 {
		c.ExcludeSchemas = filter.DefaultExcludedSchemas(c.Vendor)
	}
	if len(c.ObjectTypes) == 0 {
		c.ObjectTypes = append([]string(nil), DefaultObjectTypes...)
	}
	if c.OutputDir == "" {
		c.OutputDir = "./schema_docs"
	}
}

// Validate checks that the configuration is complete for its vendor.
func (c *Config) Validate() error {
	vendor := platform.NormalizeVendor(c.Vendor)
	if vendor == "" {
		return &ConfigurationError{Msg: fmt.Sprintf("unsupported database type %q", c.Vendor)}
	}

	if vendor == platform.SQLite {
		if c.DatabasePath == "" && c.Database == "" {
			return &ConfigurationError{Msg: "database path is required for SQLite"}
		}
		return nil
	}

	// A full MSSQL connection string carries everything itself.
	if vendor == platform.MSSQL && c.ConnectionString != "" {
		return nil
	}

	if c.Host == "" {
		return &ConfigurationError{Msg: "host is required"}
	}
	if c.Database == "" {
		return &ConfigurationError{Msg: "database is required"}
	}

	switch vendor {
	case platform.MSSQL:
		if !c.TrustedConnection && (c.Username == "" || c.Password == "") {
			return &ConfigurationError{Msg: "either trusted_connection or username/password is required for MSSQL"}
		}
	case platform.Oracle:
		if c.ServiceName == "" && c.SID == "" {
			return &ConfigurationError{Msg: "service name or SID is required for Oracle"}
		}
		if c.Username == "" || c.Password == "" {
			return &ConfigurationError{Msg: "username and password are required for Oracle"}
		}
	default:
		if c.Username == "" {
			return &ConfigurationError{Msg: "username is required"}
		}
	}
	return nil
}

// Policy builds the schema filter policy for this configuration.
func (c *Config) Policy() *filter.Policy {
	return filter.NewPolicy(c.Vendor, c.IncludeSchemas, c.ExcludeSchemas, c.ObjectTypes)
}
