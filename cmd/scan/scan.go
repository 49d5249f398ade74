// Package scan implements the scan command: connect to a database, extract
// its schema, and render the markdown documentation tree.
package scan

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schemascan/schemascan/config"
	"github.com/schemascan/schemascan/core/platform"
	"github.com/schemascan/schemascan/renderer/markdown"
	"github.com/schemascan/schemascan/schema"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Extract a database schema and write markdown documentation",
	Long: `Connect to a database, extract its schema objects, and write a tree of
cross-linked markdown documents.

Connection parameters can also come from the environment: DB_HOST, DB_PORT,
DB_NAME, DB_USER, DB_PASSWORD and DB_CONNECTION_STRING. Flags take precedence.

Examples:
  schemascan scan --db-type postgres --host localhost --database app --user scan
  schemascan scan --db-type sqlite --database-path ./app.db
  schemascan scan --db-type mssql --connection-string "sqlserver://..." --dry-run`,
	RunE: runScan,
}

const (
	dbTypeFlag            = "db-type"
	hostFlag              = "host"
	portFlag              = "port"
	databaseFlag          = "database"
	userFlag              = "user"
	passwordFlag          = "password"
	trustedConnectionFlag = "trusted-connection"
	connectionStringFlag  = "connection-string"
	databasePathFlag      = "database-path"
	serviceNameFlag       = "service-name"
	sidFlag               = "sid"
	outputDirFlag         = "output-dir"
	includeSchemasFlag    = "include-schemas"
	excludeSchemasFlag    = "exclude-schemas"
	objectTypesFlag       = "object-types"
	dryRunFlag            = "dry-run"
	verboseFlag           = "verbose"
)

var scanFlags = map[string]cobraflags.Flag{
	dbTypeFlag: &cobraflags.StringFlag{
		Name:  dbTypeFlag,
		Value: "mssql",
		Usage: "Database type (mssql, postgres, mysql, oracle, sqlite)",
	},
	hostFlag: &cobraflags.StringFlag{
		Name:  hostFlag,
		Value: "",
		Usage: "Database server host",
	},
	portFlag: &cobraflags.IntFlag{
		Name:  portFlag,
		Value: 0,
		Usage: "Database server port (0 uses the vendor default)",
	},
	databaseFlag: &cobraflags.StringFlag{
		Name:  databaseFlag,
		Value: "",
		Usage: "Database name",
	},
	userFlag: &cobraflags.StringFlag{
		Name:  userFlag,
		Value: "",
		Usage: "Database user",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Database password",
	},
	trustedConnectionFlag: &cobraflags.BoolFlag{
		Name:  trustedConnectionFlag,
		Value: false,
		Usage: "Use Windows integrated authentication (MSSQL)",
	},
	connectionStringFlag: &cobraflags.StringFlag{
		Name:  connectionStringFlag,
		Value: "",
		Usage: "Full connection string (MSSQL); overrides the individual connection flags",
	},
	databasePathFlag: &cobraflags.StringFlag{
		Name:  databasePathFlag,
		Value: "",
		Usage: "Database file path (SQLite)",
	},
	serviceNameFlag: &cobraflags.StringFlag{
		Name:  serviceNameFlag,
		Value: "",
		Usage: "Service name (Oracle)",
	},
	sidFlag: &cobraflags.StringFlag{
		Name:  sidFlag,
		Value: "",
		Usage: "SID (Oracle, used when no service name is given)",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: "./schema_docs",
		Usage: "Directory where documentation is written",
	},
	includeSchemasFlag: &cobraflags.StringFlag{
		Name:  includeSchemasFlag,
		Value: "",
		Usage: "Comma-separated schemas to include (empty includes all non-system schemas)",
	},
	excludeSchemasFlag: &cobraflags.StringFlag{
		Name:  excludeSchemasFlag,
		Value: "",
		Usage: "Comma-separated schemas to exclude (empty uses the vendor defaults)",
	},
	objectTypesFlag: &cobraflags.StringFlag{
		Name:  objectTypesFlag,
		Value: "",
		Usage: "Comma-separated object kinds to extract (empty extracts everything)",
	},
	dryRunFlag: &cobraflags.BoolFlag{
		Name:  dryRunFlag,
		Value: false,
		Usage: "List the files that would be written without writing them",
	},
	verboseFlag: &cobraflags.BoolFlag{
		Name:  verboseFlag,
		Value: false,
		Usage: "Enable debug logging",
	},
}

func NewScanCommand() *cobra.Command {
	cobraflags.RegisterMap(scanCmd, scanFlags)
	return scanCmd
}

// configFromFlags merges flags over the DB_* environment variables.
func configFromFlags() *config.Config {
	env := viper.New()
	env.SetEnvPrefix("DB")
	env.AutomaticEnv()

	stringOr := func(flag, envKey string) string {
		if v := scanFlags[flag].GetString(); v != "" {
			return v
		}
		return env.GetString(envKey)
	}

	cfg := &config.Config{
		Vendor:            scanFlags[dbTypeFlag].GetString(),
		Host:              stringOr(hostFlag, "host"),
		Port:              scanFlags[portFlag].GetInt(),
		Database:          stringOr(databaseFlag, "name"),
		Username:          stringOr(userFlag, "user"),
		Password:          stringOr(passwordFlag, "password"),
		TrustedConnection: scanFlags[trustedConnectionFlag].GetBool(),
		ConnectionString:  stringOr(connectionStringFlag, "connection_string"),
		DatabasePath:      scanFlags[databasePathFlag].GetString(),
		ServiceName:       scanFlags[serviceNameFlag].GetString(),
		SID:               scanFlags[sidFlag].GetString(),
		OutputDir:         scanFlags[outputDirFlag].GetString(),
		IncludeSchemas:    splitList(scanFlags[includeSchemasFlag].GetString()),
		ExcludeSchemas:    splitList(scanFlags[excludeSchemasFlag].GetString()),
		ObjectTypes:       splitList(scanFlags[objectTypesFlag].GetString()),
		DryRun:            scanFlags[dryRunFlag].GetBool(),
	}
	if cfg.Port == 0 {
		cfg.Port = env.GetInt("port")
	}
	cfg.ApplyDefaults()
	return cfg
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// printReporter echoes per-kind extraction counts to stdout.
type printReporter struct{}

func (printReporter) ObjectsExtracted(kind string, count int) {
	fmt.Printf("  %s: %d\n", kind, count)
}

func runScan(_ *cobra.Command, _ []string) error {
	cfg := configFromFlags()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(scanFlags[verboseFlag].GetBool())

	db, err := schema.Connect(schema.ConnectOptions{
		Vendor:            cfg.Vendor,
		Host:              cfg.Host,
		Port:              cfg.Port,
		Database:          cfg.Database,
		Username:          cfg.Username,
		Password:          cfg.Password,
		TrustedConnection: cfg.TrustedConnection,
		ConnectionString:  cfg.ConnectionString,
		DatabasePath:      cfg.DatabasePath,
		ServiceName:       cfg.ServiceName,
		SID:               cfg.SID,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Scanning %s database: %s\n", cfg.Vendor, databaseName(cfg))
	fmt.Println()

	scanner := schema.NewScanner(db, cfg.Vendor, cfg.Policy()).
		WithLogger(logger).
		WithReporter(printReporter{})
	model, err := scanner.Scan(databaseName(cfg))
	if err != nil {
		return err
	}

	outputDir := filepath.Join(cfg.OutputDir, sanitizeName(model.Name))
	files, err := markdown.NewGenerator(outputDir, cfg.DryRun).
		WithLogger(logger).
		Generate(model)
	if err != nil {
		return err
	}

	fmt.Println()
	if cfg.DryRun {
		fmt.Printf("Dry run: %d files would be written to %s\n", len(files), outputDir)
		return nil
	}
	fmt.Printf("Wrote %d files to %s\n", len(files), outputDir)
	return nil
}

// databaseName is the display and directory name of the scanned database.
// SQLite databases are named after their file.
func databaseName(cfg *config.Config) string {
	if cfg.Database != "" {
		if cfg.Vendor == platform.SQLite {
			base := filepath.Base(cfg.Database)
			return strings.TrimSuffix(base, filepath.Ext(base))
		}
		return cfg.Database
	}
	if cfg.DatabasePath != "" {
		base := filepath.Base(cfg.DatabasePath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "database"
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeName makes a database name safe to use as a directory name.
func sanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
