package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemascan/schemascan/cmd/scan"
	"github.com/schemascan/schemascan/cmd/testconnection"
)

var rootCmd = &cobra.Command{
	Use:   "schemascan",
	Short: "Database schema documentation generator",
	Long: `schemascan connects to a database, extracts its schema objects, and writes
a tree of cross-linked markdown documents describing tables, views, routines,
triggers, types, sequences, synonyms and security principals.

Supported databases: MSSQL, PostgreSQL, MySQL, Oracle, SQLite.`,
}

func main() {
	rootCmd.AddCommand(scan.NewScanCommand())
	rootCmd.AddCommand(testconnection.NewTestConnectionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
