// Package testconnection implements the test-connection command: verify that
// a database is reachable with the given parameters and report its version.
package testconnection

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/schemascan/schemascan/schema"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify database connectivity without extracting anything",
	Long: `Open a connection with the given parameters, ping the server, and print
its version string. No schema objects are read.`,
	RunE: runTestConnection,
}

const (
	dbTypeFlag           = "db-type"
	hostFlag             = "host"
	portFlag             = "port"
	databaseFlag         = "database"
	userFlag             = "user"
	passwordFlag         = "password"
	connectionStringFlag = "connection-string"
	databasePathFlag     = "database-path"
	serviceNameFlag      = "service-name"
	sidFlag              = "sid"
)

var connectionFlags = map[string]cobraflags.Flag{
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
	connectionStringFlag: &cobraflags.StringFlag{
		Name:  connectionStringFlag,
		Value: "",
		Usage: "Full connection string (MSSQL)",
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
}

func NewTestConnectionCommand() *cobra.Command {
	cobraflags.RegisterMap(testConnectionCmd, connectionFlags)
	return testConnectionCmd
}

func runTestConnection(_ *cobra.Command, _ []string) error {
	vendor := connectionFlags[dbTypeFlag].GetString()

	db, err := schema.Connect(schema.ConnectOptions{
		Vendor:           vendor,
		Host:             connectionFlags[hostFlag].GetString(),
		Port:             connectionFlags[portFlag].GetInt(),
		Database:         connectionFlags[databaseFlag].GetString(),
		Username:         connectionFlags[userFlag].GetString(),
		Password:         connectionFlags[passwordFlag].GetString(),
		ConnectionString: connectionFlags[connectionStringFlag].GetString(),
		DatabasePath:     connectionFlags[databasePathFlag].GetString(),
		ServiceName:      connectionFlags[serviceNameFlag].GetString(),
		SID:              connectionFlags[sidFlag].GetString(),
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Connection successful.")
	if version := schema.ServerVersion(db, vendor); version != "" {
		fmt.Printf("Server version: %s\n", version)
	}
	return nil
}
