package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// SecurityExtractor reads users, roles, permissions and role memberships from
// the mysql.* grant tables. Requires SELECT on the mysql schema; roles and
// role_edges only exist on MySQL 8+, so those queries degrade to empty
// results on older servers.
type SecurityExtractor struct {
	base
}

func NewSecurityExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *SecurityExtractor {
	return &SecurityExtractor{base: newBase(db, policy, logger)}
}

func (e *SecurityExtractor) Extract() (*types.ObjectSet, error) {
	users, err := e.users()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found users", "count", len(users))

	roles := e.roles()
	e.logger.Info("Found roles", "count", len(roles))

	permissions, err := e.permissions()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found permissions", "count", len(permissions))

	memberships := e.roleMemberships()

	return &types.ObjectSet{
		Users:           users,
		Roles:           roles,
		Permissions:     permissions,
		RoleMemberships: memberships,
	}, nil
}

func (e *SecurityExtractor) users() ([]types.User, error) {
	query := `
		SELECT
			user, host,
			plugin AS auth_plugin,
			account_locked = 'Y' AS is_disabled,
			CAST(password_last_changed AS CHAR) AS modify_date
		FROM mysql.user
		WHERE user NOT LIKE 'mysql.%'
		ORDER BY user, host`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var user, host string
		var plugin, modifyDate sql.NullString
		var isDisabled bool
		if err := rows.Scan(&user, &host, &plugin, &isDisabled, &modifyDate); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		authType := "UNKNOWN"
		if plugin.Valid && plugin.String != "" {
			authType = plugin.String
		}
		users = append(users, types.User{
			Name:               accountName(user, host),
			AuthenticationType: authType,
			IsDisabled:         isDisabled,
			ModifyDate:         strOrNil(modifyDate),
		})
	}
	return users, rows.Err()
}

// roles lists role accounts. MySQL models roles as locked accounts, so the
// listing is a heuristic: locked accounts plus the mysql.% built-ins.
func (e *SecurityExtractor) roles() []types.Role {
	query := `
		SELECT
			user, host,
			user LIKE 'mysql.%' AS is_builtin
		FROM mysql.user
		WHERE account_locked = 'Y' OR user LIKE 'mysql.%'
		ORDER BY user, host`

	rows, err := e.db.Query(query)
	if err != nil {
		e.logger.Debug("Roles not available", "error", err)
		return nil
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var user, host string
		var isBuiltin bool
		if err := rows.Scan(&user, &host, &isBuiltin); err != nil {
			return nil
		}
		roleType := "DATABASE_ROLE"
		if isBuiltin {
			roleType = "BUILTIN_ROLE"
		}
		roles = append(roles, types.Role{
			Name:     accountName(user, host),
			RoleType: roleType,
		})
	}
	return roles
}

// databasePrivColumns maps mysql.db privilege flag columns to permission
// names.
var databasePrivColumns = []struct {
	column     string
	permission string
}{
	{"Select_priv", "SELECT"},
	{"Insert_priv", "INSERT"},
	{"Update_priv", "UPDATE"},
	{"Delete_priv", "DELETE"},
	{"Create_priv", "CREATE"},
	{"Drop_priv", "DROP"},
	{"Grant_priv", "GRANT OPTION"},
	{"References_priv", "REFERENCES"},
	{"Index_priv", "INDEX"},
	{"Alter_priv", "ALTER"},
}

func (e *SecurityExtractor) permissions() ([]types.Permission, error) {
	permissions, err := e.databasePermissions()
	if err != nil {
		return nil, err
	}
	tablePerms, err := e.tablePermissions()
	if err != nil {
		return nil, err
	}
	return append(permissions, tablePerms...), nil
}

func (e *SecurityExtractor) databasePermissions() ([]types.Permission, error) {
	cols := make([]string, 0, len(databasePrivColumns))
	for _, pc := range databasePrivColumns {
		cols = append(cols, pc.column+" = 'Y'")
	}
	query := "SELECT db, user, host, " + strings.Join(cols, ", ") +
		" FROM mysql.db ORDER BY db, user, host"

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query database permissions: %w", err)
	}
	defer rows.Close()

	var permissions []types.Permission
	for rows.Next() {
		var db, user, host string
		flags := make([]bool, len(databasePrivColumns))
		dest := []any{&db, &user, &host}
		for i := range flags {
			dest = append(dest, &flags[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan database permission row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(db) {
			continue
		}
		for i, granted := range flags {
			if !granted {
				continue
			}
			permissions = append(permissions, types.Permission{
				Grantee:      accountName(user, host),
				GranteeType:  "USER",
				ObjectSchema: db,
				ObjectType:   "DATABASE",
				Permission:   databasePrivColumns[i].permission,
				State:        "GRANT",
			})
		}
	}
	return permissions, rows.Err()
}

func (e *SecurityExtractor) tablePermissions() ([]types.Permission, error) {
	query := `
		SELECT db, table_name, user, host, grantor, CAST(table_priv AS CHAR) AS privs
		FROM mysql.tables_priv
		ORDER BY db, table_name, user, host`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table permissions: %w", err)
	}
	defer rows.Close()

	var permissions []types.Permission
	for rows.Next() {
		var db, tableName, user, host, privs string
		var grantor sql.NullString
		if err := rows.Scan(&db, &tableName, &user, &host, &grantor, &privs); err != nil {
			return nil, fmt.Errorf("failed to scan table permission row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(db) {
			continue
		}
		for _, priv := range splitPrivileges(privs) {
			permissions = append(permissions, types.Permission{
				Grantee:      accountName(user, host),
				GranteeType:  "USER",
				ObjectSchema: db,
				ObjectName:   tableName,
				ObjectType:   "TABLE",
				Permission:   priv,
				State:        "GRANT",
				Grantor:      strOrNil(grantor),
			})
		}
	}
	return permissions, rows.Err()
}

func (e *SecurityExtractor) roleMemberships() []types.RoleMembership {
	query := `
		SELECT from_user, from_host, to_user, to_host
		FROM mysql.role_edges
		ORDER BY to_user, from_user`

	rows, err := e.db.Query(query)
	if err != nil {
		e.logger.Debug("Role memberships not available", "error", err)
		return nil
	}
	defer rows.Close()

	var memberships []types.RoleMembership
	for rows.Next() {
		var fromUser, fromHost, toUser, toHost string
		if err := rows.Scan(&fromUser, &fromHost, &toUser, &toHost); err != nil {
			return nil
		}
		memberships = append(memberships, types.RoleMembership{
			RoleName:   accountName(toUser, toHost),
			MemberName: accountName(fromUser, fromHost),
			MemberType: "USER",
		})
	}
	return memberships
}

// accountName renders a MySQL account as the familiar user@host string.
func accountName(user, host string) string {
	return user + "@" + host
}

// splitPrivileges splits a SET-typed privilege list like "Select,Insert" into
// upper-cased permission names.
func splitPrivileges(privs string) []string {
	var out []string
	for _, p := range strings.Split(privs, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p))
	}
	return out
}
