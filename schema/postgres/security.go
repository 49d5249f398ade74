package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// SecurityExtractor reads login roles, group roles, role memberships and the
// permissions encoded in relation and namespace ACLs.
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

	roles, err := e.roles()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found roles", "count", len(roles))

	permissions, err := e.permissions()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found permissions", "count", len(permissions))

	memberships, err := e.roleMemberships()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found role memberships", "count", len(memberships))

	return &types.ObjectSet{
		Users:           users,
		Roles:           roles,
		Permissions:     permissions,
		RoleMemberships: memberships,
	}, nil
}

// users lists roles that can log in. pg_roles does not record creation or
// modification dates.
func (e *SecurityExtractor) users() ([]types.User, error) {
	query := `
		SELECT
			r.rolname AS user_name,
			r.rolcanlogin AS can_login,
			r.rolpassword IS NOT NULL AS has_password
		FROM pg_roles r
		WHERE r.rolcanlogin = true
		ORDER BY r.rolname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var name string
		var canLogin, hasPassword bool
		if err := rows.Scan(&name, &canLogin, &hasPassword); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		authType := "EXTERNAL"
		if hasPassword {
			authType = "PASSWORD"
		}
		users = append(users, types.User{
			Name:               name,
			AuthenticationType: authType,
			IsDisabled:         !canLogin,
		})
	}
	return users, rows.Err()
}

func (e *SecurityExtractor) roles() ([]types.Role, error) {
	query := `
		SELECT
			r.rolname AS role_name,
			CASE
				WHEN r.rolsuper THEN 'SUPERUSER'
				WHEN r.rolcreaterole THEN 'ROLE_ADMIN'
				ELSE 'DATABASE_ROLE'
			END AS role_type,
			NOT r.rolcanlogin AS is_disabled
		FROM pg_roles r
		ORDER BY r.rolname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var r types.Role
		if err := rows.Scan(&r.Name, &r.RoleType, &r.IsDisabled); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (e *SecurityExtractor) permissions() ([]types.Permission, error) {
	// relkind 'r' is a regular table, 'p' a partitioned one.
	tableQuery := `
		SELECT
			n.nspname AS schema_name,
			c.relname AS object_name,
			c.relacl::text AS acl
		FROM pg_class c
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE c.relkind IN ('r', 'p')
		AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		AND c.relacl IS NOT NULL`

	var permissions []types.Permission
	rows, err := e.db.Query(tableQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query table permissions: %w", err)
	}
	for rows.Next() {
		var schemaName, objectName, acl string
		if err := rows.Scan(&schemaName, &objectName, &acl); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table ACL row: %w", err)
		}
		for _, entry := range parseACL(acl) {
			permissions = append(permissions, types.Permission{
				Grantee:      entry.grantee,
				GranteeType:  "ROLE",
				ObjectSchema: schemaName,
				ObjectName:   objectName,
				ObjectType:   "TABLE",
				Permission:   entry.permission,
				State:        "GRANT",
				Grantor:      entry.grantor,
			})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	schemaQuery := `
		SELECT
			n.nspname AS schema_name,
			n.nspacl::text AS acl
		FROM pg_namespace n
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		AND n.nspacl IS NOT NULL`

	rows, err = e.db.Query(schemaQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema permissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var schemaName, acl string
		if err := rows.Scan(&schemaName, &acl); err != nil {
			return nil, fmt.Errorf("failed to scan schema ACL row: %w", err)
		}
		for _, entry := range parseACL(acl) {
			permissions = append(permissions, types.Permission{
				Grantee:      entry.grantee,
				GranteeType:  "ROLE",
				ObjectSchema: schemaName,
				ObjectType:   "SCHEMA",
				Permission:   entry.permission,
				State:        "GRANT",
				Grantor:      entry.grantor,
			})
		}
	}
	return permissions, rows.Err()
}

func (e *SecurityExtractor) roleMemberships() ([]types.RoleMembership, error) {
	query := `
		SELECT
			r.rolname AS role_name,
			m.rolname AS member_name,
			CASE WHEN m.rolcanlogin THEN 'USER' ELSE 'ROLE' END AS member_type
		FROM pg_auth_members am
		JOIN pg_roles m ON am.member = m.oid
		JOIN pg_roles r ON am.roleid = r.oid
		ORDER BY r.rolname, m.rolname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query role memberships: %w", err)
	}
	defer rows.Close()

	var memberships []types.RoleMembership
	for rows.Next() {
		var m types.RoleMembership
		if err := rows.Scan(&m.RoleName, &m.MemberName, &m.MemberType); err != nil {
			return nil, fmt.Errorf("failed to scan role membership row: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

type aclEntry struct {
	grantee    string
	permission string
	grantor    *string
}

// parseACL decodes an aclitem array literal of the form
// {role=perms/grantor,...} into one entry per permission character.
func parseACL(acl string) []aclEntry {
	acl = strings.Trim(acl, "{}")
	if acl == "" {
		return nil
	}

	var entries []aclEntry
	for _, item := range strings.Split(acl, ",") {
		grantee, rest, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		perms, grantorName, hasGrantor := strings.Cut(rest, "/")
		var grantor *string
		if hasGrantor && grantorName != "" {
			g := grantorName
			grantor = &g
		}
		for _, c := range perms {
			name, ok := permissionNames[c]
			if !ok {
				continue
			}
			entries = append(entries, aclEntry{
				grantee:    grantee,
				permission: name,
				grantor:    grantor,
			})
		}
	}
	return entries
}

var permissionNames = map[rune]string{
	'r': "SELECT",
	'w': "UPDATE",
	'a': "INSERT",
	'd': "DELETE",
	'D': "TRUNCATE",
	'x': "REFERENCES",
	't': "TRIGGER",
	'U': "USAGE",
	'C': "CREATE",
	'c': "CONNECT",
	'T': "TEMPORARY",
	'X': "EXECUTE",
}
