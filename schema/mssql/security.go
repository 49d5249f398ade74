package mssql

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// SecurityExtractor reads the database principals: users, roles, object
// permissions and role memberships.
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

func (e *SecurityExtractor) users() ([]types.User, error) {
	// S = SQL user, U = Windows user, G = Windows group, E = external user.
	query := `
		SELECT
			u.name AS user_name,
			u.type_desc AS user_type,
			u.is_disabled,
			u.default_schema_name,
			CONVERT(VARCHAR(19), u.create_date, 120) AS create_date,
			CONVERT(VARCHAR(19), u.modify_date, 120) AS modify_date
		FROM sys.database_principals u
		WHERE u.type IN ('S', 'U', 'G', 'E')
		ORDER BY u.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		var defaultSchema, createDate, modifyDate sql.NullString
		if err := rows.Scan(&u.Name, &u.AuthenticationType, &u.IsDisabled, &defaultSchema, &createDate, &modifyDate); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.DefaultSchema = strOrNil(defaultSchema)
		u.CreateDate = strOrNil(createDate)
		u.ModifyDate = strOrNil(modifyDate)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (e *SecurityExtractor) roles() ([]types.Role, error) {
	query := `
		SELECT
			r.name AS role_name,
			r.type_desc AS role_type,
			r.is_disabled,
			CONVERT(VARCHAR(19), r.create_date, 120) AS create_date,
			CONVERT(VARCHAR(19), r.modify_date, 120) AS modify_date
		FROM sys.database_principals r
		WHERE r.type = 'R'
		ORDER BY r.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var r types.Role
		var createDate, modifyDate sql.NullString
		if err := rows.Scan(&r.Name, &r.RoleType, &r.IsDisabled, &createDate, &modifyDate); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		r.CreateDate = strOrNil(createDate)
		r.ModifyDate = strOrNil(modifyDate)
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (e *SecurityExtractor) permissions() ([]types.Permission, error) {
	// class = 1 restricts to object-level permissions.
	query := `
		SELECT
			dp.name AS grantee_name,
			dp.type_desc AS grantee_type,
			s.name AS object_schema,
			o.name AS object_name,
			o.type_desc AS object_type,
			p.permission_name,
			p.state_desc AS state,
			gp.name AS grantor_name
		FROM sys.database_permissions p
		JOIN sys.database_principals dp ON p.grantee_principal_id = dp.principal_id
		JOIN sys.objects o ON p.major_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		LEFT JOIN sys.database_principals gp ON p.grantor_principal_id = gp.principal_id
		WHERE p.class = 1
		ORDER BY s.name, o.name, dp.name, p.permission_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var permissions []types.Permission
	for rows.Next() {
		var p types.Permission
		var grantor sql.NullString
		err := rows.Scan(&p.Grantee, &p.GranteeType, &p.ObjectSchema, &p.ObjectName,
			&p.ObjectType, &p.Permission, &p.State, &grantor)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		p.Grantor = strOrNil(grantor)
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

func (e *SecurityExtractor) roleMemberships() ([]types.RoleMembership, error) {
	query := `
		SELECT
			r.name AS role_name,
			m.name AS member_name,
			m.type_desc AS member_type
		FROM sys.database_role_members rm
		JOIN sys.database_principals r ON rm.role_principal_id = r.principal_id
		JOIN sys.database_principals m ON rm.member_principal_id = m.principal_id
		ORDER BY r.name, m.name`

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
