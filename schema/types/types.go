// Package types defines the vendor-neutral schema model that every backend
// extractor populates. Entities are plain data; the only behavior is derived
// display formatting (full type strings, qualified names).
package types

// Column represents a table or view column
type Column struct {
	Name               string  `json:"name"`
	DataType           string  `json:"data_type"` // vendor-native type name, not normalized
	MaxLength          *int    `json:"max_length"`
	Precision          *int    `json:"precision"`
	Scale              *int    `json:"scale"`
	IsNullable         bool    `json:"is_nullable"`
	DefaultValue       *string `json:"default_value"`
	IsIdentity         bool    `json:"is_identity"`
	IdentitySeed       *int64  `json:"identity_seed"`
	IdentityIncrement  *int64  `json:"identity_increment"`
	IsComputed         bool    `json:"is_computed"`
	ComputedDefinition *string `json:"computed_definition"`
	Collation          *string `json:"collation"`
	Description        *string `json:"description"`
	OrdinalPosition    int     `json:"ordinal_position"` // 1-based, per vendor ordering
}

// FullType renders the display type including length or precision.
// Double-byte "n"-prefixed types report their catalog length in bytes, so the
// displayed length is halved; unbounded character types (max_length -1)
// render as "(max)". Fractional-second temporal types render their scale
// unless it equals the vendor default of 7.
func (c Column) FullType() string {
	switch c.DataType {
	case "datetime2", "datetimeoffset", "time":
		return temporalType(c.DataType, c.Scale)
	}
	return fullType(c.DataType, c.MaxLength, c.Precision, c.Scale)
}

// PrimaryKey represents a primary key constraint
type PrimaryKey struct {
	Name        string   `json:"name"`
	Columns     []string `json:"columns"`
	IsClustered bool     `json:"is_clustered"`
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	ReferencedSchema  string   `json:"referenced_schema"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
	OnDelete          string   `json:"on_delete"` // normalized display string, e.g. "NO ACTION"
	OnUpdate          string   `json:"on_update"`
}

// Index represents an index
type Index struct {
	Name             string   `json:"name"`
	Columns          []string `json:"columns"`
	IsUnique         bool     `json:"is_unique"`
	IsClustered      bool     `json:"is_clustered"`
	IsPrimaryKey     bool     `json:"is_primary_key"`
	IncludedColumns  []string `json:"included_columns"`
	FilterDefinition *string  `json:"filter_definition"` // partial-index predicate
	IndexType        string   `json:"index_type"`        // vendor access method, e.g. BTREE/CLUSTERED
}

// CheckConstraint represents a check constraint
type CheckConstraint struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// UniqueConstraint represents a unique constraint
type UniqueConstraint struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// TableReference identifies a foreign key in another table that points at
// this table. Populated only by the cross-reference pass.
type TableReference struct {
	SchemaName string `json:"schema_name"`
	TableName  string `json:"table_name"`
	ForeignKey string `json:"foreign_key"`
}

// Partition represents one physical partition of a partitioned table
type Partition struct {
	Number        int     `json:"number"`
	BoundaryValue *string `json:"boundary_value"` // nil for the unbounded final partition
	Filegroup     *string `json:"filegroup"`      // MSSQL
	Tablespace    *string `json:"tablespace"`     // Oracle
	RowCount      int64   `json:"row_count"`
	Compression   *string `json:"compression"`
}

// PartitionScheme describes how a table is partitioned
type PartitionScheme struct {
	Name          string      `json:"name"`
	FunctionName  string      `json:"function_name"` // MSSQL partition function
	Column        string      `json:"column"`
	PartitionType string      `json:"partition_type"` // RANGE, LIST, HASH, INHERITANCE
	BoundaryType  string      `json:"boundary_type"`  // LEFT or RIGHT (MSSQL)
	Partitions    []Partition `json:"partitions"`
}

// TablePartitioning carries the partitioning state of a table
type TablePartitioning struct {
	IsPartitioned bool             `json:"is_partitioned"`
	Scheme        *PartitionScheme `json:"scheme"`
}

// Table represents a database table
type Table struct {
	SchemaName        string             `json:"schema_name"`
	Name              string             `json:"name"`
	Columns           []Column           `json:"columns"`
	PrimaryKey        *PrimaryKey        `json:"primary_key"`
	ForeignKeys       []ForeignKey       `json:"foreign_keys"`
	Indexes           []Index            `json:"indexes"`
	CheckConstraints  []CheckConstraint  `json:"check_constraints"`
	UniqueConstraints []UniqueConstraint `json:"unique_constraints"`
	Triggers          []Trigger          `json:"triggers"`
	Partitioning      *TablePartitioning `json:"partitioning"`
	Description       *string            `json:"description"`
	RowCount          int64              `json:"row_count"`
	TotalSpaceKB      int64              `json:"total_space_kb"`
	UsedSpaceKB       int64              `json:"used_space_kb"`
	// ReferencedBy is filled by the cross-reference pass after every table
	// has been extracted; it is empty before that pass runs.
	ReferencedBy []TableReference `json:"referenced_by"`
}

// FullName returns the schema-qualified table name.
func (t Table) FullName() string {
	return t.SchemaName + "." + t.Name
}

// View represents a database view
type View struct {
	SchemaName     string   `json:"schema_name"`
	Name           string   `json:"name"`
	Columns        []Column `json:"columns"`
	Definition     *string  `json:"definition"` // opaque SQL text, never parsed
	Description    *string  `json:"description"`
	IsMaterialized bool     `json:"is_materialized"`
	BaseTables     []string `json:"base_tables"` // best-effort dependency list
}

// FullName returns the schema-qualified view name.
func (v View) FullName() string {
	return v.SchemaName + "." + v.Name
}

// Parameter represents a stored procedure or function parameter
type Parameter struct {
	Name            string  `json:"name"`
	DataType        string  `json:"data_type"`
	MaxLength       *int    `json:"max_length"`
	Precision       *int    `json:"precision"`
	Scale           *int    `json:"scale"`
	IsOutput        bool    `json:"is_output"`
	HasDefault      bool    `json:"has_default"`
	DefaultValue    *string `json:"default_value"`
	OrdinalPosition int     `json:"ordinal_position"`
}

// FullType renders the display type including length or precision.
func (p Parameter) FullType() string {
	return fullType(p.DataType, p.MaxLength, p.Precision, p.Scale)
}

// Procedure represents a stored procedure
type Procedure struct {
	SchemaName  string      `json:"schema_name"`
	Name        string      `json:"name"`
	Parameters  []Parameter `json:"parameters"`
	Definition  *string     `json:"definition"`
	Description *string     `json:"description"`
	Language    string      `json:"language"`
}

// FullName returns the schema-qualified procedure name.
func (p Procedure) FullName() string {
	return p.SchemaName + "." + p.Name
}

// FunctionColumn represents a column returned by a table-valued function
type FunctionColumn struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	MaxLength       *int   `json:"max_length"`
	Precision       *int   `json:"precision"`
	Scale           *int   `json:"scale"`
	IsNullable      bool   `json:"is_nullable"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// FullType renders the display type including length or precision.
func (f FunctionColumn) FullType() string {
	return fullType(f.DataType, f.MaxLength, f.Precision, f.Scale)
}

// Function represents a user-defined function. Exactly one of ReturnType and
// ReturnColumns is populated, depending on FunctionType.
type Function struct {
	SchemaName    string           `json:"schema_name"`
	Name          string           `json:"name"`
	FunctionType  string           `json:"function_type"` // SCALAR, TABLE, AGGREGATE, WINDOW
	Parameters    []Parameter      `json:"parameters"`
	ReturnType    *string          `json:"return_type"`    // scalar functions
	ReturnColumns []FunctionColumn `json:"return_columns"` // table-valued functions
	Definition    *string          `json:"definition"`
	Description   *string          `json:"description"`
	Language      string           `json:"language"`
}

// FullName returns the schema-qualified function name.
func (f Function) FullName() string {
	return f.SchemaName + "." + f.Name
}

// Trigger represents a DML trigger
type Trigger struct {
	SchemaName        string   `json:"schema_name"`
	Name              string   `json:"name"`
	ParentTableSchema string   `json:"parent_table_schema"`
	ParentTableName   string   `json:"parent_table_name"`
	TriggerType       string   `json:"trigger_type"` // BEFORE, AFTER, INSTEAD OF
	Events            []string `json:"events"`       // subset of INSERT, UPDATE, DELETE
	Definition        *string  `json:"definition"`
	IsDisabled        bool     `json:"is_disabled"`
	Description       *string  `json:"description"`
}

// FullName returns the schema-qualified trigger name.
func (t Trigger) FullName() string {
	return t.SchemaName + "." + t.Name
}

// TypeColumn represents a column in a composite or table type
type TypeColumn struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	MaxLength       *int   `json:"max_length"`
	Precision       *int   `json:"precision"`
	Scale           *int   `json:"scale"`
	IsNullable      bool   `json:"is_nullable"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// FullType renders the display type including length or precision.
func (t TypeColumn) FullType() string {
	return fullType(t.DataType, t.MaxLength, t.Precision, t.Scale)
}

// UserDefinedType represents a user-defined type. Columns and EnumValues are
// mutually exclusive based on TypeCategory.
type UserDefinedType struct {
	SchemaName      string       `json:"schema_name"`
	Name            string       `json:"name"`
	TypeCategory    string       `json:"type_category"` // COMPOSITE, ENUM, DOMAIN, RANGE, TABLE_TYPE, ALIAS_TYPE
	BaseType        *string      `json:"base_type"`     // alias/domain types
	MaxLength       *int         `json:"max_length"`
	Precision       *int         `json:"precision"`
	Scale           *int         `json:"scale"`
	IsNullable      bool         `json:"is_nullable"`
	Columns         []TypeColumn `json:"columns"`     // composite/table types
	EnumValues      []string     `json:"enum_values"` // enum types
	CheckConstraint *string      `json:"check_constraint"`
	Description     *string      `json:"description"`
}

// FullName returns the schema-qualified type name.
func (u UserDefinedType) FullName() string {
	return u.SchemaName + "." + u.Name
}

// Sequence represents a sequence
type Sequence struct {
	SchemaName   string  `json:"schema_name"`
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	StartValue   int64   `json:"start_value"`
	Increment    int64   `json:"increment"`
	MinValue     int64   `json:"min_value"`
	MaxValue     int64   `json:"max_value"`
	IsCycling    bool    `json:"is_cycling"`
	CacheSize    *int64  `json:"cache_size"`
	CurrentValue *int64  `json:"current_value"`
	Description  *string `json:"description"`
}

// FullName returns the schema-qualified sequence name.
func (s Sequence) FullName() string {
	return s.SchemaName + "." + s.Name
}

// Synonym represents a synonym (alias) for another object. BaseObjectName is
// the raw vendor string; the Target fields hold its parsed decomposition.
type Synonym struct {
	SchemaName     string  `json:"schema_name"`
	Name           string  `json:"name"`
	BaseObjectName string  `json:"base_object_name"`
	TargetServer   *string `json:"target_server"`
	TargetDatabase *string `json:"target_database"`
	TargetSchema   *string `json:"target_schema"`
	TargetObject   *string `json:"target_object"`
	Description    *string `json:"description"`
}

// FullName returns the schema-qualified synonym name.
func (s Synonym) FullName() string {
	return s.SchemaName + "." + s.Name
}

// User represents a database user principal
type User struct {
	Name               string  `json:"name"`
	AuthenticationType string  `json:"authentication_type"`
	DefaultSchema      *string `json:"default_schema"`
	IsDisabled         bool    `json:"is_disabled"`
	CreateDate         *string `json:"create_date"`
	ModifyDate         *string `json:"modify_date"`
}

// Role represents a database role principal
type Role struct {
	Name       string  `json:"name"`
	RoleType   string  `json:"role_type"`
	IsDisabled bool    `json:"is_disabled"`
	CreateDate *string `json:"create_date"`
	ModifyDate *string `json:"modify_date"`
}

// Permission represents one granted or denied permission on an object
type Permission struct {
	Grantee      string  `json:"grantee"`
	GranteeType  string  `json:"grantee_type"`
	ObjectSchema string  `json:"object_schema"`
	ObjectName   string  `json:"object_name"` // empty for schema/database level grants
	ObjectType   string  `json:"object_type"`
	Permission   string  `json:"permission"`
	State        string  `json:"state"` // GRANT or DENY
	Grantor      *string `json:"grantor"`
}

// RoleMembership represents one member of a role
type RoleMembership struct {
	RoleName   string `json:"role_name"`
	MemberName string `json:"member_name"`
	MemberType string `json:"member_type"`
}

// ObjectSet is the partial result returned by a single extractor. Each
// extractor fills only the lists for its object kind; the security extractors
// fill the four principal lists at once.
type ObjectSet struct {
	Tables          []Table           `json:"tables"`
	Views           []View            `json:"views"`
	Procedures      []Procedure       `json:"procedures"`
	Functions       []Function        `json:"functions"`
	Triggers        []Trigger         `json:"triggers"`
	Types           []UserDefinedType `json:"types"`
	Sequences       []Sequence        `json:"sequences"`
	Synonyms        []Synonym         `json:"synonyms"`
	Users           []User            `json:"users"`
	Roles           []Role            `json:"roles"`
	Permissions     []Permission      `json:"permissions"`
	RoleMemberships []RoleMembership  `json:"role_memberships"`
}

// Database is the top-level aggregate for one extraction run. Object lists
// are flat; grouping by schema is a renderer-side view.
type Database struct {
	Name            string            `json:"name"`
	DBType          string            `json:"db_type"`
	Server          *string           `json:"server"`
	Version         *string           `json:"version"`
	Tables          []Table           `json:"tables"`
	Views           []View            `json:"views"`
	Procedures      []Procedure       `json:"procedures"`
	Functions       []Function        `json:"functions"`
	Triggers        []Trigger         `json:"triggers"`
	Types           []UserDefinedType `json:"types"`
	Sequences       []Sequence        `json:"sequences"`
	Synonyms        []Synonym         `json:"synonyms"`
	Users           []User            `json:"users"`
	Roles           []Role            `json:"roles"`
	Permissions     []Permission      `json:"permissions"`
	RoleMemberships []RoleMembership  `json:"role_memberships"`
}
