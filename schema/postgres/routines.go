package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ProcedureExtractor reads stored procedures (PostgreSQL 11+, prokind 'p').
type ProcedureExtractor struct {
	base
}

func NewProcedureExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *ProcedureExtractor {
	return &ProcedureExtractor{base: newBase(db, policy, logger)}
}

func (e *ProcedureExtractor) Extract() (*types.ObjectSet, error) {
	procedures, err := e.listProcedures()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found stored procedures", "count", len(procedures))

	for i := range procedures {
		p := &procedures[i]
		if p.Parameters, err = routineParameters(e.db, p.SchemaName, p.Name, false); err != nil {
			return nil, err
		}
		if p.Definition, err = e.definition(p.SchemaName, p.Name); err != nil {
			return nil, err
		}
		p.Description = e.routineDescription(p.SchemaName, p.Name, "p")
	}

	return &types.ObjectSet{Procedures: procedures}, nil
}

func (e *ProcedureExtractor) listProcedures() ([]types.Procedure, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			p.proname AS procedure_name,
			l.lanname AS language
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		JOIN pg_language l ON p.prolang = l.oid
		WHERE p.prokind = 'p'
		AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, p.proname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []types.Procedure
	for rows.Next() {
		var p types.Procedure
		if err := rows.Scan(&p.SchemaName, &p.Name, &p.Language); err != nil {
			return nil, fmt.Errorf("failed to scan procedure row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(p.SchemaName) {
			continue
		}
		procedures = append(procedures, p)
	}
	return procedures, rows.Err()
}

func (e *ProcedureExtractor) definition(schemaName, procName string) (*string, error) {
	query := `
		SELECT pg_get_functiondef(p.oid) AS definition
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		WHERE n.nspname = $1 AND p.proname = $2 AND p.prokind = 'p'`

	var definition sql.NullString
	err := e.db.QueryRow(query, schemaName, procName).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for %s.%s: %w", schemaName, procName, err)
	}
	return strOrNil(definition), nil
}

func (b base) routineDescription(schemaName, routineName, kind string) *string {
	query := `
		SELECT obj_description(p.oid) AS description
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		WHERE n.nspname = $1 AND p.proname = $2 AND p.prokind = $3
		LIMIT 1`

	var description sql.NullString
	err := b.db.QueryRow(query, schemaName, routineName, kind).Scan(&description)
	if err != nil || !description.Valid {
		return nil
	}
	return &description.String
}

// routineParameters reads parameters from information_schema.parameters.
// The specific_name carries an oid suffix, hence the prefix match. OUT
// parameters are excluded for functions, where they describe the result set.
func routineParameters(db *sql.DB, schemaName, routineName string, skipOutput bool) ([]types.Parameter, error) {
	query := `
		SELECT
			p.parameter_name,
			p.data_type,
			p.character_maximum_length AS max_length,
			p.numeric_precision AS precision,
			p.numeric_scale AS scale,
			p.parameter_mode IN ('OUT', 'INOUT') AS is_output,
			p.parameter_default IS NOT NULL AS has_default,
			p.parameter_default AS default_value,
			p.ordinal_position
		FROM information_schema.parameters p
		WHERE p.specific_schema = $1
		AND p.specific_name LIKE $2 || '%'`
	if skipOutput {
		query += `
		AND p.parameter_mode != 'OUT'`
	}
	query += `
		ORDER BY p.ordinal_position`

	rows, err := db.Query(query, schemaName, routineName)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters for %s.%s: %w", schemaName, routineName, err)
	}
	defer rows.Close()

	var parameters []types.Parameter
	for rows.Next() {
		var p types.Parameter
		var name, dataType, defaultValue sql.NullString
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&name, &dataType, &maxLength, &precision, &scale,
			&p.IsOutput, &p.HasDefault, &defaultValue, &p.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parameter row: %w", err)
		}
		p.Name = name.String
		if p.Name == "" {
			p.Name = "param" + strconv.Itoa(p.OrdinalPosition)
		}
		p.DataType = dataType.String
		p.MaxLength = intOrNil(maxLength)
		p.Precision = intOrNil(precision)
		p.Scale = intOrNil(scale)
		p.DefaultValue = strOrNil(defaultValue)
		parameters = append(parameters, p)
	}
	return parameters, rows.Err()
}

// FunctionExtractor reads functions, aggregates and window functions.
// Set-returning functions are classified as TABLE and carry return columns.
type FunctionExtractor struct {
	base
}

func NewFunctionExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *FunctionExtractor {
	return &FunctionExtractor{base: newBase(db, policy, logger)}
}

func (e *FunctionExtractor) Extract() (*types.ObjectSet, error) {
	functions, err := e.listFunctions()
	if err != nil {
		return nil, err
	}
	e.logger.Info("Found functions", "count", len(functions))

	for i := range functions {
		f := &functions[i]
		if f.Parameters, err = routineParameters(e.db, f.SchemaName, f.Name, true); err != nil {
			return nil, err
		}
		if f.Definition, err = e.definition(f.SchemaName, f.Name); err != nil {
			return nil, err
		}
		f.Description = e.functionDescription(f.SchemaName, f.Name)
		if f.FunctionType == "TABLE" {
			if f.ReturnColumns, err = e.returnColumns(f.SchemaName, f.Name); err != nil {
				return nil, err
			}
		}
	}

	return &types.ObjectSet{Functions: functions}, nil
}

func (e *FunctionExtractor) listFunctions() ([]types.Function, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			p.proname AS function_name,
			CASE
				WHEN p.proretset THEN 'TABLE'
				WHEN p.prokind = 'a' THEN 'AGGREGATE'
				WHEN p.prokind = 'w' THEN 'WINDOW'
				ELSE 'SCALAR'
			END AS function_type,
			pg_get_function_result(p.oid) AS return_type,
			l.lanname AS language
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		JOIN pg_language l ON p.prolang = l.oid
		WHERE p.prokind IN ('f', 'a', 'w')
		AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, p.proname`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var functions []types.Function
	for rows.Next() {
		var f types.Function
		var returnType sql.NullString
		if err := rows.Scan(&f.SchemaName, &f.Name, &f.FunctionType, &returnType, &f.Language); err != nil {
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(f.SchemaName) {
			continue
		}
		f.ReturnType = strOrNil(returnType)
		functions = append(functions, f)
	}
	return functions, rows.Err()
}

func (e *FunctionExtractor) definition(schemaName, funcName string) (*string, error) {
	query := `
		SELECT pg_get_functiondef(p.oid) AS definition
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		WHERE n.nspname = $1 AND p.proname = $2 AND p.prokind IN ('f', 'a', 'w')
		LIMIT 1`

	var definition sql.NullString
	err := e.db.QueryRow(query, schemaName, funcName).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for %s.%s: %w", schemaName, funcName, err)
	}
	return strOrNil(definition), nil
}

func (e *FunctionExtractor) functionDescription(schemaName, funcName string) *string {
	query := `
		SELECT obj_description(p.oid) AS description
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		WHERE n.nspname = $1 AND p.proname = $2
		LIMIT 1`

	var description sql.NullString
	err := e.db.QueryRow(query, schemaName, funcName).Scan(&description)
	if err != nil || !description.Valid {
		return nil
	}
	return &description.String
}

func (e *FunctionExtractor) returnColumns(schemaName, funcName string) ([]types.FunctionColumn, error) {
	query := `
		SELECT
			p.parameter_name AS column_name,
			p.data_type,
			p.character_maximum_length AS max_length,
			p.numeric_precision AS precision,
			p.numeric_scale AS scale,
			p.ordinal_position
		FROM information_schema.parameters p
		WHERE p.specific_schema = $1
		AND p.specific_name LIKE $2 || '%'
		AND p.parameter_mode = 'OUT'
		ORDER BY p.ordinal_position`

	rows, err := e.db.Query(query, schemaName, funcName)
	if err != nil {
		return nil, fmt.Errorf("failed to query return columns for %s.%s: %w", schemaName, funcName, err)
	}
	defer rows.Close()

	var columns []types.FunctionColumn
	for rows.Next() {
		var col types.FunctionColumn
		var name, dataType sql.NullString
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&name, &dataType, &maxLength, &precision, &scale, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return column: %w", err)
		}
		col.Name = name.String
		if col.Name == "" {
			col.Name = "column" + strconv.Itoa(col.OrdinalPosition)
		}
		col.DataType = dataType.String
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		col.IsNullable = true
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
