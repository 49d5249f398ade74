package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ProcedureExtractor reads stored procedures with their parameters.
type ProcedureExtractor struct {
	base
}

func NewProcedureExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *ProcedureExtractor {
	return &ProcedureExtractor{base: newBase(db, policy, logger)}
}

func (e *ProcedureExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			routine_schema,
			routine_name,
			routine_definition,
			routine_comment AS description
		FROM information_schema.routines
		WHERE routine_type = 'PROCEDURE'
		AND routine_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY routine_schema, routine_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []types.Procedure
	for rows.Next() {
		var p types.Procedure
		var definition, description sql.NullString
		if err := rows.Scan(&p.SchemaName, &p.Name, &definition, &description); err != nil {
			return nil, fmt.Errorf("failed to scan procedure row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(p.SchemaName) {
			continue
		}
		p.Definition = strOrNil(definition)
		if description.Valid && description.String != "" {
			p.Description = &description.String
		}
		p.Language = "SQL"
		procedures = append(procedures, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found procedures", "count", len(procedures))

	for i := range procedures {
		p := &procedures[i]
		if p.Parameters, err = e.parameters(p.SchemaName, p.Name); err != nil {
			return nil, err
		}
	}
	return &types.ObjectSet{Procedures: procedures}, nil
}

func (e *ProcedureExtractor) parameters(schemaName, procName string) ([]types.Parameter, error) {
	query := "SELECT " +
		"parameter_name, data_type, " +
		"character_maximum_length AS max_length, " +
		"numeric_precision AS `precision`, " +
		"numeric_scale AS scale, " +
		"parameter_mode IN ('OUT', 'INOUT') AS is_output, " +
		"ordinal_position " +
		"FROM information_schema.parameters " +
		"WHERE specific_schema = ? AND specific_name = ? " +
		"AND parameter_name IS NOT NULL " +
		"ORDER BY ordinal_position"

	return scanParameters(e.db, query, schemaName, procName)
}

// FunctionExtractor reads user-defined functions. MySQL stored functions are
// always scalar.
type FunctionExtractor struct {
	base
}

func NewFunctionExtractor(db *sql.DB, policy *filter.Policy, logger *slog.Logger) *FunctionExtractor {
	return &FunctionExtractor{base: newBase(db, policy, logger)}
}

func (e *FunctionExtractor) Extract() (*types.ObjectSet, error) {
	query := `
		SELECT
			routine_schema,
			routine_name,
			data_type AS return_type,
			routine_definition,
			routine_comment AS description
		FROM information_schema.routines
		WHERE routine_type = 'FUNCTION'
		AND routine_schema NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY routine_schema, routine_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var functions []types.Function
	for rows.Next() {
		var f types.Function
		var returnType, definition, description sql.NullString
		if err := rows.Scan(&f.SchemaName, &f.Name, &returnType, &definition, &description); err != nil {
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(f.SchemaName) {
			continue
		}
		f.FunctionType = "SCALAR"
		f.ReturnType = strOrNil(returnType)
		f.Definition = strOrNil(definition)
		if description.Valid && description.String != "" {
			f.Description = &description.String
		}
		f.Language = "SQL"
		functions = append(functions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("Found functions", "count", len(functions))

	for i := range functions {
		f := &functions[i]
		if f.Parameters, err = e.parameters(f.SchemaName, f.Name); err != nil {
			return nil, err
		}
	}
	return &types.ObjectSet{Functions: functions}, nil
}

// parameters skips ordinal 0, which holds the function return value.
func (e *FunctionExtractor) parameters(schemaName, funcName string) ([]types.Parameter, error) {
	query := "SELECT " +
		"parameter_name, data_type, " +
		"character_maximum_length AS max_length, " +
		"numeric_precision AS `precision`, " +
		"numeric_scale AS scale, " +
		"FALSE AS is_output, " +
		"ordinal_position " +
		"FROM information_schema.parameters " +
		"WHERE specific_schema = ? AND specific_name = ? " +
		"AND parameter_mode = 'IN' " +
		"AND parameter_name IS NOT NULL " +
		"ORDER BY ordinal_position"

	return scanParameters(e.db, query, schemaName, funcName)
}

func scanParameters(db *sql.DB, query string, args ...any) ([]types.Parameter, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var params []types.Parameter
	for rows.Next() {
		var p types.Parameter
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&p.Name, &p.DataType, &maxLength, &precision, &scale,
			&p.IsOutput, &p.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parameter row: %w", err)
		}
		p.MaxLength = intOrNil(maxLength)
		p.Precision = intOrNil(precision)
		p.Scale = intOrNil(scale)
		params = append(params, p)
	}
	return params, rows.Err()
}
