package oracle

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ProcedureExtractor reads standalone PL/SQL procedures. Procedures inside
// packages are not listed.
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
	e.logger.Info("Found procedures", "count", len(procedures))

	for i := range procedures {
		p := &procedures[i]
		if p.Parameters, err = e.parameters(p.SchemaName, p.Name); err != nil {
			return nil, err
		}
		if p.Definition, err = sourceText(e.db, p.SchemaName, p.Name, "PROCEDURE"); err != nil {
			return nil, err
		}
	}
	return &types.ObjectSet{Procedures: procedures}, nil
}

func (e *ProcedureExtractor) listProcedures() ([]types.Procedure, error) {
	query := `
		SELECT owner, object_name
		FROM all_procedures
		WHERE object_type = 'PROCEDURE'
		AND owner NOT IN ` + systemSchemas + `
		ORDER BY owner, object_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []types.Procedure
	for rows.Next() {
		var p types.Procedure
		if err := rows.Scan(&p.SchemaName, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan procedure row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(p.SchemaName) {
			continue
		}
		p.Language = "PL/SQL"
		procedures = append(procedures, p)
	}
	return procedures, rows.Err()
}

func (e *ProcedureExtractor) parameters(schemaName, procName string) ([]types.Parameter, error) {
	query := `
		SELECT
			argument_name,
			data_type,
			data_length,
			data_precision,
			data_scale,
			CASE WHEN in_out IN ('OUT', 'IN/OUT') THEN 1 ELSE 0 END AS is_output,
			CASE WHEN default_value IS NOT NULL THEN 1 ELSE 0 END AS has_default,
			default_value,
			position
		FROM all_arguments
		WHERE owner = :1 AND object_name = :2
		AND argument_name IS NOT NULL
		ORDER BY position`

	rows, err := e.db.Query(query, schemaName, procName)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters for %s.%s: %w", schemaName, procName, err)
	}
	defer rows.Close()

	var params []types.Parameter
	for rows.Next() {
		var p types.Parameter
		var maxLength, precision, scale sql.NullInt64
		var defaultValue sql.NullString
		err := rows.Scan(&p.Name, &p.DataType, &maxLength, &precision, &scale,
			&p.IsOutput, &p.HasDefault, &defaultValue, &p.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parameter row: %w", err)
		}
		p.MaxLength = intOrNil(maxLength)
		p.Precision = intOrNil(precision)
		p.Scale = intOrNil(scale)
		p.DefaultValue = strOrNil(defaultValue)
		params = append(params, p)
	}
	return params, rows.Err()
}

// FunctionExtractor reads standalone PL/SQL functions.
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
		if f.Parameters, err = e.parameters(f.SchemaName, f.Name); err != nil {
			return nil, err
		}
		if f.Definition, err = sourceText(e.db, f.SchemaName, f.Name, "FUNCTION"); err != nil {
			return nil, err
		}
		if f.ReturnType, err = e.returnType(f.SchemaName, f.Name); err != nil {
			return nil, err
		}
	}
	return &types.ObjectSet{Functions: functions}, nil
}

func (e *FunctionExtractor) listFunctions() ([]types.Function, error) {
	query := `
		SELECT owner, object_name
		FROM all_procedures
		WHERE object_type = 'FUNCTION'
		AND owner NOT IN ` + systemSchemas + `
		ORDER BY owner, object_name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var functions []types.Function
	for rows.Next() {
		var f types.Function
		if err := rows.Scan(&f.SchemaName, &f.Name); err != nil {
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(f.SchemaName) {
			continue
		}
		f.FunctionType = "SCALAR"
		f.Language = "PL/SQL"
		functions = append(functions, f)
	}
	return functions, rows.Err()
}

func (e *FunctionExtractor) parameters(schemaName, funcName string) ([]types.Parameter, error) {
	query := `
		SELECT
			argument_name,
			data_type,
			data_length,
			data_precision,
			data_scale,
			CASE WHEN in_out IN ('OUT', 'IN/OUT') THEN 1 ELSE 0 END AS is_output,
			position
		FROM all_arguments
		WHERE owner = :1 AND object_name = :2
		AND argument_name IS NOT NULL
		AND in_out != 'OUT'
		ORDER BY position`

	rows, err := e.db.Query(query, schemaName, funcName)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters for %s.%s: %w", schemaName, funcName, err)
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

// returnType reads the result argument, which ALL_ARGUMENTS stores at
// position 0 with no name.
func (e *FunctionExtractor) returnType(schemaName, funcName string) (*string, error) {
	query := `
		SELECT data_type
		FROM all_arguments
		WHERE owner = :1 AND object_name = :2 AND position = 0`

	var dataType sql.NullString
	err := e.db.QueryRow(query, schemaName, funcName).Scan(&dataType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query return type for %s.%s: %w", schemaName, funcName, err)
	}
	return strOrNil(dataType), nil
}

// sourceText reassembles an object's PL/SQL source from the per-line
// ALL_SOURCE rows.
func sourceText(db *sql.DB, schemaName, objectName, objectType string) (*string, error) {
	query := `
		SELECT LISTAGG(text, '') WITHIN GROUP (ORDER BY line)
		FROM all_source
		WHERE owner = :1 AND name = :2 AND type = :3`

	var text sql.NullString
	err := db.QueryRow(query, schemaName, objectName, objectType).Scan(&text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source for %s.%s: %w", schemaName, objectName, err)
	}
	return strOrNil(text), nil
}
