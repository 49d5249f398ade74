package mssql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/schemascan/schemascan/schema/filter"
	"github.com/schemascan/schemascan/schema/types"
)

// ProcedureExtractor reads stored procedures with their parameters and SQL
// definitions.
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
		if p.Parameters, err = e.parameters(p.SchemaName, p.Name); err != nil {
			return nil, err
		}
		if p.Definition, err = e.definition(p.SchemaName, p.Name); err != nil {
			return nil, err
		}
		p.Description = e.extendedProperty(p.SchemaName, p.Name)
	}

	return &types.ObjectSet{Procedures: procedures}, nil
}

func (e *ProcedureExtractor) listProcedures() ([]types.Procedure, error) {
	query := `
		SELECT s.name AS schema_name, p.name AS procedure_name
		FROM sys.procedures p
		JOIN sys.schemas s ON p.schema_id = s.schema_id
		WHERE p.is_ms_shipped = 0 AND p.type = 'P'
		ORDER BY s.name, p.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []types.Procedure
	for rows.Next() {
		var schemaName, procName string
		if err := rows.Scan(&schemaName, &procName); err != nil {
			return nil, fmt.Errorf("failed to scan procedure row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(schemaName) {
			continue
		}
		procedures = append(procedures, types.Procedure{
			SchemaName: schemaName,
			Name:       procName,
			Language:   "T-SQL",
		})
	}
	return procedures, rows.Err()
}

func (e *ProcedureExtractor) parameters(schemaName, procedureName string) ([]types.Parameter, error) {
	query := `
		SELECT
			p.name AS parameter_name, t.name AS data_type,
			p.max_length, p.precision, p.scale, p.is_output,
			p.has_default_value, p.default_value, p.parameter_id AS ordinal_position
		FROM sys.parameters p
		JOIN sys.types t ON p.user_type_id = t.user_type_id
		JOIN sys.procedures pr ON p.object_id = pr.object_id
		JOIN sys.schemas s ON pr.schema_id = s.schema_id
		WHERE s.name = @p1 AND pr.name = @p2 AND p.parameter_id > 0
		ORDER BY p.parameter_id`

	return scanParameters(e.db, query, schemaName, procedureName)
}

func (e *ProcedureExtractor) definition(schemaName, procedureName string) (*string, error) {
	query := `
		SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.procedures p ON m.object_id = p.object_id
		JOIN sys.schemas s ON p.schema_id = s.schema_id
		WHERE s.name = @p1 AND p.name = @p2`

	var definition sql.NullString
	err := e.db.QueryRow(query, schemaName, procedureName).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for %s.%s: %w", schemaName, procedureName, err)
	}
	return strOrNil(definition), nil
}

// scanParameters runs a parameter query shared by the procedure and function
// extractors.
func scanParameters(db *sql.DB, query string, args ...any) ([]types.Parameter, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var parameters []types.Parameter
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
		parameters = append(parameters, p)
	}
	return parameters, rows.Err()
}

// FunctionExtractor reads user-defined functions. Scalar functions get a
// return type; table-valued functions get return columns instead.
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
	e.logger.Info("Found user-defined functions", "count", len(functions))

	for i := range functions {
		f := &functions[i]
		if f.Parameters, err = e.parameters(f.SchemaName, f.Name); err != nil {
			return nil, err
		}
		if f.Definition, err = e.definition(f.SchemaName, f.Name); err != nil {
			return nil, err
		}
		f.Description = e.extendedProperty(f.SchemaName, f.Name)

		if f.FunctionType == "SCALAR" {
			if f.ReturnType, err = e.returnType(f.SchemaName, f.Name); err != nil {
				return nil, err
			}
		} else {
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
			s.name AS schema_name, o.name AS function_name,
			CASE o.type
				WHEN 'FN' THEN 'SCALAR'
				WHEN 'IF' THEN 'INLINE_TABLE_VALUED'
				WHEN 'TF' THEN 'TABLE_VALUED'
				ELSE 'UNKNOWN'
			END AS function_type
		FROM sys.objects o
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE o.type IN ('FN', 'IF', 'TF') AND o.is_ms_shipped = 0
		ORDER BY s.name, o.name`

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var functions []types.Function
	for rows.Next() {
		var schemaName, funcName, funcType string
		if err := rows.Scan(&schemaName, &funcName, &funcType); err != nil {
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		if !e.policy.ShouldIncludeSchema(schemaName) {
			continue
		}
		functions = append(functions, types.Function{
			SchemaName:   schemaName,
			Name:         funcName,
			FunctionType: funcType,
			Language:     "T-SQL",
		})
	}
	return functions, rows.Err()
}

func (e *FunctionExtractor) parameters(schemaName, functionName string) ([]types.Parameter, error) {
	query := `
		SELECT
			p.name AS parameter_name, t.name AS data_type,
			p.max_length, p.precision, p.scale, p.is_output,
			p.has_default_value, p.default_value, p.parameter_id AS ordinal_position
		FROM sys.parameters p
		JOIN sys.types t ON p.user_type_id = t.user_type_id
		JOIN sys.objects o ON p.object_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE s.name = @p1 AND o.name = @p2 AND p.parameter_id > 0
		ORDER BY p.parameter_id`

	return scanParameters(e.db, query, schemaName, functionName)
}

func (e *FunctionExtractor) definition(schemaName, functionName string) (*string, error) {
	query := `
		SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.objects o ON m.object_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE s.name = @p1 AND o.name = @p2`

	var definition sql.NullString
	err := e.db.QueryRow(query, schemaName, functionName).Scan(&definition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition for %s.%s: %w", schemaName, functionName, err)
	}
	return strOrNil(definition), nil
}

// returnType reads the scalar return type, which the catalog models as the
// parameter with id 0.
func (e *FunctionExtractor) returnType(schemaName, functionName string) (*string, error) {
	query := `
		SELECT t.name AS data_type, p.max_length, p.precision, p.scale
		FROM sys.parameters p
		JOIN sys.types t ON p.user_type_id = t.user_type_id
		JOIN sys.objects o ON p.object_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE s.name = @p1 AND o.name = @p2 AND p.parameter_id = 0`

	var dataType string
	var maxLength, precision, scale sql.NullInt64
	err := e.db.QueryRow(query, schemaName, functionName).Scan(&dataType, &maxLength, &precision, &scale)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query return type for %s.%s: %w", schemaName, functionName, err)
	}

	result := formatReturnType(dataType, intOrNil(maxLength), intOrNil(precision), intOrNil(scale))
	return &result, nil
}

func formatReturnType(dataType string, maxLength, precision, scale *int) string {
	switch dataType {
	case "varchar", "nvarchar", "char", "nchar", "binary", "varbinary":
		length := ""
		if maxLength != nil {
			if *maxLength == -1 {
				length = "max"
			} else if strings.HasPrefix(dataType, "n") && *maxLength > 0 {
				length = strconv.Itoa(*maxLength / 2)
			} else {
				length = strconv.Itoa(*maxLength)
			}
		}
		return fmt.Sprintf("%s(%s)", dataType, length)
	case "decimal", "numeric":
		p, s := 0, 0
		if precision != nil {
			p = *precision
		}
		if scale != nil {
			s = *scale
		}
		return fmt.Sprintf("%s(%d,%d)", dataType, p, s)
	}
	return dataType
}

func (e *FunctionExtractor) returnColumns(schemaName, functionName string) ([]types.FunctionColumn, error) {
	query := `
		SELECT
			c.name AS column_name, t.name AS data_type,
			c.max_length, c.precision, c.scale, c.is_nullable,
			c.column_id AS ordinal_position
		FROM sys.columns c
		JOIN sys.types t ON c.user_type_id = t.user_type_id
		JOIN sys.objects o ON c.object_id = o.object_id
		JOIN sys.schemas s ON o.schema_id = s.schema_id
		WHERE s.name = @p1 AND o.name = @p2
		ORDER BY c.column_id`

	rows, err := e.db.Query(query, schemaName, functionName)
	if err != nil {
		return nil, fmt.Errorf("failed to query return columns for %s.%s: %w", schemaName, functionName, err)
	}
	defer rows.Close()

	var columns []types.FunctionColumn
	for rows.Next() {
		var col types.FunctionColumn
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&col.Name, &col.DataType, &maxLength, &precision, &scale,
			&col.IsNullable, &col.OrdinalPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return column: %w", err)
		}
		col.MaxLength = intOrNil(maxLength)
		col.Precision = intOrNil(precision)
		col.Scale = intOrNil(scale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
