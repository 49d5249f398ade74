package types_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/schemascan/schemascan/schema/types"
)

func intPtr(v int) *int { return &v }

func TestColumnFullType(t *testing.T) {
	tests := []struct {
		name     string
		column   types.Column
		expected string
	}{
		{
			name:     "varchar with length",
			column:   types.Column{DataType: "varchar", MaxLength: intPtr(255)},
			expected: "varchar(255)",
		},
		{
			name:     "varchar max sentinel",
			column:   types.Column{DataType: "varchar", MaxLength: intPtr(-1)},
			expected: "varchar(max)",
		},
		{
			name:     "nvarchar halves byte length",
			column:   types.Column{DataType: "nvarchar", MaxLength: intPtr(100)},
			expected: "nvarchar(50)",
		},
		{
			name:     "nchar halves byte length",
			column:   types.Column{DataType: "nchar", MaxLength: intPtr(20)},
			expected: "nchar(10)",
		},
		{
			name:     "nvarchar max sentinel is not halved",
			column:   types.Column{DataType: "nvarchar", MaxLength: intPtr(-1)},
			expected: "nvarchar(max)",
		},
		{
			name:     "character varying keeps full length",
			column:   types.Column{DataType: "character varying", MaxLength: intPtr(80)},
			expected: "character varying(80)",
		},
		{
			name:     "varbinary with length",
			column:   types.Column{DataType: "varbinary", MaxLength: intPtr(16)},
			expected: "varbinary(16)",
		},
		{
			name:     "char type without length",
			column:   types.Column{DataType: "varchar"},
			expected: "varchar",
		},
		{
			name:     "decimal with precision and scale",
			column:   types.Column{DataType: "decimal", Precision: intPtr(18), Scale: intPtr(2)},
			expected: "decimal(18,2)",
		},
		{
			name:     "numeric with zero scale omits scale",
			column:   types.Column{DataType: "numeric", Precision: intPtr(10), Scale: intPtr(0)},
			expected: "numeric(10)",
		},
		{
			name:     "decimal with nil scale omits scale",
			column:   types.Column{DataType: "decimal", Precision: intPtr(12)},
			expected: "decimal(12)",
		},
		{
			name:     "decimal without precision",
			column:   types.Column{DataType: "decimal"},
			expected: "decimal",
		},
		{
			name:     "datetime2 with non-default scale",
			column:   types.Column{DataType: "datetime2", Scale: intPtr(3)},
			expected: "datetime2(3)",
		},
		{
			name:     "datetime2 with default scale 7",
			column:   types.Column{DataType: "datetime2", Scale: intPtr(7)},
			expected: "datetime2",
		},
		{
			name:     "time with zero scale",
			column:   types.Column{DataType: "time", Scale: intPtr(0)},
			expected: "time(0)",
		},
		{
			name:     "datetimeoffset without scale",
			column:   types.Column{DataType: "datetimeoffset"},
			expected: "datetimeoffset",
		},
		{
			name:     "plain type passes through",
			column:   types.Column{DataType: "int"},
			expected: "int",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			result := tt.column.FullType()
			c.Assert(result, qt.Equals, tt.expected, qt.Commentf("FullType() = %q, want %q", result, tt.expected))
		})
	}
}

func TestParameterFullType(t *testing.T) {
	tests := []struct {
		name     string
		param    types.Parameter
		expected string
	}{
		{
			name:     "nvarchar parameter halves byte length",
			param:    types.Parameter{DataType: "nvarchar", MaxLength: intPtr(200)},
			expected: "nvarchar(100)",
		},
		{
			name:     "unbounded varbinary",
			param:    types.Parameter{DataType: "varbinary", MaxLength: intPtr(-1)},
			expected: "varbinary(max)",
		},
		{
			name:     "decimal parameter",
			param:    types.Parameter{DataType: "decimal", Precision: intPtr(9), Scale: intPtr(4)},
			expected: "decimal(9,4)",
		},
		{
			name:     "temporal rule does not apply to parameters",
			param:    types.Parameter{DataType: "datetime2", Scale: intPtr(3)},
			expected: "datetime2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(tt.param.FullType(), qt.Equals, tt.expected)
		})
	}
}

func TestFunctionColumnFullType(t *testing.T) {
	c := qt.New(t)

	fc := types.FunctionColumn{DataType: "nvarchar", MaxLength: intPtr(-1)}
	c.Assert(fc.FullType(), qt.Equals, "nvarchar(max)")

	fc = types.FunctionColumn{DataType: "numeric", Precision: intPtr(10), Scale: intPtr(0)}
	c.Assert(fc.FullType(), qt.Equals, "numeric(10)")
}

func TestTypeColumnFullType(t *testing.T) {
	c := qt.New(t)

	tc := types.TypeColumn{DataType: "nchar", MaxLength: intPtr(40)}
	c.Assert(tc.FullType(), qt.Equals, "nchar(20)")

	tc = types.TypeColumn{DataType: "varchar", MaxLength: intPtr(-1)}
	c.Assert(tc.FullType(), qt.Equals, "varchar(max)")
}

func TestFullNames(t *testing.T) {
	c := qt.New(t)

	c.Assert(types.Table{SchemaName: "dbo", Name: "Orders"}.FullName(), qt.Equals, "dbo.Orders")
	c.Assert(types.View{SchemaName: "public", Name: "v_orders"}.FullName(), qt.Equals, "public.v_orders")
	c.Assert(types.Sequence{SchemaName: "dbo", Name: "seq_id"}.FullName(), qt.Equals, "dbo.seq_id")
	c.Assert(types.Trigger{SchemaName: "main", Name: "trg_audit"}.FullName(), qt.Equals, "main.trg_audit")
}
