package types

import (
	"fmt"
	"strings"
)

// charTypes are the type names that carry a length component.
var charTypes = map[string]bool{
	"varchar":           true,
	"nvarchar":          true,
	"char":              true,
	"nchar":             true,
	"binary":            true,
	"varbinary":         true,
	"character varying": true,
	"character":         true,
}

// fullType formats a vendor type name with its length or precision component.
// Character types render "(max)" for the unbounded sentinel -1; the
// n-prefixed double-byte types report byte lengths in the catalog, so the
// displayed length is halved. decimal/numeric render "(precision,scale)"
// with the scale omitted when zero.
func fullType(dataType string, maxLength, precision, scale *int) string {
	switch {
	case charTypes[dataType]:
		if maxLength == nil || *maxLength == 0 {
			return dataType
		}
		if *maxLength == -1 {
			return dataType + "(max)"
		}
		length := *maxLength
		if strings.HasPrefix(dataType, "n") && length > 0 {
			length /= 2
		}
		return fmt.Sprintf("%s(%d)", dataType, length)
	case dataType == "decimal" || dataType == "numeric":
		if precision == nil {
			return dataType
		}
		if scale != nil && *scale > 0 {
			return fmt.Sprintf("%s(%d,%d)", dataType, *precision, *scale)
		}
		return fmt.Sprintf("%s(%d)", dataType, *precision)
	}
	return dataType
}

// temporalType renders a fractional-second temporal type. The scale is shown
// unless it equals the vendor default of 7.
func temporalType(dataType string, scale *int) string {
	if scale != nil && *scale != 7 {
		return fmt.Sprintf("%s(%d)", dataType, *scale)
	}
	return dataType
}
