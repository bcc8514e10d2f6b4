package dml

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// DBTypecast converts v to the value stored for this column. Expressions,
// driver.Valuer values and nil pass through unchanged.
func (c *ColumnSchema) DBTypecast(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := asExpression(v); ok {
		return v, nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	if s, ok := v.(string); ok && s == "" && c.AllowNull && c.Type != TypeString && c.Type != TypeBinary {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch c.Type {
	case TypeString:
		out, err = cast.ToStringE(v)
	case TypeInteger, TypeBigInt:
		out, err = toInt64(v)
	case TypeBoolean:
		var b bool
		b, err = cast.ToBoolE(v)
		// Oracle 没有布尔类型，统一存 1/0
		if b {
			out = int64(1)
		} else {
			out = int64(0)
		}
	case TypeFloat:
		out, err = cast.ToFloat64E(v)
	case TypeDecimal:
		out, err = toDecimal(v)
	case TypeDate, TypeTimestamp:
		var t time.Time
		t, err = cast.ToTimeE(v)
		out = t
	case TypeBinary:
		switch b := v.(type) {
		case []byte:
			out = b
		case string:
			out = []byte(b)
		default:
			err = fmt.Errorf("unable to cast %#v of type %T to []byte", v, v)
		}
	default:
		out = v
	}
	if err != nil {
		return nil, fmt.Errorf("column[%s] %s: %w", c.Name, c.DBType, err)
	}
	return out, nil
}

// toInt64 reads strings as base 10, "010" is 10.
func toInt64(v any) (int64, error) {
	if s, ok := v.(string); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, nil
		}
	}
	return cast.ToInt64E(v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case *decimal.Decimal:
		return *d, nil
	case string:
		return decimal.NewFromString(d)
	case float32:
		return decimal.NewFromFloat32(d), nil
	case float64:
		return decimal.NewFromFloat(d), nil
	case bool:
		if d {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(i), nil
}
