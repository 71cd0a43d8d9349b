package stdlib

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// registerExpressionHelpers registers built-in expression helper functions:
// coalesce, is_null, len, type, int, float, string, bool.
func (r *Registry) registerExpressionHelpers() {
	r.Register("coalesce", stdCoalesce)
	r.Register("is_null", stdIsNull)
	r.Register("len", stdLen)
	r.Register("type", stdType)
	r.Register("int", stdInt)
	r.Register("float", stdFloat)
	r.Register("string", stdString)
	r.Register("bool", stdBool)
}

// stdCoalesce returns the first non-null argument, or null.
func stdCoalesce(args []types.Value) (types.Value, error) {
	if err := requireArgs("coalesce", args, 1, -1); err != nil {
		return types.Null, err
	}
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return types.Null, nil
}

func stdIsNull(args []types.Value) (types.Value, error) {
	if err := requireArgs("is_null", args, 1, 1); err != nil {
		return types.Null, err
	}
	return types.NewBool(args[0].IsNull()), nil
}

func stdLen(args []types.Value) (types.Value, error) {
	if err := requireArgs("len", args, 1, 1); err != nil {
		return types.Null, err
	}
	switch args[0].Type() {
	case types.TypeString:
		return types.NewInt(int64(utf8.RuneCountInString(args[0].AsString()))), nil
	case types.TypeList:
		return types.NewInt(int64(len(args[0].AsList()))), nil
	case types.TypeMap:
		return types.NewInt(int64(args[0].AsMap().Len())), nil
	default:
		return types.Null, types.NewTypeError(
			fmt.Sprintf("len() not supported for %s", args[0].Type()))
	}
}

func stdType(args []types.Value) (types.Value, error) {
	if err := requireArgs("type", args, 1, 1); err != nil {
		return types.Null, err
	}
	return types.NewString(args[0].Type().String()), nil
}

func stdInt(args []types.Value) (types.Value, error) {
	if err := requireArgs("int", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		return v, nil
	case types.TypeDouble:
		d := v.AsDouble()
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return types.Null, types.NewValueError(fmt.Sprintf("cannot convert %v to int", d))
		}
		return types.NewInt(int64(d)), nil
	case types.TypeString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.AsString()), 10, 64)
		if err != nil {
			// Try parsing as float first
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
			if ferr != nil {
				return types.Null, types.NewValueError(
					fmt.Sprintf("cannot convert %q to int", v.AsString()))
			}
			return types.NewInt(int64(f)), nil
		}
		return types.NewInt(i), nil
	case types.TypeBool:
		if v.AsBool() {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	default:
		return types.Null, types.NewTypeError(
			fmt.Sprintf("cannot convert %s to int", v.Type()))
	}
}

func stdFloat(args []types.Value) (types.Value, error) {
	if err := requireArgs("float", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeDouble:
		return v, nil
	case types.TypeInt:
		return types.NewDouble(float64(v.AsInt())), nil
	case types.TypeString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
		if err != nil {
			return types.Null, types.NewValueError(
				fmt.Sprintf("cannot convert %q to float", v.AsString()))
		}
		return types.NewDouble(f), nil
	case types.TypeBool:
		if v.AsBool() {
			return types.NewDouble(1.0), nil
		}
		return types.NewDouble(0.0), nil
	default:
		return types.Null, types.NewTypeError(
			fmt.Sprintf("cannot convert %s to float", v.Type()))
	}
}

func stdString(args []types.Value) (types.Value, error) {
	if err := requireArgs("string", args, 1, 1); err != nil {
		return types.Null, err
	}
	if args[0].Type() == types.TypeString {
		return args[0], nil
	}
	return types.NewString(args[0].String()), nil
}

func stdBool(args []types.Value) (types.Value, error) {
	if err := requireArgs("bool", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeBool:
		return v, nil
	case types.TypeInt:
		return types.NewBool(v.AsInt() != 0), nil
	case types.TypeDouble:
		return types.NewBool(v.AsDouble() != 0 && !math.IsNaN(v.AsDouble())), nil
	case types.TypeString:
		return types.NewBool(v.AsString() != ""), nil
	case types.TypeNull:
		return types.NewBool(false), nil
	default:
		return types.NewBool(true), nil
	}
}
