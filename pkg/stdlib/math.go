package stdlib

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// registerMath registers numeric functions.
func (r *Registry) registerMath() {
	r.Register("abs", mathAbs)
	r.Register("floor", mathRounding("floor", math.Floor))
	r.Register("ceil", mathRounding("ceil", math.Ceil))
	r.Register("round", mathRound)
	r.Register("sqrt", mathUnary("sqrt", math.Sqrt))
	r.Register("exp", mathUnary("exp", math.Exp))
	r.Register("log", mathUnary("log", math.Log))
	r.Register("log10", mathUnary("log10", math.Log10))
	r.Register("pow", mathPow)
	r.Register("max", mathExtreme("max", func(a, b float64) bool { return a > b }))
	r.Register("min", mathExtreme("min", func(a, b float64) bool { return a < b }))
	r.Register("clamp", mathClamp)
	r.Register("sign", mathSign)
}

func mathAbs(args []types.Value) (types.Value, error) {
	if err := requireArgs("abs", args, 1, 1); err != nil {
		return types.Null, err
	}
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		i := v.AsInt()
		if i < 0 {
			neg, ok := types.NegInt(i)
			if !ok {
				return types.Null, types.NewOverflowError("abs")
			}
			return types.NewInt(neg), nil
		}
		return v, nil
	case types.TypeDouble:
		return types.NewDouble(math.Abs(v.AsDouble())), nil
	default:
		return types.Null, types.NewTypeError("abs requires a number argument")
	}
}

// mathRounding wraps floor and ceil: ints pass through, doubles become ints.
func mathRounding(name string, fn func(float64) float64) StdlibFunc {
	return func(args []types.Value) (types.Value, error) {
		if err := requireArgs(name, args, 1, 1); err != nil {
			return types.Null, err
		}
		v := args[0]
		switch v.Type() {
		case types.TypeInt:
			return v, nil
		case types.TypeDouble:
			return toInt(name, fn(v.AsDouble()))
		default:
			return types.Null, types.NewTypeError(fmt.Sprintf("%s requires a number argument", name))
		}
	}
}

// mathRound rounds half away from zero. With a digits argument the result
// stays a double.
func mathRound(args []types.Value) (types.Value, error) {
	if err := requireArgs("round", args, 1, 2); err != nil {
		return types.Null, err
	}
	v := args[0]
	if len(args) == 1 {
		switch v.Type() {
		case types.TypeInt:
			return v, nil
		case types.TypeDouble:
			return toInt("round", math.Round(v.AsDouble()))
		}
		return types.Null, types.NewTypeError("round requires a number argument")
	}

	n, ok := v.AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("round requires a number argument")
	}
	if args[1].Type() != types.TypeInt {
		return types.Null, types.NewTypeError("round digits must be an integer")
	}
	scale := math.Pow(10, float64(args[1].AsInt()))
	return types.NewDouble(math.Round(n*scale) / scale), nil
}

func toInt(name string, f float64) (types.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return types.Null, types.NewValueError(fmt.Sprintf("%s: %v does not fit in an int", name, f))
	}
	return types.NewInt(int64(f)), nil
}

// mathUnary wraps a float64 function; the result is always a double.
func mathUnary(name string, fn func(float64) float64) StdlibFunc {
	return func(args []types.Value) (types.Value, error) {
		if err := requireArgs(name, args, 1, 1); err != nil {
			return types.Null, err
		}
		nums, err := requireNumbers(name, args)
		if err != nil {
			return types.Null, err
		}
		if (name == "log" || name == "log10") && nums[0] <= 0 {
			return types.Null, types.NewValueError(fmt.Sprintf("%s of non-positive number %v", name, nums[0]))
		}
		if name == "sqrt" && nums[0] < 0 {
			return types.Null, types.NewValueError(fmt.Sprintf("sqrt of negative number %v", nums[0]))
		}
		return types.NewDouble(fn(nums[0])), nil
	}
}

func mathPow(args []types.Value) (types.Value, error) {
	if err := requireArgs("pow", args, 2, 2); err != nil {
		return types.Null, err
	}
	nums, err := requireNumbers("pow", args)
	if err != nil {
		return types.Null, err
	}
	return types.NewDouble(math.Pow(nums[0], nums[1])), nil
}

// mathExtreme builds max and min. The winning argument is returned as-is,
// keeping its int or double type.
func mathExtreme(name string, better func(a, b float64) bool) StdlibFunc {
	return func(args []types.Value) (types.Value, error) {
		if err := requireArgs(name, args, 1, -1); err != nil {
			return types.Null, err
		}
		nums, err := requireNumbers(name, args)
		if err != nil {
			return types.Null, err
		}
		best := 0
		for i := 1; i < len(nums); i++ {
			if better(nums[i], nums[best]) {
				best = i
			}
		}
		return args[best], nil
	}
}

func mathClamp(args []types.Value) (types.Value, error) {
	if err := requireArgs("clamp", args, 3, 3); err != nil {
		return types.Null, err
	}
	nums, err := requireNumbers("clamp", args)
	if err != nil {
		return types.Null, err
	}
	v, lo, hi := nums[0], nums[1], nums[2]
	if lo > hi {
		return types.Null, types.NewValueError(fmt.Sprintf("clamp: lower bound %v exceeds upper bound %v", lo, hi))
	}
	switch {
	case v < lo:
		return args[1], nil
	case v > hi:
		return args[2], nil
	}
	return args[0], nil
}

func mathSign(args []types.Value) (types.Value, error) {
	if err := requireArgs("sign", args, 1, 1); err != nil {
		return types.Null, err
	}
	nums, err := requireNumbers("sign", args)
	if err != nil {
		return types.Null, err
	}
	switch {
	case nums[0] > 0:
		return types.NewInt(1), nil
	case nums[0] < 0:
		return types.NewInt(-1), nil
	}
	return types.NewInt(0), nil
}
