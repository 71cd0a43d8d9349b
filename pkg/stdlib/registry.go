// Package stdlib implements the functions callable from computed-column
// expressions.
package stdlib

import (
	"fmt"
	"sort"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// StdlibFunc is a standard library function signature.
type StdlibFunc func(args []types.Value) (types.Value, error)

// Registry holds all standard library functions and resolves calls made by
// the evaluator.
type Registry struct {
	funcs map[string]StdlibFunc
}

// NewRegistry creates a new stdlib registry with all built-in functions registered.
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]StdlibFunc),
	}
	r.registerExpressionHelpers()
	r.registerMath()
	r.registerText()
	return r
}

// CallFunction calls the named function.
func (r *Registry) CallFunction(name string, args []types.Value) (types.Value, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return types.Null, types.NewKeyError(fmt.Sprintf("unknown function '%s'", name))
	}
	return fn(args)
}

// Has reports whether a function is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Register adds a function to the registry.
func (r *Registry) Register(name string, fn StdlibFunc) {
	r.funcs[name] = fn
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// requireArgs checks that the number of args is in range. A max of -1
// means no upper bound.
func requireArgs(name string, args []types.Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return types.NewArgumentError(fmt.Sprintf("%s expects %d argument(s), got %d", name, min, len(args)))
		case max < 0:
			return types.NewArgumentError(fmt.Sprintf("%s expects at least %d argument(s), got %d", name, min, len(args)))
		}
		return types.NewArgumentError(fmt.Sprintf("%s expects %d-%d arguments, got %d", name, min, max, len(args)))
	}
	return nil
}

// requireNumbers converts every argument to float64 or fails with a
// TypeError naming the function.
func requireNumbers(name string, args []types.Value) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		n, ok := a.AsNumber()
		if !ok {
			return nil, types.NewTypeError(fmt.Sprintf("%s requires number arguments, got %s", name, a.Type()))
		}
		nums[i] = n
	}
	return nums, nil
}

// requireStrings returns every argument as a string or fails with a
// TypeError naming the function.
func requireStrings(name string, args []types.Value) ([]string, error) {
	strs := make([]string, len(args))
	for i, a := range args {
		if a.Type() != types.TypeString {
			return nil, types.NewTypeError(fmt.Sprintf("%s requires string arguments, got %s", name, a.Type()))
		}
		strs[i] = a.AsString()
	}
	return strs, nil
}
