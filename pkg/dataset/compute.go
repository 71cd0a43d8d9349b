package dataset

import (
	"errors"
	"fmt"

	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// Functions resolves function calls made by expressions.
type Functions interface {
	CallFunction(name string, args []types.Value) (types.Value, error)
	Has(name string) bool
}

// Definition names a computed column and the expression producing it.
type Definition struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

// ComputeError reports which definition failed and, for evaluation
// failures, on which row. Row is -1 when parsing failed.
type ComputeError struct {
	Column string
	Row    int
	Err    error
}

func (e *ComputeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("column %q, row %d: %v", e.Column, e.Row, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// rowScope resolves column references against a single row. A column in
// known that the row omits reads as null.
type rowScope struct {
	row   *types.OrderedMap
	known Schema
	funcs Functions
}

func (s *rowScope) Column(name string) (types.Value, error) {
	if v, ok := s.row.Get(name); ok {
		return v, nil
	}
	if _, ok := s.known[name]; ok {
		return types.Null, nil
	}
	return types.Null, types.NewKeyError(fmt.Sprintf("unknown column '%s'", name))
}

func (s *rowScope) CallFunction(name string, args []types.Value) (types.Value, error) {
	return s.funcs.CallFunction(name, args)
}

// checkName rejects a definition that has no name or would overwrite a
// column already in known.
func checkName(d Definition, known Schema) error {
	if d.Name == "" {
		return errors.New("computed column needs a name")
	}
	if _, ok := known[d.Name]; ok {
		return errors.New("column already exists")
	}
	return nil
}

// Compute returns a copy of t with one column appended per definition.
// Every definition is parsed once before any row is evaluated, with sources
// longer than maxLength runes rejected (0 disables the limit). Definitions
// are applied in order, so a later one may reference an earlier one.
func Compute(t *Table, defs []Definition, funcs Functions, maxLength int) (*Table, error) {
	known := t.Schema()

	programs := make([]*expr.Program, len(defs))
	for i, d := range defs {
		if err := checkName(d, known); err != nil {
			return nil, &ComputeError{Column: d.Name, Row: -1, Err: err}
		}
		prog, err := expr.ParseExpressionLimit(d.Expression, maxLength)
		if err != nil {
			return nil, &ComputeError{Column: d.Name, Row: -1, Err: err}
		}
		programs[i] = prog
		known[d.Name] = types.TypeNull
	}

	out := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([]*types.OrderedMap, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}

	for i, d := range defs {
		col := Column{Name: d.Name, Type: types.TypeNull}
		for n, row := range out.Rows {
			v, err := expr.Evaluate(programs[i], &rowScope{row: row, known: known, funcs: funcs})
			if err != nil {
				return nil, &ComputeError{Column: d.Name, Row: n, Err: err}
			}
			if col.Type == types.TypeNull {
				col.Type = v.Type()
			}
			row.Set(d.Name, v)
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// Validation is the outcome of checking one definition without data.
type Validation struct {
	Name    string           `json:"name"`
	Type    string           `json:"type,omitempty"`
	Columns []string         `json:"columns"`
	Error   *ValidationError `json:"error,omitempty"`
}

// ValidationError describes why a definition is invalid. Position is set
// when the failure comes from lexing or parsing.
type ValidationError struct {
	Message  string          `json:"message"`
	Position *token.Position `json:"position,omitempty"`
}

// Validate checks each definition against schema: it needs a name that is
// not already a column, must lex and parse within maxLength runes (0 for no
// limit), reference only known columns, and call only known functions. The
// result type is inferred by evaluating against a sample row. Later
// definitions may reference earlier valid ones.
func Validate(defs []Definition, schema Schema, funcs Functions, maxLength int) []Validation {
	known := make(Schema, len(schema)+len(defs))
	for k, v := range schema {
		known[k] = v
	}

	results := make([]Validation, 0, len(defs))
	for _, d := range defs {
		v := validateOne(d, known, funcs, maxLength)
		if v.Error == nil {
			typ, _ := types.ParseValueType(v.Type)
			known[d.Name] = typ
		}
		results = append(results, v)
	}
	return results
}

func validateOne(d Definition, schema Schema, funcs Functions, maxLength int) Validation {
	v := Validation{Name: d.Name, Columns: []string{}}

	if err := checkName(d, schema); err != nil {
		v.Error = &ValidationError{Message: err.Error()}
		return v
	}

	prog, err := expr.ParseExpressionLimit(d.Expression, maxLength)
	if err != nil {
		v.Error = &ValidationError{Message: err.Error()}
		if pos, ok := expr.ErrorPosition(err); ok {
			v.Error.Position = &pos
		}
		return v
	}

	v.Columns = append(v.Columns, expr.Columns(prog)...)
	for _, c := range v.Columns {
		if _, ok := schema[c]; !ok {
			v.Error = &ValidationError{Message: fmt.Sprintf("unknown column '%s'", c)}
			return v
		}
	}
	for _, f := range expr.Functions(prog) {
		if !funcs.Has(f) {
			v.Error = &ValidationError{Message: fmt.Sprintf("unknown function '%s'", f)}
			return v
		}
	}

	sample := types.NewOrderedMap()
	for name, typ := range schema {
		sample.Set(name, sampleValue(typ))
	}
	result, err := expr.Evaluate(prog, &rowScope{row: sample, funcs: funcs})
	if err != nil {
		var evalErr *types.EvalError
		if errors.As(err, &evalErr) && sampleDependent(evalErr) {
			return v
		}
		v.Error = &ValidationError{Message: err.Error()}
		return v
	}
	v.Type = result.Type().String()
	return v
}

// sampleDependent reports whether err comes from the sample row's values
// rather than from the expression itself.
func sampleDependent(err *types.EvalError) bool {
	return err.HasTag(types.TagZeroDivisionError) ||
		err.HasTag(types.TagValueError) ||
		err.HasTag(types.TagLookupError)
}

func sampleValue(t types.ValueType) types.Value {
	switch t {
	case types.TypeInt:
		return types.NewInt(1)
	case types.TypeDouble:
		return types.NewDouble(1)
	case types.TypeString:
		return types.NewString("a")
	}
	return t.Zero()
}
