package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/lemonberrylabs/exprtk/pkg/types"
)

// Scope provides column lookup and function resolution for expression evaluation.
type Scope interface {
	// Column returns the value of a column in the current row.
	Column(name string) (types.Value, error)

	// CallFunction calls a named function with the given arguments.
	CallFunction(name string, args []types.Value) (types.Value, error)
}

// Evaluate evaluates an expression node within the given scope. Variables
// declared by the expression live only for this call.
func Evaluate(node Node, scope Scope) (types.Value, error) {
	e := &evaluator{scope: scope, vars: make(map[string]types.Value)}
	return e.eval(node)
}

type evaluator struct {
	scope Scope
	vars  map[string]types.Value
}

func (e *evaluator) eval(node Node) (types.Value, error) {
	switch n := node.(type) {
	case *Program:
		return e.evalProgram(n)
	case *LiteralNode:
		return n.Value, nil
	case *ColumnNode:
		return e.scope.Column(n.Name)
	case *IdentNode:
		v, ok := e.vars[n.Name]
		if !ok {
			return types.Null, types.NewKeyError(fmt.Sprintf("unknown variable '%s'", n.Name))
		}
		return v, nil
	case *BinaryNode:
		return e.evalBinary(n)
	case *UnaryNode:
		return e.evalUnary(n)
	case *IndexNode:
		return e.evalIndex(n)
	case *CallNode:
		return e.evalCall(n)
	case *ListNode:
		return e.evalList(n)
	case *InNode:
		return e.evalIn(n)
	case *ConditionalNode:
		return e.evalConditional(n)
	case *AssignNode:
		return e.evalAssign(n)
	default:
		return types.Null, fmt.Errorf("unsupported expression node type: %T", node)
	}
}

func (e *evaluator) evalProgram(n *Program) (types.Value, error) {
	result := types.Null
	for _, stmt := range n.Statements {
		v, err := e.eval(stmt)
		if err != nil {
			return types.Null, err
		}
		result = v
	}
	return result, nil
}

func (e *evaluator) evalAssign(n *AssignNode) (types.Value, error) {
	_, declared := e.vars[n.Name]
	if n.Declare && declared {
		return types.Null, types.NewValueError(fmt.Sprintf("variable '%s' is already declared", n.Name))
	}
	if !n.Declare && !declared {
		return types.Null, types.NewKeyError(fmt.Sprintf("variable '%s' is not declared", n.Name))
	}

	value := types.Null
	if n.Value != nil {
		v, err := e.eval(n.Value)
		if err != nil {
			return types.Null, err
		}
		value = v
	}

	if n.Op != ":=" {
		combined, err := binaryOp(strings.TrimSuffix(n.Op, "="), e.vars[n.Name], value)
		if err != nil {
			return types.Null, err
		}
		value = combined
	}
	e.vars[n.Name] = value
	return value, nil
}

func (e *evaluator) evalBinary(n *BinaryNode) (types.Value, error) {
	// Short-circuit for logical operators
	if n.Op == "and" || n.Op == "or" {
		left, err := e.eval(n.Left)
		if err != nil {
			return types.Null, err
		}
		if (n.Op == "and") != left.Truthy() {
			return left, nil
		}
		return e.eval(n.Right)
	}

	left, err := e.eval(n.Left)
	if err != nil {
		return types.Null, err
	}
	right, err := e.eval(n.Right)
	if err != nil {
		return types.Null, err
	}
	return binaryOp(n.Op, left, right)
}

func binaryOp(op string, left, right types.Value) (types.Value, error) {
	switch op {
	case "+":
		return evalAdd(left, right)
	case "-":
		return evalArith(op, left, right, types.SubInt,
			func(a, b float64) float64 { return a - b })
	case "*":
		return evalArith(op, left, right, types.MulInt,
			func(a, b float64) float64 { return a * b })
	case "/":
		return evalDivide(left, right)
	case "%":
		return evalModulo(left, right)
	case "^":
		return evalPower(left, right)
	case "==":
		return types.NewBool(left.Equal(right)), nil
	case "!=":
		return types.NewBool(!left.Equal(right)), nil
	case "<":
		return evalCompare(left, right, func(c int) bool { return c < 0 })
	case ">":
		return evalCompare(left, right, func(c int) bool { return c > 0 })
	case "<=":
		return evalCompare(left, right, func(c int) bool { return c <= 0 })
	case ">=":
		return evalCompare(left, right, func(c int) bool { return c >= 0 })
	default:
		return types.Null, fmt.Errorf("unsupported binary operator: %s", op)
	}
}

func evalAdd(left, right types.Value) (types.Value, error) {
	if left.Type() == types.TypeString && right.Type() == types.TypeString {
		return types.NewString(left.AsString() + right.AsString()), nil
	}
	if left.Type() == types.TypeString || right.Type() == types.TypeString {
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unsupported operand types for +: %s and %s (use string() to convert)", left.Type(), right.Type()))
	}
	if left.Type() == types.TypeList && right.Type() == types.TypeList {
		result := make([]types.Value, 0, len(left.AsList())+len(right.AsList()))
		result = append(result, left.AsList()...)
		result = append(result, right.AsList()...)
		return types.NewList(result), nil
	}
	return evalArith("+", left, right, types.AddInt,
		func(a, b float64) float64 { return a + b })
}

func evalArith(op string, left, right types.Value, intOp func(int64, int64) (int64, bool), floatOp func(float64, float64) float64) (types.Value, error) {
	if left.Type() == types.TypeInt && right.Type() == types.TypeInt {
		r, ok := intOp(left.AsInt(), right.AsInt())
		if !ok {
			return types.Null, types.NewOverflowError(op)
		}
		return types.NewInt(r), nil
	}

	a, aOk := left.AsNumber()
	b, bOk := right.AsNumber()
	if !aOk || !bOk {
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unsupported operand types for %s: %s and %s", op, left.Type(), right.Type()))
	}

	return types.NewDouble(floatOp(a, b)), nil
}

func evalDivide(left, right types.Value) (types.Value, error) {
	a, aOk := left.AsNumber()
	b, bOk := right.AsNumber()
	if !aOk || !bOk {
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unsupported operand types for /: %s and %s", left.Type(), right.Type()))
	}
	if b == 0 {
		return types.Null, types.NewZeroDivisionError()
	}
	// Division always returns double
	return types.NewDouble(a / b), nil
}

func evalModulo(left, right types.Value) (types.Value, error) {
	if left.Type() == types.TypeInt && right.Type() == types.TypeInt {
		if right.AsInt() == 0 {
			return types.Null, types.NewZeroDivisionError()
		}
		return types.NewInt(left.AsInt() % right.AsInt()), nil
	}

	a, aOk := left.AsNumber()
	b, bOk := right.AsNumber()
	if !aOk || !bOk {
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unsupported operand types for %%: %s and %s", left.Type(), right.Type()))
	}
	if b == 0 {
		return types.Null, types.NewZeroDivisionError()
	}
	return types.NewDouble(math.Mod(a, b)), nil
}

func evalPower(left, right types.Value) (types.Value, error) {
	if left.Type() == types.TypeInt && right.Type() == types.TypeInt && right.AsInt() >= 0 {
		result, ok := types.PowInt(left.AsInt(), right.AsInt())
		if !ok {
			return types.Null, types.NewOverflowError("^")
		}
		return types.NewInt(result), nil
	}

	a, aOk := left.AsNumber()
	b, bOk := right.AsNumber()
	if !aOk || !bOk {
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unsupported operand types for ^: %s and %s", left.Type(), right.Type()))
	}
	return types.NewDouble(math.Pow(a, b)), nil
}

func evalCompare(left, right types.Value, test func(int) bool) (types.Value, error) {
	cmp, err := Compare(left, right)
	if err != nil {
		return types.Null, err
	}
	return types.NewBool(test(cmp)), nil
}

// Compare returns negative, zero, or positive for ordering. Numbers compare
// numerically across int and double; strings compare lexicographically.
func Compare(a, b types.Value) (int, error) {
	an, aNum := a.AsNumber()
	bn, bNum := b.AsNumber()
	if aNum && bNum {
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		}
		return 0, nil
	}

	if a.Type() == types.TypeString && b.Type() == types.TypeString {
		return strings.Compare(a.AsString(), b.AsString()), nil
	}

	return 0, types.NewTypeError(
		fmt.Sprintf("cannot compare %s and %s", a.Type(), b.Type()))
}

func (e *evaluator) evalUnary(n *UnaryNode) (types.Value, error) {
	operand, err := e.eval(n.Operand)
	if err != nil {
		return types.Null, err
	}

	switch n.Op {
	case "-":
		switch operand.Type() {
		case types.TypeInt:
			neg, ok := types.NegInt(operand.AsInt())
			if !ok {
				return types.Null, types.NewOverflowError("unary -")
			}
			return types.NewInt(neg), nil
		case types.TypeDouble:
			return types.NewDouble(-operand.AsDouble()), nil
		}
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unary minus not supported for %s", operand.Type()))
	case "+":
		if _, ok := operand.AsNumber(); ok {
			return operand, nil
		}
		return types.Null, types.NewTypeError(
			fmt.Sprintf("unary plus not supported for %s", operand.Type()))
	case "not":
		return types.NewBool(!operand.Truthy()), nil
	default:
		return types.Null, fmt.Errorf("unsupported unary operator: %s", n.Op)
	}
}

func (e *evaluator) evalIndex(n *IndexNode) (types.Value, error) {
	obj, err := e.eval(n.Object)
	if err != nil {
		return types.Null, err
	}

	idx, err := e.eval(n.Index)
	if err != nil {
		return types.Null, err
	}

	switch obj.Type() {
	case types.TypeList:
		if idx.Type() != types.TypeInt {
			return types.Null, types.NewTypeError("list index must be an integer")
		}
		list := obj.AsList()
		i := int(idx.AsInt())
		if i < 0 {
			i += len(list)
		}
		if i < 0 || i >= len(list) {
			return types.Null, types.NewIndexError(
				fmt.Sprintf("list index %d out of range (length %d)", idx.AsInt(), len(list)))
		}
		return list[i], nil

	case types.TypeMap:
		if idx.Type() != types.TypeString {
			return types.Null, types.NewTypeError("map key must be a string")
		}
		val, ok := obj.AsMap().Get(idx.AsString())
		if !ok {
			return types.Null, types.NewMissingKeyError(
				fmt.Sprintf("key '%s' not found in map", idx.AsString()))
		}
		return val, nil

	case types.TypeString:
		if idx.Type() != types.TypeInt {
			return types.Null, types.NewTypeError("string index must be an integer")
		}
		s := []rune(obj.AsString())
		i := int(idx.AsInt())
		if i < 0 {
			i += len(s)
		}
		if i < 0 || i >= len(s) {
			return types.Null, types.NewIndexError(
				fmt.Sprintf("string index %d out of range (length %d)", idx.AsInt(), len(s)))
		}
		return types.NewString(string(s[i])), nil

	default:
		return types.Null, types.NewTypeError(
			fmt.Sprintf("cannot index %s", obj.Type()))
	}
}

func (e *evaluator) evalCall(n *CallNode) (types.Value, error) {
	args := make([]types.Value, len(n.Args))
	for i, arg := range n.Args {
		val, err := e.eval(arg)
		if err != nil {
			return types.Null, err
		}
		args[i] = val
	}
	return e.scope.CallFunction(n.Name, args)
}

func (e *evaluator) evalList(n *ListNode) (types.Value, error) {
	elements := make([]types.Value, len(n.Elements))
	for i, elem := range n.Elements {
		val, err := e.eval(elem)
		if err != nil {
			return types.Null, err
		}
		elements[i] = val
	}
	return types.NewList(elements), nil
}

func (e *evaluator) evalIn(n *InNode) (types.Value, error) {
	val, err := e.eval(n.Value)
	if err != nil {
		return types.Null, err
	}
	container, err := e.eval(n.Container)
	if err != nil {
		return types.Null, err
	}

	var found bool
	switch container.Type() {
	case types.TypeList:
		for _, item := range container.AsList() {
			if val.Equal(item) {
				found = true
				break
			}
		}
	case types.TypeMap:
		if val.Type() != types.TypeString {
			return types.Null, types.NewTypeError("'in' on map requires string key")
		}
		_, found = container.AsMap().Get(val.AsString())
	case types.TypeString:
		if val.Type() != types.TypeString {
			return types.Null, types.NewTypeError("'in' on string requires string operand")
		}
		found = strings.Contains(container.AsString(), val.AsString())
	default:
		return types.Null, types.NewTypeError(
			fmt.Sprintf("'in' not supported for %s", container.Type()))
	}

	if n.Negated {
		found = !found
	}
	return types.NewBool(found), nil
}

func (e *evaluator) evalConditional(n *ConditionalNode) (types.Value, error) {
	cond, err := e.eval(n.Cond)
	if err != nil {
		return types.Null, err
	}
	if cond.Truthy() {
		return e.eval(n.Then)
	}
	if n.Else == nil {
		return types.Null, nil
	}
	return e.eval(n.Else)
}
