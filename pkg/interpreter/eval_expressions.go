package interpreter

import (
	"errors"
	"math/big"

	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, scope *runtime.Scope) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.NilLiteral:
		return runtime.NilValue{}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.IntegerLiteral:
		return runtime.IntegerValue{Val: new(big.Int).Set(n.Value)}, nil
	case *ast.DecimalLiteral:
		return runtime.DecimalValue{Val: n.Value}, nil
	case *ast.CharacterLiteral:
		return runtime.CharValue{Val: n.Value}, nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.Group:
		return i.evaluateExpression(n.Expression, scope)
	case *ast.Binary:
		return i.evaluateBinaryExpression(n, scope)
	case *ast.Access:
		return i.evaluateAccess(n, scope)
	case *ast.Call:
		return i.evaluateCall(n, scope)
	case nil:
		return nil, runtimeErrorf("expression is nil")
	default:
		return nil, runtimeErrorf("unsupported expression type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateAccess(access *ast.Access, scope *runtime.Scope) (runtime.Value, error) {
	lookup := scope
	if access.Receiver != nil {
		obj, err := i.evaluateStruct(access.Receiver, scope)
		if err != nil {
			return nil, err
		}
		lookup = obj.Scope
	}
	v, err := lookup.LookupVariable(access.Name)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return v.Value, nil
}

// evaluateCall dispatches free calls through the scope chain and receiver
// calls through the receiver's private scope, receiver first.
func (i *Interpreter) evaluateCall(call *ast.Call, scope *runtime.Scope) (runtime.Value, error) {
	var fn *runtime.Function
	var args []runtime.Value
	if call.Receiver != nil {
		obj, err := i.evaluateStruct(call.Receiver, scope)
		if err != nil {
			return nil, err
		}
		fn, err = obj.Scope.LookupFunction(call.Name, len(call.Arguments)+1)
		if err != nil {
			return nil, asRuntimeError(err)
		}
		args = append(args, obj)
	} else {
		var err error
		fn, err = scope.LookupFunction(call.Name, len(call.Arguments))
		if err != nil {
			return nil, asRuntimeError(err)
		}
	}
	for _, arg := range call.Arguments {
		val, err := i.evaluateExpression(arg, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	if fn.Invoke == nil {
		return nil, runtimeErrorf("function '%s' has no implementation", fn)
	}
	if err := i.checkInterrupt(); err != nil {
		return nil, err
	}
	result, err := fn.Invoke(args)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	if result == nil {
		return runtime.NilValue{}, nil
	}
	return result, nil
}

func (i *Interpreter) evaluateStruct(expr ast.Expression, scope *runtime.Scope) (*runtime.StructValue, error) {
	val, err := i.evaluateExpression(expr, scope)
	if err != nil {
		return nil, err
	}
	obj, ok := val.(*runtime.StructValue)
	if !ok {
		return nil, runtimeErrorf("expected a struct value, got %s", kindName(val))
	}
	return obj, nil
}

func (i *Interpreter) evaluateBinaryExpression(expr *ast.Binary, scope *runtime.Scope) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, scope)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "OR":
		l, err := asBool(expr.Operator, left)
		if err != nil {
			return nil, err
		}
		if l {
			return runtime.BoolValue{Val: true}, nil
		}
		right, err := i.evaluateExpression(expr.Right, scope)
		if err != nil {
			return nil, err
		}
		r, err := asBool(expr.Operator, right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: r}, nil
	}

	right, err := i.evaluateExpression(expr.Right, scope)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "AND":
		// Both sides always run, and the result is their equality.
		l, err := asBool(expr.Operator, left)
		if err != nil {
			return nil, err
		}
		r, err := asBool(expr.Operator, right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: l == r}, nil
	case "==":
		return runtime.BoolValue{Val: runtime.Equal(left, right)}, nil
	case "!=":
		return runtime.BoolValue{Val: !runtime.Equal(left, right)}, nil
	case "<", "<=", ">", ">=":
		return evaluateComparison(expr.Operator, left, right)
	case "+", "-", "*", "/":
		return evaluateArithmetic(expr.Operator, left, right)
	}
	return nil, runtimeErrorf("unsupported binary operator %s", expr.Operator)
}

func asBool(op string, v runtime.Value) (bool, error) {
	b, ok := v.(runtime.BoolValue)
	if !ok {
		return false, runtimeErrorf("%s requires boolean operands, got %s", op, kindName(v))
	}
	return b.Val, nil
}

func evaluateComparison(op string, left, right runtime.Value) (runtime.Value, error) {
	cmp, err := runtime.Compare(left, right)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	var result bool
	switch op {
	case "<":
		result = cmp < 0
	case "<=":
		result = cmp <= 0
	case ">":
		result = cmp > 0
	case ">=":
		result = cmp >= 0
	}
	return runtime.BoolValue{Val: result}, nil
}

func evaluateArithmetic(op string, left, right runtime.Value) (runtime.Value, error) {
	if op == "+" {
		_, ls := left.(runtime.StringValue)
		_, rs := right.(runtime.StringValue)
		if ls || rs {
			return runtime.StringValue{Val: runtime.Display(left) + runtime.Display(right)}, nil
		}
	}
	switch l := left.(type) {
	case runtime.IntegerValue:
		r, ok := right.(runtime.IntegerValue)
		if !ok {
			break
		}
		switch op {
		case "+":
			return runtime.IntegerValue{Val: new(big.Int).Add(l.Val, r.Val)}, nil
		case "-":
			return runtime.IntegerValue{Val: new(big.Int).Sub(l.Val, r.Val)}, nil
		case "*":
			return runtime.IntegerValue{Val: new(big.Int).Mul(l.Val, r.Val)}, nil
		case "/":
			q, err := runtime.DivideInteger(l.Val, r.Val)
			if err != nil {
				return nil, divisionError(err)
			}
			return runtime.IntegerValue{Val: q}, nil
		}
	case runtime.DecimalValue:
		r, ok := right.(runtime.DecimalValue)
		if !ok {
			break
		}
		switch op {
		case "+":
			return runtime.DecimalValue{Val: l.Val.Add(r.Val)}, nil
		case "-":
			return runtime.DecimalValue{Val: l.Val.Sub(r.Val)}, nil
		case "*":
			return runtime.DecimalValue{Val: l.Val.Mul(r.Val)}, nil
		case "/":
			q, err := runtime.DivideDecimal(l.Val, r.Val)
			if err != nil {
				return nil, divisionError(err)
			}
			return runtime.DecimalValue{Val: q}, nil
		}
	}
	return nil, runtimeErrorf("operator %s is not supported for %s and %s", op, kindName(left), kindName(right))
}

func divisionError(err error) error {
	if errors.Is(err, runtime.ErrDivisionByZero) {
		return runtimeErrorf("Division by zero")
	}
	return asRuntimeError(err)
}

func kindName(v runtime.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
