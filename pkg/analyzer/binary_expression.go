package analyzer

import (
	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

func (a *Analyzer) checkBinary(expr *ast.Binary) (*runtime.Type, error) {
	left, err := a.checkExpression(expr.Left)
	if err != nil {
		return nil, err
	}
	right, err := a.checkExpression(expr.Right)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case "AND", "OR":
		if left != runtime.TypeBoolean || right != runtime.TypeBoolean {
			return nil, typeErrorf("Operator %s requires Boolean operands, found %s and %s", expr.Operator, left, right)
		}
		return runtime.TypeBoolean, nil
	case "<", "<=", ">", ">=", "==", "!=":
		if err := requireAssignable(runtime.TypeComparable, left); err != nil {
			return nil, err
		}
		if err := requireAssignable(runtime.TypeComparable, right); err != nil {
			return nil, err
		}
		return runtime.TypeBoolean, nil
	case "+":
		if left == runtime.TypeString || right == runtime.TypeString {
			return runtime.TypeString, nil
		}
		return numericResult(expr.Operator, left, right)
	case "-", "*", "/":
		return numericResult(expr.Operator, left, right)
	}
	return nil, typeErrorf("Unknown binary operator '%s'", expr.Operator)
}

// numericResult requires both operands to share one numeric type.
func numericResult(op string, left, right *runtime.Type) (*runtime.Type, error) {
	if !isNumeric(left) || left != right {
		return nil, typeErrorf("Operator %s requires matching Integer or Decimal operands, found %s and %s", op, left, right)
	}
	return left, nil
}
