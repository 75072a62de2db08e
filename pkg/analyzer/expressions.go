package analyzer

import (
	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

// checkExpression resolves expr's type and records it on the node.
func (a *Analyzer) checkExpression(expr ast.Expression) (*runtime.Type, error) {
	if expr == nil {
		return nil, typeErrorf("expression is nil")
	}
	t, err := a.expressionType(expr)
	if err != nil {
		return nil, err
	}
	if err := expr.ResolvedType().Set(t); err != nil {
		return nil, typeErrorf("%s already analyzed: %v", expr.NodeType(), err)
	}
	return t, nil
}

func (a *Analyzer) expressionType(expr ast.Expression) (*runtime.Type, error) {
	switch e := expr.(type) {
	case ast.Literal:
		return a.checkLiteral(e)
	case *ast.Group:
		inner, ok := e.Expression.(*ast.Binary)
		if !ok {
			return nil, typeErrorf("Grouped expression must be a binary expression, found %s", e.Expression.NodeType())
		}
		return a.checkExpression(inner)
	case *ast.Binary:
		return a.checkBinary(e)
	case *ast.Access:
		return a.checkAccess(e)
	case *ast.Call:
		return a.checkCall(e)
	}
	return nil, typeErrorf("unsupported expression %s", expr.NodeType())
}

func (a *Analyzer) checkAccess(access *ast.Access) (*runtime.Type, error) {
	scope := a.scope
	if access.Receiver != nil {
		if _, ok := access.Receiver.(*ast.Access); !ok {
			return nil, typeErrorf("Field receiver must be a variable or field, found %s", access.Receiver.NodeType())
		}
		receiverType, err := a.checkExpression(access.Receiver)
		if err != nil {
			return nil, err
		}
		if receiverType.Fields == nil {
			return nil, typeErrorf("Type '%s' has no field '%s'", receiverType, access.Name)
		}
		scope = receiverType.Fields
	}
	v, err := scope.LookupVariable(access.Name)
	if err != nil {
		return nil, wrap(err)
	}
	if err := access.Variable.Set(v); err != nil {
		return nil, wrap(err)
	}
	return v.Type, nil
}

// checkCall resolves free functions by (name, argument count). Methods on a
// receiver take the receiver as an implicit first parameter, so they are
// found under argument count + 1 and checked from the second parameter on.
func (a *Analyzer) checkCall(call *ast.Call) (*runtime.Type, error) {
	var fn *runtime.Function
	skip := 0
	if call.Receiver != nil {
		receiverType, err := a.checkExpression(call.Receiver)
		if err != nil {
			return nil, err
		}
		if receiverType.Methods == nil {
			return nil, typeErrorf("Type '%s' has no method '%s'", receiverType, call.Name)
		}
		fn, err = receiverType.Methods.LookupFunction(call.Name, len(call.Arguments)+1)
		if err != nil {
			return nil, wrap(err)
		}
		skip = 1
	} else {
		var err error
		fn, err = a.scope.LookupFunction(call.Name, len(call.Arguments))
		if err != nil {
			return nil, wrap(err)
		}
	}

	for i, arg := range call.Arguments {
		argType, err := a.checkExpression(arg)
		if err != nil {
			return nil, err
		}
		if err := requireAssignable(fn.ParamTypes[i+skip], argType); err != nil {
			return nil, err
		}
	}
	if err := call.Function.Set(fn); err != nil {
		return nil, wrap(err)
	}
	return fn.ReturnType, nil
}
