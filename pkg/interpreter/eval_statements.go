package interpreter

import (
	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

// execResult tells the enclosing block whether a RETURN fired.
type execResult struct {
	returning bool
	value     runtime.Value
}

var normal = execResult{}

func (i *Interpreter) executeBlock(stmts []ast.Statement, scope *runtime.Scope) (execResult, error) {
	for _, stmt := range stmts {
		res, err := i.evaluateStatement(stmt, scope)
		if err != nil || res.returning {
			return res, err
		}
	}
	return normal, nil
}

// executeInChild runs stmts in a fresh frame under scope. bind, when set,
// defines frame-local names first.
func (i *Interpreter) executeInChild(stmts []ast.Statement, scope *runtime.Scope, bind func(*runtime.Scope) error) (execResult, error) {
	child := scope.Extend()
	defer child.Release()
	if bind != nil {
		if err := bind(child); err != nil {
			return normal, err
		}
	}
	return i.executeBlock(stmts, child)
}

func (i *Interpreter) evaluateStatement(node ast.Statement, scope *runtime.Scope) (execResult, error) {
	switch n := node.(type) {
	case *ast.ExpressionStatement:
		_, err := i.evaluateExpression(n.Expression, scope)
		return normal, err
	case *ast.Declaration:
		return normal, i.evaluateDeclaration(n, scope)
	case *ast.Assignment:
		return normal, i.evaluateAssignment(n, scope)
	case *ast.If:
		return i.evaluateIf(n, scope)
	case *ast.For:
		return i.evaluateFor(n, scope)
	case *ast.While:
		return i.evaluateWhile(n, scope)
	case *ast.Return:
		val, err := i.evaluateExpression(n.Value, scope)
		if err != nil {
			return normal, err
		}
		return execResult{returning: true, value: val}, nil
	case nil:
		return normal, runtimeErrorf("statement is nil")
	default:
		return normal, runtimeErrorf("unsupported statement type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateDeclaration(decl *ast.Declaration, scope *runtime.Scope) error {
	var value runtime.Value = runtime.NilValue{}
	if decl.Value != nil {
		v, err := i.evaluateExpression(decl.Value, scope)
		if err != nil {
			return err
		}
		value = v
	}
	return define(scope, decl.Name, staticType(&decl.Variable), value)
}

func (i *Interpreter) evaluateAssignment(assign *ast.Assignment, scope *runtime.Scope) error {
	target, ok := assign.Receiver.(*ast.Access)
	if !ok {
		return runtimeErrorf("cannot assign to %s", assign.Receiver.NodeType())
	}
	lookup := scope
	if target.Receiver != nil {
		obj, err := i.evaluateStruct(target.Receiver, scope)
		if err != nil {
			return err
		}
		lookup = obj.Scope
	}
	variable, err := lookup.LookupVariable(target.Name)
	if err != nil {
		return asRuntimeError(err)
	}
	value, err := i.evaluateExpression(assign.Value, scope)
	if err != nil {
		return err
	}
	variable.Value = value
	return nil
}

// evaluateIf runs only the chosen branch, in its own frame.
func (i *Interpreter) evaluateIf(stmt *ast.If, scope *runtime.Scope) (execResult, error) {
	cond, err := i.evaluateCondition(stmt.Condition, scope)
	if err != nil {
		return normal, err
	}
	if cond {
		return i.executeInChild(stmt.Then, scope, nil)
	}
	return i.executeInChild(stmt.Else, scope, nil)
}

// evaluateFor binds the loop variable in a fresh frame per iteration.
func (i *Interpreter) evaluateFor(loop *ast.For, scope *runtime.Scope) (execResult, error) {
	val, err := i.evaluateExpression(loop.Iterable, scope)
	if err != nil {
		return normal, err
	}
	iterable, ok := val.(runtime.IntegerIterable)
	if !ok {
		return normal, runtimeErrorf("FOR expects an integer iterable, got %s", kindName(val))
	}
	it := iterable.Iterate()
	for {
		if err := i.checkInterrupt(); err != nil {
			return normal, err
		}
		n, ok := it.Next()
		if !ok {
			return normal, nil
		}
		res, err := i.executeInChild(loop.Body, scope, func(frame *runtime.Scope) error {
			return define(frame, loop.Name, runtime.TypeInteger, runtime.IntegerValue{Val: n})
		})
		if err != nil || res.returning {
			return res, err
		}
	}
}

func (i *Interpreter) evaluateWhile(loop *ast.While, scope *runtime.Scope) (execResult, error) {
	for {
		if err := i.checkInterrupt(); err != nil {
			return normal, err
		}
		cond, err := i.evaluateCondition(loop.Condition, scope)
		if err != nil {
			return normal, err
		}
		if !cond {
			return normal, nil
		}
		res, err := i.executeInChild(loop.Body, scope, nil)
		if err != nil || res.returning {
			return res, err
		}
	}
}

func (i *Interpreter) evaluateCondition(expr ast.Expression, scope *runtime.Scope) (bool, error) {
	val, err := i.evaluateExpression(expr, scope)
	if err != nil {
		return false, err
	}
	b, ok := val.(runtime.BoolValue)
	if !ok {
		return false, runtimeErrorf("condition must be a boolean, got %s", kindName(val))
	}
	return b.Val, nil
}
