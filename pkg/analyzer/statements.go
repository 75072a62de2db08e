package analyzer

import (
	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

func (a *Analyzer) checkBlock(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := a.checkStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		call, ok := s.Expression.(*ast.Call)
		if !ok {
			return typeErrorf("Expression statement must be a method call, found %s", s.Expression.NodeType())
		}
		_, err := a.checkExpression(call)
		return err
	case *ast.Declaration:
		return a.checkDeclaration(s)
	case *ast.Assignment:
		return a.checkAssignment(s)
	case *ast.If:
		return a.checkIf(s)
	case *ast.For:
		return a.checkFor(s)
	case *ast.While:
		return a.checkWhile(s)
	case *ast.Return:
		return a.checkReturn(s)
	case nil:
		return typeErrorf("statement is nil")
	}
	return typeErrorf("unsupported statement %s", stmt.NodeType())
}

func (a *Analyzer) checkDeclaration(decl *ast.Declaration) error {
	if decl.TypeName == "" && decl.Value == nil {
		return typeErrorf("Declaration of '%s' needs a type or an initial value", decl.Name)
	}
	var declared *runtime.Type
	if decl.TypeName != "" {
		t, err := a.resolveType(decl.TypeName)
		if err != nil {
			return err
		}
		declared = t
	}
	if decl.Value != nil {
		valueType, err := a.checkExpression(decl.Value)
		if err != nil {
			return err
		}
		if declared == nil {
			declared = valueType
		} else if err := requireAssignable(declared, valueType); err != nil {
			return err
		}
	}
	return a.define(&decl.Variable, decl.Name, declared)
}

func (a *Analyzer) checkAssignment(assign *ast.Assignment) error {
	receiver, ok := assign.Receiver.(*ast.Access)
	if !ok {
		return typeErrorf("Assignment target must be a variable or field, found %s", assign.Receiver.NodeType())
	}
	target, err := a.checkExpression(receiver)
	if err != nil {
		return err
	}
	valueType, err := a.checkExpression(assign.Value)
	if err != nil {
		return err
	}
	return requireAssignable(target, valueType)
}

func (a *Analyzer) checkIf(stmt *ast.If) error {
	if len(stmt.Then) == 0 {
		return typeErrorf("IF statement must have at least one statement in its body")
	}
	if err := a.checkCondition(stmt.Condition); err != nil {
		return err
	}
	if err := a.withChildScope(func() error { return a.checkBlock(stmt.Then) }); err != nil {
		return err
	}
	return a.withChildScope(func() error { return a.checkBlock(stmt.Else) })
}

func (a *Analyzer) checkFor(stmt *ast.For) error {
	if len(stmt.Body) == 0 {
		return typeErrorf("FOR loop must have at least one statement in its body")
	}
	iterType, err := a.checkExpression(stmt.Iterable)
	if err != nil {
		return err
	}
	if err := requireAssignable(runtime.TypeIntegerIterable, iterType); err != nil {
		return err
	}
	return a.withChildScope(func() error {
		v := &runtime.Variable{Name: stmt.Name, Type: runtime.TypeInteger, Value: runtime.NilValue{}}
		if err := a.scope.DefineVariable(v); err != nil {
			return wrap(err)
		}
		return a.checkBlock(stmt.Body)
	})
}

func (a *Analyzer) checkWhile(stmt *ast.While) error {
	if err := a.checkCondition(stmt.Condition); err != nil {
		return err
	}
	return a.withChildScope(func() error { return a.checkBlock(stmt.Body) })
}

func (a *Analyzer) checkCondition(cond ast.Expression) error {
	t, err := a.checkExpression(cond)
	if err != nil {
		return err
	}
	return requireAssignable(runtime.TypeBoolean, t)
}

func (a *Analyzer) checkReturn(stmt *ast.Return) error {
	if a.method == nil {
		return typeErrorf("RETURN outside of a method")
	}
	t, err := a.checkExpression(stmt.Value)
	if err != nil {
		return err
	}
	return requireAssignable(a.method.ReturnType, t)
}
