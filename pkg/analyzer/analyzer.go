package analyzer

import (
	"errors"
	"fmt"

	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

// TypeError reports the first static violation found. It carries no
// offset; analysis errors describe structure, not positions.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return "type error: " + e.Message
}

func typeErrorf(format string, args ...any) error {
	return &TypeError{Message: fmt.Sprintf(format, args...)}
}

// wrap turns a scope or type-table failure into a TypeError.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var typeErr *TypeError
	if errors.As(err, &typeErr) {
		return err
	}
	return &TypeError{Message: err.Error()}
}

// Analyzer resolves names and types and annotates the tree in place.
type Analyzer struct {
	base   *runtime.Scope
	types  *runtime.TypeTable
	scope  *runtime.Scope
	method *runtime.Function
}

type Option func(*Analyzer)

// WithTypes supplies the type table used to resolve type names.
func WithTypes(types *runtime.TypeTable) Option {
	return func(a *Analyzer) {
		if types != nil {
			a.types = types
		}
	}
}

// New returns an analyzer whose programs see the functions and variables
// of base. A nil base means an empty root scope.
func New(base *runtime.Scope, opts ...Option) *Analyzer {
	if base == nil {
		base = runtime.NewScope()
	}
	a := &Analyzer{base: base, types: runtime.NewTypeTable()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze checks src and attaches type and binding annotations to it.
// Fields and methods live in a program frame nested under the base scope,
// which is released again before Analyze returns.
func (a *Analyzer) Analyze(src *ast.Source) error {
	if src == nil {
		return typeErrorf("source is nil")
	}
	a.scope = a.base
	a.method = nil
	return a.withChildScope(func() error {
		for _, field := range src.Fields {
			if err := a.checkField(field); err != nil {
				return err
			}
		}
		for _, method := range src.Methods {
			if err := a.checkMethod(method); err != nil {
				return err
			}
		}
		return requireMain(src)
	})
}

func requireMain(src *ast.Source) error {
	var mains []*ast.Method
	for _, method := range src.Methods {
		if method.Name == "main" {
			mains = append(mains, method)
		}
	}
	switch {
	case len(mains) == 0:
		return typeErrorf("Program must define a main method")
	case len(mains) > 1:
		return typeErrorf("Program must define exactly one main method")
	case len(mains[0].Parameters) != 0:
		return typeErrorf("Method main must not take parameters")
	}
	return nil
}

// withChildScope runs fn in a fresh frame and always pops it afterwards.
func (a *Analyzer) withChildScope(fn func() error) error {
	parent := a.scope
	child := parent.Extend()
	a.scope = child
	defer func() {
		child.Release()
		a.scope = parent
	}()
	return fn()
}

func (a *Analyzer) resolveType(name string) (*runtime.Type, error) {
	t, err := a.types.Lookup(name)
	return t, wrap(err)
}

func (a *Analyzer) checkField(field *ast.Field) error {
	declared, err := a.resolveType(field.TypeName)
	if err != nil {
		return err
	}
	if field.Value != nil {
		valueType, err := a.checkExpression(field.Value)
		if err != nil {
			return err
		}
		if err := requireAssignable(declared, valueType); err != nil {
			return err
		}
	}
	return a.define(&field.Variable, field.Name, declared)
}

func (a *Analyzer) define(slot *ast.Slot[*runtime.Variable], name string, t *runtime.Type) error {
	v := &runtime.Variable{Name: name, Type: t, Value: runtime.NilValue{}}
	if err := a.scope.DefineVariable(v); err != nil {
		return wrap(err)
	}
	return wrap(slot.Set(v))
}

// checkMethod registers the method before its body is checked, so it can
// call itself but not methods declared after it. An omitted return type
// accepts any returned value.
func (a *Analyzer) checkMethod(method *ast.Method) error {
	paramTypes := make([]*runtime.Type, len(method.ParameterTypes))
	for i, name := range method.ParameterTypes {
		t, err := a.resolveType(name)
		if err != nil {
			return err
		}
		paramTypes[i] = t
	}
	returnType := runtime.TypeAny
	if method.ReturnTypeName != "" {
		t, err := a.resolveType(method.ReturnTypeName)
		if err != nil {
			return err
		}
		returnType = t
	}

	fn := &runtime.Function{Name: method.Name, ParamTypes: paramTypes, ReturnType: returnType}
	if err := a.scope.DefineFunction(fn); err != nil {
		return wrap(err)
	}
	if err := method.Function.Set(fn); err != nil {
		return wrap(err)
	}

	outer := a.method
	a.method = fn
	defer func() { a.method = outer }()

	return a.withChildScope(func() error {
		for i, name := range method.Parameters {
			v := &runtime.Variable{Name: name, Type: paramTypes[i], Value: runtime.NilValue{}}
			if err := a.scope.DefineVariable(v); err != nil {
				return wrap(err)
			}
		}
		return a.withChildScope(func() error {
			return a.checkBlock(method.Body)
		})
	})
}
