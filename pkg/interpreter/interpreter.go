package interpreter

import (
	"context"
	"errors"
	"fmt"

	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/runtime"
)

// RuntimeError reports a failure while evaluating an analyzed program.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return "runtime error: " + e.Message
}

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// asRuntimeError keeps RuntimeErrors and StackErrors intact and wraps
// anything else a scope or builtin returned.
func asRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return err
	}
	return &RuntimeError{Message: err.Error()}
}

// StackError attaches the active method calls to a runtime failure.
// Frames lists method names innermost first.
type StackError struct {
	Err    error
	Frames []string
}

func (e *StackError) Error() string {
	return e.Err.Error()
}

func (e *StackError) Unwrap() error {
	return e.Err
}

// Trace returns one "  at <method>" line per frame, innermost first.
func (e *StackError) Trace() []string {
	lines := make([]string, len(e.Frames))
	for idx, frame := range e.Frames {
		lines[idx] = "  at " + frame
	}
	return lines
}

// Interpreter evaluates analyzed programs against a runtime scope tree.
type Interpreter struct {
	base     *runtime.Scope
	ctx      context.Context
	maxDepth int
	stack    []string
}

type Option func(*Interpreter)

// WithMaxCallDepth bounds method-call nesting. Zero means unlimited.
func WithMaxCallDepth(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxDepth = n
		}
	}
}

// New returns an interpreter whose programs see the bindings of base.
// Functions in base must carry an Invoke implementation to be callable.
func New(base *runtime.Scope, opts ...Option) *Interpreter {
	if base == nil {
		base = runtime.NewScope()
	}
	i := &Interpreter{base: base, ctx: context.Background()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run defines src's fields and methods in a program frame under the base
// scope and returns the result of calling main(). src must have passed
// analysis.
func (i *Interpreter) Run(ctx context.Context, src *ast.Source) (runtime.Value, error) {
	if src == nil {
		return nil, runtimeErrorf("source is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	i.ctx = ctx
	i.stack = i.stack[:0]

	program := i.base.Extend()
	defer program.Release()

	for _, field := range src.Fields {
		if err := i.defineField(field, program); err != nil {
			return nil, err
		}
	}
	for _, method := range src.Methods {
		if err := i.defineMethod(method, program); err != nil {
			return nil, err
		}
	}
	main, err := program.LookupFunction("main", 0)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return main.Invoke(nil)
}

func (i *Interpreter) defineField(field *ast.Field, scope *runtime.Scope) error {
	var value runtime.Value = runtime.NilValue{}
	if field.Value != nil {
		v, err := i.evaluateExpression(field.Value, scope)
		if err != nil {
			return err
		}
		value = v
	}
	return define(scope, field.Name, staticType(&field.Variable), value)
}

func (i *Interpreter) defineMethod(method *ast.Method, scope *runtime.Scope) error {
	static, ok := method.Function.Get()
	if !ok {
		return runtimeErrorf("method '%s' has not been analyzed", method.Name)
	}
	fn := &runtime.Function{
		Name:       method.Name,
		ParamTypes: static.ParamTypes,
		ReturnType: static.ReturnType,
	}
	fn.Invoke = func(args []runtime.Value) (runtime.Value, error) {
		return i.callMethod(method, fn, scope, args)
	}
	return asRuntimeError(scope.DefineFunction(fn))
}

// callMethod binds the parameters in one frame under the defining scope and
// runs the body in a nested frame. Both are popped on every exit path.
func (i *Interpreter) callMethod(method *ast.Method, fn *runtime.Function, defScope *runtime.Scope, args []runtime.Value) (runtime.Value, error) {
	if err := i.checkInterrupt(); err != nil {
		return nil, err
	}
	if len(args) != len(method.Parameters) {
		return nil, runtimeErrorf("method '%s' expects %d arguments, got %d", method.Name, len(method.Parameters), len(args))
	}
	if i.maxDepth > 0 && len(i.stack) >= i.maxDepth {
		return nil, i.withStack(runtimeErrorf("maximum call depth %d exceeded", i.maxDepth))
	}
	i.stack = append(i.stack, method.Name)
	defer func() { i.stack = i.stack[:len(i.stack)-1] }()

	params := defScope.Extend()
	defer params.Release()
	for idx, name := range method.Parameters {
		if err := define(params, name, fn.ParamTypes[idx], args[idx]); err != nil {
			return nil, i.withStack(err)
		}
	}

	body := params.Extend()
	defer body.Release()
	res, err := i.executeBlock(method.Body, body)
	if err != nil {
		return nil, i.withStack(err)
	}
	if res.returning {
		return res.value, nil
	}
	return runtime.NilValue{}, nil
}

// withStack snapshots the active calls onto err unless an inner call did.
func (i *Interpreter) withStack(err error) error {
	var stackErr *StackError
	if errors.As(err, &stackErr) {
		return err
	}
	frames := make([]string, len(i.stack))
	for idx, name := range i.stack {
		frames[len(i.stack)-1-idx] = name
	}
	return &StackError{Err: asRuntimeError(err), Frames: frames}
}

func (i *Interpreter) checkInterrupt() error {
	if err := i.ctx.Err(); err != nil {
		return runtimeErrorf("execution interrupted: %v", err)
	}
	return nil
}

func define(scope *runtime.Scope, name string, t *runtime.Type, value runtime.Value) error {
	return asRuntimeError(scope.DefineVariable(&runtime.Variable{Name: name, Type: t, Value: value}))
}

// staticType reads the analyzer's binding, falling back to Any.
func staticType(slot *ast.Slot[*runtime.Variable]) *runtime.Type {
	if v, ok := slot.Get(); ok && v != nil {
		return v.Type
	}
	return runtime.TypeAny
}
