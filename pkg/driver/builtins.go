package driver

import (
	"fmt"
	"io"
	"sort"

	"plc/interpreter-go/pkg/runtime"
)

// Builtin is a host function installed into the base scope.
type Builtin struct {
	Name       string
	ParamTypes []*runtime.Type
	ReturnType *runtime.Type
	// New binds the implementation to the program's output.
	New func(out io.Writer) runtime.Invoker
	// Types are host types the builtin makes nameable in declarations.
	Types []*runtime.Type
}

// pairType is the struct built by pair(first, second). swap exchanges the
// two fields in place.
var pairType = newPairType()

func newPairType() *runtime.Type {
	t := runtime.NewStructType("Pair")
	for _, name := range []string{"first", "second"} {
		if err := t.Fields.DefineVariable(&runtime.Variable{Name: name, Type: runtime.TypeAny}); err != nil {
			panic(err)
		}
	}
	swap := &runtime.Function{
		Name:       "swap",
		ParamTypes: []*runtime.Type{t},
		ReturnType: runtime.TypeNil,
		Invoke: func(args []runtime.Value) (runtime.Value, error) {
			first, second, err := pairFields(args[0], t)
			if err != nil {
				return nil, err
			}
			first.Value, second.Value = second.Value, first.Value
			return runtime.NilValue{}, nil
		},
	}
	if err := t.Methods.DefineFunction(swap); err != nil {
		panic(err)
	}
	return t
}

func pairFields(v runtime.Value, want *runtime.Type) (*runtime.Variable, *runtime.Variable, error) {
	obj, ok := v.(*runtime.StructValue)
	if !ok || obj.Type != want {
		return nil, nil, fmt.Errorf("expected a Pair")
	}
	first, err := obj.Scope.LookupVariable("first")
	if err != nil {
		return nil, nil, err
	}
	second, err := obj.Scope.LookupVariable("second")
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

var builtinTable = []Builtin{
	{
		Name:       "pair",
		ParamTypes: []*runtime.Type{runtime.TypeAny, runtime.TypeAny},
		ReturnType: pairType,
		Types:      []*runtime.Type{pairType},
		New: func(io.Writer) runtime.Invoker {
			return func(args []runtime.Value) (runtime.Value, error) {
				obj, err := runtime.NewStruct(pairType)
				if err != nil {
					return nil, err
				}
				first, second, err := pairFields(obj, pairType)
				if err != nil {
					return nil, err
				}
				first.Value, second.Value = args[0], args[1]
				return obj, nil
			}
		},
	},
	{
		Name:       "print",
		ParamTypes: []*runtime.Type{runtime.TypeAny},
		ReturnType: runtime.TypeNil,
		New: func(out io.Writer) runtime.Invoker {
			return func(args []runtime.Value) (runtime.Value, error) {
				if _, err := fmt.Fprintln(out, runtime.Display(args[0])); err != nil {
					return nil, err
				}
				return runtime.NilValue{}, nil
			}
		},
	},
	{
		Name:       "range",
		ParamTypes: []*runtime.Type{runtime.TypeInteger, runtime.TypeInteger},
		ReturnType: runtime.TypeIntegerIterable,
		New: func(io.Writer) runtime.Invoker {
			return func(args []runtime.Value) (runtime.Value, error) {
				start, ok := args[0].(runtime.IntegerValue)
				if !ok {
					return nil, fmt.Errorf("range: start must be an integer")
				}
				end, ok := args[1].(runtime.IntegerValue)
				if !ok {
					return nil, fmt.Errorf("range: end must be an integer")
				}
				return &runtime.RangeValue{Start: start.Val, End: end.Val}, nil
			}
		},
	},
}

// BuiltinNames lists every builtin the host provides, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinTable))
	for _, b := range builtinTable {
		names = append(names, b.Name)
	}
	sort.Strings(names)
	return names
}

func lookupBuiltin(name string) (Builtin, bool) {
	for _, b := range builtinTable {
		if b.Name == name {
			return b, true
		}
	}
	return Builtin{}, false
}

func selectBuiltins(names []string) ([]Builtin, error) {
	if len(names) == 0 {
		return builtinTable, nil
	}
	selected := make([]Builtin, 0, len(names))
	for _, name := range names {
		b, ok := lookupBuiltin(name)
		if !ok {
			return nil, fmt.Errorf("unknown builtin %q", name)
		}
		selected = append(selected, b)
	}
	return selected, nil
}

// TypeTable returns the builtin types plus the host types of the selected
// builtins.
func TypeTable(names []string) (*runtime.TypeTable, error) {
	selected, err := selectBuiltins(names)
	if err != nil {
		return nil, err
	}
	types := runtime.NewTypeTable()
	for _, b := range selected {
		for _, t := range b.Types {
			if err := types.Register(t); err != nil {
				return nil, err
			}
		}
	}
	return types, nil
}

// BaseScope builds a root scope holding the selected builtins (all of them
// when names is empty). A nil out produces static bindings with no
// implementation, which is all the analyzer needs.
func BaseScope(names []string, out io.Writer) (*runtime.Scope, error) {
	selected, err := selectBuiltins(names)
	if err != nil {
		return nil, err
	}

	scope := runtime.NewScope()
	for _, b := range selected {
		fn := &runtime.Function{
			Name:       b.Name,
			ParamTypes: b.ParamTypes,
			ReturnType: b.ReturnType,
		}
		if out != nil {
			fn.Invoke = b.New(out)
		}
		if err := scope.DefineFunction(fn); err != nil {
			return nil, err
		}
	}
	return scope, nil
}
