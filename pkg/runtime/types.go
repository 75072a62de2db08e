package runtime

import (
	"fmt"
	"sort"
)

// Type is a static type. Structured types carry a field scope (variables
// with their field types) and a method table (functions whose first
// parameter is the receiver).
type Type struct {
	Name    string
	Fields  *Scope
	Methods *Scope
}

func (t *Type) String() string {
	if t == nil {
		return "<unresolved>"
	}
	return t.Name
}

// Builtin types. Comparable and IntegerIterable are capabilities other
// types satisfy rather than types values have directly.
var (
	TypeAny             = &Type{Name: "Any"}
	TypeNil             = &Type{Name: "Nil"}
	TypeComparable      = &Type{Name: "Comparable"}
	TypeBoolean         = &Type{Name: "Boolean"}
	TypeInteger         = &Type{Name: "Integer"}
	TypeDecimal         = &Type{Name: "Decimal"}
	TypeCharacter       = &Type{Name: "Character"}
	TypeString          = &Type{Name: "String"}
	TypeIntegerIterable = &Type{Name: "IntegerIterable"}
)

// NewStructType builds an empty structured type ready for fields and methods.
func NewStructType(name string) *Type {
	return &Type{Name: name, Fields: NewScope(), Methods: NewScope()}
}

// TypeTable maps type names to types.
type TypeTable struct {
	types map[string]*Type
}

// NewTypeTable returns a table holding the builtin types.
func NewTypeTable() *TypeTable {
	tt := &TypeTable{types: make(map[string]*Type)}
	for _, t := range []*Type{
		TypeAny, TypeNil, TypeComparable, TypeBoolean, TypeInteger,
		TypeDecimal, TypeCharacter, TypeString, TypeIntegerIterable,
	} {
		tt.types[t.Name] = t
	}
	return tt
}

func (tt *TypeTable) Register(t *Type) error {
	if _, exists := tt.types[t.Name]; exists {
		return fmt.Errorf("type '%s' is already defined", t.Name)
	}
	tt.types[t.Name] = t
	return nil
}

func (tt *TypeTable) Lookup(name string) (*Type, error) {
	if t, ok := tt.types[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("Unknown type '%s'", name)
}

// Names lists registered type names in sorted order.
func (tt *TypeTable) Names() []string {
	out := make([]string, 0, len(tt.types))
	for name := range tt.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Variable is a named, typed, mutable slot.
type Variable struct {
	Name  string
	Type  *Type
	Value Value
}

// Invoker runs a function with already-evaluated arguments.
type Invoker func(args []Value) (Value, error)

// Function is a callable binding. Invoke is nil for functions that only
// exist for static analysis.
type Function struct {
	Name       string
	ParamTypes []*Type
	ReturnType *Type
	Invoke     Invoker
}

func (f *Function) Arity() int {
	return len(f.ParamTypes)
}

func (f *Function) String() string {
	return fmt.Sprintf("%s/%d", f.Name, f.Arity())
}
