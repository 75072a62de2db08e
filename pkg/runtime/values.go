package runtime

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInteger
	KindDecimal
	KindChar
	KindString
	KindStruct
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindChar:
		return "character"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindRange:
		return "range"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

// IntegerValue holds an arbitrary-precision integer. Val is never mutated
// after construction; arithmetic always allocates a fresh big.Int.
type IntegerValue struct {
	Val *big.Int
}

func (v IntegerValue) Kind() Kind { return KindInteger }

func NewInteger(n int64) IntegerValue {
	return IntegerValue{Val: big.NewInt(n)}
}

type DecimalValue struct {
	Val decimal.Decimal
}

func (v DecimalValue) Kind() Kind { return KindDecimal }

type CharValue struct {
	Val rune
}

func (v CharValue) Kind() Kind { return KindChar }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

//-----------------------------------------------------------------------------
// Structs
//-----------------------------------------------------------------------------

// StructValue is an instance of a structured type. It owns a private scope
// holding its fields and the methods bound for it.
type StructValue struct {
	Type  *Type
	Scope *Scope
}

func (v *StructValue) Kind() Kind { return KindStruct }

// NewStruct instantiates t. Every field starts out NIL and every method of
// t is defined in the instance scope, keyed by its full arity (receiver
// included).
func NewStruct(t *Type) (*StructValue, error) {
	scope := NewScope()
	if t.Fields != nil {
		for _, field := range t.Fields.Variables() {
			if err := scope.DefineVariable(&Variable{Name: field.Name, Type: field.Type, Value: NilValue{}}); err != nil {
				return nil, err
			}
		}
	}
	if t.Methods != nil {
		for _, method := range t.Methods.Functions() {
			if err := scope.DefineFunction(method); err != nil {
				return nil, err
			}
		}
	}
	return &StructValue{Type: t, Scope: scope}, nil
}

//-----------------------------------------------------------------------------
// Iteration
//-----------------------------------------------------------------------------

// IntegerIterator yields integers in order until exhausted.
type IntegerIterator interface {
	Next() (*big.Int, bool)
}

// IntegerIterable is implemented by values a FOR loop can walk.
type IntegerIterable interface {
	Value
	Iterate() IntegerIterator
}

// RangeValue covers [Start, End).
type RangeValue struct {
	Start *big.Int
	End   *big.Int
}

func (v *RangeValue) Kind() Kind { return KindRange }

func (v *RangeValue) Iterate() IntegerIterator {
	return &rangeIterator{next: new(big.Int).Set(v.Start), end: v.End}
}

type rangeIterator struct {
	next *big.Int
	end  *big.Int
}

func (it *rangeIterator) Next() (*big.Int, bool) {
	if it.next.Cmp(it.end) >= 0 {
		return nil, false
	}
	out := new(big.Int).Set(it.next)
	it.next.Add(it.next, big.NewInt(1))
	return out, true
}

//-----------------------------------------------------------------------------
// Helpers
//-----------------------------------------------------------------------------

// Display renders a value the way print and string concatenation show it.
func Display(v Value) string {
	switch val := v.(type) {
	case NilValue:
		return "nil"
	case BoolValue:
		if val.Val {
			return "true"
		}
		return "false"
	case IntegerValue:
		return val.Val.String()
	case DecimalValue:
		return FormatDecimal(val.Val)
	case CharValue:
		return string(val.Val)
	case StringValue:
		return val.Val
	case *StructValue:
		return fmt.Sprintf("<%s>", val.Type.Name)
	case *RangeValue:
		return fmt.Sprintf("range(%s, %s)", val.Start, val.End)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// Equal reports value equality. Values of different kinds are never equal;
// decimals compare numerically, structs and ranges by identity.
func Equal(a, b Value) bool {
	switch left := a.(type) {
	case NilValue:
		_, ok := b.(NilValue)
		return ok
	case BoolValue:
		right, ok := b.(BoolValue)
		return ok && left.Val == right.Val
	case IntegerValue:
		right, ok := b.(IntegerValue)
		return ok && left.Val.Cmp(right.Val) == 0
	case DecimalValue:
		right, ok := b.(DecimalValue)
		return ok && left.Val.Cmp(right.Val) == 0
	case CharValue:
		right, ok := b.(CharValue)
		return ok && left.Val == right.Val
	case StringValue:
		right, ok := b.(StringValue)
		return ok && left.Val == right.Val
	case *StructValue:
		right, ok := b.(*StructValue)
		return ok && left == right
	case *RangeValue:
		right, ok := b.(*RangeValue)
		return ok && left == right
	}
	return false
}

// Compare orders two values of the same comparable kind.
func Compare(a, b Value) (int, error) {
	switch left := a.(type) {
	case IntegerValue:
		if right, ok := b.(IntegerValue); ok {
			return left.Val.Cmp(right.Val), nil
		}
	case DecimalValue:
		if right, ok := b.(DecimalValue); ok {
			return left.Val.Cmp(right.Val), nil
		}
	case CharValue:
		if right, ok := b.(CharValue); ok {
			return cmpOrdered(left.Val, right.Val), nil
		}
	case StringValue:
		if right, ok := b.(StringValue); ok {
			return cmpStrings(left.Val, right.Val), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", kindOf(a), kindOf(b))
}

func cmpOrdered(a, b rune) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpStrings orders by code point.
func cmpStrings(a, b string) int {
	ar, br := []rune(a), []rune(b)
	for i := 0; i < len(ar) && i < len(br); i++ {
		if c := cmpOrdered(ar[i], br[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ar) < len(br):
		return -1
	case len(ar) > len(br):
		return 1
	}
	return 0
}

func kindOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
