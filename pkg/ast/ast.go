package ast

import (
	"math/big"

	"github.com/shopspring/decimal"

	"plc/interpreter-go/pkg/runtime"
)

type NodeType string

const (
	NodeSource              NodeType = "Source"
	NodeField               NodeType = "Field"
	NodeMethod              NodeType = "Method"
	NodeExpressionStatement NodeType = "ExpressionStatement"
	NodeDeclaration         NodeType = "Declaration"
	NodeAssignment          NodeType = "Assignment"
	NodeIf                  NodeType = "If"
	NodeFor                 NodeType = "For"
	NodeWhile               NodeType = "While"
	NodeReturn              NodeType = "Return"
	NodeNilLiteral          NodeType = "NilLiteral"
	NodeBooleanLiteral      NodeType = "BooleanLiteral"
	NodeIntegerLiteral      NodeType = "IntegerLiteral"
	NodeDecimalLiteral      NodeType = "DecimalLiteral"
	NodeCharacterLiteral    NodeType = "CharacterLiteral"
	NodeStringLiteral       NodeType = "StringLiteral"
	NodeGroup               NodeType = "Group"
	NodeBinary              NodeType = "Binary"
	NodeAccess              NodeType = "Access"
	NodeCall                NodeType = "Call"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Expression nodes carry the static type the analyzer resolved for them.
type Expression interface {
	Node
	expressionNode()
	ResolvedType() *Slot[*runtime.Type]
}

type expressionImpl struct {
	Resolved Slot[*runtime.Type] `json:"-"`
}

func (*expressionImpl) expressionNode() {}

func (e *expressionImpl) ResolvedType() *Slot[*runtime.Type] { return &e.Resolved }

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Program structure

type Source struct {
	nodeImpl

	Fields  []*Field  `json:"fields"`
	Methods []*Method `json:"methods"`
}

func NewSource(fields []*Field, methods []*Method) *Source {
	return &Source{nodeImpl: newNodeImpl(NodeSource), Fields: fields, Methods: methods}
}

type Field struct {
	nodeImpl

	Name     string     `json:"name"`
	TypeName string     `json:"typeName"`
	Value    Expression `json:"value,omitempty"`

	Variable Slot[*runtime.Variable] `json:"-"`
}

func NewField(name, typeName string, value Expression) *Field {
	return &Field{nodeImpl: newNodeImpl(NodeField), Name: name, TypeName: typeName, Value: value}
}

// Method is a top-level definition. An empty ReturnTypeName means the
// return type was omitted.
type Method struct {
	nodeImpl

	Name           string      `json:"name"`
	Parameters     []string    `json:"parameters"`
	ParameterTypes []string    `json:"parameterTypes"`
	ReturnTypeName string      `json:"returnTypeName,omitempty"`
	Body           []Statement `json:"body"`

	Function Slot[*runtime.Function] `json:"-"`
}

func NewMethod(name string, parameters, parameterTypes []string, returnTypeName string, body []Statement) *Method {
	return &Method{
		nodeImpl:       newNodeImpl(NodeMethod),
		Name:           name,
		Parameters:     parameters,
		ParameterTypes: parameterTypes,
		ReturnTypeName: returnTypeName,
		Body:           body,
	}
}

// Statements

type ExpressionStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStatement), Expression: expr}
}

// Declaration introduces a local. TypeName and Value are each optional.
type Declaration struct {
	nodeImpl
	statementMarker

	Name     string     `json:"name"`
	TypeName string     `json:"typeName,omitempty"`
	Value    Expression `json:"value,omitempty"`

	Variable Slot[*runtime.Variable] `json:"-"`
}

func NewDeclaration(name, typeName string, value Expression) *Declaration {
	return &Declaration{nodeImpl: newNodeImpl(NodeDeclaration), Name: name, TypeName: typeName, Value: value}
}

type Assignment struct {
	nodeImpl
	statementMarker

	Receiver Expression `json:"receiver"`
	Value    Expression `json:"value"`
}

func NewAssignment(receiver, value Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Receiver: receiver, Value: value}
}

type If struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition"`
	Then      []Statement `json:"then"`
	Else      []Statement `json:"else"`
}

func NewIf(condition Expression, then, els []Statement) *If {
	return &If{nodeImpl: newNodeImpl(NodeIf), Condition: condition, Then: then, Else: els}
}

type For struct {
	nodeImpl
	statementMarker

	Name     string      `json:"name"`
	Iterable Expression  `json:"iterable"`
	Body     []Statement `json:"body"`
}

func NewFor(name string, iterable Expression, body []Statement) *For {
	return &For{nodeImpl: newNodeImpl(NodeFor), Name: name, Iterable: iterable, Body: body}
}

type While struct {
	nodeImpl
	statementMarker

	Condition Expression  `json:"condition"`
	Body      []Statement `json:"body"`
}

func NewWhile(condition Expression, body []Statement) *While {
	return &While{nodeImpl: newNodeImpl(NodeWhile), Condition: condition, Body: body}
}

type Return struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value"`
}

func NewReturn(value Expression) *Return {
	return &Return{nodeImpl: newNodeImpl(NodeReturn), Value: value}
}

// Literals

type NilLiteral struct {
	nodeImpl
	expressionImpl
	literalMarker
}

func NewNilLiteral() *NilLiteral {
	return &NilLiteral{nodeImpl: newNodeImpl(NodeNilLiteral)}
}

type BooleanLiteral struct {
	nodeImpl
	expressionImpl
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type IntegerLiteral struct {
	nodeImpl
	expressionImpl
	literalMarker

	Value *big.Int `json:"value"`
}

func NewIntegerLiteral(value *big.Int) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type DecimalLiteral struct {
	nodeImpl
	expressionImpl
	literalMarker

	Value decimal.Decimal `json:"value"`
}

func NewDecimalLiteral(value decimal.Decimal) *DecimalLiteral {
	return &DecimalLiteral{nodeImpl: newNodeImpl(NodeDecimalLiteral), Value: value}
}

type CharacterLiteral struct {
	nodeImpl
	expressionImpl
	literalMarker

	Value rune `json:"value"`
}

func NewCharacterLiteral(value rune) *CharacterLiteral {
	return &CharacterLiteral{nodeImpl: newNodeImpl(NodeCharacterLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionImpl
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

// Expressions

type Group struct {
	nodeImpl
	expressionImpl

	Expression Expression `json:"expression"`
}

func NewGroup(expr Expression) *Group {
	return &Group{nodeImpl: newNodeImpl(NodeGroup), Expression: expr}
}

type Binary struct {
	nodeImpl
	expressionImpl

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinary(operator string, left, right Expression) *Binary {
	return &Binary{nodeImpl: newNodeImpl(NodeBinary), Operator: operator, Left: left, Right: right}
}

// Access reads a variable, or a field of Receiver when one is present.
type Access struct {
	nodeImpl
	expressionImpl

	Receiver Expression `json:"receiver,omitempty"`
	Name     string     `json:"name"`

	Variable Slot[*runtime.Variable] `json:"-"`
}

func NewAccess(receiver Expression, name string) *Access {
	return &Access{nodeImpl: newNodeImpl(NodeAccess), Receiver: receiver, Name: name}
}

// Call invokes a free function, or a method of Receiver when one is present.
type Call struct {
	nodeImpl
	expressionImpl

	Receiver  Expression   `json:"receiver,omitempty"`
	Name      string       `json:"name"`
	Arguments []Expression `json:"arguments"`

	Function Slot[*runtime.Function] `json:"-"`
}

func NewCall(receiver Expression, name string, arguments []Expression) *Call {
	return &Call{nodeImpl: newNodeImpl(NodeCall), Receiver: receiver, Name: name, Arguments: arguments}
}
