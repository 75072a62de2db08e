package ast

import (
	"fmt"
	"strconv"
	"strings"

	"plc/interpreter-go/pkg/runtime"
)

// Sprint renders a node as an indented s-expression. Expressions print on
// one line; statements and definitions print one per line.
func Sprint(n Node) string {
	var b strings.Builder
	p := printer{b: &b}
	p.node(n, 0)
	return b.String()
}

type printer struct {
	b *strings.Builder
}

func (p printer) line(depth int, format string, args ...any) {
	p.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p printer) node(n Node, depth int) {
	switch node := n.(type) {
	case *Source:
		p.line(depth, "(source")
		for _, f := range node.Fields {
			p.node(f, depth+1)
		}
		for _, m := range node.Methods {
			p.node(m, depth+1)
		}
		p.line(depth, ")")
	case *Field:
		p.line(depth, "(field %s %s%s)", node.Name, node.TypeName, optional(node.Value))
	case *Method:
		params := make([]string, len(node.Parameters))
		for i, name := range node.Parameters {
			params[i] = name + ":" + node.ParameterTypes[i]
		}
		ret := node.ReturnTypeName
		if ret == "" {
			ret = "_"
		}
		p.line(depth, "(method %s (%s) %s", node.Name, strings.Join(params, " "), ret)
		p.block(node.Body, depth+1)
		p.line(depth, ")")
	case Statement:
		p.statement(node, depth)
	case Expression:
		p.line(depth, "%s", SprintExpression(node))
	default:
		p.line(depth, "(unknown %T)", n)
	}
}

func (p printer) block(stmts []Statement, depth int) {
	for _, stmt := range stmts {
		p.statement(stmt, depth)
	}
}

func (p printer) statement(s Statement, depth int) {
	switch stmt := s.(type) {
	case *ExpressionStatement:
		p.line(depth, "(expr %s)", SprintExpression(stmt.Expression))
	case *Declaration:
		typeName := stmt.TypeName
		if typeName == "" {
			typeName = "_"
		}
		p.line(depth, "(let %s %s%s)", stmt.Name, typeName, optional(stmt.Value))
	case *Assignment:
		p.line(depth, "(assign %s %s)", SprintExpression(stmt.Receiver), SprintExpression(stmt.Value))
	case *If:
		p.line(depth, "(if %s", SprintExpression(stmt.Condition))
		p.block(stmt.Then, depth+1)
		if len(stmt.Else) > 0 {
			p.line(depth+1, "else")
			p.block(stmt.Else, depth+1)
		}
		p.line(depth, ")")
	case *For:
		p.line(depth, "(for %s %s", stmt.Name, SprintExpression(stmt.Iterable))
		p.block(stmt.Body, depth+1)
		p.line(depth, ")")
	case *While:
		p.line(depth, "(while %s", SprintExpression(stmt.Condition))
		p.block(stmt.Body, depth+1)
		p.line(depth, ")")
	case *Return:
		p.line(depth, "(return %s)", SprintExpression(stmt.Value))
	default:
		p.line(depth, "(unknown %T)", s)
	}
}

func optional(e Expression) string {
	if e == nil {
		return ""
	}
	return " " + SprintExpression(e)
}

// SprintExpression renders an expression on a single line.
func SprintExpression(e Expression) string {
	switch expr := e.(type) {
	case nil:
		return "<nil>"
	case *NilLiteral:
		return "NIL"
	case *BooleanLiteral:
		if expr.Value {
			return "TRUE"
		}
		return "FALSE"
	case *IntegerLiteral:
		return expr.Value.String()
	case *DecimalLiteral:
		return runtime.FormatDecimal(expr.Value)
	case *CharacterLiteral:
		return strconv.QuoteRune(expr.Value)
	case *StringLiteral:
		return strconv.Quote(expr.Value)
	case *Group:
		return "(group " + SprintExpression(expr.Expression) + ")"
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", expr.Operator, SprintExpression(expr.Left), SprintExpression(expr.Right))
	case *Access:
		if expr.Receiver != nil {
			return fmt.Sprintf("(. %s %s)", SprintExpression(expr.Receiver), expr.Name)
		}
		return expr.Name
	case *Call:
		parts := make([]string, 0, len(expr.Arguments)+2)
		if expr.Receiver != nil {
			parts = append(parts, "(call-method", SprintExpression(expr.Receiver), expr.Name)
		} else {
			parts = append(parts, "(call", expr.Name)
		}
		for _, arg := range expr.Arguments {
			parts = append(parts, SprintExpression(arg))
		}
		return strings.Join(parts, " ") + ")"
	}
	return fmt.Sprintf("(unknown %T)", e)
}
