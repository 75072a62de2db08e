package parser

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/lexer"
)

func (p *Parser) parseExpression() ast.Expression {
	return p.parseLogical()
}

// Each binary level folds left, so a - b - c is (a - b) - c.

func (p *Parser) parseLogical() ast.Expression {
	left := p.parseEquality()
	for p.isKeyword("AND") || p.isKeyword("OR") {
		op := p.next().Text
		left = ast.NewBinary(op, left, p.parseEquality())
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseAdditive()
	for p.isAnyOperator("<", "<=", ">", ">=", "==", "!=") {
		op := p.next().Text
		left = ast.NewBinary(op, left, p.parseAdditive())
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.isAnyOperator("+", "-") {
		op := p.next().Text
		left = ast.NewBinary(op, left, p.parseMultiplicative())
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseSecondary()
	for p.isAnyOperator("*", "/") {
		op := p.next().Text
		left = ast.NewBinary(op, left, p.parseSecondary())
	}
	return left
}

// secondary := primary ('.' IDENT ('(' args ')')?)*
func (p *Parser) parseSecondary() ast.Expression {
	expr := p.parsePrimary()
	for p.acceptOperator(".") {
		name := p.expectIdentifier("member name")
		if p.isOperator("(") {
			expr = ast.NewCall(expr, name, p.parseArguments())
			continue
		}
		expr = ast.NewAccess(expr, name)
	}
	return expr
}

func (p *Parser) parsePrimary() ast.Expression {
	tok, ok := p.cur()
	if !ok {
		p.fail("Expected expression")
	}
	switch tok.Category {
	case lexer.Identifier:
		p.next()
		switch tok.Text {
		case "NIL":
			return ast.NewNilLiteral()
		case "TRUE":
			return ast.NewBooleanLiteral(true)
		case "FALSE":
			return ast.NewBooleanLiteral(false)
		}
		if p.isOperator("(") {
			return ast.NewCall(nil, tok.Text, p.parseArguments())
		}
		return ast.NewAccess(nil, tok.Text)
	case lexer.Integer:
		p.next()
		n, ok := new(big.Int).SetString(strings.TrimPrefix(tok.Text, "+"), 10)
		if !ok {
			p.failAt(tok, "Invalid integer literal '%s'", tok.Text)
		}
		return ast.NewIntegerLiteral(n)
	case lexer.Decimal:
		p.next()
		d, err := decimal.NewFromString(strings.TrimPrefix(tok.Text, "+"))
		if err != nil {
			p.failAt(tok, "Invalid decimal literal '%s'", tok.Text)
		}
		return ast.NewDecimalLiteral(d)
	case lexer.Character:
		p.next()
		text, ok := unquote(tok.Text, '\'')
		if !ok || utf8.RuneCountInString(text) != 1 {
			p.failAt(tok, "Invalid character literal %s", tok.Text)
		}
		r, _ := utf8.DecodeRuneInString(text)
		return ast.NewCharacterLiteral(r)
	case lexer.String:
		p.next()
		text, ok := unquote(tok.Text, '"')
		if !ok {
			p.failAt(tok, "Invalid string literal %s", tok.Text)
		}
		return ast.NewStringLiteral(text)
	case lexer.Operator:
		if tok.Text == "(" {
			p.next()
			inner := p.parseExpression()
			p.expectOperator(")")
			return ast.NewGroup(inner)
		}
	}
	p.fail("Expected expression")
	return nil
}

// parseArguments reads '(' (expression (',' expression)*)? ')'.
func (p *Parser) parseArguments() []ast.Expression {
	p.expectOperator("(")
	var args []ast.Expression
	if p.acceptOperator(")") {
		return args
	}
	for {
		args = append(args, p.parseExpression())
		if !p.acceptOperator(",") {
			break
		}
	}
	p.expectOperator(")")
	return args
}

func (p *Parser) isAnyOperator(ops ...string) bool {
	for _, op := range ops {
		if p.isOperator(op) {
			return true
		}
	}
	return false
}

// unquote strips the surrounding quote and decodes escape sequences.
func unquote(text string, quote byte) (string, bool) {
	if len(text) < 2 || text[0] != quote || text[len(text)-1] != quote {
		return "", false
	}
	body := text[1 : len(text)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		decoded, ok := lexer.Unescape(body[i])
		if !ok {
			return "", false
		}
		b.WriteByte(decoded)
	}
	return b.String(), true
}
