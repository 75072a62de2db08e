package parser

import (
	"plc/interpreter-go/pkg/ast"
)

// field := LET IDENT ':' IDENT ('=' expression)? ';'
func (p *Parser) parseField() *ast.Field {
	p.expectKeyword("LET")
	name := p.expectIdentifier("field name")
	p.expectOperator(":")
	typeName := p.expectIdentifier("field type")
	var value ast.Expression
	if p.acceptOperator("=") {
		value = p.parseExpression()
	}
	p.expectOperator(";")
	return ast.NewField(name, typeName, value)
}

// method := DEF IDENT '(' params? ')' (':' IDENT)? DO statement* END
func (p *Parser) parseMethod() *ast.Method {
	p.expectKeyword("DEF")
	name := p.expectIdentifier("method name")
	p.expectOperator("(")
	var params, paramTypes []string
	if !p.isOperator(")") {
		for {
			params = append(params, p.expectIdentifier("parameter name"))
			p.expectOperator(":")
			paramTypes = append(paramTypes, p.expectIdentifier("parameter type"))
			if !p.acceptOperator(",") {
				break
			}
		}
	}
	p.expectOperator(")")
	returnType := ""
	if p.acceptOperator(":") {
		returnType = p.expectIdentifier("return type")
	}
	p.expectKeyword("DO")
	body := p.parseBlock("END")
	p.expectKeyword("END")
	return ast.NewMethod(name, params, paramTypes, returnType, body)
}

// parseBlock reads statements until one of the terminators is next. The
// terminator itself is left for the caller.
func (p *Parser) parseBlock(terminators ...string) []ast.Statement {
	var out []ast.Statement
	for {
		if p.done() {
			p.fail("Expected %s", terminators[len(terminators)-1])
		}
		for _, term := range terminators {
			if p.isKeyword(term) {
				return out
			}
		}
		out = append(out, p.parseStatement())
	}
}

func (p *Parser) parseStatement() ast.Statement {
	switch {
	case p.isKeyword("LET"):
		return p.parseDeclaration()
	case p.isKeyword("IF"):
		return p.parseIf()
	case p.isKeyword("FOR"):
		return p.parseFor()
	case p.isKeyword("WHILE"):
		return p.parseWhile()
	case p.isKeyword("RETURN"):
		return p.parseReturn()
	}
	expr := p.parseExpression()
	if p.acceptOperator("=") {
		value := p.parseExpression()
		p.expectOperator(";")
		return ast.NewAssignment(expr, value)
	}
	p.expectOperator(";")
	return ast.NewExpressionStatement(expr)
}

// declaration := LET IDENT (':' IDENT)? ('=' expression)? ';'
func (p *Parser) parseDeclaration() ast.Statement {
	p.expectKeyword("LET")
	name := p.expectIdentifier("variable name")
	typeName := ""
	if p.acceptOperator(":") {
		typeName = p.expectIdentifier("variable type")
	}
	var value ast.Expression
	if p.acceptOperator("=") {
		value = p.parseExpression()
	}
	p.expectOperator(";")
	return ast.NewDeclaration(name, typeName, value)
}

// if := IF expression DO statement* (ELSE statement*)? END
func (p *Parser) parseIf() ast.Statement {
	p.expectKeyword("IF")
	cond := p.parseExpression()
	p.expectKeyword("DO")
	then := p.parseBlock("ELSE", "END")
	var els []ast.Statement
	if p.acceptKeyword("ELSE") {
		els = p.parseBlock("END")
	}
	p.expectKeyword("END")
	return ast.NewIf(cond, then, els)
}

// for := FOR IDENT IN expression DO statement* END
func (p *Parser) parseFor() ast.Statement {
	p.expectKeyword("FOR")
	name := p.expectIdentifier("loop variable")
	p.expectKeyword("IN")
	iterable := p.parseExpression()
	p.expectKeyword("DO")
	body := p.parseBlock("END")
	p.expectKeyword("END")
	return ast.NewFor(name, iterable, body)
}

// while := WHILE expression DO statement* END
func (p *Parser) parseWhile() ast.Statement {
	p.expectKeyword("WHILE")
	cond := p.parseExpression()
	p.expectKeyword("DO")
	body := p.parseBlock("END")
	p.expectKeyword("END")
	return ast.NewWhile(cond, body)
}

// return := RETURN expression ';'
func (p *Parser) parseReturn() ast.Statement {
	p.expectKeyword("RETURN")
	value := p.parseExpression()
	p.expectOperator(";")
	return ast.NewReturn(value)
}
