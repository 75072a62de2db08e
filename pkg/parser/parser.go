package parser

import (
	"fmt"

	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/lexer"
)

// ParseError reports the first grammar violation. Offset is the offset of
// the offending token, or the end of input when the stream ran out.
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// Parser is a recursive-descent parser over a token slice.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse builds a Source from a complete token stream.
func Parse(tokens []lexer.Token) (src *ast.Source, err error) {
	defer recoverParseError(&err)
	p := New(tokens)
	src = p.parseSource()
	return src, nil
}

// ParseText lexes and parses text. Lexing failures surface as *lexer.LexError.
func ParseText(text string) (*ast.Source, error) {
	tokens, err := lexer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// ParseExpression parses tokens that must form exactly one expression.
func ParseExpression(tokens []lexer.Token) (expr ast.Expression, err error) {
	defer recoverParseError(&err)
	p := New(tokens)
	expr = p.parseExpression()
	p.expectEnd()
	return expr, nil
}

// ParseStatement parses tokens that must form exactly one statement.
func ParseStatement(tokens []lexer.Token) (stmt ast.Statement, err error) {
	defer recoverParseError(&err)
	p := New(tokens)
	stmt = p.parseStatement()
	p.expectEnd()
	return stmt, nil
}

func recoverParseError(err *error) {
	if r := recover(); r != nil {
		if pe, ok := r.(*ParseError); ok {
			*err = pe
			return
		}
		panic(r)
	}
}

func (p *Parser) parseSource() *ast.Source {
	var fields []*ast.Field
	var methods []*ast.Method
	for p.isKeyword("LET") {
		fields = append(fields, p.parseField())
	}
	for p.isKeyword("DEF") {
		methods = append(methods, p.parseMethod())
	}
	if !p.done() {
		p.fail("Expected LET or DEF")
	}
	return ast.NewSource(fields, methods)
}

// Token cursor

func (p *Parser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *Parser) cur() (lexer.Token, bool) {
	if p.done() {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) next() lexer.Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// offset is where an error at the current position points.
func (p *Parser) offset() int {
	if tok, ok := p.cur(); ok {
		return tok.Offset
	}
	if n := len(p.tokens); n > 0 {
		return p.tokens[n-1].End()
	}
	return 0
}

func (p *Parser) fail(format string, args ...any) {
	panic(&ParseError{Message: fmt.Sprintf(format, args...), Offset: p.offset()})
}

func (p *Parser) failAt(tok lexer.Token, format string, args ...any) {
	panic(&ParseError{Message: fmt.Sprintf(format, args...), Offset: tok.Offset})
}

func (p *Parser) isCategory(c lexer.Category) bool {
	tok, ok := p.cur()
	return ok && tok.Category == c
}

func (p *Parser) isOperator(text string) bool {
	tok, ok := p.cur()
	return ok && tok.Category == lexer.Operator && tok.Text == text
}

func (p *Parser) isKeyword(text string) bool {
	tok, ok := p.cur()
	return ok && tok.Category == lexer.Identifier && tok.Text == text
}

func (p *Parser) acceptOperator(text string) bool {
	if p.isOperator(text) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) acceptKeyword(text string) bool {
	if p.isKeyword(text) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expectOperator(text string) lexer.Token {
	if !p.isOperator(text) {
		p.fail("Expected '%s'", text)
	}
	return p.next()
}

func (p *Parser) expectKeyword(text string) lexer.Token {
	if !p.isKeyword(text) {
		p.fail("Expected %s", text)
	}
	return p.next()
}

func (p *Parser) expectIdentifier(what string) string {
	if !p.isCategory(lexer.Identifier) {
		p.fail("Expected %s", what)
	}
	return p.next().Text
}

func (p *Parser) expectEnd() {
	if !p.done() {
		p.fail("Unexpected token '%s'", p.tokens[p.pos].Text)
	}
}
