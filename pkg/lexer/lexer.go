package lexer

import (
	"unicode/utf8"
)

// Lexer scans source text one token at a time.
type Lexer struct {
	src   string
	i     int
	start int
}

func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize lexes the whole input, stopping at the first malformed token.
func Tokenize(src string) ([]Token, error) {
	l := New(src)
	var out []Token
	for {
		tok, ok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, tok)
	}
}

// Next returns the next token. ok is false once the input is exhausted.
func (l *Lexer) Next() (tok Token, ok bool, err error) {
	for l.i < len(l.src) && isSpace(l.src[l.i]) {
		l.i++
	}
	if l.i >= len(l.src) {
		return Token{}, false, nil
	}
	l.start = l.i

	ch := l.src[l.i]
	switch {
	case isIdentStart(ch):
		return l.identifier(), true, nil
	case isDigit(ch), (ch == '+' || ch == '-') && isDigit(l.at(1)):
		return l.number(), true, nil
	case ch == '\'':
		tok, err := l.character()
		return tok, err == nil, err
	case ch == '"':
		tok, err := l.string()
		return tok, err == nil, err
	}
	return l.operator(), true, nil
}

func (l *Lexer) identifier() Token {
	l.i++
	for l.i < len(l.src) && isIdentPart(l.src[l.i]) {
		l.i++
	}
	return l.emit(Identifier)
}

// number accepts [+-]?digits('.'digits)?. A zero not followed by '.' is a
// complete integer on its own, so "007" becomes three tokens.
func (l *Lexer) number() Token {
	if c := l.src[l.i]; c == '+' || c == '-' {
		l.i++
	}
	if l.src[l.i] == '0' && l.at(1) != '.' {
		l.i++
		return l.emit(Integer)
	}
	l.digits()
	if l.at(0) == '.' && isDigit(l.at(1)) {
		l.i++
		l.digits()
		return l.emit(Decimal)
	}
	return l.emit(Integer)
}

func (l *Lexer) digits() {
	for l.i < len(l.src) && isDigit(l.src[l.i]) {
		l.i++
	}
}

func (l *Lexer) character() (Token, error) {
	l.i++
	if l.i >= len(l.src) {
		return Token{}, l.fail("unterminated character literal")
	}
	switch c := l.src[l.i]; c {
	case '\'':
		return Token{}, l.fail("empty character literal")
	case '\n', '\r':
		return Token{}, l.fail("newline in character literal")
	case '\\':
		if err := l.escape(); err != nil {
			return Token{}, err
		}
	default:
		l.advanceRune()
	}
	if l.i >= len(l.src) {
		return Token{}, l.fail("unterminated character literal")
	}
	if l.src[l.i] != '\'' {
		return Token{}, l.fail("character literal must hold exactly one character")
	}
	l.i++
	return l.emit(Character), nil
}

func (l *Lexer) string() (Token, error) {
	l.i++
	for l.i < len(l.src) {
		switch l.src[l.i] {
		case '"':
			l.i++
			return l.emit(String), nil
		case '\n', '\r':
			return Token{}, l.fail("newline in string literal")
		case '\\':
			if err := l.escape(); err != nil {
				return Token{}, err
			}
		default:
			l.advanceRune()
		}
	}
	return Token{}, l.fail("unterminated string literal")
}

// escape consumes a backslash and its escape character.
func (l *Lexer) escape() error {
	l.i++
	if l.i >= len(l.src) {
		return l.fail("unterminated escape sequence")
	}
	if _, ok := Unescape(l.src[l.i]); !ok {
		return l.fail("invalid escape sequence")
	}
	l.i++
	return nil
}

func (l *Lexer) operator() Token {
	if l.at(1) == '=' {
		switch l.src[l.i] {
		case '<', '>', '=', '!':
			l.i += 2
			return l.emit(Operator)
		}
	}
	l.advanceRune()
	return l.emit(Operator)
}

func (l *Lexer) advanceRune() {
	_, size := utf8.DecodeRuneInString(l.src[l.i:])
	l.i += size
}

func (l *Lexer) at(n int) byte {
	if l.i+n >= len(l.src) {
		return 0
	}
	return l.src[l.i+n]
}

func (l *Lexer) emit(c Category) Token {
	return Token{Category: c, Text: l.src[l.start:l.i], Offset: l.start}
}

func (l *Lexer) fail(msg string) error {
	return &LexError{Offset: l.i, Message: msg}
}

// Unescape maps the character following a backslash to the byte it denotes.
func Unescape(c byte) (byte, bool) {
	switch c {
	case 'b':
		return '\b', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '"', '\'', '\\':
		return c, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}
