package lexer

import "fmt"

// Category classifies a token. Keywords are not a separate category: LET,
// DEF and friends are identifiers that the parser matches by text.
type Category int

const (
	Identifier Category = iota
	Integer
	Decimal
	Character
	String
	Operator
)

var categoryNames = [...]string{
	Identifier: "IDENTIFIER",
	Integer:    "INTEGER",
	Decimal:    "DECIMAL",
	Character:  "CHARACTER",
	String:     "STRING",
	Operator:   "OPERATOR",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Token is one lexeme. Text is the exact source slice, quotes and escapes
// included; Offset is the byte offset of its first character.
type Token struct {
	Category Category
	Text     string
	Offset   int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q@%d", t.Category, t.Text, t.Offset)
}

// End returns the offset one past the token's last byte.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// LexError reports the first character the lexer could not accept.
type LexError struct {
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Message)
}
