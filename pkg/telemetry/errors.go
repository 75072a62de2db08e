package telemetry

import (
	"errors"

	"plc/interpreter-go/pkg/analyzer"
	"plc/interpreter-go/pkg/interpreter"
	"plc/interpreter-go/pkg/lexer"
	"plc/interpreter-go/pkg/parser"
)

// ErrorKind classifies err by pipeline stage.
func ErrorKind(err error) string {
	var (
		lexErr     *lexer.LexError
		parseErr   *parser.ParseError
		typeErr    *analyzer.TypeError
		runtimeErr *interpreter.RuntimeError
	)
	switch {
	case errors.As(err, &lexErr):
		return "lex"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &typeErr):
		return "type"
	case errors.As(err, &runtimeErr):
		return "runtime"
	default:
		return "internal"
	}
}

func errorOffset(err error) (int, bool) {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return lexErr.Offset, true
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Offset, true
	}
	return 0, false
}
