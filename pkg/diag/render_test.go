package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/aymanbagabas/go-udiff"

	"plc/interpreter-go/pkg/analyzer"
	"plc/interpreter-go/pkg/config"
	"plc/interpreter-go/pkg/interpreter"
	"plc/interpreter-go/pkg/lexer"
	"plc/interpreter-go/pkg/parser"
)

func render(t *testing.T, path, src string, err error) string {
	t.Helper()
	var buf bytes.Buffer
	if rerr := NewRenderer(&buf, config.ColorNever).Render(&buf, path, src, err); rerr != nil {
		t.Fatalf("Render: %v", rerr)
	}
	return buf.String()
}

func expectRendered(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("rendered output mismatch:\n%s", udiff.Unified("want", "got", want, got))
	}
}

func TestRenderLexErrorWithTabsAndAccents(t *testing.T) {
	src := "DEF main() DO\n\tprint(\"é\\q\"); END"
	_, err := lexer.Tokenize(src)
	if err == nil {
		t.Fatalf("expected a lex error")
	}
	expectRendered(t, render(t, "main.plc", src, err),
		"main.plc:2:11: error: invalid escape sequence\n"+
			"    \tprint(\"é\\q\"); END\n"+
			"    \t         ^\n")
}

func TestRenderCaretUnderWideCharacters(t *testing.T) {
	src := `LET s = "日本`
	_, err := lexer.Tokenize(src)
	if err == nil {
		t.Fatalf("expected a lex error")
	}
	expectRendered(t, render(t, "x.plc", src, err),
		"x.plc:1:14: error: unterminated string literal\n"+
			"    LET s = \"日本\n"+
			"    "+strings.Repeat(" ", 13)+"^\n")
}

func TestRenderParseError(t *testing.T) {
	src := "DEF main() DO\n  print(1)\nEND"
	_, err := parser.ParseText(src)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	expectRendered(t, render(t, "p.plc", src, err),
		"p.plc:3:1: error: Expected ';'\n"+
			"    END\n"+
			"    ^\n")
}

func TestRenderUnpositionedErrors(t *testing.T) {
	cases := []struct {
		name string
		path string
		err  error
		want string
	}{
		{
			name: "type error",
			path: "p.plc",
			err:  &analyzer.TypeError{Message: "Undefined variable 'x'"},
			want: "p.plc: error: Undefined variable 'x'\n",
		},
		{
			name: "stack error",
			path: "p.plc",
			err: &interpreter.StackError{
				Err:    &interpreter.RuntimeError{Message: "Division by zero"},
				Frames: []string{"inner", "main"},
			},
			want: "p.plc: error: Division by zero\n  at inner\n  at main\n",
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "<input>: error: boom\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectRendered(t, render(t, tc.path, "", tc.err), tc.want)
		})
	}
}

func TestRenderColorModes(t *testing.T) {
	err := &analyzer.TypeError{Message: "bad"}

	var colored bytes.Buffer
	if rerr := NewRenderer(&colored, config.ColorAlways).Render(&colored, "a.plc", "", err); rerr != nil {
		t.Fatalf("Render: %v", rerr)
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes, got %q", colored.String())
	}

	var plain bytes.Buffer
	if rerr := Render(&plain, "a.plc", "", err); rerr != nil {
		t.Fatalf("Render: %v", rerr)
	}
	if plain.String() != "a.plc: error: bad\n" {
		t.Fatalf("expected plain output for a buffer, got %q", plain.String())
	}

	if rerr := Render(&plain, "a.plc", "", nil); rerr != nil || plain.Len() != len("a.plc: error: bad\n") {
		t.Fatalf("a nil error must render nothing")
	}
}

func TestLocate(t *testing.T) {
	src := "ab\r\ncd\nef"
	cases := []struct {
		offset int
		line   int
		column int
		text   string
	}{
		{0, 1, 1, "ab"},
		{1, 1, 2, "ab"},
		{4, 2, 1, "cd"},
		{6, 2, 3, "cd"},
		{9, 3, 3, "ef"},
		{99, 3, 3, "ef"},
		{-5, 1, 1, "ab"},
	}
	for _, tc := range cases {
		pos := Locate(src, tc.offset)
		if pos.Line != tc.line || pos.Column != tc.column || pos.Text != tc.text {
			t.Fatalf("Locate(%d) = %+v, want line %d column %d text %q", tc.offset, pos, tc.line, tc.column, tc.text)
		}
	}
}
