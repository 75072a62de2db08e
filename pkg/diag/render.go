package diag

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"plc/interpreter-go/pkg/analyzer"
	"plc/interpreter-go/pkg/config"
	"plc/interpreter-go/pkg/interpreter"
	"plc/interpreter-go/pkg/lexer"
	"plc/interpreter-go/pkg/parser"
)

const sourceIndent = "    "

// Renderer prints pipeline errors for humans.
type Renderer struct {
	location lipgloss.Style
	label    lipgloss.Style
	caret    lipgloss.Style
	frame    lipgloss.Style
}

// NewRenderer styles output for w. In auto mode the color profile is
// detected from w, so pipes and buffers get plain text.
func NewRenderer(w io.Writer, mode config.ColorMode) *Renderer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case config.ColorNever:
		r.SetColorProfile(termenv.Ascii)
	case config.ColorAlways:
		r.SetColorProfile(termenv.ANSI)
	}
	red := lipgloss.Color("9")
	return &Renderer{
		location: r.NewStyle().Bold(true),
		label:    r.NewStyle().Foreground(red).Bold(true),
		caret:    r.NewStyle().Foreground(red).Bold(true),
		frame:    r.NewStyle().Faint(true),
	}
}

// Render writes err with plain-text detection on w.
func Render(w io.Writer, path, src string, err error) error {
	return NewRenderer(w, config.ColorAuto).Render(w, path, src, err)
}

// Render writes err for the program at path. Lex and parse errors point
// at the offending character of src.
func (r *Renderer) Render(w io.Writer, path, src string, err error) error {
	if err == nil {
		return nil
	}
	if path == "" {
		path = "<input>"
	}

	if offset, msg, ok := positioned(err); ok {
		pos := Locate(src, offset)
		head := fmt.Sprintf("%s:%d:%d:", path, pos.Line, pos.Column)
		_, werr := fmt.Fprintf(w, "%s %s %s\n%s%s\n%s%s\n",
			r.location.Render(head),
			r.label.Render("error:"),
			msg,
			sourceIndent, pos.Text,
			sourceIndent, pos.Padding+r.caret.Render("^"),
		)
		return werr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", r.location.Render(path+":"), r.label.Render("error:"), message(err))
	var stackErr *interpreter.StackError
	if errors.As(err, &stackErr) {
		for _, line := range stackErr.Trace() {
			b.WriteString(r.frame.Render(line))
			b.WriteByte('\n')
		}
	}
	_, werr := io.WriteString(w, b.String())
	return werr
}

func positioned(err error) (int, string, bool) {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return lexErr.Offset, lexErr.Message, true
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Offset, parseErr.Message, true
	}
	return 0, "", false
}

func message(err error) string {
	var typeErr *analyzer.TypeError
	if errors.As(err, &typeErr) {
		return typeErr.Message
	}
	var runtimeErr *interpreter.RuntimeError
	if errors.As(err, &runtimeErr) {
		return runtimeErr.Message
	}
	return err.Error()
}

// Position is a byte offset translated for display.
type Position struct {
	Line   int
	Column int
	// Text is the source line holding the offset, without its newline.
	Text string
	// Padding lines a caret up under the offset, keeping tabs as tabs.
	Padding string
}

// Locate converts a byte offset into a 1-based line and display column.
// Offsets past the end of src point just after its last character.
func Locate(src string, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	lineStart := strings.LastIndexByte(src[:offset], '\n') + 1
	lineEnd := strings.IndexByte(src[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += offset
	}

	prefix := src[lineStart:offset]
	var pad strings.Builder
	column := 1
	for _, r := range prefix {
		if r == '\t' {
			pad.WriteByte('\t')
			column++
			continue
		}
		width := runewidth.RuneWidth(r)
		pad.WriteString(strings.Repeat(" ", width))
		column += width
	}
	return Position{
		Line:    strings.Count(src[:lineStart], "\n") + 1,
		Column:  column,
		Text:    strings.TrimSuffix(src[lineStart:lineEnd], "\r"),
		Padding: pad.String(),
	}
}
