package driver

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"plc/interpreter-go/pkg/analyzer"
	"plc/interpreter-go/pkg/ast"
	"plc/interpreter-go/pkg/interpreter"
	"plc/interpreter-go/pkg/lexer"
	"plc/interpreter-go/pkg/parser"
	"plc/interpreter-go/pkg/runtime"
	"plc/interpreter-go/pkg/telemetry"
)

// Program is one source file handed to the pipeline.
type Program struct {
	Path   string
	Source string
}

// ReadProgram loads a program from disk.
func ReadProgram(path string) (Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Program{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Program{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Program{Path: abs, Source: string(data)}, nil
}

// Pipeline runs lex, parse, analyze and (for Run) interpret over a
// program. Each stage finishes before the next starts and the first error
// stops the pipeline.
type Pipeline struct {
	// Builtins restricts the base scope. Empty means every builtin.
	Builtins []string
	// Stdout receives print output. Nil means os.Stdout.
	Stdout       io.Writer
	Instrumenter telemetry.Instrumenter
	// MaxCallDepth bounds method nesting. Zero means unlimited.
	MaxCallDepth int
	// Logger receives stage timings when set.
	Logger *log.Logger
}

// Check lexes, parses and analyzes prog, returning the annotated tree.
func (p *Pipeline) Check(ctx context.Context, prog Program) (*ast.Source, error) {
	ctx, root, runID := p.begin(ctx, prog)
	tree, err := p.check(ctx, prog, runID)
	root.End(telemetry.StageResult{Err: err, Methods: methodCount(tree)})
	return tree, err
}

// Run checks prog and then executes its main method.
func (p *Pipeline) Run(ctx context.Context, prog Program) (runtime.Value, error) {
	ctx, root, runID := p.begin(ctx, prog)
	tree, err := p.check(ctx, prog, runID)
	var value runtime.Value
	if err == nil {
		value, err = p.execute(ctx, prog, runID, tree)
	}
	result := telemetry.StageResult{Err: err, Methods: methodCount(tree)}
	if value != nil {
		result.Value = runtime.Display(value)
	}
	root.End(result)
	return value, err
}

func (p *Pipeline) begin(ctx context.Context, prog Program) (context.Context, telemetry.StageSpan, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	ctx, span := p.instrumenter().Start(ctx, telemetry.StageStart{
		Stage: telemetry.StageProgram,
		Path:  prog.Path,
		RunID: runID,
	})
	return ctx, span, runID
}

func (p *Pipeline) check(ctx context.Context, prog Program, runID string) (*ast.Source, error) {
	var tokens []lexer.Token
	err := p.stage(ctx, telemetry.StageLex, prog, runID, func(context.Context) telemetry.StageResult {
		var err error
		tokens, err = lexer.Tokenize(prog.Source)
		return telemetry.StageResult{Err: err, Tokens: len(tokens)}
	})
	if err != nil {
		return nil, err
	}

	var tree *ast.Source
	err = p.stage(ctx, telemetry.StageParse, prog, runID, func(context.Context) telemetry.StageResult {
		var err error
		tree, err = parser.Parse(tokens)
		return telemetry.StageResult{Err: err, Methods: methodCount(tree)}
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, telemetry.StageAnalyze, prog, runID, func(context.Context) telemetry.StageResult {
		base, err := BaseScope(p.Builtins, nil)
		if err != nil {
			return telemetry.StageResult{Err: err}
		}
		types, err := TypeTable(p.Builtins)
		if err != nil {
			return telemetry.StageResult{Err: err}
		}
		return telemetry.StageResult{Err: analyzer.New(base, analyzer.WithTypes(types)).Analyze(tree)}
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (p *Pipeline) execute(ctx context.Context, prog Program, runID string, tree *ast.Source) (runtime.Value, error) {
	var value runtime.Value
	err := p.stage(ctx, telemetry.StageRun, prog, runID, func(ctx context.Context) telemetry.StageResult {
		base, err := BaseScope(p.Builtins, p.stdout())
		if err != nil {
			return telemetry.StageResult{Err: err}
		}
		interp := interpreter.New(base, interpreter.WithMaxCallDepth(p.MaxCallDepth))
		value, err = interp.Run(ctx, tree)
		result := telemetry.StageResult{Err: err}
		if value != nil {
			result.Value = runtime.Display(value)
		}
		return result
	})
	return value, err
}

func (p *Pipeline) stage(ctx context.Context, stage telemetry.Stage, prog Program, runID string, fn func(context.Context) telemetry.StageResult) error {
	started := time.Now()
	ctx, span := p.instrumenter().Start(ctx, telemetry.StageStart{Stage: stage, Path: prog.Path, RunID: runID})
	result := fn(ctx)
	span.End(result)
	if p.Logger != nil {
		status := "ok"
		if result.Err != nil {
			status = "failed"
		}
		p.Logger.Printf("%s %s %s in %s", stage, displayPath(prog.Path), status, time.Since(started).Round(time.Microsecond))
	}
	return result.Err
}

func (p *Pipeline) instrumenter() telemetry.Instrumenter {
	if p.Instrumenter == nil {
		return telemetry.Noop()
	}
	return p.Instrumenter
}

func (p *Pipeline) stdout() io.Writer {
	if p.Stdout == nil {
		return os.Stdout
	}
	return p.Stdout
}

func methodCount(tree *ast.Source) int {
	if tree == nil {
		return 0
	}
	return len(tree.Methods)
}

func displayPath(path string) string {
	if path == "" {
		return "<input>"
	}
	return path
}
