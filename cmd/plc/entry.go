package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"plc/interpreter-go/pkg/config"
	"plc/interpreter-go/pkg/diag"
	"plc/interpreter-go/pkg/driver"
	"plc/interpreter-go/pkg/lexer"
	"plc/interpreter-go/pkg/telemetry"
)

type executionMode int

const (
	modeRun executionMode = iota
	modeCheck
)

func runEntry(opts cliOptions, args []string, mode executionMode) int {
	logger := log.New(os.Stderr, "plc: ", 0)

	settings, settingsPath, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		return 1
	}
	settings = settings.WithEnv(os.Getenv)
	if opts.verbose {
		logger.Printf("settings %s", settingsPath)
	}
	home, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve PLC_HOME: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	entry, err := resolveEntry(ctx, args, home, mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	inst, err := telemetry.New(settings.TelemetryConfig(cliToolVersion, os.Getenv))
	if err != nil {
		logger.Printf("telemetry disabled: %v", err)
		inst = telemetry.Noop()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := inst.Shutdown(shutdownCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	pipeline := &driver.Pipeline{
		Builtins:     entry.builtins,
		Stdout:       os.Stdout,
		Instrumenter: inst,
		MaxCallDepth: settings.Limits.MaxCallDepth,
	}
	if opts.depthSet {
		pipeline.MaxCallDepth = opts.maxCallDepth
	}
	if opts.verbose {
		pipeline.Logger = logger
	}

	switch mode {
	case modeCheck:
		_, err = pipeline.Check(ctx, entry.program)
	default:
		_, err = pipeline.Run(ctx, entry.program)
	}
	if err != nil {
		reportError(os.Stderr, settings.Output.Color, entry, err)
		return 1
	}
	if mode == modeCheck && opts.verbose {
		logger.Printf("%s: %s ok", modeCommandLabel(mode), entry.display)
	}
	return 0
}

func runTokens(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "plc tokens requires exactly one source file")
		return 1
	}
	prog, err := driver.ReadProgram(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	tokens, err := lexer.Tokenize(prog.Source)
	if err != nil {
		settings, _, _ := config.Load()
		reportError(os.Stderr, settings.WithEnv(os.Getenv).Output.Color, entryPoint{program: prog, display: args[0]}, err)
		return 1
	}
	for _, tok := range tokens {
		fmt.Fprintf(os.Stdout, "%d %s %s\n", tok.Offset, tok.Category, tok.Text)
	}
	return 0
}

func reportError(w io.Writer, mode config.ColorMode, entry entryPoint, err error) {
	renderer := diag.NewRenderer(w, mode)
	if rerr := renderer.Render(w, entry.display, entry.program.Source, err); rerr != nil {
		fmt.Fprintln(w, err)
	}
}
