package main

import (
	"fmt"
	"os"
)

func modeCommandLabel(mode executionMode) string {
	switch mode {
	case modeCheck:
		return "plc check"
	default:
		return "plc run"
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  plc [--verbose] [--max-call-depth=N] run [target]")
	fmt.Fprintln(os.Stderr, "  plc [--verbose] [--max-call-depth=N] run <file.plc>")
	fmt.Fprintln(os.Stderr, "  plc [--verbose] [--max-call-depth=N] <file.plc>")
	fmt.Fprintln(os.Stderr, "  plc [--verbose] check [target]")
	fmt.Fprintln(os.Stderr, "  plc [--verbose] check <file.plc>")
	fmt.Fprintln(os.Stderr, "  plc tokens <file.plc>")
	fmt.Fprintln(os.Stderr, "  plc version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Settings are read from $PLC_HOME/settings.toml (default ~/.plc).")
}
