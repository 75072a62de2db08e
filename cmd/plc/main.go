package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const cliToolVersion = "plc 0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// cliOptions holds the global flags accepted before the command.
type cliOptions struct {
	verbose      bool
	maxCallDepth int
	// depthSet distinguishes an explicit --max-call-depth=0 from the
	// settings.toml value.
	depthSet bool
}

func run(args []string) int {
	opts, rest, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return 1
	}
	if len(rest) == 0 {
		printUsage()
		return 1
	}

	switch rest[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(opts, rest[1:], modeRun)
	case "check":
		return runEntry(opts, rest[1:], modeCheck)
	case "tokens":
		return runTokens(rest[1:])
	default:
		return runEntry(opts, rest, modeRun)
	}
}

func parseGlobalFlags(args []string) (cliOptions, []string, error) {
	var opts cliOptions
	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--verbose" || arg == "-v":
			opts.verbose = true
		case arg == "--max-call-depth":
			if i+1 >= len(args) {
				return opts, nil, fmt.Errorf("--max-call-depth requires a value")
			}
			i++
			if err := opts.setMaxCallDepth(args[i]); err != nil {
				return opts, nil, err
			}
		case strings.HasPrefix(arg, "--max-call-depth="):
			if err := opts.setMaxCallDepth(strings.TrimPrefix(arg, "--max-call-depth=")); err != nil {
				return opts, nil, err
			}
		case arg == "--help" || arg == "-h" || arg == "--version" || arg == "-V":
			return opts, args[i:], nil
		case strings.HasPrefix(arg, "-") && arg != "-":
			return opts, nil, fmt.Errorf("unknown flag %s", arg)
		default:
			return opts, args[i:], nil
		}
	}
	return opts, args[i:], nil
}

func (o *cliOptions) setMaxCallDepth(raw string) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return fmt.Errorf("invalid --max-call-depth %q (expected a non-negative integer)", raw)
	}
	o.maxCallDepth = n
	o.depthSet = true
	return nil
}
