// Package cli parses command line arguments into an app configuration and
// a command to run.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/valaphee/flow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Command is one parsed invocation.
type Command struct {
	// Name is one of "serve", "run", "import" or "list".
	Name string
	// Config is the shared application configuration.
	Config *app.Config
	// GraphName is set for "run".
	GraphName string
	// ImportPath is set for "import".
	ImportPath string
}

const usage = `flow - A dataflow graph runtime.

Usage:
  flow <command> [options]

Commands:
  serve    Start the graph service.
  run      Run one graph to completion.
  import   Import .hcl graph documents into the store.
  list     List stored graphs.

Options:
`

// Parse processes command-line arguments. It returns a populated Command,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Command, bool, error) {
	if len(args) == 0 {
		fmt.Fprint(output, usage)
		printDefaults(output)
		return nil, true, nil
	}

	name := args[0]
	switch name {
	case "serve", "run", "import", "list":
	case "-h", "--help", "help":
		fmt.Fprint(output, usage)
		printDefaults(output)
		return nil, true, nil
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", name)}
	}

	flagSet := flag.NewFlagSet("flow "+name, flag.ContinueOnError)
	flagSet.SetOutput(output)

	storeFlag := flagSet.String("store", "graphs", "Path to the graph store directory.")
	listenFlag := flagSet.String("listen", ":8080", "Listen address for the service (serve only).")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cmd := &Command{
		Name: name,
		Config: &app.Config{
			StorePath: *storeFlag,
			Listen:    *listenFlag,
			LogFormat: logFormat,
			LogLevel:  logLevel,
		},
	}

	switch name {
	case "run":
		if flagSet.NArg() != 1 {
			return nil, false, &ExitError{Code: 2, Message: "run requires exactly one graph name"}
		}
		cmd.GraphName = flagSet.Arg(0)
	case "import":
		if flagSet.NArg() != 1 {
			return nil, false, &ExitError{Code: 2, Message: "import requires exactly one .hcl file or directory"}
		}
		cmd.ImportPath = flagSet.Arg(0)
	default:
		if flagSet.NArg() > 0 {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("%s takes no arguments", name)}
		}
	}
	return cmd, false, nil
}

func printDefaults(output io.Writer) {
	flagSet := flag.NewFlagSet("flow", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.String("store", "graphs", "Path to the graph store directory.")
	flagSet.String("listen", ":8080", "Listen address for the service (serve only).")
	flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.PrintDefaults()
}
