package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/andrea-alfonsi/nyx/internal/app"
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

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("nyx", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
nyx - load Go and C plugins at runtime and run the commands they register.

Usage:
  nyx [options] [list]
  nyx [options] call NAME [ARGS...]
  nyx [options] serve

Commands:
  list    Print every registered function and the library providing it (default).
  call    Run the function NAME with ARGS and print its output.
  serve   Serve /health, /functions and POST /call/{name} until interrupted.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths, pluginPaths, pluginDirs stringList
	flagSet.Var(&configPaths, "config", "Path to an .hcl/.toml config file or a directory of them. Repeatable.")
	flagSet.Var(&configPaths, "c", "Path to a config file or directory (shorthand).")
	flagSet.Var(&pluginPaths, "plugin", "Path to a plugin shared object. Repeatable.")
	flagSet.Var(&pluginDirs, "plugins-dir", "Directory scanned for plugin shared objects. Repeatable.")
	builtinsFlag := flagSet.Bool("builtins", true, "Load the commands compiled into nyx (env) before any plugin.")
	backendFlag := flagSet.String("backend", "go", "Backend for -plugin and -plugins-dir. Options: 'go' or 'c'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP server used by serve. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if len(configPaths) == 0 && len(pluginPaths) == 0 && len(pluginDirs) == 0 && flagSet.NArg() == 0 {
		slog.Debug("Nothing to do, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	var command string
	var commandArgs []string
	if flagSet.NArg() > 0 {
		command = flagSet.Arg(0)
		commandArgs = flagSet.Args()[1:]
	}
	slog.Debug("Command determined.", "command", command, "args", len(commandArgs))

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPaths:     configPaths,
		PluginPaths:     pluginPaths,
		PluginDirs:      pluginDirs,
		Backend:         strings.ToLower(*backendFlag),
		Builtins:        *builtinsFlag,
		Command:         command,
		Args:            commandArgs,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
