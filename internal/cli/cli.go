package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sloria/paradigm/internal/app"
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

// Invocation is the outcome of a successful parse.
type Invocation struct {
	Config *app.Config
	// PrintSettings asks for the resolved settings to be written instead of
	// running the experiment.
	PrintSettings bool
}

// defaults are read from the environment and overridden by flags.
type defaults struct {
	Environment  string `env:"PARADIGM_ENV"           envDefault:"dev"`
	Settings     string `env:"PARADIGM_SETTINGS"      envDefault:"settings"`
	Experiment   string `env:"PARADIGM_EXPERIMENT"`
	Assets       string `env:"PARADIGM_ASSETS"        envDefault:"assets"`
	Output       string `env:"PARADIGM_OUTPUT"        envDefault:"data/run.csv"`
	ReportFormat string `env:"PARADIGM_REPORT_FORMAT" envDefault:"csv"`
	LogFormat    string `env:"PARADIGM_LOG_FORMAT"    envDefault:"text"`
	LogLevel     string `env:"PARADIGM_LOG_LEVEL"`
	ControlPort  int    `env:"PARADIGM_CONTROL_PORT"  envDefault:"0"`
}

// Parse processes command-line arguments against the process environment. It
// returns the invocation, a boolean indicating if the program should exit
// cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	return ParseWithEnv(args, nil, output)
}

// ParseWithEnv is Parse with an explicit environment. A nil environ reads the
// process environment.
func ParseWithEnv(args []string, environ map[string]string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")

	var d defaults
	var err error
	if environ == nil {
		err = env.Parse(&d)
	} else {
		err = env.ParseWithOptions(&d, env.Options{Environment: environ})
	}
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid environment: %v", err)}
	}

	flagSet := flag.NewFlagSet("paradigm", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Paradigm - Present a declarative stimulus experiment and record responses.

Usage:
  paradigm [options] [EXPERIMENT_PATH]

Arguments:
  EXPERIMENT_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Environment:
  Every option can be defaulted with PARADIGM_<OPTION>, e.g. PARADIGM_ENV=mri.

Options:
`)
		flagSet.PrintDefaults()
	}

	envFlag := flagSet.String("env", d.Environment, "Settings overlay to apply, e.g. 'dev' or 'mri'.")
	eFlag := flagSet.String("e", "", "Settings overlay to apply (shorthand).")
	settingsFlag := flagSet.String("settings", d.Settings, "Directory containing base.hcl and the overlay files.")
	experimentFlag := flagSet.String("experiment", d.Experiment, "Path to the experiment file or directory.")
	assetsFlag := flagSet.String("assets", d.Assets, "Directory image paths are resolved against.")
	outputFlag := flagSet.String("output", d.Output, "Report path; a timestamp is added. Empty disables the report.")
	reportFormatFlag := flagSet.String("report-format", d.ReportFormat, "Report format. Options: 'csv', 'json' or 'yaml'.")
	logFormatFlag := flagSet.String("log-format", d.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", d.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'. Empty uses the logging_level setting.")
	controlPortFlag := flagSet.Int("control-port", d.ControlPort, "Port for the operator control server. 0 is disabled.")
	printSettingsFlag := flagSet.Bool("print-settings", false, "Print the resolved settings as HCL and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	environment := *envFlag
	if *eFlag != "" {
		environment = *eFlag
	}

	path := *experimentFlag
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Experiment path determined.", "path", path)

	if path == "" && !*printSettingsFlag {
		slog.Debug("No experiment path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Environment:    environment,
		SettingsPath:   *settingsFlag,
		ExperimentPath: path,
		AssetsPath:     *assetsFlag,
		OutputPath:     *outputFlag,
		ReportFormat:   strings.ToLower(*reportFormatFlag),
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		ControlPort:    *controlPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return &Invocation{Config: config, PrintSettings: *printSettingsFlag}, false, nil
}
