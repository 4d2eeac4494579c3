package app

import (
	"errors"

	"github.com/sloria/paradigm/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Environment    string // overlay to resolve, e.g. "dev" or "mri"
	SettingsPath   string // directory with base.hcl and one file per overlay
	ExperimentPath string // hcl file or directory, required by Run
	AssetsPath     string // image paths are resolved against it
	OutputPath     string // report path before the timestamp suffix, empty disables
	ReportFormat   string

	LogFormat   string
	LogLevel    string // empty defers to the logging_level setting
	ControlPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Environment == "" {
		return nil, errors.New("Environment is a required configuration field and cannot be empty")
	}
	if cfg.SettingsPath == "" {
		return nil, errors.New("SettingsPath is a required configuration field and cannot be empty")
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = string(report.FormatCSV)
	}
	if _, err := report.ParseFormat(cfg.ReportFormat); err != nil {
		return nil, err
	}
	return &cfg, nil
}
