package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format selects the report encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a name such as "json" or "yml" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q: must be 'csv', 'json' or 'yaml'", s)
	}
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

var csvHeader = []string{
	"run_id", "environment", "index", "name", "kind", "trial", "condition",
	"status", "onset", "response_key", "rt", "timed_out",
}

// Write encodes the report to w.
func Write(w io.Writer, rep *RunReport, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

func writeCSV(w io.Writer, rep *RunReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	runID := rep.RunID.String()
	for _, rec := range rep.Records {
		var key, rt string
		if rec.Response != nil {
			key = rec.Response.Key
			rt = rec.Response.RT.String()
		}
		row := []string{
			runID,
			rep.Environment,
			strconv.Itoa(rec.Index),
			rec.Name,
			rec.Kind,
			strconv.Itoa(rec.Trial),
			rec.Condition,
			rec.Status,
			rec.Onset.String(),
			key,
			rt,
			strconv.FormatBool(rec.TimedOut),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TimestampedPath inserts a _YYYYMMDD-HHMMSS suffix before the extension of path.
func TimestampedPath(path string, at time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + at.Format("_20060102-150405") + ext
}

// Save writes the report to a timestamped variant of path, creating parent
// directories, and returns the path written. The extension of path is
// replaced by the format's.
func Save(path string, rep *RunReport, f Format) (string, error) {
	path = strings.TrimSuffix(path, filepath.Ext(path)) + f.Ext()
	out := TimestampedPath(path, rep.StartedAt)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	file, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := Write(file, rep, f); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return out, nil
}
