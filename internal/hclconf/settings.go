package hclconf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/fsutil"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/zclconf/go-cty/cty"
)

// BaseFile is the name of the settings file holding the base layer.
const BaseFile = "base.hcl"

// ErrNoBaseSettings is returned when the settings directory has no base file.
var ErrNoBaseSettings = errors.New("no base settings file")

// LoadSettings reads dir/base.hcl as the base layer and every other .hcl file
// in dir as an overlay named after the file.
func LoadSettings(ctx context.Context, dir string) (settings.Layer, []settings.Layer, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading settings.", "dir", dir)

	files, err := fsutil.ListFilesByExtension(dir, ".hcl")
	if err != nil {
		return settings.Layer{}, nil, fmt.Errorf("failed to list settings files: %w", err)
	}

	parser := hclparse.NewParser()
	var base *settings.Layer
	var overlays []settings.Layer
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".hcl")
		layer, err := parseLayer(parser, name, file)
		if err != nil {
			return settings.Layer{}, nil, err
		}
		if filepath.Base(file) == BaseFile {
			base = &layer
			continue
		}
		overlays = append(overlays, layer)
	}
	if base == nil {
		return settings.Layer{}, nil, fmt.Errorf("%w: %s", ErrNoBaseSettings, filepath.Join(dir, BaseFile))
	}

	logger.Debug("Settings loaded.", "base_keys", len(base.Values), "overlays", len(overlays))
	return *base, overlays, nil
}

func parseLayer(parser *hclparse.Parser, name, file string) (settings.Layer, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return settings.Layer{}, fmt.Errorf("failed to read settings file %s: %w", file, err)
	}
	hclFile, diags := parser.ParseHCL(src, file)
	if diags.HasErrors() {
		return settings.Layer{}, fmt.Errorf("failed to parse settings file %s: %w", file, diags)
	}
	attrs, diags := hclFile.Body.JustAttributes()
	if diags.HasErrors() {
		return settings.Layer{}, fmt.Errorf("failed to decode settings file %s: %w", file, diags)
	}

	values := make(map[string]cty.Value, len(attrs))
	for key, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return settings.Layer{}, fmt.Errorf("settings file %s: %w", file, diags)
		}
		values[key] = val
	}

	layer := settings.NewLayer(name, values)
	layer.Source = file
	return layer, nil
}
