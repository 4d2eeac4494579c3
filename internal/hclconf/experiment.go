package hclconf

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/sloria/paradigm/internal/ctxlog"
	"github.com/sloria/paradigm/internal/fsutil"
	"github.com/sloria/paradigm/internal/settings"
	"github.com/sloria/paradigm/internal/stimulus"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// experimentFile is the root of an experiment file.
type experimentFile struct {
	Stimuli []*stimulusBlock `hcl:"stimulus,block"`
}

type stimulusBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var stimulusSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "content"},
		{Name: "duration"},
		{Name: "position"},
		{Name: "trial"},
		{Name: "condition"},
		{Name: "factory"},
		{Name: "params"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "response"},
	},
}

type responseBlock struct {
	Window *float64 `hcl:"window,optional"`
	Keys   []string `hcl:"keys,optional"`
}

// LoadExperiment reads every .hcl file under path, in lexical order, and
// returns the stimuli in declaration order. Expressions may reference the
// resolved settings as settings.<key>.
func LoadExperiment(ctx context.Context, path string, cfg *settings.Configuration) (*stimulus.Experiment, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading experiment.", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find experiment files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", path)
	}

	evalCtx := newEvalContext(cfg)
	parser := hclparse.NewParser()
	exp := stimulus.NewExperiment()
	seen := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root experimentFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Stimuli {
			spec, err := translateStimulus(block, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: stimulus %q: %w", file, block.Name, err)
			}
			if prev, dup := seen[spec.Name]; dup {
				return nil, fmt.Errorf("%s: stimulus %q already declared in %s", file, spec.Name, prev)
			}
			seen[spec.Name] = file
			spec.Source = file
			exp.Stimuli = append(exp.Stimuli, spec)
		}
	}

	logger.Debug("Experiment loaded.", "files", len(files), "stimuli", exp.Len())
	return exp, nil
}

func newEvalContext(cfg *settings.Configuration) *hcl.EvalContext {
	vars := cty.EmptyObjectVal
	if cfg != nil {
		vars = cfg.Variables()
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"settings": vars},
		Functions: map[string]function.Function{
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"length": stdlib.LengthFunc,
			"lower":  stdlib.LowerFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}

func translateStimulus(block *stimulusBlock, evalCtx *hcl.EvalContext) (*stimulus.Spec, error) {
	content, diags := block.Body.Content(stimulusSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	spec := &stimulus.Spec{Name: block.Name, Kind: stimulus.Kind(block.Kind)}
	attrs := content.Attributes

	if err := decodeAttr(attrs, "content", evalCtx, &spec.Content); err != nil {
		return nil, err
	}
	if err := decodeAttr(attrs, "condition", evalCtx, &spec.Condition); err != nil {
		return nil, err
	}
	if err := decodeAttr(attrs, "trial", evalCtx, &spec.Trial); err != nil {
		return nil, err
	}
	if err := decodeAttr(attrs, "factory", evalCtx, &spec.Factory); err != nil {
		return nil, err
	}

	var seconds float64
	if err := decodeAttr(attrs, "duration", evalCtx, &seconds); err != nil {
		return nil, err
	}
	d, err := secondsToDuration("duration", seconds)
	if err != nil {
		return nil, err
	}
	spec.Duration = d

	var pos []float64
	if err := decodeAttr(attrs, "position", evalCtx, &pos); err != nil {
		return nil, err
	}
	if pos != nil {
		if len(pos) != 2 {
			return nil, fmt.Errorf("position must have exactly two elements, got %d", len(pos))
		}
		spec.Position = stimulus.Position{X: pos[0], Y: pos[1]}
	}

	if attr, ok := attrs["params"]; ok {
		params, err := decodeParams(attr, evalCtx)
		if err != nil {
			return nil, err
		}
		spec.Params = params
	}

	switch {
	case spec.Kind == stimulus.KindCustom && spec.Factory == "":
		return nil, fmt.Errorf("custom stimulus requires a factory")
	case spec.Kind != stimulus.KindCustom && spec.Factory != "":
		return nil, fmt.Errorf("factory is only valid on custom stimuli, not %q", spec.Kind)
	}

	respBlock, diags := findUniqueBlock(content.Blocks, "response")
	if diags.HasErrors() {
		return nil, diags
	}
	if respBlock != nil {
		var rb responseBlock
		if diags := gohcl.DecodeBody(respBlock.Body, evalCtx, &rb); diags.HasErrors() {
			return nil, diags
		}
		w := &stimulus.ResponseWindow{Keys: rb.Keys}
		if rb.Window != nil {
			if w.Timeout, err = secondsToDuration("response window", *rb.Window); err != nil {
				return nil, err
			}
		}
		spec.Response = w
	}

	return spec, nil
}

// decodeAttr evaluates the named attribute into target, leaving target
// untouched when the attribute is absent or null.
func decodeAttr(attrs hcl.Attributes, name string, evalCtx *hcl.EvalContext, target any) error {
	attr, ok := attrs[name]
	if !ok {
		return nil
	}
	val, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return diags
	}
	if val.IsNull() {
		return nil
	}
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("attribute %q: target must be a non-nil pointer, got %T", name, target)
	}
	ty, err := gocty.ImpliedType(ptr.Elem().Interface())
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("attribute %q: cannot convert %s to %s: %w", name, val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}
	return nil
}

func decodeParams(attr *hcl.Attribute, evalCtx *hcl.EvalContext) (map[string]cty.Value, error) {
	val, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", ty.FriendlyName())
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("params must be constant")
	}
	return val.AsValueMap(), nil
}

func secondsToDuration(what string, secs float64) (time.Duration, error) {
	d, err := settings.SecondsToDuration(secs)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return d, nil
}
