package toolkit

import (
	"fmt"

	"github.com/sloria/paradigm/internal/settings"
)

// Settings keys describing the presentation window.
const (
	FullscreenSetting       = "fullscreen"
	WindowDimensionsSetting = "window_dimensions"
	MonitorSetting          = "monitor"
)

// Display is the window a run is drawn in.
type Display struct {
	Fullscreen bool
	Width      int
	Height     int
	Monitor    string
}

// DisplayFromSettings reads the display keys from cfg. Keys that are not
// defined keep their zero value.
func DisplayFromSettings(cfg *settings.Configuration) (Display, error) {
	var d Display
	if cfg == nil {
		return d, nil
	}
	if cfg.Has(FullscreenSetting) {
		v, err := cfg.Bool(FullscreenSetting)
		if err != nil {
			return d, err
		}
		d.Fullscreen = v
	}
	if cfg.Has(WindowDimensionsSetting) {
		var dims []int
		if err := cfg.Decode(WindowDimensionsSetting, &dims); err != nil {
			return d, err
		}
		if len(dims) != 2 || dims[0] <= 0 || dims[1] <= 0 {
			return d, fmt.Errorf("setting %q must be two positive numbers, got %v", WindowDimensionsSetting, dims)
		}
		d.Width, d.Height = dims[0], dims[1]
	}
	if cfg.Has(MonitorSetting) {
		v, err := cfg.String(MonitorSetting)
		if err != nil {
			return d, err
		}
		d.Monitor = v
	}
	return d, nil
}

func (d Display) attrs() []any {
	return []any{"fullscreen", d.Fullscreen, "width", d.Width, "height", d.Height, "monitor", d.Monitor}
}
