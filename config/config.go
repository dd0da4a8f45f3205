// Package config loads the oxy-frames TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// Window configures the native window of interactive samples.
type Window struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// Config is the complete run configuration.
type Config struct {
	// Backend is "software" or "webgpu".
	Backend string `toml:"backend"`

	// Sample is the registry name of the sample to run.
	Sample string `toml:"sample"`

	// Frames stops interactive samples after that many frames. Zero runs until the window closes,
	// or a single frame on the headless software backend.
	Frames int `toml:"frames"`

	// FrameLimit caps the frame rate of the engine loop. Zero is uncapped.
	FrameLimit int `toml:"frame_limit"`

	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`

	// MSAA is the drawable sample count: 1, 4, 8 or 16.
	MSAA uint32 `toml:"msaa"`

	// AssetPath replaces the embedded image of the textured samples.
	AssetPath string `toml:"asset_path"`

	// AdderElements is the array length of the adder sample.
	AdderElements int `toml:"adder_elements"`

	// ForceFallbackAdapter asks WebGPU for its software adapter.
	ForceFallbackAdapter bool `toml:"force_fallback_adapter"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	Window Window `toml:"window"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Backend:       renderer.BackendTypeSoftware.String(),
		Sample:        "adder",
		PresentMode:   renderer.PresentModeVSync.String(),
		MSAA:          uint32(renderer.MSAAOff),
		AdderElements: 1 << 16,
		LogLevel:      "info",
		Window: Window{
			Title:  "oxy-frames",
			Width:  800,
			Height: 600,
		},
	}
}

// Load decodes the TOML file at path over Default. Unknown keys are rejected so typos do not go
// unnoticed. The result is validated.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the configuration
//   - error: error if the file cannot be read, has unknown keys or fails Validate
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := renderer.ParseBackendType(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := renderer.ParsePresentMode(c.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Sample == "" {
		errs = append(errs, errors.New("sample is empty"))
	}
	if !renderer.MSAASampleCount(c.MSAA).Valid() {
		errs = append(errs, fmt.Errorf("msaa %d is not one of 1, 4, 8, 16", c.MSAA))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames %d is negative", c.Frames))
	}
	if c.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame_limit %d is negative", c.FrameLimit))
	}
	if c.AdderElements <= 0 {
		errs = append(errs, fmt.Errorf("adder_elements %d must be positive", c.AdderElements))
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d has a zero dimension", c.Window.Width, c.Window.Height))
	}
	return errors.Join(errs...)
}

// BackendType returns the parsed backend. Call Validate first.
func (c Config) BackendType() renderer.BackendType {
	b, _ := renderer.ParseBackendType(c.Backend)
	return b
}

// Present returns the parsed present mode. Call Validate first.
func (c Config) Present() renderer.PresentMode {
	m, _ := renderer.ParsePresentMode(c.PresentMode)
	return m
}

// Level returns the parsed log level, info when invalid.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// Write encodes c as TOML.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: error if encoding or writing fails
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

var levels = []string{"debug", "info", "warn", "error"}

func parseLevel(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(levels, s) {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}
