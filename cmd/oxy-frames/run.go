package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/config"
	"github.com/Carmen-Shannon/oxy-frames/engine"
	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/webgpu"
	"github.com/Carmen-Shannon/oxy-frames/engine/window"
	"github.com/Carmen-Shannon/oxy-frames/samples"
)

// options are the parsed command line flags.
type options struct {
	configPath  string
	sample      string
	backend     string
	frames      int
	list        bool
	writeConfig string
	verbose     bool

	// set records which flags were given explicitly, so only those override the file.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("oxy-frames", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "TOML configuration `file`")
	fs.StringVar(&o.sample, "sample", "", "sample to run: "+strings.Join(samples.Names(), ", "))
	fs.StringVar(&o.backend, "backend", "", "device backend: software or webgpu")
	fs.IntVar(&o.frames, "frames", 0, "stop interactive samples after `n` frames")
	fs.BoolVar(&o.list, "list", false, "list the samples and exit")
	fs.StringVar(&o.writeConfig, "write-config", "", "write the effective configuration to `file` and exit")
	fs.BoolVar(&o.verbose, "v", false, "debug logging and profiler output")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// loadConfig reads the file (or the defaults) and applies explicit flags on top.
func loadConfig(o options) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if o.set["sample"] {
		cfg.Sample = o.sample
	}
	if o.set["backend"] {
		cfg.Backend = o.backend
	}
	if o.set["frames"] {
		cfg.Frames = o.frames
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if o.list {
		for _, s := range samples.All() {
			mode := "interactive"
			if s.Synchronous() {
				mode = "synchronous"
			}
			fmt.Fprintf(stdout, "%-10s %-11s %s\n", s.Name(), mode, s.Description())
		}
		return 0
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	common.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	if o.writeConfig != "" {
		if err := writeConfig(o.writeConfig, cfg); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	if err := runSample(ctx, cfg, o.verbose); err != nil {
		common.Logger().Error("run failed", "sample", cfg.Sample, "error", err)
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func writeConfig(path string, cfg config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := cfg.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return f.Close()
}

func runSample(ctx context.Context, cfg config.Config, profile bool) error {
	s, ok := samples.Lookup(cfg.Sample)
	if !ok {
		return fmt.Errorf("unknown sample %q, have %s", cfg.Sample, strings.Join(samples.Names(), ", "))
	}
	env := samples.Env{
		TexturePath:  cfg.AssetPath,
		ElementCount: cfg.AdderElements,
	}

	if s.Synchronous() {
		dev, err := newHeadlessDevice(cfg, s)
		if err != nil {
			return err
		}
		defer dev.Release()
		return runSynchronous(ctx, s, dev, env)
	}

	if cfg.BackendType() == renderer.BackendTypeWGPU {
		return runWindowed(ctx, cfg, s, env, profile)
	}
	return runHeadless(ctx, cfg, s, env, profile)
}

func newHeadlessDevice(cfg config.Config, s samples.Sample) (renderer.Device, error) {
	if cfg.BackendType() == renderer.BackendTypeWGPU {
		return webgpu.NewDevice(
			webgpu.WithLabel(s.Name()),
			webgpu.WithForceFallbackAdapter(cfg.ForceFallbackAdapter),
		)
	}
	return software.NewDevice(software.WithName(s.Name()), software.WithFunctions(s.Software())), nil
}

// runSynchronous runs a single frame, waits for it and verifies the results.
func runSynchronous(ctx context.Context, s samples.Sample, dev renderer.Device, env samples.Env) error {
	exec, err := samples.Prepare(ctx, s, dev, env)
	if err != nil {
		return err
	}
	defer exec.Release()

	if err := exec.RunFrame(ctx, nil); err != nil {
		return err
	}
	if err := s.Verify(ctx, exec); err != nil {
		return err
	}
	common.Logger().Info("verification passed", "sample", s.Name(), "device", dev.Name())
	return nil
}

// runHeadless drives an interactive sample against an offscreen software surface.
func runHeadless(ctx context.Context, cfg config.Config, s samples.Sample, env samples.Env, profile bool) error {
	dev := software.NewDevice(software.WithName(s.Name()), software.WithFunctions(s.Software()))
	defer dev.Release()

	surface, err := software.NewSurface(dev, cfg.Window.Width, cfg.Window.Height,
		common.Coalesce(s.DrawableFormat(), renderer.PixelFormatBGRA8Unorm),
		software.WithSampleCount(cfg.MSAA),
	)
	if err != nil {
		return err
	}
	env.Surface = surface

	exec, err := samples.Prepare(ctx, s, dev, env, executor.WithWaitUntilCompleted(true))
	if err != nil {
		return err
	}
	defer exec.Release()

	eng := engine.NewEngine(
		engine.WithSink(exec),
		engine.WithSurface(surface),
		engine.WithMaxFrames(uint64(max(cfg.Frames, 1))),
		engine.WithRenderFrameLimit(float64(cfg.FrameLimit)),
		engine.WithProfiling(profile),
	)
	if err := eng.Run(ctx); err != nil {
		return err
	}
	stats := exec.Stats()
	common.Logger().Info("headless run finished", "sample", s.Name(), "frames", eng.Frames(),
		"submitted", stats.Submitted, "skipped", stats.Skipped, "presented", surface.Presented())
	return nil
}

// runWindowed opens a window and renders into its swapchain until it closes.
func runWindowed(ctx context.Context, cfg config.Config, s samples.Sample, env samples.Env, profile bool) error {
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title+" - "+s.Name()),
		window.WithSize(int(cfg.Window.Width), int(cfg.Window.Height)),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	dev, err := webgpu.NewDevice(
		webgpu.WithLabel(s.Name()),
		webgpu.WithSurfaceDescriptor(win.SurfaceDescriptor()),
		webgpu.WithForceFallbackAdapter(cfg.ForceFallbackAdapter),
	)
	if err != nil {
		return err
	}
	defer dev.Release()

	surface, err := webgpu.NewSurface(dev, uint32(win.Width()), uint32(win.Height()),
		webgpu.WithPresentMode(cfg.Present()),
		webgpu.WithSampleCount(cfg.MSAA),
		webgpu.WithPreferredFormat(s.DrawableFormat()),
	)
	if err != nil {
		return err
	}
	env.Surface = surface

	exec, err := samples.Prepare(ctx, s, dev, env)
	if err != nil {
		return err
	}
	defer exec.Release()

	eng := engine.NewEngine(
		engine.WithSink(exec),
		engine.WithSurface(surface),
		engine.WithWindow(win),
		engine.WithMaxFrames(uint64(cfg.Frames)),
		engine.WithRenderFrameLimit(float64(cfg.FrameLimit)),
		engine.WithProfiling(profile),
	)
	return eng.Run(ctx)
}
