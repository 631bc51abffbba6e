// Command mandelrender renders one Mandelbrot frame to a PNG file.
//
// Usage:
//
//	mandelrender [flags]
//
// Settings come from the built-in defaults, then the -config file (or the
// per-user config.toml when -config is not given and that file exists), then
// the flags that were given explicitly. -zoom and -pan-x/-pan-y are applied as
// scroll and drag input, the same way an interactive viewer would, so
// "-zoom 3 -pan-x 100" is three wheel steps in and a 100 pixel drag.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/config"
	_ "github.com/gogpu/fractal/gpu"
	"github.com/gogpu/fractal/internal/snapshot"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "mandelrender:", err)
		os.Exit(1)
	}
}

type flags struct {
	config      string
	width       int
	height      int
	preset      string
	iterations  int
	zoom        float64
	panX, panY  float64
	device      string
	precision   string
	palette     string
	output      string
	scale       float64
	annotate    bool
	writeConfig string
	verbose     bool
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("mandelrender", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f flags
	fs.StringVar(&f.config, "config", "", "TOML configuration file (default: per-user "+config.FileName+" if present)")
	fs.IntVar(&f.width, "width", 0, "image width in pixels")
	fs.IntVar(&f.height, "height", 0, "image height in pixels")
	fs.StringVar(&f.preset, "preset", "", "named region ("+strings.Join(fractal.PresetNames(), ", ")+")")
	fs.IntVar(&f.iterations, "iterations", 0, "iteration cap")
	fs.Float64Var(&f.zoom, "zoom", 0, "scroll steps to zoom in (negative zooms out)")
	fs.Float64Var(&f.panX, "pan-x", 0, "horizontal drag in pixels")
	fs.Float64Var(&f.panY, "pan-y", 0, "vertical drag in pixels")
	fs.StringVar(&f.device, "device", "", "compute device: auto, "+strings.Join(fractal.Devices(), ", "))
	fs.StringVar(&f.precision, "precision", "", "minimum precision: float32 or float64")
	fs.StringVar(&f.palette, "palette", "", "palette ("+strings.Join(fractal.PaletteNames(), ", ")+")")
	fs.StringVar(&f.output, "output", "mandelbrot.png", "output PNG file")
	fs.Float64Var(&f.scale, "scale", 1, "resample factor applied before writing")
	fs.BoolVar(&f.annotate, "annotate", false, "stamp the view center on the image")
	fs.StringVar(&f.writeConfig, "write-config", "", "write the effective configuration to this file (- for stdout) and exit")
	fs.BoolVar(&f.verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	fractal.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	defer fractal.SetLogger(nil)

	cfg, path, err := config.LoadOrDefault(f.config)
	if err != nil {
		return err
	}
	if path != "" {
		fractal.Logger().Debug("using configuration", "path", path)
	}
	fs.Visit(func(fl *flag.Flag) { f.override(&cfg, fl.Name) })
	if err := cfg.Validate(); err != nil {
		return err
	}

	if f.writeConfig != "" {
		if f.writeConfig == "-" {
			return config.Write(stdout, cfg)
		}
		return config.Save(f.writeConfig, cfg)
	}
	return render(cfg, f, stdout)
}

// override copies an explicitly set flag into cfg.
func (f *flags) override(cfg *config.Config, name string) {
	switch name {
	case "width":
		cfg.Image.Width = f.width
	case "height":
		cfg.Image.Height = f.height
	case "preset":
		cfg.View.Preset = f.preset
	case "iterations":
		cfg.View.MaxIterations = f.iterations
	case "device":
		if strings.EqualFold(f.device, "auto") {
			cfg.Render.Device = fractal.DeviceAuto
		} else {
			cfg.Render.Device = f.device
		}
	case "precision":
		cfg.Render.Precision = f.precision
	case "palette":
		cfg.Render.Palette = f.palette
	}
}

func render(cfg config.Config, f flags, stdout io.Writer) error {
	v, err := cfg.FractalView()
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	ctrl, err := fractal.NewController(v)
	if err != nil {
		return err
	}
	if f.zoom != 0 {
		if err := ctrl.OnScroll(f.zoom); err != nil {
			return err
		}
	}
	if f.panX != 0 || f.panY != 0 {
		if err := ctrl.OnDragDelta(f.panX, f.panY); err != nil {
			return err
		}
	}

	p := fractal.NewPipeline(opts...)
	defer p.Close()
	if err := p.Initialize(v.ImageWidth, v.ImageHeight); err != nil {
		return err
	}

	start := time.Now()
	if _, err := ctrl.Tick(p.RenderFrame); err != nil {
		return err
	}
	elapsed := time.Since(start)

	img, err := p.ReadImage()
	if err != nil {
		return err
	}
	if img, err = snapshot.Scale(img, f.scale); err != nil {
		return err
	}
	if f.annotate {
		if err := snapshot.Annotate(img, ctrl.Title()); err != nil {
			return err
		}
	}
	if err := snapshot.WritePNG(f.output, img); err != nil {
		return err
	}

	final := ctrl.View()
	pr := message.NewPrinter(language.English)
	pr.Fprintf(stdout, "%s: %d pixels on %s in %v\n", f.output, final.ImageWidth*final.ImageHeight, p.Device(), elapsed.Round(time.Microsecond))
	pr.Fprintf(stdout, "  %s\n", final)
	return nil
}
