// Package config loads fractal settings from TOML files.
//
// A configuration file has four optional sections:
//
//	[image]
//	width = 1200
//	height = 800
//
//	[view]
//	preset = "seahorse-valley"   # overrides center and extent when set
//	center_x = -0.5
//	center_y = 0.0
//	width = 2.0
//	height = 2.0
//	max_iterations = 30
//
//	[render]
//	device = ""                  # "", "cpu" or "gpu"
//	precision = "float64"
//	palette = "hue"
//	interior = "black"           # color name or #rrggbb
//	pixel_format = "rgba"
//	workers = 0
//
//	[server]
//	addr = "localhost:8080"
//	frame_interval = "16ms"
//	origin_patterns = []
//
// Missing keys keep their defaults. Unknown keys are an error so that typos
// do not silently fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/fractal"
)

// FileName is the name of the configuration file inside Dir.
const FileName = "config.toml"

// Config is the complete set of settings.
type Config struct {
	Image  Image  `toml:"image"`
	View   View   `toml:"view"`
	Render Render `toml:"render"`
	Server Server `toml:"server"`
}

// Image holds the output size in pixels.
type Image struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// View is the initial region of the complex plane.
type View struct {
	Preset        string  `toml:"preset"`
	CenterX       float64 `toml:"center_x"`
	CenterY       float64 `toml:"center_y"`
	Width         float64 `toml:"width"`
	Height        float64 `toml:"height"`
	MaxIterations int     `toml:"max_iterations"`
}

// Render selects the compute device and the coloring.
type Render struct {
	Device      string `toml:"device"`
	Precision   string `toml:"precision"`
	Palette     string `toml:"palette"`
	Interior    string `toml:"interior"`
	PixelFormat string `toml:"pixel_format"`
	Workers     int    `toml:"workers"`
}

// Server configures the websocket viewer.
type Server struct {
	Addr           string   `toml:"addr"`
	FrameInterval  Duration `toml:"frame_interval"`
	OriginPatterns []string `toml:"origin_patterns"`
}

// Duration is a time.Duration written as a string such as "16ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Image: Image{Width: 1200, Height: 800},
		View: View{
			CenterX:       fractal.DefaultCenterX,
			CenterY:       fractal.DefaultCenterY,
			Width:         fractal.DefaultExtent,
			Height:        fractal.DefaultExtent,
			MaxIterations: fractal.DefaultMaxIterations,
		},
		Render: Render{
			Device:      fractal.DeviceAuto,
			Precision:   fractal.Float64.String(),
			Palette:     "hue",
			Interior:    "black",
			PixelFormat: fractal.FormatRGBA.String(),
		},
		Server: Server{
			Addr:          "localhost:8080",
			FrameInterval: Duration{16 * time.Millisecond},
		},
	}
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "fractal"), nil
}

// Path returns the per-user configuration file, Dir joined with FileName.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// LoadOrDefault loads path. When path is empty it loads the per-user file
// if one exists and falls back to Default otherwise. It returns the path
// that was read, or "" for the defaults.
func LoadOrDefault(path string) (Config, string, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), "", nil
		}
		if _, err := os.Stat(p); err != nil {
			return Default(), "", nil
		}
		path = p
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	fractal.Logger().Debug("config loaded", "path", path)
	return cfg, nil
}

// Decode reads a configuration from r on top of Default.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return f.Close()
}

// Validate checks every setting without opening a device.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.FractalView(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Options(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.FrameInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("server.frame_interval must not be negative"))
	}
	return errors.Join(errs...)
}

// FractalView returns the initial view described by c.
func (c Config) FractalView() (fractal.View, error) {
	v := fractal.View{
		ImageWidth:    c.Image.Width,
		ImageHeight:   c.Image.Height,
		CenterX:       c.View.CenterX,
		CenterY:       c.View.CenterY,
		Width:         c.View.Width,
		Height:        c.View.Height,
		MaxIterations: c.View.MaxIterations,
	}
	if c.View.Preset != "" {
		r, err := fractal.Preset(c.View.Preset)
		if err != nil {
			return fractal.View{}, err
		}
		v = r.Apply(v)
	}
	if err := v.Validate(); err != nil {
		return fractal.View{}, err
	}
	return v, nil
}

// Options returns the pipeline options described by c.Render.
func (c Config) Options() ([]fractal.Option, error) {
	r := c.Render

	precision, err := fractal.ParsePrecision(r.Precision)
	if err != nil {
		return nil, err
	}
	palette, err := fractal.PaletteByName(r.Palette)
	if err != nil {
		return nil, err
	}
	format, err := fractal.ParsePixelFormat(r.PixelFormat)
	if err != nil {
		return nil, err
	}
	opts := []fractal.Option{
		fractal.WithDevice(r.Device),
		fractal.WithPrecision(precision),
		fractal.WithPalette(palette),
		fractal.WithPixelFormat(format),
		fractal.WithWorkers(r.Workers),
	}
	if r.Interior != "" {
		interior, err := ParseColor(r.Interior)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fractal.WithInterior(interior))
	}
	return opts, nil
}
