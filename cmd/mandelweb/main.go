// Command mandelweb serves an interactive Mandelbrot viewer over websockets.
//
// The browser page draws frames on a canvas and sends pointer, wheel and
// keyboard input back as JSON commands. Every connection explores its own
// view; frames are computed on one shared pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/config"
	_ "github.com/gogpu/fractal/gpu"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file (default: per-user "+config.FileName+" if present)")
		addr       = flag.String("addr", "", "listen address (overrides server.addr)")
		device     = flag.String("device", "", "compute device (overrides render.device)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	fractal.SetLogger(log)

	if err := run(*configPath, *addr, *device, log); err != nil {
		log.Error("mandelweb failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, addr, device string, log *slog.Logger) error {
	cfg, path, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if path != "" {
		log.Info("using configuration", "path", path)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if device != "" {
		cfg.Render.Device = device
	}

	srv, err := newServer(cfg, log)
	if err != nil {
		return err
	}
	defer srv.pipe.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "url", "http://"+cfg.Server.Addr, "device", srv.pipe.Device())
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newServer opens the shared pipeline described by cfg.
func newServer(cfg config.Config, log *slog.Logger) (*server, error) {
	v, err := cfg.FractalView()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	p := fractal.NewPipeline(opts...)
	if err := p.Initialize(v.ImageWidth, v.ImageHeight); err != nil {
		p.Close()
		return nil, err
	}

	interval := cfg.Server.FrameInterval.Duration
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &server{
		pipe:           p,
		initial:        v,
		interval:       interval,
		originPatterns: cfg.Server.OriginPatterns,
		log:            log,
	}, nil
}
