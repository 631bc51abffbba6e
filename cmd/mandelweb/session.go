package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gogpu/fractal"
)

// command is a client message. Which fields are read depends on Type.
type command struct {
	Type  string  `json:"type"`
	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	Delta float64 `json:"delta,omitempty"`
	N     int     `json:"n,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Name  string  `json:"name,omitempty"`
}

var errUnknownCommand = errors.New("unknown command")

// event translates a command into a controller event.
func (c command) event() (fractal.Event, error) {
	switch c.Type {
	case "down":
		return fractal.PointerDown{}, nil
	case "up":
		return fractal.PointerUp{}, nil
	case "move":
		return fractal.PointerMove{DX: c.DX, DY: c.DY}, nil
	case "drag":
		return fractal.Drag{DX: c.DX, DY: c.DY}, nil
	case "scroll":
		return fractal.Scroll{Delta: c.Delta}, nil
	case "iterations":
		return fractal.SetMaxIterations{N: c.N}, nil
	case "center":
		return fractal.Recenter{X: c.X, Y: c.Y}, nil
	case "preset":
		r, err := fractal.Preset(c.Name)
		if err != nil {
			return nil, err
		}
		return fractal.Goto{Region: r}, nil
	case "reset":
		return fractal.Reset{}, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownCommand, c.Type)
}

// Server messages. Frames are sent as binary messages holding the raw color
// buffer; everything else is JSON text.
type hello struct {
	Type    string   `json:"type"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Format  string   `json:"format"`
	Presets []string `json:"presets"`
}

type status struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	View    string `json:"view,omitempty"`
	Message string `json:"message,omitempty"`
}

// session drives one connected viewer: its own controller over the shared
// pipeline.
type session struct {
	conn     *websocket.Conn
	pipe     *fractal.Pipeline
	ctrl     *fractal.Controller
	interval time.Duration
	log      *slog.Logger
	frame    []byte
}

func (s *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	w, h := s.pipe.Size()
	err := wsjson.Write(ctx, s.conn, hello{
		Type:    "hello",
		Width:   w,
		Height:  h,
		Format:  s.pipe.Format().String(),
		Presets: fractal.PresetNames(),
	})
	if err != nil {
		return err
	}

	go func() {
		cancel(s.readLoop(ctx))
	}()

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		if err := s.tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-t.C:
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		var cmd command
		if err := wsjson.Read(ctx, s.conn, &cmd); err != nil {
			return err
		}
		ev, err := cmd.event()
		if err == nil {
			err = s.ctrl.Apply(ev)
		}
		if err != nil {
			s.log.Debug("command rejected", "type", cmd.Type, "err", err)
			if err := wsjson.Write(ctx, s.conn, status{Type: "error", Message: err.Error()}); err != nil {
				return err
			}
		}
	}
}

// tick renders and sends a frame if the view changed.
func (s *session) tick(ctx context.Context) error {
	rendered, err := s.ctrl.Tick(func(v fractal.View) error {
		var err error
		s.frame, err = s.pipe.Frame(v, s.frame)
		return err
	})
	if err != nil {
		return err
	}
	if !rendered {
		return nil
	}
	if err := s.conn.Write(ctx, websocket.MessageBinary, s.frame); err != nil {
		return err
	}
	return wsjson.Write(ctx, s.conn, status{
		Type:  "title",
		Title: s.ctrl.Title(),
		View:  s.ctrl.View().String(),
	})
}
