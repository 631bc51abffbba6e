package fractal

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(DefaultView(1200, 800))
	if err != nil {
		t.Fatalf("NewController() = %v", err)
	}
	return c
}

func TestNewController_RejectsInvalidView(t *testing.T) {
	if _, err := NewController(DefaultView(0, 800)); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("NewController(0x800) = %v, want ErrInvalidDimensions", err)
	}
}

func TestController_DirtyLifecycle(t *testing.T) {
	c := newTestController(t)

	if !c.IsDirty() {
		t.Fatal("new controller should be dirty")
	}
	c.ClearDirty()
	if c.IsDirty() {
		t.Fatal("ClearDirty did not clear")
	}

	if err := c.OnDragDelta(10, 0); err != nil {
		t.Fatal(err)
	}
	if !c.IsDirty() {
		t.Error("drag did not mark dirty")
	}
	c.ClearDirty()

	if err := c.OnScroll(1); err != nil {
		t.Fatal(err)
	}
	if !c.IsDirty() {
		t.Error("scroll did not mark dirty")
	}
}

func TestController_NoOpEventsStayClean(t *testing.T) {
	c := newTestController(t)
	c.ClearDirty()

	for _, ev := range []Event{Drag{}, Scroll{}, PointerMove{DX: 50, DY: 50}, PointerDown{}, PointerUp{}, Reset{}} {
		if err := c.Apply(ev); err != nil {
			t.Fatalf("Apply(%T) = %v", ev, err)
		}
		if c.IsDirty() {
			t.Errorf("%T marked the state dirty without changing the view", ev)
		}
	}
}

func TestController_DragLaw(t *testing.T) {
	c := newTestController(t)
	before := c.View()

	const dx, dy = 37.0, -12.5
	if err := c.OnDragDelta(dx, dy); err != nil {
		t.Fatal(err)
	}
	after := c.View()

	wantX := before.CenterX - dx/float64(before.ImageWidth)*before.Width
	wantY := before.CenterY + dy/float64(before.ImageHeight)*before.Height
	if after.CenterX != wantX || after.CenterY != wantY {
		t.Errorf("center = (%v, %v), want (%v, %v)", after.CenterX, after.CenterY, wantX, wantY)
	}
	if after.Width != before.Width || after.Height != before.Height {
		t.Error("drag changed the extent")
	}
}

func TestController_DragRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
	}{
		{"horizontal", 37, 0},
		{"vertical", 0, -12.5},
		{"diagonal", -250, 400},
		{"sub-pixel", 0.25, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t)
			if err := c.OnScroll(5); err != nil {
				t.Fatal(err)
			}
			before := c.View()

			if err := c.OnDragDelta(tt.dx, tt.dy); err != nil {
				t.Fatal(err)
			}
			if err := c.OnDragDelta(-tt.dx, -tt.dy); err != nil {
				t.Fatal(err)
			}
			after := c.View()

			if !approxEqual(after.CenterX, before.CenterX, 1e-12) {
				t.Errorf("CenterX = %v after drag and inverse drag, want %v", after.CenterX, before.CenterX)
			}
			if !approxEqual(after.CenterY, before.CenterY, 1e-12) {
				t.Errorf("CenterY = %v after drag and inverse drag, want %v", after.CenterY, before.CenterY)
			}
			if after.Width != before.Width || after.Height != before.Height {
				t.Error("drag changed the extent")
			}
		})
	}
}

func TestController_ScrollScenario(t *testing.T) {
	c := newTestController(t)
	c.ClearDirty()

	if err := c.OnScroll(1); err != nil {
		t.Fatal(err)
	}
	v := c.View()
	if v.Width != 1 || v.Height != 1 {
		t.Errorf("extent = %vx%v, want 1x1", v.Width, v.Height)
	}
	if v.CenterX != -0.5 || v.CenterY != 0 {
		t.Errorf("center = (%v, %v), want (-0.5, 0)", v.CenterX, v.CenterY)
	}
	if !c.IsDirty() {
		t.Error("scroll did not mark dirty")
	}

	if err := c.OnScroll(-1); err != nil {
		t.Fatal(err)
	}
	if v := c.View(); v.Width != 2 || v.Height != 2 {
		t.Errorf("extent after inverse scroll = %vx%v, want 2x2", v.Width, v.Height)
	}
}

func TestController_PointerDrag(t *testing.T) {
	c := newTestController(t)
	start := c.View()

	if err := c.Apply(PointerMove{DX: 100}); err != nil {
		t.Fatal(err)
	}
	if c.View() != start {
		t.Fatal("move without press changed the view")
	}

	_ = c.Apply(PointerDown{})
	if err := c.Apply(PointerMove{DX: 100}); err != nil {
		t.Fatal(err)
	}
	if want := start.Pan(100, 0); c.View() != want {
		t.Errorf("pressed move: view = %v, want %v", c.View(), want)
	}

	_ = c.Apply(PointerUp{})
	moved := c.View()
	_ = c.Apply(PointerMove{DX: 100})
	if c.View() != moved {
		t.Error("move after release changed the view")
	}
}

func TestController_RejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"zoom collapses extent", Scroll{Delta: 2000}},
		{"zoom overflows extent", Scroll{Delta: -2000}},
		{"nan drag", Drag{DX: math.NaN()}},
		{"infinite drag", Drag{DY: math.Inf(1)}},
		{"zero iterations", SetMaxIterations{N: 0}},
		{"iterations over limit", SetMaxIterations{N: MaxIterationsLimit + 1}},
		{"max int iterations", SetMaxIterations{N: math.MaxInt}},
		{"nan recenter", Recenter{X: math.NaN()}},
		{"empty region", Goto{Region: Region{XMin: 1, XMax: 1, YMin: 0, YMax: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t)
			c.ClearDirty()
			before := c.View()

			if err := c.Apply(tt.ev); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Apply(%#v) = %v, want ErrInvalidEvent", tt.ev, err)
			}
			if c.View() != before {
				t.Error("rejected event changed the view")
			}
			if c.IsDirty() {
				t.Error("rejected event marked the state dirty")
			}
		})
	}
}

func TestController_OtherEvents(t *testing.T) {
	c := newTestController(t)

	if err := c.Apply(SetMaxIterations{N: 500}); err != nil {
		t.Fatal(err)
	}
	if c.View().MaxIterations != 500 {
		t.Errorf("MaxIterations = %d, want 500", c.View().MaxIterations)
	}

	if err := c.Apply(Recenter{X: 0.25, Y: -0.5}); err != nil {
		t.Fatal(err)
	}
	if v := c.View(); v.CenterX != 0.25 || v.CenterY != -0.5 {
		t.Errorf("center = (%v, %v), want (0.25, -0.5)", v.CenterX, v.CenterY)
	}

	if err := c.Apply(Goto{Region: SeahorseValley}); err != nil {
		t.Fatal(err)
	}
	if v := c.View(); !approxEqual(v.CenterX, -0.75, 1e-12) || !approxEqual(v.Width, 0.1, 1e-12) {
		t.Errorf("Goto view = %v", v)
	}

	if err := c.Apply(Reset{}); err != nil {
		t.Fatal(err)
	}
	if c.View() != DefaultView(1200, 800) {
		t.Errorf("Reset view = %v, want default", c.View())
	}
}

func TestController_StaleRenderKeepsDirty(t *testing.T) {
	c := newTestController(t)

	_, ver := c.Snapshot()
	if err := c.OnDragDelta(5, 5); err != nil {
		t.Fatal(err)
	}
	c.MarkRendered(ver)
	if !c.IsDirty() {
		t.Error("marking an older version rendered cleared the dirty state")
	}

	_, latest := c.Snapshot()
	c.MarkRendered(latest)
	c.MarkRendered(ver)
	if c.IsDirty() {
		t.Error("MarkRendered moved backwards")
	}
}

func TestController_Tick(t *testing.T) {
	c := newTestController(t)

	var rendered []View
	render := func(v View) error {
		rendered = append(rendered, v)
		return nil
	}

	if ran, err := c.Tick(render); !ran || err != nil {
		t.Fatalf("first Tick = %v, %v; want true, nil", ran, err)
	}
	if ran, _ := c.Tick(render); ran {
		t.Error("Tick rendered a clean view")
	}

	_ = c.OnScroll(2)
	boom := errors.New("upload failed")
	if ran, err := c.Tick(func(View) error { return boom }); !ran || !errors.Is(err, boom) {
		t.Errorf("failing Tick = %v, %v", ran, err)
	}
	if !c.IsDirty() {
		t.Error("failed render cleared the dirty state")
	}

	if ran, _ := c.Tick(render); !ran {
		t.Error("Tick did not retry after failure")
	}
	if len(rendered) != 2 || rendered[1].Width != 0.5 {
		t.Errorf("rendered = %v", rendered)
	}
}

func TestController_ConcurrentSnapshots(t *testing.T) {
	c := newTestController(t)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				_ = c.OnDragDelta(1, -1)
				_ = c.OnScroll(float64(i%3) - 1)
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				v, _ := c.Snapshot()
				if err := v.Validate(); err != nil {
					t.Errorf("snapshot invalid: %v", err)
					return
				}
				// Width and Height always scale together.
				if v.Width != v.Height {
					t.Errorf("torn snapshot: %v", v)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestController_Title(t *testing.T) {
	c := newTestController(t)
	if got, want := c.Title(), "Mandelbrot: -0.5 + 0i"; got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
}
