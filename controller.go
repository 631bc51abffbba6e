package fractal

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Controller owns the view being explored and tracks whether it changed
// since the last rendered frame.
//
// Mutations go through Apply and are serialized. The current view is
// published as a whole value, so Snapshot never observes a half-applied
// event even while another goroutine is mutating.
//
// Dirty tracking uses versions: every mutation increments the view version
// and a render records the version it drew. The state is dirty while the two
// differ, which makes a mutation that lands during a render keep the state
// dirty for the next tick. A new controller starts dirty.
type Controller struct {
	mu      sync.Mutex // serializes Apply
	pressed bool
	initial View

	view     atomic.Pointer[View]
	version  atomic.Uint64
	rendered atomic.Uint64
}

// NewController returns a controller exploring v.
func NewController(v View) (*Controller, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{initial: v}
	c.view.Store(&v)
	c.version.Store(1)
	return c, nil
}

// Apply applies one event.
//
// An event that would produce an invalid view (a zero or infinite extent, a
// non-finite center, a non-positive iteration cap) returns ErrInvalidEvent
// and leaves the view unchanged. Events that do not change the view do not
// mark the state dirty.
func (c *Controller) Apply(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := *c.view.Load()
	next := ev.apply(cur, c.initial, &c.pressed)
	if next == cur {
		return nil
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %T: %w", ErrInvalidEvent, ev, err)
	}

	c.view.Store(&next)
	c.version.Add(1)
	return nil
}

// OnDragDelta pans by a pointer drag of (dx, dy) pixels.
func (c *Controller) OnDragDelta(dx, dy float64) error {
	return c.Apply(Drag{DX: dx, DY: dy})
}

// OnScroll zooms by 2^delta around the view center.
func (c *Controller) OnScroll(delta float64) error {
	return c.Apply(Scroll{Delta: delta})
}

// View returns the current view.
func (c *Controller) View() View {
	return *c.view.Load()
}

// Snapshot returns the current view together with its version, for use
// with MarkRendered.
func (c *Controller) Snapshot() (View, uint64) {
	// Version first: if a mutation lands in between, the view is newer
	// than the version and the state stays dirty after MarkRendered.
	ver := c.version.Load()
	return *c.view.Load(), ver
}

// IsDirty reports whether the view changed since the last rendered frame.
func (c *Controller) IsDirty() bool {
	return c.version.Load() != c.rendered.Load()
}

// ClearDirty marks the current view as rendered.
func (c *Controller) ClearDirty() {
	c.MarkRendered(c.version.Load())
}

// MarkRendered records that the view with the given version was rendered.
// Marking an older version than one already recorded has no effect.
func (c *Controller) MarkRendered(version uint64) {
	for {
		cur := c.rendered.Load()
		if version <= cur || c.rendered.CompareAndSwap(cur, version) {
			return
		}
	}
}

// Tick renders the current view if it is dirty. It reports whether render
// was called. When render fails the state stays dirty.
func (c *Controller) Tick(render func(View) error) (bool, error) {
	if !c.IsDirty() {
		return false, nil
	}
	v, ver := c.Snapshot()
	if err := render(v); err != nil {
		return true, err
	}
	c.MarkRendered(ver)
	return true, nil
}

// Title returns a window title naming the view center.
func (c *Controller) Title() string {
	v := c.View()
	return fmt.Sprintf("Mandelbrot: %v + %vi", v.CenterX, v.CenterY)
}
