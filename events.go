package fractal

// Event is an input command applied to a Controller.
//
// Events are plain values so that host toolkits translate their native
// callbacks into them and hand them to Controller.Apply. The set is closed:
// only the types in this package implement Event.
type Event interface {
	// apply returns the view after the event. pressed is the pointer
	// button state, which the event may change.
	apply(v View, initial View, pressed *bool) View
}

// Drag pans the view by a pointer movement of (DX, DY) pixels.
type Drag struct {
	DX, DY float64
}

func (e Drag) apply(v, _ View, _ *bool) View { return v.Pan(e.DX, e.DY) }

// Scroll zooms by 2^Delta around the view center. Positive Delta zooms in.
type Scroll struct {
	Delta float64
}

func (e Scroll) apply(v, _ View, _ *bool) View { return v.Zoom(e.Delta) }

// PointerDown marks the drag button as held.
type PointerDown struct{}

func (PointerDown) apply(v, _ View, pressed *bool) View {
	*pressed = true
	return v
}

// PointerUp releases the drag button.
type PointerUp struct{}

func (PointerUp) apply(v, _ View, pressed *bool) View {
	*pressed = false
	return v
}

// PointerMove is a raw pointer movement. It pans like Drag only while the
// button is held and is ignored otherwise.
type PointerMove struct {
	DX, DY float64
}

func (e PointerMove) apply(v, _ View, pressed *bool) View {
	if !*pressed {
		return v
	}
	return v.Pan(e.DX, e.DY)
}

// SetMaxIterations changes the iteration cap.
type SetMaxIterations struct {
	N int
}

func (e SetMaxIterations) apply(v, _ View, _ *bool) View {
	v.MaxIterations = e.N
	return v
}

// Recenter moves the view center to (X, Y) without changing the extent.
type Recenter struct {
	X, Y float64
}

func (e Recenter) apply(v, _ View, _ *bool) View {
	v.CenterX, v.CenterY = e.X, e.Y
	return v
}

// Goto frames the given region.
type Goto struct {
	Region Region
}

func (e Goto) apply(v, _ View, _ *bool) View { return e.Region.Apply(v) }

// Reset restores the view the controller was created with.
type Reset struct{}

func (Reset) apply(_, initial View, _ *bool) View { return initial }
