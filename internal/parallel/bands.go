package parallel

// DefaultBandHeight is the number of rows per band. Small enough that the
// slow bands crossing the set interior do not serialize a frame, large enough
// that a 1080p frame is a few dozen work items.
const DefaultBandHeight = 16

// Band is the half-open row range [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of rows in b.
func (b Band) Rows() int { return b.Y1 - b.Y0 }

// SplitRows cuts height rows into consecutive bands of bandHeight rows.
// The last band is shorter when height is not a multiple of bandHeight.
// Bands cover every row exactly once and never overlap.
func SplitRows(height, bandHeight int) []Band {
	if bandHeight <= 0 {
		panic("parallel: band height must be positive")
	}
	if height <= 0 {
		return nil
	}

	bands := make([]Band, 0, (height+bandHeight-1)/bandHeight)
	for y := 0; y < height; y += bandHeight {
		bands = append(bands, Band{Y0: y, Y1: min(y+bandHeight, height)})
	}
	return bands
}
