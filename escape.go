package fractal

// escapeRadiusSq is the squared escape radius. Once |z| exceeds 2 the orbit
// is guaranteed to diverge.
const escapeRadiusSq = 4.0

// EscapeTime returns the number of iterations of z <- z*z + c, starting from
// z = 0, before |z| exceeds 2.
//
// The result is the first n for which |z_n| > 2, or maxIterations if the
// orbit stays bounded that long. It is always in [0, maxIterations];
// maxIterations <= 0 yields 0.
func EscapeTime(c complex128, maxIterations int) int {
	cr, ci := real(c), imag(c)
	var zr, zi float64
	for n := 0; n < maxIterations; n++ {
		zr2, zi2 := zr*zr, zi*zi
		if zr2+zi2 > escapeRadiusSq {
			return n
		}
		zi = 2*zr*zi + ci
		zr = zr2 - zi2 + cr
	}
	return max(maxIterations, 0)
}

// escapeRow evaluates one image row into dst, which must hold ImageWidth
// entries.
func escapeRow(v View, y int, dst []uint32) {
	for x := range dst {
		dst[x] = uint32(EscapeTime(v.PixelToComplex(x, y), v.MaxIterations))
	}
}
