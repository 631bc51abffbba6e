//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/gogpu/fractal"
)

//go:embed shaders/escape.wgsl
var escapeShaderSource string

//go:embed shaders/colorize.wgsl
var colorizeShaderSource string

// workgroupSize is the edge length of the square workgroup declared by both
// kernels.
const workgroupSize = 8

// frameParamsSize is the size of the FrameParams uniform in bytes:
// four f32 and four u32, no implicit padding.
const frameParamsSize = 32

// packFrameParams serializes v into the FrameParams uniform layout.
func packFrameParams(v fractal.View) []byte {
	b := make([]byte, frameParamsSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.CenterX)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.CenterY)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Width)))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(float32(v.Height)))
	binary.LittleEndian.PutUint32(b[16:], uint32(v.ImageWidth))    //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(b[20:], uint32(v.ImageHeight))   //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(b[24:], uint32(v.MaxIterations)) //nolint:gosec // validated <= MaxIterationsLimit
	return b
}

// packPalette serializes the palette table for upload.
func packPalette(table []uint32) []byte {
	b := make([]byte, len(table)*4)
	for i, c := range table {
		binary.LittleEndian.PutUint32(b[i*4:], c)
	}
	return b
}

// workgroups returns the dispatch size covering n invocations.
func workgroups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize) //nolint:gosec // image dimensions fit uint32
}
