//go:build !nogpu

// Package gpu implements the fractal compute device on gogpu/wgpu.
//
// A ComputeDevice owns five buffers sized at open time: a uniform with the
// frame parameters, a storage buffer of escape counts, the packed palette,
// the packed colors, and a mappable staging copy of the colors. Each frame
// is one command buffer with two compute passes:
//
//	escape   (params)            -> iterations
//	colorize (iterations, palette) -> colors
//	copy     colors              -> staging
//
// The pass boundary orders the colorize reads after every escape write.
// The host waits on a fence before reading the staging buffer.
//
// Kernels are WGSL and evaluate in float32.
package gpu
