// Package gpu registers the GPU compute device for fractal pipelines.
//
// Import this package to let pipelines run the escape-time and colorize
// stages as WGSL compute shaders through gogpu/wgpu:
//
//	import _ "github.com/gogpu/fractal/gpu"
//
// The GPU kernels evaluate in float32. Automatic device selection only picks
// the GPU for pipelines created with fractal.WithPrecision(fractal.Float32);
// otherwise it falls back to the float64 CPU device. If the GPU cannot be
// opened (no Vulkan driver, no adapter), automatic selection logs the reason
// and falls back as well.
//
// Building with the nogpu tag leaves only the CPU device registered.
package gpu
