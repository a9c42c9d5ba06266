// Package windowing implements the linear window/level transform that maps
// a 16-bit pixel buffer into an 8-bit displayable image, per design §4.9.
// The CPU backend parallelizes large buffers across a worker-per-chunk
// pool with an atomic work-stealing cursor, the same pattern the pack's
// deepteams-webp encoder uses for row-parallel macroblock encoding
// (internal/lossy/encode_parallel.go): a shared atomic counter lets idle
// workers claim the next unit of work instead of a fixed static split.
package windowing

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
)

// autoGPUThreshold is the pixel count at or above which Mode "auto" prefers
// the GPU backend, per design §4.9.2.
const autoGPUThreshold = 640_000

// chunkRows is the number of pixels (consecutive buffer indices, not image
// rows: the backend is not given the image width) handed to one worker
// claim in the parallel CPU backend.
const chunkRows = 32

// Settings is the center/width pair driving the linear transform.
type Settings struct {
	Center, Width float64
}

// Valid reports whether Width is usable (> 0), per design §3.1.
func (s Settings) Valid() bool { return s.Width > 0 }

// Mode selects which backend computes the transform.
type Mode int

const (
	// ModeCPU forces the scalar/parallel-scalar CPU backend.
	ModeCPU Mode = iota
	// ModeGPU forces the GPU backend, erroring BackendUnavailable if none
	// is registered.
	ModeGPU
	// ModeAuto picks GPU when available and the buffer is large enough to
	// amortize its dispatch cost, else CPU.
	ModeAuto
)

// Backend computes the window/level transform over a full pixel buffer.
// CPUBackend and any GPU backend registered via SetGPUBackend implement
// this.
type Backend interface {
	Name() string
	Apply(pixels []uint16, s Settings) ([]uint8, error)
}

var gpuBackend Backend = NullGPUBackend{}
var gpuMu sync.Mutex

// SetGPUBackend installs the process-wide GPU backend used by ModeGPU and
// ModeAuto. Passing nil restores NullGPUBackend.
func SetGPUBackend(b Backend) {
	gpuMu.Lock()
	defer gpuMu.Unlock()
	if b == nil {
		b = NullGPUBackend{}
	}
	gpuBackend = b
}

func currentGPUBackend() Backend {
	gpuMu.Lock()
	defer gpuMu.Unlock()
	return gpuBackend
}

// NullGPUBackend is the default GPU backend: no compute binding is wired
// in this module (design §6.3 lists GPU dispatch as a collaborator
// interface, not a concrete implementation), so every call reports
// BackendUnavailable. A real binding (e.g. a CUDA or Metal compute shader)
// can be installed with SetGPUBackend.
type NullGPUBackend struct{}

func (NullGPUBackend) Name() string { return "null" }

func (NullGPUBackend) Apply([]uint16, Settings) ([]uint8, error) {
	return nil, dcmerr.New(dcmerr.KindBackendUnavailable, "no GPU backend registered")
}

// Available reports whether a non-null GPU backend is currently installed.
func Available() bool {
	_, isNull := currentGPUBackend().(NullGPUBackend)
	return !isNull
}

// Apply transforms pixels into an 8-bit image under mode, per design
// §4.9.1: min_level = center - width/2, max_level = center + width/2,
// scale = 255/width (or 1 if width <= 0), v = (p - min_level) * scale,
// clamped to [0, 255].
func Apply(pixels []uint16, s Settings, mode Mode) ([]uint8, error) {
	if !s.Valid() {
		return nil, dcmerr.New(dcmerr.KindInvalidWindowLevel, "width %.3f must be > 0", s.Width)
	}

	switch mode {
	case ModeGPU:
		return currentGPUBackend().Apply(pixels, s)
	case ModeAuto:
		if len(pixels) >= autoGPUThreshold && Available() {
			return currentGPUBackend().Apply(pixels, s)
		}
		return CPUBackend{}.Apply(pixels, s)
	default:
		return CPUBackend{}.Apply(pixels, s)
	}
}

// CPUBackend is the reference scalar implementation, parallelized across
// runtime.NumCPU() workers for buffers large enough to benefit.
type CPUBackend struct{}

func (CPUBackend) Name() string { return "cpu" }

func (CPUBackend) Apply(pixels []uint16, s Settings) ([]uint8, error) {
	if !s.Valid() {
		return nil, dcmerr.New(dcmerr.KindInvalidWindowLevel, "width %.3f must be > 0", s.Width)
	}

	out := make([]uint8, len(pixels))
	minLevel := s.Center - s.Width/2
	scale := 255.0 / s.Width
	if s.Width <= 0 {
		scale = 1
	}

	if len(pixels) < autoGPUThreshold {
		applyRange(pixels, out, minLevel, scale, 0, len(pixels))
		return out, nil
	}

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				start := int(next.Add(chunkRows) - chunkRows)
				if start >= len(pixels) {
					return
				}
				end := start + chunkRows
				if end > len(pixels) {
					end = len(pixels)
				}
				applyRange(pixels, out, minLevel, scale, start, end)
			}
		}()
	}
	wg.Wait()
	return out, nil
}

func applyRange(pixels []uint16, out []uint8, minLevel, scale float64, start, end int) {
	for i := start; i < end; i++ {
		v := (float64(pixels[i]) - minLevel) * scale
		out[i] = clamp(v)
	}
}

func clamp(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// CalculateOptimal derives a Settings from a pixel buffer's statistics,
// per design §4.9.3: width = clamp(4*stddev, 1, max-min), center = mean.
func CalculateOptimal(pixels []uint16) Settings {
	if len(pixels) == 0 {
		return Settings{Center: 0, Width: 1}
	}

	var sum float64
	lo, hi := pixels[0], pixels[0]
	for _, p := range pixels {
		sum += float64(p)
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	mean := sum / float64(len(pixels))

	var variance float64
	for _, p := range pixels {
		d := float64(p) - mean
		variance += d * d
	}
	variance /= float64(len(pixels))
	stddev := math.Sqrt(variance)

	width := 4 * stddev
	spread := float64(hi) - float64(lo)
	if width < 1 {
		width = 1
	}
	if width > spread && spread >= 1 {
		width = spread
	}
	if width < 1 {
		width = 1
	}

	return Settings{Center: mean, Width: width}
}
