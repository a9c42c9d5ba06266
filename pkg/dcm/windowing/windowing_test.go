package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLinearTransform(t *testing.T) {
	pixels := []uint16{0, 50, 100, 150, 200}
	s := Settings{Center: 100, Width: 200}

	out, err := Apply(pixels, s, ModeCPU)
	require.NoError(t, err)

	// min_level=0, scale=255/200=1.275
	want := []uint8{0, clamp(50 * 1.275), clamp(100 * 1.275), clamp(150 * 1.275), 255}
	assert.Equal(t, want, out)
}

func TestApplyClampsOutOfRangeValues(t *testing.T) {
	pixels := []uint16{0, 65535}
	s := Settings{Center: 100, Width: 10}

	out, err := Apply(pixels, s, ModeCPU)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out[0])
	assert.Equal(t, uint8(255), out[1])
}

func TestApplyRejectsNonPositiveWidth(t *testing.T) {
	_, err := Apply([]uint16{1, 2, 3}, Settings{Center: 0, Width: 0}, ModeCPU)
	require.Error(t, err)
}

func TestApplyGPUDefaultsToBackendUnavailable(t *testing.T) {
	_, err := Apply([]uint16{1, 2, 3}, Settings{Center: 0, Width: 10}, ModeGPU)
	require.Error(t, err)
}

func TestApplyAutoFallsBackToCPUWithoutGPUBackend(t *testing.T) {
	pixels := make([]uint16, autoGPUThreshold)
	for i := range pixels {
		pixels[i] = uint16(i % 1000)
	}
	out, err := Apply(pixels, Settings{Center: 500, Width: 1000}, ModeAuto)
	require.NoError(t, err)
	assert.Len(t, out, len(pixels))
}

func TestApplyParallelMatchesScalarForLargeBuffers(t *testing.T) {
	pixels := make([]uint16, autoGPUThreshold+1)
	for i := range pixels {
		pixels[i] = uint16((i * 37) % 4096)
	}
	s := Settings{Center: 2000, Width: 4000}

	parallel, err := CPUBackend{}.Apply(pixels, s)
	require.NoError(t, err)

	scalar := make([]uint8, len(pixels))
	minLevel := s.Center - s.Width/2
	scale := 255.0 / s.Width
	applyRange(pixels, scalar, minLevel, scale, 0, len(pixels))

	assert.Equal(t, scalar, parallel)
}

func TestSetGPUBackendRoundTrip(t *testing.T) {
	defer SetGPUBackend(nil)
	assert.False(t, Available())

	SetGPUBackend(fakeGPU{})
	assert.True(t, Available())

	out, err := Apply([]uint16{1, 2, 3}, Settings{Center: 0, Width: 10}, ModeGPU)
	require.NoError(t, err)
	assert.Equal(t, []uint8{9, 9, 9}, out)
}

type fakeGPU struct{}

func (fakeGPU) Name() string { return "fake" }
func (fakeGPU) Apply(pixels []uint16, _ Settings) ([]uint8, error) {
	out := make([]uint8, len(pixels))
	for i := range out {
		out[i] = 9
	}
	return out, nil
}

func TestCalculateOptimal(t *testing.T) {
	pixels := []uint16{100, 100, 100, 100}
	s := CalculateOptimal(pixels)
	assert.Equal(t, 100.0, s.Center)
	assert.Equal(t, 1.0, s.Width) // stddev=0, clamped to minimum 1

	varied := []uint16{0, 50, 100, 150, 200}
	s2 := CalculateOptimal(varied)
	assert.Equal(t, 100.0, s2.Center)
	assert.True(t, s2.Width > 0)
}

func TestCalculateOptimalEmptyBuffer(t *testing.T) {
	s := CalculateOptimal(nil)
	assert.Equal(t, Settings{Center: 0, Width: 1}, s)
}
