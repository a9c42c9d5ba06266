package pixel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGray16Unsigned(t *testing.T) {
	data := make([]byte, 2*2*2)
	binary.LittleEndian.PutUint16(data[0:], 10)
	binary.LittleEndian.PutUint16(data[2:], 20)
	binary.LittleEndian.PutUint16(data[4:], 30)
	binary.LittleEndian.PutUint16(data[6:], 40)

	res, err := ReadGray16(data, 0, Params{Width: 2, Height: 2, PixelRepresentation: 0, Photometric: "MONOCHROME2", LittleEndian: true})
	require.NoError(t, err)
	assert.Equal(t, []uint16{10, 20, 30, 40}, res.Pixels16)
	assert.False(t, res.Signed)
}

func TestReadGray16MonochromeOneInverts(t *testing.T) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, 100)
	res, err := ReadGray16(data, 0, Params{Width: 1, Height: 1, Photometric: "MONOCHROME1", LittleEndian: true})
	require.NoError(t, err)
	assert.Equal(t, uint16(65535-100), res.Pixels16[0])
}

func TestReadGray16SignedNormalizes(t *testing.T) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(int16(-100)))
	res, err := ReadGray16(data, 0, Params{Width: 1, Height: 1, PixelRepresentation: 1, LittleEndian: true})
	require.NoError(t, err)
	assert.True(t, res.Signed)
	assert.Equal(t, uint16(32768-100), res.Pixels16[0])
}

func TestReadGray16RejectsOversizedDimensions(t *testing.T) {
	_, err := ReadGray16(nil, 0, Params{Width: 100000, Height: 1})
	require.Error(t, err)
}

func TestReadGray16RejectsTruncatedBuffer(t *testing.T) {
	_, err := ReadGray16(make([]byte, 2), 0, Params{Width: 2, Height: 1})
	require.Error(t, err)
}

func TestRangeGray16(t *testing.T) {
	data := make([]byte, 2*4)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(i+1))
	}
	res, err := RangeGray16(data, 0, Params{Width: 4, Height: 1, LittleEndian: true}, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2, 3}, res.Pixels16)
}

func TestDownsamplePreservesAspectRatio(t *testing.T) {
	pixels := make([]uint16, 800*400)
	out, w, h := Downsample(pixels, 800, 400, 400)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
	assert.Len(t, out, w*h)
}

func TestDownsampleNoOpWhenWithinBounds(t *testing.T) {
	pixels := []uint16{1, 2, 3, 4}
	out, w, h := Downsample(pixels, 2, 2, 512)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, pixels, out)
}
