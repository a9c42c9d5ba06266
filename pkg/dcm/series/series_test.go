package series

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/dicomcore/pkg/dcm/decoder"
	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/dcm/vr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func padEven(s string) []byte {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, ' ')
	}
	return b
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// buildSlice constructs one 2x2, 16-bit MONOCHROME2 slice at the given Z
// position, filled with a constant pixel value so concatenation order is
// easy to assert on.
func buildSlice(t *testing.T, z float64, instance int, fill uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 128))
	buf.WriteString("DICM")

	writeExplicit := func(tg tag.Tag, v vr.VR, value []byte) {
		binary.Write(&buf, binary.LittleEndian, tg.Group)
		binary.Write(&buf, binary.LittleEndian, tg.Element)
		buf.WriteString(string(v))
		if v.IsLong() {
			buf.Write([]byte{0x00, 0x00})
			binary.Write(&buf, binary.LittleEndian, uint32(len(value)))
		} else {
			binary.Write(&buf, binary.LittleEndian, uint16(len(value)))
		}
		buf.Write(value)
	}

	writeExplicit(tag.TransferSyntaxUID, vr.UI, padEven("1.2.840.10008.1.2.1"))
	writeExplicit(tag.Rows, vr.US, u16le(2))
	writeExplicit(tag.Columns, vr.US, u16le(2))
	writeExplicit(tag.SamplesPerPixel, vr.US, u16le(1))
	writeExplicit(tag.PhotometricInterpretation, vr.CS, padEven("MONOCHROME2"))
	writeExplicit(tag.BitsAllocated, vr.US, u16le(16))
	writeExplicit(tag.BitsStored, vr.US, u16le(16))
	writeExplicit(tag.HighBit, vr.US, u16le(15))
	writeExplicit(tag.PixelRepresentation, vr.US, u16le(0))
	writeExplicit(tag.PixelSpacing, vr.DS, padEven("1.0\\1.0"))
	writeExplicit(tag.ImageOrientationPatient, vr.DS, padEven("1\\0\\0\\0\\1\\0"))
	writeExplicit(tag.ImagePositionPatient, vr.DS, padEven(fmt.Sprintf("0.0\\0.0\\%.1f", z)))
	writeExplicit(tag.InstanceNumber, vr.IS, padEven(fmt.Sprintf("%d", instance)))
	writeExplicit(tag.SeriesDescription, vr.LO, padEven("Chest CT"))

	pixelBytes := append(append(append(u16le(fill), u16le(fill)...), u16le(fill)...), u16le(fill)...)
	writeExplicit(tag.PixelData, vr.OW, pixelBytes)

	return buf.Bytes()
}

func writeSliceFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadOrdersSlicesByPositionAndConcatenates(t *testing.T) {
	dir := t.TempDir()
	// Write out of order on disk; position is what should determine order.
	writeSliceFile(t, dir, "b.dcm", buildSlice(t, 10.0, 2, 200))
	writeSliceFile(t, dir, "a.dcm", buildSlice(t, 0.0, 1, 100))
	writeSliceFile(t, dir, "c.dcm", buildSlice(t, 20.0, 3, 300))

	vol, err := Load(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, vol.SliceCount)
	assert.Equal(t, 2, vol.Width)
	assert.Equal(t, 2, vol.Height)
	assert.Equal(t, 10.0, vol.SpacingZ)

	want := []uint16{100, 100, 100, 100, 200, 200, 200, 200, 300, 300, 300, 300}
	assert.Equal(t, want, vol.Pixels)
	assert.NotEmpty(t, vol.VolumeID)

	assert.Equal(t, decoder.Vec3{0.0, 0.0, 0.0}, vol.Origin)
	assert.Equal(t, decoder.RescaleParameters{Slope: 1, Intercept: 0}, vol.Rescale)
	assert.Equal(t, "Chest CT", vol.Description)
}

func TestLoadRejectsInconsistentDimensions(t *testing.T) {
	dir := t.TempDir()
	writeSliceFile(t, dir, "a.dcm", buildSlice(t, 0.0, 1, 100))

	// Build a mismatched-size second slice by hand (4x4 instead of 2x2).
	var buf bytes.Buffer
	buf.Write(make([]byte, 128))
	buf.WriteString("DICM")
	writeExplicit := func(tg tag.Tag, v vr.VR, value []byte) {
		binary.Write(&buf, binary.LittleEndian, tg.Group)
		binary.Write(&buf, binary.LittleEndian, tg.Element)
		buf.WriteString(string(v))
		if v.IsLong() {
			buf.Write([]byte{0x00, 0x00})
			binary.Write(&buf, binary.LittleEndian, uint32(len(value)))
		} else {
			binary.Write(&buf, binary.LittleEndian, uint16(len(value)))
		}
		buf.Write(value)
	}
	writeExplicit(tag.TransferSyntaxUID, vr.UI, padEven("1.2.840.10008.1.2.1"))
	writeExplicit(tag.Rows, vr.US, u16le(4))
	writeExplicit(tag.Columns, vr.US, u16le(4))
	writeExplicit(tag.SamplesPerPixel, vr.US, u16le(1))
	writeExplicit(tag.PhotometricInterpretation, vr.CS, padEven("MONOCHROME2"))
	writeExplicit(tag.BitsAllocated, vr.US, u16le(16))
	writeExplicit(tag.PixelRepresentation, vr.US, u16le(0))
	writeExplicit(tag.ImagePositionPatient, vr.DS, padEven("0.0\\0.0\\5.0"))
	pixelBytes := make([]byte, 32)
	writeExplicit(tag.PixelData, vr.OW, pixelBytes)
	writeSliceFile(t, dir, "b.dcm", buf.Bytes())

	_, err := Load(context.Background(), dir, nil)
	require.Error(t, err)
}

func TestLoadReportsProgress(t *testing.T) {
	dir := t.TempDir()
	writeSliceFile(t, dir, "a.dcm", buildSlice(t, 0.0, 1, 100))
	writeSliceFile(t, dir, "b.dcm", buildSlice(t, 10.0, 2, 200))

	var calls [][2]int
	_, err := Load(context.Background(), dir, func(current, total int) {
		calls = append(calls, [2]int{current, total})
	})
	require.NoError(t, err)
	assert.Len(t, calls, 2)
	assert.Equal(t, 2, calls[len(calls)-1][1])
}

func TestLoadEmptyDirectoryErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), dir, nil)
	require.Error(t, err)
}

func TestLoadRespectsCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeSliceFile(t, dir, "a.dcm", buildSlice(t, 0.0, 1, 100))
	writeSliceFile(t, dir, "b.dcm", buildSlice(t, 10.0, 2, 200))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, dir, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
