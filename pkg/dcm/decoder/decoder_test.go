package decoder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/dcm/vr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type elementSpec struct {
	tag   tag.Tag
	vr    vr.VR
	value []byte
}

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

// buildFile assembles a DICM-magic file with an Explicit VR Little Endian
// file meta group followed by the given dataset elements, matching the
// wire layout design §4.3 describes and pkg/dcm/parser already tests at
// the element level.
func buildFile(t *testing.T, elems []elementSpec) []byte {
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
	for _, e := range elems {
		writeExplicit(e.tag, e.vr, e.value)
	}
	return buf.Bytes()
}

func baseElements(photometric string, rep uint16) []elementSpec {
	return []elementSpec{
		{tag.Rows, vr.US, u16le(2)},
		{tag.Columns, vr.US, u16le(4)},
		{tag.SamplesPerPixel, vr.US, u16le(1)},
		{tag.PhotometricInterpretation, vr.CS, padEven(photometric)},
		{tag.BitsAllocated, vr.US, u16le(16)},
		{tag.BitsStored, vr.US, u16le(16)},
		{tag.HighBit, vr.US, u16le(15)},
		{tag.PixelRepresentation, vr.US, u16le(rep)},
	}
}

func TestDecoderReadsUnsignedGray16(t *testing.T) {
	elems := baseElements("MONOCHROME2", 0)
	pixelBytes := make([]byte, 16)
	vals := []uint16{0, 100, 200, 300, 400, 500, 600, 700}
	for i, v := range vals {
		binary.LittleEndian.PutUint16(pixelBytes[i*2:], v)
	}
	elems = append(elems, elementSpec{tag.PixelData, vr.OW, pixelBytes})

	buf := buildFile(t, elems)
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)

	assert.Equal(t, 4, d.Width())
	assert.Equal(t, 2, d.Height())
	assert.False(t, d.SignedImage())
	assert.False(t, d.Compressed())

	pixels, err := d.PixelsU16()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 100, 200, 300, 400, 500, 600, 700}, pixels)
}

func TestDecoderMonochrome1Inverts(t *testing.T) {
	elems := baseElements("MONOCHROME1", 0)
	pixelBytes := u16le(100)
	pixelBytes = append(pixelBytes, u16le(200)...)
	elems[0] = elementSpec{tag.Rows, vr.US, u16le(1)}
	elems[1] = elementSpec{tag.Columns, vr.US, u16le(2)}
	elems = append(elems, elementSpec{tag.PixelData, vr.OW, pixelBytes})

	buf := buildFile(t, elems)
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)

	pixels, err := d.PixelsU16()
	require.NoError(t, err)
	assert.Equal(t, []uint16{65535 - 100, 65535 - 200}, pixels)
}

func TestDecoderSignedNormalization(t *testing.T) {
	elems := baseElements("MONOCHROME2", 1)
	elems[0] = elementSpec{tag.Rows, vr.US, u16le(1)}
	elems[1] = elementSpec{tag.Columns, vr.US, u16le(4)}

	var raw []byte
	for _, s := range []int16{-32768, -1, 0, 32767} {
		raw = append(raw, u16le(uint16(s))...)
	}
	elems = append(elems, elementSpec{tag.PixelData, vr.OW, raw})

	buf := buildFile(t, elems)
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)
	require.True(t, d.SignedImage())

	pixels, err := d.PixelsU16()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 32767, 32768, 65535}, pixels)
}

func TestDecoderWindowSettingsAndRescale(t *testing.T) {
	elems := baseElements("MONOCHROME2", 0)
	elems = append(elems,
		elementSpec{tag.WindowCenter, vr.DS, padEven("-600")},
		elementSpec{tag.WindowWidth, vr.DS, padEven("1500")},
		elementSpec{tag.RescaleSlope, vr.DS, padEven("1")},
		elementSpec{tag.RescaleIntercept, vr.DS, padEven("-1024")},
	)
	buf := buildFile(t, elems)
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)

	ws := d.WindowSettings()
	assert.Equal(t, -600.0, ws.Center)
	assert.Equal(t, 1500.0, ws.Width)
	assert.True(t, ws.Valid())

	rs := d.Rescale()
	assert.Equal(t, 1.0, rs.Slope)
	assert.Equal(t, -1024.0, rs.Intercept)
}

func TestDecoderWindowSettingsDefaultsWhenAbsent(t *testing.T) {
	buf := buildFile(t, baseElements("MONOCHROME2", 0))
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)

	ws := d.WindowSettings()
	assert.Equal(t, 40.0, ws.Center)
	assert.Equal(t, 400.0, ws.Width)

	rs := d.Rescale()
	assert.True(t, rs.Identity())
}

func TestDecoderImagePositionAndOrientation(t *testing.T) {
	elems := baseElements("MONOCHROME2", 0)
	elems = append(elems,
		elementSpec{tag.ImagePositionPatient, vr.DS, padEven("1.0\\2.0\\3.0")},
		elementSpec{tag.ImageOrientationPatient, vr.DS, padEven("1\\0\\0\\0\\1\\0")},
	)
	buf := buildFile(t, elems)
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)

	pos, ok := d.ImagePosition()
	require.True(t, ok)
	assert.Equal(t, Vec3{1.0, 2.0, 3.0}, pos)

	row, col, ok := d.ImageOrientation()
	require.True(t, ok)
	assert.Equal(t, Vec3{1, 0, 0}, row)
	assert.Equal(t, Vec3{0, 1, 0}, col)
}

func TestDecoderValidateFlagsBadDimensions(t *testing.T) {
	elems := baseElements("MONOCHROME2", 0)
	elems[0] = elementSpec{tag.Rows, vr.US, u16le(0)}
	buf := buildFile(t, elems)
	d, err := LoadFromBytes(buf)
	require.NoError(t, err)

	valid, issues := d.Validate()
	assert.False(t, valid)
	assert.NotEmpty(t, issues)
}

func TestDecoderRejectsGarbageBuffer(t *testing.T) {
	_, err := LoadFromBytes([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestDecoderLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/to/file.dcm")
	require.Error(t, err)
}
