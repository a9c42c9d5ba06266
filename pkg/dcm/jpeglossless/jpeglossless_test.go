package jpeglossless

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFlatStream assembles a minimal 2x2, 8-bit JPEG Lossless codestream
// whose every pixel equals the default predictor value (128), so every
// encoded difference is the zero-bit-length SSSS=0 symbol. Its Huffman
// table therefore needs exactly one code: "0" (1 bit) for symbol 0.
func buildFlatStream(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	buf.Write([]byte{0xFF, markerSOI})

	// SOF3: length=11, precision=8, height=2, width=2, Nf=1, comp{id=1,0x11,0x00}
	buf.Write([]byte{0xFF, markerSOF3})
	buf.Write([]byte{0x00, 0x0B})
	buf.Write([]byte{8, 0, 2, 0, 2, 1})
	buf.Write([]byte{1, 0x11, 0x00})

	// DHT: length=20, class/id=0x00, BITS[1]=1 rest 0, VALUES=[0]
	buf.Write([]byte{0xFF, markerDHT})
	buf.Write([]byte{0x00, 0x14})
	buf.WriteByte(0x00)
	bits := make([]byte, 16)
	bits[0] = 1
	buf.Write(bits)
	buf.WriteByte(0x00)

	// SOS: length=8, Ns=1, comp{id=1, tableSel=0x00}, Ss=1, Se=0, AhAl=0x00
	buf.Write([]byte{0xFF, markerSOS})
	buf.Write([]byte{0x00, 0x08})
	buf.WriteByte(0x01)
	buf.Write([]byte{1, 0x00})
	buf.Write([]byte{1, 0, 0x00})

	// Entropy data: 4 pixels x 1-bit "0" code = nibble 0000, one byte is enough.
	buf.WriteByte(0x00)

	buf.Write([]byte{0xFF, markerEOI})

	return buf.Bytes()
}

func TestDecodeFlatImage(t *testing.T) {
	stream := buildFlatStream(t)
	frame, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)

	assert.Equal(t, 2, frame.Width)
	assert.Equal(t, 2, frame.Height)
	assert.Equal(t, 8, frame.Precision)
	assert.Equal(t, []uint16{128, 128, 128, 128}, frame.Pixels)
}

func TestDecodeRejectsNonSOI(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	require.Error(t, err)
}

func TestDecodeRejectsUnsupportedSelectionValue(t *testing.T) {
	stream := buildFlatStream(t)
	// Flip SOS's Ss byte (selection value) from 1 to 2.
	idx := bytes.Index(stream, []byte{0xFF, markerSOS})
	require.NotEqual(t, -1, idx)
	ssOffset := idx + 2 + 2 + 1 + 2 // marker(2)+len(2)+Ns(1)+comp(2)
	stream[ssOffset] = 2

	_, err := Decode(bytes.NewReader(stream))
	require.Error(t, err)
}

func TestDecodeRejectsNonzeroAl(t *testing.T) {
	stream := buildFlatStream(t)
	// Flip SOS's AhAl byte from 0x00 to 0x01 (Al=1).
	idx := bytes.Index(stream, []byte{0xFF, markerSOS})
	require.NotEqual(t, -1, idx)
	ahalOffset := idx + 2 + 2 + 1 + 2 + 2 // marker(2)+len(2)+Ns(1)+comp(2)+Ss,Se(2)
	stream[ahalOffset] = 0x01

	_, err := Decode(bytes.NewReader(stream))
	require.Error(t, err)
}

func TestBuildHuffmanTableFastLookup(t *testing.T) {
	var bits [17]int
	bits[1] = 1
	ht := buildHuffmanTable(bits, []byte{5})

	entry := ht.lookup[0x00]
	require.GreaterOrEqual(t, entry, int32(0))
	assert.Equal(t, int32(1), entry>>8)
	assert.Equal(t, int32(5), entry&0xFF)
}

func TestExtendMagnitudeCategory(t *testing.T) {
	assert.Equal(t, 0, extend(0, 0))
	assert.Equal(t, -1, extend(0, 1))
	assert.Equal(t, 1, extend(1, 1))
	assert.Equal(t, -3, extend(0, 2))
	assert.Equal(t, 3, extend(3, 2))
}
