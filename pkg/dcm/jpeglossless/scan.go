package jpeglossless

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
)

// decodeScan reads the entropy-coded data following SOS and reconstructs
// the pixel plane, adapted nearly verbatim from the teacher's
// (*Decoder).decodeScan (pkg/compress/jpegli/scan.go): same bitReader,
// same predictor table, same magnitude-category difference decoding. The
// output sink is a flat []uint16 instead of an image.Gray/Gray16, since
// this module's Decoder wants a pixel buffer, not a standard-library
// image.Image.
func (d *decoder) decodeScan(ctx context.Context) ([]uint16, error) {
	br := newBitReader(d.r)

	out := make([]uint16, d.width*d.height)
	maxVal := (1 << d.precision) - 1

	tableIdx := 0
	if len(d.compInfo) > 0 {
		tableIdx = d.compInfo[0].tableIndex
	}
	ht := d.dcTables[tableIdx]
	if ht == nil {
		return nil, dcmerr.New(dcmerr.KindInvalidJpegLossless, "missing Huffman table %d referenced by scan", tableIdx)
	}

	prevRow := make([]int, d.width)
	currRow := make([]int, d.width)

	mcuCount := 0

	for y := 0; y < d.height; y++ {
		if y%64 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		for x := 0; x < d.width; x++ {
			if d.restartInterval > 0 && mcuCount > 0 && mcuCount%d.restartInterval == 0 {
				br.alignToByte()
				b1, _ := br.readByte()
				b2, _ := br.readByte()
				if b1 != 0xFF || (b2&0xF8) != 0xD0 {
					slog.Warn("missed restart marker", "x", x, "y", y)
				}
				for i := range prevRow {
					prevRow[i] = 0
				}
			}

			ssss, err := d.decodeHuffman(br, ht)
			if err != nil {
				if partial, ok := partialFill(out, currRow, x, y, d.width, d.height, err); ok {
					return partial, nil
				}
				return nil, dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "decoding Huffman symbol at (%d,%d)", x, y)
			}

			var diff int
			if ssss > 0 {
				bits, err := br.readBits(ssss)
				if err != nil {
					if partial, ok := partialFill(out, currRow, x, y, d.width, d.height, err); ok {
						return partial, nil
					}
					return nil, dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "reading %d difference bits at (%d,%d)", ssss, x, y)
				}
				diff = extend(bits, ssss)
			}

			pred := predict(currRow, prevRow, x, y, d.precision, d.predictor)

			val := (pred + diff) & maxVal
			currRow[x] = val
			out[y*d.width+x] = uint16(val)
			mcuCount++
		}

		prevRow, currRow = currRow, prevRow
		for i := range currRow {
			currRow[i] = 0
		}
	}

	return out, nil
}

// partialFill implements the teacher's graceful-degradation behavior:
// a codestream that runs out of entropy-coded data within the last 1% of
// pixels is treated as a recoverable truncation rather than a hard
// failure — the remaining pixels in the current row are filled with the
// last decoded value and the frame decoded so far is returned.
func partialFill(out []uint16, currRow []int, x, y, width, height int, err error) ([]uint16, bool) {
	if err != io.EOF {
		return nil, false
	}
	decoded := y*width + x
	total := width * height
	if float64(decoded) <= float64(total)*0.99 {
		return nil, false
	}

	last := 0
	if x > 0 {
		last = currRow[x-1]
	}
	for k := x; k < width; k++ {
		out[y*width+k] = uint16(last)
	}
	slog.Warn("premature end of JPEG Lossless entropy data, returning partial frame",
		"decoded", decoded, "expected", total)
	return out, true
}

// predict computes the prediction value for pixel (x,y), adapted from the
// teacher's (*Decoder).predict. Only predictor 1 (Ra, left neighbor) is
// reachable in this module (readSOS rejects every other selection value
// per design's Open Questions resolution); the remaining cases are kept
// because the first-row/first-column special casing and default-predictor
// logic apply regardless of which predictor is selected.
func predict(currRow, prevRow []int, x, y, precision, predictor int) int {
	var ra, rb, rc int
	if x > 0 {
		ra = currRow[x-1]
	}
	if y > 0 {
		rb = prevRow[x]
		if x > 0 {
			rc = prevRow[x-1]
		}
	}

	if y == 0 && x == 0 {
		return 1 << (precision - 1)
	}
	if y == 0 {
		return ra
	}
	if x == 0 {
		return rb
	}

	switch predictor {
	case 0:
		return 0
	case 1:
		return ra
	case 2:
		return rb
	case 3:
		return rc
	case 4:
		return ra + rb - rc
	case 5:
		return ra + (rb-rc)/2
	case 6:
		return rb + (ra-rc)/2
	case 7:
		return (ra + rb) / 2
	default:
		return ra
	}
}

// extend converts an SSSS-category magnitude/sign pair into a signed
// difference, per JPEG's Table F.1 / design §4.8.5.
func extend(bits, ssss int) int {
	if ssss == 0 {
		return 0
	}
	half := 1 << (ssss - 1)
	if bits < half {
		return bits - (1<<ssss - 1)
	}
	return bits
}

// decodeHuffman decodes one Huffman symbol: an 8-bit fast-path lookup,
// falling back to the bit-by-bit Annex F.2.2.4 search for codes longer
// than 8 bits.
func (d *decoder) decodeHuffman(br *bitReader, ht *huffmanTable) (int, error) {
	peek, err := br.peekBits(8)
	if err != nil && err != io.EOF {
		return 0, err
	}
	peek &= 0xFF

	if entry := ht.lookup[peek]; entry >= 0 {
		size := int(entry >> 8)
		value := int(entry & 0xFF)
		br.consumeBits(size)
		return value, nil
	}

	code := 0
	for size := 1; size <= 16; size++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | bit

		codeIdx := 0
		for i := 1; i < size; i++ {
			codeIdx += ht.bits[i]
		}
		for i := 0; i < ht.bits[size]; i++ {
			if ht.codes[codeIdx+i] == uint16(code) {
				return int(ht.values[codeIdx+i]), nil
			}
		}
	}

	return 0, dcmerr.New(dcmerr.KindInvalidHuffmanCode, "no Huffman code matched after 16 bits, code=%016b", code)
}

// bitReader reads bits from the entropy-coded segment, transparently
// undoing byte stuffing (0xFF 0x00 → 0xFF) and stopping at the first real
// marker, adapted from the teacher's bitReader (pkg/compress/jpegli/scan.go).
type bitReader struct {
	r         *bufio.Reader
	buf       uint32
	bits      int
	eof       bool
	totalBits int64
}

func newBitReader(r *bufio.Reader) *bitReader { return &bitReader{r: r} }

func (b *bitReader) fillBits() error {
	for b.bits < 16 && !b.eof {
		c, err := b.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				b.eof = true
				return nil
			}
			return err
		}

		if c == 0xFF {
			next, err := b.r.Peek(1)
			if err != nil {
				if err == io.EOF {
					b.eof = true
					return nil
				}
				return err
			}
			switch {
			case next[0] == 0x00:
				b.r.Discard(1)
				b.buf = b.buf<<8 | 0xFF
				b.bits += 8
			case next[0] >= markerRST0 && next[0] <= markerRST7:
				b.r.Discard(1)
				continue
			default:
				b.r.UnreadByte()
				b.eof = true
				return nil
			}
		} else {
			b.buf = b.buf<<8 | uint32(c)
			b.bits += 8
		}
	}
	return nil
}

func (b *bitReader) readBit() (int, error) {
	if b.bits < 1 {
		if err := b.fillBits(); err != nil {
			return 0, err
		}
	}
	if b.bits < 1 {
		b.totalBits++
		return 0, nil
	}
	b.bits--
	b.totalBits++
	return int((b.buf >> b.bits) & 1), nil
}

func (b *bitReader) readBits(n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	for b.bits < n {
		if err := b.fillBits(); err != nil {
			return 0, err
		}
		if b.eof && b.bits < n {
			valid := int(b.buf & ((1 << b.bits) - 1))
			missing := n - b.bits
			result := valid << missing
			b.bits = 0
			b.totalBits += int64(n)
			return result, nil
		}
	}
	b.bits -= n
	b.totalBits += int64(n)
	mask := (1 << n) - 1
	return int((b.buf >> b.bits) & uint32(mask)), nil
}

func (b *bitReader) peekBits(n int) (int, error) {
	for b.bits < n {
		if err := b.fillBits(); err != nil {
			return 0, err
		}
		if b.eof && b.bits < n {
			val := int(b.buf) << (n - b.bits)
			mask := (1 << n) - 1
			return val & mask, nil
		}
	}
	mask := (1 << n) - 1
	return int((b.buf >> (b.bits - n)) & uint32(mask)), nil
}

func (b *bitReader) consumeBits(n int) {
	b.bits -= n
	if b.bits < 0 && b.eof {
		b.bits = 0
	}
	b.totalBits += int64(n)
}

func (b *bitReader) alignToByte() { b.bits &^= 7 }

func (b *bitReader) readByte() (byte, error) { return b.r.ReadByte() }
