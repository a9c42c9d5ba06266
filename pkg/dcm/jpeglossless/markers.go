// Package jpeglossless decodes a JPEG Lossless (ITU-T T.81, Process 14)
// codestream to a flat []uint16 buffer, per design §4.8. It is grounded on
// the teacher's pkg/compress/jpegli package — despite its name, scan.go's
// decodeScan/predict/decodeHuffman/bitReader is a working Process-14
// decoder, and encode.go shows the Huffman table/marker-writing inverse.
// The retrieved copy of that package was missing its marker-reading
// half (no Decoder struct, no Marker constants, no Huffman-table
// constructor, no top-level Decode entry point — readSOF3/readDHT/readSOS
// are called from scan.go and encode.go but never defined in the files we
// received). This file and huffman.go reconstruct that missing half in
// the same idiom, using the teacher's own external_test.go marker-layout
// assertions (analyzeMarkers) as the wire-format reference.
package jpeglossless

import (
	"bufio"
	"io"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
)

// JPEG marker codes relevant to a Process 14 (lossless) codestream.
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOF3 = 0xC3 // Start Of Frame, lossless, Huffman
	markerDHT  = 0xC4 // Define Huffman Table
	markerSOS  = 0xDA // Start Of Scan
	markerDRI  = 0xDD // Define Restart Interval
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

// componentInfo is one component entry from SOF3 or SOS.
type componentInfo struct {
	id         int
	tableIndex int
}

// decoder holds the parsed header state needed to run decodeScan.
type decoder struct {
	r *bufio.Reader

	precision int
	width     int
	height    int
	compInfo  []componentInfo

	dcTables map[int]*huffmanTable

	predictor       int
	restartInterval int
}

func newDecoder(r io.Reader) *decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &decoder{r: br, dcTables: make(map[int]*huffmanTable)}
}

// readHeader consumes SOI and every marker segment up to but not
// including SOS's entropy-coded data, dispatching each recognized marker.
// readSOS itself consumes the SOS header and leaves the reader positioned
// at the first byte of scan data.
func (d *decoder) readHeader() error {
	soi, err := d.readMarker()
	if err != nil {
		return dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "reading SOI")
	}
	if soi != markerSOI {
		return dcmerr.New(dcmerr.KindInvalidJpegLossless, "expected SOI marker, got 0x%02X", soi)
	}

	sawSOF3 := false
	for {
		code, err := d.readMarker()
		if err != nil {
			return dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "reading marker")
		}

		switch code {
		case markerSOF3:
			if err := d.readSOF3(); err != nil {
				return err
			}
			sawSOF3 = true
		case markerDHT:
			if err := d.readDHT(); err != nil {
				return err
			}
		case markerDRI:
			if err := d.readDRI(); err != nil {
				return err
			}
		case markerSOS:
			if !sawSOF3 {
				return dcmerr.New(dcmerr.KindInvalidJpegLossless, "SOS encountered before SOF3: not a lossless stream")
			}
			return d.readSOS()
		case markerEOI:
			return dcmerr.New(dcmerr.KindInvalidJpegLossless, "EOI encountered before SOS")
		default:
			if err := d.skipSegment(); err != nil {
				return err
			}
		}
	}
}

// readMarker reads the next 0xFF-prefixed marker code, skipping fill bytes
// (extra 0xFF padding between markers is legal).
func (d *decoder) readMarker() (byte, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			continue
		}
		code, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if code == 0xFF {
			// fill byte, keep scanning
			if err := d.r.UnreadByte(); err != nil {
				return 0, err
			}
			continue
		}
		return code, nil
	}
}

func (d *decoder) readSegmentLength() (int, error) {
	hi, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	length := int(hi)<<8 | int(lo)
	if length < 2 {
		return 0, dcmerr.New(dcmerr.KindInvalidJpegLossless, "marker segment length %d too short", length)
	}
	return length, nil
}

func (d *decoder) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "reading %d bytes", n)
	}
	return buf, nil
}

func (d *decoder) skipSegment() error {
	length, err := d.readSegmentLength()
	if err != nil {
		return dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "reading segment length")
	}
	if _, err := io.CopyN(io.Discard, d.r, int64(length-2)); err != nil {
		return dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "skipping segment")
	}
	return nil
}

// readSOF3 parses Start Of Frame (lossless): length, precision byte,
// height u16, width u16, component-count byte, then per-component
// id/sampling/table-selector triplets.
func (d *decoder) readSOF3() error {
	if _, err := d.readSegmentLength(); err != nil {
		return err
	}
	body, err := d.readN(6)
	if err != nil {
		return err
	}
	d.precision = int(body[0])
	d.height = int(body[1])<<8 | int(body[2])
	d.width = int(body[3])<<8 | int(body[4])
	nf := int(body[5])

	if d.precision != 8 && d.precision != 12 && d.precision != 16 {
		return dcmerr.New(dcmerr.KindInvalidJpegLossless, "unsupported precision %d", d.precision)
	}
	if nf != 1 {
		return dcmerr.New(dcmerr.KindUnsupported, "multi-component (%d) JPEG Lossless streams are not supported", nf)
	}

	comps, err := d.readN(nf * 3)
	if err != nil {
		return err
	}
	d.compInfo = make([]componentInfo, nf)
	for i := 0; i < nf; i++ {
		d.compInfo[i] = componentInfo{id: int(comps[i*3])}
	}
	return nil
}

// readDHT parses one or more Define Huffman Table segments: class/id byte,
// 16 BITS count bytes, then sum(BITS) HUFFVAL bytes, per JPEG Annex B.
func (d *decoder) readDHT() error {
	length, err := d.readSegmentLength()
	if err != nil {
		return err
	}
	remaining := length - 2
	for remaining > 0 {
		classID, err := d.r.ReadByte()
		if err != nil {
			return dcmerr.Wrap(dcmerr.KindInvalidJpegLossless, err, "reading DHT class/id")
		}
		tableID := int(classID & 0x0F)
		remaining--

		bitsRaw, err := d.readN(16)
		if err != nil {
			return err
		}
		remaining -= 16

		var bits [17]int
		total := 0
		for i := 1; i <= 16; i++ {
			bits[i] = int(bitsRaw[i-1])
			total += bits[i]
		}

		values, err := d.readN(total)
		if err != nil {
			return err
		}
		remaining -= total

		d.dcTables[tableID] = buildHuffmanTable(bits, values)
	}
	return nil
}

func (d *decoder) readDRI() error {
	if _, err := d.readSegmentLength(); err != nil {
		return err
	}
	body, err := d.readN(2)
	if err != nil {
		return err
	}
	d.restartInterval = int(body[0])<<8 | int(body[1])
	return nil
}

// readSOS parses Start Of Scan: component count, per-component
// id/table-selector pairs, then Ss (predictor selection value), Se, and
// Ah/Al (point transform). Se and Ah/Al must all be 0 for the lossless
// process this module implements, per spec.md's SOS contract.
func (d *decoder) readSOS() error {
	if _, err := d.readSegmentLength(); err != nil {
		return err
	}
	nsB, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	ns := int(nsB)
	if ns != 1 {
		return dcmerr.New(dcmerr.KindUnsupported, "multi-component (%d) scans are not supported", ns)
	}

	pairs, err := d.readN(ns * 2)
	if err != nil {
		return err
	}
	if len(d.compInfo) == 0 {
		d.compInfo = []componentInfo{{}}
	}
	d.compInfo[0].id = int(pairs[0])
	d.compInfo[0].tableIndex = int(pairs[1] >> 4)

	tail, err := d.readN(3)
	if err != nil {
		return err
	}
	ss, se, ahal := int(tail[0]), int(tail[1]), tail[2]
	ah, al := int(ahal>>4), int(ahal&0x0F)

	if se != 0 {
		return dcmerr.New(dcmerr.KindInvalidJpegLossless, "end-of-spectral-selection (Se)=%d must be 0 for lossless", se)
	}
	if ah != 0 {
		return dcmerr.New(dcmerr.KindInvalidJpegLossless, "Ah=%d must be 0", ah)
	}
	if al != 0 {
		return dcmerr.New(dcmerr.KindInvalidJpegLossless, "Al=%d must be 0", al)
	}
	if ss != 1 {
		return dcmerr.New(dcmerr.KindUnsupported, "predictor selection value %d is unsupported (only 1, left-neighbor Ra, is implemented)", ss)
	}

	d.predictor = ss
	return nil
}
