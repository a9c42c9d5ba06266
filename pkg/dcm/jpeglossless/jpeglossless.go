package jpeglossless

import (
	"context"
	"io"
)

// Frame is the decoded output of a JPEG Lossless codestream: a flat,
// row-major []uint16 buffer plus the dimensions and precision recorded in
// SOF3. The Decoder (pkg/dcm/decoder) checks its dimensions against the
// dataset and applies MONOCHROME1 inversion to Pixels; rescale is not
// applied to the pixels (it is exposed separately by Decoder.Rescale).
type Frame struct {
	Pixels    []uint16
	Width     int
	Height    int
	Precision int
}

// Decode parses and reconstructs one JPEG Lossless (Process 14) frame
// from r. Only predictor selection value 1 (left-neighbor Ra) is
// supported; any other value in the SOS header is reported as
// dcmerr.KindUnsupported.
func Decode(r io.Reader) (*Frame, error) {
	return DecodeContext(context.Background(), r)
}

// DecodeContext is Decode with cancellation: the scan loop checks ctx
// every 64 rows, matching the "~10ms abort latency" guidance of design §5.
func DecodeContext(ctx context.Context, r io.Reader) (*Frame, error) {
	d := newDecoder(r)
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	pixels, err := d.decodeScan(ctx)
	if err != nil {
		return nil, err
	}

	return &Frame{Pixels: pixels, Width: d.width, Height: d.height, Precision: d.precision}, nil
}
