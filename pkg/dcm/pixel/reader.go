package pixel

import (
	"encoding/binary"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
)

const (
	maxDimension       = 65536
	maxByteCount       = 2 << 30 // 2 GiB
	pooledPixelCeiling = 4194304
)

// Params describes the native (uncompressed) pixel layout needed to
// extract a buffer from raw element bytes, mirroring the parameters the
// teacher's GetPixelData (pkg/dicos/dicos.go) reads off the dataset before
// converting bytes into frames.
type Params struct {
	Width, Height       int
	BitsAllocated       int // 8, 16, or 24 (interleaved RGB)
	PixelRepresentation int // 0 unsigned, 1 signed
	Photometric         string
	LittleEndian        bool
}

// Result is the PixelReader's output, mirroring design §3.1
// PixelReadResult: exactly one of Pixels8/Pixels16/Pixels24 is non-nil.
type Result struct {
	Pixels8         []uint8
	Pixels16        []uint16
	Pixels24        []uint8 // interleaved RGB
	Signed          bool
	Width           int
	Height          int
	BitDepth        int
	SamplesPerPixel int // 1 for Pixels8/Pixels16, 3 for Pixels24
}

func validateDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return dcmerr.New(dcmerr.KindInvalidPixelData, "non-positive dimensions %dx%d", w, h)
	}
	if w > maxDimension || h > maxDimension {
		return dcmerr.New(dcmerr.KindInvalidPixelData, "dimensions %dx%d exceed %d", w, h, maxDimension)
	}
	return nil
}

func checkByteCount(pixelCount int64, bytesPerPixel int) error {
	byteCount := pixelCount * int64(bytesPerPixel)
	if byteCount > maxByteCount {
		return dcmerr.New(dcmerr.KindInvalidPixelData, "pixel buffer of %d bytes exceeds 2GiB limit", byteCount)
	}
	return nil
}

// ReadGray16 extracts a full 16-bit grayscale frame from data starting at
// offset, applying the exact algorithm of design §4.6.3: endian-aware
// unsigned copy with optional photometric inversion, or signed-to-unsigned
// normalization via +32768 shift and clamp.
func ReadGray16(data []byte, offset int, p Params) (Result, error) {
	if err := validateDimensions(p.Width, p.Height); err != nil {
		return Result{}, err
	}
	pixelCount := int64(p.Width) * int64(p.Height)
	if err := checkByteCount(pixelCount, 2); err != nil {
		return Result{}, err
	}
	need := offset + int(pixelCount)*2
	if offset < 0 || need > len(data) {
		return Result{}, dcmerr.New(dcmerr.KindInvalidPixelData,
			"need %d bytes at offset %d, have %d", int(pixelCount)*2, offset, len(data))
	}

	pooled := pooledPixelCount(int(pixelCount))
	scratch := acquire(int(pixelCount))
	order := byteOrder(p.LittleEndian)
	src := data[offset : offset+int(pixelCount)*2]

	signed := p.PixelRepresentation != 0
	invert := p.Photometric == "MONOCHROME1"

	if !signed {
		for i := 0; i < int(pixelCount); i++ {
			v := order.Uint16(src[i*2:])
			if invert {
				v = 65535 - v
			}
			scratch[i] = v
		}
	} else {
		for i := 0; i < int(pixelCount); i++ {
			s := int16(order.Uint16(src[i*2:]))
			shifted := int32(s) + 32768
			if shifted < 0 {
				shifted = 0
			}
			if shifted > 65535 {
				shifted = 65535
			}
			v := uint16(shifted)
			if invert {
				v = 65535 - v
			}
			scratch[i] = v
		}
	}

	out := scratch
	if pooled {
		// Per design §4.6.6: the pooled buffer is scratch space only. Copy
		// into a right-sized, non-pooled output before returning ownership
		// to the caller, and release the scratch buffer on this (the only)
		// exit path.
		out = make([]uint16, pixelCount)
		copy(out, scratch)
		Shared.Release(scratch)
	}

	return Result{Pixels16: out, Signed: signed, Width: p.Width, Height: p.Height, BitDepth: 16, SamplesPerPixel: 1}, nil
}

// ReadGray8 extracts a full 8-bit grayscale frame, applying photometric
// inversion only (signed 8-bit grayscale is not part of the supported
// matrix per design §3.3 invariant 4).
func ReadGray8(data []byte, offset int, p Params) (Result, error) {
	if err := validateDimensions(p.Width, p.Height); err != nil {
		return Result{}, err
	}
	pixelCount := int64(p.Width) * int64(p.Height)
	if err := checkByteCount(pixelCount, 1); err != nil {
		return Result{}, err
	}
	need := offset + int(pixelCount)
	if offset < 0 || need > len(data) {
		return Result{}, dcmerr.New(dcmerr.KindInvalidPixelData,
			"need %d bytes at offset %d, have %d", int(pixelCount), offset, len(data))
	}

	out := make([]uint8, pixelCount)
	src := data[offset:need]
	invert := p.Photometric == "MONOCHROME1"
	for i := range out {
		v := src[i]
		if invert {
			v = 255 - v
		}
		out[i] = v
	}
	return Result{Pixels8: out, Width: p.Width, Height: p.Height, BitDepth: 8, SamplesPerPixel: 1}, nil
}

// ReadRGB24 extracts a full 24-bit interleaved RGB frame: a byte-for-byte
// copy, since RGB photometric interpretations are never inverted.
func ReadRGB24(data []byte, offset int, p Params) (Result, error) {
	if err := validateDimensions(p.Width, p.Height); err != nil {
		return Result{}, err
	}
	pixelCount := int64(p.Width) * int64(p.Height)
	if err := checkByteCount(pixelCount, 3); err != nil {
		return Result{}, err
	}
	need := offset + int(pixelCount)*3
	if offset < 0 || need > len(data) {
		return Result{}, dcmerr.New(dcmerr.KindInvalidPixelData,
			"need %d bytes at offset %d, have %d", int(pixelCount)*3, offset, len(data))
	}

	out := make([]uint8, pixelCount*3)
	copy(out, data[offset:need])
	return Result{Pixels24: out, Width: p.Width, Height: p.Height, BitDepth: 8, SamplesPerPixel: 3}, nil
}

// RangeGray16 extracts pixels [lo, hi) (in pixel units, row-major) from a
// full 16-bit grayscale frame, per design §4.6.4.
func RangeGray16(data []byte, offset int, p Params, lo, hi int) (Result, error) {
	if lo < 0 || hi < lo {
		return Result{}, dcmerr.New(dcmerr.KindInvalidPixelData, "invalid pixel range [%d,%d)", lo, hi)
	}
	total := p.Width * p.Height
	if hi > total {
		return Result{}, dcmerr.New(dcmerr.KindInvalidPixelData, "range hi=%d exceeds pixel count %d", hi, total)
	}
	byteOffset := offset + lo*2
	sub := Params{Width: hi - lo, Height: 1, BitsAllocated: p.BitsAllocated,
		PixelRepresentation: p.PixelRepresentation, Photometric: p.Photometric, LittleEndian: p.LittleEndian}
	return ReadGray16(data, byteOffset, sub)
}

func pooledPixelCount(count int) bool {
	return count <= pooledPixelCeiling
}

func acquire(count int) []uint16 {
	if pooledPixelCount(count) {
		return Shared.Acquire(count)
	}
	return make([]uint16, count)
}

func byteOrder(littleEndian bool) binary.ByteOrder {
	if littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Downsample performs nearest-neighbor box sampling to fit within maxDim
// while preserving aspect ratio, per design §4.6.5.
func Downsample(pixels []uint16, w, h, maxDim int) ([]uint16, int, int) {
	if w <= 0 || h <= 0 || maxDim <= 0 {
		return nil, 0, 0
	}
	dim := w
	if h > dim {
		dim = h
	}
	if dim <= maxDim {
		out := make([]uint16, len(pixels))
		copy(out, pixels)
		return out, w, h
	}

	scale := float64(maxDim) / float64(dim)
	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	out := make([]uint16, outW*outH)
	for y := 0; y < outH; y++ {
		srcY := int(float64(y) / scale)
		if srcY >= h {
			srcY = h - 1
		}
		for x := 0; x < outW; x++ {
			srcX := int(float64(x) / scale)
			if srcX >= w {
				srcX = w - 1
			}
			out[y*outW+x] = pixels[srcY*w+srcX]
		}
	}
	return out, outW, outH
}
