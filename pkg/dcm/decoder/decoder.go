// Package decoder implements the public façade over parser, pixel, and
// jpeglossless: load a file once, then expose typed metadata accessors and
// dispatch pixel reads to the right codec. Adapted from the teacher's
// top-level pkg/dicos/dicos.go (ReadFile/ReadBuffer plus its Get*
// metadata-accessor family) and pkg/dicos/decode.go (DecodeVolume's
// transfer-syntax dispatch), generalized from DICOS-specific accessors to
// the general medical-imaging tag set this module targets.
package decoder

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
	"github.com/jpfielding/dicomcore/pkg/dcm/jpeglossless"
	"github.com/jpfielding/dicomcore/pkg/dcm/parser"
	"github.com/jpfielding/dicomcore/pkg/dcm/pixel"
	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/dcm/transfer"
)

const maxFileSize = 2 << 30 // 2 GiB, design §4.5

// Decoder owns one file's byte buffer and the LazyTagStore parsed from it,
// plus the located pixel-data range and, for encapsulated transfer
// syntaxes, the parsed compressed fragments. Per design §3.2, TagMetadata
// offsets held by the store are only valid for this Decoder's lifetime.
type Decoder struct {
	buf    []byte
	result *parser.Result
}

// LoadFromPath reads path and parses it as a DICOM file.
func LoadFromPath(path string) (*Decoder, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dcmerr.WithPath(dcmerr.KindFileNotFound, path, err)
		}
		return nil, dcmerr.WithPath(dcmerr.KindIO, path, err)
	}
	if info.Size() > maxFileSize {
		return nil, dcmerr.New(dcmerr.KindInvalidFormat, "%s is %d bytes, exceeds %d byte limit", path, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dcmerr.WithPath(dcmerr.KindIO, path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses an in-memory DICOM buffer, for tests and
// in-memory/network sources.
func LoadFromBytes(data []byte) (*Decoder, error) {
	if len(data) > maxFileSize {
		return nil, dcmerr.New(dcmerr.KindInvalidFormat, "buffer of %d bytes exceeds %d byte limit", len(data), maxFileSize)
	}
	p := parser.New(nil)
	res, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Decoder{buf: data, result: res}, nil
}

// TransferSyntax returns the resolved transfer syntax for this file.
func (d *Decoder) TransferSyntax() transfer.Syntax { return d.result.Syntax }

// Compressed reports whether pixel data is encapsulated (compressed).
func (d *Decoder) Compressed() bool { return d.result.Encapsulated }

// Tag returns the textual rendering of t's value, or "" if absent.
func (d *Decoder) Tag(t tag.Tag) string { return d.result.Store.ValueString(t) }

// TagInt returns t's value as an integer, and whether it was present and
// parseable.
func (d *Decoder) TagInt(t tag.Tag) (int64, bool) { return d.result.Store.ValueInt(t) }

// TagF64 returns t's value as a float64, and whether it was present and
// parseable.
func (d *Decoder) TagF64(t tag.Tag) (float64, bool) { return d.result.Store.ValueF64(t) }

func (d *Decoder) intOr(t tag.Tag, fallback int64) int64 {
	v, ok := d.TagInt(t)
	if !ok {
		return fallback
	}
	return v
}

// Width returns the Columns tag, defaulting to 0 if absent.
func (d *Decoder) Width() int { return int(d.intOr(tag.Columns, 0)) }

// Height returns the Rows tag, defaulting to 0 if absent.
func (d *Decoder) Height() int { return int(d.intOr(tag.Rows, 0)) }

// BitsAllocated returns the BitsAllocated tag, defaulting to 16.
func (d *Decoder) BitsAllocated() int { return int(d.intOr(tag.BitsAllocated, 16)) }

// SamplesPerPixel returns the SamplesPerPixel tag, defaulting to 1.
func (d *Decoder) SamplesPerPixel() int { return int(d.intOr(tag.SamplesPerPixel, 1)) }

// PixelRepresentation returns 0 (unsigned) or 1 (signed), defaulting to 0.
func (d *Decoder) PixelRepresentation() int { return int(d.intOr(tag.PixelRepresentation, 0)) }

// PhotometricInterpretation returns the raw tag string, defaulting to
// MONOCHROME2.
func (d *Decoder) PhotometricInterpretation() string {
	v := d.Tag(tag.PhotometricInterpretation)
	if v == "" {
		return "MONOCHROME2"
	}
	return v
}

// SignedImage reports whether pixel values are two's-complement signed.
func (d *Decoder) SignedImage() bool { return d.PixelRepresentation() != 0 }

// Modality returns the Modality tag (e.g. "CT", "MR"), or "" if absent.
func (d *Decoder) Modality() string { return d.Tag(tag.Modality) }

// PixelSpacing is {x, y, z} millimeter spacing between pixel centers.
type PixelSpacing struct{ X, Y, Z float64 }

// Valid reports whether all components are positive, per design §3.1.
func (s PixelSpacing) Valid() bool { return s.X > 0 && s.Y > 0 && s.Z > 0 }

// PixelSpacing parses the PixelSpacing tag ("row\col" in mm) and the
// SliceThickness tag for Z, defaulting to 1.0 for any missing component.
func (d *Decoder) PixelSpacing() PixelSpacing {
	row, col := 1.0, 1.0
	if raw := d.Tag(tag.PixelSpacing); raw != "" {
		if n, err := fmt.Sscanf(raw, "%f\\%f", &row, &col); err != nil || n != 2 {
			row, col = 1.0, 1.0
		}
	}
	z := 1.0
	if v, ok := d.TagF64(tag.SliceThickness); ok && v > 0 {
		z = v
	}
	return PixelSpacing{X: col, Y: row, Z: z}
}

// RescaleParameters is the linear transform from stored pixel value to
// modality units (e.g. Hounsfield units for CT).
type RescaleParameters struct{ Slope, Intercept float64 }

// Identity reports whether this is the no-op transform.
func (r RescaleParameters) Identity() bool { return r.Slope == 1 && r.Intercept == 0 }

// Rescale parses RescaleSlope/RescaleIntercept, defaulting to the
// identity transform {slope: 1, intercept: 0}.
func (d *Decoder) Rescale() RescaleParameters {
	slope := 1.0
	if v, ok := d.TagF64(tag.RescaleSlope); ok {
		slope = v
	}
	intercept := 0.0
	if v, ok := d.TagF64(tag.RescaleIntercept); ok {
		intercept = v
	}
	return RescaleParameters{Slope: slope, Intercept: intercept}
}

// WindowSettings is the center/width pair for the linear window/level
// transform (pkg/dcm/windowing).
type WindowSettings struct{ Center, Width float64 }

// Valid reports whether Width > 0, per design §3.1.
func (s WindowSettings) Valid() bool { return s.Width > 0 }

// WindowSettings parses the first value of WindowCenter/WindowWidth
// (multi-valued tags are backslash-joined; only the first applies here),
// defaulting to {40, 400} when absent.
func (d *Decoder) WindowSettings() WindowSettings {
	center, width := 40.0, 400.0
	if v, ok := firstFloat(d.Tag(tag.WindowCenter)); ok {
		center = v
	}
	if v, ok := firstFloat(d.Tag(tag.WindowWidth)); ok {
		width = v
	}
	return WindowSettings{Center: center, Width: width}
}

func firstFloat(joined string) (float64, bool) {
	if joined == "" {
		return 0, false
	}
	first := joined
	for i := 0; i < len(joined); i++ {
		if joined[i] == '\\' {
			first = joined[:i]
			break
		}
	}
	var f float64
	if _, err := fmt.Sscanf(first, "%f", &f); err != nil {
		return 0, false
	}
	return f, true
}

// Vec3 is a 3-component spatial vector (millimeters, patient coordinates).
type Vec3 [3]float64

// ImagePosition returns ImagePositionPatient, and whether it was present.
func (d *Decoder) ImagePosition() (Vec3, bool) {
	raw := d.Tag(tag.ImagePositionPatient)
	if raw == "" {
		return Vec3{}, false
	}
	var v Vec3
	if _, err := fmt.Sscanf(raw, "%f\\%f\\%f", &v[0], &v[1], &v[2]); err != nil {
		return Vec3{}, false
	}
	return v, true
}

// ImageOrientation returns the row and column direction cosines from
// ImageOrientationPatient, and whether it was present.
func (d *Decoder) ImageOrientation() (row, col Vec3, ok bool) {
	raw := d.Tag(tag.ImageOrientationPatient)
	if raw == "" {
		return Vec3{}, Vec3{}, false
	}
	var v [6]float64
	n, err := fmt.Sscanf(raw, "%f\\%f\\%f\\%f\\%f\\%f", &v[0], &v[1], &v[2], &v[3], &v[4], &v[5])
	if err != nil || n != 6 {
		return Vec3{}, Vec3{}, false
	}
	return Vec3{v[0], v[1], v[2]}, Vec3{v[3], v[4], v[5]}, true
}

// InstanceNumber returns the InstanceNumber tag, used by SeriesLoader as
// an ordering fallback when ImagePositionPatient is absent.
func (d *Decoder) InstanceNumber() (int64, bool) { return d.TagInt(tag.InstanceNumber) }

// Validate performs a shallow structural check without allocating pixel
// buffers, per design §4.5.
func (d *Decoder) Validate() (valid bool, issues []string) {
	if d.Width() <= 0 || d.Height() <= 0 {
		issues = append(issues, "missing or non-positive Rows/Columns")
	}
	if d.Width() > 65536 || d.Height() > 65536 {
		issues = append(issues, "Rows/Columns exceed 65536")
	}
	sp := d.SamplesPerPixel()
	if sp != 1 && sp != 3 {
		issues = append(issues, fmt.Sprintf("unsupported SamplesPerPixel %d", sp))
	}
	bd := d.BitsAllocated()
	if sp == 1 && bd != 8 && bd != 16 {
		issues = append(issues, fmt.Sprintf("unsupported grayscale BitsAllocated %d", bd))
	}
	if d.Compressed() && !d.TransferSyntax().IsJPEGLossless() {
		issues = append(issues, fmt.Sprintf("unsupported compressed transfer syntax %s", d.TransferSyntax()))
	}
	return len(issues) == 0, issues
}

func (d *Decoder) pixelParams() pixel.Params {
	return pixel.Params{
		Width:               d.Width(),
		Height:              d.Height(),
		BitsAllocated:       d.BitsAllocated(),
		PixelRepresentation: d.PixelRepresentation(),
		Photometric:         d.PhotometricInterpretation(),
		LittleEndian:        d.TransferSyntax().IsLittleEndian(),
	}
}

// PixelsU16 returns the full-frame 16-bit grayscale buffer, dispatching to
// the JPEG Lossless decoder for encapsulated streams this module
// implements, or erroring Unsupported for anything else.
func (d *Decoder) PixelsU16() ([]uint16, error) {
	if !d.Compressed() {
		res, err := pixel.ReadGray16(d.buf, int(d.result.PixelDataOffset), d.pixelParams())
		if err != nil {
			return nil, err
		}
		return res.Pixels16, nil
	}

	if len(d.result.Fragments) == 0 {
		return nil, dcmerr.New(dcmerr.KindInvalidPixelData, "encapsulated pixel data has no fragments")
	}
	codestream := d.joinedFragments()

	var width, height int
	var out []uint16

	switch {
	case d.TransferSyntax().IsJPEGLossless():
		frame, err := jpeglossless.Decode(bytes.NewReader(codestream))
		if err != nil {
			return nil, err
		}
		width, height, out = frame.Width, frame.Height, frame.Pixels

	default:
		// JPEG 2000 and every other encapsulated transfer syntax are the
		// opaque platformimage.Decoder collaborator design §6.3 names; this
		// module ships no implementation of it, so they report Unsupported
		// rather than decode.
		return nil, dcmerr.New(dcmerr.KindUnsupported,
			"compressed transfer syntax %s has no decoder wired in this module", d.TransferSyntax())
	}

	if width != d.Width() || height != d.Height() {
		return nil, dcmerr.New(dcmerr.KindInvalidPixelData,
			"decoded compressed frame is %dx%d, dataset declares %dx%d",
			width, height, d.Width(), d.Height())
	}

	if d.PhotometricInterpretation() == "MONOCHROME1" {
		for i, v := range out {
			out[i] = 65535 - v
		}
	}
	return out, nil
}

// joinedFragments concatenates an encapsulated pixel element's fragment
// Items into one codestream. Design's Open Questions resolve this
// explicitly (parse the Basic Offset Table and fragment Items, rather
// than assuming all remaining bytes are one codestream), so this is a
// straight concatenation in fragment order rather than a BOT-indexed
// per-frame split — multi-frame encapsulated pixel data is out of scope
// (design Non-goals: single-image decoding only).
func (d *Decoder) joinedFragments() []byte {
	if len(d.result.Fragments) == 1 {
		return d.result.Fragments[0]
	}
	var total int
	for _, f := range d.result.Fragments {
		total += len(f)
	}
	joined := make([]byte, 0, total)
	for _, f := range d.result.Fragments {
		joined = append(joined, f...)
	}
	return joined
}

// PixelsU8 returns the full-frame 8-bit grayscale buffer.
func (d *Decoder) PixelsU8() ([]uint8, error) {
	if d.Compressed() {
		return nil, dcmerr.New(dcmerr.KindUnsupported, "8-bit compressed pixel data is not supported")
	}
	res, err := pixel.ReadGray8(d.buf, int(d.result.PixelDataOffset), d.pixelParams())
	if err != nil {
		return nil, err
	}
	return res.Pixels8, nil
}

// PixelsRGB returns the full-frame interleaved RGB buffer.
func (d *Decoder) PixelsRGB() ([]uint8, error) {
	if d.Compressed() {
		return nil, dcmerr.New(dcmerr.KindUnsupported, "compressed RGB pixel data is not supported")
	}
	res, err := pixel.ReadRGB24(d.buf, int(d.result.PixelDataOffset), d.pixelParams())
	if err != nil {
		return nil, err
	}
	return res.Pixels24, nil
}

// PixelsRangeU16 returns pixels [lo, hi) of the full-frame 16-bit buffer,
// per design §4.6.4. Not supported for encapsulated streams, since JPEG
// Lossless must decode the whole frame.
func (d *Decoder) PixelsRangeU16(lo, hi int) ([]uint16, error) {
	if d.Compressed() {
		return nil, dcmerr.New(dcmerr.KindUnsupported, "range reads are not supported on compressed pixel data")
	}
	res, err := pixel.RangeGray16(d.buf, int(d.result.PixelDataOffset), d.pixelParams(), lo, hi)
	if err != nil {
		return nil, err
	}
	return res.Pixels16, nil
}

// DownsampledU16 returns a nearest-neighbor downsampled copy of the full
// 16-bit frame, fit to maxDim, per design §4.6.5.
func (d *Decoder) DownsampledU16(maxDim int) ([]uint16, int, int, error) {
	full, err := d.PixelsU16()
	if err != nil {
		return nil, 0, 0, err
	}
	out, w, h := pixel.Downsample(full, d.Width(), d.Height(), maxDim)
	return out, w, h, nil
}
