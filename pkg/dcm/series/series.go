// Package series assembles a multi-slice volume from a directory of
// single-frame DICOM files, per design §4.11. Grounded on the teacher's
// directory-walking CLI commands (cmd/ctl/cmd/analyze.go iterates a
// directory of files and decodes each one independently) generalized into
// a library call with geometric consistency checks the teacher's CLI
// never performed.
package series

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
	"github.com/jpfielding/dicomcore/pkg/dcm/decoder"
	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/util"
)

// epsilonCosine is the tolerance for comparing direction cosines between
// slices, per design §4.11.2.
const epsilonCosine = 1e-4

// spacingTolerance is the fractional tolerance (0.1%) for comparing pixel
// spacing between slices.
const spacingTolerance = 0.001

// ProgressFunc is called with (current, total) after each slice is
// loaded, for UI progress bars. May be nil.
type ProgressFunc func(current, total int)

// Volume is the result of loading a consistent series: one flat pixel
// buffer holding every slice concatenated in spatial order, plus the
// geometry needed to reconstruct 3D positions.
type Volume struct {
	Pixels       []uint16
	Width        int
	Height       int
	SliceCount   int
	SpacingX     float64
	SpacingY     float64
	SpacingZ     float64
	RowCosine    decoder.Vec3
	ColumnCosine decoder.Vec3
	Origin       decoder.Vec3              // ImagePositionPatient of the first slice in assembled order
	Rescale      decoder.RescaleParameters // from the reference slice; assumed constant across the series
	Description  string                    // SeriesDescription of the reference slice, or "" if absent
	SlicePaths   []string                  // in assembled (spatial) order
	VolumeID     string                    // deterministic identifier derived from slice paths
}

type slice struct {
	path     string
	pixels   []uint16
	position decoder.Vec3
	instance int64
	hasInst  bool
	hasPos   bool
}

// Load scans dir for .dcm/.dicom files, decodes each, validates they share
// one consistent geometry, orders them spatially, and concatenates their
// pixel buffers into one Volume. Files that fail to load, are not
// single-sample 16-bit, or whose pixels cannot be read are skipped.
// Composition is otherwise all-or-nothing: a geometry mismatch of any
// usable slice against the first one aborts the whole load. ctx is checked once per slice,
// matching the cooperative-cancellation granularity design §5 describes
// for long-running operations (jpeglossless.DecodeContext checks every 64
// rows for the same reason).
func Load(ctx context.Context, dir string, progress ProgressFunc) (*Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dcmerr.WithPath(dcmerr.KindIO, dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		if strings.HasSuffix(lower, ".dcm") || strings.HasSuffix(lower, ".dicom") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, dcmerr.New(dcmerr.KindInvalidFormat, "no .dcm/.dicom files found in %s", dir)
	}

	var slices []slice
	var refWidth, refHeight int
	var refRowCos, refColCos decoder.Vec3
	var refSpacing decoder.PixelSpacing
	var refRescale decoder.RescaleParameters
	var refDescription string
	haveRef := false

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := decoder.LoadFromPath(path)
		if err != nil {
			continue // not every file in a directory need be a usable slice
		}
		if d.SamplesPerPixel() != 1 || d.BitsAllocated() != 16 {
			continue
		}

		pixels, err := d.PixelsU16()
		if err != nil {
			continue
		}

		w, h := d.Width(), d.Height()
		rowCos, colCos, hasOrient := d.ImageOrientation()
		sp := d.PixelSpacing()

		if !haveRef {
			refWidth, refHeight = w, h
			refRowCos, refColCos = rowCos, colCos
			refSpacing = sp
			refRescale = d.Rescale()
			refDescription = d.Tag(tag.SeriesDescription)
			haveRef = true
		} else {
			if w != refWidth || h != refHeight {
				return nil, dcmerr.WithPath(dcmerr.KindInconsistentGeometry, path,
					dcmerr.New(dcmerr.KindInconsistentGeometry, "dimensions %dx%d differ from reference %dx%d", w, h, refWidth, refHeight))
			}
			if hasOrient && (!vec3Close(rowCos, refRowCos, epsilonCosine) || !vec3Close(colCos, refColCos, epsilonCosine)) {
				return nil, dcmerr.WithPath(dcmerr.KindInconsistentGeometry, path,
					dcmerr.New(dcmerr.KindInconsistentGeometry, "orientation differs from reference beyond tolerance"))
			}
			if !withinTolerance(sp.X, refSpacing.X, spacingTolerance) || !withinTolerance(sp.Y, refSpacing.Y, spacingTolerance) {
				return nil, dcmerr.WithPath(dcmerr.KindInconsistentGeometry, path,
					dcmerr.New(dcmerr.KindInconsistentGeometry, "pixel spacing differs from reference beyond 0.1%%"))
			}
		}

		pos, hasPos := d.ImagePosition()
		inst, hasInst := d.InstanceNumber()

		slices = append(slices, slice{
			path: path, pixels: pixels, position: pos,
			instance: inst, hasInst: hasInst, hasPos: hasPos,
		})

		if progress != nil {
			progress(i+1, len(paths))
		}
	}

	if len(slices) == 0 {
		return nil, dcmerr.New(dcmerr.KindInvalidFormat, "no usable single-frame 16-bit slices found in %s", dir)
	}

	normal := cross(refRowCos, refColCos)
	sort.SliceStable(slices, func(i, j int) bool {
		return sliceOrderKey(slices[i], normal) < sliceOrderKey(slices[j], normal)
	})

	spacingZ := estimateSpacingZ(slices, normal)

	vol := &Volume{
		Width:        refWidth,
		Height:       refHeight,
		SliceCount:   len(slices),
		SpacingX:     refSpacing.X,
		SpacingY:     refSpacing.Y,
		SpacingZ:     spacingZ,
		RowCosine:    refRowCos,
		ColumnCosine: refColCos,
		Origin:       slices[0].position,
		Rescale:      refRescale,
		Description:  refDescription,
	}
	vol.Pixels = make([]uint16, 0, refWidth*refHeight*len(slices))
	for _, s := range slices {
		vol.Pixels = append(vol.Pixels, s.pixels...)
		vol.SlicePaths = append(vol.SlicePaths, s.path)
	}
	vol.VolumeID = util.HashUUID(vol.SlicePaths)

	return vol, nil
}

// sliceOrderKey projects a slice's position onto the volume normal; slices
// without ImagePositionPatient fall back to InstanceNumber, per design
// §4.11.3.
func sliceOrderKey(s slice, normal decoder.Vec3) float64 {
	if s.hasPos {
		return dot(s.position, normal)
	}
	if s.hasInst {
		return float64(s.instance)
	}
	return 0
}

// estimateSpacingZ is the median of adjacent inter-slice distances along
// the volume normal, per design §4.11.4.
func estimateSpacingZ(slices []slice, normal decoder.Vec3) float64 {
	if len(slices) < 2 {
		return 1.0
	}
	diffs := make([]float64, 0, len(slices)-1)
	for i := 1; i < len(slices); i++ {
		a := sliceOrderKey(slices[i-1], normal)
		b := sliceOrderKey(slices[i], normal)
		d := b - a
		if d < 0 {
			d = -d
		}
		diffs = append(diffs, d)
	}
	sort.Float64s(diffs)
	mid := len(diffs) / 2
	if len(diffs)%2 == 1 {
		return diffs[mid]
	}
	return (diffs[mid-1] + diffs[mid]) / 2
}

func dot(a, b decoder.Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b decoder.Vec3) decoder.Vec3 {
	return decoder.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vec3Close(a, b decoder.Vec3, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps && math.Abs(a[2]-b[2]) <= eps
}

func withinTolerance(a, b, frac float64) bool {
	if b == 0 {
		return a == 0
	}
	return math.Abs(a-b)/math.Abs(b) <= frac
}
