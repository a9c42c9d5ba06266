// Package tag defines the DICOM Tag type and the well-known tags this
// module resolves by name, adapted from the teacher's
// pkg/dicos/tag/tag.go (which additionally carries DICOS/ATD
// security-screening tags out of scope for a medical single-image
// decoder; those are dropped here).
package tag

import "fmt"

// Tag identifies one data element as (group, element), packed into a
// single uint32 as group<<16|element per design §3.1 where convenient.
type Tag struct {
	Group   uint16
	Element uint16
}

// New builds a Tag from group and element numbers.
func New(group, element uint16) Tag { return Tag{Group: group, Element: element} }

// Packed returns the tag as a single 32-bit value, group<<16|element.
func (t Tag) Packed() uint32 { return uint32(t.Group)<<16 | uint32(t.Element) }

// FromPacked reconstructs a Tag from a Packed() value.
func FromPacked(v uint32) Tag { return Tag{Group: uint16(v >> 16), Element: uint16(v)} }

// IsPrivate reports whether this is a private (odd group number) tag.
func (t Tag) IsPrivate() bool { return t.Group%2 == 1 }

// IsFileMeta reports whether this tag belongs to the File Meta group
// (0002,*), which is always Explicit VR Little Endian regardless of the
// dataset's transfer syntax.
func (t Tag) IsFileMeta() bool { return t.Group == 0x0002 }

func (t Tag) String() string { return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element) }

// File Meta Information (Group 0002).
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
)

// Patient Module.
var (
	PatientName      = Tag{0x0010, 0x0010}
	PatientID        = Tag{0x0010, 0x0020}
	PatientBirthDate = Tag{0x0010, 0x0030}
	PatientSex       = Tag{0x0010, 0x0040}
)

// General Study / Series Modules.
var (
	StudyInstanceUID  = Tag{0x0020, 0x000D}
	StudyDate         = Tag{0x0008, 0x0020}
	Modality          = Tag{0x0008, 0x0060}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesNumber      = Tag{0x0020, 0x0011}
	InstanceNumber    = Tag{0x0020, 0x0013}
	SeriesDescription = Tag{0x0008, 0x103E}
)

// SOP Common Module.
var (
	SOPClassUID    = Tag{0x0008, 0x0016}
	SOPInstanceUID = Tag{0x0008, 0x0018}
)

// Frame of Reference Module.
var FrameOfReferenceUID = Tag{0x0020, 0x0052}

// Image Pixel Module.
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	PlanarConfiguration       = Tag{0x0028, 0x0006}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	PixelSpacing              = Tag{0x0028, 0x0030}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	PixelData                 = Tag{0x7FE0, 0x0010}
)

// CT / windowing tags.
var (
	RescaleIntercept = Tag{0x0028, 0x1052}
	RescaleSlope     = Tag{0x0028, 0x1053}
	WindowCenter     = Tag{0x0028, 0x1050}
	WindowWidth      = Tag{0x0028, 0x1051}
	VOILUTFunction   = Tag{0x0028, 0x1056}
)

// Image Position/Orientation.
var (
	ImagePositionPatient    = Tag{0x0020, 0x0032}
	ImageOrientationPatient = Tag{0x0020, 0x0037}
	SliceThickness          = Tag{0x0018, 0x0050}
	SpacingBetweenSlices    = Tag{0x0018, 0x0088}
)

// Sequence/item delimiters (not real data elements, but recognized by the
// parser's item-scanner per design §4.3.2).
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)
