// Package parser implements the DICOM byte-stream state machine: it walks
// a fully-loaded file buffer tag by tag, recording where each element's
// value lives without decoding it, and locates the pixel-data offset.
// Adapted from the teacher's pkg/dicos/reader.go, which instead reads
// forward-only from an io.Reader and eagerly decodes every element's value
// into a map. This module's Decoder owns one contiguous buffer (design
// §3.2), so the parser can do a single bounds-checked pass recording
// offsets, and defer decoding to LazyTagStore.
package parser

import (
	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/dcm/vr"
)

// TagMetadata identifies one parsed data element: where its value begins
// in the owning buffer, its VR, and its byte length. Immutable once
// produced by the Parser.
type TagMetadata struct {
	Tag    tag.Tag
	Offset int64
	VR     vr.VR
	Length uint32
}

// End returns the offset one past the last byte of this element's value.
func (m TagMetadata) End() int64 { return m.Offset + int64(m.Length) }

// Undefined reports whether this element had DICOM's 0xFFFFFFFF
// "undefined length" marker — only legal for sequences and encapsulated
// pixel data, both handled specially by the Parser rather than producing
// an ordinary TagMetadata.
func Undefined(length uint32) bool { return length == 0xFFFFFFFF }
