package parser

import (
	"encoding/binary"
	"log/slog"

	"github.com/jpfielding/dicomcore/pkg/dcm/bytereader"
	"github.com/jpfielding/dicomcore/pkg/dcm/dcmerr"
	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/dcm/transfer"
	"github.com/jpfielding/dicomcore/pkg/dcm/vr"
)

const (
	magicOffset   = 128
	datasetOffset = 132
	undefinedLen  = 0xFFFFFFFF
)

// Result is everything the Parser produces from one file buffer: the
// lazily-decodable tag store, the resolved transfer syntax, and the
// offset of the pixel data element's value (0 if the dataset carries no
// pixel data), plus the raw fragments of an encapsulated pixel stream
// when present.
type Result struct {
	Store            *LazyTagStore
	Syntax           transfer.Syntax
	PixelDataOffset  int64
	PixelDataLength  uint32
	Encapsulated     bool
	Fragments        [][]byte // raw compressed-frame bytes, encapsulated only
	BasicOffsetTable []uint32
}

// Parser walks a DICOM file buffer tag by tag, implementing the
// ReadTag→ReadVR→ReadLength→LocateValue→Advance state machine from
// design §4.3.2. Adapted from the teacher's Reader.ReadDataset
// (pkg/dicos/reader.go), generalized from a streaming io.Reader to a
// random-access buffer so TagMetadata can record byte offsets instead of
// eagerly decoded values.
type Parser struct {
	logger *slog.Logger
}

// New returns a Parser. A nil logger defaults to slog.Default().
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse consumes buf and produces a Result. It returns an error only when
// the buffer is not recognized as DICOM; a truncated or unreadable element
// within the dataset body stops the walk and the Result carries the
// elements already parsed, per design §4.3.3.
func (p *Parser) Parse(buf []byte) (*Result, error) {
	start, explicitVR, littleEndian, err := p.dispatchPreamble(buf)
	if err != nil {
		return nil, err
	}

	store := NewStore(buf, littleEndian)
	res := &Result{Store: store, Syntax: transfer.ExplicitVRLittleEndian}
	if !explicitVR {
		// Legacy file without DICM magic: walked as implicit VR little-endian.
		res.Syntax = transfer.ImplicitVRLittleEndian
	}

	state := &walkState{
		r:            bytereader.New(buf),
		explicitVR:   explicitVR,
		littleEndian: littleEndian,
		logger:       p.logger,
	}
	if err := state.r.Seek(start); err != nil {
		return nil, err
	}

	sawTransferSyntax := false
	inFileMeta := start == datasetOffset

	for state.r.Remaining() > 0 {
		tg, ok := state.readTag()
		if !ok {
			break
		}

		if inFileMeta && tg.Group != 0x0002 {
			inFileMeta = false
			if !sawTransferSyntax {
				// No explicit TransferSyntaxUID seen in group 0002: default
				// to implicit VR little-endian for the dataset, matching
				// the teacher's ReadDataset fallback.
				res.Syntax = transfer.ImplicitVRLittleEndian
				state.explicitVR = false
				state.littleEndian = true
			}
		}

		vrCode, length, malformedFellBack, ok := state.readVRAndLength(tg, inFileMeta)
		if !ok {
			p.logger.Warn("truncated element header, stopping parse",
				"tag", tg.String(), "offset", state.r.Pos())
			break
		}
		if malformedFellBack {
			p.logger.Warn("malformed VR, falling back to implicit-VR for element",
				"tag", tg.String())
		}

		if tg == tag.PixelData && length == undefinedLen {
			res.PixelDataOffset = state.r.Pos()
			res.Encapsulated = true
			fragments, bot, err := state.readEncapsulatedPixelData()
			if err != nil {
				p.logger.Warn("failed reading encapsulated pixel data, stopping parse",
					"error", err.Error())
				break
			}
			res.Fragments = fragments
			res.BasicOffsetTable = bot
			break // pixel data terminates the walk per design §4.3.2
		}

		if length == undefinedLen {
			// Sequence with undefined length: skip to its delimiter.
			if err := state.skipUndefinedLengthSequence(); err != nil {
				p.logger.Warn("failed skipping sequence, stopping parse", "tag", tg.String())
				break
			}
			continue
		}

		if int64(length) > state.r.Remaining() {
			p.logger.Warn("element length exceeds remaining buffer, stopping parse",
				"tag", tg.String(), "length", length, "remaining", state.r.Remaining())
			break
		}

		m := TagMetadata{Tag: tg, Offset: state.r.Pos(), VR: vrCode, Length: length}
		store.Put(m)

		if tg == tag.PixelData {
			res.PixelDataOffset = m.Offset
			res.PixelDataLength = length
		}

		if err := state.r.Seek(state.r.Pos() + int64(length)); err != nil {
			p.logger.Warn("failed advancing past element value, stopping parse", "tag", tg.String())
			break
		}

		if tg == tag.TransferSyntaxUID {
			uid := store.ValueString(tg)
			res.Syntax = transfer.FromUID(uid)
			sawTransferSyntax = true
			state.explicitVR = res.Syntax.IsExplicitVR()
			state.littleEndian = res.Syntax.IsLittleEndian()
		}
	}

	return res, nil
}

// dispatchPreamble implements design §4.3.1: prefer the 128-byte preamble
// + "DICM" magic; fall back to a legacy implicit-VR-at-offset-0 heuristic;
// fail NotDICOM if neither looks plausible.
func (p *Parser) dispatchPreamble(buf []byte) (start int64, explicitVR, littleEndian bool, err error) {
	if len(buf) >= datasetOffset && string(buf[magicOffset:datasetOffset]) == "DICM" {
		return datasetOffset, true, true, nil
	}

	if plausibleLegacyHeader(buf) {
		return 0, false, true, nil
	}

	return 0, false, false, dcmerr.New(dcmerr.KindNotDICOM,
		"neither DICM magic at offset 128 nor a plausible legacy header at offset 0")
}

// plausibleLegacyHeader implements the invariant-1(b) heuristic: the first
// element looks like a small, well-formed group-0008 implicit-VR tag.
func plausibleLegacyHeader(buf []byte) bool {
	if len(buf) < 8 {
		return false
	}
	group := binary.LittleEndian.Uint16(buf[0:2])
	if group != 0x0008 {
		return false
	}
	length := binary.LittleEndian.Uint32(buf[4:8])
	return length != undefinedLen && int64(length) <= int64(len(buf))-8
}

// walkState holds the Parser's cursor and the current encoding mode,
// separated from Parser itself so Parse can be called concurrently on
// different buffers with one shared Parser (logger only). The cursor
// itself is a bytereader.Reader, so every tag, VR and length read is
// bounds-checked and endian-aware.
type walkState struct {
	r            *bytereader.Reader
	explicitVR   bool
	littleEndian bool
	logger       *slog.Logger
}

func (s *walkState) endian() bytereader.Endian {
	if s.littleEndian {
		return bytereader.LittleEndian
	}
	return bytereader.BigEndian
}

func (s *walkState) readTag() (tag.Tag, bool) {
	group, err := s.r.ReadU16(s.endian())
	if err != nil {
		return tag.Tag{}, false
	}
	element, err := s.r.ReadU16(s.endian())
	if err != nil {
		return tag.Tag{}, false
	}
	return tag.New(group, element), true
}

// readVRAndLength implements ReadVR and ReadLength. fileMeta forces
// explicit-VR regardless of the dataset's own mode, per design §4.3.1
// ("file-meta group is always explicit-VR little-endian").
func (s *walkState) readVRAndLength(tg tag.Tag, fileMeta bool) (v vr.VR, length uint32, malformedFellBack bool, ok bool) {
	explicit := s.explicitVR || fileMeta

	if explicit {
		rawBytes, err := s.r.PeekBytes(2)
		if err != nil {
			return "", 0, false, false
		}
		raw := vr.VR(rawBytes)

		if !raw.Valid() {
			// Malformed VR: the 2 "VR" bytes were never consumed, so the
			// 4-byte implicit-VR length read below starts at the same
			// offset and reinterprets them as its leading half, per
			// design §4.3.3.
			v = tag.Default.LookupOrUnknown(tg)
			length, err = s.r.ReadU32(s.endian())
			if err != nil {
				return "", 0, true, false
			}
			return v, length, true, true
		}
		v = raw
		if _, err := s.r.ReadBytes(2); err != nil {
			return "", 0, false, false
		}

		if v.IsLong() {
			if _, err := s.r.ReadBytes(2); err != nil { // reserved
				return "", 0, false, false
			}
			length, err = s.r.ReadU32(s.endian())
			if err != nil {
				return "", 0, false, false
			}
		} else {
			length16, err := s.r.ReadU16(s.endian())
			if err != nil {
				return "", 0, false, false
			}
			length = uint32(length16)
		}
		return v, length, false, true
	}

	// Implicit VR: 4-byte length, VR from the dictionary.
	v = tag.Default.LookupOrUnknown(tg)
	length, err := s.r.ReadU32(s.endian())
	if err != nil {
		return "", 0, false, false
	}
	return v, length, false, true
}

// skipUndefinedLengthSequence walks item/delimiter tags until the matching
// SequenceDelimitationItem, adapted from the teacher's
// skipUndefinedLengthSequence (pkg/dicos/reader.go), generalized to
// recurse for nested undefined-length items.
func (s *walkState) skipUndefinedLengthSequence() error {
	for {
		tg, ok := s.readTag()
		if !ok {
			return dcmerr.New(dcmerr.KindInvalidFormat, "truncated sequence")
		}

		if tg.Group == 0xFFFE {
			length, err := s.r.ReadU32(s.endian())
			if err != nil {
				return dcmerr.New(dcmerr.KindInvalidFormat, "truncated item delimiter")
			}

			switch tg {
			case tag.SequenceDelimitationItem:
				return nil
			case tag.ItemDelimitationItem:
				continue
			case tag.Item:
				if length != undefinedLen && length > 0 {
					if err := s.r.Seek(s.r.Pos() + int64(length)); err != nil {
						return dcmerr.New(dcmerr.KindInvalidFormat, "item length exceeds buffer")
					}
				}
				continue
			}
		}

		v, length, _, ok := s.readVRAndLength(tg, false)
		_ = v
		if !ok {
			return dcmerr.New(dcmerr.KindInvalidFormat, "truncated element inside sequence")
		}

		if length == undefinedLen {
			if err := s.skipUndefinedLengthSequence(); err != nil {
				return err
			}
			continue
		}
		if err := s.r.Seek(s.r.Pos() + int64(length)); err != nil {
			return dcmerr.New(dcmerr.KindInvalidFormat, "element length exceeds buffer inside sequence")
		}
	}
}

// readEncapsulatedPixelData reads the Basic Offset Table and fragment
// Items of an encapsulated compressed pixel stream, adapted from the
// teacher's readEncapsulatedPixelData (pkg/dicos/reader.go), resolving
// design's Open Question in favor of explicit BOT + item parsing rather
// than treating the remaining bytes as one opaque codestream.
func (s *walkState) readEncapsulatedPixelData() (fragments [][]byte, offsetTable []uint32, err error) {
	botTag, ok := s.readTag()
	if !ok || botTag != tag.Item {
		return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "expected Basic Offset Table item tag")
	}
	botLength, rerr := s.r.ReadU32(s.endian())
	if rerr != nil {
		return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "truncated BOT length")
	}

	if botLength > 0 {
		n := botLength / 4
		offsetTable = make([]uint32, n)
		for i := range offsetTable {
			v, rerr := s.r.ReadU32(s.endian())
			if rerr != nil {
				return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "BOT length exceeds buffer")
			}
			offsetTable[i] = v
		}
	}

	for {
		itemTag, ok := s.readTag()
		if !ok {
			return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "truncated fragment stream")
		}
		length, rerr := s.r.ReadU32(s.endian())
		if rerr != nil {
			return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "truncated fragment length")
		}

		if itemTag == tag.SequenceDelimitationItem {
			return fragments, offsetTable, nil
		}
		if itemTag != tag.Item {
			return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "expected fragment item tag, got %v", itemTag)
		}
		frag, rerr := s.r.ReadBytes(int(length))
		if rerr != nil {
			return nil, nil, dcmerr.New(dcmerr.KindInvalidFormat, "fragment length exceeds buffer")
		}
		fragments = append(fragments, frag)
	}
}
