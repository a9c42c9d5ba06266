package parser

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/jpfielding/dicomcore/pkg/dcm/tag"
	"github.com/jpfielding/dicomcore/pkg/dcm/vr"
)

// LazyTagStore maps tag to TagMetadata and materializes string/numeric
// values from the owning buffer on demand. String renderings are cached
// on first access; ValueInt and ValueF64 decode on every call.
// Adapted from the teacher's eager parseValue (pkg/dicos/reader.go), made
// lazy and cached per design §4.4.
type LazyTagStore struct {
	buf          []byte
	littleEndian bool

	mu       sync.Mutex
	meta     map[tag.Tag]TagMetadata
	strCache map[tag.Tag]string
	strDone  map[tag.Tag]bool
}

// NewStore creates an empty store over buf. littleEndian governs FL/FD
// decoding for elements whose transfer syntax is big-endian.
func NewStore(buf []byte, littleEndian bool) *LazyTagStore {
	return &LazyTagStore{
		buf:          buf,
		littleEndian: littleEndian,
		meta:         make(map[tag.Tag]TagMetadata),
		strCache:     make(map[tag.Tag]string),
		strDone:      make(map[tag.Tag]bool),
	}
}

// Put registers metadata for a parsed element, overwriting any earlier
// element with the same tag (matching the teacher's "last write wins"
// ds.Elements[elem.Tag] = elem semantics).
func (s *LazyTagStore) Put(m TagMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[m.Tag] = m
	delete(s.strCache, m.Tag)
	delete(s.strDone, m.Tag)
}

// Metadata returns the TagMetadata recorded for t, if any.
func (s *LazyTagStore) Metadata(t tag.Tag) (TagMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[t]
	return m, ok
}

// Has reports whether t was seen during parsing.
func (s *LazyTagStore) Has(t tag.Tag) bool {
	_, ok := s.Metadata(t)
	return ok
}

func (s *LazyTagStore) order() binary.ByteOrder {
	if s.littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ValueString materializes and caches the textual rendering of t's value.
// Returns "" if t is absent or its bytes cannot be decoded under its VR.
func (s *LazyTagStore) ValueString(t tag.Tag) string {
	s.mu.Lock()
	if done := s.strDone[t]; done {
		v := s.strCache[t]
		s.mu.Unlock()
		return v
	}
	m, ok := s.meta[t]
	s.mu.Unlock()
	if !ok {
		return ""
	}

	v := s.decodeString(m)

	s.mu.Lock()
	s.strCache[t] = v
	s.strDone[t] = true
	s.mu.Unlock()
	return v
}

func (s *LazyTagStore) valueBytes(m TagMetadata) []byte {
	if m.Offset < 0 || m.End() > int64(len(s.buf)) {
		return nil
	}
	return s.buf[m.Offset:m.End()]
}

func (s *LazyTagStore) decodeString(m TagMetadata) string {
	data := s.valueBytes(m)
	if data == nil {
		return ""
	}

	switch m.VR {
	case vr.LO, vr.SH, vr.ST, vr.LT, vr.UT, vr.UI, vr.CS, vr.PN, vr.DA, vr.DT,
		vr.TM, vr.IS, vr.DS, vr.AS, vr.AE, vr.UC, vr.UR:
		str := string(data)
		for len(str) > 0 && (str[len(str)-1] == 0x00 || str[len(str)-1] == ' ') {
			str = str[:len(str)-1]
		}
		return str
	case vr.US:
		return joinUint(decodeU16s(data, s.order()))
	case vr.UL:
		return joinUint32(decodeU32s(data, s.order()))
	case vr.SS:
		return joinInt(decodeI16s(data, s.order()))
	case vr.SL:
		return joinInt32(decodeI32s(data, s.order()))
	case vr.FL:
		return joinFloat32(decodeF32s(data, s.order()))
	case vr.FD:
		return joinFloat64(decodeF64s(data, s.order()))
	case vr.AT:
		return joinUint32(decodeU32s(data, s.order()))
	default: // UN and anything else binary: hex-dump, per design §4.4
		return hex.EncodeToString(data)
	}
}

// ValueInt returns t's value as an integer when its VR is numeric or a
// string VR that parses as an integer (IS, DS with no fractional part).
func (s *LazyTagStore) ValueInt(t tag.Tag) (int64, bool) {
	m, ok := s.Metadata(t)
	if !ok {
		return 0, false
	}
	data := s.valueBytes(m)
	if data == nil {
		return 0, false
	}
	switch m.VR {
	case vr.US:
		if len(data) >= 2 {
			return int64(s.order().Uint16(data)), true
		}
	case vr.UL:
		if len(data) >= 4 {
			return int64(s.order().Uint32(data)), true
		}
	case vr.SS:
		if len(data) >= 2 {
			return int64(int16(s.order().Uint16(data))), true
		}
	case vr.SL:
		if len(data) >= 4 {
			return int64(int32(s.order().Uint32(data))), true
		}
	}
	str := strings.TrimSpace(firstValue(s.decodeString(m)))
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValueF64 returns t's value as a float64 when its VR is numeric (FL, FD)
// or a decimal string (DS).
func (s *LazyTagStore) ValueF64(t tag.Tag) (float64, bool) {
	m, ok := s.Metadata(t)
	if !ok {
		return 0, false
	}
	data := s.valueBytes(m)
	if data == nil {
		return 0, false
	}
	switch m.VR {
	case vr.FL:
		if len(data) >= 4 {
			return float64(math.Float32frombits(s.order().Uint32(data))), true
		}
	case vr.FD:
		if len(data) >= 8 {
			return math.Float64frombits(s.order().Uint64(data)), true
		}
	}
	str := strings.TrimSpace(firstValue(s.decodeString(m)))
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func firstValue(joined string) string {
	if i := strings.IndexByte(joined, '\\'); i >= 0 {
		return joined[:i]
	}
	return joined
}

func decodeU16s(data []byte, order binary.ByteOrder) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = order.Uint16(data[i*2:])
	}
	return out
}

func decodeU32s(data []byte, order binary.ByteOrder) []uint32 {
	n := len(data) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = order.Uint32(data[i*4:])
	}
	return out
}

func decodeI16s(data []byte, order binary.ByteOrder) []int16 {
	raw := decodeU16s(data, order)
	out := make([]int16, len(raw))
	for i, v := range raw {
		out[i] = int16(v)
	}
	return out
}

func decodeI32s(data []byte, order binary.ByteOrder) []int32 {
	raw := decodeU32s(data, order)
	out := make([]int32, len(raw))
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out
}

func decodeF32s(data []byte, order binary.ByteOrder) []float32 {
	raw := decodeU32s(data, order)
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = math.Float32frombits(v)
	}
	return out
}

func decodeF64s(data []byte, order binary.ByteOrder) []float64 {
	n := len(data) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(order.Uint64(data[i*8:]))
	}
	return out
}

func joinUint(vs []uint16) string { return joinAny(len(vs), func(i int) string { return strconv.FormatUint(uint64(vs[i]), 10) }) }
func joinUint32(vs []uint32) string {
	return joinAny(len(vs), func(i int) string { return strconv.FormatUint(uint64(vs[i]), 10) })
}
func joinInt(vs []int16) string { return joinAny(len(vs), func(i int) string { return strconv.FormatInt(int64(vs[i]), 10) }) }
func joinInt32(vs []int32) string {
	return joinAny(len(vs), func(i int) string { return strconv.FormatInt(int64(vs[i]), 10) })
}
func joinFloat32(vs []float32) string {
	return joinAny(len(vs), func(i int) string { return strconv.FormatFloat(float64(vs[i]), 'g', -1, 32) })
}
func joinFloat64(vs []float64) string {
	return joinAny(len(vs), func(i int) string { return strconv.FormatFloat(vs[i], 'g', -1, 64) })
}

func joinAny(n int, at func(int) string) string {
	if n == 0 {
		return ""
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = at(i)
	}
	return strings.Join(parts, "\\")
}
