package jpeglossless

// huffmanTable is a decoded Define-Huffman-Table segment: bits[len] holds
// the BITS count read off the wire, codes/sizes/values are parallel arrays
// in canonical order, and lookup is an 8-bit fast-path table (index: next
// 8 bits of the bitstream; value: size<<8|symbol, or -1 for "no code of
// length ≤ 8 matches, fall back to the bit-by-bit search"). Field layout
// matches the teacher's pkg/compress/jpegli huffmanTable (codes/sizes/
// values/bits), which scan.go's decodeHuffman and slow-path search walk
// directly; lookup is this module's addition, since the teacher's copy of
// that field was never populated in the files we received.
type huffmanTable struct {
	bits   [17]int
	values []byte
	codes  []uint16
	sizes  []int
	lookup [256]int32
}

// buildHuffmanTable constructs canonical JPEG Huffman codes from BITS
// (counts per code length, index 1..16) and HUFFVAL (symbol per code, in
// canonical order), per JPEG Annex C, then builds the 8-bit fast-path
// lookup table per Annex F.2.2.3's suggested optimization. This is the
// same code-assignment loop as the teacher's buildHuffmanFromCounts
// (pkg/compress/jpegli/encode.go), generalized to take wire-supplied BITS/
// HUFFVAL instead of a fixed synthetic distribution.
func buildHuffmanTable(bits [17]int, values []byte) *huffmanTable {
	ht := &huffmanTable{bits: bits, values: values}

	total := len(values)
	ht.codes = make([]uint16, total)
	ht.sizes = make([]int, total)

	k := 0
	for size := 1; size <= 16; size++ {
		for j := 0; j < bits[size]; j++ {
			ht.sizes[k] = size
			k++
		}
	}

	code := uint16(0)
	si := 0
	if total > 0 {
		si = ht.sizes[0]
	}
	for k := 0; k < total; k++ {
		for ht.sizes[k] > si {
			code <<= 1
			si++
		}
		ht.codes[k] = code
		code++
	}

	for i := range ht.lookup {
		ht.lookup[i] = -1
	}
	for k := 0; k < total; k++ {
		size := ht.sizes[k]
		if size > 8 {
			continue
		}
		entry := int32(size)<<8 | int32(values[k])
		prefix := ht.codes[k] << uint(8-size)
		span := 1 << uint(8-size)
		for i := 0; i < span; i++ {
			ht.lookup[int(prefix)+i] = entry
		}
	}

	return ht
}
