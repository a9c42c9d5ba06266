// Package pixel implements pixel buffer extraction (PixelReader) and a
// shared BufferPool that bounds allocation churn across Decoder instances,
// grounded on the teacher's GetPixelData (pkg/dicos/dicos.go) and the
// sync/atomic-guarded CountingWriter idiom in pkg/dicos/writer.go
// generalized here to a mutex-guarded bucketed pool.
package pixel

import "sync"

// bucket sizes, in element count, per design §4.7.
var bucketSizes = [...]int{65536, 262144, 1048576, 4194304}

const maxPerBucket = 8

// Pool is a process-wide, mutex-protected pool of reusable uint16 slices
// bucketed by capacity. Apart from the GPU backend installed through
// windowing.SetGPUBackend, it is the only process-wide mutable state in
// this module (design §5); Shared is the default instance PixelReader uses.
type Pool struct {
	mu      sync.Mutex
	buckets map[int][][]uint16
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{buckets: make(map[int][][]uint16)}
}

// Shared is the process-wide pool instance.
var Shared = NewPool()

func ceilingBucket(count int) int {
	for _, b := range bucketSizes {
		if count <= b {
			return b
		}
	}
	return count
}

// Acquire returns a zero-initialized []uint16 with length count and
// capacity at least the next bucket boundary ≥ count. If count exceeds
// the largest bucket, a fresh slice sized exactly to count is returned
// and never pooled.
func (p *Pool) Acquire(count int) []uint16 {
	if count <= 0 {
		return nil
	}
	bucket := ceilingBucket(count)
	if bucket > bucketSizes[len(bucketSizes)-1] {
		return make([]uint16, count)
	}

	p.mu.Lock()
	stack := p.buckets[bucket]
	var buf []uint16
	if n := len(stack); n > 0 {
		buf = stack[n-1]
		p.buckets[bucket] = stack[:n-1]
	}
	p.mu.Unlock()

	if buf == nil {
		return make([]uint16, count, bucket)
	}
	buf = buf[:count]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Release returns buf to its bucket for reuse. Buffers whose capacity
// doesn't match a known bucket, or whose bucket is already at
// maxPerBucket, are simply dropped.
func (p *Pool) Release(buf []uint16) {
	bucket := cap(buf)
	found := false
	for _, b := range bucketSizes {
		if bucket == b {
			found = true
			break
		}
	}
	if !found {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buckets[bucket]) >= maxPerBucket {
		return
	}
	p.buckets[bucket] = append(p.buckets[bucket], buf[:0:bucket])
}
