package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireZeroed(t *testing.T) {
	p := NewPool()
	buf := p.Acquire(1000)
	require.Len(t, buf, 1000)
	for _, v := range buf {
		assert.Zero(t, v)
	}
}

func TestPoolAcquireReleaseReuse(t *testing.T) {
	p := NewPool()
	buf := p.Acquire(100)
	buf[0] = 42
	p.Release(buf)

	reused := p.Acquire(100)
	assert.Equal(t, uint16(0), reused[0], "reacquired buffer must be zeroed")
}

func TestPoolOversizeNotPooled(t *testing.T) {
	p := NewPool()
	buf := p.Acquire(10_000_000)
	require.Len(t, buf, 10_000_000)
	p.Release(buf) // must not panic, simply dropped
	assert.Empty(t, p.buckets)
}

func TestCeilingBucket(t *testing.T) {
	assert.Equal(t, 65536, ceilingBucket(1))
	assert.Equal(t, 262144, ceilingBucket(70000))
	assert.Equal(t, 4194304, ceilingBucket(4194304))
}
