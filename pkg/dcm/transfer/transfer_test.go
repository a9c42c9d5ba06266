package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExplicitVR(t *testing.T) {
	assert.False(t, ImplicitVRLittleEndian.IsExplicitVR())
	assert.True(t, ExplicitVRLittleEndian.IsExplicitVR())
	assert.True(t, JPEGLossless.IsExplicitVR())
}

func TestIsLittleEndian(t *testing.T) {
	assert.True(t, ExplicitVRLittleEndian.IsLittleEndian())
	assert.False(t, ExplicitVRBigEndian.IsLittleEndian())
}

func TestIsEncapsulated(t *testing.T) {
	assert.False(t, ExplicitVRLittleEndian.IsEncapsulated())
	assert.True(t, JPEGLossless.IsEncapsulated())
	assert.True(t, JPEG2000.IsEncapsulated())
	assert.True(t, RLELossless.IsEncapsulated())
}

func TestIsJPEGLossless(t *testing.T) {
	assert.True(t, JPEGLossless.IsJPEGLossless())
	assert.True(t, JPEGLosslessFirstOrder.IsJPEGLossless())
	assert.False(t, JPEG2000.IsJPEGLossless())
}

func TestFromUIDTrimsPadding(t *testing.T) {
	assert.Equal(t, ExplicitVRLittleEndian, FromUID("1.2.840.10008.1.2.1\x00"))
	assert.Equal(t, ExplicitVRLittleEndian, FromUID("1.2.840.10008.1.2.1 "))
}

func TestKnown(t *testing.T) {
	assert.True(t, JPEG2000.Known())
	assert.False(t, Syntax("1.2.3.4.5.6.bogus").Known())
}
