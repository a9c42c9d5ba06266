package preset

import (
	"testing"

	"github.com/jpfielding/dicomcore/pkg/dcm/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsKnownPreset(t *testing.T) {
	s, ok := Settings(Lung)
	require.True(t, ok)
	assert.Equal(t, windowing.Settings{Center: -600, Width: 1500}, s)
}

func TestSettingsCustomNotInTable(t *testing.T) {
	_, ok := Settings(Custom)
	assert.False(t, ok)
}

func TestPresetForExactMatch(t *testing.T) {
	p, ok := PresetFor(windowing.Settings{Center: -600, Width: 1500})
	require.True(t, ok)
	assert.Equal(t, Lung, p)
}

func TestPresetForWithinEpsilon(t *testing.T) {
	p, ok := PresetFor(windowing.Settings{Center: -600.4, Width: 1499.6})
	require.True(t, ok)
	assert.Equal(t, Lung, p)
}

func TestPresetForNoMatch(t *testing.T) {
	_, ok := PresetFor(windowing.Settings{Center: 12345, Width: 1})
	assert.False(t, ok)
}

func TestSuggestKnownModality(t *testing.T) {
	s := Suggest("CT")
	assert.Contains(t, s, Lung)
	assert.Contains(t, s, Bone)
}

func TestSuggestUnknownModality(t *testing.T) {
	assert.Nil(t, Suggest("XX"))
}

func TestAllThirteenPresetsPresent(t *testing.T) {
	assert.Len(t, table, 13)
}
