// Package preset implements the named window/level presets clinicians use
// instead of typing raw center/width numbers, per design §4.10. Grounded
// on the teacher's enumerated-constant style (pkg/dicos/transfer/syntax.go
// uses the same "typed string constant + lookup table" shape for transfer
// syntax UIDs).
package preset

import "github.com/jpfielding/dicomcore/pkg/dcm/windowing"

// MedicalPreset names a clinically meaningful window/level combination.
type MedicalPreset string

const (
	Lung              MedicalPreset = "lung"
	Bone              MedicalPreset = "bone"
	Brain             MedicalPreset = "brain"
	Liver             MedicalPreset = "liver"
	Mediastinum       MedicalPreset = "mediastinum"
	Abdomen           MedicalPreset = "abdomen"
	Spine             MedicalPreset = "spine"
	Pelvis            MedicalPreset = "pelvis"
	SoftTissue        MedicalPreset = "soft_tissue"
	Angiography       MedicalPreset = "angiography"
	PulmonaryEmbolism MedicalPreset = "pulmonary_embolism"
	Mammography       MedicalPreset = "mammography"
	PETScan           MedicalPreset = "pet_scan"
	Custom            MedicalPreset = "custom"
)

// matchEpsilon is the tolerance PresetFor uses when comparing a
// WindowSettings against the table, per design §4.10.2.
const matchEpsilon = 0.5

var table = map[MedicalPreset]windowing.Settings{
	Lung:              {Center: -600, Width: 1500},
	Bone:              {Center: 400, Width: 1800},
	Brain:             {Center: 40, Width: 80},
	Liver:             {Center: 60, Width: 160},
	Mediastinum:       {Center: 50, Width: 400},
	Abdomen:           {Center: 60, Width: 400},
	Spine:             {Center: 50, Width: 250},
	Pelvis:            {Center: 50, Width: 400},
	SoftTissue:        {Center: 50, Width: 350},
	Angiography:       {Center: 300, Width: 600},
	PulmonaryEmbolism: {Center: 100, Width: 700},
	Mammography:       {Center: 2000, Width: 4000},
	PETScan:           {Center: 5, Width: 10},
}

// orderedPresets fixes PresetFor's search order so a tie between two
// presets (both within epsilon of the input) always resolves to the same
// one, regardless of map iteration order.
var orderedPresets = []MedicalPreset{
	Lung, Bone, Brain, Liver, Mediastinum, Abdomen, Spine, Pelvis,
	SoftTissue, Angiography, PulmonaryEmbolism, Mammography, PETScan,
}

// Settings returns the (center, width) pair for preset, and false for
// Custom or any unrecognized name.
func Settings(preset MedicalPreset) (windowing.Settings, bool) {
	s, ok := table[preset]
	return s, ok
}

// PresetFor returns the preset whose table entry matches settings within
// matchEpsilon on both center and width, or ("", false) if none matches
// (the caller should treat the input as Custom).
func PresetFor(settings windowing.Settings) (MedicalPreset, bool) {
	for _, p := range orderedPresets {
		ref := table[p]
		if abs(ref.Center-settings.Center) <= matchEpsilon && abs(ref.Width-settings.Width) <= matchEpsilon {
			return p, true
		}
	}
	return "", false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// suggestions maps a DICOM Modality code to the presets relevant to it,
// per design §4.10.3.
var suggestions = map[string][]MedicalPreset{
	"CT": {Lung, Bone, Brain, Liver, Mediastinum, Abdomen, Spine, Pelvis, SoftTissue, Angiography, PulmonaryEmbolism},
	"MR": {Brain, SoftTissue, Spine},
	"CR": {Bone, SoftTissue},
	"DX": {Bone, SoftTissue},
	"MG": {Mammography},
	"PT": {PETScan},
	"US": {SoftTissue},
}

// Suggest returns the presets relevant to modality, or nil if the modality
// is unrecognized.
func Suggest(modality string) []MedicalPreset {
	s, ok := suggestions[modality]
	if !ok {
		return nil
	}
	out := make([]MedicalPreset, len(s))
	copy(out, s)
	return out
}
