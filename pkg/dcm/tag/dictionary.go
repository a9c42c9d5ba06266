package tag

import "github.com/jpfielding/dicomcore/pkg/dcm/vr"

// Dictionary resolves the VR for a tag when the dataset is encoded in
// Implicit VR Little Endian, where the VR is not present on the wire and
// must be looked up by tag. Adapted from the teacher's
// getImplicitVR (pkg/dicos/reader.go): a direct map replaces the teacher's
// switch statement so the table can grow without the function growing.
type Dictionary struct {
	entries map[Tag]vr.VR
}

// Default is the dictionary covering every standard tag this module names
// in tag.go, built once at init time.
var Default = newDictionary()

func newDictionary() *Dictionary {
	d := &Dictionary{entries: map[Tag]vr.VR{
		FileMetaInformationGroupLength: vr.UL,
		MediaStorageSOPClassUID:        vr.UI,
		MediaStorageSOPInstanceUID:     vr.UI,
		TransferSyntaxUID:              vr.UI,
		ImplementationClassUID:         vr.UI,

		PatientName:      vr.PN,
		PatientID:        vr.LO,
		PatientBirthDate: vr.DA,
		PatientSex:       vr.CS,

		StudyInstanceUID:  vr.UI,
		StudyDate:         vr.DA,
		Modality:          vr.CS,
		SeriesInstanceUID: vr.UI,
		SeriesNumber:      vr.IS,
		InstanceNumber:    vr.IS,
		SeriesDescription: vr.LO,

		SOPClassUID:    vr.UI,
		SOPInstanceUID: vr.UI,

		FrameOfReferenceUID: vr.UI,

		SamplesPerPixel:           vr.US,
		PhotometricInterpretation: vr.CS,
		PlanarConfiguration:       vr.US,
		Rows:                      vr.US,
		Columns:                   vr.US,
		PixelSpacing:              vr.DS,
		BitsAllocated:             vr.US,
		BitsStored:                vr.US,
		HighBit:                   vr.US,
		PixelRepresentation:       vr.US,
		NumberOfFrames:            vr.IS,
		PixelData:                 vr.OW,

		RescaleIntercept: vr.DS,
		RescaleSlope:     vr.DS,
		WindowCenter:     vr.DS,
		WindowWidth:      vr.DS,
		VOILUTFunction:   vr.CS,

		ImagePositionPatient:    vr.DS,
		ImageOrientationPatient: vr.DS,
		SliceThickness:          vr.DS,
		SpacingBetweenSlices:    vr.DS,
	}}
	return d
}

// Lookup returns the VR registered for t, and whether it was found.
func (d *Dictionary) Lookup(t Tag) (vr.VR, bool) {
	v, ok := d.entries[t]
	return v, ok
}

// LookupOrUnknown returns the registered VR for t, or vr.UN if t is not in
// the dictionary — the same fallback the teacher's getImplicitVR applies
// for any tag it doesn't recognize.
func (d *Dictionary) LookupOrUnknown(t Tag) vr.VR {
	if v, ok := d.entries[t]; ok {
		return v
	}
	return vr.UN
}
