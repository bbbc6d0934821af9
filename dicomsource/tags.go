package dicomsource

import "github.com/suyashkumar/dicom/dicomtag"

// Tags that we look up by number rather than through dicomtag's named
// constants.
var (
	tagNumberOfFrames    = dicomtag.Tag{Group: 0x0028, Element: 0x0008}
	tagVOILUTSequence    = dicomtag.Tag{Group: 0x0028, Element: 0x3010}
	tagLUTDescriptor     = dicomtag.Tag{Group: 0x0028, Element: 0x3002}
	tagLUTData           = dicomtag.Tag{Group: 0x0028, Element: 0x3006}
	tagPatientName       = dicomtag.Tag{Group: 0x0010, Element: 0x0010}
	tagPatientID         = dicomtag.Tag{Group: 0x0010, Element: 0x0020}
	tagStudyDate         = dicomtag.Tag{Group: 0x0008, Element: 0x0020}
	tagModality          = dicomtag.Tag{Group: 0x0008, Element: 0x0060}
	tagSOPInstanceUID    = dicomtag.Tag{Group: 0x0008, Element: 0x0018}
	tagStudyInstanceUID  = dicomtag.Tag{Group: 0x0020, Element: 0x000D}
	tagSeriesInstanceUID = dicomtag.Tag{Group: 0x0020, Element: 0x000E}
)
