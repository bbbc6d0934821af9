package dicomsource

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"
)

// Metadata holds the descriptive attributes a viewer shows next to the
// image. Absent attributes are empty strings.
type Metadata struct {
	PatientName               string
	PatientID                 string
	StudyDate                 string
	Modality                  string
	StudyInstanceUID          string
	SeriesInstanceUID         string
	SOPInstanceUID            string
	PhotometricInterpretation string
	PixelSpacing              string
	Rows                      string
	Columns                   string
	BitsStored                string
	SamplesPerPixel           string
	NumberOfFrames            string
	TransferSyntaxUID         string
	WindowCenter              string
	WindowWidth               string
}

// Lines renders the metadata as "Name: value" lines in display order,
// skipping attributes that were not present.
func (m Metadata) Lines() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"PatientName", m.PatientName},
		{"PatientID", m.PatientID},
		{"StudyDate", m.StudyDate},
		{"Modality", m.Modality},
		{"StudyInstanceUID", m.StudyInstanceUID},
		{"SeriesInstanceUID", m.SeriesInstanceUID},
		{"SOPInstanceUID", m.SOPInstanceUID},
		{"PhotometricInterpretation", m.PhotometricInterpretation},
		{"PixelSpacing", m.PixelSpacing},
		{"Rows", m.Rows},
		{"Columns", m.Columns},
		{"BitsStored", m.BitsStored},
		{"SamplesPerPixel", m.SamplesPerPixel},
		{"NumberOfFrames", m.NumberOfFrames},
		{"TransferSyntaxUID", m.TransferSyntaxUID},
		{"WindowCenter", m.WindowCenter},
		{"WindowWidth", m.WindowWidth},
	}

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		out = append(out, f.name+": "+f.value)
	}

	return out
}

// ParsedStudyDate interprets StudyDate, which is usually YYYYMMDD but is
// not always.
func (m Metadata) ParsedStudyDate() (time.Time, error) {
	if m.StudyDate == "" {
		return time.Time{}, fmt.Errorf("no study date")
	}

	if res, err := time.Parse("20060102", m.StudyDate); err == nil {
		return res, nil
	}

	return dateparse.ParseAny(m.StudyDate)
}

func metadataFromElements(elems []*element.Element) Metadata {
	out := Metadata{}

	for _, elem := range elems {
		if elem == nil {
			continue
		}

		var dst *string
		switch {
		case elem.Tag.Compare(tagPatientName) == 0:
			dst = &out.PatientName
		case elem.Tag.Compare(tagPatientID) == 0:
			dst = &out.PatientID
		case elem.Tag.Compare(tagStudyDate) == 0:
			dst = &out.StudyDate
		case elem.Tag.Compare(tagModality) == 0:
			dst = &out.Modality
		case elem.Tag.Compare(tagStudyInstanceUID) == 0:
			dst = &out.StudyInstanceUID
		case elem.Tag.Compare(tagSeriesInstanceUID) == 0:
			dst = &out.SeriesInstanceUID
		case elem.Tag.Compare(tagSOPInstanceUID) == 0:
			dst = &out.SOPInstanceUID
		case elem.Tag == dicomtag.PhotometricInterpretation:
			dst = &out.PhotometricInterpretation
		case elem.Tag == dicomtag.PixelSpacing:
			dst = &out.PixelSpacing
		case elem.Tag == dicomtag.Rows:
			dst = &out.Rows
		case elem.Tag == dicomtag.Columns:
			dst = &out.Columns
		case elem.Tag == dicomtag.BitsStored:
			dst = &out.BitsStored
		case elem.Tag == dicomtag.SamplesPerPixel:
			dst = &out.SamplesPerPixel
		case elem.Tag.Compare(tagNumberOfFrames) == 0:
			dst = &out.NumberOfFrames
		case elem.Tag == dicomtag.TransferSyntaxUID:
			dst = &out.TransferSyntaxUID
		case elem.Tag == dicomtag.WindowCenter:
			dst = &out.WindowCenter
		case elem.Tag == dicomtag.WindowWidth:
			dst = &out.WindowWidth
		default:
			continue
		}

		*dst = elementString(elem)
	}

	return out
}

// TagEntry is one row of a full tag dump.
type TagEntry struct {
	Group   uint16
	Element uint16
	Name    string
	VR      string
	Value   string
}

// maxDumpValueLen keeps long values (pixel data, overlays, LUTs) from
// flooding a dump.
const maxDumpValueLen = 80

func tagEntries(elems []*element.Element) []TagEntry {
	out := make([]TagEntry, 0, len(elems))

	for _, elem := range elems {
		if elem == nil {
			continue
		}

		tagInfo, _ := dicomtag.Find(elem.Tag)
		if tagInfo.Name == "" {
			tagInfo.Name = "____"
		}

		value := "<pixel data>"
		if elem.Tag != dicomtag.PixelData {
			value = elementString(elem)
		}
		if len(value) > maxDumpValueLen {
			value = value[:maxDumpValueLen] + "..."
		}

		out = append(out, TagEntry{
			Group:   elem.Tag.Group,
			Element: elem.Tag.Element,
			Name:    tagInfo.Name,
			VR:      elem.VR,
			Value:   value,
		})
	}

	return out
}

func (t TagEntry) String() string {
	return fmt.Sprintf("(%04x,%04x) %s %s: %s", t.Group, t.Element, t.VR, t.Name, strings.TrimSpace(t.Value))
}
