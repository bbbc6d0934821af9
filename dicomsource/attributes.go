package dicomsource

import (
	"strings"

	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/rs/zerolog/log"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"
)

// Attributes holds the image pixel module attributes that drive display.
type Attributes struct {
	Rows                int
	Cols                int
	SamplesPerPixel     int
	NumberOfFrames      int
	BitsAllocated       int
	BitsStored          int
	HighBit             int
	PixelRepresentation int

	PhotometricInterpretation string

	// HasRescale is false when neither RescaleSlope nor RescaleIntercept is
	// present, in which case the calibration is the identity.
	HasRescale       bool
	RescaleSlope     float64
	RescaleIntercept float64

	WindowCenters  []float64
	WindowWidths   []float64
	VOILUTFunction string
	VOILUTs        []LUT
}

// Calibration returns the modality rescale, defaulting to identity.
func (a Attributes) Calibration() pixelnorm.Calibration {
	if !a.HasRescale {
		return pixelnorm.IdentityCalibration
	}
	return pixelnorm.Calibration{Slope: a.RescaleSlope, Intercept: a.RescaleIntercept}
}

func (a Attributes) Polarity() pixelnorm.Polarity {
	return pixelnorm.ParsePolarity(a.PhotometricInterpretation)
}

// DefaultWindow returns the first stored center/width pair, if any. Viewers
// use it to seed their contrast controls.
func (a Attributes) DefaultWindow() (pixelnorm.Window, bool) {
	if len(a.WindowCenters) == 0 || len(a.WindowWidths) == 0 {
		return pixelnorm.Window{}, false
	}
	return pixelnorm.Window{Center: a.WindowCenters[0], Width: a.WindowWidths[0]}, true
}

// attributesFromElements pulls the display attributes out of a parsed
// dataset. Unparseable values are logged and left at their defaults.
func attributesFromElements(elems []*element.Element) Attributes {
	out := Attributes{
		SamplesPerPixel: 1,
		NumberOfFrames:  1,
		RescaleSlope:    1,
	}

	for _, elem := range elems {
		if elem == nil {
			continue
		}

		switch {
		case elem.Tag == dicomtag.Rows:
			out.Rows = intValue(elem, out.Rows)
		case elem.Tag == dicomtag.Columns:
			out.Cols = intValue(elem, out.Cols)
		case elem.Tag == dicomtag.SamplesPerPixel:
			out.SamplesPerPixel = intValue(elem, out.SamplesPerPixel)
		case elem.Tag == dicomtag.BitsAllocated:
			out.BitsAllocated = intValue(elem, out.BitsAllocated)
		case elem.Tag == dicomtag.BitsStored:
			out.BitsStored = intValue(elem, out.BitsStored)
		case elem.Tag == dicomtag.HighBit:
			out.HighBit = intValue(elem, out.HighBit)
		case elem.Tag == dicomtag.PixelRepresentation:
			out.PixelRepresentation = intValue(elem, out.PixelRepresentation)
		case elem.Tag == dicomtag.PhotometricInterpretation:
			out.PhotometricInterpretation = strings.ToUpper(elementString(elem))
		case elem.Tag == dicomtag.VOILUTFunction:
			out.VOILUTFunction = strings.ToUpper(elementString(elem))
		case elem.Tag.Compare(tagNumberOfFrames) == 0:
			out.NumberOfFrames = intValue(elem, out.NumberOfFrames)
		case elem.Tag == dicomtag.RescaleSlope:
			if v, ok := floatValue(elem); ok {
				out.RescaleSlope = v
				out.HasRescale = true
			}
		case elem.Tag == dicomtag.RescaleIntercept:
			if v, ok := floatValue(elem); ok {
				out.RescaleIntercept = v
				out.HasRescale = true
			}
		case elem.Tag == dicomtag.WindowCenter:
			out.WindowCenters = floatValues(elem)
		case elem.Tag == dicomtag.WindowWidth:
			out.WindowWidths = floatValues(elem)
		case elem.Tag.Compare(tagVOILUTSequence) == 0:
			out.VOILUTs = lutsFromSequence(elem)
		}
	}

	if out.NumberOfFrames < 1 {
		out.NumberOfFrames = 1
	}

	return out
}

func intValue(elem *element.Element, fallback int) int {
	v, ok := floatValue(elem)
	if !ok {
		return fallback
	}
	return int(v)
}

func floatValue(elem *element.Element) (float64, bool) {
	v, ok, err := elementFloat(elem)
	if err != nil {
		log.Warn().Str("component", "dicomsource").Interface("tag", elem.Tag).Err(err).Msg("could not parse attribute")
	}
	return v, ok
}

func floatValues(elem *element.Element) []float64 {
	vals, err := elementFloats(elem)
	if err != nil {
		log.Warn().Str("component", "dicomsource").Interface("tag", elem.Tag).Err(err).Msg("could not parse attribute")
	}
	return vals
}

// lutsFromSequence reads every item of a VOI LUT Sequence. Items that lack a
// usable descriptor or data are dropped.
func lutsFromSequence(seq *element.Element) []LUT {
	var out []LUT

	for i, item := range sequenceItems(seq) {
		var descriptor, data []float64

		for _, child := range item {
			if child.Tag.Compare(tagLUTDescriptor) == 0 {
				descriptor, _ = elementFloats(child)
			} else if child.Tag.Compare(tagLUTData) == 0 {
				data, _ = elementFloats(child)
			}
		}

		lut, err := NewLUT(descriptor, data)
		if err != nil {
			log.Debug().Str("component", "dicomsource").Int("item", i).Err(err).Msg("skipping VOI LUT item")
			continue
		}
		out = append(out, lut)
	}

	return out
}
