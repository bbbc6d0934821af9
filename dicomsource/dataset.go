package dicomsource

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/carbocation/pfx"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"
)

// Dataset is a decoded DICOM image: its display attributes, its metadata and
// all of its frames as a single stack.
type Dataset struct {
	Attributes Attributes
	Metadata   Metadata
	Tags       []TagEntry
	Stack      pixelnorm.FrameStack
}

// SafelyDicomParse consumes panics emitted by the dicom library, which are
// inappropriate and must be captured in order to turn them into recoverable
// errors.
func SafelyDicomParse(p dicom.Parser, opts dicom.ParseOptions) (parsedData *element.DataSet, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("dicom parser panicked: %v", panicErr)
		}
	}()

	return p.Parse(opts)
}

// ParseDicomFromReader decodes one DICOM of nBytes bytes from r.
func ParseDicomFromReader(r io.Reader, nBytes int64) (ds *Dataset, err error) {
	defer recoverParser(&err)

	p, err := dicom.NewParser(r, nBytes, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return parse(p)
}

// ParseDicomFromBytes decodes one DICOM held in memory.
func ParseDicomFromBytes(dcm []byte) (ds *Dataset, err error) {
	defer recoverParser(&err)

	p, err := dicom.NewParserFromBytes(dcm, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return parse(p)
}

// recoverParser turns a panic while reading the header into an error, the
// same way SafelyDicomParse does for the body.
func recoverParser(err *error) {
	if panicErr := recover(); panicErr != nil {
		*err = fmt.Errorf("dicom parser panicked: %v", panicErr)
	}
}

func parse(p dicom.Parser) (*Dataset, error) {
	parsedData, err := SafelyDicomParse(p, dicom.ParseOptions{
		DropPixelData: false,
	})
	if parsedData == nil || err != nil {
		return nil, pfx.Err(fmt.Errorf("error reading dicom: %v", err))
	}

	return datasetFromElements(parsedData.Elements)
}

func datasetFromElements(elems []*element.Element) (*Dataset, error) {
	ds := &Dataset{
		Attributes: attributesFromElements(elems),
		Metadata:   metadataFromElements(elems),
		Tags:       tagEntries(elems),
	}

	for _, elem := range elems {
		if elem == nil || elem.Tag != dicomtag.PixelData || len(elem.Value) == 0 {
			continue
		}

		data, ok := elem.Value[0].(element.PixelDataInfo)
		if !ok {
			return nil, pfx.Err(fmt.Errorf("pixel data has unexpected type %T", elem.Value[0]))
		}

		frames, err := framesFromPixelData(data, ds.Attributes)
		if err != nil {
			return nil, pfx.Err(err)
		}

		stack, err := stackFromFrames(frames, ds.Attributes)
		if err != nil {
			return nil, pfx.Err(err)
		}
		ds.Stack = stack

		return ds, nil
	}

	return nil, pfx.Err(fmt.Errorf("dicom has no pixel data"))
}

// decodedFrame is one frame's samples before stacking. data holds one slice
// of channel values per pixel, as the dicom library's native frames do.
type decodedFrame struct {
	rows int
	cols int
	data [][]int
}

func framesFromPixelData(info element.PixelDataInfo, attrs Attributes) ([]decodedFrame, error) {
	out := make([]decodedFrame, 0, len(info.Frames))

	for k, fr := range info.Frames {
		if fr.IsEncapsulated() {
			img, err := fr.GetImage()
			if err != nil {
				return nil, fmt.Errorf("frame %d is encapsulated and could not be decoded: %v", k, err)
			}
			out = append(out, framesFromImage(img, attrs.SamplesPerPixel))
			continue
		}

		rows, cols := fr.NativeData.Rows, fr.NativeData.Cols
		if rows == 0 || cols == 0 {
			rows, cols = attrs.Rows, attrs.Cols
		}
		out = append(out, decodedFrame{rows: rows, cols: cols, data: fr.NativeData.Data})
	}

	return out, nil
}

// framesFromImage converts a decoded (compressed) frame into samples. When
// the dataset declares one sample per pixel the image is read as 16-bit
// gray; otherwise as 8-bit RGB.
func framesFromImage(img image.Image, samplesPerPixel int) decodedFrame {
	b := img.Bounds()
	out := decodedFrame{rows: b.Dy(), cols: b.Dx(), data: make([][]int, 0, b.Dx()*b.Dy())}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)

			if samplesPerPixel == 3 {
				r, g, bl, _ := c.RGBA()
				out.data = append(out.data, []int{int(r >> 8), int(g >> 8), int(bl >> 8)})
				continue
			}

			switch px := c.(type) {
			case color.Gray:
				out.data = append(out.data, []int{int(px.Y)})
			case color.Gray16:
				out.data = append(out.data, []int{int(px.Y)})
			default:
				out.data = append(out.data, []int{int(color.Gray16Model.Convert(c).(color.Gray16).Y)})
			}
		}
	}

	return out
}

// stackFromFrames lays all frames out back to back. Every frame must share
// the first frame's geometry.
func stackFromFrames(frames []decodedFrame, attrs Attributes) (pixelnorm.FrameStack, error) {
	if len(frames) == 0 {
		return pixelnorm.FrameStack{}, fmt.Errorf("pixel data contains no frames")
	}

	first := frames[0]
	if len(first.data) == 0 {
		return pixelnorm.FrameStack{}, fmt.Errorf("frame 0 contains no pixels")
	}
	channels := len(first.data[0])

	stack := pixelnorm.FrameStack{
		Rows:     first.rows,
		Cols:     first.cols,
		Channels: channels,
		Frames:   len(frames),
		Samples:  make([]float64, 0, len(frames)*first.rows*first.cols*channels),
	}

	for k, fr := range frames {
		if fr.rows != first.rows || fr.cols != first.cols {
			return pixelnorm.FrameStack{}, fmt.Errorf("frame %d is %dx%d, frame 0 is %dx%d", k, fr.rows, fr.cols, first.rows, first.cols)
		}
		if len(fr.data) != fr.rows*fr.cols {
			return pixelnorm.FrameStack{}, fmt.Errorf("frame %d has %d pixels, expected %d", k, len(fr.data), fr.rows*fr.cols)
		}

		for j, px := range fr.data {
			if len(px) != channels {
				return pixelnorm.FrameStack{}, fmt.Errorf("frame %d pixel %d has %d samples, expected %d", k, j, len(px), channels)
			}
			for _, v := range px {
				stack.Samples = append(stack.Samples, float64(storedValue(v, attrs)))
			}
		}
	}

	return stack, stack.Validate()
}

// storedValue reinterprets an unsigned raw sample as two's complement when
// the dataset declares signed pixels. Already-negative values pass through.
func storedValue(v int, attrs Attributes) int {
	if attrs.PixelRepresentation != 1 || attrs.BitsStored <= 0 || attrs.BitsStored >= 32 || v < 0 {
		return v
	}

	v &= (1 << uint(attrs.BitsStored)) - 1
	if v >= 1<<uint(attrs.BitsStored-1) {
		v -= 1 << uint(attrs.BitsStored)
	}

	return v
}
