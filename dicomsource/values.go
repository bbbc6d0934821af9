package dicomsource

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/element"
)

// elementFloats converts every value of a numeric or decimal-string element
// into a float64. Values that cannot be interpreted are skipped and reported
// in the returned error, which callers are free to log and ignore.
func elementFloats(elem *element.Element) ([]float64, error) {
	out := make([]float64, 0, len(elem.Value))
	var firstErr error

	for _, raw := range elem.Value {
		switch v := raw.(type) {
		case uint16:
			out = append(out, float64(v))
		case int16:
			out = append(out, float64(v))
		case uint32:
			out = append(out, float64(v))
		case int32:
			out = append(out, float64(v))
		case float32:
			out = append(out, float64(v))
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		case string:
			for _, part := range strings.Split(v, `\`) {
				part = strings.TrimSpace(strings.Trim(part, "\x00"))
				if part == "" {
					continue
				}
				f, err := strconv.ParseFloat(part, 64)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				out = append(out, f)
			}
		case []byte:
			// OW data: little endian 16-bit words
			for i := 0; i+1 < len(v); i += 2 {
				out = append(out, float64(binary.LittleEndian.Uint16(v[i:i+2])))
			}
		default:
			if firstErr == nil {
				firstErr = fmt.Errorf("tag %v: unsupported value type %T", elem.Tag, raw)
			}
		}
	}

	return out, firstErr
}

// elementFloat returns the first numeric value of elem.
func elementFloat(elem *element.Element) (float64, bool, error) {
	vals, err := elementFloats(elem)
	if len(vals) == 0 {
		return 0, false, err
	}
	return vals[0], true, err
}

// elementString joins all string-ish values of elem with a backslash, which
// is how DICOM itself writes multi-valued attributes.
func elementString(elem *element.Element) string {
	parts := make([]string, 0, len(elem.Value))
	for _, raw := range elem.Value {
		switch v := raw.(type) {
		case string:
			parts = append(parts, strings.TrimSpace(strings.Trim(v, "\x00")))
		case []byte:
			parts = append(parts, fmt.Sprintf("<%d bytes>", len(v)))
		case *element.Element:
			parts = append(parts, "<item>")
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, `\`)
}

// sequenceItems returns the child elements of each item of a sequence
// element.
func sequenceItems(elem *element.Element) [][]*element.Element {
	var items [][]*element.Element

	for _, raw := range elem.Value {
		item, ok := raw.(*element.Element)
		if !ok {
			continue
		}

		children := make([]*element.Element, 0, len(item.Value))
		for _, child := range item.Value {
			if c, ok := child.(*element.Element); ok {
				children = append(children, c)
			}
		}
		items = append(items, children)
	}

	return items
}
