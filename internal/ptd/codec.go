package ptd

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/davidkvcs/rh-scripts-1/dicom"
)

// PrivateTextTag holds the free-text acquisition parameters of the embedded DICOM header.
const PrivateTextTag dicom.DataElementTag = 0x00291010

const wordFormatLabel = "%LM event and tag words format"

// DICOMCodec decodes metadata blobs as DICOM Part 10 objects.
type DICOMCodec struct{}

// Decode parses the blob. Group lengths are dropped since they go stale once the free text
// changes length.
func (DICOMCodec) Decode(blob []byte) (Header, error) {
	ds, err := dicom.ParseBytes(blob, dicom.DropGroupLengths)
	if err != nil {
		return nil, fmt.Errorf("parsing DICOM header: %w", err)
	}
	return &DICOMHeader{ds}, nil
}

// DICOMHeader is a Header backed by a parsed data set.
type DICOMHeader struct {
	DataSet *dicom.DataSet
}

func (h *DICOMHeader) PrivateText() []byte {
	elem, ok := h.DataSet.Elements[PrivateTextTag]
	if !ok {
		return nil
	}
	switch v := elem.ValueField.(type) {
	case []byte:
		return v
	case []string:
		return []byte(strings.Join(v, "\\"))
	default:
		return nil
	}
}

func (h *DICOMHeader) SetPrivateText(text []byte) {
	elem, ok := h.DataSet.Elements[PrivateTextTag]
	if !ok {
		elem = &dicom.DataElement{Tag: PrivateTextTag, VR: dicom.OBVR}
		h.DataSet.Elements[PrivateTextTag] = elem
	}
	if _, isText := elem.ValueField.([]string); isText {
		elem.ValueField = []string{string(text)}
		return
	}
	elem.ValueField = text
}

func (h *DICOMHeader) Encode() ([]byte, error) {
	return dicom.ConstructBytes(h.DataSet)
}

// WordFormat reads the word size in bits from the free text. ok is false when no format line
// is present.
func WordFormat(text []byte) (bits int, ok bool, err error) {
	for _, line := range bytes.Split(text, []byte("\n")) {
		if !bytes.HasPrefix(line, []byte(wordFormatLabel)) {
			continue
		}
		_, value, found := strings.Cut(string(line), textDelimiter)
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		bits, err := strconv.Atoi(value)
		if err != nil {
			return 0, false, newError(CodeFormatMismatch, "parse word format", "32", value)
		}
		return bits, true, nil
	}
	return 0, false, nil
}
