package ptd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidkvcs/rh-scripts-1/dicom"
)

const (
	testFreeText = "%LM event and tag words format (bits):=32\r\n" +
		"tracer activity at time of injection (Bq):=4.000e+08\r\n" +
		"image duration (sec):=600\r\n"
	testXML = "<?xml version=\"1.0\"?><Dose><InjectedDose>0400.0000</InjectedDose></Dose>"

	xmlPrivateTag dicom.DataElementTag = 0x00291020
)

// buildHeader returns a DICOM header holding the free text in (0029,1010) and the XML document
// in (0029,1020).
func buildHeader(t *testing.T, freeText, xml string) []byte {
	t.Helper()
	elements := map[dicom.DataElementTag]interface{}{
		dicom.MediaStorageSOPClassUIDTag: []string{"1.3.12.2.1107.5.9.1"},
		dicom.TransferSyntaxUIDTag:       []string{dicom.ExplicitVRLittleEndianUID},
		dicom.PatientNameTag:             []string{"Doe^John"},
		dicom.ModalityTag:                []string{"PT"},
		0x00290010:                       []string{"SIEMENS CSA HEADER"},
	}
	if freeText != "" {
		elements[PrivateTextTag] = []byte(freeText)
	}
	if xml != "" {
		elements[xmlPrivateTag] = []byte(xml)
	}
	ds := dicom.NewDataSet(elements)
	for _, elem := range ds.Elements {
		if elem.Tag.IsPrivate() && elem.VR == dicom.UNVR {
			elem.VR = dicom.OBVR
		}
	}

	blob, err := dicom.ConstructBytes(ds)
	require.NoError(t, err)
	return blob
}

func encodeWords(words []Word) []byte {
	buf := make([]byte, len(words)*WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*WordSize:], uint32(w))
	}
	return buf
}

func decodeWords(t *testing.T, b []byte) []Word {
	t.Helper()
	require.Zero(t, len(b)%WordSize, "stream of %d bytes is not whole words", len(b))
	words := make([]Word, len(b)/WordSize)
	for i := range words {
		words[i] = Word(binary.LittleEndian.Uint32(b[i*WordSize:]))
	}
	return words
}

func buildContainer(t *testing.T, events []byte, blob []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(events)
	require.NoError(t, WriteTrailer(&buf, blob))
	return buf.Bytes()
}

func writeContainer(t *testing.T, dir, name string, events []byte, blob []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buildContainer(t, events, blob), 0o644))
	return path
}

// syntheticStream alternates prompts and delays, with a time tag every 100 events.
func syntheticStream(events int) []Word {
	words := make([]Word, 0, events+events/100+1)
	for i := 0; i < events; i++ {
		if i%100 == 0 {
			words = append(words, Word(0x80000000|uint32(i*10)))
		}
		if i%2 == 0 {
			words = append(words, Word(0x40000000|uint32(i&0xFFFF)))
		} else {
			words = append(words, Word(uint32(i&0xFFFF)))
		}
	}
	return words
}

// scriptedSource replays fixed draws.
type scriptedSource struct {
	draws []float64
	next  int
}

func (s *scriptedSource) Float64() float64 {
	d := s.draws[s.next%len(s.draws)]
	s.next++
	return d
}

// textCodec treats the whole blob as free text.
type textCodec struct{}

func (textCodec) Decode(blob []byte) (Header, error) {
	return &textHeader{text: append([]byte{}, blob...)}, nil
}

type textHeader struct {
	text []byte
}

func (h *textHeader) PrivateText() []byte        { return h.text }
func (h *textHeader) SetPrivateText(text []byte) { h.text = text }
func (h *textHeader) Encode() ([]byte, error)    { return h.text, nil }
