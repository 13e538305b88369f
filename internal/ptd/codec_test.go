package ptd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkvcs/rh-scripts-1/dicom"
)

func TestDICOMCodec(t *testing.T) {
	blob := buildHeader(t, testFreeText, testXML)

	header, err := DICOMCodec{}.Decode(blob)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(header.PrivateText()), testFreeText))

	header.SetPrivateText([]byte("tracer activity (Bq):=1.000e+08\r\n"))
	out, err := header.Encode()
	require.NoError(t, err)

	ds, err := dicom.ParseBytes(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("tracer activity (Bq):=1.000e+08\r\n"), ds.Elements[PrivateTextTag].ValueField)
	assert.Equal(t, []string{"Doe^John"}, ds.Elements[dicom.PatientNameTag].ValueField)
}

func TestDICOMCodecWithoutPrivateText(t *testing.T) {
	header, err := DICOMCodec{}.Decode(buildHeader(t, "", ""))
	require.NoError(t, err)
	assert.Nil(t, header.PrivateText())

	header.SetPrivateText([]byte("k:=v\n"))
	assert.Equal(t, []byte("k:=v\n"), header.PrivateText())
}

func TestDICOMCodecRejectsNonDICOM(t *testing.T) {
	_, err := DICOMCodec{}.Decode([]byte("not a dicom object"))
	require.Error(t, err)
}

func TestWordFormat(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		bits   int
		wantOK bool
	}{
		{"32 bit", testFreeText, 32, true},
		{"64 bit", "%LM event and tag words format (bits):=64\n", 64, true},
		{"spaces around value", "%LM event and tag words format (bits):= 32 \r\n", 32, true},
		{"absent", "image duration (sec):=600\n", 0, false},
		{"no delimiter", "%LM event and tag words format (bits)\n", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bits, ok, err := WordFormat([]byte(tc.text))
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.bits, bits)
		})
	}

	_, _, err := WordFormat([]byte("%LM event and tag words format (bits):=wide\n"))
	require.ErrorIs(t, err, ErrFormatMismatch)
}
