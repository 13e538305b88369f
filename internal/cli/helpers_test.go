package cli

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidkvcs/rh-scripts-1/dicom"
	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

const testFreeText = "%LM event and tag words format (bits):=32\r\n" +
	"tracer activity at time of injection (Bq):=4.000e+08\r\n" +
	"image duration (sec):=600\r\n"

// writeTestContainer writes a container of 300 events over 3 seconds to dir/scan.ptd.
func writeTestContainer(t *testing.T, dir string) string {
	t.Helper()
	ds := dicom.NewDataSet(map[dicom.DataElementTag]interface{}{
		dicom.MediaStorageSOPClassUIDTag: []string{"1.3.12.2.1107.5.9.1"},
		dicom.TransferSyntaxUIDTag:       []string{dicom.ExplicitVRLittleEndianUID},
		dicom.PatientNameTag:             []string{"Doe^John"},
		dicom.PatientIDTag:               []string{"0123456789"},
		dicom.ModalityTag:                []string{"PT"},
		ptd.PrivateTextTag:               []byte(testFreeText),
	})
	blob, err := dicom.ConstructBytes(ds)
	require.NoError(t, err)

	var buf bytes.Buffer
	var word [4]byte
	for i := 0; i < 300; i++ {
		if i%100 == 0 {
			binary.LittleEndian.PutUint32(word[:], 0x80000000|uint32(i*10))
			buf.Write(word[:])
		}
		w := uint32(i)
		if i%2 == 0 {
			w |= 0x40000000
		}
		binary.LittleEndian.PutUint32(word[:], w)
		buf.Write(word[:])
	}
	require.NoError(t, ptd.WriteTrailer(&buf, blob))

	path := filepath.Join(dir, "scan.ptd")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, stdout string, data interface{}) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout: %s", stdout)
	if data != nil && resp.Data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}
