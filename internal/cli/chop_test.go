package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

func TestChopText(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)

	stdout, _, err := execute(t, "chop", path, "--retain", "50")
	require.NoError(t, err)
	assert.Contains(t, stdout, "output:  "+filepath.Join(dir, "scan-50.000.ptd"))
	assert.Contains(t, stdout, "dose:    400.000 MBq -> 200.000 MBq")
	assert.FileExists(t, filepath.Join(dir, "scan-50.000.ptd"))
}

func TestChopJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)

	stdout, _, err := execute(t, "chop", path, "--retain", "30", "--seed", "5", "--policy", "rb82",
		"--out", "low.ptd", "--format", "json")
	require.NoError(t, err)

	var result ptd.ChopResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, filepath.Join(dir, "low.ptd"), result.Output)
	assert.Equal(t, "rb82", result.Policy)
	assert.Equal(t, uint64(5), result.Seed)
	assert.Equal(t, int64(300), result.Counters.EventWords)
	assert.Equal(t, int64(3), result.Counters.TagWords)

	data, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	layout, err := ptd.Locate(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, result.Layout, layout)
}

func TestChopLogsToStderr(t *testing.T) {
	path := writeTestContainer(t, t.TempDir())

	stdout, stderr, err := execute(t, "chop", path, "--retain", "50", "--format", "json", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=INFO msg=\"done parsing words\"")
	assert.Contains(t, stderr, "level=DEBUG")
	assert.NotContains(t, stdout, "level=")
}

func TestFakeChop(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)

	stdout, _, err := execute(t, "fake-chop", path, "--retain", "25", "--format", "json")
	require.NoError(t, err)

	var result ptd.ChopResult
	decodeResponse(t, stdout, &result)
	assert.Zero(t, result.Counters.Tossed)
	assert.Equal(t, 1e8, result.Dose.Retained)

	in, err := os.ReadFile(path)
	require.NoError(t, err)
	out, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	events := 303 * ptd.WordSize
	assert.Equal(t, in[:events], out[:events])
}

func TestChopErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing retain", []string{"chop", path}, ErrCodeUsage},
		{"retain out of range", []string{"chop", path, "--retain", "120"}, ErrCodeUsage},
		{"retain not a number", []string{"chop", path, "--retain", "NaN"}, ErrCodeUsage},
		{"output is input", []string{"chop", path, "--retain", "50", "--out", "scan.ptd"}, "OUTPUT_IS_INPUT"},
		{"fake output is input", []string{"fake-chop", path, "--retain", "50", "--out", path}, "OUTPUT_IS_INPUT"},
		{"unknown policy", []string{"chop", path, "--retain", "50", "--policy", "fdg"}, "UNKNOWN_POLICY"},
		{"missing input", []string{"chop", filepath.Join(dir, "absent.ptd"), "--retain", "50"}, "MISSING_INPUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := execute(t, append(tc.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse(t, stdout, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
	assert.FileExists(t, path)
}

func TestChopNotAContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text, no trailer here"), 0o644))

	stdout, _, err := execute(t, "chop", path, "--retain", "50", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "FORMAT_MISMATCH", decodeResponse(t, stdout, nil).Error.Code)
}

func TestChopConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)
	cfgPath := filepath.Join(dir, "lmparser.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("retain: 25\noutput_dir: "+filepath.Join(dir, "out")+"\n"), 0o644))

	_, _, err := execute(t, "chop", path, "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "scan-25.000.ptd"))

	_, _, err = execute(t, "chop", path, "--config", cfgPath, "--retain", "10")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "scan-10.000.ptd"))
}

func TestChopInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)
	cfgPath := filepath.Join(dir, "lmparser.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("retain: 250\n"), 0o644))

	stdout, _, err := execute(t, "chop", path, "--config", cfgPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeConfig, decodeResponse(t, stdout, nil).Error.Code)
}
