package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tailProbe = "\x00\x00\x00\x00\x01DICM\x00other:=value\x00<InjectedDose>1234.5678</InjectedDose>"

func writeProbe(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probe.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTailJSONGolden(t *testing.T) {
	path := writeProbe(t, tailProbe)

	stdout, _, err := execute(t, "tail", path, "--format", "json", "--buffer-size", "1")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tail_json", []byte(stdout))
}

func TestTailText(t *testing.T) {
	path := writeProbe(t, tailProbe)

	stdout, _, err := execute(t, "tail", path)
	require.NoError(t, err)
	assert.Equal(t, "InjectedDose: 1234.5678\nother: value\n", stdout)
}

func TestTailSingleValue(t *testing.T) {
	path := writeProbe(t, "\x00duration:=600\x00DICM\x00k:=v")

	stdout, _, err := execute(t, "tail", path, "--stop", "duration", "--strict")
	require.NoError(t, err)
	assert.Equal(t, "600\n", stdout)

	stdout, _, err = execute(t, "tail", path, "--stop", "duration", "--strict", "--full")
	require.NoError(t, err)
	assert.Equal(t, "duration: 600\nk: v\n", stdout)
}

func TestTailConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeProbe(t, "\x00end=>1\x00end\x00b:=2")
	cfgPath := filepath.Join(dir, "lmparser.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tail:\n  stop: end\n  delimiter: \"=>\"\n  strict: true\n"), 0o644))

	stdout, _, err := execute(t, "tail", path, "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var record struct {
		Fields map[string]string `json:"fields"`
		Lines  []string          `json:"lines"`
	}
	decodeResponse(t, stdout, &record)
	assert.Equal(t, []string{"b:=2", "end=>1"}, record.Lines)
	assert.Equal(t, map[string]string{"b": "2"}, record.Fields)
}

func TestTailMissingFile(t *testing.T) {
	stdout, _, err := execute(t, "tail", filepath.Join(t.TempDir(), "absent"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "MISSING_INPUT", decodeResponse(t, stdout, nil).Error.Code)
}
