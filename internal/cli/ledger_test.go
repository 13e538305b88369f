package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkvcs/rh-scripts-1/internal/ledger"
)

func TestChopRecordsLedger(t *testing.T) {
	dir := t.TempDir()
	path := writeTestContainer(t, dir)
	db := filepath.Join(dir, "runs.db")

	stdout, _, err := execute(t, "chop", path, "--retain", "50", "--ledger", db, "--format", "json")
	require.NoError(t, err)
	var summary chopSummary
	decodeResponse(t, stdout, &summary)
	require.NotEmpty(t, summary.RunID)

	_, _, err = execute(t, "fake-chop", path, "--retain", "25", "--ledger", db)
	require.NoError(t, err)

	stdout, _, err = execute(t, "ledger", "--db", db, "--verify", "--format", "json")
	require.NoError(t, err)
	var listed ledgerOutput
	decodeResponse(t, stdout, &listed)
	require.Len(t, listed.Runs, 2)
	assert.Equal(t, ledger.KindFakeChop, listed.Runs[0].Kind)
	assert.Equal(t, summary.RunID, listed.Runs[1].ID)
	assert.Equal(t, ledger.KindChop, listed.Runs[1].Kind)
	assert.Equal(t, 4e8, listed.Runs[1].DoseBefore)
	assert.Equal(t, 2e8, listed.Runs[1].DoseAfter)

	stdout, _, err = execute(t, "ledger", "--db", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fake-chop")
	assert.NotContains(t, stdout, summary.RunID)
}

func TestLedgerEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	st, err := ledger.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "ledger", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "no runs recorded\n", stdout)
}

func TestLedgerErrors(t *testing.T) {
	_, _, err := execute(t, "ledger")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	stdout, _, err := execute(t, "ledger", "--db", filepath.Join(t.TempDir(), "absent.db"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "MISSING_INPUT", decodeResponse(t, stdout, nil).Error.Code)
}
