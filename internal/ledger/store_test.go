package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testRun() Run {
	return NewRun(KindChop, &ptd.ChopResult{
		Input:    "/data/scan.ptd",
		Output:   "/data/scan-50.000.ptd",
		Retain:   50,
		Seed:     ptd.DefaultSeed,
		Policy:   "default",
		Counters: ptd.Counters{TagWords: 10, EventWords: 100, Prompts: 60, Delays: 40, Kept: 51, Tossed: 49},
		Dose:     ptd.DoseReport{Original: 4e8, Retained: 2e8},
	})
}

func TestOpenCreatesDatabase(t *testing.T) {
	s, path := openTestStore(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, s.Close())
	}
}

func TestRecordAndGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	run := testRun()
	require.NoError(t, s.Record(ctx, &run))

	id, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Len(t, run.Digest, 64)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Input, got.Input)
	assert.Equal(t, run.Counters, got.Counters)
	assert.Equal(t, run.DoseAfter, got.DoseAfter)
	assert.Equal(t, uint64(ptd.DefaultSeed), got.Seed)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	require.NoError(t, got.Verify())
}

func TestGetNotFound(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordDuplicateID(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	run := testRun()
	require.NoError(t, s.Record(ctx, &run))
	again := testRun()
	again.ID = run.ID
	require.Error(t, s.Record(ctx, &again))
}

func TestList(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, retain := range []float64{10, 20, 30} {
		run := testRun()
		run.Retain = retain
		run.CreatedAt = base.Add(time.Duration(i) * 100 * time.Millisecond)
		require.NoError(t, s.Record(ctx, &run))
	}

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []float64{30, 20, 10}, []float64{runs[0].Retain, runs[1].Retain, runs[2].Retain})
	for _, r := range runs {
		require.NoError(t, r.Verify())
	}

	runs, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDigest(t *testing.T) {
	run := testRun()
	run.ID = "0191e3c4-0000-7000-8000-000000000000"
	run.CreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := run.ComputeDigest()
	require.NoError(t, err)
	run.Digest = first
	second, err := run.ComputeDigest()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.NoError(t, run.Verify())

	run.Counters.Kept++
	require.Error(t, run.Verify())
}

func TestNewRun(t *testing.T) {
	run := NewRun(KindFakeChop, &ptd.ChopResult{Input: "a.ptd", Output: "b.ptd", Retain: 25, Policy: "default"})
	assert.Equal(t, KindFakeChop, run.Kind)
	assert.Equal(t, "a.ptd", run.Input)
	assert.Empty(t, run.ID)
}
