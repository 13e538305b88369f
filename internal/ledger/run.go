package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// Run kinds.
const (
	KindChop     = "chop"
	KindFakeChop = "fake-chop"
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one ledger row. Digest is the sha256 of the RFC 8785 canonical JSON of every other
// field.
type Run struct {
	ID         string       `json:"id"`
	Kind       string       `json:"kind"`
	Input      string       `json:"input"`
	Output     string       `json:"output"`
	Retain     float64      `json:"retain"`
	Seed       uint64       `json:"seed"`
	Policy     string       `json:"policy"`
	Counters   ptd.Counters `json:"counters"`
	DoseBefore float64      `json:"dose_before_bq"`
	DoseAfter  float64      `json:"dose_after_bq"`
	CreatedAt  time.Time    `json:"created_at"`
	Digest     string       `json:"digest,omitempty"`
}

// NewRun describes a completed chop.
func NewRun(kind string, result *ptd.ChopResult) Run {
	return Run{
		Kind:       kind,
		Input:      result.Input,
		Output:     result.Output,
		Retain:     result.Retain,
		Seed:       result.Seed,
		Policy:     result.Policy,
		Counters:   result.Counters,
		DoseBefore: result.Dose.Original,
		DoseAfter:  result.Dose.Retained,
	}
}

// ComputeDigest canonicalizes the run without its digest and hashes it.
func (r Run) ComputeDigest() (string, error) {
	r.Digest = ""
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize run: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the digest and compares it with the stored one.
func (r Run) Verify() error {
	digest, err := r.ComputeDigest()
	if err != nil {
		return err
	}
	if digest != r.Digest {
		return fmt.Errorf("run %s: digest %s does not match contents (%s)", r.ID, r.Digest, digest)
	}
	return nil
}

// Record assigns the run an id, a timestamp and a digest when missing, and inserts it.
func (s *Store) Record(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.Must(uuid.NewV7()).String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Round(0)

	digest, err := r.ComputeDigest()
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	r.Digest = digest

	counters, err := json.Marshal(r.Counters)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, kind, input, output, retain, seed, policy, counters, dose_before, dose_after, created_at, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Kind,
		r.Input,
		r.Output,
		r.Retain,
		int64(r.Seed),
		r.Policy,
		string(counters),
		r.DoseBefore,
		r.DoseAfter,
		r.CreatedAt.Format(timeLayout),
		r.Digest,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT id, kind, input, output, retain, seed, policy, counters, dose_before, dose_after, created_at, digest
	FROM runs
`

// List returns the most recent runs first. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + " ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r         Run
		seed      int64
		counters  string
		createdAt string
	)
	err := row.Scan(&r.ID, &r.Kind, &r.Input, &r.Output, &r.Retain, &seed, &r.Policy,
		&counters, &r.DoseBefore, &r.DoseAfter, &createdAt, &r.Digest)
	if err != nil {
		return Run{}, err
	}
	r.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(counters), &r.Counters); err != nil {
		return Run{}, fmt.Errorf("decode counters of run %s: %w", r.ID, err)
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Run{}, fmt.Errorf("decode created_at of run %s: %w", r.ID, err)
	}
	return r, nil
}
