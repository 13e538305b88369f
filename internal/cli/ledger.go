package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidkvcs/rh-scripts-1/internal/ledger"
	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Database string
	Limit    int
	Verify   bool
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recorded chop runs",
		Long: `List the chop and fake-chop runs recorded with --ledger, most recent first.

With --verify every run's digest is recomputed and a mismatch fails the command.

Examples:
  lmparser ledger --db runs.db
  lmparser ledger --db runs.db --limit 5 --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite ledger (default: ledger from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "list at most this many runs")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check run digests")

	return cmd
}

// ledgerOutput is the output of ledger.
type ledgerOutput struct {
	Runs []ledger.Run `json:"runs"`
}

func (l ledgerOutput) String() string {
	if len(l.Runs) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for i, r := range l.Runs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %-9s %7.3f%%  %s -> %s  (%d of %d events)",
			r.ID, r.Kind, r.Retain, r.Input, r.Output, r.Counters.Kept, r.Counters.EventWords)
	}
	return b.String()
}

func runLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.prepare(cmd); err != nil {
		return out.Fail("failed to load config", ErrCodeConfig, err)
	}
	if opts.Database == "" {
		opts.Database = opts.config.Ledger
	}
	if opts.Database == "" {
		return out.Fail("invalid arguments", ErrCodeUsage, NewExitError(ExitCommandError, "--db is required"))
	}
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return out.Fail("failed to open ledger", ErrCodeLedger,
			&ptd.Error{Code: ptd.CodeMissingInput, Op: "open ledger", Expected: "an existing ledger", Found: opts.Database, Err: err})
	}

	st, err := ledger.Open(opts.Database)
	if err != nil {
		return out.Fail("failed to open ledger", ErrCodeLedger, WrapExitError(ExitCommandError, "open", err))
	}
	defer st.Close()

	runs, err := st.List(commandContext(cmd), opts.Limit)
	if err != nil {
		return out.Fail("failed to list runs", ErrCodeLedger, err)
	}

	if opts.Verify {
		var bad []error
		for _, r := range runs {
			if err := r.Verify(); err != nil {
				bad = append(bad, err)
			}
		}
		if len(bad) > 0 {
			return out.Fail("ledger verification failed", ErrCodeLedger, errors.Join(bad...))
		}
		opts.logger.Info("verified runs", "count", len(runs))
	}

	if runs == nil {
		runs = []ledger.Run{}
	}
	return out.Success(ledgerOutput{Runs: runs})
}

// recordRun appends a completed chop to the ledger at path.
func recordRun(ctx context.Context, path, kind string, result *ptd.ChopResult) (*ledger.Run, error) {
	st, err := ledger.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	run := ledger.NewRun(kind, result)
	if err := st.Record(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
