package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidkvcs/rh-scripts-1/internal/ledger"
	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// ChopOptions holds flags for the chop and fake-chop commands.
type ChopOptions struct {
	*RootOptions
	Retain           float64
	Seed             uint64
	Policy           string
	Output           string
	OutputDir        string
	Ledger           string
	AllowWidthChange bool
	BufferSize       int
}

// NewChopCommand creates the chop command.
func NewChopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chop <file.ptd>",
		Short: "Subsample the events of a list-mode container",
		Long: `Write a new container keeping every tag word and a random subset of the event words.
The injected dose in the embedded header is scaled by the retained fraction.

With --policy rb82 delays are kept with the square of the retained fraction.

Examples:
  lmparser chop scan.ptd --retain 50
  lmparser chop scan.ptd --retain 10 --seed 3 --policy rb82 --out-dir chopped
  lmparser chop scan.ptd --retain 25 --ledger runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChop(opts, false, args[0], cmd)
		},
	}

	addChopFlags(cmd, opts)
	cmd.Flags().Uint64Var(&opts.Seed, "seed", ptd.DefaultSeed, "random seed")
	cmd.Flags().StringVar(&opts.Policy, "policy", ptd.PolicyUniform.String(), "retention policy (default|rb82)")

	return cmd
}

// NewFakeChopCommand creates the fake-chop command.
func NewFakeChopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fake-chop <file.ptd>",
		Short: "Rewrite the dose of a container without dropping events",
		Long: `Write a new container holding every word of the input, with the injected dose and the
trailer rewritten as if the events had been chopped to --retain percent.

Example:
  lmparser fake-chop scan.ptd --retain 50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChop(opts, true, args[0], cmd)
		},
	}

	addChopFlags(cmd, opts)
	return cmd
}

func addChopFlags(cmd *cobra.Command, opts *ChopOptions) {
	cmd.Flags().Float64Var(&opts.Retain, "retain", 0, "percentage of events to keep, 0 to 100 (required)")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output file name (default {name}-{retain}.ptd)")
	cmd.Flags().StringVar(&opts.OutputDir, "out-dir", "", "output folder (default: the input's folder)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite ledger")
	cmd.Flags().BoolVar(&opts.AllowWidthChange, "allow-width-change", false,
		"render the free-text dose as %.3e even when its width changes")
	cmd.Flags().IntVar(&opts.BufferSize, "buffer-size", ptd.DefaultBufferSize, "word reader buffer size in bytes")
}

// applyConfig fills flags left unset from the configuration file.
func (o *ChopOptions) applyConfig(cmd *cobra.Command) error {
	cfg := o.config
	flags := cmd.Flags()

	if !flags.Changed("retain") {
		if cfg.Retain == nil {
			return NewExitError(ExitCommandError, "--retain is required")
		}
		o.Retain = *cfg.Retain
	}
	if !flags.Changed("seed") && cfg.Seed != nil {
		o.Seed = *cfg.Seed
	}
	if !flags.Changed("policy") && cfg.Policy != "" {
		o.Policy = cfg.Policy
	}
	if !flags.Changed("out-dir") && cfg.OutputDir != "" {
		o.OutputDir = cfg.OutputDir
	}
	if !flags.Changed("ledger") && cfg.Ledger != "" {
		o.Ledger = cfg.Ledger
	}
	if !flags.Changed("allow-width-change") && cfg.AllowWidthChange {
		o.AllowWidthChange = true
	}
	if !flags.Changed("buffer-size") && cfg.BufferSize > 0 {
		o.BufferSize = cfg.BufferSize
	}

	if !(o.Retain >= 0 && o.Retain <= 100) {
		return NewExitError(ExitCommandError, fmt.Sprintf("--retain %v outside [0,100]", o.Retain))
	}
	return nil
}

// chopSummary is the output of chop and fake-chop.
type chopSummary struct {
	*ptd.ChopResult
	RunID string `json:"run_id,omitempty"`
}

func (s chopSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "output:  %s\n", s.Output)
	fmt.Fprintf(&b, "kept:    %d of %d events (%.2f%%)\n", s.Counters.Kept, s.Counters.EventWords, s.Counters.KeptRatio())
	fmt.Fprintf(&b, "words:   %d prompts, %d delays, %d tags\n", s.Counters.Prompts, s.Counters.Delays, s.Counters.TagWords)
	fmt.Fprintf(&b, "dose:    %.3f MBq -> %.3f MBq", s.Dose.Original/1e6, s.Dose.Retained/1e6)
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nrun:     %s", s.RunID)
	}
	return b.String()
}

func runChop(opts *ChopOptions, fake bool, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.prepare(cmd); err != nil {
		return out.Fail("failed to load config", ErrCodeConfig, err)
	}
	if err := opts.applyConfig(cmd); err != nil {
		return out.Fail("invalid arguments", ErrCodeUsage, err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := openSession(path, opts.RootOptions, opts.OutputDir, opts.BufferSize)
	if err != nil {
		return out.Fail("failed to open container", ErrCodeFailure, err)
	}
	defer session.Close()

	chopOpts := ptd.ChopOptions{
		Retain:  opts.Retain,
		Seed:    opts.Seed,
		Policy:  opts.Policy,
		Output:  opts.Output,
		Rewrite: ptd.RewriteOptions{AllowWidthChange: opts.AllowWidthChange},
	}

	kind := ledger.KindChop
	var result *ptd.ChopResult
	if fake {
		kind = ledger.KindFakeChop
		result, err = session.FakeChop(ctx, chopOpts)
	} else {
		result, err = session.Chop(ctx, chopOpts)
	}
	if err != nil {
		return out.Fail(kind+" failed", ErrCodeFailure, err)
	}

	summary := chopSummary{ChopResult: result}
	if opts.Ledger != "" {
		run, err := recordRun(ctx, opts.Ledger, kind, result)
		if err != nil {
			return out.Fail("failed to record run", ErrCodeLedger, err)
		}
		summary.RunID = run.ID
		opts.logger.Info("recorded run", "id", run.ID, "ledger", opts.Ledger)
	}
	return out.Success(summary)
}

// openSession opens a container with the command's logger. Empty outDir and non-positive
// bufSize keep the session defaults.
func openSession(path string, opts *RootOptions, outDir string, bufSize int) (*ptd.Session, error) {
	sessionOpts := []ptd.Option{ptd.WithLogger(opts.logger)}
	if outDir != "" {
		sessionOpts = append(sessionOpts, ptd.WithOutputDir(outDir))
	}
	if bufSize > 0 {
		sessionOpts = append(sessionOpts, ptd.WithBufferSize(bufSize))
	}
	return ptd.Open(path, sessionOpts...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
