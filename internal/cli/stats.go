package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	BufferSize int
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <file.ptd>",
		Short: "Count prompts and delays per second of acquisition",
		Long: `Stream the event words of a container and report the number of prompts and delays
following each whole-second time tag.

Example:
  lmparser stats scan.ptd --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.BufferSize, "buffer-size", ptd.DefaultBufferSize, "word reader buffer size in bytes")
	return cmd
}

// statsOutput is the output of stats.
type statsOutput struct {
	*ptd.Statistics
}

func (s statsOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%8s %10s %10s\n", "t (s)", "prompts", "delays")
	for _, bin := range s.Bins {
		fmt.Fprintf(&b, "%8g %10d %10d\n", bin.Second, bin.Prompts, bin.Delays)
	}
	fmt.Fprintf(&b, "%8s %10d %10d", "total", s.Counters.Prompts, s.Counters.Delays)
	return b.String()
}

func runStats(opts *StatsOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.prepare(cmd); err != nil {
		return out.Fail("failed to load config", ErrCodeConfig, err)
	}
	if !cmd.Flags().Changed("buffer-size") && opts.config.BufferSize > 0 {
		opts.BufferSize = opts.config.BufferSize
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := openSession(path, opts.RootOptions, "", opts.BufferSize)
	if err != nil {
		return out.Fail("failed to open container", ErrCodeFailure, err)
	}
	defer session.Close()

	stats, err := session.Statistics(ctx)
	if err != nil {
		return out.Fail("statistics failed", ErrCodeFailure, err)
	}
	return out.Success(statsOutput{stats})
}
