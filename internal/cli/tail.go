package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// TailOptions holds flags for the tail command.
type TailOptions struct {
	*RootOptions
	Stop       string
	Delimiter  string
	Strict     bool
	Full       bool
	BufferSize int
}

// NewTailCommand creates the tail command.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tail <file>",
		Short: "Recover header fields from the end of a file",
		Long: `Read a file backward, collecting printable lines until one contains the stop token,
and print the key/value and XML-style fields found in them. Works on any file, not only
list-mode containers.

When the stop token itself is one of the keys, only its value is printed unless --full is set.

Examples:
  lmparser tail scan.ptd
  lmparser tail scan.ptd --stop "image duration (sec)" --strict
  lmparser tail scan.ptd --full --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(opts, args[0], cmd)
		},
	}

	defaults := ptd.DefaultTailOptions()
	cmd.Flags().StringVar(&opts.Stop, "stop", defaults.StopToken, "stop once a line contains this token")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", defaults.Delimiter, "with --strict, the stop line must also contain this")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "the stop line must also contain --delimiter")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "print every field even when the stop token is a key")
	cmd.Flags().IntVar(&opts.BufferSize, "buffer-size", defaults.BufferSize, "backward read size in bytes")

	return cmd
}

func (o *TailOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.config.Tail
	flags := cmd.Flags()

	if !flags.Changed("stop") && cfg.Stop != "" {
		o.Stop = cfg.Stop
	}
	if !flags.Changed("delimiter") && cfg.Delimiter != "" {
		o.Delimiter = cfg.Delimiter
	}
	if !flags.Changed("strict") && cfg.Strict {
		o.Strict = true
	}
	if !flags.Changed("full") && cfg.Full {
		o.Full = true
	}
	if !flags.Changed("buffer-size") && o.config.BufferSize > 0 {
		o.BufferSize = o.config.BufferSize
	}
}

// tailOutput is the output of tail.
type tailOutput struct {
	*ptd.TailRecord
}

func (t tailOutput) String() string {
	if t.Single {
		return t.Value
	}
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %s", k, t.Fields[k])
	}
	return strings.Join(lines, "\n")
}

func runTail(opts *TailOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.prepare(cmd); err != nil {
		return out.Fail("failed to load config", ErrCodeConfig, err)
	}
	opts.applyConfig(cmd)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = &ptd.Error{Code: ptd.CodeMissingInput, Op: "open", Expected: "an existing file", Found: path, Err: err}
	}
	if err != nil {
		return out.Fail("failed to open file", ErrCodeFailure, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return out.Fail("failed to read file size", ErrCodeFailure, err)
	}

	record, err := ptd.ScanTail(f, info.Size(), ptd.TailOptions{
		StopToken:  opts.Stop,
		Strict:     opts.Strict,
		Delimiter:  opts.Delimiter,
		ReturnFull: opts.Full,
		BufferSize: opts.BufferSize,
	})
	if err != nil {
		return out.Fail("tail scan failed", ErrCodeFailure, err)
	}
	opts.logger.Debug("scanned tail", "lines", len(record.Lines), "fields", len(record.Fields), "bytes_read", record.BytesRead)
	return out.Success(tailOutput{record})
}
