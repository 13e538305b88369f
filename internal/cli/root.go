package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/davidkvcs/rh-scripts-1/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	config *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for lmparser.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lmparser",
		Short: "Inspect and chop PET list-mode containers",
		Long: `lmparser reads LARGE_PET_LM_RAWDATA list-mode containers: event words followed by an
embedded DICOM header. It can subsample the events to simulate a lower injected dose, recover
header fields from the end of a file and report per-second count statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to lmparser.yaml")

	cmd.AddCommand(NewChopCommand(opts))
	cmd.AddCommand(NewFakeChopCommand(opts))
	cmd.AddCommand(NewTailCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewHeaderCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))

	return cmd
}

// prepare loads the configuration file and builds the logger. Logs go to the command's error
// stream so JSON output stays parseable.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.logger == nil {
		level := slog.LevelInfo
		if o.Verbose {
			level = slog.LevelDebug
		}
		o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}

	if o.config != nil {
		return nil
	}
	if o.ConfigPath == "" {
		o.config = &config.Config{}
		return nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.logger.Debug("loaded config", "path", o.ConfigPath)
	o.config = cfg
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
