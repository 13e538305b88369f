package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidkvcs/rh-scripts-1/dicom"
	"github.com/davidkvcs/rh-scripts-1/internal/ptd"
)

// summaryAttributes are the header attributes printed by the header command.
var summaryAttributes = []struct {
	name string
	tag  dicom.DataElementTag
}{
	{"PatientName", dicom.PatientNameTag},
	{"PatientID", dicom.PatientIDTag},
	{"StudyDate", dicom.StudyDateTag},
	{"StudyDescription", dicom.StudyDescriptionTag},
	{"SeriesDescription", dicom.SeriesDescriptionTag},
	{"Modality", dicom.ModalityTag},
	{"Manufacturer", dicom.ManufacturerTag},
	{"ManufacturerModel", dicom.ManufacturerModelTag},
}

// HeaderOptions holds flags for the header command.
type HeaderOptions struct {
	*RootOptions
	Output string
}

// NewHeaderCommand creates the header command.
func NewHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HeaderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "header <file.ptd>",
		Short: "Summarize or export the embedded DICOM header",
		Long: `Print a summary of the DICOM header embedded in a list-mode container, or with --out
save it as a standalone DICOM file.

Examples:
  lmparser header scan.ptd
  lmparser header scan.ptd --out scan-header.dcm`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeader(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "save the header to this DICOM file")
	return cmd
}

// headerSummary is the output of header without --out.
type headerSummary struct {
	Attributes map[string]string `json:"attributes"`
	WordBits   int               `json:"word_bits"`
	Layout     ptd.Layout        `json:"layout"`
}

func (h headerSummary) String() string {
	var b strings.Builder
	for _, attr := range summaryAttributes {
		if v, ok := h.Attributes[attr.name]; ok {
			fmt.Fprintf(&b, "%-18s %s\n", attr.name+":", v)
		}
	}
	fmt.Fprintf(&b, "%-18s %d\n", "WordBits:", h.WordBits)
	fmt.Fprintf(&b, "%-18s %d bytes\n", "Events:", h.Layout.EventLength)
	fmt.Fprintf(&b, "%-18s %d bytes", "Header:", h.Layout.MetadataLength)
	return b.String()
}

// headerExport is the output of header --out.
type headerExport struct {
	Path string `json:"path"`
}

func (h headerExport) String() string {
	return "saved DICOM header to " + h.Path
}

func runHeader(opts *HeaderOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.prepare(cmd); err != nil {
		return out.Fail("failed to load config", ErrCodeConfig, err)
	}

	outDir := ""
	if opts.Output != "" && !filepath.IsAbs(opts.Output) {
		outDir = "."
	}
	session, err := openSession(path, opts.RootOptions, outDir, 0)
	if err != nil {
		return out.Fail("failed to open container", ErrCodeFailure, err)
	}
	defer session.Close()

	if opts.Output != "" {
		saved, err := session.ExportHeader(opts.Output)
		if err != nil {
			return out.Fail("failed to export header", ErrCodeFailure, err)
		}
		return out.Success(headerExport{Path: saved})
	}

	tags := []dicom.DataElementTag{dicom.SpecificCharacterSetTag}
	for _, attr := range summaryAttributes {
		tags = append(tags, attr.tag)
	}
	ds, err := dicom.ParseBytes(session.Metadata(), dicom.OnlyTags(tags...))
	if err != nil {
		return out.Fail("failed to parse header", ErrCodeFailure, err)
	}

	summary := headerSummary{
		Attributes: map[string]string{},
		WordBits:   session.WordBits(),
		Layout:     session.Layout(),
	}
	for _, attr := range summaryAttributes {
		if _, ok := ds.Elements[attr.tag]; !ok {
			continue
		}
		text, err := ds.Text(attr.tag)
		if err != nil {
			opts.logger.Warn("unreadable attribute", "name", attr.name, "error", err)
			continue
		}
		summary.Attributes[attr.name] = text
	}
	return out.Success(summary)
}
