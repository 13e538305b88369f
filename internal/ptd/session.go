package ptd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultWordBits = 32

// Session owns an open container: its file handle, layout and metadata blob. Operations run
// one at a time.
type Session struct {
	path     string
	file     *os.File
	layout   Layout
	blob     []byte
	wordBits int

	outDir  string
	bufSize int
	codec   HeaderCodec
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for progress and run summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithOutputDir sets the folder for chop outputs. It defaults to the input's folder and is
// created on demand.
func WithOutputDir(dir string) Option {
	return func(s *Session) { s.outDir = dir }
}

// WithBufferSize sets the word reader buffer size.
func WithBufferSize(n int) Option {
	return func(s *Session) { s.bufSize = n }
}

// WithCodec replaces the DICOM metadata codec.
func WithCodec(codec HeaderCodec) Option {
	return func(s *Session) { s.codec = codec }
}

// Open opens a container, validates its trailer and reads its metadata blob.
func Open(path string, opts ...Option) (*Session, error) {
	s := &Session{
		path:     path,
		outDir:   filepath.Dir(path),
		bufSize:  DefaultBufferSize,
		codec:    DICOMCodec{},
		logger:   slog.New(slog.DiscardHandler),
		wordBits: defaultWordBits,
	}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Code: CodeMissingInput, Op: "open", Expected: "an existing container", Found: path, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading container size: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, &Error{Code: CodeMissingInput, Op: "open", Expected: "a container file", Found: path}
	}
	s.file = f
	s.logger.Debug("opened container", "file", filepath.Base(path), "size", info.Size())

	if s.layout, err = Locate(f, info.Size()); err != nil {
		f.Close()
		return nil, err
	}
	if s.blob, err = ReadMetadata(f, s.layout); err != nil {
		f.Close()
		return nil, err
	}
	s.logger.Debug("read metadata", "length", s.layout.MetadataLength, "events", s.layout.EventLength)

	s.detectWordFormat()
	return s, nil
}

// detectWordFormat reads the word size from the header free text. Containers without a
// readable header are assumed to hold 32-bit words.
func (s *Session) detectWordFormat() {
	header, err := s.codec.Decode(s.blob)
	if err != nil {
		s.logger.Warn("metadata is not a readable header", "error", err)
		return
	}
	bits, ok, err := WordFormat(header.PrivateText())
	if err != nil {
		s.logger.Warn("unreadable word format", "error", err)
		return
	}
	if ok {
		s.wordBits = bits
		s.logger.Debug("found word format", "bits", bits)
	}
}

// Close releases the container.
func (s *Session) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Path is the container's path.
func (s *Session) Path() string { return s.path }

// Layout is the container's layout.
func (s *Session) Layout() Layout { return s.layout }

// Metadata is the container's metadata blob. Callers must not modify it.
func (s *Session) Metadata() []byte { return s.blob }

// WordBits is the word size declared by the header.
func (s *Session) WordBits() int { return s.wordBits }

// Header decodes the metadata blob.
func (s *Session) Header() (Header, error) {
	return s.codec.Decode(s.blob)
}

// ChopOptions configures Chop and FakeChop.
type ChopOptions struct {
	// Retain is the percentage of event words kept, 0 to 100.
	Retain float64

	// Seed seeds the random source.
	Seed uint64

	// Policy is "default" or "rb82". Empty means "default".
	Policy string

	// Output names the output file, relative to the output folder. Empty generates
	// {stem}-{retain:.3f}{ext}.
	Output string

	Rewrite RewriteOptions

	// Source overrides the seeded random source.
	Source Source
}

// ChopResult describes a completed chop.
type ChopResult struct {
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Retain   float64       `json:"retain"`
	Seed     uint64        `json:"seed"`
	Policy   string        `json:"policy"`
	Counters Counters      `json:"counters"`
	Dose     DoseReport    `json:"dose"`
	Layout   Layout        `json:"layout"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Chop writes a new container holding every tag word and a random subset of the event words,
// with the injected dose scaled to match. A failed chop removes its output.
func (s *Session) Chop(ctx context.Context, opts ChopOptions) (*ChopResult, error) {
	policyName := opts.Policy
	if policyName == "" {
		policyName = PolicyUniform.String()
	}
	policy, err := ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, opts, policy, opts.Retain/100)
}

// FakeChop writes a new container holding every word unchanged, with the dose and trailer
// rewritten as if chopped at opts.Retain.
func (s *Session) FakeChop(ctx context.Context, opts ChopOptions) (*ChopResult, error) {
	return s.run(ctx, opts, PolicyUniform, 1)
}

func (s *Session) run(ctx context.Context, opts ChopOptions, policy Policy, keepFraction float64) (*ChopResult, error) {
	start := time.Now()
	if s.file == nil {
		return nil, errors.New("session is closed")
	}
	if err := CheckWordFormat(s.wordBits); err != nil {
		return nil, err
	}
	if !(opts.Retain >= 0 && opts.Retain <= 100) {
		return nil, fmt.Errorf("retain %v outside [0,100]", opts.Retain)
	}
	fraction := opts.Retain / 100

	// the rewrite depends only on the fraction, so a width mismatch fails before streaming
	blob, dose, err := RewriteDose(s.blob, fraction, s.codec, opts.Rewrite)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rewrote dose",
		"from_mbq", dose.Original/1e6, "to_mbq", dose.Retained/1e6, "retain", opts.Retain,
		"xml_fields", dose.XMLFields, "old_length", dose.OldLength, "new_length", dose.NewLength)

	chopperOpts := []ChopperOption{WithProgress(func(elapsed time.Duration) {
		s.logger.Debug("finished", "seconds", elapsed.Seconds())
	})}
	if opts.Source != nil {
		chopperOpts = append(chopperOpts, WithSource(opts.Source))
	}
	chopper, err := NewChopper(keepFraction, policy, opts.Seed, chopperOpts...)
	if err != nil {
		return nil, err
	}

	outPath := s.OutputPath(opts.Retain, opts.Output)
	if err := s.checkOutputPath(outPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating output folder: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	s.logger.Info("chopping", "output", outPath, "retain", opts.Retain, "policy", policy, "seed", opts.Seed)

	counters, err := s.writeContainer(ctx, out, chopper, blob)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing output: %w", closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(outPath); rmErr != nil {
			s.logger.Error("removing partial output", "output", outPath, "error", rmErr)
		}
		return nil, err
	}

	eventLength := s.layout.EventLength - counters.Tossed*WordSize
	outLayout := Layout{
		Size:           eventLength + int64(len(blob)) + int64(trailerSize),
		EventLength:    eventLength,
		MetadataOffset: eventLength,
		MetadataLength: int64(len(blob)),
	}

	result := &ChopResult{
		Input:    s.path,
		Output:   outPath,
		Retain:   opts.Retain,
		Seed:     opts.Seed,
		Policy:   policy.String(),
		Counters: counters,
		Dose:     dose,
		Layout:   outLayout,
		Elapsed:  time.Since(start),
	}
	s.logger.Info("done parsing words",
		"prompts", counters.Prompts, "delays", counters.Delays,
		"tags", counters.TagWords, "events", counters.EventWords,
		"keep", counters.Kept, "toss", counters.Tossed,
		"ratio", fmt.Sprintf("%.2f", counters.KeptRatio()),
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

func (s *Session) writeContainer(ctx context.Context, out io.Writer, chopper *Chopper, blob []byte) (Counters, error) {
	bw := bufio.NewWriter(out)
	words := NewWordReader(io.NewSectionReader(s.file, 0, s.layout.EventLength), s.layout.EventLength, s.bufSize)
	counters, err := chopper.Run(ctx, words, bw)
	if err != nil {
		return counters, err
	}
	if err := WriteTrailer(bw, blob); err != nil {
		return counters, err
	}
	if err := bw.Flush(); err != nil {
		return counters, fmt.Errorf("flushing output: %w", err)
	}
	return counters, nil
}

// checkOutputPath refuses an output that names the open input, which os.Create would truncate.
func (s *Session) checkOutputPath(outPath string) error {
	in, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("reading input info: %w", err)
	}
	out, err := os.Stat(outPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading output info: %w", err)
	}
	if os.SameFile(in, out) {
		return newError(CodeOutputIsInput, "create output", "a path other than the input", outPath)
	}
	return nil
}

// OutputPath resolves the output file of a chop. Relative names are placed in the output
// folder.
func (s *Session) OutputPath(retain float64, name string) string {
	if name == "" {
		base := filepath.Base(s.path)
		ext := filepath.Ext(base)
		name = fmt.Sprintf("%s-%.3f%s", strings.TrimSuffix(base, ext), retain, ext)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.outDir, name)
}

// Statistics returns the per-second prompt and delay histogram of the event stream.
func (s *Session) Statistics(ctx context.Context) (*Statistics, error) {
	if s.file == nil {
		return nil, errors.New("session is closed")
	}
	if err := CheckWordFormat(s.wordBits); err != nil {
		return nil, err
	}
	words := NewWordReader(io.NewSectionReader(s.file, 0, s.layout.EventLength), s.layout.EventLength, s.bufSize)
	stats, err := CollectStatistics(ctx, words, func(elapsed time.Duration) {
		s.logger.Debug("finished", "seconds", elapsed.Seconds())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("done parsing words", "bins", len(stats.Bins), "events", stats.Counters.EventWords)
	return stats, nil
}

// Tail runs ScanTail over the container.
func (s *Session) Tail(opts TailOptions) (*TailRecord, error) {
	if s.file == nil {
		return nil, errors.New("session is closed")
	}
	return ScanTail(s.file, s.layout.Size, opts)
}

// ExportHeader writes the embedded DICOM object to path, relative names resolving in the output
// folder. It returns the path written.
func (s *Session) ExportHeader(path string) (string, error) {
	if s.file == nil {
		return "", errors.New("session is closed")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.outDir, path)
	}
	if err := s.checkOutputPath(path); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating output folder: %w", err)
	}
	if err := os.WriteFile(path, s.blob, 0o644); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	s.logger.Info("saved DICOM", "path", path)
	return path, nil
}
