// Package config loads the optional lmparser.yaml. Values act as flag defaults; flags set on
// the command line win.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config mirrors lmparser.yaml. Pointer fields are nil when the file leaves them out.
type Config struct {
	Retain           *float64   `yaml:"retain"`
	Seed             *uint64    `yaml:"seed"`
	Policy           string     `yaml:"policy"`
	OutputDir        string     `yaml:"output_dir"`
	Ledger           string     `yaml:"ledger"`
	AllowWidthChange bool       `yaml:"allow_width_change"`
	BufferSize       int        `yaml:"buffer_size"`
	Tail             TailConfig `yaml:"tail"`
}

// TailConfig holds the tail scanner defaults.
type TailConfig struct {
	Stop      string `yaml:"stop"`
	Delimiter string `yaml:"delimiter"`
	Strict    bool   `yaml:"strict"`
	Full      bool   `yaml:"full"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown fields, and validates it against the schema.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	if cfg.BufferSize%4 != 0 {
		return nil, fmt.Errorf("invalid config: buffer_size %d is not a multiple of 4", cfg.BufferSize)
	}
	return &cfg, nil
}

func validate(raw map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
