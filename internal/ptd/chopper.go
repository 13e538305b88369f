package ptd

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"
)

// DefaultSeed seeds the chopper's random source unless another seed is configured.
const DefaultSeed = 11

// progressInterval is the spacing of time tags reported while chopping.
const progressInterval = 10000

// Policy decides which event words survive a chop.
type Policy int

const (
	// PolicyUniform keeps every event word with the retain fraction.
	PolicyUniform Policy = iota

	// PolicyQuadraticForDelays keeps prompts with the retain fraction and delays with its
	// square. Used for Rb-82, where random coincidences are suppressed harder.
	PolicyQuadraticForDelays
)

var policyNames = map[string]Policy{
	"default": PolicyUniform,
	"rb82":    PolicyQuadraticForDelays,
}

// ParsePolicy resolves a policy by its configuration name, ignoring case.
func ParsePolicy(name string) (Policy, error) {
	p, ok := policyNames[strings.ToLower(name)]
	if !ok {
		return 0, newError(CodeUnknownPolicy, "parse policy", "default or rb82", name)
	}
	return p, nil
}

func (p Policy) String() string {
	switch p {
	case PolicyUniform:
		return "default"
	case PolicyQuadraticForDelays:
		return "rb82"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Keep reports whether an event word with the given draw survives.
func (p Policy) Keep(prompt bool, draw, fraction float64) bool {
	if p == PolicyQuadraticForDelays && !prompt {
		return draw < fraction*fraction
	}
	return draw < fraction
}

// Source yields uniform draws in [0,1).
type Source interface {
	Float64() float64
}

// NewSource returns the deterministic PCG source for a seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, 0))
}

// Counters tallies a pass over the word stream. Prompts+Delays and Kept+Tossed both equal
// EventWords; tag words are never tossed.
type Counters struct {
	TagWords   int64 `json:"tag_words"`
	EventWords int64 `json:"event_words"`
	Prompts    int64 `json:"prompts"`
	Delays     int64 `json:"delays"`
	Kept       int64 `json:"kept"`
	Tossed     int64 `json:"tossed"`
}

// KeptRatio is the percentage of event words kept.
func (c Counters) KeptRatio() float64 {
	if c.EventWords == 0 {
		return 0
	}
	return float64(c.Kept) / float64(c.EventWords) * 100
}

// ProgressFunc observes elapsed time tags while words stream through.
type ProgressFunc func(elapsed time.Duration)

type chopState int

const (
	stateIdle chopState = iota
	stateStreaming
	stateDone
)

// Chopper subsamples one word stream. Its source and counters belong to a single run.
type Chopper struct {
	fraction float64
	policy   Policy
	source   Source
	progress ProgressFunc
	counters Counters
	state    chopState
}

// ChopperOption configures a Chopper.
type ChopperOption func(*Chopper)

// WithSource replaces the seeded PCG source.
func WithSource(src Source) ChopperOption {
	return func(c *Chopper) { c.source = src }
}

// WithProgress registers an observer for time tags at 10 s boundaries.
func WithProgress(fn ProgressFunc) ChopperOption {
	return func(c *Chopper) { c.progress = fn }
}

// NewChopper creates a chopper keeping event words with probability fraction in [0,1].
func NewChopper(fraction float64, policy Policy, seed uint64, opts ...ChopperOption) (*Chopper, error) {
	if !(fraction >= 0 && fraction <= 1) {
		return nil, fmt.Errorf("retain fraction %v outside [0,1]", fraction)
	}
	if _, ok := policyNames[policy.String()]; !ok {
		return nil, newError(CodeUnknownPolicy, "new chopper", "default or rb82", policy.String())
	}

	c := &Chopper{
		fraction: fraction,
		policy:   policy,
		source:   NewSource(seed),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run streams every word of r, writing tag words and kept event words to w in stream order.
// A Chopper runs once.
func (c *Chopper) Run(ctx context.Context, r *WordReader, w io.Writer) (Counters, error) {
	if c.state != stateIdle {
		return c.counters, errors.New("chopper already ran")
	}
	c.state = stateStreaming

	bw := bufio.NewWriter(w)
	r.WithContext(ctx)

	var out [WordSize]byte
	for {
		word, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return c.counters, err
		}

		if !c.step(word) {
			continue
		}
		binary.LittleEndian.PutUint32(out[:], uint32(word))
		if _, err := bw.Write(out[:]); err != nil {
			return c.counters, fmt.Errorf("writing word at offset %d: %w", r.Offset(), err)
		}
	}

	if err := bw.Flush(); err != nil {
		return c.counters, fmt.Errorf("flushing words: %w", err)
	}
	c.state = stateDone
	return c.counters, nil
}

// step classifies one word, updates the counters and reports whether the word is written.
func (c *Chopper) step(word Word) bool {
	class := Classify(word)
	if class.Tag {
		c.counters.TagWords++
		if class.TimeMarker && class.Millis > 0 && class.Millis%progressInterval == 0 && c.progress != nil {
			c.progress(class.Elapsed())
		}
		return true
	}

	c.counters.EventWords++
	if class.Prompt {
		c.counters.Prompts++
	} else {
		c.counters.Delays++
	}

	if c.policy.Keep(class.Prompt, c.source.Float64(), c.fraction) {
		c.counters.Kept++
		return true
	}
	c.counters.Tossed++
	return false
}

// Counters returns the tallies so far.
func (c *Chopper) Counters() Counters {
	return c.counters
}
