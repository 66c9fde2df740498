package detector

import (
	"fmt"

	"github.com/MeKo-Tech/aprilgo/internal/family"
)

// Black border widths understood by the engine. Kalibr AprilGrid targets print
// a two-bit border.
const (
	DefaultBlackBorder = 1
	MaxBlackBorder     = 2
)

// Config is the immutable configuration of one Detector.
type Config struct {
	family      family.TagFamily
	blackBorder int
}

// Family returns the tag family the detector decodes.
func (c Config) Family() family.TagFamily { return c.family }

// BlackBorder returns the border width in bits.
func (c Config) BlackBorder() int { return c.blackBorder }

func (c Config) String() string {
	return fmt.Sprintf("family=%s black_border=%d", c.family.Name, c.blackBorder)
}

// Option adjusts a detector while it is being constructed.
type Option func(*options)

type options struct {
	blackBorder int
	factory     EngineFactory
	warmup      int
}

func defaultOptions() options {
	return options{
		blackBorder: DefaultBlackBorder,
		factory:     NewEngine,
	}
}

// WithBlackBorder sets the border width in bits (1 or 2).
func WithBlackBorder(n int) Option {
	return func(o *options) { o.blackBorder = n }
}

// WithEngineFactory replaces the compiled-in engine backend.
func WithEngineFactory(f EngineFactory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithWarmup runs n detections on a blank frame right after the engine is created.
func WithWarmup(n int) Option {
	return func(o *options) { o.warmup = n }
}

// NewConfig resolves familyID and validates the options. It never allocates
// an engine.
func NewConfig(familyID string, opts ...Option) (Config, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o.config(familyID)
}

func (o options) config(familyID string) (Config, error) {
	f, err := family.Resolve(familyID)
	if err != nil {
		return Config{}, err
	}
	if err := validateConfig(o); err != nil {
		return Config{}, err
	}
	return Config{family: f, blackBorder: o.blackBorder}, nil
}

func validateConfig(o options) error {
	if o.blackBorder < DefaultBlackBorder || o.blackBorder > MaxBlackBorder {
		return &ConfigError{Field: "black_border", Value: o.blackBorder, Reason: "must be 1 or 2"}
	}
	if o.warmup < 0 {
		return &ConfigError{Field: "warmup", Value: o.warmup, Reason: "must be >= 0"}
	}
	return nil
}
