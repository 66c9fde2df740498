package batch

import (
	"time"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/family"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Detection settings
	Family      string
	BlackBorder int
	Warmup      int
	// EngineFactory overrides the compiled-in engine; nil keeps the default.
	EngineFactory detector.EngineFactory

	// Output settings
	OverlayDir string
	Format     string
	OutputFile string
	Precision  int

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	Progress         ProgressCallback
}

// DefaultConfig returns a single-worker config for the default family.
func DefaultConfig() *Config {
	return &Config{
		Family:           family.Default,
		BlackBorder:      detector.DefaultBlackBorder,
		Format:           "text",
		Precision:        2,
		Workers:          1,
		ContinueOnError:  true,
		ProgressInterval: 100 * time.Millisecond,
	}
}

func (c *Config) detectorOptions() []detector.Option {
	opts := []detector.Option{
		detector.WithBlackBorder(c.BlackBorder),
		detector.WithWarmup(c.Warmup),
	}
	if c.EngineFactory != nil {
		opts = append(opts, detector.WithEngineFactory(c.EngineFactory))
	}
	return opts
}
