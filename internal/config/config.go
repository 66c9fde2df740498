package config

import (
	"fmt"
	"runtime"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/family"
)

const infoLevel = "info"

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return Config{
		LogLevel: infoLevel,
		Detector: DetectorConfig{
			Family:      family.Default,
			BlackBorder: detector.DefaultBlackBorder,
		},
		Output: OutputConfig{
			Format:       "text",
			Precision:    2,
			OverlayColor: "#00ff00",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
		},
		Batch: BatchConfig{
			Workers:         workers,
			ContinueOnError: true,
		},
	}
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", describe(err))
	}
	return nil
}

// DetectorOptions converts the detector section into constructor options.
func (c *Config) DetectorOptions() []detector.Option {
	return []detector.Option{
		detector.WithBlackBorder(c.Detector.BlackBorder),
		detector.WithWarmup(c.Detector.WarmupIterations),
	}
}

// ServerAddr returns host:port for the HTTP listener.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
