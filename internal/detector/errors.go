package detector

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for detector options outside their allowed range.
	ErrInvalidConfig = errors.New("invalid detector config")
	// ErrInvalidArgument is returned when Detect receives a nil buffer or unusable dimensions.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEngine wraps failures reported by the detection engine.
	ErrEngine = errors.New("detection engine failed")
	// ErrNoEngine is returned by the default engine factory when no backend was linked.
	ErrNoEngine = errors.New("detector: no engine backend linked; build with -tags=apriltag_gocv or inject an EngineFactory")
	// ErrClosed is returned by Detect after Close.
	ErrClosed = errors.New("detector is closed")
)

// ConfigError describes which option was rejected and why.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid detector config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }
