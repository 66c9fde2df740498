package detector

import "github.com/MeKo-Tech/aprilgo/internal/plane"

// Point is a sub-pixel image coordinate.
type Point struct {
	X float64
	Y float64
}

// RawDetection is a tag as reported by an Engine, before marshalling.
type RawDetection struct {
	ID              int
	HammingDistance int
	Good            bool
	Center          Point
	// Corners must hold exactly four points.
	Corners    []Point
	Homography [3][3]float64
}

// Engine recognizes tags in a luminance plane.
//
// Extract must not modify p and must return the same detections for the same
// plane and config. Implementations are not required to be safe for
// concurrent use.
type Engine interface {
	Extract(p *plane.Plane, cfg Config) ([]RawDetection, error)
	Close() error
}

// EngineFactory allocates an engine for a validated config.
type EngineFactory func(cfg Config) (Engine, error)

// NewEngine is the default factory. It uses whichever backend was compiled in.
func NewEngine(cfg Config) (Engine, error) {
	return newDefaultEngine(cfg)
}

// Project maps a tag-local point through a homography into pixel coordinates.
// The tag occupies [-1,1] on both axes, so Project(h, 0, 0) is its center.
func Project(h [3][3]float64, x, y float64) Point {
	w := h[2][0]*x + h[2][1]*y + h[2][2]
	return Point{
		X: (h[0][0]*x + h[0][1]*y + h[0][2]) / w,
		Y: (h[1][0]*x + h[1][1]*y + h[1][2]) / w,
	}
}
