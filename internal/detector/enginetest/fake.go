// Package enginetest provides a scriptable detection engine for tests.
package enginetest

import (
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/plane"
)

// Engine returns preset detections and records how it was used.
type Engine struct {
	mu         sync.Mutex
	detections []detector.RawDetection
	err        error
	closeErr   error
	last       *plane.Plane

	extracts atomic.Int64
	closes   atomic.Int64
}

// New creates an engine that finds nothing.
func New() *Engine { return &Engine{} }

// SetDetections sets the detections returned by Extract.
func (e *Engine) SetDetections(dets ...detector.RawDetection) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detections = dets
	return e
}

// SetError makes Extract fail with err.
func (e *Engine) SetError(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
	return e
}

// SetCloseError makes Close fail with err.
func (e *Engine) SetCloseError(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeErr = err
	return e
}

// Extract implements detector.Engine.
func (e *Engine) Extract(p *plane.Plane, _ detector.Config) ([]detector.RawDetection, error) {
	e.extracts.Add(1)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = p
	if e.err != nil {
		return nil, e.err
	}
	out := make([]detector.RawDetection, len(e.detections))
	copy(out, e.detections)
	return out, nil
}

// Close implements detector.Engine.
func (e *Engine) Close() error {
	e.closes.Add(1)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeErr
}

// Extracts returns how many times Extract was called.
func (e *Engine) Extracts() int { return int(e.extracts.Load()) }

// Closes returns how many times Close was called.
func (e *Engine) Closes() int { return int(e.closes.Load()) }

// LastPlane returns the plane passed to the most recent Extract.
func (e *Engine) LastPlane() *plane.Plane {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Factory counts engine allocations and hands out Engines built by newEngine.
type Factory struct {
	newEngine func() *Engine
	allocs    atomic.Int64
	mu        sync.Mutex
	engines   []*Engine
}

// NewFactory returns a factory producing engines configured by setup.
// setup may be nil.
func NewFactory(setup func(*Engine)) *Factory {
	return &Factory{newEngine: func() *Engine {
		e := New()
		if setup != nil {
			setup(e)
		}
		return e
	}}
}

// Func returns the factory as a detector.EngineFactory.
func (f *Factory) Func() detector.EngineFactory {
	return func(_ detector.Config) (detector.Engine, error) {
		f.allocs.Add(1)
		e := f.newEngine()
		f.mu.Lock()
		f.engines = append(f.engines, e)
		f.mu.Unlock()
		return e, nil
	}
}

// Allocations returns how many engines were created.
func (f *Factory) Allocations() int { return int(f.allocs.Load()) }

// Engines returns every engine created so far.
func (f *Factory) Engines() []*Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Engine, len(f.engines))
	copy(out, f.engines)
	return out
}

// Square returns a detection of an axis-aligned tag with the given id,
// centred on (cx, cy) with half side r. Corners follow the tag-local order
// (-1,-1), (1,-1), (1,1), (-1,1).
func Square(id int, cx, cy, r float64) detector.RawDetection {
	h := [3][3]float64{
		{r, 0, cx},
		{0, r, cy},
		{0, 0, 1},
	}
	return detector.RawDetection{
		ID:         id,
		Good:       true,
		Center:     detector.Project(h, 0, 0),
		Homography: h,
		Corners: []detector.Point{
			detector.Project(h, -1, -1),
			detector.Project(h, 1, -1),
			detector.Project(h, 1, 1),
			detector.Project(h, -1, 1),
		},
	}
}
