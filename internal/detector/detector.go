package detector

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/MeKo-Tech/aprilgo/internal/plane"
	"github.com/MeKo-Tech/aprilgo/internal/utils"
)

// Detector finds AprilTags in raw image buffers. It owns one engine for its
// whole lifetime; reuse it across frames and Close it when done.
//
// Detect adds no locking of its own. Use one Detector per goroutine unless the
// engine is known to tolerate concurrent calls.
type Detector struct {
	config    Config
	engine    Engine
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// New validates the configuration and then allocates the engine. Nothing is
// allocated when validation fails, and the engine is released again if warm-up
// fails.
func New(familyID string, opts ...Option) (*Detector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := o.config(familyID)
	if err != nil {
		return nil, err
	}

	slog.Debug("Initializing detector",
		"family", cfg.Family().Name,
		"black_border", cfg.BlackBorder(),
		"warmup", o.warmup)

	engine, err := o.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	d := &Detector{
		config: cfg,
		engine: engine,
		closed: make(chan struct{}),
	}

	if o.warmup > 0 {
		if err := d.Warmup(o.warmup); err != nil {
			if cerr := d.Close(); cerr != nil {
				slog.Warn("Failed to release engine after warm-up error", "error", cerr)
			}
			return nil, fmt.Errorf("warm-up: %w", err)
		}
	}

	slog.Debug("Detector initialized successfully")
	return d, nil
}

// Config returns the detector's configuration.
func (d *Detector) Config() Config { return d.config }

// Detect resolves buf into a luminance plane and returns every tag the engine
// finds in it. buf may be packed gray, RGB or RGBA; the layout is inferred
// from its length. buf is not modified.
func (d *Detector) Detect(buf []byte, width, height int) ([]TagDetection, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %w: %dx%d", ErrInvalidArgument, plane.ErrInvalidDimensions, width, height)
	}
	if width > math.MaxInt/4/height {
		return nil, fmt.Errorf("%w: %dx%d overflows buffer size", ErrInvalidArgument, width, height)
	}
	if d.isClosed() {
		return nil, ErrClosed
	}

	start := time.Now()

	p, err := plane.Resolve(buf, width, height)
	if err != nil {
		return nil, err
	}

	raw, err := d.engine.Extract(p, d.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngine, err)
	}

	dets := Marshal(raw)

	slog.Debug("Detection complete",
		"family", d.config.Family().Name,
		"width", width,
		"height", height,
		"bytes", len(buf),
		"tags", len(dets),
		"duration", time.Since(start))

	return dets, nil
}

// Close releases the engine. It is safe to call more than once; only the
// first call reaches the engine.
func (d *Detector) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.engine != nil {
			d.closeErr = d.engine.Close()
		}
	})
	return d.closeErr
}

func (d *Detector) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// DetectImage packs img into a gray or RGBA buffer and runs Detect on it.
func (d *Detector) DetectImage(img image.Image) ([]TagDetection, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidArgument)
	}
	buf, w, h := utils.PackImage(img)
	return d.Detect(buf, w, h)
}

// DetectResult runs Detect and fills a Result, recording errors instead of
// returning them. Result.Error is empty on success.
func (d *Detector) DetectResult(source string, buf []byte, width, height int) *Result {
	res := &Result{
		Source:      source,
		Family:      d.config.Family().Name,
		BlackBorder: d.config.BlackBorder(),
		Width:       width,
		Height:      height,
	}
	if layout, err := plane.Classify(len(buf), width, height); err == nil {
		res.Layout = layout.String()
	}

	start := time.Now()
	dets, err := d.Detect(buf, width, height)
	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Detections = dets
	return res
}
