package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
)

// detectorKey identifies one cached detector.
type detectorKey struct {
	family      string
	blackBorder int
}

func (k detectorKey) String() string { return fmt.Sprintf("%s/%d", k.family, k.blackBorder) }

// lockedDetector serializes calls into one engine. Different keys run in
// parallel.
type lockedDetector struct {
	mu sync.Mutex
	d  *detector.Detector
}

func (l *lockedDetector) detect(buf []byte, w, h int) ([]detector.TagDetection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.d.Detect(buf, w, h)
}

// detectorCache hands out one detector per (family, black border) and keeps
// it until close.
type detectorCache struct {
	opts []detector.Option

	mu        sync.Mutex
	detectors map[detectorKey]*lockedDetector
	closed    bool
}

var errServerClosed = errors.New("server is shutting down")

func newDetectorCache(opts ...detector.Option) *detectorCache {
	return &detectorCache{
		opts:      opts,
		detectors: make(map[detectorKey]*lockedDetector),
	}
}

// get returns the detector for key, creating it on first use. Creation errors
// are not cached.
func (c *detectorCache) get(key detectorKey) (*lockedDetector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errServerClosed
	}
	if ld, ok := c.detectors[key]; ok {
		return ld, nil
	}

	opts := append([]detector.Option{}, c.opts...)
	opts = append(opts, detector.WithBlackBorder(key.blackBorder))
	d, err := detector.New(key.family, opts...)
	if err != nil {
		return nil, err
	}

	ld := &lockedDetector{d: d}
	c.detectors[key] = ld
	activeDetectors.Inc()
	slog.Info("Detector created", "key", key.String())
	return ld, nil
}

// keys returns the cached keys in sorted order.
func (c *detectorCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.detectors))
	for k := range c.detectors {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}

// close releases every cached detector. In-flight detections finish first.
func (c *detectorCache) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for k, ld := range c.detectors {
		ld.mu.Lock()
		if err := ld.d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector %s: %w", k, err))
		}
		ld.mu.Unlock()
		activeDetectors.Dec()
	}
	c.detectors = nil
	return errors.Join(errs...)
}
