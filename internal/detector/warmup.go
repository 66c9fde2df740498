package detector

import (
	"errors"

	"github.com/MeKo-Tech/aprilgo/internal/plane"
)

const (
	warmupWidth  = 320
	warmupHeight = 240
)

// Warmup runs a number of detections on a blank frame to reduce first-run latency.
func (d *Detector) Warmup(iterations int) error {
	if iterations <= 0 {
		return nil
	}
	if d.isClosed() {
		return ErrClosed
	}
	if d.engine == nil {
		return errors.New("detector engine is nil")
	}

	// Mid-gray frame, nothing to find.
	blank := make([]byte, warmupWidth*warmupHeight)
	for i := range blank {
		blank[i] = 128
	}
	p := &plane.Plane{Width: warmupWidth, Height: warmupHeight, Data: blank}

	for range iterations {
		if _, err := d.engine.Extract(p, d.config); err != nil {
			return err
		}
	}
	return nil
}
