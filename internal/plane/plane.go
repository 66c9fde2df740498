// Package plane turns packed 8-bit image buffers into the single-channel
// luminance plane the detection engine consumes.
package plane

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	// ErrInvalidBufferSize is returned when the buffer length matches no supported layout.
	ErrInvalidBufferSize = errors.New("invalid buffer size")
)

// Layout is the packing of a raw pixel buffer.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutGray
	LayoutRGB
	LayoutRGBA
)

// Channels returns the bytes per pixel of the layout, 0 for LayoutUnknown.
func (l Layout) Channels() int {
	switch l {
	case LayoutGray:
		return 1
	case LayoutRGB:
		return 3
	case LayoutRGBA:
		return 4
	default:
		return 0
	}
}

func (l Layout) String() string {
	switch l {
	case LayoutGray:
		return "gray"
	case LayoutRGB:
		return "rgb"
	case LayoutRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Plane is a row-major, top-left origin, 8-bit luminance image.
type Plane struct {
	Width  int
	Height int
	Data   []byte
}

// BufferSizeError reports a buffer whose length is not width*height times 1, 3 or 4.
type BufferSizeError struct {
	Width  int
	Height int
	Got    int
}

func (e *BufferSizeError) Error() string {
	n := e.Width * e.Height
	return fmt.Sprintf("buffer of %d bytes does not match %dx%d image: expected %d (gray), %d (rgb) or %d (rgba)",
		e.Got, e.Width, e.Height, n, n*3, n*4)
}

// Is makes errors.Is(err, ErrInvalidBufferSize) hold.
func (e *BufferSizeError) Is(target error) bool { return target == ErrInvalidBufferSize }

// Classify infers the layout of a w x h buffer from its length alone.
func Classify(length, w, h int) (Layout, error) {
	if w <= 0 || h <= 0 {
		return LayoutUnknown, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	for _, l := range []Layout{LayoutGray, LayoutRGB, LayoutRGBA} {
		if length == w*h*l.Channels() {
			return l, nil
		}
	}
	return LayoutUnknown, &BufferSizeError{Width: w, Height: h, Got: length}
}

// Resolve classifies buf and converts it into a freshly allocated plane.
// buf is never modified and never aliased by the result.
func Resolve(buf []byte, w, h int) (*Plane, error) {
	layout, err := Classify(len(buf), w, h)
	if err != nil {
		return nil, err
	}
	return ResolveLayout(buf, w, h, layout), nil
}

// ResolveLayout converts buf using an already classified layout.
// It panics if layout is LayoutUnknown.
func ResolveLayout(buf []byte, w, h int, layout Layout) *Plane {
	n := w * h
	out := make([]byte, n)
	switch layout {
	case LayoutGray:
		copy(out, buf)
	case LayoutRGB:
		lumaPacked(out, buf, 3)
	case LayoutRGBA:
		lumaPacked(out, buf, 4)
	default:
		panic(fmt.Sprintf("plane: cannot resolve layout %v", layout))
	}
	return &Plane{Width: w, Height: h, Data: out}
}
