package detector_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/detector/enginetest"
	"github.com/MeKo-Tech/aprilgo/internal/family"
	"github.com/MeKo-Tech/aprilgo/internal/plane"
)

func newTestDetector(t *testing.T, setup func(*enginetest.Engine), opts ...detector.Option) (*detector.Detector, *enginetest.Factory) {
	t.Helper()
	f := enginetest.NewFactory(setup)
	d, err := detector.New(family.Default, append(opts, detector.WithEngineFactory(f.Func()))...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, f
}

func TestDetect_GrayBuffer(t *testing.T) {
	d, f := newTestDetector(t, func(e *enginetest.Engine) {
		e.SetDetections(enginetest.Square(0, 16, 16, 8), enginetest.Square(5, 48, 16, 8))
	})

	buf := make([]byte, 64*32)
	dets, err := d.Detect(buf, 64, 32)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, 0, dets[0].ID)
	assert.Equal(t, 5, dets[1].ID)
	assert.Equal(t, [2]float64{48, 16}, dets[1].Center)
	assert.Equal(t, [2]float64{40, 8}, dets[1].Corners[0])
	assert.Equal(t, [9]float64{8, 0, 48, 0, 8, 16, 0, 0, 1}, dets[1].Homography)

	e := f.Engines()[0]
	assert.Equal(t, 1, e.Extracts())
	p := e.LastPlane()
	assert.Equal(t, 64, p.Width)
	assert.Equal(t, 32, p.Height)
}

func TestDetect_ColorBuffersReachEngineAsLuma(t *testing.T) {
	d, f := newTestDetector(t, nil)

	rgb := []byte{255, 0, 0, 0, 255, 0}
	_, err := d.Detect(rgb, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{76, 150}, f.Engines()[0].LastPlane().Data)

	rgba := []byte{255, 0, 0, 7, 0, 255, 0, 9}
	_, err = d.Detect(rgba, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{76, 150}, f.Engines()[0].LastPlane().Data)
}

func TestDetect_DoesNotMutateBuffer(t *testing.T) {
	d, _ := newTestDetector(t, nil)
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	orig := bytes.Clone(buf)
	_, err := d.Detect(buf, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, orig, buf)
}

func TestDetect_InvalidArguments(t *testing.T) {
	d, f := newTestDetector(t, nil)

	tests := []struct {
		name string
		buf  []byte
		w, h int
	}{
		{"nil buffer", nil, 4, 4},
		{"zero width", make([]byte, 16), 0, 4},
		{"zero height", make([]byte, 16), 4, 0},
		{"negative width", make([]byte, 16), -4, -4},
		{"overflow", make([]byte, 16), math.MaxInt / 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Detect(tt.buf, tt.w, tt.h)
			assert.True(t, errors.Is(err, detector.ErrInvalidArgument), "got %v", err)
		})
	}
	_, err := d.Detect(make([]byte, 16), 0, 4)
	assert.True(t, errors.Is(err, plane.ErrInvalidDimensions))
	assert.Equal(t, 0, f.Engines()[0].Extracts())
}

// A buffer one byte short never reaches the engine.
func TestDetect_BufferSizeMismatch(t *testing.T) {
	d, f := newTestDetector(t, nil)

	w, h := 40, 30
	_, err := d.Detect(make([]byte, w*h-1), w, h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, plane.ErrInvalidBufferSize))

	var bse *plane.BufferSizeError
	require.True(t, errors.As(err, &bse))
	assert.Contains(t, err.Error(), "1200 (gray)")
	assert.Equal(t, 0, f.Engines()[0].Extracts())

	_, err = d.Detect([]byte{}, w, h)
	assert.True(t, errors.Is(err, plane.ErrInvalidBufferSize))
}

// Unknown families are rejected before any engine is allocated.
func TestNew_UnknownFamilyAllocatesNothing(t *testing.T) {
	f := enginetest.NewFactory(nil)
	d, err := detector.New("99z99", detector.WithEngineFactory(f.Func()))
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, family.ErrUnknownFamily))
	assert.Equal(t, 0, f.Allocations())
}

func TestNew_InvalidBorderAllocatesNothing(t *testing.T) {
	f := enginetest.NewFactory(nil)
	_, err := detector.New(family.Default, detector.WithBlackBorder(3), detector.WithEngineFactory(f.Func()))
	assert.True(t, errors.Is(err, detector.ErrInvalidConfig))
	assert.Equal(t, 0, f.Allocations())
}

func TestNew_FactoryError(t *testing.T) {
	boom := errors.New("no camera")
	_, err := detector.New(family.Default, detector.WithEngineFactory(func(detector.Config) (detector.Engine, error) {
		return nil, boom
	}))
	assert.True(t, errors.Is(err, boom))
}

func TestNew_WarmupFailureReleasesEngine(t *testing.T) {
	f := enginetest.NewFactory(func(e *enginetest.Engine) { e.SetError(errors.New("warm-up failed")) })
	d, err := detector.New(family.Default, detector.WithWarmup(2), detector.WithEngineFactory(f.Func()))
	require.Error(t, err)
	assert.Nil(t, d)
	require.Len(t, f.Engines(), 1)
	assert.Equal(t, 1, f.Engines()[0].Closes())
}

func TestNew_Warmup(t *testing.T) {
	_, f := newTestDetector(t, nil, detector.WithWarmup(3))
	assert.Equal(t, 3, f.Engines()[0].Extracts())
	p := f.Engines()[0].LastPlane()
	assert.Equal(t, 320, p.Width)
	assert.Equal(t, 240, p.Height)
}

func TestDetect_EngineErrorIsWrapped(t *testing.T) {
	cause := errors.New("quad fit diverged")
	d, f := newTestDetector(t, func(e *enginetest.Engine) { e.SetError(cause) })

	_, err := d.Detect(make([]byte, 4), 2, 2)
	assert.True(t, errors.Is(err, detector.ErrEngine))
	assert.True(t, errors.Is(err, cause))

	// The detector stays usable.
	f.Engines()[0].SetError(nil)
	_, err = d.Detect(make([]byte, 4), 2, 2)
	assert.NoError(t, err)
}

func TestDetect_Idempotent(t *testing.T) {
	d, _ := newTestDetector(t, func(e *enginetest.Engine) {
		e.SetDetections(enginetest.Square(3, 10, 10, 4), enginetest.Square(3, 30, 10, 4))
	})
	buf := make([]byte, 40*20*3)
	a, err := d.Detect(buf, 40, 20)
	require.NoError(t, err)
	b, err := d.Detect(buf, 40, 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 2, "duplicate ids are kept")
}

func TestClose_ExactlyOnce(t *testing.T) {
	f := enginetest.NewFactory(nil)
	d, err := detector.New(family.Default, detector.WithEngineFactory(f.Func()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Close()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.Engines()[0].Closes())

	_, err = d.Detect(make([]byte, 4), 2, 2)
	assert.True(t, errors.Is(err, detector.ErrClosed))
	assert.Equal(t, 0, f.Engines()[0].Extracts())
}

func TestClose_ReturnsEngineError(t *testing.T) {
	boom := errors.New("release failed")
	f := enginetest.NewFactory(func(e *enginetest.Engine) { e.SetCloseError(boom) })
	d, err := detector.New(family.Default, detector.WithEngineFactory(f.Func()))
	require.NoError(t, err)
	assert.ErrorIs(t, d.Close(), boom)
	assert.ErrorIs(t, d.Close(), boom)
	assert.Equal(t, 1, f.Engines()[0].Closes())
}

func TestDetectImage(t *testing.T) {
	d, f := newTestDetector(t, nil)

	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{B: 255, A: 255})

	_, err := d.DetectImage(img)
	require.NoError(t, err)
	assert.Equal(t, []byte{76, 150, 29}, f.Engines()[0].LastPlane().Data)

	_, err = d.DetectImage(nil)
	assert.True(t, errors.Is(err, detector.ErrInvalidArgument))
}

func TestDetectResult(t *testing.T) {
	d, _ := newTestDetector(t, func(e *enginetest.Engine) {
		e.SetDetections(enginetest.Square(9, 5, 5, 2))
	}, detector.WithBlackBorder(2))

	res := d.DetectResult("frame.png", make([]byte, 10*10*4), 10, 10)
	assert.Empty(t, res.Error)
	assert.Equal(t, "frame.png", res.Source)
	assert.Equal(t, "36h11", res.Family)
	assert.Equal(t, 2, res.BlackBorder)
	assert.Equal(t, "rgba", res.Layout)
	assert.Equal(t, []int{9}, res.IDs())

	res = d.DetectResult("short", make([]byte, 5), 10, 10)
	assert.Contains(t, res.Error, "buffer")
	assert.Empty(t, res.Detections)
}

func TestNew_DefaultFactory(t *testing.T) {
	d, err := detector.New(family.Default)
	if err != nil {
		assert.True(t, errors.Is(err, detector.ErrNoEngine), "unexpected error: %v", err)
		return
	}
	require.NoError(t, d.Close())
}
