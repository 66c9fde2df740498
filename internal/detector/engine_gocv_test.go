//go:build apriltag_gocv

package detector_test

import (
	"fmt"
	"image"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
)

// renderBoard lays out tags 0..n-1 of tag36h11 on a white page, cols per
// row, each side pixels wide with a quiet zone around it. It returns the
// packed gray page.
func renderBoard(t *testing.T, n, cols, side, borderBits int) ([]byte, int, int) {
	t.Helper()
	const quiet = 40

	rows := (n + cols - 1) / cols
	w := cols*(side+quiet) + quiet
	h := rows*(side+quiet) + quiet

	page := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), h, w, gocv.MatTypeCV8UC1)
	defer page.Close()

	for id := range n {
		marker := gocv.NewMat()
		gocv.ArucoGenerateImageMarker(gocv.ArucoDictAprilTag_36h11, id, side, marker, borderBits)
		require.False(t, marker.Empty(), "marker %d", id)

		x := quiet + (id%cols)*(side+quiet)
		y := quiet + (id/cols)*(side+quiet)
		roi := page.Region(image.Rect(x, y, x+side, y+side))
		marker.CopyTo(&roi)
		roi.Close()
		marker.Close()
	}

	buf := slices.Clone(page.ToBytes())
	require.Len(t, buf, w*h)
	return buf, w, h
}

// toRGB repeats every gray byte three times.
func toRGB(gray []byte) []byte {
	out := make([]byte, 0, len(gray)*3)
	for _, v := range gray {
		out = append(out, v, v, v)
	}
	return out
}

// cornersInside reports the first corner lying outside a w x h image.
func cornersInside(dets []detector.TagDetection, w, h int) error {
	const slack = 0.5
	for _, d := range dets {
		for j, c := range d.Corners {
			if c[0] < -slack || c[1] < -slack || c[0] > float64(w)+slack || c[1] > float64(h)+slack {
				return fmt.Errorf("tag %d corner %d (%.2f,%.2f) outside %dx%d", d.ID, j, c[0], c[1], w, h)
			}
		}
	}
	return nil
}

func sortedIDs(dets []detector.TagDetection) []int {
	ids := make([]int, len(dets))
	for i, d := range dets {
		ids[i] = d.ID
	}
	slices.Sort(ids)
	return ids
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// 24 tags with a single-bit border.
func TestGocvEngine_SingleBorderGrid(t *testing.T) {
	buf, w, h := renderBoard(t, 24, 6, 80, 1)

	d, err := detector.New("36h11")
	require.NoError(t, err)
	defer d.Close()

	dets, err := d.Detect(buf, w, h)
	require.NoError(t, err)
	require.Len(t, dets, 24)
	for _, det := range dets {
		assert.True(t, det.Good)
		assert.Zero(t, det.HammingDistance)
	}
	assert.Equal(t, seq(24), sortedIDs(dets))
	assert.NoError(t, cornersInside(dets, w, h))

	// The same page packed as RGB yields the same tags.
	rgb, err := d.Detect(toRGB(buf), w, h)
	require.NoError(t, err)
	assert.Equal(t, sortedIDs(dets), sortedIDs(rgb))
}

// 36 tags printed with the double border of a Kalibr AprilGrid.
func TestGocvEngine_DoubleBorderGrid(t *testing.T) {
	buf, w, h := renderBoard(t, 36, 6, 100, 2)

	d2, err := detector.New("36h11", detector.WithBlackBorder(2))
	require.NoError(t, err)
	defer d2.Close()

	dets, err := d2.Detect(buf, w, h)
	require.NoError(t, err)
	require.Len(t, dets, 36)
	assert.Equal(t, seq(36), sortedIDs(dets))
	for _, det := range dets {
		assert.Zero(t, det.HammingDistance)
	}

	d1, err := detector.New("36h11")
	require.NoError(t, err)
	defer d1.Close()

	single, err := d1.Detect(buf, w, h)
	require.NoError(t, err)
	assert.Less(t, len(single), 36)
}

func TestGocvEngine_CenterMatchesHomography(t *testing.T) {
	buf, w, h := renderBoard(t, 4, 2, 80, 1)

	d, err := detector.New("36h11")
	require.NoError(t, err)
	defer d.Close()

	dets, err := d.Detect(buf, w, h)
	require.NoError(t, err)
	require.Len(t, dets, 4)
	for _, det := range dets {
		var hm [3][3]float64
		for i, v := range det.Homography {
			hm[i/3][i%3] = v
		}
		c := detector.Project(hm, 0, 0)
		assert.InDelta(t, det.Center[0], c.X, 1e-6)
		assert.InDelta(t, det.Center[1], c.Y, 1e-6)

		corner := detector.Project(hm, -1, -1)
		assert.InDelta(t, det.Corners[0][0], corner.X, 1e-3)
		assert.InDelta(t, det.Corners[0][1], corner.Y, 1e-3)
	}
}

func TestGocvEngine_EmptyPage(t *testing.T) {
	d, err := detector.New("36h11")
	require.NoError(t, err)
	defer d.Close()

	dets, err := d.Detect(make([]byte, 64*48), 64, 48)
	require.NoError(t, err)
	assert.Empty(t, dets)
}
