package detector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTag(id int) RawDetection {
	return RawDetection{
		ID:              id,
		HammingDistance: id % 3,
		Good:            id%2 == 0,
		Center:          Point{X: 10.125, Y: 20.0000001},
		Corners:         []Point{{X: 1.5, Y: 2.25}, {X: 3.1, Y: 4.7}, {X: 5, Y: 6}, {X: 7.000001, Y: 8}},
		Homography: [3][3]float64{
			{1, 2, 3},
			{4, 5, 6},
			{7, 8, 9},
		},
	}
}

func TestMarshal_CopiesFields(t *testing.T) {
	out := Marshal([]RawDetection{rawTag(4)})
	require.Len(t, out, 1)
	d := out[0]

	assert.Equal(t, 4, d.ID)
	assert.Equal(t, 1, d.HammingDistance)
	assert.True(t, d.Good)
	assert.Equal(t, [2]float64{10.125, 20.0000001}, d.Center)
	assert.Equal(t, [4][2]float64{{1.5, 2.25}, {3.1, 4.7}, {5, 6}, {7.000001, 8}}, d.Corners)
	assert.Equal(t, [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, d.Homography)
}

func TestMarshal_EmptyAndNil(t *testing.T) {
	assert.Empty(t, Marshal(nil))
	assert.NotNil(t, Marshal(nil))
	assert.Empty(t, Marshal([]RawDetection{}))
}

func TestMarshal_KeepsDuplicates(t *testing.T) {
	out := Marshal([]RawDetection{rawTag(7), rawTag(7), rawTag(1)})
	require.Len(t, out, 3)
	assert.Equal(t, []int{7, 7, 1}, []int{out[0].ID, out[1].ID, out[2].ID})
}

func TestMarshal_PanicsOnBadCorners(t *testing.T) {
	bad := rawTag(2)
	bad.Corners = bad.Corners[:3]
	assert.Panics(t, func() { Marshal([]RawDetection{rawTag(1), bad}) })

	bad.Corners = append(rawTag(2).Corners, Point{})
	assert.Panics(t, func() { Marshal([]RawDetection{bad}) })
}

func TestMarshal_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genIDs := gen.SliceOf(gen.IntRange(0, 586))

	properties.Property("count and order are preserved", prop.ForAll(
		func(ids []int) bool {
			raw := make([]RawDetection, len(ids))
			for i, id := range ids {
				raw[i] = rawTag(id)
			}
			out := Marshal(raw)
			if len(out) != len(raw) {
				return false
			}
			for i := range out {
				if out[i].ID != ids[i] {
					return false
				}
			}
			return true
		},
		genIDs,
	))

	properties.Property("homography is row-major", prop.ForAll(
		func(vals []float64) bool {
			r := rawTag(0)
			for i := range 9 {
				r.Homography[i/3][i%3] = vals[i]
			}
			out := Marshal([]RawDetection{r})
			for i := range 9 {
				if out[0].Homography[i] != vals[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(9, gen.Float64Range(-1e6, 1e6)),
	))

	properties.TestingRun(t)
}
