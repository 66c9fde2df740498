//go:build apriltag_all

package family

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_OptionalFamilies(t *testing.T) {
	cases := []struct {
		id   string
		dim  int
		hd   int
		nids int
	}{
		{"36h9", 6, 9, 5329},
		{"25h9", 5, 9, 35},
		{"25h7", 5, 7, 242},
		{"16h5", 4, 5, 30},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			f, err := Resolve(tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.dim, f.Dimension)
			assert.Equal(t, tc.hd, f.MinHammingDistance)
			assert.Equal(t, tc.nids, f.CodeCount)
		})
	}
	assert.Equal(t, []string{"16h5", "25h7", "25h9", "36h11", "36h9"}, Supported())
}
