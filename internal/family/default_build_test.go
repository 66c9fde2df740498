//go:build !apriltag_36h9 && !apriltag_25h9 && !apriltag_25h7 && !apriltag_16h5 && !apriltag_all

package family

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBuild_OnlyDefaultFamily(t *testing.T) {
	assert.Equal(t, []string{"36h11"}, Supported())

	// Real upstream families that were not compiled in are rejected like any other name.
	for _, id := range []string{"36h9", "25h9", "25h7", "16h5"} {
		_, err := Resolve(id)
		assert.True(t, errors.Is(err, ErrUnknownFamily), id)
	}
}
