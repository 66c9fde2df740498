package family

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Default(t *testing.T) {
	f, err := Resolve(Default)
	require.NoError(t, err)
	assert.Equal(t, "36h11", f.Name)
	assert.Equal(t, 6, f.Dimension)
	assert.Equal(t, 36, f.Bits())
	assert.Equal(t, 11, f.MinHammingDistance)
	assert.Equal(t, 586, f.MaxID())
}

func TestResolve_Unknown(t *testing.T) {
	for _, id := range []string{"", "tag36h11", "36H11", "99h1", " 36h11"} {
		_, err := Resolve(id)
		require.Error(t, err, "id %q", id)
		assert.True(t, errors.Is(err, ErrUnknownFamily))

		var ufe *UnknownFamilyError
		require.True(t, errors.As(err, &ufe))
		assert.Equal(t, id, ufe.Name)
		assert.Contains(t, ufe.Supported, Default)
		assert.Contains(t, err.Error(), "36h11")
	}
}

func TestSupported_SortedAndStable(t *testing.T) {
	a := Supported()
	require.NotEmpty(t, a)
	assert.True(t, sort.StringsAreSorted(a))
	assert.Contains(t, a, Default)

	// Callers get a copy.
	a[0] = "mutated"
	assert.NotEqual(t, "mutated", Supported()[0])
}

func TestSupported_EveryEntryResolves(t *testing.T) {
	for _, id := range Supported() {
		f, err := Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, id, f.Name)
		assert.Positive(t, f.CodeCount)
		assert.GreaterOrEqual(t, f.MinHammingDistance, 5)
	}
	assert.Len(t, All(), len(Supported()))
}

func TestTagFamily_String(t *testing.T) {
	f, err := Resolve(Default)
	require.NoError(t, err)
	assert.Equal(t, "tag36h11 (36 bits, min hamming 11, 587 codes)", f.String())
}
