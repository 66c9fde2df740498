package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/aprilgo/internal/family"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig("36h11")
	require.NoError(t, err)
	assert.Equal(t, "36h11", cfg.Family().Name)
	assert.Equal(t, 1, cfg.BlackBorder())
	assert.Equal(t, "family=36h11 black_border=1", cfg.String())
}

func TestNewConfig_DoubleBorder(t *testing.T) {
	cfg, err := NewConfig("36h11", WithBlackBorder(2))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.BlackBorder())
}

func TestNewConfig_InvalidBorder(t *testing.T) {
	for _, n := range []int{-1, 0, 3, 10} {
		_, err := NewConfig("36h11", WithBlackBorder(n))
		require.Error(t, err, "border %d", n)
		assert.True(t, errors.Is(err, ErrInvalidConfig))

		var ce *ConfigError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "black_border", ce.Field)
		assert.Equal(t, n, ce.Value)
	}
}

func TestNewConfig_UnknownFamily(t *testing.T) {
	_, err := NewConfig("99z99")
	assert.True(t, errors.Is(err, family.ErrUnknownFamily))
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewConfig_NegativeWarmup(t *testing.T) {
	_, err := NewConfig("36h11", WithWarmup(-1))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewConfig_LastOptionWins(t *testing.T) {
	cfg, err := NewConfig("36h11", WithBlackBorder(5), WithBlackBorder(2))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.BlackBorder())
}
