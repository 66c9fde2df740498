package mempool

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "zero gets minimum", input: 0, expected: 4096},
		{name: "small size gets minimum", input: 1, expected: 4096},
		{name: "exactly one step", input: 4096, expected: 4096},
		{name: "just over one step", input: 4097, expected: 8192},
		{name: "vga gray frame", input: 640 * 480, expected: 307200},
		{name: "vga rgb frame", input: 640 * 480 * 3, expected: 921600},
		{name: "odd size", input: 10000, expected: 12288},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes(t *testing.T) {
	buf := GetBytes(100)
	assert.Len(t, buf, 100)
	assert.Equal(t, 4096, cap(buf))

	buf = GetBytes(-5)
	assert.Empty(t, buf)
}

func TestPutBytes_Reuse(t *testing.T) {
	buf := GetBytes(5000)
	require.Equal(t, 8192, cap(buf))
	buf[0] = 42
	PutBytes(buf)

	// sync.Pool may drop entries at any time, so only the shape is checked.
	again := GetBytes(6000)
	assert.Len(t, again, 6000)
	assert.Equal(t, 8192, cap(again))
}

func TestPutBytes_IgnoresForeignSlices(t *testing.T) {
	assert.NotPanics(t, func() {
		PutBytes(nil)
		PutBytes(make([]byte, 10))
		PutBytes(make([]byte, 4095, 5000))
	})
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				buf := GetBytes(n*1000 + j)
				if len(buf) > 0 {
					buf[len(buf)-1] = byte(j)
				}
				PutBytes(buf)
			}
		}(i)
	}
	wg.Wait()
}

func TestGetBytes_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("length is exact and capacity is its size class", prop.ForAll(
		func(n int) bool {
			buf := GetBytes(n)
			defer PutBytes(buf)
			return len(buf) == n && cap(buf) == sizeClass(n) && cap(buf)%step == 0
		},
		gen.IntRange(0, 1<<21),
	))

	properties.TestingRun(t)
}
