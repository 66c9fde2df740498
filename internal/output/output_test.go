package output

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
)

func sampleResults() []*detector.Result {
	return []*detector.Result{
		{
			Source: "a.png", Family: "36h11", BlackBorder: 1, Width: 100, Height: 80,
			Detections: []detector.TagDetection{{
				ID: 7, Good: true, Center: [2]float64{50.123, 40.5},
				Corners:    [4][2]float64{{40, 50}, {60, 50}, {60, 30}, {40, 30}},
				Homography: [9]float64{10, 0, 50, 0, -10, 40, 0, 0, 1},
			}},
		},
		{Source: "b.png", Family: "36h11", BlackBorder: 1, Width: 10, Height: 10},
		{Source: "c.png", Family: "36h11", Error: "invalid buffer size"},
	}
}

func TestFormat_Text(t *testing.T) {
	out, err := Format(sampleResults(), "text", 1)
	require.NoError(t, err)
	assert.Contains(t, out, "# a.png (100x80, tag36h11, border 1)")
	assert.Contains(t, out, "id=7 hamming=0 good=true center=(50.1, 40.5) side=20.0")
	assert.Contains(t, out, "no tags found")
	assert.Contains(t, out, "error: invalid buffer size")
}

func TestFormat_JSON(t *testing.T) {
	out, err := Format(sampleResults(), "json", 2)
	require.NoError(t, err)

	var doc struct {
		Images []detector.Result `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Images, 3)
	assert.Equal(t, 50.123, doc.Images[0].Detections[0].Center[0])
	assert.NotNil(t, doc.Images[1].Detections)
	assert.Contains(t, out, `"hamming_distance": 0`)
}

func TestFormat_YAML(t *testing.T) {
	out, err := Format(sampleResults(), "yaml", 2)
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc["images"], 3)
	assert.Equal(t, "a.png", doc["images"][0]["source"])
}

func TestFormat_CSV(t *testing.T) {
	out, err := Format(sampleResults(), "csv", 2)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "file", rows[0][0])
	assert.Equal(t, []string{"a.png", "36h11", "7", "0", "true", "50.12", "40.50"}, rows[1][:7])
	assert.Equal(t, "invalid buffer size", rows[3][15])
}

func TestFormat_Unsupported(t *testing.T) {
	_, err := Format(nil, "xml", 2)
	require.Error(t, err)
	assert.False(t, IsSupported("xml"))
	assert.True(t, IsSupported("yaml"))
}
