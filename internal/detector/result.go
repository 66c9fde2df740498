package detector

import "math"

// TagDetection is one recognized tag.
type TagDetection struct {
	ID              int           `json:"id"                yaml:"id"`
	HammingDistance int           `json:"hamming_distance"  yaml:"hamming_distance"`
	Good            bool          `json:"good"              yaml:"good"`
	Center          [2]float64    `json:"center"            yaml:"center"`
	Corners         [4][2]float64 `json:"corners"           yaml:"corners"`
	Homography      [9]float64    `json:"homography"        yaml:"homography"`
}

// SideLength returns the mean edge length in pixels.
func (d TagDetection) SideLength() float64 {
	var sum float64
	for i := range 4 {
		a, b := d.Corners[i], d.Corners[(i+1)%4]
		sum += math.Hypot(b[0]-a[0], b[1]-a[1])
	}
	return sum / 4
}

// Result is what the CLI and server emit for one image.
type Result struct {
	Source      string         `json:"source,omitempty"  yaml:"source,omitempty"`
	Family      string         `json:"family"            yaml:"family"`
	BlackBorder int            `json:"black_border"      yaml:"black_border"`
	Width       int            `json:"width"             yaml:"width"`
	Height      int            `json:"height"            yaml:"height"`
	Layout      string         `json:"layout,omitempty"  yaml:"layout,omitempty"`
	Detections  []TagDetection `json:"detections"        yaml:"detections"`
	DurationMs  float64        `json:"duration_ms"       yaml:"duration_ms"`
	Error       string         `json:"error,omitempty"   yaml:"error,omitempty"`
}

// IDs returns the tag ids in detection order.
func (r *Result) IDs() []int {
	ids := make([]int, len(r.Detections))
	for i, d := range r.Detections {
		ids[i] = d.ID
	}
	return ids
}
