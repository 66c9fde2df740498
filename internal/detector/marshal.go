package detector

import "fmt"

// Marshal converts engine records into public detections, one for one and in
// order. A record without exactly four corners means the engine broke its
// contract; Marshal panics rather than guess.
func Marshal(raw []RawDetection) []TagDetection {
	out := make([]TagDetection, len(raw))
	for i, r := range raw {
		if len(r.Corners) != 4 {
			panic(fmt.Sprintf("detector: engine returned %d corners for tag %d", len(r.Corners), r.ID))
		}
		d := TagDetection{
			ID:              r.ID,
			HammingDistance: r.HammingDistance,
			Good:            r.Good,
			Center:          [2]float64{r.Center.X, r.Center.Y},
		}
		for j, c := range r.Corners {
			d.Corners[j] = [2]float64{c.X, c.Y}
		}
		for row := range 3 {
			for col := range 3 {
				d.Homography[row*3+col] = r.Homography[row][col]
			}
		}
		out[i] = d
	}
	return out
}
