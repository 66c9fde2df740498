//go:build apriltag_gocv

package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/MeKo-Tech/aprilgo/internal/family"
	"github.com/MeKo-Tech/aprilgo/internal/plane"
)

var arucoDictionaries = map[string]gocv.ArucoDictionaryCode{
	"36h11": gocv.ArucoDictAprilTag_36h11,
	"25h9":  gocv.ArucoDictAprilTag_25h9,
	"16h5":  gocv.ArucoDictAprilTag_16h5,
}

// Tag-local corner positions, in the order corners are reported.
var tagSquare = []gocv.Point2f{
	{X: -1, Y: -1},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
}

type gocvEngine struct {
	aruco gocv.ArucoDetector
}

func newDefaultEngine(cfg Config) (Engine, error) {
	code, ok := arucoDictionaries[cfg.Family().Name]
	if !ok {
		return nil, &family.UnknownFamilyError{Name: cfg.Family().Name, Supported: gocvFamilies()}
	}

	params := gocv.NewArucoDetectorParameters()
	params.SetMarkerBorderBits(cfg.BlackBorder())

	return &gocvEngine{
		aruco: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(code), params),
	}, nil
}

func gocvFamilies() []string {
	var out []string
	for _, name := range family.Supported() {
		if _, ok := arucoDictionaries[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (e *gocvEngine) Extract(p *plane.Plane, _ Config) ([]RawDetection, error) {
	mat, err := gocv.NewMatFromBytes(p.Height, p.Width, gocv.MatTypeCV8UC1, p.Data)
	if err != nil {
		return nil, fmt.Errorf("wrap plane: %w", err)
	}
	defer mat.Close()

	corners, ids, _ := e.aruco.DetectMarkers(mat)

	out := make([]RawDetection, 0, len(ids))
	for i, id := range ids {
		q := corners[i]
		if len(q) != 4 {
			return nil, fmt.Errorf("marker %d: %d corners", id, len(q))
		}
		// ArUco reports top-left, top-right, bottom-right, bottom-left.
		ordered := []gocv.Point2f{q[3], q[2], q[1], q[0]}

		h, err := homography(ordered)
		if err != nil {
			return nil, fmt.Errorf("marker %d: %w", id, err)
		}

		raw := RawDetection{
			ID:   id,
			Good: true,
			// OpenCV only returns accepted markers and does not expose the
			// number of corrected bits.
			HammingDistance: 0,
			Homography:      h,
			Corners:         make([]Point, 4),
		}
		for j, c := range ordered {
			raw.Corners[j] = Point{X: float64(c.X), Y: float64(c.Y)}
		}
		raw.Center = Project(h, 0, 0)
		out = append(out, raw)
	}
	return out, nil
}

func (e *gocvEngine) Close() error {
	return e.aruco.Close()
}

// homography maps the tag-local square onto the detected corners.
func homography(corners []gocv.Point2f) ([3][3]float64, error) {
	var h [3][3]float64

	src := gocv.NewPoint2fVectorFromPoints(tagSquare)
	defer src.Close()
	dst := gocv.NewPoint2fVectorFromPoints(corners)
	defer dst.Close()

	m := gocv.GetPerspectiveTransform2f(src, dst)
	defer m.Close()
	if m.Empty() || m.Rows() != 3 || m.Cols() != 3 {
		return h, errors.New("degenerate quad")
	}
	for r := range 3 {
		for c := range 3 {
			h[r][c] = m.GetDoubleAt(r, c)
		}
	}
	return h, nil
}
