//go:build !apriltag_gocv

package detector

func newDefaultEngine(_ Config) (Engine, error) {
	return nil, ErrNoEngine
}
