//go:build apriltag_16h5 || apriltag_all

package family

func init() {
	compiled = append(compiled, TagFamily{Name: "16h5", Dimension: 4, MinHammingDistance: 5, CodeCount: 30})
}
