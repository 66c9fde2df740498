//go:build apriltag_25h7 || apriltag_all

package family

func init() {
	compiled = append(compiled, TagFamily{Name: "25h7", Dimension: 5, MinHammingDistance: 7, CodeCount: 242})
}
