//go:build apriltag_25h9 || apriltag_all

package family

func init() {
	compiled = append(compiled, TagFamily{Name: "25h9", Dimension: 5, MinHammingDistance: 9, CodeCount: 35})
}
