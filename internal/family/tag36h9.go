//go:build apriltag_36h9 || apriltag_all

package family

func init() {
	compiled = append(compiled, TagFamily{Name: "36h9", Dimension: 6, MinHammingDistance: 9, CodeCount: 5329})
}
