package family

func init() {
	compiled = append(compiled, TagFamily{Name: "36h11", Dimension: 6, MinHammingDistance: 11, CodeCount: 587})
}
