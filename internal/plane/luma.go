package plane

// Fixed-point BT.601 weights with 14 fractional bits, identical to OpenCV's
// COLOR_RGB2GRAY so planes match what cv::cvtColor produces.
const (
	lumaShift = 14
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaRound = 1 << (lumaShift - 1)
)

// Luma returns the 8-bit luminance of an RGB triple.
func Luma(r, g, b byte) byte {
	return byte((lumaR*uint32(r) + lumaG*uint32(g) + lumaB*uint32(b) + lumaRound) >> lumaShift)
}

// lumaPacked converts interleaved pixels with the given stride; channels past
// the third are ignored.
func lumaPacked(dst, src []byte, stride int) {
	for i, j := 0, 0; i < len(dst); i, j = i+1, j+stride {
		dst[i] = Luma(src[j], src[j+1], src[j+2])
	}
}
