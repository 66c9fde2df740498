package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// pixel rounds a sub-pixel [x, y] coordinate to the nearest pixel.
func pixel(p [2]float64) image.Point {
	return image.Pt(int(math.Round(p[0])), int(math.Round(p[1])))
}

// DrawPolygon strokes the closed outline through pts.
func DrawPolygon(dst draw.Image, pts [][2]float64, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		DrawLine(dst, pixel(pts[i]), pixel(pts[(i+1)%len(pts)]), col, thickness)
	}
}

// DrawLine strokes a Bresenham line from a to b. Pixels outside dst are skipped.
func DrawLine(dst draw.Image, a, b image.Point, col color.Color, thickness int) {
	src := image.NewUniform(col)
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	e := dx + dy
	for p := a; ; {
		stamp(dst, p, src, thickness)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

// FillSquare fills a (2r+1)-wide square centred on p.
func FillSquare(dst draw.Image, p [2]float64, r int, col color.Color) {
	stamp(dst, pixel(p), image.NewUniform(col), 2*r+1)
}

// stamp paints a size x size block centred on p, clipped to dst.
func stamp(dst draw.Image, p image.Point, src image.Image, size int) {
	size = max(size, 1)
	r := (size - 1) / 2
	block := image.Rect(p.X-r, p.Y-r, p.X-r+size, p.Y-r+size).Intersect(dst.Bounds())
	if block.Empty() {
		return
	}
	draw.Draw(dst, block, src, image.Point{}, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
