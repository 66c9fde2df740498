// Package overlay draws detections on top of the source image.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/utils"
)

// Options controls what Render draws.
type Options struct {
	OutlineColor color.Color
	CornerColor  color.Color
	LabelColor   color.Color
	Thickness    int
	DrawCenter   bool
	DrawLabels   bool
}

// DefaultOptions returns a green outline with the first corner marked in red.
func DefaultOptions() Options {
	return Options{
		OutlineColor: color.RGBA{0, 255, 0, 255},
		CornerColor:  color.RGBA{255, 0, 0, 255},
		LabelColor:   color.RGBA{255, 255, 0, 255},
		Thickness:    2,
		DrawCenter:   true,
		DrawLabels:   true,
	}
}

// Render returns an RGBA copy of img with every detection drawn on it.
func Render(img image.Image, dets []detector.TagDetection, opts Options) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	if opts.Thickness < 1 {
		opts.Thickness = 1
	}
	for _, d := range dets {
		utils.DrawPolygon(dst, d.Corners[:], opts.OutlineColor, opts.Thickness)
		utils.FillSquare(dst, d.Corners[0], opts.Thickness+1, opts.CornerColor)

		if opts.DrawCenter {
			utils.FillSquare(dst, d.Center, opts.Thickness, opts.OutlineColor)
		}
		if opts.DrawLabels {
			drawLabel(dst, d.Center, strconv.Itoa(d.ID), opts.LabelColor)
		}
	}
	return dst
}

func drawLabel(dst *image.RGBA, at [2]float64, text string, col color.Color) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(int(at[0])-w/2, int(at[1])-face.Metrics().Height.Ceil()/2-2),
	}
	d.DrawString(text)
}

// Encode writes the overlay as PNG.
func Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Save writes the overlay for source into dir as <name>_overlay.png and
// returns the written path.
func Save(dir, source string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create overlay dir: %w", err)
	}
	base := filepath.Base(source)
	out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")

	f, err := os.Create(out) //nolint:gosec // G304: overlay dir comes from the CLI
	if err != nil {
		return "", err
	}
	if err := Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encode overlay: %w", err)
	}
	return out, f.Close()
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
