package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// BoardConfig describes a synthetic marker board: a grid of dark squares with
// a light quiet zone, roughly the shape of a printed tag target. The squares
// carry no code, so real engines find nothing on them; they give tests real
// pixels with known geometry.
type BoardConfig struct {
	Cols, Rows int
	// Cell is the side of one square in pixels.
	Cell int
	// Gap is the quiet zone between squares and around the board.
	Gap        int
	Background color.Color
	Foreground color.Color
	// Label writes the cell index in the middle of each square.
	Label bool
}

// DefaultBoardConfig returns a 4x3 board of 40px squares.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		Cols:       4,
		Rows:       3,
		Cell:       40,
		Gap:        10,
		Background: color.White,
		Foreground: color.Black,
	}
}

// Size returns the board size in pixels.
func (c BoardConfig) Size() (int, int) {
	return c.Cols*(c.Cell+c.Gap) + c.Gap, c.Rows*(c.Cell+c.Gap) + c.Gap
}

// CellRect returns the square of cell i, counted row-major from the top left.
func (c BoardConfig) CellRect(i int) image.Rectangle {
	col, row := i%c.Cols, i/c.Cols
	x := c.Gap + col*(c.Cell+c.Gap)
	y := c.Gap + row*(c.Cell+c.Gap)
	return image.Rect(x, y, x+c.Cell, y+c.Cell)
}

// GenerateBoard renders the board described by c.
func GenerateBoard(c BoardConfig) *image.RGBA {
	w, h := c.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.Background), image.Point{}, draw.Src)

	fg := image.NewUniform(c.Foreground)
	for i := range c.Cols * c.Rows {
		r := c.CellRect(i)
		draw.Draw(img, r, fg, image.Point{}, draw.Src)
		if c.Label {
			label := strconv.Itoa(i)
			face := basicfont.Face7x13
			tw := font.MeasureString(face, label).Ceil()
			d := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(c.Background),
				Face: face,
				Dot:  fixed.P(r.Min.X+(c.Cell-tw)/2, r.Min.Y+(c.Cell+face.Ascent)/2),
			}
			d.DrawString(label)
		}
	}
	return img
}

// SaveImage saves an image as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))

	file, err := os.Create(path) //nolint:gosec // G304: test file with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteBoard renders a board and saves it to dir/name, returning the path.
func WriteBoard(t *testing.T, dir, name string, c BoardConfig) string {
	t.Helper()
	p := filepath.Join(dir, name)
	SaveImage(t, GenerateBoard(c), p)
	return p
}

// GrayBuffer returns a packed w x h gray buffer filled with v.
func GrayBuffer(w, h int, v byte) []byte {
	buf := make([]byte, w*h)
	for i := range buf {
		buf[i] = v
	}
	return buf
}
