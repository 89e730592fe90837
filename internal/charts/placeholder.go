package charts

import (
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder draws a themed image with the chart title and a message in
// place of a chart that has nothing to show.
func Placeholder(w io.Writer, f Format, title, message string) error {
	if f == SVG {
		_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
			`<rect width="100%%" height="100%%" fill="#2d2d2d"/>`+
			`<text x="%d" y="32" fill="#f5f5f5" font-family="Arial, sans-serif" font-size="16" text-anchor="middle">%s</text>`+
			`<text x="%d" y="%d" fill="#b0b0b0" font-family="Arial, sans-serif" font-size="13" text-anchor="middle">%s</text>`+
			`</svg>`,
			Width, Height, Width, Height,
			Width/2, html.EscapeString(title),
			Width/2, Height/2, html.EscapeString(message))
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 0x2d, G: 0x2d, B: 0x2d, A: 0xff}), image.Point{}, draw.Src)
	inner := image.Rect(16, 48, Width-16, Height-16)
	draw.Draw(img, inner, image.NewUniform(color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}), image.Point{}, draw.Src)

	centered(img, title, 30, color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff})
	centered(img, message, Height/2, color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff})
	return png.Encode(w, img)
}

func centered(dst draw.Image, text string, y int, col color.Color) {
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	tw := dr.MeasureString(text).Ceil()
	x := (dst.Bounds().Dx() - tw) / 2
	if x < 4 {
		x = 4
	}
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
}
