package extractfaces

import (
	"image"
	"image/color"
	"image/draw"
)

// BoxColor is the outline color used in annotate mode.
var BoxColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// BoxThickness is the outline width, in pixels, used in annotate mode.
const BoxThickness = 2

// DrawRect outlines the box on img. The stroke grows inward from the box
// edges and is clipped to the image bounds.
func DrawRect(img draw.Image, b Box, c color.Color, thickness int) {
	r := b.Rect().Intersect(img.Bounds())
	if r.Empty() || thickness < 1 {
		return
	}
	fill := image.NewUniform(c)

	t := thickness
	if t > r.Dx() {
		t = r.Dx()
	}
	if t > r.Dy() {
		t = r.Dy()
	}

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), // top
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), // left
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(img, e, fill, image.Point{}, draw.Src)
	}
}
