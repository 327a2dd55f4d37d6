package extractfaces

import (
	"image"
)

// Grayscale converts the image to an 8 bit luma image with its origin at (0, 0)
// and a stride equal to its width, the layout both detector backends expect.
func Grayscale(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dx, dy := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, dx, dy))

	if nrgba, ok := src.(*image.NRGBA); ok {
		for y := 0; y < dy; y++ {
			si := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			di := y * dst.Stride
			for x := 0; x < dx; x++ {
				r, g, b := nrgba.Pix[si], nrgba.Pix[si+1], nrgba.Pix[si+2]
				dst.Pix[di+x] = luma(uint32(r)<<8|uint32(r), uint32(g)<<8|uint32(g), uint32(b)<<8|uint32(b))
				si += 4
			}
		}
		return dst
	}

	for y := 0; y < dy; y++ {
		for x := 0; x < dx; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			dst.Pix[y*dst.Stride+x] = luma(r, g, b)
		}
	}
	return dst
}

// luma weights 16 bit color channels with the ITU-R 601 coefficients.
func luma(r, g, b uint32) uint8 {
	lum := float32(r)*0.299 + float32(g)*0.587 + float32(b)*0.114
	return uint8(lum / 256)
}
