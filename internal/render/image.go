package render

import (
	"image"
	"image/color"
)

// To8 quantizes a premultiplied colour, clamping to [0,1].
func To8(c Color) color.RGBA {
	a := clamp01(c.A)
	q := func(v float32) uint8 {
		v = clamp01(v)
		if v > a {
			v = a
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{R: q(c.R), G: q(c.G), B: q(c.B), A: uint8(a*255 + 0.5)}
}

// ToImage copies a row-major framebuffer (row 0 at the top) into an
// 8-bit premultiplied image.
func ToImage(buf []Color, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if len(buf) < w*h {
		return img
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, To8(buf[y*w+x]))
		}
	}
	return img
}
