package viz

import (
	"image"
	"image/color"
	"image/gif"
	"io"
)

var framePalette = color.Palette{color.Black, color.RGBA{0x00, 0xff, 0x88, 0xff}}

// Rasterize renders every lit braille dot as a dot x dot block.
func Rasterize(c *Canvas, dot int) *image.Paletted {
	if dot < 1 {
		dot = 1
	}
	img := image.NewPaletted(image.Rect(0, 0, c.DotsX()*dot, c.DotsY()*dot), framePalette)
	for y := range c.DotsY() {
		for x := range c.DotsX() {
			if !c.IsSet(x, y) {
				continue
			}
			for py := range dot {
				for px := range dot {
					img.SetColorIndex(x*dot+px, y*dot+py, 1)
				}
			}
		}
	}
	return img
}

// WriteGIF encodes frames as a looping animation, delay in 1/100 s.
func WriteGIF(w io.Writer, frames []*image.Paletted, delay int) error {
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}
	return gif.EncodeAll(w, &anim)
}
