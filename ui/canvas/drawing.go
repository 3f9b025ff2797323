package canvas

import (
	"image"
	"image/color"
)

var rubberBandColor = color.RGBA{R: 66, G: 133, B: 244, A: 255}

// drawRubberBand paints the in-progress highlight drag rectangle.
func (pc *PageCanvas) drawRubberBand(img *image.RGBA) {
	x1, y1 := int(pc.dragStart.X), int(pc.dragStart.Y)
	x2, y2 := int(pc.dragEnd.X), int(pc.dragEnd.Y)
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}

	bounds := img.Bounds()
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	x1 = clamp(x1, bounds.Min.X, bounds.Max.X-1)
	x2 = clamp(x2, bounds.Min.X, bounds.Max.X-1)
	y1 = clamp(y1, bounds.Min.Y, bounds.Max.Y-1)
	y2 = clamp(y2, bounds.Min.Y, bounds.Max.Y-1)

	for x := x1; x <= x2; x++ {
		img.SetRGBA(x, y1, rubberBandColor)
		img.SetRGBA(x, y2, rubberBandColor)
	}
	for y := y1; y <= y2; y++ {
		img.SetRGBA(x1, y, rubberBandColor)
		img.SetRGBA(x2, y, rubberBandColor)
	}
}
