package render

import (
	"image"
	stddraw "image/draw"

	xdraw "golang.org/x/image/draw"

	"doc-annotator/pkg/geometry"
)

// toRGBA returns img as *image.RGBA, copying only when necessary.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(out, out.Bounds(), img, b.Min, stddraw.Src)
	return out
}

// scaleRGBA resamples img to the given pixel dimensions.
func scaleRGBA(img image.Image, width, height int) *image.RGBA {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return toRGBA(img)
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}

// rotateRGBA rotates img clockwise by a quarter-turn rotation.
func rotateRGBA(img *image.RGBA, rot geometry.Rotation) *image.RGBA {
	rot = rot.Normalize()
	if rot == geometry.Rotate0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var out *image.RGBA
	switch rot {
	case geometry.Rotate90:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case geometry.Rotate180:
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case geometry.Rotate270:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return out
}
