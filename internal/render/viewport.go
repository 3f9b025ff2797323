package render

import (
	"image"

	"doc-annotator/pkg/geometry"
)

// Viewport is the state of one successfully rendered page view. It is an
// immutable value: scale, rotation or page changes produce a replacement
// viewport rather than mutating this one, which forces every dependent
// (overlay bounds, annotation screen geometry) to be recomputed instead
// of incrementally patched.
type Viewport struct {
	PageIndex int
	Scale     float64
	Rotation  geometry.Rotation

	// RasterWidth and RasterHeight are the pixel bounds of the rendered
	// page image at the current scale and rotation. The overlay surface
	// must share them exactly.
	RasterWidth  int
	RasterHeight int

	// PageSize is the page's natural size at scale 1.0, unrotated.
	PageSize geometry.Size

	// Raster is the rendered page image.
	Raster *image.RGBA
}

func newViewport(pageIndex int, scale float64, rot geometry.Rotation, r *PageRaster) *Viewport {
	b := r.Image.Bounds()
	return &Viewport{
		PageIndex:    pageIndex,
		Scale:        scale,
		Rotation:     rot.Normalize(),
		RasterWidth:  b.Dx(),
		RasterHeight: b.Dy(),
		PageSize:     geometry.NewSize(r.NaturalWidth, r.NaturalHeight),
		Raster:       r.Image,
	}
}

// Transform returns the canonical-to-screen mapping for this viewport.
func (v *Viewport) Transform() geometry.PageTransform {
	return geometry.NewPageTransform(v.Scale, v.Rotation, v.PageSize)
}
