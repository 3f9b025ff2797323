package geometry

import (
	"math"
)

// Rotation is a page rotation in degrees, clockwise. Only quarter turns
// are representable.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Normalize maps any multiple of 90 into [0, 360).
func (r Rotation) Normalize() Rotation {
	n := int(r) % 360
	if n < 0 {
		n += 360
	}
	return Rotation(n)
}

// Swaps reports whether the rotation exchanges width and height.
func (r Rotation) Swaps() bool {
	n := r.Normalize()
	return n == Rotate90 || n == Rotate270
}

// Radians returns the rotation angle in radians.
func (r Rotation) Radians() float64 {
	return float64(r.Normalize()) * math.Pi / 180.0
}

// PageTransform maps canonical page-space geometry (scale 1.0, unrotated)
// to on-screen overlay coordinates for a given scale and rotation, and
// back. Screen coordinates are y-down with the origin at the top-left of
// the rotated, scaled page raster.
//
// The mapping is built once as an affine transform: rotate the page about
// its origin, translate the result back into the positive quadrant, then
// scale. Both directions are total functions; ToCanonical(ToScreen(p)) == p
// up to floating-point rounding for every positive scale.
type PageTransform struct {
	Scale    float64
	Rotation Rotation
	PageSize Size // natural page size at scale 1.0

	forward AffineTransform
	inverse AffineTransform
}

// NewPageTransform builds the transform for the given scale, rotation and
// natural page size. Scale must be positive.
func NewPageTransform(scale float64, rot Rotation, page Size) PageTransform {
	rot = rot.Normalize()

	var tx, ty float64
	switch rot {
	case Rotate90:
		tx, ty = page.Height, 0
	case Rotate180:
		tx, ty = page.Width, page.Height
	case Rotate270:
		tx, ty = 0, page.Width
	}

	forward := Scaling(scale, scale).
		Compose(Translation(tx, ty)).
		Compose(RotationRad(rot.Radians()))

	// A pure rotate/translate/scale transform with positive scale is
	// always invertible.
	inverse, _ := forward.Inverse()

	return PageTransform{
		Scale:    scale,
		Rotation: rot,
		PageSize: page,
		forward:  forward,
		inverse:  inverse,
	}
}

// ToScreen maps a canonical point to screen coordinates.
func (t PageTransform) ToScreen(p Point2D) Point2D {
	return t.forward.Apply(p)
}

// ToCanonical maps a screen point back to canonical page space.
func (t PageTransform) ToCanonical(p Point2D) Point2D {
	return t.inverse.Apply(p)
}

// RectToScreen maps a canonical rectangle to its screen bounding box.
func (t PageTransform) RectToScreen(r Rect) Rect {
	corners := r.Corners()
	mapped := make([]Point2D, len(corners))
	for i, c := range corners {
		mapped[i] = t.forward.Apply(c)
	}
	return BoundingBox(mapped)
}

// RectToCanonical maps a screen rectangle back to canonical page space.
func (t PageTransform) RectToCanonical(r Rect) Rect {
	corners := r.Corners()
	mapped := make([]Point2D, len(corners))
	for i, c := range corners {
		mapped[i] = t.inverse.Apply(c)
	}
	return BoundingBox(mapped)
}

// SizeToScreen maps a canonical size to screen pixels, swapping the axes
// for quarter-turn rotations.
func (t PageTransform) SizeToScreen(s Size) Size {
	scaled := s.Scale(t.Scale)
	if t.Rotation.Swaps() {
		return scaled.Swap()
	}
	return scaled
}

// SizeToCanonical maps a screen size back to canonical page units.
func (t PageTransform) SizeToCanonical(s Size) Size {
	if t.Rotation.Swaps() {
		s = s.Swap()
	}
	return s.Scale(1.0 / t.Scale)
}

// SurfaceSize returns the rotated, scaled page extent: the exact pixel
// bounds the overlay surface must share with the page raster.
func (t PageTransform) SurfaceSize() Size {
	return t.SizeToScreen(t.PageSize)
}
