// Package overlay hosts the interactive vector surface stacked above the
// raster page image: the drawing engine interface, its gg-backed
// implementation, and the synchronizer that keeps overlay geometry in
// exact agreement with the rendered page.
package overlay

import (
	"image"

	"doc-annotator/internal/annot"
	"doc-annotator/pkg/geometry"
)

// Object describes one drawable overlay object in screen coordinates.
type Object struct {
	Kind  annot.Type
	Rect  geometry.Rect // screen-space bounds on the overlay surface
	Text  string
	Style annot.Style
	Scale float64 // current viewport scale, for stroke/font sizing
}

// Engine is the vector overlay drawing surface. Implementations draw
// selectable objects plus transient editing chrome (selection handles,
// borders, placeholder tint) that is excluded from flatten snapshots.
type Engine interface {
	// CreateSurface resizes the overlay to exact pixel bounds, dropping
	// nothing: existing objects are re-drawn against the new surface on
	// the next rasterization.
	CreateSurface(width, height int)
	// SurfaceSize returns the current surface bounds.
	SurfaceSize() (width, height int)

	AddObject(o Object) uint64
	UpdateObject(id uint64, o Object) bool
	RemoveObject(id uint64) bool
	// Clear removes every object.
	Clear()

	// Select marks one object as selected (0 clears the selection).
	// Selection affects chrome only, never exported pixels.
	Select(id uint64)
	Selected() uint64

	// SetChromeVisible toggles transient editing chrome.
	SetChromeVisible(visible bool)
	ChromeVisible() bool

	// Rasterize draws all objects to an RGBA image of the surface size.
	// Chrome is included only while visible.
	Rasterize() *image.RGBA
}

// Snapshot rasterizes the overlay with chrome suppressed and restores the
// previous chrome state afterwards. The exported image contains only the
// user's authored content, not editor affordances.
func Snapshot(e Engine) *image.RGBA {
	was := e.ChromeVisible()
	e.SetChromeVisible(false)
	img := e.Rasterize()
	e.SetChromeVisible(was)
	return img
}
