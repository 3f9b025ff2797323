package overlay

import (
	"image"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/log"
	"doc-annotator/internal/render"
	"doc-annotator/pkg/geometry"
)

// Synchronizer keeps the overlay engine's screen-space objects consistent
// with the annotation store's canonical (scale 1.0) records. Screen rects
// are always recomputed from canonical values through the current page
// transform, never rescaled from previous screen values.
type Synchronizer struct {
	engine Engine
	store  *annot.Store

	pageIndex int
	scale     float64
	rotation  geometry.Rotation
	transform geometry.PageTransform
	mounted   bool
}

// NewSynchronizer returns a synchronizer with no mounted viewport.
func NewSynchronizer(engine Engine, store *annot.Store) *Synchronizer {
	return &Synchronizer{engine: engine, store: store, pageIndex: -1}
}

// Engine exposes the underlying overlay engine.
func (s *Synchronizer) Engine() Engine { return s.engine }

// PageIndex returns the currently mounted page, or -1 if none.
func (s *Synchronizer) PageIndex() int {
	if !s.mounted {
		return -1
	}
	return s.pageIndex
}

// Transform returns the page transform of the mounted viewport.
func (s *Synchronizer) Transform() geometry.PageTransform { return s.transform }

// SyncToViewport resizes the overlay surface to the viewport raster and
// reconciles the mounted objects. A page change remounts the new page's
// annotations; a scale or rotation change on the same page recomputes
// every object's screen rect from its canonical record.
func (s *Synchronizer) SyncToViewport(vp *render.Viewport) {
	if vp == nil {
		return
	}
	s.transform = vp.Transform()
	s.engine.CreateSurface(vp.RasterWidth, vp.RasterHeight)

	switch {
	case !s.mounted || vp.PageIndex != s.pageIndex:
		s.remount(vp.PageIndex)
	case vp.Scale != s.scale || vp.Rotation != s.rotation:
		s.reproject()
	}

	s.pageIndex = vp.PageIndex
	s.scale = vp.Scale
	s.rotation = vp.Rotation
	s.mounted = true
}

// Unmount clears the surface, e.g. when the document is closed.
func (s *Synchronizer) Unmount() {
	s.engine.Clear()
	s.mounted = false
	s.pageIndex = -1
}

func (s *Synchronizer) remount(pageIndex int) {
	s.engine.Clear()
	for _, a := range s.store.ByPage(pageIndex) {
		ref := s.engine.AddObject(s.objectFor(a))
		s.store.BindOverlay(a.ID, ref)
	}
}

func (s *Synchronizer) reproject() {
	for _, a := range s.store.ByPage(s.pageIndex) {
		if a.OverlayRef == 0 {
			continue
		}
		if !s.engine.UpdateObject(a.OverlayRef, s.objectFor(a)) {
			log.Warnf("overlay: stale handle %d for annotation %s", a.OverlayRef, a.ID)
		}
	}
}

// Materialize mounts a newly created annotation if it belongs to the
// current page, binding its overlay handle.
func (s *Synchronizer) Materialize(a *annot.Annotation) {
	if !s.mounted || a.PageIndex != s.pageIndex {
		return
	}
	ref := s.engine.AddObject(s.objectFor(a))
	s.store.BindOverlay(a.ID, ref)
}

// Refresh redraws one annotation's object after a store update.
func (s *Synchronizer) Refresh(id string) {
	a := s.store.Get(id)
	if a == nil || !s.mounted || a.PageIndex != s.pageIndex || a.OverlayRef == 0 {
		return
	}
	s.engine.UpdateObject(a.OverlayRef, s.objectFor(a))
}

// Discard removes an annotation's object from the surface. Call before
// deleting the record from the store.
func (s *Synchronizer) Discard(id string) {
	a := s.store.Get(id)
	if a == nil || a.OverlayRef == 0 {
		return
	}
	s.engine.RemoveObject(a.OverlayRef)
	s.store.BindOverlay(id, 0)
}

// Select moves the selection chrome to the given annotation, or clears
// it when id is empty.
func (s *Synchronizer) Select(id string) {
	if id == "" {
		s.engine.Select(0)
		return
	}
	a := s.store.Get(id)
	if a == nil || a.OverlayRef == 0 {
		return
	}
	s.engine.Select(a.OverlayRef)
}

// AnnotationAt returns the topmost annotation under a screen point.
func (s *Synchronizer) AnnotationAt(screen geometry.Point2D) *annot.Annotation {
	if !s.mounted {
		return nil
	}
	anns := s.store.ByPage(s.pageIndex)
	for i := len(anns) - 1; i >= 0; i-- {
		r := s.transform.RectToScreen(displayBounds(anns[i]))
		if screen.X >= r.X && screen.X <= r.X+r.Width &&
			screen.Y >= r.Y && screen.Y <= r.Y+r.Height {
			return anns[i]
		}
	}
	return nil
}

// ScreenToCanonical maps a surface point back to scale-1.0 page space.
func (s *Synchronizer) ScreenToCanonical(p geometry.Point2D) geometry.Point2D {
	return s.transform.ToCanonical(p)
}

// SizeToCanonical maps a surface extent back to scale-1.0 page space.
func (s *Synchronizer) SizeToCanonical(sz geometry.Size) geometry.Size {
	return s.transform.SizeToCanonical(sz)
}

// Snapshot rasterizes the current surface without editing chrome.
func (s *Synchronizer) Snapshot() *image.RGBA {
	return Snapshot(s.engine)
}

func (s *Synchronizer) objectFor(a *annot.Annotation) Object {
	return ObjectFor(a, s.transform)
}

// displayBounds is the canonical rectangle an annotation occupies on the
// surface. Checkboxes are anchored by position; the glyph keeps a fixed
// canonical size regardless of the stored record.
func displayBounds(a *annot.Annotation) geometry.Rect {
	bounds := a.Bounds()
	if a.Type == annot.Checkbox {
		bounds.Width = annot.CheckboxGlyphSize
		bounds.Height = annot.CheckboxGlyphSize
	}
	return bounds
}

// ObjectFor maps a canonical annotation record to a screen-space overlay
// object under the given transform.
func ObjectFor(a *annot.Annotation, t geometry.PageTransform) Object {
	bounds := displayBounds(a)
	scale := t.Scale
	if scale <= 0 {
		scale = 1
	}
	return Object{
		Kind:  a.Type,
		Rect:  t.RectToScreen(bounds),
		Text:  a.Text,
		Style: a.Style,
		Scale: scale,
	}
}

// RasterizePage draws a set of annotations, chrome-free, onto a fresh
// surface sized by the transform. Used by export, where the raster
// resolution is independent of any live view.
func RasterizePage(anns []*annot.Annotation, t geometry.PageTransform) *image.RGBA {
	e := NewGGEngine()
	e.SetChromeVisible(false)
	sz := t.SurfaceSize()
	e.CreateSurface(int(sz.Width+0.5), int(sz.Height+0.5))
	for _, a := range anns {
		e.AddObject(ObjectFor(a, t))
	}
	return e.Rasterize()
}
