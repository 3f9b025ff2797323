// Package session owns one open document: the annotation store, editor
// facade, render coordinator, overlay synchronizer and export pipeline,
// wired together behind LoadDocument/ExportDocument.
package session

import (
	"context"
	"image"
	"sync"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/config"
	"doc-annotator/internal/editor"
	"doc-annotator/internal/errs"
	"doc-annotator/internal/event"
	"doc-annotator/internal/export"
	"doc-annotator/internal/log"
	"doc-annotator/internal/overlay"
	"doc-annotator/internal/render"
	"doc-annotator/pkg/geometry"
)

// Canonical default extents for annotations placed with a single click.
// Highlights are normally sized by drag; this is the click fallback.
var defaultSizes = map[annot.Type]geometry.Size{
	annot.Text:      {Width: 160, Height: 40},
	annot.Signature: {Width: 200, Height: 60},
	annot.Highlight: {Width: 120, Height: 18},
	annot.Checkbox:  {Width: annot.CheckboxGlyphSize, Height: annot.CheckboxGlyphSize},
}

// DocumentView is the single owner of one open document's editing state.
// It is not shared across task graphs: UI callbacks funnel into it from
// one goroutine, while render completion arrives through the
// coordinator's serialized apply path.
type DocumentView struct {
	cfg       *config.Config
	bus       *event.Bus
	renderer  render.PageRenderer
	store     *annot.Store
	facade    *editor.Facade
	sync      *overlay.Synchronizer
	coord     *render.Coordinator
	flattener *export.Flattener

	mu  sync.Mutex
	doc render.Document
}

// NewDocumentView builds the full editing pipeline from configuration.
func NewDocumentView(cfg *config.Config, bus *event.Bus) (*DocumentView, error) {
	renderer, err := render.NewRenderer(string(cfg.Renderer))
	if err != nil {
		return nil, err
	}

	store := annot.NewStore()
	syncer := overlay.NewSynchronizer(overlay.NewGGEngine(), store)
	v := &DocumentView{
		cfg:       cfg,
		bus:       bus,
		renderer:  renderer,
		store:     store,
		facade:    editor.New(bus, cfg.Styles),
		sync:      syncer,
		flattener: export.NewFlattener(cfg.ExportDPI),
	}
	v.coord = render.NewCoordinator(renderer, cfg, bus, func(vp *render.Viewport, _ float64) {
		syncer.SyncToViewport(vp)
	})
	return v, nil
}

// Facade exposes the editor-state machine for toolbar wiring.
func (v *DocumentView) Facade() *editor.Facade { return v.facade }

// Store exposes the annotation store, e.g. for sidecar persistence.
func (v *DocumentView) Store() *annot.Store { return v.store }

// Coordinator exposes the render coordinator for viewport wiring.
func (v *DocumentView) Coordinator() *render.Coordinator { return v.coord }

// Overlay exposes the synchronizer, e.g. for compositing the surface.
func (v *DocumentView) Overlay() *overlay.Synchronizer { return v.sync }

// LoadDocument opens document bytes, replacing any current document and
// dropping its annotations, then kicks off a render of page 1. The
// returned handle resolves when the first page is on screen.
func (v *DocumentView) LoadDocument(ctx context.Context, data []byte) (*render.Handle, error) {
	doc, err := v.renderer.Open(ctx, data)
	if err != nil {
		v.bus.EmitError(errs.KindOf(err), err.Error())
		return nil, err
	}

	v.mu.Lock()
	old := v.doc
	v.doc = doc
	v.mu.Unlock()
	if old != nil {
		old.Close()
	}

	v.store.Reset()
	v.sync.Unmount()
	v.coord.SetDocument(doc)
	log.Infof("session: loaded document, %d page(s)", doc.PageCount())
	return v.coord.RequestRender(1, 1.0, geometry.Rotate0), nil
}

// Document returns the open document handle, or nil.
func (v *DocumentView) Document() render.Document {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.doc
}

// ShowPage renders another page at the current scale and rotation.
func (v *DocumentView) ShowPage(pageIndex int) *render.Handle {
	scale, rot := 1.0, geometry.Rotate0
	if vp := v.coord.Current(); vp != nil {
		scale, rot = vp.Scale, vp.Rotation
	}
	return v.coord.RequestRender(pageIndex, scale, rot)
}

// SetScale re-renders the current page at an absolute scale.
func (v *DocumentView) SetScale(scale float64) *render.Handle {
	vp := v.coord.Current()
	if vp == nil {
		return nil
	}
	return v.coord.RequestRender(vp.PageIndex, scale, vp.Rotation)
}

// ZoomIn steps the scale up by the configured zoom factor.
func (v *DocumentView) ZoomIn() *render.Handle { return v.zoomBy(v.cfg.ZoomStep) }

// ZoomOut steps the scale down by the configured zoom factor.
func (v *DocumentView) ZoomOut() *render.Handle { return v.zoomBy(1 / v.cfg.ZoomStep) }

func (v *DocumentView) zoomBy(factor float64) *render.Handle {
	vp := v.coord.Current()
	if vp == nil {
		return nil
	}
	return v.coord.RequestRender(vp.PageIndex, vp.Scale*factor, vp.Rotation)
}

// RotateClockwise turns the view a quarter turn clockwise.
func (v *DocumentView) RotateClockwise() *render.Handle {
	vp := v.coord.Current()
	if vp == nil {
		return nil
	}
	return v.coord.RequestRender(vp.PageIndex, vp.Scale, (vp.Rotation + geometry.Rotate90).Normalize())
}

// PlaceAt creates an annotation of the active mode at a surface point,
// using the mode's style defaults. Returns nil when no mode is active or
// no page is mounted.
func (v *DocumentView) PlaceAt(screen geometry.Point2D) *annot.Annotation {
	kind, ok := v.facade.Mode().AnnotationType()
	if !ok {
		return nil
	}
	vp := v.coord.Current()
	if vp == nil {
		return nil
	}

	pos := v.sync.ScreenToCanonical(screen)
	params := v.facade.StyleFor(v.facade.Mode())
	a := annot.New(kind, vp.PageIndex, pos, defaultSizes[kind], params.Style)
	v.store.Add(a)
	v.sync.Materialize(a)
	v.sync.Select(a.ID)
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: a.ID, Action: "add"})
	return a
}

// DragHighlight creates a highlight spanning a dragged surface rect,
// regardless of the active mode's click size.
func (v *DocumentView) DragHighlight(screen geometry.Rect) *annot.Annotation {
	vp := v.coord.Current()
	if vp == nil {
		return nil
	}
	r := v.sync.Transform().RectToCanonical(screen)
	params := v.facade.StyleFor(editor.ModeHighlight)
	a := annot.New(annot.Highlight, vp.PageIndex,
		geometry.Point2D{X: r.X, Y: r.Y},
		geometry.Size{Width: r.Width, Height: r.Height},
		params.Style)
	v.store.Add(a)
	v.sync.Materialize(a)
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: a.ID, Action: "add"})
	return a
}

// EditText replaces an annotation's text content.
func (v *DocumentView) EditText(id, text string) bool {
	if !v.store.Update(id, func(a *annot.Annotation) { a.Text = text }) {
		return false
	}
	v.sync.Refresh(id)
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: id, Action: "update"})
	return true
}

// MoveTo repositions an annotation to a new surface point.
func (v *DocumentView) MoveTo(id string, screen geometry.Point2D) bool {
	pos := v.sync.ScreenToCanonical(screen)
	if !v.store.Update(id, func(a *annot.Annotation) { a.Position = pos }) {
		return false
	}
	v.sync.Refresh(id)
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: id, Action: "update"})
	return true
}

// ResizeTo gives an annotation a new extent from surface dimensions.
func (v *DocumentView) ResizeTo(id string, screen geometry.Size) bool {
	size := v.sync.SizeToCanonical(screen)
	if !v.store.Update(id, func(a *annot.Annotation) { a.Size = size }) {
		return false
	}
	v.sync.Refresh(id)
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: id, Action: "update"})
	return true
}

// ToggleChecked flips a checkbox annotation's checked state.
func (v *DocumentView) ToggleChecked(id string) bool {
	a := v.store.Get(id)
	if a == nil || a.Type != annot.Checkbox {
		return false
	}
	v.store.Update(id, func(a *annot.Annotation) { a.Style.Checked = !a.Style.Checked })
	v.sync.Refresh(id)
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: id, Action: "update"})
	return true
}

// RemoveAnnotation deletes an annotation and its overlay object.
func (v *DocumentView) RemoveAnnotation(id string) bool {
	v.sync.Discard(id)
	if !v.store.Remove(id) {
		return false
	}
	v.bus.Emit(event.AnnotationsModified, event.AnnotationsModifiedData{ID: id, Action: "remove"})
	return true
}

// SelectAt moves the selection to the annotation under a surface point,
// clearing it when the point hits nothing. Returns the hit, if any.
func (v *DocumentView) SelectAt(screen geometry.Point2D) *annot.Annotation {
	hit := v.sync.AnnotationAt(screen)
	if hit == nil {
		v.sync.Select("")
		return nil
	}
	v.sync.Select(hit.ID)
	return hit
}

// Modified reports whether there are unexported annotation changes.
func (v *DocumentView) Modified() bool { return v.store.Dirty() }

// ExportDocument flattens every annotation into a copy of the document
// bytes. The modified flag is cleared only after the flatten succeeds;
// on failure the store and document bytes are untouched and the user can
// retry without reloading.
func (v *DocumentView) ExportDocument(ctx context.Context) (*export.Result, error) {
	v.mu.Lock()
	doc := v.doc
	v.mu.Unlock()
	if doc == nil {
		err := errs.New(errs.ExportError, "no document loaded")
		v.bus.EmitError(errs.ExportError, err.Msg)
		return nil, err
	}

	res, err := v.flattener.Flatten(ctx, doc.Bytes(), v.store)
	if err != nil {
		if !errs.IsCancelled(err) {
			v.bus.EmitError(errs.KindOf(err), err.Error())
		}
		return nil, err
	}

	v.store.MarkClean()
	v.bus.Emit(event.ExportComplete, event.ExportCompleteData{Pages: res.Pages, Bytes: len(res.Bytes)})
	return res, nil
}

// Thumbnail renders a first-page preview of the open document at the
// given pixel width.
func (v *DocumentView) Thumbnail(ctx context.Context, width uint) (*image.RGBA, error) {
	doc := v.Document()
	if doc == nil {
		return nil, errs.New(errs.UnsupportedPage, "no document loaded")
	}
	return render.Thumbnail(ctx, v.renderer, doc, width)
}

// Close releases the document and stops the coordinator.
func (v *DocumentView) Close() {
	v.coord.Close()
	v.mu.Lock()
	doc := v.doc
	v.doc = nil
	v.mu.Unlock()
	if doc != nil {
		doc.Close()
	}
}
