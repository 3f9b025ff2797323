// Package canvas provides the page canvas: the rendered page raster with
// the annotation overlay composited on top, plus pan, zoom and pointer
// handling.
package canvas

import (
	"image"
	"image/draw"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"doc-annotator/internal/session"
	"doc-annotator/pkg/geometry"
)

// PageCanvas displays one rendered page with its interactive overlay.
// All pointer coordinates delivered through the callbacks are overlay
// surface pixels; the session maps them to canonical page space.
type PageCanvas struct {
	widget.BaseWidget

	view *session.DocumentView

	raster  *fynecanvas.Raster
	scroll  *zoomScroll
	content *draggableContent
	imgSize fyne.Size

	// Rubber-band drag state
	dragging  bool
	dragStart fyne.Position
	dragEnd   fyne.Position

	fitToWindow    bool
	lastScrollSize fyne.Size

	onTap      func(p geometry.Point2D)
	onAltTap   func(p geometry.Point2D)
	onDragRect func(r geometry.Rect)
	onZoom     func(in bool)
}

// zoomScroll wraps a scroll container but intercepts the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *PageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *PageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if zs.canvas.onZoom == nil {
		return
	}
	if ev.Scrolled.DY > 0 {
		zs.canvas.onZoom(true)
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.onZoom(false)
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// draggableContent wraps the raster to receive pointer events.
type draggableContent struct {
	widget.BaseWidget
	canvas *PageCanvas
	raster *fynecanvas.Raster
}

func newDraggableContent(pc *PageCanvas, raster *fynecanvas.Raster) *draggableContent {
	dc := &draggableContent{canvas: pc, raster: raster}
	dc.ExtendBaseWidget(dc)
	return dc
}

func (dc *draggableContent) CreateRenderer() fyne.WidgetRenderer {
	return &draggableContentRenderer{content: dc}
}

func (dc *draggableContent) MinSize() fyne.Size {
	return dc.raster.MinSize()
}

func (dc *draggableContent) surfacePos(ev fyne.Position) fyne.Position {
	offset := dc.canvas.scroll.Offset()
	return fyne.Position{X: ev.X + offset.X, Y: ev.Y + offset.Y}
}

func (dc *draggableContent) Dragged(ev *fyne.DragEvent) {
	pos := dc.surfacePos(ev.Position)
	if !dc.canvas.dragging {
		dc.canvas.dragging = true
		dc.canvas.dragStart = pos
	}
	dc.canvas.dragEnd = pos
	dc.canvas.Refresh()
}

func (dc *draggableContent) DragEnd() {
	if !dc.canvas.dragging {
		return
	}
	dc.canvas.dragging = false

	x1, y1 := float64(dc.canvas.dragStart.X), float64(dc.canvas.dragStart.Y)
	x2, y2 := float64(dc.canvas.dragEnd.X), float64(dc.canvas.dragEnd.Y)
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	if dc.canvas.onDragRect != nil && x2-x1 >= 2 && y2-y1 >= 2 {
		dc.canvas.onDragRect(geometry.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1})
	}
	dc.canvas.Refresh()
}

func (dc *draggableContent) Scrolled(ev *fyne.ScrollEvent) {
	if dc.canvas.onZoom == nil {
		return
	}
	if ev.Scrolled.DY > 0 {
		dc.canvas.onZoom(true)
	} else if ev.Scrolled.DY < 0 {
		dc.canvas.onZoom(false)
	}
}

// Tapped delivers a left click in surface coordinates.
func (dc *draggableContent) Tapped(ev *fyne.PointEvent) {
	if dc.canvas.onTap == nil {
		return
	}
	// Reject clicks outside widget bounds; Fyne occasionally delivers
	// events past the edge of the raster.
	size := dc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	pos := dc.surfacePos(ev.Position)
	dc.canvas.onTap(geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)})
}

// TappedSecondary delivers a right click in surface coordinates.
func (dc *draggableContent) TappedSecondary(ev *fyne.PointEvent) {
	if dc.canvas.onAltTap == nil {
		return
	}
	size := dc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	pos := dc.surfacePos(ev.Position)
	dc.canvas.onAltTap(geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)})
}

type draggableContentRenderer struct {
	content *draggableContent
}

func (r *draggableContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *draggableContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *draggableContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *draggableContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *draggableContentRenderer) Destroy() {}

// NewPageCanvas creates a canvas bound to a document view.
func NewPageCanvas(view *session.DocumentView) *PageCanvas {
	pc := &PageCanvas{
		view:    view,
		imgSize: fyne.NewSize(400, 300),
	}

	pc.raster = fynecanvas.NewRaster(pc.draw)
	pc.raster.ScaleMode = fynecanvas.ImageScalePixels
	pc.raster.SetMinSize(pc.imgSize)

	pc.content = newDraggableContent(pc, pc.raster)
	pc.scroll = newZoomScroll(pc.content, pc)

	pc.ExtendBaseWidget(pc)
	return pc
}

// Container returns the canvas container for embedding in layouts.
func (pc *PageCanvas) Container() fyne.CanvasObject {
	return pc.scroll
}

// OnTap sets the left-click callback (surface coordinates).
func (pc *PageCanvas) OnTap(fn func(p geometry.Point2D)) { pc.onTap = fn }

// OnAltTap sets the right-click callback (surface coordinates).
func (pc *PageCanvas) OnAltTap(fn func(p geometry.Point2D)) { pc.onAltTap = fn }

// OnDragRect sets the rubber-band completion callback.
func (pc *PageCanvas) OnDragRect(fn func(r geometry.Rect)) { pc.onDragRect = fn }

// OnZoom sets the wheel-zoom callback.
func (pc *PageCanvas) OnZoom(fn func(in bool)) { pc.onZoom = fn }

// SetFitToWindow enables or disables auto-fit on resize.
func (pc *PageCanvas) SetFitToWindow(fit bool) {
	pc.fitToWindow = fit
	if fit {
		pc.requestFit(pc.scroll.Size())
	}
}

// FitToWindow reports the current auto-fit state.
func (pc *PageCanvas) FitToWindow() bool { return pc.fitToWindow }

func (pc *PageCanvas) requestFit(size fyne.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	pc.view.Coordinator().ScheduleAutoFit(float64(size.Width), float64(size.Height))
}

// SyncViewport resizes the canvas content to the current viewport raster
// and repaints. Call after every render completion.
func (pc *PageCanvas) SyncViewport() {
	vp := pc.view.Coordinator().Current()
	if vp == nil {
		pc.imgSize = fyne.NewSize(400, 300)
	} else {
		pc.imgSize = fyne.NewSize(float32(vp.RasterWidth), float32(vp.RasterHeight))
	}

	pc.raster.SetMinSize(pc.imgSize)
	pc.raster.Resize(pc.imgSize)
	pc.content.Resize(pc.imgSize)
	pc.content.Refresh()
	pc.raster.Refresh()
	pc.scroll.Refresh()
}

// Refresh repaints the raster, e.g. after an overlay-only change.
func (pc *PageCanvas) Refresh() {
	pc.raster.Refresh()
}

// draw composites the page raster and the overlay surface.
func (pc *PageCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	// Neutral background behind the page.
	for i := 0; i < len(output.Pix); i += 4 {
		output.Pix[i], output.Pix[i+1], output.Pix[i+2], output.Pix[i+3] = 0x30, 0x30, 0x30, 0xff
	}

	vp := pc.view.Coordinator().Current()
	if vp == nil || vp.Raster == nil {
		return output
	}

	draw.Draw(output, vp.Raster.Bounds(), vp.Raster, image.Point{}, draw.Over)
	ov := pc.view.Overlay().Engine().Rasterize()
	draw.Draw(output, ov.Bounds(), ov, image.Point{}, draw.Over)

	if pc.dragging {
		pc.drawRubberBand(output)
	}
	return output
}

// CreateRenderer implements fyne.Widget.
func (pc *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &pageCanvasRenderer{canvas: pc}
}

type pageCanvasRenderer struct {
	canvas *PageCanvas
}

func (r *pageCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	if r.canvas.fitToWindow && size != r.canvas.lastScrollSize {
		r.canvas.lastScrollSize = size
		r.canvas.requestFit(size)
	}
}

func (r *pageCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *pageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *pageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *pageCanvasRenderer) Destroy() {}
