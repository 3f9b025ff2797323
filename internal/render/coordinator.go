package render

import (
	"context"
	"sync"
	"time"

	"doc-annotator/internal/config"
	"doc-annotator/internal/errs"
	"doc-annotator/internal/event"
	"doc-annotator/internal/log"
	"doc-annotator/pkg/geometry"
)

// SyncFunc is invoked with every newly applied viewport, before the
// PageChanged event is published. previousScale is the scale of the
// viewport being replaced, or 0 for the first render.
type SyncFunc func(v *Viewport, previousScale float64)

// Handle tracks one render request. Err and Viewport are valid once Done
// is closed.
type Handle struct {
	done     chan struct{}
	viewport *Viewport
	err      error
}

func newHandle() *Handle                { return &Handle{done: make(chan struct{})} }
func (h *Handle) Done() <-chan struct{} { return h.done }
func (h *Handle) Err() error            { return h.err }
func (h *Handle) Viewport() *Viewport   { return h.viewport }

// Wait blocks until the request settles or ctx expires.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return errs.Wrap(errs.Cancelled, ctx.Err(), "waiting for render")
	}
}

func (h *Handle) complete(v *Viewport, err error) {
	h.viewport = v
	h.err = err
	close(h.done)
}

func failedHandle(err error) *Handle {
	h := newHandle()
	h.complete(nil, err)
	return h
}

// Coordinator drives the page-rendering backend. At most one render is in
// flight per viewport; a new request cancels any outstanding one rather
// than queueing behind it, and a completion that is no longer the most
// recently issued request is discarded even when it resolves successfully
// after a newer one.
type Coordinator struct {
	renderer   PageRenderer
	cfg        *config.Config
	bus        *event.Bus
	onViewport SyncFunc

	mu      sync.Mutex
	doc     Document
	seq     uint64
	cancel  context.CancelFunc
	current *Viewport

	fitTimer *time.Timer
	fitW     float64
	fitH     float64

	// applyMu serializes viewport application so a stale completion can
	// never overwrite a newer one mid-callback.
	applyMu sync.Mutex
}

// NewCoordinator creates a coordinator for one document view. onViewport
// may be nil.
func NewCoordinator(renderer PageRenderer, cfg *config.Config, bus *event.Bus, onViewport SyncFunc) *Coordinator {
	return &Coordinator{
		renderer:   renderer,
		cfg:        cfg,
		bus:        bus,
		onViewport: onViewport,
	}
}

// SetDocument installs the open document handle and invalidates any
// in-flight render and the current viewport.
func (c *Coordinator) SetDocument(doc Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.doc = doc
	c.current = nil
}

// Current returns the last applied viewport, or nil before the first
// successful render.
func (c *Coordinator) Current() *Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// RequestRender issues a render for the given page, scale and rotation,
// superseding any outstanding request. Cancellation of superseded work is
// not reported through the event bus; genuine failures are.
func (c *Coordinator) RequestRender(pageIndex int, scale float64, rot geometry.Rotation) *Handle {
	c.mu.Lock()

	if c.doc == nil {
		c.mu.Unlock()
		return failedHandle(errs.New(errs.UnsupportedPage, "no document loaded"))
	}
	if pageIndex < 1 || pageIndex > c.doc.PageCount() {
		err := errs.New(errs.UnsupportedPage, "page %d out of range 1..%d", pageIndex, c.doc.PageCount())
		c.mu.Unlock()
		c.bus.EmitError(errs.UnsupportedPage, err.Msg)
		return failedHandle(err)
	}

	scale = c.cfg.ClampScale(scale)
	rot = rot.Normalize()

	c.seq++
	mySeq := c.seq
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	doc := c.doc
	c.mu.Unlock()

	h := newHandle()
	go c.render(ctx, h, doc, mySeq, pageIndex, scale, rot)
	return h
}

func (c *Coordinator) render(ctx context.Context, h *Handle, doc Document, mySeq uint64, pageIndex int, scale float64, rot geometry.Rotation) {
	raster, err := c.renderer.RenderPage(ctx, doc, pageIndex, scale, rot)

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if mySeq != c.seq {
		c.mu.Unlock()
		log.Debugf("render: discarding stale completion for page %d at %.2f", pageIndex, scale)
		h.complete(nil, errs.New(errs.Cancelled, "superseded by a newer render request"))
		return
	}

	if err != nil {
		c.mu.Unlock()
		if errs.IsCancelled(err) {
			// Expected supersede outcome, swallowed.
			log.Debugf("render: cancelled for page %d at %.2f", pageIndex, scale)
			h.complete(nil, errs.Wrap(errs.Cancelled, err, "render page %d", pageIndex))
			return
		}
		kind := errs.KindOf(err)
		log.Errorf("render: page %d at %.2f failed: %v", pageIndex, scale, err)
		c.bus.EmitError(kind, err.Error())
		h.complete(nil, err)
		return
	}

	vp := newViewport(pageIndex, scale, rot, raster)
	var prevScale float64
	if c.current != nil {
		prevScale = c.current.Scale
	}
	c.current = vp
	c.mu.Unlock()

	// Cancellation short-circuited above: synchronization only ever runs
	// against the viewport that was just applied.
	if c.onViewport != nil {
		c.onViewport(vp, prevScale)
	}
	c.bus.Emit(event.PageChanged, event.PageChangedData{PageIndex: pageIndex, Scale: scale})
	h.complete(vp, nil)
}

// ScheduleAutoFit requests a render that fits the current page into the
// given view bounds. Rapid calls (window resizing) collapse to a single
// render of the final size after the configured debounce interval.
func (c *Coordinator) ScheduleAutoFit(viewW, viewH float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fitW, c.fitH = viewW, viewH
	delay := time.Duration(c.cfg.ResizeDebounceMs) * time.Millisecond

	if c.fitTimer != nil {
		c.fitTimer.Stop()
	}
	c.fitTimer = time.AfterFunc(delay, c.renderAutoFit)
}

func (c *Coordinator) renderAutoFit() {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return
	}
	pageIndex := 1
	rot := geometry.Rotate0
	if c.current != nil {
		pageIndex = c.current.PageIndex
		rot = c.current.Rotation
	}
	pageSize, err := c.doc.PageSize(pageIndex)
	viewW, viewH := c.fitW, c.fitH
	c.mu.Unlock()

	if err != nil || pageSize.Width <= 0 || pageSize.Height <= 0 {
		log.Warnf("render: auto-fit skipped, no page size for page %d", pageIndex)
		return
	}

	c.RequestRender(pageIndex, c.FitScale(pageSize, rot, viewW, viewH), rot)
}

// FitScale returns the scale that fits a page of the given natural size
// into the view bounds at the given rotation, clamped to the configured
// range.
func (c *Coordinator) FitScale(page geometry.Size, rot geometry.Rotation, viewW, viewH float64) float64 {
	if rot.Swaps() {
		page = page.Swap()
	}
	if page.Width <= 0 || page.Height <= 0 {
		return 1.0
	}
	scale := viewW / page.Width
	if s := viewH / page.Height; s < scale {
		scale = s
	}
	return c.cfg.ClampScale(scale)
}

// Close cancels any in-flight render and stops pending auto-fit work. It
// does not close the document handle; the owning session does that.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.fitTimer != nil {
		c.fitTimer.Stop()
		c.fitTimer = nil
	}
}
