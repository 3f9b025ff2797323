package render

import (
	"context"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"doc-annotator/internal/config"
	"doc-annotator/internal/errs"
	"doc-annotator/internal/event"
	"doc-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	pages int
	size  geometry.Size
}

func (d *fakeDoc) PageCount() int { return d.pages }
func (d *fakeDoc) Bytes() []byte  { return nil }
func (d *fakeDoc) Close() error   { return nil }
func (d *fakeDoc) PageSize(int) (geometry.Size, error) {
	return d.size, nil
}

type fakeCall struct {
	scale   float64
	release chan struct{}
	err     error
}

// fakeRenderer blocks each RenderPage until the test releases it, so
// completions can be resolved in any order.
type fakeRenderer struct {
	mu        sync.Mutex
	calls     []*fakeCall
	auto      bool // complete immediately instead of blocking
	ignoreCtx bool // keep running after cancellation, to produce stale completions
	failWith  error
}

func (f *fakeRenderer) Open(ctx context.Context, data []byte) (Document, error) {
	return &fakeDoc{pages: 1, size: geometry.NewSize(600, 800)}, nil
}

func (f *fakeRenderer) raster(doc Document, scale float64, rot geometry.Rotation) *PageRaster {
	size, _ := doc.PageSize(1)
	w := int(math.Round(size.Width * scale))
	h := int(math.Round(size.Height * scale))
	if rot.Swaps() {
		w, h = h, w
	}
	return &PageRaster{
		Image:         image.NewRGBA(image.Rect(0, 0, w, h)),
		NaturalWidth:  size.Width,
		NaturalHeight: size.Height,
	}
}

func (f *fakeRenderer) RenderPage(ctx context.Context, doc Document, pageIndex int, scale float64, rot geometry.Rotation) (*PageRaster, error) {
	f.mu.Lock()
	if f.failWith != nil {
		err := f.failWith
		f.mu.Unlock()
		return nil, err
	}
	if f.auto {
		f.calls = append(f.calls, &fakeCall{scale: scale})
		f.mu.Unlock()
		return f.raster(doc, scale, rot), nil
	}
	c := &fakeCall{scale: scale, release: make(chan struct{})}
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if f.ignoreCtx {
		<-c.release
		return f.raster(doc, scale, rot), nil
	}
	select {
	case <-c.release:
		return f.raster(doc, scale, rot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeRenderer) waitForCalls(t *testing.T, n int) []*fakeCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.calls) >= n {
			calls := append([]*fakeCall(nil), f.calls...)
			f.mu.Unlock()
			return calls
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d render calls", n)
	return nil
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type syncRecord struct {
	mu     sync.Mutex
	scales []float64
	prevs  []float64
}

func (r *syncRecord) fn(v *Viewport, prevScale float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scales = append(r.scales, v.Scale)
	r.prevs = append(r.prevs, prevScale)
}

func (r *syncRecord) applied() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.scales...)
}

func newTestCoordinator(fr *fakeRenderer, rec *syncRecord) (*Coordinator, *event.Bus) {
	cfg := config.Default()
	cfg.ResizeDebounceMs = 20
	bus := event.NewBus()
	var fn SyncFunc
	if rec != nil {
		fn = rec.fn
	}
	c := NewCoordinator(fr, cfg, bus, fn)
	c.SetDocument(&fakeDoc{pages: 3, size: geometry.NewSize(600, 800)})
	return c, bus
}

func TestSupersedeOrdering(t *testing.T) {
	fr := &fakeRenderer{ignoreCtx: true}
	rec := &syncRecord{}
	c, _ := newTestCoordinator(fr, rec)
	defer c.Close()

	h10 := c.RequestRender(1, 1.0, geometry.Rotate0)
	h15 := c.RequestRender(1, 1.5, geometry.Rotate0)
	h20 := c.RequestRender(1, 2.0, geometry.Rotate0)

	calls := fr.waitForCalls(t, 3)

	// Resolve out of order: newest first, then the stale ones.
	close(calls[2].release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h20.Wait(ctx))

	close(calls[0].release)
	close(calls[1].release)
	assert.True(t, errs.IsCancelled(h10.Wait(ctx)))
	assert.True(t, errs.IsCancelled(h15.Wait(ctx)))

	// Only the most recent request's result was ever applied.
	require.NotNil(t, c.Current())
	assert.Equal(t, 2.0, c.Current().Scale)
	assert.Equal(t, []float64{2.0}, rec.applied())
}

func TestRenderSuccessAppliesViewportAndEmitsPageChanged(t *testing.T) {
	fr := &fakeRenderer{auto: true}
	rec := &syncRecord{}
	c, bus := newTestCoordinator(fr, rec)
	defer c.Close()

	var pages []event.PageChangedData
	bus.On(event.PageChanged, func(d interface{}) { pages = append(pages, d.(event.PageChangedData)) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	h := c.RequestRender(1, 1.0, geometry.Rotate0)
	require.NoError(t, h.Wait(ctx))

	vp := h.Viewport()
	require.NotNil(t, vp)
	assert.Equal(t, 600, vp.RasterWidth)
	assert.Equal(t, 800, vp.RasterHeight)
	assert.Equal(t, geometry.NewSize(600, 800), vp.PageSize)

	h = c.RequestRender(1, 1.5, geometry.Rotate0)
	require.NoError(t, h.Wait(ctx))
	assert.Equal(t, 900, h.Viewport().RasterWidth)

	rec.mu.Lock()
	prevs := append([]float64(nil), rec.prevs...)
	rec.mu.Unlock()
	assert.Equal(t, []float64{0, 1.0}, prevs)

	require.Len(t, pages, 2)
	assert.Equal(t, 1.5, pages[1].Scale)
}

func TestRenderFailureSurfacesTypedError(t *testing.T) {
	fr := &fakeRenderer{failWith: errs.New(errs.DecodeError, "corrupt content stream")}
	c, bus := newTestCoordinator(fr, nil)
	defer c.Close()

	var got event.ErrorData
	bus.On(event.Error, func(d interface{}) { got = d.(event.ErrorData) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.RequestRender(1, 1.0, geometry.Rotate0).Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, errs.DecodeError, errs.KindOf(err))
	assert.Equal(t, errs.DecodeError, got.Kind)
}

func TestRequestRenderValidatesPageRange(t *testing.T) {
	fr := &fakeRenderer{auto: true}
	c, _ := newTestCoordinator(fr, nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.RequestRender(0, 1.0, geometry.Rotate0).Wait(ctx)
	assert.Equal(t, errs.UnsupportedPage, errs.KindOf(err))

	err = c.RequestRender(4, 1.0, geometry.Rotate0).Wait(ctx)
	assert.Equal(t, errs.UnsupportedPage, errs.KindOf(err))

	c.SetDocument(nil)
	err = c.RequestRender(1, 1.0, geometry.Rotate0).Wait(ctx)
	assert.Equal(t, errs.UnsupportedPage, errs.KindOf(err))
}

func TestScaleIsClamped(t *testing.T) {
	fr := &fakeRenderer{auto: true}
	c, _ := newTestCoordinator(fr, nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	h := c.RequestRender(1, 100.0, geometry.Rotate0)
	require.NoError(t, h.Wait(ctx))
	assert.Equal(t, config.Default().MaxScale, h.Viewport().Scale)
}

func TestAutoFitDebounceCollapsesBursts(t *testing.T) {
	fr := &fakeRenderer{auto: true}
	c, _ := newTestCoordinator(fr, nil)
	defer c.Close()

	for i := 0; i < 10; i++ {
		c.ScheduleAutoFit(3000, 4000)
	}
	c.ScheduleAutoFit(300, 400)

	time.Sleep(200 * time.Millisecond)

	// One render, at the fit scale of the final size.
	require.Equal(t, 1, fr.callCount())
	require.NotNil(t, c.Current())
	assert.InDelta(t, 0.5, c.Current().Scale, 1e-9)
}

func TestAutoFitClampsToScaleRange(t *testing.T) {
	fr := &fakeRenderer{auto: true}
	c, _ := newTestCoordinator(fr, nil)
	defer c.Close()

	c.ScheduleAutoFit(1, 1)
	time.Sleep(200 * time.Millisecond)

	require.NotNil(t, c.Current())
	assert.Equal(t, config.Default().MinScale, c.Current().Scale)
}

func TestFitScale(t *testing.T) {
	fr := &fakeRenderer{auto: true}
	c, _ := newTestCoordinator(fr, nil)
	defer c.Close()

	page := geometry.NewSize(600, 800)
	assert.InDelta(t, 0.5, c.FitScale(page, geometry.Rotate0, 300, 400), 1e-9)
	// Rotation swaps the fitted extents.
	assert.InDelta(t, 0.375, c.FitScale(page, geometry.Rotate90, 300, 400), 1e-9)
	// Clamped to the configured minimum.
	assert.Equal(t, config.Default().MinScale, c.FitScale(page, geometry.Rotate0, 1, 1))
}
