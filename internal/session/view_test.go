package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/config"
	"doc-annotator/internal/editor"
	"doc-annotator/internal/errs"
	"doc-annotator/internal/event"
	"doc-annotator/internal/overlay"
	"doc-annotator/pkg/geometry"
)

func pagePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func singlePagePDF(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	var offsets []int
	obj := func(s string) {
		offsets = append(offsets, b.Len())
		b.WriteString(s)
	}
	b.WriteString("%PDF-1.4\n")
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 600 800] /Resources << >> >>\nendobj\n")
	start := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, start)
	return b.Bytes()
}

func imageView(t *testing.T) (*DocumentView, *event.Bus) {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer = config.BackendImage
	bus := event.NewBus()
	v, err := NewDocumentView(cfg, bus)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v, bus
}

func load(t *testing.T, v *DocumentView, data []byte) {
	t.Helper()
	h, err := v.LoadDocument(context.Background(), data)
	require.NoError(t, err)
	require.NoError(t, h.Wait(context.Background()))
}

// The end-to-end placement scenario: canonical geometry survives zoom,
// and export rasters land annotations at natural page coordinates.
func TestAnnotationScenario600x800(t *testing.T) {
	v, _ := imageView(t)
	load(t, v, pagePNG(t, 600, 800))

	vp := v.Coordinator().Current()
	require.NotNil(t, vp)
	assert.Equal(t, 600, vp.RasterWidth)
	assert.Equal(t, 800, vp.RasterHeight)

	v.Facade().SetMode(editor.ModeText)
	a := v.PlaceAt(geometry.Point2D{X: 100, Y: 100})
	require.NotNil(t, a)
	assert.InDelta(t, 100.0, a.Position.X, 1e-9)
	assert.InDelta(t, 100.0, a.Position.Y, 1e-9)
	require.True(t, v.EditText(a.ID, "Approved"))

	// Zoom to 1.5: the screen rect moves to (150,150) while the
	// canonical record is untouched.
	h := v.SetScale(1.5)
	require.NotNil(t, h)
	require.NoError(t, h.Wait(context.Background()))

	assert.InDelta(t, 100.0, a.Position.X, 1e-9)
	assert.InDelta(t, 100.0, a.Position.Y, 1e-9)
	hit := v.Overlay().AnnotationAt(geometry.Point2D{X: 155, Y: 160})
	require.NotNil(t, hit)
	assert.Equal(t, a.ID, hit.ID)
	assert.Nil(t, v.Overlay().AnnotationAt(geometry.Point2D{X: 120, Y: 120}),
		"screen rect starts at (150,150) after zooming")

	// Export-style raster at natural size: glyph pixels start at the
	// canonical (100,100), not at the zoomed (150,150).
	raster := overlay.RasterizePage(v.Store().ByPage(1),
		geometry.NewPageTransform(1.0, geometry.Rotate0, vp.PageSize))
	left, top := leftTopOpaque(raster)
	require.GreaterOrEqual(t, left, 100)
	assert.Less(t, left, 150)
	require.GreaterOrEqual(t, top, 100)
	assert.Less(t, top, 150)
}

func leftTopOpaque(img *image.RGBA) (left, top int) {
	left, top = -1, -1
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}
			if left == -1 || x < left {
				left = x
			}
			if top == -1 || y < top {
				top = y
			}
		}
	}
	return left, top
}

func TestPlaceAtRequiresActiveMode(t *testing.T) {
	v, _ := imageView(t)
	load(t, v, pagePNG(t, 200, 200))
	assert.Nil(t, v.PlaceAt(geometry.Point2D{X: 10, Y: 10}))
}

func TestPlaceAtEmitsModifiedEvent(t *testing.T) {
	v, bus := imageView(t)
	load(t, v, pagePNG(t, 200, 200))

	var events []event.AnnotationsModifiedData
	bus.On(event.AnnotationsModified, func(data interface{}) {
		events = append(events, data.(event.AnnotationsModifiedData))
	})

	v.Facade().SetMode(editor.ModeCheckbox)
	a := v.PlaceAt(geometry.Point2D{X: 50, Y: 60})
	require.NotNil(t, a)
	assert.True(t, v.Modified())
	require.Len(t, events, 1)
	assert.Equal(t, "add", events[0].Action)
	assert.Equal(t, a.ID, events[0].ID)

	require.True(t, v.RemoveAnnotation(a.ID))
	require.Len(t, events, 2)
	assert.Equal(t, "remove", events[1].Action)
	assert.Zero(t, v.Store().Len())
}

func TestDragHighlightUsesDraggedRect(t *testing.T) {
	v, _ := imageView(t)
	load(t, v, pagePNG(t, 400, 400))

	h := v.SetScale(2.0)
	require.NotNil(t, h)
	require.NoError(t, h.Wait(context.Background()))

	a := v.DragHighlight(geometry.Rect{X: 40, Y: 80, Width: 200, Height: 30})
	require.NotNil(t, a)
	assert.Equal(t, annot.Highlight, a.Type)
	assert.InDelta(t, 20.0, a.Position.X, 1e-9)
	assert.InDelta(t, 40.0, a.Position.Y, 1e-9)
	assert.InDelta(t, 100.0, a.Size.Width, 1e-9)
	assert.InDelta(t, 15.0, a.Size.Height, 1e-9)
}

func TestSelectAtTogglesSelection(t *testing.T) {
	v, _ := imageView(t)
	load(t, v, pagePNG(t, 300, 300))

	v.Facade().SetMode(editor.ModeText)
	a := v.PlaceAt(geometry.Point2D{X: 50, Y: 50})
	require.NotNil(t, a)

	hit := v.SelectAt(geometry.Point2D{X: 60, Y: 60})
	require.NotNil(t, hit)
	assert.Equal(t, a.ID, hit.ID)

	assert.Nil(t, v.SelectAt(geometry.Point2D{X: 290, Y: 290}))
	assert.Zero(t, v.Overlay().Engine().Selected())
}

func TestLoadDocumentResetsSession(t *testing.T) {
	v, _ := imageView(t)
	load(t, v, pagePNG(t, 300, 300))

	v.Facade().SetMode(editor.ModeText)
	require.NotNil(t, v.PlaceAt(geometry.Point2D{X: 10, Y: 10}))
	require.True(t, v.Modified())

	load(t, v, pagePNG(t, 500, 500))
	assert.Zero(t, v.Store().Len())
	assert.False(t, v.Modified())
	assert.Equal(t, 500, v.Coordinator().Current().RasterWidth)
}

func TestExportClearsModifiedOnlyOnSuccess(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer = config.BackendPoppler
	bus := event.NewBus()
	v, err := NewDocumentView(cfg, bus)
	require.NoError(t, err)
	t.Cleanup(v.Close)

	// Open only; no render is needed for export.
	_, err = v.LoadDocument(context.Background(), singlePagePDF(t))
	require.NoError(t, err)

	var completed []event.ExportCompleteData
	bus.On(event.ExportComplete, func(data interface{}) {
		completed = append(completed, data.(event.ExportCompleteData))
	})

	v.Store().Add(annot.New(annot.Highlight, 1,
		geometry.Point2D{X: 100, Y: 100}, geometry.Size{Width: 80, Height: 20},
		annot.Style{Color: "#ffeb3b", Opacity: 0.4}))
	require.True(t, v.Modified())

	res, err := v.ExportDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.False(t, v.Modified(), "modified clears after a successful export")
	require.Len(t, completed, 1)
	assert.Equal(t, 1, completed[0].Pages)

	// A failing export must leave the modified flag set for retry.
	v.Store().Add(annot.New(annot.Text, 99,
		geometry.Point2D{}, geometry.Size{Width: 10, Height: 10}, annot.Style{}))
	_, err = v.ExportDocument(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ExportError, errs.KindOf(err))
	assert.True(t, v.Modified())
}

func TestExportWithoutDocument(t *testing.T) {
	v, _ := imageView(t)
	_, err := v.ExportDocument(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ExportError, errs.KindOf(err))
}
