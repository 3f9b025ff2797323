package overlay

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-annotator/internal/annot"
	"doc-annotator/pkg/geometry"
)

func TestGGEngineObjectLifecycle(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(200, 200)

	id := e.AddObject(Object{Kind: annot.Text, Rect: geometry.Rect{X: 10, Y: 10, Width: 50, Height: 20}})
	require.NotZero(t, id)
	assert.Equal(t, 1, e.ObjectCount())

	assert.True(t, e.UpdateObject(id, Object{Kind: annot.Text, Rect: geometry.Rect{X: 20, Y: 20, Width: 50, Height: 20}}))
	assert.False(t, e.UpdateObject(999, Object{}))

	e.Select(id)
	assert.Equal(t, id, e.Selected())

	assert.True(t, e.RemoveObject(id))
	assert.False(t, e.RemoveObject(id))
	assert.Zero(t, e.Selected(), "removing the selected object clears selection")
	assert.Equal(t, 0, e.ObjectCount())
}

func TestGGEngineSurfaceClampsToOnePixel(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(0, -5)
	w, h := e.SurfaceSize()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestGGEngineRasterizeMatchesSurface(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(320, 240)
	img := e.Rasterize()
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestGGEngineHighlightFillsTranslucent(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(100, 100)
	e.SetChromeVisible(false)
	e.AddObject(Object{
		Kind:  annot.Highlight,
		Rect:  geometry.Rect{X: 10, Y: 10, Width: 40, Height: 20},
		Style: annot.Style{Color: "#ffeb3b", Opacity: 0.4},
		Scale: 1,
	})

	img := e.Rasterize()
	inside := img.RGBAAt(30, 20)
	assert.NotZero(t, inside.A, "inside the highlight rect")
	assert.Less(t, inside.A, uint8(255), "highlight fill stays translucent")
	assert.Zero(t, img.RGBAAt(80, 80).A, "outside any object")
}

func TestGGEngineCheckboxStrokesGlyph(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(60, 60)
	e.SetChromeVisible(false)
	e.AddObject(Object{
		Kind:  annot.Checkbox,
		Rect:  geometry.Rect{X: 20, Y: 20, Width: 14, Height: 14},
		Style: annot.Style{Checked: true},
		Scale: 1,
	})

	img := e.Rasterize()
	assert.NotZero(t, img.RGBAAt(20, 27).A, "box edge stroked")
	assert.NotZero(t, img.RGBAAt(26, 31).A, "checkmark crosses the lower half")
}

func TestGGEngineChromeExcludedFromSnapshot(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(100, 100)
	// Backgroundless text with no content renders nothing itself, so any
	// pixel it produces is chrome.
	e.AddObject(Object{
		Kind:  annot.Text,
		Rect:  geometry.Rect{X: 20, Y: 20, Width: 40, Height: 20},
		Scale: 1,
	})

	withChrome := e.Rasterize()
	chromePixels := countOpaque(t, withChrome)
	assert.NotZero(t, chromePixels, "placeholder tint and border visible while editing")

	snap := Snapshot(e)
	assert.Zero(t, countOpaque(t, snap), "snapshot carries no chrome")
	assert.True(t, e.ChromeVisible())
}

func TestGGEngineTextDrawsGlyphs(t *testing.T) {
	e := NewGGEngine()
	e.CreateSurface(200, 80)
	e.SetChromeVisible(false)
	e.AddObject(Object{
		Kind:  annot.Text,
		Rect:  geometry.Rect{X: 5, Y: 5, Width: 190, Height: 70},
		Text:  "Approved",
		Style: annot.Style{FontSize: 24, Color: "#000000"},
		Scale: 1,
	})

	img := e.Rasterize()
	assert.NotZero(t, countOpaque(t, img))
}

func countOpaque(t *testing.T, img *image.RGBA) int {
	t.Helper()
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A > 0 {
				n++
			}
		}
	}
	return n
}
