package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"doc-annotator/internal/errs"
	"doc-annotator/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	return img
}

func TestImageRendererOpenAndRender(t *testing.T) {
	r := NewImageRenderer()
	data := encodePNG(t, testImage(200, 100))

	doc, err := r.Open(context.Background(), data)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 1, doc.PageCount())
	size, err := doc.PageSize(1)
	require.NoError(t, err)
	assert.Equal(t, geometry.NewSize(200, 100), size)

	_, err = doc.PageSize(2)
	assert.Equal(t, errs.UnsupportedPage, errs.KindOf(err))

	raster, err := r.RenderPage(context.Background(), doc, 1, 2.0, geometry.Rotate0)
	require.NoError(t, err)
	b := raster.Image.Bounds()
	assert.Equal(t, 400, b.Dx())
	assert.Equal(t, 200, b.Dy())
	assert.Equal(t, 200.0, raster.NaturalWidth)

	// Quarter turns swap the raster axes.
	raster, err = r.RenderPage(context.Background(), doc, 1, 1.0, geometry.Rotate90)
	require.NoError(t, err)
	b = raster.Image.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 200, b.Dy())
}

func TestImageRendererRejectsGarbage(t *testing.T) {
	r := NewImageRenderer()
	_, err := r.Open(context.Background(), []byte("definitely not an image"))
	assert.Equal(t, errs.DecodeError, errs.KindOf(err))
}

func TestImageRendererHonorsCancellation(t *testing.T) {
	r := NewImageRenderer()
	doc, err := r.Open(context.Background(), encodePNG(t, testImage(10, 10)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderPage(ctx, doc, 1, 1.0, geometry.Rotate0)
	assert.True(t, errs.IsCancelled(err))
}

func TestRotateRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	mark := color.RGBA{R: 255, A: 255}
	img.Set(0, 0, mark) // top-left

	got := rotateRGBA(img, geometry.Rotate90)
	b := got.Bounds()
	assert.Equal(t, 2, b.Dx())
	assert.Equal(t, 3, b.Dy())
	// Top-left travels to the top-right corner under a clockwise turn.
	assert.Equal(t, mark, got.RGBAAt(1, 0))

	got = rotateRGBA(img, geometry.Rotate180)
	assert.Equal(t, mark, got.RGBAAt(2, 1))

	got = rotateRGBA(img, geometry.Rotate270)
	assert.Equal(t, mark, got.RGBAAt(0, 2))

	assert.Same(t, img, rotateRGBA(img, geometry.Rotate0))
}

func TestNewRendererSelection(t *testing.T) {
	r, err := NewRenderer("image")
	require.NoError(t, err)
	assert.IsType(t, &ImageRenderer{}, r)

	r, err = NewRenderer("poppler")
	require.NoError(t, err)
	assert.IsType(t, &PopplerRenderer{}, r)

	_, err = NewRenderer("quartz")
	assert.Error(t, err)
}
