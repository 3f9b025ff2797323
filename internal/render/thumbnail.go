package render

import (
	"context"
	"image"

	"github.com/nfnt/resize"

	"doc-annotator/pkg/geometry"
)

// Thumbnail renders a document's first page and scales it down to the
// given pixel width, preserving aspect ratio.
func Thumbnail(ctx context.Context, r PageRenderer, doc Document, width uint) (*image.RGBA, error) {
	raster, err := r.RenderPage(ctx, doc, 1, 1.0, geometry.Rotate0)
	if err != nil {
		return nil, err
	}
	small := resize.Resize(width, 0, raster.Image, resize.Lanczos3)
	return toRGBA(small), nil
}
