// Package render manages page rasterization: the pluggable page-rendering
// backends and the coordinator that issues, supersedes and cancels
// in-flight render work.
package render

import (
	"context"
	"image"

	"doc-annotator/pkg/geometry"
)

// Document is an open document handle owned by a PageRenderer.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int
	// PageSize returns the natural (scale 1.0, unrotated) size of a
	// 1-based page.
	PageSize(pageIndex int) (geometry.Size, error)
	// Bytes returns the original document bytes the handle was opened
	// from. The flatten pipeline reads but never mutates them.
	Bytes() []byte
	// Close releases backend resources.
	Close() error
}

// PageRaster is the result of rendering one page.
type PageRaster struct {
	Image         *image.RGBA
	NaturalWidth  float64 // page width at scale 1.0, unrotated
	NaturalHeight float64
}

// PageRenderer turns document bytes into raster imagery, one page at a
// time. Implementations must honor context cancellation: a superseded
// render is abandoned, not completed in the background.
type PageRenderer interface {
	Open(ctx context.Context, data []byte) (Document, error)
	RenderPage(ctx context.Context, doc Document, pageIndex int, scale float64, rotation geometry.Rotation) (*PageRaster, error)
}
