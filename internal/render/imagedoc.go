package render

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/tiff"

	"doc-annotator/internal/errs"
	"doc-annotator/internal/log"
	"doc-annotator/pkg/geometry"
)

// ImageRenderer treats a PNG, JPEG or TIFF byte stream as a one-page
// document whose natural size is its pixel dimensions.
type ImageRenderer struct{}

// NewImageRenderer creates the raster-document backend.
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{}
}

type imageDocument struct {
	data []byte
	img  *image.RGBA
	size geometry.Size
}

func (d *imageDocument) PageCount() int { return 1 }
func (d *imageDocument) Bytes() []byte  { return d.data }
func (d *imageDocument) Close() error   { return nil }

func (d *imageDocument) PageSize(pageIndex int) (geometry.Size, error) {
	if pageIndex != 1 {
		return geometry.Size{}, errs.New(errs.UnsupportedPage, "image document has a single page, got %d", pageIndex)
	}
	return d.size, nil
}

// Open decodes the image bytes.
func (r *ImageRenderer) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Cancelled, err, "opening document")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.DecodeError, err, "decoding image document")
	}

	rgba := toRGBA(img)
	b := rgba.Bounds()
	log.Debugf("image: opened %s document %dx%d", format, b.Dx(), b.Dy())
	return &imageDocument{
		data: data,
		img:  rgba,
		size: geometry.NewSize(float64(b.Dx()), float64(b.Dy())),
	}, nil
}

// RenderPage scales and rotates the decoded image.
func (r *ImageRenderer) RenderPage(ctx context.Context, doc Document, pageIndex int, scale float64, rot geometry.Rotation) (*PageRaster, error) {
	imgDoc, ok := doc.(*imageDocument)
	if !ok {
		return nil, errs.New(errs.DecodeError, "document was not opened by the image backend")
	}
	if pageIndex != 1 {
		return nil, errs.New(errs.UnsupportedPage, "image document has a single page, got %d", pageIndex)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Cancelled, err, "render page %d", pageIndex)
	}

	w := int(math.Round(imgDoc.size.Width * scale))
	h := int(math.Round(imgDoc.size.Height * scale))
	raster := rotateRGBA(scaleRGBA(imgDoc.img, w, h), rot)

	return &PageRaster{
		Image:         raster,
		NaturalWidth:  imgDoc.size.Width,
		NaturalHeight: imgDoc.size.Height,
	}, nil
}

// NewRenderer returns the backend selected by name. Alternate engines are
// swappable implementations behind the PageRenderer interface, not
// parallel viewer code paths.
func NewRenderer(backend string) (PageRenderer, error) {
	switch backend {
	case "poppler", "":
		return NewPopplerRenderer(), nil
	case "image":
		return NewImageRenderer(), nil
	}
	return nil, errs.New(errs.DecodeError, "unknown renderer backend %q", backend)
}
