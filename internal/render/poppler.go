package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pkgerrors "github.com/pkg/errors"

	"doc-annotator/internal/errs"
	"doc-annotator/internal/log"
	"doc-annotator/pkg/geometry"
)

// PopplerRenderer rasterizes PDF pages by shelling out to pdftoppm
// (poppler-utils). Page metadata comes from pdfcpu, so opening a document
// also validates it without touching the external tool.
type PopplerRenderer struct{}

// NewPopplerRenderer creates the pdftoppm-backed renderer.
func NewPopplerRenderer() *PopplerRenderer {
	return &PopplerRenderer{}
}

type pdfDocument struct {
	data  []byte
	dims  []geometry.Size
	count int
}

func (d *pdfDocument) PageCount() int { return d.count }
func (d *pdfDocument) Bytes() []byte  { return d.data }
func (d *pdfDocument) Close() error   { return nil }

func (d *pdfDocument) PageSize(pageIndex int) (geometry.Size, error) {
	if pageIndex < 1 || pageIndex > len(d.dims) {
		return geometry.Size{}, errs.New(errs.UnsupportedPage, "page %d out of range 1..%d", pageIndex, len(d.dims))
	}
	return d.dims[pageIndex-1], nil
}

// Open parses and validates the PDF byte stream.
func (p *PopplerRenderer) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Cancelled, err, "opening document")
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, errs.Wrap(errs.DecodeError, err, "parsing PDF")
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, errs.Wrap(errs.DecodeError, err, "validating PDF")
	}

	rawDims, err := pdfCtx.PageDims()
	if err != nil {
		return nil, errs.Wrap(errs.DecodeError, err, "reading page dimensions")
	}
	dims := make([]geometry.Size, len(rawDims))
	for i, d := range rawDims {
		dims[i] = geometry.NewSize(d.Width, d.Height)
	}

	log.Debugf("poppler: opened PDF with %d pages", pdfCtx.PageCount)
	return &pdfDocument{data: data, dims: dims, count: pdfCtx.PageCount}, nil
}

// RenderPage rasterizes one page at the given scale and rotation. The
// external process is bound to ctx, so a superseded request kills it.
func (p *PopplerRenderer) RenderPage(ctx context.Context, doc Document, pageIndex int, scale float64, rot geometry.Rotation) (*PageRaster, error) {
	pdf, ok := doc.(*pdfDocument)
	if !ok {
		return nil, errs.New(errs.DecodeError, "document was not opened by the poppler backend")
	}
	natural, err := pdf.PageSize(pageIndex)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "doc-annotator-*.pdf")
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "creating temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(pdf.data); err != nil {
		tmp.Close()
		return nil, errs.Wrap(errs.IOError, err, "writing temp PDF")
	}
	tmp.Close()

	// Page geometry is in points (1/72 inch); rendering at dpi = 72 *
	// scale yields a raster whose pixel bounds equal natural * scale.
	outPath := tmpPath + ".png"
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-singlefile",
		"-f", fmt.Sprintf("%d", pageIndex),
		"-l", fmt.Sprintf("%d", pageIndex),
		"-r", fmt.Sprintf("%f", 72.0*scale),
		tmpPath,
		tmpPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.Cancelled, ctx.Err(), "render page %d", pageIndex)
		}
		return nil, errs.Wrap(errs.IOError,
			pkgerrors.Wrap(err, stderr.String()),
			"pdftoppm failed for page %d (is poppler-utils installed?)", pageIndex)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "opening rendered page %d", pageIndex)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, errs.Wrap(errs.DecodeError, err, "decoding rendered page %d", pageIndex)
	}

	raster := rotateRGBA(toRGBA(img), rot)
	return &PageRaster{
		Image:         raster,
		NaturalWidth:  natural.Width,
		NaturalHeight: natural.Height,
	}, nil
}
