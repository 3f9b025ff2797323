// Package export burns annotations into document bytes. Flattening is a
// pure function of the inputs: the source bytes are never mutated, and a
// failure at any page leaves the caller's document untouched.
package export

import (
	"bytes"
	"context"
	"image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/errs"
	"doc-annotator/internal/log"
	"doc-annotator/internal/overlay"
	"doc-annotator/pkg/geometry"
)

const baseDPI = 72.0

// Result describes a completed flatten.
type Result struct {
	Bytes []byte
	// Pages is the number of pages that received annotations. Pages
	// without annotations pass through byte-for-byte untouched.
	Pages int
}

// Flattener stamps chrome-free overlay rasters onto PDF pages.
type Flattener struct {
	dpi  float64
	conf *model.Configuration
}

// NewFlattener builds a flattener rendering overlays at the given DPI.
// Export resolution is fixed: it never follows the viewer's zoom.
func NewFlattener(dpi float64) *Flattener {
	if dpi <= 0 {
		dpi = 144
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Flattener{dpi: dpi, conf: conf}
}

// Flatten returns a copy of doc with every stored annotation burned into
// its page. With no annotations the input bytes are returned unchanged.
func (f *Flattener) Flatten(ctx context.Context, doc []byte, store *annot.Store) (*Result, error) {
	pages := store.Pages()
	if len(pages) == 0 {
		return &Result{Bytes: doc}, nil
	}

	pdf, err := api.ReadContext(bytes.NewReader(doc), f.conf)
	if err != nil {
		return nil, errs.Wrap(errs.ExportError, err, "reading document")
	}
	if err := api.ValidateContext(pdf); err != nil {
		return nil, errs.Wrap(errs.ExportError, err, "validating document")
	}
	dims, err := pdf.PageDims()
	if err != nil {
		return nil, errs.Wrap(errs.ExportError, err, "reading page dimensions")
	}

	scale := f.dpi / baseDPI
	wms := make(map[int][]*model.Watermark, len(pages))
	for _, pageIndex := range pages {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Cancelled, err, "flatten")
		}
		if pageIndex < 1 || pageIndex > len(dims) {
			return nil, errs.New(errs.ExportError, "annotation on page %d of a %d-page document", pageIndex, len(dims))
		}

		page := geometry.Size{Width: dims[pageIndex-1].Width, Height: dims[pageIndex-1].Height}
		t := geometry.NewPageTransform(scale, geometry.Rotate0, page)
		raster := overlay.RasterizePage(store.ByPage(pageIndex), t)

		var buf bytes.Buffer
		if err := png.Encode(&buf, raster); err != nil {
			return nil, errs.Wrap(errs.ExportError, err, "encoding overlay for page %d", pageIndex)
		}

		// The raster shares the page's aspect ratio, so a centered,
		// page-relative stamp covers it exactly.
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(buf.Bytes()), "pos:c, scale:1 rel, rot:0", true, false, types.POINTS)
		if err != nil {
			return nil, errs.Wrap(errs.ExportError, err, "building stamp for page %d", pageIndex)
		}
		wms[pageIndex] = []*model.Watermark{wm}
	}

	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(doc), &out, wms, f.conf); err != nil {
		return nil, errs.Wrap(errs.ExportError, err, "stamping annotations")
	}

	log.Infof("export: flattened %d annotation(s) across %d page(s)", store.Len(), len(pages))
	return &Result{Bytes: out.Bytes(), Pages: len(pages)}, nil
}
