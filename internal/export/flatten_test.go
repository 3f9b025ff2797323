package export

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/errs"
	"doc-annotator/pkg/geometry"
)

// minimalPDF writes a valid single-page 600x800pt document, computing
// xref offsets as it goes.
func minimalPDF(t *testing.T) []byte {
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

func highlightStore(t *testing.T, pageIndex int) *annot.Store {
	t.Helper()
	s := annot.NewStore()
	s.Add(annot.New(annot.Highlight, pageIndex,
		geometry.Point2D{X: 100, Y: 200},
		geometry.Size{Width: 120, Height: 20},
		annot.Style{Color: "#ffeb3b", Opacity: 0.4}))
	return s
}

func TestFlattenNoAnnotationsIsIdentity(t *testing.T) {
	doc := minimalPDF(t)
	res, err := NewFlattener(144).Flatten(context.Background(), doc, annot.NewStore())
	require.NoError(t, err)
	assert.Equal(t, doc, res.Bytes)
	assert.Zero(t, res.Pages)
}

func TestFlattenStampsAnnotatedPage(t *testing.T) {
	doc := minimalPDF(t)
	before := append([]byte(nil), doc...)

	res, err := NewFlattener(144).Flatten(context.Background(), doc, highlightStore(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.True(t, bytes.HasPrefix(res.Bytes, []byte("%PDF")))
	assert.NotEqual(t, before, res.Bytes)
	assert.Equal(t, before, doc, "source bytes untouched")
}

func TestFlattenRejectsOutOfRangePage(t *testing.T) {
	doc := minimalPDF(t)
	_, err := NewFlattener(144).Flatten(context.Background(), doc, highlightStore(t, 7))
	require.Error(t, err)
	assert.Equal(t, errs.ExportError, errs.KindOf(err))
}

func TestFlattenRejectsGarbageDocument(t *testing.T) {
	_, err := NewFlattener(144).Flatten(context.Background(), []byte("not a pdf"), highlightStore(t, 1))
	require.Error(t, err)
	assert.Equal(t, errs.ExportError, errs.KindOf(err))
}

func TestFlattenHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFlattener(144).Flatten(ctx, minimalPDF(t), highlightStore(t, 1))
	require.Error(t, err)
	assert.True(t, errs.IsCancelled(err))
}

func TestFlattenAllKeysResultsByName(t *testing.T) {
	doc := minimalPDF(t)
	jobs := []Job{
		{Name: "a.pdf", Doc: doc, Store: highlightStore(t, 1)},
		{Name: "b.pdf", Doc: doc, Store: annot.NewStore()},
	}
	results, err := NewFlattener(144).FlattenAll(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results["a.pdf"].Pages)
	assert.Zero(t, results["b.pdf"].Pages)
}

func TestFlattenAllPropagatesFailure(t *testing.T) {
	jobs := []Job{
		{Name: "good.pdf", Doc: minimalPDF(t), Store: annot.NewStore()},
		{Name: "bad.pdf", Doc: []byte("junk"), Store: highlightStore(t, 1)},
	}
	_, err := NewFlattener(144).FlattenAll(context.Background(), jobs, 2)
	require.Error(t, err)
	assert.Equal(t, errs.ExportError, errs.KindOf(err))
}
