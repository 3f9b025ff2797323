package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/errs"
	"doc-annotator/pkg/geometry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestUploadFetchRoundTrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Upload([]byte("%PDF-1.4 fake"), "contract.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, meta, err := s.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake"), data)
	assert.Equal(t, "contract.pdf", meta.Filename)
	assert.Equal(t, int64(13), meta.Size)
	assert.Equal(t, id, meta.ID)
}

func TestUploadRejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Upload(nil, "x.pdf")
	require.Error(t, err)
	assert.Equal(t, errs.IOError, errs.KindOf(err))
}

func TestUploadSanitizesFilename(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Upload([]byte("data"), "../../etc/passwd")
	require.NoError(t, err)
	_, meta, err := s.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, "passwd", meta.Filename)

	id, err = s.Upload([]byte("data"), "  ")
	require.NoError(t, err)
	_, meta, err = s.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, "untitled", meta.Filename)
}

func TestFetchUnknownID(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Fetch("not-a-uuid")
	require.Error(t, err)

	_, _, err = s.Fetch("00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, errs.IOError, errs.KindOf(err))
}

func TestReplaceUpdatesBytesAndSize(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Upload([]byte("original"), "doc.pdf")
	require.NoError(t, err)

	require.NoError(t, s.Replace(id, []byte("flattened output")))
	data, meta, err := s.Fetch(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("flattened output"), data)
	assert.Equal(t, int64(16), meta.Size)
}

func TestSidecarRoundTrip(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Upload([]byte("doc"), "doc.pdf")
	require.NoError(t, err)

	annots := annot.NewStore()
	a := annot.New(annot.Text, 2, geometry.Point2D{X: 10, Y: 20}, geometry.Size{Width: 100, Height: 30}, annot.Style{FontSize: 12, Color: "#000000"})
	a.Text = "approved"
	annots.Add(a)
	require.NoError(t, s.SaveSidecar(id, annots))

	loaded := annot.NewStore()
	require.NoError(t, s.LoadSidecar(id, loaded))
	got := loaded.Get(a.ID)
	require.NotNil(t, got)
	assert.Equal(t, "approved", got.Text)
	assert.Equal(t, 2, got.PageIndex)
	assert.InDelta(t, 10.0, got.Position.X, 1e-9)
}

func TestLoadSidecarMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Upload([]byte("doc"), "doc.pdf")
	require.NoError(t, err)

	loaded := annot.NewStore()
	require.NoError(t, s.LoadSidecar(id, loaded))
	assert.Zero(t, loaded.Len())
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	first, err := s.Upload([]byte("a"), "a.pdf")
	require.NoError(t, err)
	second, err := s.Upload([]byte("b"), "b.pdf")
	require.NoError(t, err)

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	ids := []string{metas[0].ID, metas[1].ID}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
	assert.False(t, metas[1].Uploaded.After(metas[0].Uploaded))
}

func TestDeleteRemovesDocument(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Upload([]byte("doc"), "doc.pdf")
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))
	_, _, err = s.Fetch(id)
	require.Error(t, err)
}
