// Package storage is a file-backed document store. Each uploaded
// document gets a uuid directory holding the original bytes, its
// metadata and, once annotated, a sidecar file.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/errs"
)

const (
	docFile     = "document"
	metaFile    = "meta.json"
	sidecarFile = "annotations.json"
)

// Meta describes an uploaded document.
type Meta struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
}

// Store persists documents under a root directory.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "creating storage dir")
	}
	return &Store{dir: dir}, nil
}

// Upload stores document bytes and returns the new document id.
func (s *Store) Upload(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", errs.New(errs.IOError, "empty document")
	}
	id := uuid.New().String()
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.IOError, err, "creating document dir")
	}
	if err := os.WriteFile(filepath.Join(dir, docFile), data, 0o644); err != nil {
		return "", errs.Wrap(errs.IOError, err, "writing document")
	}
	meta := Meta{
		ID:       id,
		Filename: sanitizeFilename(filename),
		Size:     int64(len(data)),
		Uploaded: time.Now().UTC(),
	}
	if err := s.writeMeta(dir, meta); err != nil {
		return "", err
	}
	return id, nil
}

// Fetch returns a document's bytes and metadata.
func (s *Store) Fetch(id string) ([]byte, *Meta, error) {
	dir, err := s.docDir(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, docFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errs.New(errs.IOError, "no document %s", id)
		}
		return nil, nil, errs.Wrap(errs.IOError, err, "reading document %s", id)
	}
	meta, err := s.readMeta(dir)
	if err != nil {
		return nil, nil, err
	}
	return data, meta, nil
}

// Replace overwrites a stored document's bytes, e.g. after flattening.
func (s *Store) Replace(id string, data []byte) error {
	dir, err := s.docDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, docFile)); err != nil {
		return errs.New(errs.IOError, "no document %s", id)
	}
	if err := os.WriteFile(filepath.Join(dir, docFile), data, 0o644); err != nil {
		return errs.Wrap(errs.IOError, err, "replacing document %s", id)
	}
	meta, err := s.readMeta(dir)
	if err != nil {
		return err
	}
	meta.Size = int64(len(data))
	return s.writeMeta(dir, *meta)
}

// SaveSidecar persists a document's annotations next to its bytes.
func (s *Store) SaveSidecar(id string, annots *annot.Store) error {
	dir, err := s.docDir(id)
	if err != nil {
		return err
	}
	data, err := annots.EncodeSidecar()
	if err != nil {
		return errs.Wrap(errs.IOError, err, "encoding sidecar for %s", id)
	}
	if err := os.WriteFile(filepath.Join(dir, sidecarFile), data, 0o644); err != nil {
		return errs.Wrap(errs.IOError, err, "writing sidecar for %s", id)
	}
	return nil
}

// LoadSidecar reads a document's annotations into the given store. A
// missing sidecar loads nothing and is not an error.
func (s *Store) LoadSidecar(id string, annots *annot.Store) error {
	dir, err := s.docDir(id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(dir, sidecarFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.IOError, err, "reading sidecar for %s", id)
	}
	if err := annots.DecodeSidecar(data); err != nil {
		return errs.Wrap(errs.DecodeError, err, "decoding sidecar for %s", id)
	}
	return nil
}

// List returns metadata for every stored document, newest first.
func (s *Store) List() ([]*Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "listing storage dir")
	}
	var metas []*Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.readMeta(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	for i := 0; i < len(metas); i++ {
		for j := i + 1; j < len(metas); j++ {
			if metas[j].Uploaded.After(metas[i].Uploaded) {
				metas[i], metas[j] = metas[j], metas[i]
			}
		}
	}
	return metas, nil
}

// Delete removes a document and everything stored alongside it.
func (s *Store) Delete(id string) error {
	dir, err := s.docDir(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return errs.Wrap(errs.IOError, err, "deleting document %s", id)
	}
	return nil
}

func (s *Store) docDir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", errs.Wrap(errs.IOError, pkgerrors.Wrap(err, "document id"), "invalid id %q", id)
	}
	return filepath.Join(s.dir, id), nil
}

func (s *Store) writeMeta(dir string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "encoding metadata")
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), data, 0o644); err != nil {
		return errs.Wrap(errs.IOError, err, "writing metadata")
	}
	return nil
}

func (s *Store) readMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "reading metadata")
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errs.Wrap(errs.DecodeError, err, "decoding metadata")
	}
	return &meta, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "untitled"
	}
	return name
}
