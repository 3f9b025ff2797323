// Package annot defines annotation records and the in-memory store that
// backs the overlay editor.
package annot

import (
	"github.com/google/uuid"

	"doc-annotator/pkg/geometry"
)

// CheckboxGlyphSize is the canonical (scale 1.0) side length of a
// checkbox glyph. Checkboxes are point-anchored; their on-screen box is
// derived from this, not stored.
const CheckboxGlyphSize = 14.0

// Type is the kind of annotation object.
type Type string

const (
	Text      Type = "text"
	Highlight Type = "highlight"
	Signature Type = "signature"
	Checkbox  Type = "checkbox"
)

// Valid reports whether t is a known annotation type.
func (t Type) Valid() bool {
	switch t {
	case Text, Highlight, Signature, Checkbox:
		return true
	}
	return false
}

// Style holds the type-specific appearance attributes of an annotation.
// Colors are "#rrggbb" strings so styles serialize cleanly to the JSON
// sidecar format.
type Style struct {
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Color      string  `json:"color,omitempty"`
	Background string  `json:"background,omitempty"` // empty = transparent
	Opacity    float64 `json:"opacity,omitempty"`    // highlight fill, 0..1
	Checked    bool    `json:"checked,omitempty"`
}

// Annotation is one placed object.
//
// Position and Size are always expressed in page space at scale 1.0
// (canonical geometry). Every on-screen value is derived from them; they
// are never updated from scaled coordinates except through an explicit
// inverse transform.
type Annotation struct {
	ID        string           `json:"id"`
	Type      Type             `json:"type"`
	PageIndex int              `json:"pageIndex"` // 1-based
	Position  geometry.Point2D `json:"position"`
	Size      geometry.Size    `json:"size,omitempty"` // zero for point-anchored types
	Text      string           `json:"text,omitempty"`
	Style     Style            `json:"style"`

	// OverlayRef is the handle of the live overlay object while the
	// annotation's page is mounted. It is never serialized.
	OverlayRef uint64 `json:"-"`
}

// New creates an annotation with a fresh stable id.
func New(t Type, pageIndex int, pos geometry.Point2D, size geometry.Size, style Style) *Annotation {
	return &Annotation{
		ID:        uuid.New().String(),
		Type:      t,
		PageIndex: pageIndex,
		Position:  pos,
		Size:      size,
		Style:     style,
	}
}

// Bounds returns the canonical bounding rectangle. Point-anchored
// annotations report a zero-extent rect at their position.
func (a *Annotation) Bounds() geometry.Rect {
	return geometry.NewRect(a.Position.X, a.Position.Y, a.Size.Width, a.Size.Height)
}
