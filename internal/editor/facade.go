// Package editor implements the editor-state facade: the mode state
// machine and per-mode style parameter registry that stand in for a
// rendering engine's internal editing-session object.
package editor

import (
	"sync"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/config"
	"doc-annotator/internal/event"
)

// Mode is the active annotation tool.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeText      Mode = "text"
	ModeHighlight Mode = "highlight"
	ModeSignature Mode = "signature"
	ModeCheckbox  Mode = "checkbox"
)

// Modes lists every tool mode that owns style parameters.
var Modes = []Mode{ModeText, ModeHighlight, ModeSignature, ModeCheckbox}

// AnnotationType maps a tool mode to the annotation type it produces.
func (m Mode) AnnotationType() (annot.Type, bool) {
	switch m {
	case ModeText:
		return annot.Text, true
	case ModeHighlight:
		return annot.Highlight, true
	case ModeSignature:
		return annot.Signature, true
	case ModeCheckbox:
		return annot.Checkbox, true
	}
	return "", false
}

// Parameters are the style defaults of one mode. Fields is a
// present-but-possibly-empty extension map: it is initialized at
// construction and never nil, so consumers never branch on its absence.
type Parameters struct {
	annot.Style
	Fields map[string]string
}

func newParameters() Parameters {
	return Parameters{Fields: make(map[string]string)}
}

// clone copies the parameters so callers cannot mutate registry state.
func (p Parameters) clone() Parameters {
	out := p
	out.Fields = make(map[string]string, len(p.Fields))
	for k, v := range p.Fields {
		out.Fields[k] = v
	}
	return out
}

// Patch is a partial parameter update; nil fields are left unchanged.
type Patch struct {
	FontFamily *string
	FontSize   *float64
	Color      *string
	Background *string
	Opacity    *float64
	Checked    *bool
	Fields     map[string]string
}

// Facade is the editor-state machine. It accepts mode changes at any
// time, including before a document or page exists; early changes update
// the mode but have no visible effect until an overlay is mounted, so
// toolbar interactions never race page load.
type Facade struct {
	mu     sync.RWMutex
	bus    *event.Bus
	mode   Mode
	params map[Mode]Parameters
}

// New creates a facade seeded from the configured style defaults. Every
// tool mode gets a parameter entry with a non-nil extension map, whether
// or not it is configured.
func New(bus *event.Bus, styles map[string]config.StyleDefaults) *Facade {
	f := &Facade{
		bus:    bus,
		mode:   ModeNone,
		params: make(map[Mode]Parameters, len(Modes)),
	}
	for _, m := range Modes {
		p := newParameters()
		if s, ok := styles[string(m)]; ok {
			p.FontFamily = s.FontFamily
			p.FontSize = s.FontSize
			p.Color = s.Color
			p.Background = s.Background
			p.Opacity = s.Opacity
		}
		f.params[m] = p
	}
	return f
}

// Mode returns the active tool mode.
func (f *Facade) Mode() Mode {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mode
}

// SetMode switches the active tool. Setting the already-active mode is a
// no-op; a toggle is the caller's job (compare, then pass ModeNone).
// Switching never touches existing annotations, only what new pointer
// interactions produce.
func (f *Facade) SetMode(m Mode) {
	f.mu.Lock()
	if m == f.mode {
		f.mu.Unlock()
		return
	}
	prev := f.mode
	f.mode = m
	f.mu.Unlock()

	f.bus.Emit(event.ModeChanged, event.ModeChangedData{
		Previous: string(prev),
		Mode:     string(m),
	})
}

// SetParameters merges a partial update into the current mode's defaults.
// It owns only the current mode's entry; with no tool active there is
// nothing to merge into and the call is ignored.
func (f *Facade) SetParameters(patch Patch) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.params[f.mode]
	if !ok {
		return
	}
	if patch.FontFamily != nil {
		p.FontFamily = *patch.FontFamily
	}
	if patch.FontSize != nil {
		p.FontSize = *patch.FontSize
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.Background != nil {
		p.Background = *patch.Background
	}
	if patch.Opacity != nil {
		p.Opacity = *patch.Opacity
	}
	if patch.Checked != nil {
		p.Checked = *patch.Checked
	}
	for k, v := range patch.Fields {
		p.Fields[k] = v
	}
	f.params[f.mode] = p
}

// StyleDefaults returns a copy of the current mode's parameters. With no
// tool active it returns empty parameters with a non-nil extension map.
func (f *Facade) StyleDefaults() Parameters {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.params[f.mode]
	if !ok {
		return newParameters()
	}
	return p.clone()
}

// StyleFor returns a copy of the given mode's parameters.
func (f *Facade) StyleFor(m Mode) Parameters {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.params[m]
	if !ok {
		return newParameters()
	}
	return p.clone()
}
