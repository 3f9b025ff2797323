// Package event provides a typed publish/subscribe bus decoupling the
// editor core from its UI consumers. It carries no business logic.
package event

import (
	"sync"

	"doc-annotator/internal/errs"
)

// Type identifies a bus topic.
type Type int

const (
	ModeChanged Type = iota
	AnnotationsModified
	PageChanged
	ExportComplete
	Error
)

// ModeChangedData is published on ModeChanged.
type ModeChangedData struct {
	Previous string
	Mode     string
}

// AnnotationsModifiedData is published on AnnotationsModified after any
// store mutation.
type AnnotationsModifiedData struct {
	ID     string
	Action string // "add", "update" or "remove"
}

// PageChangedData is published on PageChanged after a successful render.
type PageChangedData struct {
	PageIndex int
	Scale     float64
}

// ExportCompleteData is published after a successful flatten/export.
type ExportCompleteData struct {
	Pages int
	Bytes int
}

// ErrorData is published on Error for every non-cancelled failure.
type ErrorData struct {
	Kind    errs.Kind
	Message string
}

// Listener receives a published payload.
type Listener func(data interface{})

// Bus dispatches events to registered listeners. Listeners run
// synchronously on the publisher's goroutine, in registration order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Type][]Listener)}
}

// On registers a listener for the given topic and returns a function
// that removes it again.
func (b *Bus) On(t Type, l Listener) (off func()) {
	b.mu.Lock()
	b.listeners[t] = append(b.listeners[t], l)
	idx := len(b.listeners[t]) - 1
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			ls := b.listeners[t]
			if idx < len(ls) {
				ls[idx] = nil
			}
		})
	}
}

// Emit publishes a payload to all listeners of the topic.
func (b *Bus) Emit(t Type, data interface{}) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners[t]))
	copy(listeners, b.listeners[t])
	b.mu.RUnlock()

	for _, l := range listeners {
		if l != nil {
			l(data)
		}
	}
}

// EmitError is a convenience for publishing a classified failure.
func (b *Bus) EmitError(kind errs.Kind, message string) {
	b.Emit(Error, ErrorData{Kind: kind, Message: message})
}
