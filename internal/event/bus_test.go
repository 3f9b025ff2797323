package event

import (
	"testing"

	"doc-annotator/internal/errs"

	"github.com/stretchr/testify/assert"
)

func TestEmitReachesListenersInOrder(t *testing.T) {
	bus := NewBus()
	var got []int

	bus.On(ModeChanged, func(interface{}) { got = append(got, 1) })
	bus.On(ModeChanged, func(interface{}) { got = append(got, 2) })
	bus.On(PageChanged, func(interface{}) { got = append(got, 99) })

	bus.Emit(ModeChanged, ModeChangedData{Previous: "none", Mode: "text"})
	assert.Equal(t, []int{1, 2}, got)
}

func TestOffRemovesListener(t *testing.T) {
	bus := NewBus()
	calls := 0
	off := bus.On(ExportComplete, func(interface{}) { calls++ })

	bus.Emit(ExportComplete, ExportCompleteData{Pages: 1})
	off()
	off() // second call is a no-op
	bus.Emit(ExportComplete, ExportCompleteData{Pages: 1})

	assert.Equal(t, 1, calls)
}

func TestEmitError(t *testing.T) {
	bus := NewBus()
	var got ErrorData
	bus.On(Error, func(data interface{}) { got = data.(ErrorData) })

	bus.EmitError(errs.DecodeError, "corrupt page tree")
	assert.Equal(t, errs.DecodeError, got.Kind)
	assert.Equal(t, "corrupt page tree", got.Message)
}

func TestEmitWithNoListeners(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Emit(PageChanged, PageChangedData{PageIndex: 1}) })
}
