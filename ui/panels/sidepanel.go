// Package panels provides UI panels for the application.
package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"doc-annotator/internal/event"
	"doc-annotator/internal/session"
	"doc-annotator/ui/canvas"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	annotations *AnnotationsPanel
	style       *StylePanel
	container   *container.AppTabs
}

// NewSidePanel creates a new side panel.
func NewSidePanel(view *session.DocumentView, bus *event.Bus, pageCanvas *canvas.PageCanvas) *SidePanel {
	sp := &SidePanel{
		annotations: NewAnnotationsPanel(view, bus, pageCanvas),
		style:       NewStylePanel(view, bus),
	}

	sp.container = container.NewAppTabs(
		container.NewTabItem("Annotations", sp.annotations.Container()),
		container.NewTabItem("Style", sp.style.Container()),
	)
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.annotations.SetWindow(w)
}
