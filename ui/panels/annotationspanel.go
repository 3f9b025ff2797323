package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/event"
	"doc-annotator/internal/session"
	"doc-annotator/ui/canvas"
	"doc-annotator/ui/dialogs"
)

// AnnotationsPanel lists the annotations on the current page and offers
// edit, toggle and remove actions for the selected one.
type AnnotationsPanel struct {
	view   *session.DocumentView
	canvas *canvas.PageCanvas
	window fyne.Window

	list       *widget.List
	countLabel *widget.Label
	editBtn    *widget.Button
	toggleBtn  *widget.Button
	removeBtn  *widget.Button
	container  fyne.CanvasObject

	ids      []string
	selected string
}

// NewAnnotationsPanel creates the annotations panel.
func NewAnnotationsPanel(view *session.DocumentView, bus *event.Bus, pageCanvas *canvas.PageCanvas) *AnnotationsPanel {
	p := &AnnotationsPanel{
		view:       view,
		canvas:     pageCanvas,
		countLabel: widget.NewLabel("No annotations"),
	}

	p.list = widget.NewList(
		func() int { return len(p.ids) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, obj fyne.CanvasObject) {
			if i < 0 || i >= len(p.ids) {
				return
			}
			a := view.Store().Get(p.ids[i])
			if a == nil {
				return
			}
			obj.(*widget.Label).SetText(describeAnnotation(a))
		},
	)
	p.list.OnSelected = func(i widget.ListItemID) {
		if i < 0 || i >= len(p.ids) {
			return
		}
		p.selected = p.ids[i]
		view.Overlay().Select(p.selected)
		p.updateButtons()
		p.canvas.Refresh()
	}
	p.list.OnUnselected = func(widget.ListItemID) {
		p.selected = ""
		view.Overlay().Select("")
		p.updateButtons()
		p.canvas.Refresh()
	}

	p.editBtn = widget.NewButton("Edit Text", p.onEdit)
	p.toggleBtn = widget.NewButton("Toggle Check", p.onToggle)
	p.removeBtn = widget.NewButton("Remove", p.onRemove)
	p.updateButtons()

	buttons := container.NewVBox(p.editBtn, p.toggleBtn, p.removeBtn)
	p.container = container.NewBorder(p.countLabel, buttons, nil, nil, p.list)

	bus.On(event.AnnotationsModified, func(interface{}) { p.Refresh() })
	bus.On(event.PageChanged, func(interface{}) { p.Refresh() })

	return p
}

// Container returns the panel container.
func (p *AnnotationsPanel) Container() fyne.CanvasObject {
	return p.container
}

// SetWindow sets the parent window for dialogs.
func (p *AnnotationsPanel) SetWindow(w fyne.Window) {
	p.window = w
}

// Refresh rebuilds the list from the store's current-page annotations.
func (p *AnnotationsPanel) Refresh() {
	page := p.view.Overlay().PageIndex()
	p.ids = p.ids[:0]
	stillThere := false
	for _, a := range p.view.Store().ByPage(page) {
		p.ids = append(p.ids, a.ID)
		if a.ID == p.selected {
			stillThere = true
		}
	}
	if !stillThere {
		p.selected = ""
	}

	switch len(p.ids) {
	case 0:
		p.countLabel.SetText("No annotations")
	case 1:
		p.countLabel.SetText("1 annotation")
	default:
		p.countLabel.SetText(fmt.Sprintf("%d annotations", len(p.ids)))
	}

	p.updateButtons()
	p.list.Refresh()
}

func (p *AnnotationsPanel) updateButtons() {
	a := p.selectedAnnotation()
	if a == nil {
		p.editBtn.Disable()
		p.toggleBtn.Disable()
		p.removeBtn.Disable()
		return
	}
	p.removeBtn.Enable()
	if a.Type == annot.Text || a.Type == annot.Signature {
		p.editBtn.Enable()
	} else {
		p.editBtn.Disable()
	}
	if a.Type == annot.Checkbox {
		p.toggleBtn.Enable()
	} else {
		p.toggleBtn.Disable()
	}
}

func (p *AnnotationsPanel) selectedAnnotation() *annot.Annotation {
	if p.selected == "" {
		return nil
	}
	return p.view.Store().Get(p.selected)
}

func (p *AnnotationsPanel) onEdit() {
	a := p.selectedAnnotation()
	if a == nil || p.window == nil {
		return
	}
	dialogs.ShowTextEdit(p.window, a.Text, func(text string) {
		p.view.EditText(a.ID, text)
		p.canvas.Refresh()
	})
}

func (p *AnnotationsPanel) onToggle() {
	a := p.selectedAnnotation()
	if a == nil {
		return
	}
	p.view.ToggleChecked(a.ID)
	p.canvas.Refresh()
}

func (p *AnnotationsPanel) onRemove() {
	a := p.selectedAnnotation()
	if a == nil {
		return
	}
	p.view.RemoveAnnotation(a.ID)
	p.selected = ""
	p.list.UnselectAll()
	p.canvas.Refresh()
}

func describeAnnotation(a *annot.Annotation) string {
	switch a.Type {
	case annot.Text, annot.Signature:
		text := a.Text
		if len(text) > 24 {
			text = text[:21] + "..."
		}
		if text == "" {
			text = "(empty)"
		}
		return fmt.Sprintf("%s: %s", a.Type, text)
	case annot.Checkbox:
		if a.Style.Checked {
			return "checkbox: checked"
		}
		return "checkbox: unchecked"
	default:
		return fmt.Sprintf("%s @ %.0f,%.0f", a.Type, a.Position.X, a.Position.Y)
	}
}
