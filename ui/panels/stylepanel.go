package panels

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"doc-annotator/internal/editor"
	"doc-annotator/internal/event"
	"doc-annotator/internal/session"
)

var fontFamilies = []string{"sans", "serif", "bold", "mono"}

// StylePanel edits the style defaults of the active tool mode. Changes
// apply to annotations placed afterwards, never to existing ones.
type StylePanel struct {
	view *session.DocumentView

	modeLabel  *widget.Label
	family     *widget.Select
	size       *widget.Entry
	color      *widget.Entry
	background *widget.Entry
	opacity    *widget.Slider
	container  fyne.CanvasObject

	loading bool
}

// NewStylePanel creates the style panel.
func NewStylePanel(view *session.DocumentView, bus *event.Bus) *StylePanel {
	p := &StylePanel{
		view:      view,
		modeLabel: widget.NewLabel("No tool active"),
	}

	p.family = widget.NewSelect(fontFamilies, func(v string) {
		if p.loading {
			return
		}
		view.Facade().SetParameters(editor.Patch{FontFamily: &v})
	})
	p.size = widget.NewEntry()
	p.size.OnSubmitted = func(v string) {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			p.load()
			return
		}
		view.Facade().SetParameters(editor.Patch{FontSize: &n})
	}
	p.color = widget.NewEntry()
	p.color.PlaceHolder = "#rrggbb"
	p.color.OnSubmitted = func(v string) {
		view.Facade().SetParameters(editor.Patch{Color: &v})
	}
	p.background = widget.NewEntry()
	p.background.PlaceHolder = "empty = transparent"
	p.background.OnSubmitted = func(v string) {
		view.Facade().SetParameters(editor.Patch{Background: &v})
	}
	p.opacity = widget.NewSlider(0.05, 1.0)
	p.opacity.Step = 0.05
	p.opacity.OnChanged = func(v float64) {
		if p.loading {
			return
		}
		view.Facade().SetParameters(editor.Patch{Opacity: &v})
	}

	form := widget.NewForm(
		widget.NewFormItem("Font", p.family),
		widget.NewFormItem("Size", p.size),
		widget.NewFormItem("Color", p.color),
		widget.NewFormItem("Background", p.background),
		widget.NewFormItem("Opacity", p.opacity),
	)
	p.container = container.NewVBox(p.modeLabel, form)

	bus.On(event.ModeChanged, func(interface{}) { p.load() })
	p.load()

	return p
}

// Container returns the panel container.
func (p *StylePanel) Container() fyne.CanvasObject {
	return p.container
}

// load populates the form from the active mode's parameters.
func (p *StylePanel) load() {
	p.loading = true
	defer func() { p.loading = false }()

	mode := p.view.Facade().Mode()
	if mode == editor.ModeNone {
		p.modeLabel.SetText("No tool active")
	} else {
		p.modeLabel.SetText(fmt.Sprintf("Tool: %s", mode))
	}

	params := p.view.Facade().StyleDefaults()
	p.family.SetSelected(params.FontFamily)
	if params.FontSize > 0 {
		p.size.SetText(strconv.FormatFloat(params.FontSize, 'f', -1, 64))
	} else {
		p.size.SetText("")
	}
	p.color.SetText(params.Color)
	p.background.SetText(params.Background)
	if params.Opacity > 0 {
		p.opacity.SetValue(params.Opacity)
	} else {
		p.opacity.SetValue(1.0)
	}
}
