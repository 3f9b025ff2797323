// Package dialogs provides application dialogs.
package dialogs

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ShowTextEdit opens a multiline text editor prefilled with current and
// calls onSave with the entered text if the user confirms.
func ShowTextEdit(window fyne.Window, current string, onSave func(text string)) {
	entry := widget.NewMultiLineEntry()
	entry.SetText(current)
	entry.Wrapping = fyne.TextWrapWord

	item := widget.NewFormItem("Text", entry)
	d := dialog.NewForm("Annotation Text", "Save", "Cancel",
		[]*widget.FormItem{item},
		func(ok bool) {
			if ok && onSave != nil {
				onSave(entry.Text)
			}
		}, window)
	d.Resize(fyne.NewSize(420, 220))
	d.Show()
}
