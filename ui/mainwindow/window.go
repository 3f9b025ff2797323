// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/editor"
	"doc-annotator/internal/event"
	"doc-annotator/internal/session"
	"doc-annotator/internal/version"
	"doc-annotator/pkg/geometry"
	"doc-annotator/ui/canvas"
	"doc-annotator/ui/dialogs"
	"doc-annotator/ui/panels"
)

const prefKeyLastDir = "lastDirectory"

// sidecarSuffix is appended to the document path for annotation sidecars.
const sidecarSuffix = ".annotations.json"

var documentExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff"}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	view      *session.DocumentView
	bus       *event.Bus
	canvas    *canvas.PageCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label
	pageLabel *widget.Label

	modeButtons map[editor.Mode]*widget.Button

	// Menu items that need state tracking
	fitToWindowItem *fyne.MenuItem

	docPath string
}

// New creates a new main window.
func New(fyneApp fyne.App, view *session.DocumentView, bus *event.Bus) *MainWindow {
	win := fyneApp.NewWindow("Doc Annotator")

	mw := &MainWindow{
		Window:      win,
		app:         fyneApp,
		view:        view,
		bus:         bus,
		modeButtons: make(map[editor.Mode]*widget.Button),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewPageCanvas(mw.view)
	mw.canvas.OnTap(mw.onCanvasTap)
	mw.canvas.OnAltTap(mw.onCanvasAltTap)
	mw.canvas.OnDragRect(mw.onCanvasDrag)
	mw.canvas.OnZoom(func(in bool) {
		if in {
			mw.onZoomIn()
		} else {
			mw.onZoomOut()
		}
	})

	mw.sidePanel = panels.NewSidePanel(mw.view, mw.bus, mw.canvas)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")
	mw.pageLabel = widget.NewLabel("")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar, // top
		nil,     // bottom
		nil,     // left
		nil,     // right
		mw.canvas,
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil, // top
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.pageLabel, mw.statusBar)), // bottom
		nil, // left
		nil, // right
		split,
	)

	mw.SetContent(content)
}

// createToolbar creates the tool and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	modeNames := map[editor.Mode]string{
		editor.ModeText:      "Text",
		editor.ModeHighlight: "Highlight",
		editor.ModeSignature: "Sign",
		editor.ModeCheckbox:  "Checkbox",
	}

	items := []fyne.CanvasObject{widget.NewLabel("Tools:")}
	for _, m := range editor.Modes {
		mode := m
		btn := widget.NewButton(modeNames[mode], func() {
			mw.onSelectMode(mode)
		})
		mw.modeButtons[mode] = btn
		items = append(items, btn)
	}

	items = append(items,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onToggleFitToWindow),
		widget.NewButton("1:1", mw.onActualSize),
		widget.NewButton("Rotate", mw.onRotate),
		widget.NewSeparator(),
		widget.NewButton("<", mw.onPrevPage),
		widget.NewButton(">", mw.onNextPage),
	)

	return container.NewHBox(items...)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Document...", mw.onOpenDocument),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Annotations", mw.onSaveAnnotations),
		fyne.NewMenuItem("Export Flattened...", mw.onExport),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("  Fit to Window", mw.onToggleFitToWindow)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItem("Rotate Clockwise", mw.onRotate),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Next Page", mw.onNextPage),
		fyne.NewMenuItem("Previous Page", mw.onPrevPage),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, viewMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// setupEventHandlers registers for editor events.
func (mw *MainWindow) setupEventHandlers() {
	mw.bus.On(event.PageChanged, func(data interface{}) {
		d, ok := data.(event.PageChangedData)
		if !ok {
			return
		}
		mw.canvas.SyncViewport()
		mw.updatePageLabel(d.PageIndex, d.Scale)
	})

	mw.bus.On(event.AnnotationsModified, func(interface{}) {
		mw.canvas.Refresh()
		mw.updateTitle()
	})

	mw.bus.On(event.ModeChanged, func(data interface{}) {
		if d, ok := data.(event.ModeChangedData); ok {
			mw.syncModeButtons()
			if d.Mode == string(editor.ModeNone) {
				mw.updateStatus("Tool deactivated")
			} else {
				mw.updateStatus("Tool: " + d.Mode)
			}
		}
	})

	mw.bus.On(event.ExportComplete, func(data interface{}) {
		if d, ok := data.(event.ExportCompleteData); ok {
			mw.updateStatus(fmt.Sprintf("Exported %d annotated pages (%d bytes)", d.Pages, d.Bytes))
			mw.updateTitle()
		}
	})

	mw.bus.On(event.Error, func(data interface{}) {
		if d, ok := data.(event.ErrorData); ok {
			mw.updateStatus("Error: " + d.Message)
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updatePageLabel(pageIndex int, scale float64) {
	total := 0
	if doc := mw.view.Document(); doc != nil {
		total = doc.PageCount()
	}
	mw.pageLabel.SetText(fmt.Sprintf("Page %d/%d  %.0f%%", pageIndex, total, scale*100))
}

func (mw *MainWindow) updateTitle() {
	title := "Doc Annotator"
	if mw.docPath != "" {
		title += " - " + filepath.Base(mw.docPath)
	}
	if mw.view.Modified() {
		title += " *"
	}
	mw.SetTitle(title)
}

func (mw *MainWindow) syncModeButtons() {
	active := mw.view.Facade().Mode()
	for mode, btn := range mw.modeButtons {
		if mode == active {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	dir := filepath.Dir(filePath)
	mw.app.Preferences().SetString(prefKeyLastDir, dir)
}

// Canvas interaction handlers

func (mw *MainWindow) onSelectMode(mode editor.Mode) {
	// Clicking the active tool's button deactivates it.
	if mw.view.Facade().Mode() == mode {
		mw.view.Facade().SetMode(editor.ModeNone)
		return
	}
	mw.view.Facade().SetMode(mode)
}

func (mw *MainWindow) onCanvasTap(p geometry.Point2D) {
	mode := mw.view.Facade().Mode()
	if mode == editor.ModeNone {
		a := mw.view.SelectAt(p)
		mw.canvas.Refresh()
		if a != nil {
			mw.updateStatus(fmt.Sprintf("Selected %s annotation", a.Type))
		}
		return
	}
	// Highlights are sized by drag; a bare click uses the default extent.
	a := mw.view.PlaceAt(p)
	if a == nil {
		return
	}
	mw.canvas.Refresh()
	if a.Type == annot.Text || a.Type == annot.Signature {
		mw.promptForText(a.ID)
	}
}

func (mw *MainWindow) onCanvasAltTap(p geometry.Point2D) {
	a := mw.view.SelectAt(p)
	mw.canvas.Refresh()
	if a == nil {
		return
	}
	switch a.Type {
	case annot.Text, annot.Signature:
		mw.promptForText(a.ID)
	case annot.Checkbox:
		mw.view.ToggleChecked(a.ID)
		mw.canvas.Refresh()
	}
}

func (mw *MainWindow) onCanvasDrag(r geometry.Rect) {
	if mw.view.Facade().Mode() != editor.ModeHighlight {
		return
	}
	if mw.view.DragHighlight(r) != nil {
		mw.canvas.Refresh()
	}
}

func (mw *MainWindow) promptForText(id string) {
	a := mw.view.Store().Get(id)
	if a == nil {
		return
	}
	dialogs.ShowTextEdit(mw.Window, a.Text, func(text string) {
		mw.view.EditText(id, text)
		mw.canvas.Refresh()
	})
}

// Menu action handlers

func (mw *MainWindow) onOpenDocument() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.OpenDocument(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(documentExtensions))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// OpenDocument loads a document from disk, along with its annotation
// sidecar when one exists next to it.
func (mw *MainWindow) OpenDocument(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	if _, err := mw.view.LoadDocument(context.Background(), data); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.docPath = path

	if sidecar, err := os.ReadFile(path + sidecarSuffix); err == nil {
		if err := mw.view.Store().DecodeSidecar(sidecar); err != nil {
			mw.updateStatus("Annotation sidecar unreadable, starting fresh")
		} else {
			mw.view.Store().MarkClean()
			mw.updateStatus(fmt.Sprintf("Loaded %s with %d annotations",
				filepath.Base(path), mw.view.Store().Len()))
		}
	} else {
		mw.updateStatus("Loaded " + filepath.Base(path))
	}

	mw.updateTitle()
}

func (mw *MainWindow) onSaveAnnotations() {
	if mw.docPath == "" {
		mw.updateStatus("No document open")
		return
	}
	data, err := mw.view.Store().EncodeSidecar()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	if err := os.WriteFile(mw.docPath+sidecarSuffix, data, 0o644); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.view.Store().MarkClean()
	mw.updateTitle()
	mw.updateStatus("Annotations saved")
}

func (mw *MainWindow) onExport() {
	if mw.view.Document() == nil {
		mw.updateStatus("No document open")
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".pdf" {
			path += ".pdf"
		}
		mw.saveLastDir(path)

		res, err := mw.view.ExportDocument(context.Background())
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if err := os.WriteFile(path, res.Bytes, 0o644); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	name := "annotated.pdf"
	if mw.docPath != "" {
		base := filepath.Base(mw.docPath)
		name = base[:len(base)-len(filepath.Ext(base))] + "-annotated.pdf"
	}
	fd.SetFileName(name)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.view.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.view.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	mw.SetFitToWindow(!mw.canvas.FitToWindow())
}

// SetFitToWindow enables or disables auto-fit and syncs the menu label.
func (mw *MainWindow) SetFitToWindow(enabled bool) {
	mw.canvas.SetFitToWindow(enabled)

	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

// FitToWindow reports the current auto-fit state.
func (mw *MainWindow) FitToWindow() bool {
	return mw.canvas.FitToWindow()
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.view.SetScale(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.FitToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onRotate() {
	mw.view.RotateClockwise()
}

func (mw *MainWindow) onNextPage() {
	vp := mw.view.Coordinator().Current()
	if vp == nil {
		return
	}
	mw.view.ShowPage(vp.PageIndex + 1)
}

func (mw *MainWindow) onPrevPage() {
	vp := mw.view.Coordinator().Current()
	if vp == nil {
		return
	}
	mw.view.ShowPage(vp.PageIndex - 1)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Doc Annotator",
		fmt.Sprintf("Doc Annotator v%s\n\n"+
			"A document viewer with a vector annotation overlay.\n\n"+
			"Place text, highlights, signatures and checkboxes on any\n"+
			"page, then export a flattened copy.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
