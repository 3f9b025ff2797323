// Command annotsh is an interactive console for annotating documents
// without the GUI: load a document, place annotations, save the sidecar
// and export a flattened copy.
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/config"
	"doc-annotator/internal/editor"
	"doc-annotator/internal/event"
	"doc-annotator/internal/log"
	"doc-annotator/internal/render"
	"doc-annotator/internal/session"
	"doc-annotator/internal/storage"
	"doc-annotator/pkg/geometry"
)

const sidecarSuffix = ".annotations.json"

type console struct {
	view    *session.DocumentView
	library *storage.Store
	docPath string

	// docID is set while working on a library document instead of a
	// plain file; save and export then go through the library.
	docID string
}

func main() {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	bus := event.NewBus()
	view, err := session.NewDocumentView(cfg, bus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer view.Close()

	library, err := storage.NewStore(cfg.StorageDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}

	con := &console{view: view, library: library}

	shell := ishell.New()
	shell.Println("doc-annotator console. Type 'help' for commands.")

	shell.AddCmd(&ishell.Cmd{
		Name: "load",
		Help: "load <path> - open a document and its annotation sidecar",
		Func: con.cmdLoad,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "info",
		Help: "info - show document and viewport state",
		Func: con.cmdInfo,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "page",
		Help: "page <n> - show page n",
		Func: con.cmdPage,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "zoom",
		Help: "zoom <scale> - set the render scale",
		Func: con.cmdZoom,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "rotate",
		Help: "rotate - rotate the view 90 degrees clockwise",
		Func: con.cmdRotate,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "mode",
		Help: "mode <text|highlight|signature|checkbox|none> - select the tool",
		Func: con.cmdMode,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "add",
		Help: "add <x> <y> [text...] - place an annotation at page coordinates",
		Func: con.cmdAdd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "list",
		Help: "list [page] - list annotations",
		Func: con.cmdList,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "text",
		Help: "text <id> <content...> - set an annotation's text",
		Func: con.cmdText,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "check",
		Help: "check <id> - toggle a checkbox annotation",
		Func: con.cmdCheck,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "rm",
		Help: "rm <id> - remove an annotation",
		Func: con.cmdRemove,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "save",
		Help: "save - write the annotation sidecar next to the document",
		Func: con.cmdSave,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "upload",
		Help: "upload <path> - copy a document into the library",
		Func: con.cmdUpload,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "docs",
		Help: "docs - list library documents, newest first",
		Func: con.cmdDocs,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "open",
		Help: "open <id> - load a library document and its annotations",
		Func: con.cmdOpen,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "drop",
		Help: "drop <id> - delete a library document",
		Func: con.cmdDrop,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "export",
		Help: "export [out.pdf] - flatten annotations into a new document",
		Func: con.cmdExport,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "thumb",
		Help: "thumb <out.png> [width] - write a first-page preview",
		Func: con.cmdThumb,
	})

	if len(os.Args) > 1 {
		con.load(os.Args[1], func(format string, a ...interface{}) {
			fmt.Printf(format, a...)
		})
	}

	shell.Run()
}

func (con *console) load(path string, printf func(string, ...interface{})) {
	data, err := os.ReadFile(path)
	if err != nil {
		printf("read: %v\n", err)
		return
	}
	h, err := con.view.LoadDocument(context.Background(), data)
	if err != nil {
		printf("load: %v\n", err)
		return
	}
	if err := h.Wait(context.Background()); err != nil {
		printf("render: %v\n", err)
		return
	}
	con.docPath = path
	con.docID = ""

	if sidecar, err := os.ReadFile(path + sidecarSuffix); err == nil {
		if err := con.view.Store().DecodeSidecar(sidecar); err != nil {
			printf("sidecar: %v\n", err)
		} else {
			con.view.Store().MarkClean()
		}
	}
	printf("loaded %s: %d pages, %d annotations\n",
		filepath.Base(path), con.view.Document().PageCount(), con.view.Store().Len())
}

func (con *console) cmdLoad(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: load <path>")
		return
	}
	con.load(c.Args[0], c.Printf)
}

func (con *console) cmdInfo(c *ishell.Context) {
	if con.view.Document() == nil {
		c.Println("no document loaded")
		return
	}
	vp := con.view.Coordinator().Current()
	c.Printf("document: %s (%d pages)\n", filepath.Base(con.docPath), con.view.Document().PageCount())
	if vp != nil {
		c.Printf("viewport: page %d, scale %.2f, rotation %d, raster %dx%d\n",
			vp.PageIndex, vp.Scale, vp.Rotation, vp.RasterWidth, vp.RasterHeight)
	}
	c.Printf("annotations: %d total, modified: %v\n", con.view.Store().Len(), con.view.Modified())
	c.Printf("tool: %s\n", con.view.Facade().Mode())
}

func (con *console) waitRender(c *ishell.Context, h *render.Handle) {
	if h == nil {
		c.Println("no document loaded")
		return
	}
	if err := h.Wait(context.Background()); err != nil {
		c.Printf("render: %v\n", err)
	}
}

func (con *console) cmdPage(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: page <n>")
		return
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil {
		c.Printf("bad page number %q\n", c.Args[0])
		return
	}
	con.waitRender(c, con.view.ShowPage(n))
}

func (con *console) cmdZoom(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: zoom <scale>")
		return
	}
	scale, err := strconv.ParseFloat(c.Args[0], 64)
	if err != nil || scale <= 0 {
		c.Printf("bad scale %q\n", c.Args[0])
		return
	}
	con.waitRender(c, con.view.SetScale(scale))
}

func (con *console) cmdRotate(c *ishell.Context) {
	con.waitRender(c, con.view.RotateClockwise())
}

func (con *console) cmdMode(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: mode <text|highlight|signature|checkbox|none>")
		return
	}
	m := editor.Mode(c.Args[0])
	if m != editor.ModeNone {
		if _, ok := m.AnnotationType(); !ok {
			c.Printf("unknown mode %q\n", c.Args[0])
			return
		}
	}
	con.view.Facade().SetMode(m)
	c.Printf("tool: %s\n", m)
}

func (con *console) cmdAdd(c *ishell.Context) {
	if len(c.Args) < 2 {
		c.Println("usage: add <x> <y> [text...]")
		return
	}
	x, errX := strconv.ParseFloat(c.Args[0], 64)
	y, errY := strconv.ParseFloat(c.Args[1], 64)
	if errX != nil || errY != nil {
		c.Println("coordinates must be numbers")
		return
	}

	vp := con.view.Coordinator().Current()
	if vp == nil {
		c.Println("no document loaded")
		return
	}
	// The console speaks page coordinates; convert through the live
	// transform so the result is scale and rotation independent.
	screen := vp.Transform().ToScreen(geometry.Point2D{X: x, Y: y})
	a := con.view.PlaceAt(screen)
	if a == nil {
		c.Println("no tool active (use 'mode' first)")
		return
	}
	if len(c.Args) > 2 {
		con.view.EditText(a.ID, strings.Join(c.Args[2:], " "))
	}
	c.Printf("added %s %s\n", a.Type, a.ID)
}

func (con *console) cmdList(c *ishell.Context) {
	var anns []*annot.Annotation
	if len(c.Args) == 1 {
		page, err := strconv.Atoi(c.Args[0])
		if err != nil {
			c.Printf("bad page number %q\n", c.Args[0])
			return
		}
		anns = con.view.Store().ByPage(page)
	} else {
		anns = con.view.Store().All()
	}
	if len(anns) == 0 {
		c.Println("no annotations")
		return
	}
	for _, a := range anns {
		line := fmt.Sprintf("%s  p%d  %-9s  (%.1f, %.1f)", a.ID, a.PageIndex, a.Type, a.Position.X, a.Position.Y)
		if a.Text != "" {
			line += "  " + strconv.Quote(a.Text)
		}
		if a.Type == annot.Checkbox && a.Style.Checked {
			line += "  [x]"
		}
		c.Println(line)
	}
}

func (con *console) cmdText(c *ishell.Context) {
	if len(c.Args) < 2 {
		c.Println("usage: text <id> <content...>")
		return
	}
	if !con.view.EditText(c.Args[0], strings.Join(c.Args[1:], " ")) {
		c.Printf("no text annotation %q\n", c.Args[0])
	}
}

func (con *console) cmdCheck(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: check <id>")
		return
	}
	if !con.view.ToggleChecked(c.Args[0]) {
		c.Printf("no checkbox annotation %q\n", c.Args[0])
		return
	}
	a := con.view.Store().Get(c.Args[0])
	c.Printf("checked: %v\n", a.Style.Checked)
}

func (con *console) cmdRemove(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: rm <id>")
		return
	}
	if !con.view.RemoveAnnotation(c.Args[0]) {
		c.Printf("no annotation %q\n", c.Args[0])
	}
}

func (con *console) cmdSave(c *ishell.Context) {
	if con.docID != "" {
		if err := con.library.SaveSidecar(con.docID, con.view.Store()); err != nil {
			c.Printf("save: %v\n", err)
			return
		}
		con.view.Store().MarkClean()
		c.Printf("saved annotations for %s\n", con.docID)
		return
	}
	if con.docPath == "" {
		c.Println("no document loaded")
		return
	}
	data, err := con.view.Store().EncodeSidecar()
	if err != nil {
		c.Printf("encode: %v\n", err)
		return
	}
	if err := os.WriteFile(con.docPath+sidecarSuffix, data, 0o644); err != nil {
		c.Printf("write: %v\n", err)
		return
	}
	con.view.Store().MarkClean()
	c.Printf("saved %s\n", con.docPath+sidecarSuffix)
}

func (con *console) cmdUpload(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: upload <path>")
		return
	}
	data, err := os.ReadFile(c.Args[0])
	if err != nil {
		c.Printf("read: %v\n", err)
		return
	}
	id, err := con.library.Upload(data, filepath.Base(c.Args[0]))
	if err != nil {
		c.Printf("upload: %v\n", err)
		return
	}
	c.Printf("uploaded as %s\n", id)
}

func (con *console) cmdDocs(c *ishell.Context) {
	metas, err := con.library.List()
	if err != nil {
		c.Printf("list: %v\n", err)
		return
	}
	if len(metas) == 0 {
		c.Println("library is empty")
		return
	}
	for _, m := range metas {
		c.Printf("%s  %-30s  %8d bytes  %s\n",
			m.ID, m.Filename, m.Size, m.Uploaded.Format("2006-01-02 15:04"))
	}
}

func (con *console) cmdOpen(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: open <id>")
		return
	}
	data, meta, err := con.library.Fetch(c.Args[0])
	if err != nil {
		c.Printf("fetch: %v\n", err)
		return
	}
	h, err := con.view.LoadDocument(context.Background(), data)
	if err != nil {
		c.Printf("load: %v\n", err)
		return
	}
	if err := h.Wait(context.Background()); err != nil {
		c.Printf("render: %v\n", err)
		return
	}
	con.docID = meta.ID
	con.docPath = meta.Filename

	if err := con.library.LoadSidecar(meta.ID, con.view.Store()); err != nil {
		c.Printf("sidecar: %v\n", err)
	} else {
		con.view.Store().MarkClean()
	}
	c.Printf("opened %s: %d pages, %d annotations\n",
		meta.Filename, con.view.Document().PageCount(), con.view.Store().Len())
}

func (con *console) cmdDrop(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: drop <id>")
		return
	}
	if err := con.library.Delete(c.Args[0]); err != nil {
		c.Printf("delete: %v\n", err)
		return
	}
	if con.docID == c.Args[0] {
		con.docID = ""
	}
	c.Println("deleted")
}

func (con *console) cmdThumb(c *ishell.Context) {
	if len(c.Args) < 1 {
		c.Println("usage: thumb <out.png> [width]")
		return
	}
	width := uint(240)
	if len(c.Args) > 1 {
		n, err := strconv.Atoi(c.Args[1])
		if err != nil || n < 1 {
			c.Printf("bad width %q\n", c.Args[1])
			return
		}
		width = uint(n)
	}
	img, err := con.view.Thumbnail(context.Background(), width)
	if err != nil {
		c.Printf("thumbnail: %v\n", err)
		return
	}
	f, err := os.Create(c.Args[0])
	if err != nil {
		c.Printf("create: %v\n", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		c.Printf("encode: %v\n", err)
		return
	}
	c.Printf("wrote %s (%dx%d)\n", c.Args[0], img.Bounds().Dx(), img.Bounds().Dy())
}

func (con *console) cmdExport(c *ishell.Context) {
	if con.docID != "" {
		res, err := con.view.ExportDocument(context.Background())
		if err != nil {
			c.Printf("export: %v\n", err)
			return
		}
		if err := con.library.Replace(con.docID, res.Bytes); err != nil {
			c.Printf("replace: %v\n", err)
			return
		}
		c.Printf("flattened %d pages into library document %s\n", res.Pages, con.docID)
		return
	}
	if con.docPath == "" {
		c.Println("no document loaded")
		return
	}
	out := strings.TrimSuffix(con.docPath, filepath.Ext(con.docPath)) + "-annotated.pdf"
	if len(c.Args) == 1 {
		out = c.Args[0]
	}
	res, err := con.view.ExportDocument(context.Background())
	if err != nil {
		c.Printf("export: %v\n", err)
		return
	}
	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		c.Printf("write: %v\n", err)
		return
	}
	c.Printf("wrote %s (%d annotated pages, %d bytes)\n", out, res.Pages, len(res.Bytes))
}
