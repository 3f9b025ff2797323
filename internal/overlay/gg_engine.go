package overlay

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/log"
	"doc-annotator/pkg/colorutil"
)

var chromeColor = color.RGBA{R: 66, G: 133, B: 244, A: 255}

// placeholderTint keeps empty-background text visible while editing. It
// is chrome: never part of a flatten snapshot.
var placeholderTint = color.RGBA{R: 128, G: 128, B: 128, A: 28}

var (
	fontsOnce   sync.Once
	parsedFonts map[string]*truetype.Font
)

func loadFonts() {
	parsedFonts = make(map[string]*truetype.Font, 4)
	for family, data := range map[string][]byte{
		"sans":  goregular.TTF,
		"serif": goitalic.TTF, // slanted face reads closest to a signature hand
		"bold":  gobold.TTF,
		"mono":  gomono.TTF,
	} {
		f, err := truetype.Parse(data)
		if err != nil {
			log.Errorf("overlay: parsing embedded font %s: %v", family, err)
			continue
		}
		parsedFonts[family] = f
	}
}

type faceKey struct {
	family string
	size   float64
}

// GGEngine is the production overlay engine, drawing with fogleman/gg.
// Objects are retained in insertion order and redrawn on every
// rasterization, so a surface resize never loses state.
type GGEngine struct {
	mu       sync.Mutex
	width    int
	height   int
	nextID   uint64
	order    []uint64
	objects  map[uint64]Object
	selected uint64
	chrome   bool

	faces map[faceKey]font.Face
}

// NewGGEngine creates an empty engine with chrome visible.
func NewGGEngine() *GGEngine {
	fontsOnce.Do(loadFonts)
	return &GGEngine{
		objects: make(map[uint64]Object),
		faces:   make(map[faceKey]font.Face),
		chrome:  true,
	}
}

func (e *GGEngine) CreateSurface(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	e.width, e.height = width, height
}

func (e *GGEngine) SurfaceSize() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

func (e *GGEngine) AddObject(o Object) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.objects[id] = o
	e.order = append(e.order, id)
	return id
}

func (e *GGEngine) UpdateObject(id uint64, o Object) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.objects[id]; !ok {
		return false
	}
	e.objects[id] = o
	return true
}

func (e *GGEngine) RemoveObject(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.objects[id]; !ok {
		return false
	}
	delete(e.objects, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if e.selected == id {
		e.selected = 0
	}
	return true
}

func (e *GGEngine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.objects = make(map[uint64]Object)
	e.order = nil
	e.selected = 0
}

func (e *GGEngine) Select(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != 0 {
		if _, ok := e.objects[id]; !ok {
			return
		}
	}
	e.selected = id
}

func (e *GGEngine) Selected() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *GGEngine) SetChromeVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chrome = visible
}

func (e *GGEngine) ChromeVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chrome
}

// ObjectCount returns the number of live objects.
func (e *GGEngine) ObjectCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.objects)
}

// Rasterize draws every object, in insertion order, to a transparent
// RGBA image matching the surface bounds.
func (e *GGEngine) Rasterize() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, h := e.width, e.height
	if w < 1 || h < 1 {
		w, h = 1, 1
	}
	dc := gg.NewContext(w, h)

	for _, id := range e.order {
		o := e.objects[id]
		if e.chrome {
			e.drawChromeUnder(dc, o)
		}
		e.drawObject(dc, o)
		if e.chrome {
			e.drawChromeOver(dc, o, id == e.selected)
		}
	}

	return dc.Image().(*image.RGBA)
}

func (e *GGEngine) drawObject(dc *gg.Context, o Object) {
	switch o.Kind {
	case annot.Highlight:
		c := colorutil.ParseHexDefault(o.Style.Color, colorutil.Yellow)
		opacity := o.Style.Opacity
		if opacity <= 0 {
			opacity = 0.4
		}
		dc.SetColor(colorutil.WithOpacity(c, opacity))
		dc.DrawRectangle(o.Rect.X, o.Rect.Y, o.Rect.Width, o.Rect.Height)
		dc.Fill()

	case annot.Text, annot.Signature:
		if o.Style.Background != "" {
			dc.SetColor(colorutil.ParseHexDefault(o.Style.Background, colorutil.White))
			dc.DrawRectangle(o.Rect.X, o.Rect.Y, o.Rect.Width, o.Rect.Height)
			dc.Fill()
		}
		if o.Text == "" {
			return
		}
		size := o.Style.FontSize
		if size <= 0 {
			size = 14
		}
		family := o.Style.FontFamily
		if o.Kind == annot.Signature && family == "" {
			family = "serif"
		}
		dc.SetFontFace(e.face(family, size*o.scaleOr1()))
		dc.SetColor(colorutil.ParseHexDefault(o.Style.Color, colorutil.Black))
		pad := 2.0 * o.scaleOr1()
		dc.DrawStringWrapped(o.Text, o.Rect.X+pad, o.Rect.Y+pad, 0, 0,
			o.Rect.Width-2*pad, 1.3, gg.AlignLeft)

	case annot.Checkbox:
		c := colorutil.ParseHexDefault(o.Style.Color, colorutil.Black)
		dc.SetColor(c)
		dc.SetLineWidth(1.5 * o.scaleOr1())
		dc.DrawRectangle(o.Rect.X, o.Rect.Y, o.Rect.Width, o.Rect.Height)
		dc.Stroke()
		if o.Style.Checked {
			x, y, w, h := o.Rect.X, o.Rect.Y, o.Rect.Width, o.Rect.Height
			dc.SetLineWidth(2 * o.scaleOr1())
			dc.MoveTo(x+0.2*w, y+0.55*h)
			dc.LineTo(x+0.42*w, y+0.78*h)
			dc.LineTo(x+0.82*w, y+0.22*h)
			dc.Stroke()
		}
	}
}

// drawChromeUnder draws chrome that sits beneath the object's own pixels.
func (e *GGEngine) drawChromeUnder(dc *gg.Context, o Object) {
	if (o.Kind == annot.Text || o.Kind == annot.Signature) && o.Style.Background == "" {
		dc.SetColor(placeholderTint)
		dc.DrawRectangle(o.Rect.X, o.Rect.Y, o.Rect.Width, o.Rect.Height)
		dc.Fill()
	}
}

// drawChromeOver draws selection borders and handles above the object.
func (e *GGEngine) drawChromeOver(dc *gg.Context, o Object, selected bool) {
	s := o.scaleOr1()
	dc.SetColor(chromeColor)
	dc.SetLineWidth(1)
	dc.SetDash(4*s, 3*s)
	dc.DrawRectangle(o.Rect.X-1, o.Rect.Y-1, o.Rect.Width+2, o.Rect.Height+2)
	dc.Stroke()
	dc.SetDash()

	if !selected {
		return
	}
	handle := 6.0
	for _, corner := range o.Rect.Corners() {
		dc.DrawRectangle(corner.X-handle/2, corner.Y-handle/2, handle, handle)
		dc.Fill()
	}
}

func (o Object) scaleOr1() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

func (e *GGEngine) face(family string, size float64) font.Face {
	if _, ok := parsedFonts[family]; !ok {
		family = "sans"
	}
	key := faceKey{family: family, size: size}
	if f, ok := e.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(parsedFonts[family], &truetype.Options{Size: size})
	e.faces[key] = f
	return f
}
