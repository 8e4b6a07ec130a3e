package entity

// Rect is an element's bounding client rect in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// ComputedStyle holds the subset of getComputedStyle the crawler cares about.
// Width and Height are the raw computed values, e.g. "120px", "auto" or "0".
type ComputedStyle struct {
	Width      string `json:"width"`
	Height     string `json:"height"`
	Opacity    string `json:"opacity"`
	Display    string `json:"display"`
	Visibility string `json:"visibility"`
}

type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementSnapshot is the rendered layout state of one element at query time.
// Ancestors is ordered from the direct parent up to the document root.
type ElementSnapshot struct {
	Tag       string          `json:"tag"`
	Text      string          `json:"text"`
	Box       Rect            `json:"box"`
	Style     ComputedStyle   `json:"style"`
	Ancestors []ComputedStyle `json:"ancestors"`
}

// Annotation is the label attribute written on an element, scoped to one pass.
type Annotation struct {
	Label string
	Pass  uint64
}

type AnnotatedElement struct {
	Label   string
	Box     Rect
	Visible bool
	Pass    uint64
}

// AnnotationPass is the outcome of one annotation scan.
type AnnotationPass struct {
	ID         uint64
	Candidates int
	Elements   []AnnotatedElement
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}
