package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/traverse"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// SnapshotOptions controls image export of the visible rows.
type SnapshotOptions struct {
	Path   string // format inferred from extension when Format is empty
	Format string // "svg" or "png"
	Title  string
	// CellWidth is the pixel width of one indentation unit. Defaults to 8.
	CellWidth int
	// RowPixels is the pixel height of a row. Defaults to 22.
	RowPixels int
}

const (
	snapMargin = 16
	snapHeader = 40
)

var (
	colorBackdrop = color.RGBA{0x28, 0x2a, 0x36, 0xff}
	colorText     = color.RGBA{0xf8, 0xf8, 0xf2, 0xff}
	colorSubtle   = color.RGBA{0x62, 0x72, 0xa4, 0xff}
	colorCheck    = color.RGBA{0xbd, 0x93, 0xf9, 0xff}
	colorChanged  = color.RGBA{0xff, 0xb8, 0x6c, 0xff}
	colorFocus    = color.RGBA{0x44, 0x47, 0x5a, 0xff}
)

type snapRow struct {
	X, Y      float64
	Label     string
	Container bool
	Open      bool
	Check     model.CheckState
	Checks    bool
	Changed   bool
	Focused   bool
}

type snapLayout struct {
	Width, Height int
	RowH          float64
	Title         string
	Rows          []snapRow
}

func (o SnapshotOptions) format() (string, error) {
	format := strings.ToLower(strings.TrimPrefix(o.Format, "."))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(o.Path)), ".")
	}
	if format == "" {
		format = "svg"
	}
	if format != "svg" && format != "png" {
		return "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return format, nil
}

func buildSnapshot(t *tree.Tree, opts SnapshotOptions) snapLayout {
	cell := opts.CellWidth
	if cell <= 0 {
		cell = 8
	}
	rowPx := opts.RowPixels
	if rowPx <= 0 {
		rowPx = 22
	}
	r := t.Renderer()
	m := r.Metrics()
	checks := t.Options().Checkbox != nil
	focused := t.Focused()

	l := snapLayout{RowH: float64(rowPx), Title: opts.Title}
	if l.Title == "" {
		l.Title = t.Root().Label
	}
	maxX := 0
	for i, el := range r.Rows() {
		n := el.Node
		x := traverse.Indent(n.Depth, m) * cell
		l.Rows = append(l.Rows, snapRow{
			X:         float64(snapMargin + x),
			Y:         float64(snapHeader + snapMargin + i*rowPx),
			Label:     n.Label,
			Container: n.IsContainer(),
			Open:      n.Open,
			Check:     n.Check,
			Checks:    checks,
			Changed:   n.Change != model.ChangeNone,
			Focused:   n == focused,
		})
		if end := x + (len([]rune(n.Label))+10)*7; end > maxX {
			maxX = end
		}
	}
	l.Width = max(320, maxX+2*snapMargin)
	l.Height = snapHeader + 2*snapMargin + len(l.Rows)*rowPx
	return l
}

// SaveSnapshot renders the visible rows to an SVG or PNG file, indented by
// the renderer's metrics.
func SaveSnapshot(t *tree.Tree, opts SnapshotOptions) error {
	format, err := opts.format()
	if err != nil {
		return err
	}
	if opts.Path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	layout := buildSnapshot(t, opts)
	if format == "png" {
		return renderPNG(opts.Path, layout)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := writeSVG(f, layout); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Snapshot renders the visible rows as SVG to w.
func Snapshot(w io.Writer, t *tree.Tree, opts SnapshotOptions) error {
	return writeSVG(w, buildSnapshot(t, opts))
}

func renderPNG(path string, l snapLayout) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, snapMargin, snapMargin+10, 0, 0.5)

	for _, r := range l.Rows {
		mid := r.Y + l.RowH/2
		if r.Focused {
			dc.SetColor(colorFocus)
			dc.DrawRectangle(r.X-4, r.Y, float64(l.Width)-r.X-snapMargin+4, l.RowH)
			dc.Fill()
		}
		x := r.X
		if r.Container {
			dc.SetColor(colorSubtle)
			drawExpander(dc, x, mid, r.Open)
		}
		x += 16
		if r.Checks {
			drawCheckbox(dc, x, mid, r.Check)
			x += 20
		}
		dc.SetColor(colorText)
		if r.Changed {
			dc.SetColor(colorChanged)
		}
		dc.DrawStringAnchored(r.Label, x, mid, 0, 0.5)
	}
	return dc.SavePNG(path)
}

func drawExpander(dc *gg.Context, x, y float64, open bool) {
	dc.NewSubPath()
	if open {
		dc.MoveTo(x, y-3)
		dc.LineTo(x+8, y-3)
		dc.LineTo(x+4, y+3)
	} else {
		dc.MoveTo(x+1, y-4)
		dc.LineTo(x+7, y)
		dc.LineTo(x+1, y+4)
	}
	dc.ClosePath()
	dc.Fill()
}

func drawCheckbox(dc *gg.Context, x, y float64, s model.CheckState) {
	dc.SetColor(colorCheck)
	dc.SetLineWidth(1.2)
	dc.DrawRectangle(x, y-6, 12, 12)
	dc.Stroke()
	switch s {
	case model.Checked:
		dc.DrawRectangle(x+3, y-3, 6, 6)
		dc.Fill()
	case model.Indeterminate:
		dc.DrawLine(x+3, y, x+9, y)
		dc.Stroke()
	}
}

// writeSVG writes a laid-out snapshot.
func writeSVG(w io.Writer, l snapLayout) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, "fill:"+css(colorBackdrop))
	canvas.Text(snapMargin, snapMargin+14, l.Title,
		fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold", css(colorText)))

	for _, r := range l.Rows {
		x, y := int(r.X), int(r.Y)
		mid := y + int(l.RowH)/2
		if r.Focused {
			canvas.Rect(x-4, y, l.Width-x-snapMargin+4, int(l.RowH), "fill:"+css(colorFocus))
		}
		if r.Container {
			if r.Open {
				canvas.Polygon([]int{x, x + 8, x + 4}, []int{mid - 3, mid - 3, mid + 3}, "fill:"+css(colorSubtle))
			} else {
				canvas.Polygon([]int{x + 1, x + 7, x + 1}, []int{mid - 4, mid, mid + 4}, "fill:"+css(colorSubtle))
			}
		}
		x += 16
		if r.Checks {
			canvas.Rect(x, mid-6, 12, 12, fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.2", css(colorCheck)))
			switch r.Check {
			case model.Checked:
				canvas.Rect(x+3, mid-3, 6, 6, "fill:"+css(colorCheck))
			case model.Indeterminate:
				canvas.Line(x+3, mid, x+9, mid, fmt.Sprintf("stroke:%s;stroke-width:1.2", css(colorCheck)))
			}
			x += 20
		}
		fill := colorText
		if r.Changed {
			fill = colorChanged
		}
		canvas.Text(x, mid+4, r.Label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(fill)))
	}
	canvas.End()
	return nil
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
