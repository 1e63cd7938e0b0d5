// Package render materializes a node tree into terminal rows and patches
// only the affected subtree when a node changes.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/traverse"
)

// Column widths in cells.
const (
	ExpanderWidth = 2 // glyph + space
	CheckboxWidth = 4 // "[x] "
	IconWidth     = 2 // glyph + space
)

// Options configure what a row shows.
type Options struct {
	ShowRoot  bool
	Checkbox  bool
	Icon      bool
	PerLevel  int
	RowHeight int
	Width     int

	// NodeStyle adds a style to a node's label when ok is true.
	NodeStyle func(n *model.Node) (style lipgloss.Style, ok bool)
	// GetIcon overrides the icon hint of a node.
	GetIcon func(n *model.Node) string
}

// Element is the rendered form of one node: its row plus the block holding
// its children. Closed containers carry an empty, unpopulated block.
type Element struct {
	ID       string
	Node     *model.Node
	Row      string
	Children *Block
}

// Block is an ordered list of sibling elements.
type Block struct {
	Elements  []*Element
	Populated bool
}

// Part is the region of a row under a pointer.
type Part int

const (
	PartNone Part = iota
	PartExpander
	PartCheckbox
	PartLabel
)

// Stats counts render work; used to check that refreshes stay local.
type Stats struct {
	FullRenders int
	Refreshes   int
	RowRenders  int
}

// Renderer keeps the element tree and the element id <-> node mapping.
type Renderer struct {
	theme Theme
	opts  Options
	root  *model.Node

	top      *Block
	elements map[string]*Element

	lines []*Element // flattened visible elements, rebuilt when dirty
	dirty bool

	Stats Stats
}

// New returns a renderer for the tree under root. Call RenderRoot to build it.
func New(root *model.Node, theme Theme, opts Options) *Renderer {
	if opts.PerLevel <= 0 {
		opts.PerLevel = 2
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = 1
	}
	return &Renderer{
		theme:    theme,
		opts:     opts,
		root:     root,
		elements: make(map[string]*Element),
		top:      &Block{},
		dirty:    true,
	}
}

// Theme returns the renderer's theme.
func (r *Renderer) Theme() Theme { return r.theme }

// Options returns the renderer's options.
func (r *Renderer) Options() Options { return r.opts }

// SetWidth changes the surface width and re-renders every row.
func (r *Renderer) SetWidth(w int) {
	if w == r.opts.Width {
		return
	}
	r.opts.Width = w
	for _, el := range r.elements {
		r.renderRow(el)
	}
	r.dirty = true
}

// Metrics returns the row layout used for indentation and hit-testing.
func (r *Renderer) Metrics() traverse.Metrics {
	m := traverse.Metrics{
		PerLevel:      r.opts.PerLevel,
		ShowRoot:      r.opts.ShowRoot,
		ExpanderWidth: ExpanderWidth,
	}
	if r.opts.Checkbox {
		m.CheckboxWidth = CheckboxWidth
	}
	if r.opts.Icon {
		m.IconWidth = IconWidth
	}
	return m
}

// RowHeight returns the number of lines each row occupies.
func (r *Renderer) RowHeight() int { return r.opts.RowHeight }

// RenderRoot rebuilds the whole surface.
func (r *Renderer) RenderRoot() {
	r.Stats.FullRenders++
	r.elements = make(map[string]*Element)
	if r.opts.ShowRoot {
		r.top = &Block{Elements: []*Element{r.build(r.root)}, Populated: true}
	} else {
		r.top = r.buildBlock(r.root.Children)
	}
	r.dirty = true
}

// Refresh re-renders the node's row and replaces the contents of its child
// block, creating the block if it does not exist yet. Nodes that are not
// currently rendered are ignored; it reports whether anything changed.
func (r *Renderer) Refresh(id string) bool {
	if id == r.root.ID && !r.opts.ShowRoot {
		r.Stats.Refreshes++
		r.drop(r.top)
		r.top = r.buildBlock(r.root.Children)
		r.dirty = true
		return true
	}
	el, ok := r.elements[id]
	if !ok {
		return false
	}
	r.Stats.Refreshes++
	r.renderRow(el)
	n := el.Node
	switch {
	case !n.IsContainer():
		r.drop(el.Children)
		el.Children = nil
	case el.Children == nil:
		el.Children = r.childBlock(n)
	default:
		r.drop(el.Children)
		fresh := r.childBlock(n)
		el.Children.Elements = fresh.Elements
		el.Children.Populated = fresh.Populated
	}
	r.dirty = true
	return true
}

// RefreshRow re-renders only the node's own row.
func (r *Renderer) RefreshRow(id string) bool {
	el, ok := r.elements[id]
	if !ok {
		return false
	}
	r.renderRow(el)
	return true
}

func (r *Renderer) build(n *model.Node) *Element {
	el := &Element{ID: traverse.ElementID(n.ID), Node: n}
	r.elements[n.ID] = el
	r.renderRow(el)
	if n.IsContainer() {
		el.Children = r.childBlock(n)
	}
	return el
}

// childBlock recurses only into open nodes; closed ones get a placeholder.
func (r *Renderer) childBlock(n *model.Node) *Block {
	if !n.Open {
		return &Block{}
	}
	return r.buildBlock(n.Children)
}

func (r *Renderer) buildBlock(nodes []*model.Node) *Block {
	b := &Block{Populated: true, Elements: make([]*Element, 0, len(nodes))}
	for _, c := range nodes {
		b.Elements = append(b.Elements, r.build(c))
	}
	return b
}

// drop unregisters every element in b recursively.
func (r *Renderer) drop(b *Block) {
	if b == nil {
		return
	}
	for _, el := range b.Elements {
		if cur, ok := r.elements[el.Node.ID]; ok && cur == el {
			delete(r.elements, el.Node.ID)
		}
		r.drop(el.Children)
	}
	b.Elements = nil
}

// Element returns the rendered element for a node id.
func (r *Renderer) Element(id string) (*Element, bool) {
	el, ok := r.elements[id]
	return el, ok
}

// NodeByElementID resolves a "dt-<id>" element identifier to its node.
func (r *Renderer) NodeByElementID(elementID string) (*model.Node, bool) {
	id, ok := traverse.NodeIDFromElement(elementID)
	if !ok {
		return nil, false
	}
	el, ok := r.elements[id]
	if !ok {
		return nil, false
	}
	return el.Node, true
}

func (r *Renderer) flatten() {
	if !r.dirty {
		return
	}
	r.lines = r.lines[:0]
	var walk func(b *Block)
	walk = func(b *Block) {
		if b == nil {
			return
		}
		for _, el := range b.Elements {
			r.lines = append(r.lines, el)
			if el.Node.Open {
				walk(el.Children)
			}
		}
	}
	walk(r.top)
	r.dirty = false
}

// Rows returns the visible elements in order.
func (r *Renderer) Rows() []*Element {
	r.flatten()
	return r.lines
}

// Lines returns the rendered surface, RowHeight lines per row with the row
// content on the middle line.
func (r *Renderer) Lines() []string {
	r.flatten()
	h := r.opts.RowHeight
	out := make([]string, 0, len(r.lines)*h)
	for _, el := range r.lines {
		for i := 0; i < h; i++ {
			if i == h/2 {
				out = append(out, el.Row)
			} else {
				out = append(out, "")
			}
		}
	}
	return out
}

// String joins Lines with newlines.
func (r *Renderer) String() string {
	return strings.Join(r.Lines(), "\n")
}

// LineCount is the number of surface lines.
func (r *Renderer) LineCount() int {
	r.flatten()
	return len(r.lines) * r.opts.RowHeight
}

// NodeAt maps a surface line to the node rendered there and the top line of its row.
func (r *Renderer) NodeAt(line int) (n *model.Node, top int, ok bool) {
	r.flatten()
	if line < 0 {
		return nil, 0, false
	}
	idx := line / r.opts.RowHeight
	if idx >= len(r.lines) {
		return nil, 0, false
	}
	return r.lines[idx].Node, idx * r.opts.RowHeight, true
}

// RowOf returns the top surface line of a node's row.
func (r *Renderer) RowOf(id string) (int, bool) {
	r.flatten()
	for i, el := range r.lines {
		if el.Node.ID == id {
			return i * r.opts.RowHeight, true
		}
	}
	return 0, false
}

// HitPart tells which region of n's row column x falls in.
func (r *Renderer) HitPart(n *model.Node, x int) Part {
	m := r.Metrics()
	start := traverse.Indent(n.Depth, m)
	switch {
	case x < start:
		return PartNone
	case x < start+m.ExpanderWidth:
		if n.IsContainer() {
			return PartExpander
		}
		return PartLabel
	case m.CheckboxWidth > 0 && x < start+m.ExpanderWidth+m.CheckboxWidth:
		return PartCheckbox
	}
	return PartLabel
}

func (r *Renderer) renderRow(el *Element) {
	r.Stats.RowRenders++
	el.Row = r.RenderRow(el.Node)
}

// RenderRow renders one node's row: indentation, expander, optional
// checkbox, optional icon and the label.
func (r *Renderer) RenderRow(n *model.Node) string {
	t := r.theme
	m := r.Metrics()
	var sb strings.Builder

	indent := traverse.Indent(n.Depth, m)
	sb.WriteString(strings.Repeat(" ", indent))

	sb.WriteString(t.Expander.Render(ExpandGlyph(n)))
	sb.WriteString(" ")

	if r.opts.Checkbox {
		sb.WriteString(t.Checkbox.Render(CheckGlyph(n.Check)))
		sb.WriteString(" ")
	}

	if r.opts.Icon {
		hint := n.Icon
		if r.opts.GetIcon != nil {
			if h := r.opts.GetIcon(n); h != "" {
				hint = h
			}
		}
		glyph, color := t.Icon(hint, n.IsContainer(), n.Open)
		sb.WriteString(t.Renderer.NewStyle().Foreground(color).Render(glyph))
		sb.WriteString(" ")
	}

	label := n.Label
	if r.opts.Width > 0 {
		label = truncateRunes(label, r.opts.Width-traverse.ContentOffset(n.Depth, m), "…")
	}
	style := t.Base
	if n.Selected {
		style = t.Selected
	}
	if r.opts.NodeStyle != nil {
		if s, ok := r.opts.NodeStyle(n); ok {
			style = style.Inherit(s)
		}
	}
	if n.Highlighted {
		style = style.Foreground(t.Match).Underline(true)
	}
	sb.WriteString(style.Render(label))
	if n.Change != model.ChangeNone {
		sb.WriteString(t.Changed.Render(" " + string(n.Change)))
	}

	row := sb.String()
	if n.Focused {
		row = t.Focused.Render(row)
	}
	return row
}

// ExpandGlyph is the expander affordance; blank for leaves.
func ExpandGlyph(n *model.Node) string {
	if !n.IsContainer() {
		return " "
	}
	if n.Open {
		return "▾"
	}
	return "▸"
}

// CheckGlyph renders a check state as a three-cell box.
func CheckGlyph(s model.CheckState) string {
	switch s {
	case model.Checked:
		return "[x]"
	case model.Indeterminate:
		return "[-]"
	}
	return "[ ]"
}

// truncateRunes truncates s to maxWidth cells, adding suffix if needed.
func truncateRunes(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}
