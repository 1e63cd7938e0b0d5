// Package traverse holds stateless helpers shared by the renderer, keyboard
// navigation and drag engine: element identity, indentation and visible order.
package traverse

import (
	"strings"

	"github.com/vanderheijden86/treeview/pkg/model"
)

// ElementPrefix prefixes every rendered row identifier.
const ElementPrefix = "dt-"

// ElementID returns the identifier of the row rendered for nodeID.
func ElementID(nodeID string) string {
	return ElementPrefix + nodeID
}

// NodeIDFromElement recovers the node id from a row identifier.
func NodeIDFromElement(elementID string) (string, bool) {
	if !strings.HasPrefix(elementID, ElementPrefix) {
		return "", false
	}
	return strings.TrimPrefix(elementID, ElementPrefix), true
}

// Metrics describes the horizontal layout of a row. Units are whatever the
// surface uses: terminal cells for the TUI, pixels for image export.
type Metrics struct {
	PerLevel      int
	ShowRoot      bool
	ExpanderWidth int
	CheckboxWidth int // zero when checkboxes are disabled
	IconWidth     int // zero when icons are disabled
}

// BasePadding is the offset of depth-1 rows: one level when the root row is shown.
func (m Metrics) BasePadding() int {
	if m.ShowRoot {
		return m.PerLevel
	}
	return 0
}

// Indent returns basePadding + (depth-1) * perLevel. The root row sits at zero.
func Indent(depth int, m Metrics) int {
	if depth <= 0 {
		return 0
	}
	return m.BasePadding() + (depth-1)*m.PerLevel
}

// ContentOffset returns where the label starts: indentation plus the
// expander, checkbox and icon columns. The drop indicator starts here too.
func ContentOffset(depth int, m Metrics) int {
	return Indent(depth, m) + m.ExpanderWidth + m.CheckboxWidth + m.IconWidth
}

// IsVisible reports whether every ancestor of n is open.
func IsVisible(n *model.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !p.Open {
			return false
		}
	}
	return true
}

// IsDescendant reports whether n sits somewhere below anc by walking n's
// ancestor chain.
func IsDescendant(anc, n *model.Node) bool {
	if anc == nil || n == nil {
		return false
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == anc {
			return true
		}
	}
	return false
}

// VisibleOrder lists the nodes a user sees top to bottom. The root itself is
// included only when showRoot is set; its children are listed regardless.
func VisibleOrder(root *model.Node, showRoot bool) []*model.Node {
	var out []*model.Node
	if showRoot {
		out = append(out, root)
		if !root.Open {
			return out
		}
	}
	var walk func(n *model.Node)
	walk = func(n *model.Node) {
		for _, c := range n.Children {
			out = append(out, c)
			if c.Open {
				walk(c)
			}
		}
	}
	walk(root)
	return out
}

// IndexOf returns the position of n in nodes, or -1.
func IndexOf(nodes []*model.Node, n *model.Node) int {
	for i, x := range nodes {
		if x == n {
			return i
		}
	}
	return -1
}

// DeepestOpenLast descends from n into its last child while that child is
// open and has children, returning the deepest such node.
func DeepestOpenLast(n *model.Node) *model.Node {
	for n.Open && n.HasChildren() {
		n = n.LastChild()
	}
	return n
}
