// Package keynav moves focus over the visible depth-first order of a tree and
// dispatches the structural key commands.
package keynav

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/traverse"
)

// Key is a navigation command independent of the terminal key that produced it.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEdit   // F2
	KeyDelete // Delete
	KeyEnter
	KeyEscape
)

// String returns a short name for the key
func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyEdit:
		return "edit"
	case KeyDelete:
		return "delete"
	case KeyEnter:
		return "enter"
	case KeyEscape:
		return "escape"
	}
	return "none"
}

// Actions is what the engine needs from its owner.
type Actions interface {
	Focused() *model.Node
	Focus(n *model.Node)
	Open(n *model.Node) tea.Cmd
	Close(n *model.Node)
	Select(n *model.Node)
	Remove(n *model.Node) error
	BeginEdit(n *model.Node) error
	IsEditing() bool
}

// Navigator computes focus targets. ShowRoot decides whether the root row
// is a reachable boundary.
type Navigator struct {
	Root     *model.Node
	ShowRoot bool
}

// Next returns the node after n in visible order, or nil at the end.
func (nav Navigator) Next(n *model.Node) *model.Node {
	if n.Open && n.HasChildren() {
		return n.FirstChild()
	}
	for cur := n; cur != nav.Root && cur.Parent() != nil; cur = cur.Parent() {
		if sib := cur.NextSibling(); sib != nil {
			return sib
		}
	}
	return nil
}

// Prev returns the node before n in visible order, or nil at the top.
func (nav Navigator) Prev(n *model.Node) *model.Node {
	if n == nav.Root {
		return nil
	}
	if sib := n.PrevSibling(); sib != nil {
		return traverse.DeepestOpenLast(sib)
	}
	p := n.Parent()
	if p == nil || (p == nav.Root && !nav.ShowRoot) {
		return nil
	}
	return p
}

// Engine applies keys to an Actions implementation.
type Engine struct {
	Nav     Navigator
	actions Actions
}

// NewEngine returns an engine driving actions.
func NewEngine(nav Navigator, actions Actions) *Engine {
	return &Engine{Nav: nav, actions: actions}
}

// Handle applies k to the focused node and returns any command produced by
// opening a node. Keys are ignored while an edit is in progress or when no
// node has focus.
func (e *Engine) Handle(k Key) tea.Cmd {
	if e.actions.IsEditing() {
		return nil
	}
	n := e.actions.Focused()
	if n == nil {
		return nil
	}

	switch k {
	case KeyDown:
		if next := e.Nav.Next(n); next != nil {
			e.actions.Focus(next)
		}
	case KeyUp:
		if prev := e.Nav.Prev(n); prev != nil {
			e.actions.Focus(prev)
		}
	case KeyLeft:
		e.left(n)
	case KeyRight:
		return e.right(n)
	case KeyEdit:
		_ = e.actions.BeginEdit(n)
	case KeyDelete:
		if n != e.Nav.Root {
			_ = e.actions.Remove(n)
		}
	case KeyEnter:
		e.actions.Select(n)
	}
	return nil
}

func (e *Engine) left(n *model.Node) {
	if n.Open && n.HasChildren() {
		e.actions.Close(n)
		return
	}
	p := n.Parent()
	if p == nil || (p == e.Nav.Root && !e.Nav.ShowRoot) {
		return
	}
	e.actions.Focus(p)
}

func (e *Engine) right(n *model.Node) tea.Cmd {
	if !n.IsContainer() {
		return nil
	}
	if !n.Open {
		return e.actions.Open(n)
	}
	if c := n.FirstChild(); c != nil {
		e.actions.Focus(c)
	}
	return nil
}
