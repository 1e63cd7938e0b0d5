// Package checkbox implements tri-state check propagation over a node registry.
package checkbox

import (
	"fmt"

	"github.com/vanderheijden86/treeview/pkg/model"
)

// Engine propagates check states. OnChange, when set, is told about every
// node whose state was written so the renderer can refresh its affordance.
type Engine struct {
	reg      *model.Registry
	OnChange func(n *model.Node)
}

// New returns an engine bound to reg.
func New(reg *model.Registry, onChange func(n *model.Node)) *Engine {
	return &Engine{reg: reg, OnChange: onChange}
}

// Determine applies the container rule: all checked gives checked, all
// unchecked gives unchecked, anything else is indeterminate. ok is false for
// an empty child list, which leaves the container's state unconstrained.
func Determine(children []*model.Node) (state model.CheckState, ok bool) {
	if len(children) == 0 {
		return model.Unchecked, false
	}
	var checked, unchecked int
	for _, c := range children {
		switch c.Check {
		case model.Checked:
			checked++
		case model.Unchecked:
			unchecked++
		}
	}
	switch {
	case checked == len(children):
		return model.Checked, true
	case unchecked == len(children):
		return model.Unchecked, true
	}
	return model.Indeterminate, true
}

// SetState writes a single node's state without cascading.
func (e *Engine) SetState(id string, state model.CheckState) error {
	n, ok := e.reg.Get(id)
	if !ok {
		return &model.StructuralError{Op: "set check state", ID: id, Err: model.ErrNotFound}
	}
	if !state.IsValid() {
		return fmt.Errorf("set check state [%s]: invalid state %d", id, int(state))
	}
	e.set(n, state)
	return nil
}

func (e *Engine) set(n *model.Node, state model.CheckState) {
	if n.Check == state {
		return
	}
	n.Check = state
	if e.OnChange != nil {
		e.OnChange(n)
	}
}

// CascadeDown sets state on n and on every descendant.
func (e *Engine) CascadeDown(n *model.Node, state model.CheckState) {
	e.set(n, state)
	for _, c := range n.Children {
		e.CascadeDown(c, state)
	}
}

// CascadeUp recomputes each ancestor of n from its direct children, up to the root.
func (e *Engine) CascadeUp(n *model.Node) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		e.Recompute(p)
	}
}

// Recompute sets n from its own children when it has any.
func (e *Engine) Recompute(n *model.Node) {
	if state, ok := Determine(n.Children); ok {
		e.set(n, state)
	}
}

// Toggle flips a node from checked to unchecked, or from anything else to
// checked, pushes the result down and then up. It returns the new state.
func (e *Engine) Toggle(n *model.Node) model.CheckState {
	next := model.Checked
	if n.Check == model.Checked {
		next = model.Unchecked
	}
	e.CascadeDown(n, next)
	e.CascadeUp(n)
	return next
}

// Sync reconciles a freshly rendered subtree: checked nodes push their state
// down, containers are recomputed bottom-up, and ancestors are fixed last.
func (e *Engine) Sync(n *model.Node) {
	e.syncDown(n)
	e.CascadeUp(n)
}

func (e *Engine) syncDown(n *model.Node) {
	if n.Check == model.Checked {
		e.CascadeDown(n, model.Checked)
		return
	}
	for _, c := range n.Children {
		e.syncDown(c)
	}
	e.Recompute(n)
}

// CollectChecked returns every non-root node that is checked or
// indeterminate, in depth-first order.
func (e *Engine) CollectChecked() []*model.Node {
	var out []*model.Node
	root := e.reg.Root()
	e.reg.Walk(root, func(n *model.Node) bool {
		if n != root && n.Check != model.Unchecked {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Verify checks that every container below from matches the determination rule.
func (e *Engine) Verify(from *model.Node) error {
	var err error
	e.reg.Walk(from, func(n *model.Node) bool {
		if state, ok := Determine(n.Children); ok && n.Check != state {
			err = fmt.Errorf("node %q is %s but its children determine %s", n.ID, n.Check, state)
			return false
		}
		return true
	})
	return err
}
