package tree

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treeview/pkg/dnd"
	"github.com/vanderheijden86/treeview/pkg/keynav"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/render"
	"github.com/vanderheijden86/treeview/pkg/traverse"
)

// Focused returns the node holding keyboard focus.
func (t *Tree) Focused() *model.Node { return t.focused }

// Focus moves keyboard focus to id.
func (t *Tree) Focus(id string) error {
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "focus", ID: id, Err: model.ErrNotFound}
	}
	t.reveal(n)
	t.focus(n, nil)
	return nil
}

func (t *Tree) focus(n *model.Node, msg any) {
	if n == t.focused {
		return
	}
	if prev := t.focused; prev != nil {
		prev.Focused = false
		t.render.RefreshRow(prev.ID)
	}
	t.focused = n
	if n == nil {
		return
	}
	n.Focused = true
	t.render.RefreshRow(n.ID)
	if cb := t.opts.Callbacks.FocusChanged; cb != nil {
		cb(Event{Node: n, Msg: msg})
	}
}

// GetSelectNode returns the selected node, or nil.
func (t *Tree) GetSelectNode() *model.Node { return t.selected }

// SetSelectNode selects id.
func (t *Tree) SetSelectNode(id string) error {
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "select", ID: id, Err: model.ErrNotFound}
	}
	t.selectNode(n, nil)
	return nil
}

func (t *Tree) selectNode(n *model.Node, msg any) {
	if n == t.selected {
		return
	}
	if prev := t.selected; prev != nil {
		prev.Selected = false
		t.render.RefreshRow(prev.ID)
	}
	t.selected = n
	n.Selected = true
	t.render.RefreshRow(n.ID)
	if cb := t.opts.Callbacks.SelectionChanged; cb != nil {
		cb(Event{Node: n, Msg: msg})
	}
}

// Click selects and focuses id and notifies the Click callback.
func (t *Tree) Click(id string, msg any) error {
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "click", ID: id, Err: model.ErrNotFound}
	}
	t.click(n, msg)
	return nil
}

func (t *Tree) click(n *model.Node, msg any) {
	t.selectNode(n, msg)
	t.focus(n, msg)
	if cb := t.opts.Callbacks.Click; cb != nil {
		cb(Event{Node: n, Msg: msg})
	}
}

// DoubleClick notifies the DoubleClick callback and, with editing enabled,
// puts id into edit mode.
func (t *Tree) DoubleClick(id string, msg any) error {
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "double click", ID: id, Err: model.ErrNotFound}
	}
	if cb := t.opts.Callbacks.DoubleClick; cb != nil {
		cb(Event{Node: n, Msg: msg})
	}
	if t.opts.Edit == nil {
		return nil
	}
	return t.beginEdit(n)
}

// Editing returns the node in edit mode, or nil.
func (t *Tree) Editing() *model.Node {
	if t.edit == nil {
		return nil
	}
	return t.edit.Node()
}

// BeginEdit puts id into edit mode.
func (t *Tree) BeginEdit(id string) error {
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "edit", ID: id, Err: model.ErrNotFound}
	}
	return t.beginEdit(n)
}

func (t *Tree) beginEdit(n *model.Node) error {
	if t.opts.Edit == nil {
		return ErrDisabled
	}
	if n == t.reg.Root() && !t.opts.ShowRoot {
		return &model.StructuralError{Op: "edit", ID: n.ID, Err: model.ErrRootNode}
	}
	hooks := keynav.EditHooks{Before: t.opts.Edit.Before, After: t.opts.Edit.After}
	s, err := keynav.BeginEdit(n, hooks, t.edit != nil)
	if err != nil {
		return err
	}
	t.edit = s
	t.render.RefreshRow(n.ID)
	return nil
}

// CommitEdit ends the edit with text. A changed label is sent to the
// Persister. It reports whether the label changed.
func (t *Tree) CommitEdit(text string) (bool, error) {
	s := t.edit
	if s == nil {
		return false, nil
	}
	t.edit = nil
	changed, err := s.Commit(text)
	t.render.RefreshRow(s.Node().ID)
	if err != nil || !changed {
		return false, err
	}
	t.persist(OpModify, s.Node().Params())
	return true, nil
}

// CancelEdit ends the edit keeping the label.
func (t *Tree) CancelEdit() {
	if t.edit == nil {
		return
	}
	s := t.edit
	t.edit = nil
	s.Cancel()
	t.render.RefreshRow(s.Node().ID)
}

// HandleKey applies a navigation key. While a drag is active only Escape is
// honoured and it cancels the drag; while editing only Escape is honoured
// and it cancels the edit. With nothing focused the first visible row takes
// focus.
func (t *Tree) HandleKey(k keynav.Key) tea.Cmd {
	if t.drag != nil && t.drag.Active() {
		if k == keynav.KeyEscape {
			t.CancelDrag()
		}
		return nil
	}
	if t.edit != nil {
		if k == keynav.KeyEscape {
			t.CancelEdit()
		}
		return nil
	}
	if k == keynav.KeyEscape {
		t.ClearSearch()
		return nil
	}
	if t.focused == nil {
		if rows := traverse.VisibleOrder(t.reg.Root(), t.opts.ShowRoot); len(rows) > 0 {
			t.focus(rows[0], nil)
		}
		return nil
	}
	return t.keys.Handle(k)
}

// PointerDown handles a primary press on surface cell (x, line). The
// expander toggles, the checkbox toggles, the label clicks and arms a drag.
func (t *Tree) PointerDown(x, line int, msg any) tea.Cmd {
	n, _, ok := t.render.NodeAt(line)
	if !ok {
		return nil
	}
	switch t.render.HitPart(n, x) {
	case render.PartExpander:
		if n.Open {
			t.close(n)
			return nil
		}
		return t.open(n)
	case render.PartCheckbox:
		if t.checks != nil {
			t.checks.Toggle(n)
		}
	case render.PartLabel:
		t.click(n, msg)
		if t.drag != nil && t.edit == nil {
			t.drag.Press(n, dnd.Point{X: x, Y: line})
		}
	}
	return nil
}

// PointerDouble handles a double press on surface cell (x, line).
func (t *Tree) PointerDouble(x, line int, msg any) error {
	n, _, ok := t.render.NodeAt(line)
	if !ok || t.render.HitPart(n, x) != render.PartLabel {
		return nil
	}
	if t.drag != nil {
		t.drag.Cancel()
	}
	return t.DoubleClick(n.ID, msg)
}

// PointerMove feeds pointer motion to an armed or running drag.
func (t *Tree) PointerMove(x, line int) {
	if t.drag == nil || !t.drag.Active() {
		return
	}
	var hover *dnd.Row
	if n, top, ok := t.render.NodeAt(line); ok {
		hover = &dnd.Row{Node: n, Top: top, Height: t.render.RowHeight()}
	}
	t.drag.Move(dnd.Point{X: x, Y: line}, hover)
}

// PointerUp ends the gesture. A legal, unvetoed drop moves the node.
func (t *Tree) PointerUp() (dnd.Result, error) {
	if t.drag == nil || !t.drag.Active() {
		return dnd.Result{}, nil
	}
	res, err := t.drag.Release()
	if err != nil {
		t.report(err)
	}
	return res, err
}

// CancelDrag abandons a drag without touching the tree.
func (t *Tree) CancelDrag() {
	if t.drag != nil {
		t.drag.Cancel()
	}
}

// navActions adapts the Tree to keynav.Actions without widening its API.
type navActions struct{ t *Tree }

func (a navActions) Focused() *model.Node { return a.t.focused }

func (a navActions) Focus(n *model.Node) { a.t.focus(n, nil) }

func (a navActions) Open(n *model.Node) tea.Cmd { return a.t.open(n) }

func (a navActions) Close(n *model.Node) { a.t.close(n) }

func (a navActions) Select(n *model.Node) { a.t.selectNode(n, nil) }

func (a navActions) Remove(n *model.Node) error {
	next := keynav.Navigator{Root: a.t.reg.Root(), ShowRoot: a.t.opts.ShowRoot}.Next(n)
	res := a.t.RemoveNodes(n.ID)
	if err := res[0].Err; err != nil {
		a.t.report(err)
		return err
	}
	if next != nil && a.t.alive(next) {
		a.t.focus(next, nil)
	}
	return nil
}

func (a navActions) BeginEdit(n *model.Node) error {
	err := a.t.beginEdit(n)
	if err != nil && !errors.Is(err, ErrDisabled) {
		a.t.report(err)
	}
	return err
}

func (a navActions) IsEditing() bool { return a.t.edit != nil }
