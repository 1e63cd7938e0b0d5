package tree

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/traverse"
)

// RemoveNodes removes each id without touching descendants. Ids that are
// missing or still have children get an error outcome; the rest proceed.
func (t *Tree) RemoveNodes(ids ...string) []RemoveOutcome {
	return t.remove(false, ids)
}

// RemoveNodesRecursive removes each id together with its whole subtree.
func (t *Tree) RemoveNodesRecursive(ids ...string) []RemoveOutcome {
	return t.remove(true, ids)
}

func (t *Tree) remove(recursive bool, ids []string) []RemoveOutcome {
	out := make([]RemoveOutcome, 0, len(ids))
	for _, id := range ids {
		n, ok := t.reg.Get(id)
		if !ok {
			out = append(out, RemoveOutcome{ID: id, Err: &model.StructuralError{Op: "remove", ID: id, Err: model.ErrNotFound}})
			continue
		}
		parent := n.Parent()
		params := n.Params()
		snap, err := t.reg.Remove(n, recursive)
		if err != nil {
			out = append(out, RemoveOutcome{ID: id, Err: err})
			continue
		}
		out = append(out, RemoveOutcome{ID: id, Snapshot: &snap})
		debug.WithFields(map[string]any{"id": id, "recursive": recursive}).Debug("tree: removed")

		t.forget(parent)
		if t.checks != nil {
			t.checks.Recompute(parent)
			t.checks.CascadeUp(parent)
		}
		t.refreshNode(parent)
		t.persist(OpRemove, params)
	}
	return out
}

// forget clears controller state pointing at nodes that are no longer registered.
func (t *Tree) forget(fallback *model.Node) {
	if t.focused != nil && !t.alive(t.focused) {
		t.focused = nil
		if fallback != nil && (fallback != t.reg.Root() || t.opts.ShowRoot) {
			t.focus(fallback, nil)
		}
	}
	if t.selected != nil && !t.alive(t.selected) {
		t.selected = nil
	}
	if t.edit != nil && !t.alive(t.edit.Node()) {
		t.edit = nil
	}
	if t.drag != nil && t.drag.Active() && !t.alive(t.drag.Dragged()) {
		t.drag.Cancel()
	}
	t.highlighted = keepAlive(t, t.highlighted)
	t.matches = keepAlive(t, t.matches)
	if t.matchIdx >= len(t.matches) {
		t.matchIdx = 0
	}
}

// keepAlive returns a new slice; highlighted and matches may share storage.
func keepAlive(t *Tree, nodes []*model.Node) []*model.Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if t.alive(n) {
			out = append(out, n)
		}
	}
	return out
}

// CreateNode adds a host-created node. Missing fields are filled in: the
// parent defaults to the selected node (else the root), the id to a fresh
// UUID and the label to DefaultNewLabel. The node is tagged as created and
// handed to the Persister.
func (t *Tree) CreateNode(item model.Item) (*model.Node, error) {
	k := t.opts.ItemKey
	it := make(model.Item, len(item)+3)
	for key, v := range item {
		it[key] = v
	}
	if _, ok := it[k.ParentID]; !ok {
		parent := t.selected
		if parent == nil {
			parent = t.reg.Root()
		}
		it[k.ParentID] = parent.ID
	}
	if model.NormalizeID(it[k.ID]) == "" {
		it[k.ID] = uuid.NewString()
	}
	if stringField(it[k.Label]) == "" {
		it[k.Label] = DefaultNewLabel
	}
	id := model.NormalizeID(it[k.ID])
	if _, exists := t.reg.Get(id); exists {
		return nil, &model.StructuralError{Op: "create node", ID: id, Err: errors.New("id already exists")}
	}
	if err := t.AddNodes([]model.Item{it}); err != nil {
		return nil, err
	}
	n := t.get(id)
	n.Change = model.ChangeCreated
	t.reveal(n)
	t.focus(n, nil)
	t.persist(OpCreate, n.Params())
	return n, nil
}

// OpenNode opens id. A container that has not been loaded asks the Fetcher
// (or LoadChildren) for its children exactly once; the returned command
// delivers a FetchResultMsg.
func (t *Tree) OpenNode(id string) tea.Cmd {
	n := t.get(id)
	if n == nil {
		t.report(&model.StructuralError{Op: "open", ID: id, Err: model.ErrNotFound})
		return nil
	}
	return t.open(n)
}

func (t *Tree) open(n *model.Node) tea.Cmd {
	if !n.Open {
		n.Open = true
		t.refreshNode(n)
	}
	return t.load(n)
}

// CloseNode collapses id. Focus inside the collapsed subtree moves to id.
func (t *Tree) CloseNode(id string) error {
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "close", ID: id, Err: model.ErrNotFound}
	}
	t.close(n)
	return nil
}

func (t *Tree) close(n *model.Node) {
	if !n.Open {
		return
	}
	if n == t.reg.Root() && !t.opts.ShowRoot {
		return
	}
	n.Open = false
	t.refreshNode(n)
	if t.focused != nil && traverse.IsDescendant(n, t.focused) {
		t.focus(n, nil)
	}
}

// OpenAll opens every container without fetching.
func (t *Tree) OpenAll() {
	t.reg.Walk(t.reg.Root(), func(n *model.Node) bool {
		if n.IsContainer() {
			n.Open = true
		}
		return true
	})
	t.render.RenderRoot()
}

// CloseAll collapses every container below the root.
func (t *Tree) CloseAll() {
	root := t.reg.Root()
	t.reg.Walk(root, func(n *model.Node) bool {
		if n != root {
			n.Open = false
		}
		return true
	})
	t.render.RenderRoot()
	if t.focused != nil && !traverse.IsVisible(t.focused) {
		top := t.focused
		for p := top.Parent(); p != nil && p != root; p = p.Parent() {
			top = p
		}
		t.focus(top, nil)
	}
}

// Refresh marks id unloaded and re-renders it. An open node is fetched again.
func (t *Tree) Refresh(id string) (tea.Cmd, error) {
	n := t.get(id)
	if n == nil {
		return nil, &model.StructuralError{Op: "refresh", ID: id, Err: model.ErrNotFound}
	}
	n.Loaded = false
	t.refreshNode(n)
	if n.Open {
		return t.load(n), nil
	}
	return nil, nil
}

// load requests n's children. Loaded is set before the request goes out and
// cleared again if it fails, so a node is never fetched twice concurrently.
func (t *Tree) load(n *model.Node) tea.Cmd {
	if n.Loaded || t.inflight[n.ID] {
		return nil
	}
	if n != t.reg.Root() && !n.IsContainer() {
		return nil
	}
	switch {
	case t.opts.LoadChildren != nil:
		n.Loaded = true
		items, err := t.opts.LoadChildren(n.Params())
		if err != nil {
			n.Loaded = false
			t.report(&FetchError{NodeID: n.ID, Err: err})
			return nil
		}
		if err := t.AddNodes(items, n.ID); err != nil {
			n.Loaded = false
			t.report(&FetchError{NodeID: n.ID, Err: err})
		}
		return nil
	case t.opts.Fetcher != nil:
		n.Loaded = true
		t.inflight[n.ID] = true
		params := n.Params()
		fetcher, parent, timeout := t.opts.Fetcher, t.ctx, t.opts.Timeout
		debug.Log("tree: fetching children of %q", params.ID)
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(parent, timeout)
			defer cancel()
			start := time.Now()
			items, err := fetcher.Fetch(ctx, params)
			debug.LogTiming("fetch "+params.ID, time.Since(start))
			return FetchResultMsg{NodeID: params.ID, Items: items, Err: err}
		}
	}
	return nil
}

// ApplyFetch ingests a fetch response. Failures are reported through
// Callbacks.OnError as a *FetchError and leave the tree as it was; the node
// can be fetched again on its next open.
func (t *Tree) ApplyFetch(msg FetchResultMsg) error {
	delete(t.inflight, msg.NodeID)
	n := t.get(msg.NodeID)
	if n == nil {
		debug.Log("tree: dropping fetch result for removed node %q", msg.NodeID)
		return nil
	}
	if msg.Err != nil {
		n.Loaded = false
		err := &FetchError{NodeID: msg.NodeID, Err: msg.Err}
		t.report(err)
		return err
	}
	if err := t.AddNodes(msg.Items, n.ID); err != nil {
		n.Loaded = false
		ferr := &FetchError{NodeID: msg.NodeID, Err: err}
		t.report(ferr)
		return ferr
	}
	return nil
}

// Fetching reports whether a fetch for id is outstanding.
func (t *Tree) Fetching(id string) bool {
	return t.inflight[id]
}

// MoveNode moves n relative to refID and re-syncs both parents. It
// satisfies dnd.Mover.
func (t *Tree) MoveNode(n *model.Node, pos model.Position, refID string) error {
	oldParent := n.Parent()
	if err := t.reg.Move(n, pos, refID); err != nil {
		return err
	}
	newParent := n.Parent()
	if n.Change != model.ChangeCreated {
		n.Change = model.ChangeUpdated
	}
	if t.checks != nil {
		for _, p := range []*model.Node{oldParent, newParent} {
			t.checks.Recompute(p)
			t.checks.CascadeUp(p)
		}
	}
	newParent.Open = true
	t.refreshNode(oldParent)
	if newParent != oldParent {
		t.refreshNode(newParent)
	}
	t.reveal(n)
	t.persist(OpModify, n.Params())
	return nil
}

// Move is MoveNode by id with a textual position (before, after, inside or
// the prev, next, child aliases).
func (t *Tree) Move(id, position, refID string) error {
	pos, err := model.ParsePosition(position)
	if err != nil {
		return err
	}
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "move", ID: id, Err: model.ErrNotFound}
	}
	return t.MoveNode(n, pos, refID)
}

// ToggleCheck flips id's check state and propagates it.
func (t *Tree) ToggleCheck(id string) (model.CheckState, error) {
	if t.checks == nil {
		return model.Unchecked, ErrDisabled
	}
	n := t.get(id)
	if n == nil {
		return model.Unchecked, &model.StructuralError{Op: "toggle check", ID: id, Err: model.ErrNotFound}
	}
	return t.checks.Toggle(n), nil
}

// SetCheck writes id's state and propagates it down and up.
func (t *Tree) SetCheck(id string, state model.CheckState) error {
	if t.checks == nil {
		return ErrDisabled
	}
	n := t.get(id)
	if n == nil {
		return &model.StructuralError{Op: "set check", ID: id, Err: model.ErrNotFound}
	}
	if err := t.checks.SetState(id, state); err != nil {
		return err
	}
	if state != model.Indeterminate {
		t.checks.CascadeDown(n, state)
	}
	t.checks.CascadeUp(n)
	return nil
}

// reveal opens every ancestor of n that is closed, re-rendering from the
// highest one opened.
func (t *Tree) reveal(n *model.Node) {
	var top *model.Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !p.Open {
			p.Open = true
			top = p
		}
	}
	if top != nil {
		if !t.render.Refresh(top.ID) {
			t.render.RenderRoot()
		}
	}
}

func (t *Tree) persist(op string, params model.Params) {
	ps := t.opts.Persister
	if ps == nil {
		return
	}
	parent, timeout := t.ctx, t.opts.Timeout
	t.cmds = append(t.cmds, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		var err error
		switch op {
		case OpCreate:
			err = ps.Create(ctx, params)
		case OpModify:
			err = ps.Modify(ctx, params)
		case OpRemove:
			err = ps.Remove(ctx, params)
		}
		return PersistResultMsg{Op: op, NodeID: params.ID, Err: err}
	})
}
