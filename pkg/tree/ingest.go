package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/model"
)

// pending is a decoded item waiting to be grafted.
type pending struct {
	node     *model.Node
	checked  bool
	inline   bool // the item carried a children array
	children []*pending
}

// AddNodes ingests items. With parentID every item is attached under that
// node; otherwise each item names its parent through ItemKey.ParentID and
// items whose parent is unknown land under the root. An id that already
// exists updates that node in place and keeps its children. Items are
// decoded and checked before anything is inserted, so a bad batch leaves
// the tree untouched. The affected parent is refreshed and opened.
func (t *Tree) AddNodes(items []model.Item, parentID ...string) error {
	if len(items) == 0 {
		return nil
	}
	defer debug.LogEnterExit("tree.AddNodes")()

	var forced *string
	if len(parentID) > 0 {
		pid := parentID[0]
		if _, ok := t.reg.Get(pid); !ok {
			return &model.StructuralError{Op: "add nodes", ID: pid, Err: model.ErrNotFound}
		}
		forced = &pid
	}

	batch := make([]*pending, 0, len(items))
	for i, it := range items {
		p, err := t.decode(it, forced)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		batch = append(batch, p)
	}
	if err := t.checkBatch(batch); err != nil {
		return err
	}

	root := t.reg.Root()
	first := batch[0].node
	adopted := false
	if forced == nil && root.ID == "" && !root.HasChildren() && first.ParentID != "" && first.ID != first.ParentID {
		if _, taken := t.reg.Get(first.ParentID); !taken && !inBatch(batch, first.ParentID) {
			if err := t.reg.SetRootID(first.ParentID); err != nil {
				return err
			}
			adopted = true
			debug.Log("tree: adopted root id %q", root.ID)
		}
	}

	var view *model.Node
	switch {
	case forced != nil:
		view = t.get(*forced)
	case first.ID == root.ID:
		view = root
	default:
		view = t.get(first.ParentID)
	}

	parents := make(map[*model.Node]bool)
	queue := batch
	for len(queue) > 0 {
		var later []*pending
		for _, p := range queue {
			if p.node.ID == root.ID {
				root.Payload = p.node.Payload
				continue
			}
			parent, ok := t.reg.Get(p.node.ParentID)
			if !ok {
				if inBatch(queue, p.node.ParentID) {
					later = append(later, p)
					continue
				}
				debug.Log("tree: parent %q of %q not found, attaching to root", p.node.ParentID, p.node.ID)
				parent = root
				p.node.ParentID = root.ID
			}
			if err := t.graft(parent, p); err != nil {
				return err
			}
			parents[parent] = true
		}
		if len(later) == len(queue) {
			return &model.StructuralError{Op: "add nodes", ID: later[0].node.ID, Err: ErrCycle}
		}
		queue = later
	}

	if view == nil {
		view = root
	}
	if t.checks != nil {
		for p := range parents {
			t.checks.Sync(p)
		}
	}
	view.Open = true
	if adopted || len(parents) > 1 || (len(parents) == 1 && !parents[view]) {
		t.render.RenderRoot()
	} else {
		t.refreshNode(view)
	}
	return nil
}

func inBatch(batch []*pending, id string) bool {
	for _, p := range batch {
		if p.node.ID == id {
			return true
		}
	}
	return false
}

// checkBatch rejects parent cycles among the batch and moves of existing
// nodes under their own descendants. Ancestry is followed through the
// parents the batch will assign, falling back to the registry for nodes the
// batch does not touch, so the check sees the tree as it will be after
// every item is grafted.
func (t *Tree) checkBatch(batch []*pending) error {
	rootID := t.reg.Root().ID
	parentOf := make(map[string]string, len(batch))
	var plan func(ps []*pending)
	plan = func(ps []*pending) {
		for _, p := range ps {
			parentOf[p.node.ID] = p.node.ParentID
			plan(p.children)
		}
	}
	plan(batch)

	// plannedParent returns the parent id of id once the batch is applied.
	plannedParent := func(id string) (string, bool) {
		if pid, ok := parentOf[id]; ok {
			_, planned := parentOf[pid]
			if _, known := t.reg.Get(pid); !known && !planned {
				return rootID, true
			}
			return pid, true
		}
		n, ok := t.reg.Get(id)
		if !ok || n.Parent() == nil {
			return "", false
		}
		return n.Parent().ID, true
	}

	for id := range parentOf {
		if id == rootID {
			continue
		}
		seen := map[string]bool{id: true}
		for pid, ok := plannedParent(id); ok && pid != rootID; pid, ok = plannedParent(pid) {
			if pid == id {
				if _, exists := t.reg.Get(id); exists {
					return &model.StructuralError{Op: "add nodes", ID: id, Err: model.ErrSelfAncestor}
				}
				return &model.StructuralError{Op: "add nodes", ID: id, Err: ErrCycle}
			}
			if seen[pid] {
				return &model.StructuralError{Op: "add nodes", ID: id, Err: ErrCycle}
			}
			seen[pid] = true
		}
	}
	return nil
}

// graft attaches p under parent, then its nested children under it.
func (t *Tree) graft(parent *model.Node, p *pending) error {
	n := p.node
	if existing := t.get(n.ID); existing != nil {
		existing.ParentID = n.ParentID
		existing.Label = n.Label
		existing.Icon = n.Icon
		existing.Folder = n.Folder
		existing.Payload = n.Payload
		if p.checked && t.checks != nil {
			existing.Check = model.Checked
		}
		if err := t.reg.AddChild(parent, existing); err != nil {
			return err
		}
		n = existing
	} else {
		if t.checks != nil && (p.checked || parent.Check == model.Checked) {
			n.Check = model.Checked
		}
		if err := t.reg.AddChild(parent, n); err != nil {
			return err
		}
		n.Open = t.opts.OpenDepth < 0 || n.Depth < t.opts.OpenDepth
	}
	if p.inline {
		n.Loaded = true
	}
	for _, c := range p.children {
		c.node.ParentID = n.ID
		if err := t.graft(n, c); err != nil {
			return err
		}
	}
	return nil
}

// decode turns an item into a pending node. forced overrides the parent field.
func (t *Tree) decode(it model.Item, forced *string) (*pending, error) {
	k := t.opts.ItemKey
	id := model.NormalizeID(it[k.ID])
	if id == "" {
		return nil, ErrMissingID
	}
	pid := model.NormalizeID(it[k.ParentID])
	if forced != nil {
		pid = *forced
	}
	if id == pid {
		return nil, &model.StructuralError{Op: "add nodes", ID: id, Err: model.ErrSelfAncestor}
	}

	payload := make(model.Item, len(it))
	for key, v := range it {
		if key != k.Children {
			payload[key] = v
		}
	}
	p := &pending{
		node: &model.Node{
			ID:       id,
			ParentID: pid,
			Label:    stringField(it[k.Label]),
			Icon:     stringField(it[k.Icon]),
			Folder:   truthy(it[k.Folder]),
			Payload:  payload,
		},
		checked: truthy(it[k.Checked]),
	}

	raw, ok := it[k.Children]
	if !ok || raw == nil {
		return p, nil
	}
	kids, err := childItems(raw)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", id, err)
	}
	p.inline = true
	for i, c := range kids {
		cp, err := t.decode(c, &id)
		if err != nil {
			return nil, fmt.Errorf("child %d of %q: %w", i, id, err)
		}
		p.children = append(p.children, cp)
	}
	if len(kids) > 0 {
		p.node.Folder = true
	}
	return p, nil
}

func childItems(raw any) ([]model.Item, error) {
	switch v := raw.(type) {
	case []model.Item:
		return v, nil
	case []map[string]any:
		out := make([]model.Item, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, nil
	case []any:
		out := make([]model.Item, 0, len(v))
		for i, e := range v {
			switch m := e.(type) {
			case model.Item:
				out = append(out, m)
			case map[string]any:
				out = append(out, m)
			default:
				return nil, fmt.Errorf("children[%d] is %T, not an object", i, e)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("children field is %T, not a list", raw)
}

func stringField(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return model.NormalizeID(v)
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		ok, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && ok
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	}
	return false
}
