package model

import (
	"fmt"
	"slices"
)

// Registry maps every node id in a tree to its node and owns the synthetic root.
// It keeps the id map consistent with the children adjacency on every mutation.
type Registry struct {
	root  *Node
	nodes map[string]*Node
}

// NewRegistry creates a registry holding only a root node at depth 0.
func NewRegistry(rootID, rootLabel string) *Registry {
	root := &Node{ID: rootID, Label: rootLabel, Open: true}
	return &Registry{
		root:  root,
		nodes: map[string]*Node{rootID: root},
	}
}

// Root returns the synthetic root node.
func (r *Registry) Root() *Node {
	return r.root
}

// Get looks up a node by id. The root is reachable by its own id.
func (r *Registry) Get(id string) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Len returns the number of nodes excluding the root.
func (r *Registry) Len() int {
	return len(r.nodes) - 1
}

// SetRootID renames the root. Children of the root follow the new id.
func (r *Registry) SetRootID(id string) error {
	if id == r.root.ID {
		return nil
	}
	if _, exists := r.nodes[id]; exists {
		return fmt.Errorf("set root id %q: id already in use", id)
	}
	delete(r.nodes, r.root.ID)
	r.root.ID = id
	r.nodes[id] = r.root
	for _, c := range r.root.Children {
		c.ParentID = id
	}
	return nil
}

// AddChild attaches node under parent.
//
// If a node with the same id is already registered it is replaced: in place when
// it already sits under parent, appended otherwise. A replacing node with no
// children of its own inherits the old node's children.
func (r *Registry) AddChild(parent, node *Node) error {
	if parent == nil || node == nil {
		return structural("add child", "", ErrNotFound)
	}
	if node == r.root || node.ID == r.root.ID {
		return structural("add child", node.ID, ErrRootNode)
	}
	if node.ParentID != parent.ID {
		return structural("add child", node.ID, ErrParentMismatch)
	}
	if cur, ok := r.nodes[parent.ID]; !ok || cur != parent {
		return structural("add child", parent.ID, ErrNotFound)
	}
	if node == parent || r.IsAncestor(node, parent) {
		return structural("add child", node.ID, ErrSelfAncestor)
	}

	existing, ok := r.nodes[node.ID]
	// A replacement takes over the registered node's place in the tree, so
	// the registered node must not contain parent either.
	if ok && existing != node && (existing == parent || r.IsAncestor(existing, parent)) {
		return structural("add child", node.ID, ErrSelfAncestor)
	}
	switch {
	case ok && existing == node:
		if node.parent != parent {
			r.detach(node)
			parent.Children = append(parent.Children, node)
		}
	case ok:
		if len(node.Children) == 0 && len(existing.Children) > 0 {
			node.Children = existing.Children
			existing.Children = nil
			for _, c := range node.Children {
				c.parent = node
			}
		}
		if existing.parent == parent {
			parent.Children[existing.IndexInParent()] = node
		} else {
			r.detach(existing)
			parent.Children = append(parent.Children, node)
		}
		existing.parent = nil
	default:
		parent.Children = append(parent.Children, node)
	}

	node.parent = parent
	r.register(node)
	r.SetChildNodeDepth(node)
	return nil
}

// register indexes node and any children it already carries.
func (r *Registry) register(n *Node) {
	r.nodes[n.ID] = n
	for _, c := range n.Children {
		c.parent = n
		c.ParentID = n.ID
		r.register(c)
	}
}

// Remove detaches node from its parent and deletes it from the registry.
// With recursive set, descendants are destroyed depth-first first. Without it,
// a node that still has children is rejected with ErrHasChildren.
func (r *Registry) Remove(node *Node, recursive bool) (Snapshot, error) {
	if node == nil {
		return Snapshot{}, structural("remove", "", ErrNotFound)
	}
	if node == r.root {
		return Snapshot{}, structural("remove", node.ID, ErrRootNode)
	}
	if cur, ok := r.nodes[node.ID]; !ok || cur != node {
		return Snapshot{}, structural("remove", node.ID, ErrNotFound)
	}
	if len(node.Children) > 0 {
		if !recursive {
			return Snapshot{}, structural("remove", node.ID, ErrHasChildren)
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			if _, err := r.Remove(node.Children[i], true); err != nil {
				return Snapshot{}, err
			}
		}
	}

	snap := Snapshot{ID: node.ID, ParentID: node.ParentID, Label: node.Label, Depth: node.Depth}
	r.detach(node)
	delete(r.nodes, node.ID)
	node.Change = ChangeDeleted
	return snap, nil
}

// Move reinserts node before or after the reference node, or as its last child.
// The tree is unchanged when an error is returned.
func (r *Registry) Move(node *Node, pos Position, refID string) error {
	if !pos.IsValid() {
		return structural("move", string(pos), ErrInvalidPosition)
	}
	if node == nil {
		return structural("move", "", ErrNotFound)
	}
	if node == r.root {
		return structural("move", node.ID, ErrRootNode)
	}
	if cur, ok := r.nodes[node.ID]; !ok || cur != node {
		return structural("move", node.ID, ErrNotFound)
	}
	ref, ok := r.nodes[refID]
	if !ok {
		return structural("move", refID, ErrNotFound)
	}
	if ref == node || r.IsAncestor(node, ref) {
		return structural("move", node.ID, ErrSelfAncestor)
	}
	if pos != Inside && ref == r.root {
		return structural("move", ref.ID, ErrRootNode)
	}

	r.detach(node)

	var parent *Node
	switch pos {
	case Inside:
		parent = ref
		parent.Children = append(parent.Children, node)
	case Before, After:
		parent = ref.parent
		i := ref.IndexInParent()
		if pos == After {
			i++
		}
		parent.Children = slices.Insert(parent.Children, i, node)
	}

	node.parent = parent
	node.ParentID = parent.ID
	r.SetChildNodeDepth(node)
	return nil
}

// SetChildNodeDepth recomputes the depth of node from its parent and
// recursively for every descendant.
func (r *Registry) SetChildNodeDepth(node *Node) {
	if node.parent != nil {
		node.Depth = node.parent.Depth + 1
	}
	for _, c := range node.Children {
		r.SetChildNodeDepth(c)
	}
}

func (r *Registry) detach(n *Node) {
	p := n.parent
	if p == nil {
		return
	}
	if i := n.IndexInParent(); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	n.parent = nil
}

// Ancestors returns the parent chain of node, nearest first, ending at the root.
func (r *Registry) Ancestors(node *Node) []*Node {
	var out []*Node
	for p := node.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// IsAncestor reports whether anc appears on the parent chain of node.
func (r *Registry) IsAncestor(anc, node *Node) bool {
	if anc == nil || node == nil {
		return false
	}
	for p := node.parent; p != nil; p = p.parent {
		if p == anc {
			return true
		}
	}
	return false
}

// Walk visits from and its descendants depth-first in children order.
// Returning false from fn stops the walk; Walk reports whether it ran to completion.
func (r *Registry) Walk(from *Node, fn func(*Node) bool) bool {
	if from == nil {
		return true
	}
	if !fn(from) {
		return false
	}
	for _, c := range from.Children {
		if !r.Walk(c, fn) {
			return false
		}
	}
	return true
}

// Clear drops every node except the root.
func (r *Registry) Clear() {
	for _, c := range r.root.Children {
		c.parent = nil
	}
	r.root.Children = nil
	r.nodes = map[string]*Node{r.root.ID: r.root}
}

// Validate checks the structural invariants and returns the first violation found.
func (r *Registry) Validate() error {
	seen := make(map[*Node]bool, len(r.nodes))
	var focused, editing int
	var err error
	var visit func(n *Node)
	visit = func(n *Node) {
		if err != nil {
			return
		}
		if seen[n] {
			err = fmt.Errorf("node %q reached twice", n.ID)
			return
		}
		seen[n] = true
		if reg, ok := r.nodes[n.ID]; !ok || reg != n {
			err = fmt.Errorf("node %q is not registered", n.ID)
			return
		}
		if n.Focused {
			focused++
		}
		if n.Editing {
			editing++
		}
		for _, c := range n.Children {
			if c.parent != n {
				err = fmt.Errorf("node %q has stale parent link", c.ID)
				return
			}
			if c.ParentID != n.ID {
				err = fmt.Errorf("node %q declares parent %q but sits under %q", c.ID, c.ParentID, n.ID)
				return
			}
			if c.Depth != n.Depth+1 {
				err = fmt.Errorf("node %q has depth %d, expected %d", c.ID, c.Depth, n.Depth+1)
				return
			}
			visit(c)
		}
	}
	visit(r.root)
	if err != nil {
		return err
	}
	if len(seen) != len(r.nodes) {
		return fmt.Errorf("registry holds %d nodes but %d are reachable", len(r.nodes), len(seen))
	}
	if focused > 1 {
		return fmt.Errorf("%d nodes are focused", focused)
	}
	if editing > 1 {
		return fmt.Errorf("%d nodes are editing", editing)
	}
	return nil
}
