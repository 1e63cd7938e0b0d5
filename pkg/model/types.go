package model

import (
	"fmt"
	"strings"
)

// Item is a raw node payload as supplied by the host or a data source.
// Field names inside an Item are configured through tree.ItemKey.
type Item map[string]any

// Node represents one entry in the tree
type Node struct {
	ID       string
	ParentID string
	Label    string
	Icon     string // optional icon hint
	Folder   bool   // explicit container flag from the source data
	Depth    int

	Children []*Node

	Open        bool
	Selected    bool
	Focused     bool
	Editing     bool
	Loaded      bool
	Highlighted bool

	Check  CheckState
	Change ChangeTag

	// Payload is the item the node was built from.
	Payload Item

	parent *Node
}

// Parent returns the node's parent, or nil for the root and detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsContainer reports whether the node can hold children.
func (n *Node) IsContainer() bool {
	return n.Folder || len(n.Children) > 0
}

// HasChildren reports whether the node currently has at least one child.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// IndexInParent returns the node's position among its siblings, or -1.
func (n *Node) IndexInParent() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// NextSibling returns the sibling after n, or nil.
func (n *Node) NextSibling() *Node {
	i := n.IndexInParent()
	if i < 0 || i+1 >= len(n.parent.Children) {
		return nil
	}
	return n.parent.Children[i+1]
}

// PrevSibling returns the sibling before n, or nil.
func (n *Node) PrevSibling() *Node {
	i := n.IndexInParent()
	if i <= 0 {
		return nil
	}
	return n.parent.Children[i-1]
}

// Params builds the parameter object handed to fetch and persistence collaborators.
func (n *Node) Params() Params {
	return Params{
		ID:       n.ID,
		ParentID: n.ParentID,
		Label:    n.Label,
		Depth:    n.Depth,
		Payload:  n.Payload,
	}
}

// Params is the node-derived argument passed to external collaborators.
type Params struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"`
	Label    string `json:"label"`
	Depth    int    `json:"depth"`
	Payload  Item   `json:"payload,omitempty"`
}

// CheckState is the tri-state checkbox value of a node
type CheckState int

const (
	Unchecked CheckState = iota
	Checked
	Indeterminate
)

// String returns the lower-case name of the state
func (s CheckState) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("CheckState(%d)", int(s))
}

// IsValid returns true if the state is a recognized value
func (s CheckState) IsValid() bool {
	return s == Unchecked || s == Checked || s == Indeterminate
}

// ChangeTag marks a node as dirty for persistence collaborators
type ChangeTag string

const (
	ChangeNone    ChangeTag = ""
	ChangeCreated ChangeTag = "C"
	ChangeUpdated ChangeTag = "U"
	ChangeDeleted ChangeTag = "D"
)

// IsValid returns true if the tag is a recognized value
func (c ChangeTag) IsValid() bool {
	switch c {
	case ChangeNone, ChangeCreated, ChangeUpdated, ChangeDeleted:
		return true
	}
	return false
}

// Position is where a moved node lands relative to a reference node
type Position string

const (
	Before Position = "before"
	After  Position = "after"
	Inside Position = "inside"
)

// IsValid returns true if the position is one of before, after or inside
func (p Position) IsValid() bool {
	return p == Before || p == After || p == Inside
}

// ParsePosition accepts the canonical names plus the prev/next/child aliases.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before", "prev":
		return Before, nil
	case "after", "next":
		return After, nil
	case "inside", "child":
		return Inside, nil
	}
	return "", &StructuralError{Op: "parse position", ID: s, Err: ErrInvalidPosition}
}

// Snapshot is what remains of a node after removal
type Snapshot struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"`
	Label    string `json:"label"`
	Depth    int    `json:"depth"`
}

// NormalizeID converts a source id value into its string form.
// Numeric ids decoded from JSON arrive as float64 and are printed without a fraction.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
		return fmt.Sprint(id)
	case float32:
		return NormalizeID(float64(id))
	default:
		return fmt.Sprint(id)
	}
}
