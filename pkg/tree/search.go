package tree

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/vanderheijden86/treeview/pkg/model"
)

var fold = cases.Fold()

// Normalize folds case and strips all whitespace, the form both the query
// and labels are compared in.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, fold.String(s))
}

// Search marks every node under scopeID (default: the whole tree) whose
// label contains text. Prior highlights are cleared first. Matches are
// revealed and highlighted in depth-first order and the first one takes
// focus. Options.Search.Match replaces the default comparison. A blank
// query only clears.
func (t *Tree) Search(text string, scopeID ...string) []*model.Node {
	t.ClearSearch()

	start := t.reg.Root()
	if len(scopeID) > 0 {
		n, ok := t.reg.Get(scopeID[0])
		if !ok {
			t.report(&model.StructuralError{Op: "search", ID: scopeID[0], Err: model.ErrNotFound})
			return nil
		}
		start = n
	}

	match := t.opts.Search.Match
	if match == nil {
		q := Normalize(text)
		if q == "" {
			return nil
		}
		match = func(_ string, n *model.Node) bool {
			return strings.Contains(Normalize(n.Label), q)
		}
	}

	root := t.reg.Root()
	var found []*model.Node
	t.reg.Walk(start, func(n *model.Node) bool {
		if n == root && !t.opts.ShowRoot {
			return true
		}
		if match(text, n) {
			found = append(found, n)
		}
		return true
	})
	if len(found) == 0 {
		return nil
	}

	for _, n := range found {
		n.Highlighted = true
		t.reveal(n)
		t.render.RefreshRow(n.ID)
	}
	t.highlighted = found
	t.matches = append([]*model.Node(nil), found...)
	t.matchIdx = 0
	t.focus(found[0], nil)
	return found
}

// NextMatch focuses the match after the current one, wrapping around.
func (t *Tree) NextMatch() *model.Node {
	if len(t.matches) == 0 {
		return nil
	}
	t.matchIdx = (t.matchIdx + 1) % len(t.matches)
	n := t.matches[t.matchIdx]
	t.reveal(n)
	t.focus(n, nil)
	return n
}

// Matches returns the current search results.
func (t *Tree) Matches() []*model.Node { return t.matches }

// ClearSearch removes every highlight.
func (t *Tree) ClearSearch() {
	for _, n := range t.highlighted {
		n.Highlighted = false
		t.render.RefreshRow(n.ID)
	}
	t.highlighted = nil
	t.matches = nil
	t.matchIdx = 0
}

// GetNode returns the node for id.
func (t *Tree) GetNode(id string) (*model.Node, bool) {
	return t.reg.Get(id)
}

// GetCheckedNodes returns checked and indeterminate nodes depth-first. It
// is empty when checkboxes are off.
func (t *Tree) GetCheckedNodes() []*model.Node {
	if t.checks == nil {
		return nil
	}
	return t.checks.CollectChecked()
}

// GetSelectedNodes returns the selected nodes.
func (t *Tree) GetSelectedNodes() []*model.Node {
	if t.selected == nil {
		return nil
	}
	return []*model.Node{t.selected}
}

// CountNodes counts the descendants of scopeID (default: the root).
func (t *Tree) CountNodes(scopeID ...string) int {
	if len(scopeID) == 0 {
		return t.reg.Len()
	}
	n, ok := t.reg.Get(scopeID[0])
	if !ok {
		return 0
	}
	count := -1
	t.reg.Walk(n, func(*model.Node) bool {
		count++
		return true
	})
	return count
}
