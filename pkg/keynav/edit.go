package keynav

import (
	"errors"

	"github.com/vanderheijden86/treeview/pkg/model"
)

var (
	// ErrEditBusy is returned when another node is already being edited.
	ErrEditBusy = errors.New("another node is being edited")
	// ErrEditVetoed is returned when a before or after hook refused the edit.
	ErrEditVetoed = errors.New("edit vetoed")
)

// EditHooks are optional host guards around inline editing.
type EditHooks struct {
	// Before returning false keeps the node out of edit mode.
	Before func(n *model.Node) bool
	// After may rewrite the committed text; returning false aborts the commit.
	After func(n *model.Node, text string) (string, bool)
}

// EditSession tracks one node in edit mode.
type EditSession struct {
	node     *model.Node
	original string
	hooks    EditHooks
}

// BeginEdit puts n into edit mode. busy reports whether any node is already editing.
func BeginEdit(n *model.Node, hooks EditHooks, busy bool) (*EditSession, error) {
	if busy {
		return nil, ErrEditBusy
	}
	if hooks.Before != nil && !hooks.Before(n) {
		return nil, ErrEditVetoed
	}
	n.Editing = true
	return &EditSession{node: n, original: n.Label, hooks: hooks}, nil
}

// Node returns the node being edited.
func (s *EditSession) Node() *model.Node {
	return s.node
}

// Original returns the label the node had when editing started.
func (s *EditSession) Original() string {
	return s.original
}

// Commit ends the session with text. It reports whether the label changed.
// A changed label marks the node updated unless it is still pending creation.
func (s *EditSession) Commit(text string) (bool, error) {
	s.node.Editing = false
	if s.hooks.After != nil {
		out, ok := s.hooks.After(s.node, text)
		if !ok {
			return false, ErrEditVetoed
		}
		text = out
	}
	if text == s.original {
		return false, nil
	}
	s.node.Label = text
	if s.node.Change != model.ChangeCreated {
		s.node.Change = model.ChangeUpdated
	}
	return true, nil
}

// Cancel ends the session leaving the label and change tag alone.
func (s *EditSession) Cancel() {
	s.node.Editing = false
}
