package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPosition is returned for a move position other than before, after or inside.
	ErrInvalidPosition = errors.New("invalid move position")
	// ErrSelfAncestor is returned when a move would make a node its own ancestor.
	ErrSelfAncestor = errors.New("node cannot become its own descendant")
	// ErrParentMismatch is returned when a child's declared parent differs from the target.
	ErrParentMismatch = errors.New("declared parent does not match")
	ErrNotFound       = errors.New("id not found")
	ErrHasChildren    = errors.New("node has children")
	ErrRootNode       = errors.New("operation not allowed on root node")
)

// StructuralError wraps a rejected structural operation with the node it concerned.
type StructuralError struct {
	Op  string
	ID  string
	Err error
}

func (e *StructuralError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(op, id string, err error) error {
	return &StructuralError{Op: op, ID: id, Err: err}
}
