package tree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/treeview/pkg/model"
)

// FetchResultMsg carries a Fetcher response back into Update.
type FetchResultMsg struct {
	NodeID string
	Items  []model.Item
	Err    error
}

// Persist operations.
const (
	OpCreate = "create"
	OpModify = "modify"
	OpRemove = "remove"
)

// PersistResultMsg reports the outcome of a Persister call.
type PersistResultMsg struct {
	Op     string
	NodeID string
	Err    error
}

// FetchError wraps a failed or unusable fetch response.
type FetchError struct {
	NodeID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch children of [%s]: %v", e.NodeID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistError wraps a failed Persister call.
type PersistError struct {
	Op     string
	NodeID string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.NodeID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// RemoveOutcome is the per-id result of a batch removal.
type RemoveOutcome struct {
	ID       string
	Snapshot *model.Snapshot
	Err      error
}

// String renders the outcome the way batch callers report it.
func (o RemoveOutcome) String() string {
	switch {
	case o.Err == nil:
		return fmt.Sprintf("removed [%s]", o.ID)
	case errors.Is(o.Err, model.ErrNotFound):
		return fmt.Sprintf("id not found [%s]", o.ID)
	}
	return o.Err.Error()
}

var (
	// ErrDisabled is returned when an operation needs an option that is off.
	ErrDisabled = errors.New("feature not enabled")
	// ErrMissingID is returned for an item without an id.
	ErrMissingID = errors.New("item has no id")
	// ErrCycle is returned when items in one batch name each other as parents.
	ErrCycle = errors.New("parent references form a cycle")
)
