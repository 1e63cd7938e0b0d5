// Package hooks forwards tree mutations to external programs.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// ErrUnavailable is returned when the hook command cannot be found.
var ErrUnavailable = errors.New("persist command not found")

// CommandPersister runs a command for every create, modify and remove.
// The operation and node id are appended as arguments and the node params
// are written to stdin as JSON:
//
//	<command> [args...] create|modify|remove <id>
type CommandPersister struct {
	path      string
	args      []string
	available bool
}

var _ tree.Persister = (*CommandPersister)(nil)

// NewCommandPersister resolves command, a program name followed by
// space-separated arguments, against PATH.
func NewCommandPersister(command string) *CommandPersister {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &CommandPersister{}
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		debug.Warn("hooks: %v", err)
		return &CommandPersister{args: fields[1:]}
	}
	return &CommandPersister{path: path, args: fields[1:], available: true}
}

// IsAvailable returns whether the command was found
func (c *CommandPersister) IsAvailable() bool {
	return c.available
}

func (c *CommandPersister) Create(ctx context.Context, p model.Params) error {
	return c.run(ctx, tree.OpCreate, p)
}

func (c *CommandPersister) Modify(ctx context.Context, p model.Params) error {
	return c.run(ctx, tree.OpModify, p)
}

func (c *CommandPersister) Remove(ctx context.Context, p model.Params) error {
	return c.run(ctx, tree.OpRemove, p)
}

// buildArgs constructs the argument list for one operation
func (c *CommandPersister) buildArgs(op, id string) []string {
	args := make([]string, 0, len(c.args)+2)
	args = append(args, c.args...)
	return append(args, op, id)
}

func (c *CommandPersister) run(ctx context.Context, op string, p model.Params) error {
	if !c.available {
		return ErrUnavailable
	}
	input, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(op, p.ID)...)
	cmd.Stdin = bytes.NewReader(input)
	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))
	debug.WithFields(map[string]any{"op": op, "node": p.ID}).Debug("hooks: ran persist command")
	if err != nil {
		if out == "" {
			return err
		}
		return fmt.Errorf("%s: %w", out, err)
	}
	return nil
}

// Chain calls each persister in order and stops at the first error.
type Chain []tree.Persister

var _ tree.Persister = Chain(nil)

func (c Chain) Create(ctx context.Context, p model.Params) error {
	return c.each(func(ps tree.Persister) error { return ps.Create(ctx, p) })
}

func (c Chain) Modify(ctx context.Context, p model.Params) error {
	return c.each(func(ps tree.Persister) error { return ps.Modify(ctx, p) })
}

func (c Chain) Remove(ctx context.Context, p model.Params) error {
	return c.each(func(ps tree.Persister) error { return ps.Remove(ctx, p) })
}

func (c Chain) each(fn func(tree.Persister) error) error {
	for _, ps := range c {
		if ps == nil {
			continue
		}
		if err := fn(ps); err != nil {
			return err
		}
	}
	return nil
}
