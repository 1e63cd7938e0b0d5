package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/treeview/pkg/model"
)

// writeScript creates an executable that appends its arguments and stdin
// to log.
func writeScript(t *testing.T, body string) (script, log string) {
	t.Helper()
	dir := t.TempDir()
	log = filepath.Join(dir, "calls.log")
	script = filepath.Join(dir, "hook.sh")
	content := "#!/bin/sh\nLOG=" + log + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script, log
}

func TestCommandPersister_ArgsAndStdin(t *testing.T) {
	script, log := writeScript(t, `echo "$@" >> "$LOG"; cat >> "$LOG"; echo >> "$LOG"`)
	p := NewCommandPersister(script + " --project demo")
	require.True(t, p.IsAvailable())

	ctx := context.Background()
	require.NoError(t, p.Create(ctx, model.Params{ID: "n1", ParentID: "root", Label: "First"}))
	require.NoError(t, p.Remove(ctx, model.Params{ID: "n1"}))

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "--project demo create n1", lines[0])
	assert.Contains(t, lines[1], `"label":"First"`)
	assert.Contains(t, lines[1], `"parentId":"root"`)
	assert.Equal(t, "--project demo remove n1", lines[2])
}

func TestCommandPersister_FailureCarriesOutput(t *testing.T) {
	script, _ := writeScript(t, `echo "no such node" >&2; exit 3`)
	p := NewCommandPersister(script)

	err := p.Modify(context.Background(), model.Params{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such node")
	var exitErr interface{ ExitCode() int }
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestCommandPersister_Unavailable(t *testing.T) {
	p := NewCommandPersister("definitely-not-a-real-command-xyz")
	assert.False(t, p.IsAvailable())
	assert.ErrorIs(t, p.Create(context.Background(), model.Params{ID: "a"}), ErrUnavailable)

	empty := NewCommandPersister("  ")
	assert.ErrorIs(t, empty.Remove(context.Background(), model.Params{}), ErrUnavailable)
}

type recorder struct {
	calls []string
	fail  error
}

func (r *recorder) Create(_ context.Context, p model.Params) error {
	r.calls = append(r.calls, "create "+p.ID)
	return r.fail
}
func (r *recorder) Modify(_ context.Context, p model.Params) error {
	r.calls = append(r.calls, "modify "+p.ID)
	return r.fail
}
func (r *recorder) Remove(_ context.Context, p model.Params) error {
	r.calls = append(r.calls, "remove "+p.ID)
	return r.fail
}

func TestChain_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{fail: boom}, &recorder{}
	chain := Chain{nil, a, b}

	assert.ErrorIs(t, chain.Modify(context.Background(), model.Params{ID: "n"}), boom)
	assert.Equal(t, []string{"modify n"}, a.calls)
	assert.Empty(t, b.calls)

	a.fail = nil
	require.NoError(t, chain.Create(context.Background(), model.Params{ID: "m"}))
	assert.Equal(t, []string{"create m"}, b.calls)
}
