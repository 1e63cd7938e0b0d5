// Package tree is the controller that owns a node registry and keeps the
// renderer, checkbox engine, keyboard engine and drag engine consistent with
// it. A Tree is an explicit handle; there is no package-level state.
package tree

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treeview/pkg/checkbox"
	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/dnd"
	"github.com/vanderheijden86/treeview/pkg/keynav"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/render"
)

// Tree is one tree widget instance.
type Tree struct {
	opts Options

	reg    *model.Registry
	render *render.Renderer
	checks *checkbox.Engine // nil unless checkboxes are enabled
	keys   *keynav.Engine
	drag   *dnd.Engine // nil unless drag reordering is enabled

	edit     *keynav.EditSession
	focused  *model.Node
	selected *model.Node

	inflight    map[string]bool
	highlighted []*model.Node
	matches     []*model.Node
	matchIdx    int

	cmds []tea.Cmd

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a tree from opts. Static items are ingested immediately; a
// Fetcher is consulted for the root's children by Init.
func New(opts Options) (*Tree, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("tree options: %w", err)
	}

	t := &Tree{
		opts:     opts,
		reg:      model.NewRegistry(opts.RootNode.ID, opts.RootNode.Label),
		inflight: make(map[string]bool),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	theme := render.DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	t.render = render.New(t.reg.Root(), theme, opts.renderOptions())

	if opts.Checkbox != nil {
		t.checks = checkbox.New(t.reg, func(n *model.Node) {
			t.render.RefreshRow(n.ID)
		})
	}
	t.keys = keynav.NewEngine(keynav.Navigator{Root: t.reg.Root(), ShowRoot: opts.ShowRoot}, navActions{t})
	if opts.DnD != nil {
		t.drag = dnd.New(t, dnd.Hooks{Start: opts.DnD.Start, Drop: opts.DnD.Drop}, t.render.Metrics())
		t.drag.Threshold = opts.DnD.Threshold
		t.drag.Width = opts.Style.Width
	}

	t.render.RenderRoot()
	if len(opts.Items) > 0 {
		if err := t.AddNodes(opts.Items); err != nil {
			return nil, err
		}
		t.reg.Root().Loaded = true
	}
	if opts.LoadChildren != nil && !t.reg.Root().Loaded {
		t.load(t.reg.Root())
	}
	return t, nil
}

// Init returns the command loading the root's children from the Fetcher,
// if one is configured and the root has not been loaded.
func (t *Tree) Init() tea.Cmd {
	return t.load(t.reg.Root())
}

// Options returns the normalized options.
func (t *Tree) Options() Options { return t.opts }

// Registry exposes the node registry for read access.
func (t *Tree) Registry() *model.Registry { return t.reg }

// Renderer exposes the renderer.
func (t *Tree) Renderer() *render.Renderer { return t.render }

// Root returns the synthetic root.
func (t *Tree) Root() *model.Node { return t.reg.Root() }

// Drag returns the drag engine, or nil when drag reordering is off.
func (t *Tree) Drag() *dnd.Engine { return t.drag }

// Lines returns the rendered surface.
func (t *Tree) Lines() []string { return t.render.Lines() }

// View joins the rendered surface.
func (t *Tree) View() string { return t.render.String() }

// SetWidth resizes the surface.
func (t *Tree) SetWidth(w int) {
	t.render.SetWidth(w)
	if t.drag != nil {
		t.drag.Width = w
	}
}

// Update applies asynchronous results produced by earlier commands and
// returns any follow-up work.
func (t *Tree) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case FetchResultMsg:
		_ = t.ApplyFetch(msg)
	case PersistResultMsg:
		if msg.Err != nil {
			t.report(&PersistError{Op: msg.Op, NodeID: msg.NodeID, Err: msg.Err})
		}
	}
	return t.Pending()
}

// Pending drains the commands queued by mutations (persistence calls).
func (t *Tree) Pending() tea.Cmd {
	if len(t.cmds) == 0 {
		return nil
	}
	cmds := t.cmds
	t.cmds = nil
	return tea.Batch(cmds...)
}

// Validate checks the registry invariants and, with checkboxes on, the
// container check rule.
func (t *Tree) Validate() error {
	if err := t.reg.Validate(); err != nil {
		return err
	}
	if t.checks != nil {
		return t.checks.Verify(t.reg.Root())
	}
	return nil
}

// Destroy drops every node and cancels outstanding fetches. The handle keeps
// working as an empty tree.
func (t *Tree) Destroy() {
	t.cancel()
	t.ctx, t.cancel = context.WithCancel(context.Background())
	if t.drag != nil {
		t.drag.Cancel()
	}
	if t.edit != nil {
		t.edit.Cancel()
		t.edit = nil
	}
	t.reg.Clear()
	t.reg.Root().Loaded = false
	t.focused, t.selected = nil, nil
	t.highlighted, t.matches = nil, nil
	t.inflight = make(map[string]bool)
	t.cmds = nil
	t.render.RenderRoot()
}

func (t *Tree) report(err error) {
	if err == nil {
		return
	}
	debug.Log("tree: %v", err)
	if t.opts.Callbacks.OnError != nil {
		t.opts.Callbacks.OnError(err)
	}
}

// refreshNode re-renders n and its child block, or the whole top block for a hidden root.
func (t *Tree) refreshNode(n *model.Node) {
	if n == nil {
		return
	}
	t.render.Refresh(n.ID)
}

// alive reports whether n is still the registered node for its id.
func (t *Tree) alive(n *model.Node) bool {
	if n == nil {
		return false
	}
	cur, ok := t.reg.Get(n.ID)
	return ok && cur == n
}

// get returns the node for id, or nil.
func (t *Tree) get(id string) *model.Node {
	n, ok := t.reg.Get(id)
	if !ok {
		return nil
	}
	return n
}
