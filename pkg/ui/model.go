package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/keynav"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/render"
	"github.com/vanderheijden86/treeview/pkg/traverse"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// doubleClickInterval is the longest gap between two presses on the same
// line that still counts as a double click.
const doubleClickInterval = 400 * time.Millisecond

// chrome is the number of lines taken by the header and the status bar.
const chrome = 2

type mode int

const (
	modeNormal mode = iota
	modeEdit
	modeSearch
	modeHelp
)

// Config holds what the host passes in besides the tree options.
type Config struct {
	Title  string
	Keys   *KeyMap
	Worker *ReloadWorker
	// Copy puts text on the clipboard. Defaults to the system clipboard.
	Copy func(string) error
}

// Model is the bubbletea program hosting one tree.
type Model struct {
	tree  *tree.Tree
	keys  KeyMap
	theme render.Theme
	title string

	viewport viewport.Model
	input    textinput.Model
	mode     mode
	ready    bool
	width    int
	height   int

	worker *ReloadWorker
	copy   func(string) error
	now    func() time.Time

	lastPress     time.Time
	lastPressLine int
	pressed       bool

	status    string
	statusErr bool
}

// NewModel builds the tree from opts and wraps it. Errors the tree reports
// through Callbacks.OnError also reach the status bar.
func NewModel(opts tree.Options, cfg Config) (*Model, error) {
	m := &Model{
		title:  cfg.Title,
		keys:   DefaultKeyMap(),
		worker: cfg.Worker,
		copy:   cfg.Copy,
		now:    time.Now,
	}
	if cfg.Keys != nil {
		m.keys = *cfg.Keys
	}
	if m.copy == nil {
		m.copy = clipboard.WriteAll
	}
	if m.title == "" {
		m.title = "tv"
	}

	hostErr := opts.Callbacks.OnError
	opts.Callbacks.OnError = func(err error) {
		m.setError(err)
		if hostErr != nil {
			hostErr(err)
		}
	}

	t, err := tree.New(opts)
	if err != nil {
		return nil, err
	}
	m.tree = t
	m.theme = t.Renderer().Theme()

	m.input = textinput.New()
	m.input.CharLimit = 256
	m.viewport = viewport.New(0, 0)
	return m, nil
}

// Tree returns the hosted tree.
func (m *Model) Tree() *tree.Tree { return m.tree }

// Status returns the current status bar message.
func (m *Model) Status() string { return m.status }

// Init loads the root and starts listening to the reload worker.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tree.Init()}
	if m.worker != nil {
		cmds = append(cmds, m.worker.Wait())
	}
	return tea.Batch(cmds...)
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := msg.Height - chrome
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.input.Width = msg.Width / 2
		m.tree.SetWidth(msg.Width)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tree.FetchResultMsg, tree.PersistResultMsg:
		cmds = append(cmds, m.tree.Update(msg))

	case ReloadMsg:
		m.reload(msg)
		cmds = append(cmds, m.waitWorker())

	case ReloadErrorMsg:
		m.setError(msg.Err)
		cmds = append(cmds, m.waitWorker())
	}

	switch editing := m.tree.Editing(); {
	case editing != nil && m.mode != modeEdit:
		cmds = append(cmds, m.beginInput(modeEdit, editing.Label))
	case editing == nil && m.mode == modeEdit:
		m.endInput()
	}
	cmds = append(cmds, m.tree.Pending())
	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m *Model) waitWorker() tea.Cmd {
	if m.worker == nil {
		return nil
	}
	return m.worker.Wait()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Escape, m.keys.Quit) {
			m.mode = modeNormal
		}
		return nil
	case modeEdit:
		return m.handleEditKey(msg)
	case modeSearch:
		return m.handleSearchKey(msg)
	}

	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	drag := m.tree.Drag()
	if drag != nil && drag.Active() {
		if key.Matches(msg, m.keys.Escape) {
			m.tree.HandleKey(keynav.KeyEscape)
			m.pressed = false
			m.setStatus("drag cancelled")
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		return nil
	case key.Matches(msg, m.keys.Search):
		return m.beginInput(modeSearch, "")
	case key.Matches(msg, m.keys.Next):
		if n := m.tree.NextMatch(); n != nil {
			m.setStatus(fmt.Sprintf("match %s", n.Label))
		}
		return nil
	case key.Matches(msg, m.keys.Toggle):
		m.toggleFocused()
		return nil
	case key.Matches(msg, m.keys.OpenAll):
		m.tree.OpenAll()
		return nil
	case key.Matches(msg, m.keys.CloseAll):
		m.tree.CloseAll()
		return nil
	case key.Matches(msg, m.keys.New):
		m.createNode()
		return nil
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshFocused()
	case key.Matches(msg, m.keys.Copy):
		m.copyFocused()
		return nil
	case key.Matches(msg, m.keys.DelTree):
		m.removeFocusedTree()
		return nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height)
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height)
		return nil
	case key.Matches(msg, m.keys.Escape):
		m.clearStatus()
	}

	k := m.keys.navKey(msg)
	if k == keynav.KeyNone {
		return nil
	}
	focused := m.tree.Focused()
	cmd := m.tree.HandleKey(k)
	if k == keynav.KeyDelete && focused != nil && focused.HasChildren() && m.tree.Focused() == focused {
		m.setError(fmt.Errorf("%q %w: press %s to remove it with its children",
			focused.Label, model.ErrHasChildren, m.keys.DelTree.Help().Key))
	}
	m.scrollToFocus()
	return cmd
}

func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		changed, err := m.tree.CommitEdit(m.input.Value())
		m.endInput()
		switch {
		case err != nil:
			m.setError(err)
		case changed:
			m.setStatus("renamed")
		}
		return nil
	case tea.KeyEsc:
		m.tree.HandleKey(keynav.KeyEscape)
		m.endInput()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		query := m.input.Value()
		m.endInput()
		found := m.tree.Search(query)
		switch {
		case strings.TrimSpace(query) == "":
			m.clearStatus()
		case len(found) == 0:
			m.setStatus(fmt.Sprintf("no match for %q", query))
		default:
			m.setStatus(fmt.Sprintf("%d matches for %q", len(found), query))
		}
		m.scrollToFocus()
		return nil
	case tea.KeyEsc:
		m.endInput()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) beginInput(md mode, value string) tea.Cmd {
	m.mode = md
	m.input.Prompt = ""
	if md == modeSearch {
		m.input.Prompt = "/"
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return textinput.Blink
}

func (m *Model) endInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.mode == modeHelp || m.mode == modeSearch {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.SetYOffset(m.viewport.YOffset - 1)
		return nil
	case tea.MouseButtonWheelDown:
		m.viewport.SetYOffset(m.viewport.YOffset + 1)
		return nil
	}

	line := msg.Y - 1 + m.viewport.YOffset
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		if m.mode == modeEdit {
			m.endInput()
			m.tree.CancelEdit()
		}
		now := m.now()
		double := line == m.lastPressLine && now.Sub(m.lastPress) <= doubleClickInterval
		m.lastPress, m.lastPressLine = now, line
		if double {
			m.lastPress = time.Time{}
			m.pressed = false
			if err := m.tree.PointerDouble(msg.X, line, msg); err != nil && !errors.Is(err, tree.ErrDisabled) {
				m.setError(err)
			}
			return nil
		}
		m.pressed = true
		return m.tree.PointerDown(msg.X, line, msg)

	case tea.MouseActionMotion:
		if m.pressed {
			m.tree.PointerMove(msg.X, line)
		}

	case tea.MouseActionRelease:
		if !m.pressed {
			return nil
		}
		m.pressed = false
		res, err := m.tree.PointerUp()
		if err == nil && res.Moved {
			m.setStatus(fmt.Sprintf("moved %s %s %s", res.Event.Dragged.Label, res.Event.Zone, res.Event.Target.Label))
		}
	}
	return nil
}

func (m *Model) toggleFocused() {
	n := m.tree.Focused()
	if n == nil {
		return
	}
	state, err := m.tree.ToggleCheck(n.ID)
	if err != nil {
		if !errors.Is(err, tree.ErrDisabled) {
			m.setError(err)
		}
		return
	}
	m.setStatus(fmt.Sprintf("%s %s", n.Label, state))
}

// createNode adds a node inside the focused container, or next to the
// focused leaf, and starts renaming it.
func (m *Model) createNode() {
	parent := m.tree.Root()
	if f := m.tree.Focused(); f != nil {
		parent = f
		if !f.IsContainer() && f.Parent() != nil {
			parent = f.Parent()
		}
	}
	k := m.tree.Options().ItemKey
	n, err := m.tree.CreateNode(model.Item{k.ParentID: parent.ID})
	if err != nil {
		m.setError(err)
		return
	}
	if m.tree.Options().Edit != nil {
		if err := m.tree.BeginEdit(n.ID); err != nil {
			m.setError(err)
		}
	}
	m.scrollToFocus()
}

func (m *Model) refreshFocused() tea.Cmd {
	id := m.tree.Root().ID
	if f := m.tree.Focused(); f != nil {
		id = f.ID
	}
	cmd, err := m.tree.Refresh(id)
	if err != nil {
		m.setError(err)
		return nil
	}
	if m.worker != nil && id == m.tree.Root().ID {
		m.worker.TriggerRefresh()
	}
	return cmd
}

// removeFocusedTree removes the focused node and everything below it.
func (m *Model) removeFocusedTree() {
	f := m.tree.Focused()
	if f == nil || f == m.tree.Root() {
		return
	}
	before := m.tree.CountNodes()
	out := m.tree.RemoveNodesRecursive(f.ID)
	if err := out[0].Err; err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("removed %s (%d nodes)", out[0].Snapshot.Label, before-m.tree.CountNodes()))
	m.scrollToFocus()
}

func (m *Model) copyFocused() {
	n := m.tree.Focused()
	if n == nil {
		return
	}
	if err := m.copy(n.Label); err != nil {
		debug.Warn("ui: clipboard: %v", err)
		m.setError(fmt.Errorf("copy failed: %w", err))
		return
	}
	m.setStatus(fmt.Sprintf("copied %q", n.Label))
}

// reload swaps the tree contents for freshly loaded items, keeping focus on
// the same id when it survives.
func (m *Model) reload(msg ReloadMsg) {
	focused := ""
	if f := m.tree.Focused(); f != nil {
		focused = f.ID
	}
	m.endInput()
	m.tree.Destroy()
	if err := m.tree.AddNodes(msg.Items); err != nil {
		m.setError(err)
		return
	}
	m.tree.Root().Loaded = true
	if focused != "" {
		if _, ok := m.tree.GetNode(focused); ok {
			_ = m.tree.Focus(focused)
		}
	}
	m.setStatus(fmt.Sprintf("reloaded %d nodes in %s", m.tree.CountNodes(), msg.Took.Round(time.Millisecond)))
}

func (m *Model) scrollToFocus() {
	f := m.tree.Focused()
	if f == nil || m.viewport.Height <= 0 {
		return
	}
	top, ok := m.tree.Renderer().RowOf(f.ID)
	if !ok {
		return
	}
	rh := m.tree.Renderer().RowHeight()
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case top+rh > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(top + rh - m.viewport.Height)
	}
}

// refresh pushes the tree surface, with the edit box and drop indicator
// drawn over it, into the viewport.
func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.surface(), "\n"))
}

func (m *Model) surface() []string {
	lines := m.tree.Lines()
	r := m.tree.Renderer()

	if n := m.tree.Editing(); n != nil && m.mode == modeEdit {
		if top, ok := r.RowOf(n.ID); ok {
			at := top + r.RowHeight()/2
			x := traverse.ContentOffset(n.Depth, r.Metrics())
			lines[at] = strings.Repeat(" ", x) + m.input.View()
		}
	}

	drag := m.tree.Drag()
	if drag == nil {
		return lines
	}
	if ind := drag.Indicator; ind.Visible && ind.Y >= 0 && ind.Y < len(lines) {
		if lines[ind.Y] == "" {
			lines[ind.Y] = strings.Repeat(" ", ind.X) + m.theme.DropLine.Render(strings.Repeat("─", ind.Width))
		} else {
			lines[ind.Y] += m.theme.DropLine.Render(" ◀")
		}
	}
	if drag.NotAllowed() {
		if target, _ := drag.Target(); target != nil {
			if top, ok := r.RowOf(target.ID); ok {
				at := top + r.RowHeight()/2
				lines[at] += m.theme.NotAllowed.Render(" ⊘")
			}
		}
	}
	return lines
}

// View renders the header, the tree and the status bar.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.mode == modeHelp {
		return RenderHelp(m.keys, m.theme, m.width, m.height)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderFooter(),
	)
}

func (m *Model) renderHeader() string {
	count := fmt.Sprintf("%d nodes", m.tree.CountNodes())
	if c := len(m.tree.Matches()); c > 0 {
		count = fmt.Sprintf("%d/%s", c, count)
	}
	title := m.theme.Header.Render(m.title)
	right := m.theme.MutedText.Render(count)
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m *Model) renderFooter() string {
	var left string
	switch m.mode {
	case modeSearch:
		left = m.input.View()
	case modeEdit:
		left = m.theme.MutedText.Render("enter: save • esc: cancel")
	default:
		left = m.focusPath()
	}

	keys := m.theme.MutedText.Render("?: help • q: quit")
	leftSection := m.theme.Renderer.NewStyle().Padding(0, 1).Render(left)
	rightSection := m.theme.Renderer.NewStyle().Padding(0, 1).Render(keys)
	remaining := m.width - lipgloss.Width(leftSection) - lipgloss.Width(rightSection)
	if remaining < 0 {
		remaining = 0
	}

	style := m.theme.MutedText
	if m.statusErr {
		style = m.theme.Renderer.NewStyle().Foreground(m.theme.Danger).Bold(true)
	}
	middle := style.Width(remaining).Render(runewidth.Truncate(m.status, remaining, "…"))
	return lipgloss.JoinHorizontal(lipgloss.Top, leftSection, middle, rightSection)
}

// focusPath shows the labels from the top level down to the focused node.
func (m *Model) focusPath() string {
	f := m.tree.Focused()
	if f == nil {
		return ""
	}
	var parts []string
	root := m.tree.Root()
	for n := f; n != nil; n = n.Parent() {
		if n == root && !m.tree.Options().ShowRoot {
			break
		}
		parts = append([]string{n.Label}, parts...)
	}
	return strings.Join(parts, " › ")
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	m.status, m.statusErr = err.Error(), true
}

func (m *Model) clearStatus() {
	m.status, m.statusErr = "", false
}
