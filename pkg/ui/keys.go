package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treeview/pkg/keynav"
)

// KeyMap defines the keybindings of the tree view.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Edit     key.Binding
	Delete   key.Binding
	DelTree  key.Binding
	Select   key.Binding
	Escape   key.Binding
	Toggle   key.Binding
	Search   key.Binding
	Next     key.Binding
	OpenAll  key.Binding
	CloseAll key.Binding
	New      key.Binding
	Refresh  key.Binding
	Copy     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "close / parent")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "open / first child")),
		Edit:     key.NewBinding(key.WithKeys("f2", "e"), key.WithHelp("F2/e", "rename")),
		Delete:   key.NewBinding(key.WithKeys("delete", "x"), key.WithHelp("del/x", "remove")),
		DelTree:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "remove with children")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle check")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next match")),
		OpenAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "open all")),
		CloseAll: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "close all")),
		New:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "new node")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload node")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy label")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "scroll down")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// navKey maps the navigation bindings onto the tree's key vocabulary.
func (k KeyMap) navKey(msg tea.KeyMsg) keynav.Key {
	switch {
	case key.Matches(msg, k.Up):
		return keynav.KeyUp
	case key.Matches(msg, k.Down):
		return keynav.KeyDown
	case key.Matches(msg, k.Left):
		return keynav.KeyLeft
	case key.Matches(msg, k.Right):
		return keynav.KeyRight
	case key.Matches(msg, k.Edit):
		return keynav.KeyEdit
	case key.Matches(msg, k.Delete):
		return keynav.KeyDelete
	case key.Matches(msg, k.Select):
		return keynav.KeyEnter
	case key.Matches(msg, k.Escape):
		return keynav.KeyEscape
	}
	return keynav.KeyNone
}

// helpGroups lists the bindings shown by the help overlay, grouped by topic.
func (k KeyMap) helpGroups() []helpGroup {
	return []helpGroup{
		{"Navigation", []key.Binding{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown}},
		{"Nodes", []key.Binding{k.Select, k.Toggle, k.Edit, k.New, k.Delete, k.DelTree, k.Refresh, k.Copy}},
		{"Search", []key.Binding{k.Search, k.Next, k.Escape}},
		{"View", []key.Binding{k.OpenAll, k.CloseAll, k.Help, k.Quit}},
	}
}

type helpGroup struct {
	Title    string
	Bindings []key.Binding
}
