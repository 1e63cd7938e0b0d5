package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/treeview/pkg/render"
)

// FileEntry is one discovered items file.
type FileEntry struct {
	Path  string
	Name  string // project directory name
	Nodes int    // -1 when the file could not be read
}

// NewFileEntry names an entry after the directory holding its .treeview folder.
func NewFileEntry(path string, nodes int) FileEntry {
	return FileEntry{
		Path:  path,
		Name:  filepath.Base(filepath.Dir(filepath.Dir(path))),
		Nodes: nodes,
	}
}

// FilePicker lets the user choose among discovered items files. Keys 1-9
// pick directly, / filters and enter picks the highlighted entry.
type FilePicker struct {
	entries  []FileEntry
	filtered []int
	cursor   int
	width    int

	filter    textinput.Model
	filtering bool
	theme     render.Theme

	chosen string
}

// NewFilePicker returns a picker over entries.
func NewFilePicker(entries []FileEntry, theme render.Theme) *FilePicker {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30

	p := &FilePicker{entries: entries, filter: ti, theme: theme}
	p.applyFilter()
	return p
}

// Chosen returns the picked path, or "" if the user quit.
func (p *FilePicker) Chosen() string { return p.chosen }

// Filtered returns the entries matching the current filter, best first.
func (p *FilePicker) Filtered() []FileEntry {
	out := make([]FileEntry, len(p.filtered))
	for i, idx := range p.filtered {
		out[i] = p.entries[idx]
	}
	return out
}

func (p *FilePicker) Init() tea.Cmd { return nil }

func (p *FilePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
	case tea.KeyMsg:
		if p.filtering {
			return p, p.updateFiltering(msg)
		}
		return p, p.updateNormal(msg)
	}
	return p, nil
}

func (p *FilePicker) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch s := msg.String(); s {
	case "q", "esc", "ctrl+c":
		return tea.Quit
	case "/":
		p.filtering = true
		p.filter.SetValue("")
		p.filter.Focus()
		return textinput.Blink
	case "up", "k":
		p.move(-1)
	case "down", "j":
		p.move(1)
	case "enter":
		return p.pick(p.cursor)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return p.pick(int(s[0] - '1'))
	}
	return nil
}

func (p *FilePicker) updateFiltering(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		p.filtering = false
		p.filter.SetValue("")
		p.filter.Blur()
		p.applyFilter()
		return nil
	case "enter":
		p.filtering = false
		p.filter.Blur()
		return p.pick(p.cursor)
	case "up":
		p.move(-1)
		return nil
	case "down":
		p.move(1)
		return nil
	}
	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	p.applyFilter()
	return cmd
}

func (p *FilePicker) move(delta int) {
	p.cursor += delta
	if p.cursor >= len(p.filtered) {
		p.cursor = len(p.filtered) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *FilePicker) pick(i int) tea.Cmd {
	if i < 0 || i >= len(p.filtered) {
		return nil
	}
	p.chosen = p.entries[p.filtered[i]].Path
	return tea.Quit
}

// applyFilter ranks entries by fuzzy match on name and path.
func (p *FilePicker) applyFilter() {
	query := strings.TrimSpace(p.filter.Value())
	p.filtered = p.filtered[:0]
	if query == "" {
		for i := range p.entries {
			p.filtered = append(p.filtered, i)
		}
	} else {
		targets := make([]string, len(p.entries))
		for i, e := range p.entries {
			targets[i] = e.Name + " " + e.Path
		}
		for _, m := range fuzzy.Find(query, targets) {
			p.filtered = append(p.filtered, m.Index)
		}
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = max(0, len(p.filtered)-1)
	}
}

func (p *FilePicker) View() string {
	t := p.theme
	var b strings.Builder

	key := t.Renderer.NewStyle().Foreground(t.Folder).Bold(true)
	b.WriteString(" " + key.Render("<1-9>") + " " + t.MutedText.Render("Open") +
		"  " + key.Render("</>") + " " + t.MutedText.Render("Filter") +
		"  " + key.Render("<q>") + " " + t.MutedText.Render("Quit") + "\n")

	if p.filtering {
		b.WriteString("  / " + p.filter.View() + "\n")
	}

	label := "items"
	if v := p.filter.Value(); v != "" {
		label = fmt.Sprintf("items(%s)", v)
	}
	b.WriteString(t.Header.Render(fmt.Sprintf("%s[%d]", label, len(p.filtered))) + "\n")

	if len(p.filtered) == 0 {
		b.WriteString(t.MutedText.Italic(true).Render("  No items files found. Configure discovery.scan_paths in config.yaml"))
		return b.String()
	}
	for i, idx := range p.filtered {
		e := p.entries[idx]
		num := " "
		if i < 9 {
			num = fmt.Sprintf("%d", i+1)
		}
		count := "?"
		if e.Nodes >= 0 {
			count = fmt.Sprintf("%d", e.Nodes)
		}
		line := fmt.Sprintf("%s %s (%s) %s", num, e.Name, count, e.Path)
		style := t.Base
		if i == p.cursor {
			style = t.Focused
		}
		b.WriteString("  " + style.Render(line) + "\n")
	}
	return b.String()
}
