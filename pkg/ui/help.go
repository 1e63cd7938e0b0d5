package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treeview/pkg/render"
)

// HelpMarkdown builds the key reference as markdown.
func HelpMarkdown(keys KeyMap) string {
	var b strings.Builder
	b.WriteString("# Keys\n")
	for _, g := range keys.helpGroups() {
		fmt.Fprintf(&b, "\n## %s\n\n| Key | Action |\n| --- | --- |\n", g.Title)
		for _, kb := range g.Bindings {
			h := kb.Help()
			if h.Key == "" {
				continue
			}
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n## Mouse\n\n")
	b.WriteString("- Click the expander to open or close, the box to check.\n")
	b.WriteString("- Double-click a label to rename it.\n")
	b.WriteString("- Drag a label onto another row to move it before, after or inside.\n")
	return b.String()
}

// RenderHelp renders the key reference in a bordered modal. Glamour failures
// fall back to the raw markdown.
func RenderHelp(keys KeyMap, theme render.Theme, width, height int) string {
	modalWidth := 64
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	md := HelpMarkdown(keys)
	body := md
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(modalWidth-6),
	); err == nil {
		if out, err := r.Render(md); err == nil {
			body = strings.TrimSpace(out)
		}
	}

	footer := theme.MutedText.Italic(true).Render("? or esc to close")
	modal := theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(0, 1).
		Width(modalWidth).
		Render(body + "\n\n" + footer)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
