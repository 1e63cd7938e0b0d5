package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the palette and pre-computed row styles.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Match     lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Folder    lipgloss.AdaptiveColor
	File      lipgloss.AdaptiveColor

	// Styles
	Base       lipgloss.Style
	Focused    lipgloss.Style
	Selected   lipgloss.Style
	Matched    lipgloss.Style
	Expander   lipgloss.Style
	Checkbox   lipgloss.Style
	Changed    lipgloss.Style
	DropLine   lipgloss.Style
	NotAllowed lipgloss.Style
	Header     lipgloss.Style
	MutedText  lipgloss.Style

	// Icons maps icon hints to glyphs. Unknown hints fall back to their first letter.
	Icons map[string]string
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Match:     lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Folder:    lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		File:      lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Focused = r.NewStyle().Background(t.Highlight).Bold(true)
	t.Selected = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Matched = r.NewStyle().Foreground(t.Match).Underline(true)
	t.Expander = r.NewStyle().Foreground(t.Secondary)
	t.Checkbox = r.NewStyle().Foreground(t.Primary)
	t.Changed = r.NewStyle().Foreground(t.Match)
	t.DropLine = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.NotAllowed = r.NewStyle().Foreground(t.Danger).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Icons = map[string]string{
		"folder":      "⊞",
		"folder-open": "⊟",
		"file":        "·",
		"doc":         "≡",
		"link":        "↗",
		"star":        "★",
	}
	return t
}

// Icon picks the glyph for a node: the explicit hint when known, its first
// letter when not, else a folder or file default.
func (t Theme) Icon(hint string, container, open bool) (string, lipgloss.AdaptiveColor) {
	if hint != "" {
		if g, ok := t.Icons[hint]; ok {
			return g, t.Primary
		}
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(hint))
		if r != utf8.RuneError {
			return string(unicode.ToUpper(r)), t.Primary
		}
	}
	if container {
		if open {
			return t.Icons["folder-open"], t.Folder
		}
		return t.Icons["folder"], t.Folder
	}
	return t.Icons["file"], t.File
}
