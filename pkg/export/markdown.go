// Package export writes a tree out as Markdown, JSON, HTML and image
// snapshots.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/render"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// MarkdownOptions controls the outline.
type MarkdownOptions struct {
	Title       string
	VisibleOnly bool // skip the children of closed nodes
	Timestamp   bool
}

// Markdown renders the tree as a nested list. Checkbox glyphs are included
// when the tree has checkboxes, and changed nodes carry their tag.
func Markdown(t *tree.Tree, opts MarkdownOptions) string {
	var sb strings.Builder

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf("# %s\n\n", opts.Title))
	}
	if opts.Timestamp {
		sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))
	}

	checks := t.Options().Checkbox != nil
	root := t.Root()
	start := root.Children
	depthBase := 1
	if t.Options().ShowRoot {
		start = []*model.Node{root}
		depthBase = 0
	}

	var walk func(nodes []*model.Node)
	walk = func(nodes []*model.Node) {
		for _, n := range nodes {
			sb.WriteString(strings.Repeat("  ", n.Depth-depthBase))
			sb.WriteString("- ")
			if checks {
				sb.WriteString(render.CheckGlyph(n.Check))
				sb.WriteString(" ")
			}
			sb.WriteString(escapeMarkdown(n.Label))
			if n.Change != model.ChangeNone {
				sb.WriteString(fmt.Sprintf(" *(%s)*", n.Change))
			}
			sb.WriteString("\n")
			if opts.VisibleOnly && !n.Open {
				continue
			}
			walk(n.Children)
		}
	}
	walk(start)

	total := t.CountNodes()
	sb.WriteString(fmt.Sprintf("\n_%d nodes_\n", total))
	return sb.String()
}

// SaveMarkdown writes the outline to filename.
func SaveMarkdown(t *tree.Tree, filename string, opts MarkdownOptions) error {
	return os.WriteFile(filename, []byte(Markdown(t, opts)), 0o644)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
