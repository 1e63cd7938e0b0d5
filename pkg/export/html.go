package export

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/treeview/pkg/traverse"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// HTMLOptions configures the standalone page export.
type HTMLOptions struct {
	Title string
	Path  string // if empty, HTMLFilename(Project) is used
	// Project names the auto-generated file
	Project string
}

// HTMLFilename builds {project}_{YYYYMMDD}_{HHMMSS}_{gitshort}.html
func HTMLFilename(project string) string {
	stamp := time.Now().Format("20060102_150405")

	gitShort := "nogit"
	if out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
		gitShort = strings.TrimSpace(string(out))
	}

	safe := strings.NewReplacer(" ", "_", "/", "_").Replace(project)
	if safe == "" {
		safe = "tree"
	}
	return fmt.Sprintf("%s_%s_%s.html", safe, stamp, gitShort)
}

type htmlRow struct {
	ElementID string
	Label     string
	Glyph     string
	Check     string
	Change    string
	Open      bool
	Children  []htmlRow
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: ui-monospace, monospace; background: #282a36; color: #f8f8f2; }
ul { list-style: none; padding-left: 1.2em; margin: 0; }
li > span.row { cursor: default; }
li.closed > ul { display: none; }
.exp { color: #6272a4; cursor: pointer; }
.chk { color: #bd93f9; }
.tag { color: #ffb86c; font-size: 0.8em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<ul class="tree">{{template "rows" .Rows}}</ul>
<p>{{.Count}} nodes</p>
<script id="tree-data" type="application/json">{{.Data}}</script>
<script>
document.querySelectorAll('.exp').forEach(function (el) {
  el.addEventListener('click', function () { el.closest('li').classList.toggle('closed'); });
});
</script>
</body>
</html>
{{define "rows"}}{{range .}}
<li id="{{.ElementID}}"{{if and .Children (not .Open)}} class="closed"{{end}}><span class="row"><span class="exp">{{.Glyph}}</span> {{if .Check}}<span class="chk">{{.Check}}</span> {{end}}{{.Label}}{{if .Change}} <span class="tag">{{.Change}}</span>{{end}}</span>{{if .Children}}<ul>{{template "rows" .Children}}</ul>{{end}}</li>{{end}}{{end}}`))

// HTML renders a self-contained page. Every row is an li with element id
// dt-<node id>, and the JSON export is embedded for scripts.
func HTML(t *tree.Tree, title string) (string, error) {
	if title == "" {
		title = t.Root().Label
	}
	doc := Build(t)
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	checks := t.Options().Checkbox != nil
	var conv func(nodes []*Node) []htmlRow
	conv = func(nodes []*Node) []htmlRow {
		rows := make([]htmlRow, 0, len(nodes))
		for _, n := range nodes {
			r := htmlRow{
				ElementID: traverse.ElementID(n.ID),
				Label:     n.Label,
				Change:    n.Change,
				Open:      n.Open,
				Glyph:     " ",
				Children:  conv(n.Children),
			}
			if len(n.Children) > 0 {
				r.Glyph = "▸"
				if n.Open {
					r.Glyph = "▾"
				}
			}
			if checks {
				r.Check = checkGlyphFor(n.Check)
			}
			rows = append(rows, r)
		}
		return rows
	}
	top := doc.Root.Children
	if t.Options().ShowRoot {
		top = []*Node{&doc.Root}
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, map[string]any{
		"Title": title,
		"Rows":  conv(top),
		"Count": doc.Count,
		"Data":  template.JS(data),
	})
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// SaveHTML writes the page and returns the path used.
func SaveHTML(t *tree.Tree, opts HTMLOptions) (string, error) {
	page, err := HTML(t, opts.Title)
	if err != nil {
		return "", err
	}
	path := opts.Path
	if path == "" {
		path = HTMLFilename(opts.Project)
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func checkGlyphFor(state string) string {
	switch state {
	case "checked":
		return "[x]"
	case "indeterminate":
		return "[-]"
	}
	return "[ ]"
}
