package export

import (
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// Node is the nested JSON shape of an exported node.
type Node struct {
	ID       string         `json:"id"`
	ParentID string         `json:"parentId,omitempty"`
	Label    string         `json:"label"`
	Depth    int            `json:"depth"`
	Check    string         `json:"check,omitempty"`
	Change   string         `json:"change,omitempty"`
	Open     bool           `json:"open,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	Children []*Node        `json:"children,omitempty"`
}

// Document is the top-level JSON export.
type Document struct {
	Root  Node `json:"root"`
	Count int  `json:"count"`
}

// Build converts the tree into its export shape.
func Build(t *tree.Tree) Document {
	checks := t.Options().Checkbox != nil
	var conv func(n *model.Node) *Node
	conv = func(n *model.Node) *Node {
		out := &Node{
			ID:       n.ID,
			ParentID: n.ParentID,
			Label:    n.Label,
			Depth:    n.Depth,
			Change:   string(n.Change),
			Open:     n.Open,
		}
		if checks {
			out.Check = n.Check.String()
		}
		if len(n.Payload) > 0 {
			out.Payload = n.Payload
		}
		for _, c := range n.Children {
			out.Children = append(out.Children, conv(c))
		}
		return out
	}
	return Document{Root: *conv(t.Root()), Count: t.CountNodes()}
}

// WriteJSON writes the nested export, indented.
func WriteJSON(w io.Writer, t *tree.Tree) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(t))
}

// SaveJSON writes the nested export to path.
func SaveJSON(t *tree.Tree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Items flattens the tree back into ingestible items using the tree's item
// keys, parents before children. The result loads into a new tree unchanged.
func Items(t *tree.Tree) []model.Item {
	key := t.Options().ItemKey
	checks := t.Options().Checkbox != nil
	var out []model.Item
	var walk func(nodes []*model.Node)
	walk = func(nodes []*model.Node) {
		for _, n := range nodes {
			it := make(model.Item, len(n.Payload)+4)
			for k, v := range n.Payload {
				it[k] = v
			}
			it[key.ID] = n.ID
			it[key.Label] = n.Label
			if n.ParentID != "" {
				it[key.ParentID] = n.ParentID
			} else {
				delete(it, key.ParentID)
			}
			if n.Icon != "" {
				it[key.Icon] = n.Icon
			}
			if n.IsContainer() {
				it[key.Folder] = true
			}
			if checks && n.Check == model.Checked {
				it[key.Checked] = true
			} else {
				delete(it, key.Checked)
			}
			delete(it, key.Children)
			out = append(out, it)
			walk(n.Children)
		}
	}
	walk(t.Root().Children)
	return out
}
