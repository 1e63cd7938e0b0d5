package traverse

import (
	"testing"

	"github.com/vanderheijden86/treeview/pkg/model"
)

func buildTree(t *testing.T) *model.Registry {
	t.Helper()
	r := model.NewRegistry("", "Root")
	add := func(pid, id string) *model.Node {
		parent, _ := r.Get(pid)
		n := &model.Node{ID: id, ParentID: pid, Label: id}
		if err := r.AddChild(parent, n); err != nil {
			t.Fatalf("AddChild(%s): %v", id, err)
		}
		return n
	}
	add("", "a")
	add("a", "a1")
	add("a1", "a1x")
	add("a", "a2")
	add("", "b")
	return r
}

func ids(nodes []*model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestElementIDRoundTrip(t *testing.T) {
	el := ElementID("42")
	if el != "dt-42" {
		t.Errorf("expected dt-42, got %s", el)
	}
	id, ok := NodeIDFromElement(el)
	if !ok || id != "42" {
		t.Errorf("expected 42, got %q (ok=%v)", id, ok)
	}
	if _, ok := NodeIDFromElement("row-42"); ok {
		t.Error("expected foreign element id to be rejected")
	}
}

func TestIndent(t *testing.T) {
	hidden := Metrics{PerLevel: 12}
	shown := Metrics{PerLevel: 12, ShowRoot: true}

	tests := []struct {
		name  string
		depth int
		m     Metrics
		want  int
	}{
		{"root", 0, shown, 0},
		{"top level hidden root", 1, hidden, 0},
		{"second level hidden root", 2, hidden, 12},
		{"top level shown root", 1, shown, 12},
		{"third level shown root", 3, shown, 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Indent(tt.depth, tt.m); got != tt.want {
				t.Errorf("Indent(%d) = %d, want %d", tt.depth, got, tt.want)
			}
		})
	}
}

func TestContentOffset(t *testing.T) {
	m := Metrics{PerLevel: 2, ExpanderWidth: 2, CheckboxWidth: 4, IconWidth: 3}
	if got := ContentOffset(2, m); got != 2+2+4+3 {
		t.Errorf("expected 11, got %d", got)
	}
}

func TestVisibleOrder(t *testing.T) {
	r := buildTree(t)

	if got := ids(VisibleOrder(r.Root(), false)); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b] with everything closed, got %v", got)
	}

	a, _ := r.Get("a")
	a1, _ := r.Get("a1")
	a.Open = true
	a1.Open = true
	want := []string{"a", "a1", "a1x", "a2", "b"}
	got := ids(VisibleOrder(r.Root(), false))
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	withRoot := VisibleOrder(r.Root(), true)
	if withRoot[0] != r.Root() || len(withRoot) != len(want)+1 {
		t.Errorf("expected root first when shown, got %v", ids(withRoot))
	}
}

func TestIsVisibleAndDescendant(t *testing.T) {
	r := buildTree(t)
	a, _ := r.Get("a")
	a1x, _ := r.Get("a1x")

	if IsVisible(a1x) {
		t.Error("expected a1x hidden under closed ancestors")
	}
	a.Open = true
	a1, _ := r.Get("a1")
	a1.Open = true
	if !IsVisible(a1x) {
		t.Error("expected a1x visible once ancestors open")
	}

	if !IsDescendant(a, a1x) {
		t.Error("expected a1x to be a descendant of a")
	}
	if IsDescendant(a1x, a) {
		t.Error("expected a not to be a descendant of a1x")
	}
	if IsDescendant(a, a) {
		t.Error("a node is not its own descendant")
	}
}

func TestDeepestOpenLast(t *testing.T) {
	r := buildTree(t)
	a, _ := r.Get("a")
	if DeepestOpenLast(a) != a {
		t.Error("closed node should be its own deepest")
	}
	a.Open = true
	a2, _ := r.Get("a2")
	if got := DeepestOpenLast(a); got != a2 {
		t.Errorf("expected a2, got %s", got.ID)
	}
}
