package keynav

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/traverse"
)

// fakeActions records what the engine asked for.
type fakeActions struct {
	focused  *model.Node
	editing  bool
	opened   []string
	closed   []string
	selected []string
	removed  []string
	edited   []string
}

func (f *fakeActions) Focused() *model.Node { return f.focused }
func (f *fakeActions) Focus(n *model.Node)  { f.focused = n }
func (f *fakeActions) Open(n *model.Node) tea.Cmd {
	n.Open = true
	f.opened = append(f.opened, n.ID)
	return nil
}
func (f *fakeActions) Close(n *model.Node) {
	n.Open = false
	f.closed = append(f.closed, n.ID)
}
func (f *fakeActions) Select(n *model.Node) { f.selected = append(f.selected, n.ID) }
func (f *fakeActions) Remove(n *model.Node) error {
	f.removed = append(f.removed, n.ID)
	return nil
}
func (f *fakeActions) BeginEdit(n *model.Node) error {
	f.edited = append(f.edited, n.ID)
	return nil
}
func (f *fakeActions) IsEditing() bool { return f.editing }

// newNavTree builds:
//
//	a
//	  a1
//	    a1x
//	  a2
//	b
func newNavTree(t *testing.T) *model.Registry {
	t.Helper()
	r := model.NewRegistry("", "Root")
	for _, e := range [][2]string{{"", "a"}, {"a", "a1"}, {"a1", "a1x"}, {"a", "a2"}, {"", "b"}} {
		p, _ := r.Get(e[0])
		if err := r.AddChild(p, &model.Node{ID: e[1], ParentID: e[0]}); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
	}
	return r
}

func node(r *model.Registry, id string) *model.Node {
	n, _ := r.Get(id)
	return n
}

func TestNavigator_DownWalksVisibleOrder(t *testing.T) {
	r := newNavTree(t)
	node(r, "a").Open = true
	node(r, "a1").Open = true
	nav := Navigator{Root: r.Root()}

	var order []string
	for n := node(r, "a"); n != nil; n = nav.Next(n) {
		order = append(order, n.ID)
	}
	if got := fmt.Sprint(order); got != "[a a1 a1x a2 b]" {
		t.Errorf("unexpected order %s", got)
	}
}

func TestNavigator_DownSkipsClosed(t *testing.T) {
	r := newNavTree(t)
	nav := Navigator{Root: r.Root()}
	if got := nav.Next(node(r, "a")); got != node(r, "b") {
		t.Errorf("expected b, got %v", got)
	}
	if nav.Next(node(r, "b")) != nil {
		t.Error("expected no wraparound past the last node")
	}
}

func TestNavigator_UpDrillsIntoDeepestOpen(t *testing.T) {
	r := newNavTree(t)
	node(r, "a").Open = true
	node(r, "a1").Open = true
	nav := Navigator{Root: r.Root()}

	if got := nav.Prev(node(r, "b")); got != node(r, "a2") {
		t.Errorf("expected a2, got %s", got.ID)
	}
	if got := nav.Prev(node(r, "a2")); got != node(r, "a1x") {
		t.Errorf("expected a1x, got %s", got.ID)
	}
	if got := nav.Prev(node(r, "a1")); got != node(r, "a") {
		t.Errorf("expected a, got %s", got.ID)
	}
	if nav.Prev(node(r, "a")) != nil {
		t.Error("expected hidden root to be a boundary")
	}

	shown := Navigator{Root: r.Root(), ShowRoot: true}
	if shown.Prev(node(r, "a")) != r.Root() {
		t.Error("expected shown root to be reachable")
	}
	if shown.Prev(r.Root()) != nil {
		t.Error("root has no up target")
	}
}

func TestEngine_LeftClosesThenClimbs(t *testing.T) {
	r := newNavTree(t)
	node(r, "a").Open = true
	fa := &fakeActions{focused: node(r, "a")}
	e := NewEngine(Navigator{Root: r.Root()}, fa)

	e.Handle(KeyLeft)
	if node(r, "a").Open {
		t.Error("expected a closed")
	}
	e.Handle(KeyLeft)
	if fa.focused != node(r, "a") {
		t.Error("expected focus to stay at top level when root is hidden")
	}

	node(r, "a").Open = true
	fa.focused = node(r, "a2")
	e.Handle(KeyLeft)
	if fa.focused != node(r, "a") {
		t.Errorf("expected focus on parent, got %s", fa.focused.ID)
	}
}

func TestEngine_RightOpensThenDescends(t *testing.T) {
	r := newNavTree(t)
	fa := &fakeActions{focused: node(r, "a")}
	e := NewEngine(Navigator{Root: r.Root()}, fa)

	e.Handle(KeyRight)
	if !node(r, "a").Open || fa.focused != node(r, "a") {
		t.Fatal("expected a opened with focus kept")
	}
	e.Handle(KeyRight)
	if fa.focused != node(r, "a1") {
		t.Errorf("expected focus on first child, got %s", fa.focused.ID)
	}

	fa.focused = node(r, "b")
	e.Handle(KeyRight)
	if len(fa.opened) != 1 {
		t.Errorf("expected leaf to ignore right, opened %v", fa.opened)
	}

	node(r, "b").Folder = true
	node(r, "b").Open = true
	e.Handle(KeyRight)
	if fa.focused != node(r, "b") {
		t.Error("expected empty open folder to keep focus")
	}
}

func TestEngine_Commands(t *testing.T) {
	r := newNavTree(t)
	fa := &fakeActions{focused: node(r, "b")}
	e := NewEngine(Navigator{Root: r.Root()}, fa)

	e.Handle(KeyEnter)
	e.Handle(KeyEdit)
	e.Handle(KeyDelete)
	if fmt.Sprint(fa.selected, fa.edited, fa.removed) != "[b] [b] [b]" {
		t.Errorf("unexpected dispatch: %v %v %v", fa.selected, fa.edited, fa.removed)
	}

	fa.editing = true
	e.Handle(KeyDown)
	e.Handle(KeyEnter)
	if len(fa.selected) != 1 {
		t.Error("expected keys ignored while editing")
	}
}

func TestEditSession(t *testing.T) {
	n := &model.Node{ID: "x", Label: "old"}

	if _, err := BeginEdit(n, EditHooks{}, true); !errors.Is(err, ErrEditBusy) {
		t.Errorf("expected ErrEditBusy, got %v", err)
	}

	veto := EditHooks{Before: func(*model.Node) bool { return false }}
	if _, err := BeginEdit(n, veto, false); !errors.Is(err, ErrEditVetoed) || n.Editing {
		t.Errorf("expected before veto, got %v (editing=%v)", err, n.Editing)
	}

	s, err := BeginEdit(n, EditHooks{}, false)
	if err != nil || !n.Editing {
		t.Fatalf("BeginEdit: %v", err)
	}
	changed, err := s.Commit("old")
	if err != nil || changed || n.Change != model.ChangeNone {
		t.Errorf("unchanged commit must not tag: changed=%v tag=%q err=%v", changed, n.Change, err)
	}

	s, _ = BeginEdit(n, EditHooks{}, false)
	s.Cancel()
	if n.Editing || n.Change != model.ChangeNone {
		t.Error("cancel must clear editing without tagging")
	}

	s, _ = BeginEdit(n, EditHooks{}, false)
	changed, _ = s.Commit("new")
	if !changed || n.Label != "new" || n.Change != model.ChangeUpdated {
		t.Errorf("expected updated label and tag, got %q/%q", n.Label, n.Change)
	}
}

func TestEditSession_AfterHook(t *testing.T) {
	n := &model.Node{ID: "x", Label: "old"}
	upper := EditHooks{After: func(_ *model.Node, s string) (string, bool) { return s + "!", true }}
	s, _ := BeginEdit(n, upper, false)
	if changed, _ := s.Commit("hi"); !changed || n.Label != "hi!" {
		t.Errorf("expected transformed label, got %q", n.Label)
	}

	reject := EditHooks{After: func(*model.Node, string) (string, bool) { return "", false }}
	n.Change = model.ChangeNone
	s, _ = BeginEdit(n, reject, false)
	if _, err := s.Commit("nope"); !errors.Is(err, ErrEditVetoed) {
		t.Errorf("expected ErrEditVetoed, got %v", err)
	}
	if n.Label != "hi!" || n.Change != model.ChangeNone || n.Editing {
		t.Errorf("vetoed commit must leave node alone: %+v", n)
	}

	created := &model.Node{ID: "y", Label: "a", Change: model.ChangeCreated}
	s, _ = BeginEdit(created, EditHooks{}, false)
	s.Commit("b")
	if created.Change != model.ChangeCreated {
		t.Errorf("expected pending create to stay created, got %q", created.Change)
	}
}

func TestNavigator_DownUpRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := model.NewRegistry("", "Root")
		ids := []string{""}
		n := rapid.IntRange(1, 30).Draw(t, "n")
		for i := 0; i < n; i++ {
			pid := rapid.SampledFrom(ids).Draw(t, "parent")
			p, _ := r.Get(pid)
			id := fmt.Sprintf("n%d", i)
			if err := r.AddChild(p, &model.Node{ID: id, ParentID: pid}); err != nil {
				t.Fatalf("AddChild: %v", err)
			}
			ids = append(ids, id)
		}
		for _, id := range ids[1:] {
			nd, _ := r.Get(id)
			nd.Open = rapid.Bool().Draw(t, "open")
		}
		showRoot := rapid.Bool().Draw(t, "showRoot")
		nav := Navigator{Root: r.Root(), ShowRoot: showRoot}

		for _, x := range traverse.VisibleOrder(r.Root(), showRoot) {
			next := nav.Next(x)
			if next == nil {
				continue
			}
			if back := nav.Prev(next); back != x {
				t.Fatalf("Down from %q then Up landed on %v", x.ID, back)
			}
		}
	})
}
