package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treeview/pkg/keynav"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/render"
)

func testTheme() *render.Theme {
	th := render.DefaultTheme(lipgloss.NewRenderer(nil))
	return &th
}

func scenarioItems() []model.Item {
	return []model.Item{
		{"id": 1, "pid": "", "text": "A"},
		{"id": 2, "pid": 1, "text": "B"},
		{"id": 3, "pid": 1, "text": "C"},
	}
}

func newTestTree(t *testing.T, opts Options) *Tree {
	t.Helper()
	opts.Theme = testTheme()
	if opts.Items == nil {
		opts.Items = scenarioItems()
	}
	tr, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func childIDs(n *model.Node) string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return strings.Join(ids, ",")
}

func mustNode(t *testing.T, tr *Tree, id string) *model.Node {
	t.Helper()
	n, ok := tr.GetNode(id)
	if !ok {
		t.Fatalf("node %q not found", id)
	}
	return n
}

// drain runs cmd and any batched commands, returning the produced messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestScenario_IngestOrderAndDepth(t *testing.T) {
	tr := newTestTree(t, Options{})
	one := mustNode(t, tr, "1")
	if got := childIDs(one); got != "2,3" {
		t.Errorf("expected children 2,3, got %s", got)
	}
	for id, want := range map[string]int{"1": 1, "2": 2, "3": 2} {
		if d := mustNode(t, tr, id).Depth; d != want {
			t.Errorf("node %s: expected depth %d, got %d", id, want, d)
		}
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestScenario_CheckCascade(t *testing.T) {
	tr := newTestTree(t, Options{Checkbox: &CheckboxOptions{}})

	if _, err := tr.ToggleCheck("1"); err != nil {
		t.Fatalf("ToggleCheck: %v", err)
	}
	var ids []string
	for _, n := range tr.GetCheckedNodes() {
		ids = append(ids, n.ID)
	}
	if fmt.Sprint(ids) != "[1 2 3]" {
		t.Errorf("expected checked [1 2 3], got %v", ids)
	}

	if _, err := tr.ToggleCheck("2"); err != nil {
		t.Fatalf("ToggleCheck: %v", err)
	}
	if s := mustNode(t, tr, "1").Check; s != model.Indeterminate {
		t.Errorf("expected node 1 indeterminate, got %s", s)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestScenario_MoveBefore(t *testing.T) {
	tr := newTestTree(t, Options{})
	if err := tr.Move("3", "before", "2"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := childIDs(mustNode(t, tr, "1")); got != "3,2" {
		t.Errorf("expected 3,2, got %s", got)
	}
	if mustNode(t, tr, "2").Depth != 2 || mustNode(t, tr, "3").Depth != 2 {
		t.Error("expected depths unchanged")
	}
	if c := mustNode(t, tr, "3").Change; c != model.ChangeUpdated {
		t.Errorf("expected moved node tagged U, got %q", c)
	}
}

func TestScenario_Search(t *testing.T) {
	tr := newTestTree(t, Options{})
	one := mustNode(t, tr, "1")
	if one.Open {
		t.Fatal("expected node 1 closed at default open depth")
	}

	found := tr.Search("b")
	if len(found) != 1 || found[0].ID != "2" {
		t.Fatalf("expected match {2}, got %v", found)
	}
	two := mustNode(t, tr, "2")
	if !one.Open {
		t.Error("expected node 1 opened to reveal the match")
	}
	if !two.Highlighted || tr.Focused() != two {
		t.Error("expected node 2 highlighted and focused")
	}

	tr.Search("C")
	if two.Highlighted {
		t.Error("expected earlier highlight cleared")
	}
	if got := tr.Search("   "); got != nil {
		t.Errorf("expected blank query to match nothing, got %v", got)
	}
}

func TestSearch_MatchesSurviveRemoval(t *testing.T) {
	tr := newTestTree(t, Options{Items: []model.Item{
		{"id": 1, "text": "xa"},
		{"id": 2, "text": "xb"},
		{"id": 3, "text": "xc"},
	}})
	if found := tr.Search("x"); len(found) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(found))
	}
	if out := tr.RemoveNodes("2"); out[0].Err != nil {
		t.Fatalf("remove: %v", out[0].Err)
	}

	var got []string
	for _, n := range tr.Matches() {
		got = append(got, n.ID)
	}
	if strings.Join(got, ",") != "1,3" {
		t.Errorf("expected matches 1,3, got %v", got)
	}
	seen := map[string]bool{}
	for range 2 {
		n := tr.NextMatch()
		if n == nil || seen[n.ID] {
			t.Fatalf("expected a new match on each step, got %v", n)
		}
		seen[n.ID] = true
	}
}

func TestScenario_RemoveRecursive(t *testing.T) {
	tr := newTestTree(t, Options{})
	out := tr.RemoveNodesRecursive("1")
	if len(out) != 1 || out[0].Err != nil || out[0].Snapshot.ID != "1" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, ok := tr.GetNode(id); ok {
			t.Errorf("expected %s removed", id)
		}
	}
	if tr.CountNodes() != 0 {
		t.Errorf("expected empty tree, got %d nodes", tr.CountNodes())
	}
}

func TestRemoveNodes_Outcomes(t *testing.T) {
	tr := newTestTree(t, Options{})
	out := tr.RemoveNodes("1", "missing", "3")
	if len(out) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(out))
	}
	if !errors.Is(out[0].Err, model.ErrHasChildren) {
		t.Errorf("expected has-children error, got %v", out[0].Err)
	}
	if out[1].String() != "id not found [missing]" {
		t.Errorf("expected not-found outcome, got %q", out[1].String())
	}
	if out[2].Err != nil {
		t.Errorf("expected node 3 removed, got %v", out[2].Err)
	}
	if got := childIDs(mustNode(t, tr, "1")); got != "2" {
		t.Errorf("expected only child 2 left, got %s", got)
	}
}

func TestAddNodes_AllOrNothing(t *testing.T) {
	tr := newTestTree(t, Options{})
	before := tr.CountNodes()

	err := tr.AddNodes([]model.Item{{"id": "x", "text": "ok"}, {"text": "no id"}})
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	err = tr.AddNodes([]model.Item{{"id": "p", "pid": "q"}, {"id": "q", "pid": "p"}})
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	err = tr.AddNodes([]model.Item{{"id": "1", "pid": "2"}})
	if !errors.Is(err, model.ErrSelfAncestor) {
		t.Errorf("expected ErrSelfAncestor, got %v", err)
	}
	if tr.CountNodes() != before {
		t.Errorf("expected %d nodes after rejected batches, got %d", before, tr.CountNodes())
	}
}

func TestAddNodes_MoveUnderNodeCreatedInSameBatch(t *testing.T) {
	tr := newTestTree(t, Options{})
	before := tr.CountNodes()

	// 9 goes under 3, then 1 moves under 9: 1 would become its own ancestor.
	err := tr.AddNodes([]model.Item{{"id": "9", "pid": "3"}, {"id": "1", "pid": "9"}})
	if !errors.Is(err, model.ErrSelfAncestor) {
		t.Errorf("expected ErrSelfAncestor, got %v", err)
	}
	if tr.CountNodes() != before {
		t.Errorf("expected %d nodes, got %d", before, tr.CountNodes())
	}
	if _, ok := tr.GetNode("9"); ok {
		t.Error("expected node 9 not inserted")
	}

	// Same move through a nested child.
	err = tr.AddNodes([]model.Item{{"id": "8", "pid": "2", "children": []any{
		map[string]any{"id": "1"},
	}}})
	if !errors.Is(err, model.ErrSelfAncestor) {
		t.Errorf("expected ErrSelfAncestor for nested move, got %v", err)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("expected valid tree, got %v", err)
	}
}

func TestAddNodes_NestedOutOfOrderAndReplace(t *testing.T) {
	tr := newTestTree(t, Options{Items: []model.Item{}})
	err := tr.AddNodes([]model.Item{
		{"id": "b", "pid": "a", "text": "child first"},
		{"id": "a", "text": "parent", "children": []any{
			map[string]any{"id": "c", "text": "nested"},
		}},
	})
	if err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	a := mustNode(t, tr, "a")
	if got := childIDs(a); got != "c,b" {
		t.Errorf("expected c,b, got %s", got)
	}
	if !a.Loaded {
		t.Error("expected inline children to mark the parent loaded")
	}

	if err := tr.AddNodes([]model.Item{{"id": "c", "pid": "a", "text": "renamed"}}); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	c := mustNode(t, tr, "c")
	if c.Label != "renamed" || c.IndexInParent() != 0 {
		t.Errorf("expected in-place update, got %q at %d", c.Label, c.IndexInParent())
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAddNodes_AdoptsRootIDAndInheritsCheck(t *testing.T) {
	tr := newTestTree(t, Options{
		Checkbox: &CheckboxOptions{},
		Items:    []model.Item{{"id": 10, "pid": 0, "text": "top", "checked": true, "folder": true}},
	})
	if tr.Root().ID != "0" {
		t.Errorf("expected root id adopted as 0, got %q", tr.Root().ID)
	}
	if err := tr.AddNodes([]model.Item{{"id": 11, "text": "kid"}}, "10"); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	if mustNode(t, tr, "11").Check != model.Checked {
		t.Error("expected child of checked parent to start checked")
	}
	if !mustNode(t, tr, "10").Open {
		t.Error("expected parent opened after adding children")
	}
}

type countingFetcher struct {
	calls int
	items map[string][]model.Item
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, p model.Params) ([]model.Item, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items[p.ID], nil
}

func TestLazyLoad_FetchesOnce(t *testing.T) {
	f := &countingFetcher{items: map[string][]model.Item{
		"":  {{"id": "d", "text": "dir", "folder": true}},
		"d": {{"id": "f1", "text": "file one"}, {"id": "f2", "text": "file two"}},
	}}
	tr := newTestTree(t, Options{Items: []model.Item{}, Fetcher: f})

	for _, msg := range drain(tr.Init()) {
		tr.Update(msg)
	}
	d := mustNode(t, tr, "d")

	cmd := tr.OpenNode("d")
	if cmd == nil {
		t.Fatal("expected fetch command")
	}
	if again := tr.OpenNode("d"); again != nil {
		t.Error("expected no second fetch while in flight")
	}
	if !tr.Fetching("d") {
		t.Error("expected fetch to be in flight")
	}
	for _, msg := range drain(cmd) {
		tr.Update(msg)
	}
	if got := childIDs(d); got != "f1,f2" {
		t.Errorf("expected f1,f2, got %s", got)
	}
	if err := tr.CloseNode("d"); err != nil {
		t.Fatal(err)
	}
	if tr.OpenNode("d") != nil {
		t.Error("expected loaded node not to fetch again")
	}
	if f.calls != 2 {
		t.Errorf("expected 2 fetches (root + d), got %d", f.calls)
	}
}

func TestLazyLoad_ErrorLeavesTreeUntouched(t *testing.T) {
	var reported error
	f := &countingFetcher{err: errors.New("boom")}
	tr := newTestTree(t, Options{
		Items:     []model.Item{{"id": "d", "text": "dir", "folder": true}},
		Fetcher:   f,
		Callbacks: Callbacks{OnError: func(err error) { reported = err }},
	})
	for _, msg := range drain(tr.OpenNode("d")) {
		tr.Update(msg)
	}
	var ferr *FetchError
	if !errors.As(reported, &ferr) || ferr.NodeID != "d" {
		t.Fatalf("expected FetchError for d, got %v", reported)
	}
	d := mustNode(t, tr, "d")
	if d.Loaded || d.HasChildren() {
		t.Error("expected node unloaded and childless after failed fetch")
	}
	if _, err := tr.Refresh("missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound refreshing a missing node, got %v", err)
	}
}

func TestLoadChildren_Synchronous(t *testing.T) {
	tr := newTestTree(t, Options{
		Items: []model.Item{{"id": "d", "folder": true}},
		LoadChildren: func(p model.Params) ([]model.Item, error) {
			return []model.Item{{"id": p.ID + "/x"}}, nil
		},
	})
	if cmd := tr.OpenNode("d"); cmd != nil {
		t.Error("expected no command for synchronous loading")
	}
	if got := childIDs(mustNode(t, tr, "d")); got != "d/x" {
		t.Errorf("expected d/x, got %s", got)
	}
}

type recordingPersister struct{ ops []string }

func (p *recordingPersister) Create(_ context.Context, pr model.Params) error {
	p.ops = append(p.ops, "create "+pr.Label)
	return nil
}

func (p *recordingPersister) Modify(_ context.Context, pr model.Params) error {
	p.ops = append(p.ops, "modify "+pr.Label)
	return nil
}

func (p *recordingPersister) Remove(_ context.Context, pr model.Params) error {
	p.ops = append(p.ops, "remove "+pr.ID)
	return errors.New("read-only")
}

func TestPersistence(t *testing.T) {
	ps := &recordingPersister{}
	var reported []error
	tr := newTestTree(t, Options{
		Edit:      &EditOptions{},
		Persister: ps,
		Callbacks: Callbacks{OnError: func(err error) { reported = append(reported, err) }},
	})
	if err := tr.SetSelectNode("1"); err != nil {
		t.Fatal(err)
	}
	n, err := tr.CreateNode(model.Item{})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if n.ParentID != "1" || n.Label != DefaultNewLabel || n.Change != model.ChangeCreated || len(n.ID) != 36 {
		t.Errorf("unexpected created node %+v", n)
	}

	if err := tr.BeginEdit("2"); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if changed, err := tr.CommitEdit("Bee"); err != nil || !changed {
		t.Fatalf("expected changed commit, got %v %v", changed, err)
	}
	if c := mustNode(t, tr, "2").Change; c != model.ChangeUpdated {
		t.Errorf("expected U tag, got %q", c)
	}
	tr.RemoveNodes("3")

	for _, msg := range drain(tr.Pending()) {
		tr.Update(msg)
	}
	if fmt.Sprint(ps.ops) != "[create New Node modify Bee remove 3]" {
		t.Errorf("unexpected persister calls %v", ps.ops)
	}
	var perr *PersistError
	if len(reported) != 1 || !errors.As(reported[0], &perr) || perr.Op != OpRemove {
		t.Errorf("expected one remove PersistError, got %v", reported)
	}
}

func TestEdit_VetoAndCancel(t *testing.T) {
	tr := newTestTree(t, Options{Edit: &EditOptions{
		Before: func(n *model.Node) bool { return n.ID != "3" },
	}})
	if err := tr.BeginEdit("3"); !errors.Is(err, keynav.ErrEditVetoed) {
		t.Errorf("expected veto, got %v", err)
	}
	if err := tr.BeginEdit("2"); err != nil {
		t.Fatal(err)
	}
	if err := tr.BeginEdit("1"); !errors.Is(err, keynav.ErrEditBusy) {
		t.Errorf("expected busy, got %v", err)
	}
	tr.HandleKey(keynav.KeyEscape)
	two := mustNode(t, tr, "2")
	if tr.Editing() != nil || two.Editing || two.Change != model.ChangeNone {
		t.Error("expected cancel to leave label and tag alone")
	}

	plain := newTestTree(t, Options{})
	if err := plain.BeginEdit("2"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestHandleKey_Navigation(t *testing.T) {
	var focusLog []string
	tr := newTestTree(t, Options{Callbacks: Callbacks{
		FocusChanged: func(e Event) { focusLog = append(focusLog, e.Node.ID) },
	}})

	tr.HandleKey(keynav.KeyDown) // first key focuses the first row
	tr.HandleKey(keynav.KeyRight)
	tr.HandleKey(keynav.KeyRight)
	tr.HandleKey(keynav.KeyDown)
	tr.HandleKey(keynav.KeyEnter)
	if fmt.Sprint(focusLog) != "[1 2 3]" {
		t.Errorf("expected focus path [1 2 3], got %v", focusLog)
	}
	if sel := tr.GetSelectNode(); sel == nil || sel.ID != "3" {
		t.Errorf("expected 3 selected, got %v", sel)
	}

	tr.HandleKey(keynav.KeyDelete)
	if _, ok := tr.GetNode("3"); ok {
		t.Error("expected delete to remove the focused leaf")
	}
	if f := tr.Focused(); f == nil || f.ID != "1" {
		t.Errorf("expected focus to fall back to the parent, got %v", f)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestPointerDrag_MoveBefore(t *testing.T) {
	tr := newTestTree(t, Options{DnD: &DnDOptions{}, OpenDepth: -1})
	if h := tr.Renderer().RowHeight(); h != DefaultDnDRowHeight {
		t.Fatalf("expected row height %d with drag enabled, got %d", DefaultDnDRowHeight, h)
	}
	// rows: 1 at lines 0-2, 2 at 3-5, 3 at 6-8
	tr.PointerDown(10, 7, nil)
	tr.PointerMove(10, 3)
	if !tr.Drag().Indicator.Visible {
		t.Fatal("expected drop indicator while hovering a legal zone")
	}
	res, err := tr.PointerUp()
	if err != nil || !res.Moved {
		t.Fatalf("expected move, got %+v %v", res, err)
	}
	if got := childIDs(mustNode(t, tr, "1")); got != "3,2" {
		t.Errorf("expected 3,2, got %s", got)
	}
}

func TestPointerDrag_EscapeCancels(t *testing.T) {
	tr := newTestTree(t, Options{DnD: &DnDOptions{}, OpenDepth: -1})
	tr.PointerDown(10, 7, nil)
	tr.PointerMove(10, 3)
	tr.HandleKey(keynav.KeyEscape)
	if tr.Drag().Active() {
		t.Error("expected escape to end the drag")
	}
	if res, _ := tr.PointerUp(); res.Moved {
		t.Error("expected no move after cancel")
	}
	if got := childIDs(mustNode(t, tr, "1")); got != "2,3" {
		t.Errorf("expected tree unchanged, got %s", got)
	}
}

func TestPointer_ExpanderAndCheckbox(t *testing.T) {
	tr := newTestTree(t, Options{Checkbox: &CheckboxOptions{}})
	one := mustNode(t, tr, "1")
	tr.PointerDown(0, 0, nil)
	if !one.Open {
		t.Error("expected expander click to open")
	}
	tr.PointerDown(3, 0, nil)
	if one.Check != model.Checked || mustNode(t, tr, "2").Check != model.Checked {
		t.Error("expected checkbox click to check the subtree")
	}
}

func TestMoveRejectsDescendant(t *testing.T) {
	tr := newTestTree(t, Options{})
	err := tr.Move("1", "inside", "2")
	if !errors.Is(err, model.ErrSelfAncestor) {
		t.Errorf("expected ErrSelfAncestor, got %v", err)
	}
	if err := tr.Move("2", "sideways", "3"); !errors.Is(err, model.ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
	if got := childIDs(mustNode(t, tr, "1")); got != "2,3" || mustNode(t, tr, "1").Depth != 1 {
		t.Error("expected tree unchanged")
	}
}

func TestOpenAllCloseAllAndCount(t *testing.T) {
	tr := newTestTree(t, Options{})
	tr.OpenAll()
	if len(tr.Renderer().Rows()) != 3 {
		t.Errorf("expected 3 visible rows, got %d", len(tr.Renderer().Rows()))
	}
	if err := tr.Focus("3"); err != nil {
		t.Fatal(err)
	}
	tr.CloseAll()
	if f := tr.Focused(); f == nil || f.ID != "1" {
		t.Errorf("expected focus lifted to 1, got %v", f)
	}
	if tr.CountNodes("1") != 2 || tr.CountNodes() != 3 || tr.CountNodes("nope") != 0 {
		t.Error("unexpected counts")
	}
}

func TestDestroy(t *testing.T) {
	tr := newTestTree(t, Options{})
	tr.Destroy()
	if tr.CountNodes() != 0 || len(tr.Lines()) != 0 {
		t.Error("expected empty tree after Destroy")
	}
	if err := tr.AddNodes(scenarioItems()); err != nil {
		t.Errorf("expected handle usable after Destroy: %v", err)
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{DnD: &DnDOptions{}}.Normalize()
	if o.ItemKey != DefaultItemKey() {
		t.Errorf("expected default item keys, got %+v", o.ItemKey)
	}
	if o.Style.PerLevel != DefaultPerLevel || o.Style.RowHeight != DefaultDnDRowHeight {
		t.Errorf("unexpected style %+v", o.Style)
	}
	if o.RootNode.Label != DefaultRootLabel || o.OpenDepth != DefaultOpenDepth || o.DnD.Threshold != 1 {
		t.Errorf("unexpected defaults %+v", o)
	}
	custom := Options{ItemKey: ItemKey{Label: "name"}, Style: Style{RowHeight: 2}, DnD: &DnDOptions{}}.Normalize()
	if custom.ItemKey.Label != "name" || custom.ItemKey.ID != "id" || custom.Style.RowHeight != 2 {
		t.Errorf("expected explicit fields kept, got %+v", custom)
	}
	if err := (Options{ItemKey: ItemKey{ID: "k", ParentID: "k"}}).Validate(); err == nil {
		t.Error("expected colliding item keys rejected")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(" Straße \tB"); got != "strasseb" {
		t.Errorf("expected folded, stripped text, got %q", got)
	}
}
