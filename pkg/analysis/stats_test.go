package analysis

import (
	"math"
	"testing"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

func sampleTree(t *testing.T, checkbox bool) *tree.Tree {
	t.Helper()
	opts := tree.Options{
		OpenDepth: -1,
		Items: []model.Item{
			{"id": "1", "text": "A", "folder": true},
			{"id": "2", "pid": "1", "text": "B"},
			{"id": "3", "pid": "1", "text": "C"},
			{"id": "4", "pid": "3", "text": "D"},
			{"id": "5", "text": "E"},
		},
	}
	if checkbox {
		opts.Checkbox = &tree.CheckboxOptions{}
	}
	tr, err := tree.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestCompute_Shape(t *testing.T) {
	s := Compute(sampleTree(t, false), StatsConfig{})

	if s.Nodes != 5 || s.Containers != 2 || s.Leaves != 3 {
		t.Errorf("expected 5 nodes, 2 containers, 3 leaves, got %d/%d/%d", s.Nodes, s.Containers, s.Leaves)
	}
	if s.MaxDepth != 3 {
		t.Errorf("expected max depth 3, got %d", s.MaxDepth)
	}
	want := []int{2, 2, 1}
	if len(s.PerDepth) != len(want) {
		t.Fatalf("expected per-depth %v, got %v", want, s.PerDepth)
	}
	for i := range want {
		if s.PerDepth[i] != want[i] {
			t.Errorf("expected per-depth %v, got %v", want, s.PerDepth)
			break
		}
	}
	if s.Unloaded != 0 {
		t.Errorf("expected no unloaded containers in a static tree, got %d", s.Unloaded)
	}
	if s.Config.WidestLimit != 5 {
		t.Errorf("expected default caps, got %+v", s.Config)
	}
}

func TestCompute_Fanout(t *testing.T) {
	s := Compute(sampleTree(t, false), DefaultStatsConfig())

	if s.Fanout.Mean != 1.5 {
		t.Errorf("expected mean fan-out 1.5, got %v", s.Fanout.Mean)
	}
	if math.Abs(s.Fanout.StdDev-math.Sqrt(0.5)) > 1e-9 {
		t.Errorf("expected std dev %v, got %v", math.Sqrt(0.5), s.Fanout.StdDev)
	}
	if s.Fanout.Max != 2 {
		t.Errorf("expected max fan-out 2, got %d", s.Fanout.Max)
	}
}

func TestCompute_Rankings(t *testing.T) {
	s := Compute(sampleTree(t, false), StatsConfig{WidestLimit: 1, DeepestLimit: 2})

	if len(s.Widest) != 1 || s.Widest[0].ID != "1" || s.Widest[0].Value != 2 {
		t.Errorf("expected A as the widest container, got %+v", s.Widest)
	}
	if len(s.Deepest) != 2 || s.Deepest[0].ID != "4" || s.Deepest[0].Value != 3 {
		t.Errorf("expected D first among the deepest leaves, got %+v", s.Deepest)
	}
	// B at depth 2 outranks E at depth 1.
	if s.Deepest[1].ID != "2" {
		t.Errorf("expected B second, got %+v", s.Deepest[1])
	}
}

func TestCompute_Checks(t *testing.T) {
	tr := sampleTree(t, true)
	if _, err := tr.ToggleCheck("2"); err != nil {
		t.Fatalf("ToggleCheck: %v", err)
	}
	s := Compute(tr, DefaultStatsConfig())
	if s.Checked != 1 || s.Indeterminate != 1 {
		t.Errorf("expected 1 checked and 1 indeterminate, got %d/%d", s.Checked, s.Indeterminate)
	}
}

func TestCompute_LazyTreeCountsUnloaded(t *testing.T) {
	tr, err := tree.New(tree.Options{
		LoadChildren: func(p model.Params) ([]model.Item, error) {
			if p.ID == "" {
				return []model.Item{{"id": "d", "text": "dir", "folder": true}}, nil
			}
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := Compute(tr, DefaultStatsConfig())
	if s.Nodes != 1 || s.Unloaded != 1 {
		t.Errorf("expected one unloaded container, got nodes=%d unloaded=%d", s.Nodes, s.Unloaded)
	}
}
