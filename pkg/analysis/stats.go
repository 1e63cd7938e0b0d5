// Package analysis summarizes the shape of a tree: how deep it goes, how
// wide containers fan out and how much of it is checked.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// StatsConfig caps the ranked lists in Stats.
type StatsConfig struct {
	WidestLimit  int `json:"widest_limit"`  // containers listed in Widest (default 5)
	DeepestLimit int `json:"deepest_limit"` // leaves listed in Deepest (default 5)
}

// DefaultStatsConfig returns the default caps.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{WidestLimit: 5, DeepestLimit: 5}
}

// Stats describes one tree. The root is not counted.
type Stats struct {
	Nodes      int `json:"nodes"`
	Containers int `json:"containers"`
	Leaves     int `json:"leaves"`
	// Unloaded counts empty containers of a lazily loaded tree whose
	// children were never fetched.
	Unloaded int   `json:"unloaded"`
	MaxDepth int   `json:"max_depth"`
	PerDepth []int `json:"per_depth"` // PerDepth[d-1] is the node count at depth d

	Fanout Fanout `json:"fanout"`

	Checked       int `json:"checked,omitempty"`
	Indeterminate int `json:"indeterminate,omitempty"`

	Widest  []Ranked `json:"widest,omitempty"`
	Deepest []Ranked `json:"deepest,omitempty"`

	Config StatsConfig `json:"config"`
}

// Fanout summarizes the child counts of loaded containers.
type Fanout struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Max    int     `json:"max"`
}

// Ranked is one entry of a capped ranking.
type Ranked struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Compute walks every loaded node of t.
func Compute(t *tree.Tree, cfg StatsConfig) Stats {
	if cfg.WidestLimit <= 0 {
		cfg.WidestLimit = DefaultStatsConfig().WidestLimit
	}
	if cfg.DeepestLimit <= 0 {
		cfg.DeepestLimit = DefaultStatsConfig().DeepestLimit
	}
	s := Stats{Config: cfg}
	opts := t.Options()
	lazy := opts.Fetcher != nil || opts.LoadChildren != nil

	var fanout []float64
	var widest, deepest []Ranked
	var walk func(nodes []*model.Node)
	walk = func(nodes []*model.Node) {
		for _, n := range nodes {
			s.Nodes++
			if n.Depth > s.MaxDepth {
				s.MaxDepth = n.Depth
			}
			for len(s.PerDepth) < n.Depth {
				s.PerDepth = append(s.PerDepth, 0)
			}
			if n.Depth > 0 {
				s.PerDepth[n.Depth-1]++
			}
			switch n.Check {
			case model.Checked:
				s.Checked++
			case model.Indeterminate:
				s.Indeterminate++
			}

			if !n.IsContainer() {
				s.Leaves++
				deepest = append(deepest, Ranked{ID: n.ID, Label: n.Label, Value: n.Depth})
				continue
			}
			s.Containers++
			if lazy && !n.Loaded && len(n.Children) == 0 {
				s.Unloaded++
				continue
			}
			fanout = append(fanout, float64(len(n.Children)))
			widest = append(widest, Ranked{ID: n.ID, Label: n.Label, Value: len(n.Children)})
			walk(n.Children)
		}
	}
	walk(t.Root().Children)

	if len(fanout) > 0 {
		sorted := append([]float64(nil), fanout...)
		sort.Float64s(sorted)
		s.Fanout = Fanout{
			Mean:   stat.Mean(fanout, nil),
			StdDev: stat.StdDev(fanout, nil),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Max:    int(sorted[len(sorted)-1]),
		}
		if len(fanout) == 1 {
			s.Fanout.StdDev = 0
		}
	}
	s.Widest = top(widest, cfg.WidestLimit)
	s.Deepest = top(deepest, cfg.DeepestLimit)
	return s
}

// top orders by value descending, keeping tree order among equals.
func top(r []Ranked, limit int) []Ranked {
	sort.SliceStable(r, func(i, j int) bool { return r[i].Value > r[j].Value })
	if len(r) > limit {
		r = r[:limit]
	}
	return r
}
