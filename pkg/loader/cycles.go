package loader

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// CycleError lists the groups of ids whose parent references loop.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(c, " -> ")
	}
	return fmt.Sprintf("%d parent cycle(s): %s", len(e.Cycles), strings.Join(parts, "; "))
}

// Flatten lists nested items depth-first, filling in the parent field of
// nested children from their container.
func Flatten(items []model.Item, key tree.ItemKey) []model.Item {
	key = tree.Options{ItemKey: key}.Normalize().ItemKey
	var out []model.Item
	var walk func(list []model.Item, parent any, nested bool)
	walk = func(list []model.Item, parent any, nested bool) {
		for _, it := range list {
			flat := make(model.Item, len(it))
			for k, v := range it {
				if k != key.Children {
					flat[k] = v
				}
			}
			if nested {
				flat[key.ParentID] = parent
			}
			out = append(out, flat)
			walk(children(it[key.Children]), it[key.ID], true)
		}
	}
	walk(items, nil, false)
	return out
}

func children(raw any) []model.Item {
	switch v := raw.(type) {
	case []model.Item:
		return v
	case []any:
		out := make([]model.Item, 0, len(v))
		for _, e := range v {
			switch m := e.(type) {
			case model.Item:
				out = append(out, m)
			case map[string]any:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// CheckCycles builds the child -> parent graph of items and reports every
// strongly connected component, plus any item naming itself as parent.
func CheckCycles(items []model.Item, key tree.ItemKey) error {
	flat := Flatten(items, key)
	key = tree.Options{ItemKey: key}.Normalize().ItemKey

	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(flat))
	nodeToID := make(map[int64]string, len(flat))
	for _, it := range flat {
		id := model.NormalizeID(it[key.ID])
		if id == "" {
			continue
		}
		if _, ok := idToNode[id]; ok {
			continue
		}
		n := g.NewNode()
		g.AddNode(n)
		idToNode[id] = n.ID()
		nodeToID[n.ID()] = id
	}

	var cycles [][]string
	for _, it := range flat {
		id := model.NormalizeID(it[key.ID])
		pid := model.NormalizeID(it[key.ParentID])
		if id == "" || pid == "" {
			continue
		}
		if id == pid {
			cycles = append(cycles, []string{id, id})
			continue
		}
		u, ok := idToNode[id]
		v, exists := idToNode[pid]
		if ok && exists {
			g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, len(scc))
		for i, n := range scc {
			ids[i] = nodeToID[n.ID()]
		}
		sort.Strings(ids)
		cycles = append(cycles, ids)
	}
	if len(cycles) == 0 {
		return nil
	}
	return &CycleError{Cycles: cycles}
}
