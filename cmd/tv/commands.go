package main

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/treeview/pkg/analysis"
	"github.com/vanderheijden86/treeview/pkg/datasource"
	"github.com/vanderheijden86/treeview/pkg/loader"
	"github.com/vanderheijden86/treeview/pkg/model"
)

// searchHit is one match as printed by tv search --json.
type searchHit struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Path  []string `json:"path"`
	Depth int      `json:"depth"`
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search <query> [items-file...]",
		Short: "List nodes whose label contains the query",
		Long: `Search labels with the same case- and accent-insensitive rule as the
interactive / prompt. Each match is printed with its ancestor path.

Examples:
  tv search readme items.json
  tv search "road map" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.staticTree(cmd.Context(), args[1:])
			if err != nil {
				return err
			}
			hits := t.Search(args[0])
			if limit > 0 && len(hits) > limit {
				hits = hits[:limit]
			}

			out := make([]searchHit, len(hits))
			for i, n := range hits {
				out[i] = searchHit{ID: n.ID, Label: n.Label, Path: ancestry(n, t.Root()), Depth: n.Depth}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			if len(out) == 0 {
				fmt.Fprintf(w, "No match for %q\n", args[0])
				return &exitError{code: 1, err: fmt.Errorf("no match for %q", args[0])}
			}
			for _, h := range out {
				fmt.Fprintf(w, "%s\t%s\n", h.ID, strings.Join(h.Path, " › "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print matches as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many matches")
	return cmd
}

// ancestry lists the labels from the top level down to n.
func ancestry(n, root *model.Node) []string {
	var parts []string
	for p := n; p != nil && p != root; p = p.Parent() {
		parts = append([]string{p.Label}, parts...)
	}
	return parts
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [items-file...]",
		Short: "Check items for parent cycles and broken structure",
		Long: `Load the items, report parent-id cycles, then build the tree and check
its invariants (parent links, depths, checkbox states). Exits 2 when a
cycle is found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.staticTree(cmd.Context(), args)
			var ce *loader.CycleError
			if errors.As(err, &ce) {
				for _, c := range ce.Cycles {
					fmt.Fprintf(cmd.ErrOrStderr(), "cycle: %s\n", strings.Join(c, " -> "))
				}
				return &exitError{code: 2, err: err}
			}
			if err != nil {
				return err
			}
			if err := t.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d nodes\n", t.CountNodes())
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "seed <items-file...>",
		Short: "Load items into the SQLite node store",
		Long: `Write items into the node store that tv --db browses lazily. Existing
rows with the same id are replaced; sibling order follows the files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.cfg.DatabasePath()
			}
			if dbPath == "" {
				return errors.New("no database path: pass --to or set source.database")
			}
			items, err := loader.LoadFiles(cmd.Context(), args...)
			if err != nil {
				return err
			}
			store, err := datasource.Open(dbPath, a.cfg.TreeItemKey())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Seed(cmd.Context(), items)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d nodes into %s (%d stored)\n", n, store.Path(), total)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "to", "", "database file (default is source.database or the state directory)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		cfg    = analysis.DefaultStatsConfig()
	)
	cmd := &cobra.Command{
		Use:   "stats [items-file...]",
		Short: "Summarize depth, fan-out and checkbox counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.staticTree(cmd.Context(), args)
			if err != nil {
				return err
			}
			s := analysis.Compute(t, cfg)
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			fmt.Fprintf(w, "Nodes:       %d (%d containers, %d leaves)\n", s.Nodes, s.Containers, s.Leaves)
			fmt.Fprintf(w, "Max depth:   %d\n", s.MaxDepth)
			for d, n := range s.PerDepth {
				fmt.Fprintf(w, "  depth %-3d %d\n", d+1, n)
			}
			fmt.Fprintf(w, "Fan-out:     mean %.2f, median %.0f, max %d\n", s.Fanout.Mean, s.Fanout.Median, s.Fanout.Max)
			if t.Options().Checkbox != nil {
				fmt.Fprintf(w, "Checked:     %d (%d partial)\n", s.Checked, s.Indeterminate)
			}
			if len(s.Widest) > 0 {
				fmt.Fprintln(w, "Widest:")
				for _, r := range s.Widest {
					fmt.Fprintf(w, "  %-4d %s\n", r.Value, r.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().IntVar(&cfg.WidestLimit, "top", cfg.WidestLimit, "containers listed as widest")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tv %s\n", version)
		},
	}
}
