package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vanderheijden86/treeview/pkg/config"
	"github.com/vanderheijden86/treeview/pkg/datasource"
	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/loader"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// errNoItems is returned when no items file was given or found.
var errNoItems = errors.New("no items file: pass a path, set discovery.scan_paths, or run tv init")

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// app is the state shared by every command: the merged configuration.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
}

// overrides maps viper keys to the config fields they replace.
var overrides = []struct {
	key   string
	flag  string
	apply func(c *config.Config, v *viper.Viper, key string)
}{
	{"tree.show_root", "show-root", func(c *config.Config, v *viper.Viper, k string) { c.Tree.ShowRoot = v.GetBool(k) }},
	{"tree.checkbox", "checkbox", func(c *config.Config, v *viper.Viper, k string) { c.Tree.Checkbox = v.GetBool(k) }},
	{"tree.drag_drop", "drag", func(c *config.Config, v *viper.Viper, k string) { c.Tree.DragDrop = v.GetBool(k) }},
	{"tree.edit", "edit", func(c *config.Config, v *viper.Viper, k string) { c.Tree.Edit = v.GetBool(k) }},
	{"tree.no_icons", "no-icons", func(c *config.Config, v *viper.Viper, k string) { c.Tree.NoIcons = v.GetBool(k) }},
	{"tree.open_depth", "open-depth", func(c *config.Config, v *viper.Viper, k string) { c.Tree.OpenDepth = v.GetInt(k) }},
	{"tree.root_label", "root-label", func(c *config.Config, v *viper.Viper, k string) { c.Tree.RootLabel = v.GetString(k) }},
	{"item_key.id", "id-key", func(c *config.Config, v *viper.Viper, k string) { c.ItemKey.ID = v.GetString(k) }},
	{"item_key.parent_id", "parent-key", func(c *config.Config, v *viper.Viper, k string) { c.ItemKey.ParentID = v.GetString(k) }},
	{"item_key.label", "label-key", func(c *config.Config, v *viper.Viper, k string) { c.ItemKey.Label = v.GetString(k) }},
	{"source.database", "db", func(c *config.Config, v *viper.Viper, k string) { c.Source.Database = v.GetString(k) }},
	{"source.persist_command", "persist-cmd", func(c *config.Config, v *viper.Viper, k string) { c.Source.PersistCommand = v.GetString(k) }},
	{"source.watch", "watch", func(c *config.Config, v *viper.Viper, k string) { c.Source.Watch = v.GetBool(k) }},
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var debugFile string

	root := &cobra.Command{
		Use:   "tv [items-file]",
		Short: "Browse and edit hierarchical items in the terminal",
		Long: `tv shows items from a JSON, JSONL or YAML file as a collapsible tree.

Items are objects with an id, a parent id and a label (field names are
configurable). Nested "children" lists are accepted too.

Examples:
  tv items.json                 # open a file
  tv                            # use .treeview/items.* from this directory up
  tv --db ~/nodes.db            # browse a SQLite store filled by tv seed
  TV_TREE_SHOW_ROOT=1 tv a.yaml # settings can come from TV_* variables`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debugFile != "" {
				if err := debug.SetFile(debugFile); err != nil {
					return fmt.Errorf("debug log: %w", err)
				}
			}
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context(), args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/treeview/config.yaml)")
	pf.StringVar(&debugFile, "debug-file", "", "append debug logs to this file")
	pf.Bool("show-root", false, "show the root row")
	pf.Bool("checkbox", true, "show tri-state checkboxes")
	pf.Bool("drag", true, "enable drag reordering")
	pf.Bool("edit", true, "enable inline renaming")
	pf.Bool("no-icons", false, "hide icons")
	pf.Int("open-depth", tree.DefaultOpenDepth, "open containers above this depth (-1 opens all)")
	pf.String("root-label", "", "label of the root row")
	pf.String("id-key", "", "item field holding the id")
	pf.String("parent-key", "", "item field holding the parent id")
	pf.String("label-key", "", "item field holding the label")
	pf.String("db", "", "SQLite node store used instead of an items file")
	pf.String("persist-cmd", "", "command run for every create, modify and remove")
	pf.Bool("watch", false, "reload the items file when it changes")
	a.bind(pf)

	root.AddCommand(
		newExportCmd(a),
		newSearchCmd(a),
		newValidateCmd(a),
		newSeedCmd(a),
		newStatsCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) bind(fs *pflag.FlagSet) {
	a.v.SetEnvPrefix("TV")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()
	for _, o := range overrides {
		_ = a.v.BindPFlag(o.key, fs.Lookup(o.flag))
	}
}

// load reads the config file and applies flag and TV_* overrides.
func (a *app) load() error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFrom(a.cfgFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	for _, o := range overrides {
		if a.v.IsSet(o.key) {
			o.apply(&a.cfg, a.v, o.key)
		}
	}
	debug.WithFields(map[string]any{
		"config":   a.cfgFile,
		"database": a.cfg.Source.Database,
	}).Debug("tv: configuration loaded")
	return nil
}

// itemsFiles returns the files named on the command line, or the items file
// found from the working directory.
func (a *app) itemsFiles(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if f, ok := config.DetectItemsFile(); ok {
		return []string{f}, nil
	}
	return nil, errNoItems
}

// loadItems reads items from the given files, or from the configured
// database when no file is named. Parent cycles are rejected.
func (a *app) loadItems(ctx context.Context, args []string) ([]model.Item, error) {
	if len(args) == 0 && a.cfg.Source.Database != "" {
		store, err := datasource.Open(a.cfg.Source.Database, a.cfg.TreeItemKey())
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Dump(ctx)
	}

	paths, err := a.itemsFiles(args)
	if err != nil {
		return nil, err
	}
	items, err := loader.LoadFiles(ctx, paths...)
	if err != nil {
		return nil, err
	}
	if err := loader.CheckCycles(items, a.cfg.TreeItemKey()); err != nil {
		return nil, err
	}
	return loader.Flatten(items, a.cfg.TreeItemKey()), nil
}

// staticTree builds a fully loaded tree for the non-interactive commands.
func (a *app) staticTree(ctx context.Context, args []string) (*tree.Tree, error) {
	items, err := a.loadItems(ctx, args)
	if err != nil {
		return nil, err
	}
	opts := a.cfg.ToOptions()
	opts.Items = items
	return tree.New(opts)
}
