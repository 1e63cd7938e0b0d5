// Package config handles loading and saving tv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/treeview/config.yaml
//   - State:   ~/.local/state/treeview/ (SQLite data sources by default)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/treeview/pkg/tree"
)

const appName = "treeview"

// TreeConfig holds widget settings.
type TreeConfig struct {
	ShowRoot  bool   `yaml:"show_root,omitempty"`
	NoIcons   bool   `yaml:"no_icons,omitempty"`
	Checkbox  bool   `yaml:"checkbox"`
	DragDrop  bool   `yaml:"drag_drop"`
	Edit      bool   `yaml:"edit"`
	OpenDepth int    `yaml:"open_depth,omitempty"` // -1 opens everything
	PerLevel  int    `yaml:"per_level,omitempty"`
	RowHeight int    `yaml:"row_height,omitempty"` // 0 picks 1, or 3 with drag_drop
	RootID    string `yaml:"root_id,omitempty"`
	RootLabel string `yaml:"root_label,omitempty"`
}

// ItemKeyConfig renames the item fields.
type ItemKeyConfig struct {
	ID       string `yaml:"id,omitempty"`
	ParentID string `yaml:"parent_id,omitempty"`
	Label    string `yaml:"label,omitempty"`
	Icon     string `yaml:"icon,omitempty"`
	Children string `yaml:"children,omitempty"`
	Folder   string `yaml:"folder,omitempty"`
	Checked  string `yaml:"checked,omitempty"`
}

// SourceConfig selects where nodes come from and where changes go.
type SourceConfig struct {
	Database       string `yaml:"database,omitempty"`        // SQLite file used for lazy loading
	PersistCommand string `yaml:"persist_command,omitempty"` // run once per create/modify/remove
	Watch          bool   `yaml:"watch,omitempty"`           // reload the items file when it changes
}

// DiscoveryConfig controls where tv looks for item files when none is given.
type DiscoveryConfig struct {
	ScanPaths []string `yaml:"scan_paths,omitempty"`
	MaxDepth  int      `yaml:"max_depth,omitempty"` // default 3
}

// Config is the top-level configuration for tv.
type Config struct {
	Tree      TreeConfig      `yaml:"tree"`
	ItemKey   ItemKeyConfig   `yaml:"item_key,omitempty"`
	Source    SourceConfig    `yaml:"source,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	k := tree.DefaultItemKey()
	return Config{
		Tree: TreeConfig{
			Checkbox:  true,
			DragDrop:  true,
			Edit:      true,
			OpenDepth: tree.DefaultOpenDepth,
			PerLevel:  tree.DefaultPerLevel,
			RootLabel: tree.DefaultRootLabel,
		},
		ItemKey: ItemKeyConfig{
			ID:       k.ID,
			ParentID: k.ParentID,
			Label:    k.Label,
			Icon:     k.Icon,
			Children: k.Children,
			Folder:   k.Folder,
			Checked:  k.Checked,
		},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
		},
	}
}

// ConfigDir returns the XDG config directory for tv.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for tv.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Source.Database = expandHome(cfg.Source.Database)
	for i := range cfg.Discovery.ScanPaths {
		cfg.Discovery.ScanPaths[i] = expandHome(cfg.Discovery.ScanPaths[i])
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// TreeItemKey converts the configured field names.
func (c Config) TreeItemKey() tree.ItemKey {
	k := c.ItemKey
	return tree.ItemKey{
		ID:       k.ID,
		ParentID: k.ParentID,
		Label:    k.Label,
		Icon:     k.Icon,
		Children: k.Children,
		Folder:   k.Folder,
		Checked:  k.Checked,
	}
}

// ToOptions builds tree options from the config. Data sources, persistence
// and callbacks are left for the caller to attach.
func (c Config) ToOptions() tree.Options {
	t := c.Tree
	opts := tree.Options{
		ItemKey:   c.TreeItemKey(),
		Style:     tree.Style{PerLevel: t.PerLevel, RowHeight: t.RowHeight},
		RootNode:  tree.RootNode{ID: t.RootID, Label: t.RootLabel},
		ShowRoot:  t.ShowRoot,
		NoIcons:   t.NoIcons,
		OpenDepth: t.OpenDepth,
	}
	if t.Checkbox {
		opts.Checkbox = &tree.CheckboxOptions{}
	}
	if t.DragDrop {
		opts.DnD = &tree.DnDOptions{}
	}
	if t.Edit {
		opts.Edit = &tree.EditOptions{}
	}
	return opts
}

// DatabasePath returns the configured SQLite path, defaulting to the state directory.
func (c Config) DatabasePath() string {
	if c.Source.Database != "" {
		return c.Source.Database
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "nodes.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
