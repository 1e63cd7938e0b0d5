package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/treeview/pkg/agents"
	"github.com/vanderheijden86/treeview/pkg/config"
	"github.com/vanderheijden86/treeview/pkg/loader"
)

// starterItems is written to a new project's items file.
const starterItems = `[
  {"id": "1", "text": "Inbox", "folder": true},
  {"id": "2", "pid": "1", "text": "Rename me with F2"},
  {"id": "3", "pid": "1", "text": "Drag me above Rename me"},
  {"id": "4", "text": "Done", "folder": true}
]
`

func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

func newInitCmd(a *app) *cobra.Command {
	var yes, withAgents bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a .treeview folder and save tree settings",
		Long: `Create dir/.treeview/items.json (when missing), keep the local node
database out of git, and write the settings chosen in a short form to the
config file. --yes keeps the current settings without asking; --agents
adds a tv section to the project's AGENTS.md or CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			cfg := a.cfg
			if !yes {
				if err := askSettings(&cfg, dir); err != nil {
					return err
				}
			}

			created, err := writeStarter(dir)
			if err != nil {
				return err
			}
			if err := loader.EnsureIgnored(dir); err != nil {
				return fmt.Errorf("updating .gitignore: %w", err)
			}

			agentFile, agentWritten := "", false
			if withAgents {
				if agentFile, agentWritten, err = agents.Ensure(dir); err != nil {
					return fmt.Errorf("updating agent instructions: %w", err)
				}
			}

			path := a.cfgFile
			if path == "" {
				path = config.ConfigPath()
				err = config.Save(cfg)
			} else {
				err = config.SaveTo(cfg, path)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created != "" {
				fmt.Fprintf(out, "Created %s\n", created)
			}
			if agentWritten {
				fmt.Fprintf(out, "Updated %s\n", agentFile)
			}
			fmt.Fprintf(out, "Saved settings to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the form and keep the current settings")
	cmd.Flags().BoolVar(&withAgents, "agents", false, "add tv usage notes to AGENTS.md")
	return cmd
}

func askSettings(cfg *config.Config, dir string) error {
	scan := strings.Join(cfg.Discovery.ScanPaths, ",")
	if scan == "" {
		scan = filepath.Dir(dir)
	}

	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Show checkboxes?").
				Description("Tri-state checkboxes that follow their children").
				Value(&cfg.Tree.Checkbox),
			huh.NewConfirm().
				Title("Allow drag and drop?").
				Value(&cfg.Tree.DragDrop),
			huh.NewConfirm().
				Title("Allow renaming?").
				Description("F2, e or a double click edits a label").
				Value(&cfg.Tree.Edit),
			huh.NewConfirm().
				Title("Show the root row?").
				Value(&cfg.Tree.ShowRoot).
				Affirmative("Show").
				Negative("Hide"),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Directories to scan for .treeview folders").
				Description("Comma separated; used when tv runs without a file").
				Value(&scan),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Discovery.ScanPaths = nil
	for _, p := range strings.Split(scan, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Discovery.ScanPaths = append(cfg.Discovery.ScanPaths, p)
		}
	}
	return nil
}

// writeStarter creates dir/.treeview/items.json unless the folder already
// holds an items file. It returns the created path, or "".
func writeStarter(dir string) (string, error) {
	pd := filepath.Join(dir, config.ProjectDir)
	if f, ok := config.FindItemsFile(dir); ok && filepath.Dir(f) == pd {
		return "", nil
	}
	if err := os.MkdirAll(pd, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(pd, "items.json")
	if err := os.WriteFile(path, []byte(starterItems), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
