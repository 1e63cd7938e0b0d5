package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/treeview/pkg/config"
	"github.com/vanderheijden86/treeview/pkg/datasource"
	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/hooks"
	"github.com/vanderheijden86/treeview/pkg/loader"
	"github.com/vanderheijden86/treeview/pkg/render"
	"github.com/vanderheijden86/treeview/pkg/ui"
)

// errNotTerminal is returned when the TUI is started without a terminal.
var errNotTerminal = errors.New("tv needs a terminal; use tv export or tv search for scripted use")

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (a *app) runTUI(ctx context.Context, args []string) error {
	if !isTerminal() {
		return errNotTerminal
	}

	opts := a.cfg.ToOptions()
	var persisters hooks.Chain
	var worker *ui.ReloadWorker
	title := "tv"

	if len(args) == 0 && a.cfg.Source.Database != "" {
		store, err := datasource.Open(a.cfg.Source.Database, a.cfg.TreeItemKey())
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Fetcher = store
		persisters = append(persisters, store)
		title = filepath.Base(store.Path())
	} else {
		path, err := a.pickItemsFile(args)
		if err != nil {
			return err
		}
		if path == "" {
			return nil
		}
		items, err := loader.LoadFile(path)
		if err != nil {
			return err
		}
		if err := loader.CheckCycles(items, a.cfg.TreeItemKey()); err != nil {
			return err
		}
		opts.Items = loader.Flatten(items, a.cfg.TreeItemKey())
		title = path

		if a.cfg.Source.Watch {
			worker, err = ui.NewReloadWorker(ui.WorkerConfig{Path: path, ItemKey: a.cfg.TreeItemKey()})
			if err != nil {
				return err
			}
			if err := worker.Start(); err != nil {
				debug.Warn("tv: watching %s: %v", path, err)
			}
			defer worker.Stop()
		}
	}

	if cmdline := a.cfg.Source.PersistCommand; cmdline != "" {
		cp := hooks.NewCommandPersister(cmdline)
		if !cp.IsAvailable() {
			return fmt.Errorf("persist command %q: %w", cmdline, hooks.ErrUnavailable)
		}
		persisters = append(persisters, cp)
	}
	if len(persisters) > 0 {
		opts.Persister = persisters
	}

	m, err := ui.NewModel(opts, ui.Config{Title: title, Worker: worker})
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// pickItemsFile resolves the file to open. Without an argument or a local
// .treeview folder, discovered files are offered in a picker; "" means the
// user quit it.
func (a *app) pickItemsFile(args []string) (string, error) {
	if paths, err := a.itemsFiles(args); err == nil {
		return paths[0], nil
	}
	found := config.DiscoverItemFiles(a.cfg)
	switch len(found) {
	case 0:
		return "", errNoItems
	case 1:
		return found[0], nil
	}

	entries := make([]ui.FileEntry, len(found))
	for i, f := range found {
		n := -1
		if items, err := loader.LoadFile(f); err == nil {
			n = len(loader.Flatten(items, a.cfg.TreeItemKey()))
		}
		entries[i] = ui.NewFileEntry(f, n)
	}
	picker := ui.NewFilePicker(entries, render.DefaultTheme(lipgloss.DefaultRenderer()))
	if _, err := tea.NewProgram(picker, tea.WithAltScreen()).Run(); err != nil {
		return "", err
	}
	return picker.Chosen(), nil
}
