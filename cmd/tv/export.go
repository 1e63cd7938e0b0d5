package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/export"
	"github.com/vanderheijden86/treeview/pkg/loader"
	"github.com/vanderheijden86/treeview/pkg/tree"
	"github.com/vanderheijden86/treeview/pkg/watcher"
)

var exportFormats = []string{"md", "json", "jsonl", "html", "svg", "png"}

type exportFlags struct {
	format  string
	output  string
	title   string
	all     bool
	visible bool
	serve   string
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export [items-file...]",
		Short: "Write the tree as Markdown, JSON, HTML or an image",
		Long: `Export the tree built from one or more items files (or the configured
database) to another format. Several files are loaded concurrently and
concatenated in argument order.

Examples:
  tv export items.json                        # Markdown outline on stdout
  tv export items.json -f png -o tree.png --all
  tv export a.yaml b.yaml -f jsonl > merged.jsonl
  tv export items.json -f html -o site/       # site/<title>_<date>_<time>_<commit>.html
  tv export items.json -f html --serve :8080  # live preview, reloads on change`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.format == "" {
				f.format = formatFromPath(f.output)
			}
			if !validFormat(f.format) {
				return fmt.Errorf("unknown format %q: want one of %s", f.format, strings.Join(exportFormats, ", "))
			}
			if f.serve != "" {
				return a.serveHTML(cmd.Context(), args, f)
			}

			t, err := a.staticTree(cmd.Context(), args)
			if err != nil {
				return err
			}
			if f.all {
				t.OpenAll()
			}
			return writeExport(cmd.OutOrStdout(), t, f)
		},
	}

	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: "+strings.Join(exportFormats, ", ")+" (default from -o, else md)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (stdout when empty; required for png); html into a directory gets a timestamped name")
	cmd.Flags().StringVar(&f.title, "title", "", "document title")
	cmd.Flags().BoolVar(&f.all, "all", false, "open every container before exporting")
	cmd.Flags().BoolVar(&f.visible, "visible", false, "markdown: only rows visible with the current open state")
	cmd.Flags().StringVar(&f.serve, "serve", "", "serve the HTML export on this address and reload it when the file changes")
	return cmd
}

func formatFromPath(path string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case "markdown":
		return "md"
	case "":
		return "md"
	default:
		return ext
	}
}

func validFormat(f string) bool {
	for _, v := range exportFormats {
		if v == f {
			return true
		}
	}
	return false
}

func writeExport(stdout io.Writer, t *tree.Tree, f exportFlags) error {
	if f.format == "html" && isDir(f.output) {
		project := f.title
		if project == "" {
			project = t.Root().Label
		}
		path, err := export.SaveHTML(t, export.HTMLOptions{
			Title: f.title,
			Path:  filepath.Join(f.output, export.HTMLFilename(project)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	}

	mdOpts := export.MarkdownOptions{Title: f.title, VisibleOnly: f.visible}
	switch {
	case f.output != "" && f.format == "md":
		return export.SaveMarkdown(t, f.output, mdOpts)
	case f.output != "" && f.format == "json":
		return export.SaveJSON(t, f.output)
	case f.format == "png":
		if f.output == "" {
			return errors.New("png export needs -o")
		}
		return export.SaveSnapshot(t, export.SnapshotOptions{Path: f.output, Format: "png", Title: f.title})
	}

	w := stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch f.format {
	case "md":
		_, err := io.WriteString(w, export.Markdown(t, mdOpts))
		return err
	case "json":
		return export.WriteJSON(w, t)
	case "jsonl":
		return loader.WriteJSONL(w, export.Items(t))
	case "html":
		page, err := export.HTML(t, f.title)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	case "svg":
		return export.Snapshot(w, t, export.SnapshotOptions{Title: f.title})
	}
	return fmt.Errorf("unknown format %q", f.format)
}

// serveHTML publishes the HTML export and republishes it whenever the
// items file changes. Connected browsers reload through server-sent events.
func (a *app) serveHTML(ctx context.Context, args []string, f exportFlags) error {
	paths, err := a.itemsFiles(args)
	if err != nil {
		return err
	}
	build := func() (string, error) {
		t, err := a.staticTree(ctx, paths)
		if err != nil {
			return "", err
		}
		if f.all {
			t.OpenAll()
		}
		return export.HTML(t, f.title)
	}

	page, err := build()
	if err != nil {
		return err
	}
	preview := export.NewPreview(page)
	defer preview.Stop()

	w, err := watcher.New(paths[0], watcher.WithOnChange(func() {
		page, err := build()
		if err != nil {
			debug.Warn("export: rebuilding preview: %v", err)
			return
		}
		preview.Publish(page)
		debug.Log("export: preview republished to %d clients", preview.ClientCount())
	}))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	srv := &http.Server{Addr: f.serve, Handler: preview.Handler(), ReadHeaderTimeout: 5 * time.Second}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	fmt.Fprintf(os.Stderr, "Serving %s on http://%s (Ctrl+C to stop)\n", paths[0], displayAddr(f.serve))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
