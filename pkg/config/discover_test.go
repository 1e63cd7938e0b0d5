package config

import (
	"os"
	"path/filepath"
	"testing"
)

func mkProject(t *testing.T, dir, file string) string {
	t.Helper()
	pd := filepath.Join(dir, ProjectDir)
	if err := os.MkdirAll(pd, 0o755); err != nil {
		t.Fatal(err)
	}
	if file == "" {
		return ""
	}
	f := filepath.Join(pd, file)
	if err := os.WriteFile(f, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestScanForProjects(t *testing.T) {
	root := t.TempDir()

	proj1 := filepath.Join(root, "project1")
	proj2 := filepath.Join(root, "subdir", "project2")
	mkProject(t, proj1, "items.json")
	mkProject(t, proj2, "items.yaml")
	if err := os.MkdirAll(filepath.Join(root, "plain"), 0o755); err != nil {
		t.Fatal(err)
	}

	results := scanForProjects(root, 3)
	if len(results) != 2 {
		t.Fatalf("expected 2 projects, got %d: %v", len(results), results)
	}
	found := map[string]bool{}
	for _, r := range results {
		found[r] = true
	}
	if !found[proj1] || !found[proj2] {
		t.Errorf("expected both projects, got %v", results)
	}
}

func TestScanForProjects_DepthLimit(t *testing.T) {
	root := t.TempDir()
	mkProject(t, filepath.Join(root, "a", "b", "c", "d", "deep"), "items.json")
	shallow := filepath.Join(root, "shallow")
	mkProject(t, shallow, "items.json")

	results := scanForProjects(root, 2)
	if len(results) != 1 || results[0] != shallow {
		t.Errorf("expected only the shallow project, got %v", results)
	}
}

func TestScanForProjects_SkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()
	mkProject(t, filepath.Join(root, ".hidden", "project"), "items.json")

	if results := scanForProjects(root, 3); len(results) != 0 {
		t.Errorf("expected hidden dirs skipped, got %v", results)
	}
}

func TestDiscoverItemFiles(t *testing.T) {
	root := t.TempDir()
	withFile := mkProject(t, filepath.Join(root, "a"), "items.jsonl")
	mkProject(t, filepath.Join(root, "b"), "")

	cfg := DefaultConfig()
	cfg.Discovery.ScanPaths = []string{root, root}
	files := DiscoverItemFiles(cfg)
	if len(files) != 1 || files[0] != withFile {
		t.Errorf("expected [%s], got %v", withFile, files)
	}
}

func TestFindItemsFile(t *testing.T) {
	root := t.TempDir()
	want := mkProject(t, root, "items.yml")
	nested := filepath.Join(root, "x", "y")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok := FindItemsFile(nested)
	if !ok || got != want {
		t.Errorf("expected %s, got %q (%v)", want, got, ok)
	}
}

func TestItemsFileIn_PrefersJSON(t *testing.T) {
	root := t.TempDir()
	mkProject(t, root, "items.yaml")
	want := mkProject(t, root, "items.json")
	if got, ok := itemsFileIn(root); !ok || got != want {
		t.Errorf("expected %s, got %q", want, got)
	}
}
