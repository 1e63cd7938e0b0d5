package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ProjectDir is the per-directory folder tv looks for, holding an items file.
const ProjectDir = ".treeview"

// itemFileNames are tried in order inside ProjectDir.
var itemFileNames = []string{"items.json", "items.jsonl", "items.yaml", "items.yml"}

// DiscoverItemFiles scans the configured directories for ProjectDir folders
// and returns the items file of each, in scan order without duplicates.
func DiscoverItemFiles(cfg Config) []string {
	seen := make(map[string]bool)
	var result []string

	maxDepth := cfg.Discovery.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	for _, scanPath := range cfg.Discovery.ScanPaths {
		for _, dir := range scanForProjects(scanPath, maxDepth) {
			f, ok := itemsFileIn(dir)
			if ok && !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
	}
	return result
}

// scanForProjects walks a directory tree up to maxDepth levels deep,
// looking for directories that contain a ProjectDir subdirectory.
func scanForProjects(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}

		if info, err := os.Stat(filepath.Join(path, ProjectDir)); err == nil && info.IsDir() {
			results = append(results, path)
			return filepath.SkipDir
		}
		return nil
	})

	return results
}

// FindItemsFile walks up from dir looking for a ProjectDir with an items
// file, stopping at the home directory.
func FindItemsFile(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		if f, ok := itemsFileIn(dir); ok {
			return f, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// DetectItemsFile is FindItemsFile from the working directory.
func DetectItemsFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return FindItemsFile(dir)
}

func itemsFileIn(dir string) (string, bool) {
	for _, name := range itemFileNames {
		f := filepath.Join(dir, ProjectDir, name)
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			return f, true
		}
	}
	return "", false
}
