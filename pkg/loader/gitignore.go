package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// IgnorePattern keeps the local node database of a project out of git
// while the items file beside it stays tracked.
const IgnorePattern = ".treeview/*.db"

const ignoreComment = "# treeview local node store"

// EnsureIgnored adds IgnorePattern to projectDir/.gitignore unless an
// existing line already covers it. An empty projectDir means the working
// directory. Calling it again is a no-op.
func EnsureIgnored(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	path := filepath.Join(projectDir, ".gitignore")
	covered, err := storeIgnored(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if covered {
		return nil
	}
	return appendIgnore(path, IgnorePattern)
}

// storeIgnored reports whether any active line of the ignore file covers
// the node database.
func storeIgnored(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversStore(line) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func coversStore(line string) bool {
	switch strings.TrimPrefix(line, "/") {
	case ".treeview", ".treeview/", ".treeview/*", ".treeview/**", ".treeview/**/*",
		".treeview/*.db", ".treeview/**/*.db", "*.db":
		return true
	}
	return false
}

func appendIgnore(path, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(ignoreComment + "\n" + pattern + "\n")
	_, err = file.WriteString(b.String())
	return err
}
