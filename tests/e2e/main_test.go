package main_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func buildTvBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "tv")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/tv")
	cmd.Dir = "../../"
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build tv failed: %v\n%s", err, out)
	}
	return binPath
}

// testEnv returns a working directory and an environment that keeps tv's
// config and state inside the test's temp dir.
func testEnv(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	env := append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"XDG_STATE_HOME="+filepath.Join(dir, "state"),
	)
	return dir, env
}

func TestEndToEndBuildAndRun(t *testing.T) {
	binPath := buildTvBinary(t)
	envDir, env := testEnv(t)

	if err := os.MkdirAll(filepath.Join(envDir, ".treeview"), 0o755); err != nil {
		t.Fatal(err)
	}
	items := `{"id": "1", "text": "E2E Folder", "folder": true}
{"id": "2", "pid": "1", "text": "E2E Leaf"}
`
	if err := os.WriteFile(filepath.Join(envDir, ".treeview", "items.jsonl"), []byte(items), 0o644); err != nil {
		t.Fatal(err)
	}

	run := exec.Command(binPath, "version")
	run.Dir = envDir
	run.Env = env
	if out, err := run.CombinedOutput(); err != nil {
		t.Fatalf("Execution failed: %v\n%s", err, out)
	}

	// Without a file argument the .treeview items file is found.
	export := exec.Command(binPath, "export", "-f", "md")
	export.Dir = envDir
	export.Env = env
	out, err := export.Output()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	for _, want := range []string{"E2E Folder", "E2E Leaf"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("expected export to contain %q, got:\n%s", want, out)
		}
	}
}

func TestEndToEndValidateCycle(t *testing.T) {
	binPath := buildTvBinary(t)
	envDir, env := testEnv(t)

	path := filepath.Join(envDir, "cycle.json")
	content := `[{"id": "a", "pid": "b", "text": "a"}, {"id": "b", "pid": "a", "text": "b"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(binPath, "validate", path)
	cmd.Dir = envDir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected a non-zero exit, got %v\n%s", err, out)
	}
	if code := exitErr.ExitCode(); code != 2 {
		t.Errorf("expected exit code 2, got %d\n%s", code, out)
	}
	if !strings.Contains(string(out), "cycle:") {
		t.Errorf("expected cycle report, got:\n%s", out)
	}
}

func TestEndToEndNoTerminal(t *testing.T) {
	binPath := buildTvBinary(t)
	envDir, env := testEnv(t)

	path := filepath.Join(envDir, "items.json")
	if err := os.WriteFile(path, []byte(`[{"id": "1", "text": "x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(binPath, path)
	cmd.Dir = envDir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected the TUI to refuse to start without a terminal")
	}
	if !strings.Contains(string(out), "needs a terminal") {
		t.Errorf("expected terminal error, got:\n%s", out)
	}
}
