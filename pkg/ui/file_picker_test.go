package ui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treeview/pkg/render"
)

func samplePicker() *FilePicker {
	entries := []FileEntry{
		NewFileEntry(filepath.Join("/work", "api-service", ".treeview", "items.json"), 12),
		NewFileEntry(filepath.Join("/work", "web-frontend", ".treeview", "items.yaml"), 4),
		NewFileEntry(filepath.Join("/work", "data-pipeline", ".treeview", "items.jsonl"), -1),
	}
	return NewFilePicker(entries, render.DefaultTheme(lipgloss.NewRenderer(nil)))
}

func sendKeys(p *FilePicker, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = p.Update(msg)
	}
	return cmd
}

func TestNewFileEntry_NamesProjectDir(t *testing.T) {
	e := NewFileEntry(filepath.Join("/work", "api-service", ".treeview", "items.json"), 3)
	if e.Name != "api-service" {
		t.Errorf("expected api-service, got %q", e.Name)
	}
}

func TestFilePicker_NumberKeyPicks(t *testing.T) {
	p := samplePicker()
	if cmd := sendKeys(p, "2"); cmd == nil {
		t.Error("expected quit after picking")
	}
	if !strings.Contains(p.Chosen(), "web-frontend") {
		t.Errorf("expected web-frontend, got %q", p.Chosen())
	}
}

func TestFilePicker_CursorAndEnter(t *testing.T) {
	p := samplePicker()
	sendKeys(p, "down", "down", "down", "enter")
	if !strings.Contains(p.Chosen(), "data-pipeline") {
		t.Errorf("expected the cursor to stop at the last entry, got %q", p.Chosen())
	}
}

func TestFilePicker_Filter(t *testing.T) {
	p := samplePicker()
	sendKeys(p, "/", "w", "e", "b")
	got := p.Filtered()
	if len(got) == 0 || got[0].Name != "web-frontend" {
		t.Fatalf("expected web-frontend ranked first, got %v", got)
	}
	sendKeys(p, "enter")
	if !strings.Contains(p.Chosen(), "web-frontend") {
		t.Errorf("expected web-frontend, got %q", p.Chosen())
	}
}

func TestFilePicker_EscapeRestoresAll(t *testing.T) {
	p := samplePicker()
	sendKeys(p, "/", "z", "z", "z")
	if n := len(p.Filtered()); n != 0 {
		t.Errorf("expected no matches, got %d", n)
	}
	sendKeys(p, "esc")
	if n := len(p.Filtered()); n != 3 {
		t.Errorf("expected all entries back, got %d", n)
	}
	if p.Chosen() != "" {
		t.Error("expected nothing chosen")
	}
}

func TestFilePicker_View(t *testing.T) {
	p := samplePicker()
	v := p.View()
	for _, want := range []string{"items[3]", "1 api-service (12)", "3 data-pipeline (?)"} {
		if !strings.Contains(v, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}
