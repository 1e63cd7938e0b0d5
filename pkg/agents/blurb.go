// Package agents keeps a short tv usage section in a project's AGENTS.md
// (or CLAUDE.md) so coding agents use the scripted commands instead of the
// interactive tree.
package agents

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// BlurbVersion is the current version of the agent instructions blurb.
// Increment this when the blurb changes.
const BlurbVersion = 1

// BlurbEndMarker marks the end of injected agent instructions.
const BlurbEndMarker = "<!-- end-tv-agent-instructions -->"

const blurbStartPrefix = "<!-- tv-agent-instructions-v"

// AgentBlurb is appended to agent instruction files.
var AgentBlurb = blurbStartPrefix + strconv.Itoa(BlurbVersion) + ` -->

---

## Tree items (tv)

This project keeps hierarchical items in ` + "`" + `.treeview/` + "`" + `. Each item has an ` + "`" + `id` + "`" + `,
an optional parent id ` + "`" + `pid` + "`" + ` and a label ` + "`" + `text` + "`" + `.

` + "```" + `bash
tv                          # interactive tree (avoid in automated sessions)
tv search <text> --json     # matching items with their ancestor path
tv export -f jsonl          # every item, parents first
tv export -f md --all       # readable outline
tv validate                 # parent cycles and broken structure (exit 2 on cycles)
tv stats --json             # depth, fan-out and checkbox counts
` + "```" + `

Edit the items file directly, then run ` + "`" + `tv validate` + "`" + ` before committing.

` + BlurbEndMarker

// SupportedAgentFiles lists the filenames that can contain agent instructions,
// in lookup order.
var SupportedAgentFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
	"agents.md",
	"claude.md",
}

var blurbVersionRegex = regexp.MustCompile(`<!-- tv-agent-instructions-v(\d+) -->`)

// ContainsBlurb checks if the content already contains a tv agent blurb.
func ContainsBlurb(content string) bool {
	return strings.Contains(content, blurbStartPrefix)
}

// GetBlurbVersion extracts the version number from existing blurb content.
func GetBlurbVersion(content string) int {
	m := blurbVersionRegex.FindStringSubmatch(content)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}

// NeedsUpdate checks if the content has an older version of the blurb.
func NeedsUpdate(content string) bool {
	return ContainsBlurb(content) && GetBlurbVersion(content) < BlurbVersion
}

// AppendBlurb appends the agent blurb to the given content.
func AppendBlurb(content string) string {
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content != "" {
		content += "\n"
	}
	return content + AgentBlurb + "\n"
}

// RemoveBlurb removes an existing blurb, and the blank lines around it.
func RemoveBlurb(content string) string {
	start := strings.Index(content, blurbStartPrefix)
	if start == -1 {
		return content
	}
	end := strings.Index(content[start:], BlurbEndMarker)
	if end == -1 {
		return content
	}
	end += start + len(BlurbEndMarker)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	for start > 0 && (content[start-1] == '\n' || content[start-1] == '\r') {
		start--
	}
	if start > 0 && end < len(content) {
		return content[:start] + "\n\n" + content[end:]
	}
	if start > 0 {
		return content[:start] + "\n"
	}
	return content[end:]
}

// UpdateBlurb replaces an existing blurb with the current version.
func UpdateBlurb(content string) string {
	return AppendBlurb(RemoveBlurb(content))
}

// FindAgentFile returns the first supported agent file in dir, or "".
func FindAgentFile(dir string) string {
	for _, name := range SupportedAgentFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Ensure makes sure dir has an agent file carrying the current blurb,
// creating AGENTS.md when none exists. It returns the file path and whether
// the file was written.
func Ensure(dir string) (string, bool, error) {
	path := FindAgentFile(dir)
	if path == "" {
		path = filepath.Join(dir, SupportedAgentFiles[0])
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return path, false, err
	}
	content := string(data)

	var updated string
	switch {
	case NeedsUpdate(content):
		updated = UpdateBlurb(content)
	case ContainsBlurb(content):
		return path, false, nil
	default:
		updated = AppendBlurb(content)
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return path, false, err
	}
	return path, true, nil
}
