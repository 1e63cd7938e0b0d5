// Package loader reads tree items from JSON, JSONL and YAML files and checks
// parent references before they reach a tree.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/model"
)

// Format of an items file
type Format int

const (
	FormatJSON Format = iota
	FormatJSONL
	FormatYAML
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatJSONL:
		return "jsonl"
	case FormatYAML:
		return "yaml"
	}
	return "unknown"
}

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unsupported items file %q: want .json, .jsonl or .yaml", path)
}

// LoadFile reads every item in path.
func LoadFile(path string) ([]model.Item, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening items file: %w", err)
	}
	defer f.Close()

	items, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("loader: %d items from %s", len(items), path)
	return items, nil
}

// Parse decodes items from r. JSON and YAML accept either a top-level list
// or an object with an "items" list. JSONL holds one object per line.
func Parse(r io.Reader, format Format) ([]model.Item, error) {
	switch format {
	case FormatJSONL:
		return parseJSONL(r)
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return parseDocument(data, json.Unmarshal)
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return parseDocument(data, yaml.Unmarshal)
	}
	return nil, fmt.Errorf("unknown format %d", format)
}

func parseDocument(data []byte, unmarshal func([]byte, any) error) ([]model.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var list []model.Item
	if err := unmarshal(trimmed, &list); err == nil {
		return list, nil
	}
	var doc struct {
		Items []model.Item `json:"items" yaml:"items"`
	}
	if err := unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	return doc.Items, nil
}

func parseJSONL(r io.Reader) ([]model.Item, error) {
	var items []model.Item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var it model.Item
		if err := json.Unmarshal(text, &it); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	return items, nil
}

// LoadFiles loads several files concurrently and concatenates their items
// in argument order. The first failure cancels the rest.
func LoadFiles(ctx context.Context, paths ...string) ([]model.Item, error) {
	results := make([][]model.Item, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			items, err := LoadFile(p)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]model.Item, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// WriteJSONL writes items one per line.
func WriteJSONL(w io.Writer, items []model.Item) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
