package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"a.json":   FormatJSON,
		"a.JSONL":  FormatJSONL,
		"a.ndjson": FormatJSONL,
		"a.yml":    FormatYAML,
		"a.yaml":   FormatYAML,
	}
	for name, want := range cases {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := DetectFormat("items.csv")
	assert.ErrorContains(t, err, "unsupported")
}

func TestParse_JSONListAndObject(t *testing.T) {
	list, err := Parse(strings.NewReader(`[{"id":1,"pid":0,"text":"A"}]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1", model.NormalizeID(list[0]["id"]))
	assert.Equal(t, "A", list[0]["text"])

	obj, err := Parse(strings.NewReader(`{"items":[{"id":"x"},{"id":"y"}]}`), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, obj, 2)

	empty, err := Parse(strings.NewReader("  \n"), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParse_JSONL(t *testing.T) {
	in := "{\"id\":\"a\"}\n\n{\"id\":\"b\",\"pid\":\"a\"}\n"
	items, err := Parse(strings.NewReader(in), FormatJSONL)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[1]["pid"])

	_, err = Parse(strings.NewReader("{\"id\":\"a\"}\n{oops\n"), FormatJSONL)
	assert.ErrorContains(t, err, "line 2")
}

func TestParse_YAMLNested(t *testing.T) {
	in := `
items:
  - id: docs
    text: Docs
    children:
      - id: readme
        text: README
`
	items, err := Parse(strings.NewReader(in), FormatYAML)
	require.NoError(t, err)
	require.Len(t, items, 1)

	flat := Flatten(items, tree.DefaultItemKey())
	require.Len(t, flat, 2)
	assert.Equal(t, "docs", flat[1]["pid"])
	_, hasChildren := flat[0]["children"]
	assert.False(t, hasChildren)
}

func TestLoadFiles_KeepsOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `[{"id":"a1"},{"id":"a2"}]`)
	b := writeFile(t, dir, "b.jsonl", "{\"id\":\"b1\"}\n")
	c := writeFile(t, dir, "c.yaml", "- id: c1\n")

	items, err := LoadFiles(context.Background(), a, b, c)
	require.NoError(t, err)
	var ids []string
	for _, it := range items {
		ids = append(ids, model.NormalizeID(it["id"]))
	}
	assert.Equal(t, []string{"a1", "a2", "b1", "c1"}, ids)
}

func TestLoadFiles_Error(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `[]`)
	_, err := LoadFiles(context.Background(), good, filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "opening items file")
}

func TestWriteJSONL_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, []model.Item{{"id": "a"}, {"id": "b", "pid": "a"}}))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	items, err := Parse(&buf, FormatJSONL)
	require.NoError(t, err)
	assert.Equal(t, "a", items[1]["pid"])
}

func TestCheckCycles(t *testing.T) {
	key := tree.DefaultItemKey()

	ok := []model.Item{{"id": "a"}, {"id": "b", "pid": "a"}, {"id": "c", "pid": "b"}}
	assert.NoError(t, CheckCycles(ok, key))

	loop := []model.Item{
		{"id": "a", "pid": "c"},
		{"id": "b", "pid": "a"},
		{"id": "c", "pid": "b"},
		{"id": "d", "pid": "d"},
	}
	err := CheckCycles(loop, key)
	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	require.Len(t, ce.Cycles, 2)
	assert.Equal(t, []string{"d", "d"}, ce.Cycles[0])
	assert.Equal(t, []string{"a", "b", "c"}, ce.Cycles[1])
}

func TestCheckCycles_CustomKeys(t *testing.T) {
	key := tree.ItemKey{ID: "key", ParentID: "parent"}
	items := []model.Item{{"key": 1, "parent": 2}, {"key": 2, "parent": 1}}
	err := CheckCycles(items, key)
	assert.ErrorContains(t, err, "1 parent cycle(s): 1 -> 2")
}
