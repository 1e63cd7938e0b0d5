package tree

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treeview/pkg/dnd"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/render"
)

// Defaults applied by Options.Normalize.
const (
	DefaultPerLevel     = 2
	DefaultDnDRowHeight = 3
	DefaultRootLabel    = "Root"
	DefaultOpenDepth    = 1
	DefaultNewLabel     = "New Node"
	DefaultTimeout      = 30 * time.Second
)

// ItemKey names the item fields the tree reads.
type ItemKey struct {
	ID       string
	ParentID string
	Label    string
	Icon     string
	Children string
	Folder   string
	Checked  string
}

// DefaultItemKey returns the standard field names.
func DefaultItemKey() ItemKey {
	return ItemKey{
		ID:       "id",
		ParentID: "pid",
		Label:    "text",
		Icon:     "icon",
		Children: "children",
		Folder:   "folder",
		Checked:  "checked",
	}
}

// Style controls row geometry. Zero values take defaults.
type Style struct {
	PerLevel  int // indentation cells per depth level
	RowHeight int // lines per row
	Width     int // surface width used for truncation, 0 = unbounded
}

// RootNode describes the synthetic root.
type RootNode struct {
	ID    string
	Label string
}

// CheckboxOptions enables tri-state checkboxes.
type CheckboxOptions struct{}

// DnDOptions enables drag reordering.
type DnDOptions struct {
	Threshold int
	Start     func(n *model.Node) bool
	Drop      func(ev dnd.DropEvent) bool
}

// EditOptions enables inline label editing.
type EditOptions struct {
	Width  int
	Before func(n *model.Node) bool
	After  func(n *model.Node, text string) (string, bool)
}

// SearchOptions customizes matching. A nil Match uses the folded substring rule.
type SearchOptions struct {
	Match func(text string, n *model.Node) bool
}

// Fetcher loads the children of a node from a remote source.
type Fetcher interface {
	Fetch(ctx context.Context, p model.Params) ([]model.Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, p model.Params) ([]model.Item, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, p model.Params) ([]model.Item, error) {
	return f(ctx, p)
}

// Persister is told about created, modified and removed nodes. Its results
// are advisory and never roll back the tree.
type Persister interface {
	Create(ctx context.Context, p model.Params) error
	Modify(ctx context.Context, p model.Params) error
	Remove(ctx context.Context, p model.Params) error
}

// Event is what host callbacks receive.
type Event struct {
	Node *model.Node
	Msg  any
}

// Callbacks are optional host notifications.
type Callbacks struct {
	Click            func(Event)
	DoubleClick      func(Event)
	SelectionChanged func(Event)
	FocusChanged     func(Event)
	OnError          func(error)
}

// Options configure a Tree. The zero value is usable.
type Options struct {
	Items    []model.Item
	ItemKey  ItemKey
	Style    Style
	RootNode RootNode
	ShowRoot bool
	NoIcons  bool

	// OpenDepth opens newly ingested containers shallower than this depth.
	// Negative opens everything.
	OpenDepth int

	Theme *render.Theme

	Checkbox *CheckboxOptions
	DnD      *DnDOptions
	Edit     *EditOptions
	Search   SearchOptions

	Fetcher      Fetcher
	LoadChildren func(p model.Params) ([]model.Item, error)
	Persister    Persister
	Timeout      time.Duration

	Callbacks Callbacks
	NodeStyle func(n *model.Node) (lipgloss.Style, bool)
	GetIcon   func(n *model.Node) string
}

// Normalize returns a copy with defaults applied field by field.
func (o Options) Normalize() Options {
	def := DefaultItemKey()
	k := &o.ItemKey
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&k.ID, def.ID},
		{&k.ParentID, def.ParentID},
		{&k.Label, def.Label},
		{&k.Icon, def.Icon},
		{&k.Children, def.Children},
		{&k.Folder, def.Folder},
		{&k.Checked, def.Checked},
	} {
		if *f.dst == "" {
			*f.dst = f.val
		}
	}

	if o.Style.PerLevel <= 0 {
		o.Style.PerLevel = DefaultPerLevel
	}
	if o.Style.RowHeight <= 0 {
		o.Style.RowHeight = 1
		if o.DnD != nil {
			o.Style.RowHeight = DefaultDnDRowHeight
		}
	}
	if o.RootNode.Label == "" {
		o.RootNode.Label = DefaultRootLabel
	}
	if o.OpenDepth == 0 {
		o.OpenDepth = DefaultOpenDepth
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.DnD != nil && o.DnD.Threshold <= 0 {
		d := *o.DnD
		d.Threshold = dnd.DefaultThreshold
		o.DnD = &d
	}
	return o
}

// Validate rejects option combinations the tree cannot work with.
func (o Options) Validate() error {
	k := o.ItemKey
	if k.ID == k.ParentID {
		return errors.New("item key: id and parent id fields must differ")
	}
	if k.ID == k.Children || k.ParentID == k.Children {
		return errors.New("item key: children field collides with an id field")
	}
	if o.Style.Width < 0 {
		return errors.New("style: width must not be negative")
	}
	return nil
}

func (o Options) renderOptions() render.Options {
	return render.Options{
		ShowRoot:  o.ShowRoot,
		Checkbox:  o.Checkbox != nil,
		Icon:      !o.NoIcons,
		PerLevel:  o.Style.PerLevel,
		RowHeight: o.Style.RowHeight,
		Width:     o.Style.Width,
		NodeStyle: o.NodeStyle,
		GetIcon:   o.GetIcon,
	}
}
