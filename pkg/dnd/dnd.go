// Package dnd is the pointer drag-reorder state machine. It infers a drop
// zone from row geometry, checks structural legality and asks a Mover to
// perform the move.
package dnd

import (
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/traverse"
)

// State of a drag gesture
type State int

const (
	Idle State = iota
	Armed
	Dragging
	Resolving
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Resolving:
		return "resolving"
	}
	return "unknown"
}

// DefaultThreshold is how far the pointer must travel before a press becomes a drag.
const DefaultThreshold = 1

// Zone thresholds as fractions of the row height.
const (
	beforeFraction = 0.3
	afterFraction  = 0.7
)

// Point is a surface coordinate.
type Point struct {
	X, Y int
}

// Row is the geometry of the row under the pointer.
type Row struct {
	Node   *model.Node
	Top    int
	Height int
}

// Indicator is the drop line drawn while dragging.
type Indicator struct {
	X, Y    int
	Width   int
	Visible bool
}

// DropEvent is handed to the host drop hook.
type DropEvent struct {
	Dragged *model.Node
	Target  *model.Node
	Zone    model.Position
}

// Hooks are optional host vetoes.
type Hooks struct {
	Start func(n *model.Node) bool
	Drop  func(ev DropEvent) bool
}

// Mover performs the structural move once a drop is accepted.
type Mover interface {
	MoveNode(n *model.Node, pos model.Position, refID string) error
}

// Result describes how a release resolved.
type Result struct {
	Moved bool
	Event DropEvent
}

// ParseZone accepts before/after/inside and their prev/next/child aliases.
func ParseZone(s string) (model.Position, error) {
	return model.ParsePosition(s)
}

// ZoneFor maps a pointer y within a row to a zone: top 30% before, bottom
// 30% after, middle 40% inside. Each unit is sampled at its center so a
// three-line terminal row yields one line per zone.
func ZoneFor(y, top, height int) model.Position {
	if height <= 0 {
		return model.Inside
	}
	frac := (float64(y-top) + 0.5) / float64(height)
	switch {
	case frac < beforeFraction:
		return model.Before
	case frac >= afterFraction:
		return model.After
	}
	return model.Inside
}

// Legal reports whether dropping dragged at zone relative to target would be
// a real, structurally valid move.
func Legal(dragged, target *model.Node, zone model.Position) bool {
	if dragged == nil || target == nil || dragged == target {
		return false
	}
	if containedIn(dragged, target) {
		return false
	}
	switch zone {
	case model.Before:
		return target.Parent() != nil && target.PrevSibling() != dragged
	case model.After:
		return target.Parent() != nil && target.NextSibling() != dragged
	case model.Inside:
		return true
	}
	return false
}

// containedIn walks target's ancestors down to dragged's depth looking for dragged.
func containedIn(dragged, target *model.Node) bool {
	for p := target.Parent(); p != nil && p.Depth >= dragged.Depth; p = p.Parent() {
		if p == dragged {
			return true
		}
	}
	return false
}

// Engine tracks one drag gesture at a time.
type Engine struct {
	Threshold int
	Metrics   traverse.Metrics
	Width     int // surface width, bounds the indicator

	hooks Hooks
	mover Mover

	state   State
	dragged *model.Node
	start   Point
	pointer Point
	target  *model.Node
	zone    model.Position
	allowed bool

	Indicator Indicator
}

// New returns an idle engine.
func New(mover Mover, hooks Hooks, metrics traverse.Metrics) *Engine {
	return &Engine{
		Threshold: DefaultThreshold,
		Metrics:   metrics,
		hooks:     hooks,
		mover:     mover,
	}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Active reports whether a gesture is in progress.
func (e *Engine) Active() bool { return e.state != Idle }

// Dragged returns the node being dragged, if any.
func (e *Engine) Dragged() *model.Node { return e.dragged }

// Target returns the hovered node and its zone.
func (e *Engine) Target() (*model.Node, model.Position) { return e.target, e.zone }

// NotAllowed reports whether the current hover is an illegal drop.
func (e *Engine) NotAllowed() bool {
	return e.state == Dragging && !e.allowed
}

// Pointer returns the last pointer position, where the drag helper floats.
func (e *Engine) Pointer() Point { return e.pointer }

// Press arms the engine on n.
func (e *Engine) Press(n *model.Node, pt Point) {
	e.reset()
	if n == nil {
		return
	}
	e.state = Armed
	e.dragged = n
	e.start = pt
	e.pointer = pt
}

// Move updates the gesture. hover is the row under the pointer or nil.
func (e *Engine) Move(pt Point, hover *Row) {
	e.pointer = pt
	switch e.state {
	case Armed:
		if distance(e.start, pt) < e.Threshold {
			return
		}
		if e.hooks.Start != nil && !e.hooks.Start(e.dragged) {
			e.reset()
			return
		}
		e.state = Dragging
	case Dragging:
	default:
		return
	}
	e.resolve(pt, hover)
}

func (e *Engine) resolve(pt Point, hover *Row) {
	e.target = nil
	e.allowed = false
	e.Indicator = Indicator{}
	if hover == nil || hover.Node == nil {
		return
	}
	e.target = hover.Node
	e.zone = ZoneFor(pt.Y, hover.Top, hover.Height)
	if !Legal(e.dragged, e.target, e.zone) {
		return
	}
	e.allowed = true

	depth := e.target.Depth
	y := hover.Top
	switch e.zone {
	case model.After:
		y = hover.Top + hover.Height - 1
	case model.Inside:
		depth++
		y = hover.Top + hover.Height/2
	}
	x := traverse.ContentOffset(depth, e.Metrics)
	width := e.Width - x
	if width < 1 {
		width = 1
	}
	e.Indicator = Indicator{X: x, Y: y, Width: width, Visible: true}
}

// Release resolves the gesture. A legal, unvetoed drop is handed to the Mover.
// The engine is idle again afterwards whatever the outcome.
func (e *Engine) Release() (Result, error) {
	defer e.reset()
	if e.state != Dragging || !e.allowed || e.target == nil {
		return Result{}, nil
	}
	e.state = Resolving
	ev := DropEvent{Dragged: e.dragged, Target: e.target, Zone: e.zone}
	if e.hooks.Drop != nil && !e.hooks.Drop(ev) {
		return Result{Event: ev}, nil
	}
	if err := e.mover.MoveNode(ev.Dragged, ev.Zone, ev.Target.ID); err != nil {
		return Result{Event: ev}, err
	}
	return Result{Moved: true, Event: ev}, nil
}

// Cancel drops the gesture without touching the tree.
func (e *Engine) Cancel() {
	e.reset()
}

func (e *Engine) reset() {
	e.state = Idle
	e.dragged = nil
	e.target = nil
	e.zone = ""
	e.allowed = false
	e.Indicator = Indicator{}
}

func distance(a, b Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}
