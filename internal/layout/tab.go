package layout

import (
	"github.com/weftmux/weft/internal/seamless"
)

// SeamlessMode controls whether Navigate may delegate the move to the
// active pane's application before navigating locally. Delegation is
// disabled when a previous delegation already timed out.
type SeamlessMode int

const (
	SeamlessDisabled SeamlessMode = iota
	SeamlessEnabled
)

// NavigateOutcome is the result of Tab.Navigate.
type NavigateOutcome int

const (
	// NavigateNone means no pane change happened: the move was blocked
	// (wrap needed but disallowed) or no candidate pane exists.
	NavigateNone NavigateOutcome = iota
	// NavigateMoved means the active pane changed, or the move was
	// delegated with wrap allowed (no reply expected).
	NavigateMoved
	// NavigatePending means the move was delegated to the active pane's
	// application and a reply (or timeout) must resolve it.
	NavigatePending
)

// NavigateRequest carries one navigation attempt through Tab.Navigate.
type NavigateRequest struct {
	Direction seamless.NavigateDirection
	Wrap      seamless.WrapMode
	// ID correlates a delegated request with its reply. Empty for moves
	// that need no reply.
	ID string
	// Override restricts the perpendicular-axis hit test, in tree
	// coordinates. Nil means the active pane's own extent.
	Override *Span
	Seamless SeamlessMode
	// ForceWrap probes the wrap edge regardless of the active pane's
	// position. Used for Enter handling, where the request already
	// decided the surface wraps.
	ForceWrap bool
}

// Tab is a collection of panes sharing a screen area, with at most one
// active. Corresponds to a tmux window. All methods must be called with
// the owning State's lock held.
type Tab struct {
	id   uint64
	name string
	size Size
	tree *Tree

	// Most recently active first. Navigation tie-breaks follow this
	// order.
	recency []*Pane

	isActive   bool
	active     *Pane
	fullScreen *Pane

	// onLayoutUpdate is invoked whenever the active pane or layout
	// changed in a way worth persisting.
	onLayoutUpdate func()
}

// NewTab creates an empty tab.
func NewTab(id uint64, name string) *Tab {
	return &Tab{id: id, name: name}
}

func (t *Tab) ID() uint64   { return t.id }
func (t *Tab) Name() string { return t.name }

// SetName renames the tab.
func (t *Tab) SetName(name string) { t.name = name }

// OnLayoutUpdate registers the persistence notification callback.
func (t *Tab) OnLayoutUpdate(fn func()) { t.onLayoutUpdate = fn }

func (t *Tab) layoutDidUpdate() {
	if t.onLayoutUpdate != nil {
		t.onLayoutUpdate()
	}
}

// Tree returns the current layout tree, which may be nil before the
// first layout.
func (t *Tab) Tree() *Tree { return t.tree }

// Size returns the tab's rectangle.
func (t *Tab) Size() Size { return t.size }

// Active returns the active pane, or nil.
func (t *Tab) Active() *Pane { return t.active }

// FullScreen returns the full-screen pane, or nil.
func (t *Tab) FullScreen() *Pane { return t.fullScreen }

// Panes returns the panes ordered by recency, most recent first.
func (t *Tab) Panes() []*Pane { return t.recency }

// Empty reports whether the tab has no panes.
func (t *Tab) Empty() bool { return len(t.recency) == 0 }

// SetLayout installs a freshly computed layout tree. Panes new to the
// tab join the back of the recency order; removed panes leave it. The
// active pane falls back to the most recently used survivor.
func (t *Tab) SetLayout(size Size, tree *Tree) {
	t.size = size
	t.tree = tree

	present := make(map[*Pane]bool, len(tree.Entries()))
	for _, e := range tree.Entries() {
		present[e.Pane] = true
	}

	kept := t.recency[:0]
	for _, p := range t.recency {
		if present[p] {
			kept = append(kept, p)
			delete(present, p)
		}
	}
	t.recency = kept
	for _, e := range tree.Entries() {
		if present[e.Pane] {
			t.recency = append(t.recency, e.Pane)
			delete(present, e.Pane)
		}
	}

	if t.fullScreen != nil {
		if _, ok := tree.FindPane(t.fullScreen); !ok {
			t.fullScreen = nil
		}
	}
	if t.active != nil {
		if _, ok := tree.FindPane(t.active); !ok {
			t.active = nil
		}
	}
	if t.active == nil && len(t.recency) > 0 {
		t.SetActive(t.recency[0])
	}
	t.layoutDidUpdate()
}

// RemovePane drops a pane from the tab. Returns whether it was present.
func (t *Tab) RemovePane(p *Pane) bool {
	found := false
	kept := t.recency[:0]
	for _, q := range t.recency {
		if q == p {
			found = true
			continue
		}
		kept = append(kept, q)
	}
	t.recency = kept
	if !found {
		return false
	}
	if t.fullScreen == p {
		t.fullScreen = nil
	}
	if t.active == p {
		t.active = nil
		if len(t.recency) > 0 {
			t.SetActive(t.recency[0])
		}
	}
	t.layoutDidUpdate()
	return true
}

// PaneByID finds a pane by its identifier.
func (t *Tab) PaneByID(id uint64) *Pane {
	for _, p := range t.recency {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// SetIsActive marks the tab as the active tab, driving focus events to
// its active pane.
func (t *Tab) SetIsActive(b bool) bool {
	if t.isActive == b {
		return false
	}
	if t.isActive && t.active != nil {
		t.active.Focus(false)
	}
	t.isActive = b
	if t.isActive && t.active != nil {
		t.active.Focus(true)
	}
	return true
}

// IsActive reports whether the tab is the active tab.
func (t *Tab) IsActive() bool { return t.isActive }

// SetActive switches focus to the given pane. Returns whether the
// active pane changed.
func (t *Tab) SetActive(p *Pane) bool {
	if t.active == p {
		return false
	}
	defer t.layoutDidUpdate()

	// A full-screen pane is dismissed as soon as focus leaves it.
	if t.fullScreen != nil && t.fullScreen != p {
		t.fullScreen = nil
	}

	if t.isActive && t.active != nil {
		t.active.Focus(false)
	}
	t.active = p
	if p != nil {
		kept := t.recency[:0]
		for _, q := range t.recency {
			if q != p {
				kept = append(kept, q)
			}
		}
		t.recency = append([]*Pane{p}, kept...)
	}
	if t.isActive && t.active != nil {
		t.active.Focus(true)
	}
	return true
}

// SetFullScreen puts a pane in full-screen, or clears full-screen when
// pane is nil. The full-screen pane is always active.
func (t *Tab) SetFullScreen(p *Pane) bool {
	if t.fullScreen == p {
		return false
	}
	t.fullScreen = p
	if p != nil {
		t.SetActive(p)
	}
	t.layoutDidUpdate()
	return true
}

// Navigate moves focus in a direction, per the probe-line algorithm:
// decide whether the move wraps, hit-test a one-cell line one divider
// beyond the active pane (or at the far edge when wrapping), and focus
// the most recently used candidate. When Seamless is enabled and the
// active pane's application registered for the protocol, the move is
// first offered to the application instead.
func (t *Tab) Navigate(req NavigateRequest) NavigateOutcome {
	if t.tree == nil || t.active == nil {
		return NavigateNone
	}

	// A full-screen pane collapses the layout to a single entry covering
	// the whole tab, the same tree the layout pass would produce. Every
	// probe then wraps back to the full-screen pane itself, so local
	// navigation is a no-op (and never dismisses full-screen), while
	// delegation to the pane's application still works.
	tree := t.tree
	if t.fullScreen != nil {
		tree = NewTree(t.size, []Entry{
			{Pane: t.fullScreen, Row: 0, Col: 0, Size: t.size},
		})
	}

	entry, ok := tree.FindPane(t.active)
	if !ok {
		// Layout invariant violation: the active pane must be in the tree.
		return NavigateNone
	}

	candidates, blocked := t.candidates(tree, entry, req)

	valid := 0
	for p := range candidates {
		if p != t.active {
			valid++
		}
	}

	// The active pane's application gets priority over local navigation.
	// Wrap is permitted downward only when this tab itself has nowhere
	// else to go; otherwise a reply is mandatory.
	if req.Seamless == SeamlessEnabled {
		wrap := seamless.WrapDisallow
		if req.Wrap == seamless.WrapAllow && valid == 0 {
			wrap = seamless.WrapAllow
		}
		msg := seamless.Message{
			Type:      seamless.RequestNavigate,
			Direction: req.Direction,
			ID:        req.ID,
			Wrap:      wrap,
		}
		if t.active.SeamlessNavigate(msg) {
			if wrap == seamless.WrapDisallow {
				return NavigatePending
			}
			return NavigateMoved
		}
	}

	if blocked {
		return NavigateNone
	}

	for _, candidate := range t.recency {
		if candidate == t.active || !candidates[candidate] {
			continue
		}

		centry, ok := tree.FindPane(candidate)
		if !ok {
			continue
		}
		t.enterPane(entry, centry, req.Direction)
		t.SetActive(candidate)
		return NavigateMoved
	}
	// No candidate other than the active pane itself. Under a forced
	// wrap this keeps the focus stable rather than cycling to self.
	return NavigateNone
}

// candidates hit-tests the probe line for the request against the given
// tree and reports whether the move is blocked (wraps with wrap
// disallowed).
func (t *Tab) candidates(tree *Tree, entry Entry, req NavigateRequest) (map[*Pane]bool, bool) {
	span := Span{entry.Row, entry.Row + entry.Size.Rows}
	if !req.Direction.Horizontal() {
		span = Span{entry.Col, entry.Col + entry.Size.Cols}
	}
	if req.Override != nil {
		span = *req.Override
	}

	var (
		hits  []Entry
		wraps bool
	)
	switch req.Direction {
	case seamless.DirLeft:
		wraps = entry.Col <= 1 || req.ForceWrap
		if wraps && req.Wrap == seamless.WrapDisallow {
			return nil, true
		}
		col := entry.Col - 2
		if wraps {
			col = t.size.Cols - 1
		}
		hits = tree.HitTestVerticalLine(col, span.Start, span.End)
	case seamless.DirRight:
		wraps = t.size.Cols < 2 || entry.Col+entry.Size.Cols >= t.size.Cols-2 || req.ForceWrap
		if wraps && req.Wrap == seamless.WrapDisallow {
			return nil, true
		}
		col := entry.Col + entry.Size.Cols + 1
		if wraps {
			col = 0
		}
		hits = tree.HitTestVerticalLine(col, span.Start, span.End)
	case seamless.DirUp:
		wraps = entry.Row <= 1 || req.ForceWrap
		if wraps && req.Wrap == seamless.WrapDisallow {
			return nil, true
		}
		row := entry.Row - 2
		if wraps {
			row = t.size.Rows - 1
		}
		hits = tree.HitTestHorizontalLine(row, span.Start, span.End)
	case seamless.DirDown:
		wraps = t.size.Rows < 2 || entry.Row+entry.Size.Rows >= t.size.Rows-2 || req.ForceWrap
		if wraps && req.Wrap == seamless.WrapDisallow {
			return nil, true
		}
		row := entry.Row + entry.Size.Rows + 1
		if wraps {
			row = 0
		}
		hits = tree.HitTestHorizontalLine(row, span.Start, span.End)
	default:
		return nil, false
	}

	set := make(map[*Pane]bool, len(hits))
	for _, h := range hits {
		set[h.Pane] = true
	}
	return set, false
}

// enterPane notifies the newly focused pane's application of the entry,
// carrying the 1-indexed inclusive overlap between the old and new pane
// on the perpendicular axis, relative to the new pane's rectangle. The
// application can use it to pick the matching internal sub-pane.
func (t *Tab) enterPane(from, to Entry, dir seamless.NavigateDirection) {
	var r seamless.Range
	if dir.Horizontal() {
		r = overlapRange(from.Row, from.Size.Rows, to.Row, to.Size.Rows)
	} else {
		r = overlapRange(from.Col, from.Size.Cols, to.Col, to.Size.Cols)
	}
	to.Pane.SeamlessNavigate(seamless.Message{
		Type:      seamless.RequestEnter,
		Direction: dir,
		Range:     r,
		HasRange:  true,
	})
}

func overlapRange(aStart, aExtent, cStart, cExtent int) seamless.Range {
	start := max(aStart, cStart) - cStart + 1
	end := min(aStart+aExtent, cStart+cExtent) - cStart
	return seamless.Range{Start: uint32(start), End: uint32(end)}
}
