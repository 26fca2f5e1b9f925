package layout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/weftmux/weft/internal/seamless"
)

// testPane couples a pane with a buffer capturing everything written
// towards its application.
type testPane struct {
	pane *Pane
	out  *bytes.Buffer
}

func newTestPane(id uint64, registered bool) testPane {
	out := &bytes.Buffer{}
	p := NewPane(id, out, nil)
	if registered {
		p.NotifyApplicationMessage(seamless.Message{Type: seamless.RequestRegister})
	}
	return testPane{pane: p, out: out}
}

// twoPaneTab builds an 80x24 tab split into a left and right pane with
// a divider column at 39. The left pane is active.
func twoPaneTab(t *testing.T, leftRegistered, rightRegistered bool) (*Tab, testPane, testPane) {
	t.Helper()
	left := newTestPane(1, leftRegistered)
	right := newTestPane(2, rightRegistered)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: left.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 39}},
		{Pane: right.pane, Row: 0, Col: 40, Size: Size{Rows: 24, Cols: 40}},
	}))
	tab.SetActive(left.pane)
	left.out.Reset()
	right.out.Reset()
	return tab, left, right
}

func TestNavigateRightThenLeftReturns(t *testing.T) {
	tab, left, right := twoPaneTab(t, false, false)

	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirRight, Wrap: seamless.WrapAllow}); got != NavigateMoved {
		t.Fatalf("navigate right = %v, want moved", got)
	}
	if tab.Active() != right.pane {
		t.Fatal("right pane should be active")
	}
	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirLeft, Wrap: seamless.WrapAllow}); got != NavigateMoved {
		t.Fatalf("navigate left = %v, want moved", got)
	}
	if tab.Active() != left.pane {
		t.Fatal("left pane should be active again")
	}
}

func TestNavigateBlockedWhenWrapDisallowed(t *testing.T) {
	tab, left, _ := twoPaneTab(t, false, false)

	// Left from the left edge needs a wrap; with wrap disallowed the
	// caller must get "blocked" and the active pane must not change.
	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirLeft, Wrap: seamless.WrapDisallow}); got != NavigateNone {
		t.Fatalf("navigate = %v, want none", got)
	}
	if tab.Active() != left.pane {
		t.Fatal("active pane changed on blocked navigation")
	}
}

func TestNavigateWrapsToFarEdge(t *testing.T) {
	tab, _, right := twoPaneTab(t, false, false)

	// Left from the left edge with wrap allowed probes the rightmost
	// column and lands on the right pane.
	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirLeft, Wrap: seamless.WrapAllow}); got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved", got)
	}
	if tab.Active() != right.pane {
		t.Fatal("wrap should land on the right pane")
	}
}

func TestNavigateSendsEnterWithOverlapRange(t *testing.T) {
	tab, _, right := twoPaneTab(t, false, true)

	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirRight, Wrap: seamless.WrapAllow}); got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved", got)
	}
	// Both panes span rows 0..24, so the overlap covers the full height
	// of the entered pane: 1-indexed inclusive rows 1..24.
	want := seamless.Message{
		Type:      seamless.RequestEnter,
		Direction: seamless.DirRight,
		Range:     seamless.Range{Start: 1, End: 24},
		HasRange:  true,
	}
	if got := right.out.String(); got != want.Serialize() {
		t.Errorf("enter message = %q, want %q", got, want.Serialize())
	}
}

func TestNavigateOverlapRangeRelativeToCandidate(t *testing.T) {
	// Left pane full height; two stacked right panes. Moving right from
	// the lower part of the left pane must report the overlap relative
	// to the entered pane's own rows.
	left := newTestPane(1, false)
	topRight := newTestPane(2, true)
	bottomRight := newTestPane(3, true)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: left.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 39}},
		{Pane: topRight.pane, Row: 0, Col: 40, Size: Size{Rows: 11, Cols: 40}},
		{Pane: bottomRight.pane, Row: 12, Col: 40, Size: Size{Rows: 12, Cols: 40}},
	}))
	tab.SetActive(left.pane)
	bottomRight.out.Reset()

	// Restrict the probe to rows 15..20 so only the bottom-right pane
	// qualifies.
	got := tab.Navigate(NavigateRequest{
		Direction: seamless.DirRight,
		Wrap:      seamless.WrapAllow,
		Override:  &Span{Start: 15, End: 20},
	})
	if got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved", got)
	}
	if tab.Active() != bottomRight.pane {
		t.Fatal("bottom-right pane should be active")
	}
	// Overlap of left (rows 0..24) with bottom-right (rows 12..24),
	// relative to bottom-right: rows 1..12 inclusive.
	if !strings.Contains(bottomRight.out.String(), "r=1,12") {
		t.Errorf("enter message %q missing overlap range r=1,12", bottomRight.out.String())
	}
}

func TestNavigateRecencyTieBreak(t *testing.T) {
	// Two stacked right panes both intersect the full-height probe; the
	// most recently active one wins.
	left := newTestPane(1, false)
	topRight := newTestPane(2, false)
	bottomRight := newTestPane(3, false)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: left.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 39}},
		{Pane: topRight.pane, Row: 0, Col: 40, Size: Size{Rows: 11, Cols: 40}},
		{Pane: bottomRight.pane, Row: 12, Col: 40, Size: Size{Rows: 12, Cols: 40}},
	}))

	tab.SetActive(bottomRight.pane)
	tab.SetActive(left.pane)

	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirRight, Wrap: seamless.WrapAllow}); got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved", got)
	}
	if tab.Active() != bottomRight.pane {
		t.Errorf("expected most recently used right pane (3), got %d", tab.Active().ID())
	}
}

func TestNavigateForceWrapStability(t *testing.T) {
	// A single pane with force wrap: the probe wraps back to the active
	// pane, which must be retained without a focus change.
	only := newTestPane(1, false)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: only.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 80}},
	}))

	got := tab.Navigate(NavigateRequest{
		Direction: seamless.DirUp,
		Wrap:      seamless.WrapAllow,
		ForceWrap: true,
	})
	if got != NavigateNone {
		t.Fatalf("navigate = %v, want none", got)
	}
	if tab.Active() != only.pane {
		t.Fatal("active pane changed under force wrap")
	}
}

func TestNavigateDelegatesToRegisteredPane(t *testing.T) {
	tab, left, _ := twoPaneTab(t, true, false)

	got := tab.Navigate(NavigateRequest{
		Direction: seamless.DirRight,
		Wrap:      seamless.WrapAllow,
		ID:        "req-1",
		Seamless:  SeamlessEnabled,
	})
	if got != NavigatePending {
		t.Fatalf("navigate = %v, want pending", got)
	}
	// A candidate exists to the right, so the app must be told a reply
	// is mandatory (wrap disallowed, w omitted from the wire form).
	want := seamless.Message{
		Type:      seamless.RequestNavigate,
		Direction: seamless.DirRight,
		ID:        "req-1",
	}
	if gotWire := left.out.String(); gotWire != want.Serialize() {
		t.Errorf("delegated message = %q, want %q", gotWire, want.Serialize())
	}
	if tab.Active() != left.pane {
		t.Fatal("active pane must not change while delegation is pending")
	}
}

func TestNavigateDelegationAllowsWrapWhenOnlyPane(t *testing.T) {
	// A single pane has no outer candidate in any direction, so the app
	// may wrap internally and no reply is expected.
	only := newTestPane(1, true)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: only.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 80}},
	}))
	only.out.Reset()

	got := tab.Navigate(NavigateRequest{
		Direction: seamless.DirLeft,
		Wrap:      seamless.WrapAllow,
		ID:        "req-2",
		Seamless:  SeamlessEnabled,
	})
	if got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved (fire-and-forget delegation)", got)
	}
	if !strings.Contains(only.out.String(), "w=true") {
		t.Errorf("delegated message %q should allow wrap", only.out.String())
	}
}

func TestNavigateUnregisteredPaneFallsThrough(t *testing.T) {
	tab, _, right := twoPaneTab(t, false, false)

	got := tab.Navigate(NavigateRequest{
		Direction: seamless.DirRight,
		Wrap:      seamless.WrapAllow,
		ID:        "req-3",
		Seamless:  SeamlessEnabled,
	})
	if got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved", got)
	}
	if tab.Active() != right.pane {
		t.Fatal("local navigation should proceed when the pane is not registered")
	}
}

func TestSetActiveUpdatesRecency(t *testing.T) {
	tab, left, right := twoPaneTab(t, false, false)

	if panes := tab.Panes(); panes[0] != left.pane {
		t.Fatalf("left pane should start most recent")
	}
	tab.SetActive(right.pane)
	if panes := tab.Panes(); panes[0] != right.pane || panes[1] != left.pane {
		t.Fatal("recency not updated on activation")
	}
	if tab.SetActive(right.pane) {
		t.Fatal("re-activating the active pane should report no change")
	}
}

func TestNavigateNoOpWhileFullScreen(t *testing.T) {
	// Three panes: left column plus a stacked right column. Pane b goes
	// full screen; navigation must not reach c and must not dismiss the
	// full-screen state as a side effect of a focus change.
	a := newTestPane(1, false)
	b := newTestPane(2, false)
	c := newTestPane(3, false)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: a.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 39}},
		{Pane: b.pane, Row: 0, Col: 40, Size: Size{Rows: 11, Cols: 40}},
		{Pane: c.pane, Row: 12, Col: 40, Size: Size{Rows: 12, Cols: 40}},
	}))
	tab.SetActive(a.pane)
	tab.SetFullScreen(b.pane)

	for _, dir := range []seamless.NavigateDirection{seamless.DirLeft, seamless.DirRight, seamless.DirUp, seamless.DirDown} {
		if got := tab.Navigate(NavigateRequest{Direction: dir, Wrap: seamless.WrapAllow}); got != NavigateNone {
			t.Errorf("navigate %v = %v, want none while full screen", dir, got)
		}
		if tab.FullScreen() != b.pane {
			t.Fatalf("navigate %v dismissed the full-screen pane", dir)
		}
		if tab.Active() != b.pane {
			t.Fatalf("navigate %v moved focus off the full-screen pane", dir)
		}
	}

	// With wrap disallowed the collapsed layout always wraps, so the
	// outer requester gets "blocked" rather than a move.
	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirRight, Wrap: seamless.WrapDisallow}); got != NavigateNone {
		t.Errorf("navigate = %v, want none (blocked) while full screen", got)
	}
	if tab.FullScreen() != b.pane {
		t.Fatal("blocked navigation dismissed the full-screen pane")
	}
}

func TestNavigateFullScreenStillDelegates(t *testing.T) {
	// The full-screen pane's application keeps first refusal: with the
	// layout collapsed there is no outer candidate, so delegation goes
	// out with wrap allowed and no reply expected.
	a := newTestPane(1, false)
	b := newTestPane(2, true)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: a.pane, Row: 0, Col: 0, Size: Size{Rows: 24, Cols: 39}},
		{Pane: b.pane, Row: 0, Col: 40, Size: Size{Rows: 24, Cols: 40}},
	}))
	tab.SetFullScreen(b.pane)
	b.out.Reset()

	got := tab.Navigate(NavigateRequest{
		Direction: seamless.DirLeft,
		Wrap:      seamless.WrapAllow,
		ID:        "fs-1",
		Seamless:  SeamlessEnabled,
	})
	if got != NavigateMoved {
		t.Fatalf("navigate = %v, want moved (fire-and-forget delegation)", got)
	}
	if !strings.Contains(b.out.String(), "w=true") {
		t.Errorf("delegated message %q should allow wrap", b.out.String())
	}
	if tab.FullScreen() != b.pane {
		t.Fatal("delegation dismissed the full-screen pane")
	}
}

func TestSetActiveClearsFullScreen(t *testing.T) {
	tab, left, right := twoPaneTab(t, false, false)

	tab.SetFullScreen(left.pane)
	if tab.FullScreen() != left.pane {
		t.Fatal("full screen not set")
	}
	tab.SetActive(right.pane)
	if tab.FullScreen() != nil {
		t.Fatal("full screen should clear when focus moves away")
	}
}

func TestRemovePaneReassignsActive(t *testing.T) {
	tab, left, right := twoPaneTab(t, false, false)

	if !tab.RemovePane(left.pane) {
		t.Fatal("remove failed")
	}
	if tab.Active() != right.pane {
		t.Fatal("activation should fall back to the surviving pane")
	}
	if tab.RemovePane(left.pane) {
		t.Fatal("removing an absent pane should report false")
	}
}

func TestNavigateVerticalSymmetry(t *testing.T) {
	top := newTestPane(1, false)
	bottom := newTestPane(2, false)
	size := Size{Rows: 24, Cols: 80}
	tab := NewTab(1, "main")
	tab.SetLayout(size, NewTree(size, []Entry{
		{Pane: top.pane, Row: 0, Col: 0, Size: Size{Rows: 11, Cols: 80}},
		{Pane: bottom.pane, Row: 12, Col: 0, Size: Size{Rows: 12, Cols: 80}},
	}))
	tab.SetActive(top.pane)

	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirDown, Wrap: seamless.WrapDisallow}); got != NavigateMoved {
		t.Fatalf("navigate down = %v, want moved", got)
	}
	if tab.Active() != bottom.pane {
		t.Fatal("bottom pane should be active")
	}
	if got := tab.Navigate(NavigateRequest{Direction: seamless.DirUp, Wrap: seamless.WrapDisallow}); got != NavigateMoved {
		t.Fatalf("navigate up = %v, want moved", got)
	}
	if tab.Active() != top.pane {
		t.Fatal("top pane should be active again")
	}
}
