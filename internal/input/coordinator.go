package input

import (
	"github.com/charmbracelet/log"

	"github.com/weftmux/weft/internal/layout"
	"github.com/weftmux/weft/internal/render"
	"github.com/weftmux/weft/internal/seamless"
)

// Coordinator decides how each OSC 8671 message affects the pane tree:
// navigate locally, delegate to the focused pane's application, or
// reply upward. It holds the layout lock only around navigator calls.
type Coordinator struct {
	state  *layout.State
	render *render.Thread
	logger *log.Logger
}

// NewCoordinator creates a coordinator over the given layout state.
func NewCoordinator(state *layout.State, renderThread *render.Thread, logger *log.Logger) *Coordinator {
	return &Coordinator{state: state, render: renderThread, logger: logger}
}

// Handle processes one OSC 8671 event from the dispatch loop. It
// reports whether the event is done; false leaves it pending at the
// head of the queue awaiting a reply or the timeout. didTimeout is set
// when the event's reply window has already expired, which disables
// further delegation.
func (c *Coordinator) Handle(m *seamless.Message, didTimeout bool) bool {
	switch m.Type {
	case seamless.RequestEnter:
		c.handleEnter(*m)
		return true
	case seamless.RequestNavigate:
		return c.handleNavigate(m, didTimeout)
	default:
		// Supported echoes and registration flow through the pane I/O
		// side; anything else arriving on the controlling terminal is
		// informational and needs nothing from us.
		return true
	}
}

// handleEnter focuses the pane matching the entry edge. Enter is
// informational: wrap is forced on (the sender already decided the
// surface wraps) and no reply is sent.
func (c *Coordinator) handleEnter(m seamless.Message) {
	c.state.With(func(st *layout.State) {
		tab := st.ActiveTab()
		if tab == nil {
			return
		}
		span := layout.Span{Start: 0}
		if m.Direction.Horizontal() {
			span.End = st.Size().Rows
		} else {
			span.End = st.Size().Cols
		}
		if m.HasRange {
			span = layout.Span{Start: int(m.Range.Start) - 1, End: int(m.Range.End)}
		}
		tab.Navigate(layout.NavigateRequest{
			Direction: m.Direction,
			Wrap:      seamless.WrapAllow,
			Override:  &span,
			Seamless:  layout.SeamlessDisabled,
			ForceWrap: true,
		})
		// Always redraw after an enter, whether or not focus moved.
		c.render.RequestRender()
	})
}

func (c *Coordinator) handleNavigate(m *seamless.Message, didTimeout bool) bool {
	mode := layout.SeamlessEnabled
	if didTimeout {
		mode = layout.SeamlessDisabled
	}

	outcome := layout.NavigateNone
	handled := true
	c.state.With(func(st *layout.State) {
		tab := st.ActiveTab()
		if tab == nil {
			return
		}
		if tab.Tree() == nil || tab.Active() == nil {
			return
		}

		outcome = tab.Navigate(layout.NavigateRequest{
			Direction: m.Direction,
			Wrap:      m.Wrap,
			ID:        m.ID,
			Override:  c.translateRange(tab, m),
			Seamless:  mode,
		})
	})

	if outcome == layout.NavigateMoved {
		c.render.RequestRender()
	}
	if outcome == layout.NavigatePending {
		handled = false
		return handled
	}

	if m.Wrap == seamless.WrapDisallow {
		// The requester mandated a reply. Acknowledge a completed move;
		// otherwise pass the Navigate through so the next outer layer
		// takes over.
		reply := *m
		if outcome == layout.NavigateMoved {
			reply.Type = seamless.RequestAcknowledge
			reply.Range = seamless.Range{}
			reply.HasRange = false
		}
		c.render.PushEvent(render.WriteString{Data: reply.Serialize()})
	}
	return handled
}

// translateRange converts an application-reported edge range from
// application-local cells to tree cells by adding the active pane's
// perpendicular-axis origin. The range is clamped to the pane's extent
// first: after a resize the application may still report coordinates
// from its old, larger size.
func (c *Coordinator) translateRange(tab *layout.Tab, m *seamless.Message) *layout.Span {
	if !m.HasRange {
		return nil
	}
	// Parse rejects start < 1, but this code must never underflow even
	// if a constructor bypassed it.
	if m.Range.Start < 1 {
		c.logger.Error("navigate range with non-positive start", "start", m.Range.Start)
		return nil
	}
	entry, ok := tab.Tree().FindPane(tab.Active())
	if !ok {
		c.logger.Error("active pane missing from layout tree")
		return nil
	}
	limit := entry.Size.Rows
	base := entry.Row
	if !m.Direction.Horizontal() {
		limit = entry.Size.Cols
		base = entry.Col
	}
	return &layout.Span{
		Start: base + min(int(m.Range.Start)-1, limit),
		End:   base + min(int(m.Range.End), limit),
	}
}
