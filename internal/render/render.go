// Package render implements the render thread's inbound event queue.
// The input thread never touches the outbound terminal directly: it
// pushes events here and the render goroutine applies them, so input
// handlers never block on I/O.
package render

import (
	"io"
	"sync/atomic"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"

	"github.com/weftmux/weft/internal/layout"
)

// Event is the closed sum of events the render thread consumes.
type Event interface {
	isRenderEvent()
}

// WriteString writes raw bytes (usually a serialized escape sequence)
// to the controlling terminal.
type WriteString struct {
	Data string
}

// RequestRender asks for a redraw of the current layout.
type RequestRender struct{}

// InputStatus reports an input-mode change for the status line.
type InputStatus struct {
	Mode string
}

// ClipboardRequest passes an OSC 52 clipboard operation through to the
// controlling terminal. Reply is set when the requester expects the
// terminal's response to be forwarded back.
type ClipboardRequest struct {
	Clipboard byte
	Data      string
	Reply     bool
}

// PaneExited reports that a pane's process terminated.
type PaneExited struct {
	Tab  *layout.Tab
	Pane *layout.Pane
}

func (WriteString) isRenderEvent()      {}
func (RequestRender) isRenderEvent()    {}
func (InputStatus) isRenderEvent()      {}
func (ClipboardRequest) isRenderEvent() {}
func (PaneExited) isRenderEvent()       {}

// Renderer draws the layout. The actual drawing lives outside this
// core; tests install a stub.
type Renderer interface {
	Render()
}

// Thread consumes render events from a buffered queue. Pushes are
// non-blocking: when the queue is full the event is dropped with a
// warning, which for human-scale input traffic never happens in
// practice.
type Thread struct {
	out      io.Writer
	renderer Renderer
	logger   *log.Logger

	events  chan Event
	done    chan struct{}
	stopped atomic.Bool

	statusStyle lipgloss.Style

	// OnPaneExited is invoked on the render goroutine when a pane's
	// process terminates, letting the session layer re-layout.
	OnPaneExited func(tab *layout.Tab, pane *layout.Pane)
}

// NewThread creates a render thread writing to out. renderer may be
// nil.
func NewThread(out io.Writer, renderer Renderer, logger *log.Logger) *Thread {
	return &Thread{
		out:         out,
		renderer:    renderer,
		logger:      logger,
		events:      make(chan Event, 256),
		done:        make(chan struct{}),
		statusStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	}
}

// PushEvent enqueues an event without blocking.
func (t *Thread) PushEvent(e Event) {
	select {
	case t.events <- e:
	default:
		t.logger.Warn("render queue full, dropping event")
	}
}

// RequestRender enqueues a redraw.
func (t *Thread) RequestRender() {
	t.PushEvent(RequestRender{})
}

// RequestExit stops the render thread after the queue drains.
func (t *Thread) RequestExit() {
	if !t.stopped.Swap(true) {
		close(t.done)
	}
}

// Run consumes events until RequestExit.
func (t *Thread) Run() {
	for {
		select {
		case e := <-t.events:
			t.handle(e)
		case <-t.done:
			// Drain whatever was queued before the exit request.
			for {
				select {
				case e := <-t.events:
					t.handle(e)
				default:
					return
				}
			}
		}
	}
}

func (t *Thread) handle(e Event) {
	switch e := e.(type) {
	case WriteString:
		if _, err := io.WriteString(t.out, e.Data); err != nil {
			t.logger.Error("failed to write to terminal", "err", err)
		}
	case RequestRender:
		// Coalesce bursts: a redraw covers every queued request.
		for {
			select {
			case next := <-t.events:
				if _, ok := next.(RequestRender); ok {
					continue
				}
				t.render()
				t.handle(next)
				return
			default:
				t.render()
				return
			}
		}
	case InputStatus:
		t.logger.Debug("input mode changed", "mode", e.Mode)
		t.render()
	case ClipboardRequest:
		// OSC 52 passthrough: re-frame and forward to the controlling
		// terminal.
		seq := "\x1b]52;" + string(e.Clipboard) + ";" + e.Data + "\x1b\\"
		if _, err := io.WriteString(t.out, seq); err != nil {
			t.logger.Error("failed to forward clipboard request", "err", err)
		}
	case PaneExited:
		t.logger.Debug("pane exited", "pane", e.Pane.ID())
		if t.OnPaneExited != nil {
			t.OnPaneExited(e.Tab, e.Pane)
		}
		t.render()
	}
}

func (t *Thread) render() {
	if t.renderer != nil {
		t.renderer.Render()
	}
}

// StatusLine formats the input-mode indicator for the status bar.
func (t *Thread) StatusLine(mode string) string {
	return t.statusStyle.Render("-- " + mode + " --")
}
