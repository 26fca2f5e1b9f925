package input

import (
	"github.com/weftmux/weft/internal/layout"
	"github.com/weftmux/weft/internal/render"
	"github.com/weftmux/weft/internal/seamless"
)

// LayoutNotifier receives persistence notifications. Implemented by the
// layout saver.
type LayoutNotifier interface {
	Notify()
}

// PaneHooks wires a pane's lifecycle events to the threads that consume
// them: seamless replies to the input pipeline, cwd updates to the
// layout saver, everything else to the render thread.
type PaneHooks struct {
	Pipeline *Pipeline
	Render   *render.Thread
	Tab      *layout.Tab
	Saver    LayoutNotifier
}

// DidExit forwards pane termination to the render thread.
func (h PaneHooks) DidExit(p *layout.Pane) {
	h.Render.PushEvent(render.PaneExited{Tab: h.Tab, Pane: p})
}

// DidUpdate requests a redraw for changed pane content.
func (h PaneHooks) DidUpdate(*layout.Pane) {
	h.Render.RequestRender()
}

// DidSelection forwards an application clipboard write to the
// controlling terminal.
func (h PaneHooks) DidSelection(_ *layout.Pane, data string, _ bool) {
	h.Render.PushEvent(render.ClipboardRequest{Clipboard: 'c', Data: data})
}

// DidReceiveSeamlessNavigation correlates an application's reply with
// the pending request queue.
func (h PaneHooks) DidReceiveSeamlessNavigation(m seamless.Message) {
	h.Pipeline.NotifyReply(m)
}

// DidUpdateCwd schedules a layout snapshot so the directory survives a
// restart.
func (h PaneHooks) DidUpdateCwd(*layout.Pane, string) {
	if h.Saver != nil {
		h.Saver.Notify()
	}
}
