package layout

import (
	"io"
	"sync"

	"github.com/weftmux/weft/internal/seamless"
)

// Hooks is the capability interface a pane reports its lifecycle through.
// The input package's PaneHooks routes each event to its consumer:
// exit/update/selection to the render thread, seamless replies to the
// input pipeline, and cwd updates to the layout saver.
type Hooks interface {
	// DidExit fires when the pane's process terminates.
	DidExit(p *Pane)
	// DidUpdate fires when the pane's content changed and a render is
	// warranted.
	DidUpdate(p *Pane)
	// DidSelection fires when the pane's application set the clipboard.
	DidSelection(p *Pane, data string, manual bool)
	// DidReceiveSeamlessNavigation fires when the pane's application sent
	// an OSC 8671 Navigate or Acknowledge upward.
	DidReceiveSeamlessNavigation(m seamless.Message)
	// DidUpdateCwd fires when the pane's working directory changed.
	DidUpdateCwd(p *Pane, cwd string)
}

// NopHooks is a Hooks implementation that ignores every event.
type NopHooks struct{}

func (NopHooks) DidExit(*Pane)                                {}
func (NopHooks) DidUpdate(*Pane)                              {}
func (NopHooks) DidSelection(*Pane, string, bool)             {}
func (NopHooks) DidReceiveSeamlessNavigation(seamless.Message) {}
func (NopHooks) DidUpdateCwd(*Pane, string)                   {}

// Pane is the stable identity of one pane in a tab. The pane's process
// and terminal emulation live elsewhere; the navigation core only needs
// its id, a writer towards the application, its protocol registration
// state, and the hooks its I/O task reports through.
type Pane struct {
	id    uint64
	app   io.Writer
	hooks Hooks

	mu  sync.Mutex
	reg seamless.RegistrationState
	cwd string
}

// NewPane creates a pane. app is the byte sink towards the pane's
// application (its PTY input); hooks may be nil.
func NewPane(id uint64, app io.Writer, hooks Hooks) *Pane {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Pane{id: id, app: app, hooks: hooks}
}

// ID returns the pane's identifier.
func (p *Pane) ID() uint64 {
	return p.id
}

// Registration returns the protocol registration of the application's
// active screen buffer.
func (p *Pane) Registration() seamless.Registration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reg.Current()
}

// SetActiveBuffer records a primary/alternate screen buffer switch.
func (p *Pane) SetActiveBuffer(buf seamless.ScreenBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reg.SetActiveBuffer(buf)
}

// ResetRegistration restores protocol defaults on both screen buffers.
// Called on hard or soft terminal reset of the pane.
func (p *Pane) ResetRegistration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reg.Reset()
}

// SeamlessNavigate delivers a Navigate or Enter message to the pane's
// application. It reports whether the application is registered for the
// protocol on its active screen buffer and the message was written.
func (p *Pane) SeamlessNavigate(m seamless.Message) bool {
	if !p.Registration().Registered {
		return false
	}
	_, err := io.WriteString(p.app, m.Serialize())
	return err == nil
}

// NotifyApplicationMessage processes an OSC 8671 message emitted by the
// pane's application. Registration bookkeeping is handled here; Navigate
// and Acknowledge are forwarded to the hooks for correlation against the
// pending request queue. Called from the pane's I/O task.
func (p *Pane) NotifyApplicationMessage(m seamless.Message) {
	switch m.Type {
	case seamless.RequestSupported:
		reply := seamless.Message{Type: seamless.RequestSupported}
		_, _ = io.WriteString(p.app, reply.Serialize())
	case seamless.RequestRegister:
		p.mu.Lock()
		p.reg.Register(m.HideCursorOnEnter)
		p.mu.Unlock()
	case seamless.RequestUnregister:
		p.mu.Lock()
		p.reg.Unregister()
		p.mu.Unlock()
	case seamless.RequestNavigate, seamless.RequestAcknowledge:
		p.hooks.DidReceiveSeamlessNavigation(m)
	}
}

// Focus forwards a focus change to the application.
func (p *Pane) Focus(in bool) {
	if in {
		_, _ = io.WriteString(p.app, "\x1b[I")
	} else {
		_, _ = io.WriteString(p.app, "\x1b[O")
	}
}

// Paste forwards pasted text to the application, bracketed.
func (p *Pane) Paste(text string) {
	_, _ = io.WriteString(p.app, "\x1b[200~"+text+"\x1b[201~")
}

// SendText forwards raw input bytes to the application.
func (p *Pane) SendText(text string) error {
	_, err := io.WriteString(p.app, text)
	return err
}

// SetCwd records the application's reported working directory.
func (p *Pane) SetCwd(cwd string) {
	p.mu.Lock()
	p.cwd = cwd
	p.mu.Unlock()
	p.hooks.DidUpdateCwd(p, cwd)
}

// Cwd returns the last reported working directory.
func (p *Pane) Cwd() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cwd
}

// Exit reports pane termination through the hooks.
func (p *Pane) Exit() {
	p.hooks.DidExit(p)
}
