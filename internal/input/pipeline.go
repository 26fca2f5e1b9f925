package input

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/weftmux/weft/internal/layout"
	"github.com/weftmux/weft/internal/render"
	"github.com/weftmux/weft/internal/seamless"
)

// ReplyTimeout is how long a delegated Navigate may go unanswered
// before the pipeline falls through to local navigation.
const ReplyTimeout = 200 * time.Millisecond

// InputMode is the pipeline's key-dispatch mode.
type InputMode int

const (
	ModeInsert InputMode = iota
	ModeNormal
)

func (m InputMode) String() string {
	if m == ModeNormal {
		return "normal"
	}
	return "insert"
}

// Action is a key-bind handler.
type Action func(p *Pipeline)

// KeyBind maps a key in a mode to an action. A bind with Key == KeyNone
// matches any key in its mode.
type KeyBind struct {
	Mode     InputMode
	Key      Key
	Rune     rune
	Mod      Modifiers
	Action   Action
	NextMode InputMode
}

func (b KeyBind) matches(mode InputMode, ev KeyEvent) bool {
	if b.Mode != mode {
		return false
	}
	if b.Key == KeyNone {
		return true
	}
	if ev.Type == KeyRelease {
		return false
	}
	if ev.Mod&^LockModifiers != b.Mod {
		return false
	}
	if b.Key != ev.Key {
		return false
	}
	return b.Key != KeyRune || b.Rune == ev.Rune
}

// Pipeline is the input thread: it reads bytes from the controlling
// terminal, parses them into events, and dispatches the pending queue.
// Events are delivered strictly in order, except that an in-flight
// delegated Navigate holds everything behind it until its reply or
// timeout — a keystroke typed right after a navigation must land in the
// pane that wins, not the one that lost.
type Pipeline struct {
	src    io.ReadWriter
	parser *Parser
	queue  *pendingQueue
	state  *layout.State
	render *render.Thread
	coord  *Coordinator
	logger *log.Logger

	binds   []KeyBind
	mode    InputMode
	timeout time.Duration
	done    atomic.Bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewPipeline creates an input pipeline reading from src. src must also
// accept writes: shutdown writes a device-attributes query so the
// terminal's reply unblocks the read.
func NewPipeline(src io.ReadWriter, state *layout.State, renderThread *render.Thread, binds []KeyBind, logger *log.Logger) *Pipeline {
	return &Pipeline{
		src:     src,
		parser:  NewParser(),
		queue:   &pendingQueue{},
		state:   state,
		render:  renderThread,
		coord:   NewCoordinator(state, renderThread, logger),
		logger:  logger,
		binds:   binds,
		mode:    ModeInsert,
		timeout: ReplyTimeout,
		now:     time.Now,
	}
}

// SetReplyTimeout overrides the Navigate reply window.
func (p *Pipeline) SetReplyTimeout(d time.Duration) {
	p.timeout = d
}

// Mode returns the current input mode.
func (p *Pipeline) Mode() InputMode {
	return p.mode
}

// Run is the input thread's read loop. It blocks on the byte source;
// call it on its own goroutine.
func (p *Pipeline) Run() {
	defer func() {
		p.render.RequestExit()
		p.done.Store(true)
	}()

	buf := make([]byte, 4096)
	for !p.done.Load() {
		n, err := p.src.Read(buf)
		if err != nil || p.done.Load() {
			return
		}
		now := p.now()
		for _, ev := range p.parser.Parse(buf[:n]) {
			p.queue.pushBack(pendingEvent{event: ev, receptionTime: now, state: entryFresh})
		}
		p.processPending()
	}
}

// RequestExit asks the pipeline to stop. The byte-source read is
// unblocked by writing a benign device-attributes query; the terminal's
// reply wakes the reader.
func (p *Pipeline) RequestExit() {
	if !p.done.Swap(true) {
		_, _ = io.WriteString(p.src, "\x1b[c")
	}
}

// RequestNavigate injects a local navigation request, as from a key
// bind. The event goes to the front of the queue: the injection happens
// while an earlier key event is being processed and logically replaces
// it. Wrap is allowed because at the outermost layer there is no one
// left to punt to.
func (p *Pipeline) RequestNavigate(dir seamless.NavigateDirection) {
	p.queue.pushFront(pendingEvent{
		event: &OSC8671Event{Message: seamless.Message{
			Type:      seamless.RequestNavigate,
			Direction: dir,
			ID:        uuid.NewString(),
			Wrap:      seamless.WrapAllow,
		}},
		receptionTime: p.now(),
		state:         entryFresh,
	})
}

// NotifyReply delivers an OSC 8671 reply from a pane's application.
// Correlation is against the current head of the queue only: a stale or
// mismatched reply is dropped silently. An Acknowledge resolves the
// pending request; a Navigate punt forces an immediate timeout so the
// dispatch loop re-handles the request locally, using the range the
// application supplied.
func (p *Pipeline) NotifyReply(m seamless.Message) {
	if m.Type != seamless.RequestNavigate && m.Type != seamless.RequestAcknowledge {
		return
	}

	matched := false
	p.queue.withFront(func(e *pendingEvent) bool {
		o, ok := e.event.(*OSC8671Event)
		if !ok || o.Message.ID != m.ID || m.ID == "" {
			return false
		}
		matched = true
		if m.Type == seamless.RequestAcknowledge {
			return true
		}
		e.receptionTime = time.Time{}
		o.Message.Range = m.Range
		o.Message.HasRange = m.HasRange
		return false
	})
	if matched {
		p.processPending()
	}
}

// processPending runs the dispatch loop: pop the head, time out stale
// waiting entries, stop at a still-waiting head, and dispatch fresh
// entries until one refuses to complete.
func (p *Pipeline) processPending() {
	for !p.done.Load() {
		e, ok := p.queue.popFront()
		if !ok {
			return
		}

		if e.state == entryWaiting {
			if p.now().After(e.receptionTime.Add(p.timeout)) {
				p.handle(e.event, true)
				continue
			}
			// Still inside the reply window; put it back and wait. The
			// head position is restored so nothing behind it reorders.
			p.queue.pushFront(e)
			return
		}

		if !p.handle(e.event, false) {
			e.state = entryWaiting
			p.queue.pushFront(e)
			return
		}
	}
}

// handle dispatches one event. It returns false only when the event
// must stay pending; every handler except the OSC 8671 coordinator
// completes in one step.
func (p *Pipeline) handle(ev Event, didTimeout bool) bool {
	switch ev := ev.(type) {
	case KeyEvent:
		p.handleKey(ev)
	case MouseEvent:
		p.handleMouse(ev)
	case FocusEvent:
		p.state.With(func(st *layout.State) {
			if pane := st.ActivePane(); pane != nil {
				pane.Focus(ev.In)
			}
		})
	case PasteEvent:
		p.state.With(func(st *layout.State) {
			if pane := st.ActivePane(); pane != nil {
				pane.Paste(ev.Text)
			}
		})
	case OSC52Event:
		p.render.PushEvent(render.ClipboardRequest{
			Clipboard: ev.Clipboard,
			Data:      ev.Data,
			Reply:     true,
		})
	case *OSC8671Event:
		return p.coord.Handle(&ev.Message, didTimeout)
	default:
		// Inert protocol replies: structurally recognized, ignored.
	}
	return true
}

func (p *Pipeline) handleKey(ev KeyEvent) {
	for _, bind := range p.binds {
		if !bind.matches(p.mode, ev) {
			continue
		}
		if bind.Action != nil {
			bind.Action(p)
		}
		p.setMode(bind.NextMode)
		return
	}

	// Unbound keys in insert mode belong to the active pane.
	if p.mode == ModeInsert && ev.Type != KeyRelease {
		if text := encodeKey(ev); text != "" {
			p.state.With(func(st *layout.State) {
				if pane := st.ActivePane(); pane != nil {
					if err := pane.SendText(text); err != nil {
						p.logger.Error("failed to forward key to pane", "err", err)
					}
				}
			})
		}
	}
}

func (p *Pipeline) handleMouse(ev MouseEvent) {
	p.state.With(func(st *layout.State) {
		tab := st.ActiveTab()
		if tab == nil || tab.Tree() == nil {
			return
		}
		entry, ok := tab.Tree().HitTest(ev.Row, ev.Col)
		if !ok {
			return
		}
		if ev.Type == MousePress && tab.SetActive(entry.Pane) {
			p.render.RequestRender()
		}
	})
}

func (p *Pipeline) setMode(m InputMode) {
	if p.mode == m {
		return
	}
	p.mode = m
	p.render.PushEvent(render.InputStatus{Mode: m.String()})
}

// encodeKey renders a key event back into the byte sequence a terminal
// would produce for it.
func encodeKey(ev KeyEvent) string {
	switch ev.Key {
	case KeyRune:
		if ev.Mod&ModCtrl != 0 && ev.Rune >= 'a' && ev.Rune <= 'z' {
			return string(rune(ev.Rune - 'a' + 1))
		}
		return string(ev.Rune)
	case KeyEnter:
		return "\r"
	case KeyTab:
		return "\t"
	case KeyEscape:
		return "\x1b"
	case KeyBackspace:
		return "\x7f"
	case KeyUp:
		return "\x1b[A"
	case KeyDown:
		return "\x1b[B"
	case KeyRight:
		return "\x1b[C"
	case KeyLeft:
		return "\x1b[D"
	case KeyHome:
		return "\x1b[H"
	case KeyEnd:
		return "\x1b[F"
	case KeyPageUp:
		return "\x1b[5~"
	case KeyPageDown:
		return "\x1b[6~"
	}
	return ""
}
