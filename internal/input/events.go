// Package input implements the input side of the multiplexer: the raw
// TTY byte source, the terminal-input parser, the pending-event queue,
// the dispatch pipeline, and the seamless-navigation coordinator.
package input

import "github.com/weftmux/weft/internal/seamless"

// Event is the closed sum of input events the pipeline dispatches. Each
// variant gets one dispatcher arm; only OSC 8671 events can be left
// pending.
type Event interface {
	isEvent()
}

// KeyEventType distinguishes press, repeat, and release.
type KeyEventType int

const (
	KeyPress KeyEventType = iota
	KeyRepeat
	KeyRelease
)

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
	// Lock modifiers are reported by some terminals but never take part
	// in key-bind matching.
	ModCapsLock
	ModNumLock
)

// LockModifiers masks the modifiers ignored during bind matching.
const LockModifiers = ModCapsLock | ModNumLock

// Key identifies a non-text key, or holds the rune for text keys.
type Key int

const (
	KeyNone Key = iota
	KeyRune
	KeyEnter
	KeyTab
	KeyEscape
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

// KeyEvent is a decoded keyboard event.
type KeyEvent struct {
	Key  Key
	Rune rune // set when Key == KeyRune
	Mod  Modifiers
	Type KeyEventType
}

// MouseEventType distinguishes press, release, and motion.
type MouseEventType int

const (
	MousePress MouseEventType = iota
	MouseRelease
	MouseMotion
)

// MouseButton identifies the mouse button of an event.
type MouseButton int

const (
	MouseNone MouseButton = iota
	MouseLeft
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
)

// MouseEvent is a decoded SGR mouse event, 0-indexed screen cells.
type MouseEvent struct {
	Row    int
	Col    int
	Button MouseButton
	Type   MouseEventType
	Mod    Modifiers
}

// FocusEvent reports terminal focus changes.
type FocusEvent struct {
	In bool
}

// PasteEvent carries a bracketed paste.
type PasteEvent struct {
	Text string
}

// OSC52Event is a clipboard escape from the controlling terminal,
// passed through to the render thread as a clipboard request.
type OSC52Event struct {
	Clipboard byte
	Data      string
}

// OSC8671Event is a seamless-navigation message from the controlling
// terminal (or injected locally by a key bind). Held by pointer so the
// coordinator can update the range on a delegated reply.
type OSC8671Event struct {
	Message seamless.Message
}

// The inert protocol replies. The pipeline recognizes them so they do
// not corrupt the event stream, and drops them.

// PrimaryDeviceAttributes is the DA1 reply (also used as the shutdown
// wakeup).
type PrimaryDeviceAttributes struct {
	Params []int
}

// ModeQueryReply is a DECRPM reply.
type ModeQueryReply struct {
	Mode  int
	Value int
}

// CursorPositionReport is a CPR reply.
type CursorPositionReport struct {
	Row int
	Col int
}

// KeyboardReport is a kitty keyboard-protocol flags report.
type KeyboardReport struct {
	Flags int
}

// StatusStringResponse is a DECRQSS reply.
type StatusStringResponse struct {
	Data string
}

// TerminfoString is an XTGETTCAP reply.
type TerminfoString struct {
	Data string
}

func (KeyEvent) isEvent()                {}
func (MouseEvent) isEvent()              {}
func (FocusEvent) isEvent()              {}
func (PasteEvent) isEvent()              {}
func (OSC52Event) isEvent()              {}
func (*OSC8671Event) isEvent()           {}
func (PrimaryDeviceAttributes) isEvent() {}
func (ModeQueryReply) isEvent()          {}
func (CursorPositionReport) isEvent()    {}
func (KeyboardReport) isEvent()          {}
func (StatusStringResponse) isEvent()    {}
func (TerminfoString) isEvent()          {}
