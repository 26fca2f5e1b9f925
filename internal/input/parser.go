package input

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/ansi/parser"

	"github.com/weftmux/weft/internal/seamless"
)

// Parser turns the raw byte stream from the controlling terminal into
// typed input events. It drives an ansi.Parser byte by byte and collects
// events from the handler callbacks; UTF-8 decoding happens inside the
// ansi parser. Sequences the pipeline has no use for are dropped here.
type Parser struct {
	parser *ansi.Parser
	events []Event

	pasting bool
	paste   strings.Builder
}

// NewParser creates a terminal-input parser.
func NewParser() *Parser {
	p := &Parser{}
	p.parser = ansi.NewParser()
	p.parser.SetParamsSize(parser.MaxParamsSize)
	p.parser.SetDataSize(1024 * 64)
	p.parser.SetHandler(ansi.Handler{
		Print:     p.handlePrint,
		Execute:   p.handleControl,
		HandleCsi: p.handleCsi,
		HandleEsc: func(ansi.Cmd) {},
		HandleDcs: p.handleDcs,
		HandleOsc: p.handleOsc,
	})
	return p
}

// Parse consumes a chunk of bytes and returns the events completed by
// it, in stream order. A sequence split across chunks is held until its
// terminator arrives.
func (p *Parser) Parse(data []byte) []Event {
	for _, b := range data {
		p.parser.Advance(b)
	}
	events := p.events
	p.events = nil
	return events
}

func (p *Parser) emit(e Event) {
	p.events = append(p.events, e)
}

func (p *Parser) handlePrint(r rune) {
	if p.pasting {
		p.paste.WriteRune(r)
		return
	}
	if r == 0x7f {
		p.emit(KeyEvent{Key: KeyBackspace})
		return
	}
	p.emit(KeyEvent{Key: KeyRune, Rune: r})
}

func (p *Parser) handleControl(b byte) {
	if p.pasting {
		p.paste.WriteByte(b)
		return
	}
	switch b {
	case '\r':
		p.emit(KeyEvent{Key: KeyEnter})
	case '\t':
		p.emit(KeyEvent{Key: KeyTab})
	case 0x7f:
		p.emit(KeyEvent{Key: KeyBackspace})
	default:
		if b >= 0x01 && b <= 0x1a {
			p.emit(KeyEvent{Key: KeyRune, Rune: rune('a' + b - 1), Mod: ModCtrl})
		}
	}
}

// decodeModifiers unpacks the xterm modifier parameter (value minus one
// is a shift/alt/ctrl bitmask).
func decodeModifiers(param int) Modifiers {
	if param < 2 {
		return 0
	}
	bits := param - 1
	var mod Modifiers
	if bits&1 != 0 {
		mod |= ModShift
	}
	if bits&2 != 0 {
		mod |= ModAlt
	}
	if bits&4 != 0 {
		mod |= ModCtrl
	}
	return mod
}

func (p *Parser) handleCsi(cmd ansi.Cmd, params ansi.Params) {
	switch cmd.Final() {
	case 'A', 'B', 'C', 'D':
		if cmd.Prefix() != 0 {
			return
		}
		mod, _, _ := params.Param(1, 1)
		keys := map[byte]Key{'A': KeyUp, 'B': KeyDown, 'C': KeyRight, 'D': KeyLeft}
		p.emit(KeyEvent{Key: keys[cmd.Final()], Mod: decodeModifiers(mod)})
	case 'H':
		p.emit(KeyEvent{Key: KeyHome})
	case 'F':
		p.emit(KeyEvent{Key: KeyEnd})
	case '~':
		code, _, _ := params.Param(0, 0)
		switch code {
		case 1, 7:
			p.emit(KeyEvent{Key: KeyHome})
		case 4, 8:
			p.emit(KeyEvent{Key: KeyEnd})
		case 5:
			p.emit(KeyEvent{Key: KeyPageUp})
		case 6:
			p.emit(KeyEvent{Key: KeyPageDown})
		case 200:
			p.pasting = true
			p.paste.Reset()
		case 201:
			if p.pasting {
				p.pasting = false
				p.emit(PasteEvent{Text: p.paste.String()})
				p.paste.Reset()
			}
		}
	case 'u':
		code, _, _ := params.Param(0, 0)
		if cmd.Prefix() == '?' {
			p.emit(KeyboardReport{Flags: code})
			return
		}
		// Kitty-protocol key: codepoint, optional modifiers, optional
		// event type (1=press, 2=repeat, 3=release).
		mod, _, _ := params.Param(1, 1)
		evType, _, _ := params.Param(2, 1)
		ev := KeyEvent{Mod: decodeModifiers(mod)}
		switch code {
		case 13:
			ev.Key = KeyEnter
		case 9:
			ev.Key = KeyTab
		case 27:
			ev.Key = KeyEscape
		case 127:
			ev.Key = KeyBackspace
		default:
			ev.Key = KeyRune
			ev.Rune = rune(code)
		}
		switch evType {
		case 2:
			ev.Type = KeyRepeat
		case 3:
			ev.Type = KeyRelease
		}
		p.emit(ev)
	case 'I':
		p.emit(FocusEvent{In: true})
	case 'O':
		p.emit(FocusEvent{In: false})
	case 'M', 'm':
		if cmd.Prefix() == '<' {
			p.handleSgrMouse(cmd.Final() == 'm', params)
		}
	case 'R':
		row, _, _ := params.Param(0, 1)
		col, _, _ := params.Param(1, 1)
		p.emit(CursorPositionReport{Row: row, Col: col})
	case 'c':
		if cmd.Prefix() == '?' {
			attrs := make([]int, 0, len(params))
			for i := range params {
				v, _, ok := params.Param(i, 0)
				if !ok {
					continue
				}
				attrs = append(attrs, v)
			}
			p.emit(PrimaryDeviceAttributes{Params: attrs})
		}
	case 'y':
		if cmd.Prefix() == '?' && cmd.Intermediate() == '$' {
			mode, _, _ := params.Param(0, 0)
			value, _, _ := params.Param(1, 0)
			p.emit(ModeQueryReply{Mode: mode, Value: value})
		}
	}
}

func (p *Parser) handleSgrMouse(release bool, params ansi.Params) {
	b, _, _ := params.Param(0, 0)
	x, _, _ := params.Param(1, 1)
	y, _, _ := params.Param(2, 1)

	ev := MouseEvent{
		// SGR coordinates are 1-indexed.
		Row: y - 1,
		Col: x - 1,
	}
	if b&4 != 0 {
		ev.Mod |= ModShift
	}
	if b&8 != 0 {
		ev.Mod |= ModAlt
	}
	if b&16 != 0 {
		ev.Mod |= ModCtrl
	}
	switch {
	case b&64 != 0:
		if b&3 == 0 {
			ev.Button = MouseWheelUp
		} else {
			ev.Button = MouseWheelDown
		}
	default:
		switch b & 3 {
		case 0:
			ev.Button = MouseLeft
		case 1:
			ev.Button = MouseMiddle
		case 2:
			ev.Button = MouseRight
		}
	}
	switch {
	case b&32 != 0:
		ev.Type = MouseMotion
	case release:
		ev.Type = MouseRelease
	default:
		ev.Type = MousePress
	}
	p.emit(ev)
}

func (p *Parser) handleOsc(cmd int, data []byte) {
	switch cmd {
	case 52:
		body, ok := strings.CutPrefix(string(data), "52;")
		if !ok {
			return
		}
		sel, b64, found := strings.Cut(body, ";")
		if !found || sel == "" {
			return
		}
		p.emit(OSC52Event{Clipboard: sel[0], Data: b64})
	case 8671:
		body, ok := strings.CutPrefix(string(data), "8671;")
		if !ok {
			return
		}
		m, ok := seamless.Parse(body)
		if !ok {
			// Malformed payloads are dropped without disturbing the
			// pipeline.
			return
		}
		p.emit(&OSC8671Event{Message: m})
	}
}

func (p *Parser) handleDcs(cmd ansi.Cmd, params ansi.Params, data []byte) {
	switch {
	case cmd.Final() == 'r' && cmd.Intermediate() == '$':
		p.emit(StatusStringResponse{Data: string(data)})
	case cmd.Final() == 'r' && cmd.Intermediate() == '+':
		p.emit(TerminfoString{Data: string(data)})
	}
}
