// Package seamless implements the OSC 8671 seamless pane-navigation
// protocol: a bidirectional escape sequence that lets an outer terminal
// multiplexer and inner applications (editors, nested multiplexers) share
// a single set of pane-navigation key bindings.
//
// A payload has one or two ';'-separated segments. The first is a
// ':'-separated list of key=value fields (t, id, r, w, h); the second,
// when present, is a bare direction token. The OSC framing itself
// (ESC ] 8671 ; ... ESC \) is added by Serialize and stripped by the
// terminal-input parser before Parse sees the payload.
package seamless

import (
	"strconv"
	"strings"
)

// MaxIDBytes is the maximum length of a request id on the wire.
const MaxIDBytes = 36

// NavigateDirection identifies the axis and sense of a pane move.
// Up/Down move along rows, Left/Right along columns.
type NavigateDirection int

const (
	// DirNone marks the absence of a direction segment.
	DirNone NavigateDirection = iota
	DirLeft
	DirRight
	DirUp
	DirDown
)

// Horizontal reports whether the direction moves along the column axis.
// The perpendicular axis of a horizontal move is rows.
func (d NavigateDirection) Horizontal() bool {
	return d == DirLeft || d == DirRight
}

func (d NavigateDirection) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	}
	return ""
}

func parseDirection(s string) (NavigateDirection, bool) {
	switch s {
	case "left":
		return DirLeft, true
	case "right":
		return DirRight, true
	case "up":
		return DirUp, true
	case "down":
		return DirDown, true
	}
	return DirNone, false
}

// WrapMode states whether the requester permits navigation to cycle back
// around to itself when no neighbor exists in the requested direction.
// Allow implies no reply is needed; Disallow mandates a reply.
type WrapMode int

const (
	WrapDisallow WrapMode = iota
	WrapAllow
)

func (w WrapMode) String() string {
	if w == WrapAllow {
		return "allow"
	}
	return "disallow"
}

// RequestType is the message type carried in the 't' field.
type RequestType int

const (
	RequestSupported RequestType = iota
	RequestRegister
	RequestUnregister
	RequestNavigate
	RequestAcknowledge
	RequestEnter
)

var typeNames = map[RequestType]string{
	RequestSupported:   "supported",
	RequestRegister:    "register",
	RequestUnregister:  "unregister",
	RequestNavigate:    "navigate",
	RequestAcknowledge: "acknowledge",
	RequestEnter:       "enter",
}

func (t RequestType) String() string {
	return typeNames[t]
}

func parseRequestType(s string) (RequestType, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// Range is an inclusive, 1-indexed span on the perpendicular axis of a
// navigation direction. Start >= 1 and Start <= End always hold after
// Parse.
type Range struct {
	Start uint32
	End   uint32
}

// Message is a parsed OSC 8671 payload. The zero value of Direction
// and ID mean "absent"; HasRange reports whether Range is present. Wrap
// defaults to WrapDisallow and HideCursorOnEnter to false. Equality is
// structural.
type Message struct {
	Type              RequestType
	Direction         NavigateDirection
	ID                string
	Range             Range
	HasRange          bool
	Wrap              WrapMode
	HideCursorOnEnter bool
}

// Parse parses the payload between the OSC framing bytes. It returns
// false for any malformed payload: unknown keys, forbidden field
// combinations, inverted or non-positive ranges, oversized ids, and
// missing or extraneous direction segments all fail. No partial result
// is ever returned.
func Parse(data string) (Message, bool) {
	if data == "" {
		return Message{}, false
	}

	parts := strings.Split(data, ";")
	if len(parts) > 2 {
		return Message{}, false
	}

	var (
		m        Message
		typeSet  bool
		wrapSet  bool
		hideSet  bool
		rangeSet bool
	)
	for _, field := range strings.Split(parts[0], ":") {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Message{}, false
		}
		switch key {
		case "w":
			switch value {
			case "true":
				m.Wrap = WrapAllow
			case "false":
				m.Wrap = WrapDisallow
			default:
				return Message{}, false
			}
			wrapSet = true
		case "h":
			switch value {
			case "true":
				m.HideCursorOnEnter = true
			case "false":
				m.HideCursorOnEnter = false
			default:
				return Message{}, false
			}
			hideSet = true
		case "t":
			t, ok := parseRequestType(value)
			if !ok {
				return Message{}, false
			}
			m.Type = t
			typeSet = true
		case "id":
			if len(value) > MaxIDBytes {
				return Message{}, false
			}
			m.ID = value
		case "r":
			r, ok := parseRange(value)
			if !ok {
				return Message{}, false
			}
			m.Range = r
			m.HasRange = true
			rangeSet = true
		default:
			return Message{}, false
		}
	}

	if !typeSet {
		return Message{}, false
	}

	// Field-validity matrix: a field present for a type that forbids it
	// fails the whole payload.
	if rangeSet && m.Type != RequestNavigate && m.Type != RequestEnter {
		return Message{}, false
	}
	if hideSet && m.Type != RequestRegister {
		return Message{}, false
	}
	if wrapSet && m.Type != RequestNavigate && m.Type != RequestAcknowledge {
		return Message{}, false
	}

	// The direction segment is present exactly for the directional types.
	switch m.Type {
	case RequestNavigate, RequestAcknowledge, RequestEnter:
		if len(parts) < 2 {
			return Message{}, false
		}
		d, ok := parseDirection(parts[1])
		if !ok {
			return Message{}, false
		}
		m.Direction = d
	default:
		if len(parts) > 1 {
			return Message{}, false
		}
	}

	return m, true
}

func parseRange(value string) (Range, bool) {
	start, end, found := strings.Cut(value, ",")
	if !found {
		return Range{}, false
	}
	s, err := strconv.ParseUint(start, 10, 32)
	if err != nil {
		return Range{}, false
	}
	e, err := strconv.ParseUint(end, 10, 32)
	if err != nil {
		return Range{}, false
	}
	if s < 1 || e < 1 || e < s {
		return Range{}, false
	}
	return Range{Start: uint32(s), End: uint32(e)}, true
}

// Serialize renders the message with full OSC framing. Field order is
// canonical: t, then w=true only when Allow, then h=true only when set,
// then id, then r, then the direction segment. Defaults are omitted, so
// any message accepted by Parse with no redundant fields round-trips.
func (m Message) Serialize() string {
	var b strings.Builder
	b.WriteString("\x1b]8671;t=")
	b.WriteString(m.Type.String())
	if m.Wrap == WrapAllow {
		b.WriteString(":w=true")
	}
	if m.HideCursorOnEnter {
		b.WriteString(":h=true")
	}
	if m.ID != "" {
		b.WriteString(":id=")
		b.WriteString(m.ID)
	}
	if m.HasRange {
		b.WriteString(":r=")
		b.WriteString(strconv.FormatUint(uint64(m.Range.Start), 10))
		b.WriteString(",")
		b.WriteString(strconv.FormatUint(uint64(m.Range.End), 10))
	}
	if m.Direction != DirNone {
		b.WriteString(";")
		b.WriteString(m.Direction.String())
	}
	b.WriteString("\x1b\\")
	return b.String()
}
