package termutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies what a Token carries
type Kind uint8

const (
	// Literal is plain text, including BEL and any bytes recovered from a
	// malformed sequence
	Literal Kind = iota
	// SGR is a Select Graphic Rendition sequence, CSI ... m
	SGR
	// PrivateMode is CSI ? ... h or CSI ? ... l
	PrivateMode
	// OSC is an Operating System Command, ESC ] id ; text
	OSC
	// ScreenMode is CSI = ... and has no observable effect
	ScreenMode
	// CursorControl is a short ESC sequence such as ESC 7 or ESC ( B
	CursorControl
	// Control is any other CSI sequence (cursor movement, erase, ...)
	Control
	// Backspace is a standalone 0x08 outside any sequence
	Backspace
)

var kindNames = [...]string{
	Literal:       "Literal",
	SGR:           "SGR",
	PrivateMode:   "PrivateMode",
	OSC:           "OSC",
	ScreenMode:    "ScreenMode",
	CursorControl: "CursorControl",
	Control:       "Control",
	Backspace:     "Backspace",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Token is one unit of scanner output
type Token struct {
	Kind Kind
	// Text holds the literal text, the OSC payload or the bytes following
	// ESC of a CursorControl sequence
	Text string
	// Params are the numeric parameters. For OSC the single element is the
	// command id
	Params []int
	// Final is the operation byte of a CSI sequence
	Final byte
	// Marker is the private marker following CSI ('?', '=', '<', '>'), or 0
	Marker byte
	// Intermediate holds CSI intermediate bytes (0x20-0x2F)
	Intermediate string
	// Set is true for a PrivateMode 'h', false for 'l'
	Set bool
}

// Text returns a Literal token
func Text(s string) Token {
	return Token{Kind: Literal, Text: s}
}

func (t Token) String() string {
	switch t.Kind {
	case Literal:
		return fmt.Sprintf("Literal(%q)", t.Text)
	case Backspace:
		return "Backspace"
	case OSC:
		return fmt.Sprintf("OSC(%s;%q)", joinParams(t.Params), t.Text)
	case CursorControl:
		return fmt.Sprintf("CursorControl(%q)", t.Text)
	case PrivateMode:
		op := "reset"
		if t.Set {
			op = "set"
		}
		return fmt.Sprintf("PrivateMode(%s,[%s])", op, joinParams(t.Params))
	}
	var b strings.Builder
	b.WriteString(t.Kind.String())
	b.WriteByte('(')
	if t.Marker != 0 {
		b.WriteByte(t.Marker)
	}
	b.WriteByte('[')
	b.WriteString(joinParams(t.Params))
	b.WriteByte(']')
	b.WriteString(t.Intermediate)
	if t.Final != 0 {
		b.WriteByte(t.Final)
	}
	b.WriteByte(')')
	return b.String()
}

func joinParams(params []int) string {
	s := make([]string, len(params))
	for i, p := range params {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ";")
}

// Coalesce merges adjacent Literal tokens and drops empty ones. Two token
// streams describing the same bytes are equal after coalescing, however the
// bytes were chunked.
func Coalesce(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind != Literal {
			out = append(out, tok)
			continue
		}
		if tok.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Kind == Literal {
			out[n-1].Text += tok.Text
			continue
		}
		out = append(out, tok)
	}
	return out
}
