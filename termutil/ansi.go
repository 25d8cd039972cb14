package termutil

import "unicode/utf8"

// https://www.man7.org/linux/man-pages/man4/console_codes.4.html
// https://gist.github.com/fnky/458719343aabd01cfb17a3a4f7296797

const (
	esc = 0x1b
	bel = 0x07
	bs  = 0x08

	// sequences longer than this are treated as garbage
	maxSequenceLen = 4096
	maxParam       = 65535
)

type scanState uint8

const (
	stateGround scanState = iota
	stateEscape
	stateEscapeIntermediate
	stateCSIEntry
	stateCSIParam
	stateCSIIntermediate
	stateOSCID
	stateOSCString
	stateOSCEscape
)

// Carry is the scanner state left over at the end of a chunk: an escape
// sequence that has not been terminated yet, or the leading bytes of a UTF-8
// rune. It must be passed to the next call of Scan. The zero value is an
// empty carry.
type Carry struct {
	state scanState
	// raw holds every byte of the pending sequence, starting with ESC
	raw    []byte
	params []int
	param  int
	digits bool
	sep    bool
	marker byte
	inter  []byte
	osc    []byte

	// leading bytes of a UTF-8 rune, only while in the ground state
	partial []byte
}

// Empty reports whether the carry holds no pending bytes
func (c Carry) Empty() bool {
	return c.state == stateGround && len(c.partial) == 0
}

// Pending returns the raw bytes held by the carry
func (c Carry) Pending() []byte {
	if c.state != stateGround {
		return append([]byte(nil), c.raw...)
	}
	return append([]byte(nil), c.partial...)
}

func (c Carry) clone() Carry {
	c.raw = append([]byte(nil), c.raw...)
	c.params = append([]int(nil), c.params...)
	c.inter = append([]byte(nil), c.inter...)
	c.osc = append([]byte(nil), c.osc...)
	c.partial = append([]byte(nil), c.partial...)
	return c
}

// Scan tokenizes data, continuing from carry. It returns the tokens found and
// the carry to pass to the next call. Feeding a stream in one call or in many
// produces the same tokens once adjacent literals are coalesced.
func Scan(data []byte, carry Carry) ([]Token, Carry) {
	s := scanner{Carry: carry.clone()}
	if len(s.partial) > 0 {
		data = append(s.partial, data...)
		s.partial = nil
	}
	for _, b := range data {
		for !s.consume(b) {
		}
	}
	s.flushLiteral(true)
	return s.tokens, s.Carry
}

// Flush returns whatever carry still holds as literal text. It is used once
// the stream has ended and the pending sequence can never be terminated.
func Flush(carry Carry) []Token {
	pending := carry.Pending()
	if len(pending) == 0 {
		return nil
	}
	return []Token{Text(string(pending))}
}

// Scanner threads a Carry between successive calls
type Scanner struct {
	carry Carry
}

// Scan tokenizes the next chunk of the stream
func (s *Scanner) Scan(data []byte) []Token {
	tokens, carry := Scan(data, s.carry)
	s.carry = carry
	return tokens
}

// Flush ends the stream, returning any pending bytes as literal text
func (s *Scanner) Flush() []Token {
	tokens := Flush(s.carry)
	s.carry = Carry{}
	return tokens
}

// Carry returns the current carry
func (s *Scanner) Carry() Carry {
	return s.carry
}

type scanner struct {
	Carry
	tokens []Token
	lit    []byte
}

// consume processes one byte. It returns false when the byte was not used
// and has to be fed again, which happens after recovering from a malformed
// sequence.
func (s *scanner) consume(b byte) bool {
	if s.state == stateGround {
		switch b {
		case esc:
			s.flushLiteral(false)
			s.begin()
		case bs:
			s.flushLiteral(false)
			s.emit(Token{Kind: Backspace})
		default:
			s.lit = append(s.lit, b)
		}
		return true
	}

	if len(s.raw) >= maxSequenceLen {
		return s.abort()
	}

	switch s.state {
	case stateEscape:
		switch {
		case b == '[':
			s.state = stateCSIEntry
		case b == ']':
			s.state = stateOSCID
		case isIntermediate(b):
			s.inter = append(s.inter, b)
			s.state = stateEscapeIntermediate
		case b >= 0x30 && b <= 0x7e:
			s.raw = append(s.raw, b)
			s.finishEscape()
			return true
		default:
			return s.abort()
		}

	case stateEscapeIntermediate:
		switch {
		case isIntermediate(b):
			s.inter = append(s.inter, b)
		case b >= 0x30 && b <= 0x7e:
			s.raw = append(s.raw, b)
			s.finishEscape()
			return true
		default:
			return s.abort()
		}

	case stateCSIEntry:
		s.state = stateCSIParam
		switch b {
		case '?', '=', '<', '>':
			s.marker = b
		default:
			return false
		}

	case stateCSIParam:
		switch {
		case b >= '0' && b <= '9':
			s.param = min(s.param*10+int(b-'0'), maxParam)
			s.digits = true
		case b == ';' || b == ':':
			s.params = append(s.params, s.param)
			s.param, s.digits, s.sep = 0, false, true
		case isIntermediate(b):
			s.inter = append(s.inter, b)
			s.state = stateCSIIntermediate
		case isFinal(b):
			s.raw = append(s.raw, b)
			s.finishCSI(b)
			return true
		default:
			return s.abort()
		}

	case stateCSIIntermediate:
		switch {
		case isIntermediate(b):
			s.inter = append(s.inter, b)
		case isFinal(b):
			s.raw = append(s.raw, b)
			s.finishCSI(b)
			return true
		default:
			return s.abort()
		}

	case stateOSCID:
		switch {
		case b >= '0' && b <= '9':
			s.param = min(s.param*10+int(b-'0'), maxParam)
			s.digits = true
		case b == ';' && s.digits:
			s.state = stateOSCString
		case b == bel && s.digits:
			s.raw = append(s.raw, b)
			s.finishOSC()
			return true
		case b == esc && s.digits:
			s.state = stateOSCEscape
		default:
			return s.abort()
		}

	case stateOSCString:
		switch {
		case b == bel:
			s.raw = append(s.raw, b)
			s.finishOSC()
			return true
		case b == esc:
			s.state = stateOSCEscape
		case b < 0x20 || b == 0x7f:
			return s.abort()
		default:
			s.osc = append(s.osc, b)
		}

	case stateOSCEscape:
		if b == '\\' {
			s.raw = append(s.raw, b)
			s.finishOSC()
			return true
		}
		// the ESC did not start a string terminator, so it starts a new
		// sequence and the unterminated OSC is text
		s.lit = append(s.lit, s.raw[:len(s.raw)-1]...)
		s.reset()
		s.flushLiteral(false)
		s.begin()
		return false
	}

	s.raw = append(s.raw, b)
	return true
}

func isIntermediate(b byte) bool {
	return b >= 0x20 && b <= 0x2f
}

func isFinal(b byte) bool {
	return b >= 0x40 && b <= 0x7e
}

func (s *scanner) begin() {
	s.raw = append(s.raw[:0], esc)
	s.state = stateEscape
}

// abort gives up on the pending sequence. Its bytes are re-emitted as text and
// the offending byte has to be fed again.
func (s *scanner) abort() bool {
	s.lit = append(s.lit, s.raw...)
	s.reset()
	return false
}

func (s *scanner) reset() {
	s.state = stateGround
	s.raw = s.raw[:0]
	// params are handed out with the token and must not be reused
	s.params = nil
	s.param = 0
	s.digits = false
	s.sep = false
	s.marker = 0
	s.inter = s.inter[:0]
	s.osc = s.osc[:0]
}

func (s *scanner) emit(tok Token) {
	s.tokens = append(s.tokens, tok)
}

func (s *scanner) flushLiteral(end bool) {
	if len(s.lit) == 0 {
		return
	}
	if end && s.state == stateGround {
		if n := incompleteRune(s.lit); n > 0 {
			s.partial = append([]byte(nil), s.lit[len(s.lit)-n:]...)
			s.lit = s.lit[:len(s.lit)-n]
		}
	}
	if len(s.lit) > 0 {
		s.emit(Text(string(s.lit)))
	}
	s.lit = s.lit[:0]
}

// incompleteRune returns the length of a truncated UTF-8 rune at the end of b
func incompleteRune(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return 0
			}
			return len(b) - i
		}
	}
	return 0
}

func (s *scanner) finishEscape() {
	s.emit(Token{Kind: CursorControl, Text: string(s.raw[1:])})
	s.reset()
}

func (s *scanner) finishCSI(final byte) {
	if s.digits || s.sep {
		s.params = append(s.params, s.param)
	}
	tok := Token{
		Params:       s.params,
		Final:        final,
		Marker:       s.marker,
		Intermediate: string(s.inter),
	}
	switch {
	case s.marker == '=':
		tok.Kind = ScreenMode
	case s.marker == '?' && len(s.inter) == 0 && (final == 'h' || final == 'l'):
		tok.Kind = PrivateMode
		tok.Set = final == 'h'
	case s.marker == 0 && len(s.inter) == 0 && final == 'm':
		tok.Kind = SGR
	default:
		tok.Kind = Control
	}
	s.emit(tok)
	s.reset()
}

func (s *scanner) finishOSC() {
	s.emit(Token{Kind: OSC, Params: []int{s.param}, Text: string(s.osc)})
	s.reset()
}
