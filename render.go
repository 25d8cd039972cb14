package tcellshell

import (
	"strings"
	"unicode/utf8"

	"git.sr.ht/~ghost08/tcell-shell/termutil"
)

// Span is a run of text sharing one style
type Span struct {
	Text  string
	Style termutil.StyleState
}

// Rendered is the styled form of one chunk of shell output
type Rendered struct {
	// Erase is the number of characters to remove from earlier output
	// before appending Spans
	Erase int
	Spans []Span
}

// Empty reports whether r changes nothing
func (r Rendered) Empty() bool {
	return r.Erase == 0 && len(r.Spans) == 0
}

// String returns the text of r without styling
func (r Rendered) String() string {
	var b strings.Builder
	for _, span := range r.Spans {
		b.WriteString(span.Text)
	}
	return b.String()
}

// Render scans chunk, continuing from carry, and returns its styled text
// along with the style and carry to pass along with the next chunk. BEL is
// dropped and sequences other than SGR have no visible effect.
func Render(chunk []byte, style termutil.StyleState, carry termutil.Carry) (Rendered, termutil.StyleState, termutil.Carry) {
	tokens, carry := termutil.Scan(chunk, carry)
	r := renderer{style: style}
	for _, tok := range tokens {
		r.token(tok)
	}
	return r.out, r.style, carry
}

type renderer struct {
	out   Rendered
	style termutil.StyleState
}

func (r *renderer) token(tok termutil.Token) {
	switch tok.Kind {
	case termutil.Literal:
		r.text(tok.Text)
	case termutil.SGR:
		r.style.Apply(tok.Params)
	case termutil.Backspace:
		r.backspace()
	}
}

func (r *renderer) text(s string) {
	s = strings.ReplaceAll(s, "\a", "")
	if s == "" {
		return
	}
	if n := len(r.out.Spans); n > 0 && r.out.Spans[n-1].Style == r.style {
		r.out.Spans[n-1].Text += s
		return
	}
	r.out.Spans = append(r.out.Spans, Span{Text: s, Style: r.style})
}

// backspace removes the last character rendered so far, or counts it
// towards Erase once this chunk has nothing left
func (r *renderer) backspace() {
	n := len(r.out.Spans)
	if n == 0 {
		r.out.Erase++
		return
	}
	last := &r.out.Spans[n-1]
	_, size := utf8.DecodeLastRuneInString(last.Text)
	last.Text = last.Text[:len(last.Text)-size]
	if last.Text == "" {
		r.out.Spans = r.out.Spans[:n-1]
	}
}
