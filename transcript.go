package tcellshell

import (
	"strings"
	"sync"

	"git.sr.ht/~ghost08/tcell-shell/termutil"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const (
	// DefaultMaxLines is the line limit of a Transcript created without one
	DefaultMaxLines = 10000
	tabWidth        = 8
)

// Surface is the drawing target of a Transcript, such as a tcell.Screen or
// a views.View
type Surface interface {
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Size() (int, int)
}

// Transcript accumulates rendered shell output as lines of styled cells.
// Only the most recent lines are kept. It is safe for concurrent use.
type Transcript struct {
	mu       sync.Mutex
	lines    []line
	maxLines int
	theme    *termutil.Theme
}

// NewTranscript returns an empty transcript keeping at most maxLines lines.
// A nil theme selects the default one.
func NewTranscript(maxLines int, theme *termutil.Theme) *Transcript {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Transcript{
		lines:    []line{{}},
		maxLines: maxLines,
		theme:    theme,
	}
}

// Append applies r: Erase characters are removed first, then the spans are
// written. Carriage returns are dropped and tabs expanded to spaces.
func (t *Transcript) Append(r Rendered) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < r.Erase; i++ {
		t.backspace()
	}
	for _, span := range r.Spans {
		style := span.Style.Render(t.theme)
		for _, ch := range span.Text {
			t.put(ch, style)
		}
	}
	if extra := len(t.lines) - t.maxLines; extra > 0 {
		t.lines = t.lines[extra:]
	}
}

// WriteString appends unstyled text
func (t *Transcript) WriteString(s string) {
	t.Append(Rendered{Spans: []Span{{Text: s}}})
}

func (t *Transcript) current() *line {
	return &t.lines[len(t.lines)-1]
}

func (t *Transcript) put(ch rune, style tcell.Style) {
	cur := t.current()
	switch {
	case ch == '\n':
		t.lines = append(t.lines, line{})
	case ch == '\t':
		for n := tabWidth - cur.width()%tabWidth; n > 0; n-- {
			cur.append(cell{content: ' ', width: 1, attrs: style})
		}
	case ch < 0x20 || ch == 0x7f:
	default:
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			if n := cur.len(); n > 0 {
				cur.cells[n-1].comb = append(cur.cells[n-1].comb, ch)
			}
			return
		}
		cur.append(cell{content: ch, width: w, attrs: style})
	}
}

// backspace removes the last character. On an empty line it removes the
// line break instead.
func (t *Transcript) backspace() {
	if t.current().backspace() {
		return
	}
	if len(t.lines) > 1 {
		t.lines = t.lines[:len(t.lines)-1]
	}
}

// Len returns the number of lines, including the one being written
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

// Line returns the text of line i
func (t *Transcript) Line(i int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.lines) {
		return ""
	}
	return t.lines[i].string()
}

// Style returns the style of the cell at column col of line i
func (t *Transcript) Style(i, col int) tcell.Style {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.lines) || col < 0 || col >= t.lines[i].len() {
		return tcell.StyleDefault
	}
	return t.lines[i].cells[col].attrs
}

func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := make([]string, len(t.lines))
	for i := range t.lines {
		lines[i] = t.lines[i].string()
	}
	return strings.Join(lines, "\n")
}

// Clear drops every line
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = []line{{}}
}

// Draw paints the most recent lines onto srf, bottom aligned. scroll moves
// the view that many lines back. Lines wider than the surface are cut.
func (t *Transcript) Draw(srf Surface, scroll int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, h := srf.Size()
	if scroll < 0 {
		scroll = 0
	}
	bottom := len(t.lines) - 1 - scroll
	for row := 0; row < h; row++ {
		idx := bottom - (h - 1 - row)
		col := 0
		if idx >= 0 && idx < len(t.lines) {
			for _, c := range t.lines[idx].cells {
				if col+c.width > w {
					break
				}
				srf.SetContent(col, row, c.rune(), c.comb, c.attrs)
				col += c.width
			}
		}
		for ; col < w; col++ {
			srf.SetContent(col, row, ' ', nil, tcell.StyleDefault)
		}
	}
}
