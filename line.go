package tcellshell

import "strings"

type line struct {
	cells []cell
}

func (l *line) len() int {
	return len(l.cells)
}

// width is the number of columns the line occupies
func (l *line) width() int {
	w := 0
	for _, c := range l.cells {
		w += c.width
	}
	return w
}

func (l *line) string() string {
	var b strings.Builder
	for _, c := range l.cells {
		b.WriteRune(c.rune())
		for _, r := range c.comb {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (l *line) append(cells ...cell) {
	l.cells = append(l.cells, cells...)
}

// backspace removes the last cell. It reports false if the line was empty.
func (l *line) backspace() bool {
	if len(l.cells) == 0 {
		return false
	}
	l.cells = l.cells[:len(l.cells)-1]
	return true
}
