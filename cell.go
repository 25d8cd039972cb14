package tcellshell

import "github.com/gdamore/tcell/v2"

type cell struct {
	content rune
	// zero width runes following content
	comb  []rune
	width int
	attrs tcell.Style
}

func (c *cell) rune() rune {
	if c.content == rune(0) {
		return ' '
	}
	return c.content
}
