package main

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// cmdline is the text being typed, with a cursor. It may span lines.
type cmdline struct {
	text   []rune
	cursor int
}

func (c *cmdline) String() string {
	return string(c.text)
}

func (c *cmdline) set(s string) {
	c.text = []rune(s)
	c.cursor = len(c.text)
}

func (c *cmdline) insert(s string) {
	r := []rune(s)
	text := make([]rune, 0, len(c.text)+len(r))
	text = append(text, c.text[:c.cursor]...)
	text = append(text, r...)
	text = append(text, c.text[c.cursor:]...)
	c.text = text
	c.cursor += len(r)
}

// backspace deletes the rune before the cursor
func (c *cmdline) backspace() {
	if c.cursor == 0 {
		return
	}
	c.text = append(c.text[:c.cursor-1], c.text[c.cursor:]...)
	c.cursor--
}

// delete deletes the rune under the cursor
func (c *cmdline) delete() {
	if c.cursor == len(c.text) {
		return
	}
	c.text = append(c.text[:c.cursor], c.text[c.cursor+1:]...)
}

func (c *cmdline) left() {
	if c.cursor > 0 {
		c.cursor--
	}
}

func (c *cmdline) right() {
	if c.cursor < len(c.text) {
		c.cursor++
	}
}

func (c *cmdline) home() {
	c.cursor = 0
}

func (c *cmdline) end() {
	c.cursor = len(c.text)
}

// atEnd reports whether the cursor is after the last rune
func (c *cmdline) atEnd() bool {
	return c.cursor == len(c.text)
}

func (c *cmdline) lines() []string {
	return strings.Split(string(c.text), "\n")
}

// position returns the line and column of the cursor
func (c *cmdline) position() (row, col int) {
	for _, r := range c.text[:c.cursor] {
		if r == '\n' {
			row++
			col = 0
			continue
		}
		col += runeWidth(r)
	}
	return row, col
}

// runeWidth is the number of columns r takes on the command line, where a
// tab is drawn as a single space
func runeWidth(r rune) int {
	if r == '\t' {
		return 1
	}
	return runewidth.RuneWidth(r)
}

// up moves the cursor to the line above, at the same offset if that line
// is long enough. It reports false on the first line.
func (c *cmdline) up() bool {
	start := c.lineStart(c.cursor)
	if start == 0 {
		return false
	}
	prev := c.lineStart(start - 1)
	c.cursor = prev + min(c.cursor-start, start-1-prev)
	return true
}

// down moves the cursor to the line below. It reports false on the last
// line.
func (c *cmdline) down() bool {
	end := c.lineEnd(c.cursor)
	if end == len(c.text) {
		return false
	}
	next := end + 1
	c.cursor = next + min(c.cursor-c.lineStart(c.cursor), c.lineEnd(next)-next)
	return true
}

func (c *cmdline) lineStart(i int) int {
	for i > 0 && c.text[i-1] != '\n' {
		i--
	}
	return i
}

func (c *cmdline) lineEnd(i int) int {
	for i < len(c.text) && c.text[i] != '\n' {
		i++
	}
	return i
}
