package termutil

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// ColorKind tells which variant a Color holds
type ColorKind uint8

const (
	// ColorDefault is the theme foreground, or transparent as a background
	ColorDefault ColorKind = iota
	ColorNamed
	ColorIndexed
	ColorRGB
)

// Color is a colour as selected by SGR. The zero value is the default
// colour. Colors are comparable.
type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

// Named returns a palette colour
func Named(c Colour) Color {
	return Color{Kind: ColorNamed, Index: uint8(c)}
}

// Indexed returns an xterm 256 colour
func Indexed(n uint8) Color {
	return Color{Kind: ColorIndexed, Index: n}
}

// RGB returns a truecolor colour
func RGB(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

func (c Color) String() string {
	switch c.Kind {
	case ColorNamed:
		return fmt.Sprintf("Named(%d)", c.Index)
	case ColorIndexed:
		return fmt.Sprintf("Indexed(%d)", c.Index)
	case ColorRGB:
		return fmt.Sprintf("RGB(%d,%d,%d)", c.R, c.G, c.B)
	}
	return "Default"
}

// resolve maps c to a concrete colour. def is returned for ColorDefault.
func (c Color) resolve(t *Theme, def tcell.Color) tcell.Color {
	switch c.Kind {
	case ColorNamed:
		return t.Palette(Colour(c.Index))
	case ColorIndexed:
		return t.Colour256(int(c.Index))
	case ColorRGB:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
	return def
}

// StyleState is the graphic rendition accumulated from SGR sequences. The
// zero value is the default style: default foreground, transparent
// background, neither bold nor italic. Equal states render identically.
type StyleState struct {
	Fg     Color
	Bg     Color
	Bold   bool
	Italic bool
}

// Apply folds the parameters of one SGR sequence into the state, left to
// right. No parameters means reset. Unknown codes are ignored.
func (s *StyleState) Apply(params []int) {
	if len(params) == 0 {
		*s = StyleState{}
		return
	}
	for i := 0; i < len(params); i++ {
		code := params[i]
		switch code {
		case 0:
			*s = StyleState{}
		case 1:
			s.Bold = true
		case 3:
			s.Italic = true
		case 39:
			s.Fg = Color{}
		case 49:
			s.Bg = Color{}
		case 38, 48:
			c, n, ok := extendedColour(params[i+1:])
			i += n
			if !ok {
				continue
			}
			if code == 38 {
				s.Fg = c
			} else {
				s.Bg = c
			}
		default:
			colour, ok := sgrPalette[code]
			if !ok {
				continue
			}
			if isBackgroundCode(code) {
				s.Bg = Named(colour)
			} else {
				s.Fg = Named(colour)
			}
		}
	}
}

// extendedColour parses the arguments of a 38 or 48 code: 5;N or 2;r;g;b.
// It returns the number of parameters consumed. A complete group with an
// out of range value is consumed but not ok. An incomplete group consumes
// nothing, so the following codes are handled on their own.
func extendedColour(rest []int) (c Color, n int, ok bool) {
	if len(rest) == 0 {
		return Color{}, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return Color{}, 0, false
		}
		if rest[1] > 255 {
			return Color{}, 2, false
		}
		return Indexed(uint8(rest[1])), 2, true
	case 2:
		if len(rest) < 4 {
			return Color{}, 0, false
		}
		r, g, b := rest[1], rest[2], rest[3]
		if r > 255 || g > 255 || b > 255 {
			return Color{}, 4, false
		}
		return RGB(uint8(r), uint8(g), uint8(b)), 4, true
	}
	return Color{}, 0, false
}

// Foreground resolves the foreground colour
func (s StyleState) Foreground(t *Theme) tcell.Color {
	return s.Fg.resolve(t, t.DefaultForeground())
}

// Background resolves the background colour. tcell.ColorDefault means
// transparent.
func (s StyleState) Background(t *Theme) tcell.Color {
	return s.Bg.resolve(t, t.DefaultBackground())
}

// Render converts the state to a tcell style
func (s StyleState) Render(t *Theme) tcell.Style {
	return tcell.StyleDefault.
		Foreground(s.Foreground(t)).
		Background(s.Background(t)).
		Bold(s.Bold).
		Italic(s.Italic)
}

// CSS renders the state as an inline style attribute value, suitable for a
// <span> wrapping the text
func (s StyleState) CSS(t *Theme) string {
	bg := "transparent"
	if c := s.Background(t); c != tcell.ColorDefault {
		bg = hexColour(c)
	}
	weight, style := "normal", "normal"
	if s.Bold {
		weight = "bold"
	}
	if s.Italic {
		style = "italic"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "white-space:pre;color:%s;background-color:%s;", hexColour(s.Foreground(t)), bg)
	fmt.Fprintf(&b, "font-weight:%s;font-style:%s", weight, style)
	return b.String()
}

func (s StyleState) String() string {
	return fmt.Sprintf("fg=%s bg=%s bold=%t italic=%t", s.Fg, s.Bg, s.Bold, s.Italic)
}
