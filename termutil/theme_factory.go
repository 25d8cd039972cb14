package termutil

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// ThemeFactory builds a Theme from the default one plus overrides
type ThemeFactory struct {
	colourMap  map[Colour]tcell.Color
	foreground tcell.Color
}

func NewThemeFactory() *ThemeFactory {
	return &ThemeFactory{
		colourMap:  make(map[Colour]tcell.Color),
		foreground: tcell.ColorDefault,
	}
}

func (t *ThemeFactory) Build() *Theme {
	theme := DefaultTheme()
	for id, col := range t.colourMap {
		if int(id) < PaletteSize {
			theme.palette[id] = col
		}
	}
	if t.foreground != tcell.ColorDefault {
		theme.foreground = t.foreground
	}
	return theme
}

func (t *ThemeFactory) WithColour(key Colour, colour tcell.Color) *ThemeFactory {
	t.colourMap[key] = colour
	return t
}

func (t *ThemeFactory) WithForeground(colour tcell.Color) *ThemeFactory {
	t.foreground = colour
	return t
}

// ParseColour accepts "#rrggbb", "#rgb" or a W3C colour name such as
// "crimson"
func ParseColour(s string) (tcell.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return tcell.ColorDefault, fmt.Errorf("parse colour %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b)), nil
	}
	if c, ok := tcell.ColorNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	return tcell.ColorDefault, fmt.Errorf("unknown colour %q", s)
}

// hexColour formats a colour as #rrggbb
func hexColour(c tcell.Color) string {
	r, g, b := c.RGB()
	return colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Hex()
}
