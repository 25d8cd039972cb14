package termutil

import (
	"github.com/gdamore/tcell/v2"
)

// Colour is an entry of the 16 colour palette
type Colour uint8

// See https://en.wikipedia.org/wiki/ANSI_escape_code#3-bit_and_4-bit
const (
	ColourBlack Colour = iota
	ColourRed
	ColourGreen
	ColourYellow
	ColourBlue
	ColourMagenta
	ColourCyan
	ColourWhite
	ColourBrightBlack
	ColourBrightRed
	ColourBrightGreen
	ColourBrightYellow
	ColourBrightBlue
	ColourBrightMagenta
	ColourBrightCyan
	ColourBrightWhite
)

// PaletteSize is the number of Colour entries
const PaletteSize = 16

var defaultPalette = [PaletteSize]tcell.Color{
	ColourBlack:         tcell.ColorBlack,
	ColourRed:           tcell.ColorCrimson,
	ColourGreen:         tcell.ColorLimeGreen,
	ColourYellow:        tcell.ColorLemonChiffon,
	ColourBlue:          tcell.ColorDeepSkyBlue,
	ColourMagenta:       tcell.ColorOrchid,
	ColourCyan:          tcell.ColorAqua,
	ColourWhite:         tcell.ColorGhostWhite,
	ColourBrightBlack:   tcell.ColorLightSlateGray,
	ColourBrightRed:     tcell.ColorLightCoral,
	ColourBrightGreen:   tcell.ColorLightGreen,
	ColourBrightYellow:  tcell.ColorLightYellow,
	ColourBrightBlue:    tcell.ColorLightSkyBlue,
	ColourBrightMagenta: tcell.ColorLightPink,
	ColourBrightCyan:    tcell.ColorLightCyan,
	ColourBrightWhite:   tcell.ColorLightGray,
}

// Theme resolves palette entries and defaults to concrete colours. A nil
// *Theme behaves like DefaultTheme.
type Theme struct {
	palette    [PaletteSize]tcell.Color
	foreground tcell.Color
}

var defaultTheme = &Theme{
	palette:    defaultPalette,
	foreground: tcell.ColorGhostWhite,
}

// DefaultTheme returns a copy of the built-in theme
func DefaultTheme() *Theme {
	t := *defaultTheme
	return &t
}

func (t *Theme) orDefault() *Theme {
	if t == nil {
		return defaultTheme
	}
	return t
}

// sgrPalette maps the 4 bit SGR colour codes to palette entries. 30-37 and
// 90-97 select the foreground, 40-47 and 100-107 the background.
var sgrPalette = map[int]Colour{
	30:  ColourBlack,
	31:  ColourRed,
	32:  ColourGreen,
	33:  ColourYellow,
	34:  ColourBlue,
	35:  ColourMagenta,
	36:  ColourCyan,
	37:  ColourWhite,
	90:  ColourBrightBlack,
	91:  ColourBrightRed,
	92:  ColourBrightGreen,
	93:  ColourBrightYellow,
	94:  ColourBrightBlue,
	95:  ColourBrightMagenta,
	96:  ColourBrightCyan,
	97:  ColourBrightWhite,
	40:  ColourBlack,
	41:  ColourRed,
	42:  ColourGreen,
	43:  ColourYellow,
	44:  ColourBlue,
	45:  ColourMagenta,
	46:  ColourCyan,
	47:  ColourWhite,
	100: ColourBrightBlack,
	101: ColourBrightRed,
	102: ColourBrightGreen,
	103: ColourBrightYellow,
	104: ColourBrightBlue,
	105: ColourBrightMagenta,
	106: ColourBrightCyan,
	107: ColourBrightWhite,
}

func isBackgroundCode(code int) bool {
	return (code >= 40 && code <= 47) || (code >= 100 && code <= 107)
}

// Palette returns the colour of a palette entry
func (t *Theme) Palette(c Colour) tcell.Color {
	t = t.orDefault()
	if int(c) >= PaletteSize {
		return tcell.ColorDefault
	}
	return t.palette[c]
}

// DefaultForeground is the colour of text without an explicit foreground
func (t *Theme) DefaultForeground() tcell.Color {
	return t.orDefault().foreground
}

// DefaultBackground is transparent: the host surface shows through
func (t *Theme) DefaultBackground() tcell.Color {
	return tcell.ColorDefault
}

// Colour256 maps an xterm 256 colour index. 0-15 are the palette, 16-231
// a 6x6x6 cube and 232-255 a grayscale ramp. Any other index yields
// tcell.ColorDefault.
func (t *Theme) Colour256(n int) tcell.Color {
	switch {
	case n < 0 || n > 255:
		return tcell.ColorDefault
	case n < PaletteSize:
		return t.Palette(Colour(n))
	}
	r, g, b := rgb256(n)
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// rgb256 returns the components of a cube or grayscale index (16-255)
func rgb256(n int) (r, g, b uint8) {
	if n >= 232 {
		v := uint8(8 + 10*(n-232))
		return v, v, v
	}
	n -= 16
	return cubeLevel(n / 36), cubeLevel(n / 6 % 6), cubeLevel(n % 6)
}

func cubeLevel(level int) uint8 {
	if level == 0 {
		return 0
	}
	return uint8(55 + 40*level)
}
