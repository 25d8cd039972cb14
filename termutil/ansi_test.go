package termutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sgr(params ...int) Token {
	return Token{Kind: SGR, Params: params, Final: 'm'}
}

func TestScan(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "colour and reset",
			input: "\x1b[31mred \x1b[0m plain",
			expected: []Token{
				sgr(31),
				Text("red "),
				sgr(0),
				Text(" plain"),
			},
		},
		{
			name:     "empty params",
			input:    "\x1b[m",
			expected: []Token{sgr()},
		},
		{
			name:     "empty param between separators",
			input:    "\x1b[1;;3m",
			expected: []Token{sgr(1, 0, 3)},
		},
		{
			name:     "trailing separator",
			input:    "\x1b[1;m",
			expected: []Token{sgr(1, 0)},
		},
		{
			name:     "colon separator",
			input:    "\x1b[38:5:196m",
			expected: []Token{sgr(38, 5, 196)},
		},
		{
			name:     "oversized param saturates",
			input:    "\x1b[99999999m",
			expected: []Token{sgr(65535)},
		},
		{
			name:     "osc terminated by bel",
			input:    "\x1b]0;user@host: ~\x07$ ",
			expected: []Token{{Kind: OSC, Params: []int{0}, Text: "user@host: ~"}, Text("$ ")},
		},
		{
			name:     "osc terminated by st",
			input:    "\x1b]2;title\x1b\\",
			expected: []Token{{Kind: OSC, Params: []int{2}, Text: "title"}},
		},
		{
			name:     "osc without payload",
			input:    "\x1b]104\x07",
			expected: []Token{{Kind: OSC, Params: []int{104}}},
		},
		{
			name:     "screen mode",
			input:    "\x1b[=3h",
			expected: []Token{{Kind: ScreenMode, Params: []int{3}, Final: 'h', Marker: '='}},
		},
		{
			name:     "private mode set",
			input:    "\x1b[?2004h",
			expected: []Token{{Kind: PrivateMode, Params: []int{2004}, Final: 'h', Marker: '?', Set: true}},
		},
		{
			name:     "private mode reset",
			input:    "\x1b[?25l",
			expected: []Token{{Kind: PrivateMode, Params: []int{25}, Final: 'l', Marker: '?'}},
		},
		{
			name:     "private marker with other final",
			input:    "\x1b[?6n",
			expected: []Token{{Kind: Control, Params: []int{6}, Final: 'n', Marker: '?'}},
		},
		{
			name:     "erase display",
			input:    "\x1b[2J",
			expected: []Token{{Kind: Control, Params: []int{2}, Final: 'J'}},
		},
		{
			name:     "csi intermediate",
			input:    "\x1b[2 q",
			expected: []Token{{Kind: Control, Params: []int{2}, Final: 'q', Intermediate: " "}},
		},
		{
			name:     "cursor control",
			input:    "\x1b7x\x1b8",
			expected: []Token{{Kind: CursorControl, Text: "7"}, Text("x"), {Kind: CursorControl, Text: "8"}},
		},
		{
			name:     "charset designation",
			input:    "\x1b(B",
			expected: []Token{{Kind: CursorControl, Text: "(B"}},
		},
		{
			name:     "backspace",
			input:    "ab\bc",
			expected: []Token{Text("ab"), {Kind: Backspace}, Text("c")},
		},
		{
			name:     "bel is literal",
			input:    "ls /u\x07",
			expected: []Token{Text("ls /u\x07")},
		},
		{
			name:     "unexpected byte in csi",
			input:    "\x1b[3\x01x",
			expected: []Token{Text("\x1b[3\x01x")},
		},
		{
			name:     "escape inside csi starts over",
			input:    "\x1b[3\x1b[1m",
			expected: []Token{Text("\x1b[3"), sgr(1)},
		},
		{
			name:     "non digit osc id",
			input:    "\x1b]x;foo\x07",
			expected: []Token{Text("\x1b]x;foo\x07")},
		},
		{
			name:     "escape after escape",
			input:    "\x1b\x1b[1m",
			expected: []Token{Text("\x1b"), sgr(1)},
		},
		{
			name:     "unterminated osc followed by sequence",
			input:    "\x1b]0;ti\x1b[1m",
			expected: []Token{Text("\x1b]0;ti"), sgr(1)},
		},
		{
			name:     "multibyte text",
			input:    "héllo \x1b[32m✓\x1b[0m",
			expected: []Token{Text("héllo "), sgr(32), Text("✓"), sgr(0)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tokens, carry := Scan([]byte(test.input), Carry{})
			assert.True(t, carry.Empty())
			if diff := cmp.Diff(test.expected, Coalesce(tokens), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanSplitInvariance(t *testing.T) {
	inputs := []string{
		"\x1b[31mred \x1b[0m plain",
		"\x1b[38;5;196;48;2;10;20;30;1mx\x1b[m",
		"\x1b]0;user@host: ~\x07\x1b[?2004h$ ls\r\n",
		"\x1b]2;title\x1b\\after",
		"ab\b\bc\x07",
		"\x1b[3\x01x\x1b[1;;3m",
		"\x1b]x;foo\x07\x1b(B\x1b7",
		"héllo wörld ✓ 日本",
		"\x1b[=3h\x1b[2 q\x1b[?25l",
		"\x1b]0;ti\x1b[1mz",
		"tail\x1b[12",
	}
	for _, input := range inputs {
		data := []byte(input)
		whole, wholeCarry := Scan(data, Carry{})
		want := Coalesce(append(whole, Flush(wholeCarry)...))
		for k := 0; k <= len(data); k++ {
			first, carry := Scan(data[:k], Carry{})
			second, carry := Scan(data[k:], carry)
			got := Coalesce(append(append(first, second...), Flush(carry)...))
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("split at %d of %q (-want +got):\n%s", k, input, diff)
			}
		}
	}
}

func TestScanByteAtATime(t *testing.T) {
	input := []byte("\x1b[1;32mok\x1b[0m \x1b]0;t\x1b\\é\b!")
	whole, _ := Scan(input, Carry{})

	var s Scanner
	var got []Token
	for _, b := range input {
		got = append(got, s.Scan([]byte{b})...)
	}
	got = append(got, s.Flush()...)
	if diff := cmp.Diff(Coalesce(whole), Coalesce(got), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestScanCarry(t *testing.T) {
	tokens, carry := Scan([]byte("abc\x1b[3"), Carry{})
	assert.Equal(t, []Token{Text("abc")}, tokens)
	assert.False(t, carry.Empty())
	assert.Equal(t, []byte("\x1b[3"), carry.Pending())

	tokens, carry = Scan([]byte("1mx"), carry)
	assert.Equal(t, []Token{sgr(31), Text("x")}, tokens)
	assert.True(t, carry.Empty())
}

func TestScanIncompleteRune(t *testing.T) {
	tokens, carry := Scan([]byte("h\xc3"), Carry{})
	assert.Equal(t, []Token{Text("h")}, tokens)
	assert.Equal(t, []byte("\xc3"), carry.Pending())

	tokens, carry = Scan([]byte("\xa9llo"), carry)
	assert.Equal(t, []Token{Text("éllo")}, tokens)
	assert.True(t, carry.Empty())
}

func TestScanOverlongSequence(t *testing.T) {
	input := "\x1b[" + strings.Repeat("1", 5000) + "m"
	tokens, carry := Scan([]byte(input), Carry{})
	assert.True(t, carry.Empty())
	assert.Equal(t, []Token{Text(input)}, Coalesce(tokens))
}

func TestFlush(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "nothing pending",
			input: "text",
		},
		{
			name:     "unterminated csi",
			input:    "\x1b[31",
			expected: []Token{Text("\x1b[31")},
		},
		{
			name:     "unterminated osc",
			input:    "\x1b]0;title",
			expected: []Token{Text("\x1b]0;title")},
		},
		{
			name:     "truncated rune",
			input:    "\xe2\x9c",
			expected: []Token{Text("\xe2\x9c")},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, carry := Scan([]byte(test.input), Carry{})
			assert.Equal(t, test.expected, Flush(carry))
		})
	}
}

func TestScannerFlushResets(t *testing.T) {
	var s Scanner
	require.Empty(t, s.Scan([]byte("\x1b[")))
	assert.Equal(t, []Token{Text("\x1b[")}, s.Flush())
	assert.True(t, s.Carry().Empty())
	assert.Equal(t, []Token{Text("a")}, s.Scan([]byte("a")))
}

func TestCoalesce(t *testing.T) {
	in := []Token{Text("a"), Text(""), Text("b"), sgr(1), Text(""), Text("c"), Text("d")}
	assert.Equal(t, []Token{Text("ab"), sgr(1), Text("cd")}, Coalesce(in))
}

func TestTokenString(t *testing.T) {
	tests := []struct {
		tok      Token
		expected string
	}{
		{Text("hi"), `Literal("hi")`},
		{sgr(38, 5, 1), "SGR([38;5;1]m)"},
		{Token{Kind: PrivateMode, Params: []int{25}, Final: 'l', Marker: '?'}, "PrivateMode(reset,[25])"},
		{Token{Kind: OSC, Params: []int{0}, Text: "t"}, `OSC(0;"t")`},
		{Token{Kind: Backspace}, "Backspace"},
		{Token{Kind: Control, Params: []int{2}, Final: 'q', Intermediate: " "}, "Control([2] q)"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.tok.String())
	}
}
