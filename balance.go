package tcellshell

// Balanced reports whether cmd can be submitted as is: every quote is
// closed, parentheses, brackets and braces are balanced and the last
// character is not an escaping backslash. A command that is not balanced
// would leave the shell waiting for a continuation line.
func Balanced(cmd string) bool {
	var (
		quote   rune
		paren   int
		bracket int
		curly   int
		escape  bool
	)
	for _, r := range cmd {
		if escape {
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '(':
			paren++
		case ')':
			paren--
		case '[':
			bracket++
		case ']':
			bracket--
		case '{':
			curly++
		case '}':
			curly--
		}
		if paren < 0 || bracket < 0 || curly < 0 {
			return false
		}
	}
	return quote == 0 && paren == 0 && bracket == 0 && curly == 0 && !escape
}
