package tcellshell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBalanced(t *testing.T) {
	tests := []struct {
		cmd      string
		expected bool
	}{
		{"", true},
		{"ls -la", true},
		{`echo "hello world"`, true},
		{`echo "hello`, false},
		{`echo 'it''s'`, true},
		{"echo `date", false},
		{`echo "(" ')'`, true},
		{"echo $(date)", true},
		{"echo $(date", false},
		{"echo )(", false},
		{"[ -f x ]", true},
		{"[[ -f x ]", false},
		{"f() { echo; }", true},
		{"f() { echo;", false},
		{"}{", false},
		{`echo a \`, false},
		{`echo \"`, true},
		{`echo \\`, true},
		{`echo "a\"b"`, true},
		{"echo 'a\\'", false},
		{"for i in 1 2; do\necho $i\ndone", true},
	}
	for _, test := range tests {
		t.Run(test.cmd, func(t *testing.T) {
			assert.Equal(t, test.expected, Balanced(test.cmd))
		})
	}
}
