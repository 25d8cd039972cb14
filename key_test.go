package tcellshell

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		key      tcell.Key
		ch       rune
		mod      tcell.ModMask
		focus    Focus
		expected Action
	}{
		{"enter", tcell.KeyEnter, 0, tcell.ModNone, FocusCommand, ActionSubmit},
		{"shift enter", tcell.KeyEnter, 0, tcell.ModShift, FocusCommand, ActionInsertNewline},
		{"ctrl shift enter", tcell.KeyEnter, 0, tcell.ModCtrl | tcell.ModShift, FocusCommand, ActionForceSubmit},
		{"alt enter", tcell.KeyEnter, 0, tcell.ModAlt, FocusCommand, ActionDefault},
		{"tab", tcell.KeyTab, 0, tcell.ModNone, FocusCommand, ActionComplete},
		{"shift tab", tcell.KeyTab, 0, tcell.ModShift, FocusCommand, ActionDefault},
		{"ctrl c", tcell.KeyCtrlC, 0, tcell.ModCtrl, FocusCommand, ActionInterrupt},
		{"ctrl shift c", tcell.KeyRune, 'C', tcell.ModCtrl | tcell.ModShift, FocusCommand, ActionInterrupt},
		{"plain c", tcell.KeyRune, 'c', tcell.ModNone, FocusCommand, ActionDefault},
		{"up", tcell.KeyUp, 0, tcell.ModNone, FocusCommand, ActionHistoryPrev},
		{"down", tcell.KeyDown, 0, tcell.ModNone, FocusCommand, ActionHistoryNext},
		{"ctrl shift up", tcell.KeyUp, 0, tcell.ModCtrl | tcell.ModShift, FocusCommand, ActionFocusOutput},
		{"ctrl up", tcell.KeyUp, 0, tcell.ModCtrl, FocusCommand, ActionDefault},
		{"meta is ignored", tcell.KeyUp, 0, tcell.ModMeta, FocusCommand, ActionHistoryPrev},
		{"ctrl shift down in command", tcell.KeyDown, 0, tcell.ModCtrl | tcell.ModShift, FocusCommand, ActionDefault},
		{"ctrl shift down in output", tcell.KeyDown, 0, tcell.ModCtrl | tcell.ModShift, FocusOutput, ActionFocusCommand},
		{"enter in output", tcell.KeyEnter, 0, tcell.ModNone, FocusOutput, ActionDefault},
		{"tab in output", tcell.KeyTab, 0, tcell.ModNone, FocusOutput, ActionDefault},
		{"rune", tcell.KeyRune, 'x', tcell.ModNone, FocusCommand, ActionDefault},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ev := tcell.NewEventKey(test.key, test.ch, test.mod)
			assert.Equal(t, test.expected, Classify(ev, test.focus))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "submit", ActionSubmit.String())
	assert.Equal(t, "focus-command", ActionFocusCommand.String())
	assert.Equal(t, "unknown", Action(200).String())
	assert.Equal(t, "output", FocusOutput.String())
	assert.Equal(t, "command", FocusCommand.String())
}
