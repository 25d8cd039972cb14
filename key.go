package tcellshell

import (
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// Focus tells which area a key event was typed into
type Focus uint8

const (
	FocusCommand Focus = iota
	FocusOutput
)

func (f Focus) String() string {
	if f == FocusOutput {
		return "output"
	}
	return "command"
}

// Action is what a key event means to the shell front-end
type Action uint8

const (
	// ActionDefault leaves the key to the focused widget
	ActionDefault Action = iota
	// ActionSubmit runs the command line, unless it is not Balanced
	ActionSubmit
	// ActionForceSubmit runs the command line without checking it
	ActionForceSubmit
	ActionInsertNewline
	// ActionComplete asks the shell to complete the command line
	ActionComplete
	// ActionInterrupt sends SIGINT to the shell's process group
	ActionInterrupt
	ActionHistoryPrev
	ActionHistoryNext
	ActionFocusOutput
	ActionFocusCommand
)

var actionNames = [...]string{
	ActionDefault:       "default",
	ActionSubmit:        "submit",
	ActionForceSubmit:   "force-submit",
	ActionInsertNewline: "insert-newline",
	ActionComplete:      "complete",
	ActionInterrupt:     "interrupt",
	ActionHistoryPrev:   "history-prev",
	ActionHistoryNext:   "history-next",
	ActionFocusOutput:   "focus-output",
	ActionFocusCommand:  "focus-command",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

const ctrlShift = tcell.ModCtrl | tcell.ModShift

// Classify maps a key event to an action. Keys without a special meaning
// classify as ActionDefault.
func Classify(ev *tcell.EventKey, focus Focus) Action {
	mods := ev.Modifiers() & (tcell.ModCtrl | tcell.ModShift | tcell.ModAlt)

	if focus == FocusOutput {
		if ev.Key() == tcell.KeyDown && mods == ctrlShift {
			return ActionFocusCommand
		}
		return ActionDefault
	}

	switch ev.Key() {
	case tcell.KeyEnter:
		switch mods {
		case tcell.ModNone:
			return ActionSubmit
		case tcell.ModShift:
			return ActionInsertNewline
		case ctrlShift:
			return ActionForceSubmit
		}
	case tcell.KeyTab:
		if mods == tcell.ModNone {
			return ActionComplete
		}
	case tcell.KeyCtrlC:
		return ActionInterrupt
	case tcell.KeyRune:
		if mods&tcell.ModCtrl != 0 && mods&tcell.ModAlt == 0 && unicode.ToLower(ev.Rune()) == 'c' {
			return ActionInterrupt
		}
	case tcell.KeyUp:
		switch mods {
		case tcell.ModNone:
			return ActionHistoryPrev
		case ctrlShift:
			return ActionFocusOutput
		}
	case tcell.KeyDown:
		if mods == tcell.ModNone {
			return ActionHistoryNext
		}
	}
	return ActionDefault
}
