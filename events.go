package tcellshell

import (
	"time"

	"git.sr.ht/~ghost08/tcell-shell/termutil"
)

// EventTerminal is the base of every event posted by a Shell
type EventTerminal struct {
	when  time.Time
	shell *Shell
}

func newEventTerminal(sh *Shell) *EventTerminal {
	return &EventTerminal{
		when:  time.Now(),
		shell: sh,
	}
}

func (ev *EventTerminal) When() time.Time {
	return ev.when
}

func (ev *EventTerminal) Shell() *Shell {
	return ev.shell
}

// EventOutput is posted for every chunk of shell output that changes what
// is displayed
type EventOutput struct {
	*EventTerminal
	rendered Rendered
}

func (ev *EventOutput) Rendered() Rendered {
	return ev.rendered
}

// EventCompletion is posted when a completion request finishes
type EventCompletion struct {
	*EventTerminal
	result termutil.CompletionResult
	err    error
}

func (ev *EventCompletion) Result() termutil.CompletionResult {
	return ev.result
}

// Err is termutil.ErrNoCompletion when the shell had nothing to offer
func (ev *EventCompletion) Err() error {
	return ev.err
}

// EventTitle is emitted when the shell sets the window title
type EventTitle struct {
	*EventTerminal
	title string
}

func (ev *EventTitle) Title() string {
	return ev.title
}

// EventClosed is posted once the shell has exited and all of its output
// has been delivered
type EventClosed struct {
	*EventTerminal
	code int
}

// ExitCode is the shell's exit status, -1 if it was killed
func (ev *EventClosed) ExitCode() int {
	return ev.code
}
