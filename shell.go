package tcellshell

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"git.sr.ht/~ghost08/tcell-shell/termutil"
	"github.com/gdamore/tcell/v2"
	"pkt.systems/pslog"
)

var (
	errNotStarted     = errors.New("shell is not running")
	errAlreadyStarted = errors.New("shell already started")
)

// session is the part of *termutil.Session a Shell drives
type session interface {
	termutil.Prompter
	Inbound() <-chan []byte
	Exited() <-chan struct{}
	ExitCode() int
	WriteCommand(text string) error
	Resize(rows, cols uint16) error
	Close() error
}

// Shell runs an interactive shell on a pty and posts its output as tcell
// events. Escape sequences are reduced to styling; the shell does its own
// line editing, including tab completion, which Complete drives.
type Shell struct {
	Logger pslog.Logger
	// Set the TERM environment variable to be passed to the shell's
	// environment. If not set, xterm-256color will be used
	TERM string
	// ChunkSize bounds a single read of shell output
	ChunkSize int
	// CompletionTimeout bounds the wait for the shell's completion echo
	CompletionTimeout time.Duration

	mu           sync.Mutex
	session      session
	completer    *termutil.Completer
	eventHandler func(tcell.Event)
	style        termutil.StyleState
	title        string
	// prefix of an ambiguous first stage completion, completed with the
	// second stage on the next request
	armed    string
	rows     uint16
	cols     uint16
	consumed chan struct{}
}

func New() *Shell {
	return &Shell{
		Logger:       pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true}),
		eventHandler: func(tcell.Event) {},
	}
}

// Start runs cmd on a new pty. A nil cmd runs the interactive login shell.
// Start returns once the command is running.
func (sh *Shell) Start(cmd *exec.Cmd) error {
	if cmd == nil {
		cmd = termutil.ShellCommand()
	}
	sh.mu.Lock()
	if sh.session != nil {
		sh.mu.Unlock()
		return errAlreadyStarted
	}
	opts := []termutil.Option{
		termutil.WithLogger(sh.Logger),
		termutil.WithTERM(sh.TERM),
		termutil.WithChunkSize(sh.ChunkSize),
		termutil.WithSize(sh.rows, sh.cols),
	}
	sh.mu.Unlock()

	s, err := termutil.Spawn(cmd, opts...)
	if err != nil {
		return err
	}
	sh.attach(s)
	return nil
}

func (sh *Shell) attach(s session) {
	sh.mu.Lock()
	sh.session = s
	sh.completer = termutil.NewCompleter(s,
		termutil.WithCompletionTimeout(sh.CompletionTimeout),
		termutil.WithCompleterLogger(sh.Logger),
	)
	sh.consumed = make(chan struct{})
	c, done := sh.completer, sh.consumed
	sh.mu.Unlock()
	go sh.consume(s, c, done)
}

func (sh *Shell) Attach(fn func(ev tcell.Event)) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.eventHandler = fn
}

func (sh *Shell) Detach() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.eventHandler = func(ev tcell.Event) {}
}

func (sh *Shell) postEvent(ev tcell.Event) {
	sh.mu.Lock()
	fn := sh.eventHandler
	sh.mu.Unlock()
	fn(ev)
}

func (sh *Shell) running() (session, *termutil.Completer, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.session == nil {
		return nil, nil, errNotStarted
	}
	return sh.session, sh.completer, nil
}

// Submit runs text as a command line
func (sh *Shell) Submit(text string) error {
	s, _, err := sh.running()
	if err != nil {
		return err
	}
	sh.disarm()
	sh.Logger.Debug("submit", "len", len(text))
	return s.WriteCommand(text)
}

// Complete asks the shell to complete prefix. The first request for a
// prefix sends one tab. When that is ambiguous, the next request for the
// same prefix sends two, which lists the candidates. The result is also
// posted as an *EventCompletion.
func (sh *Shell) Complete(ctx context.Context, prefix string) (termutil.CompletionResult, error) {
	_, c, err := sh.running()
	if err != nil {
		return termutil.CompletionResult{}, err
	}
	sh.mu.Lock()
	stage := termutil.StageFirst
	if sh.armed != "" && sh.armed == prefix {
		stage = termutil.StageSecond
	}
	sh.armed = ""
	sh.mu.Unlock()

	res, err := c.Complete(ctx, prefix, stage)
	if err == nil && res.Ambiguous {
		sh.mu.Lock()
		sh.armed = prefix
		sh.mu.Unlock()
	}
	sh.postEvent(&EventCompletion{
		EventTerminal: newEventTerminal(sh),
		result:        res,
		err:           err,
	})
	return res, err
}

func (sh *Shell) disarm() {
	sh.mu.Lock()
	sh.armed = ""
	sh.mu.Unlock()
}

// Interrupt sends SIGINT to the shell's process group
func (sh *Shell) Interrupt() error {
	s, _, err := sh.running()
	if err != nil {
		return err
	}
	sh.disarm()
	return s.Interrupt()
}

// Resize sets the window size reported to the shell
func (sh *Shell) Resize(rows, cols int) error {
	sh.mu.Lock()
	sh.rows, sh.cols = uint16(rows), uint16(cols)
	s := sh.session
	sh.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Resize(uint16(rows), uint16(cols))
}

// Title returns the last title set by the shell
func (sh *Shell) Title() string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.title
}

// Style returns the style that applies to the next output
func (sh *Shell) Style() termutil.StyleState {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.style
}

// Close kills the shell and waits until its remaining output has been
// posted
func (sh *Shell) Close() error {
	sh.mu.Lock()
	s, done := sh.session, sh.consumed
	sh.mu.Unlock()
	if s == nil {
		return nil
	}
	err := s.Close()
	<-done
	return err
}

// consume turns the inbound chunks of s into events until s has shut down
func (sh *Shell) consume(s session, c *termutil.Completer, done chan struct{}) {
	defer close(done)
	var scanner termutil.Scanner
	for chunk := range s.Inbound() {
		sh.handle(c, scanner.Scan(chunk))
	}
	sh.handle(c, scanner.Flush())

	<-s.Exited()
	code := s.ExitCode()
	sh.Logger.Info("shell closed", "code", code)
	sh.postEvent(&EventClosed{
		EventTerminal: newEventTerminal(sh),
		code:          code,
	})
}

func (sh *Shell) handle(c *termutil.Completer, tokens []termutil.Token) {
	if len(tokens) == 0 {
		return
	}
	sh.mu.Lock()
	r := renderer{style: sh.style}
	sh.mu.Unlock()

	for _, tok := range tokens {
		switch tok.Kind {
		case termutil.Literal:
			if c.Feed(tok.Text) {
				continue
			}
		case termutil.Backspace:
			if c.Erase() {
				continue
			}
		case termutil.OSC:
			sh.osc(tok)
		default:
			sh.Logger.Debug("sequence", "seq", tok.String())
		}
		r.token(tok)
	}

	sh.mu.Lock()
	sh.style = r.style
	sh.mu.Unlock()
	if !r.out.Empty() {
		sh.postEvent(&EventOutput{
			EventTerminal: newEventTerminal(sh),
			rendered:      r.out,
		})
	}
}

func (sh *Shell) osc(tok termutil.Token) {
	if len(tok.Params) == 0 {
		return
	}
	switch tok.Params[0] {
	case 0, 2:
		sh.mu.Lock()
		sh.title = tok.Text
		sh.mu.Unlock()
		sh.postEvent(&EventTitle{
			EventTerminal: newEventTerminal(sh),
			title:         tok.Text,
		})
	default:
		sh.Logger.Debug("unhandled osc", "seq", tok.String())
	}
}
