package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	tcellshell "git.sr.ht/~ghost08/tcell-shell"
	"git.sr.ht/~ghost08/tcell-shell/termutil"
	"pkt.systems/pslog"
)

const (
	maxCmdHeight = 5
	prompt       = "> "
)

type ui struct {
	ctx        context.Context
	log        pslog.Logger
	screen     tcell.Screen
	shell      *tcellshell.Shell
	transcript *tcellshell.Transcript
	history    *tcellshell.History
	theme      *termutil.Theme

	cmd    cmdline
	focus  tcellshell.Focus
	scroll int
	quit   bool

	title     *views.TextBar
	titleView *views.ViewPort
	outView   *views.ViewPort
	cmdView   *views.ViewPort
	outRows   int
	cols      int
}

func newUI(ctx context.Context, log pslog.Logger, screen tcell.Screen, sh *tcellshell.Shell, maxLines int, theme *termutil.Theme) *ui {
	u := &ui{
		ctx:        ctx,
		log:        log,
		screen:     screen,
		shell:      sh,
		transcript: tcellshell.NewTranscript(maxLines, theme),
		history:    tcellshell.NewHistory(),
		theme:      theme,
		title:      views.NewTextBar(),
		titleView:  views.NewViewPort(screen, 0, 0, -1, 1),
		outView:    views.NewViewPort(screen, 0, 1, -1, -1),
		cmdView:    views.NewViewPort(screen, 0, 0, -1, 1),
	}
	u.title.SetView(u.titleView)
	u.setTitle("tcellshell")
	u.layout()
	return u
}

// uiLogger logs to path, or nowhere when path is empty, so that log lines
// do not end up on the screen
func uiLogger(path string) (pslog.Logger, func(), error) {
	if path == "" {
		return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true}), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(f),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, NoColor: true}),
	)
	return logger, func() { _ = f.Close() }, nil
}

func runUI(ctx context.Context, cfg config, theme *termutil.Theme) error {
	logger, closeLog, err := uiLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	sh := cfg.newShell()
	sh.Logger = logger
	u := newUI(ctx, logger, screen, sh, cfg.MaxLines, theme)
	sh.Attach(func(ev tcell.Event) {
		_ = screen.PostEvent(ev)
	})
	if err := sh.Start(nil); err != nil {
		return err
	}
	defer func() {
		sh.Detach()
		_ = sh.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	u.draw()
	for !u.quit {
		ev := screen.PollEvent()
		if ev == nil {
			break
		}
		u.handle(ev)
		u.draw()
	}
	return nil
}

// layout sizes the views to the screen and the command line
func (u *ui) layout() {
	w, h := u.screen.Size()
	cmdRows := min(len(u.cmd.lines()), maxCmdHeight)
	outRows := max(h-cmdRows-2, 1)

	u.titleView.Resize(0, 0, -1, 1)
	u.title.Resize()
	u.outView.Resize(0, 1, -1, outRows)
	u.cmdView.Resize(0, outRows+2, -1, cmdRows)

	if outRows == u.outRows && w == u.cols {
		return
	}
	u.outRows, u.cols = outRows, w
	if err := u.shell.Resize(outRows, w); err != nil {
		u.log.Warn("resize shell", "err", err)
	}
}

func (u *ui) setTitle(title string) {
	style := tcell.StyleDefault.Foreground(tcell.ColorDeepSkyBlue).Bold(true)
	u.title.SetCenter(title, style)
}

func (u *ui) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventInterrupt:
		u.quit = true
	case *tcell.EventKey:
		u.key(ev)
	case *tcellshell.EventOutput:
		u.transcript.Append(ev.Rendered())
	case *tcellshell.EventTitle:
		u.setTitle(ev.Title())
	case *tcellshell.EventCompletion:
		u.completion(ev.Result(), ev.Err())
	case *tcellshell.EventClosed:
		u.log.Info("shell exited", "code", ev.ExitCode())
		u.quit = true
	}
}

func (u *ui) key(ev *tcell.EventKey) {
	switch tcellshell.Classify(ev, u.focus) {
	case tcellshell.ActionSubmit:
		cmd := u.cmd.String()
		if cmd != "" && !tcellshell.Balanced(cmd) {
			u.cmd.insert("\n")
			return
		}
		u.submit(cmd)
	case tcellshell.ActionForceSubmit:
		u.submit(u.cmd.String())
	case tcellshell.ActionInsertNewline:
		u.cmd.insert("\n")
	case tcellshell.ActionComplete:
		u.complete()
	case tcellshell.ActionInterrupt:
		if err := u.shell.Interrupt(); err != nil {
			u.log.Warn("interrupt shell", "err", err)
		}
	case tcellshell.ActionHistoryPrev:
		if u.cmd.up() {
			return
		}
		if cmd, ok := u.history.Prev(u.cmd.String()); ok {
			u.cmd.set(cmd)
		}
	case tcellshell.ActionHistoryNext:
		if u.cmd.down() {
			return
		}
		if cmd, ok := u.history.Next(); ok {
			u.cmd.set(cmd)
		}
	case tcellshell.ActionFocusOutput:
		u.focus = tcellshell.FocusOutput
	case tcellshell.ActionFocusCommand:
		u.focus = tcellshell.FocusCommand
		u.scroll = 0
	default:
		if u.focus == tcellshell.FocusOutput {
			u.scrollKey(ev)
			return
		}
		u.edit(ev)
	}
}

func (u *ui) submit(cmd string) {
	if cmd != "" {
		u.history.Add(cmd)
	}
	u.cmd.set("")
	u.scroll = 0
	if err := u.shell.Submit(cmd); err != nil {
		u.log.Warn("submit command", "err", err)
	}
}

func (u *ui) complete() {
	prefix := u.cmd.String()
	if prefix == "" || !u.cmd.atEnd() {
		return
	}
	go func() {
		// the result is posted as an event
		_, _ = u.shell.Complete(u.ctx, prefix)
	}()
}

func (u *ui) completion(res termutil.CompletionResult, err error) {
	switch {
	case errors.Is(err, termutil.ErrNoCompletion):
		_ = u.screen.Beep()
		return
	case errors.Is(err, termutil.ErrCompletionInFlight):
		return
	case err != nil:
		u.log.Warn("complete command", "err", err)
		return
	}
	if res.Prefix != u.cmd.String() {
		// typed over while the shell was busy
		return
	}
	switch {
	case res.Ambiguous:
		_ = u.screen.Beep()
	case res.Stage == termutil.StageSecond:
		if len(res.Candidates) > 0 {
			u.transcript.WriteString("\n" + strings.Join(res.Candidates, "\n") + "\n")
		}
	default:
		u.cmd.set(res.Line())
	}
}

func (u *ui) edit(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		u.cmd.insert(string(ev.Rune()))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		u.cmd.backspace()
	case tcell.KeyDelete:
		u.cmd.delete()
	case tcell.KeyLeft:
		u.cmd.left()
	case tcell.KeyRight:
		u.cmd.right()
	case tcell.KeyHome, tcell.KeyCtrlA:
		u.cmd.home()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		u.cmd.end()
	case tcell.KeyCtrlL:
		u.transcript.Clear()
	case tcell.KeyCtrlD:
		if u.cmd.String() == "" {
			u.submit("exit")
		}
	case tcell.KeyPgUp, tcell.KeyPgDn:
		u.scrollKey(ev)
	}
}

func (u *ui) scrollKey(ev *tcell.EventKey) {
	page := max(u.outRows-1, 1)
	switch ev.Key() {
	case tcell.KeyUp:
		u.scroll++
	case tcell.KeyDown:
		u.scroll--
	case tcell.KeyPgUp:
		u.scroll += page
	case tcell.KeyPgDn:
		u.scroll -= page
	case tcell.KeyHome:
		u.scroll = u.transcript.Len()
	case tcell.KeyEnd:
		u.scroll = 0
	}
	u.scroll = min(max(u.scroll, 0), max(u.transcript.Len()-1, 0))
}

func (u *ui) draw() {
	u.layout()
	u.screen.Clear()
	u.title.Draw()
	u.transcript.Draw(u.outView, u.scroll)

	w, _ := u.screen.Size()
	sep := tcell.StyleDefault.Foreground(u.theme.Palette(termutil.ColourBrightBlack))
	for x := 0; x < w; x++ {
		u.screen.SetContent(x, u.outRows+1, tcell.RuneHLine, nil, sep)
	}
	u.drawCmd()
	u.screen.Show()
}

func (u *ui) drawCmd() {
	_, rows := u.cmdView.Size()
	lines := u.cmd.lines()
	row, col := u.cmd.position()
	first := max(row-rows+1, 0)
	style := tcell.StyleDefault.Foreground(u.theme.DefaultForeground())
	for y := 0; y < rows && first+y < len(lines); y++ {
		lead := strings.Repeat(" ", len(prompt))
		if first+y == 0 {
			lead = prompt
		}
		x := 0
		for _, r := range lead + lines[first+y] {
			ch := r
			if r == '\t' {
				ch = ' '
			}
			u.cmdView.SetContent(x, y, ch, nil, style)
			x += runeWidth(r)
		}
	}

	if u.focus != tcellshell.FocusCommand {
		u.screen.HideCursor()
		return
	}
	u.screen.ShowCursor(len(prompt)+col, u.outRows+2+row-first)
}
