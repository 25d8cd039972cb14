package main

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	tcellshell "git.sr.ht/~ghost08/tcell-shell"
	"git.sr.ht/~ghost08/tcell-shell/termutil"
	"pkt.systems/pslog"
)

// outputWriter prints rendered shell output as plain text or as HTML spans
type outputWriter struct {
	mu    sync.Mutex
	w     io.Writer
	theme *termutil.Theme
	html  bool
	err   error
}

func (o *outputWriter) write(r tcellshell.Rendered) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return
	}
	var b strings.Builder
	if !o.html {
		b.WriteString(strings.Repeat("\b", r.Erase))
	}
	for _, span := range r.Spans {
		if !o.html {
			b.WriteString(span.Text)
			continue
		}
		fmt.Fprintf(&b, `<span style="%s">%s</span>`, span.Style.CSS(o.theme), html.EscapeString(span.Text))
	}
	_, o.err = io.WriteString(o.w, b.String())
}

func (o *outputWriter) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// runPipe runs every line read from in as a command and copies the shell
// output to out. When in is exhausted the shell is asked to exit.
func runPipe(ctx context.Context, cfg config, theme *termutil.Theme, asHTML bool, in io.Reader, out io.Writer) error {
	logger := pslog.Ctx(ctx)
	sh := cfg.newShell()
	sh.Logger = logger

	writer := &outputWriter{w: out, theme: theme, html: asHTML}
	closed := make(chan int, 1)
	sh.Attach(func(ev tcell.Event) {
		switch ev := ev.(type) {
		case *tcellshell.EventOutput:
			writer.write(ev.Rendered())
		case *tcellshell.EventClosed:
			closed <- ev.ExitCode()
		}
	})
	if err := sh.Start(nil); err != nil {
		return err
	}
	defer sh.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("read commands", "err", err)
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				if err := sh.Submit("exit"); err != nil {
					return err
				}
				continue
			}
			if err := sh.Submit(line); err != nil {
				return err
			}
		case code := <-closed:
			logger.Debug("shell exited", "code", code)
			return writer.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
