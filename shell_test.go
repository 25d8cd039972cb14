package tcellshell

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~ghost08/tcell-shell/termutil"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession plays the shell: typed probes are echoed through inbound by
// onTab
type fakeSession struct {
	mu       sync.Mutex
	calls    []string
	inbound  chan []byte
	exited   chan struct{}
	code     int
	onTab    func(s *fakeSession, prefix string, stage termutil.Stage)
	closeOne sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		inbound: make(chan []byte, 16),
		exited:  make(chan struct{}),
	}
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) tab(prefix string, stage termutil.Stage) error {
	f.record(stage.String() + ":" + prefix)
	if f.onTab != nil {
		go f.onTab(f, prefix, stage)
	}
	return nil
}

func (f *fakeSession) FirstTab(prefix string) error {
	return f.tab(prefix, termutil.StageFirst)
}

func (f *fakeSession) SecondTab(prefix string) error {
	return f.tab(prefix, termutil.StageSecond)
}

func (f *fakeSession) Interrupt() error {
	f.record("interrupt")
	return nil
}

func (f *fakeSession) Inbound() <-chan []byte {
	return f.inbound
}

func (f *fakeSession) Exited() <-chan struct{} {
	return f.exited
}

func (f *fakeSession) ExitCode() int {
	return f.code
}

func (f *fakeSession) WriteCommand(text string) error {
	f.record("command:" + text)
	return nil
}

func (f *fakeSession) Resize(rows, cols uint16) error {
	return nil
}

func (f *fakeSession) Close() error {
	f.closeOne.Do(func() {
		close(f.inbound)
		close(f.exited)
	})
	return nil
}

func (f *fakeSession) send(s string) {
	f.inbound <- []byte(s)
}

// startFake attaches a fake session and collects every posted event
func startFake(t *testing.T, opts ...func(*Shell)) (*Shell, *fakeSession, <-chan tcell.Event) {
	t.Helper()
	events := make(chan tcell.Event, 64)
	sh := New()
	sh.CompletionTimeout = time.Second
	for _, opt := range opts {
		opt(sh)
	}
	sh.Attach(func(ev tcell.Event) {
		events <- ev
	})
	f := newFakeSession()
	sh.attach(f)
	t.Cleanup(func() {
		_ = sh.Close()
	})
	return sh, f, events
}

func nextEvent[T tcell.Event](t *testing.T, events <-chan tcell.Event) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if want, ok := ev.(T); ok {
				return want
			}
		case <-timeout:
			var zero T
			t.Fatalf("no %T posted", zero)
			return zero
		}
	}
}

func TestShellOutput(t *testing.T) {
	sh, f, events := startFake(t)
	f.send("\x1b[31mred\x1b[0m plain")
	ev := nextEvent[*EventOutput](t, events)
	assert.Equal(t, []Span{{Text: "red", Style: red}, {Text: " plain"}}, ev.Rendered().Spans)
	assert.Same(t, sh, ev.Shell())
	assert.False(t, ev.When().IsZero())
}

func TestShellOutputSplitSequence(t *testing.T) {
	sh, f, events := startFake(t)
	f.send("\x1b[3")
	f.send("1mred")
	ev := nextEvent[*EventOutput](t, events)
	assert.Equal(t, []Span{{Text: "red", Style: red}}, ev.Rendered().Spans)
	assert.Equal(t, red, sh.Style())
}

func TestShellTitle(t *testing.T) {
	sh, f, events := startFake(t)
	f.send("\x1b]2;~/src\x07$ ")
	ev := nextEvent[*EventTitle](t, events)
	assert.Equal(t, "~/src", ev.Title())
	out := nextEvent[*EventOutput](t, events)
	assert.Equal(t, "$ ", out.Rendered().String())
	assert.Equal(t, "~/src", sh.Title())
}

func TestShellClosed(t *testing.T) {
	sh, f, events := startFake(t)
	f.code = 3
	f.send("bye\x1b[3")
	require.NoError(t, sh.Close())

	out := nextEvent[*EventOutput](t, events)
	assert.Equal(t, "bye", out.Rendered().String())
	// the unterminated sequence is flushed as text
	out = nextEvent[*EventOutput](t, events)
	assert.Equal(t, "\x1b[3", out.Rendered().String())
	ev := nextEvent[*EventClosed](t, events)
	assert.Equal(t, 3, ev.ExitCode())
}

func TestShellSubmit(t *testing.T) {
	sh, f, _ := startFake(t)
	require.NoError(t, sh.Submit("ls -la"))
	require.NoError(t, sh.Interrupt())
	assert.Equal(t, []string{"command:ls -la", "interrupt"}, f.Calls())
}

func TestShellNotStarted(t *testing.T) {
	sh := New()
	assert.ErrorIs(t, sh.Submit("ls"), errNotStarted)
	assert.ErrorIs(t, sh.Interrupt(), errNotStarted)
	_, err := sh.Complete(context.Background(), "ls")
	assert.ErrorIs(t, err, errNotStarted)
	assert.NoError(t, sh.Resize(24, 80))
	assert.NoError(t, sh.Close())
}

func TestShellStartTwice(t *testing.T) {
	sh, _, _ := startFake(t)
	assert.ErrorIs(t, sh.Start(exec.Command("true")), errAlreadyStarted)
}

func TestShellComplete(t *testing.T) {
	sh, f, events := startFake(t)
	f.onTab = func(f *fakeSession, prefix string, stage termutil.Stage) {
		f.send(prefix)
		f.send("r/")
	}
	res, err := sh.Complete(context.Background(), "ls /us")
	require.NoError(t, err)
	assert.Equal(t, "r/", res.Suffix)
	assert.Equal(t, "ls /usr/", res.Line())

	ev := nextEvent[*EventCompletion](t, events)
	assert.NoError(t, ev.Err())
	assert.Equal(t, res, ev.Result())
	assert.Equal(t, []string{termutil.StageFirst.String() + ":ls /us", "interrupt"}, f.Calls())
}

func TestShellCompleteSecondStage(t *testing.T) {
	sh, f, _ := startFake(t)
	f.onTab = func(f *fakeSession, prefix string, stage termutil.Stage) {
		if stage == termutil.StageFirst {
			f.send(prefix + "\x07")
			return
		}
		f.send(prefix + "\r\nDocuments/  Downloads/\r\n$ " + prefix)
	}
	res, err := sh.Complete(context.Background(), "cd Do")
	require.NoError(t, err)
	assert.True(t, res.Ambiguous)

	res, err = sh.Complete(context.Background(), "cd Do")
	require.NoError(t, err)
	assert.Equal(t, termutil.StageSecond, res.Stage)
	assert.Equal(t, []string{"Documents/", "Downloads/"}, res.Candidates)

	// a second stage result does not arm again
	_, err = sh.Complete(context.Background(), "cd Do")
	require.NoError(t, err)
	calls := f.Calls()
	require.Len(t, calls, 6)
	assert.Equal(t, termutil.StageFirst.String()+":cd Do", calls[4])
}

func TestShellCompleteDisarm(t *testing.T) {
	sh, f, _ := startFake(t)
	f.onTab = func(f *fakeSession, prefix string, stage termutil.Stage) {
		f.send(prefix + "\x07")
	}
	res, err := sh.Complete(context.Background(), "cd Do")
	require.NoError(t, err)
	assert.True(t, res.Ambiguous)

	// another prefix starts over with the first stage
	_, err = sh.Complete(context.Background(), "cd Dow")
	require.NoError(t, err)
	assert.Equal(t, termutil.StageFirst.String()+":cd Dow", f.Calls()[2])

	// submitting disarms
	require.NoError(t, sh.Submit("true"))
	_, err = sh.Complete(context.Background(), "cd Dow")
	require.NoError(t, err)
	assert.Equal(t, termutil.StageFirst.String()+":cd Dow", f.Calls()[5])
}

func TestShellCompleteNothing(t *testing.T) {
	sh, f, events := startFake(t, func(sh *Shell) {
		sh.CompletionTimeout = 50 * time.Millisecond
	})
	f.onTab = func(f *fakeSession, prefix string, stage termutil.Stage) {
		f.send("unrelated")
	}
	_, err := sh.Complete(context.Background(), "xyzzy")
	assert.True(t, errors.Is(err, termutil.ErrNoCompletion))
	ev := nextEvent[*EventCompletion](t, events)
	assert.ErrorIs(t, ev.Err(), termutil.ErrNoCompletion)
}

func TestShellCompleteWithoutBell(t *testing.T) {
	sh, f, _ := startFake(t, func(sh *Shell) {
		sh.CompletionTimeout = 50 * time.Millisecond
	})
	f.onTab = func(f *fakeSession, prefix string, stage termutil.Stage) {
		if stage == termutil.StageFirst {
			f.send(prefix)
			return
		}
		f.send(prefix + "\r\nbin/  boot/\r\n$ " + prefix)
	}
	res, err := sh.Complete(context.Background(), "ls /b")
	require.NoError(t, err)
	assert.True(t, res.Ambiguous)

	res, err = sh.Complete(context.Background(), "ls /b")
	require.NoError(t, err)
	assert.Equal(t, termutil.StageSecond, res.Stage)
	assert.Equal(t, []string{"bin/", "boot/"}, res.Candidates)
	assert.Equal(t, termutil.StageSecond.String()+":ls /b", f.Calls()[2])
}

func TestShellCompletionEchoIsNotOutput(t *testing.T) {
	sh, f, events := startFake(t)
	f.onTab = func(f *fakeSession, prefix string, stage termutil.Stage) {
		f.send(prefix + "r/")
	}
	_, err := sh.Complete(context.Background(), "ls /us")
	require.NoError(t, err)
	f.send("after")
	out := nextEvent[*EventOutput](t, events)
	assert.Equal(t, "after", out.Rendered().String())
}

func TestShellStartMissing(t *testing.T) {
	sh := New()
	err := sh.Start(exec.Command("/nonexistent/shell"))
	var startup *termutil.StartupError
	assert.ErrorAs(t, err, &startup)
}

func TestShellStartCat(t *testing.T) {
	sh := New()
	events := make(chan tcell.Event, 64)
	sh.Attach(func(ev tcell.Event) {
		events <- ev
	})
	if err := sh.Start(exec.Command("cat")); err != nil {
		t.Skipf("cannot start a pty: %v", err)
	}
	require.NoError(t, sh.Submit("hello"))
	out := nextEvent[*EventOutput](t, events)
	assert.Contains(t, out.Rendered().String(), "hello")
	require.NoError(t, sh.Close())
	nextEvent[*EventClosed](t, events)
}
