package termutil

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	"pkt.systems/pslog"
)

// Status is the lifecycle state of a Session
type Status uint8

const (
	StatusStarting Status = iota
	StatusRunning
	StatusExited
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusExited:
		return "exited"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

const (
	lineClear   = 0x15 // ^U
	literalNext = 0x16 // ^V
)

// ShellCommand returns the interactive login shell every session runs
func ShellCommand() *exec.Cmd {
	return exec.Command("/bin/bash", "--login", "-i")
}

// Session owns a child process attached to a pseudo terminal. Output of the
// child is delivered in arrival order on Inbound. Input is queued and
// written by a single loop, so it reaches the child in submission order.
type Session struct {
	ID uuid.UUID

	log       pslog.Logger
	term      string
	chunkSize int
	rows      uint16
	cols      uint16

	pty *os.File
	cmd *exec.Cmd
	fd  int

	mu       sync.Mutex
	outbound [][]byte
	status   Status
	exitCode int
	closed   bool
	wakeR    int
	wakeW    int

	inbound  chan []byte
	done     chan struct{}
	loopDone chan struct{}
	exited   chan struct{}
	once     sync.Once
}

func newSession(opts ...Option) *Session {
	s := &Session{
		ID:        uuid.New(),
		log:       discardLogger(),
		term:      DefaultTERM,
		chunkSize: DefaultChunkSize,
		rows:      defaultRows,
		cols:      defaultCols,
		fd:        -1,
		wakeR:     -1,
		wakeW:     -1,
		inbound:   make(chan []byte, 256),
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		exited:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.ID.String())
	return s
}

// Spawn starts cmd on a new pty, in its own session and process group, and
// returns the running Session. Use ShellCommand for the interactive shell.
func Spawn(cmd *exec.Cmd, opts ...Option) (*Session, error) {
	s := newSession(opts...)
	cmd.Env = append(cmd.Environ(), "TERM="+s.term)

	winsize := pty.Winsize{
		Rows: s.rows,
		Cols: s.cols,
	}
	f, err := pty.StartWithAttrs(cmd, &winsize, &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 1})
	if err != nil {
		return nil, &StartupError{Path: cmd.Path, Err: err}
	}
	s.cmd = cmd
	s.log = s.log.With("pid", cmd.Process.Pid)
	if err := s.attach(f); err != nil {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		_ = cmd.Wait()
		_ = f.Close()
		return nil, &StartupError{Path: cmd.Path, Err: err}
	}
	go s.monitor()
	s.log.Info("session started", "cmd", strings.Join(cmd.Args, " "), "term", s.term)
	return s, nil
}

// attach takes ownership of f and starts the I/O loop on it
func (s *Session) attach(f *os.File) error {
	// Fd puts the file back into blocking mode, so it is switched to
	// non-blocking after
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set non-blocking: %w", err)
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return fmt.Errorf("wake pipe: %w", err)
	}
	s.pty = f
	s.fd = fd
	s.wakeR, s.wakeW = p[0], p[1]
	s.status = StatusRunning
	go s.loop()
	return nil
}

// Inbound delivers chunks of child output. It is closed once the session
// has shut down.
func (s *Session) Inbound() <-chan []byte {
	return s.inbound
}

// Done is closed when the session shuts down
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Exited is closed once the child has been reaped and ExitCode is final
func (s *Session) Exited() <-chan struct{} {
	return s.exited
}

// Status reports the lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ExitCode is the exit status of the child once Status is StatusExited. It
// is -1 if the child was killed by a signal.
func (s *Session) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Pid returns the process id of the child, or 0
func (s *Session) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// WriteCommand submits text as a command line. Any partially typed input is
// cleared first and tabs are inserted literally instead of completing.
func (s *Session) WriteCommand(text string) error {
	payload := strings.ReplaceAll(text, "\t", string([]byte{literalNext, '\t'})) + "\n"
	return s.enqueue([]byte{lineClear}, []byte(payload))
}

// FirstTab types prefix followed by one tab, which asks the shell to
// complete it
func (s *Session) FirstTab(prefix string) error {
	return s.enqueue([]byte{lineClear}, []byte(prefix+"\t"))
}

// SecondTab types prefix followed by two tabs, which makes the shell list
// the candidates
func (s *Session) SecondTab(prefix string) error {
	return s.enqueue([]byte{lineClear}, []byte(prefix+"\t\t"))
}

// Write queues raw bytes for the child
func (s *Session) Write(p []byte) (int, error) {
	if err := s.enqueue(append([]byte(nil), p...)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// enqueue appends units to the outbound queue. The units of one call are
// never interleaved with those of another.
func (s *Session) enqueue(units ...[]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.outbound = append(s.outbound, units...)
	s.wakeLocked()
	return nil
}

func (s *Session) wakeLocked() {
	if s.wakeW < 0 {
		return
	}
	// a full pipe already wakes the loop
	_, _ = unix.Write(s.wakeW, []byte{0})
}

func (s *Session) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbound) > 0
}

// Interrupt sends SIGINT to the child's process group
func (s *Session) Interrupt() error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	pid := s.Pid()
	if pid == 0 {
		return nil
	}
	if err := unix.Kill(-pid, unix.SIGINT); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("interrupt: %w", err)
	}
	s.log.Debug("interrupt sent")
	return nil
}

// Resize sets the window size of the pty
func (s *Session) Resize(rows, cols uint16) error {
	if s.pty == nil {
		return fmt.Errorf("session is not running")
	}
	if err := pty.Setsize(s.pty, &pty.Winsize{
		Rows: rows,
		Cols: cols,
	}); err != nil {
		return err
	}
	s.log.Debug("resize", "rows", rows, "cols", cols)
	return nil
}

// Close shuts the session down, killing the child's process group, and
// waits for the I/O loop to stop. It is safe to call more than once.
func (s *Session) Close() error {
	s.shutdown()
	<-s.loopDone
	<-s.exited
	return nil
}

// shutdown raises done, kills the process group and wakes the loop, which
// closes the inbound channel on its way out
func (s *Session) shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		s.wakeLocked()
		s.mu.Unlock()

		if pid := s.Pid(); pid != 0 {
			if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
				s.log.Warn("kill process group", "err", err)
			}
		}
		s.log.Debug("session shutdown")
	})
}

// monitor waits for the child to exit
func (s *Session) monitor() {
	defer close(s.exited)
	err := s.cmd.Wait()
	code := -1
	if st := s.cmd.ProcessState; st != nil {
		code = st.ExitCode()
	}
	s.mu.Lock()
	s.status = StatusExited
	s.exitCode = code
	s.mu.Unlock()
	if err != nil {
		s.log.Info("session exited", "code", code, "err", err)
	} else {
		s.log.Info("session exited", "code", code)
	}
	s.shutdown()
}

// loop multiplexes reads and writes on the pty until done
func (s *Session) loop() {
	defer s.finish()
	fd := s.fd
	buf := make([]byte, s.chunkSize)
	var drain [64]byte
	for {
		select {
		case <-s.done:
			if fd >= 0 && s.Status() == StatusExited {
				s.drain(fd, buf)
			}
			return
		default:
		}

		fds := []unix.PollFd{{Fd: int32(s.wakeR), Events: unix.POLLIN}}
		if fd >= 0 {
			events := int16(unix.POLLIN)
			if s.pending() {
				events |= unix.POLLOUT
			}
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
		}
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			s.log.Error("poll", "err", err)
			return
		}
		if fds[0].Revents != 0 {
			for {
				if n, _ := unix.Read(s.wakeR, drain[:]); n <= 0 {
					break
				}
			}
		}
		if fd < 0 {
			continue
		}

		revents := fds[1].Revents
		if revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			if !s.readOne(fd, buf) {
				// the monitor decides when the session is over
				fd = -1
				continue
			}
		}
		if revents&unix.POLLOUT != 0 {
			s.writeOne(fd)
		}
	}
}

// readOne performs one bounded read and queues the result. It returns false
// when the pty can no longer be read.
func (s *Session) readOne(fd int, buf []byte) bool {
	n, err := unix.Read(fd, buf)
	if n > 0 {
		chunk := append([]byte(nil), buf[:n]...)
		select {
		case s.inbound <- chunk:
		case <-s.done:
		}
		return true
	}
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return true
	case err == nil:
		s.log.Debug("pty read eof")
	default:
		s.log.Warn("pty read", "err", err)
	}
	return false
}

// drain hands over output the child wrote before exiting, as long as the
// inbound channel has room for it
func (s *Session) drain(fd int, buf []byte) {
	for {
		n, _ := unix.Read(fd, buf)
		if n <= 0 {
			return
		}
		select {
		case s.inbound <- append([]byte(nil), buf[:n]...):
		default:
			s.log.Warn("inbound full, dropping output", "len", n)
			return
		}
	}
}

// writeOne writes the unit at the head of the outbound queue. A partial
// write leaves the remainder at the head.
func (s *Session) writeOne(fd int) {
	s.mu.Lock()
	if len(s.outbound) == 0 {
		s.mu.Unlock()
		return
	}
	unit := s.outbound[0]
	s.mu.Unlock()

	n, err := unix.Write(fd, unit)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.log.Warn("pty write", "err", err, "len", len(unit))
		s.outbound = s.outbound[1:]
	case n < len(unit):
		s.outbound[0] = unit[n:]
	default:
		s.outbound = s.outbound[1:]
	}
}

func (s *Session) finish() {
	s.mu.Lock()
	_ = unix.Close(s.wakeR)
	_ = unix.Close(s.wakeW)
	s.wakeR, s.wakeW = -1, -1
	s.closed = true
	s.outbound = nil
	s.mu.Unlock()

	if s.pty != nil {
		_ = s.pty.Close()
	}
	close(s.inbound)
	close(s.loopDone)
	if s.cmd == nil {
		close(s.exited)
	}
}
