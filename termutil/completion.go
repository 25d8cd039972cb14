package termutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"pkt.systems/pslog"
)

// Stage selects how many tabs a completion probe sends
type Stage uint8

const (
	// StageFirst sends one tab: the shell completes the prefix if it can
	StageFirst Stage = iota + 1
	// StageSecond sends two tabs: the shell lists the candidates
	StageSecond
)

func (s Stage) String() string {
	switch s {
	case StageFirst:
		return "first"
	case StageSecond:
		return "second"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Prompter types completion probes into a shell. *Session implements it.
type Prompter interface {
	FirstTab(prefix string) error
	SecondTab(prefix string) error
	Interrupt() error
}

// CompletionRequest is the probe in flight
type CompletionRequest struct {
	Prefix string
	Stage  Stage
	// Echo is the text received so far with BEL and carriage returns removed
	Echo  string
	Start time.Time

	// offsets into Echo where a BEL was seen
	bells []int
}

// CompletionResult is what the shell answered
type CompletionResult struct {
	Prefix string
	Stage  Stage
	// Suffix is the text to append to Prefix, for StageFirst
	Suffix string
	// Ambiguous is set by StageFirst when the shell echoed the prefix
	// without completing anything, either ringing the bell or staying quiet
	// until the timeout. Ask again with StageSecond.
	Ambiguous bool
	// Listing is the raw candidate block and Candidates its non-blank
	// lines, for StageSecond
	Listing    string
	Candidates []string
}

// Line returns the completed command line
func (r CompletionResult) Line() string {
	return r.Prefix + r.Suffix
}

// Completer drives the shell's own tab completion by typing a prefix plus
// tabs and scraping the echo. Only one request may be in flight. While
// Active reports true, the output consumer must hand every piece of literal
// output to Feed instead of displaying it.
type Completer struct {
	prompter Prompter
	timeout  time.Duration
	log      pslog.Logger

	mu     sync.Mutex
	req    *CompletionRequest
	notify chan struct{}
}

func NewCompleter(p Prompter, opts ...CompleterOption) *Completer {
	c := &Completer{
		prompter: p,
		timeout:  DefaultCompletionTimeout,
		log:      discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Active reports whether a request is waiting for its echo
func (c *Completer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req != nil
}

// Feed appends output text to the echo of the request in flight. It
// reports false when there is no request, in which case the text belongs
// to the regular output.
func (c *Completer) Feed(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.req == nil {
		return false
	}
	var b strings.Builder
	b.WriteString(c.req.Echo)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case bel:
			c.req.bells = append(c.req.bells, b.Len())
		case '\r':
		default:
			b.WriteByte(text[i])
		}
	}
	c.req.Echo = b.String()
	c.signalLocked()
	return true
}

// Erase removes the last character of the echo, as a backspace would
func (c *Completer) Erase() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.req == nil {
		return false
	}
	if _, size := utf8.DecodeLastRuneInString(c.req.Echo); size > 0 {
		c.req.Echo = c.req.Echo[:len(c.req.Echo)-size]
		for len(c.req.bells) > 0 && c.req.bells[len(c.req.bells)-1] > len(c.req.Echo) {
			c.req.bells = c.req.bells[:len(c.req.bells)-1]
		}
	}
	c.signalLocked()
	return true
}

func (c *Completer) signalLocked() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Complete sends a probe for prefix and waits for the shell's echo. It
// returns ErrNoCompletion when the echo did not resolve before the timeout.
// A first stage probe whose prefix came back with nothing after it is
// Ambiguous instead, since readline may be set to not ring the bell. After the
// probe the shell is interrupted, discarding the typed prefix.
func (c *Completer) Complete(ctx context.Context, prefix string, stage Stage) (CompletionResult, error) {
	if prefix == "" {
		return CompletionResult{}, ErrEmptyPrefix
	}
	c.mu.Lock()
	if c.req != nil {
		c.mu.Unlock()
		return CompletionResult{}, ErrCompletionInFlight
	}
	req := &CompletionRequest{Prefix: prefix, Stage: stage, Start: time.Now()}
	notify := make(chan struct{}, 1)
	c.req, c.notify = req, notify
	c.mu.Unlock()

	log := c.log.With("stage", stage.String())
	var err error
	if stage == StageSecond {
		err = c.prompter.SecondTab(prefix)
	} else {
		err = c.prompter.FirstTab(prefix)
	}
	if err != nil {
		c.release()
		return CompletionResult{}, fmt.Errorf("completion probe: %w", err)
	}
	defer func() {
		c.release()
		if err := c.prompter.Interrupt(); err != nil {
			log.Warn("completion interrupt", "err", err)
		}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		c.mu.Lock()
		res, ok := req.match()
		echo := req.Echo
		c.mu.Unlock()
		if ok {
			log.Debug("completion resolved", "suffix", res.Suffix, "ambiguous", res.Ambiguous, "candidates", len(res.Candidates), "elapsed", time.Since(req.Start))
			return res, nil
		}
		select {
		case <-notify:
		case <-timer.C:
			c.mu.Lock()
			res, ok := req.quiet()
			c.mu.Unlock()
			if ok {
				log.Debug("completion ambiguous without bell", "elapsed", time.Since(req.Start))
				return res, nil
			}
			log.Debug("completion timed out", "echo", echo)
			return CompletionResult{}, ErrNoCompletion
		case <-ctx.Done():
			return CompletionResult{}, ctx.Err()
		}
	}
}

func (c *Completer) release() {
	c.mu.Lock()
	c.req, c.notify = nil, nil
	c.mu.Unlock()
}

// echoed returns the offset just past the first occurrence of the prefix
// in the echo. Output that reached the shell before the probe, like the
// prompt redrawn after an earlier interrupt, may precede it.
func (r *CompletionRequest) echoed() (int, bool) {
	i := strings.Index(r.Echo, r.Prefix)
	if i < 0 {
		return 0, false
	}
	return i + len(r.Prefix), true
}

// quiet resolves a first stage probe that timed out after the prefix was
// echoed with nothing following it
func (r *CompletionRequest) quiet() (CompletionResult, bool) {
	res := CompletionResult{Prefix: r.Prefix, Stage: r.Stage}
	if r.Stage == StageSecond {
		return res, false
	}
	end, ok := r.echoed()
	if !ok || r.Echo[end:] != "" {
		return res, false
	}
	res.Ambiguous = true
	return res, true
}

// match looks for the shell's answer in the echo received so far
func (r *CompletionRequest) match() (CompletionResult, bool) {
	res := CompletionResult{Prefix: r.Prefix, Stage: r.Stage}
	end, ok := r.echoed()
	if !ok {
		return res, false
	}
	rest := r.Echo[end:]

	if r.Stage != StageSecond {
		if rest != "" {
			res.Suffix = rest
			return res, true
		}
		for _, at := range r.bells {
			if at >= end {
				res.Ambiguous = true
				return res, true
			}
		}
		return res, false
	}

	// the shell prints the candidates, then redraws the prompt and the
	// prefix
	if !strings.HasSuffix(rest, r.Prefix) {
		return res, false
	}
	res.Listing = rest[:len(rest)-len(r.Prefix)]
	res.Candidates = candidates(res.Listing)
	return res, true
}

// candidates splits a listing into lines, dropping the unterminated last
// line (the prompt) and blank lines. Readline lays candidates out in
// columns separated by at least two spaces, so each line is split there.
func candidates(listing string) []string {
	lines := strings.Split(listing, "\n")
	lines = lines[:len(lines)-1]
	var out []string
	for _, line := range lines {
		out = append(out, columns(line)...)
	}
	return out
}

// columns splits line on runs of two or more spaces or tabs
func columns(line string) []string {
	var out []string
	start := -1
	for i := 0; i < len(line); i++ {
		gap := line[i] == '\t' ||
			(line[i] == ' ' && i+1 < len(line) && (line[i+1] == ' ' || line[i+1] == '\t'))
		if !gap {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, strings.TrimSpace(line[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		if col := strings.TrimSpace(line[start:]); col != "" {
			out = append(out, col)
		}
	}
	return out
}
