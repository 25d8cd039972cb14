package tcellshell

// History holds submitted command lines for Up/Down recall. The command
// line being edited when recall starts is kept and restored after the
// newest entry.
type History struct {
	entries    []string
	idx        int
	inProgress string
}

func NewHistory() *History {
	return &History{idx: -1}
}

// Add records cmd unless it repeats the newest entry, and ends recall
func (h *History) Add(cmd string) {
	if n := len(h.entries); n == 0 || h.entries[n-1] != cmd {
		h.entries = append(h.entries, cmd)
	}
	h.idx = -1
	h.inProgress = ""
}

func (h *History) Len() int {
	return len(h.entries)
}

// Prev returns the entry before the one shown. cur is the command line
// being edited, saved when recall starts. ok is false at the oldest entry.
func (h *History) Prev(cur string) (cmd string, ok bool) {
	switch {
	case len(h.entries) == 0:
		return "", false
	case h.idx == -1:
		h.inProgress = cur
		h.idx = len(h.entries) - 1
	case h.idx > 0:
		h.idx--
	default:
		return "", false
	}
	return h.entries[h.idx], true
}

// Next returns the entry after the one shown, or the saved command line
// after the newest. ok is false when recall is not active.
func (h *History) Next() (cmd string, ok bool) {
	if h.idx == -1 {
		return "", false
	}
	h.idx++
	if h.idx == len(h.entries) {
		h.idx = -1
		return h.inProgress, true
	}
	return h.entries[h.idx], true
}
