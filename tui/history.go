package tui

// History keeps submitted commands for Up/Down recall. Navigation starts
// from the newest entry and remembers the half-typed line it replaced, so
// stepping past the newest entry gives that line back.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
	draft   string
}

// NewHistory creates a history buffer holding at most max commands.
func NewHistory(max int) *History {
	return &History{
		entries: make([]string, 0, max),
		max:     max,
		cursor:  -1,
	}
}

// Push records a submitted command and ends navigation. Repeating the
// newest entry is not recorded twice.
func (h *History) Push(cmd string) {
	h.cursor = -1
	h.draft = ""
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Prev moves to the next older entry. current is the input line shown
// when navigation begins; it is kept as the draft. ok is false when there
// is no history.
func (h *History) Prev(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.draft = current
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next moves to the next newer entry. Past the newest it returns the
// draft with ok false and ends navigation.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return h.draft, false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return h.draft, false
	}
	return h.entries[h.cursor], true
}

// Len returns the number of stored commands.
func (h *History) Len() int {
	return len(h.entries)
}
