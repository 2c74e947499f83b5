package agent

// History is the run transcript. Entry 0 is the task and survives truncation.
type History struct {
	entries []string
	limit   int
}

// NewHistory returns a History holding at most limit entries. Limits below 2
// are raised to 2 so the task and the newest entry always fit.
func NewHistory(limit int) *History {
	if limit < 2 {
		limit = 2
	}
	return &History{limit: limit}
}

// Add appends entry, dropping the oldest entries after the first when the
// limit is exceeded.
func (h *History) Add(entry string) {
	h.entries = append(h.entries, entry)
	if len(h.entries) <= h.limit {
		return
	}
	kept := make([]string, 0, h.limit)
	kept = append(kept, h.entries[0])
	kept = append(kept, h.entries[len(h.entries)-(h.limit-1):]...)
	h.entries = kept
}

// Len returns the number of entries held.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of every entry.
func (h *History) Entries() []string { return append([]string(nil), h.entries...) }

// Tail returns a copy of the last n entries.
func (h *History) Tail(n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	return append([]string(nil), h.entries[len(h.entries)-n:]...)
}
