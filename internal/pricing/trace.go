package pricing

import "fmt"

// Trace is an ordered, human-readable record of every resolution decision made
// during one pricing call. It is purely observational and never affects
// control flow. A fresh trace is built per call.
type Trace struct {
	entries []string
}

// Addf appends a formatted entry.
func (t *Trace) Addf(format string, args ...any) {
	if t == nil {
		return
	}
	t.entries = append(t.entries, fmt.Sprintf(format, args...))
}

// Entries returns the recorded entries in order.
func (t *Trace) Entries() []string {
	if t == nil {
		return nil
	}
	return t.entries
}
