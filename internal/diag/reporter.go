package diag

import (
	"sort"
	"sync"

	"github.com/segmentio/ksuid"
)

// Reporter buffers diagnostics produced by concurrent analysis workers
// and hands them back ordered by source position for rendering.
type Reporter struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Report records one diagnostic. Safe to call from any goroutine; the
// scheduler's worker pool calls this directly from pass bodies rather
// than threading a channel back to a single collector.
func (r *Reporter) Report(d Diagnostic) {
	d.seq = ksuid.New().String()
	r.mu.Lock()
	r.diags = append(r.diags, d)
	r.mu.Unlock()
}

// Len reports how many diagnostics have been buffered so far.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diags)
}

// Sorted returns every buffered diagnostic ordered by source position
// (file, then line, then column), breaking ties on the ksuid assigned at
// Report time. A ksuid is a one-second timestamp followed by random
// bytes, so ties reported in different seconds sort in report order,
// while ties reported within the same second sort in an order that is
// fixed for this buffer but not tied to which one was reported first.
func (r *Reporter) Sorted() []Diagnostic {
	r.mu.Lock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Range, out[j].Range
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Begin.Line != b.Begin.Line {
			return a.Begin.Line < b.Begin.Line
		}
		if a.Begin.Column != b.Begin.Column {
			return a.Begin.Column < b.Begin.Column
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// HasErrors reports whether any buffered diagnostic is at Error level.
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}
