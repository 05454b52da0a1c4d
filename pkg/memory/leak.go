package memory

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Leak Tracking
//
// A Tracker is a diagnostic registry of live objects, scoped to one Manager
// and enabled through Config.TrackLeaks. It plays no part in correctness:
// objects are tracked at Init and untracked at deallocation, and whatever is
// left when the manager closes is reported as a leak.

// LeakRecord describes one object still alive.
type LeakRecord struct {
	Type   string
	Object string
	Count  uint32
}

// Tracker records live managed objects.
type Tracker struct {
	live   map[Ref]uint64
	seq    uint64
	logger *log.Logger
}

// NewTracker creates an empty tracker. Corruption notices go to logger.
func NewTracker(logger *log.Logger) *Tracker {
	return &Tracker{
		live:   make(map[Ref]uint64),
		logger: logger,
	}
}

// Track records r as live.
func (t *Tracker) Track(r Ref) {
	t.seq++
	t.live[r] = t.seq
}

// Untrack forgets r. Untracking an object that was never tracked is logged
// as corruption.
func (t *Tracker) Untrack(r Ref) {
	if _, ok := t.live[r]; !ok {
		if t.logger != nil {
			t.logger.Printf("[memory] CORRUPTION: Attempting to free (%s) with invalid ref tracking record.", typeName(r))
		}
		return
	}
	delete(t.live, r)
}

// IsTracked reports whether r is recorded as live.
func (t *Tracker) IsTracked(r Ref) bool {
	_, ok := t.live[r]
	return ok
}

// Len returns the number of live objects.
func (t *Tracker) Len() int {
	return len(t.live)
}

// Live returns the live objects in the order they were created.
func (t *Tracker) Live() []LeakRecord {
	type entry struct {
		ref Ref
		seq uint64
	}
	entries := make([]entry, 0, len(t.live))
	for r, seq := range t.live {
		entries = append(entries, entry{r, seq})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	records := make([]LeakRecord, len(entries))
	for i, e := range entries {
		records[i] = LeakRecord{
			Type:   typeName(e.ref),
			Object: describe(e.ref),
			Count:  e.ref.ReferenceCount(),
		}
	}
	return records
}

const (
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// Report writes a leak summary to w, one aligned line per live object.
func (t *Tracker) Report(w io.Writer, color bool) error {
	records := t.Live()
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "[memory] All Ref objects successfully cleaned up (no leaks detected).")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[memory] WARNING: %d Ref objects still active in memory.\n", len(records))

	width := 0
	for _, rec := range records {
		if n := runewidth.StringWidth(rec.Type); n > width {
			width = n
		}
	}
	for _, rec := range records {
		label := "LEAK"
		if color {
			label = colorRed + label + colorReset
		}
		fmt.Fprintf(&b, "[memory] %s: Ref object %s still active with reference count %d.\n",
			label, runewidth.FillRight("'"+rec.Type+"'", width+2), rec.Count)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
