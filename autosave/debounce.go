package autosave

import "time"

// DefaultQuiescence is how long content must stay untouched before it settles.
const DefaultQuiescence = 800 * time.Millisecond

// Debouncer tracks quiescence for content edits without owning a timer: each
// Touch returns a generation, the caller schedules a tick for that generation
// after Delay, and Fire accepts only the newest generation. Older ticks are
// stale and fire nothing, which is what resets the quiescence window.
type Debouncer struct {
	delay time.Duration
	gen   uint64
	armed bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultQuiescence
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Touch records a mutation and returns the generation its tick must carry.
func (d *Debouncer) Touch() uint64 {
	d.gen++
	d.armed = true
	return d.gen
}

// Fire consumes the tick for gen. It reports true once per quiescence period:
// only for the latest generation and only while armed.
func (d *Debouncer) Fire(gen uint64) bool {
	if !d.armed || gen != d.gen {
		return false
	}
	d.armed = false
	return true
}

// Cancel drops any pending tick so it never fires.
func (d *Debouncer) Cancel() {
	d.gen++
	d.armed = false
}

func (d *Debouncer) Armed() bool { return d.armed }
