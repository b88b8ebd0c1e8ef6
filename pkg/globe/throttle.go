package globe

import "time"

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timer struct {
	due time.Time
	seq uint64
	fn  func()
}

// Timers is a Scheduler whose callbacks fire only from Run, so they execute
// on the same goroutine as the frame loop that drives it.
type Timers struct {
	now     func() time.Time
	pending []timer
	seq     uint64
}

// NewTimers returns a Timers reading the clock from now. A nil now uses
// time.Now.
func NewTimers(now func() time.Time) *Timers {
	if now == nil {
		now = time.Now
	}
	return &Timers{now: now}
}

func (t *Timers) AfterFunc(d time.Duration, f func()) {
	t.seq++
	t.pending = append(t.pending, timer{due: t.now().Add(d), seq: t.seq, fn: f})
}

// Run fires every timer due at or before now in deadline order. Timers
// scheduled by a callback are fired in the same call if already due.
func (t *Timers) Run(now time.Time) int {
	fired := 0
	for {
		idx := -1
		for i, tm := range t.pending {
			if tm.due.After(now) {
				continue
			}
			if idx < 0 || tm.due.Before(t.pending[idx].due) ||
				(tm.due.Equal(t.pending[idx].due) && tm.seq < t.pending[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			return fired
		}
		tm := t.pending[idx]
		t.pending = append(t.pending[:idx], t.pending[idx+1:]...)
		tm.fn()
		fired++
	}
}

// Len reports the number of timers not yet fired.
func (t *Timers) Len() int { return len(t.pending) }

// Next returns the earliest pending deadline.
func (t *Timers) Next() (time.Time, bool) {
	if len(t.pending) == 0 {
		return time.Time{}, false
	}
	next := t.pending[0].due
	for _, tm := range t.pending[1:] {
		if tm.due.Before(next) {
			next = tm.due
		}
	}
	return next, true
}

// ThrottleState is the scheduling state of a Throttler.
type ThrottleState int

const (
	Idle ThrottleState = iota
	Running
	RunningWithPending
)

func (s ThrottleState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case RunningWithPending:
		return "running-with-pending"
	}
	return "unknown"
}

// Throttler runs work at most once per interval. Calls made during the
// interval collapse into one trailing run of the most recent work.
type Throttler struct {
	interval time.Duration
	sched    Scheduler
	state    ThrottleState
	queued   func()
}

func NewThrottler(interval time.Duration, sched Scheduler) *Throttler {
	return &Throttler{interval: interval, sched: sched}
}

// Execute runs work now if idle, otherwise queues it for the end of the
// current interval, replacing anything queued before.
func (t *Throttler) Execute(work func()) {
	if t.state != Idle {
		t.queued = work
		t.state = RunningWithPending
		return
	}
	t.state = Running
	work()
	t.sched.AfterFunc(t.interval, t.expire)
}

func (t *Throttler) expire() {
	if t.state != RunningWithPending {
		t.state = Idle
		return
	}
	work := t.queued
	t.queued = nil
	t.state = Running
	work()
	t.sched.AfterFunc(t.interval, t.expire)
}

func (t *Throttler) State() ThrottleState { return t.state }
