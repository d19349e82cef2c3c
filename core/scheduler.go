package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler dispatches timers in wake-time order. Timers are kept in a
// sorted singly linked list, as in Klipper's sched_add_timer.
type Scheduler struct {
	timers *Timer
}

// before compares wake times modulo 2^32 so the list survives clock wrap
func before(a, b uint32) bool {
	return int32(a-b) < 0
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	Critical(func() {
		s.insert(t)
	})
}

func (s *Scheduler) insert(t *Timer) {
	if s.timers == nil || before(t.WakeTime, s.timers.WakeTime) {
		t.Next = s.timers
		s.timers = t
		return
	}

	current := s.timers
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Cancel removes a timer if it is scheduled
func (s *Scheduler) Cancel(t *Timer) {
	Critical(func() {
		for p := &s.timers; *p != nil; p = &(*p).Next {
			if *p == t {
				*p = t.Next
				t.Next = nil
				return
			}
		}
	})
}

// Dispatch runs every timer due at now. Handlers run outside the critical
// section so they may take it themselves.
func (s *Scheduler) Dispatch(now uint32) int {
	ran := 0
	for {
		var timer *Timer
		Critical(func() {
			if s.timers != nil && !before(now, s.timers.WakeTime) {
				timer = s.timers
				s.timers = timer.Next
				timer.Next = nil
			}
		})
		if timer == nil {
			return ran
		}

		ran++
		if timer.Handler(timer) == SF_RESCHEDULE {
			s.Schedule(timer)
		}
	}
}

// Every builds a timer that calls fn each period ticks, first at start
func Every(start, period uint32, fn func()) *Timer {
	if period == 0 {
		panic("core: timer period must be positive")
	}
	return &Timer{
		WakeTime: start,
		Handler: func(t *Timer) uint8 {
			fn()
			t.WakeTime += period
			return SF_RESCHEDULE
		},
	}
}
