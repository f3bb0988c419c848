package schedule

import (
	"slices"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/doors/oerror"
)

type task struct {
	key string
	due time.Time
	seq uint64
	fn  func()
}

// Scheduler runs callbacks once their due time has passed. Tasks are keyed: scheduling a task under a
// key that already has one pending replaces it. The scheduler has no goroutines of its own, the owner
// calls Poll from its tick loop.
type Scheduler struct {
	clock Clock
	tasks map[string]*task
	seq   uint64
}

func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock, tasks: make(map[string]*task)}
}

// Clock returns the clock the scheduler measures due times against.
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// Schedule runs fn once delay has elapsed, cancelling any task already pending under key.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.seq++
	s.tasks[key] = &task{key: key, due: s.clock.Now().Add(delay), seq: s.seq, fn: fn}
}

// Cancel removes the task pending under key. It returns false if there was none.
func (s *Scheduler) Cancel(key string) bool {
	if _, ok := s.tasks[key]; !ok {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Pending returns whether a task is waiting under key.
func (s *Scheduler) Pending(key string) bool {
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Poll runs every task that is due, earliest first. Tasks scheduled by a callback are not run until the
// next Poll, even if they are already due.
func (s *Scheduler) Poll() {
	if len(s.tasks) == 0 {
		return
	}

	now := s.clock.Now()
	due := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.due.After(now) {
			due = append(due, t)
		}
	}
	slices.SortFunc(due, func(a, b *task) int {
		if c := a.due.Compare(b.due); c != 0 {
			return c
		}
		return int(a.seq) - int(b.seq)
	})

	for _, t := range due {
		// An earlier callback may have cancelled or replaced this task.
		if cur, ok := s.tasks[t.key]; !ok || cur != t {
			continue
		}
		delete(s.tasks, t.key)
		s.run(t)
	}
}

func (s *Scheduler) run(t *task) {
	defer func() {
		if v := recover(); v != nil {
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("task", t.key)
			})
			hub.Recover(oerror.New("scheduled task %s panicked: %v", t.key, v))
		}
	}()
	t.fn()
}
