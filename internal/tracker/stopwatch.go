package tracker

import "sync"

// Stopwatch counts displayed seconds. It advances one unit per display tick
// regardless of the reporting interval.
type Stopwatch struct {
	mu      sync.Mutex
	elapsed int64
	goal    int64
}

func NewStopwatch(goalSeconds int64) *Stopwatch {
	return &Stopwatch{goal: goalSeconds}
}

// Tick adds one second. reached is true only on the tick that hits the goal.
func (s *Stopwatch) Tick() (elapsed int64, reached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed++
	return s.elapsed, s.goal > 0 && s.elapsed == s.goal
}

func (s *Stopwatch) Elapsed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

func (s *Stopwatch) Goal() int64 { return s.goal }

// Progress is the elapsed time capped at the goal, for progress bars.
func (s *Stopwatch) Progress() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goal > 0 && s.elapsed > s.goal {
		return s.goal
	}
	return s.elapsed
}
