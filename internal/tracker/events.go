package tracker

import (
	"fmt"
	"sync"

	"worktracker/internal/models"
)

type EventType int

const (
	StateChanged EventType = iota
	ElapsedTick
	GoalReached
	ReportSent
	ReportFailed
	CaptureFailed
)

func (t EventType) String() string {
	switch t {
	case StateChanged:
		return "state-changed"
	case ElapsedTick:
		return "elapsed"
	case GoalReached:
		return "goal-reached"
	case ReportSent:
		return "report-sent"
	case ReportFailed:
		return "report-failed"
	case CaptureFailed:
		return "capture-failed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is what views see of the engine. Message is a status line ready for
// display.
type Event struct {
	Type     EventType
	State    State
	Elapsed  int64
	Progress int64
	Report   *models.Report
	Err      error
	Message  string
}

// Bus delivers events synchronously, in registration order.
type Bus struct {
	mu        sync.Mutex
	listeners []func(Event)
}

func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	ls := append([]func(Event){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range ls {
		fn(ev)
	}
}
