package tracker

import (
	"sync"
	"time"
)

// Ticker runs fn every interval until stopped. After Stop returns no new
// call of fn starts.
type Ticker interface {
	Start(interval time.Duration, fn func())
	Stop()
}

// IntervalTicker is a Ticker on top of time.Ticker.
type IntervalTicker struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewIntervalTicker() Ticker { return &IntervalTicker{} }

func (t *IntervalTicker) Start(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done

	go func() {
		defer close(done)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Stop cancels future ticks and waits for an in-flight one to finish. It
// must not be called from inside fn.
func (t *IntervalTicker) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
