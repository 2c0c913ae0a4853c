// Package tracker runs the timer of the active task: it reports worked time
// with a screenshot at start, on a fixed interval and when the timer pauses
// or stops.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"worktracker/internal/models"
)

type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StopReason says why a timer was stopped.
type StopReason int

const (
	SwitchTask StopReason = iota
	Logout
	WindowClose
)

func (r StopReason) String() string {
	switch r {
	case SwitchTask:
		return "switch-task"
	case Logout:
		return "logout"
	case WindowClose:
		return "window-close"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

var ErrInvalidTransition = errors.New("invalid timer transition")

type Capturer interface {
	Capture() (string, error)
	CheckPermission() bool
}

// Compressor is optionally implemented by a Capturer.
type Compressor interface {
	Compress(path string) (string, error)
}

type Prober interface {
	Addresses() models.HostInfo
}

type Reporter interface {
	SubmitReport(ctx context.Context, r *models.Report) error
	ReportPermission(ctx context.Context, enabled bool) error
}

type Options struct {
	Interval      time.Duration
	SessionGoal   time.Duration
	ReportTimeout time.Duration
	Compress      bool
	// ResumeResetsClock starts the next report at resume time, leaving the
	// paused stretch unreported.
	ResumeResetsClock bool

	Now       func() time.Time
	NewTicker func() Ticker
}

func (o *Options) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Minute
	}
	if o.ReportTimeout <= 0 {
		o.ReportTimeout = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewTicker == nil {
		o.NewTicker = NewIntervalTicker
	}
}

type Engine struct {
	opts     Options
	capturer Capturer
	prober   Prober
	reporter Reporter

	bus       Bus
	stopwatch *Stopwatch

	reportTicker Ticker
	clockTicker  Ticker

	// ctlMu serializes Start/Pause/Resume/Stop, reportMu serializes ticks,
	// mu guards the fields below. Tickers are stopped with neither
	// reportMu nor mu held.
	ctlMu    sync.Mutex
	reportMu sync.Mutex
	mu       sync.Mutex

	state      State
	session    models.TrackingSession
	permission bool
}

// New builds the timer for one task. A new task gets a new Engine.
func New(task models.Task, capturer Capturer, prober Prober, reporter Reporter, opts Options) *Engine {
	opts.setDefaults()
	return &Engine{
		opts:         opts,
		capturer:     capturer,
		prober:       prober,
		reporter:     reporter,
		stopwatch:    NewStopwatch(int64(opts.SessionGoal / time.Second)),
		reportTicker: opts.NewTicker(),
		clockTicker:  opts.NewTicker(),
		session: models.TrackingSession{
			TaskID:      task.ID,
			ProjectID:   task.ProjectID,
			TaskName:    task.Name,
			ProjectName: task.ProjectName,
		},
	}
}

// Subscribe registers a listener. Listeners run in registration order on
// the goroutine that produced the event.
func (e *Engine) Subscribe(fn func(Event)) { e.bus.Subscribe(fn) }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a copy of the tracking session.
func (e *Engine) Session() models.TrackingSession {
	e.mu.Lock()
	ts := e.session
	e.mu.Unlock()
	ts.ElapsedSeconds = e.stopwatch.Elapsed()
	return ts
}

func (e *Engine) Stopwatch() *Stopwatch { return e.stopwatch }

// Start begins tracking: it reports screenshot permission, arms both clocks
// and sends the first report right away.
func (e *Engine) Start(ctx context.Context) error {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	if s := e.State(); s != Idle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s)
	}

	permission := e.capturer.CheckPermission()
	if !permission {
		log.Println("[tracker] screenshot permission not granted, reporting without screenshots")
	}
	if err := e.reporter.ReportPermission(ctx, permission); err != nil {
		log.Printf("[tracker] could not report screenshot permission: %v", err)
	}

	now := e.opts.Now()
	e.mu.Lock()
	e.permission = permission
	e.state = Running
	e.session.StartTime = now
	e.session.LastReportTime = now
	e.session.Running = true
	e.mu.Unlock()
	e.publishState("Tracking time...")

	e.report(ctx)
	e.arm()
	return nil
}

// Pause cancels both clocks and reports the time since the last report.
func (e *Engine) Pause(ctx context.Context) error {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	if s := e.State(); s != Running {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s)
	}
	e.disarm()
	e.report(ctx)

	e.mu.Lock()
	e.state = Paused
	e.session.Running = false
	e.mu.Unlock()
	e.publishState("Tracking paused")
	return nil
}

// Resume re-arms the clocks. The displayed elapsed time carries on.
func (e *Engine) Resume(ctx context.Context) error {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	if s := e.State(); s != Paused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s)
	}

	e.mu.Lock()
	e.state = Running
	e.session.Running = true
	if e.opts.ResumeResetsClock {
		e.session.LastReportTime = e.opts.Now()
	}
	e.mu.Unlock()

	e.arm()
	e.publishState("Tracking time...")
	return nil
}

// Stop ends the session for good. A running timer sends its final report
// first. Stopping a stopped timer does nothing.
func (e *Engine) Stop(ctx context.Context, reason StopReason) error {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()

	s := e.State()
	if s == Stopped {
		return nil
	}
	e.disarm()
	if s == Running {
		e.report(ctx)
	}

	e.mu.Lock()
	e.state = Stopped
	e.session.Running = false
	e.mu.Unlock()
	log.Printf("[tracker] task %d stopped (%s)", e.session.TaskID, reason)
	e.publishState("Tracking stopped")
	return nil
}

// Toggle is the start/pause/resume button.
func (e *Engine) Toggle(ctx context.Context) error {
	switch e.State() {
	case Idle:
		return e.Start(ctx)
	case Running:
		return e.Pause(ctx)
	case Paused:
		return e.Resume(ctx)
	default:
		return fmt.Errorf("%w: timer is stopped", ErrInvalidTransition)
	}
}

func (e *Engine) arm() {
	e.reportTicker.Start(e.opts.Interval, e.periodicReport)
	e.clockTicker.Start(time.Second, e.tickClock)
}

func (e *Engine) disarm() {
	e.reportTicker.Stop()
	e.clockTicker.Stop()
}

func (e *Engine) periodicReport() {
	if e.State() != Running {
		return
	}
	e.report(context.Background())
}

func (e *Engine) tickClock() {
	if e.State() != Running {
		return
	}
	elapsed, reached := e.stopwatch.Tick()
	e.bus.Publish(Event{
		Type:     ElapsedTick,
		State:    Running,
		Elapsed:  elapsed,
		Progress: e.stopwatch.Progress(),
	})
	if reached {
		e.bus.Publish(Event{
			Type:     GoalReached,
			State:    Running,
			Elapsed:  elapsed,
			Progress: e.stopwatch.Progress(),
			Message:  "Session goal achieved!",
		})
	}
}

// report runs one tick: capture, probe, build, advance the report clock,
// upload, clean up. Failures are published and never retried; the next tick
// runs regardless.
func (e *Engine) report(ctx context.Context) error {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.opts.ReportTimeout)
	defer cancel()

	var files []string
	defer func() {
		for _, f := range files {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				log.Printf("[tracker] could not remove %s: %v", f, err)
			}
		}
	}()

	e.mu.Lock()
	permission := e.permission
	e.mu.Unlock()

	shot := ""
	if permission {
		path, err := e.capturer.Capture()
		if err != nil {
			log.Printf("[tracker] failed to take screenshot: %v", err)
			e.publish(Event{Type: CaptureFailed, Err: err, Message: "Failed to take screenshot"})
			return err
		}
		files = append(files, path)
		shot = path
		if c, ok := e.capturer.(Compressor); ok && e.opts.Compress {
			if out, err := c.Compress(path); err == nil && out != path {
				files = append(files, out)
				shot = out
			}
		}
	}

	host := e.prober.Addresses()
	now := e.opts.Now()

	e.mu.Lock()
	ts := e.session
	e.session.LastReportTime = now
	e.mu.Unlock()

	r := models.NewReport(ts, ts.LastReportTime, now, host)
	r.ScreenshotPath = shot
	r.ScreenshotPermission = permission

	if err := e.reporter.SubmitReport(ctx, r); err != nil {
		log.Printf("[tracker] failed to post timelog: %v", err)
		e.publish(Event{Type: ReportFailed, Report: r, Err: err, Message: "Failed to post timelog: " + err.Error()})
		return err
	}
	e.publish(Event{
		Type:    ReportSent,
		Report:  r,
		Message: fmt.Sprintf("Screenshot taken at %s", now.Format("15:04:05")),
	})
	return nil
}

func (e *Engine) publish(ev Event) {
	ev.State = e.State()
	ev.Elapsed = e.stopwatch.Elapsed()
	ev.Progress = e.stopwatch.Progress()
	e.bus.Publish(ev)
}

func (e *Engine) publishState(msg string) {
	e.publish(Event{Type: StateChanged, Message: msg})
}
