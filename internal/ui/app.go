// Package ui holds the fyne screens of the desktop tracker: login, the task
// dashboard and the timer view.
package ui

import (
	"context"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"worktracker/internal/capture"
	"worktracker/internal/config"
	"worktracker/internal/models"
	"worktracker/internal/probe"
	"worktracker/internal/service"
	"worktracker/internal/session"
	"worktracker/internal/tracker"
)

// App swaps the window content between the three screens. Its fields are
// only touched on the fyne main goroutine.
type App struct {
	app   fyne.App
	win   fyne.Window
	cfg   config.Agent
	svc   *service.Service
	shots *capture.Capturer
	host  *probe.Probe

	timer *Timer
}

func NewApp(a fyne.App, w fyne.Window, cfg config.Agent, svc *service.Service, shots *capture.Capturer, host *probe.Probe) *App {
	ui := &App{
		app:   a,
		win:   w,
		cfg:   cfg,
		svc:   svc,
		shots: shots,
		host:  host,
	}

	svc.Session().OnEvent(func(ev session.EventType) {
		if ev != session.Expired {
			return
		}
		fyne.Do(func() {
			ui.stopTimer(tracker.Logout, func() {
				ui.ShowLogin("Session expired, please log in again")
			})
		})
	})

	w.SetCloseIntercept(ui.confirmClose)
	return ui
}

func (ui *App) ShowLogin(status string) {
	ui.win.SetContent(NewLogin(ui.svc, status, ui.ShowDashboard).MakeUI())
}

func (ui *App) ShowDashboard() {
	d := NewDashboard(ui.svc, ui.ShowTimer, ui.logout)
	ui.win.SetContent(d.MakeUI())
	d.Reload()
}

// ShowTimer opens the timer for task. A new task always gets a new engine.
func (ui *App) ShowTimer(task models.Task) {
	engine := tracker.New(task, ui.shots, ui.host, ui.svc, tracker.Options{
		Interval:          ui.cfg.TimelogInterval,
		SessionGoal:       ui.cfg.SessionGoal,
		ReportTimeout:     ui.cfg.HTTPTimeout,
		Compress:          ui.cfg.Compress,
		ResumeResetsClock: ui.cfg.ResumeResetsClock,
	})
	ui.timer = NewTimer(ui.win, task, engine, func() {
		ui.stopTimer(tracker.SwitchTask, ui.ShowDashboard)
	})
	ui.win.SetContent(ui.timer.MakeUI())
}

func (ui *App) logout() {
	ui.stopTimer(tracker.Logout, func() {
		ui.svc.Logout()
		ui.ShowLogin("")
	})
}

// stopTimer stops the active engine off the main goroutine, since a running
// timer sends a final report, then runs next on the main goroutine.
func (ui *App) stopTimer(reason tracker.StopReason, next func()) {
	t := ui.timer
	ui.timer = nil
	if t == nil {
		next()
		return
	}
	t.Detach()
	go func() {
		if err := t.engine.Stop(context.Background(), reason); err != nil {
			log.Printf("[ui] stop timer: %v", err)
		}
		fyne.Do(next)
	}()
}

func (ui *App) confirmClose() {
	if ui.timer == nil || ui.timer.engine.State() == tracker.Idle {
		ui.app.Quit()
		return
	}
	dialog.ShowConfirm("Quit", "Stop tracking and quit?", func(ok bool) {
		if !ok {
			return
		}
		ui.stopTimer(tracker.WindowClose, ui.app.Quit)
	}, ui.win)
}
