package ui

import (
	"context"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"worktracker/internal/models"
	"worktracker/internal/tracker"
)

type Timer struct {
	win      fyne.Window
	task     models.Task
	engine   *tracker.Engine
	onSwitch func()

	clock    binding.String
	progress binding.Float
	status   binding.String
	toggle   *widget.Button

	detached atomic.Bool
}

func NewTimer(w fyne.Window, task models.Task, engine *tracker.Engine, onSwitch func()) *Timer {
	t := &Timer{
		win:      w,
		task:     task,
		engine:   engine,
		onSwitch: onSwitch,
		clock:    binding.NewString(),
		progress: binding.NewFloat(),
		status:   binding.NewString(),
	}
	engine.Subscribe(t.handle)
	return t
}

func (t *Timer) MakeUI() fyne.CanvasObject {
	t.clock.Set(models.FormatSeconds(0))
	t.status.Set("Press start to begin tracking")

	clock := widget.NewLabelWithData(t.clock)
	clock.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	clock.Alignment = fyne.TextAlignCenter

	bar := widget.NewProgressBarWithData(t.progress)
	bar.Max = float64(t.engine.Stopwatch().Goal())
	if bar.Max <= 0 {
		bar.Max = 1
	}
	bar.TextFormatter = func() string {
		return models.FormatSeconds(int64(bar.Value)) + " / " + models.FormatSeconds(int64(bar.Max))
	}

	t.toggle = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), t.onToggle)
	t.toggle.Importance = widget.HighImportance

	switchTask := widget.NewButtonWithIcon("Switch task", theme.NavigateBackIcon(), t.confirmSwitch)

	status := widget.NewLabelWithData(t.status)
	status.Wrapping = fyne.TextWrapWord

	heading := widget.NewLabel(t.task.Name)
	heading.TextStyle = fyne.TextStyle{Bold: true}
	project := widget.NewLabel(t.task.ProjectName)

	return container.NewVBox(
		heading,
		project,
		clock,
		bar,
		container.NewGridWithColumns(2, t.toggle, switchTask),
		status,
	)
}

// confirmSwitch asks before leaving a running timer.
func (t *Timer) confirmSwitch() {
	if t.engine.State() != tracker.Running {
		t.onSwitch()
		return
	}
	dialog.ShowConfirm("Switch task", "Timer is still running. Do you want to stop and switch tasks?", func(ok bool) {
		if ok {
			t.onSwitch()
		}
	}, t.win)
}

// Detach stops UI updates once the view has been replaced.
func (t *Timer) Detach() { t.detached.Store(true) }

func (t *Timer) onToggle() {
	t.toggle.Disable()
	go func() {
		err := t.engine.Toggle(context.Background())
		fyne.Do(func() {
			t.toggle.Enable()
			if err != nil {
				t.status.Set(err.Error())
			}
		})
	}()
}

// handle runs on engine goroutines and hops to the main goroutine.
func (t *Timer) handle(ev tracker.Event) {
	if t.detached.Load() {
		return
	}
	fyne.Do(func() {
		if t.detached.Load() {
			return
		}
		t.clock.Set(models.FormatSeconds(ev.Elapsed))
		t.progress.Set(float64(ev.Progress))
		if ev.Message != "" {
			t.status.Set(ev.Message)
		}
		switch ev.Type {
		case tracker.StateChanged:
			t.setToggle(ev.State)
		case tracker.GoalReached:
			dialog.ShowInformation("Goal reached", "You have reached your session goal of "+models.FormatSeconds(ev.Elapsed)+".", t.win)
		}
	})
}

func (t *Timer) setToggle(s tracker.State) {
	if t.toggle == nil {
		return
	}
	text, running := toggleLabel(s)
	t.toggle.SetText(text)
	if running {
		t.toggle.SetIcon(theme.MediaPauseIcon())
	} else {
		t.toggle.SetIcon(theme.MediaPlayIcon())
	}
	if s == tracker.Stopped {
		t.toggle.Disable()
	}
}

// toggleLabel names the action the toggle button performs in state s.
func toggleLabel(s tracker.State) (text string, running bool) {
	switch s {
	case tracker.Running:
		return "Pause", true
	case tracker.Paused:
		return "Resume", false
	case tracker.Stopped:
		return "Stopped", false
	default:
		return "Start", false
	}
}
