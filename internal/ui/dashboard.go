package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"worktracker/internal/api"
	"worktracker/internal/models"
	"worktracker/internal/service"
)

type Dashboard struct {
	svc      *service.Service
	onStart  func(models.Task)
	onLogout func()

	cards  *fyne.Container
	status *widget.Label
}

func NewDashboard(svc *service.Service, onStart func(models.Task), onLogout func()) *Dashboard {
	return &Dashboard{svc: svc, onStart: onStart, onLogout: onLogout}
}

func (d *Dashboard) MakeUI() fyne.CanvasObject {
	d.cards = container.NewVBox()
	d.status = widget.NewLabel("")

	refresh := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), d.Reload)
	logout := widget.NewButtonWithIcon("Logout", theme.LogoutIcon(), d.onLogout)

	title := widget.NewLabel("My Tasks")
	title.TextStyle = fyne.TextStyle{Bold: true}

	return container.NewBorder(
		container.NewBorder(nil, nil, nil, container.NewHBox(refresh, logout), title),
		d.status,
		nil, nil,
		container.NewVScroll(d.cards),
	)
}

// Reload fetches the task list in the background and rebuilds the cards.
func (d *Dashboard) Reload() {
	d.status.SetText("Loading tasks...")
	go func() {
		groups, err := d.svc.TasksByProject(context.Background())
		fyne.Do(func() {
			if err != nil {
				d.status.SetText(api.Message(err))
				return
			}
			d.show(groups)
		})
	}()
}

func (d *Dashboard) show(groups []service.ProjectTasks) {
	d.cards.RemoveAll()
	for _, g := range groups {
		d.cards.Add(projectCard(g, d.onStart))
	}
	if len(groups) == 0 {
		d.status.SetText("No tasks assigned")
	} else {
		d.status.SetText("")
	}
	d.cards.Refresh()
}

func projectCard(g service.ProjectTasks, onStart func(models.Task)) *widget.Card {
	rows := container.NewVBox()
	for _, t := range g.Tasks {
		task := t
		start := widget.NewButtonWithIcon("", theme.MediaPlayIcon(), func() { onStart(task) })
		spent := widget.NewLabel(models.FormatMinutes(task.SpentMinutes))
		rows.Add(container.NewBorder(nil, nil, nil, container.NewHBox(spent, start), widget.NewLabel(task.Name)))
	}
	return widget.NewCard(g.ProjectName, "", rows)
}
