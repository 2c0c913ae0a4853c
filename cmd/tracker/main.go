package main

import (
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"worktracker/internal/api"
	"worktracker/internal/capture"
	"worktracker/internal/config"
	"worktracker/internal/probe"
	"worktracker/internal/service"
	"worktracker/internal/session"
	"worktracker/internal/ui"
)

func main() {
	os.Setenv("FYNE_SCALE", "auto")

	config.Load()
	cfg := config.LoadAgent()

	client := api.New(cfg.ServerURL, cfg.HTTPTimeout)
	host := probe.New()
	svc := service.New(client, session.New(client), host)
	shots := capture.New(capture.Options{
		Dir:         cfg.ScreenshotDir,
		JPEGQuality: cfg.JPEGQuality,
		MaxWidth:    cfg.MaxWidth,
	})

	a := app.NewWithID("com.worktracker.desktop")
	w := a.NewWindow("Work Tracker")
	w.Resize(fyne.NewSize(420, 600))

	tracker := ui.NewApp(a, w, cfg, svc, shots, host)
	tracker.ShowLogin("")

	w.ShowAndRun()
}
