package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"worktracker/internal/api"
	"worktracker/internal/capture"
	"worktracker/internal/config"
	"worktracker/internal/models"
	"worktracker/internal/probe"
	"worktracker/internal/service"
	"worktracker/internal/session"
	"worktracker/internal/tracker"
)

func main() {
	config.Load()
	if err := run(os.TempDir()); err != nil {
		log.Fatalf("[agent] %v", err)
	}
}

// run tracks one task until a signal or an expired session. Every exit path
// returns here so the lock is always released.
func run(lockDir string) error {
	cfg := config.LoadAgent()
	if cfg.Email == "" || cfg.Password == "" {
		return errors.New("EMPLOYEE_EMAIL and EMPLOYEE_PASSWORD must be set")
	}

	release, err := acquireLock(lockDir)
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.New(cfg.ServerURL, cfg.HTTPTimeout)
	sess := session.New(client)
	host := probe.New()
	svc := service.New(client, sess, host)

	if err := svc.Login(ctx, cfg.Email, cfg.Password); err != nil {
		return fmt.Errorf("login failed: %s", api.Message(err))
	}
	defer svc.Logout()
	log.Printf("[agent] logged in as %s (employee %s)", cfg.Email, sess.UserID())

	task, err := pickTask(ctx, svc, cfg.TaskID)
	if err != nil {
		return err
	}

	shots := capture.New(capture.Options{
		Dir:         cfg.ScreenshotDir,
		JPEGQuality: cfg.JPEGQuality,
		MaxWidth:    cfg.MaxWidth,
	})
	engine := tracker.New(task, shots, host, svc, tracker.Options{
		Interval:          cfg.TimelogInterval,
		SessionGoal:       cfg.SessionGoal,
		ReportTimeout:     cfg.HTTPTimeout,
		Compress:          cfg.Compress,
		ResumeResetsClock: cfg.ResumeResetsClock,
	})
	engine.Subscribe(logEvent)

	expired := make(chan struct{}, 1)
	sess.OnEvent(func(ev session.EventType) {
		if ev == session.Expired {
			select {
			case expired <- struct{}{}:
			default:
			}
		}
	})

	log.Printf("[agent] tracking %q (%s), reporting every %s", task.Name, task.ProjectName, cfg.TimelogInterval)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	reason := tracker.WindowClose
	select {
	case <-ctx.Done():
		log.Println("[agent] shutting down")
	case <-expired:
		log.Println("[agent] session expired, stopping")
		reason = tracker.Logout
	}

	// The signal context is done by now; the final report gets its own.
	if err := engine.Stop(context.Background(), reason); err != nil {
		log.Printf("[agent] stop: %v", err)
	}
	return nil
}

func pickTask(ctx context.Context, svc *service.Service, id uint) (models.Task, error) {
	tasks, err := svc.Tasks(ctx)
	if err != nil {
		return models.Task{}, fmt.Errorf("fetch tasks: %s", api.Message(err))
	}
	if len(tasks) == 0 {
		return models.Task{}, fmt.Errorf("no tasks assigned")
	}
	if id == 0 {
		return tasks[0], nil
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task %d is not assigned to this employee", id)
}

func logEvent(ev tracker.Event) {
	switch ev.Type {
	case tracker.ElapsedTick:
		return
	case tracker.ReportSent:
		log.Printf("[agent] report sent: %ds ending %s", ev.Report.DurationSeconds, ev.Report.EndTime.Format("15:04:05"))
	case tracker.ReportFailed, tracker.CaptureFailed:
		log.Printf("[agent] %s: %v", ev.Type, ev.Err)
	case tracker.GoalReached:
		log.Printf("[agent] session goal reached at %s", models.FormatSeconds(ev.Elapsed))
	default:
		log.Printf("[agent] %s: %s %s", ev.Type, ev.State, ev.Message)
	}
}
