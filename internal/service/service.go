package service

import (
	"context"
	"log"
	"sort"

	"worktracker/internal/api"
	"worktracker/internal/models"
	"worktracker/internal/session"
)

// AddressProber supplies the device MAC sent at login.
type AddressProber interface {
	Addresses() models.HostInfo
}

// Service is the set of backend operations the views use. Every
// authenticated call checks the session first, then goes through the
// session's refresh-and-retry.
type Service struct {
	client  *api.Client
	session *session.Session
	probe   AddressProber
}

func New(client *api.Client, sess *session.Session, probe AddressProber) *Service {
	return &Service{client: client, session: sess, probe: probe}
}

func (s *Service) Session() *session.Session { return s.session }

func (s *Service) Login(ctx context.Context, email, password string) error {
	creds := models.Credentials{Email: email, Password: password}
	if s.probe != nil {
		creds.MACAddress = s.probe.Addresses().MAC
	}
	return s.session.Authenticate(ctx, creds)
}

func (s *Service) Logout() {
	s.session.Logout()
}

func (s *Service) Tasks(ctx context.Context) ([]models.Task, error) {
	if !s.session.EnsureAuthenticated() {
		return nil, api.ErrNotAuthenticated
	}
	var tasks []models.Task
	err := s.session.CallWithRetry(ctx, func(ctx context.Context, token string) error {
		var err error
		tasks, err = s.client.Tasks(ctx, token)
		return err
	})
	return tasks, err
}

func (s *Service) Projects(ctx context.Context) ([]models.Project, error) {
	if !s.session.EnsureAuthenticated() {
		return nil, api.ErrNotAuthenticated
	}
	var projects []models.Project
	err := s.session.CallWithRetry(ctx, func(ctx context.Context, token string) error {
		var err error
		projects, err = s.client.Projects(ctx, token)
		return err
	})
	return projects, err
}

// ProjectTasks is one dashboard card.
type ProjectTasks struct {
	ProjectName string
	Tasks       []models.Task
}

// TasksByProject groups assigned tasks by project name, keeping the order in
// which projects first appear.
func (s *Service) TasksByProject(ctx context.Context) ([]ProjectTasks, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByProject(tasks), nil
}

func GroupByProject(tasks []models.Task) []ProjectTasks {
	var groups []ProjectTasks
	index := map[string]int{}
	for _, t := range tasks {
		name := t.ProjectName
		if name == "" {
			name = "Unnamed Project"
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ProjectTasks{ProjectName: name})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	for _, g := range groups {
		sort.SliceStable(g.Tasks, func(a, b int) bool { return g.Tasks[a].Name < g.Tasks[b].Name })
	}
	return groups
}

// SubmitReport uploads one timelog.
func (s *Service) SubmitReport(ctx context.Context, r *models.Report) error {
	if !s.session.EnsureAuthenticated() {
		return api.ErrNotAuthenticated
	}
	return s.session.CallWithRetry(ctx, func(ctx context.Context, token string) error {
		return s.client.PostTimelog(ctx, token, r)
	})
}

// ReportPermission tells the backend whether screenshots can be taken.
func (s *Service) ReportPermission(ctx context.Context, enabled bool) error {
	if !s.session.EnsureAuthenticated() {
		return api.ErrNotAuthenticated
	}
	err := s.session.CallWithRetry(ctx, func(ctx context.Context, token string) error {
		return s.client.PostScreenshotPermission(ctx, token, s.session.UserID(), enabled)
	})
	if err != nil {
		log.Printf("[service] screenshot permission report failed: %v", err)
	}
	return err
}
