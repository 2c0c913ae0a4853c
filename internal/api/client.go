// Package api is the REST client for the time-tracking backend.
//
// Methods here perform exactly one request. Token bookkeeping and the
// refresh-and-retry policy live in the session package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"worktracker/internal/models"
)

const (
	loginPath      = "/api/auth/employee/login"
	refreshPath    = "/api/auth/refresh"
	tasksPath      = "/api/employees/tasks"
	projectsPath   = "/api/employees/projects"
	timelogsPath   = "/api/timelogs"
	permissionPath = "/api/permissions/screenshot"
)

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	EmployeeID   flexID `json:"employee_id"`
	UserID       flexID `json:"user_id"`
}

// Login posts credentials. Any non-200 answer is an authentication failure
// carrying the server's message.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.Tokens, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(creds).
		Post(loginPath)
	if err != nil {
		return nil, connectionError(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &ServerError{
			StatusCode: resp.StatusCode(),
			Message:    extractMessage(resp.Body(), "Authentication failed"),
			Err:        ErrInvalidCredentials,
		}
	}

	var out loginResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	userID := string(out.EmployeeID)
	if userID == "" {
		userID = string(out.UserID)
	}
	return &models.Tokens{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		UserID:       userID,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"refresh_token": refreshToken}).
		Post(refreshPath)
	if err != nil {
		return "", connectionError(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", responseError(resp, "Session expired")
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return "", &ServerError{StatusCode: resp.StatusCode(), Message: "Session expired", Err: ErrUnauthorized}
	}
	return out.AccessToken, nil
}

// Tasks lists the tasks assigned to the employee.
func (c *Client) Tasks(ctx context.Context, token string) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.getJSON(ctx, token, tasksPath, "Failed to fetch tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Projects lists projects with their tasks nested.
func (c *Client) Projects(ctx context.Context, token string) ([]models.Project, error) {
	var projects []models.Project
	if err := c.getJSON(ctx, token, projectsPath, "Failed to fetch projects and tasks", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) getJSON(ctx context.Context, token, path, fallback string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(path)
	if err != nil {
		return connectionError(err)
	}
	if !resp.IsSuccess() {
		return responseError(resp, fallback)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// PostTimelog uploads one report as multipart form data.
func (c *Client) PostTimelog(ctx context.Context, token string, r *models.Report) error {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetMultipartFormData(map[string]string{
			"task_id":                          strconv.FormatUint(uint64(r.TaskID), 10),
			"project_id":                       strconv.FormatUint(uint64(r.ProjectID), 10),
			"start_time":                       strconv.FormatInt(r.StartTime.Unix(), 10),
			"end_time":                         strconv.FormatInt(r.EndTime.Unix(), 10),
			"duration":                         strconv.FormatInt(r.DurationSeconds, 10),
			"is_screenshot_permission_enabled": strconv.FormatBool(r.ScreenshotPermission),
			"ip_address":                       r.IPAddress,
			"mac_address":                      r.MACAddress,
			"hostname":                         r.Hostname,
			"active_window":                    r.ActiveWindow,
		})
	if r.ScreenshotPath != "" {
		req.SetFile("file", r.ScreenshotPath)
	}

	resp, err := req.Post(timelogsPath)
	if err != nil {
		return connectionError(err)
	}
	if !resp.IsSuccess() {
		return responseError(resp, "Failed to post timelog with screenshot")
	}
	return nil
}

// PostScreenshotPermission tells the backend whether capture works here.
func (c *Client) PostScreenshotPermission(ctx context.Context, token, userID string, enabled bool) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{
			"user_id":        userID,
			"has_permission": enabled,
		}).
		Post(permissionPath)
	if err != nil {
		return connectionError(err)
	}
	if !resp.IsSuccess() {
		return responseError(resp, "Failed to report screenshot permission")
	}
	return nil
}

// flexID accepts identifiers encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("identifier must be a string or number")
	}
	*f = flexID(n.String())
	return nil
}
