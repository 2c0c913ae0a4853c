package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktracker/internal/models"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestLoginStoresEmployeeID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "dev@example.com", creds.Email)
		assert.Equal(t, "aa:bb:cc:dd:ee:ff", creds.MACAddress)
		io.WriteString(w, `{"access_token":"A","refresh_token":"R","employee_id":"E1"}`)
	})
	c := newTestClient(t, mux)

	tokens, err := c.Login(context.Background(), models.Credentials{Email: "dev@example.com", Password: "pw", MACAddress: "aa:bb:cc:dd:ee:ff"})

	require.NoError(t, err)
	assert.Equal(t, &models.Tokens{AccessToken: "A", RefreshToken: "R", UserID: "E1"}, tokens)
}

func TestLoginAcceptsNumericUserID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"A","refresh_token":"R","user_id":42}`)
	})
	c := newTestClient(t, mux)

	tokens, err := c.Login(context.Background(), models.Credentials{Email: "a", Password: "b"})

	require.NoError(t, err)
	assert.Equal(t, "42", tokens.UserID)
}

func TestLoginRejectedCarriesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Wrong password"})
	})
	c := newTestClient(t, mux)

	_, err := c.Login(context.Background(), models.Credentials{Email: "a", Password: "b"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Wrong password", Message(err))
}

func TestConnectionFailureIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()
	c := New(url, time.Second)

	_, err := c.Login(context.Background(), models.Credentials{Email: "a", Password: "b"})

	assert.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticatedCallsSendBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(tasksPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, `[{"id":1,"name":"Design","project_id":2,"project_name":"Apollo","task_spent_time_in_minutes_real":75}]`)
	})
	mux.HandleFunc(projectsPath, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":2,"name":"Apollo","tasks":[{"id":1,"name":"Design","project_id":2}]}]`)
	})
	c := newTestClient(t, mux)

	tasks, err := c.Tasks(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Apollo", tasks[0].ProjectName)
	assert.Equal(t, 75.0, tasks[0].SpentMinutes)

	projects, err := c.Projects(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Len(t, projects[0].Tasks, 1)
}

func TestUnauthorizedResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(tasksPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	mux.HandleFunc(projectsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	})
	c := newTestClient(t, mux)

	_, err := c.Tasks(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Projects(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrServer)
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "Failed to fetch projects and tasks", se.Message)
}

func TestRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "R" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad refresh"})
			return
		}
		io.WriteString(w, `{"access_token":"A2"}`)
	})
	c := newTestClient(t, mux)

	tok, err := c.Refresh(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, "A2", tok)

	_, err = c.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPostTimelogMultipart(t *testing.T) {
	shot := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(shot, []byte("png-bytes"), 0o600))

	mux := http.NewServeMux()
	mux.HandleFunc(timelogsPath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5", r.FormValue("task_id"))
		assert.Equal(t, "9", r.FormValue("project_id"))
		assert.Equal(t, "1000", r.FormValue("start_time"))
		assert.Equal(t, "1300", r.FormValue("end_time"))
		assert.Equal(t, "300", r.FormValue("duration"))
		assert.Equal(t, "true", r.FormValue("is_screenshot_permission_enabled"))
		assert.Equal(t, "10.1.1.1", r.FormValue("ip_address"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "shot.png", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(b))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1})
	})
	c := newTestClient(t, mux)

	err := c.PostTimelog(context.Background(), "tok", &models.Report{
		TaskID:               5,
		ProjectID:            9,
		StartTime:            time.Unix(1000, 0),
		EndTime:              time.Unix(1300, 0),
		DurationSeconds:      300,
		ScreenshotPath:       shot,
		ScreenshotPermission: true,
		IPAddress:            "10.1.1.1",
	})
	assert.NoError(t, err)
}

func TestPostScreenshotPermission(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(permissionPath, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID        string `json:"user_id"`
			HasPermission bool   `json:"has_permission"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "E1", body.UserID)
		assert.False(t, body.HasPermission)
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, mux)

	assert.NoError(t, c.PostScreenshotPermission(context.Background(), "tok", "E1", false))
}
