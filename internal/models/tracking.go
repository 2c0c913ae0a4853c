package models

import (
	"fmt"
	"time"
)

// Credentials are posted to the login endpoint together with the device MAC.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	MACAddress string `json:"mac_address"`
}

// Tokens is the login response.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// SessionState is a point-in-time copy of the session fields.
type SessionState struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// HostInfo tags every report with where it was captured.
type HostInfo struct {
	IP           string
	MAC          string
	Hostname     string
	ActiveWindow string
}

// TrackingSession is the state of the one active timer.
type TrackingSession struct {
	TaskID         uint
	ProjectID      uint
	TaskName       string
	ProjectName    string
	StartTime      time.Time
	LastReportTime time.Time
	ElapsedSeconds int64
	Running        bool
}

// Report is one timelog submission. Times are whole seconds.
type Report struct {
	TaskID               uint
	ProjectID            uint
	StartTime            time.Time
	EndTime              time.Time
	DurationSeconds      int64
	ScreenshotPath       string
	ScreenshotPermission bool
	IPAddress            string
	MACAddress           string
	Hostname             string
	ActiveWindow         string
}

// NewReport builds the report for [from, to). A clock that went backwards
// collapses to a zero-length report.
func NewReport(ts TrackingSession, from, to time.Time, host HostInfo) *Report {
	start := from.Unix()
	end := to.Unix()
	if end < start {
		end = start
	}
	return &Report{
		TaskID:          ts.TaskID,
		ProjectID:       ts.ProjectID,
		StartTime:       time.Unix(start, 0),
		EndTime:         time.Unix(end, 0),
		DurationSeconds: end - start,
		IPAddress:       host.IP,
		MACAddress:      host.MAC,
		Hostname:        host.Hostname,
		ActiveWindow:    host.ActiveWindow,
	}
}

// FormatMinutes renders spent minutes as HH:MM.
func FormatMinutes(mins float64) string {
	m := int64(mins)
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// FormatSeconds renders elapsed seconds as HH:MM:SS.
func FormatSeconds(s int64) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
