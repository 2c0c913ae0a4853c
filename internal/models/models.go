package models

import (
	"time"

	"gorm.io/gorm"
)

// Rows of the reference backend. Task and Project double as the listing
// payloads the client decodes.

type Employee struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	MACAddress   string    `json:"mac_address"`
	LastSeen     time.Time `json:"last_seen"`
}

type Project struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex" json:"name"`
	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

type Task struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `json:"name"`
	ProjectID  uint   `gorm:"index" json:"project_id"`
	EmployeeID uint   `gorm:"index" json:"employee_id"`

	ProjectName  string  `gorm:"-" json:"project_name"`
	SpentMinutes float64 `gorm:"-" json:"task_spent_time_in_minutes_real"`
}

type Timelog struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	EmployeeID           uint      `gorm:"index" json:"employee_id"`
	TaskID               uint      `gorm:"index" json:"task_id"`
	ProjectID            uint      `json:"project_id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Duration             int64     `json:"duration"`
	ScreenshotPath       string    `json:"screenshot_path"`
	ScreenshotPermission bool      `json:"is_screenshot_permission_enabled"`
	IPAddress            string    `json:"ip_address"`
	MACAddress           string    `json:"mac_address"`
	Hostname             string    `json:"hostname"`
	ActiveWindow         string    `json:"active_window"`
	CreatedAt            time.Time `json:"created_at"`
}

type PermissionReport struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EmployeeID    uint      `gorm:"index" json:"employee_id"`
	HasPermission bool      `json:"has_permission"`
	ReportedAt    time.Time `json:"reported_at"`
}

// Migrate creates or updates the backend tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Employee{}, &Project{}, &Task{}, &Timelog{}, &PermissionReport{})
}
