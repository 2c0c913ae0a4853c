package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"worktracker/internal/models"
	"worktracker/internal/token"
)

type TrackerHandler struct {
	DB        *gorm.DB
	UploadDir string
	Tokens    *token.Issuer
}

func NewTrackerHandler(db *gorm.DB, uploadDir string, tokens *token.Issuer) *TrackerHandler {
	return &TrackerHandler{
		DB:        db,
		UploadDir: uploadDir,
		Tokens:    tokens,
	}
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

type loginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	MACAddress string `json:"mac_address"`
}

func (h *TrackerHandler) Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		message(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	var emp models.Employee
	err := h.DB.Where(models.Employee{Email: strings.ToLower(input.Email)}).First(&emp).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(input.Password)) != nil {
		message(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	err = h.DB.Model(&emp).Updates(models.Employee{
		MACAddress: input.MACAddress,
		LastSeen:   time.Now(),
	}).Error
	if err != nil {
		message(c, http.StatusInternalServerError, "Failed to record login")
		return
	}

	access, err := h.Tokens.Issue(emp.ID, token.Access)
	if err != nil {
		message(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	refresh, err := h.Tokens.Issue(emp.ID, token.Refresh)
	if err != nil {
		message(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"employee_id":   strconv.FormatUint(uint64(emp.ID), 10),
	})
}

func (h *TrackerHandler) Refresh(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		message(c, http.StatusBadRequest, "refresh_token is required")
		return
	}
	id, err := h.Tokens.Verify(input.RefreshToken, token.Refresh)
	if err != nil {
		message(c, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	access, err := h.Tokens.Issue(id, token.Access)
	if err != nil {
		message(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

// RequireEmployee rejects requests without a valid bearer access token and
// stores the employee id in the context.
func (h *TrackerHandler) RequireEmployee(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing bearer token"})
		return
	}
	id, err := h.Tokens.Verify(raw, token.Access)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
		return
	}
	c.Set("employee_id", id)
	c.Next()
}

func (h *TrackerHandler) GetTasks(c *gin.Context) {
	employeeID := c.GetUint("employee_id")

	var tasks []models.Task
	if err := h.DB.Where("employee_id = ?", employeeID).Order("id").Find(&tasks).Error; err != nil {
		message(c, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}
	if err := h.decorate(employeeID, tasks); err != nil {
		message(c, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TrackerHandler) GetProjects(c *gin.Context) {
	employeeID := c.GetUint("employee_id")

	assigned := h.DB.Model(&models.Task{}).Select("project_id").Where("employee_id = ?", employeeID)
	var projects []models.Project
	err := h.DB.
		Preload("Tasks", "employee_id = ?", employeeID).
		Where("id IN (?)", assigned).
		Order("name").
		Find(&projects).Error
	if err != nil {
		message(c, http.StatusInternalServerError, "Failed to fetch projects and tasks")
		return
	}
	for i := range projects {
		if err := h.decorate(employeeID, projects[i].Tasks); err != nil {
			message(c, http.StatusInternalServerError, "Failed to fetch projects and tasks")
			return
		}
	}
	c.JSON(http.StatusOK, projects)
}

// decorate fills the project name and logged minutes of each task.
func (h *TrackerHandler) decorate(employeeID uint, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	var projects []models.Project
	if err := h.DB.Find(&projects).Error; err != nil {
		return err
	}
	names := map[uint]string{}
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	var totals []struct {
		TaskID uint
		Total  int64
	}
	err := h.DB.Model(&models.Timelog{}).
		Select("task_id, SUM(duration) AS total").
		Where("employee_id = ?", employeeID).
		Group("task_id").
		Scan(&totals).Error
	if err != nil {
		return err
	}
	spent := map[uint]int64{}
	for _, t := range totals {
		spent[t.TaskID] = t.Total
	}

	for i := range tasks {
		tasks[i].ProjectName = names[tasks[i].ProjectID]
		tasks[i].SpentMinutes = float64(spent[tasks[i].ID]) / 60
	}
	return nil
}

func formUint(c *gin.Context, key string) (uint64, error) {
	v, err := strconv.ParseUint(c.PostForm(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func formInt(c *gin.Context, key string) (int64, error) {
	v, err := strconv.ParseInt(c.PostForm(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func (h *TrackerHandler) CreateTimelog(c *gin.Context) {
	employeeID := c.GetUint("employee_id")

	taskID, err := formUint(c, "task_id")
	if err != nil {
		message(c, http.StatusBadRequest, err.Error())
		return
	}
	start, err := formInt(c, "start_time")
	if err != nil {
		message(c, http.StatusBadRequest, err.Error())
		return
	}
	end, err := formInt(c, "end_time")
	if err != nil {
		message(c, http.StatusBadRequest, err.Error())
		return
	}
	duration, err := formInt(c, "duration")
	if err != nil {
		message(c, http.StatusBadRequest, err.Error())
		return
	}
	if duration < 0 || end-start != duration {
		message(c, http.StatusBadRequest, "duration must equal end_time - start_time")
		return
	}
	permission, _ := strconv.ParseBool(c.PostForm("is_screenshot_permission_enabled"))

	var task models.Task
	if err := h.DB.Where("id = ? AND employee_id = ?", taskID, employeeID).First(&task).Error; err != nil {
		message(c, http.StatusNotFound, "Task not found")
		return
	}

	entry := models.Timelog{
		EmployeeID:           employeeID,
		TaskID:               task.ID,
		ProjectID:            task.ProjectID,
		StartTime:            time.Unix(start, 0),
		EndTime:              time.Unix(end, 0),
		Duration:             duration,
		ScreenshotPermission: permission,
		IPAddress:            c.PostForm("ip_address"),
		MACAddress:           c.PostForm("mac_address"),
		Hostname:             c.PostForm("hostname"),
		ActiveWindow:         c.PostForm("active_window"),
	}

	file, err := c.FormFile("file")
	switch {
	case err == nil:
		userDir := filepath.Join(h.UploadDir, strconv.FormatUint(uint64(employeeID), 10))
		if err := os.MkdirAll(userDir, 0755); err != nil {
			message(c, http.StatusInternalServerError, "Failed to create upload directory")
			return
		}
		filename := fmt.Sprintf("%d_%d_%s", task.ID, end, filepath.Base(file.Filename))
		savePath := filepath.Join(userDir, filename)
		if err := c.SaveUploadedFile(file, savePath); err != nil {
			message(c, http.StatusInternalServerError, "Failed to save file")
			return
		}
		entry.ScreenshotPath = savePath
	case errors.Is(err, http.ErrMissingFile) && !permission:
	default:
		message(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	if err := h.DB.Create(&entry).Error; err != nil {
		message(c, http.StatusInternalServerError, "Failed to store timelog")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Timelog created", "id": entry.ID})
}

func (h *TrackerHandler) ReportScreenshotPermission(c *gin.Context) {
	employeeID := c.GetUint("employee_id")

	var input struct {
		UserID        string `json:"user_id"`
		HasPermission bool   `json:"has_permission"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		message(c, http.StatusBadRequest, err.Error())
		return
	}
	if input.UserID != "" && input.UserID != strconv.FormatUint(uint64(employeeID), 10) {
		message(c, http.StatusForbidden, "user_id does not match token")
		return
	}

	err := h.DB.Create(&models.PermissionReport{
		EmployeeID:    employeeID,
		HasPermission: input.HasPermission,
		ReportedAt:    time.Now(),
	}).Error
	if err != nil {
		message(c, http.StatusInternalServerError, "Failed to record screenshot permission")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

func (h *TrackerHandler) GetDashboardStats(c *gin.Context) {
	var totalEmployees int64
	var totalTimelogs int64
	var totalScreenshots int64
	var totalSeconds int64

	h.DB.Model(&models.Employee{}).Count(&totalEmployees)
	h.DB.Model(&models.Timelog{}).Count(&totalTimelogs)
	h.DB.Model(&models.Timelog{}).Where("screenshot_path <> ''").Count(&totalScreenshots)
	h.DB.Model(&models.Timelog{}).Select("COALESCE(SUM(duration), 0)").Scan(&totalSeconds)

	c.JSON(http.StatusOK, gin.H{
		"total_employees":   totalEmployees,
		"total_timelogs":    totalTimelogs,
		"total_screenshots": totalScreenshots,
		"total_seconds":     totalSeconds,
	})
}
