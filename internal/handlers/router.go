package handlers

import "github.com/gin-gonic/gin"

func NewRouter(h *TrackerHandler) *gin.Engine {
	r := gin.Default()

	r.POST("/api/auth/employee/login", h.Login)
	r.POST("/api/auth/refresh", h.Refresh)

	authed := r.Group("/api", h.RequireEmployee)
	authed.GET("/employees/tasks", h.GetTasks)
	authed.GET("/employees/projects", h.GetProjects)
	authed.POST("/timelogs", h.CreateTimelog)
	authed.POST("/permissions/screenshot", h.ReportScreenshotPermission)
	authed.GET("/stats", h.GetDashboardStats)

	return r
}
