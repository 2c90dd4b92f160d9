package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires every endpoint under /api/v1
func (s *Server) registerRoutes(router *gin.Engine) {
	authMW := s.authMW

	apiV1 := router.Group("/api/v1")

	// Health check - no auth required
	apiV1.GET("/health", s.healthCheck)
	apiV1.HEAD("/health", s.healthCheck)

	// Authentication routes - no auth required
	authGroup := apiV1.Group("/auth")
	{
		authGroup.POST("/login", s.authController.Login)
		authGroup.POST("/register", s.authController.Register)
		authGroup.POST("/refresh", s.authController.Refresh)
		authGroup.POST("/logout", authMW.RequireAuthentication(), s.authController.Logout)
	}

	// User routes - authenticated
	user := apiV1.Group("/user", authMW.RequireAuthentication())
	{
		user.GET("/me", s.authController.GetCurrentUser)
	}

	// Project routes - authenticated
	projects := apiV1.Group("/projects", authMW.RequireAuthentication())
	{
		projects.POST("", s.projectController.Create)
		projects.GET("", s.projectController.List)
		projects.GET("/:id", s.projectController.Get)
		projects.PUT("/:id/files", s.projectController.ReplaceFiles)
		projects.DELETE("/:id", s.projectController.Delete)
	}

	// Scan routes - authenticated
	scans := apiV1.Group("/scans", authMW.RequireAuthentication())
	{
		scans.POST("", s.scanController.Start)
		scans.GET("", s.scanController.List)
		scans.GET("/:id", s.scanController.Get)
		scans.DELETE("/:id", s.scanController.Cancel)
		scans.GET("/:id/findings", s.scanController.ListFindings)
		scans.GET("/:id/report", s.reportController.GetForScan)
	}

	// Finding routes - authenticated
	findings := apiV1.Group("/findings", authMW.RequireAuthentication())
	{
		findings.PATCH("/:id/status", s.findingController.UpdateTriage)
	}

	// Report routes - authenticated
	reports := apiV1.Group("/reports", authMW.RequireAuthentication())
	{
		reports.GET("/:id", s.reportController.Get)
		reports.GET("/:id/pdf", s.reportController.GetPDF)
	}

	router.NoRoute(s.handleNotFound)
}

// healthCheck reports service liveness
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now(),
		"version": s.config.Version,
		"env":     s.config.Server.Mode,
	})
}

func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "Route not found",
		"path":  c.Request.URL.Path,
		"time":  time.Now(),
	})
}
