package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/internhq/internhub/internal/auth"
	"github.com/internhq/internhub/internal/handlers"
	"github.com/internhq/internhub/internal/livesync"
	"github.com/internhq/internhub/internal/middleware"
	"github.com/internhq/internhub/internal/models"
	"github.com/internhq/internhub/internal/realtime"
	"github.com/internhq/internhub/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, broker *livesync.Broker) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if broker == nil {
		return nil, fmt.Errorf("change feed broker must be provided")
	}

	notificationService, err := services.NewNotificationService(db, broker)
	if err != nil {
		return nil, err
	}
	activityService, err := services.NewActivityService(db)
	if err != nil {
		return nil, err
	}
	profileService, err := services.NewProfileService(db, notificationService, activityService)
	if err != nil {
		return nil, err
	}
	internshipService, err := services.NewInternshipService(db, notificationService, activityService)
	if err != nil {
		return nil, err
	}
	applicationService, err := services.NewApplicationService(db, notificationService, activityService)
	if err != nil {
		return nil, err
	}
	cvFormService, err := services.NewCVFormService(db)
	if err != nil {
		return nil, err
	}
	analyticsService, err := services.NewAnalyticsService(db)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(broker)

	authHandler, err := handlers.NewAuthHandler(profileService, jwt)
	if err != nil {
		return nil, err
	}
	notificationHandler, err := handlers.NewNotificationHandler(notificationService, hub, jwt)
	if err != nil {
		return nil, err
	}
	profileHandler, err := handlers.NewProfileHandler(profileService)
	if err != nil {
		return nil, err
	}
	internshipHandler, err := handlers.NewInternshipHandler(internshipService)
	if err != nil {
		return nil, err
	}
	applicationHandler, err := handlers.NewApplicationHandler(applicationService)
	if err != nil {
		return nil, err
	}
	cvFormHandler, err := handlers.NewCVFormHandler(cvFormService)
	if err != nil {
		return nil, err
	}
	analyticsHandler, err := handlers.NewAnalyticsHandler(analyticsService)
	if err != nil {
		return nil, err
	}
	activityHandler, err := handlers.NewActivityHandler(activityService)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// The websocket stream authenticates through a token query parameter,
	// so it sits outside the Auth middleware group.
	r.GET("/api/notifications/stream", notificationHandler.Stream)

	requireAuth := middleware.Auth(jwt)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.PATCH("/profile", profileHandler.Update)

	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
		notifications.DELETE("", notificationHandler.DeleteAll)
	}

	internships := api.Group("/internships")
	{
		internships.GET("", internshipHandler.List)
		internships.GET("/:id", internshipHandler.Get)
		internships.POST("", middleware.RequireRoles(models.RoleSoftwareHouse), internshipHandler.Create)
		internships.GET("/:id/applications", applicationHandler.ListForInternship)
	}

	applications := api.Group("/applications")
	{
		applications.POST("", middleware.RequireRoles(models.RoleStudent), applicationHandler.Apply)
		applications.GET("", middleware.RequireRoles(models.RoleStudent), applicationHandler.ListMine)
		applications.POST("/:id/decide", middleware.RequireRoles(models.RoleSoftwareHouse), applicationHandler.Decide)
		applications.POST("/:id/withdraw", middleware.RequireRoles(models.RoleStudent), applicationHandler.Withdraw)
	}

	cv := api.Group("/cv-form")
	cv.Use(middleware.RequireRoles(models.RoleStudent))
	{
		cv.GET("", cvFormHandler.Get)
		cv.PUT("", cvFormHandler.Save)
	}

	admin := api.Group("/admin")
	admin.Use(adminOnly)
	{
		admin.GET("/profiles/pending", profileHandler.ListPending)
		admin.POST("/profiles/:id/review", profileHandler.Review)
		admin.GET("/internships/pending", internshipHandler.ListPending)
		admin.POST("/internships/:id/review", internshipHandler.Review)
		admin.GET("/analytics/overview", analyticsHandler.Overview)
		admin.GET("/analytics/report", analyticsHandler.Report)
		admin.GET("/activity", activityHandler.List)
		admin.GET("/activity/admin", activityHandler.ListAdmin)
	}

	return r, nil
}
