package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ertargyn/realty-backend/internal/config"
	"github.com/ertargyn/realty-backend/internal/http/handlers"
	"github.com/ertargyn/realty-backend/internal/http/middleware"
	"github.com/ertargyn/realty-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	propertyHandler *handlers.PropertyHandler,
	visitHandler *handlers.VisitHandler,
	contractHandler *handlers.ContractHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), authHandler.DeleteSession)
		protectedAuth.POST("/sessions/revoke-others", authHandler.DeleteOtherSessions)
	}

	// Публичные маршруты
	api.GET("/properties", propertyHandler.List)
	api.GET("/properties/:id", middleware.UUIDValidator("id"), propertyHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile/me", profileHandler.GetMe)
		protected.PUT("/profile/me", profileHandler.UpdateMe)

		protected.GET("/properties/my", propertyHandler.ListMine)
		protected.POST("/properties", propertyHandler.Create)
		protected.PUT("/properties/:id", middleware.UUIDValidator("id"), propertyHandler.Update)
		protected.PATCH("/properties/:id/status", middleware.UUIDValidator("id"), propertyHandler.SetStatus)
		protected.POST("/properties/:id/photos", middleware.UUIDValidator("id"), propertyHandler.UploadPhoto)

		protected.POST("/visits", authRateLimit, visitHandler.Request)
		protected.GET("/visits/my", visitHandler.ListMine)
		protected.GET("/visits/owner", visitHandler.ListOwner)
		protected.GET("/visits/:id", middleware.UUIDValidator("id"), visitHandler.Get)
		protected.POST("/visits/:id/owner-response", middleware.UUIDValidator("id"), visitHandler.OwnerRespond)
		protected.POST("/visits/:id/client-response", middleware.UUIDValidator("id"), visitHandler.ClientRespond)
		protected.POST("/visits/:id/cancel", middleware.UUIDValidator("id"), visitHandler.Cancel)

		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts/my", contractHandler.ListMine)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.Get)
		protected.GET("/contracts/:id/text", middleware.UUIDValidator("id"), contractHandler.GetText)
		protected.POST("/contracts/:id/sign", middleware.UUIDValidator("id"), contractHandler.Sign)
		protected.POST("/contracts/:id/confirm", middleware.UUIDValidator("id"), contractHandler.Confirm)
		protected.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), contractHandler.Cancel)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.CountUnread)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	return r
}
