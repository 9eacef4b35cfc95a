package api

import (
	"net/http"
	"time"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/service"

	"github.com/gin-gonic/gin"
)

// RouteDeps bundles what SetupRoutes wires into handlers.
type RouteDeps struct {
	JWTSecret      string
	TokenTTL       time.Duration
	DevTokens      bool
	Store          *service.EntityStore
	RequestService service.RequestService
	BackupService  service.BackupService
	Metrics        http.Handler // nil disables /metrics
}

func SetupRoutes(router *gin.Engine, deps RouteDeps) {
	authHandler := NewAuthHandler(deps.Store, deps.JWTSecret, deps.TokenTTL, deps.DevTokens)
	clientHandler := NewClientHandler(deps.Store)
	templateHandler := NewTemplateHandler(deps.Store)
	requestHandler := NewRequestHandler(deps.RequestService)
	systemHandler := NewSystemHandler(deps.BackupService)

	authMiddleware := AuthMiddleware(deps.JWTSecret, deps.Store)
	coachOnly := RoleMiddleware(domain.RoleCoach)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/token", authHandler.IssueDevToken)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/session", authHandler.Me)
		protected.POST("/session/logout", authHandler.Logout)
		protected.POST("/sync/refresh", authHandler.Refresh)

		// --- Clients ---
		// Per-client visibility is decided by the permission engine, so
		// clients reach these routes too.
		clientGroup := protected.Group("/clients")
		{
			clientGroup.GET("", clientHandler.ListClients)
			clientGroup.POST("", coachOnly, clientHandler.CreateClient)
			clientGroup.GET("/:clientId", clientHandler.GetClient)
			clientGroup.PUT("/:clientId", coachOnly, clientHandler.UpdateClient)
			clientGroup.PUT("/:clientId/live", coachOnly, clientHandler.UpdateClientLive)
			clientGroup.DELETE("/:clientId", coachOnly, clientHandler.DeleteClient)
			clientGroup.POST("/:clientId/active", clientHandler.SelectClient)
			clientGroup.POST("/:clientId/templates/:templateId", coachOnly, clientHandler.ApplyTemplate)

			clientGroup.GET("/:clientId/requests", requestHandler.GetClientRequests)
			clientGroup.POST("/:clientId/requests", requestHandler.SubmitRequest)
		}

		protected.GET("/active", clientHandler.GetActiveClient)
		protected.DELETE("/active", clientHandler.ClearActiveClient)

		// --- Coach Specific Routes ---
		coachGroup := protected.Group("")
		coachGroup.Use(coachOnly)
		{
			coachGroup.GET("/templates", templateHandler.ListTemplates)
			coachGroup.POST("/templates", templateHandler.CreateTemplate)
			coachGroup.DELETE("/templates/:templateId", templateHandler.DeleteTemplate)

			coachGroup.GET("/requests", requestHandler.GetPendingRequests)
			coachGroup.POST("/requests/:requestId/accept", requestHandler.AcceptRequest)
			coachGroup.POST("/requests/:requestId/reject", requestHandler.RejectRequest)
			coachGroup.DELETE("/requests/:requestId", requestHandler.DeleteRequest)

			coachGroup.GET("/backup", systemHandler.DownloadBackup)
			coachGroup.POST("/backup/archive", systemHandler.ArchiveBackup)
			coachGroup.POST("/restore", systemHandler.Restore)
			coachGroup.POST("/restore/archive", systemHandler.RestoreArchive)
			coachGroup.POST("/system/reset", systemHandler.ResetSystem)
		}
	}
}
