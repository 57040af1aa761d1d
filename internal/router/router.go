package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/handler"
	"github.com/cettopper/exam-portal/internal/middleware"
	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/response"
	"github.com/cettopper/exam-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Test       *handler.TestHandler
	AdminTest  *handler.AdminTestHandler
	Submission *handler.SubmissionHandler
	Result     *handler.ResultHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)

	// ─── 1. Signed-in Group (any role) ─────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))
	{
		api.GET("/tests", handlers.Test.ListTests)
		api.GET("/tests/:id", handlers.Test.GetTest)
		api.POST("/submit", submitLimiter.Middleware(), handlers.Submission.Submit)
		api.GET("/user/results", handlers.Result.ListMyResults)
	}

	// ─── 2. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireJWT(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		adminAPI.POST("/tests", handlers.AdminTest.CreateTest)
		adminAPI.DELETE("/tests/:id", handlers.AdminTest.DeleteTest)
		adminAPI.GET("/tests/:id/results/export", handlers.Result.ExportTestResults)
		adminAPI.GET("/results", handlers.Result.ListRecentResults)
	}

	// ─── 3. WebSocket Group (query-token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		ws.GET("/admin/results/stream", handlers.WS.ResultsStream)
	}

	return router
}
