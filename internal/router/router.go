package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/handler"
	"github.com/certivox/certivox-backend/internal/middleware"
	"github.com/certivox/certivox-backend/internal/response"
	"github.com/certivox/certivox-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	Module        *handler.ModuleHandler
	Certification *handler.CertificationHandler
	Monitor       *handler.MonitorHandler
	System        *handler.SystemHandler
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. Question audio is shipped inline as
	// base64, so compression pays for itself here.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/trainee/login", handlers.Auth.TraineeLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/trainee/logout", middleware.RequireTraineeJWT(authService), handlers.Auth.TraineeLogout)
		auth.GET("/trainee/me", middleware.RequireTraineeJWT(authService), handlers.Auth.GetTraineeProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Trainee Group (JWT + Single Device) ────────────────────────
	traineeAPI := router.Group("/api/v1/trainee")
	traineeAPI.Use(
		middleware.RequireTraineeJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Module catalog and progress
		traineeAPI.GET("/modules", handlers.Module.GetCatalog)
		traineeAPI.GET("/modules/:module_id", handlers.Module.GetModule)
		traineeAPI.POST("/subtopics/:subtopic_id/complete", handlers.Module.CompleteSubtopic)
		traineeAPI.POST("/quiz-attempts", handlers.Module.RecordQuizAttempt)

		// Voice certification session engine
		cert := traineeAPI.Group("/modules/:module_id/certification")
		{
			cert.GET("/eligibility", handlers.Certification.CheckEligibility)
			cert.POST("/start", handlers.Certification.StartSession)
			cert.POST("/respond", handlers.Certification.SubmitResponse)
			cert.POST("/complete", handlers.Certification.CompleteSession)
			cert.GET("/session", handlers.Certification.GetSession)
			cert.GET("/certificate", middleware.CacheControl(3600), handlers.Certification.GetCertificate)
		}
	}

	// ─── 3. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/monitor/:module_id", handlers.Monitor.MonitorModule)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Module authoring
		adminAPI.POST("/modules", handlers.Module.CreateModule)
		adminAPI.PATCH("/modules/:module_id/status", handlers.Module.SetModuleStatus)

		// Trainee session reset
		adminAPI.POST("/trainees/:id/reset-session", handlers.Auth.ResetTraineeSession)

		// System monitoring
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
