package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/talentbridge/aptitude-backend/internal/config"
	"github.com/talentbridge/aptitude-backend/internal/database"
	"github.com/talentbridge/aptitude-backend/internal/handler"
	"github.com/talentbridge/aptitude-backend/internal/middleware"
	"github.com/talentbridge/aptitude-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Result   *handler.ResultHandler
	Question *handler.QuestionHandler
	Proctor  *handler.ProctorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, db *database.LazyPool, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Serve resume attachments statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check. The primary store is lazy, so its state is
	// reported rather than probed.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"status":   "ok",
			"database": db.State().String(),
		})
	})

	// Rate limiter for submissions (30 requests per minute per IP).
	submitLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── Aptitude API ──────────────────────────────────────────────────
	aptitude := router.Group("/api/v1/aptitude")
	{
		aptitude.GET("/questions", handlers.Question.ListQuestions)
		aptitude.POST("", submitLimiter.Middleware(), handlers.Result.SubmitResult)
		aptitude.GET("/:id", handlers.Result.GetResult)
		aptitude.GET("/:id/export", handlers.Result.ExportResult)
	}

	// ─── WebSocket ─────────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/proctor", handlers.Proctor.ProctorStream)
	}

	return router
}
