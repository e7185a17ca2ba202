package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig - настройки HTTP поверхности.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	AllowedOrigins    []string
}

// NewRouter собирает gin-роутер: middleware, REST эндпоинты, WebSocket
// и служебные ручки.
func NewRouter(cfg RouterConfig, h *Handler, hub *Hub, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(GinZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", sessionHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws", hub.ServeWS)

	limiter := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	limited := RateLimitMiddleware(limiter, logger.Named("RateLimit"))

	api := router.Group("/api")
	{
		// Генерационные эндпоинты под rate limit'ом.
		gen := api.Group("/")
		gen.Use(limited)
		{
			gen.POST("/generate", h.GenerateProposal)
			gen.POST("/generate/url", h.GenerateProposalFromURL)
			gen.POST("/proposal/approve", h.ApproveProposal)
			gen.POST("/slides/:index/image", h.RegenerateImage)
			gen.POST("/slides/images", h.GenerateMissingImages)
		}

		api.POST("/generate/cancel", h.CancelGeneration)
		api.GET("/proposal", h.GetProposal)
		api.DELETE("/proposal", h.DiscardProposal)

		api.GET("/slides", h.GetSlides)
		api.PUT("/slides", h.SetSlides)
		api.POST("/slides", h.AddSlide)
		api.PUT("/slides/:index", h.UpdateSlide)
		api.DELETE("/slides/:index", h.RemoveSlide)
		api.POST("/slides/:index/duplicate", h.DuplicateSlide)
		api.POST("/slides/reorder", h.ReorderSlides)
		api.POST("/undo", h.Undo)
		api.POST("/redo", h.Redo)

		api.GET("/presentations", h.ListPresentations)
		api.POST("/presentations", h.SavePresentation)
		api.PUT("/presentations/:id", h.UpdatePresentation)
		api.DELETE("/presentations/:id", h.DeletePresentation)
		api.POST("/presentations/:id/load", h.LoadPresentation)

		api.GET("/history", h.ListSnapshots)
		api.DELETE("/history/:id", h.DeleteSnapshot)
		api.DELETE("/history", h.ClearSnapshots)

		api.GET("/export/:format", h.ExportDeck)
	}

	return router
}
