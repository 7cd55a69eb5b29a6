package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/derekprior/fixtures/internal/logging"
)

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/tournaments/:id/fixtures/preview", h.PreviewFixtures)
		api.POST("/tournaments/:id/fixtures", h.GenerateFixtures)
		api.GET("/tournaments/:id/matches", h.ListMatches)
		api.GET("/tournaments/:id/standings", h.Standings)
		api.PUT("/matches/:matchID/result", h.RecordResult)
		api.PATCH("/matches/:matchID/status", h.SetStatus)
	}
	return r
}

// requestLogger logs one line per request with its status and duration.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logging.Info(h.Logger, "request",
			logging.FieldMethod, c.Request.Method,
			logging.FieldPath, c.Request.URL.Path,
			logging.FieldStatusCode, c.Writer.Status(),
			logging.FieldDurationMS, time.Since(started).Milliseconds(),
		)
	}
}
