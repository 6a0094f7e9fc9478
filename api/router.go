package api

import (
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"vidflow/config"
	"vidflow/job"
)

func SetupRouter(orch *job.Orchestrator, cfg *config.Config, logger *log.Logger) *gin.Engine {
	r := gin.Default()
	r.Use(CORSMiddleware())
	h := NewHandler(orch, cfg, logger)

	// Health stays outside auth so probes always succeed.
	r.GET("/api/health", h.handleHealth)

	apiGroup := r.Group("/api")
	apiGroup.Use(AuthMiddleware(cfg))
	{
		apiGroup.POST("/separate", BodyLimitMiddleware(cfg), h.handleSeparate)
		apiGroup.DELETE("/cleanup/:jobId", h.handleCleanup)
	}

	// Artifact downloads are addressed by the relative URLs the separate
	// response hands out.
	r.GET("/outputs/:jobId/:filename", h.handleServeArtifact)

	return r
}
