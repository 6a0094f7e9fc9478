package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"vidflow/config"
	"vidflow/job"
)

const serviceName = "VidFlow Separation Server"

type Handler struct {
	orch *job.Orchestrator
	cfg  *config.Config
	log  *log.Logger
}

func NewHandler(orch *job.Orchestrator, cfg *config.Config, logger *log.Logger) *Handler {
	return &Handler{
		orch: orch,
		cfg:  cfg,
		log:  logger,
	}
}

// handleHealth reports liveness and whether the separation binary is
// discoverable. It never fails; an unresolvable binary reports false.
func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"service":          serviceName,
		"demucs_available": h.orch.DemucsAvailable(),
	})
}

// handleSeparate validates the upload and runs the full pipeline inline.
// The request blocks for the duration of all three tool invocations.
func (h *Handler) handleSeparate(c *gin.Context) {
	fileHeader, err := c.FormFile("videoFile")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}

	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	if !job.AllowedFile(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer src.Close()

	// The pipeline is deliberately detached from the request context: a
	// client abandoning the connection does not stop in-flight tools.
	j, err := h.orch.Separate(context.Background(), fileHeader.Filename, src)
	if err != nil {
		if errors.Is(err, job.ErrBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("separation failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"success": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"jobId":         j.ID,
		"vocalUrl":      j.OutputURL(job.ArtifactVocals),
		"otherUrl":      j.OutputURL(job.ArtifactNoMusic),
		"recombinedUrl": j.OutputURL(job.ArtifactRecombined),
	})
}

// handleServeArtifact streams a file from within a job's directory. Any
// file in the directory is servable, but the resolved path can never
// escape it.
func (h *Handler) handleServeArtifact(c *gin.Context) {
	path, err := h.orch.ArtifactPath(c.Param("jobId"), c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.File(path)
}

func (h *Handler) handleCleanup(c *gin.Context) {
	jobID := c.Param("jobId")
	if err := h.orch.Cleanup(jobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Cleaned up job %s", jobID),
	})
}
