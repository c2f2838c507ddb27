package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/workflowsync"
)

// handleGetConcurrency reports the controller's counts and, when a
// synchronizer is configured, the external workflow engine's view.
// Divergence is reported, never corrected here.
func (s *Server) handleGetConcurrency(c *gin.Context) {
	body := gin.H{
		"limit":    s.pipeline.Limit(),
		"inFlight": s.pipeline.InFlight(),
		"queued":   s.pipeline.Queued(),
	}

	if s.syncer != nil {
		external, err := s.syncer.GetExternalConcurrency(c.Request.Context())
		if err != nil {
			body["externalError"] = err.Error()
		} else {
			body["external"] = external
			body["inSync"] = external == s.pipeline.Limit()
		}
	}

	c.JSON(http.StatusOK, body)
}

type concurrencyUpdateRequest struct {
	Limit int `json:"limit"`
}

// handlePutConcurrency reconfigures the controller and mirrors the new
// bound to the external workflow engine. The local bound is applied first;
// a mirror failure is reported with the local change intact so the caller
// can retry the sync.
func (s *Server) handlePutConcurrency(c *gin.Context) {
	var req concurrencyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request: " + err.Error()})
		return
	}

	if err := s.pipeline.Reconfigure(req.Limit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("concurrency reconfigured", "limit", req.Limit)

	if s.syncer == nil {
		c.JSON(http.StatusOK, gin.H{"limit": req.Limit, "mirrored": false})
		return
	}

	if err := s.syncer.SetExternalConcurrency(c.Request.Context(), req.Limit); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, workflowsync.ErrConfigurationConflict):
			status = http.StatusConflict
		case errors.Is(err, workflowsync.ErrActionValidation):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, core.ErrUnreachable):
			status = http.StatusBadGateway
		}
		s.logger.Warn("mirroring concurrency failed", "limit", req.Limit, "error", err)
		c.JSON(status, gin.H{
			"limit":    req.Limit,
			"mirrored": false,
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"limit": req.Limit, "mirrored": true})
}
