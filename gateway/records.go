package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/storage"
)

// handleGetDocument returns the persisted processing record for one object.
func (s *Server) handleGetDocument(c *gin.Context) {
	identity := core.ObjectIdentity{
		Container: c.Param("container"),
		Path:      strings.TrimPrefix(c.Param("path"), "/"),
	}

	record, err := s.pipeline.Lookup(c.Request.Context(), identity)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no record for " + identity.String()})
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("looking up document record", "identity", identity.String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record lookup failed"})
	default:
		c.JSON(http.StatusOK, record)
	}
}

// handleHealthz reports aggregate reachability of the backing stores.
func (s *Server) handleHealthz(c *gin.Context) {
	ctx := c.Request.Context()
	health := gin.H{"records": "ok", "objects": "ok"}
	status := http.StatusOK

	if err := s.records.Ping(ctx); err != nil {
		health["records"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.objects.Ping(ctx); err != nil {
		health["objects"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}
