package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborline/docflow/core"
)

// EventEnvelope is one push notification from the object storage event
// source. Only object-created kinds are accepted; everything else is
// rejected per item without failing the batch.
type EventEnvelope struct {
	ID        string    `json:"id"`
	EventType string    `json:"eventType"`
	Data      EventData `json:"data"`
}

// EventData is the object reference carried by an envelope.
type EventData struct {
	Container   string `json:"container"`
	Path        string `json:"path"`
	ContentType string `json:"contentType,omitempty"`
}

const (
	statusAccepted  = "accepted"
	statusDuplicate = "duplicate"
	statusRejected  = "rejected"
)

type eventResult struct {
	Index         int    `json:"index"`
	EventID       string `json:"eventId,omitempty"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlationId,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// isObjectCreated reports whether the event type describes a new object.
func isObjectCreated(eventType string) bool {
	if eventType == "storage.object.created" {
		return true
	}
	return strings.HasPrefix(eventType, "s3:ObjectCreated:")
}

// handleEvents accepts a batch of push-event envelopes. Each envelope is
// validated and submitted independently; the response lists the outcome per
// item. Malformed JSON for the whole batch is the only 400.
func (s *Server) handleEvents(c *gin.Context) {
	var envelopes []EventEnvelope
	if err := c.ShouldBindJSON(&envelopes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event batch: " + err.Error()})
		return
	}

	results := make([]eventResult, 0, len(envelopes))
	for i, envelope := range envelopes {
		result := eventResult{Index: i, EventID: envelope.ID}

		if !isObjectCreated(envelope.EventType) {
			result.Status = statusRejected
			result.Reason = "unsupported event type " + envelope.EventType
			results = append(results, result)
			continue
		}

		identity := core.ObjectIdentity{
			Container: envelope.Data.Container,
			Path:      envelope.Data.Path,
		}
		job := core.NewJobDescriptor(identity, envelope.Data.ContentType, core.TriggerPushEvent)

		results = append(results, s.submit(c, job, result))
	}

	c.JSON(http.StatusAccepted, gin.H{"results": results})
}

type manualTriggerRequest struct {
	Container   string `json:"container"`
	Path        string `json:"path"`
	ContentType string `json:"contentType,omitempty"`
}

// handleManualTrigger accepts a direct processing request for one object.
func (s *Server) handleManualTrigger(c *gin.Context) {
	var req manualTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request: " + err.Error()})
		return
	}

	identity := core.ObjectIdentity{Container: req.Container, Path: req.Path}
	job := core.NewJobDescriptor(identity, req.ContentType, core.TriggerManual)

	result := s.submit(c, job, eventResult{})
	if result.Status == statusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Reason})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":        result.Status,
		"correlationId": result.CorrelationID,
	})
}

// submit hands one job to the engine and fills the result. Duplicates are
// acknowledged, not failed; the existing run's correlation id is returned.
func (s *Server) submit(c *gin.Context, job core.JobDescriptor, result eventResult) eventResult {
	sub, err := s.pipeline.Submit(c.Request.Context(), job)
	switch {
	case err != nil:
		result.Status = statusRejected
		result.Reason = err.Error()
	case sub.Accepted:
		result.Status = statusAccepted
		result.CorrelationID = sub.CorrelationID.String()
	default:
		result.Status = statusDuplicate
		result.CorrelationID = sub.Existing.String()
	}
	return result
}
