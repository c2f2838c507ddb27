package workflowsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/harborline/docflow/core"
)

// ManagementClient is the external workflow engine's management surface,
// reduced to what the synchronizer needs. It never touches workflow
// runtime.
type ManagementClient interface {
	// GetDefinition fetches the current definition of a workflow.
	GetDefinition(ctx context.Context, workflowID string) (*Definition, error)

	// UpdateActionConcurrency sets the concurrency bound of one action
	// node. version is the definition version the caller read; the engine
	// rejects the update with ErrConfigurationConflict when the definition
	// has moved on.
	UpdateActionConcurrency(ctx context.Context, workflowID, action string, runs int, version string) error
}

// HTTPClient talks to a workflow engine management API over HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

const defaultClientTimeout = 15 * time.Second

// NewHTTPClient creates a management client for the given base URL. An
// empty apiKey sends no credentials.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

// GetDefinition fetches the workflow definition.
func (c *HTTPClient) GetDefinition(ctx context.Context, workflowID string) (*Definition, error) {
	endpoint := fmt.Sprintf("%s/api/v1/workflows/%s", c.baseURL, url.PathEscape(workflowID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building definition request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var def Definition
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		return nil, fmt.Errorf("decoding workflow definition: %w", err)
	}
	return &def, nil
}

type actionConcurrencyUpdate struct {
	Version string `json:"version"`
	Runs    int    `json:"runs"`
}

// UpdateActionConcurrency issues a version-guarded update restricted to one
// action node.
func (c *HTTPClient) UpdateActionConcurrency(ctx context.Context, workflowID, action string, runs int, version string) error {
	endpoint := fmt.Sprintf("%s/api/v1/workflows/%s/actions/%s/concurrency",
		c.baseURL, url.PathEscape(workflowID), url.PathEscape(action))

	body, err := json.Marshal(actionConcurrencyUpdate{Version: version, Runs: runs})
	if err != nil {
		return fmt.Errorf("encoding concurrency update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: workflow %s", ErrConfigurationConflict, workflowID)
	default:
		return classifyStatus(resp)
	}
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("workflow engine timed out: %w", err)
	}
	return fmt.Errorf("%w: %v", core.ErrUnreachable, err)
}

func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: workflow engine returned %d: %s",
			core.ErrUnreachable, resp.StatusCode, snippet)
	}
	return fmt.Errorf("workflow engine returned %d: %s", resp.StatusCode, snippet)
}
