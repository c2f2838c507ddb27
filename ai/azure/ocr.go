package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/harborline/docflow/ai"
	"github.com/harborline/docflow/core"
)

const analyzePath = "/documentintelligence/layout:analyze"

// LayoutClient implements ai.LayoutExtractor against a Document
// Intelligence style HTTP layout endpoint.
type LayoutClient struct {
	endpoint string
	key      string
	client   *http.Client
	logger   *slog.Logger
}

var _ ai.LayoutExtractor = (*LayoutClient)(nil)

// analyzeRequest is the wire request for the layout endpoint.
type analyzeRequest struct {
	ContentBase64 string `json:"base64Source"`
	Pages         string `json:"pages,omitempty"`
}

// analyzeResponse is the wire response from the layout endpoint.
type analyzeResponse struct {
	Content string `json:"content"`
	Pages   []struct {
		PageNumber int `json:"pageNumber"`
		Lines      []struct {
			Content string    `json:"content"`
			Polygon []float64 `json:"polygon"`
		} `json:"lines"`
	} `json:"pages"`
}

// NewLayoutClient creates a layout recognition client for the given
// endpoint. The key is optional for unauthenticated deployments.
//
// Returns ai.LayoutExtractor interface to enforce abstraction.
func NewLayoutClient(endpoint, key string, timeout time.Duration) ai.LayoutExtractor {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &LayoutClient{
		endpoint: endpoint,
		key:      key,
		client:   &http.Client{Timeout: timeout},
		logger:   slog.Default().With("component", "azure-layout"),
	}
}

// ExtractLayout runs layout-aware recognition over the given page range.
func (c *LayoutClient) ExtractLayout(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty document content")
	}

	reqBody := analyzeRequest{ContentBase64: base64.StdEncoding.EncodeToString(content)}
	if !pages.IsZero() {
		reqBody.Pages = fmt.Sprintf("%d-%d", pages.Start, pages.End)
	}

	bs, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+analyzePath, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("layout request failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, classifyHTTPErr(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Debug("layout response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.Transient(core.TransientRateLimit, fmt.Errorf("layout service throttled"))
	case resp.StatusCode >= 500:
		return nil, core.Transient(core.TransientUnreachable, fmt.Errorf("layout service status %d", resp.StatusCode))
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("layout service status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}

	return toLayoutResult(&parsed), nil
}

func toLayoutResult(resp *analyzeResponse) *ai.LayoutResult {
	result := &ai.LayoutResult{
		Text:  resp.Content,
		Pages: len(resp.Pages),
	}
	for _, page := range resp.Pages {
		for _, line := range page.Lines {
			block := ai.LayoutBlock{Page: page.PageNumber, Text: line.Content}
			if len(line.Polygon) >= 4 {
				block.X = line.Polygon[0]
				block.Y = line.Polygon[1]
				block.W = line.Polygon[2] - line.Polygon[0]
				block.H = line.Polygon[3] - line.Polygon[1]
			}
			result.Blocks = append(result.Blocks, block)
		}
	}
	return result
}

// classifyHTTPErr maps transport failures onto the transient taxonomy.
func classifyHTTPErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(core.TransientTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.Transient(core.TransientTimeout, err)
	}
	return core.Transient(core.TransientUnreachable, err)
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
