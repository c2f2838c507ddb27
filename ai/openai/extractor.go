package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harborline/docflow/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// FieldExtractor implements ai.FieldExtractor using OpenAI-compatible chat
// APIs. The target schema is embedded in the prompt and the model is run in
// JSON mode.
type FieldExtractor struct {
	client  llms.Model
	schemas ai.SchemaSource
	logger  *slog.Logger
}

// newFieldExtractor is an internal constructor that returns the concrete
// type. Used by Provider to manage the instance.
func newFieldExtractor(config *ai.Config, schemas ai.SchemaSource) (*FieldExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if schemas == nil {
		return nil, fmt.Errorf("schema source required")
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractionModel),
	)
	if err != nil {
		return nil, err
	}

	return &FieldExtractor{
		client:  client,
		schemas: schemas,
		logger:  slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewFieldExtractor creates a schema-guided extractor using the provided
// configuration.
//
// Returns ai.FieldExtractor interface to enforce abstraction.
func NewFieldExtractor(config *ai.Config, schemas ai.SchemaSource) (ai.FieldExtractor, error) {
	return newFieldExtractor(config, schemas)
}

// Extract produces a JSON instance of the named schema from the recognized
// layout.
func (e *FieldExtractor) Extract(ctx context.Context, layout *ai.LayoutResult, schemaName string) (string, error) {
	if layout == nil || strings.TrimSpace(layout.Text) == "" {
		return "", fmt.Errorf("empty layout text")
	}

	schemaJSON, ok := e.schemas.SchemaJSON(schemaName)
	if !ok {
		return "", fmt.Errorf("unknown extraction schema %q", schemaName)
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildExtractionPrompt(schemaJSON))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(layout.Text)},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var instance string
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return "", classifyErr(err)
		}
		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("no choices returned from model")
			continue
		}

		responseText := stripFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if !json.Valid([]byte(responseText)) {
			lastErr = fmt.Errorf("model returned invalid JSON")
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText)
			continue
		}

		instance = responseText
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return "", lastErr
	}

	e.logger.Debug("extracted instance", "schema", schemaName, "bytes", len(instance))
	return instance, nil
}

// stripFences removes markdown code fences the model sometimes wraps its
// JSON output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
