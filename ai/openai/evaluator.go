package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/harborline/docflow/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Evaluator implements ai.Evaluator using OpenAI-compatible chat APIs.
type Evaluator struct {
	client  llms.Model
	schemas ai.SchemaSource
	logger  *slog.Logger
}

// grade is the wrapper structure for the model's JSON response.
type grade struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

func newEvaluator(config *ai.Config, schemas ai.SchemaSource) (*Evaluator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if schemas == nil {
		return nil, fmt.Errorf("schema source required")
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithModel(config.EvaluationModel),
	)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		client:  client,
		schemas: schemas,
		logger:  slog.Default().With("component", "openai-evaluator"),
	}, nil
}

// NewEvaluator creates an extraction evaluator using the provided
// configuration.
//
// Returns ai.Evaluator interface to enforce abstraction.
func NewEvaluator(config *ai.Config, schemas ai.SchemaSource) (ai.Evaluator, error) {
	return newEvaluator(config, schemas)
}

// Evaluate scores the instance against the named schema, returning a value
// in [0, 1].
func (e *Evaluator) Evaluate(ctx context.Context, instanceJSON string, schemaName string) (float64, error) {
	schemaJSON, ok := e.schemas.SchemaJSON(schemaName)
	if !ok {
		return 0, fmt.Errorf("unknown extraction schema %q", schemaName)
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildEvaluationPrompt(schemaJSON))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(instanceJSON)},
		},
	}

	var result grade
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return 0, classifyErr(err)
		}
		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("no choices returned from model")
			continue
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing evaluation response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse evaluation response after retries", "err", lastErr)
		return 0, lastErr
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 1 {
		result.Score = 1
	}

	e.logger.Debug("evaluated instance", "schema", schemaName, "score", result.Score, "reason", result.Reason)
	return result.Score, nil
}
