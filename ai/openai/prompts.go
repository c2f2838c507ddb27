package openai

import "fmt"

const extractionPromptTemplate = `Extract the document's fields as JSON matching the schema given below.

Output ONLY valid JSON which complies with the schema. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Fill every required field; use the document text verbatim where the schema expects strings.
- Do not invent values that are not present or clearly implied by the document. Leave optional fields out rather than guessing.
- Dates must be ISO 8601 (YYYY-MM-DD). Monetary amounts must be plain decimal numbers without currency symbols.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

const evaluationPromptTemplate = `You are grading a structured extraction against its target schema.

The schema:

%s

Score how faithfully the extracted instance captures a document conforming to that schema:
completeness of required fields, plausibility of values, and internal consistency.

Output ONLY a JSON object of the form {"score": <number between 0 and 1>, "reason": "<one sentence>"}.
Start your response with { and end with }. No other text.`

const summaryPrompt = `Summarize the following extracted document data in 2-4 plain sentences for a human reviewer.
Mention the document's key parties, dates, and totals where present. Output only the summary text, no preamble.`

// buildExtractionPrompt renders the system prompt for schema-guided
// extraction of the given schema.
func buildExtractionPrompt(schemaJSON string) string {
	return fmt.Sprintf(extractionPromptTemplate, schemaJSON)
}

// buildEvaluationPrompt renders the system prompt for grading an instance
// against the given schema.
func buildEvaluationPrompt(schemaJSON string) string {
	return fmt.Sprintf(evaluationPromptTemplate, schemaJSON)
}
