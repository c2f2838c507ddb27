// Package openai implements the extraction, evaluation, and summarization
// stage executors against OpenAI-compatible chat APIs (OpenAI, Ollama,
// vLLM, LocalAI). Models run in JSON mode where structured output is
// required, with light repair of common formatting defects in responses.
package openai
