// Package llm wraps the OpenRouter-style chat completion API used for
// transcript analysis and consensus comparison.
//
// The client speaks JSON-mode completions exclusively: every request demands
// a JSON document back and every response is decoded with tolerance for the
// usual provider quirks (code fences, streaming-schema responses, tool-call
// payloads). Transient failures are retried with exponential backoff,
// honoring Retry-After on 429s.
package llm
