// Package llm provides an OpenRouter-compatible chat completion client that
// returns JSON payloads.
//
// The text classifier is the only consumer: it sends the query text with a
// fixed system prompt and decodes the model's JSON verdict with DecodeJSON,
// which tolerates code fences and surrounding prose.
//
// Requests are retried on HTTP 408/429/5xx, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Retry-After headers are honored up to the max delay. Context cancellation
// stops retries immediately.
package llm
