// Package llm talks to the upstream text understanding providers: a relay
// webhook that answers with arbitrary JSON, and prompt-completion models
// (Gemini or OpenAI) that answer with text. It also carries the cross
// cutting wrappers used around them: rate limiting, a circuit breaker and
// a completion cache.
package llm
