// Package llm defines the provider boundary for the classification oracle.
// A Provider turns one prompt into one free-text completion; everything else
// (prompt construction, response parsing, retry) lives with the caller.
package llm

import "context"

// Request is a single completion request. Temperature 0 with a bounded
// output budget is the norm here: classification calls must be cheap and
// as deterministic as the backend allows.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for any LLM backend.
type Provider interface {
	Complete(ctx context.Context, req *Request) (string, error)
}
