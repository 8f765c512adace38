// Package backend talks to a remote OpenAI-compatible chat completion
// endpoint used for pairwise similarity scoring and cluster summaries.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrBackendUnavailable wraps transport failures and non-200 responses.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformedResponse is returned when the response has no usable text.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// Completer is the interface for text completions.
type Completer interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
}

// PairScorer returns the raw backend answer for a similarity question.
type PairScorer interface {
	ScoreTextPair(ctx context.Context, textA, textB string) (string, error)
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = backend default)
	Temperature float64 // 0 = deterministic
	Model       string  // Override model for this request
	System      string  // System prompt (optional)
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

const scorePromptTemplate = `Rate how similar the topics of these two web pages are on a scale from 0.0 (unrelated) to 1.0 (same topic).

Page A:
%s

Page B:
%s

Respond with ONLY the number.`

// ScorePrompt builds the pairwise similarity prompt.
func ScorePrompt(textA, textB string) string {
	return fmt.Sprintf(scorePromptTemplate, strings.TrimSpace(textA), strings.TrimSpace(textB))
}
