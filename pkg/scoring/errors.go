package scoring

import (
	"errors"
	"fmt"
)

// ErrUnparseableScore is the cause recorded when a backend answer holds no number.
var ErrUnparseableScore = errors.New("no numeric score in backend response")

// ScoreError describes a failed remote scoring attempt. It never leaves the
// scorer; it is logged and the pair falls back to the domain heuristic.
type ScoreError struct {
	Op    string    // "backend", "parse", "save"
	Pair  [2]string // URLs in normalized order
	Cause error
}

// Error implements the error interface.
func (e *ScoreError) Error() string {
	return fmt.Sprintf("score %s %s <-> %s: %v", e.Op, e.Pair[0], e.Pair[1], e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ScoreError) Unwrap() error {
	return e.Cause
}

func newScoreError(op, a, b string, cause error) *ScoreError {
	if b < a {
		a, b = b, a
	}
	return &ScoreError{Op: op, Pair: [2]string{a, b}, Cause: cause}
}
