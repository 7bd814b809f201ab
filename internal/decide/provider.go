// Package decide holds the decision capability used by the threading
// engine: a heuristic provider that is always available, and an optional
// Gemini-backed provider whose every call is treated as fallible.
package decide

import (
	"context"
	"fmt"

	"github.com/loomchat/loom/internal/types"
)

// Provider proposes assignment, revival, and merge decisions. The engine
// must run correctly with only the heuristic implementation; calls to an
// enabled AI provider may fail and degrade to the heuristic path.
type Provider interface {
	Enabled() bool
	DecideAssignment(ctx context.Context, msg types.Message, candidates []types.Candidate) (types.AssignmentDecision, error)
	DecideRevival(ctx context.Context, msg types.Message, archived []types.Candidate) (types.RevivalDecision, error)
	DecideMerge(ctx context.Context, source, target types.Candidate) (types.MergeDecision, error)
}

// ProviderError wraps transport or parse failures from an AI provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("decision provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
