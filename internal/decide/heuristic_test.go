package decide

import (
	"context"
	"testing"

	"github.com/loomchat/loom/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(guid, title string, excerpt ...string) types.Candidate {
	return types.Candidate{
		Thread:  types.Thread{GUID: guid, Title: title},
		Excerpt: excerpt,
	}
}

func newTestHeuristic() *Heuristic {
	return NewHeuristic(0.26, 0.31, 0.78)
}

func TestHeuristicAssignPicksMaxOverlap(t *testing.T) {
	h := newTestHeuristic()

	msg := types.Message{Content: "the deploy pipeline is still broken"}
	candidates := []types.Candidate{
		candidate("thrd-aaa", "lunch plans", "anyone want sushi"),
		candidate("thrd-bbb", "deploy pipeline broken", "deploy pipeline broken since friday"),
	}

	decision, err := h.DecideAssignment(context.Background(), msg, candidates)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentActionAssign, decision.Action)
	assert.Equal(t, "thrd-bbb", decision.ThreadGUID)
	assert.Greater(t, decision.Confidence, 0.26)
	assert.LessOrEqual(t, decision.Confidence, 1.0)
}

func TestHeuristicAssignDeterministicTieBreak(t *testing.T) {
	h := newTestHeuristic()

	msg := types.Message{Content: "deploy pipeline broken"}
	candidates := []types.Candidate{
		candidate("thrd-first", "deploy pipeline broken"),
		candidate("thrd-second", "broken pipeline deploy"),
	}

	for i := 0; i < 5; i++ {
		decision, err := h.DecideAssignment(context.Background(), msg, candidates)
		require.NoError(t, err)
		assert.Equal(t, "thrd-first", decision.ThreadGUID)
	}
}

func TestHeuristicCreateBelowThreshold(t *testing.T) {
	h := newTestHeuristic()

	msg := types.Message{Content: "completely unrelated kitten pictures"}
	candidates := []types.Candidate{
		candidate("thrd-aaa", "deploy pipeline broken"),
	}

	decision, err := h.DecideAssignment(context.Background(), msg, candidates)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentActionCreate, decision.Action)
	assert.Equal(t, "Completely unrelated kitten pictures", decision.Title)
	assert.Equal(t, 0.62, decision.Confidence)
}

func TestHeuristicRevivalAcceptsAboveThreshold(t *testing.T) {
	h := newTestHeuristic()

	msg := types.Message{Content: "postgres upgrade migration plan"}
	archived := []types.Candidate{
		candidate("thrd-old", "postgres upgrade", "migration plan for postgres upgrade"),
	}

	decision, err := h.DecideRevival(context.Background(), msg, archived)
	require.NoError(t, err)
	assert.Equal(t, "thrd-old", decision.ArchivedThreadGUID)
	assert.GreaterOrEqual(t, decision.Confidence, 0.31)
}

func TestHeuristicRevivalRejectsBelowThreshold(t *testing.T) {
	h := newTestHeuristic()

	msg := types.Message{Content: "weekly standup notes"}
	archived := []types.Candidate{
		candidate("thrd-old", "postgres upgrade", "migration plan"),
	}

	decision, err := h.DecideRevival(context.Background(), msg, archived)
	require.NoError(t, err)
	assert.Empty(t, decision.ArchivedThreadGUID)
}

func TestHeuristicMergeVerdict(t *testing.T) {
	h := newTestHeuristic()

	near := candidate("thrd-a", "deploy pipeline broken", "deploy pipeline broken since friday")
	same := candidate("thrd-b", "deploy pipeline broken", "deploy pipeline broken since friday")
	far := candidate("thrd-c", "lunch plans", "anyone want sushi")

	decision, err := h.DecideMerge(context.Background(), near, same)
	require.NoError(t, err)
	assert.True(t, decision.ShouldMerge)
	assert.Equal(t, "thrd-a", decision.SourceGUID)
	assert.Equal(t, "thrd-b", decision.TargetGUID)

	decision, err = h.DecideMerge(context.Background(), near, far)
	require.NoError(t, err)
	assert.False(t, decision.ShouldMerge)
}
