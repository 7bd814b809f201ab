package decide

import (
	"context"
	"fmt"

	"github.com/loomchat/loom/internal/similarity"
	"github.com/loomchat/loom/internal/types"
)

const (
	// assignConfidenceBump lifts an accepted overlap score into a
	// confidence value, capped at 1.
	assignConfidenceBump = 0.25
	// createConfidence is reported when no candidate overlaps enough.
	createConfidence = 0.62
)

// Heuristic scores candidates by Jaccard token overlap. Always enabled.
type Heuristic struct {
	AssignSimilarityMin  float64
	RevivalSimilarityMin float64
	MergeSimilarityMin   float64
}

// NewHeuristic builds a heuristic provider with the given acceptance
// thresholds.
func NewHeuristic(assignMin, revivalMin, mergeMin float64) *Heuristic {
	return &Heuristic{
		AssignSimilarityMin:  assignMin,
		RevivalSimilarityMin: revivalMin,
		MergeSimilarityMin:   mergeMin,
	}
}

// Enabled reports true; the heuristic is always available.
func (h *Heuristic) Enabled() bool { return true }

// DecideAssignment picks the candidate with maximal token overlap against
// the message content, assigning when the best score clears the
// threshold. Deterministic: ties resolve to the first candidate in order.
func (h *Heuristic) DecideAssignment(_ context.Context, msg types.Message, candidates []types.Candidate) (types.AssignmentDecision, error) {
	best, score := bestOverlap(msg.Content, candidates)

	if best != nil && score >= h.AssignSimilarityMin {
		confidence := clampConfidence(score + assignConfidenceBump)
		return types.AssignmentDecision{
			Action:     types.AssignmentActionAssign,
			ThreadGUID: best.Thread.GUID,
			Confidence: confidence,
			Reason:     fmt.Sprintf("token overlap %.2f with thread %q", score, best.Thread.Title),
		}, nil
	}

	return types.AssignmentDecision{
		Action:     types.AssignmentActionCreate,
		Title:      FallbackTitle(msg.Content),
		Confidence: createConfidence,
		Reason:     fmt.Sprintf("no live thread overlapped enough (best %.2f)", score),
	}, nil
}

// DecideRevival picks the archived candidate with maximal overlap,
// accepting it when the score clears the revival threshold.
func (h *Heuristic) DecideRevival(_ context.Context, msg types.Message, archived []types.Candidate) (types.RevivalDecision, error) {
	best, score := bestOverlap(msg.Content, archived)
	if best == nil || score < h.RevivalSimilarityMin {
		return types.RevivalDecision{Confidence: score}, nil
	}
	return types.RevivalDecision{
		ArchivedThreadGUID: best.Thread.GUID,
		Confidence:         score,
	}, nil
}

// DecideMerge judges the pair duplicates when the overlap of their
// title+excerpt blobs clears the merge threshold.
func (h *Heuristic) DecideMerge(_ context.Context, source, target types.Candidate) (types.MergeDecision, error) {
	score := similarity.Jaccard(source.ExcerptText(), target.ExcerptText())
	return types.MergeDecision{
		ShouldMerge: score >= h.MergeSimilarityMin,
		SourceGUID:  source.Thread.GUID,
		TargetGUID:  target.Thread.GUID,
		Confidence:  score,
		Reason:      fmt.Sprintf("excerpt overlap %.2f", score),
	}, nil
}

// bestOverlap returns the candidate with strictly maximal Jaccard score
// against the content, and its score. Ties keep the first encountered.
func bestOverlap(content string, candidates []types.Candidate) (*types.Candidate, float64) {
	var best *types.Candidate
	bestScore := 0.0
	for i := range candidates {
		score := similarity.Jaccard(content, candidates[i].ExcerptText())
		if best == nil || score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best, bestScore
}
