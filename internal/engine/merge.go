package engine

import (
	"context"

	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/notify"
	"github.com/loomchat/loom/internal/similarity"
	"github.com/loomchat/loom/internal/telemetry"
	"github.com/loomchat/loom/internal/types"
	"go.uber.org/zap"
)

// mergeEvent is the payload of a thread.merged broadcast.
type mergeEvent struct {
	SourceGUID    string `json:"source_guid"`
	TargetGUID    string `json:"target_guid"`
	MovedMessages int64  `json:"moved_messages"`
}

// MergeTick scans a bounded window of live threads for the single most
// similar pair and, above the confidence bar, consolidates one into the
// other. One pass per firing.
func (e *Engine) MergeTick(ctx context.Context) {
	candidates, err := db.GetCandidates(e.db, types.LiveThreadStates, e.cfg.MergeCandidateCap, e.cfg.ExcerptMessages)
	if err != nil {
		e.logger.Error("load merge candidates", zap.Error(err))
		return
	}
	if len(candidates) < 2 {
		return
	}

	first, second, score := mostSimilarPair(candidates)
	if score < e.cfg.MergePairSimilarityMin {
		return
	}

	decision := e.resolveMerge(ctx, candidates[first], candidates[second], score)
	if !decision.ShouldMerge || decision.SourceGUID == decision.TargetGUID {
		return
	}

	source, target := e.orientMerge(candidates, decision.SourceGUID, decision.TargetGUID)

	outcome, err := db.ExecuteMerge(e.db, source, target, e.now().UnixMilli())
	if err != nil {
		e.logger.Error("execute merge", zap.String("source", source), zap.String("target", target), zap.Error(err))
		return
	}
	if !outcome.Merged {
		// The source no longer qualified; a legitimately lost race.
		return
	}

	telemetry.MergesTotal.Inc()
	e.sink.Broadcast(notify.EventThreadUpdated, outcome.Source)
	e.sink.Broadcast(notify.EventThreadUpdated, outcome.Target)
	e.sink.Broadcast(notify.EventThreadMerged, mergeEvent{
		SourceGUID:    source,
		TargetGUID:    target,
		MovedMessages: outcome.MovedMessages,
	})

	e.logger.Info("threads merged",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int64("moved_messages", outcome.MovedMessages),
		zap.Float64("confidence", decision.Confidence))
}

// resolveMerge defaults to the heuristic verdict for the pair and lets an
// enabled AI provider override it, provided the provider stays within the
// original pair and clears the confidence bar.
func (e *Engine) resolveMerge(ctx context.Context, source, target types.Candidate, score float64) types.MergeDecision {
	decision := types.MergeDecision{
		ShouldMerge: score >= e.cfg.MergeSimilarityMin,
		SourceGUID:  source.Thread.GUID,
		TargetGUID:  target.Thread.GUID,
		Confidence:  score,
		Reason:      "excerpt overlap",
	}

	if !e.aiEnabled() {
		return decision
	}

	raw, err := e.ai.DecideMerge(ctx, source, target)
	if err != nil {
		telemetry.ProviderFallbacksTotal.WithLabelValues("merge").Inc()
		e.logger.Warn("merge provider failed, using heuristic", zap.Error(err))
		return decision
	}

	pair := map[string]bool{source.Thread.GUID: true, target.Thread.GUID: true}
	if raw.ShouldMerge &&
		raw.Confidence >= e.cfg.MergeConfidenceMin &&
		pair[raw.SourceGUID] && pair[raw.TargetGUID] {
		return raw
	}
	return decision
}

// orientMerge keeps the thread with the more recent activity as target:
// the more recently active thread is more likely the continuing
// discussion.
func (e *Engine) orientMerge(candidates []types.Candidate, sourceGUID, targetGUID string) (string, string) {
	activity := func(guid string) int64 {
		for _, cand := range candidates {
			if cand.Thread.GUID == guid {
				if cand.Thread.LastMessageAt != nil {
					return *cand.Thread.LastMessageAt
				}
				return cand.Thread.CreatedAt
			}
		}
		return 0
	}

	if activity(sourceGUID) > activity(targetGUID) {
		return targetGUID, sourceGUID
	}
	return sourceGUID, targetGUID
}

// mostSimilarPair sweeps every pair in the capped window and returns the
// indexes of the maximum-scoring pair and its score. O(n²) over a small,
// deliberately bounded set.
func mostSimilarPair(candidates []types.Candidate) (int, int, float64) {
	bestI, bestJ := 0, 1
	bestScore := -1.0
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			score := similarity.Jaccard(candidates[i].ExcerptText(), candidates[j].ExcerptText())
			if score > bestScore {
				bestI, bestJ = i, j
				bestScore = score
			}
		}
	}
	return bestI, bestJ, bestScore
}
