package engine

import (
	"context"

	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/decide"
	"github.com/loomchat/loom/internal/notify"
	"github.com/loomchat/loom/internal/telemetry"
	"github.com/loomchat/loom/internal/types"
	"go.uber.org/zap"
)

const (
	firstThreadReason   = "first thread in the system"
	coercedCreateReason = "provider decision could not be accepted; starting a new thread"
	failedNote          = "assignment failed; message left unthreaded"

	coercedConfidence = 0.5
)

// AssignmentTick drains the pending queue: it repeatedly claims and
// processes messages until none remain, so end-to-end latency stays low
// regardless of the polling interval.
func (e *Engine) AssignmentTick(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := db.ClaimNextPendingMessage(e.db)
		if err != nil {
			e.logger.Error("claim pending message", zap.Error(err))
			return
		}
		if msg == nil {
			return
		}

		e.processMessage(ctx, *msg)
	}
}

// processMessage decides and applies one claimed message. Failures mark
// the message failed and never block the rest of the queue.
func (e *Engine) processMessage(ctx context.Context, msg types.Message) {
	candidates, err := db.GetCandidates(e.db, types.LiveThreadStates, e.cfg.MaxActiveCandidates, e.cfg.ExcerptMessages)
	if err != nil {
		e.failMessage(msg, err)
		return
	}

	decision := e.decideAssignment(ctx, msg, candidates)

	revivedGUID := ""
	if decision.Action == types.AssignmentActionCreate {
		revivedGUID = e.decideRevival(ctx, msg)
	}

	result, err := db.ApplyAssignment(e.db, db.AssignmentApplication{
		Message:           msg,
		Decision:          decision,
		RevivedThreadGUID: revivedGUID,
		Now:               e.now().UnixMilli(),
	})
	if err != nil {
		e.failMessage(msg, err)
		return
	}

	threadGUID := result.Thread.GUID
	msg.ThreadGUID = &threadGUID
	msg.AssignmentStatus = types.AssignmentStatusAssigned
	msg.AssignmentNote = &decision.Reason

	if result.CreatedThread {
		telemetry.AssignmentsTotal.WithLabelValues("created").Inc()
		e.sink.Broadcast(notify.EventThreadCreated, result.Thread)
		if result.Revived {
			telemetry.RevivalsTotal.Inc()
			if old, err := db.GetThread(e.db, revivedGUID); err == nil && old != nil {
				e.sink.Broadcast(notify.EventThreadUpdated, *old)
			}
		}
	} else {
		telemetry.AssignmentsTotal.WithLabelValues("assigned").Inc()
		e.sink.Broadcast(notify.EventThreadUpdated, result.Thread)
	}
	e.sink.Broadcast(notify.EventMessageUpdated, msg)

	e.logger.Info("message assigned",
		zap.String("message", msg.GUID),
		zap.String("thread", threadGUID),
		zap.Bool("created", result.CreatedThread),
		zap.Float64("confidence", decision.Confidence))
}

// failMessage terminally fails a claimed message with a generic note, in
// its own minimal update so it survives the aborted transaction.
func (e *Engine) failMessage(msg types.Message, cause error) {
	e.logger.Error("assignment failed",
		zap.String("message", msg.GUID),
		zap.Error(cause))

	if err := db.MarkMessageFailed(e.db, msg.GUID, failedNote); err != nil {
		e.logger.Error("mark message failed", zap.String("message", msg.GUID), zap.Error(err))
		return
	}

	telemetry.AssignmentsTotal.WithLabelValues("failed").Inc()
	note := failedNote
	msg.AssignmentStatus = types.AssignmentStatusFailed
	msg.AssignmentNote = &note
	e.sink.Broadcast(notify.EventMessageUpdated, msg)
}

// decideAssignment resolves the destination for a claimed message,
// normalizing AI output and degrading to the heuristic on any provider
// failure. The provider is consulted outside any open transaction.
func (e *Engine) decideAssignment(ctx context.Context, msg types.Message, candidates []types.Candidate) types.AssignmentDecision {
	if len(candidates) == 0 {
		return types.AssignmentDecision{
			Action:     types.AssignmentActionCreate,
			Title:      decide.FallbackTitle(msg.Content),
			Confidence: 1,
			Reason:     firstThreadReason,
		}
	}

	if e.aiEnabled() {
		raw, err := e.ai.DecideAssignment(ctx, msg, candidates)
		if err == nil {
			return e.normalizeAssignment(raw, msg, candidates)
		}
		telemetry.ProviderFallbacksTotal.WithLabelValues("assignment").Inc()
		e.logger.Warn("assignment provider failed, using heuristic", zap.Error(err))
	}

	decision, _ := e.heuristic.DecideAssignment(ctx, msg, candidates)
	return decision
}

// normalizeAssignment accepts an assign only when the named thread is
// among the offered candidates and confidence clears the bar; everything
// else is coerced to a create.
func (e *Engine) normalizeAssignment(raw types.AssignmentDecision, msg types.Message, candidates []types.Candidate) types.AssignmentDecision {
	if raw.Action == types.AssignmentActionAssign &&
		raw.ThreadGUID != "" &&
		candidateOffered(candidates, raw.ThreadGUID) &&
		raw.Confidence >= e.cfg.AssignConfidenceMin {
		return raw
	}

	title := raw.Title
	if title == "" {
		title = decide.FallbackTitle(msg.Content)
	}
	confidence := raw.Confidence
	if raw.Action != types.AssignmentActionCreate || confidence == 0 {
		confidence = coercedConfidence
	}
	reason := raw.Reason
	if raw.Action != types.AssignmentActionCreate || reason == "" {
		reason = coercedCreateReason
	}

	return types.AssignmentDecision{
		Action:     types.AssignmentActionCreate,
		Title:      title,
		Confidence: confidence,
		Reason:     reason,
	}
}

// decideRevival searches archived threads for one the message continues.
// Returns the accepted archived thread GUID, or empty when none.
func (e *Engine) decideRevival(ctx context.Context, msg types.Message) string {
	archived, err := db.GetCandidates(e.db, []types.ThreadState{types.ThreadStateArchived}, e.cfg.MaxArchivedCandidates, e.cfg.ExcerptMessages)
	if err != nil {
		e.logger.Error("load archived candidates", zap.Error(err))
		return ""
	}
	if len(archived) == 0 {
		return ""
	}

	if e.aiEnabled() {
		raw, err := e.ai.DecideRevival(ctx, msg, archived)
		if err == nil {
			if raw.ArchivedThreadGUID != "" &&
				candidateOffered(archived, raw.ArchivedThreadGUID) &&
				raw.Confidence >= e.cfg.RevivalConfidenceMin {
				return raw.ArchivedThreadGUID
			}
			return ""
		}
		telemetry.ProviderFallbacksTotal.WithLabelValues("revival").Inc()
		e.logger.Warn("revival provider failed, using heuristic", zap.Error(err))
	}

	decision, _ := e.heuristic.DecideRevival(ctx, msg, archived)
	return decision.ArchivedThreadGUID
}

func candidateOffered(candidates []types.Candidate, guid string) bool {
	for _, cand := range candidates {
		if cand.Thread.GUID == guid {
			return true
		}
	}
	return false
}
