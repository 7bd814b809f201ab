package engine

import (
	"context"
	"time"

	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/notify"
	"github.com/loomchat/loom/internal/telemetry"
	"go.uber.org/zap"
)

// LifecycleTick ages idle threads: active past the cooling threshold
// become cooling, cooling past the archival threshold become archived.
// Purely time-driven and idempotent.
func (e *Engine) LifecycleTick(ctx context.Context) {
	activeIdle := time.Duration(e.cfg.ActiveToCoolingMinutes) * time.Minute
	coolingIdle := time.Duration(e.cfg.CoolingToArchivedHours) * time.Hour

	result, err := db.RunLifecyclePass(e.db, e.now(), activeIdle, coolingIdle)
	if err != nil {
		e.logger.Error("lifecycle pass", zap.Error(err))
		return
	}

	for _, guid := range result.Cooled {
		telemetry.LifecycleTransitionsTotal.WithLabelValues("cooling").Inc()
		e.broadcastThread(guid)
	}
	for _, guid := range result.Archived {
		telemetry.LifecycleTransitionsTotal.WithLabelValues("archived").Inc()
		e.broadcastThread(guid)
	}

	if len(result.Cooled) > 0 || len(result.Archived) > 0 {
		e.logger.Info("lifecycle pass",
			zap.Int("cooled", len(result.Cooled)),
			zap.Int("archived", len(result.Archived)))
	}
}

func (e *Engine) broadcastThread(guid string) {
	thread, err := db.GetThread(e.db, guid)
	if err != nil || thread == nil {
		return
	}
	e.sink.Broadcast(notify.EventThreadUpdated, *thread)
}
