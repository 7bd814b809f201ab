// Package engine runs the three reconciliation loops that organize a
// message stream into threads: assignment, lifecycle decay, and
// duplicate merging. The loops never call each other; all coordination
// happens through conditional state in the store.
package engine

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/decide"
	"github.com/loomchat/loom/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine owns the three loops against one shared store.
type Engine struct {
	db        *sql.DB
	cfg       config.Config
	ai        decide.Provider // optional AI backend; nil means heuristic-only
	heuristic *decide.Heuristic
	sink      notify.Sink
	logger    *zap.Logger
	now       func() time.Time

	assignBusy    atomic.Bool
	lifecycleBusy atomic.Bool
	mergeBusy     atomic.Bool
}

// New creates an engine. ai may be nil to run heuristic-only.
func New(database *sql.DB, cfg config.Config, ai decide.Provider, sink notify.Sink, logger *zap.Logger) *Engine {
	if sink == nil {
		sink = notify.NewFanout()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:        database,
		cfg:       cfg,
		ai:        ai,
		heuristic: decide.NewHeuristic(cfg.AssignSimilarityMin, cfg.RevivalSimilarityMin, cfg.MergeSimilarityMin),
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// aiEnabled reports whether the optional provider should be consulted.
func (e *Engine) aiEnabled() bool {
	return e.ai != nil && e.ai.Enabled()
}

// Run starts the three loops and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.runLoop(ctx, "assignment", time.Duration(e.cfg.AssignmentPollMS)*time.Millisecond, &e.assignBusy, e.AssignmentTick)
		return nil
	})
	g.Go(func() error {
		e.runLoop(ctx, "lifecycle", time.Duration(e.cfg.LifecyclePollMS)*time.Millisecond, &e.lifecycleBusy, e.LifecycleTick)
		return nil
	})
	g.Go(func() error {
		e.runLoop(ctx, "merge", time.Duration(e.cfg.MergePollMS)*time.Millisecond, &e.mergeBusy, e.MergeTick)
		return nil
	})

	return g.Wait()
}

// runLoop fires fn on every tick, guarded by a non-reentrant busy flag:
// a slow tick causes later firings to be skipped, never queued.
func (e *Engine) runLoop(ctx context.Context, name string, interval time.Duration, busy *atomic.Bool, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				e.logger.Debug("tick skipped, previous still running", zap.String("loop", name))
				continue
			}
			fn(ctx)
			busy.Store(false)
		}
	}
}
