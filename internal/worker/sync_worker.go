package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/messengerflow/inbox-service/internal/config"
	syncengine "github.com/messengerflow/inbox-service/internal/sync"
)

// SyncWorker owns the two background pollers. The list poller mirrors recent
// conversations across all connected pages; the thread poller refreshes the
// one thread currently on screen at a faster cadence.
type SyncWorker struct {
	list   *syncengine.Poller
	thread *syncengine.Poller
}

// NewSyncWorker builds the pollers without starting them. hasSessions gates
// the list loop so an idle deployment with nobody logged in stops polling
// the platform.
func NewSyncWorker(cfg config.SyncConfig, engine *syncengine.Engine, hasSessions func() bool, logger *zap.Logger) *SyncWorker {
	listCondition := func() bool {
		status, _ := engine.Status()
		return status == syncengine.StatusConnected && hasSessions() && engine.HasPages()
	}
	threadCondition := func() bool {
		return engine.OpenThreadID() != ""
	}

	list := syncengine.NewPoller("list", cfg.ListInterval(), listCondition, func(ctx context.Context) {
		if err := engine.SyncTurbo(ctx); err != nil {
			logger.Warn("list poll failed", zap.Error(err))
		}
	}, logger)

	thread := syncengine.NewPoller("thread", cfg.ThreadInterval(), threadCondition, func(ctx context.Context) {
		id := engine.OpenThreadID()
		if id == "" {
			return
		}
		if err := engine.SyncThread(ctx, id); err != nil {
			logger.Warn("thread poll failed", zap.Error(err))
		}
	}, logger)

	return &SyncWorker{list: list, thread: thread}
}

// Start launches both pollers.
func (w *SyncWorker) Start(ctx context.Context) {
	w.list.Start(ctx)
	w.thread.Start(ctx)
}

// Stop halts both pollers and waits for in-flight ticks to finish.
func (w *SyncWorker) Stop() {
	w.list.Stop()
	w.thread.Stop()
}
