package sync

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/events"
)

// Loop names used for metrics and failure events.
const (
	loopList   = "list"
	loopThread = "thread"
)

func (e *Engine) beginListTick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listBusy {
		return false
	}
	e.listBusy = true
	return true
}

func (e *Engine) endListTick() {
	e.mu.Lock()
	e.listBusy = false
	e.mu.Unlock()
}

func (e *Engine) beginThreadTick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.threadBusy {
		return false
	}
	e.threadBusy = true
	return true
}

func (e *Engine) endThreadTick() {
	e.mu.Lock()
	e.threadBusy = false
	e.mu.Unlock()
}

// SyncConversations runs one list-level tick: fan out to every page with a
// token, merge fetched conversations by last-write-wins, then reload the
// full list from the remote store so local state matches durable state.
//
// A tick arriving while the previous one is still in flight is skipped. A
// failure on one page never aborts the others; it is logged and the tick
// completes.
func (e *Engine) SyncConversations(ctx context.Context, limit int) error {
	if !e.beginListTick() {
		return nil
	}
	defer e.endListTick()

	if limit <= 0 {
		limit = e.cfg.TurboLimit
	}
	e.setStatus(StatusSyncing, "")

	e.mu.Lock()
	pages := make([]domain.Page, 0, len(e.pages))
	for _, p := range e.pages {
		if p.HasToken() {
			pages = append(pages, p)
		}
	}
	e.mu.Unlock()

	type pageFetch struct {
		page  domain.Page
		convs []domain.Conversation
		err   error
	}
	fetches := make([]pageFetch, len(pages))

	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		go func(i int, page domain.Page) {
			defer wg.Done()
			convs, err := e.platform.FetchPageConversations(ctx, page.ID, page.AccessToken, limit)
			fetches[i] = pageFetch{page: page, convs: convs, err: err}
		}(i, page)
	}
	wg.Wait()

	for _, fetch := range fetches {
		if fetch.err != nil {
			e.addLog(domain.LogTypeError, "Page sync failed: "+fetch.page.Name, fetch.err.Error())
			if e.metrics != nil {
				e.metrics.RecordSyncFailure(loopList)
			}
			e.publish(ctx, events.Event{
				Type:   events.EventSyncFailed,
				PageID: fetch.page.ID,
				Payload: events.SyncFailedPayload{
					Loop:   loopList,
					Reason: fetch.err.Error(),
				},
			})
			continue
		}
		for _, remote := range fetch.convs {
			e.mergeConversation(ctx, remote)
		}
	}

	// Reload so local state is exactly what the durable store holds; the
	// extra read buys out any local/remote divergence.
	if all, err := e.store.ListConversations(ctx); err == nil {
		e.mu.Lock()
		e.conversations = indexByID(all, func(c domain.Conversation) string { return c.ID })
		e.mu.Unlock()
	} else {
		e.addLog(domain.LogTypeError, "Conversation reload failed", err.Error())
	}

	e.mu.Lock()
	e.lastSyncTime = time.Now().Format("15:04:05")
	e.mu.Unlock()

	e.setStatus(StatusConnected, "")
	if e.metrics != nil {
		e.metrics.RecordSyncTick(loopList)
	}
	return nil
}

// mergeConversation applies the last-write-wins rule: the remote record
// replaces the local one only when it is strictly newer or entirely new.
func (e *Engine) mergeConversation(ctx context.Context, remote domain.Conversation) {
	e.mu.Lock()
	local, exists := e.conversations[remote.ID]
	if exists && !remote.NewerThan(local) {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.store.UpsertConversation(ctx, remote); err != nil {
		e.addLog(domain.LogTypeError, "Conversation persist failed", err.Error())
		return
	}

	e.mu.Lock()
	e.conversations[remote.ID] = remote
	e.mu.Unlock()

	e.publish(ctx, events.Event{
		Type:           events.EventConversationSynced,
		PageID:         remote.PageID,
		ConversationID: remote.ID,
		Payload: events.ConversationSyncedPayload{
			CustomerName:  remote.CustomerName,
			LastTimestamp: remote.LastTimestamp,
			Created:       !exists,
		},
	})
}

// SyncTurbo runs one list tick with the small steady-state limit.
func (e *Engine) SyncTurbo(ctx context.Context) error {
	return e.SyncConversations(ctx, e.cfg.TurboLimit)
}

// SyncDeep runs a list tick with the deep-history limit and marks the
// session as history-synced.
func (e *Engine) SyncDeep(ctx context.Context) error {
	err := e.SyncConversations(ctx, e.cfg.DeepLimit)
	if err == nil {
		e.mu.Lock()
		e.historySynced = true
		e.mu.Unlock()
	}
	return err
}

// SyncThread runs one thread-level tick for the given conversation: fetch
// its messages and insert any id not yet known locally. Duplicate ids are
// silently dropped, keeping the thread append-only and the tick idempotent.
func (e *Engine) SyncThread(ctx context.Context, conversationID string) error {
	if !e.beginThreadTick() {
		return nil
	}
	defer e.endThreadTick()

	e.mu.Lock()
	conv, ok := e.conversations[conversationID]
	var page domain.Page
	if ok {
		page, ok = e.pages[conv.PageID]
	}
	e.mu.Unlock()
	if !ok || !page.HasToken() {
		return nil
	}

	msgs, err := e.platform.FetchThreadMessages(ctx, conversationID, page.ID, page.AccessToken)
	if err != nil {
		e.addLog(domain.LogTypeError, "Thread sync failed", err.Error())
		if e.metrics != nil {
			e.metrics.RecordSyncFailure(loopThread)
		}
		return err
	}

	for _, msg := range msgs {
		e.mu.Lock()
		_, exists := e.messages[msg.ID]
		e.mu.Unlock()
		if exists {
			continue
		}
		if err := e.store.UpsertMessage(ctx, msg); err != nil {
			e.addLog(domain.LogTypeError, "Message persist failed", err.Error())
			continue
		}
		e.mu.Lock()
		e.messages[msg.ID] = msg
		e.mu.Unlock()
		if msg.IsIncoming {
			e.publish(ctx, events.Event{
				Type:           events.EventMessageReceived,
				ConversationID: conversationID,
				Payload: events.MessagePayload{
					MessageID:   msg.ID,
					SenderName:  msg.SenderName,
					BodyPreview: preview(msg.Text),
					Incoming:    true,
				},
			})
		}
	}

	if e.metrics != nil {
		e.metrics.RecordSyncTick(loopThread)
	}
	return nil
}

func preview(text string) string {
	const max = 80
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// Poller drives one recurring sync function. The condition is re-evaluated
// every tick; while it is false the tick is a no-op, and Stop tears the
// timer down for good.
type Poller struct {
	name      string
	interval  time.Duration
	condition func() bool
	run       func(ctx context.Context)
	logger    *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewPoller builds a poller; it does not start ticking until Start.
func NewPoller(name string, interval time.Duration, condition func() bool, run func(ctx context.Context), logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		name:      name,
		interval:  interval,
		condition: condition,
		run:       run,
		logger:    logger.Named("poller." + name),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the timer loop. The context cancels the in-flight tick and
// the loop itself.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		defer close(p.doneCh)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.logger.Info("poller started", zap.Duration("interval", p.interval))

		for {
			select {
			case <-p.stopCh:
				p.logger.Info("poller stopped")
				return
			case <-ctx.Done():
				p.logger.Info("poller context cancelled")
				return
			case <-ticker.C:
				if !p.condition() {
					continue
				}
				p.run(ctx)
			}
		}
	}()
}

// Stop halts the loop; no tick fires after Stop returns and the loop has
// drained.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
}
