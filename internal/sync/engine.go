package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/messengerflow/inbox-service/internal/config"
	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/events"
	"github.com/messengerflow/inbox-service/internal/observability"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// Status is the engine's connection state.
type Status string

const (
	StatusInitializing  Status = "initializing"
	StatusSyncing       Status = "syncing"
	StatusConnected     Status = "connected"
	StatusError         Status = "error"
	StatusUninitialized Status = "uninitialized"
)

const logRingCap = 50

// RemoteStore is the durable system of record behind the relay.
type RemoteStore interface {
	Ping(ctx context.Context) (bool, error)
	Metadata(ctx context.Context) ([]domain.CollectionStat, error)
	WriteHeartbeat(ctx context.Context) error

	ListAgents(ctx context.Context) ([]domain.Agent, error)
	ListPages(ctx context.Context) ([]domain.Page, error)
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
	ListLinks(ctx context.Context) ([]domain.ApprovedLink, error)
	ListMedia(ctx context.Context) ([]domain.ApprovedMedia, error)

	UpsertAgent(ctx context.Context, agent domain.Agent) error
	UpsertPage(ctx context.Context, page domain.Page) error
	UpsertConversation(ctx context.Context, conv domain.Conversation) error
	UpsertMessage(ctx context.Context, msg domain.Message) error
	UpsertLink(ctx context.Context, link domain.ApprovedLink) error
	UpsertMedia(ctx context.Context, media domain.ApprovedMedia) error

	DeleteAgent(ctx context.Context, id string) error
	DeletePage(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	DeleteLink(ctx context.Context, id string) error
	DeleteMedia(ctx context.Context, id string) error
}

// PlatformAPI is the external messaging platform seen by the engine.
type PlatformAPI interface {
	FetchPageConversations(ctx context.Context, pageID, accessToken string, limit int) ([]domain.Conversation, error)
	FetchThreadMessages(ctx context.Context, conversationID, pageID, accessToken string) ([]domain.Message, error)
	SendMessage(ctx context.Context, recipientID, text, accessToken, tag string) (string, error)
	VerifyPageToken(ctx context.Context, pageID, accessToken string) (bool, error)
}

// Dependencies bundles engine collaborators.
type Dependencies struct {
	Store      RemoteStore
	Platform   PlatformAPI
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	SeedAgents []domain.Agent
}

// Engine owns the in-memory mirror of the remote store and reconciles it on
// timed polls. All collection state is guarded by one mutex: the
// read-compare-write merge is not atomic, so every mutation goes through
// this single owner.
type Engine struct {
	store      RemoteStore
	platform   PlatformAPI
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.SyncConfig
	seedAgents []domain.Agent

	mu            sync.Mutex
	status        Status
	statusErr     string
	conversations map[string]domain.Conversation
	messages      map[string]domain.Message
	pages         map[string]domain.Page
	agents        map[string]domain.Agent
	links         map[string]domain.ApprovedLink
	media         map[string]domain.ApprovedMedia
	logs          []domain.SystemLog
	collections   []domain.CollectionStat
	lastSyncTime  string
	historySynced bool
	openThread    string

	listBusy   bool
	threadBusy bool
}

// NewEngine constructs the engine in the initializing state.
func NewEngine(cfg config.SyncConfig, deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &Engine{
		store:         deps.Store,
		platform:      deps.Platform,
		dispatcher:    dispatcher,
		logger:        logger.Named("sync"),
		metrics:       deps.Metrics,
		cfg:           cfg,
		seedAgents:    deps.SeedAgents,
		status:        StatusInitializing,
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string]domain.Message),
		pages:         make(map[string]domain.Page),
		agents:        make(map[string]domain.Agent),
		links:         make(map[string]domain.ApprovedLink),
		media:         make(map[string]domain.ApprovedMedia),
	}
}

// Load probes the remote store and rebuilds local state from it. It is the
// only path out of the error and uninitialized states.
func (e *Engine) Load(ctx context.Context) error {
	e.setStatus(StatusSyncing, "")
	e.addLog(domain.LogTypeInfo, "Probing remote store...", "")

	ok, err := e.store.Ping(ctx)
	if err != nil || !ok {
		if apperrors.HasCode(err, "UNAUTHORIZED") || !ok {
			e.addLog(domain.LogTypeError, "Auth failed", "Gateway rejected the API key; check the service credentials")
			e.setStatus(StatusError, "store key rejected")
			return apperrors.NewUnauthorized("store key rejected")
		}
		e.addLog(domain.LogTypeError, "Store unreachable", err.Error())
		e.setStatus(StatusError, err.Error())
		return err
	}
	e.addLog(domain.LogTypeSuccess, "Handshake verified, checking schema...", "")

	type loadResult struct {
		name string
		err  error
	}
	var (
		agents []domain.Agent
		pages  []domain.Page
		convs  []domain.Conversation
		msgs   []domain.Message
		links  []domain.ApprovedLink
		media  []domain.ApprovedMedia
	)
	loaders := []struct {
		name string
		run  func() error
	}{
		{"agents", func() (err error) { agents, err = e.store.ListAgents(ctx); return }},
		{"pages", func() (err error) { pages, err = e.store.ListPages(ctx); return }},
		{"conversations", func() (err error) { convs, err = e.store.ListConversations(ctx); return }},
		{"messages", func() (err error) { msgs, err = e.store.ListMessages(ctx); return }},
		{"links", func() (err error) { links, err = e.store.ListLinks(ctx); return }},
		{"media", func() (err error) { media, err = e.store.ListMedia(ctx); return }},
	}

	results := make(chan loadResult, len(loaders))
	var wg sync.WaitGroup
	for _, loader := range loaders {
		wg.Add(1)
		go func(name string, run func() error) {
			defer wg.Done()
			results <- loadResult{name: name, err: run()}
		}(loader.name, loader.run)
	}
	wg.Wait()
	close(results)

	for result := range results {
		if result.err == nil {
			continue
		}
		if apperrors.HasCode(result.err, "SCHEMA_MISSING") {
			e.addLog(domain.LogTypeError, "Tables not found", "Key is valid but the schema is missing; run the provisioning script")
			e.setStatus(StatusUninitialized, "schema missing")
			return result.err
		}
		e.addLog(domain.LogTypeError, "Initial load failed", result.err.Error())
		e.setStatus(StatusError, result.err.Error())
		return result.err
	}

	e.mu.Lock()
	e.conversations = indexByID(convs, func(c domain.Conversation) string { return c.ID })
	e.messages = indexByID(msgs, func(m domain.Message) string { return m.ID })
	e.pages = indexByID(pages, func(p domain.Page) string { return p.ID })
	e.links = indexByID(links, func(l domain.ApprovedLink) string { return l.ID })
	e.media = indexByID(media, func(m domain.ApprovedMedia) string { return m.ID })
	if len(agents) > 0 {
		e.agents = indexByID(agents, func(a domain.Agent) string { return a.ID })
	} else {
		e.agents = indexByID(e.seedAgents, func(a domain.Agent) string { return a.ID })
	}
	e.mu.Unlock()

	if stats, err := e.store.Metadata(ctx); err == nil {
		e.mu.Lock()
		e.collections = stats
		e.mu.Unlock()
	} else {
		e.addLog(domain.LogTypeError, "Metadata refresh failed", err.Error())
	}

	e.setStatus(StatusConnected, "")
	e.addLog(domain.LogTypeSuccess, "Portal synchronized", "")
	return nil
}

func indexByID[T any](items []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, item := range items {
		out[key(item)] = item
	}
	return out
}

func (e *Engine) setStatus(status Status, detail string) {
	e.mu.Lock()
	e.status = status
	e.statusErr = detail
	e.mu.Unlock()
}

// Status returns the connection state and its error detail, if any.
func (e *Engine) Status() (Status, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.statusErr
}

// addLog prepends a diagnostic entry, trimming the ring to its cap.
func (e *Engine) addLog(logType domain.LogType, message, details string) {
	entry := domain.SystemLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now().Format("15:04:05"),
		Type:      logType,
		Message:   message,
		Details:   details,
	}
	e.mu.Lock()
	e.logs = append([]domain.SystemLog{entry}, e.logs...)
	if len(e.logs) > logRingCap {
		e.logs = e.logs[:logRingCap]
	}
	e.mu.Unlock()

	switch logType {
	case domain.LogTypeError:
		e.logger.Warn(message, zap.String("details", details))
	default:
		e.logger.Debug(message, zap.String("details", details))
	}
}

// Logs returns the diagnostic ring, newest first.
func (e *Engine) Logs() []domain.SystemLog {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.SystemLog, len(e.logs))
	copy(out, e.logs)
	return out
}

// Collections returns the cached collection stats.
func (e *Engine) Collections() []domain.CollectionStat {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CollectionStat, len(e.collections))
	copy(out, e.collections)
	return out
}

// LastSyncTime returns the wall-clock label of the last completed list tick.
func (e *Engine) LastSyncTime() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSyncTime
}

// HistorySynced reports whether a deep sync has completed this session.
func (e *Engine) HistorySynced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.historySynced
}

// HasPages reports whether at least one page carries an access token, one of
// the list poller's activation conditions.
func (e *Engine) HasPages() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pages {
		if p.HasToken() {
			return true
		}
	}
	return false
}

// OpenThread marks a conversation as open in the view, activating the
// thread-level poller for it.
func (e *Engine) OpenThread(conversationID string) {
	e.mu.Lock()
	e.openThread = conversationID
	e.mu.Unlock()
}

// CloseThread clears the open conversation; the thread poller goes idle at
// the next tick boundary.
func (e *Engine) CloseThread() {
	e.mu.Lock()
	e.openThread = ""
	e.mu.Unlock()
}

// OpenThreadID returns the conversation currently open in the view.
func (e *Engine) OpenThreadID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openThread
}

// Conversations returns all conversations sorted by last activity, newest
// first.
func (e *Engine) Conversations() []domain.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Conversation, 0, len(e.conversations))
	for _, c := range e.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity().After(out[j].LastActivity())
	})
	return out
}

// Conversation returns one conversation by id.
func (e *Engine) Conversation(id string) (domain.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	conv, ok := e.conversations[id]
	return conv, ok
}

// ConversationByParticipants resolves the conversation for a page/customer
// pair. Webhook deliveries identify the thread this way rather than by id.
func (e *Engine) ConversationByParticipants(pageID, customerID string) (domain.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, conv := range e.conversations {
		if conv.PageID == pageID && conv.CustomerID == customerID {
			return conv, true
		}
	}
	return domain.Conversation{}, false
}

// MessagesFor returns a conversation's thread sorted oldest first.
func (e *Engine) MessagesFor(conversationID string) []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Message, 0)
	for _, m := range e.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// MessageCount returns the total number of locally known messages.
func (e *Engine) MessageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.messages)
}

// Pages returns all configured pages.
func (e *Engine) Pages() []domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Page, 0, len(e.pages))
	for _, p := range e.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Page returns one page by id.
func (e *Engine) Page(id string) (domain.Page, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page, ok := e.pages[id]
	return page, ok
}

// Agents returns the agent roster.
func (e *Engine) Agents() []domain.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Agent, 0, len(e.agents))
	for _, a := range e.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AgentByEmail finds an agent by exact email match.
func (e *Engine) AgentByEmail(email string) (domain.Agent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.agents {
		if a.Email == email {
			return a, true
		}
	}
	return domain.Agent{}, false
}

// Links returns the approved-link catalog.
func (e *Engine) Links() []domain.ApprovedLink {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ApprovedLink, 0, len(e.links))
	for _, l := range e.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// Media returns the approved-media catalog.
func (e *Engine) Media() []domain.ApprovedMedia {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ApprovedMedia, 0, len(e.media))
	for _, m := range e.media {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// DashboardStats summarizes conversation counts by status.
type DashboardStats struct {
	OpenChats     int `json:"openChats"`
	PendingChats  int `json:"pendingChats"`
	ResolvedChats int `json:"resolvedChats"`
	TotalMessages int `json:"totalMessages"`
}

// Stats computes dashboard counters from local state.
func (e *Engine) Stats() DashboardStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := DashboardStats{TotalMessages: len(e.messages)}
	for _, c := range e.conversations {
		switch c.Status {
		case domain.ConversationStatusOpen:
			stats.OpenChats++
		case domain.ConversationStatusPending:
			stats.PendingChats++
		case domain.ConversationStatusResolved:
			stats.ResolvedChats++
		}
	}
	return stats
}

// RefreshMetadata re-probes collection stats.
func (e *Engine) RefreshMetadata(ctx context.Context) error {
	stats, err := e.store.Metadata(ctx)
	if err != nil {
		e.addLog(domain.LogTypeError, "Metadata refresh failed", err.Error())
		return err
	}
	e.mu.Lock()
	e.collections = stats
	e.mu.Unlock()
	return nil
}

// ProvisionWriteTest proves the store accepts writes via the heartbeat
// record.
func (e *Engine) ProvisionWriteTest(ctx context.Context) error {
	if err := e.store.WriteHeartbeat(ctx); err != nil {
		e.addLog(domain.LogTypeError, "Write test failed", err.Error())
		return err
	}
	e.addLog(domain.LogTypeSuccess, "Write test succeeded", "")
	return nil
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = e.dispatcher.Publish(ctx, event)
}
