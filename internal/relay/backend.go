package relay

import (
	"context"

	"github.com/messengerflow/inbox-service/internal/domain"
)

// KnownCollections lists every table the relay will touch. Requests naming
// anything else are rejected before reaching a backend.
var KnownCollections = []string{
	"agents", "pages", "conversations", "messages", "links", "media", "provisioning_logs",
}

// PingResult reports upstream reachability and auth state.
type PingResult struct {
	OK       bool   `json:"ok"`
	Status   int    `json:"status"`
	Provider string `json:"provider"`
}

// Backend is one storage target behind the relay. The hosted REST gateway
// and the local Postgres pool both satisfy it.
type Backend interface {
	Ping(ctx context.Context) (PingResult, error)
	Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)
	Upsert(ctx context.Context, collection string, record map[string]any) (string, error)
	Delete(ctx context.Context, collection, id string) error
	ListCollections(ctx context.Context) ([]domain.CollectionStat, error)
}

func knownCollection(name string) bool {
	for _, c := range KnownCollections {
		if c == name {
			return true
		}
	}
	return false
}
