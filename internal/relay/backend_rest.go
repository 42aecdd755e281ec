package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/messengerflow/inbox-service/internal/config"
	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// RESTBackend forwards relay actions to a PostgREST-style hosted gateway.
// This is the legacy deployment target: every action becomes one REST call
// against <upstream>/rest/v1/<table>.
type RESTBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRESTBackend builds the hosted backend.
func NewRESTBackend(cfg config.RelayConfig) *RESTBackend {
	return &RESTBackend{
		baseURL: strings.TrimRight(cfg.UpstreamURL, "/"),
		apiKey:  cfg.UpstreamKey,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

func (b *RESTBackend) headers(req *http.Request) {
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// Ping probes the REST gateway root to distinguish auth failures from
// reachability problems.
func (b *RESTBackend) Ping(ctx context.Context) (PingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/rest/v1/", nil)
	if err != nil {
		return PingResult{}, apperrors.NewInternalError(err)
	}
	req.Header.Set("apikey", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return PingResult{}, apperrors.NewTimeout("upstream store unreachable")
	}
	defer resp.Body.Close()

	return PingResult{
		OK:       resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent,
		Status:   resp.StatusCode,
		Provider: "hosted/postgrest",
	}, nil
}

// Find lists rows, optionally narrowed to one id.
func (b *RESTBackend) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/rest/v1/%s?select=*", b.baseURL, collection)
	if id, ok := filter["id"].(string); ok && id != "" {
		url += "&id=eq." + id
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	b.headers(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTimeout("upstream store unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, upstreamError(collection, resp)
	}

	var docs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, apperrors.NewRelayError(http.StatusBadGateway, "malformed upstream response", err.Error())
	}
	return docs, nil
}

// Upsert inserts or merges one record keyed by id.
func (b *RESTBackend) Upsert(ctx context.Context, collection string, record map[string]any) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", b.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	b.headers(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", apperrors.NewTimeout("upstream store unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", upstreamError(collection, resp)
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil || len(rows) == 0 {
		// Upstream accepted the write but returned no representation; fall
		// back to the id we sent.
		id, _ := record["id"].(string)
		return id, nil
	}
	id, _ := rows[0]["id"].(string)
	return id, nil
}

// Delete removes one row by id. A missing id is not an error.
func (b *RESTBackend) Delete(ctx context.Context, collection, id string) error {
	url := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", b.baseURL, collection, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	b.headers(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := b.client.Do(req)
	if err != nil {
		return apperrors.NewTimeout("upstream store unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return upstreamError(collection, resp)
	}
	return nil
}

// ListCollections probes each known table for existence and row count.
func (b *RESTBackend) ListCollections(ctx context.Context) ([]domain.CollectionStat, error) {
	stats := make([]domain.CollectionStat, 0, len(KnownCollections))
	for _, table := range KnownCollections {
		stat := domain.CollectionStat{Name: table}

		url := fmt.Sprintf("%s/rest/v1/%s?select=count", b.baseURL, table)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			stats = append(stats, stat)
			continue
		}
		b.headers(req)
		req.Header.Set("Prefer", "count=exact")

		resp, err := b.client.Do(req)
		if err != nil {
			stats = append(stats, stat)
			continue
		}
		stat.Exists = resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent
		if stat.Exists {
			stat.Count = parseContentRangeTotal(resp.Header.Get("Content-Range"))
		}
		resp.Body.Close()
		stats = append(stats, stat)
	}
	return stats, nil
}

// parseContentRangeTotal extracts the total from a "0-24/57" range header.
func parseContentRangeTotal(header string) int {
	parts := strings.Split(header, "/")
	if len(parts) != 2 {
		return 0
	}
	total, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return total
}

func upstreamError(collection string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	details := string(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewUnauthorized("upstream store rejected the API key")
	case http.StatusNotFound:
		return apperrors.NewSchemaMissing(fmt.Sprintf("table [%s] not found", collection))
	default:
		return apperrors.NewRelayError(resp.StatusCode, fmt.Sprintf("table [%s] error", collection), details)
	}
}
