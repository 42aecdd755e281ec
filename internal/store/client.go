package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// Collection names used by the portal.
const (
	CollectionAgents        = "agents"
	CollectionPages         = "pages"
	CollectionConversations = "conversations"
	CollectionMessages      = "messages"
	CollectionLinks         = "links"
	CollectionMedia         = "media"
	CollectionProvisioning  = "provisioning_logs"
)

// Client issues CRUD actions against the relay endpoint. Every call carries
// a fixed deadline; a relay that does not answer in time surfaces as a
// TIMEOUT domain error.
type Client struct {
	relayURL string
	client   *http.Client
	timeout  time.Duration
}

// NewClient builds a store client for the given relay URL.
func NewClient(relayURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		relayURL: relayURL,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

type relayResponse struct {
	OK          bool                    `json:"ok"`
	Status      int                     `json:"status"`
	Documents   []json.RawMessage       `json:"documents"`
	UpsertedID  string                  `json:"upsertedId"`
	Collections []domain.CollectionStat `json:"collections"`
	Error       string                  `json:"error"`
	Details     string                  `json:"details"`
	Code        string                  `json:"code"`
}

func (c *Client) relayRequest(ctx context.Context, action, collection string, body map[string]any) (*relayResponse, error) {
	payload := map[string]any{"action": action, "collection": collection}
	for k, v := range body {
		payload[k] = v
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewTimeout("relay took too long to respond")
		}
		return nil, apperrors.NewRelayError(http.StatusBadGateway, "relay unreachable", err.Error())
	}
	defer resp.Body.Close()

	var result relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewRelayError(resp.StatusCode, "malformed relay response", err.Error())
	}

	if resp.StatusCode >= 400 {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, apperrors.NewUnauthorized(relayMessage(result, "relay rejected credentials"))
		case http.StatusNotFound:
			return nil, apperrors.NewSchemaMissing(relayMessage(result, "collection not found"))
		default:
			return nil, apperrors.NewRelayError(resp.StatusCode, relayMessage(result, fmt.Sprintf("relay error: %d", resp.StatusCode)), result.Details)
		}
	}
	return &result, nil
}

func relayMessage(r relayResponse, fallback string) string {
	if r.Error != "" {
		return r.Error
	}
	return fallback
}

// Ping probes relay and upstream liveness. It distinguishes a rejected key
// (ok=false with a 401/403 upstream status) from a healthy gateway.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	result, err := c.relayRequest(ctx, "ping", "system", nil)
	if err != nil {
		return false, err
	}
	if !result.OK && (result.Status == http.StatusUnauthorized || result.Status == http.StatusForbidden) {
		return false, apperrors.NewUnauthorized("upstream store rejected the API key")
	}
	return result.OK, nil
}

// List fetches all records of one collection as raw JSON documents.
func (c *Client) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	result, err := c.relayRequest(ctx, "find", collection, map[string]any{"filter": map[string]any{}})
	if err != nil {
		return nil, err
	}
	return result.Documents, nil
}

// Upsert persists one record keyed by its id and returns the stored id.
func (c *Client) Upsert(ctx context.Context, collection string, record any) (string, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(encoded, &asMap); err != nil {
		return "", apperrors.NewInternalError(err)
	}
	if id, _ := asMap["id"].(string); id == "" {
		return "", apperrors.NewValidationError("record requires an 'id' field", nil)
	}

	result, err := c.relayRequest(ctx, "updateOne", collection, map[string]any{
		"update": map[string]any{"$set": asMap},
	})
	if err != nil {
		return "", err
	}
	return result.UpsertedID, nil
}

// Delete removes one record by id. Absence of the id is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.relayRequest(ctx, "deleteOne", collection, map[string]any{
		"filter": map[string]any{"id": id},
	})
	return err
}

// Metadata reports existence and row counts for the known collections.
func (c *Client) Metadata(ctx context.Context) ([]domain.CollectionStat, error) {
	result, err := c.relayRequest(ctx, "listCollections", "", nil)
	if err != nil {
		return nil, err
	}
	return result.Collections, nil
}

// WriteHeartbeat upserts the provisioning heartbeat record, proving the
// store accepts writes.
func (c *Client) WriteHeartbeat(ctx context.Context) error {
	_, err := c.Upsert(ctx, CollectionProvisioning, map[string]any{
		"id":        "heartbeat",
		"status":    "SUCCESS",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return err
}
