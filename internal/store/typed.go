package store

import (
	"context"
	"encoding/json"

	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

func decodeAll[T any](docs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal(doc, &item); err != nil {
			return nil, apperrors.NewRelayError(502, "malformed record in relay response", err.Error())
		}
		out = append(out, item)
	}
	return out, nil
}

// ListAgents fetches the agent roster.
func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	docs, err := c.List(ctx, CollectionAgents)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Agent](docs)
}

// ListPages fetches connected pages.
func (c *Client) ListPages(ctx context.Context) ([]domain.Page, error) {
	docs, err := c.List(ctx, CollectionPages)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Page](docs)
}

// ListConversations fetches all conversations.
func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	docs, err := c.List(ctx, CollectionConversations)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Conversation](docs)
}

// ListMessages fetches all messages.
func (c *Client) ListMessages(ctx context.Context) ([]domain.Message, error) {
	docs, err := c.List(ctx, CollectionMessages)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Message](docs)
}

// ListLinks fetches the approved-link catalog.
func (c *Client) ListLinks(ctx context.Context) ([]domain.ApprovedLink, error) {
	docs, err := c.List(ctx, CollectionLinks)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ApprovedLink](docs)
}

// ListMedia fetches the approved-media catalog.
func (c *Client) ListMedia(ctx context.Context) ([]domain.ApprovedMedia, error) {
	docs, err := c.List(ctx, CollectionMedia)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ApprovedMedia](docs)
}

// UpsertAgent persists one agent record.
func (c *Client) UpsertAgent(ctx context.Context, agent domain.Agent) error {
	_, err := c.Upsert(ctx, CollectionAgents, agent)
	return err
}

// UpsertPage persists one page record.
func (c *Client) UpsertPage(ctx context.Context, page domain.Page) error {
	_, err := c.Upsert(ctx, CollectionPages, page)
	return err
}

// UpsertConversation persists one conversation record.
func (c *Client) UpsertConversation(ctx context.Context, conv domain.Conversation) error {
	_, err := c.Upsert(ctx, CollectionConversations, conv)
	return err
}

// UpsertMessage persists one message record.
func (c *Client) UpsertMessage(ctx context.Context, msg domain.Message) error {
	_, err := c.Upsert(ctx, CollectionMessages, msg)
	return err
}

// UpsertLink persists one approved link.
func (c *Client) UpsertLink(ctx context.Context, link domain.ApprovedLink) error {
	_, err := c.Upsert(ctx, CollectionLinks, link)
	return err
}

// UpsertMedia persists one approved media asset.
func (c *Client) UpsertMedia(ctx context.Context, media domain.ApprovedMedia) error {
	_, err := c.Upsert(ctx, CollectionMedia, media)
	return err
}

// DeleteAgent removes one agent record.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.Delete(ctx, CollectionAgents, id)
}

// DeletePage removes one page record.
func (c *Client) DeletePage(ctx context.Context, id string) error {
	return c.Delete(ctx, CollectionPages, id)
}

// DeleteConversation removes one conversation record.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.Delete(ctx, CollectionConversations, id)
}

// DeleteMessage removes one message record.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.Delete(ctx, CollectionMessages, id)
}

// DeleteLink removes one approved link.
func (c *Client) DeleteLink(ctx context.Context, id string) error {
	return c.Delete(ctx, CollectionLinks, id)
}

// DeleteMedia removes one approved media asset.
func (c *Client) DeleteMedia(ctx context.Context, id string) error {
	return c.Delete(ctx, CollectionMedia, id)
}
