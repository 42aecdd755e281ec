package relay

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// Request is the wire shape of a relay call.
type Request struct {
	Action     string         `json:"action"`
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter"`
	Update     *Update        `json:"update"`
}

// Update carries the merge payload for updateOne.
type Update struct {
	Set map[string]any `json:"$set"`
}

// Handler terminates POST /api/db and dispatches actions to the backend.
type Handler struct {
	backend Backend
	logger  *zap.Logger
}

// NewHandler constructs the relay handler.
func NewHandler(backend Backend, logger *zap.Logger) *Handler {
	return &Handler{backend: backend, logger: logger.Named("relay")}
}

// Handle processes one relay action.
func (h *Handler) Handle(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctx := c.UserContext()

	switch req.Action {
	case "ping":
		result, err := h.backend.Ping(ctx)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(result)

	case "find":
		if !knownCollection(req.Collection) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown collection", "code": "TABLE_QUERY_FAILED",
			})
		}
		docs, err := h.backend.Find(ctx, req.Collection, req.Filter)
		if err != nil {
			return h.fail(c, err)
		}
		if docs == nil {
			docs = []map[string]any{}
		}
		return c.JSON(fiber.Map{"documents": docs})

	case "updateOne":
		if !knownCollection(req.Collection) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown collection", "code": "TABLE_QUERY_FAILED",
			})
		}
		if req.Update == nil || req.Update.Set == nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Upsert requires an update payload"})
		}
		id, ok := req.Update.Set["id"].(string)
		if !ok || id == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Upsert requires an 'id' field"})
		}
		upsertedID, err := h.backend.Upsert(ctx, req.Collection, req.Update.Set)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "upsertedId": upsertedID})

	case "deleteOne":
		if !knownCollection(req.Collection) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown collection", "code": "TABLE_QUERY_FAILED",
			})
		}
		id, _ := req.Filter["id"].(string)
		if id == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Delete requires an ID"})
		}
		if err := h.backend.Delete(ctx, req.Collection, id); err != nil {
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})

	case "listCollections":
		stats, err := h.backend.ListCollections(ctx)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "collections": stats})

	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid operation"})
	}
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		domainErr = apperrors.ToDomainError(err)
	}
	h.logger.Warn("relay action failed",
		zap.String("code", domainErr.Code),
		zap.Error(err),
	)
	body := fiber.Map{"error": domainErr.Message, "code": domainErr.Code}
	if details, ok := domainErr.Details["details"]; ok {
		body["details"] = details
	}
	return c.Status(domainErr.HTTPStatus).JSON(body)
}
