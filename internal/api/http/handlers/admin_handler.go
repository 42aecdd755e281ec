package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/messengerflow/inbox-service/internal/api/dto"
	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/service"
	syncengine "github.com/messengerflow/inbox-service/internal/sync"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// AdminHandler manages the agent roster, connected pages and the approved
// content library. All routes require the super-admin role.
type AdminHandler struct {
	engine *syncengine.Engine
	auth   *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(engine *syncengine.Engine, authService *service.AuthService) *AdminHandler {
	return &AdminHandler{engine: engine, auth: authService}
}

// ListAgents GET /admin/agents.
func (h *AdminHandler) ListAgents(c *fiber.Ctx) error {
	agents := h.engine.Agents()
	items := make([]dto.AgentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, dto.NewAgentResponse(agent))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAgent POST /admin/agents.
func (h *AdminHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	if _, exists := h.engine.AgentByEmail(req.Email); exists {
		return apperrors.NewConflict("email already registered", map[string]any{"email": req.Email})
	}

	role := domain.AgentRoleAgent
	if req.Role == string(domain.AgentRoleSuperAdmin) {
		role = domain.AgentRoleSuperAdmin
	}
	hashed, err := h.auth.HashPassword(req.Password)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	agent := domain.Agent{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Email:           req.Email,
		Password:        hashed,
		Role:            role,
		Avatar:          req.Avatar,
		Status:          "active",
		AssignedPageIDs: req.AssignedPageIDs,
	}
	result, err := h.engine.AddAgent(c.UserContext(), agent)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewAgentResponse(agent),
		"meta": dto.NewMutationMeta(result),
	})
}

// UpdateAgent PATCH /admin/agents/:id.
func (h *AdminHandler) UpdateAgent(c *fiber.Ctx) error {
	id := c.Params("id")
	agent, ok := h.agentByID(id)
	if !ok {
		return apperrors.NewNotFound("agent", map[string]any{"id": id})
	}
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := h.auth.HashPassword(*req.Password)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		agent.Password = hashed
	}
	if req.Role != nil {
		agent.Role = domain.AgentRole(*req.Role)
	}
	if req.Avatar != nil {
		agent.Avatar = *req.Avatar
	}
	if req.Status != nil {
		agent.Status = *req.Status
	}
	if req.AssignedPageIDs != nil {
		agent.AssignedPageIDs = *req.AssignedPageIDs
	}

	result, err := h.engine.UpdateAgent(c.UserContext(), agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewAgentResponse(agent),
		"meta": dto.NewMutationMeta(result),
	})
}

// DeleteAgent DELETE /admin/agents/:id.
func (h *AdminHandler) DeleteAgent(c *fiber.Ctx) error {
	if err := h.engine.RemoveAgent(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListPages GET /admin/pages.
func (h *AdminHandler) ListPages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Pages()})
}

// UpsertPage PUT /admin/pages connects a page or replaces its settings. The
// page id is the platform's own id, never generated here.
func (h *AdminHandler) UpsertPage(c *fiber.Ctx) error {
	var req dto.UpsertPageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ID == "" || req.Name == "" {
		return apperrors.NewValidationError("id and name required", nil)
	}

	page := domain.Page{
		ID:               req.ID,
		Name:             req.Name,
		Category:         req.Category,
		AccessToken:      req.AccessToken,
		AssignedAgentIDs: req.AssignedAgentIDs,
	}
	existing, existed := h.engine.Page(req.ID)
	if existed {
		// Settings edits merge over the stored record: connection state only
		// changes through verify, and a blank token keeps the current one.
		page.IsConnected = existing.IsConnected
		if page.AccessToken == "" {
			page.AccessToken = existing.AccessToken
		}
	}
	var result syncengine.MutationResult
	var err error
	if existed {
		result, err = h.engine.UpdatePage(c.UserContext(), page)
	} else {
		result, err = h.engine.AddPage(c.UserContext(), page)
	}
	if err != nil {
		return err
	}
	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"data": page,
		"meta": dto.NewMutationMeta(result),
	})
}

// DeletePage DELETE /admin/pages/:id.
func (h *AdminHandler) DeletePage(c *fiber.Ctx) error {
	if err := h.engine.RemovePage(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// VerifyPage POST /admin/pages/:id/verify checks the stored token against
// the platform and records the connection state.
func (h *AdminHandler) VerifyPage(c *fiber.Ctx) error {
	ok, err := h.engine.VerifyPageConnection(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"connected": ok}})
}

// ListLinks GET /admin/links.
func (h *AdminHandler) ListLinks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Links()})
}

// CreateLink POST /admin/links.
func (h *AdminHandler) CreateLink(c *fiber.Ctx) error {
	var req dto.CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.URL == "" {
		return apperrors.NewValidationError("title and url required", nil)
	}
	link := domain.ApprovedLink{
		ID:       uuid.NewString(),
		Title:    req.Title,
		URL:      req.URL,
		Category: req.Category,
	}
	result, err := h.engine.AddLink(c.UserContext(), link)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": link,
		"meta": dto.NewMutationMeta(result),
	})
}

// DeleteLink DELETE /admin/links/:id.
func (h *AdminHandler) DeleteLink(c *fiber.Ctx) error {
	if err := h.engine.RemoveLink(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMedia GET /admin/media.
func (h *AdminHandler) ListMedia(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Media()})
}

// CreateMedia POST /admin/media.
func (h *AdminHandler) CreateMedia(c *fiber.Ctx) error {
	var req dto.CreateMediaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.URL == "" {
		return apperrors.NewValidationError("title and url required", nil)
	}
	media := domain.ApprovedMedia{
		ID:      uuid.NewString(),
		Title:   req.Title,
		URL:     req.URL,
		Type:    req.Type,
		IsLocal: req.IsLocal,
	}
	result, err := h.engine.AddMedia(c.UserContext(), media)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": media,
		"meta": dto.NewMutationMeta(result),
	})
}

// DeleteMedia DELETE /admin/media/:id.
func (h *AdminHandler) DeleteMedia(c *fiber.Ctx) error {
	if err := h.engine.RemoveMedia(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *AdminHandler) agentByID(id string) (domain.Agent, bool) {
	for _, agent := range h.engine.Agents() {
		if agent.ID == id {
			return agent, true
		}
	}
	return domain.Agent{}, false
}
