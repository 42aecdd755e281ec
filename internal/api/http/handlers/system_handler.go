package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	syncengine "github.com/messengerflow/inbox-service/internal/sync"
)

// SystemHandler exposes the settings screen's diagnostics and the manual
// sync controls.
type SystemHandler struct {
	engine *syncengine.Engine
}

// NewSystemHandler constructs handler.
func NewSystemHandler(engine *syncengine.Engine) *SystemHandler {
	return &SystemHandler{engine: engine}
}

// Status GET /system/status.
func (h *SystemHandler) Status(c *fiber.Ctx) error {
	status, detail := h.engine.Status()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":        status,
		"error":         detail,
		"lastSyncTime":  h.engine.LastSyncTime(),
		"historySynced": h.engine.HistorySynced(),
		"openThreadId":  h.engine.OpenThreadID(),
	}})
}

// Logs GET /system/logs returns the diagnostic ring, newest first.
func (h *SystemHandler) Logs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Logs()})
}

// Collections GET /system/collections reports remote schema visibility.
func (h *SystemHandler) Collections(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Collections()})
}

// Stats GET /system/stats.
func (h *SystemHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.Stats()})
}

// Reconnect POST /system/reconnect re-probes the remote store and rebuilds
// local state, the recovery path out of the error state.
func (h *SystemHandler) Reconnect(c *fiber.Ctx) error {
	if err := h.engine.Load(c.UserContext()); err != nil {
		return err
	}
	return h.Status(c)
}

// SyncNow POST /system/sync runs one list tick immediately. With ?deep=true
// the tick uses the history limit and marks the session history-synced.
func (h *SystemHandler) SyncNow(c *fiber.Ctx) error {
	var err error
	if c.QueryBool("deep") {
		err = h.engine.SyncDeep(c.UserContext())
	} else {
		err = h.engine.SyncTurbo(c.UserContext())
	}
	if err != nil {
		return err
	}
	return h.Status(c)
}

// RefreshMetadata POST /system/collections/refresh re-counts remote rows.
func (h *SystemHandler) RefreshMetadata(c *fiber.Ctx) error {
	if err := h.engine.RefreshMetadata(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.engine.Collections()})
}

// Provision POST /system/provision writes a heartbeat row to prove the
// remote store accepts writes.
func (h *SystemHandler) Provision(c *fiber.Ctx) error {
	if err := h.engine.ProvisionWriteTest(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ok": true}})
}

// ClearChats DELETE /system/chats drops all conversations and messages,
// remotely and locally.
func (h *SystemHandler) ClearChats(c *fiber.Ctx) error {
	if err := h.engine.ClearLocalChats(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
