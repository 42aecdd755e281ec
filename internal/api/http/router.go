package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/messengerflow/inbox-service/internal/api/http/handlers"
	"github.com/messengerflow/inbox-service/internal/auth"
	"github.com/messengerflow/inbox-service/internal/relay"
	"github.com/messengerflow/inbox-service/internal/webhook"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Inbox          *handlers.InboxHandler
	Admin          *handlers.AdminHandler
	System         *handlers.SystemHandler
	Relay          *relay.Handler
	Webhook        *webhook.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// The relay and the webhook are unauthenticated surfaces: the relay is
	// the store endpoint the portal's own client calls, the webhook is
	// called by the platform with its shared verify token.
	app.Post("/api/db", cfg.Relay.Handle)
	app.Get("/webhook", cfg.Webhook.Verify)
	app.Post("/webhook", cfg.Webhook.Receive)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)

	conversations := protected.Group("/conversations", auth.RequireAgent())
	conversations.Get("/", cfg.Inbox.ListConversations)
	conversations.Delete("/thread", cfg.Inbox.CloseThread)
	conversations.Get("/:id", cfg.Inbox.GetConversation)
	conversations.Patch("/:id", cfg.Inbox.UpdateConversation)
	conversations.Delete("/:id", cfg.Inbox.DeleteConversation)
	conversations.Get("/:id/messages", cfg.Inbox.ListMessages)
	conversations.Post("/:id/messages", cfg.Inbox.SendMessage)
	conversations.Post("/:id/thread", cfg.Inbox.OpenThread)

	system := protected.Group("/system", auth.RequireAgent())
	system.Get("/status", cfg.System.Status)
	system.Get("/logs", cfg.System.Logs)
	system.Get("/collections", cfg.System.Collections)
	system.Get("/stats", cfg.System.Stats)
	system.Post("/reconnect", cfg.System.Reconnect)
	system.Post("/sync", cfg.System.SyncNow)
	system.Post("/collections/refresh", cfg.System.RefreshMetadata)
	system.Post("/provision", auth.RequireAdmin(), cfg.System.Provision)
	system.Delete("/chats", auth.RequireAdmin(), cfg.System.ClearChats)

	admin := protected.Group("/admin", auth.RequireAdmin())
	admin.Get("/agents", cfg.Admin.ListAgents)
	admin.Post("/agents", cfg.Admin.CreateAgent)
	admin.Patch("/agents/:id", cfg.Admin.UpdateAgent)
	admin.Delete("/agents/:id", cfg.Admin.DeleteAgent)
	admin.Get("/pages", cfg.Admin.ListPages)
	admin.Put("/pages", cfg.Admin.UpsertPage)
	admin.Delete("/pages/:id", cfg.Admin.DeletePage)
	admin.Post("/pages/:id/verify", cfg.Admin.VerifyPage)
	admin.Get("/links", cfg.Admin.ListLinks)
	admin.Post("/links", cfg.Admin.CreateLink)
	admin.Delete("/links/:id", cfg.Admin.DeleteLink)
	admin.Get("/media", cfg.Admin.ListMedia)
	admin.Post("/media", cfg.Admin.CreateMedia)
	admin.Delete("/media/:id", cfg.Admin.DeleteMedia)
}
