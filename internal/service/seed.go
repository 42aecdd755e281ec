package service

import (
	"github.com/messengerflow/inbox-service/internal/auth"
	"github.com/messengerflow/inbox-service/internal/config"
	"github.com/messengerflow/inbox-service/internal/domain"
)

// SeedRoster builds the fallback agent roster the engine falls back to when
// the remote agents collection is empty on first load. Without it a fresh
// deployment would only accept the master admin. Empty when no seed agent is
// configured.
func SeedRoster(cfg config.AuthConfig) []domain.Agent {
	if cfg.SeedAgentEmail == "" || cfg.SeedAgentPassword == "" {
		return nil
	}
	hashed, err := auth.HashPassword(cfg.SeedAgentPassword, cfg.BcryptCost)
	if err != nil {
		return nil
	}
	name := cfg.SeedAgentName
	if name == "" {
		name = "Support Agent"
	}
	return []domain.Agent{{
		ID:       "agent-seed",
		Name:     name,
		Email:    cfg.SeedAgentEmail,
		Password: hashed,
		Role:     domain.AgentRoleAgent,
		Status:   "active",
	}}
}
