package service

import (
	"context"
	"time"

	"github.com/messengerflow/inbox-service/internal/auth"
	"github.com/messengerflow/inbox-service/internal/config"
	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/session"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// AgentDirectory resolves agents by email; the sync engine's roster
// satisfies it.
type AgentDirectory interface {
	AgentByEmail(email string) (domain.Agent, bool)
}

// AuthService coordinates login and logout against the master-admin
// credential pair and the synced agent roster.
type AuthService struct {
	cfg        config.AuthConfig
	directory  AgentDirectory
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, directory AgentDirectory, sessions session.Store) *AuthService {
	return &AuthService{
		cfg:        cfg,
		directory:  directory,
		sessions:   sessions,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the shared token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login checks the master-admin pair first, then the agent roster by exact
// email match. On success a session is persisted and a bearer token issued.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Agent, string, time.Time, error) {
	agent, ok := s.authenticate(email, password)
	if !ok {
		return domain.Agent{}, "", time.Time{}, apperrors.NewUnauthorized("invalid email or password")
	}

	token, sessionID, expiresAt, err := s.tokenMgr.GenerateToken(agent)
	if err != nil {
		return domain.Agent{}, "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Save(ctx, sessionID, agent, s.tokenMgr.TTL()); err != nil {
		return domain.Agent{}, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return agent, token, expiresAt, nil
}

func (s *AuthService) authenticate(email, password string) (domain.Agent, bool) {
	if s.cfg.MasterAdminPassword != "" &&
		email == s.cfg.MasterAdminEmail &&
		auth.VerifyPassword(s.cfg.MasterAdminPassword, password) {
		return domain.Agent{
			ID:     "master-admin",
			Name:   s.cfg.MasterAdminName,
			Email:  s.cfg.MasterAdminEmail,
			Role:   domain.AgentRoleSuperAdmin,
			Status: "active",
		}, true
	}

	agent, ok := s.directory.AgentByEmail(email)
	if !ok {
		return domain.Agent{}, false
	}
	if !auth.VerifyPassword(agent.Password, password) {
		return domain.Agent{}, false
	}
	return agent, true
}

// Logout revokes the caller's session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// HashPassword hashes a new agent password with the configured cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	return auth.HashPassword(password, s.bcryptCost)
}

// HasActiveSession reports whether any agent session is live, one of the
// list poller's activation conditions.
func (s *AuthService) HasActiveSession(ctx context.Context) bool {
	count, err := s.sessions.Count(ctx)
	if err != nil {
		return false
	}
	return count > 0
}
