package dto

import (
	"time"

	"github.com/messengerflow/inbox-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token and the authenticated agent.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Agent     AgentResponse `json:"agent"`
}

// AgentResponse is an agent record with the credential stripped.
type AgentResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Role            domain.AgentRole `json:"role"`
	Avatar          string           `json:"avatar"`
	Status          string           `json:"status"`
	AssignedPageIDs []string         `json:"assignedPageIds"`
}

// NewAgentResponse strips the password from a roster record.
func NewAgentResponse(agent domain.Agent) AgentResponse {
	return AgentResponse{
		ID:              agent.ID,
		Name:            agent.Name,
		Email:           agent.Email,
		Role:            agent.Role,
		Avatar:          agent.Avatar,
		Status:          agent.Status,
		AssignedPageIDs: agent.AssignedPageIDs,
	}
}
