package dto

import "github.com/messengerflow/inbox-service/internal/sync"

// UpdateConversationRequest carries a partial conversation update. Nil fields
// are left untouched.
type UpdateConversationRequest struct {
	Status          *string `json:"status"`
	AssignedAgentID *string `json:"assignedAgentId"`
	UnreadCount     *int    `json:"unreadCount"`
}

// SendMessageRequest payload.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// MutationMeta reports the two-phase outcome of an optimistic write: the
// local apply always precedes remote confirmation, which may fail on its own.
type MutationMeta struct {
	AppliedLocally  bool   `json:"appliedLocally"`
	ConfirmedRemote bool   `json:"confirmedRemote"`
	RemoteError     string `json:"remoteError,omitempty"`
}

// NewMutationMeta converts an engine result for the wire.
func NewMutationMeta(result sync.MutationResult) MutationMeta {
	meta := MutationMeta{
		AppliedLocally:  result.AppliedLocally,
		ConfirmedRemote: result.ConfirmedRemote,
	}
	if result.RemoteErr != nil {
		meta.RemoteError = result.RemoteErr.Error()
	}
	return meta
}
