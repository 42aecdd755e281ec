package dto

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	Role            string   `json:"role"`
	Avatar          string   `json:"avatar"`
	AssignedPageIDs []string `json:"assignedPageIds"`
}

// UpdateAgentRequest carries a partial agent update. Nil fields keep their
// current value; a non-empty Password is re-hashed before storage.
type UpdateAgentRequest struct {
	Name            *string   `json:"name"`
	Password        *string   `json:"password"`
	Role            *string   `json:"role"`
	Avatar          *string   `json:"avatar"`
	Status          *string   `json:"status"`
	AssignedPageIDs *[]string `json:"assignedPageIds"`
}

// UpsertPageRequest payload for connecting or editing a page.
type UpsertPageRequest struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	AccessToken      string   `json:"accessToken"`
	AssignedAgentIDs []string `json:"assignedAgentIds"`
}

// CreateLinkRequest payload.
type CreateLinkRequest struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// CreateMediaRequest payload.
type CreateMediaRequest struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	IsLocal bool   `json:"isLocal"`
}
