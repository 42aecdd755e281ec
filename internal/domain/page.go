package domain

// Page is a connected messaging-platform channel. Conversations reference a
// page by id; the page itself owns nothing beyond its token and assignments.
type Page struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	IsConnected      bool     `json:"isConnected"`
	AccessToken      string   `json:"accessToken"`
	AssignedAgentIDs []string `json:"assignedAgentIds"`
}

// HasToken reports whether the page carries a platform access token and can
// therefore take part in sync.
func (p Page) HasToken() bool {
	return p.AccessToken != ""
}
