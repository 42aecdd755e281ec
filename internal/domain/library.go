package domain

// ApprovedLink is a pre-approved URL agents may quick-send into a thread.
type ApprovedLink struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// ApprovedMedia is a pre-approved media asset for quick-send.
type ApprovedMedia struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	IsLocal bool   `json:"isLocal"`
}
