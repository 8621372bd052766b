package api

// InfoResponse is the JSON form of GET /info.
type InfoResponse struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
