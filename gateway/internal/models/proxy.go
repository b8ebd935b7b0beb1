package models

import "encoding/json"

// ProxyRequest describes one upstream call. Body, when present, is sent as
// JSON.
type ProxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// ProxyResponse is the envelope returned for every completed upstream call.
// Body holds decoded JSON for JSON responses and a JSON string otherwise.
type ProxyResponse struct {
	OK     bool            `json:"ok"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}
