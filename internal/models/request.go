package models

import "strings"

// ChatRequest for POST /query
type ChatRequest struct {
	Query string `json:"query"`
}

// Question returns the query with surrounding whitespace removed
func (r *ChatRequest) Question() string {
	return strings.TrimSpace(r.Query)
}
